// Package middleware holds the HTTP middleware of the airdrop API.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"solana-airdrop/internal/auth"
	"solana-airdrop/internal/observability"
	"solana-airdrop/internal/serve/httperror"
)

type contextKey string

const (
	claimsContextKey contextKey = "auth_claims"
	loggerContextKey contextKey = "logger"
)

const (
	msgAuthRequired   = "Authentication required"
	msgInvalidToken   = "Invalid or expired token"
	msgTooManyRequest = "Too many requests, please try again later"
)

// TokenValidator validates bearer tokens.
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

var _ TokenValidator = (*auth.JWTManager)(nil)

// LoggerFromContext returns the request logger, or the standard logger outside a request.
func LoggerFromContext(ctx context.Context) *logrus.Entry {
	if l, ok := ctx.Value(loggerContextKey).(*logrus.Entry); ok {
		return l
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// ClaimsFromContext returns the claims of an authenticated request.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsContextKey).(*auth.Claims)
	return c, ok
}

// RecoverHandler recovers from panics and renders a 500.
func RecoverHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("panic: %v", r)
			}

			// The client is gone; let net/http handle it.
			if errors.Is(err, http.ErrAbortHandler) {
				panic(err)
			}

			httperror.InternalError(req.Context(), "Something went wrong!", err).Render(rw)
		}()

		next.ServeHTTP(rw, req)
	})
}

// LoggingMiddleware attaches a request logger to the context and logs each request.
func LoggingMiddleware(base *logrus.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			mw := chimiddleware.NewWrapResponseWriter(rw, req.ProtoMajor)

			l := base.WithFields(logrus.Fields{
				"method": req.Method,
				"path":   req.URL.Path,
				"req":    chimiddleware.GetReqID(req.Context()),
			})
			req = req.WithContext(context.WithValue(req.Context(), loggerContextKey, l))

			l.WithFields(logrus.Fields{
				"subsys":    "http",
				"ip":        req.RemoteAddr,
				"useragent": req.Header.Get("User-Agent"),
			}).Debug("starting request")
			started := time.Now()

			next.ServeHTTP(mw, req)

			l.WithFields(logrus.Fields{
				"subsys":   "http",
				"status":   mw.Status(),
				"bytes":    mw.BytesWritten(),
				"duration": time.Since(started),
				"route":    routePattern(req),
			}).Info("finished request")
		})
	}
}

// MetricsRequestHandler records request counts and latency by route pattern.
func MetricsRequestHandler(m *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			mw := chimiddleware.NewWrapResponseWriter(rw, req.ProtoMajor)
			then := time.Now()
			next.ServeHTTP(mw, req)

			status := mw.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.RecordHTTPRequest(req.Method, routePattern(req), status, time.Since(then))
		})
	}
}

// routePattern returns the matched chi pattern, falling back to "unmatched".
func routePattern(req *http.Request) string {
	if rctx := chi.RouteContext(req.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// AuthenticateMiddleware requires an "Authorization: Bearer <token>" header.
func AuthenticateMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			authHeader := req.Header.Get("Authorization")
			token, found := strings.CutPrefix(authHeader, "Bearer ")
			if !found || strings.TrimSpace(token) == "" {
				httperror.Unauthorized(msgAuthRequired, nil).Render(rw)
				return
			}

			ctx := req.Context()
			claims, err := validator.ValidateToken(strings.TrimSpace(token))
			if err != nil {
				LoggerFromContext(ctx).WithError(err).Debug("rejected bearer token")
				httperror.Unauthorized(msgInvalidToken, err).Render(rw)
				return
			}

			ctx = context.WithValue(ctx, claimsContextKey, claims)
			ctx = context.WithValue(ctx, loggerContextKey, LoggerFromContext(ctx).WithField("user_id", claims.UserID))
			next.ServeHTTP(rw, req.WithContext(ctx))
		})
	}
}

// CorsMiddleware allows GET and POST from the configured origins.
func CorsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type", "Authorization", "Idempotency-Key"},
	})
	return c.Handler
}

// RateLimitMiddleware allows requests per window for each client IP.
func RateLimitMiddleware(requests int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(requests, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(rw http.ResponseWriter, _ *http.Request) {
			httperror.TooManyRequests(msgTooManyRequest).Render(rw)
		}),
	)
}

type cspItem struct {
	Directive string
	Sources   []string
}

func (c cspItem) String() string {
	return fmt.Sprintf("%s %s;", c.Directive, strings.Join(c.Sources, " "))
}

// SecurityHeadersMiddleware sets the usual hardening headers on every response.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	self := "'self'"
	items := []cspItem{
		{"default-src", []string{self}},
		{"base-uri", []string{self}},
		{"frame-ancestors", []string{self}},
		{"object-src", []string{"'none'"}},
	}
	var csp strings.Builder
	for _, item := range items {
		csp.WriteString(item.String())
	}
	policy := csp.String()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			h := rw.Header()
			h.Set("Content-Security-Policy", policy)
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "SAMEORIGIN")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
			h.Set("X-DNS-Prefetch-Control", "off")
			next.ServeHTTP(rw, req)
		})
	}
}
