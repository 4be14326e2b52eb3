// Package serve wires the airdrop API router and runs the HTTP server.
package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"solana-airdrop/internal/crashtracker"
	"solana-airdrop/internal/observability"
	"solana-airdrop/internal/serve/httperror"
	"solana-airdrop/internal/serve/httphandler"
	"solana-airdrop/internal/serve/middleware"
)

const shutdownTimeout = 30 * time.Second

// ServeOptions holds the dependencies of the HTTP server.
type ServeOptions struct {
	Port int

	Service        httphandler.AirdropService
	TokenValidator middleware.TokenValidator
	CrashTracker   crashtracker.Client
	Metrics        *observability.Metrics
	Gatherer       prometheus.Gatherer
	Logger         *logrus.Entry

	CorsAllowedOrigins []string
	RateLimitRequests  int
	RateLimitWindow    time.Duration

	Network string
	Mint    string
	Version string
}

func (o *ServeOptions) validate() error {
	switch {
	case o.Service == nil:
		return errors.New("airdrop service is required")
	case o.TokenValidator == nil:
		return errors.New("token validator is required")
	case o.RateLimitRequests <= 0 || o.RateLimitWindow <= 0:
		return errors.New("rate limit requests and window must be positive")
	}
	return nil
}

// Handler builds the API router.
func Handler(o ServeOptions) (http.Handler, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}
	log := o.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if o.CrashTracker != nil {
		httperror.SetDefaultReportErrorFunc(o.CrashTracker.LogAndReportErrors)
	}
	gatherer := o.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	mux := chi.NewMux()

	mux.Use(middleware.CorsMiddleware(o.CorsAllowedOrigins))
	mux.Use(chimiddleware.RequestID)
	mux.Use(chimiddleware.RealIP)
	mux.Use(middleware.LoggingMiddleware(log))
	mux.Use(middleware.RecoverHandler)
	mux.Use(middleware.MetricsRequestHandler(o.Metrics))
	mux.Use(middleware.SecurityHeadersMiddleware())

	mux.Method(http.MethodGet, "/health", httphandler.HealthHandler{Network: o.Network, Mint: o.Mint, Version: o.Version})
	mux.Method(http.MethodGet, "/metrics", observability.Handler(gatherer))

	airdropHandler := httphandler.AirdropHandler{Service: o.Service}
	mux.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimitMiddleware(o.RateLimitRequests, o.RateLimitWindow))
		r.Use(middleware.AuthenticateMiddleware(o.TokenValidator))

		r.Route("/airdrop", func(r chi.Router) {
			r.Post("/", airdropHandler.PostAirdrop)
			r.Post("/csv", airdropHandler.PostAirdropCSV)
			r.Get("/{id}", airdropHandler.GetRun)
			r.Get("/{id}/transfers.csv", airdropHandler.ExportTransfers)
		})
	})

	return mux, nil
}

// Serve runs the API until ctx is canceled, then shuts down gracefully.
func Serve(ctx context.Context, o ServeOptions) error {
	handler, err := Handler(o)
	if err != nil {
		return fmt.Errorf("building handler: %w", err)
	}
	log := o.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", o.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// Direct airdrops confirm each transfer before responding.
		WriteTimeout: 10 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", o.Port).Info("Airdrop service listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
