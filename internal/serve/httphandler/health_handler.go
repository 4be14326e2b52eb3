package httphandler

import "net/http"

// HealthHandler reports liveness and the token being distributed.
type HealthHandler struct {
	Network string
	Mint    string
	Version string
}

func (h HealthHandler) ServeHTTP(rw http.ResponseWriter, _ *http.Request) {
	renderJSON(rw, http.StatusOK, map[string]string{
		"status":  "ok",
		"network": h.Network,
		"mint":    h.Mint,
		"version": h.Version,
	})
}
