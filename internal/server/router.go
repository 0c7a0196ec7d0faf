package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fluxgate-io/fluxgate/internal/middleware"
)

// NewRouter constructs a ServeMux with the fluxgate API routes registered.
// API routes require a valid bearer token; health and metrics do not.
func NewRouter(h *Handler, auth *Authenticator) http.Handler {
	mux := http.NewServeMux()

	api := http.NewServeMux()
	api.HandleFunc("/api/v1/ingest", h.HandleIngest)
	api.HandleFunc("/api/v1/sync", h.HandleSync)
	api.HandleFunc("/api/v1/dlq", h.HandleDLQList)
	api.HandleFunc("/api/v1/dlq/replay", h.HandleDLQReplay)
	mux.Handle("/api/v1/", auth.Middleware(api))

	mux.HandleFunc("/healthz", h.Health)
	mux.Handle("/metrics", promhttp.Handler())

	return middleware.CorrelationID(mux)
}
