// Package server exposes the HTTP API: ingestion, sync, dead-letter
// inspection and replay, health, and metrics.
package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/fluxgate-io/fluxgate/internal/dlq"
	"github.com/fluxgate-io/fluxgate/internal/faults"
	"github.com/fluxgate-io/fluxgate/internal/gateway"
	"github.com/fluxgate-io/fluxgate/internal/metrics"
	"github.com/fluxgate-io/fluxgate/internal/schema"
	"github.com/fluxgate-io/fluxgate/internal/syncer"
	"github.com/fluxgate-io/fluxgate/pkg/logging"
)

// Handler serves the fluxgate API.
type Handler struct {
	gateway      *gateway.Gateway
	orchestrator *syncer.Orchestrator
	validator    *schema.Validator
	store        dlq.Store
	replayer     *dlq.Replayer
	collector    *metrics.Collector
	logger       *logging.Logger
	started      time.Time
}

// NewHandler creates the API handler.
func NewHandler(gw *gateway.Gateway, orch *syncer.Orchestrator, validator *schema.Validator, store dlq.Store, replayer *dlq.Replayer, collector *metrics.Collector, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		gateway:      gw,
		orchestrator: orch,
		validator:    validator,
		store:        store,
		replayer:     replayer,
		collector:    collector,
		logger:       logger,
		started:      time.Now(),
	}
}

// HandleIngest accepts one raw input, validates it against the boundary
// schema, and runs it through the gateway.
func (h *Handler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.sendError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	defer r.Body.Close()

	input, err := h.validator.Decode(body)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.gateway.Ingest(r.Context(), input)
	if err != nil {
		if faults.IsSecurity(err) {
			h.logger.WarnContext(r.Context(), "ingest rejected",
				logging.Error(err),
			)
			h.sendJSON(w, http.StatusForbidden, map[string]string{
				"error": err.Error(),
				"code":  faults.SecurityCode(err),
			})
			return
		}
		h.sendError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.sendJSON(w, http.StatusOK, result)
}

// HandleSync triggers a connector sync run for a user.
func (h *Handler) HandleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.sendError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		h.sendError(w, http.StatusBadRequest, "userId is required")
		return
	}

	result, err := h.orchestrator.SyncAll(r.Context(), req.UserID)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.sendJSON(w, http.StatusOK, result)
}

// HandleDLQList returns recent dead-letter entries.
func (h *Handler) HandleDLQList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.sendError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.sendError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	entries, err := h.store.List(r.Context(), limit)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.sendJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

// HandleDLQReplay runs one replay pass, optionally scoped to an app.
func (h *Handler) HandleDLQReplay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.sendError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	appID := r.URL.Query().Get("app_id")
	replayed, failed, err := h.replayer.ReplayOnce(r.Context(), appID)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.sendJSON(w, http.StatusOK, map[string]int{
		"replayed": replayed,
		"failed":   failed,
	})
}

// Health reports liveness plus a snapshot of the outcome window.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
	}
	if h.collector != nil {
		resp["window"] = h.collector.Snapshot()
	}
	h.sendJSON(w, http.StatusOK, resp)
}

func (h *Handler) sendJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (h *Handler) sendError(w http.ResponseWriter, status int, message string) {
	h.sendJSON(w, status, map[string]string{"error": message})
}
