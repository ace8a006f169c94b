// Package handler exposes a session over HTTP: the MCP tool endpoint, a
// health check and the Prometheus scrape endpoint.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shopsync/internal/model"
	"shopsync/internal/session"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	session  *session.Session
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// New creates a Handler serving sess. A nil gatherer disables /metrics.
func New(sess *session.Session, gatherer prometheus.Gatherer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		session:  sess,
		gatherer: gatherer,
		logger:   logger,
	}
}

// RegisterRoutes registers all HTTP routes with the given ServeMux.
// Uses Go 1.22+ method routing patterns.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// MCP transport - JSON-RPC endpoint using official MCP SDK
	mux.Handle("/mcp", h.NewMCPHandler())

	if h.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}

	// Health check
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /healthz", h.handleHealth)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, healthResponse{
		Status:   "ok",
		LoggedIn: h.session.LoggedIn(r.Context()),
	})
}

type healthResponse struct {
	Status   string `json:"status"`
	LoggedIn bool   `json:"logged_in"`
}

// === Response Helpers ===

// writeJSON sends a JSON response with the given status code.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// toolError converts engine errors to MCP-friendly errors.
// OpError messages are already user-facing; anything else is logged and hidden.
func (h *Handler) toolError(err error) error {
	var opErr *model.OpError
	if errors.As(err, &opErr) {
		return fmt.Errorf("%s: %s", opErr.Code, model.Message(err, "request failed"))
	}
	// Don't leak internal error details
	h.logger.Error("mcp internal error", slog.String("error", err.Error()))
	return fmt.Errorf("internal error")
}
