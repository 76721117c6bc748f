// Package server exposes the operational HTTP surface of the delivery
// engine: health, metrics, dead-letter inspection and replay, cache
// control, and test publishes. End-user traffic never lands here.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/canopyerp/outbound/internal/config"
	"github.com/canopyerp/outbound/internal/deadletter"
	"github.com/canopyerp/outbound/internal/dispatch"
	"github.com/canopyerp/outbound/internal/events"
	"github.com/canopyerp/outbound/internal/metrics"
	"github.com/canopyerp/outbound/internal/subscriptions"
)

// Server is the admin HTTP server.
type Server struct {
	cfg        *config.ServerConfig
	dispatcher *dispatch.Dispatcher
	registry   *subscriptions.Registry
	dlq        *deadletter.Store
	httpServer *http.Server
}

// New creates a server wired to the engine's service objects.
func New(cfg *config.ServerConfig, dispatcher *dispatch.Dispatcher, registry *subscriptions.Registry, dlq *deadletter.Store) *Server {
	s := &Server{
		cfg:        cfg,
		dispatcher: dispatcher,
		registry:   registry,
		dlq:        dlq,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /v1/deadletters", s.handleListDeadLetters)
	mux.HandleFunc("POST /v1/deadletters/{index}/retry", s.handleRetryDeadLetter)
	mux.HandleFunc("DELETE /v1/deadletters", s.handleClearDeadLetters)
	mux.HandleFunc("POST /v1/publish", s.handlePublish)
	mux.HandleFunc("POST /v1/test-webhook", s.handleTestWebhook)
	mux.HandleFunc("POST /v1/cache/clear", s.handleClearCache)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// Start begins serving. It blocks until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("Admin server listening")

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("admin server: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"queue_depth": s.dispatcher.QueueDepth(),
		"dead_letter": s.dlq.Len(),
	})
}

func (s *Server) handleListDeadLetters(w http.ResponseWriter, _ *http.Request) {
	entries := s.dlq.List()
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(entries),
		"entries": entries,
	})
}

func (s *Server) handleRetryDeadLetter(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "index must be an integer")
		return
	}

	res, err := s.dlq.Retry(r.Context(), index)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	metrics.SetDeadLetterSize(s.dlq.Len())
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleClearDeadLetters(w http.ResponseWriter, _ *http.Request) {
	removed := s.dlq.Clear()
	metrics.SetDeadLetterSize(0)
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}

type publishRequest struct {
	Event    string          `json:"event"`
	Data     map[string]any  `json:"data"`
	Metadata events.Metadata `json:"metadata"`
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.Event == "" {
		writeError(w, http.StatusBadRequest, "event is required")
		return
	}

	ev := s.dispatcher.Publish(events.Type(req.Event), req.Data, req.Metadata)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"queued":        true,
		"correlationId": ev.Metadata.CorrelationID,
	})
}

func (s *Server) handleTestWebhook(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.Event == "" {
		writeError(w, http.StatusBadRequest, "event is required")
		return
	}

	results, err := s.dispatcher.PublishSync(r.Context(), events.Type(req.Event), req.Data, req.Metadata)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(results),
		"results": results,
	})
}

func (s *Server) handleClearCache(w http.ResponseWriter, _ *http.Request) {
	s.registry.ClearCache()
	writeJSON(w, http.StatusOK, map[string]any{"cleared": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Encoding response failed")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}
