// Package http exposes the chatbot over HTTP: flow configuration, a websocket chat endpoint
// and operational probes.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/chatflow/internal/logging"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// MaxConfigSize bounds an uploaded flow document.
const MaxConfigSize = 4 << 20

// Server routes HTTP requests to the flow store and the conversation engine.
type Server struct {
	Flows   ports.FlowStore
	Engine  Conversation
	Hub     *Hub
	Metrics http.Handler

	app     string
	version string
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics mounts a metrics handler (usually promhttp) on /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.Metrics = h
	}
}

// WithVersion sets the values reported by /info.
func WithVersion(app, version string) Option {
	return func(s *Server) {
		s.app = app
		s.version = version
	}
}

// NewHandler creates the HTTP handler.
// The hub must be the MessageSender the engine was built with.
func NewHandler(flows ports.FlowStore, engine Conversation, hub *Hub, opts ...Option) http.Handler {
	s := &Server{
		Flows:   flows,
		Engine:  engine,
		Hub:     hub,
		app:     "chatflow",
		version: "dev",
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Post("/api/config", s.PostConfig)
	r.Get("/api/config", s.GetConfig)
	r.Get("/chatbot", s.Chat)
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.Metrics != nil {
		r.Handle("/metrics", s.Metrics)
	}
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PostConfig handles POST /api/config: it installs the uploaded flow.
func (s *Server) PostConfig(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxConfigSize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		s.logger.Warn("PostConfig: unreadable body", "err", err)
		return
	}

	var graph domain.Graph
	if err := json.Unmarshal(body, &graph); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid flow: %v", err))
		s.logger.Warn("PostConfig: undecodable flow", "err", err)
		return
	}

	if err := s.Flows.Install(r.Context(), &graph); err != nil {
		if errors.Is(err, domain.ErrInvalidGraph) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		s.logger.Error("PostConfig: install failed", "err", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// GetConfig handles GET /api/config.
func (s *Server) GetConfig(w http.ResponseWriter, r *http.Request) {
	graph, ok := s.Flows.Current()
	if !ok {
		writeError(w, http.StatusNotFound, "Configuration not found.")
		return
	}
	writeJSON(w, http.StatusOK, graph)
}

// Chat handles GET /chatbot, the websocket conversation endpoint.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	s.Hub.Serve(w, r, s.Engine)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if _, ok := s.Flows.Current(); !ok {
		status = "unconfigured"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      status,
		"connections": s.Hub.Len(),
	})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{
		"app":     s.app,
		"version": strings.TrimSpace(s.version),
	}
	if g, ok := s.Flows.Current(); ok {
		resp["flow_id"] = g.FlowID
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Response encode failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
