// Package http exposes agent configurations over a JSON HTTP API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/agentgraph/internal/logging"
	"github.com/aretw0/agentgraph/pkg/domain"
	"github.com/aretw0/agentgraph/pkg/runner"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// HealthPath is excluded from access logs.
const HealthPath = "/health-check"

// maxBodySize bounds request bodies; user input itself is limited by the runner.
const maxBodySize = 1 << 20

// Agents runs chat turns against named agent configurations.
type Agents interface {
	Chat(ctx context.Context, configName, threadID, userInput string) (runner.Response, error)
	HasConfig(name string) bool
	PrimaryConfig() string
}

// ChatRequest is the body of the chat endpoints.
type ChatRequest struct {
	ThreadID  string `json:"thread_id"`
	UserInput string `json:"user_input"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RequestObserver receives one call per served request.
type RequestObserver func(method, route string, code int, d time.Duration)

// Server handles the HTTP API.
type Server struct {
	agents   Agents
	schemas  *schemas
	logger   *slog.Logger
	metrics  http.Handler
	observer RequestObserver
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the access and error logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithRequestObserver reports every request, for example to a metrics collector.
func WithRequestObserver(o RequestObserver) Option {
	return func(s *Server) { s.observer = o }
}

// NewHandler creates the HTTP handler for agents.
func NewHandler(ctx context.Context, agents Agents, opts ...Option) (http.Handler, error) {
	sch, err := loadSchemas(ctx)
	if err != nil {
		return nil, err
	}
	s := &Server{agents: agents, schemas: sch, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.accessLog)
	r.Use(s.recoverer)
	r.Use(enableCORS)

	r.Get(HealthPath, s.health)
	r.Post("/chat", s.chatPrimary)
	r.Post("/chat/{config_name}", s.chatNamed)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(rawSpec)
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
	return r, nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		if s.observer != nil {
			s.observer(r.Method, route, status, time.Since(start))
		}
		if r.URL.Path == HealthPath {
			return
		}
		s.logger.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				err := fmt.Errorf("panic: %v", rec)
				s.logger.Error("Handler panicked", "path", r.URL.Path, "err", err)
				writeUnexpected(w, err)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (s *Server) chatPrimary(w http.ResponseWriter, r *http.Request) {
	s.chat(w, r, s.agents.PrimaryConfig())
}

func (s *Server) chatNamed(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "config_name")
	if !s.agents.HasConfig(name) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Unknown agent config: %s", name))
		return
	}
	s.chat(w, r, name)
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request, configName string) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.schemas.validate("ChatRequest", body); err != nil {
		s.logger.Warn("Chat: invalid request", "config", configName, "err", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	var req ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	resp, err := s.agents.Chat(r.Context(), configName, req.ThreadID, req.UserInput)
	if errors.Is(err, domain.ErrInvalidInput) {
		s.logger.Warn("Chat: input rejected", "config", configName, "thread_id", req.ThreadID, "err", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("Chat failed", "config", configName, "thread_id", req.ThreadID, "err", err)
		writeUnexpected(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeUnexpected(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, fmt.Sprintf("An unexpected error occurred: %v", err))
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, ErrorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
