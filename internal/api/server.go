package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"quizgen/internal/config"
	"quizgen/internal/jobs"
	"quizgen/internal/logging"
	"quizgen/internal/services"
)

const (
	maxRequestBytes = 8 << 20
	defaultJobLimit = 50
)

// Server hosts the HTTP routes.
type Server struct {
	bind   string
	token  string
	logger *slog.Logger
	svc    *QuizService

	listener net.Listener
	server   *http.Server
}

// NewServer wires the routes around svc. The write timeout covers a full
// generate call: three RPCs of up to two attempts each.
func NewServer(cfg *config.Config, svc *QuizService, logger *slog.Logger) (*Server, error) {
	if cfg == nil || svc == nil {
		return nil, errors.New("api server requires config and quiz service")
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, services.Wrap(services.ErrConfiguration, "api", "listen", "paths.api_bind is empty", nil)
	}
	srv := &Server{
		bind:   bind,
		token:  cfg.Paths.APIToken,
		logger: logging.NewComponentLogger(logger, "api-server"),
		svc:    svc,
	}
	srv.server = &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      6*cfg.RequestTimeout() + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

// Handler returns the routed mux, wrapped in auth and request-id middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/notebooklm/generate", s.route(s.handleGenerate))
	mux.HandleFunc("/api/notebooklm/poll", s.route(s.handlePoll))
	mux.HandleFunc("/api/jobs", s.route(s.handleJobs))
	mux.HandleFunc("/api/status", s.route(s.handleStatus))
	return mux
}

func (s *Server) route(next http.HandlerFunc) http.HandlerFunc {
	return authMiddleware(s.token, func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := services.WithRequestID(r.Context(), requestID)
		next(w, r.WithContext(ctx))
	})
}

// Start begins serving in the background until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening",
		logging.String("address", listener.Addr().String()),
		logging.Bool("auth_required", s.token != ""),
	)
	return nil
}

// Addr reports the bound address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, waiting briefly for in-flight requests.
func (s *Server) Stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req GenerateRequest
	body := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	resp, err := s.svc.Generate(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, "generate", err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	query := r.URL.Query()
	resp, err := s.svc.Poll(r.Context(), query.Get("notebookId"), query.Get("artifactId"))
	if err != nil {
		s.writeServiceError(w, r, "poll", err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	query := r.URL.Query()
	limit := defaultJobLimit
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	var statuses []jobs.Status
	for _, value := range query["status"] {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			statuses = append(statuses, jobs.Status(strings.ToLower(trimmed)))
		}
	}
	items, err := s.svc.Jobs(r.Context(), limit, statuses...)
	if err != nil {
		s.writeServiceError(w, r, "jobs", err)
		return
	}
	s.writeJSON(w, http.StatusOK, JobListResponse{Items: items})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status, err := s.svc.Status(r.Context())
	if err != nil {
		s.writeServiceError(w, r, "status", err)
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, route string, err error) {
	status := services.HTTPStatus(err)
	logger := logging.WithContext(r.Context(), s.logger)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			logging.String("route", route),
			logging.String("error_kind", services.Kind(err)),
			logging.Error(err),
		)
	} else {
		logger.Debug("request rejected", logging.String("route", route), logging.Error(err))
	}
	s.writeError(w, status, err.Error())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, ErrorResponse{Error: message})
}
