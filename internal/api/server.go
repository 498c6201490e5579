// Package api exposes the HTTP surface of the daemon: job submission and
// polling for the asynchronous pipelines, plus a few synchronous audio
// utilities.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"mixdown/internal/config"
	"mixdown/internal/jobs"
	"mixdown/internal/logging"
	"mixdown/internal/pipeline"
	"mixdown/internal/workspace"
)

// Server wires the HTTP handlers over the job engine and pipeline adapters.
type Server struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *jobs.Store
	runner   *jobs.Runner
	janitor  *workspace.Janitor
	deps     *pipeline.Deps
	validate *validator.Validate

	listener net.Listener
	server   *http.Server
}

// NewServer builds the API server. It does not listen until Start.
func NewServer(cfg *config.Config, store *jobs.Store, runner *jobs.Runner, janitor *workspace.Janitor, deps *pipeline.Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "api"),
		store:    store,
		runner:   runner,
		janitor:  janitor,
		deps:     deps,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/jobs", s.handleJobs)

	mux.HandleFunc("/api/render/start", s.handleRenderStart)
	mux.HandleFunc("/api/render/progress", s.handleProgress("render"))
	mux.HandleFunc("/api/render/result", s.handleResult("render"))

	mux.HandleFunc("/api/stems/start", s.handleStemsStart)
	mux.HandleFunc("/api/stems/progress", s.handleProgress("stems"))
	mux.HandleFunc("/api/stems/result", s.handleResult("stems"))

	mux.HandleFunc("/api/lyrics/align/start", s.handleAlignStart)
	mux.HandleFunc("/api/lyrics/align/progress", s.handleProgress("lyrics-align"))
	mux.HandleFunc("/api/lyrics/align/result", s.handleResult("lyrics-align"))

	mux.HandleFunc("/api/lyrics/extract/start", s.handleExtractStart)
	mux.HandleFunc("/api/lyrics/extract/progress", s.handleProgress("lyrics-extract"))
	mux.HandleFunc("/api/lyrics/extract/result", s.handleResult("lyrics-extract"))

	mux.HandleFunc("/api/normalize/start", s.handleNormalizeStart)
	mux.HandleFunc("/api/normalize/progress", s.handleProgress("normalize"))
	mux.HandleFunc("/api/normalize/result", s.handleResult("normalize"))

	mux.HandleFunc("/api/audio/measure-lufs", s.handleMeasureLUFS)
	mux.HandleFunc("/api/audio/normalize", s.handleNormalize)

	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Minute,
		WriteTimeout:      30 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler exposes the mux for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start begins serving on the configured bind address. The server shuts
// down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	bind := strings.TrimSpace(s.cfg.Paths.APIBind)
	if bind == "" {
		return errors.New("api: bind address required")
	}
	listener, err := net.Listen("tcp", bind)
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
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address after Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down.
func (s *Server) Stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, StatusResponse{Status: "ok", Jobs: s.store.Len()})
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	records := s.store.List()
	summaries := make([]JobSummary, 0, len(records))
	for _, record := range records {
		summaries = append(summaries, JobSummary{
			JobID:     record.ID,
			Kind:      record.Kind,
			Status:    string(record.Status),
			Progress:  record.Progress,
			Error:     record.Error,
			CreatedAt: record.CreatedAt.Format(time.RFC3339),
			UpdatedAt: record.UpdatedAt.Format(time.RFC3339),
		})
	}
	s.writeJSON(w, http.StatusOK, JobListResponse{Jobs: summaries})
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
	s.writeJSON(w, status, map[string]string{"error": message})
}
