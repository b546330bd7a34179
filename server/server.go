// Package server handles HTTP endpoints and request routing.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/kibsywow/recruit-bot/pkg/lfg"
	"github.com/kibsywow/recruit-bot/schedule"
)

// Poller runs the pipeline once.
type Poller interface {
	Run(ctx context.Context) (*lfg.Report, error)
}

// Server handles HTTP requests.
type Server struct {
	poller Poller
	logger *slog.Logger
}

// Config holds server configuration.
type Config struct {
	Poller Poller
	Logger *slog.Logger
}

// New creates a new HTTP server handler.
func New(cfg *Config) *Server {
	return &Server{
		poller: cfg.Poller,
		logger: cfg.Logger,
	}
}

type pollResponse struct {
	Status string      `json:"status"`
	Error  string      `json:"error,omitempty"`
	Report *lfg.Report `json:"report,omitempty"`
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/pollz", s.handlePoll)
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, port string) error {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           s.Handler(),
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Minute, // a poll walks the whole roster
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", "port", port)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(w, `{"status":"healthy"}`); err != nil {
		s.logger.Warn("Failed to write health response", "error", err)
		return
	}
}

func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.logger.Info("Poll endpoint triggered")

	report, err := s.poller.Run(r.Context())
	switch {
	case errors.Is(err, schedule.ErrBusy):
		s.writeJSON(w, http.StatusConflict, pollResponse{Status: "busy"})
	case err != nil:
		s.logger.Error("Poll run failed", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, pollResponse{Status: "failed", Error: err.Error(), Report: report})
	default:
		s.writeJSON(w, http.StatusOK, pollResponse{Status: "completed", Report: report})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to write response", "error", err)
	}
}
