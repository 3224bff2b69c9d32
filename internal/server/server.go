// Package server provides the HTTP interface of the mudra gesture recognizer:
// health, a live MJPEG preview, a websocket feed of results and the label
// catalog.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/labels"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Catalog   *labels.Catalog
	// Stats reports the state of the recognition loop. Optional.
	Stats func() app.Stats
}

// Server serves the HTTP API. It is also a display.Sink: frames shown on it
// are streamed to /api/stream clients.
type Server struct {
	config  Config
	mux     *http.ServeMux
	start   time.Time
	stream  *StreamHandler
	results *ResultsHandler
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config:  config,
		mux:     http.NewServeMux(),
		start:   time.Now(),
		stream:  NewStreamHandler(),
		results: NewResultsHandler(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.Handle("/api/stream", s.stream)
	s.mux.Handle("/api/results", s.results)

	if s.config.Catalog != nil {
		s.mux.HandleFunc("/api/labels", s.handleLabels)
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Show publishes an annotated frame to stream clients.
func (s *Server) Show(frame *gocv.Mat) error {
	return s.stream.Show(frame)
}

// Publish sends a recognition result to websocket clients. It never blocks
// the caller.
func (s *Server) Publish(r app.Result) {
	s.results.Publish(r)
}

// Close disconnects stream and websocket clients.
func (s *Server) Close() error {
	s.stream.Close()
	s.results.Close()
	return nil
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
		"system": systemStats(),
	}
	if s.config.Stats != nil {
		response["loop"] = s.config.Stats()
	}

	writeJSON(w, response)
}

type labelEntry struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// handleLabels handles GET requests to /api/labels.
func (s *Server) handleLabels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	names := s.config.Catalog.Names()
	entries := make([]labelEntry, len(names))
	for i, n := range names {
		entries[i] = labelEntry{Index: i, Name: n}
	}
	writeJSON(w, map[string]interface{}{"labels": entries})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warnf("HTTP server shutdown: %v", err)
		}
	}()

	log.Infof("HTTP server listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
