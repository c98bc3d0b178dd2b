package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"macro-journal/pkg/logger"
)

// Generator produces text for a prompt; the proxy forwards to it.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Server hosts the text-generation proxy endpoints consumed by the
// insight engine and the journal clients.
type Server struct {
	server    *http.Server
	generator Generator
	logger    *logger.Logger
}

func NewServer(port string, generator Generator, logger *logger.Logger) *Server {
	s := &Server{
		generator: generator,
		logger:    logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/claude-snack", s.handleGenerate("snack suggestion"))
	mux.HandleFunc("/claude-report", s.handleGenerate("report"))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	s.server = &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

func (s *Server) handleGenerate(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
			return
		}

		var in struct {
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Prompt == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing prompt"})
			return
		}

		text, err := s.generator.Generate(r.Context(), in.Prompt)
		if err != nil {
			s.logger.Error("generation failed", "kind", kind, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to generate " + kind})
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"text": text})
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	return s.server.Shutdown(ctx)
}
