// Package api exposes stored runs and results over a small read-only
// HTTP surface.
package api

import (
	"encoding/json"
	"net/http"

	"claimlab/internal/logging"
	"claimlab/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Service serves the run history and result lists.
type Service struct {
	store ports.ResultStore
	log   logging.Logger
}

// NewService creates the API service.
func NewService(store ports.ResultStore, log logging.Logger) *Service {
	return &Service{store: store, log: log}
}

// Routes builds the HTTP router.
func (s *Service) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/runs", s.handleListRuns)
	r.Get("/runs/{id}/results", s.handleResults)
	return r
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Service) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRuns(r.Context())
	if err != nil {
		s.log.Error("api: list runs: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list runs"})
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Service) handleResults(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	results, err := s.store.ResultsByRun(r.Context(), runID)
	if err != nil {
		s.log.Error("api: results for run %s: %v", runID, err)
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
