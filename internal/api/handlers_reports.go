package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/docinsight/internal/store"
)

const defaultListLimit = 50

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	results := s.orchestrator.Results()
	if results == nil {
		jsonError(w, "report store unavailable", http.StatusServiceUnavailable)
		return
	}

	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	recs, err := results.List(r.Context(), limit)
	if err != nil {
		jsonError(w, "failed to list reports: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": recs})
}

func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	inMemory := s.orchestrator.GetJob(jobID) != nil
	s.orchestrator.ForgetJob(jobID)

	deleted := inMemory
	if results := s.orchestrator.Results(); results != nil {
		err := results.Delete(r.Context(), jobID)
		switch {
		case err == nil:
			deleted = true
		case !errors.Is(err, store.ErrNotFound):
			jsonError(w, "failed to delete report: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}
	if !deleted {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"job_id": jobID, "deleted": true})
}

func (s *Server) handleLLMStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		jsonError(w, "llm stats unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"queue_depth": s.orchestrator.QueueDepth(),
		"stats":       s.stats.Snapshot(),
	})
}
