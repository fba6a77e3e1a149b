package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/docinsight/internal/backend"
	"github.com/dgallion1/docinsight/internal/evaluation"
	"github.com/dgallion1/docinsight/internal/insights"
	"github.com/dgallion1/docinsight/internal/pipeline"
	"github.com/dgallion1/docinsight/internal/store"
)

// maxGroundTruthBytes bounds evaluate request bodies.
const maxGroundTruthBytes = 1 << 20

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !backend.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	personas := formPersonas(r.MultipartForm.Value["persona"])
	topK := s.cfg.TopK
	if v := r.FormValue("top_k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonError(w, "top_k must be a positive integer", http.StatusBadRequest)
			return
		}
		topK = n
	}

	if results := s.orchestrator.Results(); results != nil && r.FormValue("force") != "true" {
		hash := pipeline.ContentHashHex(data)
		id, ok, err := results.FindByHash(r.Context(), hash, personas)
		if err != nil {
			s.log.Warn("dedup lookup failed", "filename", filename, "error", err)
		} else if ok {
			s.log.Info("duplicate upload", "filename", filename, "job_id", id)
			writeJSON(w, http.StatusOK, map[string]any{
				"job_id":       id,
				"status":       pipeline.StatusCompleted,
				"deduplicated": true,
				"result_url":   fmt.Sprintf("/api/analyze/%s/result", id),
			})
			return
		}
	}

	job := pipeline.NewJob(filename, personas, topK, data)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":     job.ID,
		"status":     job.Snapshot().Status,
		"personas":   personas,
		"status_url": fmt.Sprintf("/api/analyze/%s/status", job.ID),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		if rec, err := s.storedRecord(r.Context(), jobID); err == nil {
			writeJSON(w, http.StatusOK, map[string]any{
				"job_id":   rec.JobID,
				"status":   rec.Status,
				"filename": rec.Filename,
				"personas": rec.Personas,
			})
			return
		}
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	report, code, err := s.loadReport(r.Context(), jobID)
	if err != nil {
		jsonError(w, err.Error(), code)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	report, code, err := s.loadReport(r.Context(), jobID)
	if err != nil {
		jsonError(w, err.Error(), code)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxGroundTruthBytes+1))
	if err != nil {
		jsonError(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if len(body) > maxGroundTruthBytes {
		jsonError(w, "ground truth too large", http.StatusRequestEntityTooLarge)
		return
	}
	gt, err := evaluation.ParseGroundTruth(body)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, insights.EvaluateReport(report, gt))
}

// loadReport finds the report for jobID, first among live jobs and then in
// the result store. The returned code is the HTTP status to use on error.
func (s *Server) loadReport(ctx context.Context, jobID string) (*insights.Report, int, error) {
	if job := s.orchestrator.GetJob(jobID); job != nil {
		snap := job.Snapshot()
		if !snap.Status.Done() {
			return nil, http.StatusConflict, fmt.Errorf("job is %s", snap.Status)
		}
		if report := job.Report(); report != nil {
			return report, http.StatusOK, nil
		}
		if snap.Status == pipeline.StatusFailed {
			return nil, http.StatusUnprocessableEntity, fmt.Errorf("job failed: %s", strings.Join(snap.Progress.Errors, "; "))
		}
	}

	rec, err := s.storedRecord(ctx, jobID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, http.StatusNotFound, errors.New("job not found")
	}
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	report, err := insights.DecodeReport(rec.Report)
	if err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("decode stored report: %w", err)
	}
	return report, http.StatusOK, nil
}

func (s *Server) storedRecord(ctx context.Context, jobID string) (store.Record, error) {
	results := s.orchestrator.Results()
	if results == nil {
		return store.Record{}, store.ErrNotFound
	}
	return results.Get(ctx, jobID)
}

// formPersonas trims the submitted personas, dropping blanks and repeats.
func formPersonas(values []string) []string {
	var out []string
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	if len(out) == 0 {
		return []string{insights.DefaultPersona}
	}
	return out
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}
