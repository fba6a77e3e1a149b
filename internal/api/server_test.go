package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgallion1/docinsight/internal/config"
	"github.com/dgallion1/docinsight/internal/headings"
	"github.com/dgallion1/docinsight/internal/insights"
	"github.com/dgallion1/docinsight/internal/llm"
	"github.com/dgallion1/docinsight/internal/pipeline"
	"github.com/dgallion1/docinsight/internal/retrieval"
	"github.com/dgallion1/docinsight/internal/store"
)

const testKey = "secret"

const notes = `# Overview

Key points of the course for every student.

## Study plan

Study the course material each week and review the key points.
`

func newTestServer(t *testing.T) (*Server, *pipeline.Orchestrator) {
	t.Helper()
	r, err := retrieval.NewHybridRetriever(nil, retrieval.DefaultOptions(), nil)
	if err != nil {
		t.Fatalf("retriever: %v", err)
	}
	analyzer := insights.NewAnalyzer(
		headings.NewDefaultExtractor(nil, headings.OCRConfig{}),
		r,
		llm.NewSummarizer(nil, llm.SummarizerConfig{}, nil),
		insights.Config{TopK: 5, Expand: true},
		nil,
	)
	results, err := store.Open(filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { results.Close() })

	cfg := config.Defaults()
	cfg.APIKey = testKey
	cfg.WorkerCount = 1
	cfg.MaxQueueSize = 4
	log := slog.New(slog.DiscardHandler)
	orch := pipeline.NewOrchestrator(cfg, analyzer, results, log)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)
	return NewServer(orch, llm.NewStats(time.Hour), log, cfg), orch
}

func do(t *testing.T, s *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	req.Header.Set("Authorization", "Bearer "+testKey)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, filename string, data []byte, fields map[string][]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	fw.Write(data)
	for k, vs := range fields {
		for _, v := range vs {
			mw.WriteField(k, v)
		}
	}
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func waitDone(t *testing.T, orch *pipeline.Orchestrator, id string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !orch.GetJob(id).Snapshot().Status.Done() {
		if time.Now().After(deadline) {
			t.Fatalf("job %s did not finish", id)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHealthIsPublic(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != `{"status":"ok"}` {
		t.Fatalf("expected ok health, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestAuthRequired(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", rec.Code)
	}
}

func TestAnalyzeRejectsUnsupportedFile(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, uploadRequest(t, "photo.png", []byte("x"), nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAnalyzeRejectsBadTopK(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, uploadRequest(t, "notes.md", []byte(notes), map[string][]string{"top_k": {"0"}}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAnalyzeLifecycle(t *testing.T) {
	s, orch := newTestServer(t)

	rec := do(t, s, uploadRequest(t, "notes.md", []byte(notes), map[string][]string{
		"persona": {"student", " Student ", ""},
	}))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	accepted := decode(t, rec)
	id, _ := accepted["job_id"].(string)
	if id == "" {
		t.Fatalf("expected job id, got %v", accepted)
	}
	if personas, _ := accepted["personas"].([]any); len(personas) != 1 {
		t.Fatalf("expected one persona after dedup, got %v", accepted["personas"])
	}
	waitDone(t, orch, id)

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/api/analyze/"+id+"/status", nil))
	if got := decode(t, rec)["status"]; got != "completed" {
		t.Fatalf("expected completed, got %v", got)
	}

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/api/analyze/"+id+"/result", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	report, err := insights.DecodeReport(rec.Body.Bytes())
	if err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if len(report.Headings) != 2 || len(report.Personas) != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}

	// A second upload of the same bytes and personas is answered from the store.
	rec = do(t, s, uploadRequest(t, "copy.md", []byte(notes), map[string][]string{"persona": {"student"}}))
	dup := decode(t, rec)
	if rec.Code != http.StatusOK || dup["job_id"] != id || dup["deduplicated"] != true {
		t.Fatalf("expected dedup to job %s, got %d %v", id, rec.Code, dup)
	}

	gt := `{"headings":[{"text":"Overview"},{"text":"Missing"}],"personas":{"student":[{"id":"overview"}]}}`
	rec = do(t, s, httptest.NewRequest(http.MethodPost, "/api/analyze/"+id+"/evaluate", bytes.NewBufferString(gt)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	heading := decode(t, rec)["heading_extraction"].(map[string]any)
	if heading["precision"] != 0.5 || heading["recall"] != 0.5 {
		t.Fatalf("expected precision and recall 0.5, got %v", heading)
	}

	// Evicted jobs are served from the store.
	orch.ForgetJob(id)
	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/api/analyze/"+id+"/result", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected stored result, got %d", rec.Code)
	}

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/api/reports", nil))
	reports, _ := decode(t, rec)["reports"].([]any)
	if len(reports) != 1 {
		t.Fatalf("expected 1 stored report, got %d", len(reports))
	}

	rec = do(t, s, httptest.NewRequest(http.MethodDelete, "/api/reports/"+id, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected delete 200, got %d", rec.Code)
	}
	rec = do(t, s, httptest.NewRequest(http.MethodDelete, "/api/reports/"+id, nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected second delete 404, got %d", rec.Code)
	}
}

func TestEvaluateRejectsInvalidGroundTruth(t *testing.T) {
	s, orch := newTestServer(t)
	rec := do(t, s, uploadRequest(t, "notes.md", []byte(notes), nil))
	id, _ := decode(t, rec)["job_id"].(string)
	waitDone(t, orch, id)

	rec = do(t, s, httptest.NewRequest(http.MethodPost, "/api/analyze/"+id+"/evaluate", bytes.NewBufferString(`{"headings":[{"page":1}]}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUnknownJob(t *testing.T) {
	s, _ := newTestServer(t)
	for _, path := range []string{"/api/analyze/nope/status", "/api/analyze/nope/result"} {
		rec := do(t, s, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, rec.Code)
		}
	}
}

func TestLLMStats(t *testing.T) {
	s, _ := newTestServer(t)
	s.stats.Record("embed", 12)
	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/api/stats/llm", nil))
	stats, _ := decode(t, rec)["stats"].(map[string]any)
	if _, ok := stats["embed"]; !ok {
		t.Fatalf("expected embed stats, got %v", stats)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"../../etc/passwd": "passwd",
		`C:\docs\a.pdf`:    "a.pdf",
		"":                 "unnamed",
		"a..b.pdf":         "a_b.pdf",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q): expected %q, got %q", in, want, got)
		}
	}
}
