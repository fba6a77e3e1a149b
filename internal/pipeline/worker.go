package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dgallion1/docinsight/internal/backend"
	"github.com/dgallion1/docinsight/internal/insights"
	"github.com/dgallion1/docinsight/internal/store"
)

// Worker processes a single document job.
type Worker struct {
	analyzer *insights.Analyzer
	results  *store.Store
	backend  backend.Options
	log      *slog.Logger
}

func NewWorker(analyzer *insights.Analyzer, results *store.Store, bopts backend.Options, log *slog.Logger) *Worker {
	return &Worker{
		analyzer: analyzer,
		results:  results,
		backend:  bopts,
		log:      log,
	}
}

var phaseStatus = map[insights.Phase]JobStatus{
	insights.PhaseExtracting:  StatusExtracting,
	insights.PhaseSegmenting:  StatusSegmenting,
	insights.PhaseRanking:     StatusRanking,
	insights.PhaseSummarizing: StatusSummarizing,
}

// Process runs the full analysis pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	doc, err := backend.Parse(bytes.NewReader(job.FileData()), job.Filename, w.backend)
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	defer doc.Close()
	job.SetFileData(nil)

	// Phases 2-5: extract, segment, rank, summarize.
	report, err := w.analyzer.Analyze(ctx, doc, insights.Options{
		Personas: job.Personas,
		TopK:     job.TopK,
		Progress: func(p insights.Phase) {
			job.SetStatus(phaseStatus[p], string(p))
			log.Info("phase started", "phase", p)
		},
	})
	if report != nil {
		job.SetDocument(report.Properties.PageCount, len(report.Headings), string(report.Tier))
		job.SetReport(report)
		for _, p := range report.Personas {
			if p.Error != "" {
				job.AddError(fmt.Sprintf("persona %q: %s", p.Persona, p.Error))
			}
		}
	}
	if err != nil {
		log.Error("analysis failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "failed")
		return
	}

	status := StatusCompleted
	if report.Failed() > 0 {
		status = StatusPartial
	}
	w.save(ctx, job, report, status, log)
	job.SetStatus(status, "done")
	log.Info("analysis complete", "status", status, "headings", len(report.Headings), "tier", report.Tier)
}

// save persists the report so it outlives the job TTL and serves as the
// duplicate index.
func (w *Worker) save(ctx context.Context, job *Job, report *insights.Report, status JobStatus, log *slog.Logger) {
	if w.results == nil {
		return
	}
	body, err := json.Marshal(report)
	if err != nil {
		log.Error("encode report failed", "error", err)
		job.AddError(fmt.Sprintf("encode report: %s", err))
		return
	}
	err = w.results.Save(ctx, store.Record{
		JobID:       job.ID,
		Filename:    job.Filename,
		ContentHash: job.ContentHash,
		Personas:    job.Personas,
		Status:      string(status),
		CreatedAt:   job.CreatedAt,
		Report:      body,
	})
	if err != nil {
		log.Error("report save failed", "error", err)
		job.AddError(fmt.Sprintf("save report: %s", err))
	}
}
