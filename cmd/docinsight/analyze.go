package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docinsight/internal/app"
	"github.com/dgallion1/docinsight/internal/backend"
	"github.com/dgallion1/docinsight/internal/config"
	"github.com/dgallion1/docinsight/internal/evaluation"
	"github.com/dgallion1/docinsight/internal/insights"
)

// analyzeOptions collects the analyze flags.
type analyzeOptions struct {
	Input        string
	Personas     []string
	Output       string
	GroundTruth  string
	TopK         int
	SparseWeight float64
	NoExpand     bool
	OutlineOnly  bool
}

var analyzeOpts analyzeOptions

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Extract the outline and persona insights from a document",
	Long: `Extract the heading outline of a document, rank its sections for each
--persona and summarise the best matches. The report is written as JSON to
--output. With --evaluate the report is also scored against a ground-truth
file. Without --outline-only the standard report shape is always written,
even when the outline came from the document's bookmarks. With --outline-only
no persona ranking is done and the report uses the outline shape when the
document carries a usable outline.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		opts := analyzeOpts
		if cmd.Flags().Changed("top-k") {
			if opts.TopK <= 0 {
				return fmt.Errorf("--top-k must be positive, got %d", opts.TopK)
			}
			cfg.TopK = opts.TopK
		}
		if cmd.Flags().Changed("sparse-weight") {
			cfg.SparseWeight = opts.SparseWeight
		}
		if opts.NoExpand {
			cfg.ExpandQuery = false
		}
		return runAnalyze(cmd.Context(), cfg, opts, cmd.OutOrStdout(), newLogger())
	},
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeOpts.Input, "pdf", "", "Input document (PDF, Markdown, HTML, DOCX or text)")
	f.StringArrayVarP(&analyzeOpts.Personas, "persona", "p", nil, `Persona to rank sections for; repeatable (default "general reader")`)
	f.StringVarP(&analyzeOpts.Output, "output", "o", "insights.json", "Report output path")
	f.StringVar(&analyzeOpts.GroundTruth, "evaluate", "", "Ground-truth JSON to score the report against")
	f.IntVar(&analyzeOpts.TopK, "top-k", 5, "Sections to keep per persona")
	f.Float64Var(&analyzeOpts.SparseWeight, "sparse-weight", 0.3, "Weight of the TF-IDF score in [0,1]")
	f.BoolVar(&analyzeOpts.NoExpand, "no-expand", false, "Disable persona query expansion")
	f.BoolVar(&analyzeOpts.OutlineOnly, "outline-only", false, "Extract the outline without persona ranking")
	analyzeCmd.MarkFlagRequired("pdf")
	analyzeCmd.MarkFlagsMutuallyExclusive("persona", "outline-only")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(ctx context.Context, cfg config.Config, opts analyzeOptions, out io.Writer, log *slog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Input files are checked before any stage runs.
	if err := requireFile("input", opts.Input); err != nil {
		return err
	}
	var gt *evaluation.GroundTruth
	if opts.GroundTruth != "" {
		if err := requireFile("ground truth", opts.GroundTruth); err != nil {
			return err
		}
		loaded, err := evaluation.LoadGroundTruth(opts.GroundTruth)
		if err != nil {
			return err
		}
		gt = &loaded
	}

	personas := opts.Personas
	if len(personas) == 0 && !opts.OutlineOnly {
		personas = []string{insights.DefaultPersona}
	}

	stack, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stack.Close()

	report, err := stack.Analyzer.AnalyzeFile(ctx, opts.Input, backend.Options{PdftoppmPath: cfg.PdftoppmPath}, insights.Options{
		Personas: personas,
		TopK:     cfg.TopK,
	})
	if err != nil {
		return fmt.Errorf("analyze %s: %w", opts.Input, err)
	}
	if gt != nil {
		res := insights.EvaluateReport(report, *gt)
		report.Evaluation = &res
	}

	if opts.Output != "" {
		if err := writeReport(opts.Output, report); err != nil {
			return err
		}
	}

	printReport(out, report, opts.Output)
	if report.Evaluation != nil {
		printEvaluation(out, *report.Evaluation)
	}
	return nil
}

func requireFile(what, path string) error {
	if path == "" {
		return fmt.Errorf("%s file is required", what)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s file: %w", what, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s file %s is a directory", what, path)
	}
	return nil
}

func writeReport(path string, report *insights.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
