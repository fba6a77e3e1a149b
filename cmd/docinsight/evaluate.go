package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docinsight/internal/evaluation"
	"github.com/dgallion1/docinsight/internal/insights"
)

var evalReport string
var evalGroundTruth string

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score a saved report against ground truth",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEvaluate(evalReport, evalGroundTruth, cmd.OutOrStdout())
	},
}

func init() {
	evaluateCmd.Flags().StringVar(&evalReport, "report", "", "Report JSON written by analyze")
	evaluateCmd.Flags().StringVar(&evalGroundTruth, "ground-truth", "", "Ground-truth JSON")
	evaluateCmd.MarkFlagRequired("report")
	evaluateCmd.MarkFlagRequired("ground-truth")

	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(reportPath, gtPath string, out io.Writer) error {
	if err := requireFile("report", reportPath); err != nil {
		return err
	}
	if err := requireFile("ground truth", gtPath); err != nil {
		return err
	}
	gt, err := evaluation.LoadGroundTruth(gtPath)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(reportPath)
	if err != nil {
		return fmt.Errorf("read report: %w", err)
	}
	report, err := insights.DecodeReport(data)
	if err != nil {
		return fmt.Errorf("decode report %s: %w", reportPath, err)
	}
	printEvaluation(out, insights.EvaluateReport(report, gt))
	return nil
}
