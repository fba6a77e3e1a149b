package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docinsight/internal/version"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "docinsight",
	Short: "Persona-driven document outline and insight extraction",
	Long: `docinsight extracts a heading outline from a PDF (or Markdown, HTML, DOCX
and text), segments it into sections, ranks the sections for one or more
personas with a hybrid TF-IDF and embedding score, and summarises the best
matches. Reports can be scored against ground truth.

Service settings come from the environment and the optional YAML file named
by DOCINSIGHT_CONFIG.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(fmt.Sprintf("docinsight %s\n", version.String()))
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
