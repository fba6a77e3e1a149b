package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docinsight/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "docinsight %s\n", version.Version)
		fmt.Fprintf(out, "  Go:     %s\n", runtime.Version())
		fmt.Fprintf(out, "  Commit: %s\n", version.Commit)
		fmt.Fprintf(out, "  Date:   %s\n", version.BuildDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
