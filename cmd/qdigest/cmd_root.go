package main

import "github.com/spf13/cobra"

// rootCmd is the base command every subcommand attaches to via its own
// init(), following meisterluk-dupfiles-go's cli/cmd_*.go layout.
var rootCmd = &cobra.Command{
	Use:   "qdigest",
	Short: "approximate quantiles over distributed integer streams",
	Long: `qdigest builds a Q-Digest per simulated rank from a configured
workload, reduces them with the tree reduction protocol, and reports
the resulting percentiles.`,
}
