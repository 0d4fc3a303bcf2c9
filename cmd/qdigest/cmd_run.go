package main

import (
	"fmt"

	"qdigest/internal/workload"

	"github.com/spf13/cobra"
)

var argInputDir string

// runCmd loads every .toml workload spec under --input and runs it,
// mirroring the teacher's main.go init()+main() pair (parseDir,
// initTestCases, then t.run() per test case) but driven from a flag
// rather than a hardcoded "./input/" path.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "run every workload spec found under --input",
	RunE: func(cmd *cobra.Command, args []string) error {
		specs, err := workload.LoadDir(argInputDir)
		if err != nil {
			return fmt.Errorf("loading workload specs: %w", err)
		}
		for _, spec := range specs {
			results, err := workload.Run(spec)
			if err != nil {
				return fmt.Errorf("running workload %s: %w", spec.Name, err)
			}
			for _, r := range results {
				fmt.Printf(
					"%s iteration=%d cmds=%d duration=%s p50=%d p90=%d p99=%d\n",
					r.Name, r.Iteration, r.NumCmds, r.Duration, r.P50, r.P90, r.P99,
				)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&argInputDir, "input", "./input/", "directory of .toml workload specs")
}
