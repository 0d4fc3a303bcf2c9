// Command qdigest runs the TOML-configured digest workloads under
// internal/workload, a thin CLI wrapper grounded on the teacher's
// main.go + meisterluk-dupfiles-go's per-subcommand cobra layout.
package main

import (
	"log"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalln(err)
	}
	os.Exit(0)
}
