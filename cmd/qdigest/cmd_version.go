package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

// versionCmd reports the implementation version, grounded on
// meisterluk-dupfiles-go's cli/cmd_version.go (one file per subcommand,
// package-level *cobra.Command, init()-wiring to rootCmd), trimmed down
// to this module's much smaller surface.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print qdigest's version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("qdigest version", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
