package main

import (
	"github.com/spf13/cobra"

	"github.com/opsconductor/toolengine/internal/observability"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the engine version",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("toolengine %s\n", observability.Version)
	},
}
