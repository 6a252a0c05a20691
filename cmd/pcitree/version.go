package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sercanarga/pcitree/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pcitree %s\n", version.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
