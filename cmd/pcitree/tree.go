package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sercanarga/pcitree/internal/logger"
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Scan and render the PCI topology",
	Long: `Scans the selected source and renders the bus/bridge/device tree,
with bridge forwarding windows and decoded BARs.

Example:
  pcitree tree
  pcitree tree --preset desktop
  pcitree tree --snapshot topology.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := openSource()
		if err != nil {
			return err
		}
		defer src.Close()

		managers, err := scanSource(src)
		if err != nil {
			return err
		}

		total := 0
		for i, m := range managers {
			if i > 0 {
				fmt.Println()
			}
			m.Dump(os.Stdout)
			total += countDevices(m)
		}

		if total == 0 && hostBackend() {
			logger.Warn("scan found no devices; run 'pcitree check' to diagnose host access")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(treeCmd)
}
