package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pcitree",
	Short: "PCI topology discovery tool",
	Long: `pcitree walks PCI configuration space and renders the bus topology:
busses, bridges with their forwarding windows, devices with their BARs
and capability chains.

Sources:
  - the running Linux host, through sysfs or the legacy 0xCF8/0xCFC ports
  - built-in presets and YAML fixtures (no hardware access needed)
  - snapshots captured earlier with 'pcitree snapshot'`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return resolveConfig(cmd)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
