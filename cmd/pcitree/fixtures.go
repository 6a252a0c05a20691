package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sercanarga/pcitree/internal/emu"
	"github.com/sercanarga/pcitree/internal/topo"
)

var fixturesCmd = &cobra.Command{
	Use:   "fixtures",
	Short: "List built-in topology presets",
	Long: `Lists the built-in presets usable with --preset, with the device and
bus counts a scan of each one produces.

Example:
  pcitree fixtures
  pcitree tree --preset nested`,
	RunE: func(cmd *cobra.Command, args []string) error {
		presets := emu.All()

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tDEVICES\tBUSES\tDESCRIPTION")
		fmt.Fprintln(w, "----\t-------\t-----\t-----------")
		for _, p := range presets {
			space, err := p.Build()
			if err != nil {
				return fmt.Errorf("failed to build preset %s: %w", p.Name, err)
			}
			m := topo.NewManager(space)
			if err := m.Scan(0); err != nil {
				return fmt.Errorf("failed to scan preset %s: %w", p.Name, err)
			}
			fmt.Fprintf(w, "%s\t%d\t%d\t%s\n",
				p.Name, countDevices(m), len(m.Buses()), p.Description)
		}
		w.Flush()

		fmt.Printf("\nTotal: %d presets\n", len(presets))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fixturesCmd)
}
