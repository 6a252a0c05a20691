package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sercanarga/pcitree/internal/logger"
	"github.com/sercanarga/pcitree/internal/snapshot"
	"github.com/sercanarga/pcitree/internal/topo"
)

var snapshotOut string

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Capture the scanned topology to a JSON file",
	Long: `Scans the selected source and writes every discovered function's config
space, sized BARs and capability chains to a JSON file. The file can be
fed back with --snapshot to rerun any command against the recorded
topology on another machine.

Example:
  pcitree snapshot --out topology.json
  pcitree tree --snapshot topology.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := openSource()
		if err != nil {
			return err
		}
		defer src.Close()

		if len(src.segments) > 1 {
			logger.Warn("snapshot covers a single segment; capturing segment %d", src.segments[0])
		}

		m := topo.NewManager(src.acc)
		if err := m.Scan(src.segments[0]); err != nil {
			return err
		}

		snap, err := snapshot.Capture(m)
		if err != nil {
			return err
		}
		if err := snapshot.Save(snap, snapshotOut); err != nil {
			return err
		}

		fmt.Printf("Snapshot of segment %d written to %s (%d devices)\n",
			snap.Segment, snapshotOut, len(snap.Devices))
		return nil
	},
}

func init() {
	snapshotCmd.Flags().StringVar(&snapshotOut, "out", "pcitree_topology.json", "output file path")
	rootCmd.AddCommand(snapshotCmd)
}
