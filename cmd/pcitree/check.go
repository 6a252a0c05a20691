package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sercanarga/pcitree/internal/color"
	"github.com/sercanarga/pcitree/internal/hostpci"
	"github.com/sercanarga/pcitree/internal/pci"
	"github.com/sercanarga/pcitree/internal/topo"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check host PCI access and cross-check the scan",
	Long: `Checks which config space access paths the host exposes, then runs a
scan and compares it against the kernel's own device list. Run this
when 'pcitree tree' comes up empty or incomplete.

Example:
  pcitree check`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ok := true

		fmt.Printf("%s\n", color.Header("Host access"))
		if err := hostpci.CheckSysfs(); err != nil {
			fmt.Println(color.Failf("sysfs: %v", err))
			ok = false
		} else {
			fmt.Println(color.OK("sysfs exposes PCI devices"))
		}
		if err := hostpci.CheckFullConfigAccess(); err != nil {
			fmt.Println(color.Warnf("config space: %v", err))
		} else {
			fmt.Println(color.OK("full config space readable"))
		}
		if err := hostpci.CheckPortIO(); err != nil {
			fmt.Println(color.Warnf("port io: %v", err))
		} else {
			fmt.Println(color.OK("port io available"))
		}
		if err := hostpci.CheckIOMMU(); err != nil {
			fmt.Println(color.Warnf("iommu: %v", err))
		} else {
			fmt.Println(color.OK("IOMMU groups present"))
		}

		if !ok {
			return fmt.Errorf("host has no usable PCI access")
		}

		fmt.Printf("\n%s\n", color.Header("Scan cross-check"))
		acc, err := hostpci.NewSysfsAccessor()
		if err != nil {
			return err
		}
		kernel, err := acc.Enumerate()
		if err != nil {
			return fmt.Errorf("failed to enumerate sysfs devices: %w", err)
		}
		segments, err := acc.Segments()
		if err != nil {
			return fmt.Errorf("failed to list segments: %w", err)
		}

		found := make(map[pci.Location]bool)
		for _, seg := range segments {
			m := topo.NewManager(acc)
			if err := m.Scan(seg); err != nil {
				fmt.Println(color.Warnf("%v", err))
				continue
			}
			m.VisitDevices(func(d topo.Device) bool {
				found[d.Location()] = true
				return true
			})
		}

		missing := 0
		for _, loc := range kernel {
			if !found[loc] {
				fmt.Println(color.Warnf("kernel has %s but the scan did not reach it", loc))
				missing++
			}
		}
		if missing == 0 {
			fmt.Println(color.Okf("scan reached all %d kernel devices", len(kernel)))
		} else {
			fmt.Println(color.Warnf("%d of %d kernel devices unreached", missing, len(kernel)))
		}

		fmt.Printf("\n%s\n", color.Header("Check complete"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
