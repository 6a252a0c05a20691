package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sercanarga/pcitree/internal/color"
	"github.com/sercanarga/pcitree/internal/pci"
	"github.com/sercanarga/pcitree/internal/topo"
)

var (
	infoBDF string
	infoHex bool
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show details for a single device",
	Long: `Scans the selected source and shows header fields, bridge windows,
decoded BARs and the capability chain for one device.

Example:
  pcitree info --bdf 0000:01:00.0
  pcitree info --bdf 01:00.0 --preset desktop
  pcitree info --bdf 01:00.0 --hex`,
	RunE: func(cmd *cobra.Command, args []string) error {
		loc, err := pci.ParseLocation(infoBDF)
		if err != nil {
			return fmt.Errorf("invalid location: %w", err)
		}

		src, err := openSource()
		if err != nil {
			return err
		}
		defer src.Close()

		managers, err := scanSource(src)
		if err != nil {
			return err
		}

		var dev topo.Device
		for _, m := range managers {
			if d, err := m.DeviceAt(loc); err == nil {
				dev = d
				break
			}
		}
		if dev == nil {
			return fmt.Errorf("no device at %s", loc)
		}

		printDevice(dev)
		if infoHex {
			fmt.Println()
			fmt.Println(color.Header("Config space"))
			fmt.Print(dev.Config().HexDump(pci.ConfigSpaceLegacySize))
		}
		return nil
	},
}

func printDevice(d topo.Device) {
	db := pci.LoadIDDB()

	fmt.Printf("Device %s  %04x:%04x\n",
		color.Bold(d.Location().String()), d.VendorID(), d.DeviceID())
	if name := deviceName(db, d); name != "-" {
		fmt.Printf("Name:      %s\n", name)
	}
	fmt.Printf("Class:     %s (%02x%02x%02x)\n",
		pci.ClassDescription(d.BaseClass(), d.SubClass()),
		d.BaseClass(), d.SubClass(), d.ProgIF())

	cfg := d.Config()
	fmt.Printf("Revision:  %02x\n", cfg.RevisionID())
	if cfg.HeaderLayout() == pci.HeaderLayoutEndpoint && cfg.SubsysVendorID() != 0 {
		fmt.Printf("Subsystem: %04x:%04x\n", cfg.SubsysVendorID(), cfg.SubsysDeviceID())
	}
	if pin := cfg.InterruptPin(); pin != 0 {
		fmt.Printf("Interrupt: pin %c routed to line %d\n", 'A'+pin-1, cfg.InterruptLine())
	}

	if br, ok := d.(*topo.Bridge); ok {
		fmt.Printf("\n%s\n", color.Header("Bridge"))
		fmt.Printf("  primary %d, secondary %d, subordinate %d\n",
			br.PrimaryBus(), br.SecondaryBus(), br.SubordinateBus())
		printWindow("io window:  ", br.IORange())
		printWindow("mem window: ", br.MemoryRange())
		printWindow("pref window:", br.PrefetchRange())
	}

	if bars := d.BARs(); len(bars) > 0 {
		var valid []pci.BAR
		for _, b := range bars {
			if b.Valid {
				valid = append(valid, b)
			}
		}
		if len(valid) > 0 {
			fmt.Printf("\n%s\n", color.Header("BARs"))
			for _, b := range valid {
				fmt.Printf("  %s\n", b.String())
			}
		}
	}

	if caps := d.Capabilities(); len(caps) > 0 {
		fmt.Printf("\n%s\n", color.Header("Capabilities"))
		for _, cap := range caps {
			fmt.Printf("  [%02x] %s at offset 0x%02x\n",
				cap.ID, pci.CapabilityName(cap.ID), cap.Offset)
		}
	}

	if extCaps := pci.ParseExtCapabilities(cfg); len(extCaps) > 0 {
		fmt.Printf("\n%s\n", color.Header("Extended capabilities"))
		for _, cap := range extCaps {
			fmt.Printf("  [%04x] %s at offset 0x%03x\n",
				cap.ID, pci.ExtCapabilityName(cap.ID), cap.Offset)
		}
	}
}

func printWindow(label string, r pci.Range) {
	if r.IsEmpty() {
		fmt.Printf("  %s %s\n", label, color.Dim("closed"))
		return
	}
	fmt.Printf("  %s %s\n", label, r.String())
}

func init() {
	infoCmd.Flags().StringVar(&infoBDF, "bdf", "", "device location as [segment:]bus:device.function")
	infoCmd.Flags().BoolVar(&infoHex, "hex", false, "dump the first 256 bytes of config space")
	_ = infoCmd.MarkFlagRequired("bdf")
	rootCmd.AddCommand(infoCmd)
}
