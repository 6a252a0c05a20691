package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sercanarga/pcitree/internal/pci"
	"github.com/sercanarga/pcitree/internal/topo"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List all discovered PCI devices",
	Long: `Scans the selected source and lists every discovered function in a flat
table, with vendor and device names resolved from the system pci.ids
database when available.

Example:
  pcitree devices
  pcitree devices --preset multifunction`,
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

		var devices []topo.Device
		for _, m := range managers {
			m.VisitDevices(func(d topo.Device) bool {
				devices = append(devices, d)
				return true
			})
		}

		if len(devices) == 0 {
			fmt.Println("No PCI devices found.")
			return nil
		}

		sort.Slice(devices, func(i, j int) bool {
			return locationLess(devices[i].Location(), devices[j].Location())
		})

		db := pci.LoadIDDB()

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "LOCATION\tID\tCLASS\tTYPE\tNAME")
		fmt.Fprintln(w, "--------\t--\t-----\t----\t----")
		for _, d := range devices {
			fmt.Fprintf(w, "%s\t%04x:%04x\t%s\t%s\t%s\n",
				d.Location(),
				d.VendorID(), d.DeviceID(),
				pci.ClassDescription(d.BaseClass(), d.SubClass()),
				deviceKind(d),
				deviceName(db, d))
		}
		w.Flush()

		fmt.Printf("\nTotal: %d devices\n", len(devices))
		return nil
	},
}

func deviceKind(d topo.Device) string {
	if _, ok := d.(*topo.Bridge); ok {
		return "bridge"
	}
	return "endpoint"
}

func deviceName(db *pci.IDDB, d topo.Device) string {
	vendor := db.VendorName(d.VendorID())
	if vendor == "" {
		return "-"
	}
	device := db.DeviceName(d.VendorID(), d.DeviceID())
	if device == "" {
		return vendor
	}
	return vendor + " " + device
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}
