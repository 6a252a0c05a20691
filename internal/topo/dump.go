package topo

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes the scanned topology to w in a fixed-width text form:
// one line per bus, device, bridge window set, and valid BAR. The
// walk is depth first, children printed directly under their bridge.
func (m *Manager) Dump(w io.Writer) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	fmt.Fprintln(w, "PCI dump:")
	if m.root == nil {
		return
	}

	type item struct {
		bus    *Bus
		dev    Device
		indent int
	}

	stack := []item{{bus: m.root, indent: 2}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		pad := strings.Repeat(" ", it.indent)

		if it.bus != nil {
			fmt.Fprintf(w, "%sbus %d\n", pad, it.bus.Number())
			for i := len(it.bus.devices) - 1; i >= 0; i-- {
				stack = append(stack, item{dev: it.bus.devices[i], indent: it.indent + 1})
			}
			continue
		}

		switch d := it.dev.(type) {
		case *Bridge:
			fmt.Fprintf(w, "%sbridge %s %04x:%04x child busses [%d..%d]\n",
				pad, d.Location(), d.VendorID(), d.DeviceID(),
				d.SecondaryBus(), d.SubordinateBus())
			mr, ir, pr := d.MemoryRange(), d.IORange(), d.PrefetchRange()
			fmt.Fprintf(w, "%smem_range [%#x..%#x] io_range [%#x..%#x] pref_range [%#x..%#x]\n",
				pad, mr.Base, mr.Limit, ir.Base, ir.Limit, pr.Base, pr.Limit)
			dumpBARs(w, d, it.indent+1)
			if d.child != nil {
				stack = append(stack, item{bus: d.child, indent: it.indent + 1})
			}
		default:
			fmt.Fprintf(w, "%sdev %s %04x:%04x\n",
				pad, d.Location(), d.VendorID(), d.DeviceID())
			dumpBARs(w, it.dev, it.indent+1)
		}
	}
}

func dumpBARs(w io.Writer, d Device, indent int) {
	pad := strings.Repeat(" ", indent)
	for _, bar := range d.BARs() {
		if !bar.Valid {
			continue
		}
		fmt.Fprintf(w, "%sBAR %d: addr %#x size %#x io %d valid %d\n",
			pad, bar.Index, bar.Address, bar.Size, boolInt(bar.IsIO()), boolInt(bar.Valid))
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
