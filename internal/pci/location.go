// Package pci defines PCI configuration space primitives: locations,
// config space snapshots, window and BAR decoding, and capability lists.
package pci

import (
	"fmt"
	"strings"
)

// Location identifies one configuration-space address as a
// segment:bus:device.function tuple. It is a value type, used as a key
// and never mutated.
type Location struct {
	Segment  uint16
	Bus      uint8
	Device   uint8
	Function uint8
}

// ParseLocation parses a location string in the format "SSSS:BB:DD.F"
// or "BB:DD.F" (segment defaults to 0).
func ParseLocation(s string) (Location, error) {
	s = strings.TrimSpace(s)

	var seg, bus, dev, fn uint32
	n, err := fmt.Sscanf(s, "%x:%x:%x.%x", &seg, &bus, &dev, &fn)
	if err == nil && n == 4 {
		return makeLocation(seg, bus, dev, fn, s)
	}

	n, err = fmt.Sscanf(s, "%x:%x.%x", &bus, &dev, &fn)
	if err == nil && n == 3 {
		return makeLocation(0, bus, dev, fn, s)
	}

	return Location{}, fmt.Errorf("invalid location %q: expected SSSS:BB:DD.F or BB:DD.F", s)
}

func makeLocation(seg, bus, dev, fn uint32, s string) (Location, error) {
	if seg > 0xFFFF || bus > 0xFF || dev > 0x1F || fn > 0x7 {
		return Location{}, fmt.Errorf("location %q out of range", s)
	}
	return Location{
		Segment:  uint16(seg),
		Bus:      uint8(bus),
		Device:   uint8(dev),
		Function: uint8(fn),
	}, nil
}

// String returns the canonical representation: "SSSS:BB:DD.F".
func (l Location) String() string {
	return fmt.Sprintf("%04x:%02x:%02x.%x", l.Segment, l.Bus, l.Device, l.Function)
}

// Short returns the representation without the segment: "BB:DD.F".
func (l Location) Short() string {
	return fmt.Sprintf("%02x:%02x.%x", l.Bus, l.Device, l.Function)
}

// SysfsPath returns the sysfs device directory for this location.
func (l Location) SysfsPath() string {
	return fmt.Sprintf("/sys/bus/pci/devices/%s", l.String())
}
