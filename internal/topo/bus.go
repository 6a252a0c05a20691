package topo

import (
	"github.com/sercanarga/pcitree/internal/pci"
)

// Bus is one discovered bus and the functions found on it.
type Bus struct {
	loc     pci.Location
	bridge  *Bridge
	devices []Device
}

// Segment returns the segment the bus belongs to.
func (b *Bus) Segment() uint16 { return b.loc.Segment }

// Number returns the bus number.
func (b *Bus) Number() uint8 { return b.loc.Bus }

// Bridge returns the upstream bridge, nil for the root bus.
func (b *Bus) Bridge() *Bridge { return b.bridge }

// Devices returns a copy of the functions on this bus in scan order.
func (b *Bus) Devices() []Device {
	out := make([]Device, len(b.devices))
	copy(out, b.devices)
	return out
}
