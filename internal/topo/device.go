package topo

import (
	"github.com/sercanarga/pcitree/internal/pci"
)

// Device is a single discovered PCI function. Concrete devices are
// either *Endpoint or *Bridge; both only come out of a Manager scan.
type Device interface {
	// Location returns the segment/bus/device/function address.
	Location() pci.Location

	// Config returns the configuration space snapshot taken at scan time.
	Config() *pci.ConfigSpace

	VendorID() uint16
	DeviceID() uint16
	BaseClass() uint8
	SubClass() uint8
	ProgIF() uint8

	// BARs returns a copy of the base address registers sized during
	// the scan.
	BARs() []pci.BAR

	// Capabilities returns a copy of the parsed capability list.
	Capabilities() pci.CapabilityList

	HasMSI() bool
	HasMSIX() bool

	// Bus returns the bus this function was found on.
	Bus() *Bus

	// Only scan results implement Device.
	base() *device
}

// device carries the state shared by endpoints and bridges.
type device struct {
	loc  pci.Location
	bus  *Bus
	cfg  *pci.ConfigSpace
	bars []pci.BAR
	caps pci.CapabilityList
}

func (d *device) base() *device { return d }

func (d *device) Location() pci.Location   { return d.loc }
func (d *device) Config() *pci.ConfigSpace { return d.cfg }
func (d *device) VendorID() uint16         { return d.cfg.VendorID() }
func (d *device) DeviceID() uint16         { return d.cfg.DeviceID() }
func (d *device) BaseClass() uint8         { return d.cfg.BaseClass() }
func (d *device) SubClass() uint8          { return d.cfg.SubClass() }
func (d *device) ProgIF() uint8            { return d.cfg.ProgIF() }
func (d *device) Bus() *Bus                { return d.bus }

func (d *device) BARs() []pci.BAR {
	out := make([]pci.BAR, len(d.bars))
	copy(out, d.bars)
	return out
}

func (d *device) Capabilities() pci.CapabilityList {
	out := make(pci.CapabilityList, len(d.caps))
	copy(out, d.caps)
	return out
}

func (d *device) HasMSI() bool  { return d.caps.Has(pci.CapIDMSI) }
func (d *device) HasMSIX() bool { return d.caps.Has(pci.CapIDMSIX) }

// Endpoint is a regular function with a type 0 header.
type Endpoint struct {
	device
}
