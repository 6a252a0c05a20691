// Package emu provides an in-memory PCI configuration space backend.
// Topologies are declared as fixtures and served through the same
// accessor interface the live transports implement, so scans, tests
// and replayed snapshots all see hardware-shaped semantics: absent
// locations read all-ones, BAR registers mask probe writes to their
// implemented address bits, and everything else is immutable.
package emu

import (
	"fmt"
	"sort"

	"github.com/sercanarga/pcitree/internal/pci"
)

// Device is one emulated function: its config space plus the writable
// address-bit mask per BAR slot. A slot with no mask entry ignores
// writes entirely and so sizes to zero, like unimplemented hardware.
type Device struct {
	Config   *pci.ConfigSpace
	BARMasks map[int]uint32
}

// Space emulates one configuration space segment and implements
// pci.ConfigAccessor.
type Space struct {
	devices      map[pci.Location]*Device
	readErrs     map[pci.Location]error
	snapshotErrs map[pci.Location]error
}

// NewSpace returns an empty emulated segment.
func NewSpace() *Space {
	return &Space{
		devices:      make(map[pci.Location]*Device),
		readErrs:     make(map[pci.Location]error),
		snapshotErrs: make(map[pci.Location]error),
	}
}

// Add installs a device at loc. Adding to an occupied location is an
// error; fixtures are built once and never mutated afterwards.
func (s *Space) Add(loc pci.Location, d *Device) error {
	if _, ok := s.devices[loc]; ok {
		return fmt.Errorf("emu: location %s already occupied", loc)
	}
	if d.Config == nil {
		return fmt.Errorf("emu: device at %s has no config space", loc)
	}
	s.devices[loc] = d
	return nil
}

// Device returns the device installed at loc, or nil.
func (s *Space) Device(loc pci.Location) *Device {
	return s.devices[loc]
}

// Locations returns every populated location in ascending order.
func (s *Space) Locations() []pci.Location {
	locs := make([]pci.Location, 0, len(s.devices))
	for loc := range s.devices {
		locs = append(locs, loc)
	}
	sort.Slice(locs, func(i, j int) bool {
		a, b := locs[i], locs[j]
		if a.Segment != b.Segment {
			return a.Segment < b.Segment
		}
		if a.Bus != b.Bus {
			return a.Bus < b.Bus
		}
		if a.Device != b.Device {
			return a.Device < b.Device
		}
		return a.Function < b.Function
	})
	return locs
}

// FailReads makes every register read at loc return err. Used to
// exercise transport failure paths.
func (s *Space) FailReads(loc pci.Location, err error) {
	s.readErrs[loc] = err
}

// FailSnapshot makes ReadSpace at loc return err while register reads
// keep working. Used to exercise the partial-construction failure
// path, where a device answers its vendor probe but the full header
// read fails.
func (s *Space) FailSnapshot(loc pci.Location, err error) {
	s.snapshotErrs[loc] = err
}

// ReadU8 implements pci.ConfigAccessor.
func (s *Space) ReadU8(loc pci.Location, reg uint16) (uint8, error) {
	if err := s.readErrs[loc]; err != nil {
		return 0, err
	}
	d, ok := s.devices[loc]
	if !ok {
		return 0xFF, nil
	}
	return d.Config.ReadU8(int(reg)), nil
}

// ReadU16 implements pci.ConfigAccessor.
func (s *Space) ReadU16(loc pci.Location, reg uint16) (uint16, error) {
	if err := s.readErrs[loc]; err != nil {
		return 0, err
	}
	d, ok := s.devices[loc]
	if !ok {
		return 0xFFFF, nil
	}
	return d.Config.ReadU16(int(reg)), nil
}

// ReadU32 implements pci.ConfigAccessor.
func (s *Space) ReadU32(loc pci.Location, reg uint16) (uint32, error) {
	if err := s.readErrs[loc]; err != nil {
		return 0, err
	}
	d, ok := s.devices[loc]
	if !ok {
		return 0xFFFFFFFF, nil
	}
	return d.Config.ReadU32(int(reg)), nil
}

// WriteU32 implements pci.ConfigAccessor. Only BAR registers accept
// writes, and only in the bits their mask declares writable; writes
// anywhere else are dropped so fixture topology stays immutable.
func (s *Space) WriteU32(loc pci.Location, reg uint16, val uint32) error {
	d, ok := s.devices[loc]
	if !ok {
		return nil
	}

	count := pci.BARCount(d.Config.HeaderLayout())
	first := uint16(pci.RegBAR0)
	last := first + uint16(count*4)
	if reg < first || reg >= last || (reg-first)%4 != 0 {
		return nil
	}

	slot := int(reg-first) / 4
	mask := d.BARMasks[slot]
	cur := d.Config.ReadU32(int(reg))
	d.Config.WriteU32(int(reg), (val&mask)|(cur&^mask))
	return nil
}

// ReadSpace implements pci.ConfigAccessor.
func (s *Space) ReadSpace(loc pci.Location) (*pci.ConfigSpace, error) {
	if err := s.readErrs[loc]; err != nil {
		return nil, err
	}
	if err := s.snapshotErrs[loc]; err != nil {
		return nil, err
	}
	d, ok := s.devices[loc]
	if !ok {
		return nil, fmt.Errorf("emu: no device at %s", loc)
	}
	return d.Config.Clone(), nil
}

var _ pci.ConfigAccessor = (*Space)(nil)
