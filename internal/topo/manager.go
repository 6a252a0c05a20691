// Package topo discovers the PCI topology behind a configuration space
// accessor and answers queries against the result.
//
// A Manager owns one scanned tree at a time. Scan walks bus 0 of a
// segment, recursing through every bridge that firmware assigned a
// secondary bus, and replaces the previous tree on success. All query
// methods operate on the snapshot taken by the last scan; nothing
// touches the accessor after Scan returns.
package topo

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sercanarga/pcitree/internal/logger"
	"github.com/sercanarga/pcitree/internal/pci"
)

// Wildcards accepted by the find calls.
const (
	AnyID    uint16 = 0xFFFF
	AnyClass uint8  = 0xFF
)

// ErrNotFound is returned when no scanned device matches a query.
var ErrNotFound = errors.New("device not found")

// Manager scans and owns a PCI topology.
type Manager struct {
	mu  sync.RWMutex
	acc pci.ConfigAccessor

	maxDepth int

	root  *Bus
	buses []*Bus
}

// NewManager returns a manager that discovers devices through acc.
func NewManager(acc pci.ConfigAccessor) *Manager {
	return &Manager{acc: acc, maxDepth: maxBusDepth}
}

// Scan discovers the topology of the given segment starting at bus 0.
// A successful scan replaces any previously scanned tree. Child buses
// are registered as their bridge finishes, the root bus last; the
// query methods walk buses in that registration order.
func (m *Manager) Scan(segment uint16) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := newScanner(m.acc, m.maxDepth)
	root, err := s.scanBus(pci.Location{Segment: segment}, nil, 0)
	if err != nil {
		return fmt.Errorf("scanning segment %04x: %w", segment, err)
	}
	s.buses = append(s.buses, root)

	m.root = root
	m.buses = s.buses

	devices := 0
	for _, b := range m.buses {
		devices += len(b.devices)
	}
	logger.WithFields(logger.Fields{
		"segment": fmt.Sprintf("%04x", segment),
		"buses":   len(m.buses),
		"devices": devices,
	}).Info("scan complete")

	return nil
}

// Root returns the root bus of the last scan, nil before any scan.
func (m *Manager) Root() *Bus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.root
}

// Buses returns a copy of the scanned bus list in registration order.
func (m *Manager) Buses() []*Bus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Bus, len(m.buses))
	copy(out, m.buses)
	return out
}

// VisitDevices calls visit for every device on every bus until visit
// returns false. Buses are walked in registration order, devices in
// scan order within each bus.
func (m *Manager) VisitDevices(visit func(Device) bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.visitLocked(visit)
}

func (m *Manager) visitLocked(visit func(Device) bool) {
	for _, b := range m.buses {
		for _, d := range b.devices {
			if !visit(d) {
				return
			}
		}
	}
}

// FindByID returns the location of the index'th device matching the
// vendor and device ids. Either id may be AnyID to match everything;
// asking for both wildcards is an error.
func (m *Manager) FindByID(vendor, device uint16, index int) (pci.Location, error) {
	if vendor == AnyID && device == AnyID {
		return pci.Location{}, fmt.Errorf("find by id: vendor and device cannot both be wildcards")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var (
		found pci.Location
		ok    bool
	)
	m.visitLocked(func(d Device) bool {
		if vendor != AnyID && d.VendorID() != vendor {
			return true
		}
		if device != AnyID && d.DeviceID() != device {
			return true
		}
		if index == 0 {
			found, ok = d.Location(), true
			return false
		}
		index--
		return true
	})
	if !ok {
		return pci.Location{}, ErrNotFound
	}
	return found, nil
}

// FindByClass returns the location of the index'th device with the
// given class code. The base class always participates in the match;
// sub class and programming interface may be AnyClass, but not both.
func (m *Manager) FindByClass(baseClass, subClass, progIF uint8, index int) (pci.Location, error) {
	if subClass == AnyClass && progIF == AnyClass {
		return pci.Location{}, fmt.Errorf("find by class: sub class and interface cannot both be wildcards")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var (
		found pci.Location
		ok    bool
	)
	m.visitLocked(func(d Device) bool {
		if d.BaseClass() != baseClass {
			return true
		}
		if subClass != AnyClass && d.SubClass() != subClass {
			return true
		}
		if progIF != AnyClass && d.ProgIF() != progIF {
			return true
		}
		if index == 0 {
			found, ok = d.Location(), true
			return false
		}
		index--
		return true
	})
	if !ok {
		return pci.Location{}, ErrNotFound
	}
	return found, nil
}

// DeviceAt returns the scanned device at loc.
func (m *Manager) DeviceAt(loc pci.Location) (Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var found Device
	m.visitLocked(func(d Device) bool {
		if d.Location() == loc {
			found = d
			return false
		}
		return true
	})
	if found == nil {
		return nil, fmt.Errorf("%w at %s", ErrNotFound, loc)
	}
	return found, nil
}

// ReadBARs returns a copy of the BARs sized during the scan of the
// device at loc.
func (m *Manager) ReadBARs(loc pci.Location) ([]pci.BAR, error) {
	d, err := m.DeviceAt(loc)
	if err != nil {
		return nil, err
	}
	return d.BARs(), nil
}
