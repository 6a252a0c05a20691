package topo

import (
	"github.com/sercanarga/pcitree/internal/pci"
)

// Bridge is a PCI-PCI bridge function with a type 1 header. When
// firmware assigned it a secondary bus the downstream topology hangs
// off Child; otherwise the bridge is a leaf.
type Bridge struct {
	device
	child *Bus
}

// Child returns the downstream bus, or nil when the bridge leads
// nowhere.
func (b *Bridge) Child() *Bus { return b.child }

// PrimaryBus returns the upstream bus number programmed into the
// bridge.
func (b *Bridge) PrimaryBus() uint8 { return b.cfg.PrimaryBus() }

// SecondaryBus returns the bus number directly behind the bridge.
func (b *Bridge) SecondaryBus() uint8 { return b.cfg.SecondaryBus() }

// SubordinateBus returns the highest bus number reachable behind the
// bridge.
func (b *Bridge) SubordinateBus() uint8 { return b.cfg.SubordinateBus() }

// IORange returns the io window the bridge forwards downstream.
// Windows are decoded from the snapshot registers on every call.
func (b *Bridge) IORange() pci.Range {
	return pci.IOWindow(b.cfg.IOBase(), b.cfg.IOLimit())
}

// MemoryRange returns the non-prefetchable memory window.
func (b *Bridge) MemoryRange() pci.Range {
	return pci.MemoryWindow(b.cfg.MemoryBase(), b.cfg.MemoryLimit())
}

// PrefetchRange returns the prefetchable memory window, 64-bit wide
// when the base register announces 64-bit support.
func (b *Bridge) PrefetchRange() pci.Range {
	return pci.PrefetchWindow(b.cfg.PrefetchBase(), b.cfg.PrefetchLimit(),
		b.cfg.PrefetchBaseUpper32(), b.cfg.PrefetchLimitUpper32())
}
