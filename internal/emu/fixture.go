package emu

import (
	"fmt"

	"github.com/sercanarga/pcitree/internal/pci"
)

// BARDef declares one implemented BAR region on a fixture device.
// Size must be a power of two; 64-bit BARs must start on an even slot
// and leave the following slot free for the upper address half.
type BARDef struct {
	Kind         string // pci.BARTypeIO, pci.BARTypeMem32 or pci.BARTypeMem64
	Address      uint64
	Size         uint64
	Prefetchable bool
}

// EndpointDef declares an ordinary (type 0) function.
type EndpointDef struct {
	Vendor        uint16
	Device        uint16
	Class         uint32 // 24-bit base/sub/prog-if
	Revision      uint8
	Multifunction bool
	SubsysVendor  uint16
	SubsysDevice  uint16
	BARs          map[int]BARDef
	Caps          []uint8 // capability IDs, chained from 0x40
}

// BridgeDef declares a PCI-to-PCI bridge (type 1) function. The window
// fields are raw register values, written to the header verbatim.
type BridgeDef struct {
	Vendor        uint16
	Device        uint16
	Multifunction bool

	Primary     uint8
	Secondary   uint8
	Subordinate uint8

	IOBase  uint8
	IOLimit uint8

	MemBase  uint16
	MemLimit uint16

	PrefBase       uint16
	PrefLimit      uint16
	PrefBaseUpper  uint32
	PrefLimitUpper uint32

	BARs map[int]BARDef
	Caps []uint8
}

// AddEndpoint builds an endpoint from def and installs it at loc.
func (s *Space) AddEndpoint(loc pci.Location, def EndpointDef) error {
	cs := pci.NewConfigSpace()
	cs.Size = pci.ConfigSpaceLegacySize

	cs.WriteU16(0x00, def.Vendor)
	cs.WriteU16(0x02, def.Device)
	cs.WriteU8(0x08, def.Revision)
	cs.WriteU8(0x09, uint8(def.Class))
	cs.WriteU8(0x0A, uint8(def.Class>>8))
	cs.WriteU8(0x0B, uint8(def.Class>>16))
	headerType := uint8(pci.HeaderLayoutEndpoint)
	if def.Multifunction {
		headerType |= 0x80
	}
	cs.WriteU8(0x0E, headerType)
	cs.WriteU16(0x2C, def.SubsysVendor)
	cs.WriteU16(0x2E, def.SubsysDevice)

	masks, err := applyBARs(cs, def.BARs, 6)
	if err != nil {
		return fmt.Errorf("endpoint at %s: %w", loc, err)
	}
	if err := applyCaps(cs, def.Caps); err != nil {
		return fmt.Errorf("endpoint at %s: %w", loc, err)
	}

	return s.Add(loc, &Device{Config: cs, BARMasks: masks})
}

// AddBridge builds a PCI-to-PCI bridge from def and installs it at loc.
func (s *Space) AddBridge(loc pci.Location, def BridgeDef) error {
	cs := pci.NewConfigSpace()
	cs.Size = pci.ConfigSpaceLegacySize

	cs.WriteU16(0x00, def.Vendor)
	cs.WriteU16(0x02, def.Device)
	cs.WriteU8(0x0A, pci.SubClassPCIBridge)
	cs.WriteU8(0x0B, pci.BaseClassBridge)
	headerType := uint8(pci.HeaderLayoutBridge)
	if def.Multifunction {
		headerType |= 0x80
	}
	cs.WriteU8(0x0E, headerType)

	cs.WriteU8(0x18, def.Primary)
	cs.WriteU8(0x19, def.Secondary)
	cs.WriteU8(0x1A, def.Subordinate)
	cs.WriteU8(0x1C, def.IOBase)
	cs.WriteU8(0x1D, def.IOLimit)
	cs.WriteU16(0x20, def.MemBase)
	cs.WriteU16(0x22, def.MemLimit)
	cs.WriteU16(0x24, def.PrefBase)
	cs.WriteU16(0x26, def.PrefLimit)
	cs.WriteU32(0x28, def.PrefBaseUpper)
	cs.WriteU32(0x2C, def.PrefLimitUpper)

	masks, err := applyBARs(cs, def.BARs, 2)
	if err != nil {
		return fmt.Errorf("bridge at %s: %w", loc, err)
	}
	if err := applyCaps(cs, def.Caps); err != nil {
		return fmt.Errorf("bridge at %s: %w", loc, err)
	}

	return s.Add(loc, &Device{Config: cs, BARMasks: masks})
}

// applyBARs encodes the declared regions into raw BAR registers and
// derives the writable-bit masks that make sizing probes work.
func applyBARs(cs *pci.ConfigSpace, bars map[int]BARDef, count int) (map[int]uint32, error) {
	masks := make(map[int]uint32)

	for slot, def := range bars {
		if slot < 0 || slot >= count {
			return nil, fmt.Errorf("BAR slot %d out of range", slot)
		}
		if def.Size == 0 || def.Size&(def.Size-1) != 0 {
			return nil, fmt.Errorf("BAR %d size %#x is not a power of two", slot, def.Size)
		}
		reg := int(pci.RegBAR0) + slot*4
		full := ^(def.Size - 1)

		switch def.Kind {
		case pci.BARTypeIO:
			cs.WriteU32(reg, uint32(def.Address)|0x1)
			masks[slot] = uint32(full) & 0xFFFC

		case pci.BARTypeMem32:
			raw := uint32(def.Address) &^ 0xF
			if def.Prefetchable {
				raw |= 0x8
			}
			cs.WriteU32(reg, raw)
			masks[slot] = uint32(full) &^ 0xF

		case pci.BARTypeMem64:
			if slot%2 != 0 || slot+1 >= count {
				return nil, fmt.Errorf("64-bit BAR %d must start on an even slot", slot)
			}
			if _, taken := bars[slot+1]; taken {
				return nil, fmt.Errorf("BAR %d overlaps the upper half of BAR %d", slot+1, slot)
			}
			raw := (uint32(def.Address) &^ 0xF) | 0x4
			if def.Prefetchable {
				raw |= 0x8
			}
			cs.WriteU32(reg, raw)
			cs.WriteU32(reg+4, uint32(def.Address>>32))
			masks[slot] = uint32(full) &^ 0xF
			masks[slot+1] = uint32(full >> 32)

		default:
			return nil, fmt.Errorf("BAR %d has unknown kind %q", slot, def.Kind)
		}
	}

	return masks, nil
}

// MasksForBARs derives per-slot writable-bit masks from decoded BAR
// regions, so a device rebuilt from recorded state answers sizing
// probes the way the original hardware did. Slots whose size is zero
// or not a power of two get no mask and size to zero.
func MasksForBARs(bars []pci.BAR) map[int]uint32 {
	masks := make(map[int]uint32)
	for _, b := range bars {
		if !b.Valid || b.Size == 0 || b.Size&(b.Size-1) != 0 {
			continue
		}
		full := ^(b.Size - 1)
		switch {
		case b.IsIO():
			masks[b.Index] = uint32(full) & 0xFFFC
		case b.Is64Bit:
			masks[b.Index] = uint32(full) &^ 0xF
			masks[b.Index+1] = uint32(full >> 32)
		default:
			masks[b.Index] = uint32(full) &^ 0xF
		}
	}
	return masks
}

// applyCaps writes a minimal capability chain. Each capability gets a
// 16-byte block starting at 0x40; only presence matters to discovery.
func applyCaps(cs *pci.ConfigSpace, caps []uint8) error {
	if len(caps) == 0 {
		return nil
	}
	if len(caps) > 12 {
		return fmt.Errorf("capability chain too long: %d", len(caps))
	}

	cs.WriteU16(0x06, cs.ReadU16(0x06)|0x0010)
	cs.WriteU8(0x34, 0x40)

	offset := 0x40
	for i, id := range caps {
		next := 0
		if i < len(caps)-1 {
			next = offset + 0x10
		}
		cs.WriteU8(offset, id)
		cs.WriteU8(offset+1, uint8(next))
		offset += 0x10
	}
	return nil
}
