package pci

import "fmt"

// BAR type labels used in display and snapshot output.
const (
	BARTypeIO       = "io"
	BARTypeMem32    = "mem32"
	BARTypeMem64    = "mem64"
	BARTypeDisabled = "disabled"
)

// BAR describes one Base Address Register slot. A 64-bit memory BAR
// occupies two consecutive slots; the odd upper slot stays disabled.
// Valid is set only when the slot decoded to a usable region.
type BAR struct {
	Index        int    `json:"index"`
	RawValue     uint32 `json:"raw_value"`
	Address      uint64 `json:"address"`
	Size         uint64 `json:"size"`
	Type         string `json:"type"` // "io", "mem32", "mem64", "disabled"
	Prefetchable bool   `json:"prefetchable"`
	Is64Bit      bool   `json:"is_64bit"`
	Valid        bool   `json:"valid"`
}

// IsIO returns true if this is an I/O BAR.
func (b *BAR) IsIO() bool {
	return b.Type == BARTypeIO
}

// IsMemory returns true if this is a memory BAR.
func (b *BAR) IsMemory() bool {
	return b.Type == BARTypeMem32 || b.Type == BARTypeMem64
}

// IsDisabled returns true if the slot holds no usable region.
func (b *BAR) IsDisabled() bool {
	return !b.Valid
}

// SizeHuman returns the BAR size in human-readable format.
func (b *BAR) SizeHuman() string {
	if b.Size == 0 {
		return "0"
	}
	if b.Size >= 1<<30 {
		return fmt.Sprintf("%d GB", b.Size>>30)
	}
	if b.Size >= 1<<20 {
		return fmt.Sprintf("%d MB", b.Size>>20)
	}
	if b.Size >= 1<<10 {
		return fmt.Sprintf("%d KB", b.Size>>10)
	}
	return fmt.Sprintf("%d B", b.Size)
}

// String returns a summary of the BAR for display.
func (b *BAR) String() string {
	if b.IsDisabled() {
		return fmt.Sprintf("BAR%d: [disabled]", b.Index)
	}
	pf := ""
	if b.Prefetchable {
		pf = " [prefetchable]"
	}
	if b.Size == 0 {
		// Size unknown without a probe.
		return fmt.Sprintf("BAR%d: %s at 0x%x%s", b.Index, b.Type, b.Address, pf)
	}
	return fmt.Sprintf("BAR%d: %s at 0x%x, size %s%s",
		b.Index, b.Type, b.Address, b.SizeHuman(), pf)
}

// BARCount returns the number of BAR slots a header layout provides.
func BARCount(headerLayout uint8) int {
	switch headerLayout {
	case HeaderLayoutEndpoint:
		return 6
	case HeaderLayoutBridge:
		return 2
	default:
		return 0
	}
}

// ProbeBARs determines the address, kind and size of every BAR slot of
// the device at loc. Initial register values come from the snapshot cs;
// sizing writes the all-ones probe pattern through acc, reads back the
// address mask and restores the original address. A slot whose probe
// fails is reported disabled, it does not fail the device.
func ProbeBARs(acc ConfigAccessor, loc Location, cs *ConfigSpace) []BAR {
	count := BARCount(cs.HeaderLayout())
	bars := make([]BAR, count)
	for i := range bars {
		bars[i].Index = i
		bars[i].Type = BARTypeDisabled
	}

	for i := 0; i < count; i++ {
		raw := cs.BAR(i)
		bars[i].RawValue = raw
		reg := RegBAR0 + uint16(i*4)

		if raw&0x1 != 0 {
			// I/O BAR. The low two bits are flags and sizing happens
			// in 16-bit I/O space.
			addr := uint64(raw &^ uint32(0b11))
			if acc.WriteU32(loc, reg, 0xFFFF) != nil {
				continue
			}
			probed, rerr := acc.ReadU32(loc, reg)
			if acc.WriteU32(loc, reg, uint32(addr)) != nil || rerr != nil {
				continue
			}
			size := uint64(((probed &^ uint32(0b11)) ^ 0xFFFF) + 1)
			if size == 0 {
				continue
			}
			bars[i] = BAR{Index: i, RawValue: raw, Address: addr, Size: size,
				Type: BARTypeIO, Valid: true}
			continue
		}

		prefetchable := raw&0b1000 != 0
		if (raw>>1)&0b11 == 0b10 {
			// 64-bit memory BAR. Starts on an even slot and consumes
			// the next slot for the upper address half.
			if i%2 != 0 || i+1 >= count {
				continue
			}
			regHi := reg + 4
			rawHi := cs.BAR(i + 1)
			bars[i+1].RawValue = rawHi
			addr := uint64(rawHi)<<32 | uint64(raw&^uint32(0b1111))

			werrLo := acc.WriteU32(loc, reg, 0xFFFFFFFF)
			werrHi := acc.WriteU32(loc, regHi, 0xFFFFFFFF)
			lo, rerrLo := acc.ReadU32(loc, reg)
			hi, rerrHi := acc.ReadU32(loc, regHi)
			rsLo := acc.WriteU32(loc, reg, uint32(addr))
			rsHi := acc.WriteU32(loc, regHi, uint32(addr>>32))
			idx := i
			i++ // upper half consumed either way

			if werrLo != nil || werrHi != nil || rerrLo != nil || rerrHi != nil ||
				rsLo != nil || rsHi != nil {
				continue
			}
			mask := uint64(hi)<<32 | uint64(lo&^uint32(0b1111))
			size := ^mask + 1
			if size == 0 {
				continue
			}
			bars[idx] = BAR{Index: idx, RawValue: raw, Address: addr, Size: size,
				Type: BARTypeMem64, Prefetchable: prefetchable, Is64Bit: true, Valid: true}
			continue
		}

		// 32-bit memory BAR. An unimplemented slot ignores the probe
		// write and reads back zero, which wraps the size to zero.
		addr := uint64(raw &^ uint32(0b1111))
		if acc.WriteU32(loc, reg, 0xFFFFFFFF) != nil {
			continue
		}
		probed, rerr := acc.ReadU32(loc, reg)
		if acc.WriteU32(loc, reg, uint32(addr)) != nil || rerr != nil {
			continue
		}
		masked := probed &^ uint32(0b1111)
		size := uint64(^masked + 1)
		if size == 0 {
			continue
		}
		bars[i] = BAR{Index: i, RawValue: raw, Address: addr, Size: size,
			Type: BARTypeMem32, Prefetchable: prefetchable, Valid: true}
	}

	return bars
}

// ParseBARsFromConfigSpace decodes BAR addresses and kinds from a
// config snapshot alone. Sizes cannot be known without probing, so
// entries keep Size zero; use ProbeBARs or a sysfs resource file when
// sizes are needed.
func ParseBARsFromConfigSpace(cs *ConfigSpace) []BAR {
	count := BARCount(cs.HeaderLayout())
	bars := make([]BAR, count)
	for i := range bars {
		bars[i].Index = i
		bars[i].Type = BARTypeDisabled
	}

	for i := 0; i < count; i++ {
		raw := cs.BAR(i)
		bars[i].RawValue = raw
		if raw == 0 {
			continue
		}

		if raw&0x1 != 0 {
			bars[i].Type = BARTypeIO
			bars[i].Address = uint64(raw &^ uint32(0b11))
			bars[i].Valid = true
			continue
		}

		bars[i].Prefetchable = raw&0b1000 != 0
		if (raw>>1)&0b11 == 0b10 {
			if i%2 != 0 || i+1 >= count {
				continue
			}
			rawHi := cs.BAR(i + 1)
			bars[i].Type = BARTypeMem64
			bars[i].Is64Bit = true
			bars[i].Address = uint64(rawHi)<<32 | uint64(raw&^uint32(0b1111))
			bars[i].Valid = true
			bars[i+1].RawValue = rawHi
			i++
			continue
		}

		bars[i].Type = BARTypeMem32
		bars[i].Address = uint64(raw &^ uint32(0b1111))
		bars[i].Valid = true
	}

	return bars
}

// ParseBARsFromSysfsResource parses BAR information from sysfs resource
// lines. Each line has format: "start end flags". count caps how many
// leading lines are BAR slots (6 for endpoints, 2 for bridges).
func ParseBARsFromSysfsResource(lines []string, count int) []BAR {
	if count > len(lines) {
		count = len(lines)
	}
	if count < 0 {
		count = 0
	}
	bars := make([]BAR, count)

	for i := 0; i < count; i++ {
		var start, end, flags uint64
		n, _ := fmt.Sscanf(lines[i], "0x%x 0x%x 0x%x", &start, &end, &flags)
		if n != 3 {
			// Try without 0x prefix
			n, _ = fmt.Sscanf(lines[i], "%x %x %x", &start, &end, &flags)
		}

		bars[i] = BAR{Index: i, Type: BARTypeDisabled}
		if n != 3 || (start == 0 && end == 0) {
			continue
		}

		bars[i].Address = start
		bars[i].Size = end - start + 1
		bars[i].Valid = true

		if flags&0x01 != 0 {
			bars[i].Type = BARTypeIO
		} else {
			bars[i].Prefetchable = (flags & 0x08) != 0
			if flags&0x04 != 0 {
				bars[i].Type = BARTypeMem64
				bars[i].Is64Bit = true
			} else {
				bars[i].Type = BARTypeMem32
			}
		}
	}

	return bars
}
