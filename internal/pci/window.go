package pci

import "fmt"

// Range is a closed [Base, Limit] address interval. The zero Range is the
// canonical "no window" value; a disabled bridge window is indistinguishable
// from a genuine zero-based one-page window, which is inherent to the
// hardware encoding.
type Range struct {
	Base  uint64
	Limit uint64
}

// IsEmpty reports whether the range is the canonical empty window.
func (r Range) IsEmpty() bool {
	return r.Base == 0 && r.Limit == 0
}

// Size returns the number of addresses covered, or 0 for the empty window.
func (r Range) Size() uint64 {
	if r.IsEmpty() {
		return 0
	}
	return r.Limit - r.Base + 1
}

// String renders the range as "[0x...-0x...]".
func (r Range) String() string {
	return fmt.Sprintf("[%#x-%#x]", r.Base, r.Limit)
}

// The three window decoders below turn a bridge's packed base/limit register
// fields into address ranges. They are pure: every input bit pattern maps to
// a defined output, and callers recompute them from the header snapshot on
// every use rather than caching the result.
//
// In each field the low 4 bits are flags, not address bits. A limit field
// numerically below its base field means the window is disabled.

// IOWindow decodes the I/O forwarding window from the packed 8-bit base and
// limit fields. The window is 4 KiB granular.
func IOWindow(base, limit uint8) Range {
	if limit < base {
		return Range{}
	}
	return Range{
		Base:  (uint64(base) >> 4) << 12,
		Limit: (uint64(limit)>>4)<<12 | 0xFFF,
	}
}

// MemoryWindow decodes the 32-bit memory forwarding window from the packed
// 16-bit base and limit fields. The window is 1 MiB granular.
func MemoryWindow(base, limit uint16) Range {
	if limit < base {
		return Range{}
	}
	return Range{
		Base:  (uint64(base) >> 4) << 20,
		Limit: (uint64(limit)>>4)<<20 | 0xFFFFF,
	}
}

// PrefetchWindow decodes the prefetchable memory forwarding window. The low
// nibble of the base field selects the addressing width: the value 1 means
// the upper 32 address bits come from the baseUpper/limitUpper registers.
// For a 32-bit window the upper registers are ignored even if populated.
// The disabled check compares the packed 16-bit fields before any width
// handling.
func PrefetchWindow(base, limit uint16, baseUpper, limitUpper uint32) Range {
	if limit < base {
		return Range{}
	}

	is64 := (base & 0xF) == 1

	r := Range{
		Base:  (uint64(base) >> 4) << 20,
		Limit: (uint64(limit)>>4)<<20 | 0xFFFFF,
	}
	if is64 {
		r.Base |= uint64(baseUpper) << 32
		r.Limit |= uint64(limitUpper) << 32
	}
	return r
}
