package pci

import (
	"errors"
	"testing"
)

// fakeBARAccessor emulates BAR probing: address bits listed in masks
// are writable, everything else reads back unchanged.
type fakeBARAccessor struct {
	regs  map[uint16]uint32
	masks map[uint16]uint32
	fail  map[uint16]bool
}

func (f *fakeBARAccessor) ReadU8(Location, uint16) (uint8, error)   { return 0, nil }
func (f *fakeBARAccessor) ReadU16(Location, uint16) (uint16, error) { return 0, nil }

func (f *fakeBARAccessor) ReadU32(_ Location, reg uint16) (uint32, error) {
	if f.fail[reg] {
		return 0, errors.New("read failed")
	}
	return f.regs[reg], nil
}

func (f *fakeBARAccessor) WriteU32(_ Location, reg uint16, val uint32) error {
	if f.fail[reg] {
		return errors.New("write failed")
	}
	mask := f.masks[reg]
	f.regs[reg] = (val & mask) | (f.regs[reg] &^ mask)
	return nil
}

func (f *fakeBARAccessor) ReadSpace(Location) (*ConfigSpace, error) {
	return nil, errors.New("not implemented")
}

func TestProbeBARs(t *testing.T) {
	cs := NewConfigSpace()
	cs.WriteU8(0x0E, 0x00)           // endpoint header, six slots
	cs.WriteU32(0x10, 0x0000E001)    // BAR0: io at 0xE000, 32 bytes
	cs.WriteU32(0x14, 0xFE000000)    // BAR1: mem32 at 0xFE000000, 4 KB
	cs.WriteU32(0x18, 0x0000000C)    // BAR2+3: mem64 prefetchable at 0x100000000, 16 KB
	cs.WriteU32(0x1C, 0x00000001)    //   upper half
	cs.WriteU32(0x20, 0x00000000)    // BAR4: unimplemented
	cs.WriteU32(0x24, 0xF0000000)    // BAR5: mem32, probe fails

	acc := &fakeBARAccessor{
		regs: map[uint16]uint32{
			0x10: 0x0000E001,
			0x14: 0xFE000000,
			0x18: 0x0000000C,
			0x1C: 0x00000001,
			0x20: 0,
			0x24: 0xF0000000,
		},
		masks: map[uint16]uint32{
			0x10: 0xFFE0,       // 32-byte io region
			0x14: 0xFFFFF000,   // 4 KB
			0x18: 0xFFFFC000,   // 16 KB, low half
			0x1C: 0xFFFFFFFF,   //   upper half fully writable
			0x20: 0,            // writes ignored
			0x24: 0xF0000000,
		},
		fail: map[uint16]bool{0x24: true},
	}

	loc := Location{Bus: 1, Device: 2}
	bars := ProbeBARs(acc, loc, cs)
	if len(bars) != 6 {
		t.Fatalf("len(bars) = %d, want 6", len(bars))
	}

	if !bars[0].Valid || bars[0].Type != BARTypeIO {
		t.Errorf("BAR0 = %+v, want valid io", bars[0])
	}
	if bars[0].Address != 0xE000 || bars[0].Size != 0x20 {
		t.Errorf("BAR0 addr/size = 0x%x/0x%x, want 0xE000/0x20", bars[0].Address, bars[0].Size)
	}

	if !bars[1].Valid || bars[1].Type != BARTypeMem32 {
		t.Errorf("BAR1 = %+v, want valid mem32", bars[1])
	}
	if bars[1].Address != 0xFE000000 || bars[1].Size != 0x1000 {
		t.Errorf("BAR1 addr/size = 0x%x/0x%x, want 0xFE000000/0x1000", bars[1].Address, bars[1].Size)
	}

	if !bars[2].Valid || bars[2].Type != BARTypeMem64 || !bars[2].Prefetchable {
		t.Errorf("BAR2 = %+v, want valid prefetchable mem64", bars[2])
	}
	if bars[2].Address != 0x100000000 || bars[2].Size != 0x4000 {
		t.Errorf("BAR2 addr/size = 0x%x/0x%x, want 0x100000000/0x4000", bars[2].Address, bars[2].Size)
	}
	if bars[3].Valid {
		t.Error("BAR3 is the upper half of BAR2 and must stay disabled")
	}

	if bars[4].Valid {
		t.Error("BAR4 is unimplemented and must be disabled")
	}
	if bars[5].Valid {
		t.Error("BAR5 probe failed and must be disabled")
	}

	// Probing must restore every register it touched.
	for reg, want := range map[uint16]uint32{
		0x10: 0x0000E001,
		0x14: 0xFE000000,
		0x18: 0x0000000C,
		0x1C: 0x00000001,
	} {
		if got := acc.regs[reg]; got != want {
			t.Errorf("register 0x%02x left at 0x%08x, want 0x%08x", reg, got, want)
		}
	}
}

func TestProbeBARsBridgeLayout(t *testing.T) {
	cs := NewConfigSpace()
	cs.WriteU8(0x0E, 0x01) // bridge header, two slots
	cs.WriteU32(0x10, 0xFD000000)

	acc := &fakeBARAccessor{
		regs:  map[uint16]uint32{0x10: 0xFD000000, 0x14: 0},
		masks: map[uint16]uint32{0x10: 0xFFFF0000, 0x14: 0},
	}

	bars := ProbeBARs(acc, Location{}, cs)
	if len(bars) != 2 {
		t.Fatalf("len(bars) = %d, want 2", len(bars))
	}
	if !bars[0].Valid || bars[0].Size != 0x10000 {
		t.Errorf("BAR0 = %+v, want valid 64 KB", bars[0])
	}
	if bars[1].Valid {
		t.Error("BAR1 should be disabled")
	}
}

func TestProbeBARs64BitOddSlot(t *testing.T) {
	cs := NewConfigSpace()
	cs.WriteU8(0x0E, 0x00)
	cs.WriteU32(0x14, 0x0000000C) // 64-bit type bits on an odd slot

	acc := &fakeBARAccessor{
		regs:  map[uint16]uint32{0x14: 0x0000000C},
		masks: map[uint16]uint32{0x14: 0xFFFFC000},
	}

	bars := ProbeBARs(acc, Location{}, cs)
	if bars[1].Valid {
		t.Error("64-bit BAR on an odd slot must be rejected")
	}
	// The following slot is not consumed by the rejected BAR.
	if bars[2].Valid {
		t.Error("BAR2 should be untouched and disabled")
	}
}

func TestParseBARsFromConfigSpace(t *testing.T) {
	cs := NewConfigSpace()

	// BAR0: 32-bit memory at 0xFE000000
	cs.WriteU32(0x10, 0xFE000000)

	// BAR1: IO BAR at 0x0000E001
	cs.WriteU32(0x14, 0x0000E001)

	// BAR2: 64-bit memory at 0x100000000
	cs.WriteU32(0x18, 0x0000000C) // 64-bit, prefetchable
	cs.WriteU32(0x1C, 0x00000001) // upper 32

	// BAR4: disabled
	cs.WriteU32(0x20, 0x00000000)

	bars := ParseBARsFromConfigSpace(cs)
	if len(bars) != 6 {
		t.Fatalf("len(bars) = %d, want 6", len(bars))
	}

	// BAR0
	if bars[0].Type != BARTypeMem32 {
		t.Errorf("BAR0 type = %q, want mem32", bars[0].Type)
	}
	if bars[0].Address != 0xFE000000 {
		t.Errorf("BAR0 address = 0x%x, want 0xFE000000", bars[0].Address)
	}

	// BAR1
	if bars[1].Type != BARTypeIO {
		t.Errorf("BAR1 type = %q, want io", bars[1].Type)
	}
	if bars[1].Address != 0x0000E000 {
		t.Errorf("BAR1 address = 0x%x, want 0xE000", bars[1].Address)
	}

	// BAR2 should be 64-bit
	if bars[2].Type != BARTypeMem64 {
		t.Errorf("BAR2 type = %q, want mem64", bars[2].Type)
	}
	if !bars[2].Is64Bit {
		t.Error("BAR2 should be 64-bit")
	}
	if !bars[2].Prefetchable {
		t.Error("BAR2 should be prefetchable")
	}
	if bars[2].Address != 0x100000000 {
		t.Errorf("BAR2 address = 0x%x, want 0x100000000", bars[2].Address)
	}

	// BAR3 is the upper half, BAR4 was never set
	if bars[3].Valid {
		t.Error("BAR3 should be disabled")
	}
	if bars[4].Valid {
		t.Error("BAR4 should be disabled")
	}
}

func TestParseBARsFromSysfsResource(t *testing.T) {
	lines := []string{
		"0x00000000f7d00000 0x00000000f7dfffff 0x0040200", // BAR0: 1MB memory
		"0x0000000000000000 0x0000000000000000 0x0000000", // BAR1: disabled
		"0x0000000000006001 0x000000000000601f 0x0040101", // BAR2: IO, 31 bytes
		"0x0000000000000000 0x0000000000000000 0x0000000", // BAR3: disabled
		"0x00000000f7c00000 0x00000000f7c3ffff 0x004020c", // BAR4: mem64, prefetch
		"0x0000000000000000 0x0000000000000000 0x0000000", // BAR5: disabled
	}

	bars := ParseBARsFromSysfsResource(lines, 6)

	if len(bars) != 6 {
		t.Fatalf("Expected 6 BARs, got %d", len(bars))
	}

	// BAR0: 1MB memory
	if bars[0].Type != BARTypeMem32 {
		t.Errorf("BAR0 type = %q, want mem32", bars[0].Type)
	}
	if bars[0].Size != 0x100000 {
		t.Errorf("BAR0 size = 0x%x, want 0x100000", bars[0].Size)
	}

	// BAR1: disabled
	if !bars[1].IsDisabled() {
		t.Error("BAR1 should be disabled")
	}

	// BAR2: IO
	if bars[2].Type != BARTypeIO {
		t.Errorf("BAR2 type = %q, want io", bars[2].Type)
	}

	// BAR4: 64-bit prefetchable
	if bars[4].Type != BARTypeMem64 {
		t.Errorf("BAR4 type = %q, want mem64", bars[4].Type)
	}
	if !bars[4].Prefetchable {
		t.Error("BAR4 should be prefetchable")
	}
}

func TestParseBARsFromSysfsResourceBridgeCount(t *testing.T) {
	lines := []string{
		"0x00000000f7d00000 0x00000000f7dfffff 0x0040200",
		"0x0000000000000000 0x0000000000000000 0x0000000",
		"0x0000000000001000 0x0000000000001fff 0x0000101", // bridge io window, not a BAR
	}

	bars := ParseBARsFromSysfsResource(lines, 2)
	if len(bars) != 2 {
		t.Fatalf("Expected 2 BARs, got %d", len(bars))
	}
}

func TestBARIsIOIsMemory(t *testing.T) {
	io := BAR{Type: BARTypeIO}
	if !io.IsIO() {
		t.Error("IO BAR.IsIO() should be true")
	}
	if io.IsMemory() {
		t.Error("IO BAR.IsMemory() should be false")
	}

	mem32 := BAR{Type: BARTypeMem32}
	if !mem32.IsMemory() {
		t.Error("Mem32 BAR.IsMemory() should be true")
	}

	mem64 := BAR{Type: BARTypeMem64}
	if !mem64.IsMemory() {
		t.Error("Mem64 BAR.IsMemory() should be true")
	}
}

func TestBARSizeHuman(t *testing.T) {
	tests := []struct {
		size uint64
		want string
	}{
		{0, "0"},
		{512, "512 B"},
		{1024, "1 KB"},
		{4096, "4 KB"},
		{1048576, "1 MB"},
		{16777216, "16 MB"},
		{1073741824, "1 GB"},
	}

	for _, tt := range tests {
		b := BAR{Size: tt.size}
		got := b.SizeHuman()
		if got != tt.want {
			t.Errorf("SizeHuman(%d) = %q, want %q", tt.size, got, tt.want)
		}
	}
}

func TestBARString(t *testing.T) {
	disabled := BAR{Index: 3, Type: BARTypeDisabled}
	if disabled.String() != "BAR3: [disabled]" {
		t.Errorf("Disabled BAR string = %q", disabled.String())
	}

	mem := BAR{
		Index:        0,
		Type:         BARTypeMem32,
		Address:      0xFE000000,
		Size:         1048576,
		Prefetchable: true,
		Valid:        true,
	}
	s := mem.String()
	if s != "BAR0: mem32 at 0xfe000000, size 1 MB [prefetchable]" {
		t.Errorf("Memory BAR string = %q", s)
	}
}
