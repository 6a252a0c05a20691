package pci

import (
	"strings"
	"testing"
)

func TestConfigSpaceAccessors(t *testing.T) {
	cs := NewConfigSpace()

	// Set up a typical Intel NIC config space header
	cs.WriteU16(0x00, 0x8086) // Vendor ID
	cs.WriteU16(0x02, 0x1533) // Device ID
	cs.WriteU16(0x04, 0x0406) // Command
	cs.WriteU16(0x06, 0x0010) // Status (capabilities list)
	cs.WriteU8(0x08, 0x03)    // Revision ID
	cs.WriteU8(0x09, 0x00)    // Prog IF
	cs.WriteU8(0x0A, 0x00)    // Sub-class
	cs.WriteU8(0x0B, 0x02)    // Base class (Network)
	cs.WriteU8(0x0E, 0x00)    // Header type
	cs.WriteU16(0x2C, 0x8086) // Subsys Vendor
	cs.WriteU16(0x2E, 0x0001) // Subsys Device
	cs.WriteU8(0x34, 0x40)    // Capability pointer

	if cs.VendorID() != 0x8086 {
		t.Errorf("VendorID() = 0x%04x, want 0x8086", cs.VendorID())
	}
	if cs.DeviceID() != 0x1533 {
		t.Errorf("DeviceID() = 0x%04x, want 0x1533", cs.DeviceID())
	}
	if cs.RevisionID() != 0x03 {
		t.Errorf("RevisionID() = 0x%02x, want 0x03", cs.RevisionID())
	}
	if cs.BaseClass() != 0x02 {
		t.Errorf("BaseClass() = 0x%02x, want 0x02", cs.BaseClass())
	}
	if cs.ClassCode() != 0x020000 {
		t.Errorf("ClassCode() = 0x%06x, want 0x020000", cs.ClassCode())
	}
	if cs.SubsysVendorID() != 0x8086 {
		t.Errorf("SubsysVendorID() = 0x%04x, want 0x8086", cs.SubsysVendorID())
	}
	if cs.SubsysDeviceID() != 0x0001 {
		t.Errorf("SubsysDeviceID() = 0x%04x, want 0x0001", cs.SubsysDeviceID())
	}
	if !cs.HasCapabilities() {
		t.Error("HasCapabilities() = false, want true")
	}
	if cs.CapabilityPointer() != 0x40 {
		t.Errorf("CapabilityPointer() = 0x%02x, want 0x40", cs.CapabilityPointer())
	}
}

func TestConfigSpaceBridgeAccessors(t *testing.T) {
	cs := NewConfigSpace()

	// Type-1 header for a PCI-PCI bridge forwarding to buses 2..4
	cs.WriteU16(0x00, 0x8086) // Vendor ID
	cs.WriteU16(0x02, 0x244E) // Device ID
	cs.WriteU8(0x0A, 0x04)    // Sub-class (PCI-PCI)
	cs.WriteU8(0x0B, 0x06)    // Base class (Bridge)
	cs.WriteU8(0x0E, 0x01)    // Header type
	cs.WriteU8(0x18, 0x00)    // Primary bus
	cs.WriteU8(0x19, 0x02)    // Secondary bus
	cs.WriteU8(0x1A, 0x04)    // Subordinate bus
	cs.WriteU8(0x1C, 0x10)    // I/O base
	cs.WriteU8(0x1D, 0x20)    // I/O limit
	cs.WriteU16(0x20, 0x0010) // Memory base
	cs.WriteU16(0x22, 0x0010) // Memory limit
	cs.WriteU16(0x24, 0x0011) // Prefetch base (low nibble 1: 64-bit)
	cs.WriteU16(0x26, 0x0011) // Prefetch limit
	cs.WriteU32(0x28, 0x0001) // Prefetch base upper 32
	cs.WriteU32(0x2C, 0x0001) // Prefetch limit upper 32
	cs.WriteU16(0x3E, 0x0003) // Bridge control

	if cs.HeaderLayout() != HeaderLayoutBridge {
		t.Errorf("HeaderLayout() = %d, want %d", cs.HeaderLayout(), HeaderLayoutBridge)
	}
	if cs.PrimaryBus() != 0 {
		t.Errorf("PrimaryBus() = %d, want 0", cs.PrimaryBus())
	}
	if cs.SecondaryBus() != 2 {
		t.Errorf("SecondaryBus() = %d, want 2", cs.SecondaryBus())
	}
	if cs.SubordinateBus() != 4 {
		t.Errorf("SubordinateBus() = %d, want 4", cs.SubordinateBus())
	}
	if cs.IOBase() != 0x10 || cs.IOLimit() != 0x20 {
		t.Errorf("IO base/limit = 0x%02x/0x%02x, want 0x10/0x20", cs.IOBase(), cs.IOLimit())
	}
	if cs.MemoryBase() != 0x10 || cs.MemoryLimit() != 0x10 {
		t.Errorf("memory base/limit = 0x%04x/0x%04x, want 0x10/0x10", cs.MemoryBase(), cs.MemoryLimit())
	}
	if cs.PrefetchBase() != 0x11 || cs.PrefetchLimit() != 0x11 {
		t.Errorf("prefetch base/limit = 0x%04x/0x%04x, want 0x11/0x11", cs.PrefetchBase(), cs.PrefetchLimit())
	}
	if cs.PrefetchBaseUpper32() != 1 || cs.PrefetchLimitUpper32() != 1 {
		t.Errorf("prefetch upper = %d/%d, want 1/1",
			cs.PrefetchBaseUpper32(), cs.PrefetchLimitUpper32())
	}
	if cs.BridgeControl() != 0x0003 {
		t.Errorf("BridgeControl() = 0x%04x, want 0x0003", cs.BridgeControl())
	}
}

func TestConfigSpaceMultiFunction(t *testing.T) {
	cs := NewConfigSpace()
	cs.WriteU8(0x0E, 0x80)
	if !cs.IsMultiFunction() {
		t.Error("IsMultiFunction() = false, want true")
	}
	if cs.HeaderLayout() != HeaderLayoutEndpoint {
		t.Errorf("HeaderLayout() = %d, want %d", cs.HeaderLayout(), HeaderLayoutEndpoint)
	}

	cs.WriteU8(0x0E, 0x01)
	if cs.IsMultiFunction() {
		t.Error("IsMultiFunction() = true, want false")
	}
	if cs.HeaderLayout() != HeaderLayoutBridge {
		t.Errorf("HeaderLayout() = %d, want %d", cs.HeaderLayout(), HeaderLayoutBridge)
	}
}

func TestConfigSpaceFromBytes(t *testing.T) {
	data := make([]byte, 256)
	data[0] = 0x86
	data[1] = 0x80

	cs := NewConfigSpaceFromBytes(data)
	if cs.VendorID() != 0x8086 {
		t.Errorf("VendorID() = 0x%04x, want 0x8086", cs.VendorID())
	}
	if cs.Size != 256 {
		t.Errorf("Size = %d, want 256", cs.Size)
	}
}

func TestConfigSpaceClone(t *testing.T) {
	cs := NewConfigSpace()
	cs.WriteU16(0x00, 0x8086)
	cs.WriteU16(0x02, 0x1533)

	clone := cs.Clone()
	if clone.VendorID() != 0x8086 {
		t.Errorf("Clone VendorID = 0x%04x, want 0x8086", clone.VendorID())
	}

	// Modify original, clone should be independent
	cs.WriteU16(0x00, 0xFFFF)
	if clone.VendorID() != 0x8086 {
		t.Error("Clone was affected by modifying original")
	}
}

func TestConfigSpaceBytes(t *testing.T) {
	cs := NewConfigSpace()
	cs.Size = 256
	cs.WriteU16(0x00, 0x8086)

	bytes := cs.Bytes()
	if len(bytes) != 256 {
		t.Errorf("Bytes() len = %d, want 256", len(bytes))
	}
	if bytes[0] != 0x86 || bytes[1] != 0x80 {
		t.Errorf("Bytes() content wrong: %02x %02x", bytes[0], bytes[1])
	}
}

func TestConfigSpaceHexDump(t *testing.T) {
	cs := NewConfigSpace()
	cs.WriteU16(0x00, 0x8086)

	dump := cs.HexDump(16)
	if !strings.Contains(dump, "86 80") {
		t.Errorf("HexDump missing expected bytes, got: %s", dump)
	}
}

func TestConfigSpaceReadWriteBoundary(t *testing.T) {
	cs := NewConfigSpace()

	// Test boundary reads return 0
	if cs.ReadU8(-1) != 0 {
		t.Error("ReadU8 at -1 should return 0")
	}
	if cs.ReadU8(ConfigSpaceSize) != 0 {
		t.Error("ReadU8 at ConfigSpaceSize should return 0")
	}
	if cs.ReadU16(ConfigSpaceSize-1) != 0 {
		t.Error("ReadU16 at boundary should return 0")
	}
	if cs.ReadU32(ConfigSpaceSize-3) != 0 {
		t.Error("ReadU32 at boundary should return 0")
	}
}
