package pci

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// ConfigSpaceSize is the full PCIe extended config space size (4KB).
const ConfigSpaceSize = 4096

// ConfigSpaceLegacySize is the legacy PCI config space size (256 bytes).
const ConfigSpaceLegacySize = 256

// Header layout values (HeaderType low 7 bits).
const (
	HeaderLayoutEndpoint = 0x00
	HeaderLayoutBridge   = 0x01
	HeaderLayoutCardBus  = 0x02
)

// InvalidVendorID is the all-ones value returned for empty slots.
const InvalidVendorID uint16 = 0xFFFF

// Class code of a PCI-to-PCI bridge (base class / sub class).
const (
	BaseClassBridge   = 0x06
	SubClassPCIBridge = 0x04
)

// Register offsets used for the cheap pre-snapshot probe reads.
const (
	RegVendorID   = 0x00
	RegSubClass   = 0x0A
	RegBaseClass  = 0x0B
	RegHeaderType = 0x0E
	RegBAR0       = 0x10
)

// ConfigSpace is a snapshot of one function's configuration space. The
// discovery engine reads it once at probe time; decoded views (windows,
// BARs, capabilities) are pure functions of the snapshot.
type ConfigSpace struct {
	Data [ConfigSpaceSize]byte
	Size int // actual bytes read (64, 256 or 4096)
}

// NewConfigSpace creates an empty ConfigSpace.
func NewConfigSpace() *ConfigSpace {
	return &ConfigSpace{Size: ConfigSpaceSize}
}

// NewConfigSpaceFromBytes creates a ConfigSpace from a byte slice.
func NewConfigSpaceFromBytes(data []byte) *ConfigSpace {
	cs := &ConfigSpace{Size: len(data)}
	if cs.Size > ConfigSpaceSize {
		cs.Size = ConfigSpaceSize
	}
	copy(cs.Data[:], data)
	return cs
}

// --- Common header fields (type 0 and type 1) ---

// VendorID returns the Vendor ID (offset 0x00).
func (cs *ConfigSpace) VendorID() uint16 {
	return binary.LittleEndian.Uint16(cs.Data[0x00:0x02])
}

// DeviceID returns the Device ID (offset 0x02).
func (cs *ConfigSpace) DeviceID() uint16 {
	return binary.LittleEndian.Uint16(cs.Data[0x02:0x04])
}

// Command returns the Command register (offset 0x04).
func (cs *ConfigSpace) Command() uint16 {
	return binary.LittleEndian.Uint16(cs.Data[0x04:0x06])
}

// Status returns the Status register (offset 0x06).
func (cs *ConfigSpace) Status() uint16 {
	return binary.LittleEndian.Uint16(cs.Data[0x06:0x08])
}

// RevisionID returns the Revision ID (offset 0x08).
func (cs *ConfigSpace) RevisionID() uint8 {
	return cs.Data[0x08]
}

// ProgIF returns the Programming Interface (offset 0x09).
func (cs *ConfigSpace) ProgIF() uint8 {
	return cs.Data[0x09]
}

// SubClass returns the Sub-Class code (offset 0x0A).
func (cs *ConfigSpace) SubClass() uint8 {
	return cs.Data[0x0A]
}

// BaseClass returns the Base Class code (offset 0x0B).
func (cs *ConfigSpace) BaseClass() uint8 {
	return cs.Data[0x0B]
}

// ClassCode returns the full 24-bit class code.
func (cs *ConfigSpace) ClassCode() uint32 {
	return uint32(cs.BaseClass())<<16 | uint32(cs.SubClass())<<8 | uint32(cs.ProgIF())
}

// HeaderType returns the raw Header Type byte (offset 0x0E).
func (cs *ConfigSpace) HeaderType() uint8 {
	return cs.Data[0x0E]
}

// IsMultiFunction returns true if header type bit 7 is set.
func (cs *ConfigSpace) IsMultiFunction() bool {
	return (cs.HeaderType() & 0x80) != 0
}

// HeaderLayout returns the header layout type (0, 1, or 2).
func (cs *ConfigSpace) HeaderLayout() uint8 {
	return cs.HeaderType() & 0x7F
}

// BAR returns the raw Base Address Register value at the given index.
// Type 0 headers have six BARs, type 1 headers only the first two.
func (cs *ConfigSpace) BAR(index int) uint32 {
	if index < 0 || index > 5 {
		return 0
	}
	offset := RegBAR0 + index*4
	return binary.LittleEndian.Uint32(cs.Data[offset : offset+4])
}

// CapabilityPointer returns the Capabilities Pointer (offset 0x34,
// shared between type 0 and type 1 layouts).
func (cs *ConfigSpace) CapabilityPointer() uint8 {
	return cs.Data[0x34]
}

// HasCapabilities returns true if the capabilities-list status bit is set.
func (cs *ConfigSpace) HasCapabilities() bool {
	return (cs.Status() & 0x0010) != 0
}

// InterruptLine returns the Interrupt Line (offset 0x3C).
func (cs *ConfigSpace) InterruptLine() uint8 {
	return cs.Data[0x3C]
}

// InterruptPin returns the Interrupt Pin (offset 0x3D).
func (cs *ConfigSpace) InterruptPin() uint8 {
	return cs.Data[0x3D]
}

// --- Type 0 only ---

// SubsysVendorID returns the Subsystem Vendor ID (offset 0x2C, type 0).
func (cs *ConfigSpace) SubsysVendorID() uint16 {
	return binary.LittleEndian.Uint16(cs.Data[0x2C:0x2E])
}

// SubsysDeviceID returns the Subsystem Device ID (offset 0x2E, type 0).
func (cs *ConfigSpace) SubsysDeviceID() uint16 {
	return binary.LittleEndian.Uint16(cs.Data[0x2E:0x30])
}

// --- Type 1 (PCI-to-PCI bridge) only ---

// PrimaryBus returns the bus number upstream of a bridge (offset 0x18).
func (cs *ConfigSpace) PrimaryBus() uint8 {
	return cs.Data[0x18]
}

// SecondaryBus returns the bus number directly behind a bridge (offset 0x19).
func (cs *ConfigSpace) SecondaryBus() uint8 {
	return cs.Data[0x19]
}

// SubordinateBus returns the highest bus number behind a bridge (offset 0x1A).
func (cs *ConfigSpace) SubordinateBus() uint8 {
	return cs.Data[0x1A]
}

// IOBase returns the packed I/O window base field (offset 0x1C).
func (cs *ConfigSpace) IOBase() uint8 {
	return cs.Data[0x1C]
}

// IOLimit returns the packed I/O window limit field (offset 0x1D).
func (cs *ConfigSpace) IOLimit() uint8 {
	return cs.Data[0x1D]
}

// SecondaryStatus returns the secondary status register (offset 0x1E).
func (cs *ConfigSpace) SecondaryStatus() uint16 {
	return binary.LittleEndian.Uint16(cs.Data[0x1E:0x20])
}

// MemoryBase returns the packed memory window base field (offset 0x20).
func (cs *ConfigSpace) MemoryBase() uint16 {
	return binary.LittleEndian.Uint16(cs.Data[0x20:0x22])
}

// MemoryLimit returns the packed memory window limit field (offset 0x22).
func (cs *ConfigSpace) MemoryLimit() uint16 {
	return binary.LittleEndian.Uint16(cs.Data[0x22:0x24])
}

// PrefetchBase returns the packed prefetchable window base field (offset 0x24).
// The low nibble encodes the addressing width: 1 means 64-bit.
func (cs *ConfigSpace) PrefetchBase() uint16 {
	return binary.LittleEndian.Uint16(cs.Data[0x24:0x26])
}

// PrefetchLimit returns the packed prefetchable window limit field (offset 0x26).
func (cs *ConfigSpace) PrefetchLimit() uint16 {
	return binary.LittleEndian.Uint16(cs.Data[0x26:0x28])
}

// PrefetchBaseUpper32 returns the upper 32 base bits of a 64-bit
// prefetchable window (offset 0x28).
func (cs *ConfigSpace) PrefetchBaseUpper32() uint32 {
	return binary.LittleEndian.Uint32(cs.Data[0x28:0x2C])
}

// PrefetchLimitUpper32 returns the upper 32 limit bits of a 64-bit
// prefetchable window (offset 0x2C).
func (cs *ConfigSpace) PrefetchLimitUpper32() uint32 {
	return binary.LittleEndian.Uint32(cs.Data[0x2C:0x30])
}

// IOBaseUpper16 returns the upper 16 I/O base bits (offset 0x30).
func (cs *ConfigSpace) IOBaseUpper16() uint16 {
	return binary.LittleEndian.Uint16(cs.Data[0x30:0x32])
}

// IOLimitUpper16 returns the upper 16 I/O limit bits (offset 0x32).
func (cs *ConfigSpace) IOLimitUpper16() uint16 {
	return binary.LittleEndian.Uint16(cs.Data[0x32:0x34])
}

// BridgeControl returns the bridge control register (offset 0x3E).
func (cs *ConfigSpace) BridgeControl() uint16 {
	return binary.LittleEndian.Uint16(cs.Data[0x3E:0x40])
}

// --- Raw access ---

// ReadU8 reads a uint8 from the given offset.
func (cs *ConfigSpace) ReadU8(offset int) uint8 {
	if offset < 0 || offset >= ConfigSpaceSize {
		return 0
	}
	return cs.Data[offset]
}

// ReadU16 reads a little-endian uint16 from the given offset.
func (cs *ConfigSpace) ReadU16(offset int) uint16 {
	if offset < 0 || offset+1 >= ConfigSpaceSize {
		return 0
	}
	return binary.LittleEndian.Uint16(cs.Data[offset : offset+2])
}

// ReadU32 reads a little-endian uint32 from the given offset.
func (cs *ConfigSpace) ReadU32(offset int) uint32 {
	if offset < 0 || offset+3 >= ConfigSpaceSize {
		return 0
	}
	return binary.LittleEndian.Uint32(cs.Data[offset : offset+4])
}

// WriteU8 writes a uint8 at the given offset.
func (cs *ConfigSpace) WriteU8(offset int, val uint8) {
	if offset >= 0 && offset < ConfigSpaceSize {
		cs.Data[offset] = val
	}
}

// WriteU16 writes a little-endian uint16 at the given offset.
func (cs *ConfigSpace) WriteU16(offset int, val uint16) {
	if offset >= 0 && offset+1 < ConfigSpaceSize {
		binary.LittleEndian.PutUint16(cs.Data[offset:offset+2], val)
	}
}

// WriteU32 writes a little-endian uint32 at the given offset.
func (cs *ConfigSpace) WriteU32(offset int, val uint32) {
	if offset >= 0 && offset+3 < ConfigSpaceSize {
		binary.LittleEndian.PutUint32(cs.Data[offset:offset+4], val)
	}
}

// Clone creates a deep copy of the ConfigSpace.
func (cs *ConfigSpace) Clone() *ConfigSpace {
	clone := &ConfigSpace{Size: cs.Size}
	copy(clone.Data[:], cs.Data[:])
	return clone
}

// Bytes returns the actual config space data as a byte slice.
func (cs *ConfigSpace) Bytes() []byte {
	return cs.Data[:cs.Size]
}

// HexDump returns a hex dump of the config space for debugging.
func (cs *ConfigSpace) HexDump(maxBytes int) string {
	if maxBytes <= 0 || maxBytes > cs.Size {
		maxBytes = cs.Size
	}

	var sb strings.Builder
	for i := 0; i < maxBytes; i += 16 {
		sb.WriteString(fmt.Sprintf("%03x: ", i))
		for j := 0; j < 16 && i+j < maxBytes; j++ {
			sb.WriteString(fmt.Sprintf("%02x ", cs.Data[i+j]))
			if j == 7 {
				sb.WriteString(" ")
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
