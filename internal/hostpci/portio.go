package hostpci

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/sercanarga/pcitree/internal/pci"
	"github.com/sercanarga/pcitree/internal/util"
)

const (
	portIOPath  = "/dev/port"
	addressPort = 0xCF8
	dataPort    = 0xCFC
	enableBit   = 1 << 31
)

// PortIOAccessor reads configuration space through the legacy
// 0xCF8/0xCFC port pair. It only reaches segment 0 and the first 256
// bytes of each function, and it needs root on an x86 host. The
// address latch is shared hardware state, so every access holds the
// accessor lock across the address write and the data transfer.
type PortIOAccessor struct {
	mu sync.Mutex
	f  *os.File
}

// NewPortIOAccessor opens /dev/port.
func NewPortIOAccessor() (*PortIOAccessor, error) {
	return NewPortIOAccessorAtPath(portIOPath)
}

// NewPortIOAccessorAtPath opens a custom port file (for testing).
func NewPortIOAccessorAtPath(path string) (*PortIOAccessor, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &PortIOAccessor{f: f}, nil
}

// Close releases the port file.
func (a *PortIOAccessor) Close() error {
	return a.f.Close()
}

// configAddress builds the dword written to the address port. The two
// low register bits are dropped because the latch addresses dwords.
func configAddress(loc pci.Location, reg uint16) uint32 {
	return enableBit |
		uint32(loc.Bus)<<16 |
		uint32(loc.Device)<<11 |
		uint32(loc.Function)<<8 |
		uint32(reg)&^0x3
}

func (a *PortIOAccessor) readDword(loc pci.Location, reg uint16) (uint32, error) {
	if loc.Segment != 0 {
		return 0, fmt.Errorf("port io cannot address segment %d", loc.Segment)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	addr := util.U32ToLEBytes(configAddress(loc, reg))
	if _, err := unix.Pwrite(int(a.f.Fd()), addr, addressPort); err != nil {
		return 0, fmt.Errorf("failed to write address port: %w", err)
	}

	buf := make([]byte, 4)
	n, err := unix.Pread(int(a.f.Fd()), buf, dataPort)
	if err != nil {
		return 0, fmt.Errorf("failed to read data port: %w", err)
	}
	if n != len(buf) {
		return 0, fmt.Errorf("short read from data port: %d bytes", n)
	}
	return util.LEBytesToU32(buf), nil
}

// ReadU8 reads one byte of config space.
func (a *PortIOAccessor) ReadU8(loc pci.Location, reg uint16) (uint8, error) {
	dword, err := a.readDword(loc, reg)
	if err != nil {
		return 0, err
	}
	return uint8(dword >> ((reg & 3) * 8)), nil
}

// ReadU16 reads a little-endian word of config space.
func (a *PortIOAccessor) ReadU16(loc pci.Location, reg uint16) (uint16, error) {
	dword, err := a.readDword(loc, reg)
	if err != nil {
		return 0, err
	}
	return uint16(dword >> ((reg & 2) * 8)), nil
}

// ReadU32 reads a little-endian dword of config space.
func (a *PortIOAccessor) ReadU32(loc pci.Location, reg uint16) (uint32, error) {
	return a.readDword(loc, reg)
}

// WriteU32 writes a dword of config space. Topology scans use this to
// size BARs, the same probe sequence firmware runs at boot.
func (a *PortIOAccessor) WriteU32(loc pci.Location, reg uint16, val uint32) error {
	if loc.Segment != 0 {
		return fmt.Errorf("port io cannot address segment %d", loc.Segment)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	addr := util.U32ToLEBytes(configAddress(loc, reg))
	if _, err := unix.Pwrite(int(a.f.Fd()), addr, addressPort); err != nil {
		return fmt.Errorf("failed to write address port: %w", err)
	}
	if _, err := unix.Pwrite(int(a.f.Fd()), util.U32ToLEBytes(val), dataPort); err != nil {
		return fmt.Errorf("failed to write data port: %w", err)
	}
	return nil
}

// ReadSpace reads the 256-byte legacy config space one dword at a
// time. The extended express region is out of reach for this
// mechanism.
func (a *PortIOAccessor) ReadSpace(loc pci.Location) (*pci.ConfigSpace, error) {
	data := make([]byte, 256)
	for off := 0; off < len(data); off += 4 {
		dword, err := a.readDword(loc, uint16(off))
		if err != nil {
			return nil, err
		}
		copy(data[off:], util.U32ToLEBytes(dword))
	}
	return pci.NewConfigSpaceFromBytes(data), nil
}

var _ pci.ConfigAccessor = (*PortIOAccessor)(nil)
