// Package hostpci accesses PCI configuration space on the running
// Linux host, either through sysfs or through the legacy io ports.
package hostpci

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/prometheus/procfs/sysfs"

	"github.com/sercanarga/pcitree/internal/pci"
	"github.com/sercanarga/pcitree/internal/util"
)

const sysfsDevicesPath = "/sys/bus/pci/devices"

// SysfsAccessor reads configuration space through the per-device files
// under /sys/bus/pci/devices. BAR sizing uses the sysfs resource file,
// so a topology scan never writes to live devices.
type SysfsAccessor struct {
	devicesPath string
	fs          sysfs.FS
	hasFS       bool
}

// NewSysfsAccessor opens the system sysfs mount.
func NewSysfsAccessor() (*SysfsAccessor, error) {
	fs, err := sysfs.NewDefaultFS()
	if err != nil {
		return nil, fmt.Errorf("failed to open sysfs: %w", err)
	}
	return &SysfsAccessor{devicesPath: sysfsDevicesPath, fs: fs, hasFS: true}, nil
}

// NewSysfsAccessorWithPath uses a custom device directory laid out like
// /sys/bus/pci/devices (for testing).
func NewSysfsAccessorWithPath(devicesPath string) *SysfsAccessor {
	return &SysfsAccessor{devicesPath: devicesPath}
}

// Enumerate lists the locations of every device the kernel knows about,
// sorted by address.
func (a *SysfsAccessor) Enumerate() ([]pci.Location, error) {
	var locs []pci.Location

	if a.hasFS {
		devs, err := a.fs.PciDevices()
		if err != nil {
			return nil, fmt.Errorf("failed to list pci devices: %w", err)
		}
		for _, d := range devs {
			locs = append(locs, pci.Location{
				Segment:  uint16(d.Location.Segment),
				Bus:      uint8(d.Location.Bus),
				Device:   uint8(d.Location.Device),
				Function: uint8(d.Location.Function),
			})
		}
	} else {
		entries, err := os.ReadDir(a.devicesPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read sysfs: %w", err)
		}
		for _, e := range entries {
			loc, err := pci.ParseLocation(e.Name())
			if err != nil {
				continue
			}
			locs = append(locs, loc)
		}
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
	return locs, nil
}

// Segments returns the distinct config space segments present on the
// host, in ascending order. Most machines only have segment 0.
func (a *SysfsAccessor) Segments() ([]uint16, error) {
	locs, err := a.Enumerate()
	if err != nil {
		return nil, err
	}

	var segments []uint16
	for _, loc := range locs {
		if n := len(segments); n == 0 || segments[n-1] != loc.Segment {
			segments = append(segments, loc.Segment)
		}
	}
	return segments, nil
}

func (a *SysfsAccessor) configPath(loc pci.Location) string {
	return filepath.Join(a.devicesPath, loc.String(), "config")
}

func (a *SysfsAccessor) configRead(loc pci.Location, reg uint16, buf []byte) error {
	f, err := os.Open(a.configPath(loc))
	if err != nil {
		return fmt.Errorf("failed to open config space: %w", err)
	}
	defer f.Close()

	if _, err := f.ReadAt(buf, int64(reg)); err != nil {
		return fmt.Errorf("failed to read config space at %#x: %w", reg, err)
	}
	return nil
}

// ReadU8 reads one byte of config space.
func (a *SysfsAccessor) ReadU8(loc pci.Location, reg uint16) (uint8, error) {
	buf := make([]byte, 1)
	if err := a.configRead(loc, reg, buf); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadU16 reads a little-endian word of config space.
func (a *SysfsAccessor) ReadU16(loc pci.Location, reg uint16) (uint16, error) {
	buf := make([]byte, 2)
	if err := a.configRead(loc, reg, buf); err != nil {
		return 0, err
	}
	return util.LEBytesToU16(buf), nil
}

// ReadU32 reads a little-endian dword of config space.
func (a *SysfsAccessor) ReadU32(loc pci.Location, reg uint16) (uint32, error) {
	buf := make([]byte, 4)
	if err := a.configRead(loc, reg, buf); err != nil {
		return 0, err
	}
	return util.LEBytesToU32(buf), nil
}

// WriteU32 writes a dword into live config space. A topology scan
// never calls this on a sysfs accessor because BAR sizing goes through
// SizeBARs instead.
func (a *SysfsAccessor) WriteU32(loc pci.Location, reg uint16, val uint32) error {
	f, err := os.OpenFile(a.configPath(loc), os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("failed to open config space for writing: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteAt(util.U32ToLEBytes(val), int64(reg)); err != nil {
		return fmt.Errorf("failed to write config space at %#x: %w", reg, err)
	}
	return nil
}

// ReadSpace reads the whole config space file, 256 bytes on
// conventional devices and 4096 on express ones.
func (a *SysfsAccessor) ReadSpace(loc pci.Location) (*pci.ConfigSpace, error) {
	data, err := os.ReadFile(a.configPath(loc))
	if err != nil {
		return nil, fmt.Errorf("failed to read config space: %w", err)
	}
	return pci.NewConfigSpaceFromBytes(data), nil
}

// SizeBARs derives BAR addresses and sizes from the sysfs resource
// file instead of write probing the device.
func (a *SysfsAccessor) SizeBARs(loc pci.Location) ([]pci.BAR, error) {
	header, err := a.ReadU8(loc, pci.RegHeaderType)
	if err != nil {
		return nil, err
	}
	count := pci.BARCount(header & 0x7F)

	f, err := os.Open(filepath.Join(a.devicesPath, loc.String(), "resource"))
	if err != nil {
		return nil, fmt.Errorf("failed to read resource file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read resource file: %w", err)
	}

	return pci.ParseBARsFromSysfsResource(lines, count), nil
}

var (
	_ pci.ConfigAccessor = (*SysfsAccessor)(nil)
	_ pci.BARSizer       = (*SysfsAccessor)(nil)
)
