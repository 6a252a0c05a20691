package pci

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// subClassNames maps (base_class << 8 | sub_class) to human-readable names.
var subClassNames = map[uint16]string{
	// Mass Storage
	0x0101: "IDE interface",
	0x0104: "RAID bus controller",
	0x0106: "SATA controller",
	0x0107: "Serial Attached SCSI controller",
	0x0108: "Non-Volatile memory controller",
	// Network
	0x0200: "Ethernet controller",
	0x0280: "Network controller",
	// Display
	0x0300: "VGA compatible controller",
	0x0302: "3D controller",
	// Multimedia
	0x0400: "Multimedia video controller",
	0x0401: "Multimedia audio controller",
	0x0403: "Audio device",
	// Memory
	0x0500: "RAM memory",
	0x0580: "Memory controller",
	// Bridge
	0x0600: "Host bridge",
	0x0601: "ISA bridge",
	0x0604: "PCI bridge",
	0x0680: "Bridge",
	// Communication
	0x0700: "Serial controller",
	0x0780: "Communication controller",
	// System Peripheral
	0x0800: "PIC",
	0x0880: "System peripheral",
	// Serial Bus
	0x0C03: "USB controller",
	0x0C05: "SMBus",
	// Wireless
	0x0D00: "IRDA controller",
	0x0D11: "Bluetooth",
	0x0D80: "Wireless controller",
	// Signal Processing
	0x1180: "Signal processing controller",
	// Processing Accelerator
	0x1200: "Processing accelerator",
}

// baseClassNames maps base_class to a fallback human-readable name.
var baseClassNames = map[uint8]string{
	0x00: "Unclassified device",
	0x01: "Mass storage controller",
	0x02: "Network controller",
	0x03: "Display controller",
	0x04: "Multimedia controller",
	0x05: "Memory controller",
	0x06: "Bridge",
	0x07: "Communication controller",
	0x08: "System peripheral",
	0x09: "Input device controller",
	0x0A: "Docking station",
	0x0B: "Processor",
	0x0C: "Serial bus controller",
	0x0D: "Wireless controller",
	0x0E: "Intelligent controller",
	0x0F: "Satellite communication controller",
	0x10: "Encryption controller",
	0x11: "Signal processing controller",
	0x12: "Processing accelerator",
	0xFF: "Unassigned class",
}

// ClassDescription returns a human-readable class description in lspci
// style for a base/sub class pair.
func ClassDescription(baseClass, subClass uint8) string {
	key := uint16(baseClass)<<8 | uint16(subClass)
	if name, ok := subClassNames[key]; ok {
		return name
	}
	if name, ok := baseClassNames[baseClass]; ok {
		return name
	}
	return fmt.Sprintf("Class [%02x%02x]", baseClass, subClass)
}

// IDDB holds vendor and device name mappings parsed from a pci.ids file.
type IDDB struct {
	Vendors map[uint16]string // vendor ID -> name
	Devices map[uint32]string // (vendor<<16 | device) -> name
}

// pci.ids search paths (same as lspci)
var idPaths = []string{
	"/usr/share/hwdata/pci.ids",
	"/usr/share/misc/pci.ids",
	"/usr/share/pci.ids",
}

// LoadIDDB loads the PCI ID database from the first readable system
// location. A missing database is not an error; lookups on the returned
// empty database fall back to hex IDs.
func LoadIDDB() *IDDB {
	for _, path := range idPaths {
		db, err := ParseIDFile(path)
		if err == nil {
			return db
		}
	}
	return &IDDB{
		Vendors: make(map[uint16]string),
		Devices: make(map[uint32]string),
	}
}

// VendorName returns the vendor name, or "" if unknown.
func (db *IDDB) VendorName(vendorID uint16) string {
	return db.Vendors[vendorID]
}

// DeviceName returns the device name, or "" if unknown.
func (db *IDDB) DeviceName(vendorID, deviceID uint16) string {
	return db.Devices[uint32(vendorID)<<16|uint32(deviceID)]
}

// ParseIDFile parses a pci.ids file.
// Format:
//
//	VVVV  Vendor Name
//	\tDDDD  Device Name
func ParseIDFile(path string) (*IDDB, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	db := &IDDB{
		Vendors: make(map[uint16]string),
		Devices: make(map[uint32]string),
	}

	var currentVendor uint16
	scanner := bufio.NewScanner(f)

	for scanner.Scan() {
		line := scanner.Text()

		// skip comments and empty lines
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		// stop at class definitions
		if strings.HasPrefix(line, "C ") {
			break
		}

		switch {
		case strings.HasPrefix(line, "\t\t"):
			// subsystem line - skip
		case strings.HasPrefix(line, "\t"):
			// device line: \tDDDD  Device Name
			rest := line[1:]
			if len(rest) < 6 {
				continue
			}
			devID, err := strconv.ParseUint(rest[:4], 16, 16)
			if err != nil {
				continue
			}
			key := uint32(currentVendor)<<16 | uint32(devID)
			db.Devices[key] = strings.TrimSpace(rest[4:])
		default:
			// vendor line: VVVV  Vendor Name
			if len(line) < 6 {
				continue
			}
			vid, err := strconv.ParseUint(line[:4], 16, 16)
			if err != nil {
				continue
			}
			currentVendor = uint16(vid)
			db.Vendors[currentVendor] = strings.TrimSpace(line[4:])
		}
	}

	return db, scanner.Err()
}
