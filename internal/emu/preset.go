package emu

import (
	"fmt"
	"strings"

	"github.com/sercanarga/pcitree/internal/pci"
)

// Preset is a named, self-contained sample topology. Presets drive the
// CLI without hardware access and double as scan test beds.
type Preset struct {
	Name        string
	Description string
	Build       func() (*Space, error)
}

// registry holds all built-in presets.
var registry = []Preset{
	// ─── desktop ───────────────────────────────────────────────
	{
		Name:        "desktop",
		Description: "single root bus, one bridge, devices with io/mem32/mem64 BARs",
		Build:       buildDesktop,
	},

	// ─── nested ────────────────────────────────────────────────
	{
		Name:        "nested",
		Description: "three bridges deep, windows on every level",
		Build:       buildNested,
	},

	// ─── multifunction ─────────────────────────────────────────
	{
		Name:        "multifunction",
		Description: "multi-function devices and the function scan rules",
		Build:       buildMultifunction,
	},

	// ─── leafbridge ────────────────────────────────────────────
	{
		Name:        "leafbridge",
		Description: "bridges left unconfigured by firmware, no downstream bus",
		Build:       buildLeafBridge,
	},

	// ─── looped ────────────────────────────────────────────────
	{
		Name:        "looped",
		Description: "a bridge aliasing an already scanned bus number",
		Build:       buildLooped,
	},
}

// Find looks up a preset by name (case-insensitive).
func Find(name string) (*Preset, error) {
	lower := strings.ToLower(name)
	for i := range registry {
		if strings.ToLower(registry[i].Name) == lower {
			return &registry[i], nil
		}
	}
	return nil, fmt.Errorf("unknown preset %q, available presets:\n%s",
		name, formatPresetList())
}

// formatPresetList returns a formatted list of presets for error messages.
func formatPresetList() string {
	var sb strings.Builder
	for _, p := range registry {
		sb.WriteString(fmt.Sprintf("  %-15s %s\n", p.Name, p.Description))
	}
	return sb.String()
}

// ListNames returns all preset names.
func ListNames() []string {
	names := make([]string, len(registry))
	for i, p := range registry {
		names[i] = p.Name
	}
	return names
}

// All returns all registered presets.
func All() []Preset {
	result := make([]Preset, len(registry))
	copy(result, registry)
	return result
}

func loc(bus, device, function uint8) pci.Location {
	return pci.Location{Bus: bus, Device: device, Function: function}
}

func buildDesktop() (*Space, error) {
	s := NewSpace()

	steps := []error{
		s.AddEndpoint(loc(0, 0, 0), EndpointDef{
			Vendor: 0x8086, Device: 0x1237, Class: 0x060000, Revision: 0x02,
		}),
		s.AddEndpoint(loc(0, 1, 0), EndpointDef{
			Vendor: 0x1234, Device: 0x1111, Class: 0x030000,
			BARs: map[int]BARDef{
				0: {Kind: pci.BARTypeMem32, Address: 0xFD000000, Size: 0x1000000, Prefetchable: true},
				2: {Kind: pci.BARTypeMem32, Address: 0xFEBF0000, Size: 0x1000},
			},
		}),
		s.AddEndpoint(loc(0, 2, 0), EndpointDef{
			Vendor: 0x8086, Device: 0x1533, Class: 0x020000, Revision: 0x03,
			SubsysVendor: 0x8086, SubsysDevice: 0x0001,
			BARs: map[int]BARDef{
				0: {Kind: pci.BARTypeMem32, Address: 0xFEB80000, Size: 0x20000},
				2: {Kind: pci.BARTypeIO, Address: 0xE000, Size: 0x20},
			},
			Caps: []uint8{pci.CapIDPowerManagement, pci.CapIDMSI},
		}),
		s.AddBridge(loc(0, 0x1C, 0), BridgeDef{
			Vendor: 0x8086, Device: 0x244E,
			Secondary: 1, Subordinate: 1,
			IOBase: 0x10, IOLimit: 0x20,
			MemBase: 0xFE90, MemLimit: 0xFE90,
			PrefBase: 0x0011, PrefLimit: 0x0011,
			PrefBaseUpper: 0x1, PrefLimitUpper: 0x1,
		}),
		s.AddEndpoint(loc(1, 0, 0), EndpointDef{
			Vendor: 0x144D, Device: 0xA808, Class: 0x010802,
			BARs: map[int]BARDef{
				0: {Kind: pci.BARTypeMem64, Address: 0x100100000, Size: 0x4000, Prefetchable: true},
			},
			Caps: []uint8{pci.CapIDPowerManagement, pci.CapIDMSI, pci.CapIDPCIExpress},
		}),
	}

	for _, err := range steps {
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

func buildNested() (*Space, error) {
	s := NewSpace()

	steps := []error{
		s.AddEndpoint(loc(0, 0, 0), EndpointDef{
			Vendor: 0x8086, Device: 0x29C0, Class: 0x060000,
		}),
		s.AddBridge(loc(0, 1, 0), BridgeDef{
			Vendor: 0x8086, Device: 0x244E,
			Secondary: 1, Subordinate: 3,
			IOBase: 0x10, IOLimit: 0x20,
			MemBase: 0x0010, MemLimit: 0x0010,
		}),
		s.AddBridge(loc(1, 0, 0), BridgeDef{
			Vendor: 0x10B5, Device: 0x8112,
			Primary: 1, Secondary: 2, Subordinate: 3,
			MemBase: 0x0010, MemLimit: 0x0010,
			PrefBase: 0x0011, PrefLimit: 0x0011,
			PrefBaseUpper: 0x1, PrefLimitUpper: 0x1,
		}),
		s.AddBridge(loc(2, 0, 0), BridgeDef{
			Vendor: 0x12D8, Device: 0x2304,
			Primary: 2, Secondary: 3, Subordinate: 3,
			MemBase: 0x0010, MemLimit: 0x0010,
		}),
		s.AddEndpoint(loc(3, 0, 0), EndpointDef{
			Vendor: 0x10DE, Device: 0x1C82, Class: 0x030000,
			BARs: map[int]BARDef{
				0: {Kind: pci.BARTypeMem32, Address: 0x100000, Size: 0x100000},
			},
			Caps: []uint8{pci.CapIDMSI, pci.CapIDPCIExpress},
		}),
	}

	for _, err := range steps {
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

func buildMultifunction() (*Space, error) {
	s := NewSpace()

	steps := []error{
		s.AddEndpoint(loc(0, 0, 0), EndpointDef{
			Vendor: 0x8086, Device: 0x29C0, Class: 0x060000,
		}),
		// Function 0 announces more functions; 1 and 2 are found.
		s.AddEndpoint(loc(0, 3, 0), EndpointDef{
			Vendor: 0x8086, Device: 0x2934, Class: 0x0C0300, Multifunction: true,
			BARs: map[int]BARDef{
				4: {Kind: pci.BARTypeIO, Address: 0xC000, Size: 0x20},
			},
		}),
		s.AddEndpoint(loc(0, 3, 1), EndpointDef{
			Vendor: 0x8086, Device: 0x2935, Class: 0x0C0300,
			BARs: map[int]BARDef{
				4: {Kind: pci.BARTypeIO, Address: 0xC020, Size: 0x20},
			},
		}),
		s.AddEndpoint(loc(0, 3, 2), EndpointDef{
			Vendor: 0x8086, Device: 0x293A, Class: 0x0C0320,
			BARs: map[int]BARDef{
				0: {Kind: pci.BARTypeMem32, Address: 0xFEB7C000, Size: 0x400},
			},
		}),
		// Function 0 does not announce more functions, so function 1
		// exists in the fixture but is never discovered.
		s.AddEndpoint(loc(0, 5, 0), EndpointDef{
			Vendor: 0x8086, Device: 0x2668, Class: 0x040300,
			BARs: map[int]BARDef{
				0: {Kind: pci.BARTypeMem32, Address: 0xFEB78000, Size: 0x4000},
			},
		}),
		s.AddEndpoint(loc(0, 5, 1), EndpointDef{
			Vendor: 0x8086, Device: 0x2669, Class: 0x040100,
		}),
	}

	for _, err := range steps {
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

func buildLeafBridge() (*Space, error) {
	s := NewSpace()

	steps := []error{
		s.AddEndpoint(loc(0, 0, 0), EndpointDef{
			Vendor: 0x8086, Device: 0x1237, Class: 0x060000,
		}),
		// Secondary zero: firmware never assigned a downstream bus.
		s.AddBridge(loc(0, 2, 0), BridgeDef{
			Vendor: 0x8086, Device: 0x244E,
		}),
		// Subordinate below secondary: window is nonsense, also a leaf.
		s.AddBridge(loc(0, 3, 0), BridgeDef{
			Vendor: 0x10B5, Device: 0x8112,
			Secondary: 5, Subordinate: 2,
		}),
	}

	for _, err := range steps {
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

func buildLooped() (*Space, error) {
	s := NewSpace()

	steps := []error{
		s.AddEndpoint(loc(0, 0, 0), EndpointDef{
			Vendor: 0x8086, Device: 0x1237, Class: 0x060000,
		}),
		s.AddBridge(loc(0, 2, 0), BridgeDef{
			Vendor: 0x8086, Device: 0x244E,
			Secondary: 1, Subordinate: 2,
		}),
		// Claims bus 1 again; the scan must refuse to re-enter it.
		s.AddBridge(loc(1, 0, 0), BridgeDef{
			Vendor: 0x10B5, Device: 0x8112,
			Primary: 1, Secondary: 1, Subordinate: 1,
		}),
	}

	for _, err := range steps {
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}
