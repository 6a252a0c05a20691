package emu

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sercanarga/pcitree/internal/pci"
)

// fixtureFile is the YAML schema for declared topologies. Numeric
// fields accept hex literals; unknown keys are rejected.
type fixtureFile struct {
	Devices []fixtureEntry `yaml:"devices"`
}

// fixtureEntry places one function. Exactly one of endpoint or bridge
// must be set.
type fixtureEntry struct {
	Location string        `yaml:"location"`
	Endpoint *endpointYAML `yaml:"endpoint"`
	Bridge   *bridgeYAML   `yaml:"bridge"`
}

type barYAML struct {
	Slot         int    `yaml:"slot"`
	Kind         string `yaml:"kind"`
	Address      uint64 `yaml:"address"`
	Size         uint64 `yaml:"size"`
	Prefetchable bool   `yaml:"prefetchable"`
}

type endpointYAML struct {
	Vendor        uint16    `yaml:"vendor"`
	Device        uint16    `yaml:"device"`
	Class         uint32    `yaml:"class"`
	Revision      uint8     `yaml:"revision"`
	Multifunction bool      `yaml:"multifunction"`
	SubsysVendor  uint16    `yaml:"subsys_vendor"`
	SubsysDevice  uint16    `yaml:"subsys_device"`
	BARs          []barYAML `yaml:"bars"`
	Caps          []uint8   `yaml:"caps"`
}

type bridgeYAML struct {
	Vendor        uint16 `yaml:"vendor"`
	Device        uint16 `yaml:"device"`
	Multifunction bool   `yaml:"multifunction"`

	Primary     uint8 `yaml:"primary"`
	Secondary   uint8 `yaml:"secondary"`
	Subordinate uint8 `yaml:"subordinate"`

	IOBase  uint8 `yaml:"io_base"`
	IOLimit uint8 `yaml:"io_limit"`

	MemBase  uint16 `yaml:"mem_base"`
	MemLimit uint16 `yaml:"mem_limit"`

	PrefBase       uint16 `yaml:"pref_base"`
	PrefLimit      uint16 `yaml:"pref_limit"`
	PrefBaseUpper  uint32 `yaml:"pref_base_upper"`
	PrefLimitUpper uint32 `yaml:"pref_limit_upper"`

	BARs []barYAML `yaml:"bars"`
	Caps []uint8   `yaml:"caps"`
}

// LoadFixture compiles a YAML topology file into a Space.
func LoadFixture(path string) (*Space, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %v", err)
	}
	return ParseFixture(data)
}

// ParseFixture compiles YAML topology bytes into a Space. An empty
// document yields an empty segment.
func ParseFixture(data []byte) (*Space, error) {
	var f fixtureFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse fixture: %v", err)
	}

	s := NewSpace()
	for i, e := range f.Devices {
		loc, err := pci.ParseLocation(e.Location)
		if err != nil {
			return nil, fmt.Errorf("device %d: %w", i, err)
		}

		switch {
		case e.Endpoint != nil && e.Bridge != nil:
			return nil, fmt.Errorf("device %s declares both endpoint and bridge", e.Location)
		case e.Endpoint != nil:
			def, derr := e.Endpoint.def()
			if derr != nil {
				return nil, fmt.Errorf("device %s: %w", e.Location, derr)
			}
			err = s.AddEndpoint(loc, def)
		case e.Bridge != nil:
			def, derr := e.Bridge.def()
			if derr != nil {
				return nil, fmt.Errorf("device %s: %w", e.Location, derr)
			}
			err = s.AddBridge(loc, def)
		default:
			return nil, fmt.Errorf("device %s declares neither endpoint nor bridge", e.Location)
		}
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (e *endpointYAML) def() (EndpointDef, error) {
	bars, err := yamlBARs(e.BARs)
	if err != nil {
		return EndpointDef{}, err
	}
	return EndpointDef{
		Vendor:        e.Vendor,
		Device:        e.Device,
		Class:         e.Class,
		Revision:      e.Revision,
		Multifunction: e.Multifunction,
		SubsysVendor:  e.SubsysVendor,
		SubsysDevice:  e.SubsysDevice,
		BARs:          bars,
		Caps:          e.Caps,
	}, nil
}

func (b *bridgeYAML) def() (BridgeDef, error) {
	bars, err := yamlBARs(b.BARs)
	if err != nil {
		return BridgeDef{}, err
	}
	return BridgeDef{
		Vendor:         b.Vendor,
		Device:         b.Device,
		Multifunction:  b.Multifunction,
		Primary:        b.Primary,
		Secondary:      b.Secondary,
		Subordinate:    b.Subordinate,
		IOBase:         b.IOBase,
		IOLimit:        b.IOLimit,
		MemBase:        b.MemBase,
		MemLimit:       b.MemLimit,
		PrefBase:       b.PrefBase,
		PrefLimit:      b.PrefLimit,
		PrefBaseUpper:  b.PrefBaseUpper,
		PrefLimitUpper: b.PrefLimitUpper,
		BARs:           bars,
		Caps:           b.Caps,
	}, nil
}

func yamlBARs(bars []barYAML) (map[int]BARDef, error) {
	if len(bars) == 0 {
		return nil, nil
	}
	m := make(map[int]BARDef, len(bars))
	for _, b := range bars {
		if _, dup := m[b.Slot]; dup {
			return nil, fmt.Errorf("BAR slot %d declared twice", b.Slot)
		}
		m[b.Slot] = BARDef{
			Kind:         b.Kind,
			Address:      b.Address,
			Size:         b.Size,
			Prefetchable: b.Prefetchable,
		}
	}
	return m, nil
}
