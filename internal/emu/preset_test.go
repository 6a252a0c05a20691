package emu

import (
	"testing"

	"github.com/sercanarga/pcitree/internal/pci"
)

func TestFindPreset(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"desktop", "desktop", false},
		{"DESKTOP", "desktop", false},
		{"Desktop", "desktop", false},
		{"nested", "nested", false},
		{"multifunction", "multifunction", false},
		{"leafbridge", "leafbridge", false},
		{"looped", "looped", false},
		{"nonexistent", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Find(tt.name)
			if (err != nil) != tt.wantErr {
				t.Errorf("Find(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
				return
			}
			if !tt.wantErr && p.Name != tt.want {
				t.Errorf("Find(%q).Name = %q, want %q", tt.name, p.Name, tt.want)
			}
		})
	}
}

func TestAllPresetsBuild(t *testing.T) {
	for _, p := range All() {
		t.Run(p.Name, func(t *testing.T) {
			s, err := p.Build()
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if len(s.Locations()) == 0 {
				t.Error("Build() produced an empty space")
			}
			// Every preset roots at 00:00.0.
			if s.Device(pci.Location{}) == nil {
				t.Error("no device at 0000:00:00.0")
			}
		})
	}
}

func TestListPresetNames(t *testing.T) {
	names := ListNames()
	if len(names) != len(All()) {
		t.Errorf("ListNames() returned %d names, want %d", len(names), len(All()))
	}

	found := make(map[string]bool)
	for _, n := range names {
		found[n] = true
	}
	for _, want := range []string{"desktop", "nested", "multifunction", "leafbridge", "looped"} {
		if !found[want] {
			t.Errorf("ListNames() missing %q", want)
		}
	}
}

func TestDesktopPresetContents(t *testing.T) {
	s, err := buildDesktop()
	if err != nil {
		t.Fatal(err)
	}

	nic := s.Device(loc(0, 2, 0))
	if nic == nil {
		t.Fatal("no device at 00:02.0")
	}
	if got := nic.Config.VendorID(); got != 0x8086 {
		t.Errorf("NIC vendor = %#04x, want 0x8086", got)
	}
	if got := nic.Config.BaseClass(); got != 0x02 {
		t.Errorf("NIC base class = %#02x, want 0x02", got)
	}

	br := s.Device(loc(0, 0x1C, 0))
	if br == nil {
		t.Fatal("no device at 00:1c.0")
	}
	if got := br.Config.HeaderLayout(); got != pci.HeaderLayoutBridge {
		t.Errorf("bridge header layout = %d, want %d", got, pci.HeaderLayoutBridge)
	}
	if got := br.Config.SecondaryBus(); got != 1 {
		t.Errorf("bridge secondary = %d, want 1", got)
	}

	nvme := s.Device(loc(1, 0, 0))
	if nvme == nil {
		t.Fatal("no device at 01:00.0")
	}
	caps := pci.ParseCapabilities(nvme.Config)
	if !caps.Has(pci.CapIDPCIExpress) {
		t.Error("NVMe device should carry a PCI Express capability")
	}
}

func TestNestedPresetBridgeChain(t *testing.T) {
	s, err := buildNested()
	if err != nil {
		t.Fatal(err)
	}

	// Each bridge hands off to the next bus down.
	chain := []struct {
		at        pci.Location
		secondary uint8
	}{
		{loc(0, 1, 0), 1},
		{loc(1, 0, 0), 2},
		{loc(2, 0, 0), 3},
	}
	for _, c := range chain {
		d := s.Device(c.at)
		if d == nil {
			t.Fatalf("no bridge at %s", c.at)
		}
		if got := d.Config.SecondaryBus(); got != c.secondary {
			t.Errorf("bridge %s secondary = %d, want %d", c.at, got, c.secondary)
		}
	}

	gpu := s.Device(loc(3, 0, 0))
	if gpu == nil {
		t.Fatal("no device at 03:00.0")
	}
	if got := gpu.Config.VendorID(); got != 0x10DE {
		t.Errorf("GPU vendor = %#04x, want 0x10de", got)
	}
}
