package snapshot

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sercanarga/pcitree/internal/emu"
	"github.com/sercanarga/pcitree/internal/pci"
	"github.com/sercanarga/pcitree/internal/topo"
	"github.com/sercanarga/pcitree/internal/version"
)

// Capture records every function the manager discovered in its last
// scan. The records keep their own config space copies, so later scans
// do not disturb a captured snapshot.
func Capture(m *topo.Manager) (*Snapshot, error) {
	root := m.Root()
	if root == nil {
		return nil, errors.New("no scan results to capture")
	}

	snap := &Snapshot{
		CapturedAt:  time.Now(),
		ToolVersion: version.Version,
		Segment:     root.Segment(),
	}

	hostname, _ := os.Hostname()
	snap.Hostname = hostname

	m.VisitDevices(func(d topo.Device) bool {
		cfg := d.Config().Clone()
		snap.Devices = append(snap.Devices, DeviceRecord{
			Location:        d.Location().String(),
			Config:          cfg,
			BARs:            d.BARs(),
			Capabilities:    d.Capabilities(),
			ExtCapabilities: pci.ParseExtCapabilities(cfg),
		})
		return true
	})

	return snap, nil
}

// Replay rebuilds an emulated config space holding the snapshot's
// devices. Rescanning it reproduces the captured topology, BAR sizing
// included, because each device carries the writable-bit masks derived
// from its recorded regions.
func Replay(snap *Snapshot) (*emu.Space, error) {
	space := emu.NewSpace()

	for i := range snap.Devices {
		r := &snap.Devices[i]
		loc, err := pci.ParseLocation(r.Location)
		if err != nil {
			return nil, fmt.Errorf("device %d: %w", i, err)
		}
		if r.Config == nil {
			return nil, fmt.Errorf("device %s has no config space", r.Location)
		}

		dev := &emu.Device{
			Config:   r.Config.Clone(),
			BARMasks: emu.MasksForBARs(r.BARs),
		}
		if err := space.Add(loc, dev); err != nil {
			return nil, err
		}
	}

	return space, nil
}
