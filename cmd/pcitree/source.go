package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sercanarga/pcitree/internal/config"
	"github.com/sercanarga/pcitree/internal/emu"
	"github.com/sercanarga/pcitree/internal/hostpci"
	"github.com/sercanarga/pcitree/internal/logger"
	"github.com/sercanarga/pcitree/internal/pci"
	"github.com/sercanarga/pcitree/internal/snapshot"
	"github.com/sercanarga/pcitree/internal/topo"
)

var (
	flagConfig    string
	flagLogLevel  string
	flagPreset    string
	flagFixture   string
	flagSnapshot  string
	flagHost      bool
	flagTransport string
	flagSegment   uint16
)

// cfg is the configuration resolved for the current invocation.
var cfg *config.Config

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "YAML configuration file")
	pf.StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn or error")
	pf.StringVar(&flagPreset, "preset", "", "scan a built-in preset topology instead of the host")
	pf.StringVar(&flagFixture, "fixture", "", "scan a YAML fixture file instead of the host")
	pf.StringVar(&flagSnapshot, "snapshot", "", "scan a captured snapshot file instead of the host")
	pf.BoolVar(&flagHost, "host", false, "scan the running host (the default source)")
	pf.StringVar(&flagTransport, "transport", "sysfs", "host transport: sysfs or port")
	pf.Uint16Var(&flagSegment, "segment", 0, "config space segment to scan (0 scans every sysfs segment)")
}

// resolveConfig merges the config file and command line flags; flags
// win.
func resolveConfig(cmd *cobra.Command) error {
	if flagConfig != "" {
		loaded, err := config.LoadConfig(flagConfig)
		if err != nil {
			return err
		}
		cfg = loaded
	} else {
		cfg = config.DefaultConfig()
	}

	sources := 0
	if flagPreset != "" {
		cfg.Backend = config.BackendPreset
		cfg.Preset = flagPreset
		sources++
	}
	if flagFixture != "" {
		cfg.Backend = config.BackendFixture
		cfg.Fixture = flagFixture
		sources++
	}
	if flagSnapshot != "" {
		cfg.Backend = config.BackendSnapshot
		cfg.Snapshot = flagSnapshot
		sources++
	}
	if sources > 1 {
		return fmt.Errorf("--preset, --fixture and --snapshot are mutually exclusive")
	}
	if flagHost {
		if sources > 0 {
			return fmt.Errorf("--host cannot be combined with --preset, --fixture or --snapshot")
		}
		cfg.Backend = config.BackendSysfs
	}

	if cmd.Flags().Changed("transport") {
		if sources > 0 {
			return fmt.Errorf("--transport only applies to host scans")
		}
		switch flagTransport {
		case "sysfs":
			cfg.Backend = config.BackendSysfs
		case "port":
			cfg.Backend = config.BackendPortIO
		default:
			return fmt.Errorf("unknown transport %q, use sysfs or port", flagTransport)
		}
	}
	if cmd.Flags().Changed("segment") {
		cfg.Segment = flagSegment
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}

	if cfg.LogLevel != "" {
		if err := logger.SetLevelFromString(cfg.LogLevel); err != nil {
			return err
		}
	}
	return cfg.Validate()
}

// source is a resolved config space backend plus the segments to scan.
type source struct {
	acc      pci.ConfigAccessor
	segments []uint16
	closer   func() error
}

func (s *source) Close() error {
	if s.closer != nil {
		return s.closer()
	}
	return nil
}

// openSource builds the accessor the configuration selects.
func openSource() (*source, error) {
	switch cfg.Backend {
	case config.BackendPreset:
		p, err := emu.Find(cfg.Preset)
		if err != nil {
			return nil, err
		}
		space, err := p.Build()
		if err != nil {
			return nil, fmt.Errorf("failed to build preset %s: %w", p.Name, err)
		}
		return &source{acc: space, segments: []uint16{cfg.Segment}}, nil

	case config.BackendFixture:
		space, err := emu.LoadFixture(cfg.Fixture)
		if err != nil {
			return nil, err
		}
		return &source{acc: space, segments: []uint16{cfg.Segment}}, nil

	case config.BackendSnapshot:
		snap, err := snapshot.Load(cfg.Snapshot)
		if err != nil {
			return nil, err
		}
		space, err := snapshot.Replay(snap)
		if err != nil {
			return nil, err
		}
		seg := snap.Segment
		if cfg.Segment != 0 {
			seg = cfg.Segment
		}
		return &source{acc: space, segments: []uint16{seg}}, nil

	case config.BackendPortIO:
		acc, err := hostpci.NewPortIOAccessor()
		if err != nil {
			return nil, err
		}
		return &source{acc: acc, segments: []uint16{0}, closer: acc.Close}, nil

	default:
		acc, err := hostpci.NewSysfsAccessor()
		if err != nil {
			return nil, err
		}
		if cfg.Segment != 0 {
			return &source{acc: acc, segments: []uint16{cfg.Segment}}, nil
		}
		segments, err := acc.Segments()
		if err != nil {
			return nil, fmt.Errorf("failed to list segments: %w", err)
		}
		if len(segments) == 0 {
			segments = []uint16{0}
		}
		return &source{acc: acc, segments: segments}, nil
	}
}

// scanSource scans every selected segment, one manager per segment.
func scanSource(src *source) ([]*topo.Manager, error) {
	var managers []*topo.Manager
	for _, seg := range src.segments {
		m := topo.NewManager(src.acc)
		if err := m.Scan(seg); err != nil {
			return nil, err
		}
		managers = append(managers, m)
	}
	return managers, nil
}

func countDevices(m *topo.Manager) int {
	n := 0
	m.VisitDevices(func(topo.Device) bool { n++; return true })
	return n
}

func hostBackend() bool {
	return cfg.Backend == config.BackendSysfs || cfg.Backend == config.BackendPortIO
}

func locationLess(a, b pci.Location) bool {
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
}
