package topo

import (
	"errors"
	"fmt"

	"github.com/sercanarga/pcitree/internal/logger"
	"github.com/sercanarga/pcitree/internal/pci"
)

// errSlotEmpty marks a probe that found nothing to keep: an all-ones
// vendor id, an unreadable vendor id, or a header layout we do not
// decode.
var errSlotEmpty = errors.New("slot empty")

// maxBusDepth caps bridge nesting. Bus numbers are 8 bit, so a deeper
// chain necessarily repeats a number.
const maxBusDepth = 256

// scanner holds the state of one scan pass.
type scanner struct {
	acc      pci.ConfigAccessor
	maxDepth int
	visited  map[uint8]bool
	buses    []*Bus
}

func newScanner(acc pci.ConfigAccessor, maxDepth int) *scanner {
	return &scanner{
		acc:      acc,
		maxDepth: maxDepth,
		visited:  make(map[uint8]bool),
	}
}

// scanBus walks all 32 device slots and up to 8 functions each,
// collecting everything that answers. The bus is marked visited on
// entry so that no bridge below it can alias back into it while it is
// still being scanned.
func (s *scanner) scanBus(loc pci.Location, upstream *Bridge, depth int) (*Bus, error) {
	if depth >= s.maxDepth {
		return nil, fmt.Errorf("bus %d: nesting depth %d reached", loc.Bus, depth)
	}
	if s.visited[loc.Bus] {
		return nil, fmt.Errorf("bus %d already scanned", loc.Bus)
	}
	s.visited[loc.Bus] = true

	b := &Bus{loc: loc, bridge: upstream}

	for dev := uint8(0); dev < 32; dev++ {
		for fn := uint8(0); fn < 8; fn++ {
			floc := loc
			floc.Device = dev
			floc.Function = fn

			d, multifunction, err := s.probeFunction(floc, b, depth)
			if err != nil {
				if !errors.Is(err, errSlotEmpty) {
					logger.WithError(err).WithField("location", floc.String()).
						Warn("dropping function")
				}
				break
			}
			b.devices = append(b.devices, d)

			if fn == 0 && !multifunction {
				break
			}
		}
	}

	return b, nil
}

// probeFunction examines a single function. It returns errSlotEmpty
// when nothing usable is there, and a real error when the function
// answered its vendor id but a later access failed; in that case the
// partially read function is discarded by the caller.
func (s *scanner) probeFunction(loc pci.Location, parent *Bus, depth int) (Device, bool, error) {
	vendor, err := s.acc.ReadU16(loc, pci.RegVendorID)
	if err != nil || vendor == pci.InvalidVendorID {
		return nil, false, errSlotEmpty
	}

	baseClass, err := s.acc.ReadU8(loc, pci.RegBaseClass)
	if err != nil {
		return nil, false, fmt.Errorf("reading class code: %w", err)
	}
	subClass, err := s.acc.ReadU8(loc, pci.RegSubClass)
	if err != nil {
		return nil, false, fmt.Errorf("reading class code: %w", err)
	}
	header, err := s.acc.ReadU8(loc, pci.RegHeaderType)
	if err != nil {
		return nil, false, fmt.Errorf("reading header type: %w", err)
	}

	multifunction := loc.Function == 0 && header&0x80 != 0

	if baseClass == pci.BaseClassBridge && subClass == pci.SubClassPCIBridge {
		br, err := s.probeBridge(loc, parent, depth)
		if err != nil {
			return nil, false, err
		}
		br.bars = s.sizeBARs(loc, br.cfg)
		// Bridges end the function walk even when their header
		// announces more functions.
		return br, false, nil
	}

	if header&0x7F != pci.HeaderLayoutEndpoint {
		logger.WithFields(logger.Fields{
			"location": loc.String(),
			"layout":   header & 0x7F,
		}).Debug("skipping unhandled header layout")
		return nil, false, errSlotEmpty
	}

	cfg, err := s.acc.ReadSpace(loc)
	if err != nil {
		return nil, false, fmt.Errorf("reading config space: %w", err)
	}

	ep := &Endpoint{device: device{loc: loc, bus: parent, cfg: cfg}}
	ep.bars = s.sizeBARs(loc, cfg)
	ep.caps = pci.ParseCapabilities(cfg)

	return ep, multifunction, nil
}

// probeBridge reads a bridge function and, when firmware gave it a
// usable secondary bus, scans downstream. A failed downstream scan is
// logged and leaves the bridge in place as a leaf: the bridge itself
// answered and stays part of the topology.
func (s *scanner) probeBridge(loc pci.Location, parent *Bus, depth int) (*Bridge, error) {
	cfg, err := s.acc.ReadSpace(loc)
	if err != nil {
		return nil, fmt.Errorf("reading config space: %w", err)
	}

	if cfg.HeaderLayout() != pci.HeaderLayoutBridge {
		logger.WithFields(logger.Fields{
			"location": loc.String(),
			"layout":   cfg.HeaderLayout(),
		}).Warn("bridge class code with unexpected header layout")
	}

	br := &Bridge{device: device{loc: loc, bus: parent, cfg: cfg}}
	br.caps = pci.ParseCapabilities(cfg)

	secondary := cfg.SecondaryBus()
	if secondary > 0 && cfg.SubordinateBus() >= secondary {
		logger.WithFields(logger.Fields{
			"location":  loc.String(),
			"secondary": secondary,
		}).Debug("scanning downstream bus")

		child, err := s.scanBus(pci.Location{Segment: loc.Segment, Bus: secondary}, br, depth+1)
		if err != nil {
			logger.WithError(err).WithField("location", loc.String()).
				Warn("downstream scan failed, keeping bridge as leaf")
		} else {
			br.child = child
			s.buses = append(s.buses, child)
		}
	}

	return br, nil
}

// sizeBARs picks the sizing strategy for the accessor. Accessors that
// know BAR sizes out of band are preferred over write probing.
func (s *scanner) sizeBARs(loc pci.Location, cfg *pci.ConfigSpace) []pci.BAR {
	if sizer, ok := s.acc.(pci.BARSizer); ok {
		bars, err := sizer.SizeBARs(loc)
		if err == nil {
			return bars
		}
		logger.WithError(err).WithField("location", loc.String()).
			Warn("BAR sizing failed, keeping decoded addresses")
		return pci.ParseBARsFromConfigSpace(cfg)
	}
	return pci.ProbeBARs(s.acc, loc, cfg)
}
