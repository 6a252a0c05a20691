// Package snapshot persists a scanned PCI topology as JSON and replays
// it through the emulated config space backend, so a topology captured
// on one machine can be inspected and rescanned anywhere.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sercanarga/pcitree/internal/pci"
)

// Snapshot holds every function discovered by one topology scan.
type Snapshot struct {
	CapturedAt  time.Time      `json:"captured_at"`
	ToolVersion string         `json:"tool_version"`
	Hostname    string         `json:"hostname"`
	Segment     uint16         `json:"segment"`
	Devices     []DeviceRecord `json:"devices"`
}

// DeviceRecord preserves one function: the raw config space plus the
// BARs and capabilities decoded during the scan.
type DeviceRecord struct {
	Location        string
	Config          *pci.ConfigSpace
	BARs            []pci.BAR
	Capabilities    pci.CapabilityList
	ExtCapabilities []pci.ExtCapability
}

// deviceRecordJSON carries the config space as hex words.
type deviceRecordJSON struct {
	Location        string              `json:"location"`
	ConfigHex       []string            `json:"config_hex"`
	ConfigSize      int                 `json:"config_size"`
	BARs            []pci.BAR           `json:"bars"`
	Capabilities    pci.CapabilityList  `json:"capabilities,omitempty"`
	ExtCapabilities []pci.ExtCapability `json:"ext_capabilities,omitempty"`
}

// MarshalJSON implements custom JSON marshaling for DeviceRecord.
func (r *DeviceRecord) MarshalJSON() ([]byte, error) {
	j := deviceRecordJSON{
		Location:        r.Location,
		BARs:            r.BARs,
		Capabilities:    r.Capabilities,
		ExtCapabilities: r.ExtCapabilities,
	}

	if r.Config != nil {
		j.ConfigSize = r.Config.Size
		for i := 0; i < r.Config.Size; i += 4 {
			word := r.Config.ReadU32(i)
			j.ConfigHex = append(j.ConfigHex, fmt.Sprintf("%08x", word))
		}
	}

	return json.Marshal(j)
}

// UnmarshalJSON implements custom JSON unmarshaling for DeviceRecord.
func (r *DeviceRecord) UnmarshalJSON(data []byte) error {
	var j deviceRecordJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}

	r.Location = j.Location
	r.BARs = j.BARs
	r.Capabilities = j.Capabilities
	r.ExtCapabilities = j.ExtCapabilities
	r.Config = nil

	// Reconstruct config space from hex words
	if len(j.ConfigHex) > 0 {
		r.Config = pci.NewConfigSpace()
		r.Config.Size = j.ConfigSize
		for i, hexWord := range j.ConfigHex {
			var word uint32
			fmt.Sscanf(hexWord, "%x", &word)
			r.Config.WriteU32(i*4, word)
		}
	}

	return nil
}

// ToJSON serializes the snapshot to indented JSON.
func (s *Snapshot) ToJSON() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// FromJSON deserializes a snapshot from JSON.
func FromJSON(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot JSON: %w", err)
	}
	return &s, nil
}

// Save writes a snapshot to a JSON file.
func Save(s *Snapshot, path string) error {
	data, err := s.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Load reads a snapshot from a JSON file.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}
	return FromJSON(data)
}
