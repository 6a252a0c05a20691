package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pcitree.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
log_level: debug
backend: preset
preset: desktop
`))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.Backend != BackendPreset || cfg.Preset != "desktop" {
		t.Errorf("LoadConfig() = %+v", cfg)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	// An empty file keeps the defaults.
	cfg, err := LoadConfig(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	def := DefaultConfig()
	if cfg.Backend != def.Backend || cfg.LogLevel != def.LogLevel {
		t.Errorf("LoadConfig() = %+v, want defaults %+v", cfg, def)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("LoadConfig() of absent file succeeded, want error")
	}
	if _, err := LoadConfig(writeConfig(t, "backend: [unclosed")); err == nil {
		t.Error("LoadConfig() of malformed yaml succeeded, want error")
	}
	if _, err := LoadConfig(writeConfig(t, "backend: preset")); err == nil {
		t.Error("LoadConfig() of contradictory config succeeded, want error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"sysfs", Config{Backend: BackendSysfs}, false},
		{"sysfs with segment", Config{Backend: BackendSysfs, Segment: 1}, false},
		{"portio", Config{Backend: BackendPortIO}, false},
		{"portio with segment", Config{Backend: BackendPortIO, Segment: 1}, true},
		{"preset", Config{Backend: BackendPreset, Preset: "desktop"}, false},
		{"preset unnamed", Config{Backend: BackendPreset}, true},
		{"fixture", Config{Backend: BackendFixture, Fixture: "topology.yaml"}, false},
		{"fixture without file", Config{Backend: BackendFixture}, true},
		{"snapshot", Config{Backend: BackendSnapshot, Snapshot: "topo.json"}, false},
		{"snapshot without file", Config{Backend: BackendSnapshot}, true},
		{"unset backend", Config{}, true},
		{"unknown backend", Config{Backend: "mmio"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
