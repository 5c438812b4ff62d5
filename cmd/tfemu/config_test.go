package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tfemu.yaml")
	content := `
transport: serial
device: /dev/ttyUSB0
baud: 115200
stations: /etc/tfemu/stations.json
hostmode: true
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if cfg.Transport != "serial" {
		t.Errorf("Transport = %q, want serial", cfg.Transport)
	}
	if cfg.Device != "/dev/ttyUSB0" {
		t.Errorf("Device = %q, want /dev/ttyUSB0", cfg.Device)
	}
	if cfg.Baud != 115200 {
		t.Errorf("Baud = %d, want 115200", cfg.Baud)
	}
	if !cfg.HostMode {
		t.Error("HostMode = false, want true")
	}

	// Keys absent from the file keep their defaults
	if cfg.Listen != "127.0.0.1:8010" {
		t.Errorf("Listen = %q, want default", cfg.Listen)
	}
	if cfg.Channels != 4 {
		t.Errorf("Channels = %d, want default 4", cfg.Channels)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("missing file should fail")
	}

	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("transport: [oops"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := loadConfig(path); err == nil {
		t.Error("invalid YAML should fail")
	}
}
