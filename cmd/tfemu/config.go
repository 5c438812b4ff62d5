package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the daemon configuration. Flags override file values.
type Config struct {
	// Transport selects how the legacy client is reached:
	// tcp, serial, pty, file or quic.
	Transport string `yaml:"transport"`
	Listen    string `yaml:"listen"` // tcp/quic listen address
	Device    string `yaml:"device"` // serial/file device path
	Baud      int    `yaml:"baud"`   // serial baud rate

	Stations string `yaml:"stations"` // stations JSON file
	Channels int    `yaml:"channels"` // channel count N
	HostMode bool   `yaml:"hostmode"` // start in host mode

	HTTP string `yaml:"http"` // optional status endpoint address
}

// defaultConfig mirrors the original emulator's defaults
func defaultConfig() Config {
	return Config{
		Transport: "tcp",
		Listen:    "127.0.0.1:8010",
		Baud:      9600,
		Stations:  "stations.json",
		Channels:  4,
	}
}

// loadConfig reads a YAML config file over the defaults
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}
