// Package config loads the optional dreamops host configuration.
//
// Everything has a built-in default; a config file only overrides
// host-specific details (ports, paths, calibration thresholds).
// YAML is coerced to JSON so one strict decoder serves both formats.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "go.yaml.in/yaml/v3"
)

const DefaultPath = "/etc/dreambot/dreamops.yaml"

type Config struct {
	Probe   ProbeConfig   `json:"probe"`
	Install InstallConfig `json:"install"`
	Status  StatusConfig  `json:"status"`
	Logging LoggingConfig `json:"logging"`
}

type ProbeConfig struct {
	// DashboardPort is the only HTTP health surface in the fleet.
	DashboardPort int `json:"dashboard_port"`

	// Timeout is a Go duration string (e.g. "1s", "500ms").
	Timeout string `json:"timeout,omitempty"`
}

type InstallConfig struct {
	SecretPath  string `json:"secret_path,omitempty"`
	ServicePath string `json:"service_path,omitempty"`
	TimerPath   string `json:"timer_path,omitempty"`

	Symbols      []string `json:"symbols,omitempty"`
	LookbackDays int      `json:"lookback_days,omitempty"`
	MinWinRate   float64  `json:"min_win_rate,omitempty"`
	MinTrades    int      `json:"min_trades,omitempty"`
}

type StatusConfig struct {
	Artifact string `json:"artifact,omitempty"`
	History  string `json:"history,omitempty"`
}

type LoggingConfig struct {
	Level   string         `json:"level,omitempty"`
	Console bool           `json:"console"`
	File    FileLogSection `json:"file,omitempty"`
}

type FileLogSection struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

func Default() *Config {
	return &Config{
		Probe: ProbeConfig{
			DashboardPort: 8501,
			Timeout:       "1s",
		},
		Status: StatusConfig{
			Artifact: "backtests/calibration.json",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
		},
	}
}

// Load reads the config at path on top of the defaults. When required
// is false (the implicit default path), a missing file is fine.
func Load(path string, required bool) (*Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return cfg, nil
		}
		return nil, err
	}

	jb, err := coerceToJSON(path, b)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Probe.DashboardPort <= 0 || c.Probe.DashboardPort > 65535 {
		return fmt.Errorf("probe.dashboard_port %d out of range", c.Probe.DashboardPort)
	}
	if _, err := c.ProbeTimeout(); err != nil {
		return err
	}
	if c.Install.MinWinRate < 0 || c.Install.MinWinRate > 1 {
		return fmt.Errorf("install.min_win_rate %v out of range", c.Install.MinWinRate)
	}
	return nil
}

// coerceToJSON converts YAML config to JSON bytes so the strict JSON
// decoder (DisallowUnknownFields) serves both formats.
//
// The config surface is flat string-keyed mappings, which yaml/v3
// already decodes as map[string]any; the value round-trips through
// encoding/json directly.
func coerceToJSON(path string, data []byte) ([]byte, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return data, nil
	}

	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("yaml unmarshal: %w", err)
	}
	j, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("yaml->json marshal: %w", err)
	}
	return j, nil
}

// ProbeTimeout parses the probe timeout duration string.
func (c *Config) ProbeTimeout() (time.Duration, error) {
	if c.Probe.Timeout == "" {
		return time.Second, nil
	}
	d, err := time.ParseDuration(c.Probe.Timeout)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("probe.timeout %q invalid", c.Probe.Timeout)
	}
	return d, nil
}
