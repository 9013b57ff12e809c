package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaultsWhenMissing(t *testing.T) {
	t.Parallel()
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), false)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Probe.DashboardPort != 8501 {
		t.Fatalf("DashboardPort = %d", cfg.Probe.DashboardPort)
	}
	if cfg.Status.Artifact != "backtests/calibration.json" {
		t.Fatalf("Artifact = %q", cfg.Status.Artifact)
	}
	d, err := cfg.ProbeTimeout()
	if err != nil || d != time.Second {
		t.Fatalf("ProbeTimeout = %v, %v", d, err)
	}
}

func TestLoadMissingRequiredFileFails(t *testing.T) {
	t.Parallel()
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), true); err == nil {
		t.Fatal("expected error for explicitly requested missing config")
	}
}

func TestLoadYAMLOverrides(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "dreamops.yaml", `
probe:
  dashboard_port: 9000
  timeout: 250ms
install:
  symbols: [SPY, QQQ]
  lookback_days: 30
status:
  artifact: /var/lib/dreambot/calibration.json
logging:
  level: debug
  console: true
`)
	cfg, err := Load(path, true)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Probe.DashboardPort != 9000 {
		t.Fatalf("DashboardPort = %d", cfg.Probe.DashboardPort)
	}
	d, err := cfg.ProbeTimeout()
	if err != nil || d != 250*time.Millisecond {
		t.Fatalf("ProbeTimeout = %v, %v", d, err)
	}
	if len(cfg.Install.Symbols) != 2 || cfg.Install.Symbols[0] != "SPY" {
		t.Fatalf("Symbols = %v", cfg.Install.Symbols)
	}
	if cfg.Status.Artifact != "/var/lib/dreambot/calibration.json" {
		t.Fatalf("Artifact = %q", cfg.Status.Artifact)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("Level = %q", cfg.Logging.Level)
	}
}

func TestLoadJSONPassthrough(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "dreamops.json", `{"probe":{"dashboard_port":9100}}`)
	cfg, err := Load(path, true)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Probe.DashboardPort != 9100 {
		t.Fatalf("DashboardPort = %d", cfg.Probe.DashboardPort)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "dreamops.yaml", "probe:\n  dashbord_port: 9000\n")
	if _, err := Load(path, true); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoadValidation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		content string
	}{
		{name: "bad port", content: "probe:\n  dashboard_port: 70000\n"},
		{name: "bad timeout", content: "probe:\n  dashboard_port: 8501\n  timeout: soon\n"},
		{name: "bad win rate", content: "install:\n  min_win_rate: 1.5\n"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := writeConfig(t, "dreamops.yaml", tt.content)
			if _, err := Load(path, true); err == nil {
				t.Fatalf("expected validation error for %s", tt.name)
			}
		})
	}
}
