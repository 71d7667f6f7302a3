package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigParsesTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
runtime_dir = "/var/lib/vcu"

[network]
interface = "can0"
source_address = 32

[wire]
bind = "127.0.0.1:30051"
socket = "/run/vcu/vcu.sock"

[governor]
idle_rpm = 800
rated_rpm = 2200

[actor]
boom_length = 3.2
arm_length = 2.1
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Network.Interface != "can0" {
		t.Errorf("Network.Interface = %q, want can0", cfg.Network.Interface)
	}
	if cfg.Network.SourceAddress != 32 {
		t.Errorf("Network.SourceAddress = %v, want 32", cfg.Network.SourceAddress)
	}
	if cfg.Wire.Bind != "127.0.0.1:30051" {
		t.Errorf("Wire.Bind = %q, want 127.0.0.1:30051", cfg.Wire.Bind)
	}
	if cfg.Governor.RatedRPM != 2200 {
		t.Errorf("Governor.RatedRPM = %v, want 2200", cfg.Governor.RatedRPM)
	}
	if cfg.Actor.BoomLength != 3.2 {
		t.Errorf("Actor.BoomLength = %v, want 3.2", cfg.Actor.BoomLength)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/path/config.toml"); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestSessionDirIsUniquePerCall(t *testing.T) {
	cfg := &Config{RuntimeDir: "/var/lib/vcu"}
	a := cfg.SessionDir()
	b := cfg.SessionDir()
	if a == b {
		t.Error("expected SessionDir to return a unique path each call")
	}
}
