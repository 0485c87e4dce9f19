package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.HTTPPort != "7870" {
		t.Fatalf("http_port = %q", cfg.Server.HTTPPort)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Fatalf("driver = %q", cfg.Database.Driver)
	}
	s := cfg.RelaySettings()
	if s.Enabled {
		t.Fatal("relay enabled by default")
	}
	if s.RelayURL != DefaultRelayURL {
		t.Fatalf("relay url = %q", s.RelayURL)
	}
	if !s.AutoConnect {
		t.Fatal("auto-connect off by default")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  http_port: "9000"
relay:
  enabled: true
  url: wss://relay.internal
workspaces:
  roots:
    - /srv/projects
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.HTTPPort != "9000" {
		t.Fatalf("http_port = %q", cfg.Server.HTTPPort)
	}
	s := cfg.RelaySettings()
	if !s.Enabled || s.RelayURL != "wss://relay.internal" {
		t.Fatalf("relay settings = %+v", s)
	}
	if len(cfg.Workspaces.Roots) != 1 || cfg.Workspaces.Roots[0] != "/srv/projects" {
		t.Fatalf("roots = %v", cfg.Workspaces.Roots)
	}
}

func TestSetRelaySettingsPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("relay:\n  enabled: false\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	err = cfg.SetRelaySettings(RelaySettings{Enabled: true, RelayURL: "wss://other.example", AutoConnect: true})
	if err != nil {
		t.Fatal(err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	s := reloaded.RelaySettings()
	if !s.Enabled || s.RelayURL != "wss://other.example" || !s.AutoConnect {
		t.Fatalf("persisted settings = %+v", s)
	}
}

func TestSetRelaySettingsEmptyURLFallsBack(t *testing.T) {
	cfg := &Config{}
	if err := cfg.SetRelaySettings(RelaySettings{Enabled: true}); err != nil {
		t.Fatal(err)
	}
	if got := cfg.RelaySettings().RelayURL; got != DefaultRelayURL {
		t.Fatalf("url = %q, want default", got)
	}
}
