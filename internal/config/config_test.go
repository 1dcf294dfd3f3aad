package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
client:
  url: ws://assistant.local:9000/ws
  close_grace: 2s
ui:
  markdown: false
server:
  port: 9100
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Client.URL != "ws://assistant.local:9000/ws" {
		t.Errorf("Client.URL = %q", cfg.Client.URL)
	}
	if cfg.Client.CloseGrace != 2*time.Second {
		t.Errorf("Client.CloseGrace = %v, want 2s", cfg.Client.CloseGrace)
	}
	if cfg.UI.Markdown {
		t.Error("UI.Markdown should be false")
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want 9100", cfg.Server.Port)
	}

	// Untouched fields keep their defaults.
	if cfg.Client.ReadLimit != 1<<20 {
		t.Errorf("Client.ReadLimit = %d, want default", cfg.Client.ReadLimit)
	}
	if cfg.UI.TimestampFormat != "15:04:05" {
		t.Errorf("UI.TimestampFormat = %q, want default", cfg.UI.TimestampFormat)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want default", cfg.Server.Host)
	}
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[client]
url = "wss://example.com/ws"

[log]
level = "debug"
file = "/tmp/yaan.log"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Client.URL != "wss://example.com/ws" {
		t.Errorf("Client.URL = %q", cfg.Client.URL)
	}
	if cfg.Log.Level != "debug" || cfg.Log.File != "/tmp/yaan.log" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want default 8000", cfg.Server.Port)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("client: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.yaml")

	if _, err := Load(path); err == nil {
		t.Fatal("Load should fail for a missing file")
	}

	cfg, err := LoadOptional(path)
	if err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if cfg.Client.URL != "ws://localhost:8000/ws" {
		t.Errorf("Client.URL = %q, want default", cfg.Client.URL)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvURL:      "ws://10.0.0.2:8000/ws",
		EnvHost:     "0.0.0.0",
		EnvPort:     "8123",
		EnvLogLevel: "warn",
		EnvLogFile:  "yaan.log",
	}
	cfg := Default()
	if err := cfg.ApplyEnv(func(k string) string { return env[k] }); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}

	if cfg.Client.URL != env[EnvURL] {
		t.Errorf("Client.URL = %q", cfg.Client.URL)
	}
	if cfg.Addr() != "0.0.0.0:8123" {
		t.Errorf("Addr() = %q", cfg.Addr())
	}
	if cfg.Log.Level != "warn" || cfg.Log.File != "yaan.log" {
		t.Errorf("Log = %+v", cfg.Log)
	}
}

func TestApplyEnvBadPort(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(func(k string) string {
		if k == EnvPort {
			return "eighty"
		}
		return ""
	})
	if err == nil {
		t.Fatal("expected error for non-numeric port")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"wss url", func(c *Config) { c.Client.URL = "wss://host/ws" }, false},
		{"http scheme", func(c *Config) { c.Client.URL = "http://host/ws" }, true},
		{"no host", func(c *Config) { c.Client.URL = "ws:///ws" }, true},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, true},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }, true},
		{"negative read limit", func(c *Config) { c.Client.ReadLimit = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
