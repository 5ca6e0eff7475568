package configs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PolarWolf314/x509crypt/internal/alias"
)

func withTempSettings(t *testing.T) string {
	t.Helper()
	tempDir := t.TempDir()
	old := *Settings
	Settings.ConfigDir = filepath.Join(tempDir, "config")
	Settings.ConfigPath = filepath.Join(tempDir, "config", "config.toml")
	Settings.DataDir = filepath.Join(tempDir, "data")
	t.Cleanup(func() { *Settings = old })
	return tempDir
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	tempDir := withTempSettings(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Location() != alias.CurrentUser {
		t.Errorf("Expected default location CurrentUser, got %q", cfg.Location())
	}
	if cfg.Crypto.WipePasses != DefaultWipePasses {
		t.Errorf("Expected %d wipe passes, got %d", DefaultWipePasses, cfg.Crypto.WipePasses)
	}
	if cfg.Crypto.ChunkSize != DefaultChunkSize {
		t.Errorf("Expected chunk size %d, got %d", DefaultChunkSize, cfg.Crypto.ChunkSize)
	}
	if !strings.HasPrefix(cfg.StorePath(alias.CurrentUser), tempDir) {
		t.Errorf("Expected user store under %s, got %s", tempDir, cfg.StorePath(alias.CurrentUser))
	}
	if !cfg.Audit.Enabled {
		t.Error("Expected audit to be enabled by default")
	}
}

func TestSaveAndLoadConfig(t *testing.T) {
	tempDir := withTempSettings(t)

	cfg := Default()
	cfg.Store.DefaultLocation = "machine"
	cfg.Store.MachinePath = filepath.Join(tempDir, "machine")
	cfg.Crypto.WipePasses = 7
	cfg.Certificate.KeySize = 4096

	if err := Save(cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Location() != alias.LocalMachine {
		t.Errorf("Expected LocalMachine, got %q", loaded.Location())
	}
	if loaded.StorePath(alias.LocalMachine) != cfg.Store.MachinePath {
		t.Errorf("Expected machine path %q, got %q", cfg.Store.MachinePath, loaded.StorePath(alias.LocalMachine))
	}
	if loaded.Crypto.WipePasses != 7 {
		t.Errorf("Expected 7 wipe passes, got %d", loaded.Crypto.WipePasses)
	}
	if loaded.Certificate.KeySize != 4096 {
		t.Errorf("Expected key size 4096, got %d", loaded.Certificate.KeySize)
	}
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	withTempSettings(t)

	if err := os.MkdirAll(Settings.ConfigDir, 0700); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}
	content := "[crypto]\nwipe_passes = 1\n"
	if err := os.WriteFile(Settings.ConfigPath, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Crypto.WipePasses != 1 {
		t.Errorf("Expected 1 wipe pass, got %d", cfg.Crypto.WipePasses)
	}
	if cfg.Certificate.ValidityDays != DefaultValidityDays {
		t.Errorf("Expected default validity, got %d", cfg.Certificate.ValidityDays)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	tempDir := withTempSettings(t)
	userStore := filepath.Join(tempDir, "env-store")

	t.Setenv(EnvUserStore, userStore)
	t.Setenv(EnvWipePasses, "0")
	t.Setenv(EnvChunkSize, "4096")
	t.Setenv(EnvAudit, "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.StorePath(alias.CurrentUser) != userStore {
		t.Errorf("Expected user store %q, got %q", userStore, cfg.StorePath(alias.CurrentUser))
	}
	if cfg.Crypto.WipePasses != 0 {
		t.Errorf("Expected 0 wipe passes, got %d", cfg.Crypto.WipePasses)
	}
	if cfg.Crypto.ChunkSize != 4096 {
		t.Errorf("Expected chunk size 4096, got %d", cfg.Crypto.ChunkSize)
	}
	if cfg.Audit.Enabled {
		t.Error("Expected audit disabled by environment")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	withTempSettings(t)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown location", func(c *Config) { c.Store.DefaultLocation = "Roaming" }},
		{"zero chunk size", func(c *Config) { c.Crypto.ChunkSize = 0 }},
		{"negative passes", func(c *Config) { c.Crypto.WipePasses = -1 }},
		{"too many passes", func(c *Config) { c.Crypto.WipePasses = MaxWipePasses + 1 }},
		{"small key", func(c *Config) { c.Certificate.KeySize = 1024 }},
		{"zero validity", func(c *Config) { c.Certificate.ValidityDays = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error, got nil")
			}
		})
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	withTempSettings(t)

	if err := os.MkdirAll(Settings.ConfigDir, 0700); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}
	if err := os.WriteFile(Settings.ConfigPath, []byte("[crypto\nwipe_passes = "), 0600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("Expected error for malformed config, got nil")
	}
}
