package configs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/PolarWolf314/x509crypt/internal/alias"
	"github.com/allisson/go-env"
)

// Defaults for a missing or partial config file.
const (
	DefaultChunkSize    = 1 << 20
	DefaultWipePasses   = 3
	DefaultKeySize      = 3072
	DefaultValidityDays = 365
	MaxWipePasses       = 35
)

// Environment variables that override the config file.
const (
	EnvUserStore    = "X509CRYPT_USER_STORE"
	EnvMachineStore = "X509CRYPT_MACHINE_STORE"
	EnvWipePasses   = "X509CRYPT_WIPE_PASSES"
	EnvChunkSize    = "X509CRYPT_CHUNK_SIZE"
	EnvAudit        = "X509CRYPT_AUDIT"
)

type Config struct {
	Store       StoreConfig       `toml:"store"`
	Crypto      CryptoConfig      `toml:"crypto"`
	Certificate CertificateConfig `toml:"certificate"`
	Audit       AuditConfig       `toml:"audit"`
}

type StoreConfig struct {
	DefaultLocation string `toml:"default_location"`
	UserPath        string `toml:"user_path"`
	MachinePath     string `toml:"machine_path"`
}

type CryptoConfig struct {
	ChunkSize  int `toml:"chunk_size"`
	WipePasses int `toml:"wipe_passes"`
}

type CertificateConfig struct {
	KeySize      int `toml:"key_size"`
	ValidityDays int `toml:"validity_days"`
}

type AuditConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			DefaultLocation: string(alias.CurrentUser),
			UserPath:        filepath.Join(Settings.DataDir, "store", "user"),
			MachinePath:     defaultMachinePath(),
		},
		Crypto: CryptoConfig{
			ChunkSize:  DefaultChunkSize,
			WipePasses: DefaultWipePasses,
		},
		Certificate: CertificateConfig{
			KeySize:      DefaultKeySize,
			ValidityDays: DefaultValidityDays,
		},
		Audit: AuditConfig{
			Enabled: true,
			Path:    filepath.Join(Settings.DataDir, "audit.jsonl"),
		},
	}
}

func defaultMachinePath() string {
	if dir := os.Getenv("ProgramData"); dir != "" {
		return filepath.Join(dir, "x509crypt", "store")
	}
	return filepath.Join(string(filepath.Separator), "etc", "x509crypt", "store")
}

// Load reads the config at Settings.ConfigPath and applies environment overrides.
func Load() (*Config, error) {
	return LoadFrom(Settings.ConfigPath)
}

// LoadFrom reads the config at path. A missing file yields the defaults.
// Keys absent from the file keep their default values.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if err := LoadTOML(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to Settings.ConfigPath.
func Save(cfg *Config) error {
	return SaveTo(Settings.ConfigPath, cfg)
}

// SaveTo writes cfg to path.
func SaveTo(path string, cfg *Config) error {
	if err := SaveTOML(path, cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Store.UserPath = env.GetString(EnvUserStore, c.Store.UserPath)
	c.Store.MachinePath = env.GetString(EnvMachineStore, c.Store.MachinePath)
	c.Crypto.WipePasses = env.GetInt(EnvWipePasses, c.Crypto.WipePasses)
	c.Crypto.ChunkSize = env.GetInt(EnvChunkSize, c.Crypto.ChunkSize)
	c.Audit.Enabled = env.GetBool(EnvAudit, c.Audit.Enabled)
}

// Validate checks ranges and normalizes the default location.
func (c *Config) Validate() error {
	loc, err := alias.ParseLocation(c.Store.DefaultLocation)
	if err != nil {
		return fmt.Errorf("config [store] default_location: %w", err)
	}
	c.Store.DefaultLocation = string(loc)

	if c.Crypto.ChunkSize <= 0 {
		return fmt.Errorf("config [crypto] chunk_size must be positive, got %d", c.Crypto.ChunkSize)
	}
	if c.Crypto.WipePasses < 0 || c.Crypto.WipePasses > MaxWipePasses {
		return fmt.Errorf("config [crypto] wipe_passes must be between 0 and %d, got %d", MaxWipePasses, c.Crypto.WipePasses)
	}
	if c.Certificate.KeySize < alias.MinKeySize {
		return fmt.Errorf("config [certificate] key_size must be at least %d, got %d", alias.MinKeySize, c.Certificate.KeySize)
	}
	if c.Certificate.ValidityDays <= 0 {
		return fmt.Errorf("config [certificate] validity_days must be positive, got %d", c.Certificate.ValidityDays)
	}
	return nil
}

// Location returns the configured default store location.
func (c *Config) Location() alias.Location {
	return alias.Location(c.Store.DefaultLocation)
}

// StorePath returns the directory backing loc.
func (c *Config) StorePath(loc alias.Location) string {
	if loc == alias.LocalMachine {
		return c.Store.MachinePath
	}
	return c.Store.UserPath
}
