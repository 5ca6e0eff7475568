package workflows

import (
	"context"
	"fmt"
	"os"

	"github.com/PolarWolf314/x509crypt/internal/configs"
	cerrors "github.com/PolarWolf314/x509crypt/internal/errors"
)

// ConfigResult describes the effective configuration.
type ConfigResult struct {
	Config *configs.Config

	// Path is the config file location.
	Path string

	// FileExists is false when every value comes from defaults and environment.
	FileExists bool
}

// ShowConfig loads the effective configuration, environment overrides included.
func ShowConfig(ctx context.Context) (*ConfigResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg, err := configs.Load()
	if err != nil {
		return nil, err
	}
	_, statErr := os.Stat(configs.Settings.ConfigPath)
	return &ConfigResult{
		Config:     cfg,
		Path:       configs.Settings.ConfigPath,
		FileExists: statErr == nil,
	}, nil
}

// InitConfigOptions configures the config init workflow.
type InitConfigOptions struct {
	// Force replaces an existing config file.
	Force bool
}

// InitConfig writes the default configuration to the config path.
//
// Returns ErrOutputExists if a config file exists and Force is not set.
func InitConfig(ctx context.Context, opts InitConfigOptions) (*ConfigResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := configs.Settings.ConfigPath
	if _, err := os.Stat(path); err == nil && !opts.Force {
		return nil, fmt.Errorf("%w: %s (use --force to replace it)", cerrors.ErrOutputExists, path)
	}

	cfg := configs.Default()
	if err := configs.SaveTo(path, cfg); err != nil {
		return nil, err
	}
	return &ConfigResult{Config: cfg, Path: path, FileExists: true}, nil
}
