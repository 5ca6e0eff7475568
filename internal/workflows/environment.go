package workflows

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/x509crypt/internal/alias"
	"github.com/PolarWolf314/x509crypt/internal/configs"
	"github.com/PolarWolf314/x509crypt/internal/engine"
	logger "github.com/PolarWolf314/x509crypt/internal/logging"
	"github.com/PolarWolf314/x509crypt/internal/store"
	"github.com/PolarWolf314/x509crypt/internal/wipe"
)

// Logger receives progress messages from the engine. The CLI sets it from
// its --verbose and --debug flags.
var Logger logger.Logger

// environment is what every workflow needs: the loaded config, the store it
// points at and an engine tuned by it.
type environment struct {
	cfg    *configs.Config
	store  *store.Store
	engine *engine.Engine
}

func loadEnvironment() (*environment, error) {
	cfg, err := configs.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &environment{
		cfg:   cfg,
		store: store.FromConfig(cfg),
		engine: engine.New(
			engine.WithChunkSize(cfg.Crypto.ChunkSize),
			engine.WithLogger(Logger),
			engine.WithWiper(wipe.Wiper{}),
		),
	}, nil
}

// location returns loc, or the configured default when loc is empty.
func (env *environment) location(loc alias.Location) (alias.Location, error) {
	if loc == "" {
		return env.cfg.Location(), nil
	}
	return alias.ParseLocation(string(loc))
}

// lookup resolves thumbprint in loc.
func (env *environment) lookup(ctx context.Context, thumbprint string, loc alias.Location) (alias.Capability, alias.Location, error) {
	loc, err := env.location(loc)
	if err != nil {
		return nil, "", err
	}
	a, err := env.store.Lookup(ctx, thumbprint, loc)
	if err != nil {
		return nil, "", err
	}
	return a, loc, nil
}
