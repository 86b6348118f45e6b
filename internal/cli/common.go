package cli

import (
	"context"
	"fmt"

	"github.com/jgalley/fifoguard/internal/config"
	"github.com/jgalley/fifoguard/internal/engine"
	"github.com/jgalley/fifoguard/internal/model"
	"github.com/jgalley/fifoguard/internal/store"
	"github.com/jgalley/fifoguard/internal/telemetry"
)

// openEngine loads config and opens the store, returning a ready facade
// plus a close func the caller must defer.
func openEngine(ctx context.Context) (*config.Config, *engine.Engine, func(), error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}

	st, err := store.Open(ctx, cfg.Database.Path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening database: %w", err)
	}

	logger := setupLogger(logLevel, cfg.Logging.Format)
	metrics := telemetry.New()
	eng := engine.New(st, logger, metrics)

	closeFn := func() { st.Close() }
	return cfg, eng, closeFn, nil
}

func parseGranularity(s string) (model.Granularity, error) {
	switch s {
	case "", "asset":
		return model.GranularityAsset, nil
	case "asset_index":
		return model.GranularityAssetIndex, nil
	case "full":
		return model.GranularityFull, nil
	default:
		return 0, fmt.Errorf("unknown granularity %q (want asset, asset_index, or full)", s)
	}
}
