package cache

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/yourusername/telegram-post-scout/scout-service/config"
)

// sweepInterval is how often expired fingerprints are purged in the background
const sweepInterval = 10 * time.Minute

// Module provides the dedup cache for fx DI
var Module = fx.Module("cache",
	fx.Provide(NewDedupCacheFx),
	fx.Invoke(registerCacheLifecycle),
)

// NewDedupCacheFx creates the DedupCache from config for fx DI
func NewDedupCacheFx(cfg *config.PipelineConfig, logger zerolog.Logger) *DedupCache {
	return NewDedupCache(cfg.DedupCapacity, cfg.DedupRetention, logger)
}

func registerCacheLifecycle(lc fx.Lifecycle, c *DedupCache) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			c.StartSweeper(sweepInterval)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			c.Close()
			return nil
		},
	})
}
