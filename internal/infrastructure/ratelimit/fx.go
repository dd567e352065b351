package ratelimit

import (
	"go.uber.org/fx"

	"github.com/yourusername/telegram-post-scout/scout-service/config"
)

// Module provides the shared rate limiter for fx DI
var Module = fx.Module("ratelimit",
	fx.Provide(NewLimiterFx),
)

// NewLimiterFx creates the shared Limiter from config for fx DI
func NewLimiterFx(cfg *config.PipelineConfig) *Limiter {
	return New(cfg.RateLimitInterval, cfg.RateLimitBurst)
}
