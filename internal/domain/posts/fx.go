package posts

import (
	"context"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/yourusername/telegram-post-scout/scout-service/config"
	"github.com/yourusername/telegram-post-scout/scout-service/internal/domain"
	channeldeps "github.com/yourusername/telegram-post-scout/scout-service/internal/domain/channels/deps"
	"github.com/yourusername/telegram-post-scout/scout-service/internal/domain/posts/deps"
	"github.com/yourusername/telegram-post-scout/scout-service/internal/domain/posts/monitor"
	"github.com/yourusername/telegram-post-scout/scout-service/internal/domain/posts/processor"
	"github.com/yourusername/telegram-post-scout/scout-service/internal/infrastructure/cache"
	"github.com/yourusername/telegram-post-scout/scout-service/internal/infrastructure/metrics"
)

// Module provides the posts domain for fx DI
var Module = fx.Module("posts",
	fx.Provide(
		NewProcessorFx,
		NewMonitorFx,
		func(c *cache.DedupCache) deps.Deduplicator { return c },
	),
	fx.Invoke(registerMonitorLifecycle),
)

// NewProcessorFx creates the message processor from config for fx DI
func NewProcessorFx(cfg *config.PipelineConfig, logger zerolog.Logger, m *metrics.Metrics) *processor.Processor {
	return processor.NewProcessor(processor.Config{
		MinTextLength: cfg.MinTextLength,
		ExcludedWords: cfg.ExcludedWords,
	}, logger, m)
}

// NewMonitorFx creates the channel monitor from config for fx DI
func NewMonitorFx(
	registry channeldeps.ChannelRegistry,
	dedup deps.Deduplicator,
	proc *processor.Processor,
	producer domain.CandidateProducer,
	gateway domain.ChannelGateway,
	cfg *config.PipelineConfig,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *monitor.Monitor {
	return monitor.New(registry, dedup, proc, producer, gateway, cfg.IdleWindow, logger, m)
}

// registerMonitorLifecycle flushes open media group buffers on shutdown
func registerMonitorLifecycle(lc fx.Lifecycle, mon *monitor.Monitor) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			mon.Stop(ctx)
			return nil
		},
	})
}
