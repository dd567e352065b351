package workers

import (
	"context"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/yourusername/telegram-post-scout/scout-service/config"
	"github.com/yourusername/telegram-post-scout/scout-service/internal/domain"
	"github.com/yourusername/telegram-post-scout/scout-service/internal/domain/channels/deps"
	"github.com/yourusername/telegram-post-scout/scout-service/internal/infrastructure/metrics"
)

// Module provides channel workers for fx DI
var Module = fx.Module("channel-workers",
	fx.Provide(NewRefresherFx),
	fx.Invoke(registerLifecycle),
)

// NewRefresherFx creates the Refresher from config for fx DI
func NewRefresherFx(
	store deps.ConfigStoreClient,
	registry deps.ChannelRegistry,
	gateway domain.ChannelGateway,
	cfg *config.ConfigStoreConfig,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *Refresher {
	return NewRefresher(store, registry, gateway, cfg.RefreshInterval, logger, m)
}

// registerLifecycle registers the refresher with fx.Lifecycle
func registerLifecycle(lc fx.Lifecycle, r *Refresher) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			r.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			r.Stop()
			return nil
		},
	})
}
