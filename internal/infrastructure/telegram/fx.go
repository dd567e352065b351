package telegram

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/yourusername/telegram-post-scout/scout-service/config"
	"github.com/yourusername/telegram-post-scout/scout-service/internal/domain"
	"github.com/yourusername/telegram-post-scout/scout-service/internal/domain/posts/monitor"
	"github.com/yourusername/telegram-post-scout/scout-service/internal/infrastructure/metrics"
	"github.com/yourusername/telegram-post-scout/scout-service/internal/infrastructure/ratelimit"
)

// connectTimeout bounds the initial connection, generous enough for an
// interactive first-time login with code entry
const connectTimeout = 5 * time.Minute

// Module provides the Telegram gateway for fx DI
var Module = fx.Module("telegram",
	fx.Provide(
		NewGatewayFx,
		func(g *Gateway) domain.ChannelGateway { return g },
	),
	fx.Invoke(wireMonitor),
)

// NewGatewayFx creates the gateway with lifecycle hooks for fx DI.
// A connection failure at startup is fatal: without the update stream
// the service has no purpose.
func NewGatewayFx(
	lc fx.Lifecycle,
	telegramCfg *config.TelegramConfig,
	limiter *ratelimit.Limiter,
	logger zerolog.Logger,
	m *metrics.Metrics,
) (*Gateway, error) {
	gateway, err := NewGateway(GatewayConfig{
		APIID:      telegramCfg.APIID,
		APIHash:    telegramCfg.APIHash,
		Phone:      telegramCfg.Phone,
		SessionDir: telegramCfg.SessionDir,
	}, limiter, logger, m)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
			defer cancel()
			return gateway.Connect(connectCtx)
		},
		OnStop: func(ctx context.Context) error {
			return gateway.Disconnect(ctx)
		},
	})

	return gateway, nil
}

// wireMonitor installs the monitor as the update stream event handler.
// Done via Invoke to break the constructor cycle: the monitor depends
// on the gateway for channel resolution.
func wireMonitor(g *Gateway, mon *monitor.Monitor) {
	g.SetHandler(func(ctx context.Context, ev *domain.RawMessageEvent) {
		_ = mon.HandleEvent(ctx, ev)
	})
}
