package http

import (
	"context"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/yourusername/telegram-post-scout/scout-service/config"
	"github.com/yourusername/telegram-post-scout/scout-service/internal/infrastructure/http/server"
)

// Module provides HTTP server for fx DI
var Module = fx.Module("http",
	fx.Provide(
		NewHealthHandler,
		NewServerFx,
	),
	fx.Invoke(registerRoutes),
)

// NewServerFx creates HTTP server with lifecycle hooks for fx DI
func NewServerFx(
	lc fx.Lifecycle,
	serviceCfg *config.ServiceConfig,
	logger zerolog.Logger,
) *server.Server {
	srv := server.NewServer(serviceCfg.Port, logger)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return srv.Start()
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})

	return srv
}

// registerRoutes registers HTTP routes
func registerRoutes(srv *server.Server, health *HealthHandler) {
	srv.RegisterMetrics()
	srv.Router.GET("/health", health.Handle)
}
