package infrastructure

import (
	"go.uber.org/fx"

	"github.com/yourusername/telegram-post-scout/scout-service/internal/domain/posts/monitor"
	"github.com/yourusername/telegram-post-scout/scout-service/internal/infrastructure/cache"
	"github.com/yourusername/telegram-post-scout/scout-service/internal/infrastructure/configstore"
	httpfx "github.com/yourusername/telegram-post-scout/scout-service/internal/infrastructure/http"
	"github.com/yourusername/telegram-post-scout/scout-service/internal/infrastructure/kafka"
	"github.com/yourusername/telegram-post-scout/scout-service/internal/infrastructure/logger"
	"github.com/yourusername/telegram-post-scout/scout-service/internal/infrastructure/metrics"
	"github.com/yourusername/telegram-post-scout/scout-service/internal/infrastructure/ratelimit"
	"github.com/yourusername/telegram-post-scout/scout-service/internal/infrastructure/telegram"
)

// Module aggregates all infrastructure modules
var Module = fx.Module("infrastructure",
	logger.Module,
	metrics.Module,
	ratelimit.Module,
	cache.Module,
	configstore.Module,
	telegram.Module,
	kafka.Module,
	httpfx.Module,
	fx.Provide(func(m *monitor.Monitor) httpfx.StreamHealth { return m }),
)
