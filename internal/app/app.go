package app

import (
	"go.uber.org/fx"

	"github.com/yourusername/telegram-post-scout/scout-service/config"
	"github.com/yourusername/telegram-post-scout/scout-service/internal/domain/channels"
	"github.com/yourusername/telegram-post-scout/scout-service/internal/domain/posts"
	"github.com/yourusername/telegram-post-scout/scout-service/internal/infrastructure"
)

// CreateApp creates the fx application options
func CreateApp() fx.Option {
	return fx.Options(
		fx.Provide(config.Out),
		infrastructure.Module,
		// Domain modules
		channels.Module,
		posts.Module,
	)
}
