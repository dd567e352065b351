package channels

import (
	"go.uber.org/fx"

	"github.com/yourusername/telegram-post-scout/scout-service/internal/domain/channels/repository/memory"
	"github.com/yourusername/telegram-post-scout/scout-service/internal/domain/channels/workers"
)

// Module provides the channels domain for fx DI
var Module = fx.Module("channels",
	fx.Provide(memory.NewChannelRegistry),
	workers.Module,
)
