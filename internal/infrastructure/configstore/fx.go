package configstore

import (
	"go.uber.org/fx"

	"github.com/yourusername/telegram-post-scout/scout-service/internal/domain/channels/deps"
)

// Module provides the config store client for fx DI
var Module = fx.Module("configstore",
	fx.Provide(
		NewClient,
		func(c *Client) deps.ConfigStoreClient { return c },
	),
)
