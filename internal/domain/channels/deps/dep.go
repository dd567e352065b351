package deps

import (
	"context"

	"github.com/yourusername/telegram-post-scout/scout-service/internal/domain/channels/entities"
)

// ChannelRegistry stores the live channel set. Channels missing from a
// sync are deactivated, never deleted, so historical linkage survives.
type ChannelRegistry interface {
	Sync(ctx context.Context, configs []entities.ChannelConfig) (entities.SyncDiff, error)
	Get(ctx context.Context, channelID string) (*entities.ChannelConfig, error)
	ActiveChannels(ctx context.Context) ([]entities.ChannelConfig, error)
	SetTitle(ctx context.Context, channelID, title string) error
}

// ConfigStoreClient polls the external configuration store for the
// active channel list. The store is polled, never pushed to.
type ConfigStoreClient interface {
	ListActiveChannels(ctx context.Context) ([]entities.ChannelConfig, error)
}
