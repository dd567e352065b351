package memory

import (
	"context"
	"sync"
	"time"

	"github.com/yourusername/telegram-post-scout/scout-service/internal/domain"
	"github.com/yourusername/telegram-post-scout/scout-service/internal/domain/channels/deps"
	"github.com/yourusername/telegram-post-scout/scout-service/internal/domain/channels/entities"
)

// channelRegistry implements deps.ChannelRegistry using in-memory storage
type channelRegistry struct {
	mu       sync.RWMutex
	channels map[string]*entities.ChannelConfig
}

// NewChannelRegistry creates a new in-memory channel registry
func NewChannelRegistry() deps.ChannelRegistry {
	return &channelRegistry{
		channels: make(map[string]*entities.ChannelConfig),
	}
}

// Sync reconciles the registry against a fresh snapshot from the
// configuration store. New channels are added, existing ones updated,
// and channels absent from the snapshot are deactivated in place.
func (r *channelRegistry) Sync(ctx context.Context, configs []entities.ChannelConfig) (entities.SyncDiff, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var diff entities.SyncDiff
	seen := make(map[string]struct{}, len(configs))

	for _, cfg := range configs {
		if cfg.ChannelID == "" {
			continue
		}
		seen[cfg.ChannelID] = struct{}{}

		existing, ok := r.channels[cfg.ChannelID]
		if !ok {
			c := cfg
			c.IsActive = true
			c.UpdatedAt = time.Now()
			r.channels[cfg.ChannelID] = &c
			diff.Added = append(diff.Added, cfg.ChannelID)
			continue
		}

		wasActive := existing.IsActive
		existing.Keywords = cfg.Keywords
		existing.ExcludedWords = cfg.ExcludedWords
		existing.IsActive = true
		existing.UpdatedAt = time.Now()
		// Keep a title learned from the platform when the store has none
		if cfg.Title != "" {
			existing.Title = cfg.Title
		}
		if !wasActive {
			diff.Added = append(diff.Added, cfg.ChannelID)
		}
	}

	for id, ch := range r.channels {
		if _, ok := seen[id]; ok {
			continue
		}
		if ch.IsActive {
			ch.IsActive = false
			ch.UpdatedAt = time.Now()
			diff.Deactivated = append(diff.Deactivated, id)
		}
	}

	return diff, nil
}

// Get retrieves a channel by ID
func (r *channelRegistry) Get(ctx context.Context, channelID string) (*entities.ChannelConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ch, exists := r.channels[channelID]
	if !exists {
		return nil, domain.ErrChannelNotFound
	}

	c := *ch
	return &c, nil
}

// ActiveChannels returns all currently active channels
func (r *channelRegistry) ActiveChannels(ctx context.Context) ([]entities.ChannelConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	channels := make([]entities.ChannelConfig, 0, len(r.channels))
	for _, ch := range r.channels {
		if ch.IsActive {
			channels = append(channels, *ch)
		}
	}

	return channels, nil
}

// SetTitle records a display title resolved from the platform
func (r *channelRegistry) SetTitle(ctx context.Context, channelID, title string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, exists := r.channels[channelID]
	if !exists {
		return domain.ErrChannelNotFound
	}

	ch.Title = title
	return nil
}
