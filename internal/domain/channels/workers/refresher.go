package workers

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/yourusername/telegram-post-scout/scout-service/internal/domain"
	"github.com/yourusername/telegram-post-scout/scout-service/internal/domain/channels/deps"
	"github.com/yourusername/telegram-post-scout/scout-service/internal/infrastructure/metrics"
)

// Refresher periodically reconciles the live channel set against the
// configuration store: newly active channels are joined, deactivated
// ones are left. A failed refresh keeps the previous channel set; the
// next cycle retries.
type Refresher struct {
	store    deps.ConfigStoreClient
	registry deps.ChannelRegistry
	gateway  domain.ChannelGateway
	interval time.Duration
	timeout  time.Duration
	logger   zerolog.Logger
	metrics  *metrics.Metrics

	done   chan struct{}
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewRefresher creates a new channel list refresher
func NewRefresher(
	store deps.ConfigStoreClient,
	registry deps.ChannelRegistry,
	gateway domain.ChannelGateway,
	interval time.Duration,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *Refresher {
	ctx, cancel := context.WithCancel(context.Background())

	if interval <= 0 {
		interval = time.Minute
	}

	return &Refresher{
		store:    store,
		registry: registry,
		gateway:  gateway,
		interval: interval,
		timeout:  interval,
		logger:   logger.With().Str("component", "channel_refresher").Logger(),
		metrics:  m,
		done:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start loads the initial channel set and starts the refresh loop. An
// initial load failure is not fatal; the loop retries on the next tick.
func (r *Refresher) Start() {
	r.logger.Info().
		Dur("interval", r.interval).
		Msg("Starting channel refresher")

	r.syncChannels()

	r.wg.Add(1)
	go r.run()
}

// Stop gracefully stops the refresher
func (r *Refresher) Stop() {
	r.logger.Info().Msg("Stopping channel refresher")

	r.cancel()
	close(r.done)
	r.wg.Wait()

	r.logger.Info().Msg("Channel refresher stopped")
}

// run is the main refresh loop
func (r *Refresher) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			r.syncChannels()
		}
	}
}

// syncChannels performs a single refresh cycle
func (r *Refresher) syncChannels() {
	ctx, cancel := context.WithTimeout(r.ctx, r.timeout)
	defer cancel()

	r.metrics.RecordRefresh()

	configs, err := r.store.ListActiveChannels(ctx)
	if err != nil {
		// Previous channel set stays active; retried next cycle
		r.logger.Warn().Err(err).Msg("channel list refresh failed, keeping previous set")
		r.metrics.RecordRefreshError()
		return
	}

	diff, err := r.registry.Sync(ctx, configs)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to sync channel registry")
		r.metrics.RecordRefreshError()
		return
	}

	for _, channelID := range diff.Added {
		if err := r.gateway.JoinChannel(ctx, channelID); err != nil {
			r.logger.Error().Err(err).
				Str("channel_id", channelID).
				Msg("failed to join channel")
			continue
		}
		r.logger.Info().Str("channel_id", channelID).Msg("joined channel")
	}

	// Leaving a channel does not touch its in-flight media group
	// buffers; those drain through the aggregator's idle timers.
	for _, channelID := range diff.Deactivated {
		if err := r.gateway.LeaveChannel(ctx, channelID); err != nil {
			r.logger.Error().Err(err).
				Str("channel_id", channelID).
				Msg("failed to leave channel")
			continue
		}
		r.logger.Info().Str("channel_id", channelID).Msg("left channel")
	}

	r.metrics.UpdateActiveChannels(len(configs))

	if len(diff.Added) > 0 || len(diff.Deactivated) > 0 {
		r.logger.Info().
			Int("added", len(diff.Added)).
			Int("deactivated", len(diff.Deactivated)).
			Int("active", len(configs)).
			Msg("channel set refreshed")
	}
}
