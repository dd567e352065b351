package monitor

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/yourusername/telegram-post-scout/scout-service/internal/domain"
	channeldeps "github.com/yourusername/telegram-post-scout/scout-service/internal/domain/channels/deps"
	"github.com/yourusername/telegram-post-scout/scout-service/internal/domain/channels/entities"
	"github.com/yourusername/telegram-post-scout/scout-service/internal/domain/posts/aggregator"
	postdeps "github.com/yourusername/telegram-post-scout/scout-service/internal/domain/posts/deps"
	"github.com/yourusername/telegram-post-scout/scout-service/internal/domain/posts/processor"
	"github.com/yourusername/telegram-post-scout/scout-service/internal/infrastructure/cache"
	"github.com/yourusername/telegram-post-scout/scout-service/internal/infrastructure/metrics"
)

// Monitor routes every inbound raw event through the pipeline:
// dedup -> validation -> media group aggregation or direct emission.
// A malformed or unsupported event never halts the stream; it is
// logged, counted and dropped.
type Monitor struct {
	registry  channeldeps.ChannelRegistry
	dedup     postdeps.Deduplicator
	processor *processor.Processor
	agg       *aggregator.Aggregator
	producer  domain.CandidateProducer
	gateway   domain.ChannelGateway
	logger    zerolog.Logger
	metrics   *metrics.Metrics

	stopped        atomic.Bool
	lastUpdateTime atomic.Value
	processedCount atomic.Int64
}

// New creates the channel monitor. The monitor owns the media group
// aggregator; flushed groups are submitted through the same path as
// standalone messages.
func New(
	registry channeldeps.ChannelRegistry,
	dedup postdeps.Deduplicator,
	proc *processor.Processor,
	producer domain.CandidateProducer,
	gateway domain.ChannelGateway,
	idleWindow time.Duration,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *Monitor {
	mon := &Monitor{
		registry:  registry,
		dedup:     dedup,
		processor: proc,
		producer:  producer,
		gateway:   gateway,
		logger:    logger.With().Str("component", "channel_monitor").Logger(),
		metrics:   m,
	}
	mon.agg = aggregator.New(idleWindow, mon.submit, logger, m)
	mon.lastUpdateTime.Store(time.Now())
	return mon
}

// HandleEvent processes one raw message event. It always returns nil:
// per-event failures are logged and the stream continues.
func (m *Monitor) HandleEvent(ctx context.Context, ev *domain.RawMessageEvent) error {
	if m.stopped.Load() {
		return nil
	}

	m.lastUpdateTime.Store(time.Now())
	m.metrics.RecordEventReceived()

	if ev == nil || ev.ChannelID == "" || (ev.MessageID <= 0 && ev.Text == "" && !ev.HasMedia()) {
		m.metrics.RecordMalformedEvent()
		m.logger.Warn().Msg("dropping malformed event")
		return nil
	}

	channel, err := m.registry.Get(ctx, ev.ChannelID)
	if err != nil {
		m.logger.Debug().
			Str("channel_id", ev.ChannelID).
			Int("message_id", ev.MessageID).
			Msg("event from unmonitored channel, ignoring")
		return nil
	}
	if !channel.IsActive {
		m.logger.Debug().
			Str("channel_id", ev.ChannelID).
			Int("message_id", ev.MessageID).
			Msg("event from deactivated channel, ignoring")
		return nil
	}

	fingerprint := cache.Fingerprint(ev.ChannelID, ev.MessageID, ev.Text, ev.Media)
	if !m.dedup.MarkSeen(fingerprint) {
		m.metrics.RecordDuplicate()
		m.logger.Debug().
			Str("channel_id", ev.ChannelID).
			Int("message_id", ev.MessageID).
			Msg("duplicate event dropped")
		return nil
	}

	m.enrichChannelTitle(ctx, ev, channel)

	msg, reason := m.processor.Process(ev, channel)
	if reason != domain.RejectNone {
		// Expected outcome, counted inside the processor
		return nil
	}

	if msg.GroupedID != 0 {
		m.agg.Append(msg)
		return nil
	}

	// Standalone message: one-member candidate post, no buffering
	m.submit(domain.NewCandidatePost(
		msg.ChannelID,
		msg.ChannelName,
		[]int{msg.MessageID},
		msg.Text,
		msg.Media,
		msg.Link,
	))
	return nil
}

// HandleGroupComplete reacts to an explicit group completion signal
// from the platform; it wins any race with the idle timer
func (m *Monitor) HandleGroupComplete(channelID string, groupedID int64) {
	m.agg.Close(channelID, groupedID)
}

// enrichChannelTitle resolves the channel's display title when neither
// the event nor the registry knows it. The gateway rate-limits the
// outbound call; a failure here is not worth dropping the message over.
func (m *Monitor) enrichChannelTitle(ctx context.Context, ev *domain.RawMessageEvent, channel *entities.ChannelConfig) {
	if channel.Title != "" {
		return
	}

	if ev.ChannelName != "" {
		if err := m.registry.SetTitle(ctx, ev.ChannelID, ev.ChannelName); err == nil {
			channel.Title = ev.ChannelName
		}
		return
	}

	m.metrics.RecordEnrichmentCall()
	info, err := m.gateway.ResolveChannelInfo(ctx, ev.ChannelID)
	if err != nil {
		m.logger.Warn().Err(err).
			Str("channel_id", ev.ChannelID).
			Msg("failed to resolve channel title")
		return
	}
	if info.Title != "" {
		_ = m.registry.SetTitle(ctx, ev.ChannelID, info.Title)
		channel.Title = info.Title
		ev.ChannelName = info.Title
	}
}

// submit hands one candidate post to the downstream pipeline. Handoff
// is fire-and-forget: a failure is logged and counted, never retried
// here.
func (m *Monitor) submit(post *domain.CandidatePost) {
	if !post.IsWellFormed() {
		m.logger.Warn().
			Str("channel_id", post.ChannelID).
			Msg("dropping malformed candidate post")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := m.producer.SubmitCandidate(ctx, post); err != nil {
		m.logger.Error().Err(err).
			Str("channel_id", post.ChannelID).
			Ints("message_ids", post.MessageIDs).
			Msg("failed to submit candidate post")
		m.metrics.RecordSubmitError("send_failed")
		return
	}

	m.processedCount.Add(1)
	m.metrics.RecordCandidateEmitted()

	m.logger.Info().
		Str("channel_id", post.ChannelID).
		Str("channel_name", post.ChannelName).
		Ints("message_ids", post.MessageIDs).
		Int("text_length", len(post.Text)).
		Int("media_count", len(post.Media)).
		Msg("candidate post submitted")
}

// Stop drains the monitor: new events are dropped and every open media
// group buffer is flushed as if its idle window had expired
func (m *Monitor) Stop(ctx context.Context) {
	if m.stopped.Swap(true) {
		return
	}

	m.logger.Info().
		Int("open_buffers", m.agg.OpenBuffers()).
		Msg("stopping channel monitor")

	m.agg.FlushAll()

	m.logger.Info().
		Int64("posts_submitted", m.processedCount.Load()).
		Msg("channel monitor stopped")
}

// IsHealthy reports whether an update was seen recently
func (m *Monitor) IsHealthy(staleAfter time.Duration) bool {
	if m.stopped.Load() {
		return false
	}
	last, ok := m.lastUpdateTime.Load().(time.Time)
	if !ok {
		return false
	}
	return time.Since(last) < staleAfter
}

// LastUpdateTime returns the time of the last received event
func (m *Monitor) LastUpdateTime() time.Time {
	if t, ok := m.lastUpdateTime.Load().(time.Time); ok {
		return t
	}
	return time.Time{}
}

// SubmittedCount returns the total number of submitted candidate posts
func (m *Monitor) SubmittedCount() int64 {
	return m.processedCount.Load()
}
