package aggregator

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/yourusername/telegram-post-scout/scout-service/internal/domain"
	"github.com/yourusername/telegram-post-scout/scout-service/internal/domain/posts/processor"
	"github.com/yourusername/telegram-post-scout/scout-service/internal/infrastructure/metrics"
)

// Flush triggers, reported in logs and metrics
const (
	TriggerIdle     = "idle"
	TriggerClose    = "close"
	TriggerShutdown = "shutdown"
)

// EmitFunc receives the assembled candidate post of a flushed buffer
type EmitFunc func(post *domain.CandidatePost)

// GroupKey identifies one media group buffer
type GroupKey struct {
	ChannelID string
	GroupedID int64
}

// buffer accumulates the members of one media group. Members are kept
// in arrival order, which is not guaranteed to match platform order.
type buffer struct {
	key         GroupKey
	channelName string
	messageIDs  []int
	media       []domain.MediaItem
	text        string
	firstMsgID  int
	sizeHint    int
	createdAt   time.Time
	updatedAt   time.Time
	timer       *time.Timer
}

// Aggregator buffers physical messages belonging to the same media
// group until the group is complete (count hint) or its idle window
// elapses, then emits exactly one CandidatePost per group. All buffer
// state transitions happen under a single mutex, so a timer flush racing
// a concurrent append resolves cleanly: whichever acquires the lock
// first wins, and a late append simply opens a fresh buffer.
type Aggregator struct {
	mu      sync.Mutex
	buffers map[GroupKey]*buffer

	idleWindow time.Duration
	emit       EmitFunc
	logger     zerolog.Logger
	metrics    *metrics.Metrics
}

// New creates a media group aggregator. emit is called outside the
// aggregator lock, once per flushed buffer.
func New(idleWindow time.Duration, emit EmitFunc, logger zerolog.Logger, m *metrics.Metrics) *Aggregator {
	if idleWindow <= 0 {
		idleWindow = 3 * time.Second
	}
	return &Aggregator{
		buffers:    make(map[GroupKey]*buffer),
		idleWindow: idleWindow,
		emit:       emit,
		logger:     logger.With().Str("component", "media_group_aggregator").Logger(),
		metrics:    m,
	}
}

// Append adds a processed message to its media group buffer, creating
// the buffer on the first member. When the platform's count hint is
// satisfied the buffer is flushed immediately; otherwise the idle timer
// is re-armed.
func (a *Aggregator) Append(msg *domain.ProcessedMessage) {
	key := GroupKey{ChannelID: msg.ChannelID, GroupedID: msg.GroupedID}

	a.mu.Lock()

	b, exists := a.buffers[key]
	if !exists {
		b = &buffer{
			key:         key,
			channelName: msg.ChannelName,
			firstMsgID:  msg.MessageID,
			createdAt:   time.Now(),
		}
		a.buffers[key] = b
		b.timer = time.AfterFunc(a.idleWindow, func() {
			a.idleFlush(key)
		})

		a.metrics.RecordGroupOpened()
		a.metrics.UpdateOpenBuffers(len(a.buffers))
		a.logger.Debug().
			Str("channel_id", key.ChannelID).
			Int64("grouped_id", key.GroupedID).
			Msg("opened media group buffer")
	}

	b.messageIDs = append(b.messageIDs, msg.MessageID)
	b.media = append(b.media, msg.Media...)
	b.updatedAt = time.Now()

	// Only one member of a group normally carries the caption; keep the
	// first non-empty text regardless of arrival order
	if b.text == "" && msg.Text != "" {
		b.text = msg.Text
	}

	// The lowest message ID is the first physical message of the group
	if msg.MessageID < b.firstMsgID {
		b.firstMsgID = msg.MessageID
	}
	if b.channelName == "" && msg.ChannelName != "" {
		b.channelName = msg.ChannelName
	}
	if msg.GroupSize > 0 {
		b.sizeHint = msg.GroupSize
	}

	// Count hint satisfied: the group is complete, no need to wait
	if b.sizeHint > 0 && len(b.messageIDs) >= b.sizeHint {
		post := a.takeLocked(b, TriggerClose)
		a.mu.Unlock()
		a.dispatch(post)
		return
	}

	b.timer.Reset(a.idleWindow)

	a.logger.Debug().
		Str("channel_id", key.ChannelID).
		Int64("grouped_id", key.GroupedID).
		Int("message_id", msg.MessageID).
		Int("buffer_size", len(b.messageIDs)).
		Msg("appended to media group buffer")

	a.mu.Unlock()
}

// Close flushes a media group immediately in response to an explicit
// completion signal. The explicit signal always wins over the idle
// timer: the buffer is removed here, and a timer that fires later finds
// nothing to flush.
func (a *Aggregator) Close(channelID string, groupedID int64) {
	key := GroupKey{ChannelID: channelID, GroupedID: groupedID}

	a.mu.Lock()
	b, exists := a.buffers[key]
	if !exists {
		a.mu.Unlock()
		return
	}
	post := a.takeLocked(b, TriggerClose)
	a.mu.Unlock()

	a.dispatch(post)
}

// FlushAll flushes every open buffer; used on shutdown so no
// accumulated media is silently lost
func (a *Aggregator) FlushAll() {
	a.mu.Lock()
	posts := make([]*domain.CandidatePost, 0, len(a.buffers))
	for _, b := range a.buffers {
		posts = append(posts, a.takeLocked(b, TriggerShutdown))
	}
	a.mu.Unlock()

	for _, post := range posts {
		a.dispatch(post)
	}

	if len(posts) > 0 {
		a.logger.Info().Int("buffers_flushed", len(posts)).Msg("flushed all open media group buffers")
	}
}

// OpenBuffers returns the number of currently open buffers
func (a *Aggregator) OpenBuffers() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.buffers)
}

// idleFlush is the timer callback. If a member arrived while the
// callback was waiting on the lock, the flush is postponed for the
// remainder of the idle window instead.
func (a *Aggregator) idleFlush(key GroupKey) {
	a.mu.Lock()
	b, exists := a.buffers[key]
	if !exists {
		// Already flushed by Close or FlushAll
		a.mu.Unlock()
		return
	}

	if remaining := a.idleWindow - time.Since(b.updatedAt); remaining > 0 {
		b.timer.Reset(remaining)
		a.mu.Unlock()
		return
	}

	post := a.takeLocked(b, TriggerIdle)
	a.mu.Unlock()

	a.dispatch(post)
}

// takeLocked removes the buffer from the live index, stops its timer
// and assembles the candidate post. Caller must hold a.mu. Removal
// under the lock guarantees a buffer is flushed at most once.
func (a *Aggregator) takeLocked(b *buffer, trigger string) *domain.CandidatePost {
	delete(a.buffers, b.key)
	if b.timer != nil {
		b.timer.Stop()
	}

	a.metrics.RecordGroupFlushed(trigger, len(b.messageIDs))
	a.metrics.UpdateOpenBuffers(len(a.buffers))

	a.logger.Info().
		Str("channel_id", b.key.ChannelID).
		Int64("grouped_id", b.key.GroupedID).
		Str("trigger", trigger).
		Int("members", len(b.messageIDs)).
		Int("media_count", len(b.media)).
		Msg("flushing media group")

	return domain.NewCandidatePost(
		b.key.ChannelID,
		b.channelName,
		b.messageIDs,
		b.text,
		b.media,
		processor.MessageLink(b.key.ChannelID, b.firstMsgID),
	)
}

// dispatch hands one assembled post to the emit callback
func (a *Aggregator) dispatch(post *domain.CandidatePost) {
	if post == nil || a.emit == nil {
		return
	}
	a.emit(post)
}
