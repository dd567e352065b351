package processor

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/yourusername/telegram-post-scout/scout-service/internal/domain"
	"github.com/yourusername/telegram-post-scout/scout-service/internal/domain/channels/entities"
	"github.com/yourusername/telegram-post-scout/scout-service/internal/infrastructure/metrics"
)

// Config holds validation tuning for the processor
type Config struct {
	MinTextLength int
	// ExcludedWords is the global block list merged with each channel's own
	ExcludedWords []string
}

// Processor validates and normalizes single physical messages. A
// rejection is an expected outcome, observable through metrics, never
// an error.
type Processor struct {
	cfg     Config
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// NewProcessor creates a new message processor
func NewProcessor(cfg Config, logger zerolog.Logger, m *metrics.Metrics) *Processor {
	return &Processor{
		cfg:     cfg,
		logger:  logger.With().Str("component", "message_processor").Logger(),
		metrics: m,
	}
}

// Process validates one raw event against a channel's configuration.
// On acceptance it returns the normalized message and RejectNone; on
// rejection it returns nil and the first matching reason.
func (p *Processor) Process(ev *domain.RawMessageEvent, channel *entities.ChannelConfig) (*domain.ProcessedMessage, domain.RejectReason) {
	text := normalizeText(ev.Text)
	hasMedia := ev.HasMedia()

	if reason := p.validate(text, hasMedia, channel); reason != domain.RejectNone {
		p.metrics.RecordRejection(string(reason))
		p.logger.Debug().
			Str("channel_id", ev.ChannelID).
			Int("message_id", ev.MessageID).
			Str("reason", string(reason)).
			Msg("message rejected")
		return nil, reason
	}

	channelName := ev.ChannelName
	if channelName == "" {
		channelName = channel.Title
	}

	return &domain.ProcessedMessage{
		ChannelID:   ev.ChannelID,
		ChannelName: channelName,
		MessageID:   ev.MessageID,
		GroupedID:   ev.GroupedID,
		GroupSize:   ev.GroupSize,
		Text:        text,
		Media:       ev.Media,
		Link:        MessageLink(ev.ChannelID, ev.MessageID),
		Date:        ev.Date,
	}, domain.RejectNone
}

// validate applies the rejection rules in order; the first match wins
func (p *Processor) validate(text string, hasMedia bool, channel *entities.ChannelConfig) domain.RejectReason {
	if text == "" && !hasMedia {
		return domain.RejectEmpty
	}

	if len([]rune(text)) < p.cfg.MinTextLength && !hasMedia {
		return domain.RejectTooShort
	}

	lower := strings.ToLower(text)

	if len(channel.Keywords) > 0 && !containsAny(lower, channel.Keywords) {
		return domain.RejectKeywordMismatch
	}

	if containsAny(lower, p.cfg.ExcludedWords) || containsAny(lower, channel.ExcludedWords) {
		return domain.RejectExcludedWord
	}

	return domain.RejectNone
}

// containsAny reports whether any of the words occurs in the text as a
// case-insensitive substring
func containsAny(lowerText string, words []string) bool {
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		if strings.Contains(lowerText, strings.ToLower(w)) {
			return true
		}
	}
	return false
}

// normalizeText trims the text and strips invisible formatting runes
// Telegram clients embed (zero-width spaces/joiners, BOM)
func normalizeText(text string) string {
	if text == "" {
		return ""
	}
	text = strings.Map(func(r rune) rune {
		switch r {
		case '\u200b', '\u200c', '\u200d', '\u2060', '\ufeff':
			return -1
		}
		return r
	}, text)
	return strings.TrimSpace(text)
}

// MessageLink derives the permanent t.me link for a physical message.
// Public channels use the username form, private ones the /c/ form.
func MessageLink(channelID string, messageID int) string {
	if strings.HasPrefix(channelID, "@") {
		return fmt.Sprintf("https://t.me/%s/%d", strings.TrimPrefix(channelID, "@"), messageID)
	}
	return fmt.Sprintf("https://t.me/c/%s/%d", channelID, messageID)
}
