package entities

import "time"

// ChannelConfig describes one monitored source channel as supplied by
// the configuration store. Keyword and excluded-word lists are optional;
// an empty keyword list means every message passes the keyword check.
type ChannelConfig struct {
	ChannelID     string    `json:"channel_id"`
	Title         string    `json:"title"`
	IsActive      bool      `json:"is_active"`
	Keywords      []string  `json:"keywords,omitempty"`
	ExcludedWords []string  `json:"excluded_words,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SyncDiff reports what changed during a registry sync cycle
type SyncDiff struct {
	Added       []string
	Deactivated []string
}
