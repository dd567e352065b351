package domain

import (
	"time"

	"github.com/google/uuid"
)

// MediaKind tags the kind of media attached to a message
type MediaKind string

const (
	MediaKindPhoto    MediaKind = "photo"
	MediaKindVideo    MediaKind = "video"
	MediaKindDocument MediaKind = "document"
	MediaKindWebPage  MediaKind = "webpage"
	MediaKindGeo      MediaKind = "geo"
	MediaKindContact  MediaKind = "contact"
)

// MediaItem describes one media attachment: a kind tag plus an opaque
// platform reference (Bot API file_id, URL or geo/contact URI)
type MediaItem struct {
	Kind MediaKind `json:"kind"`
	Ref  string    `json:"ref"`
}

// RawMessageEvent is one physical message as decoded at the ingestion
// boundary. GroupedID is non-zero only when the message is part of an
// album; GroupSize carries the platform's completeness hint when known.
type RawMessageEvent struct {
	ChannelID   string
	ChannelName string
	MessageID   int
	GroupedID   int64
	GroupSize   int
	Text        string
	Media       []MediaItem
	Date        time.Time
	ForwardFrom string
}

// HasMedia reports whether the event carries at least one media item
func (e *RawMessageEvent) HasMedia() bool {
	return len(e.Media) > 0
}

// RejectReason classifies why the processor dropped a message
type RejectReason string

const (
	// RejectNone means the message was accepted
	RejectNone RejectReason = ""

	RejectEmpty           RejectReason = "empty"
	RejectTooShort        RejectReason = "too_short"
	RejectKeywordMismatch RejectReason = "keyword_mismatch"
	RejectExcludedWord    RejectReason = "excluded_word"
)

// ProcessedMessage is a validated, normalized physical message ready for
// aggregation or direct emission
type ProcessedMessage struct {
	ChannelID   string
	ChannelName string
	MessageID   int
	GroupedID   int64
	GroupSize   int
	Text        string
	Media       []MediaItem
	Link        string
	Date        time.Time
}

// CandidatePost is the assembled logical post handed to the downstream
// classification pipeline. MessageIDs and Media are in arrival order;
// Link points at the first physical message of the post.
type CandidatePost struct {
	ID           string      `json:"id"`
	ChannelID    string      `json:"channel_id"`
	ChannelName  string      `json:"channel_name"`
	MessageIDs   []int       `json:"message_ids"`
	Text         string      `json:"text"`
	Media        []MediaItem `json:"media"`
	Link         string      `json:"link"`
	DiscoveredAt time.Time   `json:"discovered_at"`
}

// NewCandidatePost assembles a post from already-processed members.
// Contributing message IDs and media are expected in arrival order.
func NewCandidatePost(channelID, channelName string, messageIDs []int, text string, media []MediaItem, link string) *CandidatePost {
	return &CandidatePost{
		ID:           uuid.NewString(),
		ChannelID:    channelID,
		ChannelName:  channelName,
		MessageIDs:   messageIDs,
		Text:         text,
		Media:        media,
		Link:         link,
		DiscoveredAt: time.Now().UTC(),
	}
}

// IsWellFormed reports whether the post satisfies the output invariant:
// non-empty text or at least one media item
func (p *CandidatePost) IsWellFormed() bool {
	return p.Text != "" || len(p.Media) > 0
}

// ChannelInfo represents resolved metadata about a Telegram channel
type ChannelInfo struct {
	ID       string
	Username string
	Title    string
	About    string
}
