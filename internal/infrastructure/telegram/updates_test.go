package telegram

import (
	"testing"

	"github.com/gotd/td/tg"

	"github.com/yourusername/telegram-post-scout/scout-service/internal/domain"
)

func channelEntities(id int64, username, title string) tg.Entities {
	return tg.Entities{
		Channels: map[int64]*tg.Channel{
			id: {ID: id, Username: username, Title: title},
		},
	}
}

func TestDecodeChannelMessage_TextPost(t *testing.T) {
	e := channelEntities(1234, "cars", "Cars Channel")
	msg := &tg.Message{
		ID:      42,
		PeerID:  &tg.PeerChannel{ChannelID: 1234},
		Message: "selling my car",
		Date:    1700000000,
	}

	ev := decodeChannelMessage(e, msg)
	if ev == nil {
		t.Fatal("expected an event")
	}
	if ev.ChannelID != "@cars" {
		t.Errorf("expected @cars, got %s", ev.ChannelID)
	}
	if ev.ChannelName != "Cars Channel" {
		t.Errorf("unexpected channel name: %s", ev.ChannelName)
	}
	if ev.MessageID != 42 || ev.Text != "selling my car" {
		t.Errorf("unexpected event: %+v", ev)
	}
	if ev.GroupedID != 0 {
		t.Errorf("standalone message must have no grouped ID, got %d", ev.GroupedID)
	}
}

func TestDecodeChannelMessage_PrivateChannelUsesNumericID(t *testing.T) {
	e := channelEntities(777, "", "Private Deals")
	msg := &tg.Message{
		ID:     5,
		PeerID: &tg.PeerChannel{ChannelID: 777},
	}

	ev := decodeChannelMessage(e, msg)
	if ev == nil {
		t.Fatal("expected an event")
	}
	if ev.ChannelID != "777" {
		t.Errorf("expected numeric channel ID, got %s", ev.ChannelID)
	}
}

func TestDecodeChannelMessage_AlbumMember(t *testing.T) {
	e := channelEntities(1234, "cars", "Cars Channel")
	msg := &tg.Message{
		ID:     43,
		PeerID: &tg.PeerChannel{ChannelID: 1234},
	}
	msg.SetGroupedID(555)

	ev := decodeChannelMessage(e, msg)
	if ev == nil {
		t.Fatal("expected an event")
	}
	if ev.GroupedID != 555 {
		t.Errorf("expected grouped ID 555, got %d", ev.GroupedID)
	}
}

func TestDecodeChannelMessage_NonChannelPeerSkipped(t *testing.T) {
	msg := &tg.Message{
		ID:      1,
		PeerID:  &tg.PeerUser{UserID: 99},
		Message: "direct message",
	}

	if ev := decodeChannelMessage(tg.Entities{}, msg); ev != nil {
		t.Errorf("expected nil for a non-channel peer, got %+v", ev)
	}
}

func TestDecodeMedia_Photo(t *testing.T) {
	media := &tg.MessageMediaPhoto{}
	media.SetPhoto(&tg.Photo{
		ID:         111,
		AccessHash: 222,
		DCID:       2,
		Sizes: []tg.PhotoSizeClass{
			&tg.PhotoSize{Type: "y", W: 1280, H: 960},
		},
	})

	item, ok := decodeMedia(media)
	if !ok {
		t.Fatal("expected photo media to decode")
	}
	if item.Kind != domain.MediaKindPhoto {
		t.Errorf("expected photo kind, got %s", item.Kind)
	}
	if item.Ref == "" {
		t.Error("expected non-empty file reference")
	}
}

func TestDecodeMedia_VideoDocument(t *testing.T) {
	media := &tg.MessageMediaDocument{}
	media.SetDocument(&tg.Document{
		ID:         333,
		AccessHash: 444,
		DCID:       2,
		Attributes: []tg.DocumentAttributeClass{
			&tg.DocumentAttributeVideo{W: 1280, H: 720},
		},
	})

	item, ok := decodeMedia(media)
	if !ok {
		t.Fatal("expected document media to decode")
	}
	if item.Kind != domain.MediaKindVideo {
		t.Errorf("expected video kind, got %s", item.Kind)
	}
	if item.Ref == "" {
		t.Error("expected non-empty file reference")
	}
}

func TestDecodeMedia_WebPage(t *testing.T) {
	media := &tg.MessageMediaWebPage{
		Webpage: &tg.WebPage{URL: "https://example.com/listing"},
	}

	item, ok := decodeMedia(media)
	if !ok {
		t.Fatal("expected web page media to decode")
	}
	if item.Kind != domain.MediaKindWebPage || item.Ref != "https://example.com/listing" {
		t.Errorf("unexpected item: %+v", item)
	}
}

func TestDecodeMedia_UnsupportedSkipped(t *testing.T) {
	if _, ok := decodeMedia(&tg.MessageMediaPoll{}); ok {
		t.Error("expected poll media to be skipped")
	}
}

func TestValidateChannelID(t *testing.T) {
	tests := []struct {
		name      string
		channelID string
		wantErr   bool
	}{
		{"username", "@cars", false},
		{"numeric", "123456", false},
		{"empty", "", true},
		{"bare word", "cars", true},
		{"mixed", "12ab", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateChannelID(tt.channelID)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateChannelID(%q) error = %v, wantErr %v", tt.channelID, err, tt.wantErr)
			}
		})
	}
}
