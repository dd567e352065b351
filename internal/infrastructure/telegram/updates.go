package telegram

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gotd/td/tg"

	"github.com/yourusername/telegram-post-scout/scout-service/internal/domain"
	"github.com/yourusername/telegram-post-scout/scout-service/internal/infrastructure/telegram/fileid"
)

// buildDispatcher wires the raw update stream into the event handler.
// Only new channel messages are of interest; every other update kind
// is left to the gaps engine for state tracking.
func (g *Gateway) buildDispatcher() tg.UpdateDispatcher {
	dispatcher := tg.NewUpdateDispatcher()

	dispatcher.OnNewChannelMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateNewChannelMessage) error {
		msg, ok := u.Message.(*tg.Message)
		if !ok {
			// Service messages (joins, pins, etc.) carry no content
			return nil
		}

		ev := decodeChannelMessage(e, msg)
		if ev == nil {
			return nil
		}

		g.handlerMu.RLock()
		handler := g.handler
		g.handlerMu.RUnlock()

		if handler == nil {
			g.logger.Warn().
				Str("channel_id", ev.ChannelID).
				Int("message_id", ev.MessageID).
				Msg("no event handler installed, dropping update")
			return nil
		}

		handler(ctx, ev)
		return nil
	})

	return dispatcher
}

// decodeChannelMessage converts a raw MTProto channel message into a
// domain event. Returns nil when the message does not originate from a
// channel post.
func decodeChannelMessage(e tg.Entities, msg *tg.Message) *domain.RawMessageEvent {
	peer, ok := msg.PeerID.(*tg.PeerChannel)
	if !ok {
		return nil
	}

	channelID, channelName := channelIdentity(e, peer.ChannelID)

	ev := &domain.RawMessageEvent{
		ChannelID:   channelID,
		ChannelName: channelName,
		MessageID:   msg.ID,
		Text:        msg.Message,
		Date:        time.Unix(int64(msg.Date), 0).UTC(),
	}

	if groupedID, ok := msg.GetGroupedID(); ok {
		ev.GroupedID = groupedID
	}

	if fwd, ok := msg.GetFwdFrom(); ok {
		ev.ForwardFrom = forwardOrigin(e, fwd)
	}

	if msg.Media != nil {
		if item, ok := decodeMedia(msg.Media); ok {
			ev.Media = append(ev.Media, item)
		}
	}

	return ev
}

// channelIdentity returns the stable channel reference (@username when
// public, decimal ID otherwise) plus the display title, both from the
// entities attached to the update.
func channelIdentity(e tg.Entities, channelID int64) (string, string) {
	if channel, ok := e.Channels[channelID]; ok {
		if channel.Username != "" {
			return "@" + channel.Username, channel.Title
		}
		return strconv.FormatInt(channelID, 10), channel.Title
	}
	return strconv.FormatInt(channelID, 10), ""
}

// forwardOrigin extracts a human-readable forward source
func forwardOrigin(e tg.Entities, fwd tg.MessageFwdHeader) string {
	if name, ok := fwd.GetFromName(); ok && name != "" {
		return name
	}
	if from, ok := fwd.GetFromID(); ok {
		if peer, ok := from.(*tg.PeerChannel); ok {
			if channel, ok := e.Channels[peer.ChannelID]; ok {
				return channel.Title
			}
			return strconv.FormatInt(peer.ChannelID, 10)
		}
	}
	return ""
}

// decodeMedia maps an MTProto media attachment to a media item with an
// opaque reference. Photos and documents get a Bot API compatible
// file_id; web pages keep their URL; geo and contact get URI forms.
// Unsupported media kinds are skipped, not treated as errors.
func decodeMedia(media tg.MessageMediaClass) (domain.MediaItem, bool) {
	switch m := media.(type) {
	case *tg.MessageMediaPhoto:
		photo, ok := m.Photo.(*tg.Photo)
		if !ok {
			return domain.MediaItem{}, false
		}
		return domain.MediaItem{
			Kind: domain.MediaKindPhoto,
			Ref:  fileid.EncodePhotoFileID(photo),
		}, true

	case *tg.MessageMediaDocument:
		doc, ok := m.Document.(*tg.Document)
		if !ok {
			return domain.MediaItem{}, false
		}
		docType := fileid.DetectDocumentType(doc)
		kind := domain.MediaKindDocument
		switch docType {
		case fileid.TypeVideo, fileid.TypeVideoNote, fileid.TypeAnimation:
			kind = domain.MediaKindVideo
		}
		return domain.MediaItem{
			Kind: kind,
			Ref:  fileid.EncodeDocumentFileID(doc, docType),
		}, true

	case *tg.MessageMediaWebPage:
		page, ok := m.Webpage.(*tg.WebPage)
		if !ok {
			return domain.MediaItem{}, false
		}
		return domain.MediaItem{
			Kind: domain.MediaKindWebPage,
			Ref:  page.URL,
		}, true

	case *tg.MessageMediaGeo:
		point, ok := m.Geo.(*tg.GeoPoint)
		if !ok {
			return domain.MediaItem{}, false
		}
		return domain.MediaItem{
			Kind: domain.MediaKindGeo,
			Ref:  fmt.Sprintf("geo:%f,%f", point.Lat, point.Long),
		}, true

	case *tg.MessageMediaContact:
		return domain.MediaItem{
			Kind: domain.MediaKindContact,
			Ref:  "tel:" + m.PhoneNumber,
		}, true
	}

	return domain.MediaItem{}, false
}
