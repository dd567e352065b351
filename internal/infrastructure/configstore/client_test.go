package configstore

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/yourusername/telegram-post-scout/scout-service/config"
)

func newTestClient(t *testing.T, handler fasthttp.RequestHandler) *Client {
	t.Helper()

	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: handler}
	go srv.Serve(ln)
	t.Cleanup(func() { ln.Close() })

	client := NewClient(&config.ConfigStoreConfig{
		BaseURL:        "http://configstore",
		RequestTimeout: 2 * time.Second,
	}, zerolog.Nop())
	client.httpClient.Dial = func(addr string) (net.Conn, error) {
		return ln.Dial()
	}
	return client
}

func TestListActiveChannels(t *testing.T) {
	client := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) != "/api/v1/channels/active" {
			ctx.SetStatusCode(fasthttp.StatusNotFound)
			return
		}
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{
			"success": true,
			"data": [
				{"channel_id": "@cars", "title": "Cars", "is_active": true, "keywords": ["bmw"]},
				{"channel_id": "12345", "is_active": true}
			]
		}`)
	})

	channels, err := client.ListActiveChannels(context.Background())
	if err != nil {
		t.Fatalf("ListActiveChannels failed: %v", err)
	}
	if len(channels) != 2 {
		t.Fatalf("expected 2 channels, got %d", len(channels))
	}
	if channels[0].ChannelID != "@cars" || channels[0].Title != "Cars" {
		t.Errorf("unexpected first channel: %+v", channels[0])
	}
	if len(channels[0].Keywords) != 1 || channels[0].Keywords[0] != "bmw" {
		t.Errorf("unexpected keywords: %v", channels[0].Keywords)
	}
	if channels[1].ChannelID != "12345" {
		t.Errorf("unexpected second channel: %+v", channels[1])
	}
}

func TestListActiveChannels_ServerError(t *testing.T) {
	client := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
	})

	if _, err := client.ListActiveChannels(context.Background()); err == nil {
		t.Fatal("expected an error for a 500 response")
	}
}

func TestListActiveChannels_FailureEnvelope(t *testing.T) {
	client := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"success": false, "error": "store unavailable"}`)
	})

	if _, err := client.ListActiveChannels(context.Background()); err == nil {
		t.Fatal("expected an error for a failure envelope")
	}
}

func TestParseChannels_MalformedBody(t *testing.T) {
	if _, err := parseChannels([]byte("not json")); err == nil {
		t.Fatal("expected an error for malformed JSON")
	}
}

func TestListActiveChannels_CancelledContext(t *testing.T) {
	client := newTestClient(t, func(ctx *fasthttp.RequestCtx) {})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.ListActiveChannels(ctx); err == nil {
		t.Fatal("expected an error for a cancelled context")
	}
}
