package configstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/yourusername/telegram-post-scout/scout-service/config"
	"github.com/yourusername/telegram-post-scout/scout-service/internal/domain/channels/deps"
	"github.com/yourusername/telegram-post-scout/scout-service/internal/domain/channels/entities"
)

// channelsEnvelope is the config store API response wrapper
type channelsEnvelope struct {
	Success bool                     `json:"success"`
	Data    []entities.ChannelConfig `json:"data"`
	Error   string                   `json:"error"`
}

// Client fetches channel configuration from the config store service
type Client struct {
	httpClient *fasthttp.Client
	baseURL    string
	timeout    time.Duration
	logger     zerolog.Logger
}

// NewClient creates a config store client
func NewClient(cfg *config.ConfigStoreConfig, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &fasthttp.Client{
			MaxIdleConnDuration: time.Minute,
		},
		baseURL: cfg.BaseURL,
		timeout: cfg.RequestTimeout,
		logger:  logger.With().Str("component", "configstore_client").Logger(),
	}
}

// ListActiveChannels returns the channels the service should monitor.
// A non-2xx response or a malformed body is an error; the caller keeps
// its previous channel set in that case.
func (c *Client) ListActiveChannels(ctx context.Context) ([]entities.ChannelConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + "/api/v1/channels/active")
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	if err := c.httpClient.DoTimeout(req, resp, c.timeout); err != nil {
		return nil, fmt.Errorf("config store request failed: %w", err)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("config store returned status %d", resp.StatusCode())
	}

	channels, err := parseChannels(resp.Body())
	if err != nil {
		return nil, err
	}

	c.logger.Debug().Int("channels", len(channels)).Msg("fetched active channels")
	return channels, nil
}

// parseChannels decodes the config store response body
func parseChannels(body []byte) ([]entities.ChannelConfig, error) {
	var envelope channelsEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode config store response: %w", err)
	}
	if !envelope.Success {
		return nil, fmt.Errorf("config store reported failure: %s", envelope.Error)
	}
	return envelope.Data, nil
}

// Ensure Client implements the config store dependency interface
var _ deps.ConfigStoreClient = (*Client)(nil)
