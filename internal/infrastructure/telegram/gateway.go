package telegram

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/updates"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"github.com/rs/zerolog"

	"github.com/yourusername/telegram-post-scout/scout-service/internal/domain"
	"github.com/yourusername/telegram-post-scout/scout-service/internal/infrastructure/metrics"
	"github.com/yourusername/telegram-post-scout/scout-service/internal/infrastructure/ratelimit"
	"github.com/yourusername/telegram-post-scout/scout-service/internal/utils"
)

// EventHandler receives every decoded channel message event
type EventHandler func(ctx context.Context, ev *domain.RawMessageEvent)

// Gateway implements domain.ChannelGateway over MTProto using gotd/td.
// Incoming channel updates are decoded into domain events and handed to
// the configured EventHandler; the updates engine recovers gaps from
// the persisted pts state after a reconnect.
type Gateway struct {
	client *telegram.Client

	apiID   int
	apiHash string
	phone   string

	sessionStorage *FileSessionStorage
	stateStorage   *FileStateStorage
	gaps           *updates.Manager

	handler   EventHandler
	handlerMu sync.RWMutex

	connected     bool
	disconnecting bool
	mu            sync.RWMutex
	cancelFunc    context.CancelFunc
	runDone       chan struct{}

	api     *tg.Client
	limiter *ratelimit.Limiter
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// GatewayConfig holds configuration for the MTProto gateway
type GatewayConfig struct {
	APIID      int
	APIHash    string
	Phone      string
	SessionDir string
}

// NewGateway creates the MTProto gateway. The event handler must be set
// with SetHandler before Connect, otherwise decoded events are dropped.
func NewGateway(cfg GatewayConfig, limiter *ratelimit.Limiter, logger zerolog.Logger, m *metrics.Metrics) (*Gateway, error) {
	if cfg.APIID == 0 {
		return nil, fmt.Errorf("APIID is required")
	}
	if cfg.APIHash == "" {
		return nil, fmt.Errorf("APIHash is required")
	}
	if cfg.Phone == "" {
		return nil, fmt.Errorf("Phone is required")
	}
	if cfg.SessionDir == "" {
		cfg.SessionDir = "./sessions"
	}

	sessionStorage, err := NewFileSessionStorage(cfg.SessionDir, cfg.Phone)
	if err != nil {
		return nil, fmt.Errorf("failed to create session storage: %w", err)
	}
	stateStorage, err := NewFileStateStorage(cfg.SessionDir, cfg.Phone)
	if err != nil {
		return nil, fmt.Errorf("failed to create updates state storage: %w", err)
	}

	g := &Gateway{
		apiID:          cfg.APIID,
		apiHash:        cfg.APIHash,
		phone:          cfg.Phone,
		sessionStorage: sessionStorage,
		stateStorage:   stateStorage,
		limiter:        limiter,
		logger: logger.With().
			Str("component", "telegram_gateway").
			Str("phone", utils.MaskPhoneNumber(cfg.Phone)).
			Logger(),
		metrics: m,
	}

	return g, nil
}

// SetHandler installs the callback for decoded channel message events.
// Must be called before Connect.
func (g *Gateway) SetHandler(h EventHandler) {
	g.handlerMu.Lock()
	defer g.handlerMu.Unlock()
	g.handler = h
}

// Connect connects to Telegram and starts the update stream.
// The caller should provide a context with timeout to prevent indefinite
// hanging; a few minutes if interactive authentication may be needed.
func (g *Gateway) Connect(ctx context.Context) error {
	g.mu.Lock()
	if g.connected {
		g.mu.Unlock()
		g.logger.Debug().Msg("already connected")
		return nil
	}
	if g.disconnecting {
		g.mu.Unlock()
		return fmt.Errorf("disconnect in progress, cannot connect")
	}
	// Keep the lock to prevent concurrent connection attempts
	defer g.mu.Unlock()

	g.logger.Info().Msg("connecting to Telegram")

	g.gaps = updates.New(updates.Config{
		Handler: g.buildDispatcher(),
		Storage: g.stateStorage,
	})

	g.client = telegram.NewClient(g.apiID, g.apiHash, telegram.Options{
		SessionStorage: g.sessionStorage,
		UpdateHandler:  g.gaps,
	})

	clientCtx, cancel := context.WithCancel(context.Background())
	g.cancelFunc = cancel

	readyChan := make(chan struct{})
	errChan := make(chan error, 1)
	started := make(chan struct{})
	g.runDone = make(chan struct{})

	go func() {
		defer close(g.runDone)
		close(started)
		err := g.client.Run(clientCtx, func(ctx context.Context) error {
			g.api = g.client.API()

			status, err := g.client.Auth().Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to check auth status: %w", err)
			}
			if !status.Authorized {
				g.logger.Info().Msg("not authorized, starting authentication")
				if err := g.authenticateWithRetry(ctx, 3); err != nil {
					g.logger.Error().Err(err).Msg("authentication failed")
					return err
				}
			} else {
				g.logger.Info().Msg("session restored from storage")
			}

			self, err := g.client.Self(ctx)
			if err != nil {
				return fmt.Errorf("failed to get self user: %w", err)
			}

			// Blocks until the context is cancelled; OnStart fires once
			// the update engine has recovered any missed updates
			return g.gaps.Run(ctx, g.api, self.ID, updates.AuthOptions{
				OnStart: func(ctx context.Context) {
					g.connected = true
					g.logger.Info().Msg("connected, update stream running")
					close(readyChan)
				},
			})
		})
		select {
		case errChan <- err:
		default:
		}
	}()

	<-started

	select {
	case <-readyChan:
		return nil
	case err := <-errChan:
		cancel()
		if err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		return nil
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}
}

// Disconnect stops the update stream and disconnects. The session and
// the updates state are persisted by the storages before shutdown.
// Safe to call multiple times and from multiple goroutines.
func (g *Gateway) Disconnect(ctx context.Context) error {
	g.mu.Lock()

	if g.disconnecting {
		g.mu.Unlock()
		g.logger.Debug().Msg("disconnect already in progress")
		return nil
	}
	if !g.connected {
		g.mu.Unlock()
		g.logger.Debug().Msg("already disconnected")
		return nil
	}

	g.logger.Info().Msg("disconnecting from Telegram")

	g.disconnecting = true
	cancelFunc := g.cancelFunc
	runDone := g.runDone
	g.mu.Unlock()

	if cancelFunc != nil {
		cancelFunc()

		if runDone != nil {
			select {
			case <-runDone:
				g.logger.Debug().Msg("client stopped gracefully")
			case <-ctx.Done():
				g.logger.Warn().Msg("disconnect timeout reached while waiting for client shutdown")
			}
		}
	}

	g.mu.Lock()
	g.client = nil
	g.api = nil
	g.gaps = nil
	g.connected = false
	g.cancelFunc = nil
	g.runDone = nil
	g.disconnecting = false
	g.mu.Unlock()

	g.logger.Info().Msg("disconnected from Telegram")
	return nil
}

// IsConnected reports whether the update stream is running
func (g *Gateway) IsConnected() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.connected
}

// validateChannelID accepts @username or a bare numeric channel ID
func validateChannelID(channelID string) error {
	if channelID == "" {
		return domain.ErrInvalidChannelID
	}
	if !strings.HasPrefix(channelID, "@") && !isNumeric(channelID) {
		return domain.ErrInvalidChannelID
	}
	return nil
}

func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// invoke runs one API call through the rate limiter. A FLOOD_WAIT
// response is honored once: wait the server-mandated duration and
// retry, then give up and surface the error.
func (g *Gateway) invoke(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if err := g.limiter.Acquire(ctx); err != nil {
		return fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	err := fn(ctx)
	if wait, ok := tgerr.AsFloodWait(err); ok {
		g.metrics.RecordFloodWait()
		g.logger.Warn().
			Str("operation", op).
			Dur("wait", wait).
			Msg("flood wait, delaying retry")

		select {
		case <-time.After(wait + time.Second):
		case <-ctx.Done():
			return fmt.Errorf("%w: %s", domain.ErrFloodWait, op)
		}

		if err := g.limiter.Acquire(ctx); err != nil {
			return fmt.Errorf("rate limit wait cancelled: %w", err)
		}
		err = fn(ctx)
	}
	return err
}

// resolveChannel resolves a channel reference to InputChannel.
// Only @username references can be resolved from scratch; numeric IDs
// would require an access hash obtained elsewhere.
func (g *Gateway) resolveChannel(ctx context.Context, channelID string) (*tg.InputChannel, error) {
	if !strings.HasPrefix(channelID, "@") {
		return nil, fmt.Errorf("%w: numeric ID needs an access hash, use @username", domain.ErrChannelNotFound)
	}

	username := strings.TrimPrefix(channelID, "@")
	var resolved *tg.ContactsResolvedPeer
	err := g.invoke(ctx, "contacts.resolveUsername", func(ctx context.Context) error {
		var err error
		resolved, err = g.api.ContactsResolveUsername(ctx, username)
		return err
	})
	if err != nil {
		if tgerr.Is(err, "USERNAME_NOT_OCCUPIED", "USERNAME_INVALID") {
			return nil, fmt.Errorf("%w: %s", domain.ErrChannelNotFound, channelID)
		}
		g.logger.Error().Err(err).Str("channel_id", channelID).Msg("failed to resolve channel")
		return nil, fmt.Errorf("failed to resolve channel: %w", err)
	}

	for _, chat := range resolved.Chats {
		if channel, ok := chat.(*tg.Channel); ok {
			return &tg.InputChannel{
				ChannelID:  channel.ID,
				AccessHash: channel.AccessHash,
			}, nil
		}
	}

	return nil, fmt.Errorf("%w: %s is not a channel", domain.ErrChannelNotFound, channelID)
}

// JoinChannel subscribes the account to a channel so its messages show
// up on the update stream. The caller should provide a context with
// timeout to prevent hanging operations.
func (g *Gateway) JoinChannel(ctx context.Context, channelID string) error {
	if err := validateChannelID(channelID); err != nil {
		return err
	}

	g.mu.RLock()
	if !g.connected || g.api == nil {
		g.mu.RUnlock()
		return domain.ErrNotConnected
	}
	g.mu.RUnlock()

	g.logger.Info().Str("channel_id", channelID).Msg("joining channel")

	inputChannel, err := g.resolveChannel(ctx, channelID)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSubscriptionFailed, err)
	}

	err = g.invoke(ctx, "channels.joinChannel", func(ctx context.Context) error {
		_, err := g.api.ChannelsJoinChannel(ctx, inputChannel)
		return err
	})
	if err != nil {
		g.logger.Error().Err(err).Str("channel_id", channelID).Msg("failed to join channel")
		return fmt.Errorf("%w: %v", domain.ErrSubscriptionFailed, err)
	}

	g.logger.Info().Str("channel_id", channelID).Msg("joined channel")
	return nil
}

// LeaveChannel unsubscribes the account from a channel
func (g *Gateway) LeaveChannel(ctx context.Context, channelID string) error {
	if err := validateChannelID(channelID); err != nil {
		return err
	}

	g.mu.RLock()
	if !g.connected || g.api == nil {
		g.mu.RUnlock()
		return domain.ErrNotConnected
	}
	g.mu.RUnlock()

	g.logger.Info().Str("channel_id", channelID).Msg("leaving channel")

	inputChannel, err := g.resolveChannel(ctx, channelID)
	if err != nil {
		return err
	}

	err = g.invoke(ctx, "channels.leaveChannel", func(ctx context.Context) error {
		_, err := g.api.ChannelsLeaveChannel(ctx, inputChannel)
		return err
	})
	if err != nil {
		g.logger.Error().Err(err).Str("channel_id", channelID).Msg("failed to leave channel")
		return fmt.Errorf("failed to leave channel: %w", err)
	}

	g.logger.Info().Str("channel_id", channelID).Msg("left channel")
	return nil
}

// ResolveChannelInfo fetches channel metadata for title enrichment
func (g *Gateway) ResolveChannelInfo(ctx context.Context, channelID string) (*domain.ChannelInfo, error) {
	if err := validateChannelID(channelID); err != nil {
		return nil, err
	}

	g.mu.RLock()
	if !g.connected || g.api == nil {
		g.mu.RUnlock()
		return nil, domain.ErrNotConnected
	}
	g.mu.RUnlock()

	if !strings.HasPrefix(channelID, "@") {
		return nil, fmt.Errorf("%w: numeric ID needs an access hash, use @username", domain.ErrChannelNotFound)
	}

	g.logger.Debug().Str("channel_id", channelID).Msg("fetching channel info")

	username := strings.TrimPrefix(channelID, "@")
	var resolved *tg.ContactsResolvedPeer
	err := g.invoke(ctx, "contacts.resolveUsername", func(ctx context.Context) error {
		var err error
		resolved, err = g.api.ContactsResolveUsername(ctx, username)
		return err
	})
	if err != nil {
		if tgerr.Is(err, "USERNAME_NOT_OCCUPIED", "USERNAME_INVALID") {
			return nil, fmt.Errorf("%w: %s", domain.ErrChannelNotFound, channelID)
		}
		g.logger.Error().Err(err).Str("channel_id", channelID).Msg("failed to resolve channel")
		return nil, fmt.Errorf("failed to resolve channel: %w", err)
	}

	for _, chat := range resolved.Chats {
		if channel, ok := chat.(*tg.Channel); ok {
			return &domain.ChannelInfo{
				ID:       channelID,
				Username: channel.Username,
				Title:    channel.Title,
			}, nil
		}
	}

	return nil, fmt.Errorf("%w: %s is not a channel", domain.ErrChannelNotFound, channelID)
}

// Ensure Gateway implements domain.ChannelGateway interface
var _ domain.ChannelGateway = (*Gateway)(nil)
