package http

import (
	"time"

	"github.com/valyala/fasthttp"

	"github.com/yourusername/telegram-post-scout/scout-service/internal/domain"
	"github.com/yourusername/telegram-post-scout/scout-service/pkg/httputil"
)

// staleAfter is how long without any update before the stream is
// considered stalled. Quiet channels make short windows false-alarm.
const staleAfter = 10 * time.Minute

// StreamHealth exposes the monitor's liveness view to the health check
type StreamHealth interface {
	IsHealthy(staleAfter time.Duration) bool
	LastUpdateTime() time.Time
	SubmittedCount() int64
}

// HealthStatus is the health endpoint response body
type HealthStatus struct {
	Status         string    `json:"status"`
	TelegramOK     bool      `json:"telegram_connected"`
	ProducerOK     bool      `json:"producer_healthy"`
	StreamOK       bool      `json:"stream_recent"`
	LastUpdateTime time.Time `json:"last_update_time"`
	SubmittedPosts int64     `json:"submitted_posts"`
}

// HealthHandler aggregates component health into one endpoint
type HealthHandler struct {
	gateway  domain.ChannelGateway
	producer domain.CandidateProducer
	stream   StreamHealth
}

// NewHealthHandler creates the health handler
func NewHealthHandler(
	gateway domain.ChannelGateway,
	producer domain.CandidateProducer,
	stream StreamHealth,
) *HealthHandler {
	return &HealthHandler{
		gateway:  gateway,
		producer: producer,
		stream:   stream,
	}
}

// Handle reports component health. Degraded components turn the
// response into a 503 so orchestrators can restart the service.
func (h *HealthHandler) Handle(ctx *fasthttp.RequestCtx) {
	status := HealthStatus{
		TelegramOK:     h.gateway.IsConnected(),
		ProducerOK:     h.producer.IsHealthy(),
		StreamOK:       h.stream.IsHealthy(staleAfter),
		LastUpdateTime: h.stream.LastUpdateTime(),
		SubmittedPosts: h.stream.SubmittedCount(),
	}

	if status.TelegramOK && status.ProducerOK && status.StreamOK {
		status.Status = "ok"
		httputil.WriteResponse(ctx, status)
		return
	}

	status.Status = "degraded"
	httputil.WriteResponseWithStatus(ctx, status, fasthttp.StatusServiceUnavailable)
}
