package domain

import "context"

// CandidateProducer hands finished candidate posts to the downstream
// pipeline. Submission is fire-and-forget: the implementation must not
// block indefinitely when the consumer is unavailable.
type CandidateProducer interface {
	SubmitCandidate(ctx context.Context, post *CandidatePost) error
	IsHealthy() bool
	Close() error
}

// ChannelGateway is the Telegram-facing surface the monitoring pipeline
// depends on. Implementations rate-limit every outbound platform call.
type ChannelGateway interface {
	JoinChannel(ctx context.Context, channelID string) error
	LeaveChannel(ctx context.Context, channelID string) error
	ResolveChannelInfo(ctx context.Context, channelID string) (*ChannelInfo, error)
	IsConnected() bool
}
