package domain

import "errors"

var (
	// ErrChannelNotFound is returned when channel is not found in the registry
	ErrChannelNotFound = errors.New("channel not found")

	// ErrInvalidChannelID is returned when channel ID is invalid
	ErrInvalidChannelID = errors.New("invalid channel ID")

	// ErrMalformedEvent is returned when a raw event misses required fields
	ErrMalformedEvent = errors.New("malformed event")

	// ErrSubscriptionFailed is returned when joining a channel fails
	ErrSubscriptionFailed = errors.New("subscription failed")

	// ErrNotConnected is returned when operation requires a Telegram connection
	ErrNotConnected = errors.New("not connected to Telegram")

	// ErrProducerClosed is returned when submitting after the producer shut down
	ErrProducerClosed = errors.New("producer is closed")

	// ErrFloodWait is returned when Telegram requires a flood wait
	ErrFloodWait = errors.New("flood wait required")
)
