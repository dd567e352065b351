package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"github.com/yourusername/telegram-post-scout/scout-service/internal/domain"
)

// maxStoredErrors caps the in-memory error list so a long-running
// producer with a flaky broker cannot grow without bound
const maxStoredErrors = 100

// CandidateProducer sends candidate posts to Kafka using an async
// producer: snappy compression, idempotent mode, hash partitioning by
// channel_id so posts from one channel stay ordered.
type CandidateProducer struct {
	producer  sarama.AsyncProducer
	topic     string
	logger    zerolog.Logger
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
	closed    bool
	closeMu   sync.Mutex
	errors    []error
	errorsMu  sync.Mutex
}

// ProducerConfig holds configuration for the Kafka producer
type ProducerConfig struct {
	Brokers         []string
	Topic           string
	Logger          zerolog.Logger
	MaxMessageBytes int
	MaxRetries      int
}

// ValidateBrokers checks if Kafka brokers are accessible
func ValidateBrokers(brokers []string) error {
	if len(brokers) == 0 {
		return fmt.Errorf("no brokers specified")
	}

	config := sarama.NewConfig()
	config.Version = sarama.V2_6_0_0

	client, err := sarama.NewClient(brokers, config)
	if err != nil {
		return fmt.Errorf("failed to connect to Kafka brokers: %w", err)
	}
	defer client.Close()

	if err := client.RefreshMetadata(); err != nil {
		return fmt.Errorf("failed to refresh metadata from Kafka: %w", err)
	}

	return nil
}

// NewCandidateProducer creates a Kafka producer for candidate posts
func NewCandidateProducer(cfg ProducerConfig) (*CandidateProducer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers specified")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}

	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = 1000000
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}

	config := sarama.NewConfig()

	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true
	config.Producer.Compression = sarama.CompressionSnappy

	// Idempotent mode gives at-least-once delivery with broker-side
	// deduplication; WaitForAll and one open request are required for it
	config.Producer.Idempotent = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Net.MaxOpenRequests = 1
	config.Producer.MaxMessageBytes = cfg.MaxMessageBytes
	config.Producer.Retry.Max = cfg.MaxRetries

	// Hash by channel_id for per-channel ordering
	config.Producer.Partitioner = sarama.NewHashPartitioner

	config.ClientID = "scout-service-producer"
	config.Version = sarama.V2_6_0_0

	producer, err := sarama.NewAsyncProducer(cfg.Brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	cp := &CandidateProducer{
		producer: producer,
		topic:    cfg.Topic,
		logger:   cfg.Logger.With().Str("component", "kafka_producer").Logger(),
		errors:   make([]error, 0),
	}

	cp.wg.Add(2)
	go cp.handleSuccesses()
	go cp.handleErrors()

	cp.logger.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic", cfg.Topic).
		Int("max_message_bytes", cfg.MaxMessageBytes).
		Int("max_retries", cfg.MaxRetries).
		Msg("Kafka producer initialized")

	return cp, nil
}

// SubmitCandidate queues a candidate post for asynchronous delivery.
// The post is validated and marshalled here; actual broker errors are
// handled asynchronously via the error channel.
func (p *CandidateProducer) SubmitCandidate(ctx context.Context, post *domain.CandidatePost) error {
	if post == nil {
		return fmt.Errorf("candidate post is nil")
	}
	if err := validateCandidatePost(post); err != nil {
		return fmt.Errorf("invalid candidate post: %w", err)
	}

	p.closeMu.Lock()
	if p.closed {
		p.closeMu.Unlock()
		return domain.ErrProducerClosed
	}
	p.closeMu.Unlock()

	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled before sending: %w", ctx.Err())
	default:
	}

	value, err := json.Marshal(post)
	if err != nil {
		return fmt.Errorf("failed to marshal candidate post: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(post.ChannelID),
		Value:     sarama.ByteEncoder(value),
		Timestamp: post.DiscoveredAt,
	}

	select {
	case p.producer.Input() <- msg:
		p.logger.Debug().
			Str("post_id", post.ID).
			Str("channel_id", post.ChannelID).
			Ints("message_ids", post.MessageIDs).
			Msg("candidate post queued for Kafka")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context cancelled while sending message: %w", ctx.Err())
	}
}

func validateCandidatePost(post *domain.CandidatePost) error {
	if post.ChannelID == "" {
		return fmt.Errorf("channel_id is required")
	}
	if len(post.MessageIDs) == 0 {
		return fmt.Errorf("at least one message_id is required")
	}
	if !post.IsWellFormed() {
		return fmt.Errorf("post must carry text or media")
	}
	return nil
}

func (p *CandidateProducer) handleSuccesses() {
	defer p.wg.Done()

	for msg := range p.producer.Successes() {
		p.logger.Debug().
			Str("topic", msg.Topic).
			Int32("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("message sent to Kafka")
	}

	p.logger.Info().Msg("success handler stopped")
}

func (p *CandidateProducer) handleErrors() {
	defer p.wg.Done()

	for producerErr := range p.producer.Errors() {
		p.logger.Error().
			Err(producerErr.Err).
			Str("topic", producerErr.Msg.Topic).
			Interface("key", producerErr.Msg.Key).
			Msg("failed to send message to Kafka")

		p.errorsMu.Lock()
		if len(p.errors) < maxStoredErrors {
			p.errors = append(p.errors, producerErr.Err)
		} else if len(p.errors) == maxStoredErrors {
			p.logger.Warn().
				Int("max_errors", maxStoredErrors).
				Msg("maximum stored errors limit reached, subsequent errors will be dropped")
			p.errors = append(p.errors, fmt.Errorf("max errors limit reached, subsequent errors dropped"))
		}
		p.errorsMu.Unlock()
	}

	p.logger.Info().Msg("error handler stopped")
}

// IsHealthy reports whether the producer can still accept posts
func (p *CandidateProducer) IsHealthy() bool {
	if p.producer == nil {
		return false
	}

	p.closeMu.Lock()
	isClosed := p.closed
	p.closeMu.Unlock()
	if isClosed {
		return false
	}

	p.errorsMu.Lock()
	errorCount := len(p.errors)
	p.errorsMu.Unlock()

	return errorCount < maxStoredErrors
}

// Close gracefully shuts down the producer with a 10-second timeout
func (p *CandidateProducer) Close() error {
	return p.CloseWithTimeout(10 * time.Second)
}

// CloseWithTimeout shuts down the producer, flushing pending messages.
// Idempotent; later calls return the first close result.
func (p *CandidateProducer) CloseWithTimeout(timeout time.Duration) error {
	p.closeOnce.Do(func() {
		p.logger.Info().
			Dur("timeout", timeout).
			Msg("closing Kafka producer")

		p.closeMu.Lock()
		p.closed = true
		p.closeMu.Unlock()

		var errs []error

		// Close flushes all pending messages, then closes the Input,
		// Successes and Errors channels the handlers read from
		if err := p.producer.Close(); err != nil {
			p.logger.Error().Err(err).Msg("error closing Kafka producer")
			errs = append(errs, fmt.Errorf("producer close failed: %w", err))
		}

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			p.logger.Debug().Msg("all handler goroutines finished")
		case <-time.After(timeout):
			p.logger.Error().
				Dur("timeout", timeout).
				Msg("timeout waiting for handlers to finish")
			errs = append(errs, fmt.Errorf("close timeout after %s: handlers did not finish in time", timeout))
		}

		p.errorsMu.Lock()
		errorCount := len(p.errors)
		p.errorsMu.Unlock()

		if errorCount > 0 {
			errs = append(errs, fmt.Errorf("producer had %d send errors during operation", errorCount))
		}

		p.closeMu.Lock()
		switch len(errs) {
		case 0:
			p.logger.Info().Msg("Kafka producer closed")
		case 1:
			p.closeErr = errs[0]
		default:
			errMsg := "multiple errors during close:"
			for i, err := range errs {
				errMsg += fmt.Sprintf(" [%d] %v;", i+1, err)
			}
			p.closeErr = fmt.Errorf("%s", errMsg)
		}
		if p.closeErr != nil {
			p.logger.Error().Err(p.closeErr).Msg("Kafka producer closed with errors")
		}
		p.closeMu.Unlock()
	})

	p.closeMu.Lock()
	defer p.closeMu.Unlock()
	return p.closeErr
}

// Ensure CandidateProducer implements domain.CandidateProducer interface
var _ domain.CandidateProducer = (*CandidateProducer)(nil)
