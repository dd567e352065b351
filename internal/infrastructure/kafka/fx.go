package kafka

import (
	"context"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/yourusername/telegram-post-scout/scout-service/config"
	"github.com/yourusername/telegram-post-scout/scout-service/internal/domain"
)

// Module provides the Kafka producer for fx DI
var Module = fx.Module("kafka",
	fx.Provide(NewCandidateProducerFx),
)

// NewCandidateProducerFx creates the candidate post producer for fx DI
func NewCandidateProducerFx(
	lc fx.Lifecycle,
	kafkaCfg *config.KafkaConfig,
	logger zerolog.Logger,
) (domain.CandidateProducer, error) {
	producer, err := NewCandidateProducer(ProducerConfig{
		Brokers: kafkaCfg.Brokers,
		Topic:   kafkaCfg.TopicCandidates,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return producer.Close()
		},
	})

	return producer, nil
}
