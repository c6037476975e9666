package kafka

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/policlinic/backoffice/internal/config"
	"github.com/policlinic/backoffice/internal/kafka"
	"github.com/policlinic/backoffice/internal/logger"
	"github.com/policlinic/backoffice/internal/pubsub"
)

type PubSub struct {
	producer *kafka.Producer
	consumer *kafka.Consumer
	config   *config.Configuration
	logger   *logger.Logger
}

// NewPubSub creates a new kafka-based pubsub
func NewPubSub(cfg *config.Configuration, logger *logger.Logger) (pubsub.PubSub, error) {
	producer, err := kafka.NewProducer(cfg)
	if err != nil {
		return nil, err
	}

	consumer, err := kafka.NewConsumer(cfg)
	if err != nil {
		_ = producer.Close()
		return nil, err
	}

	logger.Infow("kafka pubsub initialized",
		"brokers", cfg.Kafka.Brokers,
		"consumer_group", cfg.Kafka.ConsumerGroup,
	)

	return &PubSub{
		producer: producer,
		consumer: consumer,
		config:   cfg,
		logger:   logger,
	}, nil
}

func (p *PubSub) Publish(_ context.Context, topic string, msg *message.Message) error {
	return p.producer.Publish(topic, msg)
}

func (p *PubSub) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return p.consumer.Subscribe(ctx, topic)
}

// Close closes the pubsub
func (p *PubSub) Close() error {
	if err := p.producer.Close(); err != nil {
		p.logger.Errorw("failed to close kafka producer", "error", err)
	}
	return p.consumer.Close()
}
