package events

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/etraincon/learning-service/internal/config"
)

// PubSub bundles a publisher with a factory for per-handler subscribers.
type PubSub struct {
	Publisher message.Publisher

	newSubscriber func(name string) (message.Subscriber, error)
	closers       []func() error
}

// NewPubSub uses Kafka when brokers are configured and an in-process channel otherwise.
func NewPubSub(cfg config.EventsConfig, logger watermill.LoggerAdapter) (*PubSub, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return NewGoChannelPubSub(logger), nil
	}

	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   cfg.KafkaBrokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}

	ps := &PubSub{Publisher: publisher}
	ps.closers = append(ps.closers, publisher.Close)
	ps.newSubscriber = func(name string) (message.Subscriber, error) {
		// Each handler gets its own consumer group so every handler sees every message.
		sub, err := kafka.NewSubscriber(kafka.SubscriberConfig{
			Brokers:               cfg.KafkaBrokers,
			Unmarshaler:           kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: kafka.DefaultSaramaSubscriberConfig(),
			ConsumerGroup:         cfg.ConsumerGroup + "." + name,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create kafka subscriber %s: %w", name, err)
		}
		ps.closers = append(ps.closers, sub.Close)
		return sub, nil
	}
	return ps, nil
}

// NewGoChannelPubSub returns an in-process pub/sub. Messages published while nobody
// is subscribed are dropped.
func NewGoChannelPubSub(logger watermill.LoggerAdapter) *PubSub {
	ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, logger)
	return &PubSub{
		Publisher:     ch,
		newSubscriber: func(string) (message.Subscriber, error) { return ch, nil },
		closers:       []func() error{ch.Close},
	}
}

// Subscriber returns the subscriber for the named handler.
func (p *PubSub) Subscriber(name string) (message.Subscriber, error) {
	return p.newSubscriber(name)
}

func (p *PubSub) Close() error {
	var firstErr error
	for _, c := range p.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NewLogger adapts slog for watermill components.
func NewLogger(logger *slog.Logger) watermill.LoggerAdapter {
	return watermill.NewSlogLogger(logger)
}
