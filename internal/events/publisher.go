package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// EventPublisher publishes domain events.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, data any) error
}

// WatermillPublisher wraps events in the Event envelope and hands them to watermill.
type WatermillPublisher struct {
	publisher message.Publisher
	logger    *slog.Logger
}

func NewWatermillPublisher(publisher message.Publisher, logger *slog.Logger) *WatermillPublisher {
	return &WatermillPublisher{publisher: publisher, logger: logger}
}

func (p *WatermillPublisher) Publish(ctx context.Context, topic string, data any) error {
	event, err := newEvent(topic, data)
	if err != nil {
		return err
	}
	event.ID = uuid.NewString()

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("event_type", topic)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "Event published", "topic", topic, "event_id", event.ID)
	return nil
}

// MockEventPublisher records events in memory for tests.
type MockEventPublisher struct {
	mu     sync.Mutex
	events []Event
	logger *slog.Logger
	Err    error
}

func NewMockEventPublisher(logger *slog.Logger) *MockEventPublisher {
	return &MockEventPublisher{logger: logger}
}

func (m *MockEventPublisher) Publish(ctx context.Context, topic string, data any) error {
	if m.Err != nil {
		return m.Err
	}
	event, err := newEvent(topic, data)
	if err != nil {
		return err
	}
	event.ID = uuid.NewString()

	m.mu.Lock()
	m.events = append(m.events, *event)
	m.mu.Unlock()

	m.logger.DebugContext(ctx, "Mock event published", "topic", topic)
	return nil
}

func (m *MockEventPublisher) GetPublishedEvents() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

func (m *MockEventPublisher) ClearEvents() {
	m.mu.Lock()
	m.events = nil
	m.mu.Unlock()
}
