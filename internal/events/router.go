package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

// Handler consumes one topic.
type Handler struct {
	Name  string
	Topic string
	Func  message.NoPublishHandlerFunc
}

// NewRouter registers handlers on a watermill router. Each handler subscribes through
// its own subscriber. A message that still fails after the retries is logged and
// acked so it does not block the topic.
func NewRouter(ps *PubSub, logger *slog.Logger, handlers ...Handler) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: 10 * time.Second,
	}, NewLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create event router: %w", err)
	}

	router.AddMiddleware(
		dropFailed(logger),
		middleware.Retry{
			MaxRetries:      3,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			Multiplier:      2,
		}.Middleware,
		middleware.Recoverer,
	)

	for _, h := range handlers {
		sub, err := ps.Subscriber(h.Name)
		if err != nil {
			return nil, err
		}
		router.AddNoPublisherHandler(h.Name, h.Topic, sub, h.Func)
	}

	return router, nil
}

func dropFailed(logger *slog.Logger) message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			produced, err := h(msg)
			if err != nil {
				logger.Error("Dropping event after failed retries",
					"handler", message.HandlerNameFromCtx(msg.Context()),
					"message_id", msg.UUID,
					"error", err)
				return nil, nil
			}
			return produced, nil
		}
	}
}

func decodeEvent(msg *message.Message) (*Event, error) {
	var e Event
	if err := json.Unmarshal(msg.Payload, &e); err != nil {
		return nil, fmt.Errorf("failed to decode event %s: %w", msg.UUID, err)
	}
	return &e, nil
}
