// Package consumer materializes audit events from Kafka into the
// category-partitioned query tables.
package consumer

import (
	"context"
	"log/slog"

	"idswyft/internal/platform/kafka/consumer"
)

// TopicHandler processes messages consumed from one audit topic.
type TopicHandler interface {
	Handle(ctx context.Context, msg *consumer.Message) error
}

// Router fans consumed messages out to per-topic handlers. Messages on an
// unregistered topic go to the fallback handler when one is set, and are
// otherwise logged and committed so they are not redelivered forever.
type Router struct {
	byTopic  map[string]TopicHandler
	fallback TopicHandler
	logger   *slog.Logger
}

// NewRouter builds a router. The fallback may be nil.
func NewRouter(logger *slog.Logger, fallback TopicHandler) *Router {
	return &Router{
		byTopic:  make(map[string]TopicHandler),
		fallback: fallback,
		logger:   logger,
	}
}

// Register binds a handler to a topic. Not safe to call once the consumer
// is running.
func (r *Router) Register(topic string, handler TopicHandler) {
	r.byTopic[topic] = handler
}

// Handle dispatches the message by topic.
func (r *Router) Handle(ctx context.Context, msg *consumer.Message) error {
	if h, ok := r.byTopic[msg.Topic]; ok {
		return h.Handle(ctx, msg)
	}
	if r.fallback != nil {
		return r.fallback.Handle(ctx, msg)
	}
	r.logger.WarnContext(ctx, "dropping message from unrouted topic",
		"topic", msg.Topic,
		"key", string(msg.Key),
	)
	return nil
}
