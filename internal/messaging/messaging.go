// Package messaging carries order lifecycle events over Kafka or RabbitMQ,
// propagating trace context in message headers.
package messaging

import "context"

// EventTypeHeader names the header holding the event's routing key.
const EventTypeHeader = "event-type"

// HandlerFunc processes one message payload. The context carries the span
// extracted from the message headers.
type HandlerFunc func(ctx context.Context, payload []byte) error

type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
	Close() error
}

type Consumer interface {
	Consume(ctx context.Context, handler HandlerFunc) error
	Close() error
}

type routable interface {
	RoutingKey() string
}

// routingKey returns the event's own routing key, or fallback.
func routingKey(event any, fallback string) string {
	if r, ok := event.(routable); ok && r.RoutingKey() != "" {
		return r.RoutingKey()
	}
	return fallback
}
