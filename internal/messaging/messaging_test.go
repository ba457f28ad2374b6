package messaging

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

type keyedEvent struct {
	Kind string `json:"kind"`
}

func (e keyedEvent) RoutingKey() string { return e.Kind }

func TestRoutingKey(t *testing.T) {
	tests := []struct {
		name  string
		event any
		want  string
	}{
		{"routable event", keyedEvent{Kind: "order.created"}, "order.created"},
		{"empty routing key", keyedEvent{}, "fallback"},
		{"plain value", map[string]string{"a": "b"}, "fallback"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := routingKey(tt.event, "fallback"); got != tt.want {
				t.Errorf("routingKey = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMessageCarrier(t *testing.T) {
	msg := kafka.Message{}
	c := NewMessageCarrier(&msg)

	c.Set(EventTypeHeader, "order.created")
	c.Set(EventTypeHeader, "order.cod_confirmed")
	c.Set("traceparent", "00-abc-def-01")

	if got := c.Get(EventTypeHeader); got != "order.cod_confirmed" {
		t.Errorf("Get(event-type) = %q, want overwritten value", got)
	}
	if len(msg.Headers) != 2 {
		t.Errorf("headers = %d, want 2", len(msg.Headers))
	}
	if got := c.Get("missing"); got != "" {
		t.Errorf("Get(missing) = %q, want empty", got)
	}
	if keys := c.Keys(); len(keys) != 2 {
		t.Errorf("Keys() = %v, want 2 entries", keys)
	}
}

func TestTableCarrier(t *testing.T) {
	c := TableCarrier{"count": int32(3)}
	c.Set("traceparent", "00-abc-def-01")

	if got := c.Get("traceparent"); got != "00-abc-def-01" {
		t.Errorf("Get(traceparent) = %q", got)
	}
	if got := c.Get("count"); got != "" {
		t.Errorf("non-string header should read as empty, got %q", got)
	}
	if len(c.Keys()) != 2 {
		t.Errorf("Keys() = %v, want 2 entries", c.Keys())
	}
}

func TestTraceContextRoundTrip(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())

	prop := propagation.TraceContext{}
	ctx, span := tp.Tracer("test").Start(context.Background(), "publish")
	defer span.End()

	t.Run("kafka headers", func(t *testing.T) {
		msg := kafka.Message{}
		prop.Inject(ctx, NewMessageCarrier(&msg))

		got := trace.SpanContextFromContext(prop.Extract(context.Background(), NewMessageCarrier(&msg)))
		if got.TraceID() != span.SpanContext().TraceID() {
			t.Errorf("trace id = %s, want %s", got.TraceID(), span.SpanContext().TraceID())
		}
	})

	t.Run("amqp headers", func(t *testing.T) {
		headers := TableCarrier{}
		prop.Inject(ctx, headers)

		got := trace.SpanContextFromContext(prop.Extract(context.Background(), headers))
		if got.TraceID() != span.SpanContext().TraceID() {
			t.Errorf("trace id = %s, want %s", got.TraceID(), span.SpanContext().TraceID())
		}
	})
}

func TestKafkaConsumerAccepts(t *testing.T) {
	withHeader := func(v string) *kafka.Message {
		msg := &kafka.Message{}
		NewMessageCarrier(msg).Set(EventTypeHeader, v)
		return msg
	}

	all := NewKafkaConsumer([]string{"localhost:9092"}, "checkout.events", "test")
	defer all.Close()
	if !all.accepts(withHeader("order.created")) {
		t.Error("consumer without filter should accept every event")
	}

	filtered := NewKafkaConsumer([]string{"localhost:9092"}, "checkout.events", "test",
		WithEventTypes("order.payment_completed", "order.cod_confirmed"))
	defer filtered.Close()

	if filtered.accepts(withHeader("order.created")) {
		t.Error("order.created should be filtered out")
	}
	if !filtered.accepts(withHeader("order.cod_confirmed")) {
		t.Error("order.cod_confirmed should be accepted")
	}
	if filtered.accepts(&kafka.Message{}) {
		t.Error("message without event-type header should be filtered out")
	}
}
