package messaging

import (
	"context"
	"strconv"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

var consumerTracer = otel.Tracer("messaging/consumer")

// KafkaConsumer reads checkout events from a topic as part of a consumer
// group. Messages whose event-type header is not accepted are committed
// without reaching the handler.
type KafkaConsumer struct {
	reader  *kafka.Reader
	topic   string
	groupID string
	accept  map[string]bool
}

type consumerConfig struct {
	reader     kafka.ReaderConfig
	eventTypes []string
}

type ConsumerOption func(*consumerConfig)

func WithStartOffset(offset int64) ConsumerOption {
	return func(cfg *consumerConfig) {
		cfg.reader.StartOffset = offset
	}
}

// WithEventTypes restricts delivery to the given event types. Without it
// every message is delivered.
func WithEventTypes(types ...string) ConsumerOption {
	return func(cfg *consumerConfig) {
		cfg.eventTypes = append(cfg.eventTypes, types...)
	}
}

func NewKafkaConsumer(brokers []string, topic, groupID string, opts ...ConsumerOption) *KafkaConsumer {
	cfg := consumerConfig{
		reader: kafka.ReaderConfig{
			Brokers: brokers,
			Topic:   topic,
			GroupID: groupID,
		},
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	var accept map[string]bool
	if len(cfg.eventTypes) > 0 {
		accept = make(map[string]bool, len(cfg.eventTypes))
		for _, t := range cfg.eventTypes {
			accept[t] = true
		}
	}

	return &KafkaConsumer{
		reader:  kafka.NewReader(cfg.reader),
		topic:   topic,
		groupID: groupID,
		accept:  accept,
	}
}

func (c *KafkaConsumer) Consume(ctx context.Context, handler HandlerFunc) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return err
		}

		if c.accepts(&msg) {
			if err := c.processMessage(ctx, msg, handler); err != nil {
				return err
			}
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return err
		}
	}
}

func (c *KafkaConsumer) accepts(msg *kafka.Message) bool {
	if c.accept == nil {
		return true
	}
	return c.accept[NewMessageCarrier(msg).Get(EventTypeHeader)]
}

func (c *KafkaConsumer) processMessage(ctx context.Context, msg kafka.Message, handler HandlerFunc) error {
	carrier := NewMessageCarrier(&msg)
	parentCtx := otel.GetTextMapPropagator().Extract(ctx, carrier)

	spanCtx, span := consumerTracer.Start(parentCtx, "process "+c.topic,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingOperationName("process"),
			semconv.MessagingOperationTypeDeliver,
			semconv.MessagingDestinationName(c.topic),
			semconv.MessagingKafkaConsumerGroup(c.groupID),
			semconv.MessagingKafkaMessageOffset(int(msg.Offset)),
			semconv.MessagingDestinationPartitionID(strconv.Itoa(msg.Partition)),
			semconv.MessagingKafkaMessageKey(string(msg.Key)),
			attribute.String("checkout.event_type", carrier.Get(EventTypeHeader)),
		),
	)
	defer span.End()

	if err := handler(spanCtx, msg.Value); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}

func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}
