package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	ExchangeName = "checkout"
	ExchangeType = "topic"

	dialAttempts = 5
	dialBackoff  = 2 * time.Second
)

var errDeliveriesClosed = errors.New("rabbitmq deliveries channel closed")

// SetupConn dials RabbitMQ with a few retries and declares the checkout
// topic exchange.
func SetupConn(url string, logger *slog.Logger) (*amqp.Connection, *amqp.Channel, error) {
	var conn *amqp.Connection
	var err error

	for i := 0; i < dialAttempts; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		logger.Warn("failed to connect to rabbitmq", "attempt", i+1, "error", err)
		time.Sleep(dialBackoff)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("could not open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		ExchangeName, // name
		ExchangeType, // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("could not declare exchange: %w", err)
	}

	return conn, ch, nil
}

// RabbitPublisher publishes JSON events to the checkout exchange using the
// event's routing key (order.created, order.payment_completed, ...).
type RabbitPublisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewRabbitPublisher(conn *amqp.Connection, ch *amqp.Channel) *RabbitPublisher {
	return &RabbitPublisher{conn: conn, ch: ch}
}

func (p *RabbitPublisher) Publish(ctx context.Context, key string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("could not marshal event: %w", err)
	}

	rk := routingKey(event, "order.event")

	ctx, span := producerTracer.Start(ctx, "publish "+ExchangeName,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemRabbitmq,
			semconv.MessagingOperationName("publish"),
			semconv.MessagingOperationTypePublish,
			semconv.MessagingDestinationName(ExchangeName),
			semconv.MessagingRabbitmqDestinationRoutingKey(rk),
		),
	)
	defer span.End()

	headers := amqp.Table{EventTypeHeader: rk}
	otel.GetTextMapPropagator().Inject(ctx, TableCarrier(headers))

	err = p.ch.PublishWithContext(ctx,
		ExchangeName, // exchange
		rk,           // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			CorrelationId: key,
			Timestamp:     time.Now().UTC(),
			Headers:       headers,
			Body:          body,
		},
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}

func (p *RabbitPublisher) Close() error {
	if err := p.ch.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}

// RabbitConsumer consumes from a durable queue bound to the checkout exchange.
type RabbitConsumer struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	queue      string
	bindingKey string
}

func NewRabbitConsumer(conn *amqp.Connection, ch *amqp.Channel, queue, bindingKey string) *RabbitConsumer {
	return &RabbitConsumer{conn: conn, ch: ch, queue: queue, bindingKey: bindingKey}
}

// Consume delivers messages to handler until ctx ends or handler fails.
// Deliveries are acked after handler succeeds; a failed delivery is requeued.
func (c *RabbitConsumer) Consume(ctx context.Context, handler HandlerFunc) error {
	q, err := c.ch.QueueDeclare(
		c.queue, // name
		true,    // durable
		false,   // delete when unused
		false,   // exclusive
		false,   // no-wait
		nil,     // arguments
	)
	if err != nil {
		return fmt.Errorf("could not declare queue: %w", err)
	}

	if err := c.ch.QueueBind(q.Name, c.bindingKey, ExchangeName, false, nil); err != nil {
		return fmt.Errorf("could not bind queue: %w", err)
	}

	msgs, err := c.ch.ConsumeWithContext(ctx,
		q.Name, // queue
		"",     // consumer tag
		false,  // auto-ack
		false,  // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		return fmt.Errorf("could not start consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errDeliveriesClosed
			}
			if err := c.processDelivery(ctx, d, handler); err != nil {
				_ = d.Nack(false, true)
				return err
			}
			if err := d.Ack(false); err != nil {
				return err
			}
		}
	}
}

func (c *RabbitConsumer) processDelivery(ctx context.Context, d amqp.Delivery, handler HandlerFunc) error {
	if d.Headers == nil {
		d.Headers = amqp.Table{}
	}
	parentCtx := otel.GetTextMapPropagator().Extract(ctx, TableCarrier(d.Headers))

	spanCtx, span := consumerTracer.Start(parentCtx, "process "+c.queue,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			semconv.MessagingSystemRabbitmq,
			semconv.MessagingOperationName("process"),
			semconv.MessagingOperationTypeDeliver,
			semconv.MessagingDestinationName(ExchangeName),
			semconv.MessagingRabbitmqDestinationRoutingKey(d.RoutingKey),
			attribute.String("checkout.event_type", TableCarrier(d.Headers).Get(EventTypeHeader)),
		),
	)
	defer span.End()

	if err := handler(spanCtx, d.Body); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}

func (c *RabbitConsumer) Close() error {
	if err := c.ch.Close(); err != nil {
		c.conn.Close()
		return err
	}
	return c.conn.Close()
}
