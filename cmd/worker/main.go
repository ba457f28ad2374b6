package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/joao-fontenele/checkoutflow/internal/config"
	"github.com/joao-fontenele/checkoutflow/internal/domain"
	"github.com/joao-fontenele/checkoutflow/internal/messaging"
	"github.com/joao-fontenele/checkoutflow/internal/telemetry"
	"github.com/joao-fontenele/checkoutflow/internal/worker"
)

const (
	groupID = "checkout-notification-worker"
	// RabbitMQ queue and binding for the same consumer group.
	queueName  = "checkout.notifications"
	bindingKey = "order.#"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := telemetry.NewLogger(os.Stdout)

	cfg, err := config.LoadWorker()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "notification-worker", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	var consumer messaging.Consumer
	switch cfg.EventsBackend {
	case config.EventsRabbitMQ:
		conn, ch, err := messaging.SetupConn(cfg.RabbitMQURL, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		consumer = messaging.NewRabbitConsumer(conn, ch, queueName, bindingKey)
	default:
		consumer = messaging.NewKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, groupID,
			messaging.WithEventTypes(string(domain.EventPaymentCompleted), string(domain.EventCODConfirmed)))
	}
	defer func() { _ = consumer.Close() }()

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	notificationHandler := worker.NewNotificationHandler(cfg.EmailServiceURL, cfg.OrdersServiceURL, cfg.NotifyEmail, httpClient, logger)

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		logger.Info("shutting down")
		cancel()
	}()

	logger.Info("starting notification worker", "backend", cfg.EventsBackend)

	if err := consumer.Consume(ctx, notificationHandler.Handle); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("consumer stopped")
			return
		}
		logger.Error("consumer error", "error", err)
		os.Exit(1)
	}
}
