package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/joao-fontenele/checkoutflow/internal/cache"
	"github.com/joao-fontenele/checkoutflow/internal/config"
	"github.com/joao-fontenele/checkoutflow/internal/messaging"
	"github.com/joao-fontenele/checkoutflow/internal/orders"
	"github.com/joao-fontenele/checkoutflow/internal/payment"
	"github.com/joao-fontenele/checkoutflow/internal/telemetry"
)

const serviceName = "checkout"

func main() {
	ctx := context.Background()
	logger := telemetry.NewLogger(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger.Info("configuration loaded", "config", cfg)

	if cfg.OTelEnabled {
		shutdownTracer, err := telemetry.InitTracerProvider(ctx, serviceName, "0.1.0")
		if err != nil {
			logger.Error("failed to initialize tracer", "error", err)
			os.Exit(1)
		}
		defer func() { _ = shutdownTracer(ctx) }()
	}

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(serviceName, "0.1.0")
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	metrics, err := telemetry.NewCheckoutMetrics()
	if err != nil {
		logger.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}

	var store orders.Store
	if cfg.PostgresURL != "" {
		db, err := telemetry.OpenDB(ctx, cfg.DSN())
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()
		store = orders.NewOrderRepository(db)
	} else {
		logger.Warn("POSTGRES_URL not set, orders are kept in memory")
		store = orders.NewMemoryStore()
	}

	var gateway payment.Gateway
	switch cfg.PaymentGateway {
	case config.GatewayFake:
		logger.Warn("using fake payment gateway")
		gateway = payment.NewFakeGateway()
	default:
		gateway = payment.NewClient(cfg.RazorpayBaseURL, cfg.RazorpayKeyID, cfg.RazorpayKeySecret, &http.Client{
			Timeout:   cfg.GatewayTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		})
	}

	opts := []orders.ServiceOption{orders.WithMetrics(metrics)}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, status polls will fall back to the database", "error", err)
		}
		opts = append(opts, orders.WithStatusCache(cache.NewStatusCache(rdb, serviceName, cfg.StatusCacheTTL, logger)))
	}

	switch cfg.EventsBackend {
	case config.EventsKafka:
		producer := messaging.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() { _ = producer.Close() }()
		opts = append(opts, orders.WithPublisher(producer))
	case config.EventsRabbitMQ:
		conn, ch, err := messaging.SetupConn(cfg.RabbitMQURL, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		publisher := messaging.NewRabbitPublisher(conn, ch)
		defer func() { _ = publisher.Close() }()
		opts = append(opts, orders.WithPublisher(publisher))
	}

	svc := orders.NewService(store, gateway, payment.NewSigner(cfg.RazorpayKeySecret), orders.ServiceConfig{
		KeyID:    cfg.RazorpayKeyID,
		Currency: cfg.Currency,
	}, logger, opts...)

	handler := orders.NewHandler(svc, logger)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelhttp.NewHandler(orders.NewRouter(handler, metricsHandler), serviceName),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.GatewayTimeout + 10*time.Second,
	}

	go func() {
		logger.Info("starting checkout service", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
