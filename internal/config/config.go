// Package config reads checkout settings from the environment. A .env file in
// the working directory is loaded first when present.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

const (
	GatewayRazorpay = "razorpay"
	GatewayFake     = "fake"

	EventsKafka    = "kafka"
	EventsRabbitMQ = "rabbitmq"
	EventsNone     = "none"
)

type Config struct {
	Port string

	PostgresURL    string
	PostgresSchema string
	MigrationsPath string

	PaymentGateway    string
	RazorpayKeyID     string
	RazorpayKeySecret string
	RazorpayBaseURL   string
	Currency          string
	GatewayTimeout    time.Duration

	RedisAddr      string
	StatusCacheTTL time.Duration

	EventsBackend string
	KafkaBrokers  []string
	KafkaTopic    string
	RabbitMQURL   string

	OTelEnabled bool
}

// Load reads the checkout service configuration and checks that the selected
// backends have what they need.
func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", "8081"),
		PostgresURL:       os.Getenv("POSTGRES_URL"),
		PostgresSchema:    getEnv("POSTGRES_SCHEMA", "checkout"),
		MigrationsPath:    getEnv("MIGRATIONS_PATH", "file://migrations"),
		PaymentGateway:    getEnv("PAYMENT_GATEWAY", GatewayRazorpay),
		RazorpayKeyID:     os.Getenv("RAZORPAY_KEY_ID"),
		RazorpayKeySecret: os.Getenv("RAZORPAY_KEY_SECRET"),
		RazorpayBaseURL:   getEnv("RAZORPAY_BASE_URL", "https://api.razorpay.com"),
		Currency:          getEnv("PAYMENT_CURRENCY", "INR"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		EventsBackend:     getEnv("EVENTS_BACKEND", EventsNone),
		KafkaBrokers:      splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:        getEnv("KAFKA_TOPIC", "checkout.events"),
		RabbitMQURL:       os.Getenv("RABBITMQ_URL"),
		OTelEnabled:       getEnv("OTEL_ENABLED", "true") != "false",
	}

	var err error
	if cfg.GatewayTimeout, err = getDuration("GATEWAY_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.StatusCacheTTL, err = getDuration("STATUS_CACHE_TTL", 5*time.Second); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error

	switch c.PaymentGateway {
	case GatewayRazorpay:
		if c.RazorpayKeyID == "" {
			errs = append(errs, errors.New("RAZORPAY_KEY_ID environment variable is required"))
		}
		if c.RazorpayKeySecret == "" {
			errs = append(errs, errors.New("RAZORPAY_KEY_SECRET environment variable is required"))
		}
	case GatewayFake:
		// The fake signs with whatever secret is configured, empty included.
	default:
		errs = append(errs, fmt.Errorf("PAYMENT_GATEWAY must be %q or %q, got %q", GatewayRazorpay, GatewayFake, c.PaymentGateway))
	}

	switch c.EventsBackend {
	case EventsKafka:
		if len(c.KafkaBrokers) == 0 {
			errs = append(errs, errors.New("KAFKA_BROKERS environment variable is required for the kafka events backend"))
		}
	case EventsRabbitMQ:
		if c.RabbitMQURL == "" {
			errs = append(errs, errors.New("RABBITMQ_URL environment variable is required for the rabbitmq events backend"))
		}
	case EventsNone:
	default:
		errs = append(errs, fmt.Errorf("EVENTS_BACKEND must be one of kafka, rabbitmq, none, got %q", c.EventsBackend))
	}

	return errors.Join(errs...)
}

// DSN returns PostgresURL with search_path pointed at the checkout schema.
func (c *Config) DSN() string {
	return WithSearchPath(c.PostgresURL, c.PostgresSchema)
}

// LogValue keeps the key secret out of logs.
func (c *Config) LogValue() slog.Value {
	secret := ""
	if c.RazorpayKeySecret != "" {
		secret = "[REDACTED]"
	}
	return slog.GroupValue(
		slog.String("port", c.Port),
		slog.Bool("postgres", c.PostgresURL != ""),
		slog.String("payment_gateway", c.PaymentGateway),
		slog.String("razorpay_key_id", c.RazorpayKeyID),
		slog.String("razorpay_key_secret", secret),
		slog.String("currency", c.Currency),
		slog.Duration("gateway_timeout", c.GatewayTimeout),
		slog.Bool("status_cache", c.RedisAddr != ""),
		slog.String("events_backend", c.EventsBackend),
	)
}

// WorkerConfig configures the notification worker.
type WorkerConfig struct {
	EventsBackend    string
	KafkaBrokers     []string
	KafkaTopic       string
	RabbitMQURL      string
	EmailServiceURL  string
	OrdersServiceURL string
	NotifyEmail      string
}

func LoadWorker() (*WorkerConfig, error) {
	cfg := &WorkerConfig{
		EventsBackend:    getEnv("EVENTS_BACKEND", EventsKafka),
		KafkaBrokers:     splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:       getEnv("KAFKA_TOPIC", "checkout.events"),
		RabbitMQURL:      os.Getenv("RABBITMQ_URL"),
		EmailServiceURL:  os.Getenv("EMAIL_SERVICE_URL"),
		OrdersServiceURL: os.Getenv("ORDERS_SERVICE_URL"),
		NotifyEmail:      getEnv("NOTIFY_EMAIL", "orders@example.com"),
	}

	var errs []error
	if cfg.EmailServiceURL == "" {
		errs = append(errs, errors.New("EMAIL_SERVICE_URL environment variable is required"))
	}
	if cfg.OrdersServiceURL == "" {
		errs = append(errs, errors.New("ORDERS_SERVICE_URL environment variable is required"))
	}
	switch cfg.EventsBackend {
	case EventsKafka:
		if len(cfg.KafkaBrokers) == 0 {
			errs = append(errs, errors.New("KAFKA_BROKERS environment variable is required"))
		}
	case EventsRabbitMQ:
		if cfg.RabbitMQURL == "" {
			errs = append(errs, errors.New("RABBITMQ_URL environment variable is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("EVENTS_BACKEND must be kafka or rabbitmq for the worker, got %q", cfg.EventsBackend))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WithSearchPath adds a search_path option to a postgres URL or key=value DSN.
func WithSearchPath(dsn, schema string) string {
	if dsn == "" || schema == "" {
		return dsn
	}
	if strings.Contains(dsn, "://") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		return dsn + sep + "search_path=" + schema
	}
	return dsn + " search_path=" + schema
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
