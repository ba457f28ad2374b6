package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestNewLogger(t *testing.T) {
	t.Run("adds trace and span ids inside a span", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf).With("service", "checkout")

		tp := sdktrace.NewTracerProvider()
		defer func() { _ = tp.Shutdown(context.Background()) }()
		ctx, span := tp.Tracer("test").Start(context.Background(), "op")
		defer span.End()

		logger.InfoContext(ctx, "order created", "order_id", "abc")

		var record map[string]any
		if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
			t.Fatalf("decode log line: %v", err)
		}
		if record["trace_id"] != span.SpanContext().TraceID().String() {
			t.Errorf("trace_id = %v", record["trace_id"])
		}
		if record["span_id"] != span.SpanContext().SpanID().String() {
			t.Errorf("span_id = %v", record["span_id"])
		}
		if record["service"] != "checkout" || record["order_id"] != "abc" {
			t.Errorf("record = %v", record)
		}
	})

	t.Run("no ids without a span", func(t *testing.T) {
		var buf bytes.Buffer
		NewLogger(&buf).WithGroup("req").InfoContext(context.Background(), "hello", "path", "/healthz")

		var record map[string]any
		if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
			t.Fatalf("decode log line: %v", err)
		}
		if _, ok := record["trace_id"]; ok {
			t.Errorf("unexpected trace_id in %v", record)
		}
	})
}
