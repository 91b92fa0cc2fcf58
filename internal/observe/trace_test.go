package observe

import (
	"context"
	"encoding/hex"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// useTestTracer installs a recording tracer provider as the global one for
// the duration of the test.
func useTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return exp
}

// captureLog redirects the default logger into a buffer.
func captureLog(t *testing.T) *strings.Builder {
	t.Helper()
	var buf strings.Builder
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestStartSpan(t *testing.T) {
	exp := useTestTracer(t)

	ctx, span := StartSpan(context.Background(), "podcast.generate")
	id := RunID(ctx)
	span.End()

	if b, err := hex.DecodeString(id); err != nil || len(b) != 16 {
		t.Errorf("RunID = %q, want a 32 character hex trace ID", id)
	}
	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(spans))
	}
	if spans[0].Name != "podcast.generate" || spans[0].InstrumentationScope.Name != tracerName {
		t.Errorf("span = %q in scope %q", spans[0].Name, spans[0].InstrumentationScope.Name)
	}
}

func TestRunID(t *testing.T) {
	if got := RunID(context.Background()); got != "" {
		t.Errorf("RunID without span = %q, want empty", got)
	}

	useTestTracer(t)
	seen := make(map[string]bool)
	for range 50 {
		ctx, span := StartSpan(context.Background(), "run")
		id := RunID(ctx)
		span.End()
		if seen[id] {
			t.Fatalf("RunID %s repeated", id)
		}
		seen[id] = true
	}
}

func TestLogger(t *testing.T) {
	useTestTracer(t)

	t.Run("with span", func(t *testing.T) {
		buf := captureLog(t)
		ctx, span := StartSpan(context.Background(), "log")
		defer span.End()

		Logger(ctx).Info("segment synthesized")
		out := buf.String()
		if !strings.Contains(out, "trace_id="+RunID(ctx)) || !strings.Contains(out, "span_id=") {
			t.Errorf("log line missing trace attributes: %s", out)
		}
	})

	t.Run("without span", func(t *testing.T) {
		buf := captureLog(t)
		Logger(context.Background()).Info("segment synthesized")
		if strings.Contains(buf.String(), "trace_id") {
			t.Errorf("log line has trace attributes: %s", buf.String())
		}
	})
}
