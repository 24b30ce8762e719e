package observability

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return rec
}

func attrMap(attrs []attribute.KeyValue) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value, len(attrs))
	for _, kv := range attrs {
		m[kv.Key] = kv.Value
	}
	return m
}

func TestDefaultTracingConfig(t *testing.T) {
	cfg := DefaultTracingConfig()
	if cfg.ServiceName != "modgraph" {
		t.Fatalf("expected service name 'modgraph', got %s", cfg.ServiceName)
	}
	if cfg.SampleRate != 1.0 {
		t.Fatalf("expected sample rate 1.0, got %f", cfg.SampleRate)
	}
}

func TestInitTracing_NoEndpoint(t *testing.T) {
	ctx := context.Background()
	tp, err := InitTracing(ctx, &TracingConfig{ServiceName: "test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tp.Tracer() == nil {
		t.Fatal("expected non-nil tracer")
	}
	if err := tp.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestInitTracing_NilConfig(t *testing.T) {
	tp, err := InitTracing(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tp == nil {
		t.Fatal("expected non-nil tracer provider")
	}
}

func TestStartStageSpan(t *testing.T) {
	rec := recordSpans(t)

	_, span := StartStageSpan(context.Background(), StageBuild, attribute.Int("files", 3))
	RecordGraphSize(span, 4, 5)
	span.End()

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	s := spans[0]
	if s.Name() != "modgraph.build" {
		t.Errorf("unexpected span name %q", s.Name())
	}
	attrs := attrMap(s.Attributes())
	if attrs["modgraph.stage"].AsString() != StageBuild {
		t.Errorf("missing stage attribute: %v", attrs)
	}
	if attrs["files"].AsInt64() != 3 {
		t.Errorf("missing caller attribute: %v", attrs)
	}
	if attrs["graph.modules"].AsInt64() != 4 || attrs["graph.edges"].AsInt64() != 5 {
		t.Errorf("missing graph size attributes: %v", attrs)
	}
}

func TestRecordCycles(t *testing.T) {
	rec := recordSpans(t)

	_, clean := StartStageSpan(context.Background(), StageCycles)
	RecordCycles(clean, 2, 0)
	clean.End()

	_, critical := StartStageSpan(context.Background(), StageCycles)
	RecordCycles(critical, 2, 1)
	critical.End()

	spans := rec.Ended()
	if spans[0].Status().Code == codes.Error {
		t.Error("non-critical cycles should not mark the span as errored")
	}
	if spans[1].Status().Code != codes.Error {
		t.Error("critical cycles should mark the span as errored")
	}
}

func TestStartStoreSpan(t *testing.T) {
	rec := recordSpans(t)

	_, span := StartStoreSpan(context.Background(), "neo4j", "save_graph")
	span.End()

	s := rec.Ended()[0]
	if s.Name() != "neo4j.save_graph" {
		t.Errorf("unexpected span name %q", s.Name())
	}
	if attrMap(s.Attributes())["db.system"].AsString() != "neo4j" {
		t.Error("missing db.system attribute")
	}
}

func TestRecordError(t *testing.T) {
	rec := recordSpans(t)

	_, span := StartStageSpan(context.Background(), StageScan)
	RecordError(span, nil)
	RecordError(span, errors.New("walk failed"))
	span.End()

	s := rec.Ended()[0]
	if s.Status().Code != codes.Error || s.Status().Description != "walk failed" {
		t.Errorf("unexpected status %+v", s.Status())
	}
	if len(s.Events()) != 1 {
		t.Errorf("expected one recorded error event, got %d", len(s.Events()))
	}
}

func TestTracerProvider_Shutdown_NilProvider(t *testing.T) {
	tp := &TracerProvider{}
	if err := tp.Shutdown(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
