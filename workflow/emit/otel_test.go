package emit

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestOTelEmitterEmitCreatesSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	emitter := NewOTelEmitter(otel.Tracer("sagaflow-test"))
	emitter.Emit(Event{Name: "node_done", Fields: map[string]any{"node": "a", "status": "done"}})

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name != "node_done" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "node_done")
	}

	var sawNode bool
	for _, a := range spans[0].Attributes {
		if string(a.Key) == "node" && a.Value.AsString() == "a" {
			sawNode = true
		}
	}
	if !sawNode {
		t.Errorf("expected span attribute node=a, got %+v", spans[0].Attributes)
	}
}

func TestOTelEmitterFlushForcesFlushOnSDKProvider(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	emitter := NewOTelEmitter(otel.Tracer("sagaflow-test"))
	emitter.Emit(Event{Name: "run_start"})

	if err := emitter.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
}

func TestOTelEmitterEmitRecordsErrorStatus(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	emitter := NewOTelEmitter(otel.Tracer("sagaflow-test"))
	emitter.Emit(Event{Name: "node_err", Fields: map[string]any{"error": "boom"}})

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status.Description != "boom" {
		t.Errorf("status description = %q, want %q", spans[0].Status.Description, "boom")
	}
}
