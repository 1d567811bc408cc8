package instrumentation

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// newSpanRecorder installs a recording tracer provider as the global for the
// duration of the test and returns the recorder.
func newSpanRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})

	return sr
}

func spanAttrMap(s sdktrace.ReadOnlySpan) map[string]interface{} {
	m := make(map[string]interface{})
	for _, attr := range s.Attributes() {
		m[string(attr.Key)] = attr.Value.AsInterface()
	}
	return m
}

func TestSpanAttributeBuilder(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithService("mail").
		WithOperation("list").
		WithFolder("Inbox/Receipts").
		Build()

	if len(attrs) != 3 {
		t.Fatalf("expected 3 attributes, got %d", len(attrs))
	}

	attrMap := make(map[string]interface{})
	for _, attr := range attrs {
		attrMap[string(attr.Key)] = attr.Value.AsInterface()
	}

	if attrMap[SpanAttrService] != "mail" {
		t.Errorf("service = %v, want %q", attrMap[SpanAttrService], "mail")
	}
	if attrMap[SpanAttrOperation] != "list" {
		t.Errorf("operation = %v, want %q", attrMap[SpanAttrOperation], "list")
	}
	if attrMap[SpanAttrFolder] != "Inbox/Receipts" {
		t.Errorf("folder = %v, want %q", attrMap[SpanAttrFolder], "Inbox/Receipts")
	}
}

func TestSpanAttributeBuilder_SkipsEmptyFolder(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithService("mail").
		WithFolder("").
		Build()

	if len(attrs) != 1 {
		t.Errorf("expected 1 attribute (empty folder skipped), got %d", len(attrs))
	}
}

func TestStartToolSpan(t *testing.T) {
	sr := newSpanRecorder(t)

	ctx, span := StartToolSpan(context.Background(), "list-emails",
		NewSpanAttributeBuilder().WithService("mail").WithOperation("list").Build()...)

	if GetTraceID(ctx) == "" {
		t.Error("expected the returned context to carry a trace ID")
	}

	SetSpanSuccess(span)
	span.End()

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 recorded span, got %d", len(spans))
	}

	got := spans[0]
	if got.Name() != "tool.list-emails" {
		t.Errorf("span name = %q, want %q", got.Name(), "tool.list-emails")
	}
	if got.SpanKind() != trace.SpanKindServer {
		t.Errorf("span kind = %v, want %v", got.SpanKind(), trace.SpanKindServer)
	}
	if got.Status().Code != codes.Ok {
		t.Errorf("status = %v, want %v", got.Status().Code, codes.Ok)
	}

	attrMap := spanAttrMap(got)
	if attrMap[SpanAttrTool] != "list-emails" {
		t.Errorf("tool attribute = %v, want %q", attrMap[SpanAttrTool], "list-emails")
	}
	if attrMap[SpanAttrService] != "mail" {
		t.Errorf("service attribute = %v, want %q", attrMap[SpanAttrService], "mail")
	}
}

func TestStartGraphSpan_NestsUnderToolSpan(t *testing.T) {
	sr := newSpanRecorder(t)

	ctx, toolSpan := StartToolSpan(context.Background(), "list-emails")
	_, graphSpan := StartGraphSpan(ctx, "mail", "list")
	graphSpan.End()
	toolSpan.End()

	spans := sr.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 recorded spans, got %d", len(spans))
	}

	graph, tool := spans[0], spans[1]
	if graph.Name() != "graph.mail.list" {
		t.Errorf("span name = %q, want %q", graph.Name(), "graph.mail.list")
	}
	if graph.SpanKind() != trace.SpanKindClient {
		t.Errorf("span kind = %v, want %v", graph.SpanKind(), trace.SpanKindClient)
	}
	if graph.Parent().SpanID() != tool.SpanContext().SpanID() {
		t.Error("expected the graph span to be a child of the tool span")
	}

	attrMap := spanAttrMap(graph)
	if attrMap[SpanAttrService] != "mail" {
		t.Errorf("service attribute = %v, want %q", attrMap[SpanAttrService], "mail")
	}
	if attrMap[SpanAttrOperation] != "list" {
		t.Errorf("operation attribute = %v, want %q", attrMap[SpanAttrOperation], "list")
	}
}

func TestSetSpanError(t *testing.T) {
	sr := newSpanRecorder(t)

	_, span := StartToolSpan(context.Background(), "move-email")
	SetSpanError(span, errors.New("folder not found"))
	span.End()

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 recorded span, got %d", len(spans))
	}

	got := spans[0]
	if got.Status().Code != codes.Error {
		t.Errorf("status = %v, want %v", got.Status().Code, codes.Error)
	}
	if got.Status().Description != "folder not found" {
		t.Errorf("status description = %q, want %q", got.Status().Description, "folder not found")
	}

	foundException := false
	for _, event := range got.Events() {
		if event.Name == "exception" {
			foundException = true
		}
	}
	if !foundException {
		t.Error("expected an exception event from RecordError")
	}
}

func TestSetSpanError_NilError(t *testing.T) {
	sr := newSpanRecorder(t)

	_, span := StartToolSpan(context.Background(), "move-email")
	SetSpanError(span, nil)
	span.End()

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 recorded span, got %d", len(spans))
	}
	if spans[0].Status().Code != codes.Unset {
		t.Errorf("status = %v, want %v for nil error", spans[0].Status().Code, codes.Unset)
	}
}

func TestAddSpanEvent(t *testing.T) {
	sr := newSpanRecorder(t)

	_, span := StartToolSpan(context.Background(), "send-email")
	AddSpanEvent(span, "tool_error_result")
	span.End()

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 recorded span, got %d", len(spans))
	}

	found := false
	for _, event := range spans[0].Events() {
		if event.Name == "tool_error_result" {
			found = true
		}
	}
	if !found {
		t.Error("expected the tool_error_result event on the span")
	}
}

func TestGetTraceID(t *testing.T) {
	if id := GetTraceID(context.Background()); id != "" {
		t.Errorf("expected empty trace ID without a span, got %q", id)
	}

	newSpanRecorder(t)
	ctx, span := StartToolSpan(context.Background(), "list-emails")
	defer span.End()

	if id := GetTraceID(ctx); len(id) != 32 {
		t.Errorf("expected a 32-char hex trace ID, got %q", id)
	}
}

func TestGetSpanID(t *testing.T) {
	if id := GetSpanID(context.Background()); id != "" {
		t.Errorf("expected empty span ID without a span, got %q", id)
	}

	newSpanRecorder(t)
	ctx, span := StartToolSpan(context.Background(), "list-emails")
	defer span.End()

	if id := GetSpanID(ctx); len(id) != 16 {
		t.Errorf("expected a 16-char hex span ID, got %q", id)
	}
}
