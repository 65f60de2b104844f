package instrumentation

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSpanAttributeBuilder(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithService(ServiceDrive).
		WithOperation(OperationList).
		WithAccount("user@example.com").
		WithReadOnly(true).
		Build()

	got := map[string]interface{}{}
	for _, a := range attrs {
		got[string(a.Key)] = a.Value.AsInterface()
	}

	if got[SpanAttrService] != ServiceDrive || got[SpanAttrOperation] != OperationList {
		t.Errorf("service/operation = %v/%v", got[SpanAttrService], got[SpanAttrOperation])
	}
	if hash, _ := got[SpanAttrUserHash].(string); hash == "" || hash == "user@example.com" {
		t.Errorf("user hash = %q, want an anonymized value", hash)
	}
	if got[SpanAttrReadOnly] != true {
		t.Errorf("read only = %v", got[SpanAttrReadOnly])
	}
}

func TestSpanAttributeBuilder_EmptyAccount(t *testing.T) {
	attrs := NewSpanAttributeBuilder().WithAccount("").Build()
	if len(attrs) != 0 {
		t.Errorf("expected no attributes, got %v", attrs)
	}
}

func TestStartToolSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	ctx, span := StartToolSpan(context.Background(), "drive_get_files", StatusAttr(StatusSuccess))
	if GetTraceID(ctx) == "" {
		t.Error("expected a trace ID in the span context")
	}
	SetSpanError(span, errors.New("boom"))
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	s := spans[0]
	if s.Name() != "tool.drive_get_files" {
		t.Errorf("name = %q", s.Name())
	}
	if s.Status().Code != codes.Error {
		t.Errorf("status = %v, want error", s.Status().Code)
	}
	if s.InstrumentationScope().Name != TracerName {
		t.Errorf("scope = %q", s.InstrumentationScope().Name)
	}
}

func TestGetTraceID_NoSpan(t *testing.T) {
	if id := GetTraceID(context.Background()); id != "" {
		t.Errorf("GetTraceID() = %q, want empty", id)
	}
}

func TestSetSpanError_NilIsNoOp(t *testing.T) {
	_, span := StartToolSpan(context.Background(), "t")
	SetSpanError(span, nil)
	SetSpanSuccess(span)
	span.End()
}
