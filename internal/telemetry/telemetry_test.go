package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSetupDisabled(t *testing.T) {
	shutdown, err := Setup("pii-anonymizer", "test", false)
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetupEnabled(t *testing.T) {
	prevTP := otel.GetTracerProvider()
	prevMP := otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetMeterProvider(prevMP)
	})

	shutdown, err := Setup("pii-anonymizer", "0.0.1", true)
	require.NoError(t, err)

	_, span := StartSpan(context.Background(), "anonymize", 42)
	assert.True(t, span.SpanContext().IsValid())
	EndSpan(span, 3, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, shutdown(ctx))
}

func TestSpanAttributes(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	_, span := StartSpan(context.Background(), "analyze", 120)
	EndSpan(span, 2, errors.New("scorer unavailable"))

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "anonymizer.analyze", ended[0].Name())

	attrs := map[string]any{}
	for _, kv := range ended[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	assert.Equal(t, "analyze", attrs["anonymizer.operation"])
	assert.EqualValues(t, 120, attrs["anonymizer.text_length"])
	assert.EqualValues(t, 2, attrs["anonymizer.entities_found"])
	assert.Equal(t, "scorer unavailable", ended[0].Status().Description)
}

func TestRecorder(t *testing.T) {
	r, err := NewRecorder()
	require.NoError(t, err)
	r.Record(context.Background(), "anonymize", map[string]int{"EMAIL": 2, "URL": 0})

	var nilRecorder *Recorder
	assert.NotPanics(t, func() { nilRecorder.Record(context.Background(), "anonymize", nil) })
}
