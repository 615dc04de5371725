package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	options "github.com/kart-io/graphrag/pkg/options/tracing"
)

func TestNewProviderDisabled(t *testing.T) {
	p, err := NewProvider(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, p.Enabled())
	assert.NotNil(t, p.Tracer("test"))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProviderNoopExporter(t *testing.T) {
	opts := NewOptions()
	opts.Enabled = true
	opts.ExporterType = options.ExporterNoop

	p, err := NewProvider(context.Background(), opts)
	require.NoError(t, err)
	assert.True(t, p.Enabled())

	_, span := p.Tracer("test").Start(context.Background(), "op")
	span.End()
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProviderInvalidOptions(t *testing.T) {
	opts := NewOptions()
	opts.Enabled = true
	opts.ExporterType = "kafka"

	_, err := NewProvider(context.Background(), opts)
	assert.Error(t, err)
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(o *Options)
		wantErr bool
	}{
		{"disabled is always valid", func(o *Options) { o.ExporterType = "bogus" }, false},
		{"grpc without endpoint", func(o *Options) { o.Enabled = true; o.Endpoint = "" }, true},
		{"stdout without endpoint", func(o *Options) {
			o.Enabled = true
			o.Endpoint = ""
			o.ExporterType = options.ExporterStdout
		}, false},
		{"ratio out of range", func(o *Options) { o.Enabled = true; o.SamplerRatio = 1.5 }, true},
		{"bad sampler", func(o *Options) { o.Enabled = true; o.SamplerType = "sometimes" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOptions()
			tt.mutate(o)
			assert.Equal(t, tt.wantErr, len(o.Validate()) > 0)
		})
	}
}

func TestRecordErrorAndTraceID(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	assert.NotEmpty(t, TraceIDFromContext(ctx))
	RecordError(ctx, errors.New("boom"))
	RecordError(ctx, nil)
	span.End()

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "boom", ended[0].Status().Description)
	assert.Empty(t, TraceIDFromContext(context.Background()))
}
