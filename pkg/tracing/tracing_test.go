package tracing

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

func TestTraceparentRoundTripsThroughKafkaHeaders(t *testing.T) {
	tp, err := Init(context.Background(), "test", "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := otel.Tracer("test").Start(context.Background(), "produce")
	defer span.End()

	tpHeader := Traceparent(ctx)
	require.NotEmpty(t, tpHeader)

	headers := []kafka.Header{{Key: "event_type", Value: []byte("OrderCreated")}, {Key: TraceparentHeader, Value: []byte(tpHeader)}}
	got := trace.SpanContextFromContext(ExtractKafkaHeaders(context.Background(), headers))

	assert.Equal(t, span.SpanContext().TraceID(), got.TraceID())
	assert.Equal(t, "OrderCreated", HeaderValue(headers, "event_type"))
	assert.Equal(t, "", HeaderValue(headers, "missing"))
}
