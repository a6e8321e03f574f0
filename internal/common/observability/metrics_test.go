package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_MetricsOnly(t *testing.T) {
	o, err := New(Config{ServiceName: "beacon-network-test"})
	require.NoError(t, err)
	defer o.Shutdown()

	assert.NotNil(t, o.Tracer())
	assert.NotNil(t, o.aggCounter)
	assert.Nil(t, o.tracerProvider)

	o.RecordAggregation(context.Background(), "genomicVariant", "success", 120*time.Millisecond)
}

func TestNewNoop(t *testing.T) {
	o := NewNoop()
	defer o.Shutdown()

	_, span := o.Tracer().Start(context.Background(), "noop")
	span.End()
	o.RecordAggregation(context.Background(), "individual", "routing_miss", time.Millisecond)
}
