package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/rota-engine/metrics"
)

func TestPrometheus_CountersByLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := metrics.NewPrometheus(reg, "test")
	require.NoError(t, err)

	p.TheoreticalMemoized(3)
	p.TheoreticalInvalidated(metrics.ReasonHolidayRemoved, 2)
	p.TheoreticalInvalidated(metrics.ReasonAgentEdited, 5)
	p.OverrideWritten("SWAP", 2)
	p.SwapAttempted(metrics.SwapApplied)

	assert.Equal(t, 3.0, testutil.ToFloat64(p.Memoized()))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.Invalidated(metrics.ReasonHolidayRemoved)))
	assert.Equal(t, 5.0, testutil.ToFloat64(p.Invalidated(metrics.ReasonAgentEdited)))

	count, err := testutil.GatherAndCount(reg, "test_operations_swaps_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPrometheus_DoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := metrics.NewPrometheus(reg, "dup")
	require.NoError(t, err)

	_, err = metrics.NewPrometheus(reg, "dup")
	assert.Error(t, err)
}

func TestOrNop(t *testing.T) {
	assert.Equal(t, metrics.Nop{}, metrics.OrNop(nil))

	reg := prometheus.NewRegistry()
	p, err := metrics.NewPrometheus(reg, "")
	require.NoError(t, err)
	assert.Same(t, p, metrics.OrNop(p))
}
