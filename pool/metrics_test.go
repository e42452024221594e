package pool

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsTwoPoolsDontCollideOnConstLabels(t *testing.T) {
	m1 := newMetrics("pool-a")
	defer m1.unregister()
	m2 := newMetrics("pool-b")
	defer m2.unregister()

	m1.idle.Set(3)
	m2.idle.Set(7)

	assert.Equal(t, float64(3), testutil.ToFloat64(m1.idle))
	assert.Equal(t, float64(7), testutil.ToFloat64(m2.idle))
}

func TestMetricsUnregisterAllowsReuseOfSamePoolID(t *testing.T) {
	m1 := newMetrics("pool-reuse")
	m1.unregister()

	require.NotPanics(t, func() {
		m2 := newMetrics("pool-reuse")
		m2.unregister()
	})
}
