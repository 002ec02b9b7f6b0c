package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/go-esm/internal/metrics"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	m.ObserveRequest("public", "success", 10*time.Millisecond)
	m.ObserveRequest("public", "success", 10*time.Millisecond)
	m.IncRelogin()
	m.IncSplit()
	m.IncPartial()

	assert.InDelta(t, 2, testutil.ToFloat64(m.Requests.WithLabelValues("public", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Relogins), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.QuerySplits), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.PartialResults), 0)

	t.Run("double registration fails", func(t *testing.T) {
		_, err := metrics.New(reg)
		require.Error(t, err)
	})
}

func TestNilMetrics(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("private", "error", time.Second)
		m.IncRelogin()
		m.IncSplit()
		m.IncPartial()
	})
}
