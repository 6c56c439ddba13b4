package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsForTesting(t *testing.T) {
	m := NewMetricsForTesting()

	m.FetchesTotal.WithLabelValues("all_day", OutcomeSuccess).Inc()
	m.FetchesTotal.WithLabelValues("all_day", OutcomeStale).Add(2)
	m.SnapshotEvents.Set(42)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchesTotal.WithLabelValues("all_day", OutcomeSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.FetchesTotal.WithLabelValues("all_day", OutcomeStale)))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.SnapshotEvents))
	assert.Equal(t, 2, testutil.CollectAndCount(m.FetchesTotal))
}

func TestMetricsRegisterCleanly(t *testing.T) {
	m := NewMetricsForTesting()
	reg := prometheus.NewRegistry()

	require.NoError(t, reg.Register(m.FetchesTotal))
	require.NoError(t, reg.Register(m.FetchDuration))
	require.NoError(t, reg.Register(m.RecordsDropped))
	require.NoError(t, reg.Register(m.SnapshotEvents))
	require.NoError(t, reg.Register(m.StreamClients))
	require.NoError(t, reg.Register(m.ViewComputation))

	m.StreamClients.Inc()
	count, err := testutil.GatherAndCount(reg, "quake_feed_stream_clients")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
