package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestPrometheusCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg, "test")

	t.Run("lazy registration", func(t *testing.T) {
		families, err := reg.Gather()
		require.NoError(t, err)
		require.Empty(t, families)
	})

	p.RecordPartitionsResolved("StaticPartitionsDefinition", 3)
	p.RecordPartitionsResolved("StaticPartitionsDefinition", 5)
	p.RecordScheduleTick("daily", "requested")
	p.RecordScheduleTick("daily", "skipped")
	p.RecordScheduleTick("daily", "skipped")
	p.RecordUserCodeError("daily", "tags_fn")
	p.RecordSubsetDeserialize("legacy")
	p.RecordStoreOperation("redis", "add", 0.002, true)
	p.RecordStoreOperation("redis", "add", 0.004, false)

	t.Run("counters", func(t *testing.T) {
		require.InDelta(t, 2, testutil.ToFloat64(p.definitionEvals.WithLabelValues("StaticPartitionsDefinition")), 0)
		require.InDelta(t, 1, testutil.ToFloat64(p.scheduleTicks.WithLabelValues("daily", "requested")), 0)
		require.InDelta(t, 2, testutil.ToFloat64(p.scheduleTicks.WithLabelValues("daily", "skipped")), 0)
		require.InDelta(t, 1, testutil.ToFloat64(p.userCodeErrors.WithLabelValues("daily", "tags_fn")), 0)
		require.InDelta(t, 1, testutil.ToFloat64(p.subsetDecodes.WithLabelValues("legacy")), 0)
		require.InDelta(t, 1, testutil.ToFloat64(p.storeOps.WithLabelValues("redis", "add", "true")), 0)
		require.InDelta(t, 1, testutil.ToFloat64(p.storeOps.WithLabelValues("redis", "add", "false")), 0)
	})

	t.Run("namespace", func(t *testing.T) {
		count, err := testutil.GatherAndCount(reg, "test_schedule_ticks_total")
		require.NoError(t, err)
		require.Equal(t, 2, count)
	})
}

func TestNewPrometheus_Defaults(t *testing.T) {
	p := NewPrometheus(prometheus.NewRegistry(), "")
	require.Equal(t, DefaultNamespace, p.namespace)
}
