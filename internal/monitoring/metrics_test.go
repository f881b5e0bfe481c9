//nolint:testpackage // requires internal access to unexported types and functions
package monitoring

import (
	"errors"
	"testing"
	"time"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	t.Run("create disabled collector", func(t *testing.T) {
		collector := NewCollector(false, 0)
		assert.False(t, collector.IsEnabled())
		assert.Empty(t, collector.GetMetrics())
		assert.Equal(t, DefaultMaxRecords, collector.maxRecords)
	})

	t.Run("record stage with disabled collector", func(t *testing.T) {
		collector := NewCollector(false, 0)

		callCount := 0
		err := collector.RecordStage(StageFilter, func() (int, error) {
			callCount++
			return 3, nil
		})

		require.NoError(t, err)
		assert.Equal(t, 1, callCount)
		assert.Empty(t, collector.GetMetrics())
	})

	t.Run("record stage with enabled collector", func(t *testing.T) {
		collector := NewCollector(true, 0)

		err := collector.RecordStage(StageFilter, func() (int, error) {
			time.Sleep(time.Millisecond)
			return 42, nil
		})
		require.NoError(t, err)

		metrics := collector.GetMetrics()
		require.Len(t, metrics, 1)
		assert.Equal(t, StageFilter, metrics[0].Stage)
		assert.Equal(t, int64(42), metrics[0].RowsProcessed)
		assert.GreaterOrEqual(t, metrics[0].Duration, time.Millisecond)
		assert.False(t, metrics[0].Failed)
	})

	t.Run("record failing stage", func(t *testing.T) {
		collector := NewCollector(true, 0)
		boom := errors.New("boom")

		err := collector.RecordStage(StageJoin, func() (int, error) { return 0, boom })
		require.ErrorIs(t, err, boom)
		assert.True(t, collector.GetMetrics()[0].Failed)
	})

	t.Run("history is bounded", func(t *testing.T) {
		collector := NewCollector(true, 2)
		for i := 0; i < 5; i++ {
			rows := i
			_ = collector.RecordStage(StageAggregate, func() (int, error) { return rows, nil })
		}

		metrics := collector.GetMetrics()
		require.Len(t, metrics, 2)
		assert.Equal(t, int64(3), metrics[0].RowsProcessed)
		assert.Equal(t, int64(4), metrics[1].RowsProcessed)
	})

	t.Run("nil collector only runs fn", func(t *testing.T) {
		var collector *Collector
		called := false
		err := collector.RecordStage(StageExport, func() (int, error) {
			called = true
			return 0, nil
		})
		require.NoError(t, err)
		assert.True(t, called)
		assert.Empty(t, collector.GetMetrics())
		assert.Empty(t, collector.GetSummary().Stages)
	})

	t.Run("clear and toggle", func(t *testing.T) {
		collector := NewCollector(true, 0)
		_ = collector.RecordStage(StageFilter, func() (int, error) { return 1, nil })
		collector.Clear()
		assert.Empty(t, collector.GetMetrics())

		collector.SetEnabled(false)
		assert.False(t, collector.IsEnabled())
	})
}

func TestCollectorSummary(t *testing.T) {
	collector := NewCollector(true, 0)
	_ = collector.RecordStage(StageFilter, func() (int, error) { return 5, nil })
	_ = collector.RecordStage(StageFilter, func() (int, error) { return 3, nil })
	_ = collector.RecordStage(StageJoin, func() (int, error) { return 0, errors.New("x") })

	summary := collector.GetSummary()
	assert.Equal(t, 3, summary.TotalStages)
	require.Contains(t, summary.Stages, StageFilter)
	assert.Equal(t, 2, summary.Stages[StageFilter].Count)
	assert.Equal(t, int64(8), summary.Stages[StageFilter].TotalRows)
	assert.Equal(t, 1, summary.Stages[StageJoin].Failures)
}

func TestPrometheusMetrics(t *testing.T) {
	before := promtestutil.ToFloat64(StageErrors.WithLabelValues("test-stage"))
	ObserveStage("test-stage", time.Millisecond, errors.New("failed"))
	assert.InDelta(t, before+1, promtestutil.ToFloat64(StageErrors.WithLabelValues("test-stage")), 1e-9)

	hits := promtestutil.ToFloat64(SourceCacheHits)
	RecordSourceCache(true)
	assert.InDelta(t, hits+1, promtestutil.ToFloat64(SourceCacheHits), 1e-9)

	requests := promtestutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/test", "200"))
	RecordAPIRequest("GET", "/test", 200, time.Millisecond)
	assert.InDelta(t, requests+1, promtestutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/test", "200")), 1e-9)
}
