// Package monitoring records how long each stage of a dashboard interaction
// takes, both in memory for the debug endpoint and as Prometheus metrics.
package monitoring

import (
	"sync"
	"time"
)

// Stage names used by the dashboard pipeline.
const (
	StageLoad      = "load"
	StagePrepare   = "prepare"
	StageFilter    = "filter"
	StageJoin      = "join"
	StageAggregate = "aggregate"
	StageExport    = "export"
)

// DefaultMaxRecords bounds the in-memory history of a Collector.
const DefaultMaxRecords = 1024

// StageMetrics represents one timed pipeline stage.
type StageMetrics struct {
	Stage         string        `json:"stage"`
	Duration      time.Duration `json:"duration"`
	RowsProcessed int64         `json:"rows_processed"`
	Failed        bool          `json:"failed"`
	At            time.Time     `json:"at"`
}

// Collector collects and stores timings for pipeline stages. The newest
// MaxRecords entries are kept. A nil *Collector is valid and only runs the
// timed functions.
type Collector struct {
	mu         sync.RWMutex
	metrics    []StageMetrics
	enabled    bool
	maxRecords int
}

// NewCollector creates a new collector keeping up to maxRecords entries;
// maxRecords <= 0 selects DefaultMaxRecords.
func NewCollector(enabled bool, maxRecords int) *Collector {
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}
	return &Collector{
		metrics:    make([]StageMetrics, 0),
		enabled:    enabled,
		maxRecords: maxRecords,
	}
}

// IsEnabled returns whether metrics collection is enabled.
func (c *Collector) IsEnabled() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

// SetEnabled enables or disables metrics collection.
func (c *Collector) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
}

// RecordStage runs fn and records its duration under stage. fn returns the
// number of rows it produced. Prometheus observations are made even when the
// in-memory history is disabled.
func (c *Collector) RecordStage(stage string, fn func() (int, error)) error {
	start := time.Now()
	rows, err := fn()
	duration := time.Since(start)

	ObserveStage(stage, duration, err)

	if !c.IsEnabled() {
		return err
	}

	c.mu.Lock()
	c.metrics = append(c.metrics, StageMetrics{
		Stage:         stage,
		Duration:      duration,
		RowsProcessed: int64(rows),
		Failed:        err != nil,
		At:            start,
	})
	if over := len(c.metrics) - c.maxRecords; over > 0 {
		c.metrics = append(c.metrics[:0], c.metrics[over:]...)
	}
	c.mu.Unlock()

	return err
}

// GetMetrics returns a copy of all collected metrics.
func (c *Collector) GetMetrics() []StageMetrics {
	if c == nil {
		return []StageMetrics{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]StageMetrics, len(c.metrics))
	copy(result, c.metrics)
	return result
}

// Clear removes all collected metrics.
func (c *Collector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = c.metrics[:0]
}

// StageSummary aggregates the records of one stage.
type StageSummary struct {
	Count           int           `json:"count"`
	Failures        int           `json:"failures"`
	TotalDuration   time.Duration `json:"total_duration"`
	AverageDuration time.Duration `json:"average_duration"`
	TotalRows       int64         `json:"total_rows"`
}

// Summary provides aggregate statistics for collected metrics.
type Summary struct {
	TotalStages   int                     `json:"total_stages"`
	TotalDuration time.Duration           `json:"total_duration"`
	Stages        map[string]StageSummary `json:"stages"`
}

// GetSummary returns a summary of collected metrics.
func (c *Collector) GetSummary() Summary {
	summary := Summary{Stages: map[string]StageSummary{}}
	if c == nil {
		return summary
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, m := range c.metrics {
		s := summary.Stages[m.Stage]
		s.Count++
		s.TotalDuration += m.Duration
		s.TotalRows += m.RowsProcessed
		if m.Failed {
			s.Failures++
		}
		summary.Stages[m.Stage] = s
		summary.TotalStages++
		summary.TotalDuration += m.Duration
	}
	for name, s := range summary.Stages {
		s.AverageDuration = s.TotalDuration / time.Duration(s.Count)
		summary.Stages[name] = s
	}
	return summary
}
