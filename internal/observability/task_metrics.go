package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricTasksTotal         = "nxcore.task.runs.total"
	metricTaskDuration       = "nxcore.task.duration.seconds"
	metricHashDuration       = "nxcore.hash.duration.seconds"
	metricTaskCacheHitsTotal = "nxcore.task.cache.hits.total"
	metricTaskCacheMissTotal = "nxcore.task.cache.misses.total"
	metricRunningTasksGauge  = "nxcore.tasks.running"
)

// TaskMetrics holds OTel instruments for task-execution metrics: how many
// tasks ran, how long they and their fingerprint computation took, and how
// often their cached output was reused instead of re-executed.
type TaskMetrics struct {
	tasksTotal   metric.Int64Counter
	taskDuration metric.Float64Histogram
	hashDuration metric.Float64Histogram
	cacheHits    metric.Int64Counter
	cacheMisses  metric.Int64Counter
	runningTasks metric.Int64UpDownCounter
}

// TaskRunStats holds the statistics for a single completed task execution.
type TaskRunStats struct {
	Project      string
	Target       string
	Status       string
	Duration     time.Duration
	HashDuration time.Duration
	Cached       bool
}

// NewTaskMetrics creates task metric instruments from the given meter.
func NewTaskMetrics(mt metric.Meter) (*TaskMetrics, error) {
	b := newMetricBuilder(mt)

	tm := &TaskMetrics{
		tasksTotal:   b.counter(metricTasksTotal, "Total task runs", "{task}"),
		taskDuration: b.histogram(metricTaskDuration, "Task wall-clock duration in seconds", "s", durationBucketBoundaries...),
		hashDuration: b.histogram(metricHashDuration, "Task fingerprint computation duration in seconds", "s", durationBucketBoundaries...),
		cacheHits:    b.counter(metricTaskCacheHitsTotal, "Task runs served from cache", "{hit}"),
		cacheMisses:  b.counter(metricTaskCacheMissTotal, "Task runs not found in cache", "{miss}"),
		runningTasks: b.upDownCounter(metricRunningTasksGauge, "Number of tasks currently executing", "{task}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return tm, nil
}

// RecordRun records one completed task execution. Safe to call on a nil
// receiver (no-op), so callers don't need to nil-check an optional metrics
// instance at every call site.
func (tm *TaskMetrics) RecordRun(ctx context.Context, stats TaskRunStats) {
	if tm == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("project", stats.Project),
		attribute.String("target", stats.Target),
		attribute.String(attrStatus, stats.Status),
	)

	tm.tasksTotal.Add(ctx, 1, attrs)
	tm.taskDuration.Record(ctx, stats.Duration.Seconds(), attrs)
	tm.hashDuration.Record(ctx, stats.HashDuration.Seconds())

	if stats.Cached {
		tm.cacheHits.Add(ctx, 1)
	} else {
		tm.cacheMisses.Add(ctx, 1)
	}
}

// TrackRunning increments the running-tasks gauge and returns a function to
// decrement it, mirroring REDMetrics.TrackInflight for the task pipeline.
func (tm *TaskMetrics) TrackRunning(ctx context.Context) func() {
	if tm == nil {
		return func() {}
	}

	tm.runningTasks.Add(ctx, 1)

	return func() {
		tm.runningTasks.Add(ctx, -1)
	}
}
