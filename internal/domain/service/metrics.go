// Package service defines the domain services of the key registry: the lifecycle
// state machine, the predicate filter engine and the sort engine, plus the interfaces
// the application layer depends on.
package service

import (
	"time"
)

// Metrics defines the interface for collecting business metrics.
// This abstraction allows the application layer to remain independent of the specific monitoring implementation (e.g., Prometheus).
// Metrics 定义了收集业务指标的接口。
// 这种抽象使应用层能够独立于具体的监控实现（例如 Prometheus）。
type Metrics interface {
	// RecordTransition records a single lifecycle transition attempt.
	// RecordTransition 记录一次生命周期状态转换尝试。
	RecordTransition(action string, success bool, errorCode string)

	// RecordBulkOutcome records the per-target outcome of a bulk action.
	// RecordBulkOutcome 记录批量操作中每个目标的结果。
	RecordBulkOutcome(action, kind string)

	// RecordBulkDuration records how long a confirmed bulk action took.
	// RecordBulkDuration 记录已确认批量操作的耗时。
	RecordBulkDuration(action string, targets int, duration time.Duration)

	// RecordQuery records the latency and result size of a filtered view.
	// RecordQuery 记录过滤视图的延迟和结果数量。
	RecordQuery(entity string, matched int, duration time.Duration)

	// RecordExpirations records records expired by the scheduler tick.
	// RecordExpirations 记录调度器本次过期的记录数量。
	RecordExpirations(count int)

	// UpdateRecordCount updates the gauge of stored records per status.
	// UpdateRecordCount 更新每种状态的记录数量仪表盘。
	UpdateRecordCount(status string, count int)
}

// NoopMetrics discards every measurement.
type NoopMetrics struct{}

func (NoopMetrics) RecordTransition(string, bool, string)         {}
func (NoopMetrics) RecordBulkOutcome(string, string)              {}
func (NoopMetrics) RecordBulkDuration(string, int, time.Duration) {}
func (NoopMetrics) RecordQuery(string, int, time.Duration)        {}
func (NoopMetrics) RecordExpirations(int)                         {}
func (NoopMetrics) UpdateRecordCount(string, int)                 {}
