package service

import (
	"sync"
	"time"
)

// MetricsCollector tracks operation counts and cumulative processing
// time for the combat core's public operations.
type MetricsCollector struct {
	mu sync.RWMutex

	registrationCount     int
	registrationTotalTime time.Duration

	attackCount     int
	attackTotalTime time.Duration

	revealsRequested int
	revealsCompleted int
	revealsRejected  int
	revealTotalTime  time.Duration
}

// OperationMetrics contains timing information for an operation
type OperationMetrics struct {
	Count            int   `json:"count"`
	ProcessingTimeMs int64 `json:"processing_time_ms"`
}

// MetricsResponse provides the metrics for all operations
type MetricsResponse struct {
	Registration OperationMetrics `json:"registration"`
	Attacks      OperationMetrics `json:"attacks"`
	Reveals      OperationMetrics `json:"reveals"`

	RevealsCompleted int `json:"reveals_completed"`
	RevealsRejected  int `json:"reveals_rejected"`
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{}
}

func (mc *MetricsCollector) RecordRegistration(elapsed time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.registrationCount++
	mc.registrationTotalTime += elapsed
}

func (mc *MetricsCollector) RecordAttack(elapsed time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.attackCount++
	mc.attackTotalTime += elapsed
}

func (mc *MetricsCollector) RecordRevealRequested(elapsed time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.revealsRequested++
	mc.revealTotalTime += elapsed
}

func (mc *MetricsCollector) RecordRevealCompleted() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.revealsCompleted++
}

func (mc *MetricsCollector) RecordRevealRejected() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.revealsRejected++
}

// Snapshot returns the current metrics.
func (mc *MetricsCollector) Snapshot() MetricsResponse {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	return MetricsResponse{
		Registration: OperationMetrics{
			Count:            mc.registrationCount,
			ProcessingTimeMs: mc.registrationTotalTime.Milliseconds(),
		},
		Attacks: OperationMetrics{
			Count:            mc.attackCount,
			ProcessingTimeMs: mc.attackTotalTime.Milliseconds(),
		},
		Reveals: OperationMetrics{
			Count:            mc.revealsRequested,
			ProcessingTimeMs: mc.revealTotalTime.Milliseconds(),
		},
		RevealsCompleted: mc.revealsCompleted,
		RevealsRejected:  mc.revealsRejected,
	}
}
