package sidongo

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    searchCounter prometheus.Counter
//	    nodeCounter   prometheus.Counter
//	}
//
//	func (p *PrometheusCollector) RecordSearch(n int, nodes uint64, duration time.Duration, err error) {
//	    p.searchCounter.Inc()
//	    p.nodeCounter.Add(float64(nodes))
//	}
type MetricsCollector interface {
	// RecordSearch is called after each completed search run.
	// nodes is the number of explored nodes, duration the wall time,
	// err is nil on a clean run.
	RecordSearch(n int, nodes uint64, duration time.Duration, err error)

	// RecordSolution is called for each improving solution and, when
	// enumerating all optima, for each solution that ties the best.
	RecordSolution(n int, max uint64)

	// RecordSave is called after each persistence write.
	RecordSave(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordSearch(int, uint64, time.Duration, error) {}
func (NoopMetricsCollector) RecordSolution(int, uint64)                     {}
func (NoopMetricsCollector) RecordSave(time.Duration, error)                {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	SearchCount      atomic.Int64
	SearchErrors     atomic.Int64
	SearchTotalNanos atomic.Int64
	NodesExplored    atomic.Int64
	SolutionCount    atomic.Int64
	SaveCount        atomic.Int64
	SaveErrors       atomic.Int64
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(_ int, nodes uint64, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	b.NodesExplored.Add(int64(nodes))
	if err != nil {
		b.SearchErrors.Add(1)
	}
}

// RecordSolution implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSolution(int, uint64) {
	b.SolutionCount.Add(1)
}

// RecordSave implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSave(_ time.Duration, err error) {
	b.SaveCount.Add(1)
	if err != nil {
		b.SaveErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		SearchCount:    b.SearchCount.Load(),
		SearchErrors:   b.SearchErrors.Load(),
		SearchAvgNanos: b.getAvgSearchNanos(),
		NodesExplored:  b.NodesExplored.Load(),
		SolutionCount:  b.SolutionCount.Load(),
		SaveCount:      b.SaveCount.Load(),
		SaveErrors:     b.SaveErrors.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgSearchNanos() int64 {
	count := b.SearchCount.Load()
	if count == 0 {
		return 0
	}
	return b.SearchTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	SearchCount    int64
	SearchErrors   int64
	SearchAvgNanos int64
	NodesExplored  int64
	SolutionCount  int64
	SaveCount      int64
	SaveErrors     int64
}
