// Package pipeline implements pipeline metrics.
package pipeline

import (
	"sync/atomic"
)

// Metrics holds per-pipeline item-throughput counters.
type Metrics struct {
	Name string

	ItemsStarted  atomic.Uint64
	ItemsFinished atomic.Uint64
}

// NewMetrics creates a new metrics instance for the named pipeline.
func NewMetrics(name string) *Metrics {
	return &Metrics{Name: name}
}

// Stats is a point-in-time snapshot of a pipeline's counters.
type Stats struct {
	ItemsStarted  uint64
	ItemsFinished uint64
}

// Stats returns the current counter values.
func (m *Metrics) Stats() Stats {
	return Stats{
		ItemsStarted:  m.ItemsStarted.Load(),
		ItemsFinished: m.ItemsFinished.Load(),
	}
}
