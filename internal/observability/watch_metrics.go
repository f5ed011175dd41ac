package observability

import (
	"sync/atomic"
	"time"
)

type WatchMetrics struct {
	polls      atomic.Uint64
	newResults atomic.Uint64
	failures   atomic.Uint64
	notified   atomic.Uint64
	notifyFail atomic.Uint64

	// poll duration stats (nanoseconds)
	durationCount atomic.Uint64
	durationTotal atomic.Int64
	durationMax   atomic.Int64
}

func NewWatchMetrics() *WatchMetrics {
	m := &WatchMetrics{}
	m.durationMax.Store(0)
	return m
}

func (m *WatchMetrics) IncPolls() {
	m.polls.Add(1)
}
func (m *WatchMetrics) IncNewResults(n int) {
	if n > 0 {
		m.newResults.Add(uint64(n))
	}
}
func (m *WatchMetrics) IncFailures() {
	m.failures.Add(1)
}

func (m *WatchMetrics) IncNotified() {
	m.notified.Add(1)
}

func (m *WatchMetrics) IncNotifyFailed() {
	m.notifyFail.Add(1)
}

func (m *WatchMetrics) ObserveDuration(d time.Duration) {
	ns := d.Nanoseconds()
	m.durationCount.Add(1)
	m.durationTotal.Add(ns)

	// max update

	for {
		curr := m.durationMax.Load()

		if ns <= curr {
			return
		}

		if m.durationMax.CompareAndSwap(curr, ns) {
			return
		}
	}
}

type WatchMetricsSnapShot struct {
	Polls           uint64
	NewResults      uint64
	Failures        uint64
	Notified        uint64
	NotifyFailed    uint64
	DurationCount   uint64
	AverageDuration time.Duration
	MaxDuration     time.Duration
}

func (m *WatchMetrics) Snapshot() WatchMetricsSnapShot {
	count := m.durationCount.Load()
	total := m.durationTotal.Load()
	max := m.durationMax.Load()

	var avg time.Duration

	if count > 0 {
		avg = time.Duration(total / int64(count))
	}

	return WatchMetricsSnapShot{
		Polls:           m.polls.Load(),
		NewResults:      m.newResults.Load(),
		Failures:        m.failures.Load(),
		Notified:        m.notified.Load(),
		NotifyFailed:    m.notifyFail.Load(),
		DurationCount:   count,
		AverageDuration: avg,
		MaxDuration:     time.Duration(max),
	}

}
