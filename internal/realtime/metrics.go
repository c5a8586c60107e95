package realtime

import (
	"sync/atomic"
	"time"
)

// durationSample is one completed analysis.
type durationSample struct {
	at time.Time
	d  time.Duration
}

// metricsSnapshot is an immutable view of the processor counters. Updates
// copy the struct and swap the pointer; durations is never modified in
// place, so copies may share it.
type metricsSnapshot struct {
	submitted uint64
	accepted  uint64
	skipped   uint64
	dropped   uint64
	rejected  uint64
	processed uint64
	errors    uint64
	durations []durationSample // oldest first
}

type metrics struct {
	window int
	p      atomic.Pointer[metricsSnapshot]
}

func newMetrics(window int) *metrics {
	m := &metrics{window: window}
	m.p.Store(&metricsSnapshot{})
	return m
}

func (m *metrics) load() *metricsSnapshot { return m.p.Load() }

// update applies fn to a copy of the current snapshot and publishes it,
// retrying if another writer won the race.
func (m *metrics) update(fn func(*metricsSnapshot)) {
	for {
		old := m.p.Load()
		next := *old
		fn(&next)
		if m.p.CompareAndSwap(old, &next) {
			return
		}
	}
}

func (m *metrics) reset() {
	m.p.Store(&metricsSnapshot{})
}

// recordDuration appends a sample, evicting the oldest past the window.
func (m *metrics) recordDuration(at time.Time, d time.Duration, failed bool) {
	m.update(func(s *metricsSnapshot) {
		if failed {
			s.errors++
		} else {
			s.processed++
		}
		start := 0
		if len(s.durations) >= m.window {
			start = len(s.durations) - m.window + 1
		}
		ds := make([]durationSample, 0, len(s.durations)-start+1)
		ds = append(ds, s.durations[start:]...)
		s.durations = append(ds, durationSample{at: at, d: d})
	})
}

// meanDuration averages every retained sample.
func (s *metricsSnapshot) meanDuration() time.Duration {
	if len(s.durations) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range s.durations {
		total += d.d
	}
	return total / time.Duration(len(s.durations))
}

// meanSince averages the samples recorded after cutoff. ok is false when
// there are none.
func (s *metricsSnapshot) meanSince(cutoff time.Time) (time.Duration, bool) {
	var total time.Duration
	n := 0
	for i := len(s.durations) - 1; i >= 0 && s.durations[i].at.After(cutoff); i-- {
		total += s.durations[i].d
		n++
	}
	if n == 0 {
		return 0, false
	}
	return total / time.Duration(n), true
}

// dropRate is dropped frames over submitted frames.
func (s *metricsSnapshot) dropRate() float64 {
	if s.submitted == 0 {
		return 0
	}
	return float64(s.dropped) / float64(s.submitted)
}

// successRate is processed frames over finished analyses.
func (s *metricsSnapshot) successRate() float64 {
	done := s.processed + s.errors
	if done == 0 {
		return 1
	}
	return float64(s.processed) / float64(done)
}
