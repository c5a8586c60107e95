// Package realtime schedules per-frame biomechanical analysis under a
// latency budget. Frames pass an admission gate into a small drop-oldest
// queue; a single worker analyses them at the quality tier chosen at
// admission, and a periodic monitor moves the tier up or down from the
// observed processing latency.
package realtime

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/banshee-data/motion.report/internal/biomech"
	"github.com/banshee-data/motion.report/internal/pose"
	"github.com/banshee-data/motion.report/internal/timeutil"
)

// Processor is the realtime analysis pipeline. ProcessPose, Stats,
// SetQualityLevel, Subscribe and Stop are safe for concurrent use.
type Processor struct {
	cfg        Config
	clock      timeutil.Clock
	strategies map[biomech.Tier]strategy

	// analyzer is only touched by the worker goroutine, and by Stop once
	// the worker has exited.
	analyzer *biomech.Analyzer

	queue       *taskQueue
	stream      *Stream
	metrics     *metrics
	transitions transitionLog

	tierMu    sync.Mutex // serialises tier and frame-skip changes
	tier      atomic.Int32
	frameSkip atomic.Int32
	adaptive  atomic.Bool
	counter   atomic.Uint64
	busy      atomic.Bool

	admitMu  sync.Mutex
	stopped  atomic.Bool
	stopOnce sync.Once

	ctx    context.Context
	cancel context.CancelFunc
	ticker timeutil.Ticker
	wg     sync.WaitGroup
}

// New creates a Processor and starts its worker and monitor. Cancelling
// ctx halts processing; Stop additionally clears state.
func New(ctx context.Context, cfg Config) *Processor {
	cfg = cfg.withDefaults()
	p := &Processor{
		cfg:        cfg,
		clock:      cfg.Clock,
		strategies: defaultStrategies(),
		analyzer:   biomech.NewAnalyzer(cfg.Analysis),
		queue:      newTaskQueue(cfg.QueueCapacity),
		stream:     newStream(cfg.StreamBacklog),
		metrics:    newMetrics(cfg.DurationWindow),
	}
	p.tier.Store(int32(cfg.InitialTier))
	p.frameSkip.Store(1)
	p.adaptive.Store(cfg.AdaptiveQuality)

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.ticker = p.clock.NewTicker(cfg.MonitorInterval)
	p.wg.Add(2)
	go p.worker()
	go p.monitor()

	diagf("started: tier=%s target=%s queue=%d adaptive=%t",
		cfg.InitialTier, cfg.TargetLatency, cfg.QueueCapacity, cfg.AdaptiveQuality)
	return p
}

// ProcessPose submits a frame. It returns false when the frame was not
// queued: the processor is stopped, another submission was mid-admission,
// or the frame-skip gate passed over it. Accepting a frame into a full
// queue evicts the oldest queued frame.
func (p *Processor) ProcessPose(f pose.Frame) bool {
	if p.stopped.Load() || p.ctx.Err() != nil {
		return false
	}
	if !p.admitMu.TryLock() {
		p.metrics.update(func(s *metricsSnapshot) { s.rejected++ })
		tracef("frame %d rejected: admission busy", f.TimestampMs)
		return false
	}
	defer p.admitMu.Unlock()
	if p.stopped.Load() {
		return false
	}

	n := uint64(p.frameSkip.Load())
	if c := p.counter.Add(1) - 1; c%n != 0 {
		p.metrics.update(func(s *metricsSnapshot) {
			s.submitted++
			s.skipped++
		})
		return false
	}

	evicted := p.queue.push(task{frame: f, submittedAt: p.clock.Now(), tier: p.currentTier()})
	p.metrics.update(func(s *metricsSnapshot) {
		s.submitted++
		s.accepted++
		if evicted {
			s.dropped++
		}
	})
	if evicted {
		tracef("queue full: evicted oldest frame for %d", f.TimestampMs)
	}
	return true
}

func (p *Processor) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case <-p.queue.wake:
		}
		for p.ctx.Err() == nil {
			t, ok := p.queue.pop()
			if !ok {
				break
			}
			p.process(t)
		}
	}
}

func (p *Processor) process(t task) {
	p.busy.Store(true)
	defer p.busy.Store(false)

	run, ok := p.strategies[t.tier]
	if !ok {
		run = p.strategies[biomech.TierMinimal]
	}
	start := p.clock.Now()
	res, err := run(p.analyzer, t.frame)
	d := p.clock.Since(start)
	if err == nil && res == nil {
		err = fmt.Errorf("%s analysis returned no result", t.tier)
	}
	p.metrics.recordDuration(p.clock.Now(), d, err != nil)

	if err != nil {
		opsf("frame %d: %v", t.frame.TimestampMs, err)
		return
	}
	if p.ctx.Err() != nil {
		return
	}
	res.ProcessingTime = d
	p.stream.publish(res)
	tracef("frame %d tier=%s took=%s waited=%s", t.frame.TimestampMs, t.tier, d, start.Sub(t.submittedAt))
}

// Stop cancels processing, discards queued frames, waits for the worker
// and monitor to exit, resets analysis state and closes the result
// stream. Later calls do nothing.
func (p *Processor) Stop() {
	p.stopOnce.Do(func() {
		p.stopped.Store(true)
		// Wait out any admission already past the stopped check.
		p.admitMu.Lock()
		p.admitMu.Unlock()

		p.cancel()
		discarded := p.queue.clear()
		p.wg.Wait()
		p.analyzer.Reset()
		p.stream.close()
		diagf("stopped: discarded %d queued frames", discarded)
	})
}

// SetQualityLevel forces the tier. With disableAdaptive the monitor stops
// changing it until SetAdaptive(true).
func (p *Processor) SetQualityLevel(tier biomech.Tier, disableAdaptive bool) error {
	if !tier.Valid() {
		return fmt.Errorf("set quality level: invalid tier %d", int(tier))
	}
	if disableAdaptive {
		p.adaptive.Store(false)
	}
	p.tierMu.Lock()
	defer p.tierMu.Unlock()
	from := p.currentTier()
	p.tier.Store(int32(tier))
	if from != tier {
		snap := p.metrics.load()
		p.recordTransition(Transition{
			At:          p.clock.Now(),
			From:        from,
			To:          tier,
			FrameSkip:   int(p.frameSkip.Load()),
			MeanLatency: snap.meanDuration(),
			DropRate:    snap.dropRate(),
			Reason:      "manual override",
		})
	}
	return nil
}

// SetAdaptive enables or disables the feedback monitor.
func (p *Processor) SetAdaptive(on bool) {
	p.adaptive.Store(on)
	diagf("adaptive quality %t", on)
}

// Subscribe registers a result consumer.
func (p *Processor) Subscribe() *Subscription { return p.stream.Subscribe() }

// Stream exposes the result stream.
func (p *Processor) Stream() *Stream { return p.stream }

// Tier returns the tier new frames are admitted at.
func (p *Processor) Tier() biomech.Tier { return p.currentTier() }

// Transitions returns the recent tier changes, oldest first.
func (p *Processor) Transitions() []Transition { return p.transitions.list() }

func (p *Processor) currentTier() biomech.Tier { return biomech.Tier(p.tier.Load()) }

// Statistics is a point-in-time view of the processor.
type Statistics struct {
	AverageLatency time.Duration `json:"average_latency_ns"`
	Tier           biomech.Tier  `json:"tier"`
	DropRate       float64       `json:"drop_rate"`
	SuccessRate    float64       `json:"success_rate"`
	QueueDepth     int           `json:"queue_depth"`
	Busy           bool          `json:"busy"`
	FrameSkip      int           `json:"frame_skip"`
	Adaptive       bool          `json:"adaptive"`
	Stopped        bool          `json:"stopped"`

	Submitted uint64 `json:"submitted"`
	Accepted  uint64 `json:"accepted"`
	Skipped   uint64 `json:"skipped"`
	Dropped   uint64 `json:"dropped"`
	Rejected  uint64 `json:"rejected"`
	Processed uint64 `json:"processed"`
	Errors    uint64 `json:"errors"`
}

// Stats returns the current statistics.
func (p *Processor) Stats() Statistics {
	s := p.metrics.load()
	return Statistics{
		AverageLatency: s.meanDuration(),
		Tier:           p.currentTier(),
		DropRate:       s.dropRate(),
		SuccessRate:    s.successRate(),
		QueueDepth:     p.queue.len(),
		Busy:           p.busy.Load(),
		FrameSkip:      int(p.frameSkip.Load()),
		Adaptive:       p.adaptive.Load(),
		Stopped:        p.stopped.Load(),
		Submitted:      s.submitted,
		Accepted:       s.accepted,
		Skipped:        s.skipped,
		Dropped:        s.dropped,
		Rejected:       s.rejected,
		Processed:      s.processed,
		Errors:         s.errors,
	}
}
