package realtime

import (
	"fmt"
	"sync"
	"time"

	"github.com/banshee-data/motion.report/internal/biomech"
)

// maxTransitionLog bounds the in-memory transition history.
const maxTransitionLog = 64

// Transition records one tier change.
type Transition struct {
	At          time.Time     `json:"at"`
	From        biomech.Tier  `json:"from"`
	To          biomech.Tier  `json:"to"`
	FrameSkip   int           `json:"frame_skip"`
	MeanLatency time.Duration `json:"mean_latency_ns"`
	DropRate    float64       `json:"drop_rate"`
	Reason      string        `json:"reason"`
}

// TransitionSink receives tier changes. RecordTransition is called from
// the monitor goroutine and must not block.
type TransitionSink interface {
	RecordTransition(Transition)
}

// transitionLog is a bounded history of tier changes.
type transitionLog struct {
	mu    sync.Mutex
	items []Transition
}

func (l *transitionLog) add(t Transition) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.items) >= maxTransitionLog {
		copy(l.items, l.items[1:])
		l.items = l.items[:len(l.items)-1]
	}
	l.items = append(l.items, t)
}

func (l *transitionLog) list() []Transition {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Transition(nil), l.items...)
}

// monitor evaluates latency once per tick until the processor stops.
func (p *Processor) monitor() {
	defer p.wg.Done()
	defer p.ticker.Stop()
	for {
		select {
		case <-p.ctx.Done():
			return
		case now := <-p.ticker.C():
			p.evaluate(now)
		}
	}
}

// evaluate is one step of the hysteretic controller: degrade when the
// recent mean latency is well above target, recover when it is well below
// and few frames are being dropped.
func (p *Processor) evaluate(now time.Time) {
	if !p.adaptive.Load() {
		return
	}
	snap := p.metrics.load()
	mean, ok := snap.meanSince(now.Add(-p.cfg.MonitorInterval))
	if !ok {
		return
	}
	dropRate := snap.dropRate()
	target := p.cfg.TargetLatency

	p.tierMu.Lock()
	defer p.tierMu.Unlock()
	from := p.currentTier()
	skip := int(p.frameSkip.Load())

	var reason string
	switch {
	case float64(mean) > degradeFactor*float64(target):
		p.tier.Store(int32(from.StepDown()))
		p.frameSkip.Store(int32(min(skip+1, p.cfg.MaxFrameSkip)))
		reason = fmt.Sprintf("mean latency %s above %.1fx target %s", mean, degradeFactor, target)
	case float64(mean) < upgradeFactor*float64(target) && dropRate < maxUpgradeDropRate:
		p.tier.Store(int32(from.StepUp()))
		p.frameSkip.Store(int32(max(skip-1, 1)))
		reason = fmt.Sprintf("mean latency %s below %.1fx target %s", mean, upgradeFactor, target)
	default:
		return
	}

	to := p.currentTier()
	newSkip := int(p.frameSkip.Load())
	if to == from && newSkip == skip {
		return
	}
	tracef("frame skip %d -> %d", skip, newSkip)
	if to == from {
		return
	}
	p.recordTransition(Transition{
		At:          now,
		From:        from,
		To:          to,
		FrameSkip:   newSkip,
		MeanLatency: mean,
		DropRate:    dropRate,
		Reason:      reason,
	})
}

func (p *Processor) recordTransition(t Transition) {
	diagf("tier %s -> %s (skip=%d): %s", t.From, t.To, t.FrameSkip, t.Reason)
	p.transitions.add(t)
	if p.cfg.TransitionSink != nil {
		p.cfg.TransitionSink.RecordTransition(t)
	}
}
