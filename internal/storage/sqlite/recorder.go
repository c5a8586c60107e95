package sqlite

import (
	"context"
	"sync/atomic"

	"github.com/banshee-data/motion.report/internal/monitoring"
	"github.com/banshee-data/motion.report/internal/realtime"
)

// transitionBuffer bounds transitions waiting to be written.
const transitionBuffer = 64

// Recorder writes a processor's results and tier transitions into one
// session. It implements realtime.TransitionSink.
type Recorder struct {
	store       *Store
	sessionID   string
	transitions chan realtime.Transition

	written atomic.Uint64
	dropped atomic.Uint64
	failed  atomic.Uint64
}

// NewRecorder creates a Recorder for an existing session.
func NewRecorder(store *Store, sessionID string) *Recorder {
	return &Recorder{
		store:       store,
		sessionID:   sessionID,
		transitions: make(chan realtime.Transition, transitionBuffer),
	}
}

// RecordTransition queues t for writing. It never blocks; a transition
// arriving while the buffer is full is counted and discarded.
func (r *Recorder) RecordTransition(t realtime.Transition) {
	select {
	case r.transitions <- t:
	default:
		r.dropped.Add(1)
	}
}

// Run writes results from sub and queued transitions until sub closes or
// ctx is cancelled, then flushes any queued transitions.
func (r *Recorder) Run(ctx context.Context, sub *realtime.Subscription) error {
	defer r.flushTransitions()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t := <-r.transitions:
			r.writeTransition(t)
		case res, ok := <-sub.C():
			if !ok {
				return nil
			}
			if err := r.store.InsertResult(context.WithoutCancel(ctx), r.sessionID, res); err != nil {
				r.failed.Add(1)
				monitoring.Logf("recorder: session %s frame %d: %v", r.sessionID, res.TimestampMs, err)
				continue
			}
			r.written.Add(1)
		}
	}
}

func (r *Recorder) flushTransitions() {
	for {
		select {
		case t := <-r.transitions:
			r.writeTransition(t)
		default:
			return
		}
	}
}

func (r *Recorder) writeTransition(t realtime.Transition) {
	if err := r.store.InsertTransition(context.Background(), r.sessionID, t); err != nil {
		r.failed.Add(1)
		monitoring.Logf("recorder: session %s transition %s -> %s: %v", r.sessionID, t.From, t.To, err)
	}
}

// Written counts persisted results.
func (r *Recorder) Written() uint64 { return r.written.Load() }

// Dropped counts transitions discarded on a full buffer.
func (r *Recorder) Dropped() uint64 { return r.dropped.Load() }

// Failed counts writes that returned an error.
func (r *Recorder) Failed() uint64 { return r.failed.Load() }
