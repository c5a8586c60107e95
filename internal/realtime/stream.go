package realtime

import (
	"sync"
	"sync/atomic"

	"github.com/banshee-data/motion.report/internal/biomech"
)

// Stream fans results out to subscribers. New subscribers receive the
// latest result first. Publishing never blocks: a subscriber whose
// backlog is full loses its oldest undelivered result.
type Stream struct {
	mu      sync.Mutex
	backlog int
	subs    map[*Subscription]struct{}
	latest  *biomech.Result
	closed  bool
}

func newStream(backlog int) *Stream {
	return &Stream{backlog: backlog, subs: make(map[*Subscription]struct{})}
}

// Subscription is one consumer's view of the stream.
type Subscription struct {
	ch      chan *biomech.Result
	stream  *Stream
	dropped atomic.Uint64
	once    sync.Once
}

// C delivers results in publish order. It is closed when the stream
// closes or the subscription is cancelled.
func (s *Subscription) C() <-chan *biomech.Result { return s.ch }

// Dropped counts results discarded because this subscriber fell behind.
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

// Close cancels the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.stream.unsubscribe(s)
}

// Subscribe registers a consumer. After the stream has closed the
// returned subscription's channel is already closed.
func (st *Stream) Subscribe() *Subscription {
	sub := &Subscription{ch: make(chan *biomech.Result, st.backlog), stream: st}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		sub.once.Do(func() { close(sub.ch) })
		return sub
	}
	if st.latest != nil {
		sub.ch <- st.latest
	}
	st.subs[sub] = struct{}{}
	return sub
}

// Latest returns the most recently published result, or nil.
func (st *Stream) Latest() *biomech.Result {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.latest
}

// Subscribers returns the number of active subscriptions.
func (st *Stream) Subscribers() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.subs)
}

func (st *Stream) publish(r *biomech.Result) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return
	}
	st.latest = r
	for sub := range st.subs {
		select {
		case sub.ch <- r:
			continue
		default:
		}
		// Full: discard the oldest entry to make room.
		select {
		case <-sub.ch:
			sub.dropped.Add(1)
		default:
		}
		select {
		case sub.ch <- r:
		default:
			sub.dropped.Add(1)
		}
	}
}

func (st *Stream) unsubscribe(sub *Subscription) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.subs, sub)
	sub.once.Do(func() { close(sub.ch) })
}

func (st *Stream) close() {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return
	}
	st.closed = true
	for sub := range st.subs {
		sub.once.Do(func() { close(sub.ch) })
	}
	clear(st.subs)
}
