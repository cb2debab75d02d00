// Package streaming implements the minimal in-house multicast primitive
// spec.md §9 asks for: hot, multicast, synchronous fan-out, no replay,
// idempotent unsubscribe. It is the one reactive primitive every other
// package in this module builds on (channel message streams, the monitor
// stream, store change/mutation streams) — there is deliberately no
// second implementation anywhere in the tree.
//
// Emit delivers to every subscriber present at call time, in subscription
// order, synchronously: Emit does not return until every subscriber's
// handler has run. A panic inside one subscriber's handler is caught and
// logged so it cannot prevent delivery to the subscribers after it —
// mirroring the teacher's framebus, where one slow subscriber never
// blocks delivery to the others, just generalized from "drop on
// backpressure" to "isolate on panic" since this primitive must never
// drop a delivery.
package streaming

import (
	"sync"

	"github.com/framewire/messagebus/buslog"
)

// Handler receives one emitted value. It must not block for long: it runs
// synchronously on the publisher's call stack, and a blocking handler
// blocks every subscriber after it plus the publisher itself — the same
// constraint spec.md §5 places on the kernel as a whole.
type Handler[T any] func(T)

// Stream is a hot, multicast, synchronous stream of values of type T.
// The zero value is not usable; construct with New.
type Stream[T any] struct {
	mu          sync.Mutex
	subscribers []*subscriberEntry[T]
	nextID      uint64
	closed      bool
	closedCh    chan struct{}
	logger      buslog.Logger
	name        string
}

type subscriberEntry[T any] struct {
	id      uint64
	handler Handler[T]
}

// New returns an empty, open Stream. name is used only in log messages.
func New[T any](name string, logger buslog.Logger) *Stream[T] {
	if logger == nil {
		logger = buslog.Nop()
	}
	return &Stream[T]{closedCh: make(chan struct{}), logger: logger, name: name}
}

// Subscription is returned by Subscribe. Unsubscribe is idempotent: it is
// safe to call more than once, and safe to call after the stream has
// closed.
type Subscription struct {
	once       sync.Once
	unsubFn    func()
	doneCh     <-chan struct{}
}

// Unsubscribe disconnects the subscriber from future emissions. Delivery
// already in flight on the current emission completes regardless — this
// only prevents delivery of the *next* emission.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		if s.unsubFn != nil {
			s.unsubFn()
		}
	})
}

// Done reports, via a channel close, that the stream this subscription
// belongs to has been closed (either before or after the subscription
// was created).
func (s *Subscription) Done() <-chan struct{} { return s.doneCh }

// Subscribe registers handler for future emissions. If the stream is
// already closed, the returned Subscription's Done channel is already
// closed and handler will never be called — spec.md §3's "subsequent
// subscribers receive a terminal event and are not retained."
func (s *Stream[T]) Subscribe(handler Handler[T]) *Subscription {
	if handler == nil {
		s.logger.Error("streaming: subscribe with nil handler", map[string]any{"stream": s.name})
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return &Subscription{doneCh: s.closedCh}
	}
	id := s.nextID
	s.nextID++
	entry := &subscriberEntry[T]{id: id, handler: handler}
	s.subscribers = append(s.subscribers, entry)
	s.mu.Unlock()

	return &Subscription{
		doneCh: s.closedCh,
		unsubFn: func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, e := range s.subscribers {
				if e.id == id {
					s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
					break
				}
			}
		},
	}
}

// Emit delivers v to every subscriber present at call time, in
// subscription order, before returning. New subscribers added by a
// handler running during this Emit do not receive this value — only the
// next one.
func (s *Stream[T]) Emit(v T) int {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logger.Warn("streaming: emit on closed stream", map[string]any{"stream": s.name})
		return 0
	}
	snapshot := make([]*subscriberEntry[T], len(s.subscribers))
	copy(snapshot, s.subscribers)
	s.mu.Unlock()

	delivered := 0
	for _, entry := range snapshot {
		if entry.handler == nil {
			s.logger.Error("streaming: dropped emission, subscriber has no handler",
				map[string]any{"stream": s.name})
			continue
		}
		s.deliverOne(entry.handler, v)
		delivered++
	}
	return delivered
}

// deliverOne isolates a panicking subscriber so it cannot break delivery
// to subsequent subscribers, per spec.md §4.C ("failures are logged but
// do not propagate back to the sender").
func (s *Stream[T]) deliverOne(handler Handler[T], v T) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("streaming: subscriber panicked", map[string]any{
				"stream": s.name, "panic": r,
			})
		}
	}()
	handler(v)
}

// Len returns the current subscriber count. Intended for stats snapshots,
// not for control flow.
func (s *Stream[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

// Close terminates the stream: no further Emit calls deliver anything,
// and every current and future Subscription's Done channel is closed.
// Close is idempotent.
func (s *Stream[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.subscribers = nil
	close(s.closedCh)
}

// Closed reports whether Close has been called.
func (s *Stream[T]) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
