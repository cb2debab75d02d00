package core

import (
	"sync"

	"github.com/framewire/messagebus/internal/streaming"
	"github.com/framewire/messagebus/kernel/internal/channel"
	"github.com/framewire/messagebus/message"
)

// Subscription is returned by every kernel subscribing operation
// (Listen, RequestOnceWithId, RequestStream, ResponseStream). Unlike the
// bare streaming.Subscription it wraps, Unsubscribe here also reverses
// the channel refcount bump and emits SubscriberRemoved — the bookkeeping
// spec.md §4.B requires of every channel detach, no matter which kernel
// operation created the subscription.
type Subscription struct {
	once  sync.Once
	inner *streaming.Subscription
	undo  func()
}

// Unsubscribe is idempotent, matching the underlying stream's guarantee.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		if s.undo != nil {
			s.undo()
		}
		s.inner.Unsubscribe()
	})
}

// subscribe wraps ch.Stream.Subscribe with the refcount and
// SubscriberAdded/SubscriberRemoved monitor bookkeeping spec.md §4.B asks
// the registry to maintain. Every subscription entering or leaving a
// channel — whether from Listen, RequestOnceWithId, or a stream variant —
// goes through this one path so the bookkeeping can never be forgotten
// at a call site.
func (k *Kernel) subscribe(ch *channel.Channel, fn streaming.Handler[message.Message]) *Subscription {
	ch.IncRef()
	k.monitor.emit(message.MonitorEvent{
		Type: message.MonitorEventSubscriberAdded, Channel: ch.Name(), SubscriberCount: int(ch.RefCount()),
	})

	inner := ch.Stream.Subscribe(fn)
	return &Subscription{
		inner: inner,
		undo: func() {
			k.monitor.emit(message.MonitorEvent{
				Type: message.MonitorEventSubscriberRemoved, Channel: ch.Name(), SubscriberCount: int(ch.DecRef()),
			})
		},
	}
}

// correlationFilter builds a Handler that only forwards Response/Error
// messages whose ID matches id, dispatching to onResponse or onError as
// appropriate. Neither callback is required; a nil callback for the kind
// that actually arrives is a missing-handler drop, logged at error per
// spec.md §7.
func (k *Kernel) correlationFilter(
	id message.Identifier,
	onResponse, onError func(message.Message),
) streaming.Handler[message.Message] {
	return func(m message.Message) {
		if m.ID != id {
			return
		}
		switch m.Kind {
		case message.KindResponse:
			k.dispatch(onResponse, m, "response")
		case message.KindError:
			k.dispatch(onError, m, "error")
		}
	}
}

// kindFilter builds a Handler that forwards Response messages to
// onResponse and Error messages to onError regardless of correlation id,
// the shape Listen and ResponseStream use.
func (k *Kernel) kindFilter(onResponse, onError func(message.Message)) streaming.Handler[message.Message] {
	return func(m message.Message) {
		switch m.Kind {
		case message.KindResponse:
			k.dispatch(onResponse, m, "response")
		case message.KindError:
			k.dispatch(onError, m, "error")
		}
	}
}

// dispatch invokes fn with m if non-nil; otherwise it logs and counts a
// missing-handler drop, per spec.md §7 ("Missing handler errors: log at
// error, drop the emission, keep the subscription").
func (k *Kernel) dispatch(fn func(message.Message), m message.Message, what string) {
	if fn != nil {
		fn(m)
		return
	}
	k.logger.Error("kernel: dropped message, no handler registered", map[string]any{
		"channel": string(m.Kind.String()), "kind": what, "id": string(m.ID),
	})
	k.stats.drops.Add(1)
	k.monitor.emit(message.MonitorEvent{Type: message.MonitorEventDropped, Message: m, Reason: "missing-handler"})
}
