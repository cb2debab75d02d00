package channel

import (
	"github.com/framewire/messagebus/internal/streaming"
	"github.com/framewire/messagebus/message"
)

// KindView is a projection of a Channel's stream filtered to one
// message.Kind, as returned by getRequestChannel/getResponseChannel/
// getErrorChannel. It shares the underlying Channel rather than
// maintaining a separate stream, so refcounting and destruction on the
// base channel apply to every view of it.
type KindView struct {
	ch   *Channel
	kind message.Kind
}

// RequestView, ResponseView, ErrorView return a KindView restricted to
// the corresponding message.Kind.
func RequestView(ch *Channel) KindView  { return KindView{ch: ch, kind: message.KindRequest} }
func ResponseView(ch *Channel) KindView { return KindView{ch: ch, kind: message.KindResponse} }
func ErrorView(ch *Channel) KindView    { return KindView{ch: ch, kind: message.KindError} }

// Subscribe delivers only messages whose Kind matches the view, in the
// same synchronous order as the base channel's full stream. Low-level:
// it bypasses refcount/monitor bookkeeping, so kernel/internal/core
// builds its public getRequestChannel/getResponseChannel/getErrorChannel
// on top of Channel()+Matches() instead, through core's own subscribe()
// choke point.
func (v KindView) Subscribe(handler streaming.Handler[message.Message]) *streaming.Subscription {
	return v.ch.Stream.Subscribe(func(m message.Message) {
		if v.Matches(m) {
			handler(m)
		}
	})
}

// Matches reports whether m belongs to this view's kind.
func (v KindView) Matches(m message.Message) bool { return m.Kind == v.kind }

// Channel returns the underlying, unfiltered Channel this view projects.
func (v KindView) Channel() *Channel { return v.ch }
