// Package core implements the bus kernel (spec.md §4.D) and its monitor
// channel (§4.E) on top of the channel registry in kernel/internal/channel.
// It is wrapped by the public kernel package, the same facade-over-
// internal layout the teacher uses for framebus.
package core

import (
	"github.com/framewire/messagebus/buslog"
	"github.com/framewire/messagebus/internal/streaming"
	"github.com/framewire/messagebus/kernel/internal/channel"
	"github.com/framewire/messagebus/message"
)

// Kernel is the concrete bus kernel. The public kernel.Kernel type is a
// thin alias over this.
type Kernel struct {
	registry *channel.Registry
	monitor  *monitor
	logger   buslog.Logger
	stats    counters
}

// New constructs an empty Kernel. logger may be nil (defaults to a no-op
// logger, matching the teacher's habit of never requiring wiring just to
// get a working value).
func New(logger buslog.Logger) *Kernel {
	if logger == nil {
		logger = buslog.Nop()
	}
	k := &Kernel{logger: logger}
	k.monitor = newMonitor(logger)
	k.registry = channel.NewRegistry(logger, k.monitor.emit)
	return k
}

// SetMonitoring toggles whether monitor events are delivered to the
// meta-stream. While monitoring is off, each call site still builds its
// MonitorEvent value; only the delivery is skipped.
func (k *Kernel) SetMonitoring(enabled bool) { k.monitor.setEnabled(enabled) }

// MonitorStream subscribes to the kernel's meta-stream. Used by the
// proxy's outbound relay and by test/debug tooling; never by the kernel
// itself, so monitor events cannot recurse.
func (k *Kernel) MonitorStream(handler streaming.Handler[message.MonitorEvent]) *streaming.Subscription {
	return k.monitor.subscribe(handler)
}

// Send publishes msg verbatim on channel, with sender stamped onto it.
// A send on a closed channel is a no-op, logged at warn per spec.md §7.
func (k *Kernel) Send(ch message.ChannelName, msg message.Message, sender string) {
	msg = msg.WithSender(sender)
	k.emitOn(ch, msg)
}

// SendRequest emits a Request-kind message with a freshly generated (or
// caller-supplied) id and returns that id.
func (k *Kernel) SendRequest(ch message.ChannelName, payload any, id message.Identifier, sender string) message.Identifier {
	if id == "" {
		id = message.NewIdentifier()
	}
	k.emitOn(ch, message.NewRequestWithID(id, payload, sender))
	return id
}

// SendResponseWithId emits a Response-kind message carrying id.
func (k *Kernel) SendResponseWithId(ch message.ChannelName, payload any, id message.Identifier, sender string) {
	k.emitOn(ch, message.NewResponse(id, payload, sender))
}

// SendErrorWithId emits an Error-kind message carrying id.
func (k *Kernel) SendErrorWithId(ch message.ChannelName, payload any, id message.Identifier, sender string) {
	k.emitOn(ch, message.NewError(id, payload, sender))
}

// emitOn is the single choke point every send-style operation funnels
// through: monitor emission always precedes the stream delivery that
// makes the message visible to subscribers, per spec.md §5.
func (k *Kernel) emitOn(chName message.ChannelName, msg message.Message) {
	ch := k.registry.GetChannel(chName)
	if ch.Closed() {
		k.logger.Warn(ErrChannelClosed.Error(), map[string]any{"channel": string(chName)})
		k.monitor.emit(message.MonitorEvent{Type: message.MonitorEventDropped, Channel: chName, Message: msg, Reason: "closed-channel"})
		k.stats.drops.Add(1)
		return
	}

	k.monitor.emit(message.MonitorEvent{Type: message.MonitorEventMessageData, Channel: chName, Message: msg})
	ch.Stream.Emit(msg)

	if msg.IsError() {
		k.stats.errors.Add(1)
	} else {
		k.stats.sent.Add(1)
	}
}

// Listen subscribes to channel for its lifetime, routing Response
// messages to onResponse and Error messages to onError. It never
// self-unsubscribes; the caller tears it down with Unsubscribe.
func (k *Kernel) Listen(chName message.ChannelName, sender string, onResponse, onError func(message.Message)) *Subscription {
	ch := k.registry.GetChannel(chName)
	return k.subscribe(ch, k.kindFilter(onResponse, onError))
}

// RequestOnceWithId sends a Request carrying id (generated if empty) on
// channel, then listens on returnChannel (channel itself if empty) for
// the first Response or Error whose id matches, routing it to onSuccess
// or onError respectively and detaching automatically afterward — at
// most one delivery ever reaches the caller, per spec.md §8 property 2.
//
// Requesting on an already-closed channel resolves onError synthetically
// and immediately, per spec.md §4.D.
func (k *Kernel) RequestOnceWithId(
	chName message.ChannelName,
	payload any,
	id message.Identifier,
	returnChannel message.ChannelName,
	sender string,
	onSuccess, onError func(message.Message),
) (message.Identifier, *Subscription) {
	if id == "" {
		id = message.NewIdentifier()
	}
	if returnChannel == "" {
		returnChannel = chName
	}

	returnCh := k.registry.GetChannel(returnChannel)
	if returnCh.Closed() {
		k.dispatch(onError, message.NewError(id, transportClosedPayload(), "kernel"), "error")
		return id, &Subscription{inner: &streaming.Subscription{}, undo: func() {}}
	}

	var sub *Subscription
	sub = k.subscribe(returnCh, func(m message.Message) {
		if m.ID != id || (!m.IsResponse() && !m.IsError()) {
			return
		}
		defer sub.Unsubscribe()
		if m.IsResponse() {
			k.dispatch(onSuccess, m, "response")
		} else {
			k.dispatch(onError, m, "error")
		}
	})

	k.SendRequest(chName, payload, id, sender)
	return id, sub
}

// RequestStream sends a Request on channel and persistently listens (no
// auto-teardown) for Response/Error traffic matching the generated id.
func (k *Kernel) RequestStream(
	chName message.ChannelName,
	payload any,
	sender string,
	onResponse, onError func(message.Message),
) (message.Identifier, *Subscription) {
	id := message.NewIdentifier()
	ch := k.registry.GetChannel(chName)
	sub := k.subscribe(ch, k.correlationFilter(id, onResponse, onError))
	k.SendRequest(chName, payload, id, sender)
	return id, sub
}

// ResponseStream persistently listens to channel for all Response/Error
// traffic, independent of correlation id. It is Listen under a name that
// mirrors spec.md §4.D's "requestStream / responseStream" pairing.
func (k *Kernel) ResponseStream(chName message.ChannelName, sender string, onResponse, onError func(message.Message)) *Subscription {
	return k.Listen(chName, sender, onResponse, onError)
}

// ChannelHandle is the return value of GetChannel/GetRequestChannel/
// GetResponseChannel/GetErrorChannel: a subscribable view over a channel,
// optionally filtered to one message.Kind. It exists so those four
// accessors can share core's subscribe() choke point (refcount bump,
// SubscriberAdded/Removed monitor events) rather than bypassing it the
// way channel.KindView.Subscribe does on its own.
type ChannelHandle struct {
	k    *Kernel
	ch   *channel.Channel
	view *channel.KindView
}

// Subscribe registers handler for future messages on the handle's
// channel, filtered to its kind if one was given.
func (h ChannelHandle) Subscribe(handler streaming.Handler[message.Message]) *Subscription {
	if h.view == nil {
		return h.k.subscribe(h.ch, handler)
	}
	view := *h.view
	return h.k.subscribe(h.ch, func(m message.Message) {
		if view.Matches(m) {
			handler(m)
		}
	})
}

// Name returns the underlying channel's name.
func (h ChannelHandle) Name() message.ChannelName { return h.ch.Name() }

// GetChannel returns the unfiltered stream for channel, creating it if
// absent (spec.md §4.B).
func (k *Kernel) GetChannel(chName message.ChannelName) ChannelHandle {
	return ChannelHandle{k: k, ch: k.registry.GetChannel(chName)}
}

// GetRequestChannel returns a view of channel filtered to Request-kind
// messages.
func (k *Kernel) GetRequestChannel(chName message.ChannelName) ChannelHandle {
	ch := k.registry.GetChannel(chName)
	v := channel.RequestView(ch)
	return ChannelHandle{k: k, ch: ch, view: &v}
}

// GetResponseChannel returns a view of channel filtered to Response-kind
// messages.
func (k *Kernel) GetResponseChannel(chName message.ChannelName) ChannelHandle {
	ch := k.registry.GetChannel(chName)
	v := channel.ResponseView(ch)
	return ChannelHandle{k: k, ch: ch, view: &v}
}

// GetErrorChannel returns a view of channel filtered to Error-kind
// messages.
func (k *Kernel) GetErrorChannel(chName message.ChannelName) ChannelHandle {
	ch := k.registry.GetChannel(chName)
	v := channel.ErrorView(ch)
	return ChannelHandle{k: k, ch: ch, view: &v}
}

// CloseChannel destroys the named channel: its stream is closed and it
// is removed from the registry, emitting ChannelClosed then
// ChannelDestroyed on the monitor stream.
func (k *Kernel) CloseChannel(chName message.ChannelName) { k.registry.Destroy(chName) }

// DestroyAllChannels destroys every channel currently registered.
func (k *Kernel) DestroyAllChannels() { k.registry.DestroyAll() }

// Stats returns a point-in-time snapshot of kernel activity.
func (k *Kernel) Stats() Stats {
	return Stats{
		ChannelCount: k.registry.Count(),
		MessagesSent: k.stats.sent.Load(),
		ErrorsSent:   k.stats.errors.Load(),
		Drops:        k.stats.drops.Load(),
	}
}

// transportClosedPayload builds the synthetic error payload delivered to
// a requester whose target channel was already closed.
func transportClosedPayload() TransportError {
	return TransportError{Code: 505, Message: ErrChannelClosed.Error()}
}
