// Package channel owns the channel registry: lazy creation, refcounting,
// and destruction of per-channel streams. It is component B of the
// kernel; it knows nothing about message kinds, correlation, or
// monitoring beyond emitting the lifecycle events the registry itself is
// responsible for (created/closed/destroyed) through a caller-supplied
// sink, which lets the caller (kernel/internal/core) own the monitor
// stream without an import cycle.
package channel

import (
	"sync"
	"sync/atomic"

	"github.com/framewire/messagebus/buslog"
	"github.com/framewire/messagebus/internal/streaming"
	"github.com/framewire/messagebus/message"
)

// Channel is one named, lazily-created, reference-counted pipe. Channel
// itself does not gate Subscribe/Emit beyond what *streaming.Stream
// already does; Stream carries the closed-ness and termination.
type Channel struct {
	name     message.ChannelName
	Stream   *streaming.Stream[message.Message]
	refcount int64
}

// Name returns the channel's name.
func (c *Channel) Name() message.ChannelName { return c.name }

// IncRef increments the channel's reference count. Called by core
// whenever a new subscription is established on this channel.
func (c *Channel) IncRef() int64 { return atomic.AddInt64(&c.refcount, 1) }

// DecRef decrements the channel's reference count. Called by core when a
// subscription on this channel is torn down.
func (c *Channel) DecRef() int64 { return atomic.AddInt64(&c.refcount, -1) }

// RefCount returns the current reference count.
func (c *Channel) RefCount() int64 { return atomic.LoadInt64(&c.refcount) }

// Closed reports whether the underlying stream has been closed.
func (c *Channel) Closed() bool { return c.Stream.Closed() }

// EventSink receives lifecycle monitor events the registry itself
// originates (channel created/closed/destroyed). Subscriber-level events
// are emitted by core, which has visibility into individual Subscribe
// calls.
type EventSink func(message.MonitorEvent)

// Registry owns every live channel by name.
type Registry struct {
	mu       sync.Mutex
	channels map[message.ChannelName]*Channel
	logger   buslog.Logger
	emit     EventSink
}

// NewRegistry constructs an empty Registry. emit may be nil, in which
// case lifecycle events are simply not reported anywhere.
func NewRegistry(logger buslog.Logger, emit EventSink) *Registry {
	if logger == nil {
		logger = buslog.Nop()
	}
	if emit == nil {
		emit = func(message.MonitorEvent) {}
	}
	return &Registry{
		channels: make(map[message.ChannelName]*Channel),
		logger:   logger,
		emit:     emit,
	}
}

// GetChannel returns the named channel, creating it if absent. Creation
// emits MonitorEventChannelCreated before the channel is handed back.
func (r *Registry) GetChannel(name message.ChannelName) *Channel {
	r.mu.Lock()
	ch, ok := r.channels[name]
	if ok {
		r.mu.Unlock()
		return ch
	}
	ch = &Channel{name: name, Stream: streaming.New[message.Message](string(name), r.logger)}
	r.channels[name] = ch
	r.mu.Unlock()

	r.emit(message.MonitorEvent{Type: message.MonitorEventChannelCreated, Channel: name})
	return ch
}

// Lookup returns the named channel without creating it.
func (r *Registry) Lookup(name message.ChannelName) (*Channel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.channels[name]
	return ch, ok
}

// Destroy removes the named channel from the registry and terminates its
// stream, emitting MonitorEventChannelClosed followed by
// MonitorEventChannelDestroyed. Destroying an unknown channel is a no-op.
func (r *Registry) Destroy(name message.ChannelName) {
	r.mu.Lock()
	ch, ok := r.channels[name]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.channels, name)
	r.mu.Unlock()

	ch.Stream.Close()
	r.emit(message.MonitorEvent{Type: message.MonitorEventChannelClosed, Channel: name})
	r.emit(message.MonitorEvent{Type: message.MonitorEventChannelDestroyed, Channel: name})
}

// DestroyAll destroys every currently registered channel.
func (r *Registry) DestroyAll() {
	r.mu.Lock()
	names := make([]message.ChannelName, 0, len(r.channels))
	for name := range r.channels {
		names = append(names, name)
	}
	r.mu.Unlock()

	for _, name := range names {
		r.Destroy(name)
	}
}

// Names returns a snapshot of every currently registered channel name.
// Iteration order is unspecified.
func (r *Registry) Names() []message.ChannelName {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]message.ChannelName, 0, len(r.channels))
	for name := range r.channels {
		names = append(names, name)
	}
	return names
}

// Count returns the number of currently registered channels.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.channels)
}
