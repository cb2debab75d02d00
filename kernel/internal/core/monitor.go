package core

import (
	"sync/atomic"

	"github.com/framewire/messagebus/buslog"
	"github.com/framewire/messagebus/internal/streaming"
	"github.com/framewire/messagebus/message"
)

// monitor owns the meta-stream described in spec.md §4.E. Monitoring can
// be toggled off cheaply: when disabled, emit returns after a single
// atomic load and nothing is delivered. Callers build the MonitorEvent
// value before calling emit, so the toggle skips delivery, not
// construction.
type monitor struct {
	stream  *streaming.Stream[message.MonitorEvent]
	enabled atomic.Bool
}

func newMonitor(logger buslog.Logger) *monitor {
	m := &monitor{stream: streaming.New[message.MonitorEvent]("monitor", logger)}
	m.enabled.Store(true)
	return m
}

func (m *monitor) emit(evt message.MonitorEvent) {
	if !m.enabled.Load() {
		return
	}
	m.stream.Emit(evt)
}

func (m *monitor) setEnabled(enabled bool) { m.enabled.Store(enabled) }

func (m *monitor) subscribe(handler streaming.Handler[message.MonitorEvent]) *streaming.Subscription {
	return m.stream.Subscribe(handler)
}
