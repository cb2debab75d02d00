package core

import "sync/atomic"

// counters backs Kernel.Stats(), grounded on modules/framebus's
// atomic-counter SubscriberStats/BusStats pattern, generalized from
// sent/dropped-per-subscriber to sent/dropped-per-kernel since this
// kernel never drops a delivered message, only a dispatch with no
// handler registered for it or a send on a closed channel.
type counters struct {
	sent   atomic.Uint64
	errors atomic.Uint64
	drops  atomic.Uint64
}

// Stats is a point-in-time snapshot of kernel activity, additive
// observability beyond the monitor stream (SPEC_FULL.md PART 3).
type Stats struct {
	ChannelCount int
	MessagesSent uint64
	ErrorsSent   uint64
	Drops        uint64
}
