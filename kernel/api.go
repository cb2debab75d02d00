package kernel

import "github.com/framewire/messagebus/kernel/internal/core"

// Public API — re-export internal types as the stable contract, matching
// modules/framebus/api.go's alias-over-internal-type convention.

// Kernel is the bus kernel: send/listen/request operations, channel
// lifecycle, and the monitor meta-stream.
type Kernel = core.Kernel

// Subscription is returned by every subscribing operation on a Kernel.
type Subscription = core.Subscription

// Stats is a point-in-time snapshot of kernel activity.
type Stats = core.Stats

// ChannelHandle is a subscribable view over a channel, returned by
// GetChannel and its kind-filtered siblings.
type ChannelHandle = core.ChannelHandle

// TransportError is the structured error delivered as a message payload
// for transport-level failures (spec.md §7).
type TransportError = core.TransportError

// ErrChannelClosed is returned/logged when an operation targets a
// channel that has already been destroyed.
var ErrChannelClosed = core.ErrChannelClosed
