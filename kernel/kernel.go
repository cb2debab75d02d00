// Package kernel is the public façade over the channel registry, bus
// kernel, and monitor channel (spec.md components B, D, E). It re-
// exports the internal implementation as a stable contract, the same
// public-facade-over-internal layout modules/framebus uses for its own
// New()/Bus pairing.
package kernel

import (
	"github.com/framewire/messagebus/buslog"
	"github.com/framewire/messagebus/kernel/internal/core"
)

// New constructs an empty Kernel. logger may be nil.
func New(logger buslog.Logger) *Kernel {
	return core.New(logger)
}
