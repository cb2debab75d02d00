package core

import "errors"

// Sentinel errors for the kernel's own operations. The proxy and store
// packages define their own sentinels for their slice of spec.md §7;
// these cover only channel-lifetime failures that the kernel itself can
// raise deterministically, following modules/framebus/internal/bus's
// exported-sentinel convention rather than ad hoc error strings.
var (
	ErrChannelClosed = errors.New("kernel: channel is closed")
)

// TransportError is the one structured error type spec.md §7 names
// (carrying a numeric code and message text, mirroring REST errors).
// It is used wherever a transport-level failure must be delivered as an
// Error-kind message payload rather than returned from a Go function —
// the kernel has no other way to report a failure to a requester once
// the call has returned.
type TransportError struct {
	Code    int
	Message string
}

func (e TransportError) Error() string { return e.Message }
