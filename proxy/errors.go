package proxy

import "errors"

// Sentinel errors for the proxy controller's slice of spec.md §7,
// following kernel/internal/core/errors.go's exported-sentinel
// convention.
var (
	// ErrInvalidConfiguration is returned by Listen when Config.Validate
	// rejects the controller's configuration. Per spec.md §7, this is
	// logged at error and the controller refuses to operate; it is
	// never raised as a panic.
	ErrInvalidConfiguration = errors.New("proxy: invalid configuration")

	// ErrAlreadyListening is returned by Listen on a controller that is
	// not Idle.
	ErrAlreadyListening = errors.New("proxy: already listening")

	// ErrNotListening is returned by StopListening on an Idle controller.
	ErrNotListening = errors.New("proxy: not listening")
)
