package proxy

// FrameHost abstracts the browser's window/window.frames/window.parent
// primitives the proxy controller relays over, per spec.md §9's design
// note: "Abstract this as a FrameHost interface ... a non-browser target
// supplies an equivalent adapter (e.g. sockets between processes)."
type FrameHost interface {
	// PostToParent sends data to window.parent at the given origin. Used
	// by a Child-role controller.
	PostToParent(data []byte, origin string) error

	// PostToChildren sends data to child frames at the given origin. If
	// targetIDs is empty, every child frame receives it; otherwise only
	// the named ones do. Used by a Parent-role controller.
	PostToChildren(data []byte, origin string, targetIDs []string) error

	// OnInboundMessage registers cb to run for every inbound window
	// message event, delivering the event's origin and raw data. The
	// returned function unsubscribes.
	OnInboundMessage(cb func(origin string, data []byte)) (unsubscribe func())

	// CurrentOrigin returns this frame's own origin.
	CurrentOrigin() string
}
