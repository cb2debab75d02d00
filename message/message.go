// Package message holds the pure data types carried across the bus:
// identifiers, channel names, message kinds, and the Message envelope
// itself. None of these types have behavior beyond equality, predicates,
// and a JSON-compatible round trip — the kernel is where behavior lives.
package message

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Identifier uniquely names one message, or one bus instance. Equality
// defines correlation: a response or error correlates to a request iff
// their Identifiers are equal.
type Identifier string

// NewIdentifier generates a fresh, globally unique Identifier.
func NewIdentifier() Identifier {
	return Identifier(uuid.NewString())
}

// ChannelName is a non-empty string naming a channel. Channels are
// created lazily by the registry; ChannelName carries no behavior of its
// own.
type ChannelName string

// Kind is one of the four message kinds the kernel understands.
type Kind int

const (
	KindRequest Kind = iota
	KindResponse
	KindError
	KindControl
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "Request"
	case KindResponse:
		return "Response"
	case KindError:
		return "Error"
	case KindControl:
		return "Control"
	default:
		return "Unknown"
	}
}

// MarshalJSON renders Kind the way the wire format in spec.md §6 expects:
// one of the four capitalized strings.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON parses one of the four wire strings back into a Kind.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, ok := ParseKind(s)
	if !ok {
		return &invalidKindError{raw: s}
	}
	*k = parsed
	return nil
}

// ParseKind parses one of the four wire strings. ok is false for anything
// else, including the empty string.
func ParseKind(s string) (kind Kind, ok bool) {
	switch s {
	case "Request":
		return KindRequest, true
	case "Response":
		return KindResponse, true
	case "Error":
		return KindError, true
	case "Control":
		return KindControl, true
	default:
		return 0, false
	}
}

type invalidKindError struct{ raw string }

func (e *invalidKindError) Error() string { return "message: invalid kind " + e.raw }

// Message is the immutable unit of traffic on the bus. Once emitted, a
// Message is never mutated; WithID and WithProxyRebroadcast return copies.
type Message struct {
	ID                Identifier
	Kind              Kind
	Payload           any
	Sender            string
	Version           string
	ProxyRebroadcast  bool
}

// NewRequest builds a Request-kind message with a freshly generated id.
func NewRequest(payload any, sender string) Message {
	return Message{ID: NewIdentifier(), Kind: KindRequest, Payload: payload, Sender: sender}
}

// NewRequestWithID builds a Request-kind message carrying a caller-chosen
// id (used when the caller wants to pick the correlation id up front,
// e.g. requestOnceWithId).
func NewRequestWithID(id Identifier, payload any, sender string) Message {
	return Message{ID: id, Kind: KindRequest, Payload: payload, Sender: sender}
}

// NewResponse builds a Response-kind message carrying the given
// correlation id.
func NewResponse(id Identifier, payload any, sender string) Message {
	return Message{ID: id, Kind: KindResponse, Payload: payload, Sender: sender}
}

// NewError builds an Error-kind message carrying the given correlation
// id.
func NewError(id Identifier, payload any, sender string) Message {
	return Message{ID: id, Kind: KindError, Payload: payload, Sender: sender}
}

// NewControl builds a Control-kind message. Control messages correlate by
// channel, not by id, so id is generated but callers should not rely on
// it.
func NewControl(payload any, sender string) Message {
	return Message{ID: NewIdentifier(), Kind: KindControl, Payload: payload, Sender: sender}
}

// IsRequest reports whether m is a Request-kind message.
func (m Message) IsRequest() bool { return m.Kind == KindRequest }

// IsResponse reports whether m is a Response-kind message.
func (m Message) IsResponse() bool { return m.Kind == KindResponse }

// IsError reports whether m is an Error-kind message.
func (m Message) IsError() bool { return m.Kind == KindError }

// IsControl reports whether m is a Control-kind message.
func (m Message) IsControl() bool { return m.Kind == KindControl }

// WithID returns a copy of m carrying a different id. The proxy
// controller does not call it: it rebuilds a message received from a
// peer bus with NewRequestWithID, NewResponse or NewError instead.
func (m Message) WithID(id Identifier) Message {
	m.ID = id
	return m
}

// WithProxyRebroadcast returns a copy of m with ProxyRebroadcast set, so
// the relay never re-relays a message it itself injected.
func (m Message) WithProxyRebroadcast(rebroadcast bool) Message {
	m.ProxyRebroadcast = rebroadcast
	return m
}

// WithSender returns a copy of m with a different sender tag.
func (m Message) WithSender(sender string) Message {
	m.Sender = sender
	return m
}

// wireMessage is the JSON-compatible shape of Message, matching the field
// names spec.md §4.A implies (id/kind/payload/sender/version plus the
// proxy flag) rather than the proxy wire format in §6, which is a
// distinct, narrower shape owned by the proxy package.
type wireMessage struct {
	ID               Identifier `json:"id"`
	Kind             Kind       `json:"kind"`
	Payload          any        `json:"payload"`
	Sender           string     `json:"sender"`
	Version          string     `json:"version,omitempty"`
	ProxyRebroadcast bool       `json:"proxyRebroadcast,omitempty"`
}

// MarshalJSON implements the JSON-compatible round trip spec.md §4.A
// requires.
func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireMessage{
		ID: m.ID, Kind: m.Kind, Payload: m.Payload, Sender: m.Sender,
		Version: m.Version, ProxyRebroadcast: m.ProxyRebroadcast,
	})
}

// UnmarshalJSON implements the JSON-compatible round trip spec.md §4.A
// requires.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*m = Message{
		ID: w.ID, Kind: w.Kind, Payload: w.Payload, Sender: w.Sender,
		Version: w.Version, ProxyRebroadcast: w.ProxyRebroadcast,
	}
	return nil
}
