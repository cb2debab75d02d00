package message

import (
	"encoding/json"
	"testing"
)

func TestKindPredicates(t *testing.T) {
	cases := []struct {
		name string
		msg  Message
		want Kind
	}{
		{"request", NewRequest("p", "a"), KindRequest},
		{"response", NewResponse("id1", "p", "a"), KindResponse},
		{"error", NewError("id1", "p", "a"), KindError},
		{"control", NewControl("p", "a"), KindControl},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if c.msg.Kind != c.want {
				t.Fatalf("Kind = %v, want %v", c.msg.Kind, c.want)
			}
			if got := c.msg.IsRequest(); got != (c.want == KindRequest) {
				t.Errorf("IsRequest() = %v", got)
			}
			if got := c.msg.IsResponse(); got != (c.want == KindResponse) {
				t.Errorf("IsResponse() = %v", got)
			}
			if got := c.msg.IsError(); got != (c.want == KindError) {
				t.Errorf("IsError() = %v", got)
			}
			if got := c.msg.IsControl(); got != (c.want == KindControl) {
				t.Errorf("IsControl() = %v", got)
			}
		})
	}
}

func TestKindWireRoundTrip(t *testing.T) {
	for _, k := range []Kind{KindRequest, KindResponse, KindError, KindControl} {
		data, err := json.Marshal(k)
		if err != nil {
			t.Fatalf("Marshal(%v): %v", k, err)
		}
		var got Kind
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("Unmarshal(%s): %v", data, err)
		}
		if got != k {
			t.Errorf("round trip %v -> %s -> %v", k, data, got)
		}
	}
}

func TestParseKindRejectsUnknown(t *testing.T) {
	if _, ok := ParseKind("Bogus"); ok {
		t.Fatal("ParseKind accepted an unknown kind")
	}
	if _, ok := ParseKind(""); ok {
		t.Fatal("ParseKind accepted the empty string")
	}
}

func TestMessageJSONRoundTrip(t *testing.T) {
	original := NewRequestWithID("req-1", map[string]any{"hello": "world"}, "sender-a").WithProxyRebroadcast(true)
	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var got Message
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if got.ID != original.ID || got.Kind != original.Kind || got.Sender != original.Sender {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, original)
	}
	if !got.ProxyRebroadcast {
		t.Error("ProxyRebroadcast did not survive the round trip")
	}
}

func TestWithIDAndWithSenderDoNotMutateOriginal(t *testing.T) {
	original := NewRequest("p", "sender-a")
	copied := original.WithID("new-id").WithSender("sender-b")

	if original.ID == copied.ID {
		t.Error("WithID mutated the receiver's id in place")
	}
	if original.Sender == copied.Sender {
		t.Error("WithSender mutated the receiver's sender in place")
	}
}

func TestNewIdentifierIsUnique(t *testing.T) {
	a := NewIdentifier()
	b := NewIdentifier()
	if a == b {
		t.Fatal("two calls to NewIdentifier produced the same id")
	}
}
