package kernel_test

import (
	"testing"

	"github.com/framewire/messagebus/kernel"
	"github.com/framewire/messagebus/message"
)

func TestPublicFacadeSendRequestResponseRoundTrip(t *testing.T) {
	k := kernel.New(nil)

	var got string
	k.Listen("svc", "client", func(m message.Message) {
		got, _ = m.Payload.(string)
	}, func(message.Message) {
		t.Fatal("unexpected error")
	})

	id := k.SendRequest("svc", "ping", "", "client")
	k.SendResponseWithId("svc", "pong", id, "server")

	if got != "pong" {
		t.Fatalf("got = %q, want %q", got, "pong")
	}
}

func TestPublicFacadeStatsCountsMessages(t *testing.T) {
	k := kernel.New(nil)
	k.Send("chat", message.NewRequest("hi", "a"), "a")
	k.Send("chat", message.NewRequest("hi", "a"), "a")

	stats := k.Stats()
	if stats.MessagesSent != 2 {
		t.Fatalf("MessagesSent = %d, want 2", stats.MessagesSent)
	}
	if stats.ChannelCount != 1 {
		t.Fatalf("ChannelCount = %d, want 1", stats.ChannelCount)
	}
}
