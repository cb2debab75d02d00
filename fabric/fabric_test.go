package fabric_test

import (
	"context"
	"errors"
	"testing"

	"github.com/framewire/messagebus/fabric"
	"github.com/framewire/messagebus/kernel"
	"github.com/framewire/messagebus/message"
	"github.com/framewire/messagebus/store"
)

type fakeBroker struct {
	connectErr    error
	disconnectErr error
	version       string
	versionErr    error
	connectCalls  int
}

func (b *fakeBroker) Connect(ctx context.Context) error {
	b.connectCalls++
	return b.connectErr
}

func (b *fakeBroker) Disconnect() error { return b.disconnectErr }

func (b *fakeBroker) Version(ctx context.Context) (string, error) {
	if b.versionErr != nil {
		return "", b.versionErr
	}
	return b.version, nil
}

func newFacade(broker fabric.Broker) (*fabric.Facade, *kernel.Kernel, *store.Store[string, any]) {
	k := kernel.New(nil)
	orgs := store.New[string, any](fabric.OrgsStoreName, nil)
	return fabric.New(k, orgs, broker, nil), k, orgs
}

func TestConnectPublishesConnectionState(t *testing.T) {
	broker := &fakeBroker{}
	f, _, _ := newFacade(broker)

	var states []fabric.ConnectionState
	f.WhenConnectionStateChanges(func(cs fabric.ConnectionState) { states = append(states, cs) })

	if f.IsConnected() {
		t.Fatal("facade reports connected before Connect")
	}
	if err := f.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() failed: %v", err)
	}
	if !f.IsConnected() {
		t.Fatal("IsConnected() false after a successful Connect")
	}
	if broker.connectCalls != 1 {
		t.Fatalf("broker.Connect called %d times, want 1", broker.connectCalls)
	}
	if len(states) != 1 || !states[0].Connected {
		t.Fatalf("states = %v, want one Connected=true event", states)
	}
}

func TestConnectFailurePropagatesAndLeavesDisconnected(t *testing.T) {
	broker := &fakeBroker{connectErr: errors.New("boom")}
	f, _, _ := newFacade(broker)

	if err := f.Connect(context.Background()); err == nil {
		t.Fatal("Connect() returned nil error, want the broker's failure")
	}
	if f.IsConnected() {
		t.Fatal("IsConnected() true after a failed Connect")
	}
}

func TestDisconnectPublishesConnectionState(t *testing.T) {
	broker := &fakeBroker{}
	f, _, _ := newFacade(broker)
	f.Connect(context.Background())

	var last fabric.ConnectionState
	f.WhenConnectionStateChanges(func(cs fabric.ConnectionState) { last = cs })

	if err := f.Disconnect(); err != nil {
		t.Fatalf("Disconnect() failed: %v", err)
	}
	if f.IsConnected() {
		t.Fatal("IsConnected() true after Disconnect")
	}
	if last.Connected {
		t.Fatal("last connection state still reports Connected=true")
	}
}

func TestSetAndGetCurrentOrgIdRoundTripsThroughOrgsStore(t *testing.T) {
	f, _, orgs := newFacade(&fakeBroker{})

	if _, ok := f.CurrentOrgId(); ok {
		t.Fatal("CurrentOrgId() found a value before any was set")
	}

	f.SetFabricCurrentOrgId("org-42")

	id, ok := f.CurrentOrgId()
	if !ok || id != "org-42" {
		t.Fatalf("CurrentOrgId() = (%q, %v), want (org-42, true)", id, ok)
	}

	v, ok := orgs.Get(fabric.OrgIDKey)
	if !ok || v != "org-42" {
		t.Fatalf("orgs.Get(%s) = (%v, %v), want (org-42, true)", fabric.OrgIDKey, v, ok)
	}
}

func TestGetFabricVersionSuccess(t *testing.T) {
	f, _, _ := newFacade(&fakeBroker{version: "1.2.3"})

	var got string
	done := make(chan struct{})
	f.GetFabricVersion(func(v string) {
		got = v
		close(done)
	}, func(error) {
		t.Fatal("unexpected error callback")
	})

	<-done
	if got != "1.2.3" {
		t.Fatalf("got = %q, want 1.2.3", got)
	}
}

func TestGetFabricVersionError(t *testing.T) {
	f, _, _ := newFacade(&fakeBroker{versionErr: errors.New("unreachable")})

	var gotErr error
	done := make(chan struct{})
	f.GetFabricVersion(func(string) {
		t.Fatal("unexpected success callback")
	}, func(err error) {
		gotErr = err
		close(done)
	})

	<-done
	if gotErr == nil {
		t.Fatal("GetFabricVersion delivered no error for a failing broker")
	}
}

func TestRemoteRESTToggleSelectsChannel(t *testing.T) {
	f, k, _ := newFacade(&fakeBroker{})

	if f.IsRemoteREST() {
		t.Fatal("IsRemoteREST() true by default")
	}

	var sawLocal bool
	k.GetRequestChannel(fabric.RESTChannel).Subscribe(func(message.Message) { sawLocal = true })
	var sawRemote bool
	k.GetRequestChannel(fabric.RESTRemoteChannel).Subscribe(func(message.Message) { sawRemote = true })

	f.SendRESTRequest(fabric.RESTRequest{Verb: fabric.VerbGET, URI: "/x", Sender: "test"}, nil, nil)
	if !sawLocal || sawRemote {
		t.Fatalf("sawLocal=%v sawRemote=%v, want true/false when not remote", sawLocal, sawRemote)
	}

	f.SetRemoteREST(true)
	if !f.IsRemoteREST() {
		t.Fatal("IsRemoteREST() false after SetRemoteREST(true)")
	}

	sawLocal, sawRemote = false, false
	f.SendRESTRequest(fabric.RESTRequest{Verb: fabric.VerbGET, URI: "/x", Sender: "test"}, nil, nil)
	if sawLocal || !sawRemote {
		t.Fatalf("sawLocal=%v sawRemote=%v, want false/true when remote", sawLocal, sawRemote)
	}
}

func TestSendRESTRequestDeliversSuccess(t *testing.T) {
	f, k, _ := newFacade(&fakeBroker{})

	k.GetRequestChannel(fabric.RESTChannel).Subscribe(func(m message.Message) {
		k.SendResponseWithId(fabric.RESTChannel, "ok", m.ID, "server")
	})

	var got any
	f.SendRESTRequest(fabric.RESTRequest{Verb: fabric.VerbGET, URI: "/x", Sender: "test"}, func(v any) {
		got = v
	}, func(error) {
		t.Fatal("unexpected error callback")
	})

	if got != "ok" {
		t.Fatalf("got = %v, want ok", got)
	}
}

func TestSendRESTRequestDeliversTransportError(t *testing.T) {
	f, k, _ := newFacade(&fakeBroker{})

	k.GetRequestChannel(fabric.RESTChannel).Subscribe(func(m message.Message) {
		k.SendErrorWithId(fabric.RESTChannel, kernel.TransportError{Code: 444, Message: "unimplemented"}, m.ID, "server")
	})

	var got error
	f.SendRESTRequest(fabric.RESTRequest{Verb: fabric.VerbPOST, URI: "/x", Sender: "test"}, func(any) {
		t.Fatal("unexpected success callback")
	}, func(err error) {
		got = err
	})

	te, ok := got.(kernel.TransportError)
	if !ok || te.Code != 444 {
		t.Fatalf("got = %v, want a TransportError with Code 444", got)
	}
}
