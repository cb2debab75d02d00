// Package fabric is the thin facade spec.md component H describes over
// the connection/heartbeat fabric to a remote broker: connect/disconnect
// state, the current org id, and the fabric's version, all mapped onto
// well-known kernel channels plus the ORGS store. Per spec.md §4.H
// ("adds no new runtime behaviour beyond this mapping"), Facade itself
// holds no protocol logic — Broker, the external collaborator, is where
// the actual network transport lives.
package fabric

import (
	"context"
	"fmt"
	"sync"

	"github.com/framewire/messagebus/buslog"
	"github.com/framewire/messagebus/kernel"
	"github.com/framewire/messagebus/message"
	"github.com/framewire/messagebus/store"
)

// Reserved channel names, spec.md §6.
const (
	// RESTChannel carries local REST transport traffic.
	RESTChannel message.ChannelName = "REST"
	// RESTRemoteChannel carries REST traffic routed through the remote
	// fabric instead of served locally — the toggle spec.md §4.H names.
	RESTRemoteChannel message.ChannelName = "REST_REMOTE"
	// FabricVersionChannel is the reserved fabric version channel.
	FabricVersionChannel message.ChannelName = "FABRIC_VERSION"
	// FabricConnectionChannel carries connection state change traffic.
	// It is not individually named in spec.md §6's reserved list, but is
	// required to implement whenConnectionStateChanges as "well-known
	// channels on the kernel" per spec.md §4.H, so it is added here
	// rather than bolting a second stream primitive onto the facade.
	FabricConnectionChannel message.ChannelName = "FABRIC_CONNECTION"

	// OrgsStoreName is the reserved ORGS store, spec.md §6.
	OrgsStoreName = "ORGS"
	// OrgIDKey is the key the current org id is kept under within the
	// ORGS store, spec.md §6: "the ORGS store carrying ORG_ID".
	OrgIDKey = "ORG_ID"
)

// OrgStateSet is the change-event state tag Facade uses when writing the
// current org id into the ORGS store.
var OrgStateSet store.State = "set"

// Broker is the external connection/heartbeat fabric collaborator,
// spec.md §1: "the connection/heartbeat fabric to a remote broker" —
// referenced only via this interface, never a concrete client.
type Broker interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Version(ctx context.Context) (string, error)
}

// ConnectionState is the payload carried on FabricConnectionChannel.
type ConnectionState struct {
	Connected bool
}

// Facade is the public fabric facade.
type Facade struct {
	kernel *kernel.Kernel
	orgs   *store.Store[string, any]
	broker Broker
	logger buslog.Logger

	mu          sync.Mutex
	connected   bool
	remoteREST  bool
}

// New constructs a Facade wired to k, the shared ORGS store, and broker.
// It immediately starts answering GetFabricVersion requests on
// FabricVersionChannel via broker.Version — the one piece of "runtime
// behaviour" spec.md §4.H allows, since nothing else can answer that
// channel's requests.
func New(k *kernel.Kernel, orgs *store.Store[string, any], broker Broker, logger buslog.Logger) *Facade {
	if logger == nil {
		logger = buslog.Nop()
	}
	f := &Facade{kernel: k, orgs: orgs, broker: broker, logger: logger}
	k.GetRequestChannel(FabricVersionChannel).Subscribe(f.serveVersion)
	return f
}

func (f *Facade) serveVersion(m message.Message) {
	version, err := f.broker.Version(context.Background())
	if err != nil {
		f.kernel.SendErrorWithId(FabricVersionChannel, kernel.TransportError{Code: 400, Message: err.Error()}, m.ID, "fabric")
		return
	}
	f.kernel.SendResponseWithId(FabricVersionChannel, version, m.ID, "fabric")
}

// Connect opens the broker connection and publishes the resulting state
// change on FabricConnectionChannel.
func (f *Facade) Connect(ctx context.Context) error {
	if err := f.broker.Connect(ctx); err != nil {
		f.logger.Error("fabric: connect failed", map[string]any{"error": err.Error()})
		return err
	}
	f.setConnected(true)
	return nil
}

// Disconnect closes the broker connection and publishes the resulting
// state change.
func (f *Facade) Disconnect() error {
	err := f.broker.Disconnect()
	f.setConnected(false)
	if err != nil {
		f.logger.Error("fabric: disconnect failed", map[string]any{"error": err.Error()})
	}
	return err
}

// IsConnected reports the facade's last known connection state.
func (f *Facade) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *Facade) setConnected(connected bool) {
	f.mu.Lock()
	f.connected = connected
	f.mu.Unlock()
	f.kernel.Send(FabricConnectionChannel, message.NewResponse(message.NewIdentifier(), ConnectionState{Connected: connected}, "fabric"), "fabric")
}

// WhenConnectionStateChanges subscribes handler to every connection
// state transition.
func (f *Facade) WhenConnectionStateChanges(handler func(ConnectionState)) *kernel.Subscription {
	return f.kernel.Listen(FabricConnectionChannel, "fabric", func(m message.Message) {
		if cs, ok := m.Payload.(ConnectionState); ok {
			handler(cs)
		}
	}, nil)
}

// SetFabricCurrentOrgId writes id into the ORGS store under OrgIDKey.
func (f *Facade) SetFabricCurrentOrgId(id string) {
	f.orgs.Put(OrgIDKey, id, OrgStateSet)
}

// CurrentOrgId returns the org id currently recorded in the ORGS store,
// if any.
func (f *Facade) CurrentOrgId() (string, bool) {
	v, ok := f.orgs.Get(OrgIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// GetFabricVersion requests the fabric's version over FabricVersionChannel
// and delivers it exactly once — spec.md §4.H's "once-stream<string>" —
// via onVersion, or onError if the broker fails to answer.
func (f *Facade) GetFabricVersion(onVersion func(string), onError func(error)) message.Identifier {
	id, _ := f.kernel.RequestOnceWithId(
		FabricVersionChannel, nil, "", "", "fabric",
		func(m message.Message) {
			if v, ok := m.Payload.(string); ok && onVersion != nil {
				onVersion(v)
			}
		},
		func(m message.Message) {
			if onError != nil {
				onError(fmt.Errorf("fabric: %v", m.Payload))
			}
		},
	)
	return id
}

// SetRemoteREST toggles whether SendRESTRequest routes through the
// remote fabric (RESTRemoteChannel) or serves locally (RESTChannel).
func (f *Facade) SetRemoteREST(remote bool) {
	f.mu.Lock()
	f.remoteREST = remote
	f.mu.Unlock()
}

// IsRemoteREST reports the current REST routing toggle.
func (f *Facade) IsRemoteREST() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.remoteREST
}

// SendRESTRequest issues req over whichever REST channel the current
// toggle selects and delivers the single reply to onSuccess or onError.
func (f *Facade) SendRESTRequest(req RESTRequest, onSuccess func(any), onError func(error)) message.Identifier {
	ch := RESTChannel
	if f.IsRemoteREST() {
		ch = RESTRemoteChannel
	}
	id, _ := f.kernel.RequestOnceWithId(ch, req, "", "", req.Sender,
		func(m message.Message) {
			if onSuccess != nil {
				onSuccess(m.Payload)
			}
		},
		func(m message.Message) {
			if onError == nil {
				return
			}
			if te, ok := m.Payload.(kernel.TransportError); ok {
				onError(te)
				return
			}
			onError(fmt.Errorf("fabric: %v", m.Payload))
		},
	)
	return id
}
