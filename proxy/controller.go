// Package proxy implements the cross-frame relay, spec.md component G:
// a parent/child frame relay enforcing origin and channel allowlists,
// relaying kernel traffic over a FrameHost, and preventing rebroadcast
// loops. It owns no bus state of its own beyond its lifecycle state and
// its bus-instance registry — it is a subscriber to the kernel's monitor
// stream plus an inbound adapter, per spec.md §3's ownership note.
package proxy

import (
	"encoding/json"
	"sync"

	"github.com/framewire/messagebus/buslog"
	"github.com/framewire/messagebus/internal/streaming"
	"github.com/framewire/messagebus/kernel"
	"github.com/framewire/messagebus/message"
	"github.com/framewire/messagebus/proxy/internal/relay"
)

// Controller is the proxy controller: one per bus instance, one per
// frame side of a parent/child relationship.
type Controller struct {
	mu     sync.Mutex
	kernel *kernel.Kernel
	host   FrameHost
	cfg    Config
	logger buslog.Logger

	state        State
	busID        message.Identifier
	registry     *relay.Registry
	unsubInbound func()
	monitorSub   *streaming.Subscription
}

// New constructs an Idle Controller. logger may be nil.
func New(k *kernel.Kernel, host FrameHost, cfg Config, logger buslog.Logger) *Controller {
	if logger == nil {
		logger = buslog.Nop()
	}
	return &Controller{
		kernel:   k,
		host:     host,
		cfg:      cfg,
		logger:   logger,
		state:    StateIdle,
		busID:    message.NewIdentifier(),
		registry: relay.NewRegistry(),
	}
}

// State returns the controller's current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// BusID returns this controller's own bus instance id, used for loop
// prevention and as the "from" tag on outbound traffic.
func (c *Controller) BusID() message.Identifier {
	return c.busID
}

// KnownBus returns the recorded state for a peer bus id learned via
// RegisterEventBus.
func (c *Controller) KnownBus(id string) (BusState, bool) {
	return c.registry.Get(id)
}

// Listen validates the controller's configuration, transitions it to
// Listening-Parent or Listening-Child per its ProxyType, subscribes to
// inbound window messages and the kernel's monitor stream, and — for a
// Child — announces itself to the parent with RegisterEventBus.
//
// Configuration errors are logged at error and returned; the controller
// never panics on bad configuration (spec.md §7).
func (c *Controller) Listen() error {
	if err := c.cfg.Validate(); err != nil {
		c.logger.Error("proxy: refusing to listen, invalid configuration", map[string]any{
			"proxyType": c.cfg.ProxyType.String(),
		})
		return err
	}

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrAlreadyListening
	}
	switch c.cfg.ProxyType {
	case TypeParent:
		c.state = StateListeningParent
	case TypeChild:
		c.state = StateListeningChild
	}
	c.mu.Unlock()

	c.unsubInbound = c.host.OnInboundMessage(c.handleInbound)
	c.monitorSub = c.kernel.MonitorStream(c.handleMonitorEvent)

	if c.cfg.ProxyType == TypeChild {
		c.sendControl(relay.CommandRegisterEventBus)
	}
	return nil
}

// StopListening tears down the inbound and monitor subscriptions and
// returns the controller to Idle. A Child sends BusStopListening to its
// parent first, per spec.md §4.G's state table.
func (c *Controller) StopListening() error {
	c.mu.Lock()
	if c.state == StateIdle {
		c.mu.Unlock()
		return ErrNotListening
	}
	wasChild := c.state == StateListeningChild
	c.state = StateIdle
	c.mu.Unlock()

	if wasChild {
		c.sendControl(relay.CommandBusStopListening)
	}
	if c.unsubInbound != nil {
		c.unsubInbound()
		c.unsubInbound = nil
	}
	if c.monitorSub != nil {
		c.monitorSub.Unsubscribe()
		c.monitorSub = nil
	}
	return nil
}

// proxyName returns Config.Name, defaulting to the controller's own bus
// id, used to build the "<proxyName>-<origin>" sender tag.
func (c *Controller) proxyName() string {
	if c.cfg.Name != "" {
		return c.cfg.Name
	}
	return string(c.busID)
}

// fromTag is the "from" field stamped on every outbound WireMessage,
// spec.md §6: "proxy-<busId>".
func (c *Controller) fromTag() string { return "proxy-" + string(c.busID) }

// handleInbound is the six-step inbound filter pipeline, spec.md §4.G.
func (c *Controller) handleInbound(origin string, data []byte) {
	var wm relay.WireMessage
	if err := json.Unmarshal(data, &wm); err != nil {
		c.logger.Warn("proxy: malformed inbound message, invalid JSON", map[string]any{"origin": origin})
		return
	}

	// Step 1: loop prevention.
	if wm.From == c.fromTag() {
		return
	}

	// Step 2: origin allowlist.
	if !c.cfg.originAllowed(origin) {
		c.logger.Warn("proxy: rejected origin", map[string]any{"origin": origin})
		return
	}

	// Step 3: structural validation.
	if wm.Channel == "" || wm.Type == "" || wm.Payload == nil {
		c.logger.Warn("proxy: malformed inbound message, missing fields", map[string]any{"origin": origin})
		return
	}

	// Step 4: channel authorization.
	if !c.cfg.channelAuthorized(wm.Channel) {
		c.logger.Warn("proxy: unauthorized channel", map[string]any{"channel": wm.Channel})
		return
	}

	kind, ok := message.ParseKind(wm.Type)
	if !ok {
		c.logger.Warn("proxy: malformed inbound message, unknown type", map[string]any{"type": wm.Type})
		return
	}

	// Step 5: control dispatch.
	if kind == message.KindControl {
		c.applyControl(wm)
		return
	}

	// Step 6: rebuild and rebroadcast.
	sender := c.proxyName() + "-" + origin
	id := message.Identifier(wm.ID)
	var msg message.Message
	switch kind {
	case message.KindRequest:
		if id == "" {
			msg = message.NewRequest(wm.Payload, sender)
		} else {
			msg = message.NewRequestWithID(id, wm.Payload, sender)
		}
	case message.KindResponse:
		msg = message.NewResponse(id, wm.Payload, sender)
	case message.KindError:
		msg = message.NewError(id, wm.Payload, sender)
	}
	msg = msg.WithProxyRebroadcast(true)
	c.kernel.Send(message.ChannelName(wm.Channel), msg, sender)
}

// applyControl is inbound pipeline step 5 for a Control-kind message:
// apply RegisterEventBus/BusStartListening/BusStopListening to the
// bus-instance registry. Unknown commands are ignored.
func (c *Controller) applyControl(wm relay.WireMessage) {
	raw, ok := wm.Payload.(map[string]any)
	if !ok {
		c.logger.Warn("proxy: malformed control payload", nil)
		return
	}
	body, _ := json.Marshal(raw)
	var payload relay.ControlPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.logger.Warn("proxy: malformed control payload", nil)
		return
	}

	switch payload.Command {
	case relay.CommandRegisterEventBus:
		c.registry.Register(payload.Body, payload.ProxyType)
	case relay.CommandBusStartListening:
		c.registry.SetActive(payload.Body, true)
	case relay.CommandBusStopListening:
		c.registry.SetActive(payload.Body, false)
	default:
		c.logger.Warn("proxy: unknown control command", map[string]any{"command": payload.Command})
	}
}

// sendControl posts a Control-kind WireMessage announcing this
// controller's own bus id on the reserved control channel.
func (c *Controller) sendControl(command string) {
	payload := relay.ControlPayload{Command: command, Body: string(c.busID), ProxyType: c.cfg.ProxyType.String()}
	wm := relay.WireMessage{
		Channel: string(ControlChannelName),
		Type:    message.KindControl.String(),
		Payload: payload,
		From:    c.fromTag(),
		Control: command,
	}
	c.post(wm)
}

// handleMonitorEvent is the outbound relay, spec.md §4.G: for every
// MessageData event on an authorized channel whose underlying message
// does not carry ProxyRebroadcast, serialize and post it outward. The
// ProxyRebroadcast check is what makes spec.md §8 property 7 hold: a
// proxied message never re-enters the relay that injected it.
func (c *Controller) handleMonitorEvent(evt message.MonitorEvent) {
	if evt.Type != message.MonitorEventMessageData {
		return
	}
	if evt.Message.ProxyRebroadcast {
		return
	}
	if !c.cfg.channelAuthorized(string(evt.Channel)) {
		return
	}

	wm := relay.WireMessage{
		Channel: string(evt.Channel),
		Type:    evt.Message.Kind.String(),
		Payload: evt.Message.Payload,
		From:    c.fromTag(),
		ID:      string(evt.Message.ID),
	}
	c.post(wm)
}

// post serializes wm and sends it over the FrameHost according to the
// controller's role: a Child posts to its parent at the configured
// parent origin; a Parent posts to all or the configured specific child
// frames.
func (c *Controller) post(wm relay.WireMessage) {
	data, err := json.Marshal(wm)
	if err != nil {
		c.logger.Error("proxy: failed to marshal outbound message", map[string]any{"error": err.Error()})
		return
	}

	switch c.cfg.ProxyType {
	case TypeChild:
		if err := c.host.PostToParent(data, c.cfg.ParentOrigin); err != nil {
			c.logger.Error("proxy: failed to post to parent", map[string]any{"error": err.Error()})
		}
	case TypeParent:
		var targets []string
		if !c.cfg.TargetAllFrames {
			targets = c.cfg.TargetSpecificFrames
		}
		if err := c.host.PostToChildren(data, "*", targets); err != nil {
			c.logger.Error("proxy: failed to post to children", map[string]any{"error": err.Error()})
		}
	}
}
