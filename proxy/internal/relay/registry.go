package relay

import "sync"

// BusState is spec.md §3's ProxyState: per known child bus id, a proxy
// type tag and an active flag, mutated only by well-formed control
// messages on the reserved control channel.
type BusState struct {
	ProxyType string
	Active    bool
}

// Registry is the proxy controller's bus-instance registry: every peer
// bus id it has learned about via RegisterEventBus, and whether that
// peer is currently listening.
type Registry struct {
	mu    sync.Mutex
	buses map[string]*BusState
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{buses: make(map[string]*BusState)}
}

// Register records a newly announced bus, defaulting it to active —
// RegisterEventBus implies the announcing bus is already listening.
func (r *Registry) Register(id, proxyType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buses[id] = &BusState{ProxyType: proxyType, Active: true}
}

// SetActive marks a known bus active or inactive. Unknown ids are
// ignored — a StartListening/StopListening for a bus that never
// registered is a no-op, matching "Unknown commands are ignored"
// (spec.md §4.G) applied to the id rather than the command.
func (r *Registry) SetActive(id string, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.buses[id]; ok {
		b.Active = active
	}
}

// Get returns the recorded state for id.
func (r *Registry) Get(id string) (BusState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.buses[id]
	if !ok {
		return BusState{}, false
	}
	return *b, true
}

// ActiveIDs returns the ids of every bus currently marked active.
// Iteration order is unspecified.
func (r *Registry) ActiveIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.buses))
	for id, b := range r.buses {
		if b.Active {
			out = append(out, id)
		}
	}
	return out
}
