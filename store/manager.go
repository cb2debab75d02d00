package store

import (
	"sync"

	"github.com/framewire/messagebus/buslog"
)

// Manager owns every named store in the process, spec.md §4.F's
// "multi-store manager". Manager-owned stores fix K=string, V=any (see
// DESIGN.md's Open Question decision #4): every manager-level operation
// in spec.md names stores by a bare string, and the seed scenarios in
// §8 use heterogeneously-typed values within a single named store. The
// generic Store[K, V] type itself remains usable standalone with any
// comparable key for callers who want a narrower type.
type Manager struct {
	mu     sync.Mutex
	stores map[string]*Store[string, any]
	logger buslog.Logger
}

// NewManager constructs an empty Manager. logger may be nil.
func NewManager(logger buslog.Logger) *Manager {
	if logger == nil {
		logger = buslog.Nop()
	}
	return &Manager{stores: make(map[string]*Store[string, any]), logger: logger}
}

// CreateStore returns the named store, creating it if absent. Creation
// is idempotent: calling CreateStore twice for the same name returns the
// same *Store both times.
func (m *Manager) CreateStore(name string) *Store[string, any] {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.stores[name]; ok {
		return s
	}
	s := New[string, any](name, m.logger)
	m.stores[name] = s
	return s
}

// GetStore returns the named store without creating it.
func (m *Manager) GetStore(name string) (*Store[string, any], bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stores[name]
	return s, ok
}

// DestroyStore removes the named store from the manager and closes its
// streams (the store's closeStore). Destroying an unknown name is a
// no-op.
func (m *Manager) DestroyStore(name string) {
	m.mu.Lock()
	s, ok := m.stores[name]
	if ok {
		delete(m.stores, name)
	}
	m.mu.Unlock()

	if ok {
		s.Close()
	}
}

// WipeAllStores resets every registered store's values without
// un-readying any of them or dropping their registrations, per spec.md
// §4.F.
func (m *Manager) WipeAllStores() {
	for _, s := range m.GetAllStores() {
		s.Reset()
	}
}

// GetAllStores returns every currently registered store. Iteration order
// is unspecified.
func (m *Manager) GetAllStores() []*Store[string, any] {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Store[string, any], 0, len(m.stores))
	for _, s := range m.stores {
		out = append(out, s)
	}
	return out
}

// JoinHandle is returned by ReadyJoin: it fires its WhenReady waiters
// once every joined store has become ready, delivering them in the same
// order as the names passed to ReadyJoin (spec.md §8 property 6).
type JoinHandle struct {
	mu        sync.Mutex
	stores    []*Store[string, any]
	remaining int
	fired     bool
	waiters   []func([]*Store[string, any])
}

// ReadyJoin registers a join across every named store, creating any that
// do not yet exist (spec.md §4.F: "Stores that do not yet exist are
// created lazily on demand"). The returned JoinHandle's WhenReady fires
// once every one of them has become ready.
func (m *Manager) ReadyJoin(names []string) *JoinHandle {
	stores := make([]*Store[string, any], len(names))
	for i, name := range names {
		stores[i] = m.CreateStore(name)
	}

	h := &JoinHandle{stores: stores, remaining: len(stores)}
	if len(stores) == 0 {
		h.fired = true
		return h
	}
	for _, s := range stores {
		s.WhenReady(h.markOneReady)
	}
	return h
}

func (h *JoinHandle) markOneReady() {
	h.mu.Lock()
	h.remaining--
	var toFire []func([]*Store[string, any])
	if h.remaining <= 0 && !h.fired {
		h.fired = true
		toFire = h.waiters
		h.waiters = nil
	}
	h.mu.Unlock()

	for _, w := range toFire {
		w(h.stores)
	}
}

// WhenReady registers fn to run once every joined store is ready. fn
// receives the joined stores in join order. If the join has already
// completed, fn runs synchronously, immediately.
func (h *JoinHandle) WhenReady(fn func([]*Store[string, any])) {
	h.mu.Lock()
	if h.fired {
		h.mu.Unlock()
		fn(h.stores)
		return
	}
	h.waiters = append(h.waiters, fn)
	h.mu.Unlock()
}
