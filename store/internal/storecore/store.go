package storecore

import (
	"sync"
	"sync/atomic"

	"github.com/framewire/messagebus/buslog"
	"github.com/framewire/messagebus/internal/streaming"
)

// Store is the keyed map with state-tagged change notifications and a
// mutation protocol, spec.md §3/§4.F. The zero value is not usable;
// construct with New.
type Store[K comparable, V any] struct {
	name string

	mu        sync.Mutex
	order     []K
	values    map[K]V
	ready     bool
	populated bool
	waiters   []func()

	changeStream   *streaming.Stream[ChangeEvent[K, V]]
	mutationStream *streaming.Stream[*MutateEnvelope[V]]

	logger buslog.Logger
	stats  counters
}

// counters backs Store.Stats(), grounded on the same atomic-counter
// pattern as kernel/internal/core/stats.go: all reads are lock-protected
// or atomic.
type counters struct {
	changes   atomic.Uint64
	mutations atomic.Uint64
	drops     atomic.Uint64
}

// Stats is a point-in-time snapshot of one store's activity.
type Stats struct {
	Name      string
	KeyCount  int
	Ready     bool
	Populated bool
	Changes   uint64
	Mutations uint64
	Drops     uint64
}

// New constructs an empty, not-ready Store named name.
func New[K comparable, V any](name string, logger buslog.Logger) *Store[K, V] {
	if logger == nil {
		logger = buslog.Nop()
	}
	return &Store[K, V]{
		name:           name,
		values:         make(map[K]V),
		changeStream:   streaming.New[ChangeEvent[K, V]]("store:"+name+":changes", logger),
		mutationStream: streaming.New[*MutateEnvelope[V]]("store:"+name+":mutations", logger),
		logger:         logger,
	}
}

// Name returns the store's name.
func (s *Store[K, V]) Name() string { return s.name }

// Put inserts or overwrites k with v, tagged with state, and emits
// exactly one change event on the change stream.
func (s *Store[K, V]) Put(k K, v V, state State) {
	s.mu.Lock()
	if _, exists := s.values[k]; !exists {
		s.order = append(s.order, k)
	}
	s.values[k] = v
	s.mu.Unlock()

	s.stats.changes.Add(1)
	s.changeStream.Emit(ChangeEvent[K, V]{Key: k, Value: v, State: state})
}

// Remove deletes k if present, emitting one change event carrying the
// removed value; by the time subscribers observe that event, k is
// already gone from the store (spec.md §3).
func (s *Store[K, V]) Remove(k K, state State) bool {
	s.mu.Lock()
	v, exists := s.values[k]
	if !exists {
		s.mu.Unlock()
		return false
	}
	delete(s.values, k)
	for i, key := range s.order {
		if key == k {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.stats.changes.Add(1)
	s.changeStream.Emit(ChangeEvent[K, V]{Key: k, Value: v, State: state})
	return true
}

// Get returns the value stored at k, if any.
func (s *Store[K, V]) Get(k K) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[k]
	return v, ok
}

// AllValues returns every value in insertion order.
func (s *Store[K, V]) AllValues() []V {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]V, len(s.order))
	for i, k := range s.order {
		out[i] = s.values[k]
	}
	return out
}

// AllValuesAsMap returns a defensive copy: mutating the result never
// affects the store or any later call to AllValuesAsMap (spec.md §8
// property 4).
func (s *Store[K, V]) AllValuesAsMap() map[K]V {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[K]V, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Populate bulk-loads entries in the given order. It returns true only
// if the store has never been populated or initialized before; otherwise
// it returns false and leaves the store unchanged (spec.md §8 property
// 5).
func (s *Store[K, V]) Populate(entries []Entry[K, V]) bool {
	s.mu.Lock()
	if s.populated {
		s.mu.Unlock()
		return false
	}
	s.populated = true
	s.ready = true
	for _, e := range entries {
		if _, exists := s.values[e.Key]; !exists {
			s.order = append(s.order, e.Key)
		}
		s.values[e.Key] = e.Value
	}
	waiters := s.waiters
	s.waiters = nil
	s.mu.Unlock()

	for _, w := range waiters {
		w()
	}
	return true
}

// Initialize marks the store ready without loading any values, and fires
// every registered WhenReady waiter in registration order. It is a no-op
// if the store is already ready (via a prior Initialize or Populate).
func (s *Store[K, V]) Initialize() {
	s.mu.Lock()
	if s.ready {
		s.mu.Unlock()
		return
	}
	s.ready = true
	s.populated = true
	waiters := s.waiters
	s.waiters = nil
	s.mu.Unlock()

	for _, w := range waiters {
		w()
	}
}

// Ready reports whether the store has become ready.
func (s *Store[K, V]) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// WhenReady registers fn to run once the store becomes ready. If the
// store is already ready, fn runs synchronously, immediately.
func (s *Store[K, V]) WhenReady(fn func()) {
	s.mu.Lock()
	if s.ready {
		s.mu.Unlock()
		fn()
		return
	}
	s.waiters = append(s.waiters, fn)
	s.mu.Unlock()
}

// Reset clears every value without emitting change events. ready,
// the populate/initialize latch, and subscribers are all retained
// (spec.md §4.F — a store that has ever been populated can never be
// populated again, reset or not).
func (s *Store[K, V]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.values = make(map[K]V)
}

// Mutate posts a mutation envelope to every subscriber of
// OnMutationRequest matching mutationType. onSuccess/onError are called
// at most once between them, by whichever of envelope.Success/Error the
// mutator invokes; a mutator error with no onError is logged and
// dropped, per spec.md §4.F.
func (s *Store[K, V]) Mutate(v V, mutationType MutationType, onSuccess, onError func(any)) {
	s.stats.mutations.Add(1)
	env := newEnvelope(v, mutationType, s.logger, func(result any, err any) {
		if err != nil {
			if onError != nil {
				onError(err)
			} else {
				s.stats.drops.Add(1)
				s.logger.Error("store: mutation error with no handler", map[string]any{"store": s.name})
			}
			return
		}
		if onSuccess != nil {
			onSuccess(result)
		} else {
			s.stats.drops.Add(1)
			s.logger.Error("store: mutation success with no handler", map[string]any{"store": s.name})
		}
	})
	s.mutationStream.Emit(env)
}

// OnChange subscribes to change events for key k, optionally filtered to
// one of the given states (all states if none given).
func (s *Store[K, V]) OnChange(k K, handler func(ChangeEvent[K, V]), states ...State) *streaming.Subscription {
	return s.changeStream.Subscribe(func(evt ChangeEvent[K, V]) {
		if evt.Key == k && tagMatches(states, evt.State) {
			handler(evt)
		}
	})
}

// OnAllChanges subscribes across every key, filtered by the discriminator
// match and optionally by state (all states if none given) — spec.md §9's
// resolution of the exemplar/discriminator open question: match and
// states are independent axes.
func (s *Store[K, V]) OnAllChanges(match func(V) bool, handler func(ChangeEvent[K, V]), states ...State) *streaming.Subscription {
	return s.changeStream.Subscribe(func(evt ChangeEvent[K, V]) {
		if match(evt.Value) && tagMatches(states, evt.State) {
			handler(evt)
		}
	})
}

// OnMutationRequest subscribes to mutation requests whose value satisfies
// match, optionally filtered by mutationType (all types if none given).
func (s *Store[K, V]) OnMutationRequest(match func(V) bool, handler func(*MutateEnvelope[V]), mutationTypes ...MutationType) *streaming.Subscription {
	return s.mutationStream.Subscribe(func(env *MutateEnvelope[V]) {
		if match(env.Value) && mutationTypeMatches(mutationTypes, env.MutationType) {
			handler(env)
		}
	})
}

// Close terminates the store's streams. Used by the manager's
// DestroyStore.
func (s *Store[K, V]) Close() {
	s.changeStream.Close()
	s.mutationStream.Close()
}

// Stats returns a point-in-time activity snapshot.
func (s *Store[K, V]) Stats() Stats {
	s.mu.Lock()
	keyCount := len(s.values)
	ready := s.ready
	populated := s.populated
	s.mu.Unlock()
	return Stats{
		Name: s.name, KeyCount: keyCount, Ready: ready, Populated: populated,
		Changes: s.stats.changes.Load(), Mutations: s.stats.mutations.Load(), Drops: s.stats.drops.Load(),
	}
}
