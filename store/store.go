// Package store is the public façade over the keyed store subsystem
// (spec.md component F): ordered keyed values, state-tagged change
// streams, the mutation request/response protocol, and the multi-store
// ready join. It re-exports store/internal/storecore's implementation as
// a stable contract, the same public-facade-over-internal layout
// kernel uses for kernel/internal/core.
package store

import (
	"github.com/framewire/messagebus/buslog"
	"github.com/framewire/messagebus/store/internal/storecore"
)

// Store is the keyed map with state-tagged change notifications and a
// mutation protocol. The zero value is not usable; construct with New
// or through a Manager.
type Store[K comparable, V any] struct {
	core *storecore.Store[K, V]
}

// New constructs an empty, not-ready Store named name. logger may be nil.
func New[K comparable, V any](name string, logger buslog.Logger) *Store[K, V] {
	return &Store[K, V]{core: storecore.New[K, V](name, logger)}
}

// Name returns the store's name.
func (s *Store[K, V]) Name() string { return s.core.Name() }

// Put inserts or overwrites k with v, tagged with state, and emits
// exactly one change event on the change stream (spec.md §3).
func (s *Store[K, V]) Put(k K, v V, state State) { s.core.Put(k, v, state) }

// Remove deletes k if present, emitting one change event carrying the
// removed value; by the time subscribers observe that event, k is
// already gone from the store.
func (s *Store[K, V]) Remove(k K, state State) bool { return s.core.Remove(k, state) }

// Get returns the value stored at k, if any.
func (s *Store[K, V]) Get(k K) (V, bool) { return s.core.Get(k) }

// AllValues returns every value in insertion order.
func (s *Store[K, V]) AllValues() []V { return s.core.AllValues() }

// AllValuesAsMap returns a defensive copy: mutating the result never
// affects the store or any later call to AllValuesAsMap (spec.md §8
// property 4).
func (s *Store[K, V]) AllValuesAsMap() map[K]V { return s.core.AllValuesAsMap() }

// Populate bulk-loads entries in the given order. It returns true only
// if the store has never been populated or initialized before (spec.md
// §8 property 5).
func (s *Store[K, V]) Populate(entries []Entry[K, V]) bool { return s.core.Populate(entries) }

// Initialize marks the store ready without loading any values, and
// fires every registered WhenReady waiter in registration order.
func (s *Store[K, V]) Initialize() { s.core.Initialize() }

// Ready reports whether the store has become ready.
func (s *Store[K, V]) Ready() bool { return s.core.Ready() }

// WhenReady registers fn to run once the store becomes ready. If the
// store is already ready, fn runs synchronously, immediately.
func (s *Store[K, V]) WhenReady(fn func()) { s.core.WhenReady(fn) }

// Reset clears every value without emitting change events; ready and
// the populate/initialize latch are retained.
func (s *Store[K, V]) Reset() { s.core.Reset() }

// Mutate posts a mutation envelope to every subscriber of
// OnMutationRequest matching mutationType. onSuccess/onError are called
// at most once between them, by whichever of envelope.Success/Error the
// mutator invokes.
func (s *Store[K, V]) Mutate(v V, mutationType MutationType, onSuccess, onError func(any)) {
	s.core.Mutate(v, mutationType, onSuccess, onError)
}

// OnChange subscribes to change events for key k, optionally filtered to
// one of the given states (all states if none given).
func (s *Store[K, V]) OnChange(k K, handler func(ChangeEvent[K, V]), states ...State) *Subscription {
	return s.core.OnChange(k, handler, states...)
}

// OnAllChanges subscribes across every key, filtered by the discriminator
// match and optionally by state (all states if none given).
func (s *Store[K, V]) OnAllChanges(match func(V) bool, handler func(ChangeEvent[K, V]), states ...State) *Subscription {
	return s.core.OnAllChanges(match, handler, states...)
}

// OnMutationRequest subscribes to mutation requests whose value satisfies
// match, optionally filtered by mutationType (all types if none given).
func (s *Store[K, V]) OnMutationRequest(match func(V) bool, handler func(*MutateEnvelope[V]), mutationTypes ...MutationType) *Subscription {
	return s.core.OnMutationRequest(match, handler, mutationTypes...)
}

// Close terminates the store's change and mutation streams. Called by a
// Manager's DestroyStore; safe to call directly on a standalone Store.
func (s *Store[K, V]) Close() { s.core.Close() }

// Stats returns a point-in-time activity snapshot.
func (s *Store[K, V]) Stats() Stats { return s.core.Stats() }
