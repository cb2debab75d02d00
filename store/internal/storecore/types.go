// Package storecore implements the keyed store (spec.md §4.F): ordered
// values, state-tagged change notifications, a mutation request/response
// protocol, and a multi-store ready-join, all layered on the same
// internal/streaming primitive the kernel uses.
package storecore

// State is an opaque, caller-defined tag attached to a change event and
// used only for filtering (spec.md §3: "state is an opaque caller-defined
// tag used for filtering only"). Any comparable value works — a string
// or small int enum is typical.
type State any

// MutationType is an opaque, caller-defined tag attached to a mutation
// request, filtered the same way State is.
type MutationType any

// Entry is one key/value pair, used by Populate to load a store in a
// caller-specified order — Go maps carry no iteration order, so unlike
// the source's populate(map), Populate here takes an ordered slice to
// preserve the insertion-order invariant the store's iteration promises.
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

// ChangeEvent is one emission on a store's change stream.
type ChangeEvent[K comparable, V any] struct {
	Key   K
	Value V
	State State
}

func tagMatches(tags []State, want State) bool {
	if len(tags) == 0 {
		return true
	}
	for _, t := range tags {
		if t == want {
			return true
		}
	}
	return false
}

func mutationTypeMatches(types []MutationType, want MutationType) bool {
	if len(types) == 0 {
		return true
	}
	for _, t := range types {
		if t == want {
			return true
		}
	}
	return false
}
