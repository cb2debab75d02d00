package store

import (
	"github.com/framewire/messagebus/internal/streaming"
	"github.com/framewire/messagebus/store/internal/storecore"
)

// Subscription is returned by every subscribing operation on a Store.
type Subscription = streaming.Subscription

// Public API — re-export internal types as the stable contract, matching
// kernel/api.go's alias-over-internal-type convention.

// State is an opaque, caller-defined tag attached to a change event and
// used only for filtering.
type State = storecore.State

// MutationType is an opaque, caller-defined tag attached to a mutation
// request, filtered the same way State is.
type MutationType = storecore.MutationType

// Entry is one key/value pair, used by Populate to load a store in a
// caller-specified order.
type Entry[K comparable, V any] = storecore.Entry[K, V]

// ChangeEvent is one emission on a store's change stream.
type ChangeEvent[K comparable, V any] = storecore.ChangeEvent[K, V]

// MutateEnvelope is the single-shot reply handle a mutator receives via
// OnMutationRequest.
type MutateEnvelope[V any] = storecore.MutateEnvelope[V]

// Stats is a point-in-time snapshot of one store's activity.
type Stats = storecore.Stats
