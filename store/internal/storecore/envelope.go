package storecore

import (
	"sync"

	"github.com/framewire/messagebus/buslog"
)

// MutateEnvelope is the single-shot reply handle a mutator receives via
// OnMutationRequest. Exactly one of Success or Error may take effect;
// every call after the first is logged and dropped (spec.md §3).
type MutateEnvelope[V any] struct {
	Value        V
	MutationType MutationType

	mu       sync.Mutex
	replied  bool
	onResult func(result any, err any)
	logger   buslog.Logger
}

func newEnvelope[V any](value V, mutationType MutationType, logger buslog.Logger, onResult func(result any, err any)) *MutateEnvelope[V] {
	return &MutateEnvelope[V]{Value: value, MutationType: mutationType, onResult: onResult, logger: logger}
}

// Success delivers result to the mutate() caller's success handler. A
// second call (success or error) is a no-op beyond an error-level log.
func (e *MutateEnvelope[V]) Success(result any) {
	if !e.claim() {
		e.logger.Error("store: mutation envelope already replied, dropping success", map[string]any{})
		return
	}
	e.onResult(result, nil)
}

// Error delivers err to the mutate() caller's error handler, or logs at
// error level and drops it if the caller supplied none.
func (e *MutateEnvelope[V]) Error(err any) {
	if !e.claim() {
		e.logger.Error("store: mutation envelope already replied, dropping error", map[string]any{})
		return
	}
	e.onResult(nil, err)
}

func (e *MutateEnvelope[V]) claim() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.replied {
		return false
	}
	e.replied = true
	return true
}
