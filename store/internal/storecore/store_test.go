package storecore

import (
	"testing"

	"github.com/framewire/messagebus/buslog"
)

var (
	stateCreated State = "created"
	stateUpdated State = "updated"
	stateDeleted State = "deleted"
)

// TestPutThenGetThenRemove covers spec.md §8 property 3 and seed
// scenario S1.
func TestPutThenGetThenRemove(t *testing.T) {
	s := New[string, string]("string", nil)

	s.Put("123", "chickie", stateCreated)
	if v, ok := s.Get("123"); !ok || v != "chickie" {
		t.Fatalf("Get(123) = (%q, %v), want (chickie, true)", v, ok)
	}
	if _, ok := s.Get("456"); ok {
		t.Fatal("Get(456) found a value that was never put")
	}

	var removedValue string
	s.OnChange("123", func(evt ChangeEvent[string, string]) { removedValue = evt.Value }, stateDeleted)
	if !s.Remove("123", stateDeleted) {
		t.Fatal("Remove(123) returned false")
	}
	if _, ok := s.Get("123"); ok {
		t.Fatal("Get(123) still found a value after Remove")
	}
	if removedValue != "chickie" {
		t.Fatalf("change event carried %q, want the pre-removal value chickie", removedValue)
	}
}

func TestRemoveUnknownKeyFails(t *testing.T) {
	s := New[string, string]("string", nil)
	if s.Remove("missing", stateDeleted) {
		t.Fatal("Remove on an absent key returned true")
	}
}

// TestOnChangeFiltersByKeyAndState covers seed scenario S2.
func TestOnChangeFiltersByKeyAndState(t *testing.T) {
	s := New[string, string]("dog", nil)

	deliveries := 0
	sub := s.OnChange("m", func(ChangeEvent[string, string]) { deliveries++ }, stateUpdated)
	sub.Unsubscribe()
	sub = s.OnChange("m", func(ChangeEvent[string, string]) { deliveries++ }, stateUpdated)
	defer sub.Unsubscribe()

	s.Put("m", "v1", stateCreated)
	s.Put("m", "v2", stateUpdated)
	s.Put("m", "v3", stateUpdated)
	s.Put("m", "v4", stateUpdated)
	s.Remove("m", stateDeleted)

	if deliveries != 3 {
		t.Fatalf("deliveries = %d, want exactly 3 (the three Updated puts)", deliveries)
	}
}

func TestOnChangeWithNoStatesMatchesAllStates(t *testing.T) {
	s := New[string, string]("dog", nil)
	deliveries := 0
	s.OnChange("m", func(ChangeEvent[string, string]) { deliveries++ })

	s.Put("m", "v1", stateCreated)
	s.Put("m", "v2", stateUpdated)
	s.Remove("m", stateDeleted)

	if deliveries != 3 {
		t.Fatalf("deliveries = %d, want 3 across all states", deliveries)
	}
}

func TestAllValuesPreservesInsertionOrder(t *testing.T) {
	s := New[string, string]("order", nil)
	s.Put("b", "2", stateCreated)
	s.Put("a", "1", stateCreated)
	s.Put("c", "3", stateCreated)
	s.Put("a", "1-updated", stateUpdated) // re-put must not move position

	got := s.AllValues()
	want := []string{"2", "1-updated", "3"}
	if len(got) != len(want) {
		t.Fatalf("AllValues() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("AllValues()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

// TestAllValuesAsMapIsADefensiveCopy covers spec.md §8 property 4.
func TestAllValuesAsMapIsADefensiveCopy(t *testing.T) {
	s := New[string, int]("counts", nil)
	s.Put("x", 1, stateCreated)

	snapshot := s.AllValuesAsMap()
	snapshot["x"] = 999
	snapshot["y"] = 1

	again := s.AllValuesAsMap()
	if again["x"] != 1 {
		t.Fatalf("AllValuesAsMap()[x] = %d after mutating a prior snapshot, want 1", again["x"])
	}
	if _, ok := again["y"]; ok {
		t.Fatal("mutating a prior snapshot added a key visible in a later snapshot")
	}
}

// TestPopulateSucceedsOnceThenRejects covers spec.md §8 property 5.
func TestPopulateSucceedsOnceThenRejects(t *testing.T) {
	s := New[string, string]("pop", nil)
	entries := []Entry[string, string]{{Key: "a", Value: "1"}, {Key: "b", Value: "2"}}

	if !s.Populate(entries) {
		t.Fatal("first Populate returned false")
	}
	if !s.Ready() {
		t.Fatal("Populate did not mark the store ready")
	}

	if s.Populate([]Entry[string, string]{{Key: "c", Value: "3"}}) {
		t.Fatal("second Populate returned true")
	}
	if _, ok := s.Get("c"); ok {
		t.Fatal("rejected Populate still mutated the store")
	}
}

func TestPopulateRejectedAfterInitialize(t *testing.T) {
	s := New[string, string]("pop2", nil)
	s.Initialize()
	if s.Populate([]Entry[string, string]{{Key: "a", Value: "1"}}) {
		t.Fatal("Populate succeeded after Initialize")
	}
}

func TestResetDoesNotReviveThePopulateLatch(t *testing.T) {
	s := New[string, string]("pop3", nil)
	s.Initialize()
	s.Reset()
	if s.Populate([]Entry[string, string]{{Key: "a", Value: "1"}}) {
		t.Fatal("Populate succeeded after Reset of an initialized store")
	}
	if !s.Ready() {
		t.Fatal("Reset un-readied the store")
	}
}

func TestResetClearsValuesWithoutEmittingChangeEvents(t *testing.T) {
	s := New[string, string]("reset", nil)
	s.Put("a", "1", stateCreated)

	fired := false
	s.OnChange("a", func(ChangeEvent[string, string]) { fired = true }, stateDeleted)
	s.Reset()

	if fired {
		t.Fatal("Reset emitted a change event")
	}
	if _, ok := s.Get("a"); ok {
		t.Fatal("Reset did not clear existing values")
	}
}

func TestWhenReadyFiresSynchronouslyIfAlreadyReady(t *testing.T) {
	s := New[string, string]("ready", nil)
	s.Initialize()

	fired := false
	s.WhenReady(func() { fired = true })
	if !fired {
		t.Fatal("WhenReady registered after Initialize did not fire synchronously")
	}
}

func TestWhenReadyFiresInRegistrationOrder(t *testing.T) {
	s := New[string, string]("order2", nil)
	var order []int
	s.WhenReady(func() { order = append(order, 1) })
	s.WhenReady(func() { order = append(order, 2) })
	s.WhenReady(func() { order = append(order, 3) })

	s.Initialize()

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("order = %v, want [1 2 3]", order)
	}
}

// TestMutateSuccessAndErrorPaths covers seed scenario S6.
func TestMutateSuccessAndErrorPaths(t *testing.T) {
	type dog struct{ Name string }

	s := New[string, dog]("Dog", nil)
	var mutationUpdate MutationType = "update"

	s.OnMutationRequest(func(dog) bool { return true }, func(env *MutateEnvelope[dog]) {
		if env.Value.Name == "fail-me" {
			env.Error("x")
			return
		}
		env.Success(dog{Name: env.Value.Name + "-updated"})
	}, mutationUpdate)

	var okResult any
	var errResult any
	okCalls, errCalls := 0, 0
	s.Mutate(dog{Name: "rex"}, mutationUpdate, func(r any) {
		okResult = r
		okCalls++
	}, func(e any) {
		errResult = e
		errCalls++
	})

	if okCalls != 1 || errCalls != 0 {
		t.Fatalf("okCalls=%d errCalls=%d, want 1/0", okCalls, errCalls)
	}
	if got, ok := okResult.(dog); !ok || got.Name != "rex-updated" {
		t.Fatalf("okResult = %#v, want dog{Name: rex-updated}", okResult)
	}

	okCalls, errCalls = 0, 0
	s.Mutate(dog{Name: "fail-me"}, mutationUpdate, func(any) { okCalls++ }, func(e any) {
		errResult = e
		errCalls++
	})
	if okCalls != 0 || errCalls != 1 {
		t.Fatalf("okCalls=%d errCalls=%d, want 0/1", okCalls, errCalls)
	}
	if errResult != "x" {
		t.Fatalf("errResult = %#v, want x", errResult)
	}
}

func TestMutateEnvelopeIsSingleShot(t *testing.T) {
	type v struct{}
	env := newEnvelope(v{}, MutationType("m"), buslog.Nop(), func(result any, err any) {})
	env.Success("first")
	env.Success("second") // must not panic, must be dropped
	env.Error("third")    // must not panic, must be dropped
}
