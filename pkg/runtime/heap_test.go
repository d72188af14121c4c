package runtime

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestHeapCollectReleasesUnreachableArrays(t *testing.T) {
	heap := NewHeap(HeapConfig{Disabled: true}, nil)
	global := NewEnvironment(nil)
	heap.SetRoots(func(m *Marker) { m.MarkEnv(global) })

	kept := heap.NewArray([]Value{NumberValue{Val: 1}})
	global.Define("kept", kept)

	for i := 0; i < 50; i++ {
		scratch := NewEnvironment(global)
		scratch.Define("tmp", heap.NewArray([]Value{NumberValue{Val: 1}, NumberValue{Val: 2}}))
	}

	before := heap.Stats()
	if before.NumObjects != 51 {
		t.Fatalf("expected 51 live objects before collection, got %d", before.NumObjects)
	}
	heap.Collect()
	after := heap.Stats()

	want := HeapStats{
		BytesAllocated: objectHeaderSize + slotSize,
		NextGC:         DefaultInitialThreshold,
		NumObjects:     1,
		Collections:    1,
		ObjectsFreed:   50,
	}
	if diff := cmp.Diff(want, after); diff != "" {
		t.Fatalf("stats mismatch (-want +got):\n%s", diff)
	}
	if kept.Freed() {
		t.Fatalf("reachable array was freed")
	}
	if len(kept.Elements) != 1 {
		t.Fatalf("reachable array lost its payload")
	}
}

func TestHeapMarksNestedAndCyclicStructures(t *testing.T) {
	heap := NewHeap(HeapConfig{Disabled: true}, nil)
	global := NewEnvironment(nil)
	heap.SetRoots(func(m *Marker) { m.MarkEnv(global) })

	outer := heap.NewArray(nil)
	inner := heap.NewDict()
	inner.Set("self", outer)
	inner.Set("name", heap.NewString("loop"))
	outer.Elements = append(outer.Elements, inner, heap.NewTuple([]Value{heap.NewString("t")}))
	heap.Resize(outer)
	global.Define("root", outer)

	orphanA := heap.NewArray(nil)
	orphanB := heap.NewArray([]Value{orphanA})
	orphanA.Elements = append(orphanA.Elements, orphanB)

	heap.Collect()
	stats := heap.Stats()
	if stats.NumObjects != 5 {
		t.Fatalf("expected 5 reachable objects, got %d", stats.NumObjects)
	}
	if stats.ObjectsFreed != 2 {
		t.Fatalf("expected the orphan cycle to be freed, got %d freed", stats.ObjectsFreed)
	}
	if !orphanA.Freed() || !orphanB.Freed() {
		t.Fatalf("orphan cycle survived collection")
	}
}

func TestHeapClosureKeepsEnvironmentAlive(t *testing.T) {
	heap := NewHeap(HeapConfig{Disabled: true}, nil)
	global := NewEnvironment(nil)
	heap.SetRoots(func(m *Marker) { m.MarkEnv(global) })

	captured := NewEnvironment(global)
	secret := heap.NewString("captured")
	captured.Define("secret", secret)
	global.Define("fn", heap.NewFunction(nil, captured))

	heap.Collect()
	if secret.Freed() {
		t.Fatalf("value captured by a live closure was freed")
	}
}

func TestHeapThresholdPolicy(t *testing.T) {
	heap := NewHeap(HeapConfig{InitialThreshold: 100, GrowFactor: 2}, nil)
	global := NewEnvironment(nil)
	heap.SetRoots(func(m *Marker) { m.MarkEnv(global) })

	if heap.CollectionDue() {
		t.Fatalf("fresh heap should not be due")
	}
	global.Define("big", heap.NewString(string(make([]byte, 200))))
	if !heap.CollectionDue() {
		t.Fatalf("expected collection to be due past the threshold")
	}
	if !heap.MaybeCollect() {
		t.Fatalf("expected MaybeCollect to run")
	}
	stats := heap.Stats()
	if stats.NextGC != stats.BytesAllocated*2 {
		t.Fatalf("expected next threshold to grow from live size, got %+v", stats)
	}
}

func TestHeapDisabledNeverDue(t *testing.T) {
	heap := NewHeap(HeapConfig{InitialThreshold: 10}, nil)
	heap.Disable()
	heap.NewString("well past the threshold")
	if heap.MaybeCollect() {
		t.Fatalf("disabled heap must not collect automatically")
	}
	heap.Collect()
	if heap.Stats().Collections != 1 {
		t.Fatalf("explicit collection must still run while disabled")
	}
	heap.Enable()
	if !heap.IsEnabled() {
		t.Fatalf("expected heap to be re-enabled")
	}
}

func TestHeapClosesUnreachableGenerators(t *testing.T) {
	heap := NewHeap(HeapConfig{Disabled: true}, nil)
	closed := false
	gen := heap.NewGenerator(nil, nil, nil)
	gen.Close = func() { closed = true }
	heap.Collect()
	if !closed {
		t.Fatalf("expected unreachable generator to be closed")
	}
	if !gen.Exhausted {
		t.Fatalf("expected swept generator to be exhausted")
	}
}
