package interpreter

import (
	"testing"

	"sage/interpreter-go/pkg/runtime"
)

func TestCollectReleasesDroppedArrays(t *testing.T) {
	res := runSource(t, `let keep = [1, 2]
proc churn(n):
    let i = 0
    while i < n:
        let tmp = [i, i, i]
        i = i + 1
churn(100)
`, Options{GC: runtime.HeapConfig{Disabled: true}})
	if res.err != nil {
		t.Fatalf("unexpected error: %v", res.err)
	}
	heap := res.interp.Heap()
	before := heap.Stats()
	heap.Collect()
	after := heap.Stats()

	if after.ObjectsFreed < 100 {
		t.Fatalf("expected at least 100 arrays freed, got %+v", after)
	}
	if after.NumObjects != before.NumObjects-after.ObjectsFreed {
		t.Fatalf("live count does not match freed count: before %+v after %+v", before, after)
	}
	if after.BytesAllocated >= before.BytesAllocated {
		t.Fatalf("expected bytes to shrink: before %d after %d", before.BytesAllocated, after.BytesAllocated)
	}
	keep, _ := res.interp.GlobalEnvironment().Lookup("keep")
	arr, ok := keep.(*runtime.ArrayValue)
	if !ok || arr.Freed() || len(arr.Elements) != 2 {
		t.Fatalf("reachable array was collected: %#v", keep)
	}
}

func TestCollectIsIdempotentForLiveGraph(t *testing.T) {
	res := expectOutput(t, `let a = [1]
let d = {ref: a}
push(a, d)
class Node:
    proc init(self, next):
        self.next = next
let ring = Node(nil)
ring.next = ring
gc_collect()
gc_collect()
let stats = gc_stats()
print stats["collections"], len(a), ring.next == ring
`, "2 2 true")
	if res.interp.Heap().Stats().Collections != 2 {
		t.Fatalf("unexpected collection count")
	}
}

func TestAutomaticCollectionUnderPressure(t *testing.T) {
	res := runSource(t, `let keep = []
proc make_adder(k):
    proc add(x):
        return x + k
    return add
let add2 = make_adder(2)
let i = 0
while i < 500:
    let tmp = [i, i, i, i, "pad" + "ding"]
    if i % 100 == 0:
        push(keep, tmp)
    i = i + 1
print len(keep), keep[4][0], add2(40)
`, Options{GC: runtime.HeapConfig{InitialThreshold: 2048, GrowFactor: 2}})
	if res.err != nil {
		t.Fatalf("unexpected error: %v", res.err)
	}
	if res.stdout != "5 400 42\n" {
		t.Fatalf("unexpected output %q", res.stdout)
	}
	if res.interp.Heap().Stats().Collections == 0 {
		t.Fatalf("expected allocation pressure to trigger collections")
	}
}

func TestGCControlNatives(t *testing.T) {
	res := expectOutput(t, `gc_disable()
let i = 0
while i < 50:
    let tmp = [i]
    i = i + 1
print gc_stats()["collections"]
gc_enable()
`, "0")
	if !res.interp.Heap().IsEnabled() {
		t.Fatalf("expected collector to be re-enabled")
	}
}

func TestSuspendedGeneratorSurvivesCollection(t *testing.T) {
	expectOutput(t, `proc walk(items):
    for item in items:
        yield item + "!"
let g = walk(["a", "b", "c"])
print next(g)
gc_collect()
print next(g)
gc_collect()
print next(g), next(g)
`, "a!", "b!", "c! nil")
}

func TestUnreachableGeneratorIsClosed(t *testing.T) {
	res := expectOutput(t, `proc forever():
    defer print "never printed"
    let n = 0
    while true:
        n = n + 1
        yield n
proc sample():
    let g = forever()
    return next(g) + next(g)
print sample()
gc_collect()
print "done"
`, "3", "done")
	if res.interp.Heap().Stats().ObjectsFreed == 0 {
		t.Fatalf("expected the abandoned generator to be freed")
	}
}
