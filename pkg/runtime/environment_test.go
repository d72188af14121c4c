package runtime

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEnvironmentShadowing(t *testing.T) {
	global := NewEnvironment(nil)
	global.Define("x", NumberValue{Val: 1})
	inner := NewEnvironment(global)
	inner.Define("x", NumberValue{Val: 2})

	if v, _ := inner.Lookup("x"); v != (NumberValue{Val: 2}) {
		t.Fatalf("expected inner binding, got %#v", v)
	}
	if v, _ := global.Lookup("x"); v != (NumberValue{Val: 1}) {
		t.Fatalf("expected outer binding untouched, got %#v", v)
	}
}

func TestEnvironmentAssignUpdatesNearestFrame(t *testing.T) {
	global := NewEnvironment(nil)
	global.Define("count", NumberValue{Val: 0})
	inner := NewEnvironment(NewEnvironment(global))

	if err := inner.Assign("count", NumberValue{Val: 5}); err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	if v, _ := global.Lookup("count"); v != (NumberValue{Val: 5}) {
		t.Fatalf("expected assignment to reach the defining frame, got %#v", v)
	}
	if err := inner.Assign("missing", Nil); err == nil || err.Error() != "Undefined variable 'missing'" {
		t.Fatalf("expected undefined variable error, got %v", err)
	}
}

func TestEnvironmentLookupAndKeys(t *testing.T) {
	env := NewEnvironment(nil)
	env.Define("b", Nil)
	env.Define("a", BoolValue{Val: true})
	env.Define("a", BoolValue{Val: false})

	if diff := cmp.Diff([]string{"a", "b"}, env.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	if _, ok := NewEnvironment(env).Lookup("a"); !ok {
		t.Fatalf("expected lookup through parent")
	}
	if _, ok := env.Lookup("zzz"); ok {
		t.Fatalf("expected error for unknown name")
	}
}

func TestTablePreservesInsertionOrder(t *testing.T) {
	var table Table
	table.Set("z", NumberValue{Val: 1})
	table.Set("a", NumberValue{Val: 2})
	table.Set("z", NumberValue{Val: 3})
	if diff := cmp.Diff([]string{"z", "a"}, table.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	if v, _ := table.Get("z"); v != (NumberValue{Val: 3}) {
		t.Fatalf("expected last write to win, got %#v", v)
	}
	if !table.Delete("z") || table.Delete("z") {
		t.Fatalf("unexpected delete results")
	}
	if table.Len() != 1 {
		t.Fatalf("expected one entry, got %d", table.Len())
	}
}

func TestClassMethodResolution(t *testing.T) {
	heap := NewHeap(DefaultHeapConfig(), nil)
	animal := heap.NewClass("Animal", nil)
	dog := heap.NewClass("Dog", animal)
	speakAnimal := heap.NewFunction(nil, nil)
	speakDog := heap.NewFunction(nil, nil)
	eat := heap.NewFunction(nil, nil)
	animal.Methods = []Method{{Name: "speak", Fn: speakAnimal}, {Name: "eat", Fn: eat}}
	dog.Methods = []Method{{Name: "speak", Fn: speakDog}}

	if fn, _ := dog.FindMethod("speak"); fn != speakDog {
		t.Fatalf("expected nearest definition to win")
	}
	if fn, _ := dog.FindMethod("eat"); fn != eat {
		t.Fatalf("expected inherited method")
	}
	if _, ok := dog.FindMethod("fly"); ok {
		t.Fatalf("unexpected method")
	}
	if !dog.IsSubclassOf(animal) || animal.IsSubclassOf(dog) {
		t.Fatalf("unexpected subclass relation")
	}
}
