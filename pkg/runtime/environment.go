package runtime

import (
	"fmt"
	"sort"
)

// Environment is one frame of the lexical scope chain. A child never owns
// its parent; closures keep whole chains alive through Go references.
type Environment struct {
	values map[string]Value
	parent *Environment

	// Collection epoch in which this frame was last traced.
	markEpoch uint64
}

// NewEnvironment creates a new environment, optionally nested under a parent.
func NewEnvironment(parent *Environment) *Environment {
	return &Environment{
		values: make(map[string]Value),
		parent: parent,
	}
}

// Parent exposes the lexical parent (nil when global).
func (e *Environment) Parent() *Environment {
	return e.parent
}

// Define inserts or overwrites a binding in the current frame only.
func (e *Environment) Define(name string, value Value) {
	e.values[name] = value
}

// Assign updates an existing binding in the first frame where it appears.
func (e *Environment) Assign(name string, value Value) error {
	for env := e; env != nil; env = env.parent {
		if _, ok := env.values[name]; ok {
			env.values[name] = value
			return nil
		}
	}
	return fmt.Errorf("Undefined variable '%s'", name)
}

// Lookup retrieves a binding, searching outward through the scope chain.
func (e *Environment) Lookup(name string) (Value, bool) {
	for env := e; env != nil; env = env.parent {
		if v, ok := env.values[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// LookupOwn reads a binding of the current frame only.
func (e *Environment) LookupOwn(name string) (Value, bool) {
	v, ok := e.values[name]
	return v, ok
}

// Keys returns the current frame's bindings in sorted order.
func (e *Environment) Keys() []string {
	keys := make([]string, 0, len(e.values))
	for k := range e.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
