package runtime

import (
	"fmt"

	"sage/interpreter-go/pkg/ast"
)

// Kind identifies the runtime value category.
type Kind int

const (
	KindNumber Kind = iota
	KindBool
	KindNil
	KindString
	KindArray
	KindDict
	KindTuple
	KindClass
	KindInstance
	KindException
	KindGenerator
	KindFunction
	KindNativeFunction
	KindBoundMethod
	KindModule
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindNil:
		return "nil"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindDict:
		return "dict"
	case KindTuple:
		return "tuple"
	case KindClass:
		return "class"
	case KindInstance:
		return "instance"
	case KindException:
		return "exception"
	case KindGenerator:
		return "generator"
	case KindFunction:
		return "function"
	case KindNativeFunction:
		return "native_function"
	case KindBoundMethod:
		return "bound_method"
	case KindModule:
		return "module"
	default:
		return fmt.Sprintf("unknown_kind_%d", int(k))
	}
}

// Value is the shared behaviour for all runtime values.
type Value interface {
	Kind() Kind
}

//-----------------------------------------------------------------------------
// Scalars
//-----------------------------------------------------------------------------

type NumberValue struct {
	Val float64
}

func (v NumberValue) Kind() Kind { return KindNumber }

type BoolValue struct {
	Val bool
}

func (v BoolValue) Kind() Kind { return KindBool }

type NilValue struct{}

func (NilValue) Kind() Kind { return KindNil }

// Nil is the shared nil value.
var Nil Value = NilValue{}

//-----------------------------------------------------------------------------
// Heap objects. Every kind below is allocated through a Heap and carries an
// ObjectHeader linking it into the heap's allocation list.
//-----------------------------------------------------------------------------

type StringValue struct {
	ObjectHeader
	Val string
}

func (v *StringValue) Kind() Kind { return KindString }

type ArrayValue struct {
	ObjectHeader
	Elements []Value
}

func (v *ArrayValue) Kind() Kind { return KindArray }

// TupleValue elements are fixed at construction.
type TupleValue struct {
	ObjectHeader
	Elements []Value
}

func (v *TupleValue) Kind() Kind { return KindTuple }

type DictValue struct {
	ObjectHeader
	Table
}

func (v *DictValue) Kind() Kind { return KindDict }

// Method is one entry of a class's ordered method table.
type Method struct {
	Name string
	Fn   *FunctionValue
}

type ClassValue struct {
	ObjectHeader
	Name    string
	Parent  *ClassValue
	Methods []Method
}

func (v *ClassValue) Kind() Kind { return KindClass }

// OwnMethod looks a method up on this class only.
func (v *ClassValue) OwnMethod(name string) (*FunctionValue, bool) {
	for _, m := range v.Methods {
		if m.Name == name {
			return m.Fn, true
		}
	}
	return nil, false
}

// FindMethod walks from the class up its parent chain; the nearest
// definition wins.
func (v *ClassValue) FindMethod(name string) (*FunctionValue, bool) {
	for class := v; class != nil; class = class.Parent {
		if fn, ok := class.OwnMethod(name); ok {
			return fn, true
		}
	}
	return nil, false
}

// IsSubclassOf reports whether v is other or inherits from it.
func (v *ClassValue) IsSubclassOf(other *ClassValue) bool {
	for class := v; class != nil; class = class.Parent {
		if class == other {
			return true
		}
	}
	return false
}

type InstanceValue struct {
	ObjectHeader
	Class  *ClassValue
	Fields Table
}

func (v *InstanceValue) Kind() Kind { return KindInstance }

type ExceptionValue struct {
	ObjectHeader
	Message string
}

func (v *ExceptionValue) Kind() Kind { return KindException }

//-----------------------------------------------------------------------------
// Functions & closures
//-----------------------------------------------------------------------------

// FunctionValue is a user procedure closed over its defining scope.
type FunctionValue struct {
	ObjectHeader
	Declaration *ast.ProcDeclaration
	Closure     *Environment
}

func (v *FunctionValue) Kind() Kind { return KindFunction }

// Name returns the declared procedure name.
func (v *FunctionValue) Name() string {
	if v.Declaration == nil {
		return "<proc>"
	}
	return v.Declaration.Name
}

// NativeCallContext provides hooks for native functions.
type NativeCallContext struct {
	Env  *Environment
	Heap *Heap
}

type NativeFunc func(*NativeCallContext, []Value) (Value, error)

// NativeFunctionValue wraps a Go implementation. Arity -1 accepts any
// argument count; natives validate their own arguments.
type NativeFunctionValue struct {
	Name  string
	Arity int
	Impl  NativeFunc
}

func (v NativeFunctionValue) Kind() Kind { return KindNativeFunction }

// BoundMethodValue captures the receiver of `obj.method`.
type BoundMethodValue struct {
	Receiver Value
	Method   *FunctionValue
}

func (v BoundMethodValue) Kind() Kind { return KindBoundMethod }

// GeneratorValue is a suspended procedure body. The interpreter owns the
// resumption machinery and installs it through the callback fields.
type GeneratorValue struct {
	ObjectHeader
	Declaration *ast.ProcDeclaration
	Closure     *Environment
	// Env is the execution environment created on first resume.
	Env       *Environment
	Args      []Value
	Started   bool
	Exhausted bool

	// Resume runs the body to its next yield.
	Resume func() (Value, error)
	// Close abandons a suspended body without running its deferred work.
	Close func()
	// Trace marks values held by the suspended execution state.
	Trace func(*Marker)
}

func (v *GeneratorValue) Kind() Kind { return KindGenerator }

// ModuleValue is the namespace produced by executing a module body.
type ModuleValue struct {
	ObjectHeader
	Name string
	Path string
	Env  *Environment
}

func (v *ModuleValue) Kind() Kind { return KindModule }

//-----------------------------------------------------------------------------
// Ordered string-keyed table shared by dicts and instance fields.
//-----------------------------------------------------------------------------

type Entry struct {
	Key   string
	Value Value
}

// Table keeps entries in insertion order; keys are unique and the last
// write wins. Lookup is linear.
type Table struct {
	entries []Entry
}

func (t *Table) index(key string) int {
	for i := range t.entries {
		if t.entries[i].Key == key {
			return i
		}
	}
	return -1
}

func (t *Table) Get(key string) (Value, bool) {
	if i := t.index(key); i >= 0 {
		return t.entries[i].Value, true
	}
	return nil, false
}

func (t *Table) Has(key string) bool { return t.index(key) >= 0 }

func (t *Table) Set(key string, value Value) {
	if i := t.index(key); i >= 0 {
		t.entries[i].Value = value
		return
	}
	t.entries = append(t.entries, Entry{Key: key, Value: value})
}

// Delete removes key and reports whether it was present.
func (t *Table) Delete(key string) bool {
	i := t.index(key)
	if i < 0 {
		return false
	}
	t.entries = append(t.entries[:i], t.entries[i+1:]...)
	return true
}

func (t *Table) Len() int { return len(t.entries) }

func (t *Table) Entries() []Entry { return t.entries }

func (t *Table) Keys() []string {
	keys := make([]string, len(t.entries))
	for i, e := range t.entries {
		keys[i] = e.Key
	}
	return keys
}
