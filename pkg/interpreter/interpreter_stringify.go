package interpreter

import (
	"math"
	"strconv"
	"strings"

	"sage/interpreter-go/pkg/runtime"
)

// valueToString renders v the way print shows it.
func valueToString(v runtime.Value) string {
	var b strings.Builder
	writeValue(&b, v, 0)
	return b.String()
}

// Nested containers deeper than this render as "...".
const maxRenderDepth = 32

func writeValue(b *strings.Builder, v runtime.Value, depth int) {
	if depth > maxRenderDepth {
		b.WriteString("...")
		return
	}
	switch val := v.(type) {
	case nil, runtime.NilValue:
		b.WriteString("nil")
	case runtime.NumberValue:
		b.WriteString(formatNumber(val.Val))
	case runtime.BoolValue:
		b.WriteString(strconv.FormatBool(val.Val))
	case *runtime.StringValue:
		b.WriteString(val.Val)
	case *runtime.ArrayValue:
		b.WriteByte('[')
		writeElements(b, val.Elements, depth)
		b.WriteByte(']')
	case *runtime.TupleValue:
		b.WriteByte('(')
		writeElements(b, val.Elements, depth)
		b.WriteByte(')')
	case *runtime.DictValue:
		b.WriteByte('{')
		for idx, entry := range val.Entries() {
			if idx > 0 {
				b.WriteString(", ")
			}
			b.WriteString(entry.Key)
			b.WriteString(": ")
			writeValue(b, entry.Value, depth+1)
		}
		b.WriteByte('}')
	case *runtime.ClassValue:
		b.WriteString("<class " + val.Name + ">")
	case *runtime.InstanceValue:
		b.WriteString("<" + val.Class.Name + " instance>")
	case *runtime.ExceptionValue:
		b.WriteString("<exception: " + val.Message + ">")
	case *runtime.FunctionValue:
		b.WriteString("<fn " + val.Name() + ">")
	case runtime.BoundMethodValue:
		b.WriteString("<fn " + val.Method.Name() + ">")
	case runtime.NativeFunctionValue:
		b.WriteString("<native fn>")
	case *runtime.GeneratorValue:
		name := "<proc>"
		if val.Declaration != nil {
			name = val.Declaration.Name
		}
		b.WriteString("<generator " + name + ">")
	case *runtime.ModuleValue:
		b.WriteString("<module " + val.Name + ">")
	default:
		b.WriteString("<" + v.Kind().String() + ">")
	}
}

func writeElements(b *strings.Builder, elements []runtime.Value, depth int) {
	for idx, el := range elements {
		if idx > 0 {
			b.WriteString(", ")
		}
		writeValue(b, el, depth+1)
	}
}

// formatNumber prints integral values without a fractional part.
func formatNumber(f float64) string {
	if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// isTruthy treats nil, false and zero as false.
func isTruthy(v runtime.Value) bool {
	switch val := v.(type) {
	case nil, runtime.NilValue:
		return false
	case runtime.BoolValue:
		return val.Val
	case runtime.NumberValue:
		return val.Val != 0
	default:
		return true
	}
}

// valuesEqual compares scalars and strings by value and every other heap
// kind by identity.
func valuesEqual(a, b runtime.Value) bool {
	switch x := a.(type) {
	case nil, runtime.NilValue:
		switch b.(type) {
		case nil, runtime.NilValue:
			return true
		}
		return false
	case runtime.NumberValue:
		y, ok := b.(runtime.NumberValue)
		return ok && x.Val == y.Val
	case runtime.BoolValue:
		y, ok := b.(runtime.BoolValue)
		return ok && x.Val == y.Val
	case *runtime.StringValue:
		y, ok := b.(*runtime.StringValue)
		return ok && x.Val == y.Val
	case runtime.BoundMethodValue:
		y, ok := b.(runtime.BoundMethodValue)
		return ok && x.Method == y.Method && x.Receiver == y.Receiver
	case runtime.NativeFunctionValue:
		y, ok := b.(runtime.NativeFunctionValue)
		return ok && x.Name == y.Name
	default:
		return a == b
	}
}
