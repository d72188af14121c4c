package interpreter

import (
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"sage/interpreter-go/pkg/runtime"
)

// installNatives binds the native library in the global environment. Every
// native returns nil when its arguments have the wrong count or kind.
func (i *Interpreter) installNatives() {
	natives := []runtime.NativeFunctionValue{
		{Name: "clock", Arity: 0, Impl: i.nativeClock},
		{Name: "input", Arity: -1, Impl: i.nativeInput},
		{Name: "tonumber", Arity: 1, Impl: nativeToNumber},
		{Name: "str", Arity: 1, Impl: nativeStr},
		{Name: "len", Arity: 1, Impl: nativeLen},
		{Name: "type", Arity: 1, Impl: nativeType},
		{Name: "push", Arity: 2, Impl: nativePush},
		{Name: "pop", Arity: 1, Impl: nativePop},
		{Name: "range", Arity: -1, Impl: nativeRange},
		{Name: "slice", Arity: 3, Impl: nativeSlice},
		{Name: "split", Arity: 2, Impl: nativeSplit},
		{Name: "join", Arity: 2, Impl: nativeJoin},
		{Name: "replace", Arity: 3, Impl: nativeReplace},
		{Name: "upper", Arity: 1, Impl: stringNative(strings.ToUpper)},
		{Name: "lower", Arity: 1, Impl: stringNative(strings.ToLower)},
		{Name: "strip", Arity: 1, Impl: stringNative(strings.TrimSpace)},
		{Name: "dict_keys", Arity: 1, Impl: nativeDictKeys},
		{Name: "dict_values", Arity: 1, Impl: nativeDictValues},
		{Name: "dict_has", Arity: 2, Impl: nativeDictHas},
		{Name: "dict_delete", Arity: 2, Impl: nativeDictDelete},
		{Name: "gc_collect", Arity: 0, Impl: nativeGCCollect},
		{Name: "gc_stats", Arity: 0, Impl: nativeGCStats},
		{Name: "gc_enable", Arity: 0, Impl: nativeGCEnable},
		{Name: "gc_disable", Arity: 0, Impl: nativeGCDisable},
		{Name: "next", Arity: 1, Impl: nativeNext},
	}
	for _, fn := range natives {
		i.global.Define(fn.Name, fn)
	}
}

func (i *Interpreter) nativeClock(*runtime.NativeCallContext, []runtime.Value) (runtime.Value, error) {
	return runtime.NumberValue{Val: time.Since(i.started).Seconds()}, nil
}

// nativeInput prints an optional prompt and reads one line without its
// terminator. End of input yields nil.
func (i *Interpreter) nativeInput(ctx *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
	if len(args) > 1 {
		return runtime.Nil, nil
	}
	if len(args) == 1 {
		io.WriteString(i.stdout, valueToString(args[0]))
	}
	line, err := i.stdin.ReadString('\n')
	if err != nil && line == "" {
		return runtime.Nil, nil
	}
	line = strings.TrimRight(line, "\r\n")
	return ctx.Heap.NewString(line), nil
}

func nativeToNumber(_ *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
	switch v := args[0].(type) {
	case runtime.NumberValue:
		return v, nil
	case *runtime.StringValue:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Val), 64)
		if err != nil {
			return runtime.Nil, nil
		}
		return runtime.NumberValue{Val: f}, nil
	case runtime.BoolValue:
		if v.Val {
			return runtime.NumberValue{Val: 1}, nil
		}
		return runtime.NumberValue{Val: 0}, nil
	}
	return runtime.Nil, nil
}

func nativeStr(ctx *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
	if s, ok := args[0].(*runtime.StringValue); ok {
		return s, nil
	}
	return ctx.Heap.NewString(valueToString(args[0])), nil
}

func nativeLen(_ *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
	var n int
	switch v := args[0].(type) {
	case *runtime.StringValue:
		n = len(v.Val)
	case *runtime.ArrayValue:
		n = len(v.Elements)
	case *runtime.TupleValue:
		n = len(v.Elements)
	case *runtime.DictValue:
		n = v.Len()
	default:
		return runtime.Nil, nil
	}
	return runtime.NumberValue{Val: float64(n)}, nil
}

func nativeType(ctx *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
	return ctx.Heap.NewString(args[0].Kind().String()), nil
}

func nativePush(ctx *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
	arr, ok := args[0].(*runtime.ArrayValue)
	if !ok {
		return runtime.Nil, nil
	}
	arr.Elements = append(arr.Elements, args[1])
	ctx.Heap.Resize(arr)
	return runtime.Nil, nil
}

func nativePop(ctx *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
	arr, ok := args[0].(*runtime.ArrayValue)
	if !ok || len(arr.Elements) == 0 {
		return runtime.Nil, nil
	}
	last := arr.Elements[len(arr.Elements)-1]
	arr.Elements[len(arr.Elements)-1] = nil
	arr.Elements = arr.Elements[:len(arr.Elements)-1]
	ctx.Heap.Resize(arr)
	return last, nil
}

// nativeRange accepts range(end), range(start, end) or
// range(start, end, step).
func nativeRange(ctx *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
	if len(args) == 0 || len(args) > 3 {
		return runtime.Nil, nil
	}
	bounds := make([]float64, len(args))
	for idx, arg := range args {
		num, ok := arg.(runtime.NumberValue)
		if !ok || math.IsNaN(num.Val) || math.IsInf(num.Val, 0) {
			return runtime.Nil, nil
		}
		bounds[idx] = num.Val
	}
	start, end, step := 0.0, bounds[0], 1.0
	if len(bounds) >= 2 {
		start, end = bounds[0], bounds[1]
	}
	if len(bounds) == 3 {
		step = bounds[2]
	}
	if step == 0 {
		return runtime.Nil, nil
	}
	var elements []runtime.Value
	for v := start; (step > 0 && v < end) || (step < 0 && v > end); v += step {
		elements = append(elements, runtime.NumberValue{Val: v})
	}
	return ctx.Heap.NewArray(elements), nil
}

func nativeSlice(ctx *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
	startNum, ok1 := args[1].(runtime.NumberValue)
	endNum, ok2 := args[2].(runtime.NumberValue)
	if !ok1 || !ok2 || math.IsNaN(startNum.Val) || math.IsNaN(endNum.Val) {
		return runtime.Nil, nil
	}
	switch v := args[0].(type) {
	case *runtime.ArrayValue:
		start, end := sliceRange(startNum.Val, endNum.Val, len(v.Elements))
		return ctx.Heap.NewArray(append([]runtime.Value(nil), v.Elements[start:end]...)), nil
	case *runtime.StringValue:
		start, end := sliceRange(startNum.Val, endNum.Val, len(v.Val))
		return ctx.Heap.NewString(v.Val[start:end]), nil
	}
	return runtime.Nil, nil
}

func sliceRange(start, end float64, length int) (int, int) {
	s, e := clampIndex(start, length), clampIndex(end, length)
	if e < s {
		e = s
	}
	return s, e
}

func nativeSplit(ctx *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
	s, ok1 := args[0].(*runtime.StringValue)
	sep, ok2 := args[1].(*runtime.StringValue)
	if !ok1 || !ok2 {
		return runtime.Nil, nil
	}
	var parts []string
	if sep.Val == "" {
		parts = strings.Fields(s.Val)
	} else {
		parts = strings.Split(s.Val, sep.Val)
	}
	elements := make([]runtime.Value, len(parts))
	for idx, part := range parts {
		elements[idx] = ctx.Heap.NewString(part)
	}
	return ctx.Heap.NewArray(elements), nil
}

func nativeJoin(ctx *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
	arr, ok1 := args[0].(*runtime.ArrayValue)
	sep, ok2 := args[1].(*runtime.StringValue)
	if !ok1 || !ok2 {
		return runtime.Nil, nil
	}
	parts := make([]string, len(arr.Elements))
	for idx, el := range arr.Elements {
		parts[idx] = valueToString(el)
	}
	return ctx.Heap.NewString(strings.Join(parts, sep.Val)), nil
}

func nativeReplace(ctx *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
	s, ok1 := args[0].(*runtime.StringValue)
	old, ok2 := args[1].(*runtime.StringValue)
	repl, ok3 := args[2].(*runtime.StringValue)
	if !ok1 || !ok2 || !ok3 {
		return runtime.Nil, nil
	}
	return ctx.Heap.NewString(strings.ReplaceAll(s.Val, old.Val, repl.Val)), nil
}

func stringNative(transform func(string) string) runtime.NativeFunc {
	return func(ctx *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
		s, ok := args[0].(*runtime.StringValue)
		if !ok {
			return runtime.Nil, nil
		}
		return ctx.Heap.NewString(transform(s.Val)), nil
	}
}

func nativeDictKeys(ctx *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
	dict, ok := args[0].(*runtime.DictValue)
	if !ok {
		return runtime.Nil, nil
	}
	keys := dict.Keys()
	elements := make([]runtime.Value, len(keys))
	for idx, key := range keys {
		elements[idx] = ctx.Heap.NewString(key)
	}
	return ctx.Heap.NewArray(elements), nil
}

func nativeDictValues(ctx *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
	dict, ok := args[0].(*runtime.DictValue)
	if !ok {
		return runtime.Nil, nil
	}
	elements := make([]runtime.Value, 0, dict.Len())
	for _, entry := range dict.Entries() {
		elements = append(elements, entry.Value)
	}
	return ctx.Heap.NewArray(elements), nil
}

func nativeDictHas(_ *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
	dict, ok1 := args[0].(*runtime.DictValue)
	key, ok2 := args[1].(*runtime.StringValue)
	if !ok1 || !ok2 {
		return runtime.Nil, nil
	}
	return runtime.BoolValue{Val: dict.Has(key.Val)}, nil
}

func nativeDictDelete(ctx *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
	dict, ok1 := args[0].(*runtime.DictValue)
	key, ok2 := args[1].(*runtime.StringValue)
	if !ok1 || !ok2 {
		return runtime.Nil, nil
	}
	removed := dict.Delete(key.Val)
	ctx.Heap.Resize(dict)
	return runtime.BoolValue{Val: removed}, nil
}

func nativeGCCollect(ctx *runtime.NativeCallContext, _ []runtime.Value) (runtime.Value, error) {
	ctx.Heap.Collect()
	return runtime.Nil, nil
}

func nativeGCStats(ctx *runtime.NativeCallContext, _ []runtime.Value) (runtime.Value, error) {
	stats := ctx.Heap.Stats()
	dict := ctx.Heap.NewDict()
	dict.Set("bytes_allocated", runtime.NumberValue{Val: float64(stats.BytesAllocated)})
	dict.Set("next_gc", runtime.NumberValue{Val: float64(stats.NextGC)})
	dict.Set("num_objects", runtime.NumberValue{Val: float64(stats.NumObjects)})
	dict.Set("collections", runtime.NumberValue{Val: float64(stats.Collections)})
	dict.Set("objects_freed", runtime.NumberValue{Val: float64(stats.ObjectsFreed)})
	ctx.Heap.Resize(dict)
	return dict, nil
}

func nativeGCEnable(ctx *runtime.NativeCallContext, _ []runtime.Value) (runtime.Value, error) {
	ctx.Heap.Enable()
	return runtime.Nil, nil
}

func nativeGCDisable(ctx *runtime.NativeCallContext, _ []runtime.Value) (runtime.Value, error) {
	ctx.Heap.Disable()
	return runtime.Nil, nil
}

// nativeNext resumes a generator; anything else yields nil.
func nativeNext(_ *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
	gen, ok := args[0].(*runtime.GeneratorValue)
	if !ok || gen.Resume == nil {
		return runtime.Nil, nil
	}
	return gen.Resume()
}
