package interpreter

import (
	"fmt"
	"math"

	"sage/interpreter-go/pkg/ast"
	"sage/interpreter-go/pkg/runtime"
)

func (i *Interpreter) evaluateExpression(node ast.Expression, env *runtime.Environment) (runtime.Value, error) {
	switch n := node.(type) {
	case *ast.NumberLiteral:
		return runtime.NumberValue{Val: n.Value}, nil
	case *ast.StringLiteral:
		return i.heap.NewString(n.Value), nil
	case *ast.BooleanLiteral:
		return runtime.BoolValue{Val: n.Value}, nil
	case *ast.NilLiteral:
		return runtime.Nil, nil
	case *ast.Identifier:
		return i.evaluateIdentifier(n, env)
	case *ast.ArrayLiteral:
		elements, err := i.evaluateElements(n.Elements, env)
		if err != nil {
			return nil, err
		}
		return i.heap.NewArray(elements), nil
	case *ast.TupleLiteral:
		elements, err := i.evaluateElements(n.Elements, env)
		if err != nil {
			return nil, err
		}
		return i.heap.NewTuple(elements), nil
	case *ast.DictLiteral:
		return i.evaluateDictLiteral(n, env)
	case *ast.UnaryExpression:
		return i.evaluateUnaryExpression(n, env)
	case *ast.BinaryExpression:
		return i.evaluateBinaryExpression(n, env)
	case *ast.CallExpression:
		return i.evaluateCallExpression(n, env)
	case *ast.IndexExpression:
		return i.evaluateIndexExpression(n, env)
	case *ast.SliceExpression:
		return i.evaluateSliceExpression(n, env)
	case *ast.MemberAccess:
		return i.evaluateMemberAccess(n, env)
	case *ast.SetExpression:
		return i.evaluateSetExpression(n, env)
	case *ast.IndexAssignment:
		return i.evaluateIndexAssignment(n, env)
	default:
		return nil, fmt.Errorf("unsupported expression type: %s", node.NodeType())
	}
}

// evaluateIdentifier resolves a name through the scope chain and then the
// procedure registry.
func (i *Interpreter) evaluateIdentifier(id *ast.Identifier, env *runtime.Environment) (runtime.Value, error) {
	if val, ok := env.Lookup(id.Name); ok {
		return val, nil
	}
	if fn, ok := i.functions[id.Name]; ok {
		return fn, nil
	}
	if i.strict {
		return nil, i.raise("Undefined variable '%s'.", id.Name)
	}
	i.diagnose("Undefined variable '%s'.", id.Name)
	return runtime.Nil, nil
}

// evaluateElements evaluates exprs left to right, keeping finished elements
// pinned until the caller takes ownership of the slice.
func (i *Interpreter) evaluateElements(exprs []ast.Expression, env *runtime.Environment) ([]runtime.Value, error) {
	mark := len(i.ctx.pins)
	defer i.unpinTo(mark)
	values := make([]runtime.Value, 0, len(exprs))
	for _, expr := range exprs {
		val, err := i.evaluateExpression(expr, env)
		if err != nil {
			return nil, err
		}
		i.pin(val)
		values = append(values, val)
	}
	return values, nil
}

func (i *Interpreter) evaluateDictLiteral(lit *ast.DictLiteral, env *runtime.Environment) (runtime.Value, error) {
	values, err := i.evaluateElements(lit.Values, env)
	if err != nil {
		return nil, err
	}
	dict := i.heap.NewDict()
	for idx, key := range lit.Keys {
		dict.Set(key, values[idx])
	}
	i.heap.Resize(dict)
	return dict, nil
}

func (i *Interpreter) evaluateUnaryExpression(expr *ast.UnaryExpression, env *runtime.Environment) (runtime.Value, error) {
	operand, err := i.evaluateExpression(expr.Operand, env)
	if err != nil {
		return nil, err
	}
	switch expr.Operator {
	case "-":
		num, ok := operand.(runtime.NumberValue)
		if !ok {
			return nil, i.raise("Operand must be a number.")
		}
		return runtime.NumberValue{Val: -num.Val}, nil
	default:
		return nil, i.raise("Unsupported unary operator %s.", expr.Operator)
	}
}

func (i *Interpreter) evaluateBinaryExpression(expr *ast.BinaryExpression, env *runtime.Environment) (runtime.Value, error) {
	switch expr.Operator {
	case "and", "or":
		return i.evaluateLogicalExpression(expr, env)
	}
	left, err := i.evaluateExpression(expr.Left, env)
	if err != nil {
		return nil, err
	}
	mark := i.pin(left)
	defer i.unpinTo(mark)
	right, err := i.evaluateExpression(expr.Right, env)
	if err != nil {
		return nil, err
	}
	i.pin(right)

	switch expr.Operator {
	case "==":
		return runtime.BoolValue{Val: valuesEqual(left, right)}, nil
	case "!=":
		return runtime.BoolValue{Val: !valuesEqual(left, right)}, nil
	case "+":
		if l, r, ok := numberOperands(left, right); ok {
			return runtime.NumberValue{Val: l + r}, nil
		}
		ls, lok := left.(*runtime.StringValue)
		rs, rok := right.(*runtime.StringValue)
		if lok && rok {
			return i.heap.NewString(ls.Val + rs.Val), nil
		}
		return nil, i.raise("Operands must be two numbers or two strings.")
	case "<", "<=", ">", ">=":
		return i.compare(expr.Operator, left, right)
	}

	l, r, ok := numberOperands(left, right)
	if !ok {
		return nil, i.raise("Operands must be numbers.")
	}
	switch expr.Operator {
	case "-":
		return runtime.NumberValue{Val: l - r}, nil
	case "*":
		return runtime.NumberValue{Val: l * r}, nil
	case "/":
		if r == 0 {
			return runtime.Nil, nil
		}
		return runtime.NumberValue{Val: l / r}, nil
	case "%":
		if r == 0 {
			return runtime.Nil, nil
		}
		return runtime.NumberValue{Val: math.Mod(l, r)}, nil
	default:
		return nil, i.raise("Unsupported binary operator %s.", expr.Operator)
	}
}

func (i *Interpreter) evaluateLogicalExpression(expr *ast.BinaryExpression, env *runtime.Environment) (runtime.Value, error) {
	left, err := i.evaluateExpression(expr.Left, env)
	if err != nil {
		return nil, err
	}
	if expr.Operator == "and" && !isTruthy(left) {
		return runtime.BoolValue{Val: false}, nil
	}
	if expr.Operator == "or" && isTruthy(left) {
		return runtime.BoolValue{Val: true}, nil
	}
	right, err := i.evaluateExpression(expr.Right, env)
	if err != nil {
		return nil, err
	}
	return runtime.BoolValue{Val: isTruthy(right)}, nil
}

func (i *Interpreter) compare(op string, left, right runtime.Value) (runtime.Value, error) {
	var cmp int
	if l, r, ok := numberOperands(left, right); ok {
		switch {
		case l < r:
			cmp = -1
		case l > r:
			cmp = 1
		}
	} else {
		ls, lok := left.(*runtime.StringValue)
		rs, rok := right.(*runtime.StringValue)
		if !lok || !rok {
			return nil, i.raise("Operands must be two numbers or two strings.")
		}
		switch {
		case ls.Val < rs.Val:
			cmp = -1
		case ls.Val > rs.Val:
			cmp = 1
		}
	}
	var result bool
	switch op {
	case "<":
		result = cmp < 0
	case "<=":
		result = cmp <= 0
	case ">":
		result = cmp > 0
	case ">=":
		result = cmp >= 0
	}
	return runtime.BoolValue{Val: result}, nil
}

func numberOperands(left, right runtime.Value) (float64, float64, bool) {
	l, lok := left.(runtime.NumberValue)
	r, rok := right.(runtime.NumberValue)
	return l.Val, r.Val, lok && rok
}

func (i *Interpreter) evaluateIndexExpression(expr *ast.IndexExpression, env *runtime.Environment) (runtime.Value, error) {
	target, err := i.evaluateExpression(expr.Target, env)
	if err != nil {
		return nil, err
	}
	mark := i.pin(target)
	defer i.unpinTo(mark)
	index, err := i.evaluateExpression(expr.Index, env)
	if err != nil {
		return nil, err
	}

	switch t := target.(type) {
	case *runtime.ArrayValue:
		idx, err := i.elementIndex(index, len(t.Elements))
		if err != nil {
			return nil, err
		}
		return t.Elements[idx], nil
	case *runtime.TupleValue:
		idx, err := i.elementIndex(index, len(t.Elements))
		if err != nil {
			return nil, err
		}
		return t.Elements[idx], nil
	case *runtime.StringValue:
		idx, err := i.elementIndex(index, len(t.Val))
		if err != nil {
			return nil, err
		}
		return i.heap.NewString(t.Val[idx : idx+1]), nil
	case *runtime.DictValue:
		key, ok := index.(*runtime.StringValue)
		if !ok {
			return nil, i.raise("Dictionary keys must be strings.")
		}
		if val, ok := t.Get(key.Val); ok {
			return val, nil
		}
		return runtime.Nil, nil
	default:
		return nil, i.raise("Cannot index into %s.", target.Kind())
	}
}

// elementIndex validates an integral, in-range index.
func (i *Interpreter) elementIndex(index runtime.Value, length int) (int, error) {
	num, ok := index.(runtime.NumberValue)
	if !ok || num.Val != math.Trunc(num.Val) {
		return 0, i.raise("Index must be an integer.")
	}
	if num.Val < 0 || num.Val >= float64(length) {
		return 0, i.raise("Index %s out of bounds.", formatNumber(num.Val))
	}
	return int(num.Val), nil
}

func (i *Interpreter) evaluateSliceExpression(expr *ast.SliceExpression, env *runtime.Environment) (runtime.Value, error) {
	target, err := i.evaluateExpression(expr.Target, env)
	if err != nil {
		return nil, err
	}
	mark := i.pin(target)
	defer i.unpinTo(mark)

	var length int
	switch t := target.(type) {
	case *runtime.ArrayValue:
		length = len(t.Elements)
	case *runtime.TupleValue:
		length = len(t.Elements)
	case *runtime.StringValue:
		length = len(t.Val)
	default:
		return nil, i.raise("Cannot slice %s.", target.Kind())
	}
	start, err := i.sliceBound(expr.Start, env, 0, length)
	if err != nil {
		return nil, err
	}
	end, err := i.sliceBound(expr.End, env, length, length)
	if err != nil {
		return nil, err
	}
	if end < start {
		end = start
	}

	switch t := target.(type) {
	case *runtime.ArrayValue:
		return i.heap.NewArray(append([]runtime.Value(nil), t.Elements[start:end]...)), nil
	case *runtime.TupleValue:
		return i.heap.NewTuple(append([]runtime.Value(nil), t.Elements[start:end]...)), nil
	default:
		return i.heap.NewString(target.(*runtime.StringValue).Val[start:end]), nil
	}
}

// sliceBound evaluates an optional bound, clamping it into [0, length].
func (i *Interpreter) sliceBound(expr ast.Expression, env *runtime.Environment, fallback, length int) (int, error) {
	if expr == nil {
		return fallback, nil
	}
	val, err := i.evaluateExpression(expr, env)
	if err != nil {
		return 0, err
	}
	num, ok := val.(runtime.NumberValue)
	if !ok || math.IsNaN(num.Val) {
		return 0, i.raise("Slice bounds must be numbers.")
	}
	return clampIndex(num.Val, length), nil
}

// clampIndex maps v into [0, length]; NaN maps to 0.
func clampIndex(v float64, length int) int {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > float64(length):
		return length
	default:
		return int(v)
	}
}

func (i *Interpreter) evaluateMemberAccess(expr *ast.MemberAccess, env *runtime.Environment) (runtime.Value, error) {
	object, err := i.evaluateExpression(expr.Object, env)
	if err != nil {
		return nil, err
	}
	return i.getMember(object, expr.Member)
}

func (i *Interpreter) evaluateSetExpression(expr *ast.SetExpression, env *runtime.Environment) (runtime.Value, error) {
	if expr.Object == nil {
		val, err := i.evaluateExpression(expr.Value, env)
		if err != nil {
			return nil, err
		}
		if err := env.Assign(expr.Name, val); err != nil {
			env.Define(expr.Name, val)
		}
		return val, nil
	}
	object, err := i.evaluateExpression(expr.Object, env)
	if err != nil {
		return nil, err
	}
	mark := i.pin(object)
	defer i.unpinTo(mark)
	inst, ok := object.(*runtime.InstanceValue)
	if !ok {
		return nil, i.raise("Only instances have fields.")
	}
	val, err := i.evaluateExpression(expr.Value, env)
	if err != nil {
		return nil, err
	}
	inst.Fields.Set(expr.Name, val)
	i.heap.Resize(inst)
	return val, nil
}

func (i *Interpreter) evaluateIndexAssignment(expr *ast.IndexAssignment, env *runtime.Environment) (runtime.Value, error) {
	target, err := i.evaluateExpression(expr.Target, env)
	if err != nil {
		return nil, err
	}
	mark := i.pin(target)
	defer i.unpinTo(mark)
	index, err := i.evaluateExpression(expr.Index, env)
	if err != nil {
		return nil, err
	}
	i.pin(index)
	val, err := i.evaluateExpression(expr.Value, env)
	if err != nil {
		return nil, err
	}

	switch t := target.(type) {
	case *runtime.ArrayValue:
		idx, err := i.elementIndex(index, len(t.Elements))
		if err != nil {
			return nil, err
		}
		t.Elements[idx] = val
	case *runtime.DictValue:
		key, ok := index.(*runtime.StringValue)
		if !ok {
			return nil, i.raise("Dictionary keys must be strings.")
		}
		t.Set(key.Val, val)
		i.heap.Resize(t)
	case *runtime.TupleValue:
		return nil, i.raise("Tuples are immutable.")
	default:
		return nil, i.raise("Cannot assign into %s.", target.Kind())
	}
	return val, nil
}
