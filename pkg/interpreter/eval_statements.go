package interpreter

import (
	"fmt"
	"strings"

	"sage/interpreter-go/pkg/ast"
	"sage/interpreter-go/pkg/runtime"
)

// evaluateStatement is the collector's safe point: every live value is
// reachable from a scope, a pin or the registries whenever it is entered.
func (i *Interpreter) evaluateStatement(node ast.Statement, env *runtime.Environment) (runtime.Value, error) {
	i.heap.MaybeCollect()
	switch n := node.(type) {
	case *ast.ExpressionStatement:
		return i.evaluateExpression(n.Expression, env)
	case *ast.PrintStatement:
		return i.evaluatePrintStatement(n, env)
	case *ast.LetStatement:
		return i.evaluateLetStatement(n, env)
	case *ast.Block:
		return i.evaluateBlock(n, env)
	case *ast.IfStatement:
		return i.evaluateIfStatement(n, env)
	case *ast.WhileStatement:
		return i.evaluateWhileStatement(n, env)
	case *ast.ForStatement:
		return i.evaluateForStatement(n, env)
	case *ast.ProcDeclaration:
		return i.evaluateProcDeclaration(n, env)
	case *ast.ReturnStatement:
		return i.evaluateReturnStatement(n, env)
	case *ast.BreakStatement:
		return nil, breakSignal{}
	case *ast.ContinueStatement:
		return nil, continueSignal{}
	case *ast.ClassDeclaration:
		return i.evaluateClassDeclaration(n, env)
	case *ast.MatchStatement:
		return i.evaluateMatchStatement(n, env)
	case *ast.DeferStatement:
		i.ctx.defers = append(i.ctx.defers, deferredStatement{stmt: n.Statement, env: env})
		return runtime.Nil, nil
	case *ast.TryStatement:
		return i.evaluateTryStatement(n, env)
	case *ast.RaiseStatement:
		return i.evaluateRaiseStatement(n, env)
	case *ast.YieldStatement:
		return i.evaluateYieldStatement(n, env)
	case *ast.ImportStatement:
		return i.evaluateImportStatement(n, env)
	default:
		return nil, fmt.Errorf("unsupported statement type: %s", node.NodeType())
	}
}

// evaluateBlock runs block in a fresh child scope of env.
func (i *Interpreter) evaluateBlock(block *ast.Block, env *runtime.Environment) (runtime.Value, error) {
	return i.executeBlock(block, runtime.NewEnvironment(env))
}

// executeBlock runs block directly in scope. Statements deferred while it
// runs execute on the way out, last first, whatever signal ends the block.
func (i *Interpreter) executeBlock(block *ast.Block, scope *runtime.Environment) (runtime.Value, error) {
	i.pushScope(scope)
	defer i.popScope()
	mark := len(i.ctx.defers)
	var err error
	if block != nil {
		for _, stmt := range block.Statements {
			if _, err = i.evaluateStatement(stmt, scope); err != nil {
				break
			}
		}
	}
	return i.runDefers(mark, runtime.Nil, err)
}

// runDefers executes the deferred statements registered above mark. A
// failing deferred statement replaces only a normal outcome.
func (i *Interpreter) runDefers(mark int, result runtime.Value, err error) (runtime.Value, error) {
	if len(i.ctx.defers) <= mark {
		return result, err
	}
	if _, closing := err.(closeSignal); closing {
		clear(i.ctx.defers[mark:])
		i.ctx.defers = i.ctx.defers[:mark]
		return result, err
	}
	pinMark := i.pin(signalValue(err))
	defer i.unpinTo(pinMark)
	for len(i.ctx.defers) > mark {
		last := len(i.ctx.defers) - 1
		d := i.ctx.defers[last]
		i.ctx.defers[last] = deferredStatement{}
		i.ctx.defers = i.ctx.defers[:last]
		i.pushScope(d.env)
		_, derr := i.evaluateStatement(d.stmt, d.env)
		i.popScope()
		if derr != nil && err == nil {
			err = derr
			i.pin(signalValue(err))
		}
	}
	return result, err
}

func (i *Interpreter) evaluatePrintStatement(stmt *ast.PrintStatement, env *runtime.Environment) (runtime.Value, error) {
	mark := len(i.ctx.pins)
	defer i.unpinTo(mark)
	parts := make([]string, 0, len(stmt.Values))
	for _, expr := range stmt.Values {
		val, err := i.evaluateExpression(expr, env)
		if err != nil {
			return nil, err
		}
		i.pin(val)
		parts = append(parts, valueToString(val))
	}
	fmt.Fprintln(i.stdout, strings.Join(parts, " "))
	return runtime.Nil, nil
}

func (i *Interpreter) evaluateLetStatement(stmt *ast.LetStatement, env *runtime.Environment) (runtime.Value, error) {
	var val runtime.Value = runtime.Nil
	if stmt.Initializer != nil {
		var err error
		if val, err = i.evaluateExpression(stmt.Initializer, env); err != nil {
			return nil, err
		}
	}
	env.Define(stmt.Name, val)
	return runtime.Nil, nil
}

func (i *Interpreter) evaluateIfStatement(stmt *ast.IfStatement, env *runtime.Environment) (runtime.Value, error) {
	cond, err := i.evaluateExpression(stmt.Condition, env)
	if err != nil {
		return nil, err
	}
	if isTruthy(cond) {
		return i.evaluateBlock(stmt.Then, env)
	}
	if stmt.Else != nil {
		return i.evaluateStatement(stmt.Else, env)
	}
	return runtime.Nil, nil
}

func (i *Interpreter) evaluateWhileStatement(loop *ast.WhileStatement, env *runtime.Environment) (runtime.Value, error) {
	for {
		cond, err := i.evaluateExpression(loop.Condition, env)
		if err != nil {
			return nil, err
		}
		if !isTruthy(cond) {
			return runtime.Nil, nil
		}
		if _, err := i.evaluateBlock(loop.Body, env); err != nil {
			switch err.(type) {
			case breakSignal:
				return runtime.Nil, nil
			case continueSignal:
				continue
			default:
				return nil, err
			}
		}
	}
}

// evaluateForStatement rebinds the loop variable in one frame shared by all
// iterations.
func (i *Interpreter) evaluateForStatement(loop *ast.ForStatement, env *runtime.Environment) (runtime.Value, error) {
	iterable, err := i.evaluateExpression(loop.Iterable, env)
	if err != nil {
		return nil, err
	}
	arr, ok := iterable.(*runtime.ArrayValue)
	if !ok {
		return nil, i.raise("Can only iterate over arrays, got %s.", iterable.Kind())
	}
	mark := i.pin(arr)
	defer i.unpinTo(mark)

	loopEnv := runtime.NewEnvironment(env)
	i.pushScope(loopEnv)
	defer i.popScope()
	for idx := 0; idx < len(arr.Elements); idx++ {
		loopEnv.Define(loop.Variable, arr.Elements[idx])
		if _, err := i.evaluateBlock(loop.Body, loopEnv); err != nil {
			switch err.(type) {
			case breakSignal:
				return runtime.Nil, nil
			case continueSignal:
				continue
			default:
				return nil, err
			}
		}
	}
	return runtime.Nil, nil
}

// evaluateProcDeclaration binds the procedure in the current scope and, for
// procedures outside module bodies, in the registry. Bodies containing
// yield declare a generator instead.
func (i *Interpreter) evaluateProcDeclaration(decl *ast.ProcDeclaration, env *runtime.Environment) (runtime.Value, error) {
	var val runtime.Value
	if i.isGeneratorBody(decl) {
		val = i.newGenerator(decl, env, nil)
	} else {
		val = i.heap.NewFunction(decl, env)
	}
	env.Define(decl.Name, val)
	if !i.inModule(env) {
		i.functions[decl.Name] = val
	}
	return runtime.Nil, nil
}

func (i *Interpreter) isGeneratorBody(decl *ast.ProcDeclaration) bool {
	yields, ok := i.yieldCache[decl]
	if !ok {
		yields = ast.ContainsYield(decl.Body)
		i.yieldCache[decl] = yields
	}
	return yields
}

func (i *Interpreter) evaluateReturnStatement(stmt *ast.ReturnStatement, env *runtime.Environment) (runtime.Value, error) {
	var result runtime.Value = runtime.Nil
	if stmt.Value != nil {
		val, err := i.evaluateExpression(stmt.Value, env)
		if err != nil {
			return nil, err
		}
		result = val
	}
	return nil, returnSignal{value: result}
}

func (i *Interpreter) evaluateClassDeclaration(decl *ast.ClassDeclaration, env *runtime.Environment) (runtime.Value, error) {
	var parent *runtime.ClassValue
	if decl.Parent != "" {
		val, ok := env.Lookup(decl.Parent)
		if !ok {
			return nil, i.raise("Undefined parent class '%s'.", decl.Parent)
		}
		if parent, ok = val.(*runtime.ClassValue); !ok {
			return nil, i.raise("Parent of '%s' must be a class, got %s.", decl.Name, val.Kind())
		}
	}
	class := i.heap.NewClass(decl.Name, parent)
	mark := i.pin(class)
	defer i.unpinTo(mark)
	for _, method := range decl.Methods {
		class.Methods = append(class.Methods, runtime.Method{Name: method.Name, Fn: i.heap.NewFunction(method, env)})
	}
	i.heap.Resize(class)
	env.Define(decl.Name, class)
	return runtime.Nil, nil
}

func (i *Interpreter) evaluateMatchStatement(stmt *ast.MatchStatement, env *runtime.Environment) (runtime.Value, error) {
	subject, err := i.evaluateExpression(stmt.Subject, env)
	if err != nil {
		return nil, err
	}
	mark := i.pin(subject)
	defer i.unpinTo(mark)
	for _, clause := range stmt.Cases {
		pattern, err := i.evaluateExpression(clause.Pattern, env)
		if err != nil {
			return nil, err
		}
		if valuesEqual(subject, pattern) {
			return i.evaluateBlock(clause.Body, env)
		}
	}
	if stmt.Default != nil {
		return i.evaluateBlock(stmt.Default, env)
	}
	return runtime.Nil, nil
}

// evaluateTryStatement tries catch clauses in order until one completes
// without raising. The finally block always runs and any signal it produces
// replaces the outcome so far.
func (i *Interpreter) evaluateTryStatement(stmt *ast.TryStatement, env *runtime.Environment) (runtime.Value, error) {
	_, err := i.evaluateBlock(stmt.Body, env)
	if rs, ok := err.(raiseSignal); ok && len(stmt.Catches) > 0 {
		mark := i.pin(rs.exception)
		for _, clause := range stmt.Catches {
			scope := runtime.NewEnvironment(env)
			if clause.Name != "" {
				scope.Define(clause.Name, i.heap.NewString(rs.exception.Message))
			}
			_, err = i.executeBlock(clause.Body, scope)
			if _, raised := err.(raiseSignal); !raised {
				break
			}
		}
		i.unpinTo(mark)
	}
	if stmt.Finally == nil {
		return runtime.Nil, err
	}
	if _, closing := err.(closeSignal); closing {
		return nil, err
	}
	mark := i.pin(signalValue(err))
	defer i.unpinTo(mark)
	if _, ferr := i.evaluateBlock(stmt.Finally, env); ferr != nil {
		return nil, ferr
	}
	return runtime.Nil, err
}

func (i *Interpreter) evaluateRaiseStatement(stmt *ast.RaiseStatement, env *runtime.Environment) (runtime.Value, error) {
	val, err := i.evaluateExpression(stmt.Value, env)
	if err != nil {
		return nil, err
	}
	if exc, ok := val.(*runtime.ExceptionValue); ok {
		return nil, raiseSignal{exception: exc}
	}
	mark := i.pin(val)
	defer i.unpinTo(mark)
	return nil, raiseSignal{exception: i.heap.NewException(valueToString(val))}
}

func (i *Interpreter) evaluateYieldStatement(stmt *ast.YieldStatement, env *runtime.Environment) (runtime.Value, error) {
	if i.ctx.yield == nil {
		return nil, i.raise("Cannot yield outside of a generator.")
	}
	var val runtime.Value = runtime.Nil
	if stmt.Value != nil {
		var err error
		if val, err = i.evaluateExpression(stmt.Value, env); err != nil {
			return nil, err
		}
	}
	if !i.ctx.yield(val) {
		return nil, closeSignal{}
	}
	return runtime.Nil, nil
}
