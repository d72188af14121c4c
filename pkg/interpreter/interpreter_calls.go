package interpreter

import (
	"sage/interpreter-go/pkg/ast"
	"sage/interpreter-go/pkg/runtime"
)

func (i *Interpreter) evaluateCallExpression(call *ast.CallExpression, env *runtime.Environment) (runtime.Value, error) {
	mark := len(i.ctx.pins)
	defer i.unpinTo(mark)

	var callee runtime.Value
	if id, ok := call.Callee.(*ast.Identifier); ok {
		val, found := i.resolveCallee(id.Name, env)
		if !found {
			if i.strict {
				return nil, i.raise("Undefined procedure '%s'.", id.Name)
			}
			i.diagnose("[Line %d] Undefined procedure '%s'.", call.Line, id.Name)
			return runtime.Nil, nil
		}
		callee = val
	} else {
		val, err := i.evaluateExpression(call.Callee, env)
		if err != nil {
			return nil, err
		}
		callee = val
	}
	i.pin(callee)

	args := make([]runtime.Value, 0, len(call.Arguments))
	for _, argExpr := range call.Arguments {
		val, err := i.evaluateExpression(argExpr, env)
		if err != nil {
			return nil, err
		}
		i.pin(val)
		args = append(args, val)
	}
	return i.callValue(callee, args, env)
}

// resolveCallee looks a called name up in the scope chain first so locals
// and higher-order values shadow registered procedures.
func (i *Interpreter) resolveCallee(name string, env *runtime.Environment) (runtime.Value, bool) {
	if val, ok := env.Lookup(name); ok {
		return val, true
	}
	val, ok := i.functions[name]
	return val, ok
}

// CallFunction invokes a callable value with already evaluated arguments.
func (i *Interpreter) CallFunction(callee runtime.Value, args []runtime.Value) (runtime.Value, error) {
	mark := len(i.ctx.pins)
	defer i.unpinTo(mark)
	i.pin(callee)
	i.ctx.pins = append(i.ctx.pins, args...)
	return i.callValue(callee, args, i.global)
}

func (i *Interpreter) callValue(callee runtime.Value, args []runtime.Value, env *runtime.Environment) (runtime.Value, error) {
	switch fn := callee.(type) {
	case *runtime.FunctionValue:
		return i.invokeFunction(fn, nil, args)
	case runtime.BoundMethodValue:
		return i.invokeFunction(fn.Method, fn.Receiver, args)
	case runtime.NativeFunctionValue:
		if fn.Arity >= 0 && len(args) != fn.Arity {
			return runtime.Nil, nil
		}
		return fn.Impl(&runtime.NativeCallContext{Env: env, Heap: i.heap}, args)
	case *runtime.ClassValue:
		return i.construct(fn, args)
	case *runtime.GeneratorValue:
		return i.instantiateGenerator(fn.Declaration, fn.Closure, nil, args)
	default:
		return nil, i.raise("Can only call functions and classes.")
	}
}

// invokeFunction runs a procedure body in a fresh child of its closure. For
// methods the receiver is bound to the leading self parameter.
func (i *Interpreter) invokeFunction(fn *runtime.FunctionValue, receiver runtime.Value, args []runtime.Value) (runtime.Value, error) {
	decl := fn.Declaration
	params := decl.Params
	if decl.IsMethod() {
		params = params[1:]
		// Methods read off a class take the receiver as the first argument.
		if receiver == nil && len(args) == len(decl.Params) {
			receiver, args = args[0], args[1:]
		}
	}
	if len(args) != len(params) {
		return nil, i.raise("Expected %d arguments but got %d.", len(params), len(args))
	}
	if i.isGeneratorBody(decl) {
		return i.instantiateGenerator(decl, fn.Closure, receiver, args)
	}

	callEnv := runtime.NewEnvironment(fn.Closure)
	if decl.IsMethod() {
		if receiver == nil {
			receiver = runtime.Nil
		}
		callEnv.Define("self", receiver)
	}
	for idx, param := range params {
		callEnv.Define(param, args[idx])
	}

	_, err := i.executeBlock(decl.Body, callEnv)
	switch sig := err.(type) {
	case nil:
		return runtime.Nil, nil
	case returnSignal:
		return sig.value, nil
	case breakSignal, continueSignal:
		return runtime.Nil, nil
	default:
		return nil, err
	}
}

// construct allocates an instance and runs the nearest init method.
func (i *Interpreter) construct(class *runtime.ClassValue, args []runtime.Value) (runtime.Value, error) {
	inst := i.heap.NewInstance(class)
	mark := i.pin(inst)
	defer i.unpinTo(mark)
	initFn, ok := class.FindMethod("init")
	if !ok {
		if len(args) != 0 {
			return nil, i.raise("Expected 0 arguments but got %d.", len(args))
		}
		return inst, nil
	}
	if _, err := i.invokeFunction(initFn, inst, args); err != nil {
		return nil, err
	}
	return inst, nil
}

// getMember implements property reads on instances, modules and classes.
func (i *Interpreter) getMember(object runtime.Value, name string) (runtime.Value, error) {
	switch obj := object.(type) {
	case *runtime.InstanceValue:
		if val, ok := obj.Fields.Get(name); ok {
			return val, nil
		}
		if method, ok := obj.Class.FindMethod(name); ok {
			return runtime.BoundMethodValue{Receiver: obj, Method: method}, nil
		}
		return nil, i.raise("Undefined property '%s'.", name)
	case *runtime.ModuleValue:
		if val, ok := obj.Env.LookupOwn(name); ok {
			return val, nil
		}
		return nil, i.raise("Module '%s' has no attribute '%s'.", obj.Name, name)
	case *runtime.ClassValue:
		if method, ok := obj.FindMethod(name); ok {
			return method, nil
		}
		return nil, i.raise("Undefined property '%s'.", name)
	default:
		return nil, i.raise("Only instances have properties.")
	}
}
