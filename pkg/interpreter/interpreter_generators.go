package interpreter

import (
	"iter"

	"sage/interpreter-go/pkg/ast"
	"sage/interpreter-go/pkg/runtime"
)

type generatorStep struct {
	value runtime.Value
	err   error
}

// instantiateGenerator checks arity and builds a fresh generator over decl.
// A method receiver becomes the first bound argument.
func (i *Interpreter) instantiateGenerator(decl *ast.ProcDeclaration, closure *runtime.Environment, receiver runtime.Value, args []runtime.Value) (runtime.Value, error) {
	want := len(decl.Params)
	if decl.IsMethod() {
		want--
	}
	if len(args) != want {
		return nil, i.raise("Expected %d arguments but got %d.", want, len(args))
	}
	bound := make([]runtime.Value, 0, len(decl.Params))
	if decl.IsMethod() {
		if receiver == nil {
			receiver = runtime.Nil
		}
		bound = append(bound, receiver)
	}
	bound = append(bound, args...)
	return i.newGenerator(decl, closure, bound), nil
}

// newGenerator allocates a generator whose body runs as a pull coroutine
// with its own execution context. Each Resume runs the body to its next
// yield; the body environment is created on the first Resume.
func (i *Interpreter) newGenerator(decl *ast.ProcDeclaration, closure *runtime.Environment, args []runtime.Value) *runtime.GeneratorValue {
	gen := i.heap.NewGenerator(decl, closure, args)

	var (
		ctx     *execContext
		next    func() (generatorStep, bool)
		stop    func()
		running bool
	)

	start := func() {
		env := runtime.NewEnvironment(gen.Closure)
		for idx, param := range decl.Params {
			var val runtime.Value = runtime.Nil
			if idx < len(gen.Args) {
				val = gen.Args[idx]
			}
			env.Define(param, val)
		}
		gen.Env = env
		ctx = &execContext{}
		body := func(yield func(generatorStep) bool) {
			ctx.yield = func(v runtime.Value) bool {
				return yield(generatorStep{value: v})
			}
			_, err := i.executeBlock(decl.Body, env)
			switch err.(type) {
			case nil, returnSignal, breakSignal, continueSignal, closeSignal:
				return
			}
			yield(generatorStep{err: err})
		}
		next, stop = iter.Pull(iter.Seq[generatorStep](body))
	}

	// enter runs fn with the generator's context active and the caller's
	// context parked where the collector can still see it.
	enter := func(fn func()) {
		caller := i.ctx
		i.suspended = append(i.suspended, caller)
		i.ctx = ctx
		running = true
		defer func() {
			running = false
			i.ctx = caller
			i.suspended = i.suspended[:len(i.suspended)-1]
		}()
		fn()
	}

	finish := func() {
		gen.Exhausted = true
		if stop != nil {
			enter(stop)
		}
	}

	gen.Resume = func() (runtime.Value, error) {
		if gen.Exhausted {
			return runtime.Nil, nil
		}
		if running {
			return nil, i.raise("Generator '%s' is already running.", decl.Name)
		}
		if !gen.Started {
			gen.Started = true
			start()
		}
		var (
			step generatorStep
			ok   bool
		)
		enter(func() { step, ok = next() })
		if !ok {
			finish()
			return runtime.Nil, nil
		}
		if step.err != nil {
			finish()
			return nil, step.err
		}
		return step.value, nil
	}
	gen.Close = func() {
		if stop != nil && !running {
			enter(stop)
		}
	}
	gen.Trace = func(m *runtime.Marker) {
		if ctx != nil {
			markContext(m, ctx)
		}
	}
	return gen
}
