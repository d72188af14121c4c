package interpreter

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"sage/interpreter-go/pkg/ast"
	"sage/interpreter-go/pkg/runtime"
)

// Options configures an Interpreter. Zero values select the process streams,
// a discarding logger and the default collector thresholds.
type Options struct {
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader
	Logger *slog.Logger
	Loader ModuleLoader
	GC     runtime.HeapConfig
	// StrictNames raises an exception for undefined names instead of
	// reporting them and substituting nil.
	StrictNames bool
}

// Interpreter drives evaluation of Sage AST nodes.
type Interpreter struct {
	global    *runtime.Environment
	heap      *runtime.Heap
	functions map[string]runtime.Value
	modules   []*runtime.ModuleValue
	loader    ModuleLoader

	// Top-level frames of executed modules.
	moduleEnvs map[*runtime.Environment]bool

	stdout io.Writer
	stderr io.Writer
	stdin  *bufio.Reader
	logger *slog.Logger
	strict bool

	ctx *execContext
	// Contexts of callers waiting on a running generator.
	suspended []*execContext

	yieldCache map[*ast.ProcDeclaration]bool
	started    time.Time
}

// execContext is the evaluator state of one line of execution: the main
// program or a single generator body.
type execContext struct {
	scopes []*runtime.Environment
	pins   []runtime.Value
	defers []deferredStatement
	// yield suspends the owning generator; nil outside generator bodies.
	yield func(runtime.Value) bool
}

type deferredStatement struct {
	stmt ast.Statement
	env  *runtime.Environment
}

// New returns an interpreter with the native library installed in its
// global environment.
func New(opts Options) *Interpreter {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	i := &Interpreter{
		global:     runtime.NewEnvironment(nil),
		heap:       runtime.NewHeap(opts.GC, logger),
		functions:  make(map[string]runtime.Value),
		moduleEnvs: make(map[*runtime.Environment]bool),
		loader:     opts.Loader,
		stdout:     opts.Stdout,
		stderr:     opts.Stderr,
		logger:     logger,
		strict:     opts.StrictNames,
		ctx:        &execContext{},
		yieldCache: make(map[*ast.ProcDeclaration]bool),
		started:    time.Now(),
	}
	if i.stdout == nil {
		i.stdout = os.Stdout
	}
	if i.stderr == nil {
		i.stderr = os.Stderr
	}
	stdin := opts.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	i.stdin = bufio.NewReader(stdin)
	i.heap.SetRoots(i.markRoots)
	i.installNatives()
	return i
}

// GlobalEnvironment returns the interpreter's global environment.
func (i *Interpreter) GlobalEnvironment() *runtime.Environment {
	return i.global
}

// Heap exposes the collector backing this interpreter.
func (i *Interpreter) Heap() *runtime.Heap {
	return i.heap
}

// Interpret executes one statement against env. Control signals that escape
// the statement are returned as errors; Execute maps them for top-level use.
func (i *Interpreter) Interpret(stmt ast.Statement, env *runtime.Environment) (runtime.Value, error) {
	i.pushScope(env)
	defer i.popScope()
	return i.evaluateStatement(stmt, env)
}

// Execute runs a top-level statement in the global environment. Stray
// return, break and continue signals end the statement quietly; an uncaught
// raise becomes an *UncaughtError.
func (i *Interpreter) Execute(stmt ast.Statement) (runtime.Value, error) {
	val, err := i.Interpret(stmt, i.global)
	return val, i.topLevelError(err)
}

// EvaluateProgram executes statements in order, stopping at the first
// uncaught exception, then runs any top-level deferred statements.
func (i *Interpreter) EvaluateProgram(program []ast.Statement) (runtime.Value, error) {
	var last runtime.Value = runtime.Nil
	for _, stmt := range program {
		val, err := i.Execute(stmt)
		if err != nil {
			if ferr := i.FlushDefers(); ferr != nil {
				return nil, ferr
			}
			return nil, err
		}
		if val != nil {
			last = val
		}
	}
	return last, i.FlushDefers()
}

// FlushDefers runs statements deferred at the top level, last first.
func (i *Interpreter) FlushDefers() error {
	i.pushScope(i.global)
	defer i.popScope()
	_, err := i.runDefers(0, runtime.Nil, nil)
	return i.topLevelError(err)
}

func (i *Interpreter) topLevelError(err error) error {
	switch sig := err.(type) {
	case nil:
		return nil
	case returnSignal, breakSignal, continueSignal:
		return nil
	case raiseSignal:
		return &UncaughtError{Exception: sig.exception}
	}
	return err
}

// Scope stack and temporary roots. Both belong to the active context so a
// suspended generator keeps its own.

func (i *Interpreter) pushScope(env *runtime.Environment) {
	i.ctx.scopes = append(i.ctx.scopes, env)
}

func (i *Interpreter) popScope() {
	i.ctx.scopes = i.ctx.scopes[:len(i.ctx.scopes)-1]
}

// pin keeps v alive across evaluation that may collect. It returns the
// mark to restore with unpinTo.
func (i *Interpreter) pin(v runtime.Value) int {
	mark := len(i.ctx.pins)
	i.ctx.pins = append(i.ctx.pins, v)
	return mark
}

func (i *Interpreter) unpinTo(mark int) {
	clear(i.ctx.pins[mark:])
	i.ctx.pins = i.ctx.pins[:mark]
}

func (i *Interpreter) markRoots(m *runtime.Marker) {
	m.MarkEnv(i.global)
	for _, fn := range i.functions {
		m.Mark(fn)
	}
	for _, mod := range i.modules {
		m.Mark(mod)
	}
	markContext(m, i.ctx)
	for _, ctx := range i.suspended {
		markContext(m, ctx)
	}
}

func markContext(m *runtime.Marker, ctx *execContext) {
	for _, env := range ctx.scopes {
		m.MarkEnv(env)
	}
	m.MarkAll(ctx.pins)
	for _, d := range ctx.defers {
		m.MarkEnv(d.env)
	}
}

// Diagnostics and errors.

// UncaughtError reports an exception that escaped every handler.
type UncaughtError struct {
	Exception *runtime.ExceptionValue
}

func (e *UncaughtError) Error() string {
	return fmt.Sprintf("Uncaught exception: %s", e.Exception.Message)
}

// diagnose reports a non-fatal runtime problem on the error stream.
func (i *Interpreter) diagnose(format string, args ...any) {
	fmt.Fprintf(i.stderr, "Runtime Error: "+format+"\n", args...)
}

// raise builds a raise signal carrying a fresh exception.
func (i *Interpreter) raise(format string, args ...any) error {
	return raiseSignal{exception: i.heap.NewException(fmt.Sprintf(format, args...))}
}

// Control signals travel as errors until the construct that consumes them.

type breakSignal struct{}

func (breakSignal) Error() string { return "break" }

type continueSignal struct{}

func (continueSignal) Error() string { return "continue" }

type raiseSignal struct {
	exception *runtime.ExceptionValue
}

func (r raiseSignal) Error() string { return r.exception.Message }

type returnSignal struct {
	value runtime.Value
}

func (r returnSignal) Error() string { return "return" }

// closeSignal unwinds an abandoned generator body without running user code.
type closeSignal struct{}

func (closeSignal) Error() string { return "generator closed" }

// signalValue returns the heap value an in-flight signal carries, if any.
func signalValue(err error) runtime.Value {
	switch sig := err.(type) {
	case returnSignal:
		return sig.value
	case raiseSignal:
		return sig.exception
	}
	return nil
}
