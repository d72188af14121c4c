package interpreter

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"sage/interpreter-go/pkg/parser"
	"sage/interpreter-go/pkg/runtime"
)

type runResult struct {
	interp *Interpreter
	stdout string
	stderr string
	err    error
}

func runSource(t *testing.T, src string, opts Options) runResult {
	t.Helper()
	program, err := parser.ParseProgram(src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	var stdout, stderr bytes.Buffer
	opts.Stdout = &stdout
	opts.Stderr = &stderr
	if opts.Stdin == nil {
		opts.Stdin = strings.NewReader("")
	}
	interp := New(opts)
	_, err = interp.EvaluateProgram(program)
	return runResult{interp: interp, stdout: stdout.String(), stderr: stderr.String(), err: err}
}

// expectOutput runs src and compares stdout line by line.
func expectOutput(t *testing.T, src string, want ...string) runResult {
	t.Helper()
	res := runSource(t, src, Options{})
	if res.err != nil {
		t.Fatalf("unexpected error: %v (stdout %q)", res.err, res.stdout)
	}
	if diff := cmp.Diff(want, outputLines(res.stdout)); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
	return res
}

func outputLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func expectUncaught(t *testing.T, res runResult, message string) {
	t.Helper()
	var uncaught *UncaughtError
	if !errors.As(res.err, &uncaught) {
		t.Fatalf("expected uncaught exception %q, got %v", message, res.err)
	}
	if uncaught.Exception.Message != message {
		t.Fatalf("expected exception %q, got %q", message, uncaught.Exception.Message)
	}
}

// mapLoader serves module sources from memory with the caching and cycle
// rules of the real loader.
type mapLoader struct {
	sources map[string]string
	cache   map[string]*runtime.ModuleValue
	loading map[string]bool
	loads   int
}

func newMapLoader(sources map[string]string) *mapLoader {
	return &mapLoader{
		sources: sources,
		cache:   make(map[string]*runtime.ModuleValue),
		loading: make(map[string]bool),
	}
}

func (l *mapLoader) LoadModule(interp *Interpreter, name string) (*runtime.ModuleValue, error) {
	if mod, ok := l.cache[name]; ok {
		return mod, nil
	}
	if l.loading[name] {
		return nil, fmt.Errorf("Circular dependency detected for module '%s'", name)
	}
	src, ok := l.sources[name]
	if !ok {
		return nil, fmt.Errorf("Module '%s' not found", name)
	}
	program, err := parser.ParseProgram(src)
	if err != nil {
		return nil, err
	}
	l.loading[name] = true
	defer delete(l.loading, name)
	l.loads++
	mod, err := interp.ExecuteModule(name, name+".sage", program)
	if err != nil {
		return nil, err
	}
	l.cache[name] = mod
	return mod, nil
}
