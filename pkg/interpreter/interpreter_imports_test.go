package interpreter

import (
	"strings"
	"testing"
)

var testModules = map[string]string{
	"mathx": `let pi = 3
proc square(x):
    return x * x
proc cube(x):
    return x * square(x)
`,
	"broken": `print "loading broken"
raise "bad module"
`,
	"ping": `import pong
proc hello():
    return "ping"
`,
	"pong": `import ping
`,
}

func runWithModules(t *testing.T, src string) (runResult, *mapLoader) {
	t.Helper()
	loader := newMapLoader(testModules)
	return runSource(t, src, Options{Loader: loader}), loader
}

func TestImportBindsModuleNamespace(t *testing.T) {
	res, loader := runWithModules(t, `import mathx
import mathx as m
from mathx import square, pi as PI
print mathx.square(3), m.pi, square(4), PI
print mathx
from mathx import *
print cube(2)
`)
	if res.err != nil {
		t.Fatalf("unexpected error: %v", res.err)
	}
	if res.stdout != "9 3 16 3\n<module mathx>\n8\n" {
		t.Fatalf("unexpected output %q", res.stdout)
	}
	if loader.loads != 1 {
		t.Fatalf("expected the module body to run once, ran %d times", loader.loads)
	}
	if len(res.interp.Modules()) != 1 {
		t.Fatalf("expected one registered module")
	}
}

func TestImportErrorsAreCatchable(t *testing.T) {
	res, _ := runWithModules(t, `try:
    from mathx import nope
catch e:
    print e
try:
    import zzz
catch e:
    print e
try:
    import broken
catch e:
    print e
try:
    import mathx
    print mathx.nope
catch e:
    print e
`)
	if res.err != nil {
		t.Fatalf("unexpected error: %v", res.err)
	}
	want := "Module 'mathx' has no attribute 'nope'.\n" +
		"Module 'zzz' not found\n" +
		"loading broken\n" +
		"bad module\n" +
		"Module 'mathx' has no attribute 'nope'.\n"
	if res.stdout != want {
		t.Fatalf("unexpected output %q", res.stdout)
	}
}

func TestCircularImportIsRejected(t *testing.T) {
	res, _ := runWithModules(t, `import ping
`)
	expectUncaught(t, res, "Circular dependency detected for module 'ping'")
}

func TestModuleNamespaceIsolatesGlobals(t *testing.T) {
	res, _ := runWithModules(t, `import mathx
let pi = 10
print pi, mathx.pi
try:
    print mathx.len
catch e:
    print e
`)
	if res.err != nil {
		t.Fatalf("unexpected error: %v", res.err)
	}
	if res.stdout != "10 3\nModule 'mathx' has no attribute 'len'.\n" {
		t.Fatalf("unexpected output %q", res.stdout)
	}
}

func TestImportWithoutLoader(t *testing.T) {
	res := runSource(t, `import mathx
`, Options{})
	expectUncaught(t, res, "Module 'mathx' not found.")
}

func TestModuleProceduresStayInModuleNamespace(t *testing.T) {
	res, _ := runWithModules(t, `import mathx
print mathx.cube(2)
print square(2)
`)
	if res.err != nil {
		t.Fatalf("unexpected error: %v", res.err)
	}
	if res.stdout != "8\nnil\n" {
		t.Fatalf("unexpected output %q", res.stdout)
	}
	if !strings.Contains(res.stderr, "Undefined procedure 'square'.") {
		t.Fatalf("expected an undefined procedure diagnostic, got %q", res.stderr)
	}
}
