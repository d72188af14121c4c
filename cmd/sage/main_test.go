package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"sage/interpreter-go/pkg/driver"
)

type cliResult struct {
	code   int
	stdout string
	stderr string
}

func runCLI(t *testing.T, stdin string, args ...string) cliResult {
	t.Helper()
	var stdout, stderr bytes.Buffer
	c := newCLI(strings.NewReader(stdin), &stdout, &stderr)
	code := c.run(args)
	return cliResult{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, contents := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
}

func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SAGE_PATH", "")
	t.Setenv("SAGE_HOME", t.TempDir())
	t.Setenv("SAGE_DEBUG", "")
}

func TestRunFile(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"main.sage": `proc fib(n):
    if n < 2:
        return n
    return fib(n - 1) + fib(n - 2)
print fib(10)
print input("name? ")
`})
	for _, args := range [][]string{{filepath.Join(dir, "main.sage")}, {"run", filepath.Join(dir, "main.sage")}} {
		res := runCLI(t, "ada\n", args...)
		if res.code != exitOK {
			t.Fatalf("%v: exit %d, stderr %q", args, res.code, res.stderr)
		}
		if res.stdout != "55\nname? ada\n" {
			t.Fatalf("%v: unexpected output %q", args, res.stdout)
		}
	}
}

func TestRunFileParseErrorKeepsEarlierOutput(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"bad.sage": "print 1\nlet = 2\nprint 3\n"})
	res := runCLI(t, "", filepath.Join(dir, "bad.sage"))
	if res.code != exitFailure {
		t.Fatalf("expected exit %d, got %d", exitFailure, res.code)
	}
	if res.stdout != "1\n" {
		t.Fatalf("unexpected output %q", res.stdout)
	}
	if !strings.HasPrefix(res.stderr, "[Line 2] Error:") {
		t.Fatalf("unexpected diagnostic %q", res.stderr)
	}
}

func TestRunFileUncaughtException(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"boom.sage": `defer print "cleanup"
print "before"
raise "boom"
print "after"
`})
	res := runCLI(t, "", filepath.Join(dir, "boom.sage"))
	if res.code != exitSoftware {
		t.Fatalf("expected exit %d, got %d", exitSoftware, res.code)
	}
	if res.stdout != "before\ncleanup\n" {
		t.Fatalf("unexpected output %q", res.stdout)
	}
	if !strings.Contains(res.stderr, "Uncaught exception: boom") {
		t.Fatalf("unexpected stderr %q", res.stderr)
	}
}

func TestUsageAndIOErrors(t *testing.T) {
	isolateEnv(t)
	if res := runCLI(t, ""); res.code != exitUsage || !strings.Contains(res.stderr, "Usage: sage") {
		t.Fatalf("no args: %+v", res)
	}
	if res := runCLI(t, "", "a.sage", "b.sage"); res.code != exitUsage {
		t.Fatalf("two paths: %+v", res)
	}
	missing := filepath.Join(t.TempDir(), "missing.sage")
	res := runCLI(t, "", missing)
	if res.code != exitIO || res.stderr != "Could not open file \""+missing+"\".\n" {
		t.Fatalf("missing file: %+v", res)
	}
	if res := runCLI(t, "", "--version"); res.code != exitOK || res.stdout != cliToolVersion+"\n" {
		t.Fatalf("version: %+v", res)
	}
	if res := runCLI(t, "", "deps", "update"); res.code != exitUsage {
		t.Fatalf("deps update: %+v", res)
	}
}

func TestRunFileUsesProjectLayout(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"sage.yml": `name: demo
search_paths:
  - vendor
gc:
  initial_threshold: 1024
dependencies:
  util:
    path: ./deps/util
`,
		"lib/greet.sage":          "proc greet(who):\n    return \"hi \" + who\n",
		"vendor/extra.sage":       "let answer = 42\n",
		"deps/util/__init__.sage": "proc twice(x):\n    return x * 2\n",
	})
	writeTree(t, dir, map[string]string{"main.sage": `import greet
from extra import answer
import util
print greet.greet("sage"), answer, util.twice(21)
`})
	res := runCLI(t, "", filepath.Join(dir, "main.sage"))
	if res.code != exitOK {
		t.Fatalf("exit %d, stderr %q", res.code, res.stderr)
	}
	if res.stdout != "hi sage 42 42\n" {
		t.Fatalf("unexpected output %q", res.stdout)
	}
}

func TestDepsInstallWritesLockfile(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"sage.yml":                "name: demo\ndependencies:\n  util:\n    path: ./deps/util\n",
		"deps/util/__init__.sage": "let x = 1\n",
	})
	res := runCLI(t, "", "deps", "install", dir)
	if res.code != exitOK {
		t.Fatalf("exit %d, stderr %q", res.code, res.stderr)
	}
	if !strings.Contains(res.stdout, "Installed 1 dependencies") {
		t.Fatalf("unexpected output %q", res.stdout)
	}
	lock, err := driver.LoadLockfile(filepath.Join(dir, driver.LockfileName))
	if err != nil {
		t.Fatalf("LoadLockfile: %v", err)
	}
	pkg, ok := lock.Find("util")
	if !ok || pkg.Source != "path:"+filepath.Join(dir, "deps", "util") || lock.Tool != cliToolVersion {
		t.Fatalf("unexpected lockfile %+v", lock)
	}

	empty := t.TempDir()
	if res := runCLI(t, "", "deps", "install", empty); res.code != exitFailure || !strings.Contains(res.stderr, "sage.yml not found") {
		t.Fatalf("missing manifest: %+v", res)
	}
}

type scriptedReader struct {
	lines   []string
	prompts []string
	history []string
}

func (s *scriptedReader) Prompt(prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func (s *scriptedReader) AppendHistory(item string) { s.history = append(s.history, item) }

func (s *scriptedReader) Close() error { return nil }

func TestReplKeepsStateAcrossEntries(t *testing.T) {
	isolateEnv(t)
	t.Chdir(t.TempDir())
	reader := &scriptedReader{lines: []string{
		"let x = 2",
		"proc double(n):",
		"    return n * 2",
		"",
		"print double(x)",
		`raise "oops"`,
		"if x > 1:",
		`    print "still here"`,
		"",
	}}
	var stdout, stderr bytes.Buffer
	c := newCLI(strings.NewReader(""), &stdout, &stderr)
	c.newLineReader = func() lineReader { return reader }

	if code := c.run([]string{"repl"}); code != exitOK {
		t.Fatalf("exit %d, stderr %q", code, stderr.String())
	}
	want := cliToolVersion + " REPL. Ctrl+D exits.\n4\nstill here\n\n"
	if diff := cmp.Diff(want, stdout.String()); diff != "" {
		t.Fatalf("stdout mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(stderr.String(), "Uncaught exception: oops") {
		t.Fatalf("unexpected stderr %q", stderr.String())
	}
	wantHistory := []string{
		"let x = 2",
		"proc double(n):\n    return n * 2",
		"print double(x)",
		`raise "oops"`,
		"if x > 1:\n    print \"still here\"",
	}
	if diff := cmp.Diff(wantHistory, reader.history); diff != "" {
		t.Fatalf("history mismatch (-want +got):\n%s", diff)
	}
	if reader.prompts[2] != promptCont {
		t.Fatalf("expected continuation prompt inside a block, got %q", reader.prompts[2])
	}
}
