package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

const cliToolVersion = "sage 0.1.0"

// Exit codes follow sysexits.h.
const (
	exitOK       = 0
	exitFailure  = 1
	exitUsage    = 64
	exitSoftware = 70
	exitIO       = 74
)

type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger
	// newLineReader is swapped out by tests; nil means a liner terminal.
	newLineReader func() lineReader
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	return newCLI(os.Stdin, os.Stdout, os.Stderr).run(args)
}

func newCLI(stdin io.Reader, stdout, stderr io.Writer) *cli {
	level := slog.LevelWarn
	if strings.TrimSpace(os.Getenv("SAGE_DEBUG")) != "" {
		level = slog.LevelDebug
	}
	return &cli{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		logger: slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})),
	}
}

func (c *cli) run(args []string) int {
	if len(args) == 0 {
		c.printUsage()
		return exitUsage
	}
	switch args[0] {
	case "--help", "-h", "help":
		c.printUsage()
		return exitOK
	case "--version", "-V", "version":
		fmt.Fprintln(c.stdout, cliToolVersion)
		return exitOK
	case "run":
		if len(args) != 2 {
			c.printUsage()
			return exitUsage
		}
		return c.runFile(args[1])
	case "repl":
		return c.runRepl()
	case "deps":
		return c.runDeps(args[1:])
	}
	if len(args) != 1 || strings.HasPrefix(args[0], "-") {
		c.printUsage()
		return exitUsage
	}
	return c.runFile(args[0])
}

func (c *cli) printUsage() {
	fmt.Fprint(c.stderr, `Usage: sage [path]
       sage run <path>
       sage repl
       sage deps install [dir]
       sage --version
`)
}
