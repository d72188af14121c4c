package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"sage/interpreter-go/pkg/interpreter"
	"sage/interpreter-go/pkg/parser"
)

const (
	historyFile = ".sage_history"
	promptMain  = "sage> "
	promptCont  = "....> "
)

// lineReader is the subset of *liner.State the REPL needs.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
	Close() error
}

func (c *cli) runRepl() int {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return exitIO
	}
	s, err := c.openSession(cwd)
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return exitFailure
	}
	interp := c.newInterpreter(s)

	var ln lineReader
	if c.newLineReader != nil {
		ln = c.newLineReader()
	} else {
		ln = openLiner()
	}
	defer ln.Close()

	fmt.Fprintf(c.stdout, "%s REPL. Ctrl+D exits.\n", cliToolVersion)
	for {
		src, ok := readChunk(ln)
		if !ok {
			break
		}
		if strings.TrimSpace(src) == "" {
			continue
		}
		ln.AppendHistory(src)
		c.evalChunk(interp, src)
	}
	if err := interp.FlushDefers(); err != nil {
		fmt.Fprintln(c.stderr, err)
	}
	fmt.Fprintln(c.stdout)
	return exitOK
}

// evalChunk runs every statement of one REPL entry. Errors are reported and
// the session continues.
func (c *cli) evalChunk(interp *interpreter.Interpreter, src string) {
	program, err := parser.ParseProgram(src + "\n")
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return
	}
	for _, stmt := range program {
		if _, err := interp.Execute(stmt); err != nil {
			fmt.Fprintln(c.stderr, err)
			return
		}
	}
}

// readChunk collects one complete entry. A line ending in ':' opens a block
// that is closed by an empty line; otherwise input continues while the
// parser reports it ran out of tokens.
func readChunk(ln lineReader) (string, bool) {
	var b strings.Builder
	inBlock := false
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			if b.Len() > 0 {
				return b.String(), true
			}
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", true
		}
		if err != nil {
			return "", false
		}

		if inBlock && strings.TrimSpace(line) == "" {
			return b.String(), true
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		if strings.HasSuffix(strings.TrimSpace(line), ":") {
			inBlock = true
		}
		if inBlock {
			continue
		}

		_, perr := parser.ParseProgram(b.String() + "\n")
		var parseErr *parser.ParseError
		if errors.As(perr, &parseErr) && parseErr.Incomplete {
			continue
		}
		return b.String(), true
	}
}

func openLiner() lineReader {
	ln := liner.NewLiner()
	ln.SetCtrlCAborts(true)
	if path := historyPath(); path != "" {
		if f, err := os.Open(path); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
	}
	return &historyLiner{State: ln}
}

// historyLiner persists history when the session ends.
type historyLiner struct {
	*liner.State
}

func (h *historyLiner) Close() error {
	if path := historyPath(); path != "" {
		if f, err := os.Create(path); err == nil {
			_, _ = h.WriteHistory(f)
			_ = f.Close()
		}
	}
	return h.State.Close()
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, historyFile)
}
