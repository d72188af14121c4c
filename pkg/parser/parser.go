package parser

import (
	"errors"
	"fmt"
	"io"

	"sage/interpreter-go/pkg/ast"
	"sage/interpreter-go/pkg/lexer"
)

// ParseError reports the first grammar or lexical error in a source. Parsing
// never recovers past it.
type ParseError struct {
	Line    int
	Message string
	// Incomplete is set when the error was hit at end of input, i.e. more
	// source could still complete the statement.
	Incomplete bool
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("[Line %d] Error: %s", e.Line, e.Message)
}

// Parser is a recursive-descent parser pulling tokens lazily from a lexer.
type Parser struct {
	lx       *lexer.Lexer
	current  lexer.Token
	previous lexer.Token
	err      *ParseError
}

// New primes a parser over src.
func New(src string) *Parser {
	p := &Parser{lx: lexer.New(src)}
	p.advance()
	return p
}

// ParseStatement parses the next top-level statement. It returns io.EOF once
// the source is exhausted and a *ParseError on malformed input; after an
// error every further call returns the same error.
func (p *Parser) ParseStatement() (ast.Statement, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.skipNewlines()
	if p.check(lexer.TokenEOF) {
		return nil, io.EOF
	}
	stmt, err := p.declaration()
	if err != nil {
		return nil, p.fail(err)
	}
	return stmt, nil
}

// ParseProgram parses a whole source. No statements are returned when any
// part of it is malformed.
func ParseProgram(src string) ([]ast.Statement, error) {
	p := New(src)
	var program []ast.Statement
	for {
		stmt, err := p.ParseStatement()
		if errors.Is(err, io.EOF) {
			return program, nil
		}
		if err != nil {
			return nil, err
		}
		program = append(program, stmt)
	}
}

func (p *Parser) fail(err error) error {
	var perr *ParseError
	if !errors.As(err, &perr) {
		perr = &ParseError{Line: p.current.Line, Message: err.Error()}
	}
	p.err = perr
	return perr
}

// Token helpers.

func (p *Parser) advance() lexer.Token {
	p.previous = p.current
	p.current = p.lx.NextToken()
	return p.previous
}

func (p *Parser) check(kind lexer.TokenKind) bool {
	return p.current.Kind == kind
}

func (p *Parser) match(kinds ...lexer.TokenKind) bool {
	for _, kind := range kinds {
		if p.check(kind) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) need(kind lexer.TokenKind, msg string) (lexer.Token, error) {
	if p.check(kind) {
		return p.advance(), nil
	}
	return lexer.Token{}, p.errorAtCurrent(msg)
}

func (p *Parser) skipNewlines() {
	for p.check(lexer.TokenNewline) {
		p.advance()
	}
}

// errorAtCurrent prefers the lexer's own diagnostic when the offending token
// is an error token.
func (p *Parser) errorAtCurrent(msg string) *ParseError {
	tok := p.current
	switch tok.Kind {
	case lexer.TokenError:
		return &ParseError{Line: tok.Line, Message: tok.Lexeme}
	case lexer.TokenEOF:
		return &ParseError{Line: tok.Line, Message: msg, Incomplete: true}
	}
	return &ParseError{Line: tok.Line, Message: msg}
}
