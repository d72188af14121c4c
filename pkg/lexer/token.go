package lexer

import "fmt"

// TokenKind identifies the lexical category of a token.
type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenError

	// Layout
	TokenNewline
	TokenIndent
	TokenDedent

	// Literals & identifiers
	TokenIdentifier
	TokenNumber
	TokenString

	// Punctuation
	TokenLeftParen
	TokenRightParen
	TokenLeftBracket
	TokenRightBracket
	TokenLeftBrace
	TokenRightBrace
	TokenComma
	TokenColon
	TokenDot

	// Operators
	TokenPlus
	TokenMinus
	TokenStar
	TokenSlash
	TokenPercent
	TokenAssign
	TokenEqual
	TokenNotEqual
	TokenLess
	TokenLessEqual
	TokenGreater
	TokenGreaterEqual

	// Keywords
	TokenLet
	TokenVar
	TokenProc
	TokenIf
	TokenElif
	TokenElse
	TokenWhile
	TokenFor
	TokenIn
	TokenReturn
	TokenPrint
	TokenAnd
	TokenOr
	TokenSelf
	TokenTrue
	TokenFalse
	TokenNil
	TokenClass
	TokenInit
	TokenMatch
	TokenCase
	TokenDefault
	TokenDefer
	TokenTry
	TokenCatch
	TokenFinally
	TokenRaise
	TokenYield
	TokenImport
	TokenFrom
	TokenAs
	TokenBreak
	TokenContinue
)

var kindNames = map[TokenKind]string{
	TokenEOF:          "EOF",
	TokenError:        "ERROR",
	TokenNewline:      "NEWLINE",
	TokenIndent:       "INDENT",
	TokenDedent:       "DEDENT",
	TokenIdentifier:   "IDENTIFIER",
	TokenNumber:       "NUMBER",
	TokenString:       "STRING",
	TokenLeftParen:    "(",
	TokenRightParen:   ")",
	TokenLeftBracket:  "[",
	TokenRightBracket: "]",
	TokenLeftBrace:    "{",
	TokenRightBrace:   "}",
	TokenComma:        ",",
	TokenColon:        ":",
	TokenDot:          ".",
	TokenPlus:         "+",
	TokenMinus:        "-",
	TokenStar:         "*",
	TokenSlash:        "/",
	TokenPercent:      "%",
	TokenAssign:       "=",
	TokenEqual:        "==",
	TokenNotEqual:     "!=",
	TokenLess:         "<",
	TokenLessEqual:    "<=",
	TokenGreater:      ">",
	TokenGreaterEqual: ">=",
	TokenLet:          "let",
	TokenVar:          "var",
	TokenProc:         "proc",
	TokenIf:           "if",
	TokenElif:         "elif",
	TokenElse:         "else",
	TokenWhile:        "while",
	TokenFor:          "for",
	TokenIn:           "in",
	TokenReturn:       "return",
	TokenPrint:        "print",
	TokenAnd:          "and",
	TokenOr:           "or",
	TokenSelf:         "self",
	TokenTrue:         "true",
	TokenFalse:        "false",
	TokenNil:          "nil",
	TokenClass:        "class",
	TokenInit:         "init",
	TokenMatch:        "match",
	TokenCase:         "case",
	TokenDefault:      "default",
	TokenDefer:        "defer",
	TokenTry:          "try",
	TokenCatch:        "catch",
	TokenFinally:      "finally",
	TokenRaise:        "raise",
	TokenYield:        "yield",
	TokenImport:       "import",
	TokenFrom:         "from",
	TokenAs:           "as",
	TokenBreak:        "break",
	TokenContinue:     "continue",
}

func (k TokenKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("token_%d", int(k))
}

// Token is a lexeme borrowed from the source buffer. For TokenError the
// lexeme holds the diagnostic message instead.
type Token struct {
	Kind   TokenKind
	Lexeme string
	Line   int
}

func (t Token) String() string {
	switch t.Kind {
	case TokenIdentifier, TokenNumber, TokenString, TokenError:
		return fmt.Sprintf("%s(%s)@%d", t.Kind, t.Lexeme, t.Line)
	default:
		return fmt.Sprintf("%s@%d", t.Kind, t.Line)
	}
}

// keywordKind dispatches on the first byte and only then compares the full
// word, mirroring a hand-written keyword trie.
func keywordKind(text string) TokenKind {
	switch text[0] {
	case 'a':
		switch text {
		case "and":
			return TokenAnd
		case "as":
			return TokenAs
		}
	case 'b':
		if text == "break" {
			return TokenBreak
		}
	case 'c':
		switch text {
		case "case":
			return TokenCase
		case "catch":
			return TokenCatch
		case "class":
			return TokenClass
		case "continue":
			return TokenContinue
		}
	case 'd':
		switch text {
		case "default":
			return TokenDefault
		case "defer":
			return TokenDefer
		}
	case 'e':
		switch text {
		case "elif":
			return TokenElif
		case "else":
			return TokenElse
		}
	case 'f':
		switch text {
		case "false":
			return TokenFalse
		case "finally":
			return TokenFinally
		case "for":
			return TokenFor
		case "from":
			return TokenFrom
		}
	case 'i':
		switch text {
		case "if":
			return TokenIf
		case "import":
			return TokenImport
		case "in":
			return TokenIn
		case "init":
			return TokenInit
		}
	case 'l':
		if text == "let" {
			return TokenLet
		}
	case 'm':
		if text == "match" {
			return TokenMatch
		}
	case 'n':
		if text == "nil" {
			return TokenNil
		}
	case 'o':
		if text == "or" {
			return TokenOr
		}
	case 'p':
		switch text {
		case "print":
			return TokenPrint
		case "proc":
			return TokenProc
		}
	case 'r':
		switch text {
		case "raise":
			return TokenRaise
		case "return":
			return TokenReturn
		}
	case 's':
		if text == "self" {
			return TokenSelf
		}
	case 't':
		switch text {
		case "true":
			return TokenTrue
		case "try":
			return TokenTry
		}
	case 'v':
		if text == "var" {
			return TokenVar
		}
	case 'w':
		if text == "while" {
			return TokenWhile
		}
	case 'y':
		if text == "yield" {
			return TokenYield
		}
	}
	return TokenIdentifier
}
