package lexer

// Lexer produces tokens lazily from a source buffer. Layout tokens
// (NEWLINE, INDENT, DEDENT) are synthesized from leading-space width.
type Lexer struct {
	src     string
	start   int
	current int
	line    int

	indents        []int
	pendingDedents int
	atLineStart    bool
	// Newlines inside (), [] and {} do not end a logical line.
	groupDepth int
}

// New returns a lexer positioned at the start of src.
func New(src string) *Lexer {
	return &Lexer{
		src:         src,
		line:        1,
		indents:     []int{0},
		atLineStart: true,
	}
}

// NextToken returns the next token. Once EOF has been returned, further
// calls keep returning EOF.
func (l *Lexer) NextToken() Token {
	if l.pendingDedents > 0 {
		l.pendingDedents--
		return l.layout(TokenDedent)
	}
	if l.atLineStart && l.groupDepth == 0 {
		l.atLineStart = false
		if tok, ok := l.scanIndentation(); ok {
			return tok
		}
	}

	l.skipWhitespace()
	l.start = l.current
	if l.isAtEnd() {
		if len(l.indents) > 1 {
			l.indents = l.indents[:len(l.indents)-1]
			return l.layout(TokenDedent)
		}
		return l.layout(TokenEOF)
	}

	c := l.advance()
	switch {
	case isAlpha(c):
		return l.identifier()
	case isDigit(c):
		return l.number()
	}

	switch c {
	case '\n':
		tok := l.layout(TokenNewline)
		l.line++
		if l.groupDepth > 0 {
			return l.NextToken()
		}
		l.atLineStart = true
		return tok
	case '(':
		l.groupDepth++
		return l.make(TokenLeftParen)
	case ')':
		l.closeGroup()
		return l.make(TokenRightParen)
	case '[':
		l.groupDepth++
		return l.make(TokenLeftBracket)
	case ']':
		l.closeGroup()
		return l.make(TokenRightBracket)
	case '{':
		l.groupDepth++
		return l.make(TokenLeftBrace)
	case '}':
		l.closeGroup()
		return l.make(TokenRightBrace)
	case ',':
		return l.make(TokenComma)
	case ':':
		return l.make(TokenColon)
	case '.':
		return l.make(TokenDot)
	case '+':
		return l.make(TokenPlus)
	case '-':
		return l.make(TokenMinus)
	case '*':
		return l.make(TokenStar)
	case '/':
		return l.make(TokenSlash)
	case '%':
		return l.make(TokenPercent)
	case '=':
		if l.match('=') {
			return l.make(TokenEqual)
		}
		return l.make(TokenAssign)
	case '!':
		if l.match('=') {
			return l.make(TokenNotEqual)
		}
		return l.errorToken("Unexpected character '!'.")
	case '<':
		if l.match('=') {
			return l.make(TokenLessEqual)
		}
		return l.make(TokenLess)
	case '>':
		if l.match('=') {
			return l.make(TokenGreaterEqual)
		}
		return l.make(TokenGreater)
	case '"':
		return l.string()
	}
	return l.errorToken("Unexpected character.")
}

// scanIndentation measures the leading spaces of a logical line. Blank and
// comment-only lines are consumed whole and never affect the indent stack.
func (l *Lexer) scanIndentation() (Token, bool) {
	for {
		width := 0
		for !l.isAtEnd() && l.peek() == ' ' {
			width++
			l.current++
		}
		if l.isAtEnd() {
			return Token{}, false
		}
		switch l.peek() {
		case '\r':
			l.current++
			continue
		case '\n':
			l.current++
			l.line++
			continue
		case '#':
			l.skipComment()
			continue
		case '\t':
			l.start = l.current
			return l.errorToken("Tabs are not allowed in indentation."), true
		}

		top := l.indents[len(l.indents)-1]
		l.start = l.current
		switch {
		case width > top:
			l.indents = append(l.indents, width)
			return l.layout(TokenIndent), true
		case width < top:
			dedents := 0
			for len(l.indents) > 1 && l.indents[len(l.indents)-1] > width {
				l.indents = l.indents[:len(l.indents)-1]
				dedents++
			}
			if l.indents[len(l.indents)-1] != width {
				return l.errorToken("Indentation error."), true
			}
			l.pendingDedents = dedents - 1
			return l.layout(TokenDedent), true
		}
		return Token{}, false
	}
}

func (l *Lexer) skipWhitespace() {
	for !l.isAtEnd() {
		switch l.peek() {
		case ' ', '\t', '\r':
			l.current++
		case '#':
			l.skipComment()
		case '\n':
			if l.groupDepth == 0 {
				return
			}
			l.current++
			l.line++
		default:
			return
		}
	}
}

func (l *Lexer) skipComment() {
	for !l.isAtEnd() && l.peek() != '\n' {
		l.current++
	}
}

func (l *Lexer) closeGroup() {
	if l.groupDepth > 0 {
		l.groupDepth--
	}
}

func (l *Lexer) identifier() Token {
	for !l.isAtEnd() && (isAlpha(l.peek()) || isDigit(l.peek())) {
		l.current++
	}
	return l.make(keywordKind(l.src[l.start:l.current]))
}

func (l *Lexer) number() Token {
	for !l.isAtEnd() && isDigit(l.peek()) {
		l.current++
	}
	if !l.isAtEnd() && l.peek() == '.' && isDigit(l.peekNext()) {
		l.current++
		for !l.isAtEnd() && isDigit(l.peek()) {
			l.current++
		}
	}
	return l.make(TokenNumber)
}

// string scans a double-quoted literal. Embedded newlines are kept verbatim.
// The token lexeme excludes the quotes.
func (l *Lexer) string() Token {
	startLine := l.line
	for !l.isAtEnd() && l.peek() != '"' {
		if l.peek() == '\n' {
			l.line++
		}
		l.current++
	}
	if l.isAtEnd() {
		return Token{Kind: TokenError, Lexeme: "Unterminated string.", Line: startLine}
	}
	l.current++
	return Token{Kind: TokenString, Lexeme: l.src[l.start+1 : l.current-1], Line: startLine}
}

func (l *Lexer) make(kind TokenKind) Token {
	return Token{Kind: kind, Lexeme: l.src[l.start:l.current], Line: l.line}
}

func (l *Lexer) layout(kind TokenKind) Token {
	return Token{Kind: kind, Line: l.line}
}

func (l *Lexer) errorToken(msg string) Token {
	return Token{Kind: TokenError, Lexeme: msg, Line: l.line}
}

func (l *Lexer) isAtEnd() bool { return l.current >= len(l.src) }

func (l *Lexer) peek() byte { return l.src[l.current] }

func (l *Lexer) peekNext() byte {
	if l.current+1 >= len(l.src) {
		return 0
	}
	return l.src[l.current+1]
}

func (l *Lexer) advance() byte {
	c := l.src[l.current]
	l.current++
	return c
}

func (l *Lexer) match(expected byte) bool {
	if l.isAtEnd() || l.src[l.current] != expected {
		return false
	}
	l.current++
	return true
}

func isAlpha(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
