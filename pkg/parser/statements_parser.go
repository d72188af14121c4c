package parser

import (
	"sage/interpreter-go/pkg/ast"
	"sage/interpreter-go/pkg/lexer"
)

func (p *Parser) declaration() (ast.Statement, error) {
	switch {
	case p.match(lexer.TokenProc):
		return p.procDeclaration()
	case p.match(lexer.TokenClass):
		return p.classDeclaration()
	case p.match(lexer.TokenLet, lexer.TokenVar):
		return p.letDeclaration()
	}
	return p.statement()
}

func (p *Parser) statement() (ast.Statement, error) {
	switch {
	case p.match(lexer.TokenPrint):
		return p.printStatement()
	case p.match(lexer.TokenIf):
		return p.ifStatement()
	case p.match(lexer.TokenWhile):
		return p.whileStatement()
	case p.match(lexer.TokenFor):
		return p.forStatement()
	case p.match(lexer.TokenReturn):
		return p.returnStatement()
	case p.match(lexer.TokenBreak):
		return ast.NewBreakStatement(), p.endStatement()
	case p.match(lexer.TokenContinue):
		return ast.NewContinueStatement(), p.endStatement()
	case p.match(lexer.TokenMatch):
		return p.matchStatement()
	case p.match(lexer.TokenTry):
		return p.tryStatement()
	case p.match(lexer.TokenRaise):
		return p.raiseStatement()
	case p.match(lexer.TokenYield):
		return p.yieldStatement()
	case p.match(lexer.TokenDefer):
		return p.deferStatement()
	case p.match(lexer.TokenImport):
		return p.importStatement()
	case p.match(lexer.TokenFrom):
		return p.fromImportStatement()
	case p.check(lexer.TokenIndent):
		return nil, p.errorAtCurrent("Unexpected indent.")
	}
	return p.expressionStatement()
}

// endStatement accepts NEWLINE, or a DEDENT / EOF that closes the line
// implicitly. Only the NEWLINE is consumed.
func (p *Parser) endStatement() error {
	if p.match(lexer.TokenNewline) || p.check(lexer.TokenDedent) || p.check(lexer.TokenEOF) {
		return nil
	}
	return p.errorAtCurrent("Expect newline after statement.")
}

func (p *Parser) atStatementEnd() bool {
	return p.check(lexer.TokenNewline) || p.check(lexer.TokenDedent) || p.check(lexer.TokenEOF)
}

// block parses `: NEWLINE INDENT declarations DEDENT`.
func (p *Parser) block(after string) (*ast.Block, error) {
	if _, err := p.need(lexer.TokenColon, "Expect ':' after "+after+"."); err != nil {
		return nil, err
	}
	return p.indentedBlock()
}

func (p *Parser) indentedBlock() (*ast.Block, error) {
	if _, err := p.need(lexer.TokenNewline, "Expect newline before block."); err != nil {
		return nil, err
	}
	if _, err := p.need(lexer.TokenIndent, "Expect indented block."); err != nil {
		return nil, err
	}
	var stmts []ast.Statement
	for {
		p.skipNewlines()
		if p.check(lexer.TokenDedent) || p.check(lexer.TokenEOF) {
			break
		}
		stmt, err := p.declaration()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	if _, err := p.need(lexer.TokenDedent, "Expect end of block."); err != nil {
		return nil, err
	}
	return ast.NewBlock(stmts), nil
}

func (p *Parser) identifier(msg string) (string, error) {
	tok, err := p.need(lexer.TokenIdentifier, msg)
	if err != nil {
		return "", err
	}
	return tok.Lexeme, nil
}

func (p *Parser) procDeclaration() (ast.Statement, error) {
	return p.procBody()
}

func (p *Parser) procBody() (*ast.ProcDeclaration, error) {
	var name string
	switch {
	case p.match(lexer.TokenIdentifier, lexer.TokenInit):
		name = p.previous.Lexeme
	default:
		return nil, p.errorAtCurrent("Expect procedure name.")
	}
	if _, err := p.need(lexer.TokenLeftParen, "Expect '(' after procedure name."); err != nil {
		return nil, err
	}
	var params []string
	if !p.check(lexer.TokenRightParen) {
		for {
			switch {
			case p.match(lexer.TokenIdentifier, lexer.TokenSelf):
				params = append(params, p.previous.Lexeme)
			default:
				return nil, p.errorAtCurrent("Expect parameter name.")
			}
			if !p.match(lexer.TokenComma) {
				break
			}
		}
	}
	if _, err := p.need(lexer.TokenRightParen, "Expect ')' after parameters."); err != nil {
		return nil, err
	}
	body, err := p.block("procedure signature")
	if err != nil {
		return nil, err
	}
	return ast.NewProcDeclaration(name, params, body), nil
}

func (p *Parser) classDeclaration() (ast.Statement, error) {
	name, err := p.identifier("Expect class name.")
	if err != nil {
		return nil, err
	}
	parent := ""
	if p.match(lexer.TokenLeftParen) {
		if parent, err = p.identifier("Expect parent class name."); err != nil {
			return nil, err
		}
		if _, err := p.need(lexer.TokenRightParen, "Expect ')' after parent class name."); err != nil {
			return nil, err
		}
	}
	if _, err := p.need(lexer.TokenColon, "Expect ':' after class name."); err != nil {
		return nil, err
	}
	if _, err := p.need(lexer.TokenNewline, "Expect newline before class body."); err != nil {
		return nil, err
	}
	if _, err := p.need(lexer.TokenIndent, "Expect indented class body."); err != nil {
		return nil, err
	}
	var methods []*ast.ProcDeclaration
	for {
		p.skipNewlines()
		if p.check(lexer.TokenDedent) || p.check(lexer.TokenEOF) {
			break
		}
		if !p.match(lexer.TokenProc) {
			return nil, p.errorAtCurrent("Expect method declaration in class body.")
		}
		method, err := p.procBody()
		if err != nil {
			return nil, err
		}
		methods = append(methods, method)
	}
	if _, err := p.need(lexer.TokenDedent, "Expect end of class body."); err != nil {
		return nil, err
	}
	return ast.NewClassDeclaration(name, parent, methods), nil
}

func (p *Parser) letDeclaration() (ast.Statement, error) {
	name, err := p.identifier("Expect variable name.")
	if err != nil {
		return nil, err
	}
	var initializer ast.Expression
	if p.match(lexer.TokenAssign) {
		if initializer, err = p.expression(); err != nil {
			return nil, err
		}
	}
	return ast.NewLetStatement(name, initializer), p.endStatement()
}

func (p *Parser) printStatement() (ast.Statement, error) {
	var values []ast.Expression
	if !p.atStatementEnd() {
		for {
			value, err := p.expression()
			if err != nil {
				return nil, err
			}
			values = append(values, value)
			if !p.match(lexer.TokenComma) {
				break
			}
		}
	}
	return ast.NewPrintStatement(values), p.endStatement()
}

func (p *Parser) expressionStatement() (ast.Statement, error) {
	expr, err := p.expression()
	if err != nil {
		return nil, err
	}
	return ast.NewExpressionStatement(expr), p.endStatement()
}

func (p *Parser) ifStatement() (ast.Statement, error) {
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	then, err := p.block("if condition")
	if err != nil {
		return nil, err
	}
	var otherwise ast.Statement
	switch {
	case p.match(lexer.TokenElif):
		if otherwise, err = p.ifStatement(); err != nil {
			return nil, err
		}
	case p.match(lexer.TokenElse):
		if p.match(lexer.TokenIf) {
			if otherwise, err = p.ifStatement(); err != nil {
				return nil, err
			}
			break
		}
		elseBlock, err := p.block("else")
		if err != nil {
			return nil, err
		}
		otherwise = elseBlock
	}
	return ast.NewIfStatement(cond, then, otherwise), nil
}

func (p *Parser) whileStatement() (ast.Statement, error) {
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	body, err := p.block("while condition")
	if err != nil {
		return nil, err
	}
	return ast.NewWhileStatement(cond, body), nil
}

func (p *Parser) forStatement() (ast.Statement, error) {
	name, err := p.identifier("Expect loop variable name.")
	if err != nil {
		return nil, err
	}
	if _, err := p.need(lexer.TokenIn, "Expect 'in' after loop variable."); err != nil {
		return nil, err
	}
	iterable, err := p.expression()
	if err != nil {
		return nil, err
	}
	body, err := p.block("for clause")
	if err != nil {
		return nil, err
	}
	return ast.NewForStatement(name, iterable, body), nil
}

func (p *Parser) returnStatement() (ast.Statement, error) {
	var value ast.Expression
	if !p.atStatementEnd() {
		var err error
		if value, err = p.expression(); err != nil {
			return nil, err
		}
	}
	return ast.NewReturnStatement(value), p.endStatement()
}

func (p *Parser) matchStatement() (ast.Statement, error) {
	subject, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.need(lexer.TokenColon, "Expect ':' after match value."); err != nil {
		return nil, err
	}
	if _, err := p.need(lexer.TokenNewline, "Expect newline after match value."); err != nil {
		return nil, err
	}
	if _, err := p.need(lexer.TokenIndent, "Expect indented case list."); err != nil {
		return nil, err
	}
	var (
		cases []*ast.MatchCase
		def   *ast.Block
	)
	for {
		p.skipNewlines()
		if p.check(lexer.TokenDedent) || p.check(lexer.TokenEOF) {
			break
		}
		switch {
		case p.match(lexer.TokenCase):
			if def != nil {
				return nil, &ParseError{Line: p.previous.Line, Message: "'case' after 'default'."}
			}
			pattern, err := p.expression()
			if err != nil {
				return nil, err
			}
			body, err := p.block("case pattern")
			if err != nil {
				return nil, err
			}
			cases = append(cases, ast.NewMatchCase(pattern, body))
		case p.match(lexer.TokenDefault):
			if def != nil {
				return nil, &ParseError{Line: p.previous.Line, Message: "Duplicate 'default' clause."}
			}
			if def, err = p.block("default"); err != nil {
				return nil, err
			}
		default:
			return nil, p.errorAtCurrent("Expect 'case' or 'default' in match.")
		}
	}
	if _, err := p.need(lexer.TokenDedent, "Expect end of match."); err != nil {
		return nil, err
	}
	return ast.NewMatchStatement(subject, cases, def), nil
}

func (p *Parser) tryStatement() (ast.Statement, error) {
	body, err := p.block("try")
	if err != nil {
		return nil, err
	}
	var catches []*ast.CatchClause
	for p.match(lexer.TokenCatch) {
		name := ""
		if p.match(lexer.TokenIdentifier) {
			name = p.previous.Lexeme
		}
		handler, err := p.block("catch")
		if err != nil {
			return nil, err
		}
		catches = append(catches, ast.NewCatchClause(name, handler))
	}
	var finally *ast.Block
	if p.match(lexer.TokenFinally) {
		if finally, err = p.block("finally"); err != nil {
			return nil, err
		}
	}
	if len(catches) == 0 && finally == nil {
		return nil, p.errorAtCurrent("Expect 'catch' or 'finally' after try block.")
	}
	return ast.NewTryStatement(body, catches, finally), nil
}

func (p *Parser) raiseStatement() (ast.Statement, error) {
	value, err := p.expression()
	if err != nil {
		return nil, err
	}
	return ast.NewRaiseStatement(value), p.endStatement()
}

func (p *Parser) yieldStatement() (ast.Statement, error) {
	var value ast.Expression
	if !p.atStatementEnd() {
		var err error
		if value, err = p.expression(); err != nil {
			return nil, err
		}
	}
	return ast.NewYieldStatement(value), p.endStatement()
}

func (p *Parser) deferStatement() (ast.Statement, error) {
	if p.atStatementEnd() {
		return nil, p.errorAtCurrent("Expect statement after 'defer'.")
	}
	stmt, err := p.statement()
	if err != nil {
		return nil, err
	}
	return ast.NewDeferStatement(stmt), nil
}

func (p *Parser) importStatement() (ast.Statement, error) {
	module, err := p.identifier("Expect module name.")
	if err != nil {
		return nil, err
	}
	alias := ""
	if p.match(lexer.TokenAs) {
		if alias, err = p.identifier("Expect alias after 'as'."); err != nil {
			return nil, err
		}
	}
	return ast.NewImportStatement(module, alias, nil, false), p.endStatement()
}

func (p *Parser) fromImportStatement() (ast.Statement, error) {
	module, err := p.identifier("Expect module name.")
	if err != nil {
		return nil, err
	}
	if _, err := p.need(lexer.TokenImport, "Expect 'import' after module name."); err != nil {
		return nil, err
	}
	if p.match(lexer.TokenStar) {
		return ast.NewImportStatement(module, "", nil, true), p.endStatement()
	}
	var items []*ast.ImportItem
	for {
		name, err := p.identifier("Expect imported name.")
		if err != nil {
			return nil, err
		}
		alias := ""
		if p.match(lexer.TokenAs) {
			if alias, err = p.identifier("Expect alias after 'as'."); err != nil {
				return nil, err
			}
		}
		items = append(items, ast.NewImportItem(name, alias))
		if !p.match(lexer.TokenComma) {
			break
		}
	}
	return ast.NewImportStatement(module, "", items, false), p.endStatement()
}
