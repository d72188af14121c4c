package parser

import (
	"strconv"

	"sage/interpreter-go/pkg/ast"
	"sage/interpreter-go/pkg/lexer"
)

func (p *Parser) expression() (ast.Expression, error) {
	return p.assignment()
}

// assignment is right-associative; only variables, properties and index
// expressions are valid targets.
func (p *Parser) assignment() (ast.Expression, error) {
	expr, err := p.or()
	if err != nil {
		return nil, err
	}
	if !p.match(lexer.TokenAssign) {
		return expr, nil
	}
	line := p.previous.Line
	value, err := p.assignment()
	if err != nil {
		return nil, err
	}
	switch target := expr.(type) {
	case *ast.Identifier:
		return ast.NewSetExpression(nil, target.Name, value), nil
	case *ast.MemberAccess:
		return ast.NewSetExpression(target.Object, target.Member, value), nil
	case *ast.IndexExpression:
		return ast.NewIndexAssignment(target.Target, target.Index, value), nil
	}
	return nil, &ParseError{Line: line, Message: "Invalid assignment target."}
}

func (p *Parser) or() (ast.Expression, error) {
	return p.binary(p.and, lexer.TokenOr)
}

func (p *Parser) and() (ast.Expression, error) {
	return p.binary(p.equality, lexer.TokenAnd)
}

func (p *Parser) equality() (ast.Expression, error) {
	return p.binary(p.comparison, lexer.TokenEqual, lexer.TokenNotEqual)
}

func (p *Parser) comparison() (ast.Expression, error) {
	return p.binary(p.term, lexer.TokenLess, lexer.TokenLessEqual, lexer.TokenGreater, lexer.TokenGreaterEqual)
}

func (p *Parser) term() (ast.Expression, error) {
	return p.binary(p.factor, lexer.TokenPlus, lexer.TokenMinus)
}

func (p *Parser) factor() (ast.Expression, error) {
	return p.binary(p.unary, lexer.TokenStar, lexer.TokenSlash, lexer.TokenPercent)
}

// binary parses a left-associative chain of operand (op operand)*.
func (p *Parser) binary(operand func() (ast.Expression, error), ops ...lexer.TokenKind) (ast.Expression, error) {
	left, err := operand()
	if err != nil {
		return nil, err
	}
	for p.match(ops...) {
		op := p.previous.Kind.String()
		right, err := operand()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinaryExpression(op, left, right)
	}
	return left, nil
}

func (p *Parser) unary() (ast.Expression, error) {
	if p.match(lexer.TokenMinus) {
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		return ast.NewUnaryExpression("-", operand), nil
	}
	return p.postfix()
}

func (p *Parser) postfix() (ast.Expression, error) {
	expr, err := p.primary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.match(lexer.TokenLeftParen):
			line := p.previous.Line
			args, err := p.expressionList(lexer.TokenRightParen, "Expect ')' after arguments.")
			if err != nil {
				return nil, err
			}
			call := ast.NewCallExpression(expr, args)
			call.Line = line
			expr = call
		case p.match(lexer.TokenLeftBracket):
			if expr, err = p.indexOrSlice(expr); err != nil {
				return nil, err
			}
		case p.match(lexer.TokenDot):
			if !p.match(lexer.TokenIdentifier, lexer.TokenInit) {
				return nil, p.errorAtCurrent("Expect property name after '.'.")
			}
			expr = ast.NewMemberAccess(expr, p.previous.Lexeme)
		default:
			return expr, nil
		}
	}
}

// indexOrSlice parses the remainder of `target[` as either target[i] or
// target[start:end] with both bounds optional.
func (p *Parser) indexOrSlice(target ast.Expression) (ast.Expression, error) {
	var start ast.Expression
	if !p.check(lexer.TokenColon) {
		var err error
		if start, err = p.expression(); err != nil {
			return nil, err
		}
		if p.match(lexer.TokenRightBracket) {
			return ast.NewIndexExpression(target, start), nil
		}
	}
	if _, err := p.need(lexer.TokenColon, "Expect ']' after index."); err != nil {
		return nil, err
	}
	var end ast.Expression
	if !p.check(lexer.TokenRightBracket) {
		var err error
		if end, err = p.expression(); err != nil {
			return nil, err
		}
	}
	if _, err := p.need(lexer.TokenRightBracket, "Expect ']' after slice."); err != nil {
		return nil, err
	}
	return ast.NewSliceExpression(target, start, end), nil
}

func (p *Parser) primary() (ast.Expression, error) {
	switch {
	case p.match(lexer.TokenNumber):
		value, err := strconv.ParseFloat(p.previous.Lexeme, 64)
		if err != nil {
			return nil, &ParseError{Line: p.previous.Line, Message: "Invalid number literal."}
		}
		return ast.NewNumberLiteral(value), nil
	case p.match(lexer.TokenString):
		return ast.NewStringLiteral(p.previous.Lexeme), nil
	case p.match(lexer.TokenTrue):
		return ast.NewBooleanLiteral(true), nil
	case p.match(lexer.TokenFalse):
		return ast.NewBooleanLiteral(false), nil
	case p.match(lexer.TokenNil):
		return ast.NewNilLiteral(), nil
	case p.match(lexer.TokenIdentifier, lexer.TokenSelf):
		return ast.NewIdentifier(p.previous.Lexeme), nil
	case p.match(lexer.TokenLeftParen):
		return p.grouping()
	case p.match(lexer.TokenLeftBracket):
		elements, err := p.expressionList(lexer.TokenRightBracket, "Expect ']' after array elements.")
		if err != nil {
			return nil, err
		}
		return ast.NewArrayLiteral(elements), nil
	case p.match(lexer.TokenLeftBrace):
		return p.dictLiteral()
	}
	return nil, p.errorAtCurrent("Expect expression.")
}

// grouping handles `(expr)`, `()` and tuples `(a, b)` / `(a,)`.
func (p *Parser) grouping() (ast.Expression, error) {
	if p.match(lexer.TokenRightParen) {
		return ast.NewTupleLiteral(nil), nil
	}
	first, err := p.expression()
	if err != nil {
		return nil, err
	}
	if p.match(lexer.TokenRightParen) {
		return first, nil
	}
	if _, err := p.need(lexer.TokenComma, "Expect ')' after expression."); err != nil {
		return nil, err
	}
	rest, err := p.expressionList(lexer.TokenRightParen, "Expect ')' after tuple elements.")
	if err != nil {
		return nil, err
	}
	return ast.NewTupleLiteral(append([]ast.Expression{first}, rest...)), nil
}

// expressionList parses comma-separated expressions up to and including the
// closing token. A trailing comma is allowed.
func (p *Parser) expressionList(closing lexer.TokenKind, msg string) ([]ast.Expression, error) {
	var out []ast.Expression
	for !p.check(closing) {
		expr, err := p.expression()
		if err != nil {
			return nil, err
		}
		out = append(out, expr)
		if !p.match(lexer.TokenComma) {
			break
		}
	}
	if _, err := p.need(closing, msg); err != nil {
		return nil, err
	}
	return out, nil
}

// dictLiteral keys are string literals or bare identifiers.
func (p *Parser) dictLiteral() (ast.Expression, error) {
	var (
		keys   []string
		values []ast.Expression
	)
	for !p.check(lexer.TokenRightBrace) {
		if !p.match(lexer.TokenString, lexer.TokenIdentifier) {
			return nil, p.errorAtCurrent("Expect string key in dict literal.")
		}
		key := p.previous.Lexeme
		if _, err := p.need(lexer.TokenColon, "Expect ':' after dict key."); err != nil {
			return nil, err
		}
		value, err := p.expression()
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
		values = append(values, value)
		if !p.match(lexer.TokenComma) {
			break
		}
	}
	if _, err := p.need(lexer.TokenRightBrace, "Expect '}' after dict entries."); err != nil {
		return nil, err
	}
	return ast.NewDictLiteral(keys, values), nil
}
