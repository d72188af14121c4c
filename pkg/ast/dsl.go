package ast

// Identifier and literal helpers.

func ID(name string) *Identifier {
	return NewIdentifier(name)
}

func Num(value float64) *NumberLiteral {
	return NewNumberLiteral(value)
}

func Str(value string) *StringLiteral {
	return NewStringLiteral(value)
}

func Bool(value bool) *BooleanLiteral {
	return NewBooleanLiteral(value)
}

func Nil() *NilLiteral {
	return NewNilLiteral()
}

func Arr(elements ...Expression) *ArrayLiteral {
	return NewArrayLiteral(elements)
}

func Tup(elements ...Expression) *TupleLiteral {
	return NewTupleLiteral(elements)
}

func Dict(keys []string, values ...Expression) *DictLiteral {
	return NewDictLiteral(keys, values)
}

// Expression helpers.

func Neg(operand Expression) *UnaryExpression {
	return NewUnaryExpression("-", operand)
}

func Bin(op string, left, right Expression) *BinaryExpression {
	return NewBinaryExpression(op, left, right)
}

func Call(name string, args ...Expression) *CallExpression {
	return NewCallExpression(ID(name), args)
}

func CallExpr(callee Expression, args ...Expression) *CallExpression {
	return NewCallExpression(callee, args)
}

func Idx(target, index Expression) *IndexExpression {
	return NewIndexExpression(target, index)
}

func Slice(target, start, end Expression) *SliceExpression {
	return NewSliceExpression(target, start, end)
}

func Member(object Expression, member string) *MemberAccess {
	return NewMemberAccess(object, member)
}

func Assign(name string, value Expression) *SetExpression {
	return NewSetExpression(nil, name, value)
}

func SetProp(object Expression, name string, value Expression) *SetExpression {
	return NewSetExpression(object, name, value)
}

func SetIdx(target, index, value Expression) *IndexAssignment {
	return NewIndexAssignment(target, index, value)
}

// Statement helpers.

func Print(values ...Expression) *PrintStatement {
	return NewPrintStatement(values)
}

func Expr(expr Expression) *ExpressionStatement {
	return NewExpressionStatement(expr)
}

func Let(name string, initializer Expression) *LetStatement {
	return NewLetStatement(name, initializer)
}

func Blk(statements ...Statement) *Block {
	return NewBlock(statements)
}

func If(condition Expression, then *Block, otherwise Statement) *IfStatement {
	return NewIfStatement(condition, then, otherwise)
}

func While(condition Expression, body *Block) *WhileStatement {
	return NewWhileStatement(condition, body)
}

func For(variable string, iterable Expression, body *Block) *ForStatement {
	return NewForStatement(variable, iterable, body)
}

func Proc(name string, params []string, body ...Statement) *ProcDeclaration {
	return NewProcDeclaration(name, params, NewBlock(body))
}

func Ret(value Expression) *ReturnStatement {
	return NewReturnStatement(value)
}

func Brk() *BreakStatement {
	return NewBreakStatement()
}

func Cont() *ContinueStatement {
	return NewContinueStatement()
}

func Class(name, parent string, methods ...*ProcDeclaration) *ClassDeclaration {
	return NewClassDeclaration(name, parent, methods)
}

func Case(pattern Expression, body ...Statement) *MatchCase {
	return NewMatchCase(pattern, NewBlock(body))
}

func Match(subject Expression, def *Block, cases ...*MatchCase) *MatchStatement {
	return NewMatchStatement(subject, cases, def)
}

func Defer(stmt Statement) *DeferStatement {
	return NewDeferStatement(stmt)
}

func Catch(name string, body ...Statement) *CatchClause {
	return NewCatchClause(name, NewBlock(body))
}

func Try(body *Block, finally *Block, catches ...*CatchClause) *TryStatement {
	return NewTryStatement(body, catches, finally)
}

func Raise(value Expression) *RaiseStatement {
	return NewRaiseStatement(value)
}

func Yield(value Expression) *YieldStatement {
	return NewYieldStatement(value)
}

func Import(module, alias string) *ImportStatement {
	return NewImportStatement(module, alias, nil, false)
}

func FromImport(module string, items ...*ImportItem) *ImportStatement {
	return NewImportStatement(module, "", items, false)
}

func FromImportAll(module string) *ImportStatement {
	return NewImportStatement(module, "", nil, true)
}

func Item(name, alias string) *ImportItem {
	return NewImportItem(name, alias)
}
