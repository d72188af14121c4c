package ast

type NodeType string

const (
	NodeIdentifier        NodeType = "Identifier"
	NodeNumberLiteral     NodeType = "NumberLiteral"
	NodeStringLiteral     NodeType = "StringLiteral"
	NodeBooleanLiteral    NodeType = "BooleanLiteral"
	NodeNilLiteral        NodeType = "NilLiteral"
	NodeArrayLiteral      NodeType = "ArrayLiteral"
	NodeTupleLiteral      NodeType = "TupleLiteral"
	NodeDictLiteral       NodeType = "DictLiteral"
	NodeUnaryExpression   NodeType = "UnaryExpression"
	NodeBinaryExpression  NodeType = "BinaryExpression"
	NodeCallExpression    NodeType = "CallExpression"
	NodeIndexExpression   NodeType = "IndexExpression"
	NodeSliceExpression   NodeType = "SliceExpression"
	NodeMemberAccess      NodeType = "MemberAccess"
	NodeSetExpression     NodeType = "SetExpression"
	NodeIndexAssignment   NodeType = "IndexAssignment"
	NodePrintStatement    NodeType = "PrintStatement"
	NodeExpressionStmt    NodeType = "ExpressionStatement"
	NodeLetStatement      NodeType = "LetStatement"
	NodeBlock             NodeType = "Block"
	NodeIfStatement       NodeType = "IfStatement"
	NodeWhileStatement    NodeType = "WhileStatement"
	NodeForStatement      NodeType = "ForStatement"
	NodeProcDeclaration   NodeType = "ProcDeclaration"
	NodeReturnStatement   NodeType = "ReturnStatement"
	NodeBreakStatement    NodeType = "BreakStatement"
	NodeContinueStatement NodeType = "ContinueStatement"
	NodeClassDeclaration  NodeType = "ClassDeclaration"
	NodeMatchCase         NodeType = "MatchCase"
	NodeMatchStatement    NodeType = "MatchStatement"
	NodeDeferStatement    NodeType = "DeferStatement"
	NodeCatchClause       NodeType = "CatchClause"
	NodeTryStatement      NodeType = "TryStatement"
	NodeRaiseStatement    NodeType = "RaiseStatement"
	NodeYieldStatement    NodeType = "YieldStatement"
	NodeImportItem        NodeType = "ImportItem"
	NodeImportStatement   NodeType = "ImportStatement"
)

type Node interface {
	NodeType() NodeType
	isNode()
}

type nodeImpl struct {
	Type NodeType `json:"type"`
}

func newNodeImpl(kind NodeType) nodeImpl {
	return nodeImpl{Type: kind}
}

func (n nodeImpl) NodeType() NodeType { return n.Type }
func (nodeImpl) isNode()              {}

// Marker interfaces.

type Expression interface {
	Node
	expressionNode()
}

type expressionMarker struct{}

func (expressionMarker) expressionNode() {}

type Statement interface {
	Node
	statementNode()
}

type statementMarker struct{}

func (statementMarker) statementNode() {}

// Identifier

type Identifier struct {
	nodeImpl
	expressionMarker

	Name string `json:"name"`
}

func NewIdentifier(name string) *Identifier {
	return &Identifier{nodeImpl: newNodeImpl(NodeIdentifier), Name: name}
}

// Literals

type NumberLiteral struct {
	nodeImpl
	expressionMarker

	Value float64 `json:"value"`
}

func NewNumberLiteral(value float64) *NumberLiteral {
	return &NumberLiteral{nodeImpl: newNodeImpl(NodeNumberLiteral), Value: value}
}

type StringLiteral struct {
	nodeImpl
	expressionMarker

	Value string `json:"value"`
}

func NewStringLiteral(value string) *StringLiteral {
	return &StringLiteral{nodeImpl: newNodeImpl(NodeStringLiteral), Value: value}
}

type BooleanLiteral struct {
	nodeImpl
	expressionMarker

	Value bool `json:"value"`
}

func NewBooleanLiteral(value bool) *BooleanLiteral {
	return &BooleanLiteral{nodeImpl: newNodeImpl(NodeBooleanLiteral), Value: value}
}

type NilLiteral struct {
	nodeImpl
	expressionMarker
}

func NewNilLiteral() *NilLiteral {
	return &NilLiteral{nodeImpl: newNodeImpl(NodeNilLiteral)}
}

type ArrayLiteral struct {
	nodeImpl
	expressionMarker

	Elements []Expression `json:"elements"`
}

func NewArrayLiteral(elements []Expression) *ArrayLiteral {
	return &ArrayLiteral{nodeImpl: newNodeImpl(NodeArrayLiteral), Elements: elements}
}

type TupleLiteral struct {
	nodeImpl
	expressionMarker

	Elements []Expression `json:"elements"`
}

func NewTupleLiteral(elements []Expression) *TupleLiteral {
	return &TupleLiteral{nodeImpl: newNodeImpl(NodeTupleLiteral), Elements: elements}
}

// DictLiteral keeps keys and values as parallel lists in source order.
type DictLiteral struct {
	nodeImpl
	expressionMarker

	Keys   []string     `json:"keys"`
	Values []Expression `json:"values"`
}

func NewDictLiteral(keys []string, values []Expression) *DictLiteral {
	return &DictLiteral{nodeImpl: newNodeImpl(NodeDictLiteral), Keys: keys, Values: values}
}

// Operators

type UnaryExpression struct {
	nodeImpl
	expressionMarker

	Operator string     `json:"operator"`
	Operand  Expression `json:"operand"`
}

func NewUnaryExpression(operator string, operand Expression) *UnaryExpression {
	return &UnaryExpression{nodeImpl: newNodeImpl(NodeUnaryExpression), Operator: operator, Operand: operand}
}

// BinaryExpression also carries the short-circuit operators "and" / "or".
type BinaryExpression struct {
	nodeImpl
	expressionMarker

	Operator string     `json:"operator"`
	Left     Expression `json:"left"`
	Right    Expression `json:"right"`
}

func NewBinaryExpression(operator string, left, right Expression) *BinaryExpression {
	return &BinaryExpression{nodeImpl: newNodeImpl(NodeBinaryExpression), Operator: operator, Left: left, Right: right}
}

// Postfix forms

type CallExpression struct {
	nodeImpl
	expressionMarker

	Callee    Expression   `json:"callee"`
	Arguments []Expression `json:"arguments"`
	Line      int          `json:"line,omitempty"`
}

func NewCallExpression(callee Expression, args []Expression) *CallExpression {
	return &CallExpression{nodeImpl: newNodeImpl(NodeCallExpression), Callee: callee, Arguments: args}
}

type IndexExpression struct {
	nodeImpl
	expressionMarker

	Target Expression `json:"target"`
	Index  Expression `json:"index"`
}

func NewIndexExpression(target, index Expression) *IndexExpression {
	return &IndexExpression{nodeImpl: newNodeImpl(NodeIndexExpression), Target: target, Index: index}
}

// SliceExpression bounds are optional; nil means the start or end of the
// sequence.
type SliceExpression struct {
	nodeImpl
	expressionMarker

	Target Expression `json:"target"`
	Start  Expression `json:"start,omitempty"`
	End    Expression `json:"end,omitempty"`
}

func NewSliceExpression(target, start, end Expression) *SliceExpression {
	return &SliceExpression{nodeImpl: newNodeImpl(NodeSliceExpression), Target: target, Start: start, End: end}
}

type MemberAccess struct {
	nodeImpl
	expressionMarker

	Object Expression `json:"object"`
	Member string     `json:"member"`
}

func NewMemberAccess(object Expression, member string) *MemberAccess {
	return &MemberAccess{nodeImpl: newNodeImpl(NodeMemberAccess), Object: object, Member: member}
}

// SetExpression assigns to a property of Object, or to the variable Name
// when Object is nil.
type SetExpression struct {
	nodeImpl
	expressionMarker

	Object Expression `json:"object,omitempty"`
	Name   string     `json:"name"`
	Value  Expression `json:"value"`
}

func NewSetExpression(object Expression, name string, value Expression) *SetExpression {
	return &SetExpression{nodeImpl: newNodeImpl(NodeSetExpression), Object: object, Name: name, Value: value}
}

type IndexAssignment struct {
	nodeImpl
	expressionMarker

	Target Expression `json:"target"`
	Index  Expression `json:"index"`
	Value  Expression `json:"value"`
}

func NewIndexAssignment(target, index, value Expression) *IndexAssignment {
	return &IndexAssignment{nodeImpl: newNodeImpl(NodeIndexAssignment), Target: target, Index: index, Value: value}
}

// Statements

type PrintStatement struct {
	nodeImpl
	statementMarker

	Values []Expression `json:"values"`
}

func NewPrintStatement(values []Expression) *PrintStatement {
	return &PrintStatement{nodeImpl: newNodeImpl(NodePrintStatement), Values: values}
}

type ExpressionStatement struct {
	nodeImpl
	statementMarker

	Expression Expression `json:"expression"`
}

func NewExpressionStatement(expr Expression) *ExpressionStatement {
	return &ExpressionStatement{nodeImpl: newNodeImpl(NodeExpressionStmt), Expression: expr}
}

type LetStatement struct {
	nodeImpl
	statementMarker

	Name        string     `json:"name"`
	Initializer Expression `json:"initializer,omitempty"`
}

func NewLetStatement(name string, initializer Expression) *LetStatement {
	return &LetStatement{nodeImpl: newNodeImpl(NodeLetStatement), Name: name, Initializer: initializer}
}

type Block struct {
	nodeImpl
	statementMarker

	Statements []Statement `json:"statements"`
}

func NewBlock(statements []Statement) *Block {
	return &Block{nodeImpl: newNodeImpl(NodeBlock), Statements: statements}
}

// IfStatement.Else is nil, a *Block, or a nested *IfStatement for elif
// chains.
type IfStatement struct {
	nodeImpl
	statementMarker

	Condition Expression `json:"condition"`
	Then      *Block     `json:"then"`
	Else      Statement  `json:"else,omitempty"`
}

func NewIfStatement(condition Expression, then *Block, otherwise Statement) *IfStatement {
	return &IfStatement{nodeImpl: newNodeImpl(NodeIfStatement), Condition: condition, Then: then, Else: otherwise}
}

type WhileStatement struct {
	nodeImpl
	statementMarker

	Condition Expression `json:"condition"`
	Body      *Block     `json:"body"`
}

func NewWhileStatement(condition Expression, body *Block) *WhileStatement {
	return &WhileStatement{nodeImpl: newNodeImpl(NodeWhileStatement), Condition: condition, Body: body}
}

type ForStatement struct {
	nodeImpl
	statementMarker

	Variable string     `json:"variable"`
	Iterable Expression `json:"iterable"`
	Body     *Block     `json:"body"`
}

func NewForStatement(variable string, iterable Expression, body *Block) *ForStatement {
	return &ForStatement{nodeImpl: newNodeImpl(NodeForStatement), Variable: variable, Iterable: iterable, Body: body}
}

type ProcDeclaration struct {
	nodeImpl
	statementMarker

	Name   string   `json:"name"`
	Params []string `json:"params"`
	Body   *Block   `json:"body"`
}

func NewProcDeclaration(name string, params []string, body *Block) *ProcDeclaration {
	return &ProcDeclaration{nodeImpl: newNodeImpl(NodeProcDeclaration), Name: name, Params: params, Body: body}
}

// IsMethod reports whether the leading parameter is self.
func (p *ProcDeclaration) IsMethod() bool {
	return len(p.Params) > 0 && p.Params[0] == "self"
}

type ReturnStatement struct {
	nodeImpl
	statementMarker

	Value Expression `json:"value,omitempty"`
}

func NewReturnStatement(value Expression) *ReturnStatement {
	return &ReturnStatement{nodeImpl: newNodeImpl(NodeReturnStatement), Value: value}
}

type BreakStatement struct {
	nodeImpl
	statementMarker
}

func NewBreakStatement() *BreakStatement {
	return &BreakStatement{nodeImpl: newNodeImpl(NodeBreakStatement)}
}

type ContinueStatement struct {
	nodeImpl
	statementMarker
}

func NewContinueStatement() *ContinueStatement {
	return &ContinueStatement{nodeImpl: newNodeImpl(NodeContinueStatement)}
}

type ClassDeclaration struct {
	nodeImpl
	statementMarker

	Name    string             `json:"name"`
	Parent  string             `json:"parent,omitempty"`
	Methods []*ProcDeclaration `json:"methods"`
}

func NewClassDeclaration(name, parent string, methods []*ProcDeclaration) *ClassDeclaration {
	return &ClassDeclaration{nodeImpl: newNodeImpl(NodeClassDeclaration), Name: name, Parent: parent, Methods: methods}
}

type MatchCase struct {
	nodeImpl

	Pattern Expression `json:"pattern"`
	Body    *Block     `json:"body"`
}

func NewMatchCase(pattern Expression, body *Block) *MatchCase {
	return &MatchCase{nodeImpl: newNodeImpl(NodeMatchCase), Pattern: pattern, Body: body}
}

type MatchStatement struct {
	nodeImpl
	statementMarker

	Subject Expression   `json:"subject"`
	Cases   []*MatchCase `json:"cases"`
	Default *Block       `json:"default,omitempty"`
}

func NewMatchStatement(subject Expression, cases []*MatchCase, def *Block) *MatchStatement {
	return &MatchStatement{nodeImpl: newNodeImpl(NodeMatchStatement), Subject: subject, Cases: cases, Default: def}
}

type DeferStatement struct {
	nodeImpl
	statementMarker

	Statement Statement `json:"statement"`
}

func NewDeferStatement(stmt Statement) *DeferStatement {
	return &DeferStatement{nodeImpl: newNodeImpl(NodeDeferStatement), Statement: stmt}
}

type CatchClause struct {
	nodeImpl

	Name string `json:"name"`
	Body *Block `json:"body"`
}

func NewCatchClause(name string, body *Block) *CatchClause {
	return &CatchClause{nodeImpl: newNodeImpl(NodeCatchClause), Name: name, Body: body}
}

type TryStatement struct {
	nodeImpl
	statementMarker

	Body    *Block         `json:"body"`
	Catches []*CatchClause `json:"catches"`
	Finally *Block         `json:"finally,omitempty"`
}

func NewTryStatement(body *Block, catches []*CatchClause, finally *Block) *TryStatement {
	return &TryStatement{nodeImpl: newNodeImpl(NodeTryStatement), Body: body, Catches: catches, Finally: finally}
}

type RaiseStatement struct {
	nodeImpl
	statementMarker

	Value Expression `json:"value"`
}

func NewRaiseStatement(value Expression) *RaiseStatement {
	return &RaiseStatement{nodeImpl: newNodeImpl(NodeRaiseStatement), Value: value}
}

type YieldStatement struct {
	nodeImpl
	statementMarker

	Value Expression `json:"value,omitempty"`
}

func NewYieldStatement(value Expression) *YieldStatement {
	return &YieldStatement{nodeImpl: newNodeImpl(NodeYieldStatement), Value: value}
}

type ImportItem struct {
	nodeImpl

	Name  string `json:"name"`
	Alias string `json:"alias,omitempty"`
}

func NewImportItem(name, alias string) *ImportItem {
	return &ImportItem{nodeImpl: newNodeImpl(NodeImportItem), Name: name, Alias: alias}
}

// ImportStatement covers `import m [as a]` (Items empty, All false),
// `from m import x, y as z` and `from m import *` (All true).
type ImportStatement struct {
	nodeImpl
	statementMarker

	Module string        `json:"module"`
	Alias  string        `json:"alias,omitempty"`
	Items  []*ImportItem `json:"items,omitempty"`
	All    bool          `json:"all,omitempty"`
}

func NewImportStatement(module, alias string, items []*ImportItem, all bool) *ImportStatement {
	return &ImportStatement{nodeImpl: newNodeImpl(NodeImportStatement), Module: module, Alias: alias, Items: items, All: all}
}

// Binding returns the name an `import m [as a]` statement binds.
func (s *ImportStatement) Binding() string {
	if s.Alias != "" {
		return s.Alias
	}
	return s.Module
}
