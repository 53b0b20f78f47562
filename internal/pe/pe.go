// Package pe implements the program-element model: a tagged-variant tree
// of statements, expressions, methods, classes, variable declarations,
// types, and operators, each carrying an id, a source span, rendered
// text, and a modifier list.
//
// Every element is created through one of the New* constructors, which
// assign an id from a single process-wide monotonic counter. Ids define
// total ordering, equality, and hashing for elements and for the CFG/PDG
// nodes built on top of them.
//
// Per-category behavior (the def/use analyzer, the CFG builder) lives in
// separate packages that dispatch on Kind()/Category() rather than in
// virtual methods on PE, matching a dispatch-table style over a tagged
// variant rather than a class hierarchy.
package pe

import "sync/atomic"

var idCounter uint64

// nextID returns the next process-wide monotonically increasing id.
func nextID() int {
	return int(atomic.AddUint64(&idCounter, 1))
}

// ResetIDsForTest resets the id counter. Only ever called from tests that
// need deterministic ids; production code never resets it.
func ResetIDsForTest() {
	atomic.StoreUint64(&idCounter, 0)
}

// Kind discriminates the top-level PE variant.
type Kind int

const (
	KindStatement Kind = iota
	KindExpression
	KindMethod
	KindClass
	KindVariableDeclaration
	KindType
	KindOperator
)

func (k Kind) String() string {
	switch k {
	case KindStatement:
		return "Statement"
	case KindExpression:
		return "Expression"
	case KindMethod:
		return "Method"
	case KindClass:
		return "Class"
	case KindVariableDeclaration:
		return "VariableDeclaration"
	case KindType:
		return "Type"
	case KindOperator:
		return "Operator"
	default:
		return "Unknown"
	}
}

// PE is the common interface satisfied by every program-element variant.
type PE interface {
	ID() int
	Kind() Kind
	Span() (startLine, endLine int)
	SetSpan(startLine, endLine int)
	Text() string
	SetText(text string)
	Modifiers() []string
	AddModifier(m string)
}

// Base carries the fields common to every PE variant.
type Base struct {
	id        int
	startLine int
	endLine   int
	text      string
	modifiers []string
}

func newBase(startLine, endLine int) Base {
	return Base{id: nextID(), startLine: startLine, endLine: endLine}
}

func (b *Base) ID() int                       { return b.id }
func (b *Base) Span() (int, int)              { return b.startLine, b.endLine }
func (b *Base) SetSpan(startLine, endLine int) { b.startLine, b.endLine = startLine, endLine }
func (b *Base) Text() string                  { return b.text }
func (b *Base) SetText(t string)              { b.text = t }
func (b *Base) Modifiers() []string           { return b.modifiers }
func (b *Base) AddModifier(m string)          { b.modifiers = append(b.modifiers, m) }

// CategoryLabel names p's concrete variant as closely as the original
// ProgramElementInfo subclass names would: a Statement or Expression
// reports its own Category string (e.g. "If", "MethodInvocation"), while
// every other PE kind reports its Kind() string.
func CategoryLabel(p PE) string {
	switch v := p.(type) {
	case *Statement:
		return v.Category.String()
	case *Expression:
		return v.Category.String()
	default:
		return p.Kind().String()
	}
}

// Compare orders two PEs by id, giving the total order that CFG/PDG node
// and edge sets rely on for deterministic iteration.
func Compare(a, b PE) int {
	switch {
	case a.ID() < b.ID():
		return -1
	case a.ID() > b.ID():
		return 1
	default:
		return 0
	}
}

// StatementCategory enumerates statement variants.
type StatementCategory int

const (
	StmtAssert StatementCategory = iota
	StmtBreak
	StmtCase
	StmtCatch
	StmtContinue
	StmtDo
	StmtEmpty
	StmtExpression
	StmtIf
	StmtFor
	StmtForeach
	StmtReturn
	StmtSimpleBlock
	StmtSynchronized
	StmtSwitch
	StmtThrow
	StmtTry
	StmtTypeDeclaration
	StmtVariableDeclaration
	StmtWhile
)

func (c StatementCategory) String() string {
	names := [...]string{
		"Assert", "Break", "Case", "Catch", "Continue", "Do", "Empty",
		"Expression", "If", "For", "Foreach", "Return", "SimpleBlock",
		"Synchronized", "Switch", "Throw", "Try", "TypeDeclaration",
		"VariableDeclaration", "While",
	}
	if int(c) < len(names) {
		return names[c]
	}
	return "Unknown"
}

// Statement is a control- or declaration-carrying PE.
//
// OwnerBlock and Label are populated by the lowering pass and by
// late-bound scope resolution; they are lookup convenience, not
// ownership, and must tolerate being unset until then.
type Statement struct {
	Base
	Category         StatementCategory
	OwnerBlock       PE // non-owning; the block this statement is attached to
	Condition        PE
	Expressions      []PE
	Initializers     []PE
	Updaters         []PE
	Statements       []PE
	ElseStatements   []PE
	CatchStatements  []PE
	FinallyStatement PE
	Label            string
}

// NewStatement allocates a Statement PE with a fresh id.
func NewStatement(category StatementCategory, startLine, endLine int) *Statement {
	return &Statement{Base: newBase(startLine, endLine), Category: category}
}

func (s *Statement) Kind() Kind { return KindStatement }

// IsBlockLeading reports whether s is a valid parent onto which further
// statements may be attached.
func (s *Statement) IsBlockLeading() bool {
	switch s.Category {
	case StmtSimpleBlock, StmtIf, StmtFor, StmtForeach, StmtWhile, StmtDo,
		StmtTry, StmtCatch, StmtSwitch, StmtSynchronized:
		return true
	default:
		return false
	}
}

// JumpLabel returns the label carried by a Break/Continue's zero-or-one
// label expression (Expressions[0]).
func (s *Statement) JumpLabel() (string, bool) {
	if s.Category != StmtBreak && s.Category != StmtContinue {
		return "", false
	}
	if len(s.Expressions) == 0 {
		return "", false
	}
	return s.Expressions[0].Text(), true
}

// ExpressionCategory enumerates expression variants.
type ExpressionCategory int

const (
	ExprArrayAccess ExpressionCategory = iota
	ExprArrayCreation
	ExprArrayInitializer
	ExprAssignment
	ExprBoolean
	ExprCast
	ExprCharacter
	ExprClassInstanceCreation
	ExprConstructorInvocation
	ExprFieldAccess
	ExprInfix
	ExprInstanceof
	ExprMethodInvocation
	ExprNull
	ExprNumber
	ExprParenthesized
	ExprPostfix
	ExprPrefix
	ExprQualifiedName
	ExprSimpleName
	ExprString
	ExprSuperConstructorInvocation
	ExprSuperFieldAccess
	ExprSuperMethodInvocation
	ExprThis
	ExprTrinomial
	ExprTypeLiteral
	ExprVariableDeclarationExpression
	ExprVariableDeclarationFragment
	ExprMethodEnter
)

func (c ExpressionCategory) String() string {
	names := [...]string{
		"ArrayAccess", "ArrayCreation", "ArrayInitializer", "Assignment",
		"Boolean", "Cast", "Character", "ClassInstanceCreation",
		"ConstructorInvocation", "FieldAccess", "Infix", "Instanceof",
		"MethodInvocation", "Null", "Number", "Parenthesized", "Postfix",
		"Prefix", "QualifiedName", "SimpleName", "String",
		"SuperConstructorInvocation", "SuperFieldAccess",
		"SuperMethodInvocation", "This", "Trinomial", "TypeLiteral",
		"VariableDeclarationExpression", "VariableDeclarationFragment",
		"MethodEnter",
	}
	if int(c) < len(names) {
		return names[c]
	}
	return "Unknown"
}

// Expression is a value- or reference-producing PE.
type Expression struct {
	Base
	Category      ExpressionCategory
	Qualifier     PE   // receiver of a FieldAccess/QualifiedName/MethodInvocation
	Expressions   []PE // operands, method-call arguments (qualifier held separately), etc.
	OperatorToken string
	AnonymousClassMethods []*Method
	MethodName    string // the invoked method's bare name, for MethodInvocation
	APIName       string // "<QualifiedType|qualifierText>.<methodName>()", for MethodInvocation
}

// NewExpression allocates an Expression PE with a fresh id.
func NewExpression(category ExpressionCategory, startLine, endLine int) *Expression {
	return &Expression{Base: newBase(startLine, endLine), Category: category}
}

func (e *Expression) Kind() Kind { return KindExpression }

// Method is a callable's PE, holding its parameters and body.
type Method struct {
	Base
	Name                  string
	IsLambda              bool
	Parameters            []*VariableDeclaration
	Statements            []PE
	LambdaBodyExpression  PE
}

// NewMethod allocates a Method PE with a fresh id.
func NewMethod(name string, startLine, endLine int) *Method {
	return &Method{Base: newBase(startLine, endLine), Name: name}
}

func (m *Method) Kind() Kind { return KindMethod }

// Class holds a class's methods; an empty Name means an anonymous class.
type Class struct {
	Base
	Name    string
	Methods []*Method
}

// NewClass allocates a Class PE with a fresh id.
func NewClass(name string, startLine, endLine int) *Class {
	return &Class{Base: newBase(startLine, endLine), Name: name}
}

func (c *Class) Kind() Kind        { return KindClass }
func (c *Class) IsAnonymous() bool { return c.Name == "" }

// VarDeclCategory distinguishes where a declared variable lives.
type VarDeclCategory int

const (
	VarDeclField VarDeclCategory = iota
	VarDeclLocal
	VarDeclParameter
)

// VariableDeclaration names a single declared variable and its type.
type VariableDeclaration struct {
	Base
	Category VarDeclCategory
	Type     string
	Name     string
}

// NewVariableDeclaration allocates a VariableDeclaration PE with a fresh id.
func NewVariableDeclaration(category VarDeclCategory, typ, name string, startLine, endLine int) *VariableDeclaration {
	return &VariableDeclaration{Base: newBase(startLine, endLine), Category: category, Type: typ, Name: name}
}

func (v *VariableDeclaration) Kind() Kind { return KindVariableDeclaration }

// Type is a string-form type reference.
type Type struct {
	Base
	Name string
}

// NewType allocates a Type PE with a fresh id.
func NewType(name string, startLine, endLine int) *Type {
	return &Type{Base: newBase(startLine, endLine), Name: name}
}

func (t *Type) Kind() Kind { return KindType }

// Operator carries a single operator token (e.g. "+", "++", "&&").
type Operator struct {
	Base
	Token string
}

// NewOperator allocates an Operator PE with a fresh id.
func NewOperator(token string, startLine, endLine int) *Operator {
	o := &Operator{Base: newBase(startLine, endLine), Token: token}
	o.SetText(token)
	return o
}

func (o *Operator) Kind() Kind { return KindOperator }

// NewMethodEnter builds the synthetic MethodEnter expression PDG
// construction attaches to the fake enter node, spanning the method's
// own lines (pdg/node/PDGMethodEnterNode.java's ExpressionInfo(MethodEnter, ...)).
func NewMethodEnter(method *Method) *Expression {
	start, end := method.Span()
	e := NewExpression(ExprMethodEnter, start, end)
	e.SetText("Enter")
	return e
}
