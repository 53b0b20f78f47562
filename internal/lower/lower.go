package lower

import (
	"fmt"
	"strings"

	"pdgtool/internal/pe"
)

// statement category names, matching the AST contract's Category() vocabulary.
var statementCategories = map[string]bool{
	"Assert": true, "Break": true, "Case": true, "Catch": true,
	"Continue": true, "Do": true, "Empty": true, "Expression": true,
	"If": true, "For": true, "Foreach": true, "Return": true,
	"SimpleBlock": true, "Synchronized": true, "Switch": true,
	"Throw": true, "Try": true, "TypeDeclaration": true,
	"VariableDeclaration": true, "While": true,
}

// Lowerer walks a Node tree and builds the corresponding PE forest. One
// Lowerer is used per compilation unit; it is not safe for concurrent
// use, matching analysis within a single compilation unit staying
// single-threaded.
type Lowerer struct {
	stack  SafeStack
	Types  *TypeResolver
	Pos    *PosIndex
	owners map[int]pe.PE
}

// NewLowerer creates a Lowerer for a single compilation unit.
func NewLowerer() *Lowerer {
	return &Lowerer{
		Types:  NewTypeResolver(),
		Pos:    NewPosIndex(),
		owners: make(map[int]pe.PE),
	}
}

// Owner resolves block's owner-block, for injection into scope.NewManager.
func (lw *Lowerer) Owner(block pe.PE) (pe.PE, bool) {
	o, ok := lw.owners[block.ID()]
	return o, ok
}

func (lw *Lowerer) setOwner(block, owner pe.PE) {
	if block == nil || owner == nil {
		return
	}
	lw.owners[block.ID()] = owner
}

// LowerClass lowers a class/type declaration node into a Class PE plus
// its methods.
func (lw *Lowerer) LowerClass(n Node) *pe.Class {
	if n == nil {
		return nil
	}
	start, end := n.Span()
	cls := pe.NewClass(n.Text(), start, end)
	for _, m := range n.Children("methods") {
		method := lw.LowerMethod(m)
		if method != nil {
			cls.Methods = append(cls.Methods, method)
		}
	}
	return cls
}

// LowerMethod lowers a method (or lambda) declaration node.
func (lw *Lowerer) LowerMethod(n Node) *pe.Method {
	if n == nil {
		return nil
	}
	start, end := n.Span()
	method := pe.NewMethod(n.Text(), start, end)
	lw.Pos.Record(method)

	for _, p := range n.Children("parameters") {
		pstart, pend := p.Span()
		typ := ""
		if tc := p.Children("type"); len(tc) > 0 {
			typ = tc[0].Text()
		}
		name := p.Text()
		vd := pe.NewVariableDeclaration(pe.VarDeclParameter, typ, name, pstart, pend)
		lw.Types.Declare(name, typ)
		method.Parameters = append(method.Parameters, vd)
	}

	if n.Category() == "Lambda" {
		method.IsLambda = true
		body := n.Children("body")
		if len(body) > 0 {
			method.LambdaBodyExpression = exprPE(lw.lowerChildExpression(body[0]))
		}
		return method
	}

	method.Statements = lw.lowerStatementList(n.Children("statements"), method)
	return method
}

// lowerStatementList lowers a sequence of statement nodes, inlining any
// SimpleBlock results into the parent list rather than nesting them:
// inserting a statement whose owner is a SimpleBlock inlines the
// block's children into the parent.
func (lw *Lowerer) lowerStatementList(nodes []Node, owner pe.PE) []pe.PE {
	var out []pe.PE
	for _, n := range nodes {
		stmt := lw.lowerChildStatement(n)
		if stmt == nil {
			continue
		}
		if stmt.Category == pe.StmtSimpleBlock {
			for _, child := range stmt.Statements {
				lw.setOwner(child, owner)
				if cs, ok := child.(*pe.Statement); ok {
					cs.OwnerBlock = owner
				}
				out = append(out, child)
			}
			continue
		}
		stmt.OwnerBlock = owner
		lw.setOwner(stmt, owner)
		out = append(out, stmt)
	}
	return out
}

func (lw *Lowerer) lowerExpressionList(nodes []Node) []pe.PE {
	var out []pe.PE
	for _, n := range nodes {
		if e := lw.lowerChildExpression(n); e != nil {
			out = append(out, e)
		}
	}
	return out
}

func (lw *Lowerer) lowerChildStatement(n Node) *pe.Statement {
	if n == nil {
		return nil
	}
	before := lw.stack.Size()
	lw.lower(n)
	popped := lw.stack.Pop(before, pe.KindStatement)
	if popped == nil {
		return nil
	}
	s, _ := popped.(*pe.Statement)
	return s
}

func (lw *Lowerer) lowerChildExpression(n Node) *pe.Expression {
	if n == nil {
		return nil
	}
	before := lw.stack.Size()
	lw.lower(n)
	popped := lw.stack.Pop(before, pe.KindExpression)
	if popped == nil {
		return nil
	}
	e, _ := popped.(*pe.Expression)
	return e
}

// exprPE and stmtPE guard against the classic nil-concrete-pointer-in-
// interface trap: assigning a nil *pe.Expression/*pe.Statement straight
// into a pe.PE-typed field would produce a non-nil interface wrapping a
// nil pointer, breaking every `!= nil` check downstream.
func exprPE(e *pe.Expression) pe.PE {
	if e == nil {
		return nil
	}
	return e
}

func stmtPE(s *pe.Statement) pe.PE {
	if s == nil {
		return nil
	}
	return s
}

func (lw *Lowerer) first(nodes []Node) Node {
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

func (lw *Lowerer) lower(n Node) {
	if n == nil {
		return
	}
	if n.Category() == "Labeled" {
		lw.lowerLabeled(n)
		return
	}
	if statementCategories[n.Category()] {
		lw.lowerStatement(n)
		return
	}
	lw.lowerExpression(n)
}

// lowerLabeled handles a label attached to a loop/block ("outer: for (...) { ... }").
// It is not itself a PE; it just stamps Label onto the wrapped statement.
func (lw *Lowerer) lowerLabeled(n Node) {
	inner := lw.first(n.Children("statement"))
	if inner == nil {
		return
	}
	before := lw.stack.Size()
	lw.lower(inner)
	popped := lw.stack.Pop(before, pe.KindStatement)
	if popped == nil {
		return
	}
	stmt := popped.(*pe.Statement)
	stmt.Label = n.Text()
	lw.stack.Push(stmt)
}

func categoryOf(name string) pe.StatementCategory {
	switch name {
	case "Assert":
		return pe.StmtAssert
	case "Break":
		return pe.StmtBreak
	case "Case":
		return pe.StmtCase
	case "Catch":
		return pe.StmtCatch
	case "Continue":
		return pe.StmtContinue
	case "Do":
		return pe.StmtDo
	case "Empty":
		return pe.StmtEmpty
	case "Expression":
		return pe.StmtExpression
	case "If":
		return pe.StmtIf
	case "For":
		return pe.StmtFor
	case "Foreach":
		return pe.StmtForeach
	case "Return":
		return pe.StmtReturn
	case "SimpleBlock":
		return pe.StmtSimpleBlock
	case "Synchronized":
		return pe.StmtSynchronized
	case "Switch":
		return pe.StmtSwitch
	case "Throw":
		return pe.StmtThrow
	case "Try":
		return pe.StmtTry
	case "TypeDeclaration":
		return pe.StmtTypeDeclaration
	case "VariableDeclaration":
		return pe.StmtVariableDeclaration
	case "While":
		return pe.StmtWhile
	default:
		return pe.StmtEmpty
	}
}

// lowerStatement builds and pushes a Statement PE for n, dispatching on
// category per the structural lowering rules. The resulting PE is always
// pushed ("only attaches when top-of-stack is block-leading" is enforced
// by the caller, which only calls this from a block-building context in
// the first place, since this lowerer descends by explicit role rather
// than a blind global visitor).
func (lw *Lowerer) lowerStatement(n Node) {
	cat := categoryOf(n.Category())
	start, end := spanFor(n, cat)
	stmt := pe.NewStatement(cat, start, end)
	s := lw.stack.Push(stmt)
	_ = s

	switch cat {
	case pe.StmtIf:
		stmt.Condition = exprPE(lw.lowerChildExpression(lw.first(n.Children("condition"))))
		stmt.Statements = lw.lowerStatementList(n.Children("then"), stmt)
		if els := n.Children("else"); len(els) > 0 {
			stmt.ElseStatements = lw.lowerStatementList(els, stmt)
		}
	case pe.StmtFor:
		stmt.Initializers = lw.lowerExpressionList(n.Children("init"))
		stmt.Condition = exprPE(lw.lowerChildExpression(lw.first(n.Children("condition"))))
		stmt.Updaters = lw.lowerExpressionList(n.Children("update"))
		stmt.Statements = lw.lowerStatementList(n.Children("body"), stmt)
	case pe.StmtForeach:
		stmt.Condition = exprPE(lw.lowerChildExpression(lw.first(n.Children("iterable"))))
		if v := lw.lowerChildExpression(lw.first(n.Children("variable"))); v != nil {
			stmt.Expressions = []pe.PE{v}
		}
		stmt.Statements = lw.lowerStatementList(n.Children("body"), stmt)
	case pe.StmtWhile:
		stmt.Condition = exprPE(lw.lowerChildExpression(lw.first(n.Children("condition"))))
		stmt.Statements = lw.lowerStatementList(n.Children("body"), stmt)
	case pe.StmtDo:
		stmt.Statements = lw.lowerStatementList(n.Children("body"), stmt)
		stmt.Condition = exprPE(lw.lowerChildExpression(lw.first(n.Children("condition"))))
	case pe.StmtTry:
		stmt.Statements = lw.lowerStatementList(n.Children("body"), stmt)
		for _, c := range n.Children("catches") {
			if cs := lw.lowerChildStatement(c); cs != nil {
				cs.OwnerBlock = stmt
				lw.setOwner(cs, stmt)
				stmt.CatchStatements = append(stmt.CatchStatements, cs)
			}
		}
		if fin := n.Children("finally"); len(fin) > 0 {
			if fs := lw.lowerChildStatement(fin[0]); fs != nil {
				fs.OwnerBlock = stmt
				lw.setOwner(fs, stmt)
				stmt.FinallyStatement = fs
			}
		}
	case pe.StmtCatch:
		if param := lw.first(n.Children("parameter")); param != nil {
			pstart, pend := param.Span()
			nameLeaf := pe.NewExpression(pe.ExprSimpleName, pstart, pend)
			nameLeaf.SetText(param.Text())
			frag := pe.NewExpression(pe.ExprVariableDeclarationFragment, pstart, pend)
			frag.Expressions = []pe.PE{nameLeaf}
			stmt.Expressions = []pe.PE{frag}
		}
		stmt.Statements = lw.lowerStatementList(n.Children("body"), stmt)
	case pe.StmtSynchronized:
		stmt.Condition = exprPE(lw.lowerChildExpression(lw.first(n.Children("lock"))))
		stmt.Statements = lw.lowerStatementList(n.Children("body"), stmt)
	case pe.StmtSwitch:
		stmt.Condition = exprPE(lw.lowerChildExpression(lw.first(n.Children("selector"))))
		stmt.Statements = lw.lowerStatementList(n.Children("body"), stmt)
	case pe.StmtCase:
		if val := n.Children("value"); len(val) > 0 {
			stmt.Expressions = lw.lowerExpressionList(val)
		}
	case pe.StmtSimpleBlock:
		stmt.Statements = lw.lowerStatementList(n.Children("statements"), stmt)
	case pe.StmtReturn:
		if v := lw.lowerChildExpression(lw.first(n.Children("value"))); v != nil {
			stmt.Expressions = []pe.PE{v}
		}
	case pe.StmtThrow:
		if v := lw.lowerChildExpression(lw.first(n.Children("value"))); v != nil {
			stmt.Expressions = []pe.PE{v}
		}
	case pe.StmtBreak, pe.StmtContinue:
		if lbl := n.Children("label"); len(lbl) > 0 {
			stmt.Expressions = lw.lowerExpressionList(lbl)
		}
	case pe.StmtAssert:
		stmt.Expressions = lw.lowerExpressionList(n.Children("expressions"))
	case pe.StmtExpression:
		if v := lw.lowerChildExpression(lw.first(n.Children("expression"))); v != nil {
			stmt.Expressions = []pe.PE{v}
		}
	case pe.StmtVariableDeclaration:
		stmt.Expressions = lw.lowerExpressionList(n.Children("fragments"))
		for _, e := range stmt.Expressions {
			if frag, ok := e.(*pe.Expression); ok && len(frag.Expressions) > 0 {
				if nameExpr, ok := frag.Expressions[0].(*pe.Expression); ok {
					if typ := lw.first(n.Children("type")); typ != nil {
						lw.Types.Declare(nameExpr.Text(), typ.Text())
					}
				}
			}
		}
	case pe.StmtEmpty, pe.StmtTypeDeclaration:
		// no structural children to attach.
	}

	stmt.SetText(renderStatement(stmt))
}

// spanFor applies the end-line carve-outs for If/Try.
func spanFor(n Node, cat pe.StatementCategory) (int, int) {
	start, end := n.Span()
	switch cat {
	case pe.StmtIf:
		if els := n.Children("else"); len(els) > 0 {
			if es, _ := els[0].Span(); es > start {
				end = es - 1
			}
		}
	case pe.StmtTry:
		if catches := n.Children("catches"); len(catches) > 0 {
			if cs, _ := catches[0].Span(); cs > start {
				end = cs - 1
			}
		} else if fin := n.Children("finally"); len(fin) > 0 {
			if fs, _ := fin[0].Span(); fs > start {
				end = fs - 1
			}
		}
	}
	return start, end
}

var expressionCategoryByName = map[string]pe.ExpressionCategory{
	"ArrayAccess": pe.ExprArrayAccess, "ArrayCreation": pe.ExprArrayCreation,
	"ArrayInitializer": pe.ExprArrayInitializer, "Assignment": pe.ExprAssignment,
	"Boolean": pe.ExprBoolean, "Cast": pe.ExprCast, "Character": pe.ExprCharacter,
	"ClassInstanceCreation": pe.ExprClassInstanceCreation,
	"ConstructorInvocation": pe.ExprConstructorInvocation,
	"FieldAccess":           pe.ExprFieldAccess, "Infix": pe.ExprInfix,
	"Instanceof": pe.ExprInstanceof, "MethodInvocation": pe.ExprMethodInvocation,
	"Null": pe.ExprNull, "Number": pe.ExprNumber, "Parenthesized": pe.ExprParenthesized,
	"Postfix": pe.ExprPostfix, "Prefix": pe.ExprPrefix,
	"QualifiedName": pe.ExprQualifiedName, "SimpleName": pe.ExprSimpleName,
	"String": pe.ExprString, "SuperConstructorInvocation": pe.ExprSuperConstructorInvocation,
	"SuperFieldAccess": pe.ExprSuperFieldAccess, "SuperMethodInvocation": pe.ExprSuperMethodInvocation,
	"This": pe.ExprThis, "Trinomial": pe.ExprTrinomial, "TypeLiteral": pe.ExprTypeLiteral,
	"VariableDeclarationExpression": pe.ExprVariableDeclarationExpression,
	"VariableDeclarationFragment":   pe.ExprVariableDeclarationFragment,
}

// lowerExpression builds and pushes an Expression PE for n.
func (lw *Lowerer) lowerExpression(n Node) {
	cat, ok := expressionCategoryByName[n.Category()]
	if !ok {
		return
	}
	start, end := n.Span()
	e := pe.NewExpression(cat, start, end)
	lw.stack.Push(e)

	switch cat {
	case pe.ExprSimpleName, pe.ExprNumber, pe.ExprBoolean, pe.ExprCharacter,
		pe.ExprString, pe.ExprNull, pe.ExprTypeLiteral, pe.ExprThis:
		e.SetText(n.Text())

	case pe.ExprAssignment:
		lhs := lw.lowerChildExpression(lw.first(n.Children("lhs")))
		rhs := lw.lowerChildExpression(lw.first(n.Children("rhs")))
		e.Expressions = []pe.PE{exprPE(lhs), exprPE(rhs)}
		e.OperatorToken = n.Text()

	case pe.ExprInfix:
		left := lw.lowerChildExpression(lw.first(n.Children("left")))
		right := lw.lowerChildExpression(lw.first(n.Children("right")))
		e.Expressions = []pe.PE{exprPE(left), exprPE(right)}
		e.OperatorToken = n.Text()

	case pe.ExprPostfix, pe.ExprPrefix:
		operand := lw.lowerChildExpression(lw.first(n.Children("operand")))
		e.Expressions = []pe.PE{exprPE(operand)}
		e.OperatorToken = n.Text()

	case pe.ExprTrinomial:
		e.Expressions = []pe.PE{
			exprPE(lw.lowerChildExpression(lw.first(n.Children("condition")))),
			exprPE(lw.lowerChildExpression(lw.first(n.Children("then")))),
			exprPE(lw.lowerChildExpression(lw.first(n.Children("else")))),
		}

	case pe.ExprParenthesized, pe.ExprCast, pe.ExprInstanceof:
		e.Expressions = []pe.PE{exprPE(lw.lowerChildExpression(lw.first(n.Children("operand"))))}

	case pe.ExprArrayAccess:
		array := lw.lowerChildExpression(lw.first(n.Children("array")))
		index := lw.lowerChildExpression(lw.first(n.Children("index")))
		e.Expressions = []pe.PE{exprPE(array), exprPE(index)}

	case pe.ExprArrayCreation, pe.ExprArrayInitializer:
		e.Expressions = lw.lowerExpressionList(n.Children("elements"))

	case pe.ExprFieldAccess, pe.ExprQualifiedName:
		e.Qualifier = exprPE(lw.lowerChildExpression(lw.first(n.Children("qualifier"))))
		fieldLeaf := pe.NewExpression(pe.ExprSimpleName, start, end)
		fieldLeaf.SetText(n.Text())
		e.Expressions = []pe.PE{fieldLeaf}

	case pe.ExprSuperFieldAccess:
		fieldLeaf := pe.NewExpression(pe.ExprSimpleName, start, end)
		fieldLeaf.SetText(n.Text())
		e.Expressions = []pe.PE{fieldLeaf}

	case pe.ExprMethodInvocation, pe.ExprSuperMethodInvocation:
		e.Qualifier = exprPE(lw.lowerChildExpression(lw.first(n.Children("qualifier"))))
		e.Expressions = lw.lowerExpressionList(n.Children("arguments"))
		e.MethodName = n.Text()
		e.APIName = apiName(n, e)

	case pe.ExprClassInstanceCreation:
		e.Expressions = lw.lowerExpressionList(n.Children("arguments"))
		for _, m := range n.Children("anonymousMethods") {
			if method := lw.LowerMethod(m); method != nil {
				e.AnonymousClassMethods = append(e.AnonymousClassMethods, method)
			}
		}

	case pe.ExprConstructorInvocation, pe.ExprSuperConstructorInvocation:
		e.Expressions = lw.lowerExpressionList(n.Children("arguments"))

	case pe.ExprVariableDeclarationExpression:
		e.Expressions = lw.lowerExpressionList(n.Children("fragments"))

	case pe.ExprVariableDeclarationFragment:
		name := lw.lowerChildExpression(lw.first(n.Children("name")))
		if name == nil {
			name = pe.NewExpression(pe.ExprSimpleName, start, end)
			name.SetText(n.Text())
		}
		e.Expressions = []pe.PE{name}
		if init := lw.lowerChildExpression(lw.first(n.Children("init"))); init != nil {
			e.Expressions = append(e.Expressions, init)
		}
	}

	e.SetText(renderExpression(e))
}

// apiName implements the MethodInvocation apiName rule: fully qualified
// type when resolvable, else the qualifier's own text.
func apiName(n Node, e *pe.Expression) string {
	if typ, ok := n.ResolveReceiverType(); ok && typ != "" {
		return fmt.Sprintf("%s.%s()", typ, e.MethodName)
	}
	if e.Qualifier != nil {
		return fmt.Sprintf("%s.%s()", e.Qualifier.Text(), e.MethodName)
	}
	return fmt.Sprintf("%s()", e.MethodName)
}

func renderExpression(e *pe.Expression) string {
	if e.Text() != "" {
		return e.Text()
	}
	var parts []string
	if e.Qualifier != nil {
		parts = append(parts, e.Qualifier.Text())
	}
	for _, c := range e.Expressions {
		if c != nil {
			parts = append(parts, c.Text())
		}
	}
	switch e.Category {
	case pe.ExprMethodInvocation, pe.ExprSuperMethodInvocation:
		prefix := ""
		if e.Qualifier != nil {
			prefix = e.Qualifier.Text() + "."
		}
		var args []string
		for _, c := range e.Expressions {
			args = append(args, c.Text())
		}
		return fmt.Sprintf("%s%s(%s)", prefix, e.MethodName, strings.Join(args, ", "))
	case pe.ExprAssignment, pe.ExprInfix:
		if len(parts) == 2 {
			return fmt.Sprintf("%s %s %s", parts[0], e.OperatorToken, parts[1])
		}
	case pe.ExprFieldAccess, pe.ExprQualifiedName:
		if e.Qualifier != nil && len(e.Expressions) > 0 {
			return e.Qualifier.Text() + "." + e.Expressions[0].Text()
		}
	}
	return strings.Join(parts, ", ")
}

func renderStatement(s *pe.Statement) string {
	if s.Text() != "" {
		return s.Text()
	}
	switch s.Category {
	case pe.StmtExpression:
		if len(s.Expressions) > 0 {
			return s.Expressions[0].Text() + ";"
		}
	case pe.StmtReturn:
		if len(s.Expressions) > 0 {
			return "return " + s.Expressions[0].Text() + ";"
		}
		return "return;"
	case pe.StmtIf:
		if s.Condition != nil {
			return "if (" + s.Condition.Text() + ")"
		}
	}
	return s.Category.String()
}
