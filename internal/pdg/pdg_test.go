package pdg

import (
	"testing"

	"pdgtool/internal/defuse"
	"pdgtool/internal/pe"
	"pdgtool/internal/scope"
)

func newManager(owners map[int]pe.PE) *scope.Manager {
	return scope.NewManager(func(block pe.PE) (pe.PE, bool) {
		o, ok := owners[block.ID()]
		return o, ok
	})
}

func simpleName(text string, line int) *pe.Expression {
	e := pe.NewExpression(pe.ExprSimpleName, line, line)
	e.SetText(text)
	return e
}

// assignStmt builds "<name> = <rhsText>;" as an Expression statement
// whose owner block is owner, wired into the owners map for scope
// resolution.
func assignStmt(owners map[int]pe.PE, owner pe.PE, name, rhsText string, line int) *pe.Statement {
	lhs := simpleName(name, line)
	rhs := pe.NewExpression(pe.ExprNumber, line, line)
	rhs.SetText(rhsText)
	assign := pe.NewExpression(pe.ExprAssignment, line, line)
	assign.Expressions = []pe.PE{lhs, rhs}

	s := pe.NewStatement(pe.StmtExpression, line, line)
	s.Expressions = []pe.PE{assign}
	s.OwnerBlock = owner
	owners[s.ID()] = owner
	return s
}

// useStmt builds a "return <name>;" statement: a Return statement
// wrapping a bare use of name (no assignment), standing in for any
// use-only statement.
func useStmt(owners map[int]pe.PE, owner pe.PE, name string, line int) *pe.Statement {
	ref := simpleName(name, line)
	s := pe.NewStatement(pe.StmtReturn, line, line)
	s.Expressions = []pe.PE{ref}
	s.OwnerBlock = owner
	owners[s.ID()] = owner
	return s
}

// TestDataDependenceParameterToFirstUse pins scenario 1's shape: a
// parameter flows via a Data edge to the first statement that reads it,
// and the reaching-def stops once the variable is reassigned.
func TestDataDependenceParameterToFirstUse(t *testing.T) {
	pe.ResetIDsForTest()
	owners := map[int]pe.PE{}

	method := pe.NewMethod("f", 1, 4)
	method.Parameters = []*pe.VariableDeclaration{
		pe.NewVariableDeclaration(pe.VarDeclParameter, "int", "x", 1, 1),
	}

	useIt := useStmt(owners, method, "x", 2)
	reassign := assignStmt(owners, method, "x", "0", 3)
	useAfter := useStmt(owners, method, "x", 4)
	method.Statements = []pe.PE{useIt, reassign, useAfter}

	mgr := newManager(owners)
	analyzer := defuse.NewAnalyzer(mgr)

	g := Build(method, analyzer, FullOptions())

	paramNode := g.Parameters[0]
	useNode := g.Node(useIt)
	reassignNode := g.Node(reassign)
	useAfterNode := g.Node(useAfter)

	if !hasDataEdge(paramNode, useNode, "x") {
		t.Fatal("expected a data edge from the parameter to its first use")
	}
	if hasDataEdge(paramNode, useAfterNode, "x") {
		t.Fatal("the parameter's reaching def should not cross a full reassignment")
	}
	if !hasDataEdge(reassignNode, useAfterNode, "x") {
		t.Fatal("expected a data edge from the reassignment to the use after it")
	}
}

// TestDataDependenceSelfUseBeforeRedefinition pins "x = x + 1": the
// defining node itself both uses and redefines x, and the use edge must
// still be emitted even though the same node's def would otherwise kill
// propagation.
func TestDataDependenceSelfUseBeforeRedefinition(t *testing.T) {
	pe.ResetIDsForTest()
	owners := map[int]pe.PE{}

	method := pe.NewMethod("f", 1, 3)
	method.Parameters = []*pe.VariableDeclaration{
		pe.NewVariableDeclaration(pe.VarDeclParameter, "int", "x", 1, 1),
	}

	lhs := simpleName("x", 2)
	rhs := simpleName("x", 2)
	plusOne := pe.NewExpression(pe.ExprInfix, 2, 2)
	plusOne.OperatorToken = "+"
	one := pe.NewExpression(pe.ExprNumber, 2, 2)
	one.SetText("1")
	plusOne.Expressions = []pe.PE{rhs, one}
	assign := pe.NewExpression(pe.ExprAssignment, 2, 2)
	assign.Expressions = []pe.PE{lhs, plusOne}
	selfStmt := pe.NewStatement(pe.StmtExpression, 2, 2)
	selfStmt.Expressions = []pe.PE{assign}
	selfStmt.OwnerBlock = method
	owners[selfStmt.ID()] = method

	after := useStmt(owners, method, "x", 3)
	method.Statements = []pe.PE{selfStmt, after}

	mgr := newManager(owners)
	analyzer := defuse.NewAnalyzer(mgr)
	g := Build(method, analyzer, FullOptions())

	paramNode := g.Parameters[0]
	selfNode := g.Node(selfStmt)
	afterNode := g.Node(after)

	if !hasDataEdge(paramNode, selfNode, "x") {
		t.Fatal("expected the parameter to reach the self-use-then-redefine statement")
	}
	if hasDataEdge(paramNode, afterNode, "x") {
		t.Fatal("the parameter's reaching def should not survive the self-redefinition")
	}
	if !hasDataEdge(selfNode, afterNode, "x") {
		t.Fatal("expected the redefinition to reach the statement after it")
	}
}

// TestControlDependenceIfThenElse pins scenario 3's shape: the if
// statement's control node emits a true edge to the then-branch and a
// false edge to the else-branch.
func TestControlDependenceIfThenElse(t *testing.T) {
	pe.ResetIDsForTest()
	owners := map[int]pe.PE{}

	method := pe.NewMethod("f", 1, 5)

	cond := simpleName("ok", 1)
	thenStmt := useStmt(owners, nil, "a", 2)
	elseStmt := useStmt(owners, nil, "b", 4)

	ifStmt := pe.NewStatement(pe.StmtIf, 1, 5)
	ifStmt.Condition = cond
	ifStmt.Statements = []pe.PE{thenStmt}
	ifStmt.ElseStatements = []pe.PE{elseStmt}
	ifStmt.OwnerBlock = method
	owners[ifStmt.ID()] = method
	thenStmt.OwnerBlock = ifStmt
	elseStmt.OwnerBlock = ifStmt
	method.Statements = []pe.PE{ifStmt}

	mgr := newManager(owners)
	analyzer := defuse.NewAnalyzer(mgr)
	g := Build(method, analyzer, FullOptions())

	ifNode := g.Node(ifStmt)
	thenNode := g.Node(thenStmt)
	elseNode := g.Node(elseStmt)

	if !hasControlEdge(ifNode, thenNode, true) {
		t.Fatal("expected a true control edge from if to the then-branch")
	}
	if !hasControlEdge(ifNode, elseNode, false) {
		t.Fatal("expected a false control edge from if to the else-branch")
	}
}

// TestExecutionDependenceMirrorsCFGForwardEdges checks the execution
// dependence rule: every CFG forward edge becomes a PDG execution edge
// between the wrapping nodes, including MethodEnter -> first statement.
func TestExecutionDependenceMirrorsCFGForwardEdges(t *testing.T) {
	pe.ResetIDsForTest()
	owners := map[int]pe.PE{}

	method := pe.NewMethod("f", 1, 3)
	s1 := useStmt(owners, method, "a", 2)
	s2 := useStmt(owners, method, "b", 3)
	method.Statements = []pe.PE{s1, s2}

	mgr := newManager(owners)
	analyzer := defuse.NewAnalyzer(mgr)
	g := Build(method, analyzer, FullOptions())

	n1 := g.Node(s1)
	n2 := g.Node(s2)

	if !hasExecutionEdge(g.Enter, n1) {
		t.Fatal("expected an execution edge from MethodEnter to the first statement")
	}
	if !hasExecutionEdge(n1, n2) {
		t.Fatal("expected an execution edge mirroring the CFG's s1 -> s2 edge")
	}
}

// TestDataOnlyOptionsOmitControlAndExecution pins the DDG contract:
// no Control or Execution edges anywhere in the graph.
func TestDataOnlyOptionsOmitControlAndExecution(t *testing.T) {
	pe.ResetIDsForTest()
	owners := map[int]pe.PE{}

	method := pe.NewMethod("f", 1, 3)
	method.Parameters = []*pe.VariableDeclaration{
		pe.NewVariableDeclaration(pe.VarDeclParameter, "int", "x", 1, 1),
	}
	cond := simpleName("x", 1)
	ifStmt := pe.NewStatement(pe.StmtIf, 1, 2)
	ifStmt.Condition = cond
	body := useStmt(owners, nil, "x", 2)
	ifStmt.Statements = []pe.PE{body}
	ifStmt.OwnerBlock = method
	owners[ifStmt.ID()] = method
	body.OwnerBlock = ifStmt
	method.Statements = []pe.PE{ifStmt}

	mgr := newManager(owners)
	analyzer := defuse.NewAnalyzer(mgr)
	g := Build(method, analyzer, DataOnlyOptions())

	for _, n := range g.Nodes() {
		for _, e := range n.ForwardEdges() {
			if e.Kind != EdgeData {
				t.Fatalf("expected only Data edges, found kind %v from node %d", e.Kind, n.id)
			}
		}
	}
}

func hasDataEdge(from, to *Node, variable string) bool {
	for _, e := range from.ForwardEdges() {
		if e.To == to && e.Kind == EdgeData && e.Variable == variable {
			return true
		}
	}
	return false
}

func hasControlEdge(from, to *Node, label bool) bool {
	for _, e := range from.ForwardEdges() {
		if e.To == to && e.Kind == EdgeControl && e.Label == label {
			return true
		}
	}
	return false
}

func hasExecutionEdge(from, to *Node) bool {
	for _, e := range from.ForwardEdges() {
		if e.To == to && e.Kind == EdgeExecution {
			return true
		}
	}
	return false
}
