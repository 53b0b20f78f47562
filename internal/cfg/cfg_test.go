package cfg

import (
	"testing"

	"pdgtool/internal/pe"
)

func exprStmt(line int) *pe.Statement {
	e := pe.NewExpression(pe.ExprMethodInvocation, line, line)
	e.SetText("call()")
	s := pe.NewStatement(pe.StmtExpression, line, line)
	s.Expressions = []pe.PE{e}
	return s
}

func hasEdge(from, to *Node, kind EdgeKind) bool {
	for _, e := range from.ForwardEdges() {
		if e.To == to && e.Kind == kind {
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

// TestBuildMethodStraightLineChainsSequentially checks the straight-line
// CFG shape: two straight-line statements chain enter -> s1 -> s2, and
// s2 is the method's sole exit.
func TestBuildMethodStraightLineChainsSequentially(t *testing.T) {
	pe.ResetIDsForTest()
	s1 := exprStmt(2)
	s2 := exprStmt(3)
	m := pe.NewMethod("foo", 1, 4)
	m.Statements = []pe.PE{s1, s2}

	g := Build(m)
	n1 := g.Node(s1)
	n2 := g.Node(s2)
	if g.Enter != n1 {
		t.Fatal("enter should be the first statement's node")
	}
	if !hasEdge(n1, n2, EdgeNormal) {
		t.Fatal("expected a normal edge from s1 to s2")
	}
	if !g.IsExit(n2) || len(g.Exits) != 1 {
		t.Fatalf("expected s2 as sole exit, got %v", g.Exits)
	}
	for _, n := range g.Nodes() {
		if n.Kind == NodePseudo {
			t.Fatal("no pseudo nodes should remain after build")
		}
	}
}

// TestBuildIfEmptyElseConditionBecomesExit checks the "if a branch is
// empty, the condition itself is an exit" rule via pseudo elimination.
func TestBuildIfEmptyElseConditionBecomesExit(t *testing.T) {
	pe.ResetIDsForTest()
	cond := pe.NewExpression(pe.ExprSimpleName, 1, 1)
	cond.SetText("ok")
	then := exprStmt(2)

	ifStmt := pe.NewStatement(pe.StmtIf, 1, 2)
	ifStmt.Condition = cond
	ifStmt.Statements = []pe.PE{then}

	m := pe.NewMethod("foo", 1, 3)
	m.Statements = []pe.PE{ifStmt}

	g := Build(m)
	ctrl := g.Node(ifStmt)
	thenNode := g.Node(then)

	if g.Enter != ctrl {
		t.Fatal("enter should be the if statement's control node")
	}
	if !hasControlEdge(ctrl, thenNode, true) {
		t.Fatal("expected a true control edge from condition to then-branch")
	}
	if !g.IsExit(thenNode) {
		t.Fatal("then-branch exit should be a method exit")
	}
	if !g.IsExit(ctrl) {
		t.Fatal("condition itself should be an exit when else is absent")
	}
	if len(g.Exits) != 2 {
		t.Fatalf("want exactly 2 exits, got %d: %v", len(g.Exits), g.Exits)
	}
}

// TestBuildWhileBackEdgeAndExit pins the loop shape: condition true-edge
// into body, body's normal exit flows back to condition, and the
// condition itself is the loop's sole non-break exit.
func TestBuildWhileBackEdgeAndExit(t *testing.T) {
	pe.ResetIDsForTest()
	cond := pe.NewExpression(pe.ExprSimpleName, 1, 1)
	cond.SetText("more")
	body := exprStmt(2)

	whileStmt := pe.NewStatement(pe.StmtWhile, 1, 3)
	whileStmt.Condition = cond
	whileStmt.Statements = []pe.PE{body}

	m := pe.NewMethod("loop", 1, 4)
	m.Statements = []pe.PE{whileStmt}

	g := Build(m)
	ctrl := g.Node(whileStmt)
	bodyNode := g.Node(body)

	if !hasControlEdge(ctrl, bodyNode, true) {
		t.Fatal("expected true control edge into body")
	}
	if !hasEdge(bodyNode, ctrl, EdgeNormal) {
		t.Fatal("expected body's exit to flow back to condition")
	}
	if !g.IsExit(ctrl) || len(g.Exits) != 1 {
		t.Fatalf("want condition as sole exit, got %v", g.Exits)
	}
}

// TestBuildForLoopBreakBecomesExit pins For's "breaks become exits"
// rule: the condition and an unlabeled break are the loop's only exits.
func TestBuildForLoopBreakBecomesExit(t *testing.T) {
	pe.ResetIDsForTest()
	cond := pe.NewExpression(pe.ExprSimpleName, 1, 1)
	cond.SetText("more")
	brk := pe.NewStatement(pe.StmtBreak, 2, 2)

	forStmt := pe.NewStatement(pe.StmtFor, 1, 3)
	forStmt.Condition = cond
	forStmt.Statements = []pe.PE{brk}

	m := pe.NewMethod("loop", 1, 4)
	m.Statements = []pe.PE{forStmt}

	g := Build(m)
	ctrl := g.Node(forStmt)
	brkNode := g.Node(brk)

	if !g.IsExit(ctrl) {
		t.Fatal("the condition is always an exit of a for-loop")
	}
	if !g.IsExit(brkNode) {
		t.Fatal("the unlabeled break should be absorbed as an exit")
	}
	if len(g.Exits) != 2 {
		t.Fatalf("want exactly 2 exits, got %d: %v", len(g.Exits), g.Exits)
	}
}

// TestBuildSwitchCaseTrueEdgeAndBreakExit pins the switch structural
// rules: each Case gets a true-edge from the condition, non-jump
// children chain forward, and a trailing break is absorbed as an exit.
func TestBuildSwitchCaseTrueEdgeAndBreakExit(t *testing.T) {
	pe.ResetIDsForTest()
	caseStmt := pe.NewStatement(pe.StmtCase, 2, 2)
	assign := exprStmt(3)
	brk := pe.NewStatement(pe.StmtBreak, 4, 4)

	selector := pe.NewExpression(pe.ExprSimpleName, 1, 1)
	selector.SetText("k")

	switchStmt := pe.NewStatement(pe.StmtSwitch, 1, 5)
	switchStmt.Condition = selector
	switchStmt.Statements = []pe.PE{caseStmt, assign, brk}

	m := pe.NewMethod("f", 1, 6)
	m.Statements = []pe.PE{switchStmt}

	g := Build(m)
	ctrl := g.Node(switchStmt)
	caseNode := g.Node(caseStmt)
	assignNode := g.Node(assign)
	brkNode := g.Node(brk)

	if !hasControlEdge(ctrl, caseNode, true) {
		t.Fatal("expected true control edge from condition to case")
	}
	if !hasEdge(caseNode, assignNode, EdgeNormal) {
		t.Fatal("expected case to chain forward into the assignment")
	}
	if !hasEdge(assignNode, brkNode, EdgeNormal) {
		t.Fatal("expected the assignment to chain forward into the break")
	}
	if !g.IsExit(brkNode) {
		t.Fatal("the break should be absorbed as the switch's exit")
	}
}

// TestBuildLabeledForBreakTargetsOuterLoop pins scenario 5: a labeled
// break inside a nested for must be absorbed by the outer for, not the
// inner one.
func TestBuildLabeledForBreakTargetsOuterLoop(t *testing.T) {
	pe.ResetIDsForTest()
	innerCond := pe.NewExpression(pe.ExprSimpleName, 2, 2)
	innerCond.SetText("j < 10")
	brk := pe.NewStatement(pe.StmtBreak, 3, 3)
	brk.Expressions = []pe.PE{func() pe.PE {
		e := pe.NewExpression(pe.ExprSimpleName, 3, 3)
		e.SetText("outer")
		return e
	}()}

	ifStmt := pe.NewStatement(pe.StmtIf, 3, 3)
	ifCond := pe.NewExpression(pe.ExprSimpleName, 3, 3)
	ifCond.SetText("cond")
	ifStmt.Condition = ifCond
	ifStmt.Statements = []pe.PE{brk}

	innerFor := pe.NewStatement(pe.StmtFor, 2, 4)
	innerFor.Condition = innerCond
	innerFor.Statements = []pe.PE{ifStmt}

	outerCond := pe.NewExpression(pe.ExprSimpleName, 1, 1)
	outerCond.SetText("i < 10")
	outerFor := pe.NewStatement(pe.StmtFor, 1, 5)
	outerFor.Label = "outer"
	outerFor.Condition = outerCond
	outerFor.Statements = []pe.PE{innerFor}

	m := pe.NewMethod("f", 1, 6)
	m.Statements = []pe.PE{outerFor}

	g := Build(m)
	innerCtrl := g.Node(innerFor)
	brkNode := g.Node(brk)

	if !g.IsExit(brkNode) {
		t.Fatal("labeled break to the outer loop should be an outer-loop exit")
	}
	for _, e := range innerCtrl.BackwardEdges() {
		if e.From == brkNode {
			t.Fatal("the inner loop must not claim a break labeled for the outer loop")
		}
	}
}
