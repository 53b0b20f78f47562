package metrics

import (
	"testing"

	"pdgtool/internal/pe"
)

func exprStmt(line int, e *pe.Expression) *pe.Statement {
	s := pe.NewStatement(pe.StmtExpression, line, line)
	s.Expressions = []pe.PE{e}
	return s
}

func call(line int, apiName string) *pe.Expression {
	e := pe.NewExpression(pe.ExprMethodInvocation, line, line)
	e.MethodName = "m"
	e.APIName = apiName
	return e
}

// TestComputeBaseComplexityIsOne pins the "decision points + 1" rule for
// a straight-line method with no branches.
func TestComputeBaseComplexityIsOne(t *testing.T) {
	pe.ResetIDsForTest()
	m := pe.NewMethod("f", 1, 3)
	m.Statements = []pe.PE{exprStmt(2, call(2, "a.b()"))}

	mm := Compute(m)
	if mm.CyclomaticComplexity != 1 {
		t.Fatalf("want complexity 1, got %d", mm.CyclomaticComplexity)
	}
	if mm.LOC != 3 {
		t.Fatalf("want LOC 3, got %d", mm.LOC)
	}
}

// TestComputeCountsBranchesAndShortCircuits pins an if/while/&&-laden
// method's complexity: base 1, plus one per If/While, plus one per
// short-circuit Infix.
func TestComputeCountsBranchesAndShortCircuits(t *testing.T) {
	pe.ResetIDsForTest()

	cond := pe.NewExpression(pe.ExprInfix, 1, 1)
	cond.OperatorToken = "&&"
	left := pe.NewExpression(pe.ExprSimpleName, 1, 1)
	left.SetText("ok")
	right := pe.NewExpression(pe.ExprSimpleName, 1, 1)
	right.SetText("ready")
	cond.Expressions = []pe.PE{left, right}

	ifStmt := pe.NewStatement(pe.StmtIf, 1, 2)
	ifStmt.Condition = cond
	ifStmt.Statements = []pe.PE{exprStmt(2, call(2, "a.b()"))}

	whileCond := pe.NewExpression(pe.ExprSimpleName, 3, 3)
	whileCond.SetText("more")
	whileStmt := pe.NewStatement(pe.StmtWhile, 3, 4)
	whileStmt.Condition = whileCond
	whileStmt.Statements = []pe.PE{exprStmt(4, call(4, "a.c()"))}

	m := pe.NewMethod("f", 1, 5)
	m.Statements = []pe.PE{ifStmt, whileStmt}

	mm := Compute(m)
	// base 1 + If + While + && = 4
	if mm.CyclomaticComplexity != 4 {
		t.Fatalf("want complexity 4, got %d", mm.CyclomaticComplexity)
	}
}

// TestComputeTalliesCallSitesByAPIName pins the intraprocedural
// call-site census: repeated calls to the same apiName accumulate.
func TestComputeTalliesCallSitesByAPIName(t *testing.T) {
	pe.ResetIDsForTest()

	m := pe.NewMethod("f", 1, 4)
	m.Statements = []pe.PE{
		exprStmt(2, call(2, "Logger.info()")),
		exprStmt(3, call(3, "Logger.info()")),
		exprStmt(4, call(4, "Logger.warn()")),
	}

	mm := Compute(m)
	if mm.CallSites["Logger.info()"] != 2 {
		t.Fatalf("want 2 calls to Logger.info(), got %d", mm.CallSites["Logger.info()"])
	}
	if mm.CallSites["Logger.warn()"] != 1 {
		t.Fatalf("want 1 call to Logger.warn(), got %d", mm.CallSites["Logger.warn()"])
	}
}

// TestComputeNumParamsMatchesDeclaredParameters pins NumParams.
func TestComputeNumParamsMatchesDeclaredParameters(t *testing.T) {
	pe.ResetIDsForTest()
	m := pe.NewMethod("f", 1, 1)
	m.Parameters = []*pe.VariableDeclaration{
		pe.NewVariableDeclaration(pe.VarDeclParameter, "int", "x", 1, 1),
		pe.NewVariableDeclaration(pe.VarDeclParameter, "int", "y", 1, 1),
	}

	mm := Compute(m)
	if mm.NumParams != 2 {
		t.Fatalf("want 2 params, got %d", mm.NumParams)
	}
}
