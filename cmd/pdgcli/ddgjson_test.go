package main

import (
	"testing"

	"pdgtool/internal/defuse"
	"pdgtool/internal/driver"
	"pdgtool/internal/pdg"
	"pdgtool/internal/pe"
	"pdgtool/internal/scope"
)

func newManager(owners map[int]pe.PE) *scope.Manager {
	return scope.NewManager(func(block pe.PE) (pe.PE, bool) {
		o, ok := owners[block.ID()]
		return o, ok
	})
}

// defUseMethod builds "void f(int x) { x = x; return x; }" so x is
// defined by a parameter, redefined by an assignment, and used twice.
func defUseMethod(owners map[int]pe.PE) *pe.Method {
	method := pe.NewMethod("f", 1, 3)
	method.Parameters = []*pe.VariableDeclaration{
		pe.NewVariableDeclaration(pe.VarDeclParameter, "int", "x", 1, 1),
	}

	lhs := pe.NewExpression(pe.ExprSimpleName, 2, 2)
	lhs.SetText("x")
	rhs := pe.NewExpression(pe.ExprSimpleName, 2, 2)
	rhs.SetText("x")
	assign := pe.NewExpression(pe.ExprAssignment, 2, 2)
	assign.Expressions = []pe.PE{lhs, rhs}
	assignStmt := pe.NewStatement(pe.StmtExpression, 2, 2)
	assignStmt.Expressions = []pe.PE{assign}
	assignStmt.OwnerBlock = method

	ref := pe.NewExpression(pe.ExprSimpleName, 3, 3)
	ref.SetText("x")
	retStmt := pe.NewStatement(pe.StmtReturn, 3, 3)
	retStmt.Expressions = []pe.PE{ref}
	retStmt.OwnerBlock = method

	owners[assignStmt.ID()] = method
	owners[retStmt.ID()] = method
	method.Statements = []pe.PE{assignStmt, retStmt}
	return method
}

func TestBuildDefUseJSONMergesVariableAcrossDefsAndUses(t *testing.T) {
	pe.ResetIDsForTest()
	owners := map[int]pe.PE{}
	method := defUseMethod(owners)

	mgr := newManager(owners)
	analyzer := defuse.NewAnalyzer(mgr)
	g := pdg.Build(method, analyzer, pdg.DataOnlyOptions())

	out := buildDefUseJSON(driver.MethodPDG{Method: method, PDG: g, Analyzer: analyzer})

	if len(out.VariableJsons) != 1 {
		t.Fatalf("want 1 variable, got %d: %+v", len(out.VariableJsons), out.VariableJsons)
	}
	v := out.VariableJsons[0]
	if v.Name != "x" {
		t.Fatalf("want variable x, got %s", v.Name)
	}
	if len(v.DefStmtLineNumbers) == 0 {
		t.Fatal("expected at least one def line for x")
	}
	if len(v.UseStmtLineNumbers) == 0 {
		t.Fatal("expected at least one use line for x")
	}
	for i := 1; i < len(v.DefStmtLineNumbers); i++ {
		if v.DefStmtLineNumbers[i-1] >= v.DefStmtLineNumbers[i] {
			t.Fatalf("def lines not sorted/unique: %v", v.DefStmtLineNumbers)
		}
	}
}

func TestBuildDefUseJSONOmitsEntryAndParameterNodes(t *testing.T) {
	pe.ResetIDsForTest()
	owners := map[int]pe.PE{}
	method := pe.NewMethod("f", 1, 1)
	method.Parameters = []*pe.VariableDeclaration{
		pe.NewVariableDeclaration(pe.VarDeclParameter, "int", "x", 1, 1),
	}

	mgr := newManager(owners)
	analyzer := defuse.NewAnalyzer(mgr)
	g := pdg.Build(method, analyzer, pdg.DataOnlyOptions())

	out := buildDefUseJSON(driver.MethodPDG{Method: method, PDG: g, Analyzer: analyzer})

	if len(out.VariableJsons) != 0 {
		t.Fatalf("expected no variables when the parameter's own node is skipped, got %+v", out.VariableJsons)
	}
}

func TestAppendUniqueLineDeduplicates(t *testing.T) {
	lines := appendUniqueLine(nil, 5)
	lines = appendUniqueLine(lines, 7)
	lines = appendUniqueLine(lines, 5)

	if len(lines) != 2 {
		t.Fatalf("want 2 unique lines, got %v", lines)
	}
}

func TestMethodKeyFormatsNameHashStartLine(t *testing.T) {
	pe.ResetIDsForTest()
	method := pe.NewMethod("compute", 10, 20)

	if got, want := methodKey(method), "compute#10"; got != want {
		t.Fatalf("methodKey = %q, want %q", got, want)
	}
}
