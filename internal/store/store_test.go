package store

import (
	"testing"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"pdgtool/internal/cfg"
	"pdgtool/internal/defuse"
	"pdgtool/internal/gitmeta"
	"pdgtool/internal/metrics"
	"pdgtool/internal/pdg"
	"pdgtool/internal/pe"
	"pdgtool/internal/progress"
	"pdgtool/internal/scope"
)

func newManager(owners map[int]pe.PE) *scope.Manager {
	return scope.NewManager(func(block pe.PE) (pe.PE, bool) {
		o, ok := owners[block.ID()]
		return o, ok
	})
}

// oneParamMethod builds "void f(int x) { return x; }" with x's single
// use wired as the method's only statement.
func oneParamMethod(owners map[int]pe.PE) *pe.Method {
	method := pe.NewMethod("f", 1, 2)
	method.Parameters = []*pe.VariableDeclaration{
		pe.NewVariableDeclaration(pe.VarDeclParameter, "int", "x", 1, 1),
	}
	ref := pe.NewExpression(pe.ExprSimpleName, 2, 2)
	ref.SetText("x")
	ret := pe.NewStatement(pe.StmtReturn, 2, 2)
	ret.Expressions = []pe.PE{ref}
	ret.OwnerBlock = method
	owners[ret.ID()] = method
	method.Statements = []pe.PE{ret}
	return method
}

func TestOpenCreatesSchemaOnlyOnce(t *testing.T) {
	w, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = w.Close() }()

	// A second pass over the same connection must not attempt to
	// recreate tables that already exist.
	if err := createTables(w.conn); err == nil {
		t.Fatal("expected duplicate CREATE TABLE to fail on an already-open schema")
	}
}

func TestWriteRunPersistsMethodNodesAndEdges(t *testing.T) {
	pe.ResetIDsForTest()
	owners := map[int]pe.PE{}
	method := oneParamMethod(owners)

	mgr := newManager(owners)
	analyzer := defuse.NewAnalyzer(mgr)
	g := pdg.Build(method, analyzer, pdg.FullOptions())
	c := cfg.Build(method)
	mm := metrics.Compute(method)

	w, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = w.Close() }()

	graphs := []MethodGraph{{File: "f.src", Method: method, CFG: c, PDG: g, Metrics: mm}}
	runID, err := w.WriteRun(1, graphs, nil, progress.New(false))
	if err != nil {
		t.Fatalf("WriteRun: %v", err)
	}
	if runID == "" {
		t.Fatal("expected a non-empty run id")
	}

	var methodCount int
	if err := execCount(w, `SELECT count(*) FROM methods WHERE run_id = ?`, runID, &methodCount); err != nil {
		t.Fatalf("count methods: %v", err)
	}
	if methodCount != 1 {
		t.Fatalf("want 1 persisted method, got %d", methodCount)
	}

	var paramCount int
	if err := execCount(w, `SELECT count(*) FROM variables WHERE is_parameter = 1`, "", &paramCount); err != nil {
		t.Fatalf("count parameters: %v", err)
	}
	if paramCount != 1 {
		t.Fatalf("want 1 parameter variable row, got %d", paramCount)
	}

	var edgeCount int
	if err := execCount(w, `SELECT count(*) FROM pdg_edges WHERE kind = 'data'`, "", &edgeCount); err != nil {
		t.Fatalf("count data edges: %v", err)
	}
	if edgeCount == 0 {
		t.Fatal("expected at least one persisted data edge")
	}
}

func TestWriteRunPersistsFileChurn(t *testing.T) {
	w, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = w.Close() }()

	churn := []gitmeta.FileHistory{
		{RelFile: "a.src", CommitCount: 4, AuthorCount: 2, LastAuthor: "dev", LastDate: "2026-01-01T00:00:00Z"},
	}
	if _, err := w.WriteRun(1, nil, churn, progress.New(false)); err != nil {
		t.Fatalf("WriteRun: %v", err)
	}

	var count int
	if err := execCount(w, `SELECT count(*) FROM file_churn WHERE file = 'a.src'`, "", &count); err != nil {
		t.Fatalf("count churn: %v", err)
	}
	if count != 1 {
		t.Fatalf("want 1 churn row, got %d", count)
	}
}

func TestWriteSourcePersistsAndReplacesContent(t *testing.T) {
	w, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = w.Close() }()

	if err := w.WriteSource("f.json", `{"category":"CompilationUnit"}`); err != nil {
		t.Fatalf("WriteSource: %v", err)
	}
	if err := w.WriteSource("f.json", `{"category":"CompilationUnit","text":"v2"}`); err != nil {
		t.Fatalf("WriteSource (replace): %v", err)
	}

	var count int
	if err := execCount(w, `SELECT count(*) FROM sources WHERE file = 'f.json'`, "", &count); err != nil {
		t.Fatalf("count sources: %v", err)
	}
	if count != 1 {
		t.Fatalf("want 1 source row after replace, got %d", count)
	}

	var content string
	err = sqlitex.ExecuteTransient(w.conn, `SELECT content FROM sources WHERE file = 'f.json'`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			content = stmt.ColumnText(0)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("select content: %v", err)
	}
	if content != `{"category":"CompilationUnit","text":"v2"}` {
		t.Fatalf("want replaced content, got %q", content)
	}
}

// execCount runs a single-column COUNT(*) query, binding arg as the
// query's sole "?" placeholder when non-empty, and writes the result
// into out.
func execCount(w *Writer, query string, arg string, out *int) error {
	var args []any
	if arg != "" {
		args = []any{arg}
	}
	return sqlitex.ExecuteTransient(w.conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			*out = stmt.ColumnInt(0)
			return nil
		},
	})
}
