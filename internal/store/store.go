// Package store persists computed CFG/PDG/metrics graphs to a SQLite
// database: one run per WriteRun call, accumulating into the same file
// across repeated invocations so a database can hold a history of
// analysis passes rather than just the latest one.
package store

import (
	"fmt"
	"os"
	"strconv"

	"github.com/google/uuid"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"pdgtool/internal/cfg"
	"pdgtool/internal/gitmeta"
	"pdgtool/internal/metrics"
	"pdgtool/internal/pdg"
	"pdgtool/internal/pe"
	"pdgtool/internal/progress"
)

// Writer holds the SQLite connection a sequence of WriteRun calls write
// into.
type Writer struct {
	conn *sqlite.Conn
}

// Open creates (if absent) and opens path, applying the same
// performance pragmas as a typical bulk-write SQLite setup before laying
// down the schema on first use.
func Open(path string) (*Writer, error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate, sqlite.OpenReadWrite, sqlite.OpenWAL)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA mmap_size = 268435456",
		"PRAGMA cache_size = -64000",
		"PRAGMA journal_mode = WAL",
	} {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	var exists bool
	if err := sqlitex.ExecuteTransient(conn,
		`SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = 'analysis_runs'`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error { exists = true; return nil },
		}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("probe schema: %w", err)
	}
	if !exists {
		if err := createTables(conn); err != nil {
			_ = conn.Close()
			return nil, err
		}
		if err := createIndexes(conn); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}

	return &Writer{conn: conn}, nil
}

// Close closes the underlying connection.
func (w *Writer) Close() error { return w.conn.Close() }

// MethodGraph bundles one method's computed graphs and metrics for a
// single WriteRun call. CFG may be nil when only a DDG/PDG was built
// (the pdgcli "-t ddg" path never builds a CFG of its own).
type MethodGraph struct {
	File    string
	Method  *pe.Method
	CFG     *cfg.CFG
	PDG     *pdg.PDG
	Metrics *metrics.MethodMetrics
}

// WriteRun persists one analysis run's method graphs under a freshly
// minted run id, returning it. churn may be nil when git history wasn't
// requested.
func (w *Writer) WriteRun(sourceCount int, graphs []MethodGraph, churn []gitmeta.FileHistory, prog *progress.Progress) (string, error) {
	runID := uuid.NewString()

	endFn, err := sqlitex.ImmediateTransaction(w.conn)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}

	if err = insertRun(w.conn, runID, sourceCount, len(graphs)); err != nil {
		endFn(&err)
		return "", err
	}
	for _, g := range graphs {
		if err = w.writeMethod(runID, g); err != nil {
			endFn(&err)
			return "", err
		}
	}
	if err = insertFileChurn(w.conn, churn); err != nil {
		endFn(&err)
		return "", err
	}

	endFn(&err)
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	prog.Log("Persisted %d methods to run %s", len(graphs), runID)
	return runID, nil
}

func nodeID(runID string, peID int) string {
	return runID + "/" + strconv.Itoa(peID)
}

func insertRun(conn *sqlite.Conn, runID string, sourceCount, methodCount int) error {
	stmt, err := conn.Prepare(`INSERT INTO analysis_runs (id, started_at, source_count, method_count) VALUES (?, datetime('now'), ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare run insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	stmt.BindText(1, runID)
	stmt.BindInt64(2, int64(sourceCount))
	stmt.BindInt64(3, int64(methodCount))
	if _, err := stmt.Step(); err != nil {
		return fmt.Errorf("insert run %s: %w", runID, err)
	}
	return nil
}

func (w *Writer) writeMethod(runID string, g MethodGraph) error {
	methodID := nodeID(runID, g.Method.ID())
	start, end := g.Method.Span()

	var loc, complexity, numParams int
	if g.Metrics != nil {
		loc, complexity, numParams = g.Metrics.LOC, g.Metrics.CyclomaticComplexity, g.Metrics.NumParams
	} else {
		loc, numParams = end-start+1, len(g.Method.Parameters)
	}

	if err := insertMethod(w.conn, methodID, runID, g.File, g.Method.Name, start, end, numParams, loc, complexity); err != nil {
		return err
	}

	if g.CFG != nil {
		if err := insertCFGNodes(w.conn, runID, methodID, g.CFG); err != nil {
			return err
		}
		if err := insertCFGEdges(w.conn, runID, methodID, g.CFG); err != nil {
			return err
		}
	}
	if g.PDG != nil {
		if err := insertPDGNodes(w.conn, runID, methodID, g.PDG); err != nil {
			return err
		}
		if err := insertPDGEdges(w.conn, runID, methodID, g.PDG); err != nil {
			return err
		}
		if err := insertVariables(w.conn, methodID, g.Method, g.PDG); err != nil {
			return err
		}
	}
	return nil
}

func insertMethod(conn *sqlite.Conn, id, runID, file, name string, start, end, numParams, loc, complexity int) error {
	stmt, err := conn.Prepare(`INSERT INTO methods (id, run_id, file, name, start_line, end_line, num_params, loc, cyclomatic_complexity) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare method insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	stmt.BindText(1, id)
	stmt.BindText(2, runID)
	stmt.BindText(3, file)
	stmt.BindText(4, name)
	stmt.BindInt64(5, int64(start))
	stmt.BindInt64(6, int64(end))
	stmt.BindInt64(7, int64(numParams))
	stmt.BindInt64(8, int64(loc))
	stmt.BindInt64(9, int64(complexity))
	if _, err := stmt.Step(); err != nil {
		return fmt.Errorf("insert method %s: %w", name, err)
	}
	return nil
}

func insertPDGNodes(conn *sqlite.Conn, runID, methodID string, g *pdg.PDG) error {
	stmt, err := conn.Prepare(`INSERT OR IGNORE INTO pe_nodes (id, method_id, node_kind, category, start_line, end_line, text) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare node insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for _, n := range g.Nodes() {
		start, end := n.PE.Span()
		stmt.BindText(1, nodeID(runID, n.PE.ID()))
		stmt.BindText(2, methodID)
		stmt.BindText(3, pdgNodeKindLabel(n.Kind))
		stmt.BindText(4, pe.CategoryLabel(n.PE))
		stmt.BindInt64(5, int64(start))
		stmt.BindInt64(6, int64(end))
		bindTextOrNull(stmt, 7, n.PE.Text())
		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert pdg node: %w", err)
		}
		_ = stmt.Reset()
	}
	return nil
}

func insertCFGNodes(conn *sqlite.Conn, runID, methodID string, g *cfg.CFG) error {
	stmt, err := conn.Prepare(`INSERT OR IGNORE INTO pe_nodes (id, method_id, node_kind, category, start_line, end_line, text) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare node insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for _, n := range g.Nodes() {
		if n.PE == nil {
			continue
		}
		start, end := n.PE.Span()
		stmt.BindText(1, nodeID(runID, n.PE.ID()))
		stmt.BindText(2, methodID)
		stmt.BindText(3, cfgNodeKindLabel(n.Kind))
		stmt.BindText(4, pe.CategoryLabel(n.PE))
		stmt.BindInt64(5, int64(start))
		stmt.BindInt64(6, int64(end))
		bindTextOrNull(stmt, 7, n.PE.Text())
		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert cfg node: %w", err)
		}
		_ = stmt.Reset()
	}
	return nil
}

func insertCFGEdges(conn *sqlite.Conn, runID, methodID string, g *cfg.CFG) error {
	stmt, err := conn.Prepare(`INSERT INTO cfg_edges (method_id, source_node_id, target_node_id, kind) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare cfg edge insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for _, n := range g.Nodes() {
		if n.PE == nil {
			continue
		}
		for _, e := range n.ForwardEdges() {
			if e.From.PE == nil || e.To.PE == nil {
				continue
			}
			stmt.BindText(1, methodID)
			stmt.BindText(2, nodeID(runID, e.From.PE.ID()))
			stmt.BindText(3, nodeID(runID, e.To.PE.ID()))
			stmt.BindText(4, cfgEdgeKindLabel(e.Kind))
			if _, err := stmt.Step(); err != nil {
				return fmt.Errorf("insert cfg edge: %w", err)
			}
			_ = stmt.Reset()
		}
	}
	return nil
}

func insertPDGEdges(conn *sqlite.Conn, runID, methodID string, g *pdg.PDG) error {
	stmt, err := conn.Prepare(`INSERT INTO pdg_edges (method_id, source_node_id, target_node_id, kind, label, variable) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare pdg edge insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for _, n := range g.Nodes() {
		for _, e := range n.ForwardEdges() {
			stmt.BindText(1, methodID)
			stmt.BindText(2, nodeID(runID, e.From.PE.ID()))
			stmt.BindText(3, nodeID(runID, e.To.PE.ID()))
			stmt.BindText(4, pdgEdgeKindLabel(e.Kind))
			if e.Kind == pdg.EdgeControl {
				stmt.BindInt64(5, boolToInt64(e.Label))
			} else {
				stmt.BindNull(5)
			}
			bindTextOrNull(stmt, 6, e.Variable)
			if _, err := stmt.Step(); err != nil {
				return fmt.Errorf("insert pdg edge: %w", err)
			}
			_ = stmt.Reset()
		}
	}
	return nil
}

// insertVariables records each method parameter and every distinct
// variable name carried by a data edge. Scope-tree position isn't
// reachable from a built PDG's own node/edge set, so scope_line is only
// ever a parameter's own declaration line; everything else is left NULL
// rather than guessed at.
func insertVariables(conn *sqlite.Conn, methodID string, m *pe.Method, g *pdg.PDG) error {
	stmt, err := conn.Prepare(`INSERT INTO variables (method_id, name, is_parameter, scope_line) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare variable insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	paramLine := make(map[string]int, len(m.Parameters))
	for _, p := range m.Parameters {
		start, _ := p.Span()
		paramLine[p.Name] = start
	}
	for name, line := range paramLine {
		stmt.BindText(1, methodID)
		stmt.BindText(2, name)
		stmt.BindInt64(3, 1)
		stmt.BindInt64(4, int64(line))
		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert variable %s: %w", name, err)
		}
		_ = stmt.Reset()
	}

	seen := make(map[string]bool)
	for _, n := range g.Nodes() {
		for _, e := range n.ForwardEdges() {
			if e.Kind != pdg.EdgeData || e.Variable == "" {
				continue
			}
			if _, isParam := paramLine[e.Variable]; isParam || seen[e.Variable] {
				continue
			}
			seen[e.Variable] = true
			stmt.BindText(1, methodID)
			stmt.BindText(2, e.Variable)
			stmt.BindInt64(3, 0)
			stmt.BindNull(4)
			if _, err := stmt.Step(); err != nil {
				return fmt.Errorf("insert variable %s: %w", e.Variable, err)
			}
			_ = stmt.Reset()
		}
	}
	return nil
}

func insertFileChurn(conn *sqlite.Conn, churn []gitmeta.FileHistory) error {
	if len(churn) == 0 {
		return nil
	}
	stmt, err := conn.Prepare(`INSERT OR REPLACE INTO file_churn (file, commit_count, author_count, last_author, last_date, insertions, deletions) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare churn insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for _, h := range churn {
		stmt.BindText(1, h.RelFile)
		stmt.BindInt64(2, int64(h.CommitCount))
		stmt.BindInt64(3, int64(h.AuthorCount))
		bindTextOrNull(stmt, 4, h.LastAuthor)
		bindTextOrNull(stmt, 5, h.LastDate)
		stmt.BindInt64(6, int64(h.Insertions))
		stmt.BindInt64(7, int64(h.Deletions))
		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert churn for %s: %w", h.RelFile, err)
		}
		_ = stmt.Reset()
	}
	return nil
}

// WriteSource persists file's raw text (whatever cmd/pdgcli read from
// disk for analysis) so pdgserver's "GET /api/source" can serve it back
// without needing its own copy of the analyzed tree.
func (w *Writer) WriteSource(file, content string) error {
	stmt, err := w.conn.Prepare(`INSERT OR REPLACE INTO sources (file, content) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare source insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	stmt.BindText(1, file)
	stmt.BindText(2, content)
	if _, err := stmt.Step(); err != nil {
		return fmt.Errorf("insert source %s: %w", file, err)
	}
	return nil
}

func bindTextOrNull(stmt *sqlite.Stmt, param int, val string) {
	if val == "" {
		stmt.BindNull(param)
	} else {
		stmt.BindText(param, val)
	}
}

func boolToInt64(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func cfgNodeKindLabel(k cfg.NodeKind) string {
	switch k {
	case cfg.NodeNormal:
		return "normal"
	case cfg.NodeControl:
		return "control"
	case cfg.NodePseudo:
		return "pseudo"
	case cfg.NodeBreak:
		return "break"
	case cfg.NodeContinue:
		return "continue"
	case cfg.NodeSwitchCase:
		return "switch_case"
	default:
		return "unknown"
	}
}

func cfgEdgeKindLabel(k cfg.EdgeKind) string {
	switch k {
	case cfg.EdgeNormal:
		return "normal"
	case cfg.EdgeControl:
		return "control"
	case cfg.EdgeJump:
		return "jump"
	default:
		return "unknown"
	}
}

func pdgNodeKindLabel(k pdg.NodeKind) string {
	switch k {
	case pdg.NodeNormal:
		return "normal"
	case pdg.NodeControl:
		return "control"
	case pdg.NodeParameter:
		return "parameter"
	default:
		return "unknown"
	}
}

func pdgEdgeKindLabel(k pdg.EdgeKind) string {
	switch k {
	case pdg.EdgeData:
		return "data"
	case pdg.EdgeControl:
		return "control"
	case pdg.EdgeExecution:
		return "execution"
	default:
		return "unknown"
	}
}

// FileExists reports whether path already names a file.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
