package main

import (
	"database/sql"
	"encoding/json"
)

// nullStringJSON marshals as a string or null, for columns left NULL by
// the writer (e.g. a pe_nodes row with no source text).
type nullStringJSON struct{ sql.NullString }

func (n nullStringJSON) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.String)
}

// nullBoolJSON marshals as a bool or null, for pdg_edges.label which is
// only set on control edges.
type nullBoolJSON struct {
	Valid bool
	Value bool
}

func (n nullBoolJSON) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// DB wraps *sql.DB with the read-only query helpers the API handlers
// need.
type DB struct {
	*sql.DB
}

// NewDB returns a DB wrapper.
func NewDB(db *sql.DB) *DB {
	return &DB{db}
}

// MethodSummary is one row of a method listing.
type MethodSummary struct {
	ID                   string `json:"id"`
	RunID                string `json:"runId"`
	File                 string `json:"file"`
	Name                 string `json:"name"`
	StartLine            int    `json:"startLine"`
	EndLine              int    `json:"endLine"`
	NumParams            int    `json:"numParams"`
	LOC                  int    `json:"loc"`
	CyclomaticComplexity int    `json:"cyclomaticComplexity"`
}

// SearchMethods finds methods whose name or file matches q as a
// substring, newest-run-agnostic (callers filter by run themselves if
// they care). An empty q matches everything.
func (d *DB) SearchMethods(q string, limit int) ([]MethodSummary, error) {
	if limit <= 0 {
		limit = defaultMethodSearchLimit
	}
	like := "%" + q + "%"
	rows, err := d.Query(querySearchMethods, like, like, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MethodSummary
	for rows.Next() {
		var m MethodSummary
		if err := rows.Scan(&m.ID, &m.RunID, &m.File, &m.Name, &m.StartLine, &m.EndLine, &m.NumParams, &m.LOC, &m.CyclomaticComplexity); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (d *DB) methodByID(id string) (*MethodSummary, error) {
	var m MethodSummary
	row := d.QueryRow(queryMethodByID, id)
	if err := row.Scan(&m.ID, &m.RunID, &m.File, &m.Name, &m.StartLine, &m.EndLine, &m.NumParams, &m.LOC, &m.CyclomaticComplexity); err != nil {
		return nil, err
	}
	return &m, nil
}

// GraphNode is one pe_nodes row, shaped for JSON.
type GraphNode struct {
	ID        string         `json:"id"`
	Kind      string         `json:"kind"`
	Category  string         `json:"category"`
	StartLine int            `json:"startLine"`
	EndLine   int            `json:"endLine"`
	Text      nullStringJSON `json:"text"`
}

// GraphEdge is one cfg_edges or pdg_edges row, shaped for JSON. Label
// and Variable are only populated for PDG control/data edges.
type GraphEdge struct {
	Source   string         `json:"source"`
	Target   string         `json:"target"`
	Kind     string         `json:"kind"`
	Label    nullBoolJSON   `json:"label,omitempty"`
	Variable nullStringJSON `json:"variable,omitempty"`
}

// MethodGraph bundles a method's node/edge set for one of the CFG/DDG/PDG
// endpoints.
type MethodGraph struct {
	Method *MethodSummary `json:"method"`
	Nodes  []GraphNode    `json:"nodes"`
	Edges  []GraphEdge    `json:"edges"`
}

func (d *DB) nodesByMethod(methodID string) ([]GraphNode, error) {
	rows, err := d.Query(queryNodesByMethod, methodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GraphNode
	for rows.Next() {
		var n GraphNode
		if err := rows.Scan(&n.ID, &n.Kind, &n.Category, &n.StartLine, &n.EndLine, &n.Text.NullString); err != nil {
			return nil, err
		}
		n.Text.Valid = n.Text.NullString.Valid
		out = append(out, n)
	}
	return out, rows.Err()
}

// CFG returns methodID's control flow graph.
func (d *DB) CFG(methodID string) (*MethodGraph, error) {
	m, err := d.methodByID(methodID)
	if err != nil {
		return nil, err
	}
	nodes, err := d.nodesByMethod(methodID)
	if err != nil {
		return nil, err
	}
	rows, err := d.Query(queryCFGEdgesByMethod, methodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []GraphEdge
	for rows.Next() {
		var e GraphEdge
		if err := rows.Scan(&e.Source, &e.Target, &e.Kind); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &MethodGraph{Method: m, Nodes: nodes, Edges: edges}, nil
}

// pdgGraph is shared by DDG (data edges only) and PDG (every edge kind).
func (d *DB) pdgGraph(methodID, query string) (*MethodGraph, error) {
	m, err := d.methodByID(methodID)
	if err != nil {
		return nil, err
	}
	nodes, err := d.nodesByMethod(methodID)
	if err != nil {
		return nil, err
	}
	rows, err := d.Query(query, methodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []GraphEdge
	for rows.Next() {
		var e GraphEdge
		var label sql.NullBool
		if err := rows.Scan(&e.Source, &e.Target, &e.Kind, &label, &e.Variable.NullString); err != nil {
			return nil, err
		}
		e.Label = nullBoolJSON{Valid: label.Valid, Value: label.Bool}
		e.Variable.Valid = e.Variable.NullString.Valid
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &MethodGraph{Method: m, Nodes: nodes, Edges: edges}, nil
}

// DDG returns methodID's data-dependency-only graph.
func (d *DB) DDG(methodID string) (*MethodGraph, error) {
	return d.pdgGraph(methodID, queryPDGDataEdgesByMethod)
}

// PDG returns methodID's full program dependency graph.
func (d *DB) PDG(methodID string) (*MethodGraph, error) {
	return d.pdgGraph(methodID, queryPDGEdgesByMethod)
}

// Source returns file's stored content.
func (d *DB) Source(file string) (string, error) {
	var content string
	row := d.QueryRow(querySourceByFile, file)
	if err := row.Scan(&file, &content); err != nil {
		return "", err
	}
	return content, nil
}
