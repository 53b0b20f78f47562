package store

import (
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const createTablesDDL = `
CREATE TABLE analysis_runs (
    id TEXT PRIMARY KEY,
    started_at TEXT NOT NULL,
    source_count INTEGER NOT NULL,
    method_count INTEGER NOT NULL
);

CREATE TABLE methods (
    id TEXT PRIMARY KEY,
    run_id TEXT NOT NULL,
    file TEXT NOT NULL,
    name TEXT NOT NULL,
    start_line INTEGER NOT NULL,
    end_line INTEGER NOT NULL,
    num_params INTEGER NOT NULL,
    loc INTEGER NOT NULL,
    cyclomatic_complexity INTEGER NOT NULL
);

CREATE TABLE pe_nodes (
    id TEXT PRIMARY KEY,
    method_id TEXT NOT NULL,
    node_kind TEXT NOT NULL,
    category TEXT NOT NULL,
    start_line INTEGER NOT NULL,
    end_line INTEGER NOT NULL,
    text TEXT
);

CREATE TABLE cfg_edges (
    method_id TEXT NOT NULL,
    source_node_id TEXT NOT NULL,
    target_node_id TEXT NOT NULL,
    kind TEXT NOT NULL
);

CREATE TABLE pdg_edges (
    method_id TEXT NOT NULL,
    source_node_id TEXT NOT NULL,
    target_node_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    label INTEGER,
    variable TEXT
);

CREATE TABLE variables (
    method_id TEXT NOT NULL,
    name TEXT NOT NULL,
    is_parameter INTEGER NOT NULL,
    scope_line INTEGER
);

CREATE TABLE file_churn (
    file TEXT PRIMARY KEY,
    commit_count INTEGER,
    author_count INTEGER,
    last_author TEXT,
    last_date TEXT,
    insertions INTEGER,
    deletions INTEGER
);

CREATE TABLE sources (
    file TEXT PRIMARY KEY,
    content TEXT NOT NULL
);
`

const createIndexesDDL = `
CREATE INDEX idx_methods_run ON methods(run_id);
CREATE INDEX idx_pe_nodes_method ON pe_nodes(method_id);
CREATE INDEX idx_cfg_edges_method ON cfg_edges(method_id);
CREATE INDEX idx_cfg_edges_source ON cfg_edges(source_node_id);
CREATE INDEX idx_pdg_edges_method ON pdg_edges(method_id);
CREATE INDEX idx_pdg_edges_source ON pdg_edges(source_node_id);
CREATE INDEX idx_variables_method ON variables(method_id);
`

func createTables(conn *sqlite.Conn) error {
	return sqlitex.ExecuteScript(conn, createTablesDDL, nil)
}

func createIndexes(conn *sqlite.Conn) error {
	return sqlitex.ExecuteScript(conn, createIndexesDDL, nil)
}
