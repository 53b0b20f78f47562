package main

// SQL aligned with internal/store's schema.

const querySearchMethods = `
SELECT id, run_id, file, name, start_line, end_line, num_params, loc, cyclomatic_complexity
FROM methods
WHERE name LIKE ? OR file LIKE ?
ORDER BY file, start_line
LIMIT ?
`

const queryMethodByID = `
SELECT id, run_id, file, name, start_line, end_line, num_params, loc, cyclomatic_complexity
FROM methods
WHERE id = ?
`

const queryNodesByMethod = `
SELECT id, node_kind, category, start_line, end_line, text
FROM pe_nodes
WHERE method_id = ?
ORDER BY start_line
`

const queryCFGEdgesByMethod = `
SELECT source_node_id, target_node_id, kind
FROM cfg_edges
WHERE method_id = ?
`

const queryPDGEdgesByMethod = `
SELECT source_node_id, target_node_id, kind, label, variable
FROM pdg_edges
WHERE method_id = ?
`

const queryPDGDataEdgesByMethod = `
SELECT source_node_id, target_node_id, kind, label, variable
FROM pdg_edges
WHERE method_id = ? AND kind = 'data'
`

const querySourceByFile = `SELECT file, content FROM sources WHERE file = ?`

const defaultMethodSearchLimit = 200
