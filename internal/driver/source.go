// Package driver orchestrates lowering, CFG construction, and PDG
// construction for every method in a compilation unit (C7), on top of a
// small cache that spares repeat callers the cost of re-lowering the
// same source text, and a bounded fan-out for analyzing many
// compilation units at once.
package driver

import (
	"bytes"

	"pdgtool/internal/lower"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Source is one compilation unit: its path (for diagnostics and
// file-churn lookups), its raw text (the cache key, decoded as UTF-8
// and BOM-tolerant), and its already-parsed AST root. Parsing real
// source text into an AST is an external collaborator's job; Root is
// supplied by whatever upstream produced it.
type Source struct {
	Path string
	Text string
	Root lower.Node
}

// NewSource builds a Source, stripping a leading UTF-8 byte-order mark
// from text if present.
func NewSource(path, text string, root lower.Node) Source {
	return Source{Path: path, Text: stripBOM(text), Root: root}
}

func stripBOM(text string) string {
	if b := []byte(text); bytes.HasPrefix(b, utf8BOM) {
		return string(b[len(utf8BOM):])
	}
	return text
}
