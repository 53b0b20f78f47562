package lower

import "pdgtool/internal/pe"

// PosIndex maps a source line back to the PEs whose span covers it. It
// is the lowering-time analogue of ast_visitor.go's
// PosLookup/DefLookup/FuncLookup helpers. Lowering records only Method
// PEs here; the PDG builder's control-dependence pass does not use it
// and checks CFG membership through cfg.CFG.Node instead.
type PosIndex struct {
	byLine map[int][]pe.PE
}

// NewPosIndex creates an empty index.
func NewPosIndex() *PosIndex {
	return &PosIndex{byLine: make(map[int][]pe.PE)}
}

// Record indexes p under every line its span covers.
func (idx *PosIndex) Record(p pe.PE) {
	start, end := p.Span()
	if end < start {
		end = start
	}
	for l := start; l <= end; l++ {
		idx.byLine[l] = append(idx.byLine[l], p)
	}
}

// At returns the PEs recorded at line, in recording order.
func (idx *PosIndex) At(line int) []pe.PE {
	return idx.byLine[line]
}
