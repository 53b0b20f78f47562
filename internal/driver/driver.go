package driver

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"pdgtool/internal/cfg"
	"pdgtool/internal/defuse"
	"pdgtool/internal/lower"
	"pdgtool/internal/pdg"
	"pdgtool/internal/pe"
	"pdgtool/internal/scope"
)

// Driver holds the unit cache across calls. The zero value is not ready
// for use; create one with New.
type Driver struct {
	cache *unitCache
}

// New creates a Driver with an empty unit cache.
func New() *Driver {
	return &Driver{cache: newUnitCache()}
}

// MethodCFG pairs a method with its control flow graph.
type MethodCFG struct {
	Method *pe.Method
	CFG    *cfg.CFG
}

// MethodPDG pairs a method with one of its dependency graphs (a DDG when
// built with pdg.DataOnlyOptions, a full PDG with pdg.FullOptions).
// Analyzer is the def/use analyzer that built it, exposed so a caller can
// query a node's def/use variable sets directly (e.g. cmd/pdgcli's JSON
// rendering, which needs DefVariablesAtLeastMayDef/UseVariablesAtLeastMayUse
// per node, not just the edges PDG.Build already collapsed them into).
type MethodPDG struct {
	Method   *pe.Method
	PDG      *pdg.PDG
	Analyzer *defuse.Analyzer
}

// lower lowers source's AST root into a unit, reusing a cached one keyed
// by source.Text when available. CFG/PDG construction itself is never
// cached: only the lowering/scope-resolution result is, matching the
// original's caching of the AST visitor but not of getCFG/getDDG/
// getPDG's own per-call results.
func (d *Driver) lower(source Source) (*unit, error) {
	if u, ok := d.cache.get(source.Text); ok {
		return u, nil
	}
	if source.Root == nil {
		return nil, fmt.Errorf("driver: source %q has no AST root to lower", source.Path)
	}

	lw := lower.NewLowerer()
	var methods []*pe.Method
	for _, classNode := range source.Root.Children("classes") {
		class := lw.LowerClass(classNode)
		if class != nil {
			methods = append(methods, class.Methods...)
		}
	}

	u := &unit{methods: methods, owner: lw.Owner}
	d.cache.put(source.Text, u)
	return u, nil
}

// GetCFG builds one CFG per method in source, in id order.
func (d *Driver) GetCFG(source Source) ([]MethodCFG, error) {
	u, err := d.lower(source)
	if err != nil {
		return nil, err
	}
	out := make([]MethodCFG, 0, len(u.methods))
	for _, m := range u.methods {
		out = append(out, MethodCFG{Method: m, CFG: cfg.Build(m)})
	}
	return out, nil
}

// GetDDG builds one data-dependency-only PDG per method in source
// (buildControlDependence=false, buildExecutionDependence=false).
func (d *Driver) GetDDG(source Source) ([]MethodPDG, error) {
	return d.buildPDGs(source, pdg.DataOnlyOptions())
}

// GetPDG builds one full PDG (data, control, and execution dependence)
// per method in source.
func (d *Driver) GetPDG(source Source) ([]MethodPDG, error) {
	return d.buildPDGs(source, pdg.FullOptions())
}

func (d *Driver) buildPDGs(source Source, opts pdg.Options) ([]MethodPDG, error) {
	u, err := d.lower(source)
	if err != nil {
		return nil, err
	}
	mgr := scope.NewManager(u.owner)
	analyzer := defuse.NewAnalyzer(mgr)

	out := make([]MethodPDG, 0, len(u.methods))
	for _, m := range u.methods {
		out = append(out, MethodPDG{Method: m, PDG: pdg.Build(m, analyzer, opts), Analyzer: analyzer})
	}
	return out, nil
}

// AnalysisResult is one source's outcome from AnalyzeAll. Err is set
// when that source alone failed to lower; it never aborts sibling
// sources: user-visible failures are surfaced as the returned partial
// results instead.
type AnalysisResult struct {
	Source  Source
	Methods []MethodPDG
	Err     error
}

// AnalyzeAll fans out one goroutine per source, bounded by GOMAXPROCS,
// and merges results into a slice ordered the same as sources: analysis
// of distinct compilation units is embarrassingly parallel, while
// analysis within one compilation unit stays single-threaded, since each
// goroutine here calls straight into buildPDGs without further fan-out.
func (d *Driver) AnalyzeAll(ctx context.Context, sources []Source, opts pdg.Options) ([]AnalysisResult, error) {
	results := make([]AnalysisResult, len(sources))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = AnalysisResult{Source: src, Err: err}
				return nil
			}
			methods, err := d.buildPDGs(src, opts)
			results[i] = AnalysisResult{Source: src, Methods: methods, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
