package pdg

import (
	"pdgtool/internal/cfg"
	"pdgtool/internal/defuse"
	"pdgtool/internal/pe"
)

// Options configures which dependence kinds a PDG build emits.
type Options struct {
	BuildControlDependence bool
	FromEntryToAll         bool
	FromEntryToParameters  bool

	BuildDataDependence bool
	TreatMayDefAsDef    bool
	TreatMayUseAsUse    bool

	BuildExecutionDependence bool
}

// FullOptions builds all three dependence kinds with the default flags
// (treatMayUseAsUse on, everything else off).
func FullOptions() Options {
	return Options{
		BuildControlDependence:  true,
		BuildDataDependence:     true,
		TreatMayUseAsUse:        true,
		BuildExecutionDependence: true,
	}
}

// DataOnlyOptions is a DDG: data dependence only, per the getDDG
// contract (buildControlDependence=false, buildExecutionDependence=false).
func DataOnlyOptions() Options {
	o := FullOptions()
	o.BuildControlDependence = false
	o.BuildExecutionDependence = false
	return o
}

// PDG is one method's complete program dependency graph.
type PDG struct {
	Method     *pe.Method
	CFG        *cfg.CFG
	Enter      *Node
	Exits      map[*Node]bool
	Parameters []*Node

	factory *Factory
}

// Nodes returns every node built for this PDG, in id order.
func (g *PDG) Nodes() []*Node {
	out := append([]*Node(nil), g.factory.all...)
	sortNodesByID(out)
	return out
}

func sortNodesByID(nodes []*Node) {
	for i := 1; i < len(nodes); i++ {
		for j := i; j > 0 && nodes[j-1].id > nodes[j].id; j-- {
			nodes[j-1], nodes[j] = nodes[j], nodes[j-1]
		}
	}
}

// Node returns the interned node for p, if this build produced one.
func (g *PDG) Node(p pe.PE) *Node {
	if p == nil {
		return nil
	}
	g.factory.mu.Lock()
	defer g.factory.mu.Unlock()
	return g.factory.nodes[p.ID()]
}

// IsExit reports whether n is one of the method's PDG exits.
func (g *PDG) IsExit(n *Node) bool { return g.Exits[n] }

type builder struct {
	pdg      *PDG
	cfg      *cfg.CFG
	analyzer *defuse.Analyzer
	opts     Options
}

// Build constructs m's PDG against analyzer's memoized def/use sets.
func Build(m *pe.Method, analyzer *defuse.Analyzer, opts Options) *PDG {
	g := cfg.Build(m)
	f := newFactory()

	enterPE := pe.NewMethodEnter(m)
	enter := f.MakeControl(enterPE)

	out := &PDG{
		Method:  m,
		CFG:     g,
		Enter:   enter,
		Exits:   map[*Node]bool{},
		factory: f,
	}

	var paramNodes []*Node
	for _, p := range m.Parameters {
		paramNodes = append(paramNodes, f.MakeNormal(p))
	}
	out.Parameters = paramNodes

	b := &builder{pdg: out, cfg: g, analyzer: analyzer, opts: opts}

	// An empty method body leaves the CFG's Enter as a spliced-out pseudo
	// node with no PE, which yields no PDG node.
	cfgEnter := g.Enter
	if cfgEnter != nil && cfgEnter.PE == nil {
		cfgEnter = nil
	}

	if opts.BuildControlDependence {
		if opts.FromEntryToAll {
			for _, s := range m.Statements {
				b.controlDependenceToStatement(enter, s, true)
			}
		}
		if opts.FromEntryToParameters {
			for _, pn := range paramNodes {
				attach(&Edge{From: enter, To: pn, Kind: EdgeControl, Label: true})
			}
		}
	}

	if opts.BuildExecutionDependence && cfgEnter != nil {
		n := b.makeNodeFromCFG(cfgEnter)
		attach(&Edge{From: enter, To: n, Kind: EdgeExecution})
	}

	if opts.BuildDataDependence {
		analyzer.DefVariables(m)
		analyzer.UseVariables(m)

		for i, decl := range m.Parameters {
			if cfgEnter != nil {
				b.propagate(cfgEnter, paramNodes[i], decl.Name, map[*cfg.Node]bool{})
			}
			attach(&Edge{From: enter, To: paramNodes[i], Kind: EdgeData, Variable: decl.Name})
		}
	}

	checked := map[*cfg.Node]bool{}
	if cfgEnter != nil {
		b.buildDependence(cfgEnter, checked)
	}

	for cn := range g.Exits {
		out.Exits[b.makeNodeFromCFG(cn)] = true
	}

	for _, cn := range g.Nodes() {
		b.buildDependence(cn, checked)
	}

	return out
}

// makeNodeFromCFG interns cn's PDG node, dispatching on the CFG node's
// own kind: a CFG control node yields a PDG control node, every other
// CFG node kind yields a normal (or parameter) PDG node.
func (b *builder) makeNodeFromCFG(cn *cfg.Node) *Node {
	if cn.Kind == cfg.NodeControl {
		return b.pdg.factory.MakeControl(cn.PE)
	}
	return b.pdg.factory.MakeNormal(cn.PE)
}

func (b *builder) buildDependence(cn *cfg.Node, checked map[*cfg.Node]bool) {
	if checked[cn] {
		return
	}
	checked[cn] = true

	pn := b.makeNodeFromCFG(cn)

	if b.opts.BuildDataDependence && cn.PE != nil {
		for _, def := range b.analyzer.DefVariablesAtLeastMayDef(cn.PE) {
			b.propagate(cn, pn, def.MainName, map[*cfg.Node]bool{})
			for _, fe := range cn.ForwardEdges() {
				b.propagate(fe.To, pn, def.MainName, map[*cfg.Node]bool{})
			}
		}
	}

	if b.opts.BuildControlDependence && pn.Kind == NodeControl {
		if s, ok := cn.PE.(*pe.Statement); ok {
			b.controlDependenceToBlock(pn, s)
		}
	}

	if b.opts.BuildExecutionDependence {
		for _, fe := range cn.ForwardEdges() {
			toPN := b.makeNodeFromCFG(fe.To)
			attach(&Edge{From: pn, To: toPN, Kind: EdgeExecution})
		}
	}

	for _, fe := range cn.ForwardEdges() {
		b.buildDependence(fe.To, checked)
	}
}

// propagate is the reaching-def DFS: starting at cn, it checks
// cn's uses before its defs (so a node that both uses and redefines the
// same variable, e.g. "x = x + 1", still gets its own use edge), then
// recurses into forward neighbors unless a redefinition kills the
// propagation.
func (b *builder) propagate(cn *cfg.Node, origin *Node, variable string, visited map[*cfg.Node]bool) {
	if visited[cn] || cn.PE == nil {
		return
	}
	visited[cn] = true

	useThreshold := defuse.UseUse
	if b.opts.TreatMayUseAsUse {
		useThreshold = defuse.UseMayUse
	}
	for _, use := range b.analyzer.UseVariablesAtLeastMayUse(cn.PE) {
		if !use.MatchesName(variable) {
			continue
		}
		if use.Type.AtLeast(useThreshold) {
			toPN := b.makeNodeFromCFG(cn)
			attach(&Edge{From: origin, To: toPN, Kind: EdgeData, Variable: variable})
		}
		break
	}

	shouldPropagate := true
	for _, def := range b.analyzer.DefVariablesAtLeastMayDef(cn.PE) {
		if !def.MatchesName(variable) {
			continue
		}
		if b.opts.TreatMayDefAsDef || def.Type == defuse.DefDef {
			shouldPropagate = false
		}
		break
	}

	if shouldPropagate {
		for _, fe := range cn.ForwardEdges() {
			b.propagate(fe.To, origin, variable, visited)
		}
	}
}

// controlDependenceToBlock emits edges from fromPN (a control node) to
// every direct statement of block (true), every else-statement (false),
// and every updater (true): top-level per-block emission.
func (b *builder) controlDependenceToBlock(fromPN *Node, block *pe.Statement) {
	for _, s := range block.Statements {
		b.controlDependenceToStatement(fromPN, s, true)
	}
	for _, s := range block.ElseStatements {
		b.controlDependenceToStatement(fromPN, s, false)
	}
	for _, upd := range block.Updaters {
		toPN := b.pdg.factory.MakeNormal(upd)
		attach(&Edge{From: fromPN, To: toPN, Kind: EdgeControl, Label: true})
	}
}

// controlDependenceToStatement dispatches a single direct child
// statement per its category.
func (b *builder) controlDependenceToStatement(fromPN *Node, s pe.PE, label bool) {
	stmt, ok := s.(*pe.Statement)
	if !ok {
		return
	}
	switch stmt.Category {
	case pe.StmtCatch, pe.StmtDo, pe.StmtFor, pe.StmtForeach, pe.StmtIf,
		pe.StmtSimpleBlock, pe.StmtSynchronized, pe.StmtSwitch, pe.StmtTry, pe.StmtWhile:
		if stmt.Condition != nil {
			toPN := b.pdg.factory.MakeControl(stmt)
			attach(&Edge{From: fromPN, To: toPN, Kind: EdgeControl, Label: label})
		} else {
			b.controlDependenceToBlock(fromPN, stmt)
		}
		for _, init := range stmt.Initializers {
			toPN := b.pdg.factory.MakeNormal(init)
			attach(&Edge{From: fromPN, To: toPN, Kind: EdgeControl, Label: label})
		}
	case pe.StmtAssert, pe.StmtBreak, pe.StmtCase, pe.StmtContinue,
		pe.StmtExpression, pe.StmtReturn, pe.StmtThrow, pe.StmtVariableDeclaration:
		if cn := b.cfg.Node(stmt); cn != nil {
			toPN := b.pdg.factory.MakeNormal(stmt)
			attach(&Edge{From: fromPN, To: toPN, Kind: EdgeControl, Label: label})
		}
	}
}
