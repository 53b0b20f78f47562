// Package pdg builds an intraprocedural program dependency graph over a
// method's CFG (C6): a fake MethodEnter control node and one node per
// parameter, plus Data/Control/Execution edges layered on the CFG's node
// set.
package pdg

import (
	"sort"
	"sync"

	"pdgtool/internal/pe"
)

// NodeKind discriminates a PDG node's role. Unlike cfg.NodeKind there is
// no pseudo variant — a nil PE is rejected outright.
type NodeKind int

const (
	NodeNormal NodeKind = iota
	NodeControl
	NodeParameter
)

// EdgeKind discriminates a PDG edge's dependence kind.
type EdgeKind int

const (
	EdgeData EdgeKind = iota
	EdgeControl
	EdgeExecution
)

// Node wraps a single PE as a point in the program dependency graph. The
// PDG's MethodEnter node wraps a synthetic MethodEnter expression rather
// than the Method itself, so every Node here always carries a real PE.
type Node struct {
	PE   pe.PE
	Kind NodeKind

	id int

	mu       sync.Mutex
	forward  []*Edge
	backward []*Edge
}

func (n *Node) ID() int { return n.id }

func (n *Node) ForwardEdges() []*Edge {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := append([]*Edge(nil), n.forward...)
	sortEdges(out, true)
	return out
}

func (n *Node) BackwardEdges() []*Edge {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := append([]*Edge(nil), n.backward...)
	sortEdges(out, false)
	return out
}

func (n *Node) addForward(e *Edge)  { n.mu.Lock(); n.forward = append(n.forward, e); n.mu.Unlock() }
func (n *Node) addBackward(e *Edge) { n.mu.Lock(); n.backward = append(n.backward, e); n.mu.Unlock() }

func sortEdges(edges []*Edge, byTo bool) {
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		var ai, bi int
		if byTo {
			ai, bi = a.To.id, b.To.id
		} else {
			ai, bi = a.From.id, b.From.id
		}
		if ai != bi {
			return ai < bi
		}
		return a.Kind < b.Kind
	})
}

// Edge is a directed PDG edge. Label is meaningful only for EdgeControl;
// Variable is meaningful only for EdgeData.
type Edge struct {
	From     *Node
	To       *Node
	Kind     EdgeKind
	Label    bool
	Variable string
}

func attach(e *Edge) {
	e.From.addForward(e)
	e.To.addBackward(e)
}

// Factory interns PE -> Node for one PDG build, mirroring cfg.Factory's
// locking discipline ("make* is serialized").
type Factory struct {
	mu    sync.Mutex
	nodes map[int]*Node
	all   []*Node
}

func newFactory() *Factory {
	return &Factory{nodes: make(map[int]*Node)}
}

func (f *Factory) intern(p pe.PE, kind NodeKind) *Node {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n, ok := f.nodes[p.ID()]; ok {
		return n
	}
	n := &Node{PE: p, Kind: kind, id: p.ID()}
	f.nodes[p.ID()] = n
	f.all = append(f.all, n)
	return n
}

// MakeControl interns p as a control node. Our CFG wraps the owning
// Statement itself for If/For/Foreach/While/Do/Switch/Catch/Synchronized
// rather than its condition sub-expression (cfg/build.go), so a nested
// block-leading statement's control-dependence target here is keyed by
// that same Statement, keeping one PDG node per conditional statement
// instead of splitting it across a statement-keyed CFG-derived node and
// a condition-keyed control-dependence node.
func (f *Factory) MakeControl(p pe.PE) *Node {
	return f.intern(p, NodeControl)
}

// MakeNormal interns p as a normal node, except a VariableDeclaration
// (a method parameter) which is tagged NodeParameter.
func (f *Factory) MakeNormal(p pe.PE) *Node {
	kind := NodeNormal
	if p.Kind() == pe.KindVariableDeclaration {
		kind = NodeParameter
	}
	return f.intern(p, kind)
}
