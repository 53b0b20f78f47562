// Package cfg builds an intraprocedural control-flow graph over a
// method's PE forest (C5): one CFG per method, nodes wrapping statement
// and expression PEs, edges typed Normal/Control/Jump.
package cfg

import (
	"sort"
	"sync"
	"sync/atomic"

	"pdgtool/internal/pe"
)

// NodeKind discriminates a CFG node's role, independent of its PE's own
// category — the same Statement PE always maps to exactly one NodeKind,
// chosen by the factory's dispatch rule.
type NodeKind int

const (
	NodeNormal NodeKind = iota
	NodeControl
	NodePseudo
	NodeBreak
	NodeContinue
	NodeSwitchCase
)

// EdgeKind discriminates a CFG edge's semantics for the makeEdge contract.
type EdgeKind int

const (
	EdgeNormal EdgeKind = iota
	EdgeControl
	EdgeJump
)

// Node wraps a single PE (or, for NodePseudo, no PE at all) as a point in
// the control-flow graph.
type Node struct {
	PE   pe.PE
	Kind NodeKind

	id int // total order key; PE.ID() for real nodes, a private counter for pseudo nodes

	mu       sync.Mutex
	forward  []*Edge
	backward []*Edge
}

// ID returns the node's ordering key.
func (n *Node) ID() int { return n.id }

// ForwardEdges returns the node's outgoing edges in (to.ID, kind) order.
func (n *Node) ForwardEdges() []*Edge {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := append([]*Edge(nil), n.forward...)
	sortEdges(out, true)
	return out
}

// BackwardEdges returns the node's incoming edges in (from.ID, kind) order.
func (n *Node) BackwardEdges() []*Edge {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := append([]*Edge(nil), n.backward...)
	sortEdges(out, false)
	return out
}

func (n *Node) addForward(e *Edge)  { n.mu.Lock(); n.forward = append(n.forward, e); n.mu.Unlock() }
func (n *Node) addBackward(e *Edge) { n.mu.Lock(); n.backward = append(n.backward, e); n.mu.Unlock() }

func (n *Node) removeForward(e *Edge) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.forward = removeEdge(n.forward, e)
}

func (n *Node) removeBackward(e *Edge) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.backward = removeEdge(n.backward, e)
}

func removeEdge(edges []*Edge, target *Edge) []*Edge {
	out := edges[:0]
	for _, e := range edges {
		if e != target {
			out = append(out, e)
		}
	}
	return out
}

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

// Edge is a directed CFG edge. Label is meaningful only for EdgeControl.
type Edge struct {
	From  *Node
	To    *Node
	Kind  EdgeKind
	Label bool
}

func attach(e *Edge) {
	e.From.addForward(e)
	e.To.addBackward(e)
}

func detach(e *Edge) {
	e.From.removeForward(e)
	e.To.removeBackward(e)
}

// makeEdge implements the generic edge-construction contract: the edge
// kind follows the source node's kind, not the caller's intent, for
// every connection the builder does not itself pin to an explicit
// true/false control label.
func makeEdge(from, to *Node) *Edge {
	switch from.Kind {
	case NodeControl:
		return &Edge{From: from, To: to, Kind: EdgeControl, Label: false}
	case NodeBreak, NodeContinue:
		return &Edge{From: from, To: to, Kind: EdgeJump}
	default:
		return &Edge{From: from, To: to, Kind: EdgeNormal}
	}
}

var pseudoCounter int64

// Factory interns PE -> Node, one instance per CFG build, serializing
// lookups so concurrent access (not expected within one method's build,
// but cheap to guarantee) never produces two nodes for the same PE.
type Factory struct {
	mu    sync.Mutex
	nodes map[int]*Node
	all   []*Node
}

// NewFactory creates an empty, per-CFG node factory.
func NewFactory() *Factory {
	return &Factory{nodes: make(map[int]*Node)}
}

// Make interns p, dispatching its NodeKind: Statement{Break}
// -> NodeBreak, {Continue} -> NodeContinue, {Case} -> NodeSwitchCase,
// else NodeNormal; any other PE kind also yields NodeNormal. A nil PE
// yields a fresh, never-interned Pseudo node.
func (f *Factory) Make(p pe.PE) *Node {
	if p == nil {
		return f.MakePseudo()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if n, ok := f.nodes[p.ID()]; ok {
		return n
	}
	n := &Node{PE: p, Kind: kindOf(p), id: p.ID()}
	f.nodes[p.ID()] = n
	f.all = append(f.all, n)
	return n
}

// MakeControl interns p as a control node regardless of its default
// dispatch — used explicitly by the builder for condition-bearing
// statements (If, For, Foreach, While, Do, Switch, Synchronized, Catch).
func (f *Factory) MakeControl(p pe.PE) *Node {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n, ok := f.nodes[p.ID()]; ok {
		return n
	}
	n := &Node{PE: p, Kind: NodeControl, id: p.ID()}
	f.nodes[p.ID()] = n
	f.all = append(f.all, n)
	return n
}

// MakePseudo allocates a fresh, uninterned placeholder node standing in
// for a missing branch or empty statement list.
func (f *Factory) MakePseudo() *Node {
	id := int(atomic.AddInt64(&pseudoCounter, 1))
	n := &Node{Kind: NodePseudo, id: -id}
	f.mu.Lock()
	f.all = append(f.all, n)
	f.mu.Unlock()
	return n
}

func kindOf(p pe.PE) NodeKind {
	if s, ok := p.(*pe.Statement); ok {
		switch s.Category {
		case pe.StmtBreak:
			return NodeBreak
		case pe.StmtContinue:
			return NodeContinue
		case pe.StmtCase:
			return NodeSwitchCase
		}
	}
	return NodeNormal
}

func (f *Factory) forget(n *Node) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n.PE != nil {
		delete(f.nodes, n.PE.ID())
	}
	out := f.all[:0]
	for _, x := range f.all {
		if x != n {
			out = append(out, x)
		}
	}
	f.all = out
}
