package cfg

import (
	"sort"

	"pdgtool/internal/pe"
)

// CFG is one method's complete control-flow graph.
type CFG struct {
	Method  *pe.Method
	Enter   *Node
	Exits   map[*Node]bool
	factory *Factory
}

// Build builds m's CFG in a single call, convenience over NewBuilder()
// for callers that only need one method's graph.
func Build(m *pe.Method) *CFG {
	return NewBuilder().BuildMethod(m)
}

// Nodes returns every node still present in the graph, in id order.
func (c *CFG) Nodes() []*Node {
	out := append([]*Node(nil), c.factory.all...)
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Node returns the interned node for p, if one was built for this
// method, or nil.
func (c *CFG) Node(p pe.PE) *Node {
	if p == nil {
		return nil
	}
	c.factory.mu.Lock()
	defer c.factory.mu.Unlock()
	return c.factory.nodes[p.ID()]
}

// IsExit reports whether n is one of the method's CFG exits.
func (c *CFG) IsExit(n *Node) bool { return c.Exits[n] }

// eliminatePseudoNodes splices every remaining pseudo node out of the
// graph: each backward neighbor is wired directly to each forward
// neighbor via makeEdge, the pseudo's single successor is promoted into
// the Enter slot if the pseudo was the graph's entry, and its
// predecessors are promoted into Exits if the pseudo was an exit with no
// successor of its own (a genuinely empty terminal branch).
func (c *CFG) eliminatePseudoNodes() {
	for {
		var target *Node
		for _, n := range c.factory.all {
			if n.Kind == NodePseudo {
				target = n
				break
			}
		}
		if target == nil {
			return
		}

		backward := target.BackwardEdges()
		forward := target.ForwardEdges()
		for _, e := range backward {
			detach(e)
		}
		for _, e := range forward {
			detach(e)
		}

		if len(forward) == 0 {
			if c.Exits[target] {
				delete(c.Exits, target)
				for _, be := range backward {
					c.Exits[be.From] = true
				}
			}
		} else {
			for _, be := range backward {
				for _, fe := range forward {
					attach(makeEdge(be.From, fe.To))
				}
			}
			if c.Exits[target] {
				delete(c.Exits, target)
				for _, fe := range forward {
					c.Exits[fe.To] = true
				}
			}
		}

		if c.Enter == target && len(forward) > 0 {
			c.Enter = forward[0].To
		}
		c.factory.forget(target)
	}
}
