// Package scope implements the lexical scope tree keyed by block program
// elements (C2). Scopes are created lazily on first demand and chained to
// their parent by following the block's owner-block back-reference.
package scope

import (
	"sync"

	"pdgtool/internal/pe"
)

// VarRef is the minimal view of a declared variable a Scope needs: its
// main name and the alias set it may also be referenced under. The
// concrete Var/VarDef/VarUse types live in internal/defuse, which is the
// only package that constructs them; Scope only needs to test alias-set
// membership, so it depends on this narrow interface rather than on
// internal/defuse (avoiding an import cycle, since defuse needs Scope).
type VarRef interface {
	MatchesName(name string) bool
	IsDef() bool
}

// Scope is a node in the lexical scope tree.
type Scope struct {
	Block     pe.PE
	Parent    *Scope
	variables []VarRef
	mu        sync.Mutex
}

// AddVariable inserts v into the scope's variable set.
func (s *Scope) AddVariable(v VarRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.variables = append(s.variables, v)
}

// HasVariableDef reports whether this scope (not ancestors) declares a
// def-style variable whose alias set contains name.
func (s *Scope) HasVariableDef(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.variables {
		if v.IsDef() && v.MatchesName(name) {
			return true
		}
	}
	return false
}

// SearchVariableDef walks from this scope toward the root, returning the
// nearest enclosing scope that declares a def-style variable matching
// name, or nil.
func (s *Scope) SearchVariableDef(name string) *Scope {
	for cur := s; cur != nil; cur = cur.Parent {
		if cur.HasVariableDef(name) {
			return cur
		}
	}
	return nil
}

// Manager maps block PEs to their Scope, idempotently, building the
// parent chain by following each block's owner-block on first access.
type Manager struct {
	mu     sync.Mutex
	scopes map[int]*Scope // keyed by block PE id
	owner  func(block pe.PE) (pe.PE, bool)
}

// NewManager creates a ScopeManager. owner resolves a block PE's
// owner-block (nil, false at the root); it is supplied by the caller
// (internal/lower) rather than stored on the PE itself, since pe carries
// no back-reference to the scope subsystem.
func NewManager(owner func(block pe.PE) (pe.PE, bool)) *Manager {
	return &Manager{scopes: make(map[int]*Scope), owner: owner}
}

// Get returns the Scope for block, creating it (and its ancestor chain)
// on first access. Idempotent: repeated calls for the same block return
// the same *Scope.
func (m *Manager) Get(block pe.PE) *Scope {
	if block == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(block)
}

func (m *Manager) getLocked(block pe.PE) *Scope {
	if s, ok := m.scopes[block.ID()]; ok {
		return s
	}
	s := &Scope{Block: block}
	m.scopes[block.ID()] = s // insert before recursing: breaks self-cycles
	if parentBlock, ok := m.owner(block); ok && parentBlock != nil && parentBlock.ID() != block.ID() {
		s.Parent = m.getLocked(parentBlock)
	}
	return s
}
