package defuse

import (
	"pdgtool/internal/pe"
	"pdgtool/internal/scope"
)

// Var is the common part of VarDef and VarUse: a main name plus the
// alias set the same logical variable may be referenced under (e.g.
// {source, this.source}).
type Var struct {
	MainName string
	Aliases  map[string]bool
	Scope    *scope.Scope
}

// MatchesName reports whether name is in the alias set.
func (v Var) MatchesName(name string) bool {
	return v.Aliases[name]
}

// VarDef is a static write of a named variable, graded on the def lattice.
type VarDef struct {
	Var
	Type         DefType
	RelevantStmt pe.PE
}

func (d *VarDef) IsDef() bool { return true }

// VarUse is a static read of a named variable, graded on the use lattice.
type VarUse struct {
	Var
	Type UseType
}

func (u *VarUse) IsDef() bool { return false }

// singleAlias builds a one-entry alias map, the common case.
func singleAlias(name string) map[string]bool {
	return map[string]bool{name: true}
}

// FilterAtLeastMayDef returns the defs with certainty >= MAY_DEF.
func FilterAtLeastMayDef(defs []*VarDef) []*VarDef {
	var out []*VarDef
	for _, d := range defs {
		if d.Type.AtLeast(DefMayDef) {
			out = append(out, d)
		}
	}
	return out
}

// FilterAtLeastMayUse returns the uses with certainty >= MAY_USE.
func FilterAtLeastMayUse(uses []*VarUse) []*VarUse {
	var out []*VarUse
	for _, u := range uses {
		if u.Type.AtLeast(UseMayUse) {
			out = append(out, u)
		}
	}
	return out
}

func promoteUses(uses []*VarUse, to UseType) []*VarUse {
	for _, u := range uses {
		u.Type = u.Type.Promote(to)
	}
	return uses
}
