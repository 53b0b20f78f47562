package defuse

import (
	"strings"
	"sync"

	"pdgtool/internal/pe"
	"pdgtool/internal/scope"
)

// Analyzer computes and memoizes def/use sets over a PE forest sharing a
// single ScopeManager. Analysis of a single compilation unit is expected
// to be single-threaded; the memoization locking only guards against
// accidental re-entrancy, not genuine concurrent use.
type Analyzer struct {
	mu   sync.Mutex
	defs map[int][]*VarDef
	uses map[int][]*VarUse

	scopeMgr *scope.Manager
	tables   MethodClassificationTables

	// TreatNonLocalAsField and TreatFieldExcludeUppercase mirror the
	// original analyzer's static flags (pe/ProgramElementInfo.java):
	// an unresolvable bare name falls back to being treated as an
	// implicit `this.` field reference.
	TreatNonLocalAsField       bool
	TreatFieldExcludeUppercase bool
}

// NewAnalyzer creates an Analyzer sharing scopeMgr with the lowering pass
// that builds the PE forest.
func NewAnalyzer(scopeMgr *scope.Manager) *Analyzer {
	return &Analyzer{
		defs:                       make(map[int][]*VarDef),
		uses:                       make(map[int][]*VarUse),
		scopeMgr:                   scopeMgr,
		tables:                     DefaultMethodClassificationTables,
		TreatNonLocalAsField:       true,
		TreatFieldExcludeUppercase: true,
	}
}

// WithTables returns a with a different method-classification table set,
// a configurable-table escape hatch for callers with their own knowledge
// of which library calls behave like defs or uses.
func (a *Analyzer) WithTables(t MethodClassificationTables) *Analyzer {
	a.tables = t
	return a
}

// DefVariables returns p's memoized def set.
func (a *Analyzer) DefVariables(p pe.PE) []*VarDef {
	if p == nil {
		return nil
	}
	a.mu.Lock()
	if d, ok := a.defs[p.ID()]; ok {
		a.mu.Unlock()
		return d
	}
	a.mu.Unlock()

	var result []*VarDef
	switch v := p.(type) {
	case *pe.Statement:
		result = a.statementDefs(v)
	case *pe.Expression:
		result = a.expressionDefs(v)
	case *pe.Method:
		result = a.methodDefs(v)
	case *pe.VariableDeclaration:
		result = a.varDeclDefs(v)
	}

	a.mu.Lock()
	a.defs[p.ID()] = result
	a.mu.Unlock()
	return result
}

// UseVariables returns p's memoized use set.
func (a *Analyzer) UseVariables(p pe.PE) []*VarUse {
	if p == nil {
		return nil
	}
	a.mu.Lock()
	if u, ok := a.uses[p.ID()]; ok {
		a.mu.Unlock()
		return u
	}
	a.mu.Unlock()

	var result []*VarUse
	switch v := p.(type) {
	case *pe.Statement:
		result = a.statementUses(v)
	case *pe.Expression:
		result = a.expressionUses(v)
	case *pe.Method:
		result = a.methodUses(v)
	case *pe.VariableDeclaration:
		result = nil
	}

	a.mu.Lock()
	a.uses[p.ID()] = result
	a.mu.Unlock()
	return result
}

// DefVariablesAtLeastMayDef is the filtered view used by the PDG builder.
func (a *Analyzer) DefVariablesAtLeastMayDef(p pe.PE) []*VarDef {
	return FilterAtLeastMayDef(a.DefVariables(p))
}

// UseVariablesAtLeastMayUse is the filtered view used by the PDG builder.
func (a *Analyzer) UseVariablesAtLeastMayUse(p pe.PE) []*VarUse {
	return FilterAtLeastMayUse(a.UseVariables(p))
}

// variableAliases computes V(e): the mapping mainName -> alias-set if e
// is a variable reference, nil otherwise.
func (a *Analyzer) variableAliases(p pe.PE) map[string]map[string]bool {
	e, ok := p.(*pe.Expression)
	if !ok {
		return nil
	}
	switch e.Category {
	case pe.ExprSimpleName:
		s := e.Text()
		return map[string]map[string]bool{s: singleAlias(s)}

	case pe.ExprArrayAccess:
		if len(e.Expressions) == 0 {
			return nil
		}
		base, ok := e.Expressions[0].(*pe.Expression)
		if !ok || base.Category != pe.ExprSimpleName {
			return nil
		}
		s := base.Text()
		return map[string]map[string]bool{s: singleAlias(s)}

	case pe.ExprFieldAccess:
		return a.fieldAccessAliases(e)

	case pe.ExprQualifiedName:
		return a.qualifiedNameAliases(e)

	default:
		return nil
	}
}

func fieldNameOf(e *pe.Expression) string {
	if len(e.Expressions) > 0 {
		return e.Expressions[0].Text()
	}
	return e.Text()
}

func (a *Analyzer) fieldAccessAliases(e *pe.Expression) map[string]map[string]bool {
	base, ok := e.Qualifier.(*pe.Expression)
	if !ok {
		return nil
	}
	field := fieldNameOf(e)
	switch base.Category {
	case pe.ExprSimpleName:
		b := base.Text()
		full := b + "." + field
		return map[string]map[string]bool{full: singleAlias(full), b: singleAlias(b)}
	case pe.ExprThis:
		full := "this." + field
		if a.TreatNonLocalAsField {
			return map[string]map[string]bool{full: singleAlias(full)}
		}
		return map[string]map[string]bool{full: {full: true, field: true}}
	default:
		return nil
	}
}

func (a *Analyzer) qualifiedNameAliases(e *pe.Expression) map[string]map[string]bool {
	base, ok := e.Qualifier.(*pe.Expression)
	if !ok || base.Category != pe.ExprSimpleName {
		return nil
	}
	b := base.Text()
	field := fieldNameOf(e)
	full := b + "." + field
	return map[string]map[string]bool{full: singleAlias(full), b: singleAlias(b)}
}

func defsFromAliases(aliases map[string]map[string]bool, t DefType) []*VarDef {
	var defs []*VarDef
	for main, set := range aliases {
		defs = append(defs, &VarDef{Var: Var{MainName: main, Aliases: set}, Type: t})
	}
	return defs
}

func usesFromAliases(aliases map[string]map[string]bool, t UseType) []*VarUse {
	var uses []*VarUse
	for main, set := range aliases {
		uses = append(uses, &VarUse{Var: Var{MainName: main, Aliases: set}, Type: t})
	}
	return uses
}

// expressionDefs implements the per-category def rules.
func (a *Analyzer) expressionDefs(e *pe.Expression) []*VarDef {
	switch e.Category {
	case pe.ExprAssignment:
		lhs, rhs := e.Expressions[0], e.Expressions[1]
		var defs []*VarDef
		if aliases := a.variableAliases(lhs); len(aliases) > 0 {
			defs = append(defs, defsFromAliases(aliases, DefDef)...)
		} else {
			defs = append(defs, a.DefVariables(lhs)...)
		}
		defs = append(defs, a.DefVariables(rhs)...)
		return defs

	case pe.ExprVariableDeclarationFragment:
		name := e.Expressions[0]
		var defs []*VarDef
		if aliases := a.variableAliases(name); len(aliases) > 0 {
			defs = append(defs, defsFromAliases(aliases, DefDeclareAndDef)...)
		} else {
			defs = append(defs, a.DefVariables(name)...)
		}
		if len(e.Expressions) > 1 {
			defs = append(defs, a.DefVariables(e.Expressions[1])...)
		}
		return defs

	case pe.ExprPostfix:
		if len(e.Expressions) == 0 {
			return nil
		}
		x := e.Expressions[0]
		if aliases := a.variableAliases(x); len(aliases) > 0 {
			return defsFromAliases(aliases, DefDef)
		}
		return a.DefVariables(x)

	case pe.ExprPrefix:
		if len(e.Expressions) == 0 {
			return nil
		}
		x := e.Expressions[0]
		if e.OperatorToken == "++" || e.OperatorToken == "--" {
			if aliases := a.variableAliases(x); len(aliases) > 0 {
				return defsFromAliases(aliases, DefDef)
			}
		}
		return a.DefVariables(x)

	case pe.ExprMethodInvocation:
		callDef := a.tables.Classify(e.MethodName)
		if e.Qualifier == nil {
			return nil
		}
		if aliases := a.variableAliases(e.Qualifier); len(aliases) > 0 {
			return defsFromAliases(aliases, callDef)
		}
		qDefs := a.DefVariables(e.Qualifier)
		if callDef.AtLeast(DefMayDef) {
			for _, d := range qDefs {
				d.Type = d.Type.Promote(DefMayDef)
			}
		}
		return qDefs

	default:
		var defs []*VarDef
		for _, c := range e.Expressions {
			defs = append(defs, a.DefVariables(c)...)
		}
		for _, m := range e.AnonymousClassMethods {
			defs = append(defs, a.DefVariables(m)...)
		}
		return defs
	}
}

// expressionUses implements the per-category use rules.
func (a *Analyzer) expressionUses(e *pe.Expression) []*VarUse {
	switch e.Category {
	case pe.ExprAssignment:
		if len(e.Expressions) < 2 {
			return nil
		}
		return promoteUses(a.UseVariables(e.Expressions[1]), UseUse)

	case pe.ExprVariableDeclarationFragment:
		if len(e.Expressions) < 2 {
			return nil
		}
		return promoteUses(a.UseVariables(e.Expressions[1]), UseUse)

	case pe.ExprPostfix, pe.ExprPrefix:
		var uses []*VarUse
		for _, c := range e.Expressions {
			uses = append(uses, a.UseVariables(c)...)
		}
		return promoteUses(uses, UseUse)

	case pe.ExprSimpleName:
		name := e.Text()
		return []*VarUse{{Var: Var{MainName: name, Aliases: singleAlias(name)}, Type: UseMayUse}}

	case pe.ExprMethodInvocation:
		var uses []*VarUse
		if e.Qualifier != nil {
			uses = append(uses, a.UseVariables(e.Qualifier)...)
		}
		for _, arg := range e.Expressions {
			uses = append(uses, a.UseVariables(arg)...)
		}
		return uses

	default:
		if aliases := a.variableAliases(e); len(aliases) > 0 {
			return usesFromAliases(aliases, UseMayUse)
		}
		var uses []*VarUse
		for _, c := range e.Expressions {
			uses = append(uses, a.UseVariables(c)...)
		}
		for _, m := range e.AnonymousClassMethods {
			uses = append(uses, a.UseVariables(m)...)
		}
		return uses
	}
}

// statementDefs folds over a statement's children in a fixed order, then
// applies statement-level normalization to each resulting raw def.
func (a *Analyzer) statementDefs(s *pe.Statement) []*VarDef {
	var raw []*VarDef
	for _, e := range s.Expressions {
		raw = append(raw, a.DefVariables(e)...)
	}
	for _, e := range s.Initializers {
		raw = append(raw, a.DefVariables(e)...)
	}
	if s.Condition != nil {
		raw = append(raw, a.DefVariables(s.Condition)...)
	}
	for _, e := range s.Updaters {
		raw = append(raw, a.DefVariables(e)...)
	}
	for _, c := range s.Statements {
		raw = append(raw, a.DefVariables(c)...)
	}
	for _, c := range s.ElseStatements {
		raw = append(raw, a.DefVariables(c)...)
	}
	for _, c := range s.CatchStatements {
		raw = append(raw, a.DefVariables(c)...)
	}
	if s.FinallyStatement != nil {
		raw = append(raw, a.DefVariables(s.FinallyStatement)...)
	}

	for _, d := range raw {
		a.normalizeDef(s, d)
	}
	return raw
}

func (a *Analyzer) statementUses(s *pe.Statement) []*VarUse {
	var raw []*VarUse
	for _, e := range s.Expressions {
		raw = append(raw, a.UseVariables(e)...)
	}
	for _, e := range s.Initializers {
		raw = append(raw, a.UseVariables(e)...)
	}
	if s.Condition != nil {
		raw = append(raw, a.UseVariables(s.Condition)...)
	}
	for _, e := range s.Updaters {
		raw = append(raw, a.UseVariables(e)...)
	}
	for _, c := range s.Statements {
		raw = append(raw, a.UseVariables(c)...)
	}
	for _, c := range s.ElseStatements {
		raw = append(raw, a.UseVariables(c)...)
	}
	for _, c := range s.CatchStatements {
		raw = append(raw, a.UseVariables(c)...)
	}
	if s.FinallyStatement != nil {
		raw = append(raw, a.UseVariables(s.FinallyStatement)...)
	}

	for _, u := range raw {
		a.normalizeUse(s, u)
	}
	return raw
}

// normalizeDef implements the statement-level normalization for defs.
func (a *Analyzer) normalizeDef(stmt *pe.Statement, d *VarDef) {
	ownerScope := a.scopeMgr.Get(stmt.OwnerBlock)
	if d.Scope == nil {
		if d.Type.AtLeast(DefDeclare) {
			d.Scope = ownerScope
		} else if ownerScope != nil {
			d.Scope = ownerScope.SearchVariableDef(d.MainName)
		}
	}
	if d.Scope == nil && a.shouldTreatAsField(d.MainName) {
		a.applyFieldAlias(&d.Var)
	}
	if d.RelevantStmt == nil {
		d.RelevantStmt = stmt
	}
	if d.Scope != nil {
		d.Scope.AddVariable(d)
	}
}

// normalizeUse is the symmetric procedure for uses; there is no DECLARE path.
func (a *Analyzer) normalizeUse(stmt *pe.Statement, u *VarUse) {
	ownerScope := a.scopeMgr.Get(stmt.OwnerBlock)
	if u.Scope == nil && ownerScope != nil {
		u.Scope = ownerScope.SearchVariableDef(u.MainName)
	}
	if u.Scope == nil && a.shouldTreatAsField(u.MainName) {
		a.applyFieldAlias(&u.Var)
	}
	if u.Scope != nil {
		u.Scope.AddVariable(u)
	}
}

func (a *Analyzer) shouldTreatAsField(mainName string) bool {
	if !a.TreatNonLocalAsField || mainName == "" {
		return false
	}
	if a.TreatFieldExcludeUppercase && !isLowerFirst(mainName) {
		return false
	}
	return !strings.HasPrefix(mainName, "this.")
}

func (a *Analyzer) applyFieldAlias(v *Var) {
	orig := v.MainName
	v.MainName = "this." + orig
	v.Aliases = map[string]bool{orig: true, v.MainName: true}
}

func isLowerFirst(s string) bool {
	if s == "" {
		return true
	}
	c := s[0]
	return c >= 'a' && c <= 'z'
}

// methodDefs implements the method-level def calculation: parameters
// first (rebound to the method's own scope), then the body, then a
// lambda body expression if present.
func (a *Analyzer) methodDefs(m *pe.Method) []*VarDef {
	var defs []*VarDef
	methodScope := a.scopeMgr.Get(m)
	for _, p := range m.Parameters {
		d := &VarDef{Var: Var{MainName: p.Name, Aliases: singleAlias(p.Name), Scope: methodScope}, Type: DefDeclare}
		if methodScope != nil {
			methodScope.AddVariable(d)
		}
		defs = append(defs, d)
	}
	for _, s := range m.Statements {
		defs = append(defs, a.DefVariables(s)...)
	}
	if m.IsLambda && m.LambdaBodyExpression != nil {
		defs = append(defs, a.DefVariables(m.LambdaBodyExpression)...)
	}
	return defs
}

func (a *Analyzer) methodUses(m *pe.Method) []*VarUse {
	var uses []*VarUse
	for _, s := range m.Statements {
		uses = append(uses, a.UseVariables(s)...)
	}
	if m.IsLambda && m.LambdaBodyExpression != nil {
		uses = append(uses, a.UseVariables(m.LambdaBodyExpression)...)
	}
	return uses
}

// varDeclDefs: a VariableDeclaration's own def is a single fixed DECLARE,
// no aliasing logic (pe/VariableDeclarationInfo.java).
func (a *Analyzer) varDeclDefs(v *pe.VariableDeclaration) []*VarDef {
	return []*VarDef{{Var: Var{MainName: v.Name, Aliases: singleAlias(v.Name)}, Type: DefDeclare}}
}
