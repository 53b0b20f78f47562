// Package metrics computes per-method size and complexity figures over
// the PE forest, narrowed to intraprocedural scope since cross-method
// analysis stays out of scope.
package metrics

import "pdgtool/internal/pe"

// MethodMetrics holds one method's complexity and call-site figures,
// the PE-tree analogue of a per-function Metrics struct, minus
// FanIn/FanOut, which depended on an interprocedural call graph this
// module's domain excludes.
type MethodMetrics struct {
	Method               *pe.Method
	CyclomaticComplexity int
	LOC                  int
	NumParams            int

	// CallSites tallies each MethodInvocation's resolved APIName within
	// this method's own body, the intraprocedural narrowing of a
	// ComputeFanInOut-style call-graph tally.
	CallSites map[string]int
}

// Compute walks m's body once, returning its metrics.
func Compute(m *pe.Method) *MethodMetrics {
	start, end := m.Span()
	mm := &MethodMetrics{
		Method:               m,
		CyclomaticComplexity: 1,
		LOC:                  end - start + 1,
		NumParams:            len(m.Parameters),
		CallSites:            make(map[string]int),
	}
	for _, s := range m.Statements {
		walk(s, mm)
	}
	if m.LambdaBodyExpression != nil {
		walk(m.LambdaBodyExpression, mm)
	}
	return mm
}

// walk dispatches on p's concrete PE kind, tallying decision points and
// call sites as it descends into every child slot of statements and
// expressions. The visiting order differs from internal/defuse's fold
// order, which does not affect the counts.
func walk(p pe.PE, mm *MethodMetrics) {
	switch v := p.(type) {
	case *pe.Statement:
		walkStatement(v, mm)
	case *pe.Expression:
		walkExpression(v, mm)
	}
}

func walkStatement(s *pe.Statement, mm *MethodMetrics) {
	switch s.Category {
	case pe.StmtIf, pe.StmtFor, pe.StmtForeach, pe.StmtWhile, pe.StmtDo,
		pe.StmtCase, pe.StmtCatch:
		mm.CyclomaticComplexity++
	}

	if s.Condition != nil {
		walk(s.Condition, mm)
	}
	for _, e := range s.Initializers {
		walk(e, mm)
	}
	for _, e := range s.Updaters {
		walk(e, mm)
	}
	for _, e := range s.Expressions {
		walk(e, mm)
	}
	for _, c := range s.Statements {
		walk(c, mm)
	}
	for _, c := range s.ElseStatements {
		walk(c, mm)
	}
	for _, c := range s.CatchStatements {
		walk(c, mm)
	}
	if s.FinallyStatement != nil {
		walk(s.FinallyStatement, mm)
	}
}

func walkExpression(e *pe.Expression, mm *MethodMetrics) {
	if e.Category == pe.ExprInfix && (e.OperatorToken == "&&" || e.OperatorToken == "||") {
		mm.CyclomaticComplexity++
	}
	if e.Category == pe.ExprMethodInvocation || e.Category == pe.ExprSuperMethodInvocation {
		mm.CallSites[e.APIName]++
	}

	if e.Qualifier != nil {
		walk(e.Qualifier, mm)
	}
	for _, c := range e.Expressions {
		walk(c, mm)
	}
	for _, m := range e.AnonymousClassMethods {
		for _, s := range m.Statements {
			walk(s, mm)
		}
	}
}
