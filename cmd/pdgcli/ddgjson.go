package main

import (
	"sort"
	"strconv"

	"pdgtool/internal/driver"
	"pdgtool/internal/pdg"
	"pdgtool/internal/pe"
	"pdgtool/internal/scope"
)

// defUseJSON mirrors DefUseJson.java's field names exactly, byte for
// byte, since this JSON shape is the CLI's output contract.
type defUseJSON struct {
	VariableJsons []variableJSON `json:"variableJsons"`
}

type variableJSON struct {
	ID                 int        `json:"id"`
	ScopeJSON          *scopeJSON `json:"scopeJson"`
	Name               string     `json:"name"`
	DefStmtLineNumbers []int      `json:"defStmtLineNumbers"`
	UseStmtLineNumbers []int      `json:"useStmtLineNumbers"`
}

type scopeJSON struct {
	Type       string `json:"type"`
	LineNumber int    `json:"lineNumber"`
}

// varKey is the (scope, name) equality DefUseJson.createFromPDG groups
// variables by. A nil scope still groups correctly: every var with a
// nil scope shares the same zero varKey.scope, exactly matching Java's
// Objects.equals(null, null) == true for two unscoped vars of the same
// name.
type varKey struct {
	scope *scope.Scope
	name  string
}

// buildDefUseJSON renders one method's DDG the way DefUseJson.createFromPDG
// does: walk every PDG node except the entry and parameter nodes, in id
// order, and for each one's def-then-use variables (at least
// may-def/may-use), merge by (scope, name) and accumulate sorted,
// deduplicated statement line numbers.
func buildDefUseJSON(mp driver.MethodPDG) defUseJSON {
	index := make(map[varKey]int)
	var vars []*variableJSON

	for _, node := range mp.PDG.Nodes() {
		if node == mp.PDG.Enter || node.Kind == pdg.NodeParameter {
			continue
		}
		start, _ := node.PE.Span()

		for _, d := range mp.Analyzer.DefVariablesAtLeastMayDef(node.PE) {
			recordVariable(index, &vars, d.Scope, d.MainName, start, true)
		}
		for _, u := range mp.Analyzer.UseVariablesAtLeastMayUse(node.PE) {
			recordVariable(index, &vars, u.Scope, u.MainName, start, false)
		}
	}

	out := defUseJSON{VariableJsons: make([]variableJSON, 0, len(vars))}
	for _, v := range vars {
		sort.Ints(v.DefStmtLineNumbers)
		sort.Ints(v.UseStmtLineNumbers)
		out.VariableJsons = append(out.VariableJsons, *v)
	}
	return out
}

func recordVariable(index map[varKey]int, vars *[]*variableJSON, sc *scope.Scope, name string, line int, isDef bool) {
	k := varKey{scope: sc, name: name}
	i, ok := index[k]
	if !ok {
		var sj *scopeJSON
		if sc != nil {
			blockStart, _ := sc.Block.Span()
			sj = &scopeJSON{Type: pe.CategoryLabel(sc.Block), LineNumber: blockStart}
		}
		*vars = append(*vars, &variableJSON{ID: len(*vars), ScopeJSON: sj, Name: name})
		i = len(*vars) - 1
		index[k] = i
	}

	vj := (*vars)[i]
	if isDef {
		vj.DefStmtLineNumbers = appendUniqueLine(vj.DefStmtLineNumbers, line)
	} else {
		vj.UseStmtLineNumbers = appendUniqueLine(vj.UseStmtLineNumbers, line)
	}
}

func appendUniqueLine(lines []int, line int) []int {
	for _, l := range lines {
		if l == line {
			return lines
		}
	}
	return append(lines, line)
}

// methodKey renders "<name>#<startLine>", the result map's key shape.
func methodKey(method *pe.Method) string {
	start, _ := method.Span()
	return method.Name + "#" + strconv.Itoa(start)
}
