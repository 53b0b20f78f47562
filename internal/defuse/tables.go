package defuse

import "strings"

// MethodClassificationTables classifies a method-invocation's receiver
// mutation certainty from the invoked method's name. Pinned as observed
// in the original analyzer: `contains` is classified under the DEF
// prefix list, which is surprising (it usually means membership testing,
// not mutation) — kept as-is per the design note, not "fixed", and
// exposed here as an overridable table rather than a hardcoded switch.
type MethodClassificationTables struct {
	NoDefNames    map[string]bool
	DefNames      map[string]bool
	NoDefPrefixes []string
	DefPrefixes   []string
}

// DefaultMethodClassificationTables is the classification pinned from the
// original analyzer's ExpressionInfo.judgeMethodMayDefBase.
var DefaultMethodClassificationTables = MethodClassificationTables{
	NoDefNames: map[string]bool{
		"equals": true, "hashCode": true, "toString": true, "isEmpty": true,
		"size": true, "length": true, "stream": true,
	},
	DefNames: map[string]bool{
		"push": true, "pop": true, "offer": true, "poll": true,
	},
	NoDefPrefixes: []string{"get", "print", "debug", "trace", "info", "warn", "error"},
	DefPrefixes:   []string{"set", "add", "remove", "put", "insert", "contains"},
}

// Classify returns the receiver-mutation certainty for methodName.
// Exact names are checked before prefixes; anything unmatched falls
// through to MAY_DEF.
func (t MethodClassificationTables) Classify(methodName string) DefType {
	if t.NoDefNames[methodName] {
		return DefNoDef
	}
	if t.DefNames[methodName] {
		return DefDef
	}
	for _, p := range t.NoDefPrefixes {
		if strings.HasPrefix(methodName, p) {
			return DefNoDef
		}
	}
	for _, p := range t.DefPrefixes {
		if strings.HasPrefix(methodName, p) {
			return DefDef
		}
	}
	return DefMayDef
}
