// Package lower implements AST → PE lowering (C4): a single recursive
// descent over a foreign, Java-like AST that builds the PE forest
// internal/pe defines, using a disciplined work stack to stay resilient
// to AST categories it does not model.
package lower

// Node is the minimal AST contract this module consumes. It stands in
// for the typed AST, matching a fixed vocabulary of node categories,
// that an external parser is expected to hand over (out of scope here):
// no concrete parser dependency is wired, since there is nothing in the
// example corpus that parses this foreign, Java-like grammar. Test
// fixtures build Node trees directly.
type Node interface {
	// Category names the AST node's kind (e.g. "If", "MethodInvocation",
	// "SimpleName").
	Category() string

	// Span returns the node's source line range.
	Span() (startLine, endLine int)

	// Text returns the node's own leaf text: an identifier, a literal's
	// rendering, an operator token, or (for method-like nodes) a name.
	// Composite nodes may return "" here; lowering builds their
	// pretty-printed text from children instead.
	Text() string

	// Children returns the child nodes attached under role, a
	// construct-specific slot name such as "condition", "then", "else",
	// "body", "init", "update", "arguments", "qualifier", "fragments".
	// An unrecognized or absent role returns nil.
	Children(role string) []Node

	// ResolveReceiverType returns the fully qualified type of a
	// MethodInvocation's qualifier, when statically known, for apiName
	// construction. Returns ok=false when unresolvable, in which case
	// lowering degrades to a textual qualifier.
	ResolveReceiverType() (string, bool)
}
