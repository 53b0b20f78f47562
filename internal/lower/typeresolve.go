package lower

import "sync"

// TypeResolver records the static type of each parameter and local
// variable that lowering declares, keyed by name. MethodInvocation's
// apiName does not consult it: the receiver type there comes from the
// AST node's own ResolveReceiverType hook. It is intentionally much
// smaller than a full types.go implements/embeds graph: type
// inference beyond this one hook is out of scope, so there is no
// receiver hierarchy to walk, only a flat declared-name -> type map
// populated as lowering encounters parameter and local variable
// declarations.
type TypeResolver struct {
	mu       sync.Mutex
	declared map[string]string
}

// NewTypeResolver creates an empty resolver.
func NewTypeResolver() *TypeResolver {
	return &TypeResolver{declared: make(map[string]string)}
}

// Declare records name's static type, overwriting any prior binding
// (later declarations in an enclosing lowering pass shadow earlier ones,
// which is an acceptable approximation given no real nested-scope type
// tracking is in play here).
func (r *TypeResolver) Declare(name, typ string) {
	if name == "" || typ == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.declared[name] = typ
}

// Resolve returns name's declared type, if known.
func (r *TypeResolver) Resolve(name string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.declared[name]
	return t, ok
}
