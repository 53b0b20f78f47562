package cfg

import "pdgtool/internal/pe"

// pendingJump records an unresolved break/continue awaiting a loop or
// switch to claim it (by label match) or let it bubble to an enclosing
// block.
type pendingJump struct {
	node  *Node
	label string
}

// subCFG is the in-progress result of building one statement, statement
// list, or method body: its single entry node, its set of exit nodes,
// and any break/continue nodes not yet resolved by an enclosing
// loop/switch.
type subCFG struct {
	enter            *Node
	exits            map[*Node]bool
	pendingBreaks    []pendingJump
	pendingContinues []pendingJump
}

func newExits(nodes ...*Node) map[*Node]bool {
	m := make(map[*Node]bool, len(nodes))
	for _, n := range nodes {
		m[n] = true
	}
	return m
}

// Builder constructs one method's CFG. Not safe for concurrent use —
// matching analysis within a single compilation unit staying
// single-threaded.
type Builder struct {
	factory *Factory
}

// NewBuilder creates a Builder with a fresh node factory.
func NewBuilder() *Builder {
	return &Builder{factory: NewFactory()}
}

// BuildMethod builds m's CFG.
func (b *Builder) BuildMethod(m *pe.Method) *CFG {
	var sub *subCFG
	if m.IsLambda {
		if m.LambdaBodyExpression != nil {
			node := b.factory.Make(m.LambdaBodyExpression)
			sub = &subCFG{enter: node, exits: newExits(node)}
		} else {
			p := b.factory.MakePseudo()
			sub = &subCFG{enter: p, exits: newExits(p)}
		}
	} else {
		sub = b.buildStatementList(m.Statements)
	}

	c := &CFG{
		Method:  m,
		Enter:   sub.enter,
		Exits:   sub.exits,
		factory: b.factory,
	}
	c.eliminatePseudoNodes()
	return c
}

// buildStatementList builds a sequence of PEs (statement bodies,
// initializer/updater expression lists), chaining each element's exits
// to the next element's enter.
func (b *Builder) buildStatementList(nodes []pe.PE) *subCFG {
	if len(nodes) == 0 {
		p := b.factory.MakePseudo()
		return &subCFG{enter: p, exits: newExits(p)}
	}

	var result *subCFG
	var prev *subCFG
	for _, n := range nodes {
		cur := b.buildElement(n)
		if result == nil {
			result = &subCFG{enter: cur.enter, exits: map[*Node]bool{}}
		} else {
			for exitNode := range prev.exits {
				attach(makeEdge(exitNode, cur.enter))
			}
		}
		result.pendingBreaks = append(result.pendingBreaks, cur.pendingBreaks...)
		result.pendingContinues = append(result.pendingContinues, cur.pendingContinues...)
		prev = cur
	}
	result.exits = prev.exits
	return result
}

// buildElement dispatches a single PE, whether a Statement with
// structural children or a bare Expression (initializers/updaters).
func (b *Builder) buildElement(p pe.PE) *subCFG {
	s, ok := p.(*pe.Statement)
	if !ok {
		n := b.factory.Make(p)
		return &subCFG{enter: n, exits: newExits(n)}
	}
	return b.buildStatement(s)
}

func (b *Builder) buildStatement(s *pe.Statement) *subCFG {
	switch s.Category {
	case pe.StmtBreak:
		n := b.factory.Make(s)
		label, _ := s.JumpLabel()
		return &subCFG{enter: n, exits: map[*Node]bool{}, pendingBreaks: []pendingJump{{node: n, label: label}}}
	case pe.StmtContinue:
		n := b.factory.Make(s)
		label, _ := s.JumpLabel()
		return &subCFG{enter: n, exits: map[*Node]bool{}, pendingContinues: []pendingJump{{node: n, label: label}}}
	case pe.StmtIf:
		return b.buildIf(s)
	case pe.StmtFor:
		return b.buildFor(s)
	case pe.StmtForeach, pe.StmtWhile:
		return b.buildLoop(s)
	case pe.StmtDo:
		return b.buildDo(s)
	case pe.StmtSwitch:
		return b.buildSwitch(s)
	case pe.StmtTry:
		return b.buildTry(s)
	case pe.StmtCatch, pe.StmtSynchronized:
		return b.buildConditionalBlock(s)
	case pe.StmtSimpleBlock:
		return b.buildStatementList(s.Statements)
	default:
		n := b.factory.Make(s)
		return &subCFG{enter: n, exits: newExits(n)}
	}
}

// buildConditionalBlock handles Catch/Synchronized: a control node whose
// true-edge enters the child sequence; the sequence's exits become the
// block's exits.
func (b *Builder) buildConditionalBlock(s *pe.Statement) *subCFG {
	ctrl := b.factory.MakeControl(s)
	body := b.buildStatementList(s.Statements)
	attach(&Edge{From: ctrl, To: body.enter, Kind: EdgeControl, Label: true})
	return &subCFG{
		enter:            ctrl,
		exits:            body.exits,
		pendingBreaks:    body.pendingBreaks,
		pendingContinues: body.pendingContinues,
	}
}

// buildLoop handles While/Foreach: control node on condition, true-edge
// into body, non-break body exits loop back to condition, breaks become
// block exits, continues target the condition.
func (b *Builder) buildLoop(s *pe.Statement) *subCFG {
	ctrl := b.factory.MakeControl(s)
	body := b.buildStatementList(s.Statements)
	attach(&Edge{From: ctrl, To: body.enter, Kind: EdgeControl, Label: true})
	for exitNode := range body.exits {
		attach(makeEdge(exitNode, ctrl))
	}

	result := &subCFG{enter: ctrl, exits: newExits(ctrl)}
	result.pendingBreaks = resolveBreaks(body.pendingBreaks, s.Label, result)
	result.pendingContinues = resolveContinues(body.pendingContinues, s.Label, ctrl)
	return result
}

// buildDo handles Do: body first, then control node on condition; body
// exits flow to condition; condition's true-edge re-enters the body;
// condition is the sole non-break exit; continues target the body enter.
func (b *Builder) buildDo(s *pe.Statement) *subCFG {
	body := b.buildStatementList(s.Statements)
	ctrl := b.factory.MakeControl(s)
	for exitNode := range body.exits {
		attach(makeEdge(exitNode, ctrl))
	}
	attach(&Edge{From: ctrl, To: body.enter, Kind: EdgeControl, Label: true})

	result := &subCFG{enter: body.enter, exits: newExits(ctrl)}
	result.pendingBreaks = resolveBreaks(body.pendingBreaks, s.Label, result)
	result.pendingContinues = resolveContinues(body.pendingContinues, s.Label, body.enter)
	return result
}

// buildFor handles For: sequential initializer CFG -> condition -> body
// -> sequential updater CFG -> condition. Exits: condition. Continues
// target the condition; breaks become exits.
func (b *Builder) buildFor(s *pe.Statement) *subCFG {
	init := b.buildStatementList(s.Initializers)
	ctrl := b.factory.MakeControl(s)
	for exitNode := range init.exits {
		attach(makeEdge(exitNode, ctrl))
	}

	body := b.buildStatementList(s.Statements)
	attach(&Edge{From: ctrl, To: body.enter, Kind: EdgeControl, Label: true})

	update := b.buildStatementList(s.Updaters)
	for exitNode := range body.exits {
		attach(makeEdge(exitNode, update.enter))
	}
	for exitNode := range update.exits {
		attach(makeEdge(exitNode, ctrl))
	}

	result := &subCFG{enter: init.enter, exits: newExits(ctrl)}
	result.pendingBreaks = resolveBreaks(body.pendingBreaks, s.Label, result)
	result.pendingContinues = resolveContinues(body.pendingContinues, s.Label, ctrl)
	return result
}

// buildIf handles If: then-branch as a non-loop conditional sequence; an
// always-built else sequence (empty when absent, which surfaces as a
// pseudo exit and so makes the condition itself an exit once pseudo
// elimination runs); exits are the union of both branches' exits.
func (b *Builder) buildIf(s *pe.Statement) *subCFG {
	ctrl := b.factory.MakeControl(s)

	then := b.buildStatementList(s.Statements)
	attach(&Edge{From: ctrl, To: then.enter, Kind: EdgeControl, Label: true})

	els := b.buildStatementList(s.ElseStatements)
	attach(&Edge{From: ctrl, To: els.enter, Kind: EdgeControl, Label: false})

	exits := map[*Node]bool{}
	for n := range then.exits {
		exits[n] = true
	}
	for n := range els.exits {
		exits[n] = true
	}

	return &subCFG{
		enter:            ctrl,
		exits:            exits,
		pendingBreaks:    append(then.pendingBreaks, els.pendingBreaks...),
		pendingContinues: append(then.pendingContinues, els.pendingContinues...),
	}
}

// buildSwitch handles Switch: control node on condition; a true-edge
// from condition to each Case child's enter; consecutive children chain
// exit-to-enter unless the anterior is Break/Continue (those stay
// pending instead of falling through); the last child's exits join the
// switch's own exits; breaks are resolved here, continues bubble up to
// the nearest enclosing loop.
func (b *Builder) buildSwitch(s *pe.Statement) *subCFG {
	ctrl := b.factory.MakeControl(s)

	children := make([]*subCFG, len(s.Statements))
	for i, child := range s.Statements {
		children[i] = b.buildElement(child)
		if cs, ok := child.(*pe.Statement); ok && cs.Category == pe.StmtCase {
			attach(&Edge{From: ctrl, To: children[i].enter, Kind: EdgeControl, Label: true})
		}
	}

	var allBreaks, allContinues []pendingJump
	for i, child := range children {
		isJump := false
		if cs, ok := s.Statements[i].(*pe.Statement); ok {
			isJump = cs.Category == pe.StmtBreak || cs.Category == pe.StmtContinue
		}
		if !isJump && i+1 < len(children) {
			for exitNode := range child.exits {
				attach(makeEdge(exitNode, children[i+1].enter))
			}
		}
		allBreaks = append(allBreaks, child.pendingBreaks...)
		allContinues = append(allContinues, child.pendingContinues...)
	}

	exits := map[*Node]bool{}
	if len(children) > 0 {
		for n := range children[len(children)-1].exits {
			exits[n] = true
		}
	} else {
		exits[ctrl] = true
	}

	result := &subCFG{enter: ctrl, exits: exits}
	result.pendingBreaks = resolveBreaks(allBreaks, s.Label, result)
	result.pendingContinues = allContinues
	return result
}

// buildTry handles Try: body and each catch flow into finally's enter
// (or a pseudo standing in for an absent finally); finally's exits are
// the try block's exits. This does not separately wire body statements
// into each catch — an accepted precision limitation.
func (b *Builder) buildTry(s *pe.Statement) *subCFG {
	body := b.buildStatementList(s.Statements)

	catches := make([]*subCFG, len(s.CatchStatements))
	for i, c := range s.CatchStatements {
		catches[i] = b.buildElement(c)
	}

	var finallyCFG *subCFG
	if fs, ok := s.FinallyStatement.(*pe.Statement); ok && fs != nil {
		finallyCFG = b.buildElement(fs)
	} else {
		p := b.factory.MakePseudo()
		finallyCFG = &subCFG{enter: p, exits: newExits(p)}
	}

	for exitNode := range body.exits {
		attach(makeEdge(exitNode, finallyCFG.enter))
	}
	for _, c := range catches {
		for exitNode := range c.exits {
			attach(makeEdge(exitNode, finallyCFG.enter))
		}
	}

	pendingBreaks := append([]pendingJump{}, body.pendingBreaks...)
	pendingContinues := append([]pendingJump{}, body.pendingContinues...)
	for _, c := range catches {
		pendingBreaks = append(pendingBreaks, c.pendingBreaks...)
		pendingContinues = append(pendingContinues, c.pendingContinues...)
	}
	pendingBreaks = append(pendingBreaks, finallyCFG.pendingBreaks...)
	pendingContinues = append(pendingContinues, finallyCFG.pendingContinues...)

	return &subCFG{
		enter:            body.enter,
		exits:            finallyCFG.exits,
		pendingBreaks:    pendingBreaks,
		pendingContinues: pendingContinues,
	}
}

// resolveBreaks absorbs every pending break whose label is unset or
// matches label as an exit of result, returning the rest (non-matching
// labels) to propagate to an outer block.
func resolveBreaks(pending []pendingJump, label string, result *subCFG) []pendingJump {
	var remaining []pendingJump
	for _, pj := range pending {
		if pj.label == "" || pj.label == label {
			result.exits[pj.node] = true
		} else {
			remaining = append(remaining, pj)
		}
	}
	return remaining
}

// resolveContinues wires every pending continue whose label is unset or
// matches label to dest, returning the rest to propagate outward.
func resolveContinues(pending []pendingJump, label string, dest *Node) []pendingJump {
	var remaining []pendingJump
	for _, pj := range pending {
		if pj.label == "" || pj.label == label {
			attach(makeEdge(pj.node, dest))
		} else {
			remaining = append(remaining, pj)
		}
	}
	return remaining
}
