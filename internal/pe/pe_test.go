package pe

import "testing"

func TestIDsMonotonicAndUnique(t *testing.T) {
	ResetIDsForTest()
	a := NewStatement(StmtExpression, 1, 1)
	b := NewExpression(ExprSimpleName, 1, 1)
	c := NewMethod("foo", 1, 5)

	if a.ID() == 0 || b.ID() == 0 || c.ID() == 0 {
		t.Fatalf("expected nonzero ids, got %d %d %d", a.ID(), b.ID(), c.ID())
	}
	if !(a.ID() < b.ID() && b.ID() < c.ID()) {
		t.Fatalf("expected strictly increasing ids, got %d %d %d", a.ID(), b.ID(), c.ID())
	}
}

func TestKindDispatch(t *testing.T) {
	var p PE = NewStatement(StmtIf, 1, 3)
	if p.Kind() != KindStatement {
		t.Fatalf("expected KindStatement, got %v", p.Kind())
	}
	p = NewExpression(ExprAssignment, 1, 1)
	if p.Kind() != KindExpression {
		t.Fatalf("expected KindExpression, got %v", p.Kind())
	}
}

func TestIsBlockLeading(t *testing.T) {
	cases := []struct {
		cat  StatementCategory
		want bool
	}{
		{StmtSimpleBlock, true},
		{StmtIf, true},
		{StmtFor, true},
		{StmtWhile, true},
		{StmtTry, true},
		{StmtSwitch, true},
		{StmtBreak, false},
		{StmtReturn, false},
		{StmtExpression, false},
	}
	for _, c := range cases {
		s := NewStatement(c.cat, 1, 1)
		if got := s.IsBlockLeading(); got != c.want {
			t.Errorf("category %v: IsBlockLeading() = %v, want %v", c.cat, got, c.want)
		}
	}
}

func TestJumpLabel(t *testing.T) {
	brk := NewStatement(StmtBreak, 1, 1)
	if _, ok := brk.JumpLabel(); ok {
		t.Fatalf("expected no label on unlabeled break")
	}
	label := NewExpression(ExprSimpleName, 1, 1)
	label.SetText("outer")
	brk.Expressions = []PE{label}
	got, ok := brk.JumpLabel()
	if !ok || got != "outer" {
		t.Fatalf("expected label %q, got %q ok=%v", "outer", got, ok)
	}
}

func TestSpanAndTextMutation(t *testing.T) {
	e := NewExpression(ExprNumber, 4, 4)
	if start, end := e.Span(); start != 4 || end != 4 {
		t.Fatalf("unexpected span %d,%d", start, end)
	}
	e.SetSpan(4, 6)
	if start, end := e.Span(); start != 4 || end != 6 {
		t.Fatalf("SetSpan did not update span: %d,%d", start, end)
	}
	e.SetText("1")
	if e.Text() != "1" {
		t.Fatalf("SetText did not update text")
	}
}

func TestCompareOrdersByID(t *testing.T) {
	ResetIDsForTest()
	a := NewExpression(ExprNumber, 1, 1)
	b := NewExpression(ExprNumber, 2, 2)
	if Compare(a, b) >= 0 {
		t.Fatalf("expected a < b by id")
	}
	if Compare(a, a) != 0 {
		t.Fatalf("expected a == a")
	}
}

func TestAnonymousClass(t *testing.T) {
	named := NewClass("Foo", 1, 10)
	if named.IsAnonymous() {
		t.Fatalf("named class should not be anonymous")
	}
	anon := NewClass("", 1, 10)
	if !anon.IsAnonymous() {
		t.Fatalf("empty-name class should be anonymous")
	}
}
