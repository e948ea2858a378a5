package expr

import (
	"math/big"
	"testing"
)

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	return NewBuilder(NewContext())
}

func bvVal(t *testing.T, e *Expr) *big.Int {
	t.Helper()
	v, ok := e.Value().(BvValue)
	if !ok {
		t.Fatalf("not a bitvector literal: %s", e)
	}
	return v.V
}

func TestExprInterning(t *testing.T) {
	b := newTestBuilder(t)
	ctx := b.Context()
	x, _ := ctx.CreateVariable("x", ctx.BvTy(32))
	y, _ := ctx.CreateVariable("y", ctx.BvTy(32))

	e1 := b.Add(x.RefExpr(), y.RefExpr())
	e2 := b.Add(x.RefExpr(), y.RefExpr())
	if e1 != e2 {
		t.Error("structurally equal expressions are not identical")
	}
	if e1 == b.Add(y.RefExpr(), x.RefExpr()) {
		t.Error("operand order ignored by interning")
	}
	if b.BvLit(5, 32) != b.BvLit(5, 32) {
		t.Error("literals are not interned")
	}
	if b.BvLit(5, 32) == b.BvLit(5, 64) {
		t.Error("literals of different widths share a node")
	}
}

func TestNotFolding(t *testing.T) {
	b := newTestBuilder(t)
	ctx := b.Context()
	p, _ := ctx.CreateVariable("p", ctx.BoolTy())

	if !b.Not(b.True()).IsFalse() {
		t.Error("Not(true) != false")
	}
	if !b.Not(b.False()).IsTrue() {
		t.Error("Not(false) != true")
	}
	if b.Not(b.Not(p.RefExpr())) != p.RefExpr() {
		t.Error("Not(Not(p)) != p")
	}
}

func TestAndOrNormalForm(t *testing.T) {
	b := newTestBuilder(t)
	ctx := b.Context()
	p, _ := ctx.CreateVariable("p", ctx.BoolTy())
	q, _ := ctx.CreateVariable("q", ctx.BoolTy())
	r, _ := ctx.CreateVariable("r", ctx.BoolTy())

	if !b.And().IsTrue() {
		t.Error("empty And != true")
	}
	if !b.Or().IsFalse() {
		t.Error("empty Or != false")
	}
	if b.And(p.RefExpr()) != p.RefExpr() {
		t.Error("unary And not collapsed")
	}
	if !b.And(p.RefExpr(), b.False(), q.RefExpr()).IsFalse() {
		t.Error("And with false operand did not short-circuit")
	}
	if !b.Or(p.RefExpr(), b.True()).IsTrue() {
		t.Error("Or with true operand did not short-circuit")
	}
	if b.And(p.RefExpr(), b.True()) != p.RefExpr() {
		t.Error("true operand not dropped from And")
	}

	// Nested conjunctions flatten; the normal form has no And child of
	// And and no boolean constants.
	nested := b.And(b.And(p.RefExpr(), q.RefExpr()), r.RefExpr())
	if nested.Kind() != And || nested.NumOps() != 3 {
		t.Fatalf("flattening failed: %s", nested)
	}
	for i := 0; i < nested.NumOps(); i++ {
		op := nested.Op(i)
		if op.Kind() == And || op.IsTrue() || op.IsFalse() {
			t.Errorf("normal form violated by operand %s", op)
		}
	}

	nestedOr := b.Or(b.Or(p.RefExpr(), q.RefExpr()), r.RefExpr())
	if nestedOr.Kind() != Or || nestedOr.NumOps() != 3 {
		t.Fatalf("Or flattening failed: %s", nestedOr)
	}
}

func TestXorIdentities(t *testing.T) {
	b := newTestBuilder(t)
	ctx := b.Context()
	p, _ := ctx.CreateVariable("p", ctx.BoolTy())

	if b.Xor(b.True(), p.RefExpr()).Kind() != Not {
		t.Error("Xor(true, p) != Not(p)")
	}
	if b.Xor(p.RefExpr(), b.True()).Kind() != Not {
		t.Error("Xor(p, true) != Not(p)")
	}
	if b.Xor(b.False(), p.RefExpr()) != p.RefExpr() {
		t.Error("Xor(false, p) != p")
	}
	if b.Xor(p.RefExpr(), b.False()) != p.RefExpr() {
		t.Error("Xor(p, false) != p")
	}
}

func TestImplyIdentities(t *testing.T) {
	b := newTestBuilder(t)
	ctx := b.Context()
	p, _ := ctx.CreateVariable("p", ctx.BoolTy())

	if !b.Imply(b.False(), p.RefExpr()).IsTrue() {
		t.Error("Imply(false, p) != true")
	}
	if b.Imply(b.True(), p.RefExpr()) != p.RefExpr() {
		t.Error("Imply(true, p) != p")
	}
	if b.Imply(p.RefExpr(), b.False()).Kind() != Not {
		t.Error("Imply(p, false) != Not(p)")
	}
}

func TestEqFolding(t *testing.T) {
	b := newTestBuilder(t)
	ctx := b.Context()
	x, _ := ctx.CreateVariable("x", ctx.BvTy(32))
	y, _ := ctx.CreateVariable("y", ctx.BvTy(32))

	if !b.Eq(x.RefExpr(), x.RefExpr()).IsTrue() {
		t.Error("Eq(x, x) != true")
	}
	if !b.NotEq(x.RefExpr(), x.RefExpr()).IsFalse() {
		t.Error("NotEq(x, x) != false")
	}
	if b.Eq(x.RefExpr(), y.RefExpr()).Kind() != Eq {
		t.Error("Eq of distinct variables folded")
	}
	if !b.Eq(b.BvLit(3, 8), b.BvLit(3, 8)).IsTrue() {
		t.Error("Eq of equal literals != true")
	}
	if !b.NotEq(b.BvLit(3, 8), b.BvLit(4, 8)).IsTrue() {
		t.Error("NotEq of distinct literals != true")
	}

	// Impure subexpressions stay symbolic even when identical.
	sum := b.Add(x.RefExpr(), y.RefExpr())
	if b.Eq(sum, sum).Kind() != Eq {
		t.Error("Eq folded over an impure operand")
	}
}

func TestSelectFolding(t *testing.T) {
	b := newTestBuilder(t)
	ctx := b.Context()
	p, _ := ctx.CreateVariable("p", ctx.BoolTy())
	x, _ := ctx.CreateVariable("x", ctx.BvTy(8))
	y, _ := ctx.CreateVariable("y", ctx.BvTy(8))

	if b.Select(b.True(), x.RefExpr(), y.RefExpr()) != x.RefExpr() {
		t.Error("Select(true, x, y) != x")
	}
	if b.Select(b.False(), x.RefExpr(), y.RefExpr()) != y.RefExpr() {
		t.Error("Select(false, x, y) != y")
	}
	if b.Select(p.RefExpr(), x.RefExpr(), x.RefExpr()) != x.RefExpr() {
		t.Error("Select(p, x, x) != x")
	}
}

func TestBvArithmeticFolding(t *testing.T) {
	b := newTestBuilder(t)

	tests := []struct {
		name string
		got  *Expr
		want int64
	}{
		{"add", b.Add(b.BvLit(10, 32), b.BvLit(20, 32)), 30},
		{"add wraps", b.Add(b.BvLit(255, 8), b.BvLit(1, 8)), 0},
		{"sub wraps", b.Sub(b.BvLit(0, 8), b.BvLit(1, 8)), 255},
		{"mul", b.Mul(b.BvLit(7, 16), b.BvLit(6, 16)), 42},
		{"udiv", b.UDiv(b.BvLit(42, 32), b.BvLit(5, 32)), 8},
		{"urem", b.URem(b.BvLit(42, 32), b.BvLit(5, 32)), 2},
		{"shl", b.Shl(b.BvLit(1, 8), b.BvLit(3, 8)), 8},
		{"shl overshift", b.Shl(b.BvLit(1, 8), b.BvLit(9, 8)), 0},
		{"lshr", b.LShr(b.BvLit(128, 8), b.BvLit(7, 8)), 1},
		{"band", b.BAnd(b.BvLit(0b1100, 8), b.BvLit(0b1010, 8)), 0b1000},
		{"bor", b.BOr(b.BvLit(0b1100, 8), b.BvLit(0b1010, 8)), 0b1110},
		{"bxor", b.BXor(b.BvLit(0b1100, 8), b.BvLit(0b1010, 8)), 0b0110},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got.Kind() != Literal {
				t.Fatalf("did not fold: %s", tt.got)
			}
			if got := bvVal(t, tt.got); got.Int64() != tt.want {
				t.Errorf("got %s, want %d", got, tt.want)
			}
		})
	}
}

func TestSignedFolding(t *testing.T) {
	b := newTestBuilder(t)
	neg := func(v int64, w uint32) *Expr { return b.BvLitBig(big.NewInt(v), w) }

	// sdiv truncates toward zero, srem keeps the dividend's sign.
	q := b.SDiv(neg(-7, 32), b.BvLit(2, 32))
	if got, _ := q.Value().(BvValue); got.Signed().Int64() != -3 {
		t.Errorf("sdiv(-7, 2) = %s, want -3", got.Signed())
	}
	r := b.SRem(neg(-7, 32), b.BvLit(2, 32))
	if got, _ := r.Value().(BvValue); got.Signed().Int64() != -1 {
		t.Errorf("srem(-7, 2) = %s, want -1", got.Signed())
	}

	// ashr fills with the sign bit; overshifting saturates.
	sh := b.AShr(neg(-8, 8), b.BvLit(1, 8))
	if got, _ := sh.Value().(BvValue); got.Signed().Int64() != -4 {
		t.Errorf("ashr(-8, 1) = %s, want -4", got.Signed())
	}
	over := b.AShr(neg(-8, 8), b.BvLit(200, 8))
	if got, _ := over.Value().(BvValue); got.Signed().Int64() != -1 {
		t.Errorf("ashr(-8, 200) = %s, want -1", got.Signed())
	}
}

func TestDivisionByLiteralZeroStaysSymbolic(t *testing.T) {
	b := newTestBuilder(t)

	for _, e := range []*Expr{
		b.SDiv(b.BvLit(10, 32), b.BvLit(0, 32)),
		b.UDiv(b.BvLit(10, 32), b.BvLit(0, 32)),
		b.SRem(b.BvLit(10, 32), b.BvLit(0, 32)),
		b.URem(b.BvLit(10, 32), b.BvLit(0, 32)),
	} {
		if e.Kind() == Literal {
			t.Errorf("division by zero folded to %s", e)
		}
	}
}

func TestCompareFolding(t *testing.T) {
	b := newTestBuilder(t)
	minusOne := b.BvLitBig(big.NewInt(-1), 8)

	tests := []struct {
		name string
		got  *Expr
		want bool
	}{
		{"slt signed", b.SLt(minusOne, b.BvLit(1, 8)), true},
		{"ult unsigned", b.ULt(minusOne, b.BvLit(1, 8)), false},
		{"sgt", b.SGt(b.BvLit(5, 8), b.BvLit(3, 8)), true},
		{"ugteq equal", b.UGtEq(b.BvLit(3, 8), b.BvLit(3, 8)), true},
		{"slteq", b.SLtEq(b.BvLit(3, 8), b.BvLit(2, 8)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := tt.got.Value().(BoolValue)
			if !ok {
				t.Fatalf("did not fold: %s", tt.got)
			}
			if bool(v) != tt.want {
				t.Errorf("got %v, want %v", v, tt.want)
			}
		})
	}
}

func TestCastFolding(t *testing.T) {
	b := newTestBuilder(t)
	ctx := b.Context()

	z := b.ZExt(b.BvLitBig(big.NewInt(-1), 8), ctx.BvTy(16))
	if bvVal(t, z).Int64() != 255 {
		t.Errorf("zext(0xff) = %s, want 255", bvVal(t, z))
	}
	s := b.SExt(b.BvLitBig(big.NewInt(-1), 8), ctx.BvTy(16))
	if bvVal(t, s).Int64() != 0xffff {
		t.Errorf("sext(0xff) = %s, want 0xffff", bvVal(t, s))
	}
	e := b.Extract(b.BvLit(0xabcd, 16), 8, 8)
	if bvVal(t, e).Int64() != 0xab {
		t.Errorf("extract(0xabcd, 8, 8) = %s, want 0xab", bvVal(t, e))
	}

	// Extracting the whole operand is the identity, literal or not.
	x, _ := ctx.CreateVariable("x", ctx.BvTy(32))
	if b.Extract(x.RefExpr(), 0, 32) != x.RefExpr() {
		t.Error("full-width extract is not the identity")
	}
}

func TestBuilderTypeChecks(t *testing.T) {
	b := newTestBuilder(t)
	ctx := b.Context()
	x, _ := ctx.CreateVariable("x", ctx.BvTy(32))
	p, _ := ctx.CreateVariable("p", ctx.BoolTy())

	tests := []struct {
		name string
		f    func()
	}{
		{"and on bitvector", func() { b.And(x.RefExpr(), p.RefExpr()) }},
		{"add width mismatch", func() { b.Add(x.RefExpr(), b.BvLit(1, 8)) }},
		{"eq type mismatch", func() { b.Eq(x.RefExpr(), p.RefExpr()) }},
		{"zext narrowing", func() { b.ZExt(x.RefExpr(), ctx.BvTy(8)) }},
		{"extract out of range", func() { b.Extract(x.RefExpr(), 30, 8) }},
		{"select arm mismatch", func() { b.Select(p.RefExpr(), x.RefExpr(), p.RefExpr()) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if r := recover(); r == nil {
					t.Error("no panic")
				} else if _, ok := r.(*TypeError); !ok {
					t.Errorf("panic value %v is not a TypeError", r)
				}
			}()
			tt.f()
		})
	}
}
