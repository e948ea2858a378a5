package expr

import (
	"testing"
)

func TestEvalSubstitutesAndFolds(t *testing.T) {
	b := newTestBuilder(t)
	ctx := b.Context()
	x, _ := ctx.CreateVariable("x", ctx.BvTy(32))
	y, _ := ctx.CreateVariable("y", ctx.BvTy(32))

	formula := b.SLt(b.Add(x.RefExpr(), y.RefExpr()), b.BvLit(10, 32))

	val := NewValuation()
	val.Set(x, b.BvLit(3, 32))
	val.Set(y, b.BvLit(4, 32))

	got, err := Eval(b, formula, val)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if !got.IsTrue() {
		t.Errorf("3 + 4 < 10 evaluated to %s", got)
	}
}

func TestEvalMissingVariable(t *testing.T) {
	b := newTestBuilder(t)
	ctx := b.Context()
	x, _ := ctx.CreateVariable("x", ctx.BvTy(32))

	_, err := Eval(b, b.Add(x.RefExpr(), b.BvLit(1, 32)), NewValuation())
	if err == nil {
		t.Fatal("missing binding did not fail")
	}
	if _, ok := err.(*UndefinedValueError); !ok {
		t.Errorf("want UndefinedValueError, got %T", err)
	}
}

func TestEvalUndef(t *testing.T) {
	b := newTestBuilder(t)
	ctx := b.Context()

	_, err := Eval(b, b.Undef(ctx.BoolTy()), NewValuation())
	if err == nil {
		t.Fatal("undef evaluated to a value")
	}
}

func TestReadOverWrite(t *testing.T) {
	b := newTestBuilder(t)
	ctx := b.Context()
	at := ctx.ArrayTy(ctx.BvTy(32), ctx.BvTy(8))
	mem, _ := ctx.CreateVariable("mem", at)

	w1 := b.ArrayWrite(mem.RefExpr(), b.BvLit(16, 32), b.BvLit(1, 8))
	w2 := b.ArrayWrite(w1, b.BvLit(32, 32), b.BvLit(2, 8))

	// Reads over literal indices resolve through the write chain.
	if got := b.ArrayRead(w2, b.BvLit(32, 32)); bvVal(t, got).Int64() != 2 {
		t.Errorf("read of last write = %s", got)
	}
	if got := b.ArrayRead(w2, b.BvLit(16, 32)); bvVal(t, got).Int64() != 1 {
		t.Errorf("read through the chain = %s", got)
	}

	// A read below the base array stays symbolic in the builder but
	// defaults to the zero cell under evaluation.
	sym := b.ArrayRead(w2, b.BvLit(48, 32))
	if sym.Kind() != ArrayRead {
		t.Fatalf("read of unwritten cell folded to %s", sym)
	}
	got, err := Eval(b, sym, NewValuation())
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if bvVal(t, got).Int64() != 0 {
		t.Errorf("unwritten cell evaluated to %s", got)
	}
}

func TestRewriteMemoization(t *testing.T) {
	b := newTestBuilder(t)
	ctx := b.Context()
	x, _ := ctx.CreateVariable("x", ctx.BvTy(32))

	// A deep chain of shared nodes; memoized rewriting must visit each
	// node once or this would be exponential.
	e := x.RefExpr()
	for i := 0; i < 64; i++ {
		e = b.Add(e, e)
	}

	visits := 0
	Rewrite(e, func(old *Expr, ops []*Expr) *Expr {
		visits++
		return old
	})
	if visits != 65 {
		t.Errorf("visited %d nodes, want 65", visits)
	}
}

func TestFreeVariables(t *testing.T) {
	b := newTestBuilder(t)
	ctx := b.Context()
	x, _ := ctx.CreateVariable("x", ctx.BvTy(32))
	y, _ := ctx.CreateVariable("y", ctx.BvTy(32))

	vars := FreeVariables(b.Add(x.RefExpr(), b.Add(y.RefExpr(), x.RefExpr())))
	if len(vars) != 2 {
		t.Fatalf("got %d variables, want 2", len(vars))
	}
	if vars[0] != x || vars[1] != y {
		t.Errorf("unexpected order: %v, %v", vars[0], vars[1])
	}
}
