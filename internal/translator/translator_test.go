package translator

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"

	"verica/internal/expr"
	"verica/internal/memory"
)

// buildFunc assembles a main function whose entry block holds the given
// instructions and returns a translator over it.
func buildFunc(t *testing.T, setup func(m *ir.Module, f *ir.Func, entry *ir.Block)) (*InstToExpr, *expr.Builder, Options) {
	t.Helper()
	return buildFuncOpts(t, Options{}, setup)
}

func buildFuncOpts(t *testing.T, opts Options, setup func(m *ir.Module, f *ir.Func, entry *ir.Block)) (*InstToExpr, *expr.Builder, Options) {
	t.Helper()
	m := ir.NewModule()
	f := m.NewFunc("main", types.I32)
	entry := f.NewBlock("entry")
	setup(m, f, entry)
	if entry.Term == nil {
		entry.Term = ir.NewRet(constant.NewInt(types.I32, 0))
	}

	ctx := expr.NewContext()
	b := expr.NewBuilder(ctx)
	tr, err := New(f, ctx, b, memory.NewSimpleModel(), opts)
	if err != nil {
		t.Fatalf("translator.New: %v", err)
	}
	return tr, b, opts
}

func mustTransform(t *testing.T, tr *InstToExpr, inst ir.Instruction) *expr.Expr {
	t.Helper()
	f, err := tr.Transform(inst)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	return f
}

func newNamed(blk *ir.Block, inst ir.Instruction, name string) ir.Instruction {
	inst.(interface{ SetName(string) }).SetName(name)
	blk.Insts = append(blk.Insts, inst)
	return inst
}

func TestBinaryArithmetic(t *testing.T) {
	var add, xor ir.Instruction
	tr, _, _ := buildFunc(t, func(m *ir.Module, f *ir.Func, entry *ir.Block) {
		a := ir.NewParam("a", types.I32)
		bp := ir.NewParam("b", types.I32)
		f.Params = append(f.Params, a, bp)
		add = newNamed(entry, ir.NewAdd(a, bp), "sum")
		xor = newNamed(entry, ir.NewXor(a, bp), "bits")
	})

	got := mustTransform(t, tr, add)
	if got.Kind() != expr.Eq || got.Op(1).Kind() != expr.Add {
		t.Errorf("add encodes as %s", got)
	}
	if got.Op(0).Variable().Name() != "sum" {
		t.Errorf("assignment target is %s", got.Op(0))
	}

	// xor over i32 stays bitwise.
	if got := mustTransform(t, tr, xor); got.Op(1).Kind() != expr.BXor {
		t.Errorf("i32 xor encodes as %s", got)
	}
}

func TestLogicOnBooleans(t *testing.T) {
	var and ir.Instruction
	tr, _, _ := buildFunc(t, func(m *ir.Module, f *ir.Func, entry *ir.Block) {
		p := ir.NewParam("p", types.I1)
		q := ir.NewParam("q", types.I1)
		f.Params = append(f.Params, p, q)
		and = newNamed(entry, ir.NewAnd(p, q), "both")
	})

	got := mustTransform(t, tr, and)
	if got.Kind() != expr.Eq || got.Op(1).Kind() != expr.And {
		t.Errorf("i1 and encodes as %s", got)
	}
	if !expr.IsBoolType(got.Op(0).Type()) {
		t.Errorf("i1 result variable has type %s", got.Op(0).Type().Name())
	}
}

func TestICmpPredicates(t *testing.T) {
	preds := []struct {
		pred enum.IPred
		kind expr.Kind
	}{
		{enum.IPredEQ, expr.Eq},
		{enum.IPredNE, expr.NotEq},
		{enum.IPredUGT, expr.UGt},
		{enum.IPredUGE, expr.UGtEq},
		{enum.IPredULT, expr.ULt},
		{enum.IPredULE, expr.ULtEq},
		{enum.IPredSGT, expr.SGt},
		{enum.IPredSGE, expr.SGtEq},
		{enum.IPredSLT, expr.SLt},
		{enum.IPredSLE, expr.SLtEq},
	}

	var insts []ir.Instruction
	tr, _, _ := buildFunc(t, func(m *ir.Module, f *ir.Func, entry *ir.Block) {
		a := ir.NewParam("a", types.I32)
		bp := ir.NewParam("b", types.I32)
		f.Params = append(f.Params, a, bp)
		for i, p := range preds {
			insts = append(insts, newNamed(entry, ir.NewICmp(p.pred, a, bp), "c"+string(rune('a'+i))))
		}
	})

	for i, p := range preds {
		got := mustTransform(t, tr, insts[i])
		if got.Kind() != expr.Eq || got.Op(1).Kind() != p.kind {
			t.Errorf("pred %v encodes as %s, want %s", p.pred, got.Op(1).Kind(), p.kind)
		}
	}
}

func TestFCmpOrderedUnordered(t *testing.T) {
	var olt, ult, ord, uno, alwaysTrue ir.Instruction
	tr, _, _ := buildFunc(t, func(m *ir.Module, f *ir.Func, entry *ir.Block) {
		x := ir.NewParam("x", types.Double)
		y := ir.NewParam("y", types.Double)
		f.Params = append(f.Params, x, y)
		olt = newNamed(entry, ir.NewFCmp(enum.FPredOLT, x, y), "olt")
		ult = newNamed(entry, ir.NewFCmp(enum.FPredULT, x, y), "ult")
		ord = newNamed(entry, ir.NewFCmp(enum.FPredORD, x, y), "ord")
		uno = newNamed(entry, ir.NewFCmp(enum.FPredUNO, x, y), "uno")
		alwaysTrue = newNamed(entry, ir.NewFCmp(enum.FPredTrue, x, y), "always")
	})

	// Ordered: noNaN(a,b) AND core.
	got := mustTransform(t, tr, olt)
	rhs := got.Op(1)
	if rhs.Kind() != expr.And || rhs.NumOps() != 3 {
		t.Fatalf("olt encodes as %s", rhs)
	}
	if rhs.Op(0).Kind() != expr.Not || rhs.Op(0).Op(0).Kind() != expr.FIsNan {
		t.Errorf("olt lacks the no-NaN guard: %s", rhs)
	}
	if rhs.Op(2).Kind() != expr.FLt {
		t.Errorf("olt core is %s", rhs.Op(2).Kind())
	}

	// Unordered: someNaN(a,b) OR core.
	rhs = mustTransform(t, tr, ult).Op(1)
	if rhs.Kind() != expr.Or || rhs.NumOps() != 3 {
		t.Fatalf("ult encodes as %s", rhs)
	}
	if rhs.Op(0).Kind() != expr.FIsNan || rhs.Op(2).Kind() != expr.FLt {
		t.Errorf("ult shape wrong: %s", rhs)
	}

	// ORD and UNO are the pure NaN tests.
	rhs = mustTransform(t, tr, ord).Op(1)
	if rhs.Kind() != expr.And || rhs.NumOps() != 2 {
		t.Errorf("ord encodes as %s", rhs)
	}
	rhs = mustTransform(t, tr, uno).Op(1)
	if rhs.Kind() != expr.Or || rhs.NumOps() != 2 {
		t.Errorf("uno encodes as %s", rhs)
	}

	// FCMP_TRUE folds away.
	if rhs := mustTransform(t, tr, alwaysTrue).Op(1); !rhs.IsTrue() {
		t.Errorf("fcmp true encodes as %s", rhs)
	}
}

func TestFCmpAssumeNoNaN(t *testing.T) {
	var olt, ord, uno ir.Instruction
	tr, _, _ := buildFuncOpts(t, Options{AssumeNoNaN: true}, func(m *ir.Module, f *ir.Func, entry *ir.Block) {
		x := ir.NewParam("x", types.Double)
		y := ir.NewParam("y", types.Double)
		f.Params = append(f.Params, x, y)
		olt = newNamed(entry, ir.NewFCmp(enum.FPredOLT, x, y), "olt")
		ord = newNamed(entry, ir.NewFCmp(enum.FPredORD, x, y), "ord")
		uno = newNamed(entry, ir.NewFCmp(enum.FPredUNO, x, y), "uno")
	})

	if rhs := mustTransform(t, tr, olt).Op(1); rhs.Kind() != expr.FLt {
		t.Errorf("olt under assume-no-nan encodes as %s", rhs)
	}
	if rhs := mustTransform(t, tr, ord).Op(1); !rhs.IsTrue() {
		t.Errorf("ord under assume-no-nan encodes as %s", rhs)
	}
	if rhs := mustTransform(t, tr, uno).Op(1); !rhs.IsFalse() {
		t.Errorf("uno under assume-no-nan encodes as %s", rhs)
	}
}

func TestFloatAssignmentUsesFEq(t *testing.T) {
	var fadd ir.Instruction
	tr, _, _ := buildFunc(t, func(m *ir.Module, f *ir.Func, entry *ir.Block) {
		x := ir.NewParam("x", types.Double)
		y := ir.NewParam("y", types.Double)
		f.Params = append(f.Params, x, y)
		fadd = newNamed(entry, ir.NewFAdd(x, y), "sum")
	})

	got := mustTransform(t, tr, fadd)
	if got.Kind() != expr.FEq {
		t.Errorf("float assignment uses %s, want FEq", got.Kind())
	}
	if got.Op(1).Kind() != expr.FAdd || got.Op(1).RoundingMode() != expr.RoundNearestTiesToEven {
		t.Errorf("fadd encodes as %s", got.Op(1))
	}
}

func TestSelectCoercesArms(t *testing.T) {
	var sel ir.Instruction
	tr, _, _ := buildFunc(t, func(m *ir.Module, f *ir.Func, entry *ir.Block) {
		c := ir.NewParam("c", types.I32) // non-boolean condition source
		f.Params = append(f.Params, c)
		cond := newNamed(entry, ir.NewICmp(enum.IPredNE, c, constant.NewInt(types.I32, 0)), "cond")
		sel = newNamed(entry, ir.NewSelect(cond.(*ir.InstICmp), constant.NewInt(types.I32, 1), constant.NewInt(types.I32, 2)), "pick")
	})

	got := mustTransform(t, tr, sel)
	if got.Op(1).Kind() != expr.Select {
		t.Fatalf("select encodes as %s", got.Op(1))
	}
	if !expr.IsBoolType(got.Op(1).Op(0).Type()) {
		t.Errorf("select condition has type %s", got.Op(1).Op(0).Type().Name())
	}
}

func TestIntegerCasts(t *testing.T) {
	var z, s, tr1 ir.Instruction
	tr, _, _ := buildFunc(t, func(m *ir.Module, f *ir.Func, entry *ir.Block) {
		a := ir.NewParam("a", types.I8)
		f.Params = append(f.Params, a)
		z = newNamed(entry, ir.NewZExt(a, types.I32), "z")
		s = newNamed(entry, ir.NewSExt(a, types.I32), "s")
		tr1 = newNamed(entry, ir.NewTrunc(a, types.NewInt(4)), "t")
	})

	if rhs := mustTransform(t, tr, z).Op(1); rhs.Kind() != expr.ZExt {
		t.Errorf("zext encodes as %s", rhs.Kind())
	}
	if rhs := mustTransform(t, tr, s).Op(1); rhs.Kind() != expr.SExt {
		t.Errorf("sext encodes as %s", rhs.Kind())
	}
	// trunc becomes a low-bits extract.
	if rhs := mustTransform(t, tr, tr1).Op(1); rhs.Kind() != expr.Extract || rhs.ExtractOffset() != 0 {
		t.Errorf("trunc encodes as %s", rhs)
	}
}

func TestBranchGuards(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunc("main", types.I32)
	entry := f.NewBlock("entry")
	thenBB := f.NewBlock("then")
	elseBB := f.NewBlock("else")
	thenBB.Term = ir.NewRet(constant.NewInt(types.I32, 0))
	elseBB.Term = ir.NewRet(constant.NewInt(types.I32, 1))

	p := ir.NewParam("p", types.I1)
	f.Params = append(f.Params, p)
	entry.Term = ir.NewCondBr(p, thenBB, elseBB)

	ctx := expr.NewContext()
	b := expr.NewBuilder(ctx)
	tr, err := New(f, ctx, b, memory.NewSimpleModel(), Options{})
	if err != nil {
		t.Fatalf("translator.New: %v", err)
	}

	guard0, err := tr.TransformTerminator(entry.Term, 0)
	if err != nil {
		t.Fatalf("TransformTerminator: %v", err)
	}
	if guard0.Kind() != expr.VarRef {
		t.Errorf("true-edge guard is %s", guard0)
	}
	guard1, _ := tr.TransformTerminator(entry.Term, 1)
	if guard1.Kind() != expr.Not {
		t.Errorf("false-edge guard is %s", guard1)
	}

	// An unconditional branch contributes a vacuous guard.
	uncond := ir.NewBr(thenBB)
	g, _ := tr.TransformTerminator(uncond, 0)
	if !g.IsTrue() {
		t.Errorf("unconditional branch guard is %s", g)
	}
}

func TestSwitchGuards(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunc("main", types.I32)
	entry := f.NewBlock("entry")
	def := f.NewBlock("default")
	c1 := f.NewBlock("case1")
	c2 := f.NewBlock("case2")
	for _, blk := range []*ir.Block{def, c1, c2} {
		blk.Term = ir.NewRet(constant.NewInt(types.I32, 0))
	}

	x := ir.NewParam("x", types.I32)
	f.Params = append(f.Params, x)
	entry.Term = ir.NewSwitch(x, def,
		ir.NewCase(constant.NewInt(types.I32, 1), c1),
		ir.NewCase(constant.NewInt(types.I32, 2), c2),
	)

	ctx := expr.NewContext()
	b := expr.NewBuilder(ctx)
	tr, err := New(f, ctx, b, memory.NewSimpleModel(), Options{})
	if err != nil {
		t.Fatalf("translator.New: %v", err)
	}

	// Successor 0 is the default branch: conjunction of disequalities.
	g, err := tr.TransformTerminator(entry.Term, 0)
	if err != nil {
		t.Fatalf("TransformTerminator: %v", err)
	}
	if g.Kind() != expr.And || g.NumOps() != 2 {
		t.Fatalf("default guard is %s", g)
	}
	for i := 0; i < 2; i++ {
		if g.Op(i).Kind() != expr.NotEq {
			t.Errorf("default guard operand %d is %s", i, g.Op(i).Kind())
		}
	}

	// A case branch is an equality.
	g, _ = tr.TransformTerminator(entry.Term, 1)
	if g.Kind() != expr.Eq {
		t.Errorf("case guard is %s", g)
	}
}

func TestPhiResolution(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunc("main", types.I32)
	entry := f.NewBlock("entry")
	left := f.NewBlock("left")
	right := f.NewBlock("right")
	merge := f.NewBlock("merge")

	p := ir.NewParam("p", types.I1)
	f.Params = append(f.Params, p)
	entry.Term = ir.NewCondBr(p, left, right)
	left.Term = ir.NewBr(merge)
	right.Term = ir.NewBr(merge)

	phi := ir.NewPhi(
		ir.NewIncoming(constant.NewInt(types.I32, 1), left),
		ir.NewIncoming(constant.NewInt(types.I32, 2), right),
	)
	phi.SetName("v")
	merge.Insts = append(merge.Insts, phi)
	merge.Term = ir.NewRet(phi)

	ctx := expr.NewContext()
	b := expr.NewBuilder(ctx)
	tr, err := New(f, ctx, b, memory.NewSimpleModel(), Options{})
	if err != nil {
		t.Fatalf("translator.New: %v", err)
	}

	got, err := tr.TransformEdge(phi, 0, left)
	if err != nil {
		t.Fatalf("TransformEdge: %v", err)
	}
	want := b.Eq(ctx.LookupVariable("v").RefExpr(), b.BvLit(1, 32))
	if got != want {
		t.Errorf("phi via left = %s, want %s", got, want)
	}

	got, _ = tr.TransformEdge(phi, 0, right)
	if got.Op(1).Value().(expr.BvValue).Uint64() != 2 {
		t.Errorf("phi via right = %s", got)
	}
}

func TestCoercionLaws(t *testing.T) {
	tr, b, _ := buildFunc(t, func(m *ir.Module, f *ir.Func, entry *ir.Block) {
		f.Params = append(f.Params,
			ir.NewParam("p", types.I1),
			ir.NewParam("w", types.I8),
		)
	})
	ctx := b.Context()
	p := ctx.LookupVariable("p").RefExpr()
	w := ctx.LookupVariable("w").RefExpr()

	// asBool . asBv is the identity on booleans.
	bv, err := tr.asBv(p, 8)
	if err != nil {
		t.Fatalf("asBv: %v", err)
	}
	back, err := tr.asBool(bv)
	if err != nil {
		t.Fatalf("asBool: %v", err)
	}
	if back != p {
		t.Errorf("asBool(asBv(p, 8)) = %s, want p", back)
	}

	// asBv . asBool is the identity on one-bit vectors.
	one, _ := ctx.CreateVariable("bit", ctx.BvTy(1))
	bl, err := tr.asBool(one.RefExpr())
	if err != nil {
		t.Fatalf("asBool: %v", err)
	}
	round, err := tr.asBv(bl, 1)
	if err != nil {
		t.Fatalf("asBv: %v", err)
	}
	if round != one.RefExpr() {
		t.Errorf("asBv(asBool(e), 1) = %s, want e", round)
	}

	// asBv on a matching width is the identity.
	same, err := tr.asBv(w, 8)
	if err != nil {
		t.Fatalf("asBv: %v", err)
	}
	if same != w {
		t.Errorf("asBv(w, 8) = %s, want w", same)
	}
}

func TestNondetCallLeavesVariableFree(t *testing.T) {
	var call ir.Instruction
	tr, _, _ := buildFunc(t, func(m *ir.Module, f *ir.Func, entry *ir.Block) {
		nondet := m.NewFunc("__VERIFIER_nondet_int", types.I32)
		call = newNamed(entry, ir.NewCall(nondet), "a")
	})

	got := mustTransform(t, tr, call)
	if !got.IsTrue() {
		t.Errorf("nondet call contributes %s, want true", got)
	}
}

func TestTranslatorDeterminism(t *testing.T) {
	build := func() *expr.Expr {
		var icmp ir.Instruction
		tr, _, _ := buildFunc(t, func(m *ir.Module, f *ir.Func, entry *ir.Block) {
			a := ir.NewParam("a", types.I32)
			f.Params = append(f.Params, a)
			icmp = newNamed(entry, ir.NewICmp(enum.IPredEQ, a, constant.NewInt(types.I32, 0)), "c")
		})
		return mustTransform(t, tr, icmp)
	}

	// Identical modules in identical contexts give structurally equal
	// DAGs; identity holds within one context by interning.
	first := build().String()
	second := build().String()
	if first != second {
		t.Errorf("translator output differs between runs:\n%s\n%s", first, second)
	}
}
