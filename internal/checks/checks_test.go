package checks

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
)

func TestAssertionFailCheck(t *testing.T) {
	m := ir.NewModule()
	errFn := m.NewFunc("__VERIFIER_error", types.Void)
	f := m.NewFunc("main", types.I32)
	entry := f.NewBlock("entry")
	entry.Insts = append(entry.Insts, ir.NewCall(errFn))
	entry.Term = ir.NewRet(constant.NewInt(types.I32, 0))

	reg := NewRegistry()
	check := NewAssertionFailCheck()
	reg.Add(check)

	changed, err := check.Mark(f, reg)
	if err != nil {
		t.Fatalf("Mark: %v", err)
	}
	if !changed {
		t.Fatal("error call not instrumented")
	}

	// The error call is gone; entry now jumps into a fresh error block.
	if len(entry.Insts) != 0 {
		t.Errorf("entry still holds %d instructions", len(entry.Insts))
	}
	br, ok := entry.Term.(*ir.TermBr)
	if !ok {
		t.Fatalf("entry terminator is %T", entry.Term)
	}
	errBlock := br.Target.(*ir.Block)
	if !reg.IsErrorBlock(errBlock) {
		t.Error("branch target is not a registered error block")
	}
	if code := reg.ErrorCode(errBlock); code != 1 {
		t.Errorf("error code = %d, want 1", code)
	}
	if msg := reg.MessageForCode(1); msg != "Assertion failure" {
		t.Errorf("message = %q", msg)
	}
}

func TestDivisionByZeroCheck(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunc("main", types.I32)
	entry := f.NewBlock("entry")

	x := ir.NewParam("x", types.I32)
	y := ir.NewParam("y", types.I32)
	f.Params = append(f.Params, x, y)

	div := ir.NewSDiv(x, y)
	div.SetName("q")
	entry.Insts = append(entry.Insts, div)
	entry.Term = ir.NewRet(div)

	reg := NewRegistry()
	check := NewDivisionByZeroCheck()
	reg.Add(check)

	if _, err := check.Mark(f, reg); err != nil {
		t.Fatalf("Mark: %v", err)
	}

	// The division moved into a continuation guarded by divisor != 0.
	cb, ok := entry.Term.(*ir.TermCondBr)
	if !ok {
		t.Fatalf("entry terminator is %T", entry.Term)
	}
	guard, ok := cb.Cond.(*ir.InstICmp)
	if !ok || guard.Y.(*constant.Int).X.Sign() != 0 {
		t.Fatalf("guard is %v", cb.Cond)
	}
	if guard.X != y {
		t.Error("guard does not test the divisor")
	}
	cont := cb.TargetTrue.(*ir.Block)
	if len(cont.Insts) != 1 || cont.Insts[0] != ir.Instruction(div) {
		t.Error("division did not move to the continuation block")
	}
	if !reg.IsErrorBlock(cb.TargetFalse.(*ir.Block)) {
		t.Error("false edge does not lead to an error block")
	}
}

func TestOverflowCheckRewrites(t *testing.T) {
	m := ir.NewModule()
	intrinsic := m.NewFunc("llvm.sadd.with.overflow.i32",
		types.NewStruct(types.I32, types.I1),
		ir.NewParam("", types.I32), ir.NewParam("", types.I32))

	f := m.NewFunc("main", types.I32)
	entry := f.NewBlock("entry")
	ret := f.NewBlock("ret")
	trap := f.NewBlock("trap")
	ret.Term = ir.NewRet(constant.NewInt(types.I32, 0))
	trap.Term = ir.NewUnreachable()

	a := ir.NewParam("a", types.I32)
	f.Params = append(f.Params, a)

	call := ir.NewCall(intrinsic, a, constant.NewInt(types.I32, 1))
	call.SetName("pair")
	val := ir.NewExtractValue(call, 0)
	val.SetName("val")
	flag := ir.NewExtractValue(call, 1)
	flag.SetName("flag")
	entry.Insts = append(entry.Insts, call, val, flag)
	entry.Term = ir.NewCondBr(flag, trap, ret)

	reg := NewRegistry()
	check := NewSignedIntegerOverflowCheck()
	reg.Add(check)

	if _, err := check.Mark(f, reg); err != nil {
		t.Fatalf("Mark: %v", err)
	}

	// The intrinsic call and both extracts are gone from entry; a
	// predicate call, its negation and the native add replace them.
	foundPredicate := false
	for _, inst := range entry.Insts {
		if c, ok := inst.(*ir.InstCall); ok {
			callee := c.Callee.(*ir.Func)
			if callee.Name() == "gazer.overflow.sadd.i32" {
				foundPredicate = true
			}
			if callee == intrinsic {
				t.Error("intrinsic call still present")
			}
		}
		if _, ok := inst.(*ir.InstExtractValue); ok {
			t.Error("extractvalue still present")
		}
	}
	if !foundPredicate {
		t.Error("no gazer.overflow predicate call inserted")
	}

	cb, ok := entry.Term.(*ir.TermCondBr)
	if !ok {
		t.Fatalf("entry terminator is %T", entry.Term)
	}
	if !reg.IsErrorBlock(cb.TargetFalse.(*ir.Block)) {
		t.Error("predicate failure does not branch to an error block")
	}

	// The continuation kept the original conditional branch, now over
	// the rewritten flag.
	cont := cb.TargetTrue.(*ir.Block)
	contBr, ok := cont.Term.(*ir.TermCondBr)
	if !ok {
		t.Fatalf("continuation terminator is %T", cont.Term)
	}
	if _, ok := contBr.Cond.(*ir.InstXor); !ok {
		t.Errorf("flag use rewritten to %T, want the negated predicate", contBr.Cond)
	}
}
