// Package irtools holds small IR-surgery helpers shared by the
// instrumentation passes, the inliner and the memory models.
package irtools

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// Operands returns the value operands of an instruction, in operand order.
// Instruction kinds outside the supported IR subset return nil; their
// handling fails later in the translator with a proper diagnostic.
func Operands(inst ir.Instruction) []value.Value {
	switch in := inst.(type) {
	case *ir.InstAdd:
		return []value.Value{in.X, in.Y}
	case *ir.InstSub:
		return []value.Value{in.X, in.Y}
	case *ir.InstMul:
		return []value.Value{in.X, in.Y}
	case *ir.InstSDiv:
		return []value.Value{in.X, in.Y}
	case *ir.InstUDiv:
		return []value.Value{in.X, in.Y}
	case *ir.InstSRem:
		return []value.Value{in.X, in.Y}
	case *ir.InstURem:
		return []value.Value{in.X, in.Y}
	case *ir.InstShl:
		return []value.Value{in.X, in.Y}
	case *ir.InstLShr:
		return []value.Value{in.X, in.Y}
	case *ir.InstAShr:
		return []value.Value{in.X, in.Y}
	case *ir.InstAnd:
		return []value.Value{in.X, in.Y}
	case *ir.InstOr:
		return []value.Value{in.X, in.Y}
	case *ir.InstXor:
		return []value.Value{in.X, in.Y}
	case *ir.InstFAdd:
		return []value.Value{in.X, in.Y}
	case *ir.InstFSub:
		return []value.Value{in.X, in.Y}
	case *ir.InstFMul:
		return []value.Value{in.X, in.Y}
	case *ir.InstFDiv:
		return []value.Value{in.X, in.Y}
	case *ir.InstICmp:
		return []value.Value{in.X, in.Y}
	case *ir.InstFCmp:
		return []value.Value{in.X, in.Y}
	case *ir.InstSelect:
		return []value.Value{in.Cond, in.ValueTrue, in.ValueFalse}
	case *ir.InstZExt:
		return []value.Value{in.From}
	case *ir.InstSExt:
		return []value.Value{in.From}
	case *ir.InstTrunc:
		return []value.Value{in.From}
	case *ir.InstBitCast:
		return []value.Value{in.From}
	case *ir.InstPtrToInt:
		return []value.Value{in.From}
	case *ir.InstIntToPtr:
		return []value.Value{in.From}
	case *ir.InstLoad:
		return []value.Value{in.Src}
	case *ir.InstStore:
		return []value.Value{in.Src, in.Dst}
	case *ir.InstAlloca:
		if in.NElems != nil {
			return []value.Value{in.NElems}
		}
		return nil
	case *ir.InstGetElementPtr:
		ops := []value.Value{in.Src}
		return append(ops, in.Indices...)
	case *ir.InstCall:
		ops := []value.Value{in.Callee}
		return append(ops, in.Args...)
	case *ir.InstPhi:
		var ops []value.Value
		for _, inc := range in.Incs {
			ops = append(ops, inc.X)
		}
		return ops
	case *ir.InstExtractValue:
		return []value.Value{in.X}
	}
	return nil
}

// TermOperands returns the non-block value operands of a terminator.
func TermOperands(term ir.Terminator) []value.Value {
	switch t := term.(type) {
	case *ir.TermRet:
		if t.X != nil {
			return []value.Value{t.X}
		}
	case *ir.TermCondBr:
		return []value.Value{t.Cond}
	case *ir.TermSwitch:
		ops := []value.Value{t.X}
		for _, c := range t.Cases {
			ops = append(ops, c.X)
		}
		return ops
	}
	return nil
}

// ReplaceUses swaps every operand use of old for new in the whole function.
// Phi predecessor blocks and branch targets are left alone.
func ReplaceUses(fn *ir.Func, old, new value.Value) {
	sub := func(v value.Value) value.Value {
		if v == old {
			return new
		}
		return v
	}
	for _, blk := range fn.Blocks {
		for _, inst := range blk.Insts {
			substituteOperands(inst, sub)
		}
		substituteTermOperands(blk.Term, sub)
	}
}

// SubstituteOperands rewrites each value operand of inst through sub.
func SubstituteOperands(inst ir.Instruction, sub func(value.Value) value.Value) {
	substituteOperands(inst, sub)
}

func substituteOperands(inst ir.Instruction, sub func(value.Value) value.Value) {
	switch in := inst.(type) {
	case *ir.InstAdd:
		in.X, in.Y = sub(in.X), sub(in.Y)
	case *ir.InstSub:
		in.X, in.Y = sub(in.X), sub(in.Y)
	case *ir.InstMul:
		in.X, in.Y = sub(in.X), sub(in.Y)
	case *ir.InstSDiv:
		in.X, in.Y = sub(in.X), sub(in.Y)
	case *ir.InstUDiv:
		in.X, in.Y = sub(in.X), sub(in.Y)
	case *ir.InstSRem:
		in.X, in.Y = sub(in.X), sub(in.Y)
	case *ir.InstURem:
		in.X, in.Y = sub(in.X), sub(in.Y)
	case *ir.InstShl:
		in.X, in.Y = sub(in.X), sub(in.Y)
	case *ir.InstLShr:
		in.X, in.Y = sub(in.X), sub(in.Y)
	case *ir.InstAShr:
		in.X, in.Y = sub(in.X), sub(in.Y)
	case *ir.InstAnd:
		in.X, in.Y = sub(in.X), sub(in.Y)
	case *ir.InstOr:
		in.X, in.Y = sub(in.X), sub(in.Y)
	case *ir.InstXor:
		in.X, in.Y = sub(in.X), sub(in.Y)
	case *ir.InstFAdd:
		in.X, in.Y = sub(in.X), sub(in.Y)
	case *ir.InstFSub:
		in.X, in.Y = sub(in.X), sub(in.Y)
	case *ir.InstFMul:
		in.X, in.Y = sub(in.X), sub(in.Y)
	case *ir.InstFDiv:
		in.X, in.Y = sub(in.X), sub(in.Y)
	case *ir.InstICmp:
		in.X, in.Y = sub(in.X), sub(in.Y)
	case *ir.InstFCmp:
		in.X, in.Y = sub(in.X), sub(in.Y)
	case *ir.InstSelect:
		in.Cond, in.ValueTrue, in.ValueFalse = sub(in.Cond), sub(in.ValueTrue), sub(in.ValueFalse)
	case *ir.InstZExt:
		in.From = sub(in.From)
	case *ir.InstSExt:
		in.From = sub(in.From)
	case *ir.InstTrunc:
		in.From = sub(in.From)
	case *ir.InstBitCast:
		in.From = sub(in.From)
	case *ir.InstPtrToInt:
		in.From = sub(in.From)
	case *ir.InstIntToPtr:
		in.From = sub(in.From)
	case *ir.InstLoad:
		in.Src = sub(in.Src)
	case *ir.InstStore:
		in.Src, in.Dst = sub(in.Src), sub(in.Dst)
	case *ir.InstAlloca:
		if in.NElems != nil {
			in.NElems = sub(in.NElems)
		}
	case *ir.InstGetElementPtr:
		in.Src = sub(in.Src)
		for i := range in.Indices {
			in.Indices[i] = sub(in.Indices[i])
		}
	case *ir.InstCall:
		in.Callee = sub(in.Callee)
		for i := range in.Args {
			in.Args[i] = sub(in.Args[i])
		}
	case *ir.InstPhi:
		for _, inc := range in.Incs {
			inc.X = sub(inc.X)
		}
	case *ir.InstExtractValue:
		in.X = sub(in.X)
	}
}

func substituteTermOperands(term ir.Terminator, sub func(value.Value) value.Value) {
	switch t := term.(type) {
	case *ir.TermRet:
		if t.X != nil {
			t.X = sub(t.X)
		}
	case *ir.TermCondBr:
		t.Cond = sub(t.Cond)
	case *ir.TermSwitch:
		t.X = sub(t.X)
		for _, c := range t.Cases {
			c.X = sub(c.X)
		}
	}
}

// NameValues gives every unnamed block, parameter and value-producing
// instruction a name, so each IR value can back a context variable.
// Mirrors the instruction-namer pass the verification pipeline depends on.
func NameValues(fn *ir.Func) {
	n := 0
	next := func(prefix string) string {
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
	for _, p := range fn.Params {
		if p.Name() == "" {
			p.SetName(next("arg"))
		}
	}
	for _, blk := range fn.Blocks {
		if blk.Name() == "" {
			blk.SetName(next("bb"))
		}
		for _, inst := range blk.Insts {
			named, ok := inst.(value.Named)
			if !ok {
				continue
			}
			if isVoidValue(inst) {
				continue
			}
			if named.Name() == "" {
				named.SetName(next("t"))
			}
		}
	}
}

// isVoidValue reports whether an instruction produces no SSA value.
func isVoidValue(inst ir.Instruction) bool {
	switch in := inst.(type) {
	case *ir.InstStore:
		return true
	case *ir.InstCall:
		return types.IsVoid(in.Type())
	}
	return false
}
