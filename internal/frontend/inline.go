package frontend

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/value"

	verrors "verica/internal/errors"
	"verica/internal/irtools"
)

// inlineCalls splices direct calls to defined functions into main. Only
// straight-line (single block) callees are handled; control flow inside a
// callee, recursion and varargs stay unsupported and surface as an Unknown
// verdict. The verification core assumes an inlined program, so this pass
// covers the common helper-function case and refuses the rest loudly.
func inlineCalls(mod *ir.Module, main *ir.Func) error {
	inlineSeq := 0

	const maxInlined = 1000

	for {
		call, blk, idx := findInlinableCall(main)
		if call == nil {
			return nil
		}
		callee := call.Callee.(*ir.Func)
		if callee == main || inlineSeq >= maxInlined {
			return verrors.Unsupportedf(call, "recursive call to %s", callee.Name())
		}
		if callee.Sig.Variadic {
			return verrors.Unsupportedf(call, "variadic function %s", callee.Name())
		}
		if len(callee.Blocks) != 1 {
			return verrors.Unsupportedf(call, "cannot inline %s: callee has control flow", callee.Name())
		}

		inlineSeq++
		retVal, insts, err := cloneStraightLine(callee, call.Args, inlineSeq)
		if err != nil {
			return err
		}

		// Splice the cloned body in place of the call.
		rest := append([]ir.Instruction{}, blk.Insts[idx+1:]...)
		blk.Insts = append(blk.Insts[:idx], insts...)
		blk.Insts = append(blk.Insts, rest...)

		if retVal != nil {
			irtools.ReplaceUses(main, call, retVal)
		}
	}
}

// findInlinableCall locates the next call to a defined function.
func findInlinableCall(fn *ir.Func) (*ir.InstCall, *ir.Block, int) {
	for _, blk := range fn.Blocks {
		for i, inst := range blk.Insts {
			call, ok := inst.(*ir.InstCall)
			if !ok {
				continue
			}
			callee, ok := call.Callee.(*ir.Func)
			if !ok {
				continue
			}
			if len(callee.Blocks) > 0 {
				return call, blk, i
			}
		}
	}
	return nil, nil, 0
}

// cloneStraightLine copies the single block of callee, substituting the
// actual arguments for the parameters and renaming every defined value.
// It returns the value standing for the callee's return, or nil for void.
func cloneStraightLine(callee *ir.Func, args []value.Value, seq int) (value.Value, []ir.Instruction, error) {
	body := callee.Blocks[0]

	valueMap := make(map[value.Value]value.Value)
	for i, p := range callee.Params {
		if i >= len(args) {
			return nil, nil, verrors.Unsupportedf(nil, "call to %s with too few arguments", callee.Name())
		}
		valueMap[p] = args[i]
	}
	sub := func(v value.Value) value.Value {
		if repl, ok := valueMap[v]; ok {
			return repl
		}
		return v
	}

	var out []ir.Instruction
	for _, inst := range body.Insts {
		clone, err := cloneInst(inst)
		if err != nil {
			return nil, nil, err
		}
		irtools.SubstituteOperands(clone, sub)
		if named, ok := clone.(value.Named); ok {
			orig := inst.(value.Named)
			if orig.Name() != "" {
				named.SetName(fmt.Sprintf("inl%d.%s", seq, orig.Name()))
			}
			valueMap[inst.(value.Value)] = clone.(value.Value)
		}
		out = append(out, clone)
	}

	ret, ok := body.Term.(*ir.TermRet)
	if !ok {
		return nil, nil, verrors.Unsupportedf(body.Term, "cannot inline %s: callee does not return", callee.Name())
	}
	if ret.X == nil {
		return nil, out, nil
	}
	return sub(ret.X), out, nil
}

// cloneInst duplicates one instruction of the supported straight-line
// subset. Operands still point at the original values; the caller
// substitutes them.
func cloneInst(inst ir.Instruction) (ir.Instruction, error) {
	switch in := inst.(type) {
	case *ir.InstAdd:
		return ir.NewAdd(in.X, in.Y), nil
	case *ir.InstSub:
		return ir.NewSub(in.X, in.Y), nil
	case *ir.InstMul:
		return ir.NewMul(in.X, in.Y), nil
	case *ir.InstSDiv:
		return ir.NewSDiv(in.X, in.Y), nil
	case *ir.InstUDiv:
		return ir.NewUDiv(in.X, in.Y), nil
	case *ir.InstSRem:
		return ir.NewSRem(in.X, in.Y), nil
	case *ir.InstURem:
		return ir.NewURem(in.X, in.Y), nil
	case *ir.InstShl:
		return ir.NewShl(in.X, in.Y), nil
	case *ir.InstLShr:
		return ir.NewLShr(in.X, in.Y), nil
	case *ir.InstAShr:
		return ir.NewAShr(in.X, in.Y), nil
	case *ir.InstAnd:
		return ir.NewAnd(in.X, in.Y), nil
	case *ir.InstOr:
		return ir.NewOr(in.X, in.Y), nil
	case *ir.InstXor:
		return ir.NewXor(in.X, in.Y), nil
	case *ir.InstFAdd:
		return ir.NewFAdd(in.X, in.Y), nil
	case *ir.InstFSub:
		return ir.NewFSub(in.X, in.Y), nil
	case *ir.InstFMul:
		return ir.NewFMul(in.X, in.Y), nil
	case *ir.InstFDiv:
		return ir.NewFDiv(in.X, in.Y), nil
	case *ir.InstICmp:
		return ir.NewICmp(in.Pred, in.X, in.Y), nil
	case *ir.InstFCmp:
		return ir.NewFCmp(in.Pred, in.X, in.Y), nil
	case *ir.InstSelect:
		return ir.NewSelect(in.Cond, in.ValueTrue, in.ValueFalse), nil
	case *ir.InstZExt:
		return ir.NewZExt(in.From, in.To), nil
	case *ir.InstSExt:
		return ir.NewSExt(in.From, in.To), nil
	case *ir.InstTrunc:
		return ir.NewTrunc(in.From, in.To), nil
	case *ir.InstBitCast:
		return ir.NewBitCast(in.From, in.To), nil
	case *ir.InstPtrToInt:
		return ir.NewPtrToInt(in.From, in.To), nil
	case *ir.InstIntToPtr:
		return ir.NewIntToPtr(in.From, in.To), nil
	case *ir.InstLoad:
		return ir.NewLoad(in.ElemType, in.Src), nil
	case *ir.InstStore:
		return ir.NewStore(in.Src, in.Dst), nil
	case *ir.InstCall:
		return ir.NewCall(in.Callee, in.Args...), nil
	case *ir.InstGetElementPtr:
		return ir.NewGetElementPtr(in.ElemType, in.Src, in.Indices...), nil
	}
	return nil, verrors.Unsupportedf(inst, "cannot inline instruction")
}
