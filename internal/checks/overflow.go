package checks

import (
	"fmt"
	"regexp"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"verica/internal/irtools"
)

// overflowKind identifies one of the six checked operations.
type overflowKind int

const (
	ovrSAdd overflowKind = iota
	ovrSSub
	ovrSMul
	ovrUAdd
	ovrUSub
	ovrUMul
)

var overflowOpNames = [...]string{
	ovrSAdd: "sadd",
	ovrSSub: "ssub",
	ovrSMul: "smul",
	ovrUAdd: "uadd",
	ovrUSub: "usub",
	ovrUMul: "umul",
}

var overflowIntrinsicRegexp = regexp.MustCompile(`^llvm\.(u|s)(add|sub|mul)\.with\.overflow\.i([0-9]+)$`)

// SignedIntegerOverflowCheck rewrites llvm.*.with.overflow.* intrinsic
// calls into the native arithmetic operation plus a call to a
// gazer.overflow.* predicate; a false predicate branches to an error
// block. Users of the {value, flag} pair are rewritten accordingly.
type SignedIntegerOverflowCheck struct{}

// NewSignedIntegerOverflowCheck returns the overflow check.
func NewSignedIntegerOverflowCheck() *SignedIntegerOverflowCheck {
	return &SignedIntegerOverflowCheck{}
}

func (c *SignedIntegerOverflowCheck) ErrorDescription() string {
	return "Signed integer overflow"
}

func overflowIntrinsicKind(callee *ir.Func) (overflowKind, bool) {
	groups := overflowIntrinsicRegexp.FindStringSubmatch(callee.Name())
	if groups == nil {
		return 0, false
	}
	signed := groups[1] == "s"
	switch groups[2] {
	case "add":
		if signed {
			return ovrSAdd, true
		}
		return ovrUAdd, true
	case "sub":
		if signed {
			return ovrSSub, true
		}
		return ovrUSub, true
	case "mul":
		if signed {
			return ovrSMul, true
		}
		return ovrUMul, true
	}
	return 0, false
}

// predicateFor declares (or reuses) the gazer.overflow.<op>.iN predicate
// function in the module.
func predicateFor(mod *ir.Module, kind overflowKind, valTy *types.IntType) *ir.Func {
	name := fmt.Sprintf("gazer.overflow.%s.i%d", overflowOpNames[kind], valTy.BitSize)
	for _, f := range mod.Funcs {
		if f.Name() == name {
			return f
		}
	}
	return mod.NewFunc(name, types.I1, ir.NewParam("", valTy), ir.NewParam("", valTy))
}

func (c *SignedIntegerOverflowCheck) Mark(fn *ir.Func, reg *Registry) (bool, error) {
	mod := fn.Parent

	type target struct {
		block *ir.Block
		index int
		call  *ir.InstCall
		kind  overflowKind
	}
	var targets []target
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
			if kind, ok := overflowIntrinsicKind(callee); ok {
				targets = append(targets, target{block: blk, index: i, call: call, kind: kind})
			}
		}
	}

	// A call to llvm.*.with.overflow.iN returns a {iN, i1} pair whose
	// second element flags the overflow. Replace uses of the first
	// element with the native operation and uses of the second with the
	// negated predicate, then branch on the predicate.
	for i := len(targets) - 1; i >= 0; i-- {
		tg := targets[i]
		call := tg.call

		structTy, ok := call.Type().(*types.StructType)
		if !ok || len(structTy.Fields) != 2 {
			continue
		}
		valTy, ok := structTy.Fields[0].(*types.IntType)
		if !ok {
			continue
		}

		lhs, rhs := call.Args[0], call.Args[1]

		check := ir.NewCall(predicateFor(mod, tg.kind, valTy), lhs, rhs)
		check.SetName(freshName(fn, "ovr_check"))

		var binOp ir.Instruction
		switch tg.kind {
		case ovrSAdd, ovrUAdd:
			binOp = ir.NewAdd(lhs, rhs)
		case ovrSSub, ovrUSub:
			binOp = ir.NewSub(lhs, rhs)
		case ovrSMul, ovrUMul:
			binOp = ir.NewMul(lhs, rhs)
		}
		binOp.(interface{ SetName(string) }).SetName(freshName(fn, "ovr_op"))

		ovrFail := ir.NewXor(check, constant.True)
		ovrFail.SetName(freshName(fn, "ovr_fail"))

		// Splice the replacement sequence in place of the call.
		blk := tg.block
		rest := append([]ir.Instruction{}, blk.Insts[tg.index+1:]...)
		blk.Insts = append(blk.Insts[:tg.index], check, ovrFail, binOp)
		blk.Insts = append(blk.Insts, rest...)

		// Rewrite the extractvalue users of the pair.
		rewriteExtractUsers(fn, call, binOp.(value.Value), ovrFail)

		// Branch to the error block when the predicate fails. The
		// split point is right after the replacement sequence.
		errorBB := reg.createErrorBlock(fn, c, "error.ovr")
		cont := splitBlock(fn, blk, tg.index+3, "ovrcont")
		blk.Term = ir.NewCondBr(check, cont, errorBB)
	}

	return len(targets) > 0, nil
}

// rewriteExtractUsers replaces extractvalue uses of the {iN, i1} result
// pair with the given values and drops the extractvalue instructions.
func rewriteExtractUsers(fn *ir.Func, call *ir.InstCall, valRepl, flagRepl value.Value) {
	for _, blk := range fn.Blocks {
		kept := blk.Insts[:0]
		for _, inst := range blk.Insts {
			if ev, ok := inst.(*ir.InstExtractValue); ok && ev.X == call {
				repl := flagRepl
				if len(ev.Indices) == 1 && ev.Indices[0] == 0 {
					repl = valRepl
				}
				irtools.ReplaceUses(fn, ev, repl)
				continue
			}
			kept = append(kept, inst)
		}
		blk.Insts = kept
	}
}
