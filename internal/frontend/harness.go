package frontend

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"

	verrors "verica/internal/errors"
	"verica/internal/expr"
	"verica/internal/translator"
)

// writeTestHarness emits an LLVM assembly module defining every nondet
// producer the counter-example exercised, returning its model value, so
// linking the harness against the original program replays the failure
// natively. When several calls hit the same producer the first recorded
// value wins; richer sequencing would need per-call counters.
func (f *Frontend) writeTestHarness(main *ir.Func, ctx *expr.Context, result *Result) error {
	path := f.settings.TestHarness
	if path == "-" || path == "" {
		path = filepath.Join(os.TempDir(), fmt.Sprintf("verica-harness-%s.ll", uuid.NewString()))
	}

	harness := ir.NewModule()
	seen := make(map[string]bool)
	for _, blk := range main.Blocks {
		for _, inst := range blk.Insts {
			call, ok := inst.(*ir.InstCall)
			if !ok {
				continue
			}
			callee, ok := call.Callee.(*ir.Func)
			if !ok || !translator.IsNondetFunction(callee.Name()) || seen[callee.Name()] {
				continue
			}
			retTy, ok := call.Type().(*types.IntType)
			if !ok {
				continue
			}

			var lit *expr.Expr
			if named, isNamed := inst.(interface{ Name() string }); isNamed {
				if v := ctx.LookupVariable(named.Name()); v != nil && result.Model != nil {
					lit = result.Model.Get(v)
				}
			}
			c := constantFor(retTy, lit)
			if c == nil {
				continue
			}

			seen[callee.Name()] = true
			fn := harness.NewFunc(callee.Name(), retTy)
			blk := fn.NewBlock("")
			blk.Term = ir.NewRet(c)
		}
	}

	if err := os.WriteFile(path, []byte(harness.String()), 0o644); err != nil {
		return verrors.Userf("cannot write test harness %s: %v", path, err)
	}
	fmt.Fprintf(f.out, "Test harness written to %s\n", path)
	return nil
}

// constantFor turns a model literal into an IR constant of the producer's
// return type; a missing model value defaults to zero.
func constantFor(ty *types.IntType, lit *expr.Expr) constant.Constant {
	if lit == nil {
		return constant.NewInt(ty, 0)
	}
	switch v := lit.Value().(type) {
	case expr.BvValue:
		return &constant.Int{Typ: ty, X: v.Signed()}
	case expr.BoolValue:
		if v {
			return constant.NewInt(ty, 1)
		}
		return constant.NewInt(ty, 0)
	}
	return nil
}
