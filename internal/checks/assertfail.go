package checks

import (
	"github.com/llir/llvm/ir"
)

// Recognized error sink functions. A call to any of them marks an
// assertion failure site.
var errorFunctionNames = map[string]bool{
	"__VERIFIER_error": true,
	"__assert_fail":    true,
	"__gazer_error":    true,
	"reach_error":      true,
}

func isCallToErrorFunction(inst ir.Instruction) bool {
	call, ok := inst.(*ir.InstCall)
	if !ok {
		return false
	}
	callee, ok := call.Callee.(*ir.Func)
	if !ok {
		return false
	}
	return errorFunctionNames[callee.Name()]
}

// AssertionFailCheck ensures no assertion failure call is reachable. Every
// call to a recognized error sink is replaced by an unconditional branch to
// a fresh error block.
type AssertionFailCheck struct{}

// NewAssertionFailCheck returns the assertion reachability check.
func NewAssertionFailCheck() *AssertionFailCheck { return &AssertionFailCheck{} }

func (c *AssertionFailCheck) ErrorDescription() string { return "Assertion failure" }

func (c *AssertionFailCheck) Mark(fn *ir.Func, reg *Registry) (bool, error) {
	type site struct {
		block *ir.Block
		index int
	}
	var sites []site
	for _, blk := range fn.Blocks {
		for i, inst := range blk.Insts {
			if isCallToErrorFunction(inst) {
				sites = append(sites, site{block: blk, index: i})
				break // the rest of the block is unreachable anyway
			}
		}
	}

	for _, s := range sites {
		errorBB := reg.createErrorBlock(fn, c, "error.assert_fail")

		// Drop everything from the error call to the terminator and
		// jump straight to the error block.
		s.block.Insts = s.block.Insts[:s.index]
		s.block.Term = ir.NewBr(errorBB)
	}

	return len(sites) > 0, nil
}
