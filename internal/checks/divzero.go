package checks

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

func isDivisionInst(inst ir.Instruction) (divisor value.Value, ok bool) {
	switch in := inst.(type) {
	case *ir.InstSDiv:
		return in.Y, true
	case *ir.InstUDiv:
		return in.Y, true
	}
	return nil, false
}

// DivisionByZeroCheck guards every integer division with a comparison of
// the divisor against zero; the zero branch leads to an error block.
type DivisionByZeroCheck struct{}

// NewDivisionByZeroCheck returns the division check.
func NewDivisionByZeroCheck() *DivisionByZeroCheck { return &DivisionByZeroCheck{} }

func (c *DivisionByZeroCheck) ErrorDescription() string { return "Division by zero" }

func (c *DivisionByZeroCheck) Mark(fn *ir.Func, reg *Registry) (bool, error) {
	changed := false

	// Collect first; splitting mutates the block list.
	type site struct {
		block *ir.Block
		index int
		div   value.Value
	}
	var sites []site
	for _, blk := range fn.Blocks {
		for i, inst := range blk.Insts {
			if d, ok := isDivisionInst(inst); ok {
				sites = append(sites, site{block: blk, index: i, div: d})
			}
		}
	}

	// Work back to front so earlier indices stay valid when one block
	// holds several divisions.
	for i := len(sites) - 1; i >= 0; i-- {
		s := sites[i]
		errorBB := reg.createErrorBlock(fn, c, "error.divzero")

		divTy := s.div.Type().(*types.IntType)
		guard := ir.NewICmp(enum.IPredNE, s.div, constant.NewInt(divTy, 0))
		guard.SetName(freshName(fn, "divchk"))

		cont := splitBlock(fn, s.block, s.index, "divcont")
		s.block.Insts = append(s.block.Insts, guard)
		s.block.Term = ir.NewCondBr(guard, cont, errorBB)
		changed = true
	}

	return changed, nil
}
