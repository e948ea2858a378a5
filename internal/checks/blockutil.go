package checks

import (
	"fmt"

	"github.com/llir/llvm/ir"
)

var nameSeq int

// freshName mints a function-unique value name.
func freshName(fn *ir.Func, prefix string) string {
	nameSeq++
	return fmt.Sprintf("%s%d", prefix, nameSeq)
}

// splitBlock moves the instructions of blk starting at index, together with
// blk's terminator, into a new continuation block appended to fn. The
// caller installs blk's new terminator. Phi nodes in the moved portion are
// not expected; instrumentation runs on split points after the leading phi
// section.
func splitBlock(fn *ir.Func, blk *ir.Block, index int, prefix string) *ir.Block {
	cont := ir.NewBlock(freshName(fn, prefix))
	cont.Parent = fn
	cont.Insts = append(cont.Insts, blk.Insts[index:]...)
	cont.Term = blk.Term
	blk.Insts = blk.Insts[:index]
	blk.Term = nil

	// Successor phi nodes keep referring to the original block; repoint
	// them at the continuation, which now owns the edge.
	for _, succ := range succsOf(cont.Term) {
		for _, inst := range succ.Insts {
			phi, ok := inst.(*ir.InstPhi)
			if !ok {
				break
			}
			for _, inc := range phi.Incs {
				if inc.Pred == blk {
					inc.Pred = cont
				}
			}
		}
	}

	fn.Blocks = append(fn.Blocks, cont)
	return cont
}

func succsOf(term ir.Terminator) []*ir.Block {
	if term == nil {
		return nil
	}
	return term.Succs()
}
