// Package checks instruments functions with the safety checks the
// verification run proves or refutes: assertion reachability, division by
// zero and signed integer overflow. Each check rewrites offending
// instructions into conditional branches targeting freshly created error
// blocks tagged with the check's error code.
package checks

import (
	"fmt"

	"github.com/llir/llvm/ir"
)

// Check marks the error locations of one property inside a function.
type Check interface {
	// Mark rewrites fn, routing property violations into error blocks
	// created through the registry. It reports whether fn changed.
	Mark(fn *ir.Func, reg *Registry) (bool, error)

	// ErrorDescription is the human-readable failure message.
	ErrorDescription() string
}

// Registry owns the registered checks, assigns their error codes and maps
// instrumented error blocks back to the failing check.
type Registry struct {
	checks []Check
	codes  map[Check]int

	errorBlocks map[*ir.Block]int
	blockSeq    int
}

// NewRegistry returns an empty check registry.
func NewRegistry() *Registry {
	return &Registry{
		codes:       make(map[Check]int),
		errorBlocks: make(map[*ir.Block]int),
	}
}

// Add registers a check and assigns it the next error code.
func (r *Registry) Add(c Check) {
	r.checks = append(r.checks, c)
	r.codes[c] = len(r.checks)
}

// Run marks every registered check on fn.
func (r *Registry) Run(fn *ir.Func) error {
	for _, c := range r.checks {
		if _, err := c.Mark(fn, r); err != nil {
			return err
		}
	}
	return nil
}

// MessageForCode returns the failure message of an error code.
func (r *Registry) MessageForCode(code int) string {
	for c, ec := range r.codes {
		if ec == code {
			return c.ErrorDescription()
		}
	}
	return fmt.Sprintf("Unknown error code %d", code)
}

// ErrorCode returns the code of an instrumented error block, or 0.
func (r *Registry) ErrorCode(blk *ir.Block) int {
	return r.errorBlocks[blk]
}

// IsErrorBlock reports whether blk was created by a check.
func (r *Registry) IsErrorBlock(blk *ir.Block) bool {
	_, ok := r.errorBlocks[blk]
	return ok
}

// createErrorBlock appends a fresh error block to fn on behalf of check c.
// The block terminates in unreachable; reaching it at all is the property
// violation.
func (r *Registry) createErrorBlock(fn *ir.Func, c Check, name string) *ir.Block {
	r.blockSeq++
	blk := ir.NewBlock(fmt.Sprintf("%s%d", name, r.blockSeq))
	blk.Term = ir.NewUnreachable()
	blk.Parent = fn
	fn.Blocks = append(fn.Blocks, blk)
	r.errorBlocks[blk] = r.codes[c]
	return blk
}
