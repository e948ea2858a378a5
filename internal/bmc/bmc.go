// Package bmc enumerates bounded control-flow paths into instrumented
// error locations, assembles each path's transition formula and consults
// the oracle. On a satisfiable path it reconstructs the counter-example
// trace.
package bmc

import (
	"github.com/llir/llvm/ir"

	"verica/internal/checks"
	verrors "verica/internal/errors"
	"verica/internal/expr"
	"verica/internal/memory"
	"verica/internal/solver"
	"verica/internal/trace"
	"verica/internal/translator"
)

// Status is the verdict of one bounded run.
type Status int

const (
	StatusSuccess Status = iota
	StatusFail
	StatusUnknown
	StatusBoundReached
	StatusTimeout
)

// Outcome carries the verdict, the failing check and (when reconstruction
// succeeded) the counter-example trace.
type Outcome struct {
	Status    Status
	ErrorCode int
	Message   string
	Trace     *trace.Trace
	// Model is the satisfying valuation backing a Fail verdict.
	Model *expr.Valuation
	// TraceUnavailable is set on a Fail whose trace reconstruction
	// failed.
	TraceUnavailable bool
}

// Engine runs bounded model checking over one function.
type Engine struct {
	fn     *ir.Func
	tr     *translator.InstToExpr
	reg    *checks.Registry
	oracle solver.Oracle
	b      *expr.Builder
	mem    memory.Model
	debug  *trace.DebugInfo

	// Bound limits the number of blocks on an explored path.
	Bound int
	// MaxPaths caps path enumeration before reporting bound reached.
	MaxPaths int

	// blockFormulas caches the straight-line formulas of each block,
	// translated once in layout order so memory versioning stays
	// consistent across paths.
	blockFormulas map[*ir.Block][]*expr.Expr

	// Stats
	PathsExplored int
}

// New prepares an engine; the translator must be freshly constructed for
// the same function.
func New(fn *ir.Func, tr *translator.InstToExpr, reg *checks.Registry, oracle solver.Oracle, mem memory.Model, debug *trace.DebugInfo, bound int) *Engine {
	return &Engine{
		fn:       fn,
		tr:       tr,
		reg:      reg,
		oracle:   oracle,
		b:        tr.Builder(),
		mem:      mem,
		debug:    debug,
		Bound:    bound,
		MaxPaths: 4096,
	}
}

// translateBlocks caches each block's non-phi, non-terminator formulas.
func (e *Engine) translateBlocks() error {
	if e.blockFormulas != nil {
		return nil
	}
	e.blockFormulas = make(map[*ir.Block][]*expr.Expr)
	for _, blk := range e.fn.Blocks {
		var formulas []*expr.Expr
		for _, inst := range blk.Insts {
			if _, isPhi := inst.(*ir.InstPhi); isPhi {
				continue
			}
			f, err := e.tr.Transform(inst)
			if err != nil {
				return err
			}
			formulas = append(formulas, f)
		}
		e.blockFormulas[blk] = formulas
	}
	return nil
}

// Run explores every path from the entry block into an error location.
func (e *Engine) Run() (*Outcome, error) {
	if len(e.fn.Blocks) == 0 {
		return nil, verrors.Userf("function %s has no body", e.fn.Name())
	}

	if err := e.translateBlocks(); err != nil {
		if verrors.IsUnsupported(err) {
			return &Outcome{Status: StatusUnknown, Message: err.Error()}, nil
		}
		return nil, err
	}

	paths, boundHit := e.enumeratePaths()

	unknownSeen := false
	timeoutSeen := false
	var unknownMsg string

	for _, path := range paths {
		e.PathsExplored++
		outcome, err := e.checkPath(path)
		if err != nil {
			if verrors.IsUnsupported(err) {
				unknownSeen = true
				unknownMsg = err.Error()
				continue
			}
			return nil, err
		}
		switch outcome.Status {
		case StatusFail:
			return outcome, nil
		case StatusUnknown:
			unknownSeen = true
		case StatusTimeout:
			timeoutSeen = true
		}
	}

	switch {
	case timeoutSeen:
		return &Outcome{Status: StatusTimeout}, nil
	case unknownSeen:
		return &Outcome{Status: StatusUnknown, Message: unknownMsg}, nil
	case boundHit:
		return &Outcome{Status: StatusBoundReached}, nil
	}
	return &Outcome{Status: StatusSuccess}, nil
}

// enumeratePaths walks the CFG depth-first from the entry block and
// collects every acyclic path that ends in an error block. Paths longer
// than the bound, paths revisiting a block and overflowing the path cap
// all count as hitting the bound.
func (e *Engine) enumeratePaths() (paths [][]*ir.Block, boundHit bool) {
	entry := e.fn.Blocks[0]
	onPath := make(map[*ir.Block]bool)
	var cur []*ir.Block

	var dfs func(blk *ir.Block)
	dfs = func(blk *ir.Block) {
		if len(paths) >= e.MaxPaths {
			boundHit = true
			return
		}
		if onPath[blk] {
			// A back edge: loops need an unrolling bound the
			// acyclic path search does not provide.
			boundHit = true
			return
		}
		if e.Bound > 0 && len(cur) >= e.Bound {
			boundHit = true
			return
		}
		onPath[blk] = true
		cur = append(cur, blk)

		if e.reg.IsErrorBlock(blk) {
			path := make([]*ir.Block, len(cur))
			copy(path, cur)
			paths = append(paths, path)
		} else if blk.Term != nil {
			for _, succ := range blk.Term.Succs() {
				dfs(succ)
			}
		}

		cur = cur[:len(cur)-1]
		delete(onPath, blk)
	}
	dfs(entry)
	return paths, boundHit
}

// checkPath assembles the path formula and consults the oracle.
func (e *Engine) checkPath(path []*ir.Block) (*Outcome, error) {
	pf := newPathFormula(e.b, e.mem)

	entryConstraints, err := e.tr.EntryConstraints()
	if err != nil {
		return nil, err
	}
	for _, f := range entryConstraints {
		pf.add(f, 0)
	}

	// Version variables defined in blocks the path skips collapse onto
	// their previous versions up front, so later formulas substitute the
	// right memory.
	pf.bindSkippedVersions(e.fn, path, e.blockFormulas)

	for i, blk := range path {
		if i > 0 {
			// Resolve this block's phi nodes against the edge we
			// arrived on.
			for _, inst := range blk.Insts {
				phi, ok := inst.(*ir.InstPhi)
				if !ok {
					continue
				}
				f, err := e.tr.TransformEdge(phi, 0, path[i-1])
				if err != nil {
					return nil, err
				}
				pf.add(f, i-1)
			}
		}

		for _, f := range e.blockFormulas[blk] {
			pf.add(f, i)
		}

		if i+1 < len(path) {
			succIdx := successorIndex(blk, path[i+1])
			if succIdx < 0 {
				return nil, verrors.Internalf("%s is not a successor of %s", path[i+1].Name(), blk.Name())
			}
			guard, err := e.tr.TransformTerminator(blk.Term, succIdx)
			if err != nil {
				return nil, err
			}
			pf.add(guard, i)
		}
	}

	formula := e.b.And(pf.guards...)
	if formula.IsFalse() {
		// The path is infeasible without asking the oracle.
		return &Outcome{Status: StatusSuccess}, nil
	}

	result, err := e.oracle.Check(formula)
	if err != nil {
		return nil, verrors.Backendf("oracle failure: %v", err)
	}
	switch result.Status {
	case solver.Unsat:
		return &Outcome{Status: StatusSuccess}, nil
	case solver.Unknown:
		return &Outcome{Status: StatusUnknown}, nil
	case solver.Timeout:
		return &Outcome{Status: StatusTimeout}, nil
	}

	// Sat: reconstruct the counter-example.
	errorBlock := path[len(path)-1]
	code := e.reg.ErrorCode(errorBlock)
	outcome := &Outcome{
		Status:    StatusFail,
		ErrorCode: code,
		Message:   e.reg.MessageForCode(code),
		Model:     result.Model,
	}

	states := make([]*trace.Location, len(path))
	for i, blk := range path {
		states[i] = &trace.Location{Block: blk}
	}
	tb := trace.NewBuilder(e.b, e.debug)
	tr, err := tb.Build(e.fn, states, pf.actionsPerEdge(len(path)), result.Model, code, outcome.Message)
	if err != nil {
		outcome.TraceUnavailable = true
		return outcome, nil
	}
	outcome.Trace = tr
	return outcome, nil
}

func successorIndex(blk, succ *ir.Block) int {
	for i, s := range blk.Term.Succs() {
		if s == succ {
			return i
		}
	}
	return -1
}
