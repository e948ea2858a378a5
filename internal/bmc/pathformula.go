package bmc

import (
	"github.com/llir/llvm/ir"

	"verica/internal/expr"
	"verica/internal/memory"
)

// pathFormula accumulates one path's constraints. Assignment-shaped
// formulas (Eq or FEq of an unbound variable reference against a
// right-hand side free of that variable) become substitutions instead of
// conjuncts, so guards end up expressed purely over the path's free
// inputs. Everything else is conjoined as a guard.
type pathFormula struct {
	b   *expr.Builder
	mem memory.Model

	defs map[*expr.Variable]*expr.Expr

	guards []*expr.Expr

	// edge i's assignments, for the trace builder
	actions map[int][]expr.VariableAssignment
}

func newPathFormula(b *expr.Builder, mem memory.Model) *pathFormula {
	return &pathFormula{
		b:       b,
		mem:     mem,
		defs:    make(map[*expr.Variable]*expr.Expr),
		actions: make(map[int][]expr.VariableAssignment),
	}
}

// substitute replaces bound variable references by their definitions.
func (pf *pathFormula) substitute(e *expr.Expr) *expr.Expr {
	if len(pf.defs) == 0 {
		return e
	}
	return expr.Rewrite(e, func(old *expr.Expr, ops []*expr.Expr) *expr.Expr {
		if v := old.Variable(); v != nil {
			if def, ok := pf.defs[v]; ok {
				return def
			}
			return old
		}
		if old.Kind() == expr.Literal || old.Kind() == expr.Undef {
			return old
		}
		return expr.Rebuild(pf.b, old, ops)
	})
}

// add folds one formula into the path: as a binding when it is
// assignment-shaped, as a guard otherwise. edge names the path edge the
// formula belongs to, for trace bookkeeping.
func (pf *pathFormula) add(f *expr.Expr, edge int) {
	f = pf.substitute(f)

	if v, rhs, ok := assignmentShape(f); ok {
		if _, bound := pf.defs[v]; !bound && !dependsOn(rhs, v) {
			pf.defs[v] = rhs
			pf.actions[edge] = append(pf.actions[edge], expr.NewVariableAssignment(v, rhs))
			return
		}
	}
	pf.guards = append(pf.guards, f)
}

// assignmentShape matches Eq(VarRef v, rhs) and FEq(VarRef v, rhs). An FEq
// against a NaN literal is no definition: IEEE equality cannot hold, so it
// stays a guard and keeps the path infeasible.
func assignmentShape(f *expr.Expr) (*expr.Variable, *expr.Expr, bool) {
	if f.Kind() != expr.Eq && f.Kind() != expr.FEq {
		return nil, nil, false
	}
	if f.NumOps() != 2 {
		return nil, nil, false
	}
	if f.Kind() == expr.FEq {
		if fv, ok := f.Op(1).Value().(expr.FloatValue); ok && fv.IsNaN() {
			return nil, nil, false
		}
	}
	if v := f.Op(0).Variable(); v != nil {
		return v, f.Op(1), true
	}
	return nil, nil, false
}

func dependsOn(e *expr.Expr, v *expr.Variable) bool {
	found := false
	expr.Walk(e, func(n *expr.Expr) bool {
		if n.Variable() == v {
			found = true
		}
		return !found
	})
	return found
}

// bindSkippedVersions collapses memory/global version variables defined in
// blocks off the path onto their previous versions, so the linear version
// chain built at translation time stays correct on every path.
func (pf *pathFormula) bindSkippedVersions(fn *ir.Func, path []*ir.Block, blockFormulas map[*ir.Block][]*expr.Expr) {
	versioned, ok := pf.mem.(memory.Versioned)
	if !ok {
		return
	}
	onPath := make(map[*ir.Block]bool, len(path))
	for _, blk := range path {
		onPath[blk] = true
	}

	changed := true
	for changed {
		changed = false
		for _, blk := range fn.Blocks {
			if onPath[blk] {
				continue
			}
			for _, f := range blockFormulas[blk] {
				v, _, isAssign := assignmentShape(f)
				if !isAssign {
					continue
				}
				if _, bound := pf.defs[v]; bound {
					continue
				}
				prev, hasPrev := versioned.PreviousVersion(v)
				if !hasPrev {
					continue
				}
				pf.defs[v] = pf.substitute(prev.RefExpr())
				changed = true
			}
		}
	}
}

// actionsPerEdge lays the recorded assignments out per path edge.
func (pf *pathFormula) actionsPerEdge(states int) [][]expr.VariableAssignment {
	out := make([][]expr.VariableAssignment, states-1)
	for i := range out {
		out[i] = pf.actions[i]
	}
	// Entry constraints and assignments recorded on the final state
	// fold into the adjacent edge.
	if extra, ok := pf.actions[states-1]; ok && states > 1 {
		out[states-2] = append(out[states-2], extra...)
	}
	return out
}
