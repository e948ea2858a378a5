package solver

import (
	"math/big"

	"golang.org/x/exp/slices"

	"verica/internal/expr"
)

// Enumerator is a bounded model-finding oracle: it collects candidate
// literals for every free variable of the formula (the constants the
// formula mentions and their neighbors, plus a small fixed set) and
// evaluates the formula over the cartesian product up to a step budget.
//
// Sat answers are always genuine. Unsat means the candidate space was
// searched without a hit, so it is complete only relative to the candidate
// sets; a production deployment slots an SMT backend behind the same
// Oracle interface instead. When the step budget runs out, or some point
// could not be evaluated, the answer degrades to Unknown.
type Enumerator struct {
	b *expr.Builder

	// MaxSteps bounds the number of full evaluations.
	MaxSteps int
}

// NewEnumerator returns an enumerating oracle with the default budget.
func NewEnumerator(b *expr.Builder) *Enumerator {
	return &Enumerator{b: b, MaxSteps: 1 << 18}
}

// Check implements Oracle.
func (s *Enumerator) Check(formula *expr.Expr) (Result, error) {
	vars := freeScalarVariables(formula)
	cands := s.candidates(formula, vars)

	steps := 0
	exhausted := true
	for _, c := range cands {
		if len(c) == 0 {
			// A variable with no enumerable domain; the search can
			// never be complete.
			return Result{Status: Unknown}, nil
		}
	}
	assignment := expr.NewValuation()

	var search func(i int) *expr.Valuation
	search = func(i int) *expr.Valuation {
		if steps >= s.MaxSteps {
			exhausted = false
			return nil
		}
		if i == len(vars) {
			steps++
			lit, err := expr.Eval(s.b, formula, assignment)
			if err != nil {
				// The formula does not reduce under this
				// assignment (e.g. a symbolic division by
				// zero); this point proves nothing.
				exhausted = false
				return nil
			}
			if lit.IsTrue() {
				return assignment.Copy()
			}
			return nil
		}
		for _, c := range cands[i] {
			assignment.Set(vars[i], c)
			if m := search(i + 1); m != nil {
				return m
			}
		}
		return nil
	}

	if model := search(0); model != nil {
		return Result{Status: Sat, Model: model}, nil
	}
	if exhausted {
		return Result{Status: Unsat, Model: nil}, nil
	}
	return Result{Status: Unknown}, nil
}

// freeScalarVariables lists the formula's non-array free variables. Array
// variables (the memory model's initial memories) stay symbolic; reads
// against them default to zero cells during evaluation.
func freeScalarVariables(formula *expr.Expr) []*expr.Variable {
	var vars []*expr.Variable
	seen := make(map[*expr.Variable]bool)
	for _, v := range expr.FreeVariables(formula) {
		if seen[v] || expr.IsArrayType(v.Type()) {
			continue
		}
		seen[v] = true
		vars = append(vars, v)
	}
	return vars
}

// candidates assembles per-variable candidate literal sets.
func (s *Enumerator) candidates(formula *expr.Expr, vars []*expr.Variable) [][]*expr.Expr {
	b := s.b

	// Collect the literal constants the formula mentions, per width.
	bvConsts := make(map[uint32][]*big.Int)
	floatConsts := make(map[expr.FloatPrecision][]expr.FloatValue)
	expr.Walk(formula, func(n *expr.Expr) bool {
		switch v := n.Value().(type) {
		case expr.BvValue:
			bvConsts[v.Width] = append(bvConsts[v.Width], v.V)
		case expr.FloatValue:
			floatConsts[v.Prec] = append(floatConsts[v.Prec], v)
		}
		return true
	})

	out := make([][]*expr.Expr, len(vars))
	for i, v := range vars {
		switch ty := v.Type().(type) {
		case *expr.BoolType:
			out[i] = []*expr.Expr{b.False(), b.True()}
		case *expr.BvType:
			out[i] = s.bvCandidates(ty, bvConsts[ty.Width()])
		case *expr.FloatType:
			out[i] = s.floatCandidates(ty, floatConsts[ty.Precision()])
		default:
			// No way to enumerate; leave the candidate set empty
			// so the search finds no point and the verdict degrades
			// to Unknown rather than crashing.
			out[i] = nil
		}
	}
	return out
}

func (s *Enumerator) bvCandidates(ty *expr.BvType, consts []*big.Int) []*expr.Expr {
	w := ty.Width()
	b := s.b

	var values []*big.Int
	add := func(v *big.Int) { values = append(values, v) }

	add(big.NewInt(0))
	add(big.NewInt(1))
	add(big.NewInt(-1))
	add(big.NewInt(2))

	for _, c := range consts {
		add(c)
		add(new(big.Int).Add(c, big.NewInt(1)))
		add(new(big.Int).Sub(c, big.NewInt(1)))
	}

	var out []*expr.Expr
	for _, v := range values {
		lit := b.BvLitBig(v, w)
		if !slices.Contains(out, lit) {
			out = append(out, lit)
		}
	}
	return out
}

func (s *Enumerator) floatCandidates(ty *expr.FloatType, consts []expr.FloatValue) []*expr.Expr {
	b := s.b
	prec := ty.Precision()

	out := []*expr.Expr{
		b.FloatLitValue(expr.FloatValueFromFloat64(prec, 0)),
		b.FloatLitValue(expr.FloatValueFromFloat64(prec, 1)),
		b.FloatLitValue(expr.FloatValueFromFloat64(prec, -1)),
		b.FloatLitValue(expr.FloatNaN(prec)),
		b.FloatLitValue(expr.FloatInf(prec, false)),
	}
	for _, c := range consts {
		lit := b.FloatLitValue(c)
		if !slices.Contains(out, lit) {
			out = append(out, lit)
		}
	}
	return out
}

var _ Oracle = (*Enumerator)(nil)
