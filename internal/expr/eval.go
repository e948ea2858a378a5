package expr

import (
	"fmt"
)

// Valuation maps variables to literal expressions. It is the model shape
// returned by an oracle and the running state of the trace builder.
type Valuation struct {
	m map[*Variable]*Expr
}

// NewValuation returns an empty valuation.
func NewValuation() *Valuation {
	return &Valuation{m: make(map[*Variable]*Expr)}
}

// Set binds v to a literal of v's type. Binding a non-literal or a
// mistyped expression is a programmer error.
func (val *Valuation) Set(v *Variable, lit *Expr) {
	if lit.Kind() != Literal && lit.Kind() != Undef {
		panic(typeErrorf("valuation value for %s is not a literal: %s", v.Name(), lit))
	}
	if lit.Type() != v.Type() {
		panic(typeErrorf("valuation value for %s has type %s", v, lit.Type().Name()))
	}
	val.m[v] = lit
}

// Get returns the binding for v, or nil.
func (val *Valuation) Get(v *Variable) *Expr { return val.m[v] }

// Len returns the number of bound variables.
func (val *Valuation) Len() int { return len(val.m) }

// Copy returns an independent copy of the valuation.
func (val *Valuation) Copy() *Valuation {
	c := NewValuation()
	for k, v := range val.m {
		c.m[k] = v
	}
	return c
}

// UndefinedValueError reports that evaluation needed a variable the
// valuation does not bind, or hit an undef node.
type UndefinedValueError struct {
	Variable *Variable
}

func (e *UndefinedValueError) Error() string {
	if e.Variable != nil {
		return fmt.Sprintf("no value for variable %s in the model", e.Variable.Name())
	}
	return "expression depends on an undefined value"
}

// Eval reduces e to a literal under the valuation by substituting variable
// references and re-running every node through the folding builder.
// Unbound array variables evaluate reads against a zero-filled default,
// which matches the initial memory the flat model starts from.
func Eval(b *Builder, e *Expr, val *Valuation) (*Expr, error) {
	var evalErr error
	fail := func(err error) {
		if evalErr == nil {
			evalErr = err
		}
	}

	result := Rewrite(e, func(old *Expr, ops []*Expr) *Expr {
		if evalErr != nil {
			return old
		}
		switch old.Kind() {
		case Literal:
			return old
		case Undef:
			fail(&UndefinedValueError{})
			return old
		case VarRef:
			v := old.Variable()
			if bound := val.Get(v); bound != nil {
				return bound
			}
			if IsArrayType(v.Type()) {
				// Stays symbolic; reads against it resolve below.
				return old
			}
			fail(&UndefinedValueError{Variable: v})
			return old
		case ArrayRead:
			r := b.ArrayRead(ops[0], ops[1])
			if r.Kind() != Literal {
				r = zeroDefaultRead(b, r)
			}
			return r
		default:
			return applyKind(b, old, ops)
		}
	})
	if evalErr != nil {
		return nil, evalErr
	}
	if result.Kind() != Literal {
		return nil, fmt.Errorf("expression did not reduce to a literal: %s", result)
	}
	return result, nil
}

// zeroDefaultRead resolves a residual read whose base is an unbound array
// variable to the zero element of the array's element type.
func zeroDefaultRead(b *Builder, read *Expr) *Expr {
	if read.Kind() != ArrayRead {
		return read
	}
	base := read.Op(0)
	for base.Kind() == ArrayWrite {
		base = base.Op(0)
	}
	if base.Kind() != VarRef {
		return read
	}
	return zeroOf(b, read.Type())
}

func zeroOf(b *Builder, t Type) *Expr {
	switch ty := t.(type) {
	case *BoolType:
		return b.False()
	case *BvType:
		return b.BvLit(0, ty.Width())
	case *FloatType:
		return b.FloatLitValue(floatZero(ty.Precision(), false))
	}
	panic(typeErrorf("no zero element for type %s", t.Name()))
}

// Rebuild re-dispatches a non-nullary node's kind through the builder on
// new operands, reusing all of the builder's type checks and folding.
func Rebuild(b *Builder, old *Expr, ops []*Expr) *Expr {
	return applyKind(b, old, ops)
}

// applyKind re-dispatches a node's kind through the builder on new
// operands, reusing all of the builder's folding.
func applyKind(b *Builder, old *Expr, ops []*Expr) *Expr {
	switch old.Kind() {
	case Not:
		return b.Not(ops[0])
	case ZExt:
		return b.ZExt(ops[0], old.Type().(*BvType))
	case SExt:
		return b.SExt(ops[0], old.Type().(*BvType))
	case Extract:
		return b.Extract(ops[0], old.ExtractOffset(), old.ExtractWidth())
	case FIsNan:
		return b.FIsNan(ops[0])
	case FIsInf:
		return b.FIsInf(ops[0])
	case Add:
		return b.Add(ops[0], ops[1])
	case Sub:
		return b.Sub(ops[0], ops[1])
	case Mul:
		return b.Mul(ops[0], ops[1])
	case SDiv:
		return b.SDiv(ops[0], ops[1])
	case UDiv:
		return b.UDiv(ops[0], ops[1])
	case SRem:
		return b.SRem(ops[0], ops[1])
	case URem:
		return b.URem(ops[0], ops[1])
	case Shl:
		return b.Shl(ops[0], ops[1])
	case LShr:
		return b.LShr(ops[0], ops[1])
	case AShr:
		return b.AShr(ops[0], ops[1])
	case BAnd:
		return b.BAnd(ops[0], ops[1])
	case BOr:
		return b.BOr(ops[0], ops[1])
	case BXor:
		return b.BXor(ops[0], ops[1])
	case And:
		return b.And(ops...)
	case Or:
		return b.Or(ops...)
	case Xor:
		return b.Xor(ops[0], ops[1])
	case Imply:
		return b.Imply(ops[0], ops[1])
	case Eq:
		return evalEq(b, ops[0], ops[1], true)
	case NotEq:
		return evalEq(b, ops[0], ops[1], false)
	case SLt, SLtEq, SGt, SGtEq, ULt, ULtEq, UGt, UGtEq:
		return b.bvCompare(old.Kind(), ops[0], ops[1])
	case FAdd, FSub, FMul, FDiv:
		return b.floatBinary(old.Kind(), ops[0], ops[1], old.RoundingMode())
	case FEq, FGt, FGtEq, FLt, FLtEq:
		return b.floatCompareOp(old.Kind(), ops[0], ops[1])
	case Select:
		return b.Select(ops[0], ops[1], ops[2])
	case ArrayRead:
		return b.ArrayRead(ops[0], ops[1])
	case ArrayWrite:
		return b.ArrayWrite(ops[0], ops[1], ops[2])
	}
	panic(typeErrorf("applyKind: unhandled kind %s", old.Kind()))
}

// evalEq decides equality of two literals during evaluation. Floats compare
// by IEEE semantics here because a model value stands for a concrete run.
func evalEq(b *Builder, l, r *Expr, want bool) *Expr {
	if lv, rv, ok := bothFloatLits(l, r); ok {
		if lv.IsNaN() || rv.IsNaN() {
			return b.BoolLit(!want)
		}
		return b.BoolLit(floatCompare(FEq, lv, rv) == want)
	}
	if want {
		return b.Eq(l, r)
	}
	return b.NotEq(l, r)
}
