package translator

import (
	"strings"

	"github.com/llir/llvm/ir"

	verrors "verica/internal/errors"
	"verica/internal/expr"
)

// overflowIntrinsicPrefix names the predicate functions the overflow check
// instrumentation introduces. gazer.overflow.<s|u><add|sub|mul>.iN(x, y)
// returns true exactly when the operation does NOT overflow.
const overflowIntrinsicPrefix = "gazer.overflow."

// transformOverflowPredicate encodes a call to one of the overflow
// predicates. The result variable equals the no-overflow condition.
func (t *InstToExpr) transformOverflowPredicate(call *ir.InstCall, callee *ir.Func) (*expr.Expr, error) {
	variable, err := t.VariableFor(call)
	if err != nil {
		return nil, err
	}
	if len(call.Args) != 2 {
		return nil, verrors.Unsupportedf(call, "overflow predicate needs two arguments")
	}
	lhs, err := t.Operand(call.Args[0])
	if err != nil {
		return nil, err
	}
	rhs, err := t.Operand(call.Args[1])
	if err != nil {
		return nil, err
	}

	bt, ok := lhs.Type().(*expr.BvType)
	if !ok {
		return nil, verrors.Unsupportedf(call, "overflow predicate on non-bitvector operands")
	}
	rhs, err = t.asBv(rhs, bt.Width())
	if err != nil {
		return nil, err
	}

	name := strings.TrimPrefix(callee.Name(), overflowIntrinsicPrefix)
	dot := strings.IndexByte(name, '.')
	if dot > 0 {
		name = name[:dot]
	}

	ok2, err := t.noOverflow(name, lhs, rhs, bt.Width())
	if err != nil {
		return nil, verrors.Unsupportedf(call, "unknown overflow predicate %s", callee.Name())
	}
	return t.b.Eq(variable.RefExpr(), ok2), nil
}

// noOverflow builds the no-overflow condition for op over width-w operands.
// Signed checks widen by one bit (or to 2w for multiplication) and compare
// the exact result against its truncation; unsigned addition and
// multiplication inspect the bits above w, unsigned subtraction compares
// the operands.
func (t *InstToExpr) noOverflow(op string, lhs, rhs *expr.Expr, w uint32) (*expr.Expr, error) {
	b := t.b
	wide := t.ctx.BvTy(w + 1)
	dbl := t.ctx.BvTy(2 * w)

	switch op {
	case "sadd", "ssub":
		l, r := b.SExt(lhs, wide), b.SExt(rhs, wide)
		var exact *expr.Expr
		if op == "sadd" {
			exact = b.Add(l, r)
		} else {
			exact = b.Sub(l, r)
		}
		narrow := b.Extract(exact, 0, w)
		return b.Eq(b.SExt(narrow, wide), exact), nil
	case "smul":
		l, r := b.SExt(lhs, dbl), b.SExt(rhs, dbl)
		exact := b.Mul(l, r)
		narrow := b.Extract(exact, 0, w)
		return b.Eq(b.SExt(narrow, dbl), exact), nil
	case "uadd":
		l, r := b.ZExt(lhs, wide), b.ZExt(rhs, wide)
		sum := b.Add(l, r)
		return b.Eq(b.Extract(sum, w, 1), b.BvLit(0, 1)), nil
	case "usub":
		return b.UGtEq(lhs, rhs), nil
	case "umul":
		l, r := b.ZExt(lhs, dbl), b.ZExt(rhs, dbl)
		prod := b.Mul(l, r)
		return b.Eq(b.Extract(prod, w, w), b.BvLit(0, w)), nil
	}
	return nil, verrors.Unsupportedf(nil, "unknown overflow operation %q", op)
}
