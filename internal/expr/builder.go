package expr

import "math/big"

// Builder is the only sanctioned way to create expressions. Every operation
// type-checks its inputs, folds literal operands with bit-exact semantics
// and applies a bounded set of algebraic identities. Invariant violations
// are programmer errors and panic with a TypeError.
type Builder struct {
	ctx *Context
}

// NewBuilder returns a folding builder over ctx.
func NewBuilder(ctx *Context) *Builder {
	return &Builder{ctx: ctx}
}

// Context returns the builder's context.
func (b *Builder) Context() *Context { return b.ctx }

//----- Literals and nullary nodes -----//

// True returns the boolean literal true.
func (b *Builder) True() *Expr {
	return b.ctx.intern(Literal, b.ctx.BoolTy(), nil, litPayload{BoolValue(true)})
}

// False returns the boolean literal false.
func (b *Builder) False() *Expr {
	return b.ctx.intern(Literal, b.ctx.BoolTy(), nil, litPayload{BoolValue(false)})
}

// BoolLit returns the boolean literal for v.
func (b *Builder) BoolLit(v bool) *Expr {
	if v {
		return b.True()
	}
	return b.False()
}

// BvLit returns a bitvector literal of the given width from a uint64.
func (b *Builder) BvLit(v uint64, width uint32) *Expr {
	return b.BvLitBig(new(big.Int).SetUint64(v), width)
}

// BvLitBig returns a bitvector literal, wrapping v modulo 2^width.
func (b *Builder) BvLitBig(v *big.Int, width uint32) *Expr {
	val := NewBvValue(width, v)
	return b.ctx.intern(Literal, b.ctx.BvTy(width), nil, litPayload{val})
}

// IntLit returns a mathematical integer literal.
func (b *Builder) IntLit(v *big.Int) *Expr {
	return b.ctx.intern(Literal, b.ctx.IntTy(), nil, litPayload{IntValue{V: new(big.Int).Set(v)}})
}

// FloatLit returns a floating-point literal from raw IEEE bits.
func (b *Builder) FloatLit(prec FloatPrecision, bits *big.Int) *Expr {
	val := NewFloatValue(prec, bits)
	return b.ctx.intern(Literal, b.ctx.FloatTy(prec), nil, litPayload{val})
}

// FloatLitValue interns an existing float value.
func (b *Builder) FloatLitValue(v FloatValue) *Expr {
	return b.ctx.intern(Literal, b.ctx.FloatTy(v.Prec), nil, litPayload{v})
}

// Undef returns the undefined value of the given type.
func (b *Builder) Undef(t Type) *Expr {
	return b.ctx.intern(Undef, t, nil, undefPayload{})
}

//----- Type-check helpers -----//

func (b *Builder) wantBool(e *Expr, op string) {
	if !IsBoolType(e.Type()) {
		panic(typeErrorf("%s: operand must be Bool, got %s", op, e.Type().Name()))
	}
}

func (b *Builder) wantBv(e *Expr, op string) *BvType {
	t, ok := e.Type().(*BvType)
	if !ok {
		panic(typeErrorf("%s: operand must be a bitvector, got %s", op, e.Type().Name()))
	}
	return t
}

func (b *Builder) wantSameBv(l, r *Expr, op string) *BvType {
	lt := b.wantBv(l, op)
	rt := b.wantBv(r, op)
	if lt != rt {
		panic(typeErrorf("%s: operand widths differ (%s vs %s)", op, lt.Name(), rt.Name()))
	}
	return lt
}

func (b *Builder) wantSameFloat(l, r *Expr, op string) *FloatType {
	lt, ok := l.Type().(*FloatType)
	if !ok {
		panic(typeErrorf("%s: operand must be floating-point, got %s", op, l.Type().Name()))
	}
	if l.Type() != r.Type() {
		panic(typeErrorf("%s: operand types differ (%s vs %s)", op, l.Type().Name(), r.Type().Name()))
	}
	return lt
}

func bothBvLits(l, r *Expr) (BvValue, BvValue, bool) {
	lv, lok := l.Value().(BvValue)
	rv, rok := r.Value().(BvValue)
	return lv, rv, lok && rok
}

func bothFloatLits(l, r *Expr) (FloatValue, FloatValue, bool) {
	lv, lok := l.Value().(FloatValue)
	rv, rok := r.Value().(FloatValue)
	return lv, rv, lok && rok
}

// pure reports whether folding Eq(x, x) to a constant is safe for x.
// Following the reference behavior this is limited to variable references
// and literals.
func pure(e *Expr) bool {
	return e.kind == VarRef || e.kind == Literal
}

//----- Boolean connectives -----//

// Not negates a boolean operand.
func (b *Builder) Not(op *Expr) *Expr {
	b.wantBool(op, "Not")
	if v, ok := op.Value().(BoolValue); ok {
		return b.BoolLit(!bool(v))
	}
	if op.kind == Not {
		return op.Op(0)
	}
	return b.ctx.intern(Not, b.ctx.BoolTy(), []*Expr{op}, nil)
}

// And builds the conjunction of the operands. True operands are dropped, a
// false operand short-circuits, nested conjunctions are flattened; zero
// remaining operands yield true and a single one is returned as-is.
func (b *Builder) And(ops ...*Expr) *Expr {
	newOps := make([]*Expr, 0, len(ops))
	for _, op := range ops {
		b.wantBool(op, "And")
		switch {
		case op.IsFalse():
			return b.False()
		case op.IsTrue():
			// Dropped.
		case op.kind == And:
			newOps = append(newOps, op.Ops()...)
		default:
			newOps = append(newOps, op)
		}
	}
	switch len(newOps) {
	case 0:
		return b.True()
	case 1:
		return newOps[0]
	}
	return b.ctx.intern(And, b.ctx.BoolTy(), newOps, nil)
}

// Or builds the disjunction of the operands, symmetric with And.
func (b *Builder) Or(ops ...*Expr) *Expr {
	newOps := make([]*Expr, 0, len(ops))
	for _, op := range ops {
		b.wantBool(op, "Or")
		switch {
		case op.IsTrue():
			return b.True()
		case op.IsFalse():
			// Dropped.
		case op.kind == Or:
			newOps = append(newOps, op.Ops()...)
		default:
			newOps = append(newOps, op)
		}
	}
	switch len(newOps) {
	case 0:
		return b.False()
	case 1:
		return newOps[0]
	}
	return b.ctx.intern(Or, b.ctx.BoolTy(), newOps, nil)
}

// Xor builds exclusive-or over booleans.
func (b *Builder) Xor(l, r *Expr) *Expr {
	b.wantBool(l, "Xor")
	b.wantBool(r, "Xor")
	switch {
	case l.IsTrue():
		return b.Not(r)
	case r.IsTrue():
		return b.Not(l)
	case l.IsFalse():
		return r
	case r.IsFalse():
		return l
	}
	return b.ctx.intern(Xor, b.ctx.BoolTy(), []*Expr{l, r}, nil)
}

// Imply builds logical implication.
func (b *Builder) Imply(l, r *Expr) *Expr {
	b.wantBool(l, "Imply")
	b.wantBool(r, "Imply")
	switch {
	case l.IsFalse(), r.IsTrue():
		return b.True()
	case l.IsTrue():
		return r
	case r.IsFalse():
		return b.Not(l)
	}
	return b.ctx.intern(Imply, b.ctx.BoolTy(), []*Expr{l, r}, nil)
}

//----- Casts -----//

// ZExt zero-extends a bitvector to a strictly wider type.
func (b *Builder) ZExt(op *Expr, to *BvType) *Expr {
	from := b.wantBv(op, "ZExt")
	if to.Width() <= from.Width() {
		panic(typeErrorf("ZExt: target width %d not wider than %d", to.Width(), from.Width()))
	}
	if v, ok := op.Value().(BvValue); ok {
		return b.BvLitBig(bvZExt(v, to.Width()).V, to.Width())
	}
	return b.ctx.intern(ZExt, to, []*Expr{op}, nil)
}

// SExt sign-extends a bitvector to a strictly wider type.
func (b *Builder) SExt(op *Expr, to *BvType) *Expr {
	from := b.wantBv(op, "SExt")
	if to.Width() <= from.Width() {
		panic(typeErrorf("SExt: target width %d not wider than %d", to.Width(), from.Width()))
	}
	if v, ok := op.Value().(BvValue); ok {
		return b.BvLitBig(bvSExt(v, to.Width()).V, to.Width())
	}
	return b.ctx.intern(SExt, to, []*Expr{op}, nil)
}

// Extract selects width bits starting at offset. Extracting the whole
// operand is the identity.
func (b *Builder) Extract(op *Expr, offset, width uint32) *Expr {
	from := b.wantBv(op, "Extract")
	if width == 0 || offset+width > from.Width() {
		panic(typeErrorf("Extract: [%d, %d) out of range for %s", offset, offset+width, from.Name()))
	}
	if offset == 0 && width == from.Width() {
		return op
	}
	if v, ok := op.Value().(BvValue); ok {
		return b.BvLitBig(bvExtract(v, offset, width).V, width)
	}
	return b.ctx.intern(Extract, b.ctx.BvTy(width), []*Expr{op}, extractPayload{offset: offset, width: width})
}

// Trunc truncates a bitvector to the given target type.
func (b *Builder) Trunc(op *Expr, to *BvType) *Expr {
	return b.Extract(op, 0, to.Width())
}

//----- Bitvector arithmetic -----//

func (b *Builder) bvBinary(kind Kind, l, r *Expr, fold func(a, c BvValue) BvValue) *Expr {
	t := b.wantSameBv(l, r, kind.String())
	if lv, rv, ok := bothBvLits(l, r); ok {
		if !isDivision(kind) || rv.V.Sign() != 0 {
			return b.BvLitBig(fold(lv, rv).V, t.Width())
		}
		// Division by a literal zero stays symbolic so reachability of
		// the division decides the verdict, not the folder.
	}
	return b.ctx.intern(kind, t, []*Expr{l, r}, nil)
}

func isDivision(kind Kind) bool {
	return kind == SDiv || kind == UDiv || kind == SRem || kind == URem
}

// Add builds modular bitvector addition.
func (b *Builder) Add(l, r *Expr) *Expr { return b.bvBinary(Add, l, r, bvAdd) }

// Sub builds modular bitvector subtraction.
func (b *Builder) Sub(l, r *Expr) *Expr { return b.bvBinary(Sub, l, r, bvSub) }

// Mul builds modular bitvector multiplication.
func (b *Builder) Mul(l, r *Expr) *Expr { return b.bvBinary(Mul, l, r, bvMul) }

// SDiv builds signed division truncated toward zero.
func (b *Builder) SDiv(l, r *Expr) *Expr { return b.bvBinary(SDiv, l, r, bvSDiv) }

// UDiv builds unsigned division.
func (b *Builder) UDiv(l, r *Expr) *Expr { return b.bvBinary(UDiv, l, r, bvUDiv) }

// SRem builds the signed remainder with the sign of the dividend.
func (b *Builder) SRem(l, r *Expr) *Expr { return b.bvBinary(SRem, l, r, bvSRem) }

// URem builds the unsigned remainder.
func (b *Builder) URem(l, r *Expr) *Expr { return b.bvBinary(URem, l, r, bvURem) }

// Shl builds a left shift.
func (b *Builder) Shl(l, r *Expr) *Expr { return b.bvBinary(Shl, l, r, bvShl) }

// LShr builds a logical right shift.
func (b *Builder) LShr(l, r *Expr) *Expr { return b.bvBinary(LShr, l, r, bvLShr) }

// AShr builds an arithmetic right shift.
func (b *Builder) AShr(l, r *Expr) *Expr { return b.bvBinary(AShr, l, r, bvAShr) }

// BAnd builds bitwise and.
func (b *Builder) BAnd(l, r *Expr) *Expr { return b.bvBinary(BAnd, l, r, bvAnd) }

// BOr builds bitwise or.
func (b *Builder) BOr(l, r *Expr) *Expr { return b.bvBinary(BOr, l, r, bvOr) }

// BXor builds bitwise xor.
func (b *Builder) BXor(l, r *Expr) *Expr { return b.bvBinary(BXor, l, r, bvXor) }

//----- Equality and comparisons -----//

// Eq builds equality over two operands of the same type.
func (b *Builder) Eq(l, r *Expr) *Expr {
	if l.Type() != r.Type() {
		panic(typeErrorf("Eq: operand types differ (%s vs %s)", l.Type().Name(), r.Type().Name()))
	}
	if l == r && pure(l) {
		return b.True()
	}
	if l.kind == Literal && r.kind == Literal {
		// Distinct interned literals of one type are distinct values,
		// except floats, where bit patterns and IEEE equality differ.
		if !IsFloatType(l.Type()) {
			return b.BoolLit(l == r)
		}
	}
	return b.ctx.intern(Eq, b.ctx.BoolTy(), []*Expr{l, r}, nil)
}

// NotEq builds disequality over two operands of the same type.
func (b *Builder) NotEq(l, r *Expr) *Expr {
	if l.Type() != r.Type() {
		panic(typeErrorf("NotEq: operand types differ (%s vs %s)", l.Type().Name(), r.Type().Name()))
	}
	if l == r && pure(l) {
		return b.False()
	}
	if l.kind == Literal && r.kind == Literal {
		if !IsFloatType(l.Type()) {
			return b.BoolLit(l != r)
		}
	}
	return b.ctx.intern(NotEq, b.ctx.BoolTy(), []*Expr{l, r}, nil)
}

func (b *Builder) bvCompare(kind Kind, l, r *Expr) *Expr {
	b.wantSameBv(l, r, kind.String())
	if lv, rv, ok := bothBvLits(l, r); ok {
		return b.BoolLit(bvCmp(kind, lv, rv))
	}
	return b.ctx.intern(kind, b.ctx.BoolTy(), []*Expr{l, r}, nil)
}

// SLt builds signed less-than.
func (b *Builder) SLt(l, r *Expr) *Expr { return b.bvCompare(SLt, l, r) }

// SLtEq builds signed less-or-equal.
func (b *Builder) SLtEq(l, r *Expr) *Expr { return b.bvCompare(SLtEq, l, r) }

// SGt builds signed greater-than.
func (b *Builder) SGt(l, r *Expr) *Expr { return b.bvCompare(SGt, l, r) }

// SGtEq builds signed greater-or-equal.
func (b *Builder) SGtEq(l, r *Expr) *Expr { return b.bvCompare(SGtEq, l, r) }

// ULt builds unsigned less-than.
func (b *Builder) ULt(l, r *Expr) *Expr { return b.bvCompare(ULt, l, r) }

// ULtEq builds unsigned less-or-equal.
func (b *Builder) ULtEq(l, r *Expr) *Expr { return b.bvCompare(ULtEq, l, r) }

// UGt builds unsigned greater-than.
func (b *Builder) UGt(l, r *Expr) *Expr { return b.bvCompare(UGt, l, r) }

// UGtEq builds unsigned greater-or-equal.
func (b *Builder) UGtEq(l, r *Expr) *Expr { return b.bvCompare(UGtEq, l, r) }

//----- Floating point -----//

// FIsNan tests for NaN.
func (b *Builder) FIsNan(op *Expr) *Expr {
	if !IsFloatType(op.Type()) {
		panic(typeErrorf("FIsNan: operand must be floating-point, got %s", op.Type().Name()))
	}
	if v, ok := op.Value().(FloatValue); ok {
		return b.BoolLit(v.IsNaN())
	}
	return b.ctx.intern(FIsNan, b.ctx.BoolTy(), []*Expr{op}, nil)
}

// FIsInf tests for infinity.
func (b *Builder) FIsInf(op *Expr) *Expr {
	if !IsFloatType(op.Type()) {
		panic(typeErrorf("FIsInf: operand must be floating-point, got %s", op.Type().Name()))
	}
	if v, ok := op.Value().(FloatValue); ok {
		return b.BoolLit(v.IsInf())
	}
	return b.ctx.intern(FIsInf, b.ctx.BoolTy(), []*Expr{op}, nil)
}

func (b *Builder) floatBinary(kind Kind, l, r *Expr, rm RoundingMode) *Expr {
	t := b.wantSameFloat(l, r, kind.String())
	if lv, rv, ok := bothFloatLits(l, r); ok {
		return b.FloatLitValue(floatArith(kind, lv, rv, rm))
	}
	return b.ctx.intern(kind, t, []*Expr{l, r}, rmPayload{rm: rm})
}

// FAdd builds floating-point addition under the given rounding mode.
func (b *Builder) FAdd(l, r *Expr, rm RoundingMode) *Expr { return b.floatBinary(FAdd, l, r, rm) }

// FSub builds floating-point subtraction under the given rounding mode.
func (b *Builder) FSub(l, r *Expr, rm RoundingMode) *Expr { return b.floatBinary(FSub, l, r, rm) }

// FMul builds floating-point multiplication under the given rounding mode.
func (b *Builder) FMul(l, r *Expr, rm RoundingMode) *Expr { return b.floatBinary(FMul, l, r, rm) }

// FDiv builds floating-point division under the given rounding mode.
func (b *Builder) FDiv(l, r *Expr, rm RoundingMode) *Expr { return b.floatBinary(FDiv, l, r, rm) }

func (b *Builder) floatCompareOp(kind Kind, l, r *Expr) *Expr {
	b.wantSameFloat(l, r, kind.String())
	if lv, rv, ok := bothFloatLits(l, r); ok {
		if lv.IsNaN() || rv.IsNaN() {
			// Core comparisons are false on NaN operands.
			return b.False()
		}
		return b.BoolLit(floatCompare(kind, lv, rv))
	}
	return b.ctx.intern(kind, b.ctx.BoolTy(), []*Expr{l, r}, nil)
}

// FEq builds the core floating-point equality (false on NaN operands).
func (b *Builder) FEq(l, r *Expr) *Expr { return b.floatCompareOp(FEq, l, r) }

// FGt builds core floating-point greater-than.
func (b *Builder) FGt(l, r *Expr) *Expr { return b.floatCompareOp(FGt, l, r) }

// FGtEq builds core floating-point greater-or-equal.
func (b *Builder) FGtEq(l, r *Expr) *Expr { return b.floatCompareOp(FGtEq, l, r) }

// FLt builds core floating-point less-than.
func (b *Builder) FLt(l, r *Expr) *Expr { return b.floatCompareOp(FLt, l, r) }

// FLtEq builds core floating-point less-or-equal.
func (b *Builder) FLtEq(l, r *Expr) *Expr { return b.floatCompareOp(FLtEq, l, r) }

//----- Ternary -----//

// Select builds a conditional choice between two operands of one type.
func (b *Builder) Select(cond, then, elze *Expr) *Expr {
	b.wantBool(cond, "Select")
	if then.Type() != elze.Type() {
		panic(typeErrorf("Select: arm types differ (%s vs %s)", then.Type().Name(), elze.Type().Name()))
	}
	switch {
	case cond.IsTrue():
		return then
	case cond.IsFalse():
		return elze
	case then == elze:
		return then
	}
	return b.ctx.intern(Select, then.Type(), []*Expr{cond, then, elze}, nil)
}

// ArrayRead builds a read of array at index.
func (b *Builder) ArrayRead(array, index *Expr) *Expr {
	at, ok := array.Type().(*ArrayType)
	if !ok {
		panic(typeErrorf("ArrayRead: operand must be an array, got %s", array.Type().Name()))
	}
	if index.Type() != at.IndexType() {
		panic(typeErrorf("ArrayRead: index type %s does not match %s", index.Type().Name(), at.Name()))
	}
	// Read-over-write resolves when both indices are literals.
	if array.kind == ArrayWrite && index.kind == Literal {
		widx := array.Op(1)
		if widx.kind == Literal {
			if widx == index {
				return array.Op(2)
			}
			return b.ArrayRead(array.Op(0), index)
		}
	}
	return b.ctx.intern(ArrayRead, at.ElementType(), []*Expr{array, index}, nil)
}

// ArrayWrite builds a copy of array with index updated to value.
func (b *Builder) ArrayWrite(array, index, value *Expr) *Expr {
	at, ok := array.Type().(*ArrayType)
	if !ok {
		panic(typeErrorf("ArrayWrite: operand must be an array, got %s", array.Type().Name()))
	}
	if index.Type() != at.IndexType() {
		panic(typeErrorf("ArrayWrite: index type %s does not match %s", index.Type().Name(), at.Name()))
	}
	if value.Type() != at.ElementType() {
		panic(typeErrorf("ArrayWrite: element type %s does not match %s", value.Type().Name(), at.Name()))
	}
	return b.ctx.intern(ArrayWrite, at, []*Expr{array, index, value}, nil)
}
