// Package translator turns LLVM-style IR instructions into transition
// formulas over the expression DAG. The conjunction of the per-instruction
// formulas along a CFG path is satisfiable exactly when that concrete path
// is feasible.
package translator

import (
	"strings"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	verrors "verica/internal/errors"
	"verica/internal/expr"
	"verica/internal/memory"
)

// Options carry the translation-relevant settings.
type Options struct {
	// AssumeNoNaN collapses ordered/unordered float predicates to their
	// core comparison.
	AssumeNoNaN bool
	// MathInt is accepted for compatibility; the encoding stays
	// bitvector-based.
	MathInt bool
}

// InstToExpr translates the instructions of one function. It registers a
// context variable for every parameter and named instruction up front and
// lets the memory model add its own synthetic variables.
type InstToExpr struct {
	fn   *ir.Func
	ctx  *expr.Context
	b    *expr.Builder
	mem  memory.Model
	opts Options

	vars map[value.Value]*expr.Variable

	// Translated counts instructions handled, for the statistics line.
	Translated int
}

// New builds a translator for fn, creating variables for all of its values.
func New(fn *ir.Func, ctx *expr.Context, b *expr.Builder, mem memory.Model, opts Options) (*InstToExpr, error) {
	t := &InstToExpr{
		fn:   fn,
		ctx:  ctx,
		b:    b,
		mem:  mem,
		opts: opts,
		vars: make(map[value.Value]*expr.Variable),
	}

	for _, p := range fn.Params {
		ty, err := t.typeFromIR(p.Typ)
		if err != nil {
			return nil, err
		}
		v, err := ctx.CreateVariable(p.Name(), ty)
		if err != nil {
			return nil, err
		}
		t.vars[p] = v
	}

	for _, blk := range fn.Blocks {
		for _, inst := range blk.Insts {
			named, ok := inst.(value.Named)
			if !ok || named.Name() == "" || types.IsVoid(named.Type()) {
				continue
			}
			ty, err := t.typeFromIR(named.Type())
			if err != nil {
				return nil, err
			}
			v, err := ctx.CreateVariable(named.Name(), ty)
			if err != nil {
				return nil, err
			}
			t.vars[inst.(value.Value)] = v
		}
	}

	if err := mem.Initialize(fn, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Variables exposes the IR-value-to-variable map for the trace builder.
func (t *InstToExpr) Variables() map[value.Value]*expr.Variable { return t.vars }

// Builder returns the expression builder (memory.Env).
func (t *InstToExpr) Builder() *expr.Builder { return t.b }

// DefineVariable registers a synthetic variable (memory.Env).
func (t *InstToExpr) DefineVariable(name string, ty expr.Type) (*expr.Variable, error) {
	return t.ctx.CreateVariable(name, ty)
}

// VariableFor returns the registered variable of an IR value (memory.Env).
func (t *InstToExpr) VariableFor(v value.Value) (*expr.Variable, error) {
	if res, ok := t.vars[v]; ok {
		return res, nil
	}
	return nil, verrors.Internalf("no variable registered for value %s", v.Ident())
}

// EntryConstraints returns the memory model's entry formulas.
func (t *InstToExpr) EntryConstraints() ([]*expr.Expr, error) {
	return t.mem.EntryConstraints(t)
}

// typeFromIR maps an IR type onto a semantic type: i1 becomes Bool, iN a
// bitvector, floats their precision, pointers whatever the memory model
// says.
func (t *InstToExpr) typeFromIR(ty types.Type) (expr.Type, error) {
	switch irTy := ty.(type) {
	case *types.IntType:
		if irTy.BitSize == 1 {
			return t.ctx.BoolTy(), nil
		}
		return t.ctx.BvTy(uint32(irTy.BitSize)), nil
	case *types.FloatType:
		switch irTy.Kind {
		case types.FloatKindHalf:
			return t.ctx.FloatTy(expr.Half), nil
		case types.FloatKindFloat:
			return t.ctx.FloatTy(expr.Single), nil
		case types.FloatKindDouble:
			return t.ctx.FloatTy(expr.Double), nil
		case types.FloatKindFP128:
			return t.ctx.FloatTy(expr.Quad), nil
		}
	case *types.PointerType:
		return t.mem.TypeFromPointer(irTy, t.ctx)
	}
	return nil, verrors.Unsupportedf(nil, "unsupported IR type %s", ty)
}

// TransformEdge translates an instruction in the context of the edge to
// successor succIdx, with pred the predecessor block for phi resolution.
func (t *InstToExpr) TransformEdge(inst ir.Instruction, succIdx int, pred *ir.Block) (*expr.Expr, error) {
	if phi, ok := inst.(*ir.InstPhi); ok {
		if pred == nil {
			return nil, verrors.Internalf("phi node without a known predecessor")
		}
		return t.transformPhi(phi, pred)
	}
	return t.Transform(inst)
}

// TransformTerminator translates a terminator for the edge to successor
// succIdx.
func (t *InstToExpr) TransformTerminator(term ir.Terminator, succIdx int) (*expr.Expr, error) {
	t.Translated++
	switch tr := term.(type) {
	case *ir.TermBr:
		return t.b.True(), nil
	case *ir.TermCondBr:
		return t.transformCondBr(tr, succIdx)
	case *ir.TermSwitch:
		return t.transformSwitch(tr, succIdx)
	case *ir.TermRet, *ir.TermUnreachable:
		return t.b.True(), nil
	}
	return nil, verrors.Unsupportedf(term, "unsupported terminator")
}

// Transform translates a non-phi, non-terminator instruction.
func (t *InstToExpr) Transform(inst ir.Instruction) (*expr.Expr, error) {
	t.Translated++
	switch in := inst.(type) {
	case *ir.InstAdd, *ir.InstSub, *ir.InstMul,
		*ir.InstSDiv, *ir.InstUDiv, *ir.InstSRem, *ir.InstURem,
		*ir.InstShl, *ir.InstLShr, *ir.InstAShr,
		*ir.InstAnd, *ir.InstOr, *ir.InstXor,
		*ir.InstFAdd, *ir.InstFSub, *ir.InstFMul, *ir.InstFDiv:
		return t.transformBinary(inst)
	case *ir.InstICmp:
		return t.transformICmp(in)
	case *ir.InstFCmp:
		return t.transformFCmp(in)
	case *ir.InstSelect:
		return t.transformSelect(in)
	case *ir.InstZExt:
		return t.transformIntCast(in, in.From, zext)
	case *ir.InstSExt:
		return t.transformIntCast(in, in.From, sext)
	case *ir.InstTrunc:
		return t.transformIntCast(in, in.From, trunc)
	case *ir.InstBitCast:
		return t.pointerCast(in, in.From)
	case *ir.InstPtrToInt:
		return t.pointerCast(in, in.From)
	case *ir.InstIntToPtr:
		return t.pointerCast(in, in.From)
	case *ir.InstCall:
		return t.transformCall(in)
	case *ir.InstLoad:
		return t.mem.HandleLoad(in, t)
	case *ir.InstStore:
		return t.mem.HandleStore(in, t)
	case *ir.InstAlloca:
		return t.mem.HandleAlloca(in, t)
	case *ir.InstGetElementPtr:
		return t.transformGEP(in)
	case *ir.InstPhi:
		return nil, verrors.Internalf("phi node reached Transform without an edge")
	}
	return nil, verrors.Unsupportedf(inst, "unsupported instruction")
}

//----- Binary operators -----//

func isLogicInst(inst ir.Instruction) bool {
	switch inst.(type) {
	case *ir.InstAnd, *ir.InstOr, *ir.InstXor:
		return true
	}
	return false
}

func isFloatInst(inst ir.Instruction) bool {
	switch inst.(type) {
	case *ir.InstFAdd, *ir.InstFSub, *ir.InstFMul, *ir.InstFDiv:
		return true
	}
	return false
}

func (t *InstToExpr) transformBinary(inst ir.Instruction) (*expr.Expr, error) {
	named := inst.(value.Named)
	variable, err := t.VariableFor(named)
	if err != nil {
		return nil, err
	}
	ops := binaryOperands(inst)
	lhs, err := t.Operand(ops[0])
	if err != nil {
		return nil, err
	}
	rhs, err := t.Operand(ops[1])
	if err != nil {
		return nil, err
	}

	if isLogicInst(inst) {
		if expr.IsBoolType(variable.Type()) {
			l, err := t.asBool(lhs)
			if err != nil {
				return nil, err
			}
			r, err := t.asBool(rhs)
			if err != nil {
				return nil, err
			}
			var res *expr.Expr
			switch inst.(type) {
			case *ir.InstAnd:
				res = t.b.And(l, r)
			case *ir.InstOr:
				res = t.b.Or(l, r)
			case *ir.InstXor:
				res = t.b.Xor(l, r)
			}
			return t.b.Eq(variable.RefExpr(), res), nil
		}

		bt, ok := variable.Type().(*expr.BvType)
		if !ok {
			return nil, verrors.Internalf("logic instruction on non-integer type %s", variable.Type().Name())
		}
		l, err := t.asBv(lhs, bt.Width())
		if err != nil {
			return nil, err
		}
		r, err := t.asBv(rhs, bt.Width())
		if err != nil {
			return nil, err
		}
		var res *expr.Expr
		switch inst.(type) {
		case *ir.InstAnd:
			res = t.b.BAnd(l, r)
		case *ir.InstOr:
			res = t.b.BOr(l, r)
		case *ir.InstXor:
			res = t.b.BXor(l, r)
		}
		return t.b.Eq(variable.RefExpr(), res), nil
	}

	if isFloatInst(inst) {
		var res *expr.Expr
		switch inst.(type) {
		case *ir.InstFAdd:
			res = t.b.FAdd(lhs, rhs, expr.RoundNearestTiesToEven)
		case *ir.InstFSub:
			res = t.b.FSub(lhs, rhs, expr.RoundNearestTiesToEven)
		case *ir.InstFMul:
			res = t.b.FMul(lhs, rhs, expr.RoundNearestTiesToEven)
		case *ir.InstFDiv:
			res = t.b.FDiv(lhs, rhs, expr.RoundNearestTiesToEven)
		}
		return t.b.FEq(variable.RefExpr(), res), nil
	}

	bt, ok := variable.Type().(*expr.BvType)
	if !ok {
		return nil, verrors.Internalf("arithmetic result must be a bitvector, got %s", variable.Type().Name())
	}
	l, err := t.asBv(lhs, bt.Width())
	if err != nil {
		return nil, err
	}
	r, err := t.asBv(rhs, bt.Width())
	if err != nil {
		return nil, err
	}

	var res *expr.Expr
	switch inst.(type) {
	case *ir.InstAdd:
		res = t.b.Add(l, r)
	case *ir.InstSub:
		res = t.b.Sub(l, r)
	case *ir.InstMul:
		res = t.b.Mul(l, r)
	case *ir.InstSDiv:
		res = t.b.SDiv(l, r)
	case *ir.InstUDiv:
		res = t.b.UDiv(l, r)
	case *ir.InstSRem:
		res = t.b.SRem(l, r)
	case *ir.InstURem:
		res = t.b.URem(l, r)
	case *ir.InstShl:
		res = t.b.Shl(l, r)
	case *ir.InstLShr:
		res = t.b.LShr(l, r)
	case *ir.InstAShr:
		res = t.b.AShr(l, r)
	default:
		return nil, verrors.Unsupportedf(inst, "unsupported arithmetic instruction")
	}
	return t.b.Eq(variable.RefExpr(), res), nil
}

func binaryOperands(inst ir.Instruction) [2]value.Value {
	switch in := inst.(type) {
	case *ir.InstAdd:
		return [2]value.Value{in.X, in.Y}
	case *ir.InstSub:
		return [2]value.Value{in.X, in.Y}
	case *ir.InstMul:
		return [2]value.Value{in.X, in.Y}
	case *ir.InstSDiv:
		return [2]value.Value{in.X, in.Y}
	case *ir.InstUDiv:
		return [2]value.Value{in.X, in.Y}
	case *ir.InstSRem:
		return [2]value.Value{in.X, in.Y}
	case *ir.InstURem:
		return [2]value.Value{in.X, in.Y}
	case *ir.InstShl:
		return [2]value.Value{in.X, in.Y}
	case *ir.InstLShr:
		return [2]value.Value{in.X, in.Y}
	case *ir.InstAShr:
		return [2]value.Value{in.X, in.Y}
	case *ir.InstAnd:
		return [2]value.Value{in.X, in.Y}
	case *ir.InstOr:
		return [2]value.Value{in.X, in.Y}
	case *ir.InstXor:
		return [2]value.Value{in.X, in.Y}
	case *ir.InstFAdd:
		return [2]value.Value{in.X, in.Y}
	case *ir.InstFSub:
		return [2]value.Value{in.X, in.Y}
	case *ir.InstFMul:
		return [2]value.Value{in.X, in.Y}
	case *ir.InstFDiv:
		return [2]value.Value{in.X, in.Y}
	}
	panic("binaryOperands: not a binary instruction")
}

//----- Compares -----//

func (t *InstToExpr) transformICmp(icmp *ir.InstICmp) (*expr.Expr, error) {
	variable, err := t.VariableFor(icmp)
	if err != nil {
		return nil, err
	}
	lhs, err := t.Operand(icmp.X)
	if err != nil {
		return nil, err
	}
	rhs, err := t.Operand(icmp.Y)
	if err != nil {
		return nil, err
	}

	// Equality works over both Bool and bitvector operands; the ordered
	// predicates coerce i1 operands through Bv(1).
	if icmp.Pred != enum.IPredEQ && icmp.Pred != enum.IPredNE {
		w := operandWidth(lhs, rhs)
		lhs, err = t.asBv(lhs, w)
		if err != nil {
			return nil, err
		}
		rhs, err = t.asBv(rhs, w)
		if err != nil {
			return nil, err
		}
	} else if expr.IsBoolType(lhs.Type()) != expr.IsBoolType(rhs.Type()) {
		lhs, err = t.asBv(lhs, 1)
		if err != nil {
			return nil, err
		}
		rhs, err = t.asBv(rhs, 1)
		if err != nil {
			return nil, err
		}
	}

	var cmp *expr.Expr
	switch icmp.Pred {
	case enum.IPredEQ:
		cmp = t.b.Eq(lhs, rhs)
	case enum.IPredNE:
		cmp = t.b.NotEq(lhs, rhs)
	case enum.IPredUGT:
		cmp = t.b.UGt(lhs, rhs)
	case enum.IPredUGE:
		cmp = t.b.UGtEq(lhs, rhs)
	case enum.IPredULT:
		cmp = t.b.ULt(lhs, rhs)
	case enum.IPredULE:
		cmp = t.b.ULtEq(lhs, rhs)
	case enum.IPredSGT:
		cmp = t.b.SGt(lhs, rhs)
	case enum.IPredSGE:
		cmp = t.b.SGtEq(lhs, rhs)
	case enum.IPredSLT:
		cmp = t.b.SLt(lhs, rhs)
	case enum.IPredSLE:
		cmp = t.b.SLtEq(lhs, rhs)
	default:
		return nil, verrors.Unsupportedf(icmp, "unhandled icmp predicate")
	}
	return t.b.Eq(variable.RefExpr(), cmp), nil
}

// operandWidth picks the bitvector width two compare operands share.
func operandWidth(l, r *expr.Expr) uint32 {
	if bt, ok := l.Type().(*expr.BvType); ok {
		return bt.Width()
	}
	if bt, ok := r.Type().(*expr.BvType); ok {
		return bt.Width()
	}
	return 1
}

func isOrderedPred(pred enum.FPred) bool {
	switch pred {
	case enum.FPredOEQ, enum.FPredOGT, enum.FPredOGE, enum.FPredOLT, enum.FPredOLE, enum.FPredONE, enum.FPredORD:
		return true
	}
	return false
}

func isUnorderedPred(pred enum.FPred) bool {
	switch pred {
	case enum.FPredUEQ, enum.FPredUGT, enum.FPredUGE, enum.FPredULT, enum.FPredULE, enum.FPredUNE, enum.FPredUNO:
		return true
	}
	return false
}

func (t *InstToExpr) transformFCmp(fcmp *ir.InstFCmp) (*expr.Expr, error) {
	variable, err := t.VariableFor(fcmp)
	if err != nil {
		return nil, err
	}
	left, err := t.Operand(fcmp.X)
	if err != nil {
		return nil, err
	}
	right, err := t.Operand(fcmp.Y)
	if err != nil {
		return nil, err
	}

	var cmp *expr.Expr
	switch fcmp.Pred {
	case enum.FPredOEQ, enum.FPredUEQ:
		cmp = t.b.FEq(left, right)
	case enum.FPredOGT, enum.FPredUGT:
		cmp = t.b.FGt(left, right)
	case enum.FPredOGE, enum.FPredUGE:
		cmp = t.b.FGtEq(left, right)
	case enum.FPredOLT, enum.FPredULT:
		cmp = t.b.FLt(left, right)
	case enum.FPredOLE, enum.FPredULE:
		cmp = t.b.FLtEq(left, right)
	case enum.FPredONE, enum.FPredUNE:
		cmp = t.b.Not(t.b.FEq(left, right))
	}

	var result *expr.Expr
	switch {
	case fcmp.Pred == enum.FPredFalse:
		result = t.b.False()
	case fcmp.Pred == enum.FPredTrue:
		result = t.b.True()
	case t.opts.AssumeNoNaN:
		switch fcmp.Pred {
		case enum.FPredORD:
			result = t.b.True()
		case enum.FPredUNO:
			result = t.b.False()
		default:
			result = cmp
		}
	case fcmp.Pred == enum.FPredORD:
		result = t.b.And(
			t.b.Not(t.b.FIsNan(left)),
			t.b.Not(t.b.FIsNan(right)),
		)
	case fcmp.Pred == enum.FPredUNO:
		result = t.b.Or(
			t.b.FIsNan(left),
			t.b.FIsNan(right),
		)
	case isOrderedPred(fcmp.Pred):
		// An ordered predicate can only hold with no NaN operands.
		result = t.b.And(
			t.b.Not(t.b.FIsNan(left)),
			t.b.Not(t.b.FIsNan(right)),
			cmp,
		)
	case isUnorderedPred(fcmp.Pred):
		// An unordered predicate may hold if either operand is NaN.
		result = t.b.Or(
			t.b.FIsNan(left),
			t.b.FIsNan(right),
			cmp,
		)
	default:
		return nil, verrors.Unsupportedf(fcmp, "unhandled fcmp predicate")
	}
	return t.b.Eq(variable.RefExpr(), result), nil
}

//----- Select and casts -----//

func (t *InstToExpr) transformSelect(sel *ir.InstSelect) (*expr.Expr, error) {
	variable, err := t.VariableFor(sel)
	if err != nil {
		return nil, err
	}
	cond, err := t.Operand(sel.Cond)
	if err != nil {
		return nil, err
	}
	cond, err = t.asBool(cond)
	if err != nil {
		return nil, err
	}
	then, err := t.Operand(sel.ValueTrue)
	if err != nil {
		return nil, err
	}
	elze, err := t.Operand(sel.ValueFalse)
	if err != nil {
		return nil, err
	}
	then, err = t.castResult(then, variable.Type())
	if err != nil {
		return nil, err
	}
	elze, err = t.castResult(elze, variable.Type())
	if err != nil {
		return nil, err
	}
	return t.assignTo(variable, t.b.Select(cond, then, elze)), nil
}

type intCastKind int

const (
	zext intCastKind = iota
	sext
	trunc
)

func (t *InstToExpr) transformIntCast(inst ir.Instruction, from value.Value, kind intCastKind) (*expr.Expr, error) {
	if _, isPtr := from.Type().(*types.PointerType); isPtr {
		op, err := t.Operand(from)
		if err != nil {
			return nil, err
		}
		return t.mem.HandlePointerCast(inst, op, t)
	}

	named := inst.(value.Named)
	variable, err := t.VariableFor(named)
	if err != nil {
		return nil, err
	}
	op, err := t.Operand(from)
	if err != nil {
		return nil, err
	}

	// The source width follows the operand's own type so a Bool source
	// bridges through Bv(1).
	var srcWidth uint32 = 1
	if bt, ok := op.Type().(*expr.BvType); ok {
		srcWidth = bt.Width()
	} else if !expr.IsBoolType(op.Type()) {
		return nil, verrors.Unsupportedf(inst, "unsupported cast source type %s", op.Type().Name())
	}
	op, err = t.asBv(op, srcWidth)
	if err != nil {
		return nil, err
	}

	// An iN -> i1 truncation lands on a Bool variable.
	targetTy := variable.Type()
	var targetBv *expr.BvType
	if expr.IsBoolType(targetTy) {
		targetBv = t.ctx.BvTy(1)
	} else {
		var ok bool
		targetBv, ok = targetTy.(*expr.BvType)
		if !ok {
			return nil, verrors.Unsupportedf(inst, "unsupported cast target type %s", targetTy.Name())
		}
	}

	var res *expr.Expr
	switch kind {
	case zext:
		res = t.b.ZExt(op, targetBv)
	case sext:
		res = t.b.SExt(op, targetBv)
	case trunc:
		res = t.b.Trunc(op, targetBv)
	}
	// A truncation to i1 lands on a Bool variable.
	res, err = t.castResult(res, variable.Type())
	if err != nil {
		return nil, err
	}
	return t.assignTo(variable, res), nil
}

func (t *InstToExpr) pointerCast(inst ir.Instruction, from value.Value) (*expr.Expr, error) {
	op, err := t.Operand(from)
	if err != nil {
		return nil, err
	}
	return t.mem.HandlePointerCast(inst, op, t)
}

//----- Calls -----//

// IsNondetFunction reports whether a callee name is a recognized
// nondeterministic value producer. The call's result variable is left free;
// the test-harness generator binds these to model values.
func IsNondetFunction(name string) bool {
	return strings.HasPrefix(name, "__VERIFIER_nondet") ||
		strings.HasPrefix(name, "verica.nondet") ||
		strings.HasPrefix(name, "gazer.nondet")
}

func (t *InstToExpr) transformCall(call *ir.InstCall) (*expr.Expr, error) {
	callee, ok := call.Callee.(*ir.Func)
	if !ok {
		// Indirect call: the memory model resolves it.
		return t.mem.HandleCall(call, t)
	}

	name := callee.Name()
	switch {
	case strings.HasPrefix(name, overflowIntrinsicPrefix):
		return t.transformOverflowPredicate(call, callee)
	case strings.HasPrefix(name, "llvm.dbg."):
		return t.b.True(), nil
	case strings.HasPrefix(name, "gazer.write"), strings.HasPrefix(name, "verica.write"):
		// Trace bookkeeping; no transition-relation contribution.
		return t.b.True(), nil
	}

	if len(callee.Blocks) == 0 {
		// A declaration: nondet producers and any other unknown
		// external leave the call's result variable free.
		return t.b.True(), nil
	}

	return nil, verrors.Unsupportedf(call, "call to defined function %s survived inlining", name)
}

//----- Branches and phi nodes -----//

func (t *InstToExpr) transformPhi(phi *ir.InstPhi, pred *ir.Block) (*expr.Expr, error) {
	variable, err := t.VariableFor(phi)
	if err != nil {
		return nil, err
	}
	for _, inc := range phi.Incs {
		if inc.Pred == pred {
			op, err := t.Operand(inc.X)
			if err != nil {
				return nil, err
			}
			op, err = t.castResult(op, variable.Type())
			if err != nil {
				return nil, err
			}
			return t.assignTo(variable, op), nil
		}
	}
	return nil, verrors.Internalf("phi node %s has no incoming value for block %s", phi.Name(), pred.Name())
}

func (t *InstToExpr) transformCondBr(br *ir.TermCondBr, succIdx int) (*expr.Expr, error) {
	if succIdx != 0 && succIdx != 1 {
		return nil, verrors.Internalf("invalid successor index %d for conditional branch", succIdx)
	}
	cond, err := t.Operand(br.Cond)
	if err != nil {
		return nil, err
	}
	cond, err = t.asBool(cond)
	if err != nil {
		return nil, err
	}
	if succIdx == 0 {
		return cond, nil
	}
	return t.b.Not(cond), nil
}

func (t *InstToExpr) transformSwitch(sw *ir.TermSwitch, succIdx int) (*expr.Expr, error) {
	cond, err := t.Operand(sw.X)
	if err != nil {
		return nil, err
	}

	if succIdx == 0 {
		// The default branch holds when no case value matches.
		result := t.b.True()
		for _, c := range sw.Cases {
			caseVal, err := t.Operand(c.X)
			if err != nil {
				return nil, err
			}
			result = t.b.And(result, t.b.NotEq(cond, caseVal))
		}
		return result, nil
	}

	if succIdx-1 >= len(sw.Cases) {
		return nil, verrors.Internalf("invalid successor index %d for switch", succIdx)
	}
	caseVal, err := t.Operand(sw.Cases[succIdx-1].X)
	if err != nil {
		return nil, err
	}
	return t.b.Eq(cond, caseVal), nil
}

func (t *InstToExpr) transformGEP(gep *ir.InstGetElementPtr) (*expr.Expr, error) {
	ops := make([]*expr.Expr, 0, len(gep.Indices)+1)
	src, err := t.Operand(gep.Src)
	if err != nil {
		return nil, err
	}
	ops = append(ops, src)
	for _, idx := range gep.Indices {
		op, err := t.Operand(idx)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return t.mem.HandleGetElementPtr(gep, ops, t)
}

//----- Operands and coercions -----//

// Operand translates an IR value into an expression (memory.Env).
func (t *InstToExpr) Operand(v value.Value) (*expr.Expr, error) {
	switch val := v.(type) {
	case *constant.Int:
		if val.Typ.BitSize == 1 {
			if val.X.Sign() == 0 {
				return t.b.False(), nil
			}
			return t.b.True(), nil
		}
		return t.b.BvLitBig(val.X, uint32(val.Typ.BitSize)), nil
	case *constant.Float:
		ty, err := t.typeFromIR(val.Typ)
		if err != nil {
			return nil, err
		}
		ft := ty.(*expr.FloatType)
		if val.NaN {
			return t.b.FloatLitValue(expr.FloatNaN(ft.Precision())), nil
		}
		f, _ := val.X.Float64()
		return t.b.FloatLitValue(expr.FloatValueFromFloat64(ft.Precision(), f)), nil
	case *constant.Null:
		return t.mem.NullPointer(t), nil
	case *constant.Undef:
		ty, err := t.typeFromIR(val.Typ)
		if err != nil {
			return nil, err
		}
		return t.b.Undef(ty), nil
	case *ir.Global:
		return t.mem.GlobalRef(val, t)
	}

	if variable, ok := t.vars[v]; ok {
		return variable.RefExpr(), nil
	}
	return nil, verrors.Unsupportedf(v, "unhandled operand value")
}

// asBool coerces an expression into Bool: bitvectors compare against zero.
// Re-coercing the result of asBv undoes it, so the two are inverses.
func (t *InstToExpr) asBool(op *expr.Expr) (*expr.Expr, error) {
	if expr.IsBoolType(op.Type()) {
		return op, nil
	}
	if bt, ok := op.Type().(*expr.BvType); ok {
		if inner, ok := selectOfBits(op, bt.Width()); ok {
			return inner, nil
		}
		return t.b.NotEq(op, t.b.BvLit(0, bt.Width())), nil
	}
	return nil, verrors.Unsupportedf(nil, "cannot coerce %s to Bool", op.Type().Name())
}

// asBv coerces an expression into Bv(width): booleans select between 1
// and 0.
func (t *InstToExpr) asBv(op *expr.Expr, width uint32) (*expr.Expr, error) {
	if expr.IsBoolType(op.Type()) {
		// On one bit, Select(e != 0, 1, 0) is e itself.
		if width == 1 && op.Kind() == expr.NotEq && isZeroBv(op.Op(1), 1) {
			if inner, ok := op.Op(0).Type().(*expr.BvType); ok && inner.Width() == 1 {
				return op.Op(0), nil
			}
		}
		return t.b.Select(op, t.b.BvLit(1, width), t.b.BvLit(0, width)), nil
	}
	if bt, ok := op.Type().(*expr.BvType); ok {
		if bt.Width() != width {
			return nil, verrors.Internalf("operand width %d does not match expected %d", bt.Width(), width)
		}
		return op, nil
	}
	return nil, verrors.Unsupportedf(nil, "cannot coerce %s to Bv%d", op.Type().Name(), width)
}

// selectOfBits matches Select(c, 1, 0) of the given width and returns c.
func selectOfBits(op *expr.Expr, width uint32) (*expr.Expr, bool) {
	if op.Kind() != expr.Select {
		return nil, false
	}
	one, okOne := op.Op(1).Value().(expr.BvValue)
	if !okOne || one.Width != width || one.V.Int64() != 1 {
		return nil, false
	}
	if !isZeroBv(op.Op(2), width) {
		return nil, false
	}
	return op.Op(0), true
}

func isZeroBv(op *expr.Expr, width uint32) bool {
	v, ok := op.Value().(expr.BvValue)
	return ok && v.Width == width && v.V.Sign() == 0
}

// castResult dispatches into asBool or asBv according to the target type.
func (t *InstToExpr) castResult(op *expr.Expr, ty expr.Type) (*expr.Expr, error) {
	switch target := ty.(type) {
	case *expr.BoolType:
		return t.asBool(op)
	case *expr.BvType:
		return t.asBv(op, target.Width())
	case *expr.FloatType:
		if op.Type() == ty {
			return op, nil
		}
		return nil, verrors.Unsupportedf(nil, "cannot cast %s to %s", op.Type().Name(), ty.Name())
	}
	return nil, verrors.Unsupportedf(nil, "invalid cast result type %s", ty.Name())
}

// assignTo builds the assignment equation, using FEq for floating-typed
// variables.
func (t *InstToExpr) assignTo(variable *expr.Variable, rhs *expr.Expr) *expr.Expr {
	if expr.IsFloatType(variable.Type()) {
		return t.b.FEq(variable.RefExpr(), rhs)
	}
	return t.b.Eq(variable.RefExpr(), rhs)
}

var _ memory.Env = (*InstToExpr)(nil)
