package memory

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"

	"verica/internal/expr"
)

// SimpleModel havocs memory: loads leave their target variable
// unconstrained, stores and address computations contribute nothing.
// It is sound for safety ("unknown value" over-approximates any store)
// and useless for programs whose property depends on the heap.
type SimpleModel struct {
	globals map[*ir.Global]*expr.Variable
}

// NewSimpleModel returns the havoc model.
func NewSimpleModel() *SimpleModel {
	return &SimpleModel{globals: make(map[*ir.Global]*expr.Variable)}
}

func (m *SimpleModel) TypeFromPointer(t types.Type, ctx *expr.Context) (expr.Type, error) {
	return ctx.BvTy(PointerWidth), nil
}

func (m *SimpleModel) Initialize(fn *ir.Func, env Env) error { return nil }

func (m *SimpleModel) EntryConstraints(env Env) ([]*expr.Expr, error) { return nil, nil }

func (m *SimpleModel) NullPointer(env Env) *expr.Expr {
	return env.Builder().BvLit(0, PointerWidth)
}

func (m *SimpleModel) GlobalRef(g *ir.Global, env Env) (*expr.Expr, error) {
	// The address is an opaque, unconstrained pointer value.
	if v, ok := m.globals[g]; ok {
		return v.RefExpr(), nil
	}
	v, err := env.DefineVariable("gptr."+g.Name(), env.Builder().Context().BvTy(PointerWidth))
	if err != nil {
		return nil, err
	}
	m.globals[g] = v
	return v.RefExpr(), nil
}

func (m *SimpleModel) HandleLoad(load *ir.InstLoad, env Env) (*expr.Expr, error) {
	// The loaded variable stays free.
	return env.Builder().True(), nil
}

func (m *SimpleModel) HandleStore(store *ir.InstStore, env Env) (*expr.Expr, error) {
	return env.Builder().True(), nil
}

func (m *SimpleModel) HandleAlloca(alloca *ir.InstAlloca, env Env) (*expr.Expr, error) {
	return env.Builder().True(), nil
}

func (m *SimpleModel) HandleGetElementPtr(gep *ir.InstGetElementPtr, operands []*expr.Expr, env Env) (*expr.Expr, error) {
	return env.Builder().True(), nil
}

func (m *SimpleModel) HandlePointerCast(inst ir.Instruction, op *expr.Expr, env Env) (*expr.Expr, error) {
	return env.Builder().True(), nil
}

func (m *SimpleModel) HandleCall(call *ir.InstCall, env Env) (*expr.Expr, error) {
	return env.Builder().True(), nil
}

var _ Model = (*SimpleModel)(nil)
