// Package memory provides the memory models the instruction translator
// delegates pointer operations to.
package memory

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"verica/internal/expr"
)

// PointerWidth is the bit width pointers are modeled with.
const PointerWidth = 32

// Env is the slice of the translator a memory model is allowed to see:
// expression construction, operand translation and variable registration.
type Env interface {
	Builder() *expr.Builder
	// Operand translates an IR value into an expression.
	Operand(v value.Value) (*expr.Expr, error)
	// VariableFor returns the variable registered for a named IR value.
	VariableFor(v value.Value) (*expr.Variable, error)
	// DefineVariable registers a synthetic variable owned by the model.
	DefineVariable(name string, t expr.Type) (*expr.Variable, error)
}

// Model encodes loads, stores and address computations. Handle methods
// return the transition formula for the instruction, exactly like the
// translator's own per-instruction encodings.
type Model interface {
	// TypeFromPointer maps a pointer-typed IR type onto a semantic type.
	TypeFromPointer(t types.Type, ctx *expr.Context) (expr.Type, error)

	// Initialize is called once per function, before any translation,
	// so the model can register its synthetic variables.
	Initialize(fn *ir.Func, env Env) error

	// EntryConstraints returns formulas that hold at function entry,
	// e.g. global initializer bindings.
	EntryConstraints(env Env) ([]*expr.Expr, error)

	// NullPointer returns the literal for the null pointer.
	NullPointer(env Env) *expr.Expr

	// GlobalRef translates a global used as a pointer operand.
	GlobalRef(g *ir.Global, env Env) (*expr.Expr, error)

	HandleLoad(load *ir.InstLoad, env Env) (*expr.Expr, error)
	HandleStore(store *ir.InstStore, env Env) (*expr.Expr, error)
	HandleAlloca(alloca *ir.InstAlloca, env Env) (*expr.Expr, error)
	HandleGetElementPtr(gep *ir.InstGetElementPtr, operands []*expr.Expr, env Env) (*expr.Expr, error)
	HandlePointerCast(inst ir.Instruction, op *expr.Expr, env Env) (*expr.Expr, error)
	HandleCall(call *ir.InstCall, env Env) (*expr.Expr, error)
}

// Versioned is implemented by models that thread versioned state (memory
// arrays, promoted globals) through SSA-style version variables. The path
// search uses it to collapse versions defined on skipped branches onto
// their predecessors.
type Versioned interface {
	PreviousVersion(v *expr.Variable) (*expr.Variable, bool)
}

// New returns the model registered under name ("simple" or "flat").
func New(name string) (Model, bool) {
	switch name {
	case "simple":
		return NewSimpleModel(), true
	case "flat":
		return NewFlatModel(), true
	}
	return nil, false
}
