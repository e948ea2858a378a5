package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// Context interns every type, variable and expression node used during one
// verification job. It is the unique allocation arena for all of them: two
// structurally equal entities created through the same context share one
// allocation, so identity comparison is equivalent to structural comparison.
//
// A context must only be used from a single goroutine.
type Context struct {
	boolTy BoolType
	intTy  IntType
	realTy RealType

	bvTys    map[uint32]*BvType
	floatTys map[FloatPrecision]*FloatType
	arrayTys map[string]*ArrayType

	vars  map[string]*Variable
	exprs map[string]*Expr

	nextID uint64
}

// NewContext creates an empty context.
func NewContext() *Context {
	ctx := &Context{
		bvTys:    make(map[uint32]*BvType),
		floatTys: make(map[FloatPrecision]*FloatType),
		arrayTys: make(map[string]*ArrayType),
		vars:     make(map[string]*Variable),
		exprs:    make(map[string]*Expr),
	}
	ctx.boolTy.ctx = ctx
	ctx.intTy.ctx = ctx
	ctx.realTy.ctx = ctx
	return ctx
}

// BoolTy returns the boolean type of this context.
func (ctx *Context) BoolTy() *BoolType { return &ctx.boolTy }

// IntTy returns the mathematical integer type of this context.
func (ctx *Context) IntTy() *IntType { return &ctx.intTy }

// RealTy returns the real type of this context.
func (ctx *Context) RealTy() *RealType { return &ctx.realTy }

// BvTy returns the interned bitvector type of the given width.
// The width must be positive.
func (ctx *Context) BvTy(width uint32) *BvType {
	if width == 0 {
		panic(typeErrorf("bitvector width must be positive"))
	}
	if t, ok := ctx.bvTys[width]; ok {
		return t
	}
	t := &BvType{ctx: ctx, width: width}
	ctx.bvTys[width] = t
	return t
}

// FloatTy returns the interned floating-point type of the given precision.
func (ctx *Context) FloatTy(prec FloatPrecision) *FloatType {
	switch prec {
	case Half, Single, Double, Quad:
	default:
		panic(typeErrorf("invalid floating-point precision %d", prec))
	}
	if t, ok := ctx.floatTys[prec]; ok {
		return t
	}
	t := &FloatType{ctx: ctx, prec: prec}
	ctx.floatTys[prec] = t
	return t
}

// ArrayTy returns the interned array type with the given index and element
// types. Both must belong to this context.
func (ctx *Context) ArrayTy(index, elem Type) *ArrayType {
	if index.Context() != ctx || elem.Context() != ctx {
		panic(typeErrorf("array component types belong to a foreign context"))
	}
	key := index.Name() + "->" + elem.Name()
	if t, ok := ctx.arrayTys[key]; ok {
		return t
	}
	t := &ArrayType{ctx: ctx, index: index, elem: elem}
	ctx.arrayTys[key] = t
	return t
}

// CreateVariable interns a named, typed symbol. The name must be unique
// within the context; a second variable with the same name is rejected with
// ErrDuplicateName. The variable's canonical reference expression is created
// at the moment of interning.
func (ctx *Context) CreateVariable(name string, typ Type) (*Variable, error) {
	if typ.Context() != ctx {
		panic(typeErrorf("variable type belongs to a foreign context"))
	}
	if _, ok := ctx.vars[name]; ok {
		return nil, &DuplicateNameError{Name: name}
	}
	v := &Variable{name: name, typ: typ}
	v.ref = ctx.intern(VarRef, typ, nil, varPayload{v})
	ctx.vars[name] = v
	return v, nil
}

// LookupVariable returns the variable interned under name, or nil.
func (ctx *Context) LookupVariable(name string) *Variable {
	return ctx.vars[name]
}

// NumExprs returns how many distinct expression nodes the context holds.
func (ctx *Context) NumExprs() int { return len(ctx.exprs) }

// intern returns the node with the given shape, allocating it on first use.
// Callers outside this package must go through a Builder; intern performs no
// type checking of its own.
func (ctx *Context) intern(kind Kind, typ Type, ops []*Expr, pl payload) *Expr {
	if typ.Context() != ctx {
		panic(typeErrorf("expression type belongs to a foreign context"))
	}
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(int(kind)))
	if pl != nil {
		sb.WriteByte('#')
		sb.WriteString(pl.key())
	}
	for _, op := range ops {
		if op.typ.Context() != ctx {
			panic(typeErrorf("operand belongs to a foreign context"))
		}
		sb.WriteByte('|')
		sb.WriteString(strconv.FormatUint(op.id, 36))
	}
	key := sb.String()
	if e, ok := ctx.exprs[key]; ok {
		return e
	}
	ctx.nextID++
	e := &Expr{id: ctx.nextID, kind: kind, typ: typ, ops: ops, pl: pl}
	ctx.exprs[key] = e
	return e
}

// DuplicateNameError reports an attempt to intern a second variable under an
// already-taken name.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("variable name %q already exists in this context", e.Name)
}

// TypeError is the panic value raised on a builder invariant violation.
// Such violations are programmer errors and are never recovered inside the
// core.
type TypeError struct {
	Message string
}

func (e *TypeError) Error() string { return "type error: " + e.Message }

func typeErrorf(format string, args ...interface{}) *TypeError {
	return &TypeError{Message: fmt.Sprintf(format, args...)}
}
