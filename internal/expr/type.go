package expr

import "strconv"

// Type is a semantic type interned in a Context. Two types are equal iff
// they are the same pointer; interning guarantees this holds exactly when
// they are structurally equal within one context. Types from different
// contexts never compare equal.
type Type interface {
	Context() *Context
	Name() string

	isType()
}

// FloatPrecision selects one of the four IEEE-754 binary formats.
type FloatPrecision int

const (
	Half   FloatPrecision = 16
	Single FloatPrecision = 32
	Double FloatPrecision = 64
	Quad   FloatPrecision = 128
)

// BoolType is the type of logical truth values.
type BoolType struct {
	ctx *Context
}

func (t *BoolType) Context() *Context { return t.ctx }
func (t *BoolType) Name() string      { return "Bool" }
func (t *BoolType) isType()           {}

// BvType is a fixed-width bitvector type. Width is always positive.
type BvType struct {
	ctx   *Context
	width uint32
}

func (t *BvType) Context() *Context { return t.ctx }
func (t *BvType) Width() uint32     { return t.width }
func (t *BvType) Name() string      { return "Bv" + strconv.FormatUint(uint64(t.width), 10) }
func (t *BvType) isType()           {}

// IntType is the type of unbounded mathematical integers.
type IntType struct {
	ctx *Context
}

func (t *IntType) Context() *Context { return t.ctx }
func (t *IntType) Name() string      { return "Int" }
func (t *IntType) isType()           {}

// RealType is the type of mathematical reals.
type RealType struct {
	ctx *Context
}

func (t *RealType) Context() *Context { return t.ctx }
func (t *RealType) Name() string      { return "Real" }
func (t *RealType) isType()           {}

// FloatType is an IEEE-754 floating-point type.
type FloatType struct {
	ctx  *Context
	prec FloatPrecision
}

func (t *FloatType) Context() *Context         { return t.ctx }
func (t *FloatType) Precision() FloatPrecision { return t.prec }
func (t *FloatType) Name() string              { return "Float" + strconv.Itoa(int(t.prec)) }
func (t *FloatType) isType()                   {}

// ArrayType maps an index type to an element type. Both component types
// belong to the same context as the array type itself.
type ArrayType struct {
	ctx   *Context
	index Type
	elem  Type
}

func (t *ArrayType) Context() *Context { return t.ctx }
func (t *ArrayType) IndexType() Type   { return t.index }
func (t *ArrayType) ElementType() Type { return t.elem }
func (t *ArrayType) Name() string      { return "[" + t.index.Name() + " -> " + t.elem.Name() + "]" }
func (t *ArrayType) isType()           {}

// IsBoolType reports whether t is the boolean type.
func IsBoolType(t Type) bool {
	_, ok := t.(*BoolType)
	return ok
}

// IsBvType reports whether t is a bitvector type.
func IsBvType(t Type) bool {
	_, ok := t.(*BvType)
	return ok
}

// IsFloatType reports whether t is a floating-point type.
func IsFloatType(t Type) bool {
	_, ok := t.(*FloatType)
	return ok
}

// IsArrayType reports whether t is an array type.
func IsArrayType(t Type) bool {
	_, ok := t.(*ArrayType)
	return ok
}
