package expr

import (
	"strconv"
	"strings"
)

// Kind discriminates expression nodes.
type Kind int

const (
	// Nullary
	Undef Kind = iota
	Literal
	VarRef

	// Unary
	Not
	ZExt
	SExt
	Extract
	FIsNan
	FIsInf

	// Binary bitvector arithmetic
	Add
	Sub
	Mul
	SDiv
	UDiv
	SRem
	URem
	Shl
	LShr
	AShr
	BAnd
	BOr
	BXor

	// Logic
	And
	Or
	Xor
	Imply

	// Compare
	Eq
	NotEq
	SLt
	SLtEq
	SGt
	SGtEq
	ULt
	ULtEq
	UGt
	UGtEq

	// Floating-point arithmetic
	FAdd
	FSub
	FMul
	FDiv

	// Floating-point compare
	FEq
	FGt
	FGtEq
	FLt
	FLtEq

	// Ternary
	Select
	ArrayRead
	ArrayWrite
)

var kindNames = [...]string{
	Undef:      "Undef",
	Literal:    "Literal",
	VarRef:     "VarRef",
	Not:        "Not",
	ZExt:       "ZExt",
	SExt:       "SExt",
	Extract:    "Extract",
	FIsNan:     "FIsNan",
	FIsInf:     "FIsInf",
	Add:        "Add",
	Sub:        "Sub",
	Mul:        "Mul",
	SDiv:       "SDiv",
	UDiv:       "UDiv",
	SRem:       "SRem",
	URem:       "URem",
	Shl:        "Shl",
	LShr:       "LShr",
	AShr:       "AShr",
	BAnd:       "BAnd",
	BOr:        "BOr",
	BXor:       "BXor",
	And:        "And",
	Or:         "Or",
	Xor:        "Xor",
	Imply:      "Imply",
	Eq:         "Eq",
	NotEq:      "NotEq",
	SLt:        "SLt",
	SLtEq:      "SLtEq",
	SGt:        "SGt",
	SGtEq:      "SGtEq",
	ULt:        "ULt",
	ULtEq:      "ULtEq",
	UGt:        "UGt",
	UGtEq:      "UGtEq",
	FAdd:       "FAdd",
	FSub:       "FSub",
	FMul:       "FMul",
	FDiv:       "FDiv",
	FEq:        "FEq",
	FGt:        "FGt",
	FGtEq:      "FGtEq",
	FLt:        "FLt",
	FLtEq:      "FLtEq",
	Select:     "Select",
	ArrayRead:  "ArrayRead",
	ArrayWrite: "ArrayWrite",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// RoundingMode selects an IEEE-754 rounding direction for floating-point
// arithmetic nodes.
type RoundingMode int

const (
	RoundNearestTiesToEven RoundingMode = iota
	RoundNearestTiesToAway
	RoundTowardPositive
	RoundTowardNegative
	RoundTowardZero
)

var rmNames = [...]string{
	RoundNearestTiesToEven: "RNE",
	RoundNearestTiesToAway: "RNA",
	RoundTowardPositive:    "RTP",
	RoundTowardNegative:    "RTN",
	RoundTowardZero:        "RTZ",
}

func (rm RoundingMode) String() string {
	if int(rm) < len(rmNames) {
		return rmNames[rm]
	}
	return "RoundingMode(" + strconv.Itoa(int(rm)) + ")"
}

// payload is the per-kind extra data baked into the hash-cons key.
type payload interface {
	key() string
}

type varPayload struct{ v *Variable }

func (p varPayload) key() string { return "v:" + p.v.name }

type litPayload struct{ v Value }

func (p litPayload) key() string { return "l:" + p.v.litKey() }

type extractPayload struct {
	offset uint32
	width  uint32
}

func (p extractPayload) key() string {
	return "x:" + strconv.FormatUint(uint64(p.offset), 10) + ":" + strconv.FormatUint(uint64(p.width), 10)
}

type rmPayload struct{ rm RoundingMode }

func (p rmPayload) key() string { return "r:" + strconv.Itoa(int(p.rm)) }

type undefPayload struct{}

func (undefPayload) key() string { return "u" }

// Expr is an immutable, hash-consed expression node. Nodes are created only
// through a Builder; structurally equal sub-DAGs share a single allocation,
// so pointer comparison is structural comparison.
type Expr struct {
	id   uint64
	kind Kind
	typ  Type
	ops  []*Expr
	pl   payload
}

// Kind returns the node's kind tag.
func (e *Expr) Kind() Kind { return e.kind }

// Type returns the node's result type.
func (e *Expr) Type() Type { return e.typ }

// Context returns the owning context, recovered through the type.
func (e *Expr) Context() *Context { return e.typ.Context() }

// NumOps returns the operand count.
func (e *Expr) NumOps() int { return len(e.ops) }

// Op returns the i-th operand.
func (e *Expr) Op(i int) *Expr { return e.ops[i] }

// Ops returns the operand list. The caller must not mutate it.
func (e *Expr) Ops() []*Expr { return e.ops }

// Value returns the literal payload, or nil if the node is not a literal.
func (e *Expr) Value() Value {
	if e.kind != Literal {
		return nil
	}
	return e.pl.(litPayload).v
}

// Variable returns the referenced variable, or nil if the node is not a
// variable reference.
func (e *Expr) Variable() *Variable {
	if e.kind != VarRef {
		return nil
	}
	return e.pl.(varPayload).v
}

// ExtractOffset returns the bit offset of an Extract node.
func (e *Expr) ExtractOffset() uint32 { return e.pl.(extractPayload).offset }

// ExtractWidth returns the bit width of an Extract node.
func (e *Expr) ExtractWidth() uint32 { return e.pl.(extractPayload).width }

// RoundingMode returns the rounding mode of a floating-point arithmetic node.
func (e *Expr) RoundingMode() RoundingMode { return e.pl.(rmPayload).rm }

// IsTrue reports whether e is the boolean literal true.
func (e *Expr) IsTrue() bool {
	b, ok := e.Value().(BoolValue)
	return ok && bool(b)
}

// IsFalse reports whether e is the boolean literal false.
func (e *Expr) IsFalse() bool {
	b, ok := e.Value().(BoolValue)
	return ok && !bool(b)
}

func (e *Expr) String() string {
	switch e.kind {
	case Undef:
		return "undef:" + e.typ.Name()
	case Literal:
		return e.Value().String()
	case VarRef:
		return e.Variable().Name()
	}
	var sb strings.Builder
	sb.WriteString(e.kind.String())
	switch e.kind {
	case Extract:
		p := e.pl.(extractPayload)
		sb.WriteString("[")
		sb.WriteString(strconv.FormatUint(uint64(p.offset), 10))
		sb.WriteString(",")
		sb.WriteString(strconv.FormatUint(uint64(p.width), 10))
		sb.WriteString("]")
	case FAdd, FSub, FMul, FDiv:
		sb.WriteString("[")
		sb.WriteString(e.RoundingMode().String())
		sb.WriteString("]")
	}
	sb.WriteByte('(')
	for i, op := range e.ops {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(op.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

// Variable is a named, typed symbol interned in a context. Identity is
// object identity; no two variables share a name within one context.
type Variable struct {
	name string
	typ  Type
	ref  *Expr
}

// Name returns the variable's unique name.
func (v *Variable) Name() string { return v.name }

// Type returns the variable's type.
func (v *Variable) Type() Type { return v.typ }

// Context returns the owning context.
func (v *Variable) Context() *Context { return v.typ.Context() }

// RefExpr returns the canonical reference expression of the variable.
func (v *Variable) RefExpr() *Expr { return v.ref }

func (v *Variable) String() string { return v.name + " : " + v.typ.Name() }

// VariableAssignment pairs a variable with an expression of the same type.
// It represents one symbolic update along a control-flow edge.
type VariableAssignment struct {
	Variable *Variable
	Value    *Expr
}

// NewVariableAssignment builds an assignment, enforcing that the value's
// type matches the variable's type.
func NewVariableAssignment(v *Variable, value *Expr) VariableAssignment {
	if v.Type() != value.Type() {
		panic(typeErrorf("assignment to %s from expression of type %s", v, value.Type().Name()))
	}
	return VariableAssignment{Variable: v, Value: value}
}

func (va VariableAssignment) String() string {
	return va.Variable.Name() + " := " + va.Value.String()
}
