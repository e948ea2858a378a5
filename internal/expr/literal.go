package expr

import (
	"fmt"
	"math"
	"math/big"

	"github.com/mewmew/float/binary16"
)

// Value is a literal payload. The concrete types are BoolValue, BvValue,
// IntValue and FloatValue.
type Value interface {
	litKey() string
	String() string
}

// BoolValue is a boolean literal value.
type BoolValue bool

func (v BoolValue) litKey() string { return fmt.Sprintf("b%t", bool(v)) }

func (v BoolValue) String() string {
	if v {
		return "true"
	}
	return "false"
}

// BvValue is a fixed-width bitvector literal. The pattern is kept in
// canonical unsigned form: 0 <= V < 2^Width.
type BvValue struct {
	Width uint32
	V     *big.Int
}

// NewBvValue builds a canonical bitvector value, wrapping v modulo 2^width.
func NewBvValue(width uint32, v *big.Int) BvValue {
	return BvValue{Width: width, V: toUnsigned(v, width)}
}

// Uint64 returns the low 64 bits of the pattern.
func (v BvValue) Uint64() uint64 { return v.V.Uint64() }

// Signed returns the two's-complement interpretation of the pattern.
func (v BvValue) Signed() *big.Int { return toSigned(v.V, v.Width) }

func (v BvValue) litKey() string { return fmt.Sprintf("i%d:%s", v.Width, v.V.Text(16)) }

func (v BvValue) String() string { return v.Signed().String() + ":Bv" + fmt.Sprint(v.Width) }

// IntValue is an unbounded mathematical integer literal.
type IntValue struct {
	V *big.Int
}

func (v IntValue) litKey() string { return "n:" + v.V.Text(16) }
func (v IntValue) String() string { return v.V.String() + ":Int" }

// FloatValue is an IEEE-754 literal kept as its raw bit pattern.
type FloatValue struct {
	Prec FloatPrecision
	Bits *big.Int
}

// NewFloatValue builds a float literal from raw bits of the given format.
func NewFloatValue(prec FloatPrecision, bits *big.Int) FloatValue {
	return FloatValue{Prec: prec, Bits: toUnsigned(bits, uint32(prec))}
}

// FloatValueFromFloat64 encodes a Go float64 into the given format with
// round-to-nearest-even.
func FloatValueFromFloat64(prec FloatPrecision, f float64) FloatValue {
	if prec == Double {
		return NewFloatValue(Double, new(big.Int).SetUint64(math.Float64bits(f)))
	}
	if math.IsNaN(f) {
		return floatNaN(prec)
	}
	if math.IsInf(f, 0) {
		return floatInf(prec, f < 0)
	}
	bf := new(big.Float).SetFloat64(f)
	bits := encodeFloat(bf, formatOf(prec), RoundNearestTiesToEven)
	return NewFloatValue(prec, bits)
}

// FloatNaN returns the canonical quiet NaN literal value of the format.
func FloatNaN(prec FloatPrecision) FloatValue { return floatNaN(prec) }

// FloatInf returns the infinity literal value of the format.
func FloatInf(prec FloatPrecision, negative bool) FloatValue { return floatInf(prec, negative) }

// IsNaN reports whether the pattern is a NaN of its format.
func (v FloatValue) IsNaN() bool { return classify(v) == classNaN }

// IsInf reports whether the pattern is an infinity of its format.
func (v FloatValue) IsInf() bool { return classify(v) == classInf }

// Float64 returns the nearest float64 to the encoded value. NaN patterns
// map to a float64 NaN.
func (v FloatValue) Float64() float64 {
	switch v.Prec {
	case Half:
		f32, _ := binary16.NewFromBits(uint16(v.Bits.Uint64())).Float32()
		return float64(f32)
	case Single:
		return float64(math.Float32frombits(uint32(v.Bits.Uint64())))
	case Double:
		return math.Float64frombits(v.Bits.Uint64())
	default:
		switch classify(v) {
		case classNaN:
			return math.NaN()
		case classInf:
			if v.signBit() {
				return math.Inf(-1)
			}
			return math.Inf(1)
		}
		f, _ := decodeFloat(v).Float64()
		return f
	}
}

func (v FloatValue) signBit() bool {
	return v.Bits.Bit(int(v.Prec)-1) == 1
}

func (v FloatValue) litKey() string { return fmt.Sprintf("f%d:%s", v.Prec, v.Bits.Text(16)) }

func (v FloatValue) String() string {
	switch classify(v) {
	case classNaN:
		return "NaN:Float" + fmt.Sprint(int(v.Prec))
	case classInf:
		sign := "+"
		if v.signBit() {
			sign = "-"
		}
		return sign + "Inf:Float" + fmt.Sprint(int(v.Prec))
	}
	if v.Prec == Quad {
		return "0x" + v.Bits.Text(16) + ":Float128"
	}
	return fmt.Sprintf("%g:Float%d", v.Float64(), int(v.Prec))
}
