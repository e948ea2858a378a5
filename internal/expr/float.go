package expr

import (
	"math/big"
)

// IEEE-754 binary format parameters. sig counts significand bits including
// the hidden bit; exp is the exponent field width.
type floatFormat struct {
	exp  uint
	sig  uint
	prec FloatPrecision
}

var (
	fmtHalf   = floatFormat{exp: 5, sig: 11, prec: Half}
	fmtSingle = floatFormat{exp: 8, sig: 24, prec: Single}
	fmtDouble = floatFormat{exp: 11, sig: 53, prec: Double}
	fmtQuad   = floatFormat{exp: 15, sig: 113, prec: Quad}
)

func formatOf(prec FloatPrecision) floatFormat {
	switch prec {
	case Half:
		return fmtHalf
	case Single:
		return fmtSingle
	case Double:
		return fmtDouble
	case Quad:
		return fmtQuad
	}
	panic(typeErrorf("invalid floating-point precision %d", prec))
}

func (f floatFormat) bias() int { return (1 << (f.exp - 1)) - 1 }

// emin/emax bound the unbiased exponent of normal numbers, with the value
// normalized as 1.fraction * 2^e.
func (f floatFormat) emin() int { return 1 - f.bias() }
func (f floatFormat) emax() int { return f.bias() }

func (f floatFormat) expMask() *big.Int { return maskFor(uint32(f.exp)) }

type floatClass int

const (
	classZero floatClass = iota
	classSubnormal
	classNormal
	classInf
	classNaN
)

// classify inspects the exponent and fraction fields only.
func classify(v FloatValue) floatClass {
	f := formatOf(v.Prec)
	fracBits := uint(f.sig - 1)
	frac := new(big.Int).And(v.Bits, maskFor(uint32(fracBits)))
	exp := new(big.Int).Rsh(v.Bits, fracBits)
	exp.And(exp, f.expMask())

	switch {
	case exp.Sign() == 0 && frac.Sign() == 0:
		return classZero
	case exp.Sign() == 0:
		return classSubnormal
	case exp.Cmp(f.expMask()) == 0 && frac.Sign() == 0:
		return classInf
	case exp.Cmp(f.expMask()) == 0:
		return classNaN
	}
	return classNormal
}

// floatNaN returns the canonical quiet NaN of the format: exponent all
// ones, most significant fraction bit set, sign clear.
func floatNaN(prec FloatPrecision) FloatValue {
	f := formatOf(prec)
	bits := new(big.Int).Lsh(f.expMask(), f.sig-1)
	bits.SetBit(bits, int(f.sig)-2, 1)
	return FloatValue{Prec: prec, Bits: bits}
}

func floatInf(prec FloatPrecision, negative bool) FloatValue {
	f := formatOf(prec)
	bits := new(big.Int).Lsh(f.expMask(), f.sig-1)
	if negative {
		bits.SetBit(bits, int(f.sig+f.exp)-1, 1)
	}
	return FloatValue{Prec: prec, Bits: bits}
}

func floatZero(prec FloatPrecision, negative bool) FloatValue {
	f := formatOf(prec)
	bits := new(big.Int)
	if negative {
		bits.SetBit(bits, int(f.sig+f.exp)-1, 1)
	}
	return FloatValue{Prec: prec, Bits: bits}
}

// maxFinite is the largest finite magnitude of the format, used when an
// overflow rounds toward zero.
func maxFinite(f floatFormat, negative bool) FloatValue {
	bits := new(big.Int).Lsh(new(big.Int).Sub(f.expMask(), bigOne), f.sig-1)
	bits.Or(bits, maskFor(uint32(f.sig-1)))
	if negative {
		bits.SetBit(bits, int(f.sig+f.exp)-1, 1)
	}
	return FloatValue{Prec: f.prec, Bits: bits}
}

// decodeFloat converts a finite (possibly subnormal or zero) pattern into
// an exact big.Float.
func decodeFloat(v FloatValue) *big.Float {
	f := formatOf(v.Prec)
	fracBits := uint(f.sig - 1)
	frac := new(big.Int).And(v.Bits, maskFor(uint32(fracBits)))
	exp := new(big.Int).Rsh(v.Bits, fracBits)
	exp.And(exp, f.expMask())

	r := new(big.Float).SetPrec(f.sig + 2)
	if exp.Sign() == 0 {
		// Subnormal: fraction * 2^(emin - (sig-1)).
		r.SetInt(frac)
		r.SetMantExp(r, f.emin()-int(fracBits))
	} else {
		// Normal: (2^(sig-1) + fraction) * 2^(e - bias - (sig-1)).
		m := new(big.Int).SetBit(frac, int(fracBits), 1)
		r.SetInt(m)
		e := int(exp.Int64()) - f.bias()
		r.SetMantExp(r, e-int(fracBits))
	}
	if v.signBit() {
		r.Neg(r)
	}
	return r
}

func bigRoundingMode(rm RoundingMode) big.RoundingMode {
	switch rm {
	case RoundNearestTiesToEven:
		return big.ToNearestEven
	case RoundNearestTiesToAway:
		return big.ToNearestAway
	case RoundTowardPositive:
		return big.ToPositiveInf
	case RoundTowardNegative:
		return big.ToNegativeInf
	case RoundTowardZero:
		return big.ToZero
	}
	panic(typeErrorf("invalid rounding mode %d", rm))
}

// encodeFloat rounds a non-zero finite big.Float into the format, handling
// overflow to infinity (or the maximal finite value under directed rounding
// away from the overflow) and gradual underflow.
func encodeFloat(x *big.Float, f floatFormat, rm RoundingMode) *big.Int {
	neg := x.Signbit()
	if x.Sign() == 0 {
		return floatZero(f.prec, neg).Bits
	}

	mode := bigRoundingMode(rm)

	// Round to the target significand width first; MantExp then tells us
	// where the value landed relative to the exponent range.
	r := new(big.Float).SetPrec(f.sig).SetMode(mode).Set(x)
	e := r.MantExp(nil) - 1 // unbiased exponent with 1.f normalization

	if e < f.emin() {
		// Subnormal range: re-round the original value at the reduced
		// precision so no double rounding occurs.
		effPrec := int(f.sig) - (f.emin() - e)
		if effPrec < 1 {
			// Below the smallest subnormal: round to zero or the
			// minimal subnormal depending on direction.
			tiny := new(big.Int).SetInt64(1)
			switch {
			case mode == big.ToPositiveInf && !neg, mode == big.ToNegativeInf && neg:
				bits := tiny
				if neg {
					bits.SetBit(bits, int(f.sig+f.exp)-1, 1)
				}
				return bits
			default:
				return floatZero(f.prec, neg).Bits
			}
		}
		r = new(big.Float).SetPrec(uint(effPrec)).SetMode(mode).Set(x)
		e = r.MantExp(nil) - 1
		if e < f.emin() {
			// Still subnormal after re-rounding: emit the fraction
			// scaled so the field is fraction * 2^(emin-(sig-1)).
			scaled := new(big.Float).SetPrec(f.sig + 2)
			scaled.SetMantExp(r, int(f.sig)-1-f.emin())
			frac, _ := scaled.Int(nil)
			frac.Abs(frac)
			if neg {
				frac.SetBit(frac, int(f.sig+f.exp)-1, 1)
			}
			return frac
		}
		// Rounding promoted the value back to the smallest normal.
	}

	if e > f.emax() {
		switch {
		case mode == big.ToZero,
			mode == big.ToPositiveInf && neg,
			mode == big.ToNegativeInf && !neg:
			return maxFinite(f, neg).Bits
		}
		return floatInf(f.prec, neg).Bits
	}

	// Normal: extract sig bits of mantissa.
	scaled := new(big.Float).SetPrec(f.sig + 2)
	scaled.SetMantExp(r, int(f.sig)-1-e)
	m, _ := scaled.Int(nil)
	m.Abs(m)
	frac := new(big.Int).And(m, maskFor(uint32(f.sig-1)))

	biased := new(big.Int).SetInt64(int64(e + f.bias()))
	bits := new(big.Int).Lsh(biased, f.sig-1)
	bits.Or(bits, frac)
	if neg {
		bits.SetBit(bits, int(f.sig+f.exp)-1, 1)
	}
	return bits
}

// floatArith computes a op b with the given rounding mode, with IEEE
// special-case handling for NaN, infinities and zeros.
func floatArith(kind Kind, a, b FloatValue, rm RoundingMode) FloatValue {
	prec := a.Prec
	f := formatOf(prec)
	ca, cb := classify(a), classify(b)

	if ca == classNaN || cb == classNaN {
		return floatNaN(prec)
	}

	aInf, bInf := ca == classInf, cb == classInf
	aZero, bZero := ca == classZero, cb == classZero
	aNeg, bNeg := a.signBit(), b.signBit()

	switch kind {
	case FAdd, FSub:
		// Treat FSub as FAdd with b negated.
		if kind == FSub {
			bNeg = !bNeg
		}
		if aInf && bInf {
			if aNeg != bNeg {
				return floatNaN(prec)
			}
			return floatInf(prec, aNeg)
		}
		if aInf {
			return floatInf(prec, aNeg)
		}
		if bInf {
			return floatInf(prec, bNeg)
		}
	case FMul:
		if (aInf && bZero) || (aZero && bInf) {
			return floatNaN(prec)
		}
		if aInf || bInf {
			return floatInf(prec, aNeg != bNeg)
		}
		if aZero || bZero {
			return floatZero(prec, aNeg != bNeg)
		}
	case FDiv:
		if (aInf && bInf) || (aZero && bZero) {
			return floatNaN(prec)
		}
		if aInf || bZero {
			return floatInf(prec, aNeg != bNeg)
		}
		if bInf || aZero {
			return floatZero(prec, aNeg != bNeg)
		}
	}

	x, y := decodeFloat(a), decodeFloat(b)
	if kind == FSub {
		y.Neg(y)
	}

	mode := bigRoundingMode(rm)
	z := new(big.Float).SetPrec(f.sig).SetMode(mode)
	switch kind {
	case FAdd, FSub:
		z.Add(x, y)
	case FMul:
		z.Mul(x, y)
	case FDiv:
		z.Quo(x, y)
	default:
		panic(typeErrorf("floatArith called with non-arithmetic kind %s", kind))
	}

	if z.Sign() == 0 {
		// An exact zero sum keeps the IEEE sign rule: +x + -x is +0
		// except under round-toward-negative.
		neg := rm == RoundTowardNegative
		if kind == FMul || kind == FDiv {
			neg = aNeg != bNeg
		}
		return floatZero(prec, neg)
	}
	return FloatValue{Prec: prec, Bits: encodeFloat(z, f, rm)}
}

// floatCompare evaluates a core (non-NaN-aware) comparison on two finite or
// infinite patterns. NaN handling happens in the builder, which never folds
// a core comparison when an operand is NaN.
func floatCompare(kind Kind, a, b FloatValue) bool {
	ca, cb := classify(a), classify(b)

	// Totally ordered once NaN is excluded: -Inf < finite < +Inf, with
	// -0 == +0.
	rank := func(v FloatValue, c floatClass) *big.Float {
		if c == classInf {
			inf := new(big.Float).SetInf(v.signBit())
			return inf
		}
		return decodeFloat(v)
	}
	c := rank(a, ca).Cmp(rank(b, cb))

	switch kind {
	case FEq:
		return c == 0
	case FGt:
		return c > 0
	case FGtEq:
		return c >= 0
	case FLt:
		return c < 0
	case FLtEq:
		return c <= 0
	}
	panic(typeErrorf("floatCompare called with non-compare kind %s", kind))
}
