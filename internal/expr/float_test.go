package expr

import (
	"math"
	"math/big"
	"testing"
)

func f64Lit(b *Builder, f float64) *Expr {
	return b.FloatLitValue(FloatValueFromFloat64(Double, f))
}

func f32Lit(b *Builder, f float32) *Expr {
	return b.FloatLitValue(FloatValueFromFloat64(Single, float64(f)))
}

func TestFloatLiteralRoundTrip(t *testing.T) {
	b := newTestBuilder(t)

	tests := []float64{0, 1, -1, 0.5, -0.5, 1.5, 3.1415926535, 1e300, -1e-300}
	for _, f := range tests {
		lit := f64Lit(b, f)
		v := lit.Value().(FloatValue)
		if v.Float64() != f {
			t.Errorf("round trip of %g gave %g", f, v.Float64())
		}
		if v.Bits.Uint64() != math.Float64bits(f) {
			t.Errorf("bits of %g: got %#x, want %#x", f, v.Bits.Uint64(), math.Float64bits(f))
		}
	}
}

func TestSingleLiteralRoundTrip(t *testing.T) {
	b := newTestBuilder(t)

	tests := []float32{0, 1, -2.5, 0.1, 3.4e38, 1e-38}
	for _, f := range tests {
		lit := f32Lit(b, f)
		v := lit.Value().(FloatValue)
		if uint32(v.Bits.Uint64()) != math.Float32bits(f) {
			t.Errorf("bits of %g: got %#x, want %#x", f, uint32(v.Bits.Uint64()), math.Float32bits(f))
		}
	}
}

func TestFloatArithmeticFolding(t *testing.T) {
	b := newTestBuilder(t)

	tests := []struct {
		name string
		got  *Expr
		want float64
	}{
		{"add", b.FAdd(f64Lit(b, 1), f64Lit(b, 2), RoundNearestTiesToEven), 3},
		{"sub", b.FSub(f64Lit(b, 1), f64Lit(b, 2.5), RoundNearestTiesToEven), -1.5},
		{"mul", b.FMul(f64Lit(b, 1.5), f64Lit(b, 4), RoundNearestTiesToEven), 6},
		{"div", b.FDiv(f64Lit(b, 1), f64Lit(b, 4), RoundNearestTiesToEven), 0.25},
		{"inexact add", b.FAdd(f64Lit(b, 0.1), f64Lit(b, 0.2), RoundNearestTiesToEven), 0.30000000000000004},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := tt.got.Value().(FloatValue)
			if !ok {
				t.Fatalf("did not fold: %s", tt.got)
			}
			if v.Float64() != tt.want {
				t.Errorf("got %g, want %g", v.Float64(), tt.want)
			}
		})
	}
}

func TestSingleArithmeticMatchesHardware(t *testing.T) {
	b := newTestBuilder(t)

	pairs := []struct{ x, y float32 }{
		{0.1, 0.2},
		{1e38, 1e38},
		{1.5, -2.25},
		{3.4e38, 0.5e38},
	}
	for _, p := range pairs {
		got := b.FAdd(f32Lit(b, p.x), f32Lit(b, p.y), RoundNearestTiesToEven)
		v, ok := got.Value().(FloatValue)
		if !ok {
			t.Fatalf("did not fold: %s", got)
		}
		want := p.x + p.y
		if uint32(v.Bits.Uint64()) != math.Float32bits(want) {
			t.Errorf("%g + %g: got bits %#x, want %#x", p.x, p.y,
				uint32(v.Bits.Uint64()), math.Float32bits(want))
		}
	}
}

func TestNaNPropagation(t *testing.T) {
	b := newTestBuilder(t)
	nan := b.FloatLitValue(FloatNaN(Double))

	sum := b.FAdd(nan, f64Lit(b, 1), RoundNearestTiesToEven)
	v, ok := sum.Value().(FloatValue)
	if !ok || !v.IsNaN() {
		t.Errorf("NaN + 1 = %s, want NaN", sum)
	}

	// Inf - Inf and 0/0 are NaN as well.
	inf := b.FloatLitValue(FloatInf(Double, false))
	if d := b.FSub(inf, inf, RoundNearestTiesToEven); !d.Value().(FloatValue).IsNaN() {
		t.Errorf("Inf - Inf = %s, want NaN", d)
	}
	if q := b.FDiv(f64Lit(b, 0), f64Lit(b, 0), RoundNearestTiesToEven); !q.Value().(FloatValue).IsNaN() {
		t.Errorf("0/0 = %s, want NaN", q)
	}
	if q := b.FDiv(f64Lit(b, 1), f64Lit(b, 0), RoundNearestTiesToEven); !q.Value().(FloatValue).IsInf() {
		t.Errorf("1/0 = %s, want Inf", q)
	}
}

func TestFloatClassifierFolds(t *testing.T) {
	b := newTestBuilder(t)

	if !b.FIsNan(b.FloatLitValue(FloatNaN(Single))).IsTrue() {
		t.Error("FIsNan(NaN) != true")
	}
	if !b.FIsNan(f32Lit(b, 1)).IsFalse() {
		t.Error("FIsNan(1.0) != false")
	}
	if !b.FIsInf(b.FloatLitValue(FloatInf(Single, true))).IsTrue() {
		t.Error("FIsInf(-Inf) != true")
	}
	if !b.FIsInf(f32Lit(b, 1)).IsFalse() {
		t.Error("FIsInf(1.0) != false")
	}
}

func TestFloatCompareFolding(t *testing.T) {
	b := newTestBuilder(t)
	nan := b.FloatLitValue(FloatNaN(Double))

	if !b.FEq(f64Lit(b, 1), f64Lit(b, 1)).IsTrue() {
		t.Error("1 == 1 is false")
	}
	if !b.FLt(f64Lit(b, 1), f64Lit(b, 2)).IsTrue() {
		t.Error("1 < 2 is false")
	}
	// Core comparisons are false whenever an operand is NaN.
	if !b.FEq(nan, nan).IsFalse() {
		t.Error("NaN == NaN is not false")
	}
	if !b.FLtEq(nan, f64Lit(b, 1)).IsFalse() {
		t.Error("NaN <= 1 is not false")
	}
	// Negative and positive zero compare equal.
	if !b.FEq(f64Lit(b, math.Copysign(0, -1)), f64Lit(b, 0)).IsTrue() {
		t.Error("-0 == +0 is false")
	}
}

func TestHalfArithmetic(t *testing.T) {
	b := newTestBuilder(t)
	one := b.FloatLit(Half, big.NewInt(0x3c00))
	two := b.FAdd(one, one, RoundNearestTiesToEven)

	v, ok := two.Value().(FloatValue)
	if !ok {
		t.Fatalf("did not fold: %s", two)
	}
	if v.Bits.Uint64() != 0x4000 {
		t.Errorf("half 1+1: got bits %#x, want 0x4000", v.Bits.Uint64())
	}

	// Max finite half is 65504; doubling it overflows to infinity under
	// round-to-nearest but saturates under round-toward-zero.
	maxHalf := b.FloatLit(Half, big.NewInt(0x7bff))
	inf := b.FAdd(maxHalf, maxHalf, RoundNearestTiesToEven)
	if !inf.Value().(FloatValue).IsInf() {
		t.Errorf("half max+max RNE = %s, want Inf", inf)
	}
	sat := b.FAdd(maxHalf, maxHalf, RoundTowardZero)
	if got := sat.Value().(FloatValue).Bits.Uint64(); got != 0x7bff {
		t.Errorf("half max+max RTZ = %#x, want 0x7bff", got)
	}
}

func TestRoundingModePropagation(t *testing.T) {
	b := newTestBuilder(t)
	ctx := b.Context()
	x, _ := ctx.CreateVariable("x", ctx.FloatTy(Double))

	// Symbolic nodes carry their rounding mode.
	div := b.FDiv(x.RefExpr(), f64Lit(b, 2), RoundTowardNegative)
	if div.RoundingMode() != RoundTowardNegative {
		t.Errorf("rounding mode lost: %s", div.RoundingMode())
	}
	// Nodes differing only in rounding mode are distinct.
	if div == b.FDiv(x.RefExpr(), f64Lit(b, 2), RoundTowardZero) {
		t.Error("nodes with different rounding modes interned together")
	}

	// Exactly representable division folds identically in every mode.
	for _, rm := range []RoundingMode{
		RoundNearestTiesToEven, RoundNearestTiesToAway,
		RoundTowardPositive, RoundTowardNegative, RoundTowardZero,
	} {
		q := b.FDiv(f64Lit(b, 1), f64Lit(b, 4), rm)
		if v := q.Value().(FloatValue); v.Float64() != 0.25 {
			t.Errorf("1/4 under %s = %g", rm, v.Float64())
		}
	}

	// An inexact division differs between toward-zero and toward-positive
	// in the last bit.
	rtz := b.FDiv(f64Lit(b, 1), f64Lit(b, 3), RoundTowardZero).Value().(FloatValue)
	rtp := b.FDiv(f64Lit(b, 1), f64Lit(b, 3), RoundTowardPositive).Value().(FloatValue)
	if rtz.Bits.Cmp(rtp.Bits) == 0 {
		t.Error("1/3 rounds identically toward zero and toward positive")
	}
	if new(big.Int).Sub(rtp.Bits, rtz.Bits).Int64() != 1 {
		t.Errorf("1/3 RTP - RTZ = %s ulps, want 1", new(big.Int).Sub(rtp.Bits, rtz.Bits))
	}
}
