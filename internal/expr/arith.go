package expr

import "math/big"

// Bit-exact bitvector arithmetic on canonical unsigned patterns. Signed
// operators reinterpret the pattern in two's complement and wrap the result
// back into canonical form.

var bigOne = big.NewInt(1)

func maskFor(width uint32) *big.Int {
	m := new(big.Int).Lsh(bigOne, uint(width))
	return m.Sub(m, bigOne)
}

// toUnsigned reduces v modulo 2^width into [0, 2^width).
func toUnsigned(v *big.Int, width uint32) *big.Int {
	if v.Sign() >= 0 && v.BitLen() <= int(width) {
		return new(big.Int).Set(v)
	}
	return new(big.Int).Mod(v, new(big.Int).Lsh(bigOne, uint(width)))
}

// toSigned interprets the canonical pattern in two's complement.
func toSigned(v *big.Int, width uint32) *big.Int {
	if v.Bit(int(width)-1) == 0 {
		return new(big.Int).Set(v)
	}
	return new(big.Int).Sub(v, new(big.Int).Lsh(bigOne, uint(width)))
}

func bvAdd(a, b BvValue) BvValue {
	return NewBvValue(a.Width, new(big.Int).Add(a.V, b.V))
}

func bvSub(a, b BvValue) BvValue {
	return NewBvValue(a.Width, new(big.Int).Sub(a.V, b.V))
}

func bvMul(a, b BvValue) BvValue {
	return NewBvValue(a.Width, new(big.Int).Mul(a.V, b.V))
}

// bvSDiv truncates toward zero, as LLVM's sdiv does.
func bvSDiv(a, b BvValue) BvValue {
	return NewBvValue(a.Width, new(big.Int).Quo(a.Signed(), b.Signed()))
}

func bvUDiv(a, b BvValue) BvValue {
	return NewBvValue(a.Width, new(big.Int).Div(a.V, b.V))
}

// bvSRem has the sign of the dividend, matching LLVM's srem.
func bvSRem(a, b BvValue) BvValue {
	return NewBvValue(a.Width, new(big.Int).Rem(a.Signed(), b.Signed()))
}

func bvURem(a, b BvValue) BvValue {
	return NewBvValue(a.Width, new(big.Int).Mod(a.V, b.V))
}

// Shift amounts at or beyond the width follow the SMT-LIB fixed semantics:
// shl and lshr produce zero, ashr fills with the sign bit.

func bvShl(a, b BvValue) BvValue {
	if !b.V.IsUint64() || b.V.Uint64() >= uint64(a.Width) {
		return NewBvValue(a.Width, new(big.Int))
	}
	return NewBvValue(a.Width, new(big.Int).Lsh(a.V, uint(b.V.Uint64())))
}

func bvLShr(a, b BvValue) BvValue {
	if !b.V.IsUint64() || b.V.Uint64() >= uint64(a.Width) {
		return NewBvValue(a.Width, new(big.Int))
	}
	return NewBvValue(a.Width, new(big.Int).Rsh(a.V, uint(b.V.Uint64())))
}

func bvAShr(a, b BvValue) BvValue {
	if !b.V.IsUint64() || b.V.Uint64() >= uint64(a.Width) {
		if a.V.Bit(int(a.Width)-1) == 1 {
			return BvValue{Width: a.Width, V: maskFor(a.Width)}
		}
		return NewBvValue(a.Width, new(big.Int))
	}
	return NewBvValue(a.Width, new(big.Int).Rsh(a.Signed(), uint(b.V.Uint64())))
}

func bvAnd(a, b BvValue) BvValue {
	return BvValue{Width: a.Width, V: new(big.Int).And(a.V, b.V)}
}

func bvOr(a, b BvValue) BvValue {
	return BvValue{Width: a.Width, V: new(big.Int).Or(a.V, b.V)}
}

func bvXor(a, b BvValue) BvValue {
	return BvValue{Width: a.Width, V: new(big.Int).Xor(a.V, b.V)}
}

func bvZExt(a BvValue, to uint32) BvValue {
	return BvValue{Width: to, V: new(big.Int).Set(a.V)}
}

func bvSExt(a BvValue, to uint32) BvValue {
	return NewBvValue(to, toSigned(a.V, a.Width))
}

func bvExtract(a BvValue, offset, width uint32) BvValue {
	r := new(big.Int).Rsh(a.V, uint(offset))
	return NewBvValue(width, r)
}

func bvCmp(kind Kind, a, b BvValue) bool {
	var c int
	switch kind {
	case SLt, SLtEq, SGt, SGtEq:
		c = a.Signed().Cmp(b.Signed())
	default:
		c = a.V.Cmp(b.V)
	}
	switch kind {
	case SLt, ULt:
		return c < 0
	case SLtEq, ULtEq:
		return c <= 0
	case SGt, UGt:
		return c > 0
	case SGtEq, UGtEq:
		return c >= 0
	}
	panic(typeErrorf("bvCmp called with non-compare kind %s", kind))
}
