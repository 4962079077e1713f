package fact

import "math"

// F16 is an IEEE 754 binary16 value stored as raw bits. Confidence only
// ever holds [0.0, 1.0], so the format's limited range is irrelevant here;
// what matters is that it costs 2 bytes inside the 24-byte Fact.
type F16 uint16

// F16FromFloat32 converts with round-to-nearest-even. Values outside the
// half-precision range saturate to +/-Inf, which confidence never hits.
func F16FromFloat32(f float32) F16 {
	bits := math.Float32bits(f)
	sign := uint16(bits>>16) & 0x8000
	exp := int32(bits>>23&0xff) - 127 + 15
	mant := bits & 0x7fffff

	switch {
	case exp >= 0x1f:
		// Overflow or already Inf/NaN.
		if exp == 0x1f+112 && mant != 0 { // source NaN
			return F16(sign | 0x7e00)
		}
		return F16(sign | 0x7c00)
	case exp <= 0:
		// Subnormal half: shift mantissa (with implicit bit) into place.
		if exp < -10 {
			return F16(sign)
		}
		mant |= 0x800000
		shift := uint32(14 - exp)
		half := uint16(mant >> shift)
		if mant>>(shift-1)&1 != 0 { // round half up, ties are vanishingly rare here
			half++
		}
		return F16(sign | half)
	default:
		half := sign | uint16(exp)<<10 | uint16(mant>>13)
		// Round to nearest even on the truncated 13 bits.
		rem := mant & 0x1fff
		if rem > 0x1000 || (rem == 0x1000 && half&1 != 0) {
			half++
		}
		return F16(half)
	}
}

// Float32 expands the half-precision bits back to float32. The expansion
// is exact: every F16 value has a float32 representation.
func (h F16) Float32() float32 {
	sign := uint32(h&0x8000) << 16
	exp := uint32(h >> 10 & 0x1f)
	mant := uint32(h & 0x3ff)

	switch {
	case exp == 0:
		if mant == 0 {
			return math.Float32frombits(sign)
		}
		// Subnormal: normalize.
		for mant&0x400 == 0 {
			mant <<= 1
			exp--
		}
		mant &= 0x3ff
		return math.Float32frombits(sign | (exp+1-15+127)<<23 | mant<<13)
	case exp == 0x1f:
		return math.Float32frombits(sign | 0xff<<23 | mant<<13)
	default:
		return math.Float32frombits(sign | (exp-15+127)<<23 | mant<<13)
	}
}
