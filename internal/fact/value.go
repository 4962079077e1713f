package fact

import (
	"fmt"

	"factlex/internal/span"
)

// ValueTag identifies the active variant of a Value.
type ValueTag uint8

const (
	TagNone ValueTag = iota
	TagNumber
	TagUint
	TagSpan
	TagAtom
	TagFactRef
)

// Value is an 8-byte tagged union holding a fact's payload. The tag lives
// in the top byte, the payload in the low 56 bits:
//
//	number   signed 56-bit integer, sign-extended on read
//	uint     unsigned 56-bit integer
//	span     48-bit span.Packed
//	atom     32-bit AtomID
//	fact_ref 32-bit ID
//
// Numeric payloads outside the 56-bit range are a caller bug; the
// constructors mask silently because lexical values (offsets, lengths,
// small counts) never approach the limit.
type Value uint64

const (
	valuePayloadBits = 56
	valuePayloadMask = (uint64(1) << valuePayloadBits) - 1
	valueSignBit     = uint64(1) << (valuePayloadBits - 1)
)

// None returns the empty value.
func None() Value {
	return Value(0)
}

// Number wraps a signed integer payload.
func Number(v int64) Value {
	return Value(uint64(TagNumber)<<valuePayloadBits | uint64(v)&valuePayloadMask)
}

// Uint wraps an unsigned integer payload.
func Uint(v uint64) Value {
	return Value(uint64(TagUint)<<valuePayloadBits | v&valuePayloadMask)
}

// SpanRef wraps a packed span payload.
func SpanRef(p span.Packed) Value {
	return Value(uint64(TagSpan)<<valuePayloadBits | uint64(p)&valuePayloadMask)
}

// Atom wraps an interned string id.
func Atom(id AtomID) Value {
	return Value(uint64(TagAtom)<<valuePayloadBits | uint64(id))
}

// FactRef wraps a reference to another fact in the same store.
func FactRef(id ID) Value {
	return Value(uint64(TagFactRef)<<valuePayloadBits | uint64(id))
}

// Tag returns the active variant.
func (v Value) Tag() ValueTag {
	return ValueTag(v >> valuePayloadBits)
}

// AsNumber returns the signed payload. The bool is false when the value
// holds a different variant.
func (v Value) AsNumber() (int64, bool) {
	if v.Tag() != TagNumber {
		return 0, false
	}
	raw := uint64(v) & valuePayloadMask
	if raw&valueSignBit != 0 {
		raw |= ^valuePayloadMask // sign-extend
	}
	return int64(raw), true
}

// AsUint returns the unsigned payload.
func (v Value) AsUint() (uint64, bool) {
	if v.Tag() != TagUint {
		return 0, false
	}
	return uint64(v) & valuePayloadMask, true
}

// AsSpan returns the packed span payload.
func (v Value) AsSpan() (span.Packed, bool) {
	if v.Tag() != TagSpan {
		return 0, false
	}
	return span.Packed(uint64(v) & valuePayloadMask), true
}

// AsAtom returns the interned string id payload.
func (v Value) AsAtom() (AtomID, bool) {
	if v.Tag() != TagAtom {
		return 0, false
	}
	return AtomID(uint64(v) & valuePayloadMask), true
}

// AsFactRef returns the fact id payload.
func (v Value) AsFactRef() (ID, bool) {
	if v.Tag() != TagFactRef {
		return 0, false
	}
	return ID(uint64(v) & valuePayloadMask), true
}

// String renders the value for logs and CLI output. Atom ids are shown
// numerically; resolving them needs the owning AtomTable.
func (v Value) String() string {
	switch v.Tag() {
	case TagNone:
		return "none"
	case TagNumber:
		n, _ := v.AsNumber()
		return fmt.Sprintf("%d", n)
	case TagUint:
		u, _ := v.AsUint()
		return fmt.Sprintf("%du", u)
	case TagSpan:
		p, _ := v.AsSpan()
		return p.String()
	case TagAtom:
		a, _ := v.AsAtom()
		return fmt.Sprintf("atom#%d", a)
	case TagFactRef:
		r, _ := v.AsFactRef()
		return fmt.Sprintf("fact#%d", r)
	default:
		return fmt.Sprintf("invalid(%#x)", uint64(v))
	}
}
