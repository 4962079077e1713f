// Package fact defines the uniform 24-byte Fact record, its tagged-union
// payload, the predicate vocabulary, string interning, and the append-only
// FactStore that owns facts for one analysis session.
package fact

import (
	"errors"
	"fmt"

	"factlex/internal/span"
)

// ID identifies a fact within one Store. IDs are dense, assigned at append
// time, and valid until the store is discarded.
type ID uint32

// Fact is a fixed 24-byte record asserting one piece of knowledge about a
// source span. Facts are immutable once appended to a Store.
//
// Field order matters: 8+8+4+2+2 packs to exactly 24 bytes with no padding
// on 64-bit targets. TestFactSize pins this down.
type Fact struct {
	Subject    span.Packed
	Object     Value
	ID         ID
	Predicate  Predicate
	Confidence F16
}

// ConfidenceFloat returns the confidence expanded to float32.
func (f Fact) ConfidenceFloat() float32 {
	return f.Confidence.Float32()
}

func (f Fact) String() string {
	return fmt.Sprintf("#%d %s(%s) = %s @%.2f",
		f.ID, f.Predicate, f.Subject, f.Object, f.ConfidenceFloat())
}

// Construction errors. Invariant violations are rejected here so they can
// never enter a Store.
var (
	ErrInvalidConfidence = errors.New("fact: confidence outside [0.0, 1.0]")
	ErrInvalidPredicate  = errors.New("fact: predicate outside the closed enum")
)

// Builder assembles a Fact field by field. Subject and predicate are
// required; object defaults to none and confidence to 1.0. Out-of-range
// confidence is rejected at Build time, not clamped.
type Builder struct {
	fact       Fact
	confidence float32
}

// NewBuilder starts a builder with the defaults applied.
func NewBuilder() Builder {
	return Builder{confidence: 1.0}
}

func (b Builder) WithSubject(s span.Span) Builder {
	b.fact.Subject = span.Pack(s)
	return b
}

func (b Builder) WithPackedSubject(p span.Packed) Builder {
	b.fact.Subject = p
	return b
}

func (b Builder) WithPredicate(p Predicate) Builder {
	b.fact.Predicate = p
	return b
}

func (b Builder) WithObject(v Value) Builder {
	b.fact.Object = v
	return b
}

func (b Builder) WithConfidence(c float32) Builder {
	b.confidence = c
	return b
}

// Build validates and returns the fact. The ID field is zero; the owning
// Store assigns it on append.
func (b Builder) Build() (Fact, error) {
	if b.confidence < 0.0 || b.confidence > 1.0 {
		return Fact{}, fmt.Errorf("%w: %v", ErrInvalidConfidence, b.confidence)
	}
	if !b.fact.Predicate.Valid() {
		return Fact{}, fmt.Errorf("%w: %d", ErrInvalidPredicate, b.fact.Predicate)
	}
	b.fact.Confidence = F16FromFloat32(b.confidence)
	return b.fact, nil
}
