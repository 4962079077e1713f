// Package span provides half-open byte ranges over a source buffer and a
// bit-packed representation used wherever a span must fit in a fixed-size
// record (Fact subjects, token positions, cache keys).
package span

import "fmt"

// Span is a half-open byte range [Start, End) into the original source.
// Offsets are bytes, End is exclusive, Start <= End.
type Span struct {
	Start uint32
	End   uint32
}

// Packed is a Span bit-packed into the low 48 bits of a uint64:
// Start occupies bits 24..47, End occupies bits 0..23. The upper 16 bits
// are always zero. This caps supported offsets at MaxOffset (16 MiB - 1);
// files larger than that must be analyzed in windows by the caller.
type Packed uint64

const (
	// offsetBits is the per-field width of the packed layout.
	offsetBits = 24

	// MaxOffset is the largest byte offset representable in a Packed span.
	MaxOffset = (1 << offsetBits) - 1

	offsetMask = (1 << offsetBits) - 1
)

// New constructs a Span. Callers are expected to pass start <= end.
func New(start, end uint32) Span {
	return Span{Start: start, End: end}
}

// Pack encodes s into its 48-bit packed form. Offsets beyond MaxOffset are
// a caller bug; they are masked, not detected, so validate file size once
// at the session boundary rather than per span.
func Pack(s Span) Packed {
	return Packed(uint64(s.Start&offsetMask)<<offsetBits | uint64(s.End&offsetMask))
}

// Unpack decodes a packed span. Unpack(Pack(s)) == s for every span whose
// offsets fit in 24 bits.
func Unpack(p Packed) Span {
	return Span{
		Start: uint32(p>>offsetBits) & offsetMask,
		End:   uint32(p) & offsetMask,
	}
}

// Merge returns the smallest span covering both a and b. Used when an open
// and close delimiter pair is combined into one construct span.
func Merge(a, b Span) Span {
	out := a
	if b.Start < out.Start {
		out.Start = b.Start
	}
	if b.End > out.End {
		out.End = b.End
	}
	return out
}

// Len returns the byte length of the span.
func (s Span) Len() uint32 {
	return s.End - s.Start
}

// Contains reports whether offset lies inside the half-open range.
func (s Span) Contains(offset uint32) bool {
	return offset >= s.Start && offset < s.End
}

// Less orders spans lexicographically by (Start, End). Index keys rely on
// this ordering being total and stable.
func (s Span) Less(o Span) bool {
	if s.Start != o.Start {
		return s.Start < o.Start
	}
	return s.End < o.End
}

// Text returns the bytes the span covers. Out-of-range spans return nil
// rather than panicking.
func (s Span) Text(source []byte) []byte {
	if int(s.End) > len(source) || s.Start > s.End {
		return nil
	}
	return source[s.Start:s.End]
}

// String renders the range in start:end form for logs and CLI output.
func (s Span) String() string {
	return fmt.Sprintf("%d:%d", s.Start, s.End)
}

// Span unpacks p. Convenience accessor for call sites that only need the
// logical range.
func (p Packed) Span() Span {
	return Unpack(p)
}

func (p Packed) String() string {
	return Unpack(p).String()
}
