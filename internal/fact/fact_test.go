package fact

import (
	"errors"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"factlex/internal/span"
)

// TestFactSize pins the record layout: exactly 24 bytes, no padding.
func TestFactSize(t *testing.T) {
	if size := unsafe.Sizeof(Fact{}); size != 24 {
		t.Fatalf("sizeof(Fact) = %d, want 24", size)
	}
}

func TestValueSize(t *testing.T) {
	if size := unsafe.Sizeof(Value(0)); size != 8 {
		t.Fatalf("sizeof(Value) = %d, want 8", size)
	}
}

func TestValue_RoundTrips(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		require.Equal(t, TagNone, None().Tag())
	})

	t.Run("number", func(t *testing.T) {
		for _, n := range []int64{0, 1, -1, 42, -99999, 1 << 54, -(1 << 54)} {
			v := Number(n)
			require.Equal(t, TagNumber, v.Tag())
			got, ok := v.AsNumber()
			require.True(t, ok)
			require.Equal(t, n, got, "payload %d", n)
		}
	})

	t.Run("uint", func(t *testing.T) {
		v := Uint(1 << 55)
		got, ok := v.AsUint()
		require.True(t, ok)
		require.Equal(t, uint64(1<<55), got)
	})

	t.Run("span", func(t *testing.T) {
		p := span.Pack(span.Span{Start: 3, End: 9})
		v := SpanRef(p)
		got, ok := v.AsSpan()
		require.True(t, ok)
		require.Equal(t, p, got)
	})

	t.Run("atom", func(t *testing.T) {
		v := Atom(AtomID(7))
		got, ok := v.AsAtom()
		require.True(t, ok)
		require.Equal(t, AtomID(7), got)
	})

	t.Run("fact ref", func(t *testing.T) {
		v := FactRef(ID(12))
		got, ok := v.AsFactRef()
		require.True(t, ok)
		require.Equal(t, ID(12), got)
	})

	t.Run("wrong variant accessor", func(t *testing.T) {
		_, ok := Number(5).AsAtom()
		require.False(t, ok)
		_, ok = Atom(3).AsNumber()
		require.False(t, ok)
	})
}

func TestBuilder_ConfidenceBounds(t *testing.T) {
	base := NewBuilder().WithSubject(span.Span{Start: 0, End: 4}).WithPredicate(IsString)

	for _, c := range []float32{-0.1, 1.1, 2.0, -100} {
		_, err := base.WithConfidence(c).Build()
		require.ErrorIs(t, err, ErrInvalidConfidence, "confidence %v", c)
	}

	// 0.0, 0.5 and 1.0 are exact in half precision and must round-trip.
	for _, c := range []float32{0.0, 0.5, 1.0} {
		f, err := base.WithConfidence(c).Build()
		require.NoError(t, err)
		require.Equal(t, c, f.ConfidenceFloat())
	}
}

func TestBuilder_Defaults(t *testing.T) {
	f, err := NewBuilder().
		WithSubject(span.Span{Start: 2, End: 8}).
		WithPredicate(IsObject).
		Build()
	require.NoError(t, err)
	require.Equal(t, None(), f.Object)
	require.Equal(t, float32(1.0), f.ConfidenceFloat())
	require.Equal(t, span.Span{Start: 2, End: 8}, f.Subject.Span())
}

func TestBuilder_InvalidPredicate(t *testing.T) {
	_, err := NewBuilder().
		WithSubject(span.Span{}).
		WithPredicate(PredicateCount).
		Build()
	require.True(t, errors.Is(err, ErrInvalidPredicate))
}

func TestStore_AppendGet(t *testing.T) {
	s := NewStore()
	var want []Fact
	for i := 0; i < 100; i++ {
		f, err := NewBuilder().
			WithSubject(span.Span{Start: uint32(i), End: uint32(i + 1)}).
			WithPredicate(Predicate(i % int(PredicateCount))).
			WithObject(Number(int64(i))).
			Build()
		require.NoError(t, err)
		id := s.Append(f)
		require.Equal(t, ID(i), id)
		f.ID = id
		want = append(want, f)
	}

	require.Equal(t, 100, s.Len())
	for i, w := range want {
		got, ok := s.Get(ID(i))
		require.True(t, ok)
		require.Equal(t, w, got)
	}

	_, ok := s.Get(ID(100))
	require.False(t, ok)
	_, ok = s.Get(ID(1 << 30))
	require.False(t, ok)
}

func TestAtomTable_Intern(t *testing.T) {
	tab := NewAtomTable()
	a := tab.Intern("key")
	b := tab.Intern("value")
	require.NotEqual(t, a, b)
	require.Equal(t, a, tab.Intern("key"), "re-interning must return the same id")
	require.Equal(t, 2, tab.Len())

	s, ok := tab.Lookup(a)
	require.True(t, ok)
	require.Equal(t, "key", s)

	_, ok = tab.Lookup(AtomID(99))
	require.False(t, ok)
}

func TestF16_ExactValues(t *testing.T) {
	// Powers of two and small dyadic fractions are exact in binary16.
	for _, f := range []float32{0, 0.25, 0.5, 0.75, 1.0} {
		require.Equal(t, f, F16FromFloat32(f).Float32(), "value %v", f)
	}
}

func TestF16_QuantizationIsStable(t *testing.T) {
	// 0.7 is inexact in binary16; what matters is that encoding the decoded
	// value reproduces the same bits, so quantized comparisons agree.
	h := F16FromFloat32(0.7)
	again := F16FromFloat32(h.Float32())
	require.Equal(t, h, again)
	require.InDelta(t, 0.7, h.Float32(), 0.001)
}

func TestPredicate_Names(t *testing.T) {
	require.Equal(t, "is_object", IsObject.String())
	require.Equal(t, "begins_scope", BeginsScope.String())
	require.Equal(t, "invalid_predicate", PredicateCount.String())

	p, ok := ParsePredicate("has_key")
	require.True(t, ok)
	require.Equal(t, HasKey, p)
	_, ok = ParsePredicate("no_such_predicate")
	require.False(t, ok)
}
