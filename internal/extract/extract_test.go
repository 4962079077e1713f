package extract

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"factlex/internal/fact"
	"factlex/internal/lexer"
	"factlex/internal/span"
)

// extractChunked runs the full chunked pipeline: lex src in pieces cut at
// the given absolute offsets, extracting facts as tokens arrive.
func extractChunked(t *testing.T, lang lexer.Language, src []byte, cuts ...int) (*fact.Store, *fact.AtomTable) {
	t.Helper()
	lx := lexer.New(lang)
	atoms := fact.NewAtomTable()
	store := fact.NewStore()
	ex := New(lang, atoms, store)

	var tokens []lexer.StreamToken
	prev := 0
	consumed := 0
	for _, cut := range append(cuts, len(src)) {
		var err error
		tokens, err = lx.TokenizeChunk(src[prev:cut], uint32(prev), tokens[:0])
		require.NoError(t, err)
		prev = cut
		for _, tok := range tokens {
			require.NoError(t, ex.Extract(tok, src[:cut]))
		}
		consumed = cut
	}
	tokens, err := lx.Finish(uint32(len(src)), tokens[:0])
	require.NoError(t, err)
	for _, tok := range tokens {
		require.NoError(t, ex.Extract(tok, src))
	}
	require.NoError(t, ex.Finish(uint32(consumed), src))
	return store, atoms
}

func factsWith(store *fact.Store, p fact.Predicate) []fact.Fact {
	var out []fact.Fact
	for _, f := range store.All() {
		if f.Predicate == p {
			out = append(out, f)
		}
	}
	return out
}

func TestExtract_JSONScenario(t *testing.T) {
	src := []byte(`{"a": 1, "b": [true, null]}`)
	atoms := fact.NewAtomTable()
	store := fact.NewStore()
	require.NoError(t, ExtractAll(lexer.LangJSON, src, atoms, store))

	whole := span.Span{Start: 0, End: uint32(len(src))}

	objs := factsWith(store, fact.IsObject)
	require.Len(t, objs, 1)
	require.Equal(t, whole, objs[0].Subject.Span())

	docs := factsWith(store, fact.IsDocument)
	require.Len(t, docs, 1)
	require.Equal(t, whole, docs[0].Subject.Span())

	keys := factsWith(store, fact.HasKey)
	require.Len(t, keys, 2)
	var names []string
	for _, k := range keys {
		id, ok := k.Object.AsAtom()
		require.True(t, ok)
		name, ok := atoms.Lookup(id)
		require.True(t, ok)
		names = append(names, name)
	}
	require.Equal(t, []string{"a", "b"}, names)
	require.Equal(t, span.Span{Start: 1, End: 4}, keys[0].Subject.Span())
	require.Equal(t, span.Span{Start: 9, End: 12}, keys[1].Subject.Span())

	arrays := factsWith(store, fact.IsArray)
	require.Len(t, arrays, 1)
	require.Equal(t, span.Span{Start: 14, End: 26}, arrays[0].Subject.Span())

	trues := factsWith(store, fact.IsTrue)
	require.Len(t, trues, 1)
	require.Equal(t, span.Span{Start: 15, End: 19}, trues[0].Subject.Span())

	nulls := factsWith(store, fact.IsNull)
	require.Len(t, nulls, 1)
	require.Equal(t, span.Span{Start: 21, End: 25}, nulls[0].Subject.Span())

	values := factsWith(store, fact.HasValue)
	require.Len(t, values, 1)
	n, ok := values[0].Object.AsNumber()
	require.True(t, ok)
	require.Equal(t, int64(1), n)

	// Every extracted fact is syntactically certain.
	for _, f := range store.All() {
		require.Equal(t, float32(1.0), f.ConfidenceFloat())
	}
}

// TestExtract_ChunkInvariance extends the lexer's core property through
// extraction: splitting the input at every byte offset must reproduce the
// identical fact sequence, including splits inside string literals.
func TestExtract_ChunkInvariance(t *testing.T) {
	inputs := map[lexer.Language][]string{
		lexer.LangJSON: {
			`{"a": 1, "b": [true, null]}`,
			`{"kéy": "va\nlue", "n": -2.5e3}`,
			`[[], {}, [0]]`,
		},
		lexer.LangZON: {
			`.{ .name = "factlex", .count = 3 }`,
			`.{ .mode = .fast, .hex = 0x1F, .ok = true }`,
		},
	}
	for lang, srcs := range inputs {
		for _, src := range srcs {
			t.Run(lang.String()+"/"+src, func(t *testing.T) {
				wantStore, _ := extractChunked(t, lang, []byte(src))
				for cut := 1; cut < len(src); cut++ {
					gotStore, _ := extractChunked(t, lang, []byte(src), cut)
					if diff := cmp.Diff(wantStore.All(), gotStore.All()); diff != "" {
						t.Fatalf("split at %d diverges (-single +chunked):\n%s", cut, diff)
					}
				}
			})
		}
	}
}

func TestExtract_ZONScenario(t *testing.T) {
	src := []byte(`.{ .name = "hi", .count = 3, .mode = .fast }`)
	atoms := fact.NewAtomTable()
	store := fact.NewStore()
	require.NoError(t, ExtractAll(lexer.LangZON, src, atoms, store))

	keys := factsWith(store, fact.HasKey)
	require.Len(t, keys, 3)
	var names []string
	for _, k := range keys {
		id, _ := k.Object.AsAtom()
		name, _ := atoms.Lookup(id)
		names = append(names, name)
	}
	require.Equal(t, []string{"name", "count", "mode"}, names)

	require.Len(t, factsWith(store, fact.IsString), 1)
	require.Len(t, factsWith(store, fact.IsEnumLiteral), 1)

	values := factsWith(store, fact.HasValue)
	require.Len(t, values, 2) // the string (span ref) and the integer
	n, ok := values[1].Object.AsNumber()
	require.True(t, ok)
	require.Equal(t, int64(3), n)

	objs := factsWith(store, fact.IsObject)
	require.Len(t, objs, 1)
	require.Equal(t, span.Span{Start: 0, End: uint32(len(src))}, objs[0].Subject.Span())
}

func TestExtract_EmptyContainers(t *testing.T) {
	atoms := fact.NewAtomTable()
	store := fact.NewStore()
	require.NoError(t, ExtractAll(lexer.LangJSON, []byte(`[{}, []]`), atoms, store))

	empties := factsWith(store, fact.IsEmpty)
	require.Len(t, empties, 2)
	require.Equal(t, span.Span{Start: 1, End: 3}, empties[0].Subject.Span())
	require.Equal(t, span.Span{Start: 5, End: 7}, empties[1].Subject.Span())

	// The outer array holds two items, so it is not empty.
	require.Len(t, factsWith(store, fact.IsObject), 1)
	require.Len(t, factsWith(store, fact.IsArray), 2)
}

func TestExtract_EscapedKey(t *testing.T) {
	src := []byte(`{"k\ney": 1}`)
	atoms := fact.NewAtomTable()
	store := fact.NewStore()
	require.NoError(t, ExtractAll(lexer.LangJSON, src, atoms, store))

	keys := factsWith(store, fact.HasKey)
	require.Len(t, keys, 1)
	id, _ := keys[0].Object.AsAtom()
	name, _ := atoms.Lookup(id)
	require.Equal(t, "k\ney", name)
}

func TestExtract_TopLevelScalars(t *testing.T) {
	// A bare string document: the pending slot flushes at Finish.
	atoms := fact.NewAtomTable()
	store := fact.NewStore()
	require.NoError(t, ExtractAll(lexer.LangJSON, []byte(`"solo"`), atoms, store))
	require.Len(t, factsWith(store, fact.IsString), 1)
	require.Len(t, factsWith(store, fact.IsDocument), 1)

	// ZON numbers parse through radix prefixes.
	store = fact.NewStore()
	require.NoError(t, ExtractAll(lexer.LangZON, []byte(`0x1F`), atoms, store))
	values := factsWith(store, fact.HasValue)
	require.Len(t, values, 1)
	n, ok := values[0].Object.AsNumber()
	require.True(t, ok)
	require.Equal(t, int64(31), n)
}
