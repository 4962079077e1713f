package lexer

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"factlex/internal/span"
)

// tokenizeSplit lexes src in pieces cut at the given absolute offsets.
func tokenizeSplit(t *testing.T, lang Language, src []byte, cuts ...int) ([]StreamToken, error) {
	t.Helper()
	lx := New(lang)
	var out []StreamToken
	var err error
	prev := 0
	for _, cut := range append(cuts, len(src)) {
		out, err = lx.TokenizeChunk(src[prev:cut], uint32(prev), out)
		if err != nil {
			return out, err
		}
		prev = cut
	}
	return lx.Finish(uint32(len(src)), out)
}

// requireChunkInvariant is the core correctness property: splitting the
// input at every byte offset, and again byte-at-a-time, must reproduce the
// single-chunk token sequence exactly.
func requireChunkInvariant(t *testing.T, lang Language, src string) []StreamToken {
	t.Helper()
	want, err := Tokenize(lang, []byte(src))
	require.NoError(t, err, "single-chunk lex of %q", src)

	for cut := 1; cut < len(src); cut++ {
		got, err := tokenizeSplit(t, lang, []byte(src), cut)
		require.NoError(t, err, "split at %d", cut)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("split at %d diverges (-single +chunked):\n%s", cut, diff)
		}
	}

	var all []int
	for i := 1; i < len(src); i++ {
		all = append(all, i)
	}
	got, err := tokenizeSplit(t, lang, []byte(src), all...)
	require.NoError(t, err, "byte-at-a-time lex")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("byte-at-a-time lex diverges:\n%s", diff)
	}
	return want
}

func kinds(tokens []StreamToken) []uint8 {
	out := make([]uint8, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Kind
	}
	return out
}

func TestJSON_TokenSequence(t *testing.T) {
	src := `{"a": 1, "b": [true, null]}`
	tokens, err := Tokenize(LangJSON, []byte(src))
	require.NoError(t, err)

	want := []uint8{
		JSONObjectOpen, JSONString, JSONColon, JSONWhitespace, JSONNumber,
		JSONComma, JSONWhitespace, JSONString, JSONColon, JSONWhitespace,
		JSONArrayOpen, JSONTrue, JSONComma, JSONWhitespace, JSONNull,
		JSONArrayClose, JSONObjectClose,
	}
	require.Equal(t, want, kinds(tokens))

	// Positions are absolute and in source order.
	require.Equal(t, span.Span{Start: 0, End: 1}, tokens[0].Span.Span())
	require.Equal(t, span.Span{Start: 1, End: 4}, tokens[1].Span.Span())
	require.Equal(t, "true", string(tokens[11].Text([]byte(src))))
	prevEnd := uint32(0)
	for _, tok := range tokens {
		s := tok.Span.Span()
		require.Equal(t, prevEnd, s.Start, "tokens must tile the input")
		prevEnd = s.End
	}
	require.Equal(t, uint32(len(src)), prevEnd)
}

func TestJSON_ChunkInvariance(t *testing.T) {
	inputs := []string{
		`{"a": 1, "b": [true, null]}`,
		`{"kéy": "a\nb\\c", "empty": ""}`,
		`[-1.5e+10, 0.5, 100, 0, -0.25E-3]`,
		"  {\n\t\"x\" :  [ 1 , 2 ]\r\n}  ",
		`[true, false, null, true]`,
		`"😀"`,
		`{"deep": {"er": {"est": [[[0]]]}}}`,
		`123`,
		`   `,
	}
	for _, src := range inputs {
		t.Run(src, func(t *testing.T) {
			requireChunkInvariant(t, LangJSON, src)
		})
	}
}

func TestJSON_NumberFlags(t *testing.T) {
	cases := []struct {
		src   string
		flags uint8
	}{
		{`7`, 0},
		{`-7`, FlagNegative},
		{`7.5`, FlagFloat},
		{`7e2`, FlagFloat},
		{`-0.5e-2`, FlagFloat | FlagNegative},
	}
	for _, c := range cases {
		tokens, err := Tokenize(LangJSON, []byte(c.src))
		require.NoError(t, err, c.src)
		require.Len(t, tokens, 1)
		require.Equal(t, JSONNumber, tokens[0].Kind)
		require.Equal(t, c.flags, tokens[0].Flags, c.src)
	}
}

func TestJSON_StringFlags(t *testing.T) {
	tokens, err := Tokenize(LangJSON, []byte(`"plain"`))
	require.NoError(t, err)
	require.Equal(t, uint8(0), tokens[0].Flags)

	tokens, err = Tokenize(LangJSON, []byte(`"a\tb"`))
	require.NoError(t, err)
	require.Equal(t, FlagHasEscapes, tokens[0].Flags)

	tokens, err = Tokenize(LangJSON, []byte(`"\u0041"`))
	require.NoError(t, err)
	require.Equal(t, FlagHasEscapes|FlagHasUnicodeEscape, tokens[0].Flags)
}

func TestJSON_Errors(t *testing.T) {
	t.Run("unterminated string at EOF", func(t *testing.T) {
		_, err := Tokenize(LangJSON, []byte(`{"key`))
		require.ErrorIs(t, err, ErrUnterminatedToken)
		var lexE *Error
		require.True(t, errors.As(err, &lexE))
		require.Equal(t, uint32(1), lexE.Offset, "error carries the token start")
	})

	t.Run("unterminated number at EOF", func(t *testing.T) {
		_, err := Tokenize(LangJSON, []byte(`[1.`))
		require.ErrorIs(t, err, ErrUnterminatedToken)
	})

	t.Run("complete number at EOF is fine", func(t *testing.T) {
		tokens, err := Tokenize(LangJSON, []byte(`1.5`))
		require.NoError(t, err)
		require.Len(t, tokens, 1)
	})

	t.Run("invalid escape", func(t *testing.T) {
		_, err := Tokenize(LangJSON, []byte(`"a\q"`))
		require.ErrorIs(t, err, ErrInvalidEscapeSequence)
	})

	t.Run("invalid unicode escape", func(t *testing.T) {
		_, err := Tokenize(LangJSON, []byte(`"\u12G4"`))
		require.ErrorIs(t, err, ErrInvalidUnicodeEscape)
	})

	t.Run("split mid-escape keeps digit count", func(t *testing.T) {
		// Valid input split inside é: state carries hex digits seen.
		src := []byte(`"\u00e9"`)
		for cut := 1; cut < len(src); cut++ {
			_, err := tokenizeSplit(t, LangJSON, src, cut)
			require.NoError(t, err, "cut %d", cut)
		}
		// Invalid digit is caught at the same point regardless of split.
		bad := []byte(`"\u0G"`)
		for cut := 1; cut < len(bad); cut++ {
			_, err := tokenizeSplit(t, LangJSON, bad, cut)
			require.ErrorIs(t, err, ErrInvalidUnicodeEscape, "cut %d", cut)
		}
	})

	t.Run("stray byte", func(t *testing.T) {
		_, err := Tokenize(LangJSON, []byte(`{@}`))
		require.ErrorIs(t, err, ErrUnexpectedByte)
		var lexE *Error
		require.True(t, errors.As(err, &lexE))
		require.Equal(t, uint32(1), lexE.Offset)
	})

	t.Run("leading zero", func(t *testing.T) {
		_, err := Tokenize(LangJSON, []byte(`[01]`))
		require.ErrorIs(t, err, ErrUnexpectedByte)
	})

	t.Run("broken literal", func(t *testing.T) {
		_, err := Tokenize(LangJSON, []byte(`[trye]`))
		require.ErrorIs(t, err, ErrUnexpectedByte)
	})

	t.Run("invalid utf8 in string", func(t *testing.T) {
		_, err := Tokenize(LangJSON, []byte{'"', 0xff, '"'})
		require.ErrorIs(t, err, ErrInvalidUTF8)
	})

	t.Run("control char in string", func(t *testing.T) {
		_, err := Tokenize(LangJSON, []byte("\"a\nb\""))
		require.ErrorIs(t, err, ErrUnexpectedByte)
	})
}

func TestJSON_TokenTooLarge(t *testing.T) {
	big := `"` + strings.Repeat("x", PartialBufferCap+10) + `"`

	_, err := Tokenize(LangJSON, []byte(big))
	require.ErrorIs(t, err, ErrTokenTooLarge)

	// Same outcome when the oversized token straddles a boundary.
	_, err = tokenizeSplit(t, LangJSON, []byte(big), 100)
	require.ErrorIs(t, err, ErrTokenTooLarge)

	// A string just under the cap passes both ways.
	ok := `"` + strings.Repeat("x", PartialBufferCap-2) + `"`
	_, err = Tokenize(LangJSON, []byte(ok))
	require.NoError(t, err)
	_, err = tokenizeSplit(t, LangJSON, []byte(ok), 100)
	require.NoError(t, err)
}

func TestJSON_UTF8AcrossChunks(t *testing.T) {
	// é is two bytes; splitting between them must not break validation.
	requireChunkInvariant(t, LangJSON, `{"café": "naïve"}`)
}

func TestJSON_EmptyChunks(t *testing.T) {
	src := []byte(`{"a": 1}`)
	lx := NewJSONLexer()
	out, err := lx.TokenizeChunk(nil, 0, nil)
	require.NoError(t, err)
	out, err = lx.TokenizeChunk(src, 0, out)
	require.NoError(t, err)
	out, err = lx.TokenizeChunk(nil, uint32(len(src)), out)
	require.NoError(t, err)
	out, err = lx.Finish(uint32(len(src)), out)
	require.NoError(t, err)

	want, err := Tokenize(LangJSON, src)
	require.NoError(t, err)
	require.Equal(t, want, out)
}

func TestJSON_LexerReuse(t *testing.T) {
	lx := NewJSONLexer()
	_, err := lx.TokenizeChunk([]byte(`"unfinished`), 0, nil)
	require.NoError(t, err)
	require.NotEmpty(t, lx.Pending())

	lx.Reset()
	require.Empty(t, lx.Pending())
	out, err := lx.TokenizeChunk([]byte(`true`), 0, nil)
	require.NoError(t, err)
	out, err = lx.Finish(4, out)
	require.NoError(t, err)
	require.Equal(t, []uint8{JSONTrue}, kinds(out))
}

func TestDecodeJSONString(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{`"plain"`, "plain"},
		{`""`, ""},
		{`"a\nb"`, "a\nb"},
		{`"q\"q"`, `q"q`},
		{`"\u0041"`, "A"},
		{`"é"`, "é"},
		{`"😀"`, "😀"},
		{`"sla\/sh"`, "sla/sh"},
	}
	for _, c := range cases {
		got, err := DecodeJSONString([]byte(c.raw))
		require.NoError(t, err, c.raw)
		require.Equal(t, c.want, got, c.raw)
	}

	_, err := DecodeJSONString([]byte(`"\q"`))
	require.ErrorIs(t, err, ErrInvalidEscapeSequence)
	_, err = DecodeJSONString([]byte(`no quotes`))
	require.Error(t, err)
}

// BenchmarkJSONTokenizeChunk measures the steady-state path with a reused
// output slice; the loop body should not allocate.
func BenchmarkJSONTokenizeChunk(b *testing.B) {
	src := []byte(`{"a": 1, "b": [true, null], "c": "some longer string value"}`)
	lx := NewJSONLexer()
	out := make([]StreamToken, 0, 64)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		lx.Reset()
		var err error
		out, err = lx.TokenizeChunk(src, 0, out[:0])
		if err != nil {
			b.Fatal(err)
		}
		out, err = lx.Finish(uint32(len(src)), out)
		if err != nil {
			b.Fatal(err)
		}
	}
}
