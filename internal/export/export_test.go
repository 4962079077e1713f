package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/mangle/ast"
	"github.com/stretchr/testify/require"

	"factlex/internal/extract"
	"factlex/internal/fact"
	"factlex/internal/lexer"
)

func constant(t *testing.T, term ast.BaseTerm) ast.Constant {
	t.Helper()
	c, ok := term.(ast.Constant)
	require.True(t, ok, "expected constant term")
	return c
}

func scenario(t *testing.T) (*fact.Store, *fact.AtomTable) {
	t.Helper()
	atoms := fact.NewAtomTable()
	store := fact.NewStore()
	require.NoError(t, extract.ExtractAll(
		lexer.LangJSON, []byte(`{"a": 1, "b": [true, null]}`), atoms, store))
	return store, atoms
}

func TestToAtom(t *testing.T) {
	store, atoms := scenario(t)

	converted, err := Atoms(store, atoms)
	require.NoError(t, err)
	require.Len(t, converted, store.Len())

	for i, a := range converted {
		f, _ := store.Get(fact.ID(i))
		require.Equal(t, f.Predicate.String(), a.Predicate.Symbol)
		require.Equal(t, 4, a.Predicate.Arity, "exported atoms have a fixed shape")
		require.Len(t, a.Args, 4)
	}
}

func TestToAtom_ObjectVariants(t *testing.T) {
	atoms := fact.NewAtomTable()
	id := atoms.Intern("a")

	withObj := func(v fact.Value) fact.Fact {
		f, err := fact.NewBuilder().
			WithPredicate(fact.HasKey).
			WithObject(v).
			Build()
		require.NoError(t, err)
		return f
	}

	a, err := ToAtom(withObj(fact.Atom(id)), atoms)
	require.NoError(t, err)
	c := constant(t, a.Args[2])
	require.Equal(t, ast.StringType, c.Type)
	require.Equal(t, "a", c.Symbol)

	a, err = ToAtom(withObj(fact.Number(-42)), atoms)
	require.NoError(t, err)
	c = constant(t, a.Args[2])
	require.Equal(t, ast.NumberType, c.Type)

	a, err = ToAtom(withObj(fact.None()), atoms)
	require.NoError(t, err)
	c = constant(t, a.Args[2])
	require.Equal(t, ast.NameType, c.Type)
	require.Equal(t, "/none", c.Symbol)

	_, err = ToAtom(withObj(fact.Atom(999)), atoms)
	require.Error(t, err, "dangling atom ids must not export silently")
}

func TestWriteDatalog(t *testing.T) {
	store, atoms := scenario(t)

	var buf bytes.Buffer
	require.NoError(t, WriteDatalog(&buf, store, atoms))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, store.Len())
	for _, line := range lines {
		require.True(t, strings.HasSuffix(line, ")."), line)
	}

	out := buf.String()
	require.Contains(t, out, `has_key(1, 4, "a", 100).`)
	require.Contains(t, out, `has_key(9, 12, "b", 100).`)
	require.Contains(t, out, "is_object(0, 27, /none, 100).")
	require.Contains(t, out, "is_array(14, 26, /none, 100).")
	require.Contains(t, out, "has_value(6, 7, 1, 100).")
}
