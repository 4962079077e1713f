// Package export converts facts to Mangle EDB atoms and Datalog source
// text, so datalog tooling can reason over what the extractor found.
//
// Every exported atom has the fixed shape
//
//	predicate(Start, End, Object, Confidence).
//
// with the subject span split into its offsets, the object rendered as a
// single term, and confidence scaled to an integer percentage.
package export

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/google/mangle/ast"

	"factlex/internal/fact"
)

// ToAtom converts one fact. The atom table resolves interned payloads;
// facts without atom payloads never consult it.
func ToAtom(f fact.Fact, atoms *fact.AtomTable) (ast.Atom, error) {
	obj, err := objectTerm(f.Object, atoms)
	if err != nil {
		return ast.Atom{}, fmt.Errorf("export: fact %d: %w", f.ID, err)
	}
	s := f.Subject.Span()
	return ast.NewAtom(f.Predicate.String(),
		ast.Number(int64(s.Start)),
		ast.Number(int64(s.End)),
		obj,
		ast.Number(confidencePercent(f)),
	), nil
}

// Atoms converts a whole store in fact id order.
func Atoms(store *fact.Store, atoms *fact.AtomTable) ([]ast.Atom, error) {
	out := make([]ast.Atom, 0, store.Len())
	for _, f := range store.All() {
		a, err := ToAtom(f, atoms)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// WriteDatalog renders the store as Datalog source, one fact per line.
func WriteDatalog(w io.Writer, store *fact.Store, atoms *fact.AtomTable) error {
	bw := bufio.NewWriter(w)
	for _, f := range store.All() {
		line, err := datalogLine(f, atoms)
		if err != nil {
			return err
		}
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return fmt.Errorf("export: write: %w", err)
		}
	}
	return bw.Flush()
}

func objectTerm(v fact.Value, atoms *fact.AtomTable) (ast.BaseTerm, error) {
	switch v.Tag() {
	case fact.TagNone:
		return nameConstant("/none")
	case fact.TagNumber:
		n, _ := v.AsNumber()
		return ast.Number(n), nil
	case fact.TagUint:
		u, _ := v.AsUint()
		return ast.Number(int64(u)), nil
	case fact.TagSpan:
		p, _ := v.AsSpan()
		return ast.String(p.String()), nil
	case fact.TagAtom:
		id, _ := v.AsAtom()
		text, ok := atoms.Lookup(id)
		if !ok {
			return nil, fmt.Errorf("unknown atom id %d", id)
		}
		return ast.String(text), nil
	case fact.TagFactRef:
		ref, _ := v.AsFactRef()
		return ast.Number(int64(ref)), nil
	default:
		return nil, fmt.Errorf("unknown value tag %d", v.Tag())
	}
}

func nameConstant(s string) (ast.BaseTerm, error) {
	c, err := ast.Name(s)
	if err != nil {
		return nil, fmt.Errorf("name constant %q: %w", s, err)
	}
	return c, nil
}

func confidencePercent(f fact.Fact) int64 {
	return int64(math.Round(float64(f.ConfidenceFloat()) * 100))
}

// datalogLine renders one fact as source text. Rendering is by hand so the
// output format stays stable regardless of upstream String changes.
func datalogLine(f fact.Fact, atoms *fact.AtomTable) (string, error) {
	s := f.Subject.Span()
	obj, err := objectText(f.Object, atoms)
	if err != nil {
		return "", fmt.Errorf("export: fact %d: %w", f.ID, err)
	}
	args := []string{
		fmt.Sprintf("%d", s.Start),
		fmt.Sprintf("%d", s.End),
		obj,
		fmt.Sprintf("%d", confidencePercent(f)),
	}
	return fmt.Sprintf("%s(%s).", f.Predicate, strings.Join(args, ", ")), nil
}

func objectText(v fact.Value, atoms *fact.AtomTable) (string, error) {
	switch v.Tag() {
	case fact.TagNone:
		return "/none", nil
	case fact.TagNumber:
		n, _ := v.AsNumber()
		return fmt.Sprintf("%d", n), nil
	case fact.TagUint:
		u, _ := v.AsUint()
		return fmt.Sprintf("%d", u), nil
	case fact.TagSpan:
		p, _ := v.AsSpan()
		return fmt.Sprintf("%q", p.String()), nil
	case fact.TagAtom:
		id, _ := v.AsAtom()
		text, ok := atoms.Lookup(id)
		if !ok {
			return "", fmt.Errorf("unknown atom id %d", id)
		}
		return fmt.Sprintf("%q", text), nil
	case fact.TagFactRef:
		ref, _ := v.AsFactRef()
		return fmt.Sprintf("%d", ref), nil
	default:
		return "", fmt.Errorf("unknown value tag %d", v.Tag())
	}
}
