// Package query answers fact lookups through a multi-key index. The index
// is a pure acceleration structure: it is rebuilt from the store on demand
// and never holds state the store does not.
package query

import (
	"sort"

	"factlex/internal/fact"
	"factlex/internal/logging"
	"factlex/internal/span"
)

// confidenceBuckets partitions [0.0, 1.0] into ten tenth-wide buckets plus
// a dedicated bucket for exactly 1.0. Buckets are coarse by design; every
// confidence query re-checks exact values against the bounds.
const confidenceBuckets = 11

// Index holds fact ids grouped by each queryable key. Ids within each
// group are ascending, because Build scans the store in id order.
type Index struct {
	byPredicate  [fact.PredicateCount][]fact.ID
	bySpan       map[span.Packed][]fact.ID
	byConfidence [confidenceBuckets][]fact.ID
	size         int
}

// Build populates an index from a full store scan. O(n) in fact count.
func Build(store *fact.Store) *Index {
	idx := &Index{
		bySpan: make(map[span.Packed][]fact.ID),
		size:   store.Len(),
	}
	for _, f := range store.All() {
		idx.byPredicate[f.Predicate] = append(idx.byPredicate[f.Predicate], f.ID)
		idx.bySpan[f.Subject] = append(idx.bySpan[f.Subject], f.ID)
		b := bucketOf(f.ConfidenceFloat())
		idx.byConfidence[b] = append(idx.byConfidence[b], f.ID)
	}
	logging.Get(logging.CategoryQuery).Debugw("index built",
		"facts", idx.size, "spans", len(idx.bySpan))
	return idx
}

func bucketOf(c float32) int {
	b := int(c * 10)
	if b >= confidenceBuckets {
		b = confidenceBuckets - 1
	}
	return b
}

// Executor answers queries over one store, rebuilding its index lazily
// whenever the store has grown since the last build.
type Executor struct {
	store *fact.Store
	idx   *Index
}

// NewExecutor creates an executor over a store. The first query pays for
// the index build; later queries reuse it until the store grows.
func NewExecutor(store *fact.Store) *Executor {
	return &Executor{store: store}
}

func (e *Executor) ensure() *Index {
	if e.idx == nil || e.idx.size != e.store.Len() {
		e.idx = Build(e.store)
	}
	return e.idx
}

// QueryByPredicate returns the ids of all facts asserting p, ascending.
// Unknown predicates yield an empty result, never an error.
func (e *Executor) QueryByPredicate(p fact.Predicate) []fact.ID {
	if !p.Valid() {
		return nil
	}
	return clone(e.ensure().byPredicate[p])
}

// QueryBySpan returns the ids of all facts whose subject is exactly s.
func (e *Executor) QueryBySpan(s span.Packed) []fact.ID {
	return clone(e.ensure().bySpan[s])
}

// QueryByConfidence returns the ids of facts whose confidence lies in
// [min, max]. Bounds are quantized through the fact's own half-precision
// encoding first, so a stored confidence always compares exactly against
// the same bound a builder would have stored: QueryByConfidence(0.7, 0.7)
// finds facts built with confidence 0.7.
func (e *Executor) QueryByConfidence(min, max float32) []fact.ID {
	qmin := fact.F16FromFloat32(min).Float32()
	qmax := fact.F16FromFloat32(max).Float32()
	if qmin > qmax {
		return nil
	}
	idx := e.ensure()

	lo, hi := bucketOf(qmin), bucketOf(qmax)
	var out []fact.ID
	for b := lo; b <= hi; b++ {
		for _, id := range idx.byConfidence[b] {
			f, ok := e.store.Get(id)
			if !ok {
				continue
			}
			c := f.ConfidenceFloat()
			if c >= qmin && c <= qmax {
				out = append(out, id)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Criteria selects facts for QueryComplex. Nil fields do not constrain.
type Criteria struct {
	Predicate     *fact.Predicate
	Span          *span.Packed
	MinConfidence *float32
}

// QueryComplex intersects the result sets of every non-nil criterion and
// returns the ids ascending. Zero criteria returns the empty set: an
// unconstrained query is a full store scan the caller should do directly.
func (e *Executor) QueryComplex(c Criteria) []fact.ID {
	var sets [][]fact.ID
	if c.Predicate != nil {
		sets = append(sets, e.QueryByPredicate(*c.Predicate))
	}
	if c.Span != nil {
		sets = append(sets, e.QueryBySpan(*c.Span))
	}
	if c.MinConfidence != nil {
		sets = append(sets, e.QueryByConfidence(*c.MinConfidence, 1.0))
	}
	if len(sets) == 0 {
		return nil
	}

	result := sets[0]
	for _, s := range sets[1:] {
		result = intersect(result, s)
	}
	return result
}

// intersect merges two ascending id slices, keeping ids present in both.
func intersect(a, b []fact.ID) []fact.ID {
	var out []fact.ID
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}

func clone(ids []fact.ID) []fact.ID {
	if len(ids) == 0 {
		return nil
	}
	out := make([]fact.ID, len(ids))
	copy(out, ids)
	return out
}
