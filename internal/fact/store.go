package fact

// Store is the append-only source of truth for one analysis session's
// facts. Facts are kept in one contiguous slice; ids are indexes into it,
// so Get is a bounds check and a copy. There is no delete: ids stay valid
// until the whole store is discarded.
//
// A Store is not internally synchronized. One store belongs to one
// session; embedders needing cross-goroutine access serialize it
// themselves, keeping the hot path lock-free.
type Store struct {
	facts []Fact
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Append assigns the next dense id, records the fact, and returns the id.
// Amortized O(1); the backing slice doubles on growth.
func (s *Store) Append(f Fact) ID {
	id := ID(len(s.facts))
	f.ID = id
	s.facts = append(s.facts, f)
	return id
}

// AppendBuilt builds and appends in one step, for call sites that would
// otherwise discard the intermediate fact.
func (s *Store) AppendBuilt(b Builder) (ID, error) {
	f, err := b.Build()
	if err != nil {
		return 0, err
	}
	return s.Append(f), nil
}

// Get returns the fact with the given id. The bool is false for ids at or
// past the current length; out-of-range reads never panic.
func (s *Store) Get(id ID) (Fact, bool) {
	if int(id) >= len(s.facts) {
		return Fact{}, false
	}
	return s.facts[id], true
}

// All returns the full fact slice for index building. Read-only by
// contract: callers must not mutate entries.
func (s *Store) All() []Fact {
	return s.facts
}

// Len returns the number of appended facts.
func (s *Store) Len() int {
	return len(s.facts)
}
