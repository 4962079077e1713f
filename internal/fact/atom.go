package fact

import "sync"

// AtomID identifies an interned string within one AtomTable.
type AtomID uint32

// AtomTable interns strings to small dense ids so a Fact's Value can carry
// text in 4 bytes. The table is append-only: entries are never removed, so
// an AtomID stays valid for the table's entire lifetime. That is a
// deliberate simplification, not a cache.
//
// The table is passed explicitly into every extractor that needs it; there
// is no package-level instance.
type AtomTable struct {
	mu   sync.RWMutex
	ids  map[string]AtomID
	strs []string
}

// NewAtomTable creates an empty table.
func NewAtomTable() *AtomTable {
	return &AtomTable{ids: make(map[string]AtomID)}
}

// Intern returns the id for s, adding it on first sight.
func (t *AtomTable) Intern(s string) AtomID {
	t.mu.RLock()
	id, ok := t.ids[s]
	t.mu.RUnlock()
	if ok {
		return id
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// Re-check: another goroutine may have interned s between the locks.
	if id, ok := t.ids[s]; ok {
		return id
	}
	id = AtomID(len(t.strs))
	t.strs = append(t.strs, s)
	t.ids[s] = id
	return id
}

// Lookup resolves an id back to its string. The bool is false for ids the
// table never issued.
func (t *AtomTable) Lookup(id AtomID) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if int(id) >= len(t.strs) {
		return "", false
	}
	return t.strs[id], true
}

// Len returns the number of interned strings.
func (t *AtomTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.strs)
}
