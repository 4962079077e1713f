// Package cache memoizes per-span fact sets with LRU eviction, so repeated
// queries over an unchanged region skip re-extraction.
package cache

import (
	"container/list"

	"factlex/internal/fact"
	"factlex/internal/logging"
	"factlex/internal/span"
)

// Stats are monotonic counters since construction or the last Clear.
// Size is the current cached fact count, not an entry count.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Size      int
}

// FactCache maps spans to the facts extracted for them. Capacity is
// measured in cached facts, not entries: one entry holding 50 facts costs
// 50 units of budget. Eviction is least-recently-used; an evicted span is
// simply absent again, indistinguishable from one never cached.
//
// Not internally synchronized; a cache belongs to one session.
type FactCache struct {
	maxFacts   int
	order      *list.List // front = most recently used
	entries    map[span.Packed]*list.Element
	stats      Stats
	generation uint64
}

type entry struct {
	key   span.Packed
	facts []fact.Fact
}

// New creates a cache holding at most maxFacts cached facts.
func New(maxFacts int) *FactCache {
	return &FactCache{
		maxFacts: maxFacts,
		order:    list.New(),
		entries:  make(map[span.Packed]*list.Element),
	}
}

// Get returns the cached facts for a span. A hit promotes the entry to
// most-recently-used. The bool is false on miss; the caller computes and
// Puts. Callers must not mutate the returned slice.
func (c *FactCache) Get(key span.Packed) ([]fact.Fact, bool) {
	el, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	c.stats.Hits++
	c.order.MoveToFront(el)
	return el.Value.(*entry).facts, true
}

// Put caches the facts for a span, evicting least-recently-used entries
// until the fact budget holds. An entry larger than the whole budget is
// not cached at all; correctness never depends on a Put sticking.
func (c *FactCache) Put(key span.Packed, facts []fact.Fact) {
	if len(facts) > c.maxFacts {
		logging.Get(logging.CategoryCache).Debugw("entry exceeds cache budget, skipping",
			"span", key.String(), "facts", len(facts), "budget", c.maxFacts)
		return
	}
	if el, ok := c.entries[key]; ok {
		old := el.Value.(*entry)
		c.stats.Size += len(facts) - len(old.facts)
		old.facts = facts
		c.order.MoveToFront(el)
	} else {
		c.entries[key] = c.order.PushFront(&entry{key: key, facts: facts})
		c.stats.Size += len(facts)
	}
	for c.stats.Size > c.maxFacts {
		c.evictOldest()
	}
}

// Invalidate removes the entry for exactly this span and bumps the
// generation. Overlapping or containing spans are untouched: cascading
// invalidation is the caller's job if it needs it.
func (c *FactCache) Invalidate(key span.Packed) {
	el, ok := c.entries[key]
	if !ok {
		return
	}
	c.remove(el)
	c.generation++
}

// Clear drops every entry, resets the counters, and bumps the generation.
func (c *FactCache) Clear() {
	c.order.Init()
	c.entries = make(map[span.Packed]*list.Element)
	c.stats = Stats{}
	c.generation++
}

// Generation increments whenever cached contents are invalidated wholesale
// or piecemeal. Consumers holding derived state compare generations instead
// of subscribing to individual invalidations.
func (c *FactCache) Generation() uint64 {
	return c.generation
}

// GetStats returns a copy of the current counters.
func (c *FactCache) GetStats() Stats {
	return c.stats
}

// Len returns the number of cached entries (spans, not facts).
func (c *FactCache) Len() int {
	return c.order.Len()
}

func (c *FactCache) evictOldest() {
	el := c.order.Back()
	if el == nil {
		return
	}
	c.remove(el)
	c.stats.Evictions++
}

func (c *FactCache) remove(el *list.Element) {
	e := el.Value.(*entry)
	c.order.Remove(el)
	delete(c.entries, e.key)
	c.stats.Size -= len(e.facts)
}
