// Package tlb models a per-CPU translation look-aside buffer: a small
// set-associative cache of recent translations with LRU victim selection.
// The TLB does not observe table updates: a mapping change is invisible
// to it until the owner invalidates, the same staleness window real
// hardware has.
package tlb

import (
	"sync"

	"github.com/polyarch/vmem/mem/addr"
	"github.com/polyarch/vmem/mem/pte"
)

// Entry is one cached translation. Translations are cached at base-page
// granularity; a huge mapping contributes one entry per looked-up page,
// with PageBytes recording the size of the backing leaf.
type Entry struct {
	Vpn       addr.Vpn
	Ppn       addr.Ppn
	Flags     pte.Flag
	PageBytes uint64
}

// TLB is a set-associative translation cache.
type TLB struct {
	sync.Mutex

	numSets int
	numWays int
	sets    []*set
}

// Lookup returns the cached translation for vpn, if any.
func (t *TLB) Lookup(vpn addr.Vpn) (Entry, bool) {
	t.Lock()
	defer t.Unlock()

	return t.setFor(vpn).lookup(vpn)
}

// Add caches a translation, evicting the least recently used way of the
// target set when it is full.
func (t *TLB) Add(e Entry) {
	t.Lock()
	defer t.Unlock()

	t.setFor(e.Vpn).add(e)
}

// Invalidate drops every cached translation backed by the leaf that
// covers vpn. For a huge leaf this removes the entries of all of its
// cached base pages, which live in different sets, so every set is
// scanned.
func (t *TLB) Invalidate(vpn addr.Vpn) {
	t.Lock()
	defer t.Unlock()

	for _, s := range t.sets {
		s.invalidateCovering(vpn)
	}
}

// Flush drops every cached translation.
func (t *TLB) Flush() {
	t.Lock()
	defer t.Unlock()

	for i := range t.sets {
		t.sets[i] = newSet(t.numWays)
	}
}

// EntryCount returns the number of live translations, for accounting.
func (t *TLB) EntryCount() int {
	t.Lock()
	defer t.Unlock()

	n := 0
	for _, s := range t.sets {
		n += len(s.wayIDByVpn)
	}
	return n
}

func (t *TLB) setFor(vpn addr.Vpn) *set {
	return t.sets[int(uint64(vpn)%uint64(t.numSets))]
}

// A Builder can build TLBs.
type Builder struct {
	numSets int
	numWays int
}

// MakeBuilder creates a builder with a 64-set, 4-way default shape.
func MakeBuilder() Builder {
	return Builder{numSets: 64, numWays: 4}
}

// WithNumSets sets the number of sets.
func (b Builder) WithNumSets(n int) Builder {
	b.numSets = n
	return b
}

// WithNumWays sets the associativity.
func (b Builder) WithNumWays(n int) Builder {
	b.numWays = n
	return b
}

// Build returns a newly created TLB.
func (b Builder) Build() *TLB {
	if b.numSets <= 0 || b.numWays <= 0 {
		panic("tlb shape must be positive")
	}

	t := &TLB{numSets: b.numSets, numWays: b.numWays}
	t.sets = make([]*set, b.numSets)
	for i := range t.sets {
		t.sets[i] = newSet(b.numWays)
	}
	return t
}
