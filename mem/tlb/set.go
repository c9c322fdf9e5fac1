package tlb

import "github.com/polyarch/vmem/mem/addr"

// A set holds up to numWays translations. Victim selection is LRU by a
// per-set visit counter.
type set struct {
	blocks     []*block
	wayIDByVpn map[addr.Vpn]int
	visitCount uint64
}

type block struct {
	entry     Entry
	valid     bool
	lastVisit uint64
}

func newSet(numWays int) *set {
	s := &set{
		blocks:     make([]*block, numWays),
		wayIDByVpn: make(map[addr.Vpn]int),
	}
	for i := range s.blocks {
		s.blocks[i] = &block{}
	}
	return s
}

func (s *set) lookup(vpn addr.Vpn) (Entry, bool) {
	wayID, ok := s.wayIDByVpn[vpn]
	if !ok {
		return Entry{}, false
	}

	s.visit(wayID)
	return s.blocks[wayID].entry, true
}

func (s *set) add(e Entry) {
	if wayID, ok := s.wayIDByVpn[e.Vpn]; ok {
		s.blocks[wayID].entry = e
		s.visit(wayID)
		return
	}

	wayID := s.victim()
	b := s.blocks[wayID]
	if b.valid {
		delete(s.wayIDByVpn, b.entry.Vpn)
	}

	b.entry = e
	b.valid = true
	s.wayIDByVpn[e.Vpn] = wayID
	s.visit(wayID)
}

// invalidateCovering drops every entry whose backing leaf covers vpn.
// The leaf base is the entry's vpn rounded down to its PageBytes.
func (s *set) invalidateCovering(vpn addr.Vpn) {
	for v, wayID := range s.wayIDByVpn {
		pages := s.blocks[wayID].entry.PageBytes / addr.PageSize
		if pages == 0 {
			pages = 1
		}

		base := uint64(v) &^ (pages - 1)
		if uint64(vpn) >= base && uint64(vpn) < base+pages {
			s.blocks[wayID].valid = false
			delete(s.wayIDByVpn, v)
		}
	}
}

// victim returns an empty way if one exists, otherwise the least recently
// visited one.
func (s *set) victim() int {
	lru := 0
	for i, b := range s.blocks {
		if !b.valid {
			return i
		}
		if b.lastVisit < s.blocks[lru].lastVisit {
			lru = i
		}
	}
	return lru
}

func (s *set) visit(wayID int) {
	s.visitCount++
	s.blocks[wayID].lastVisit = s.visitCount
}
