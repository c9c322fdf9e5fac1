package paging

import (
	"sync"

	"github.com/polyarch/vmem/mem/addr"
	"github.com/polyarch/vmem/mem/tlb"
)

// Core models the per-CPU translation state: the root-table register
// (satp on RISC-V, PGDL/PGDH on LoongArch) and the core-private TLB. A
// Table is bound to exactly one Core; Activate and the flush operations
// act on that core only.
type Core struct {
	sync.Mutex

	id      int
	rootPpn addr.Ppn
	tlb     *tlb.TLB

	peers []*Core
}

// NewCore creates a core with the given ID and TLB. A nil TLB gets the
// default geometry.
func NewCore(id int, t *tlb.TLB) *Core {
	if t == nil {
		t = tlb.MakeBuilder().Build()
	}
	return &Core{id: id, tlb: t}
}

// ID returns the core number.
func (c *Core) ID() int { return c.id }

// ActiveRootPpn returns the frame currently loaded in the root register.
func (c *Core) ActiveRootPpn() addr.Ppn {
	c.Lock()
	defer c.Unlock()
	return c.rootPpn
}

// SetRoot loads a new root-table frame into the root register.
func (c *Core) SetRoot(ppn addr.Ppn) {
	c.Lock()
	c.rootPpn = ppn
	c.Unlock()
}

// TLB returns the core-private TLB.
func (c *Core) TLB() *tlb.TLB { return c.tlb }

// LinkPeers registers the other cores of the machine so that shootdowns
// can reach them.
func (c *Core) LinkPeers(peers ...*Core) {
	c.Lock()
	defer c.Unlock()
	c.peers = c.peers[:0]
	for _, p := range peers {
		if p != c {
			c.peers = append(c.peers, p)
		}
	}
}

// FlushAllCores invalidates vpn on this core and on every linked peer.
// Real hardware would raise an IPI per peer; here the remote invalidate
// is applied synchronously.
//
// TODO: route peer invalidations through a per-core mailbox once the
// interrupt model lands.
func (c *Core) FlushAllCores(vpn addr.Vpn) {
	c.tlb.Invalidate(vpn)

	c.Lock()
	peers := append([]*Core(nil), c.peers...)
	c.Unlock()

	for _, p := range peers {
		p.tlb.Invalidate(vpn)
	}
}
