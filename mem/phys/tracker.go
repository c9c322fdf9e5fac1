package phys

import (
	"fmt"

	"github.com/polyarch/vmem/mem/addr"
)

// FrameTracker is the exclusive owner of one physical frame. Release
// returns the frame to its allocator exactly once; a second Release is a
// programmer error and panics. Shared use of a frame (copy-on-write and
// the like) belongs to a higher layer through reference counting, never
// to cloning a tracker.
type FrameTracker struct {
	ppn      addr.Ppn
	alloc    *FrameAllocator
	released bool
}

// Ppn returns the owned frame.
func (t *FrameTracker) Ppn() addr.Ppn { return t.ppn }

// Release returns the frame to the allocator.
func (t *FrameTracker) Release() {
	if t.released {
		panic(fmt.Sprintf("frame %#x released twice", t.ppn))
	}
	t.released = true
	t.alloc.deallocFrame(t.ppn)
}

// FrameRangeTracker owns a contiguous run of frames as a single unit and
// frees the whole run atomically on Release.
type FrameRangeTracker struct {
	rng      addr.PpnRange
	alloc    *FrameAllocator
	released bool
}

// StartPpn returns the first frame of the run.
func (t *FrameRangeTracker) StartPpn() addr.Ppn { return t.rng.Start }

// EndPpn returns the first frame past the run.
func (t *FrameRangeTracker) EndPpn() addr.Ppn { return t.rng.End }

// Len returns the number of frames in the run.
func (t *FrameRangeTracker) Len() uint64 { return t.rng.Len() }

// Range returns the owned frame range.
func (t *FrameRangeTracker) Range() addr.PpnRange { return t.rng }

// Release returns the whole run to the allocator.
func (t *FrameRangeTracker) Release() {
	if t.released {
		panic(fmt.Sprintf("frame range [%#x, %#x) released twice",
			t.rng.Start, t.rng.End))
	}
	t.released = true
	t.alloc.deallocContigFrames(t.rng)
}
