package phys

import (
	"fmt"
	"sort"
	"sync"

	"github.com/polyarch/vmem/mem/addr"
)

// FrameAllocator hands out frames from a range of the arena. It is a bump
// allocator with a recycled-frame stack: freed frames are reused before
// the bump pointer advances, and freeing the frames just below the bump
// pointer rewinds it so contiguous allocation can reclaim the space.
//
// Every method is one short critical section; the allocator never calls
// out to other subsystems while holding its lock, so releasing a tracker
// is safe from any context that is not itself inside the allocator.
type FrameAllocator struct {
	sync.Mutex

	mem      *Memory
	start    addr.Ppn
	end      addr.Ppn
	cur      addr.Ppn
	recycled []addr.Ppn
}

// NewFrameAllocator creates an allocator covering the whole arena.
func NewFrameAllocator(mem *Memory) *FrameAllocator {
	return NewFrameAllocatorRange(mem, mem.BasePpn(), mem.EndPpn())
}

// NewFrameAllocatorRange creates an allocator covering [start, end) of the
// arena. Frames below start stay out of the free pool, which is how the
// kernel image and boot structures are kept.
func NewFrameAllocatorRange(mem *Memory, start, end addr.Ppn) *FrameAllocator {
	if start > end || !mem.Contains(start) || end > mem.EndPpn() {
		panic(fmt.Sprintf("allocator range [%#x, %#x) outside arena", start, end))
	}

	return &FrameAllocator{
		mem:   mem,
		start: start,
		end:   end,
		cur:   start,
	}
}

// Memory returns the arena the allocator draws from.
func (a *FrameAllocator) Memory() *Memory { return a.mem }

// FreeCount returns the number of frames currently available.
func (a *FrameAllocator) FreeCount() uint64 {
	a.Lock()
	defer a.Unlock()

	return uint64(a.end-a.cur) + uint64(len(a.recycled))
}

// AllocFrame allocates one zeroed frame. It returns ok=false when
// physical memory is exhausted; callers propagate that as a frame
// allocation failure, never panic.
func (a *FrameAllocator) AllocFrame() (*FrameTracker, bool) {
	a.Lock()
	defer a.Unlock()

	ppn, ok := a.takeOne()
	if !ok {
		return nil, false
	}

	a.mem.ZeroPage(ppn)
	return &FrameTracker{ppn: ppn, alloc: a}, true
}

// AllocFrames allocates n zeroed frames that need not be contiguous. On
// failure nothing stays reserved.
func (a *FrameAllocator) AllocFrames(n uint64) ([]*FrameTracker, bool) {
	a.Lock()
	defer a.Unlock()

	taken := make([]addr.Ppn, 0, n)
	for i := uint64(0); i < n; i++ {
		ppn, ok := a.takeOne()
		if !ok {
			for _, p := range taken {
				a.giveBack(p)
			}
			return nil, false
		}
		taken = append(taken, ppn)
	}

	frames := make([]*FrameTracker, n)
	for i, ppn := range taken {
		a.mem.ZeroPage(ppn)
		frames[i] = &FrameTracker{ppn: ppn, alloc: a}
	}
	return frames, true
}

// AllocContigFrames allocates n physically contiguous zeroed frames as a
// single owned run. The reservation is atomic: on failure the free count
// is unchanged.
func (a *FrameAllocator) AllocContigFrames(n uint64) (*FrameRangeTracker, bool) {
	if n == 0 {
		return nil, false
	}

	a.Lock()
	defer a.Unlock()

	end := a.cur.StepBy(n)
	if end > a.end {
		return nil, false
	}

	rng := addr.PpnRangeFromStartLen(a.cur, n)
	a.cur = end
	for p := rng.Start; p < rng.End; p++ {
		a.mem.ZeroPage(p)
	}
	return &FrameRangeTracker{rng: rng, alloc: a}, true
}

// AllocContigFramesAligned allocates n contiguous frames whose first
// frame number is a multiple of align. Frames skipped to reach the
// alignment boundary go onto the recycled stack. align must be a power of
// two.
func (a *FrameAllocator) AllocContigFramesAligned(
	n, align uint64,
) (*FrameRangeTracker, bool) {
	if n == 0 {
		return nil, false
	}
	if align == 0 || align&(align-1) != 0 {
		panic(fmt.Sprintf("alignment %d is not a power of two", align))
	}

	a.Lock()
	defer a.Unlock()

	aligned := addr.Ppn((uint64(a.cur) + align - 1) &^ (align - 1))
	end := aligned.StepBy(n)
	if end > a.end {
		return nil, false
	}

	for p := a.cur; p < aligned; p++ {
		a.recycled = append(a.recycled, p)
	}
	sort.Slice(a.recycled, func(i, j int) bool {
		return a.recycled[i] < a.recycled[j]
	})

	rng := addr.PpnRangeFromStartLen(aligned, n)
	a.cur = end
	for p := rng.Start; p < rng.End; p++ {
		a.mem.ZeroPage(p)
	}
	return &FrameRangeTracker{rng: rng, alloc: a}, true
}

// takeOne pops a recycled frame or advances the bump pointer. Caller
// holds the lock.
func (a *FrameAllocator) takeOne() (addr.Ppn, bool) {
	if n := len(a.recycled); n > 0 {
		ppn := a.recycled[n-1]
		a.recycled = a.recycled[:n-1]
		return ppn, true
	}
	if a.cur < a.end {
		ppn := a.cur
		a.cur = a.cur.Step()
		return ppn, true
	}
	return 0, false
}

// giveBack returns one frame to the pool and rewinds the bump pointer
// through any recycled run that now touches it. Caller holds the lock.
func (a *FrameAllocator) giveBack(ppn addr.Ppn) {
	if ppn < a.start || ppn >= a.end {
		panic(fmt.Sprintf("frame %#x freed outside allocator range", ppn))
	}
	if ppn >= a.cur {
		panic(fmt.Sprintf("frame %#x freed but never allocated", ppn))
	}

	a.recycled = append(a.recycled, ppn)
	sort.Slice(a.recycled, func(i, j int) bool {
		return a.recycled[i] < a.recycled[j]
	})

	for n := len(a.recycled); n > 0; n = len(a.recycled) {
		top := a.recycled[n-1]
		if top.Step() != a.cur {
			break
		}
		a.recycled = a.recycled[:n-1]
		a.cur = top
	}
}

func (a *FrameAllocator) deallocFrame(ppn addr.Ppn) {
	a.Lock()
	defer a.Unlock()

	a.giveBack(ppn)
}

func (a *FrameAllocator) deallocContigFrames(rng addr.PpnRange) {
	a.Lock()
	defer a.Unlock()

	for p := rng.Start; p < rng.End; p++ {
		a.giveBack(p)
	}
}
