package main

import (
	"fmt"

	"github.com/polyarch/vmem/mem/paging"
	"github.com/polyarch/vmem/mem/paging/la64"
	"github.com/polyarch/vmem/mem/paging/sv39"
	"github.com/polyarch/vmem/mem/phys"
)

const physBase = 0x8000_0000

func buildAllocator(frames uint64) *phys.FrameAllocator {
	mem := phys.MakeBuilder().
		WithBasePaddr(physBase).
		WithNumFrames(frames).
		Build()

	return phys.NewFrameAllocator(mem)
}

func newTableFactory(
	arch string,
	alloc *phys.FrameAllocator,
	core *paging.Core,
) (func() (paging.Table, error), error) {
	switch arch {
	case "sv39":
		return func() (paging.Table, error) {
			return sv39.MakeBuilder().
				WithAllocator(alloc).
				WithCore(core).
				Build()
		}, nil
	case "la64":
		return func() (paging.Table, error) {
			return la64.MakeBuilder().
				WithAllocator(alloc).
				WithCore(core).
				Build()
		}, nil
	default:
		return nil, fmt.Errorf(
			"unknown architecture %q, want sv39 or la64", arch)
	}
}
