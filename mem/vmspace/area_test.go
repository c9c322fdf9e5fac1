package vmspace

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/polyarch/vmem/mem/addr"
	"github.com/polyarch/vmem/mem/paging"
	"github.com/polyarch/vmem/mem/phys"
	"github.com/polyarch/vmem/mem/pte"
)

var _ = Describe("MappingArea", func() {
	var (
		ctrl  *gomock.Controller
		table *MockTable
		alloc *phys.FrameAllocator
	)

	BeforeEach(func() {
		ctrl = gomock.NewController(GinkgoT())
		table = NewMockTable(ctrl)

		mem := phys.MakeBuilder().
			WithBasePaddr(0x8000_0000).
			WithNumFrames(16).
			Build()
		alloc = phys.NewFrameAllocator(mem)
	})

	AfterEach(func() {
		ctrl.Finish()
	})

	It("maps an identical page onto the equal physical page", func() {
		area := NewMappingArea(addr.NewVpnRange(0x80010, 0x80011),
			AreaKernelText, MapIdentical, pte.KernelRX())
		table.EXPECT().
			Map(addr.Vpn(0x80010), addr.Ppn(0x80010),
				paging.Size4K, pte.KernelRX()).
			Return(nil)

		Expect(area.MapOne(table, alloc, 0x80010)).To(Succeed())
		Expect(area.MappedPages()).To(Equal(0),
			"identical areas track no frames")
	})

	It("releases the fresh frame when the table refuses a framed map", func() {
		area := NewMappingArea(addr.NewVpnRange(0x10, 0x11),
			AreaUserMmap, MapFramed, pte.UserRW())
		free0 := alloc.FreeCount()
		table.EXPECT().
			Map(addr.Vpn(0x10), gomock.Any(), paging.Size4K, pte.UserRW()).
			Return(paging.ErrAlreadyMapped)

		err := area.MapOne(table, alloc, 0x10)

		Expect(err).To(MatchError(paging.ErrAlreadyMapped))
		Expect(alloc.FreeCount()).To(Equal(free0))
		Expect(area.MappedPages()).To(Equal(0))
	})

	It("unwinds already-mapped pages when a later map fails", func() {
		area := NewMappingArea(addr.NewVpnRange(0x10, 0x12),
			AreaUserMmap, MapFramed, pte.UserRW())
		free0 := alloc.FreeCount()

		table.EXPECT().
			Map(addr.Vpn(0x10), gomock.Any(), paging.Size4K, pte.UserRW()).
			Return(nil)
		table.EXPECT().
			Map(addr.Vpn(0x11), gomock.Any(), paging.Size4K, pte.UserRW()).
			Return(paging.ErrFrameAllocFailed)
		table.EXPECT().
			Unmap(addr.Vpn(0x10)).
			Return(addr.Ppn(0x80001), paging.Size4K, nil)
		table.EXPECT().FlushTLB(addr.Vpn(0x10))

		err := area.Map(table, alloc)

		Expect(err).To(MatchError(paging.ErrFrameAllocFailed))
		Expect(alloc.FreeCount()).To(Equal(free0))
		Expect(area.MappedPages()).To(Equal(0))
	})

	It("surfaces frame exhaustion instead of panicking", func() {
		for {
			if _, ok := alloc.AllocFrame(); !ok {
				break
			}
		}
		area := NewMappingArea(addr.NewVpnRange(0x10, 0x11),
			AreaUserMmap, MapFramed, pte.UserRW())

		err := area.MapOne(table, alloc, 0x10)

		Expect(err).To(MatchError(paging.ErrFrameAllocFailed))
	})

	It("rejects a page outside the area", func() {
		area := NewMappingArea(addr.NewVpnRange(0x10, 0x12),
			AreaUserMmap, MapFramed, pte.UserRW())

		err := area.MapOne(table, alloc, 0x20)

		Expect(err).To(MatchError(paging.ErrInvalidAddress))
	})

	It("clones metadata without the frames", func() {
		area := NewMappingArea(addr.NewVpnRange(0x10, 0x13),
			AreaUserData, MapFramed, pte.UserRW())
		table.EXPECT().
			Map(gomock.Any(), gomock.Any(), paging.Size4K, pte.UserRW()).
			Return(nil).
			Times(3)
		Expect(area.Map(table, alloc)).To(Succeed())
		Expect(area.MappedPages()).To(Equal(3))

		clone := area.CloneMetadata()

		Expect(clone.VpnRange()).To(Equal(area.VpnRange()))
		Expect(clone.AreaType()).To(Equal(AreaUserData))
		Expect(clone.MapType()).To(Equal(MapFramed))
		Expect(clone.Permission()).To(Equal(pte.UserRW()))
		Expect(clone.MappedPages()).To(Equal(0))
		Expect(area.MappedPages()).To(Equal(3),
			"cloning must not strip the original")
	})
})
