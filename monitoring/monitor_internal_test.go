package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/gorilla/mux"

	"github.com/polyarch/vmem/mem/addr"
	"github.com/polyarch/vmem/mem/paging"
	"github.com/polyarch/vmem/mem/paging/sv39"
	"github.com/polyarch/vmem/mem/phys"
	"github.com/polyarch/vmem/mem/pte"
	"github.com/polyarch/vmem/mem/vmspace"
)

func newTestSpace(alloc *phys.FrameAllocator) *vmspace.MemorySpace {
	core := paging.NewCore(0, nil)
	factory := func() (paging.Table, error) {
		return sv39.MakeBuilder().
			WithAllocator(alloc).
			WithCore(core).
			Build()
	}

	space, err := vmspace.MakeBuilder().
		WithTableFactory(factory).
		WithAllocator(alloc).
		Build()
	if err != nil {
		panic(err)
	}

	return space
}

var _ = Describe("Monitor", func() {
	var (
		m     *Monitor
		alloc *phys.FrameAllocator
		space *vmspace.MemorySpace
	)

	BeforeEach(func() {
		mem := phys.MakeBuilder().
			WithBasePaddr(0x8000_0000).
			WithNumFrames(64).
			Build()
		alloc = phys.NewFrameAllocator(mem)
		space = newTestSpace(alloc)

		m = NewMonitor()
		m.RegisterAllocator(alloc)
		m.RegisterSpace(space)
	})

	It("should list registered spaces", func() {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/spaces", nil)

		m.listSpaces(w, r)

		var rsp []spaceSummaryRsp
		Expect(json.Unmarshal(w.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp).To(HaveLen(1))
		Expect(rsp[0].ID).To(Equal(space.ID()))
		Expect(rsp[0].AreaCount).To(Equal(0))
	})

	It("should report the areas of one space", func() {
		_, err := space.Mmap(0, 2*addr.PageSize, pte.UserRW())
		Expect(err).ToNot(HaveOccurred())

		w := httptest.NewRecorder()
		r := httptest.NewRequest(
			http.MethodGet, "/api/spaces/"+space.ID(), nil)
		r = mux.SetURLVars(r, map[string]string{"id": space.ID()})

		m.listSpaceDetails(w, r)

		var rsp []areaRsp
		Expect(json.Unmarshal(w.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp).To(HaveLen(1))
		Expect(rsp[0].EndVpn - rsp[0].StartVpn).To(Equal(uint64(2)))
		Expect(rsp[0].MappedPages).To(Equal(2))
		Expect(rsp[0].MapType).To(Equal("framed"))
	})

	It("should return 404 for an unknown space", func() {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/spaces/nope", nil)
		r = mux.SetURLVars(r, map[string]string{"id": "nope"})

		m.listSpaceDetails(w, r)

		Expect(w.Code).To(Equal(http.StatusNotFound))
	})

	It("should report allocator statistics", func() {
		_, err := space.Mmap(0, addr.PageSize, pte.UserRW())
		Expect(err).ToNot(HaveOccurred())

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/allocator", nil)

		m.allocatorStats(w, r)

		var rsp allocatorRsp
		Expect(json.Unmarshal(w.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.TotalFrames).To(Equal(uint64(64)))
		Expect(rsp.UsedFrames).To(Equal(rsp.TotalFrames - rsp.FreeFrames))
		Expect(rsp.FreeFrames).To(Equal(alloc.FreeCount()))
	})

	It("should drop unregistered spaces", func() {
		m.UnregisterSpace(space)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/spaces", nil)

		m.listSpaces(w, r)

		Expect(w.Body.String()).To(Equal("[]"))
	})

	It("should track progress bars", func() {
		bar := m.CreateProgressBar("loading image", 100)
		bar.IncrementInProgress(10)
		bar.MoveInProgressToFinished(4)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/progress", nil)

		m.listProgressBars(w, r)

		var rsp []ProgressBar
		Expect(json.Unmarshal(w.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp).To(HaveLen(1))
		Expect(rsp[0].Name).To(Equal("loading image"))
		Expect(rsp[0].Finished).To(Equal(uint64(4)))
		Expect(rsp[0].InProgress).To(Equal(uint64(6)))

		m.CompleteProgressBar(bar)
		Expect(m.progressBars).To(BeEmpty())
	})
})
