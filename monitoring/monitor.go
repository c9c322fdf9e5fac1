// Package monitoring exposes the state of memory spaces and the frame
// allocator over HTTP, so that a running kernel simulation can be
// inspected from outside the process.
package monitoring

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"

	"github.com/gorilla/mux"

	"github.com/polyarch/vmem/mem/phys"
	"github.com/polyarch/vmem/mem/vmspace"
)

// Monitor serves registered memory spaces and allocator statistics as
// JSON endpoints.
type Monitor struct {
	portNumber int
	alloc      *phys.FrameAllocator

	spacesLock sync.Mutex
	spaces     []*vmspace.MemorySpace

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitoring server.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterAllocator registers the frame allocator whose statistics are
// reported.
func (m *Monitor) RegisterAllocator(a *phys.FrameAllocator) {
	m.alloc = a
}

// RegisterSpace registers a memory space to be monitored.
func (m *Monitor) RegisterSpace(s *vmspace.MemorySpace) {
	m.spacesLock.Lock()
	defer m.spacesLock.Unlock()

	m.spaces = append(m.spaces, s)
}

// UnregisterSpace removes a memory space from the monitor, typically
// when the space is released.
func (m *Monitor) UnregisterSpace(s *vmspace.MemorySpace) {
	m.spacesLock.Lock()
	defer m.spacesLock.Unlock()

	newSpaces := make([]*vmspace.MemorySpace, 0, len(m.spaces))
	for _, sp := range m.spaces {
		if sp != s {
			newSpaces = append(newSpaces, sp)
		}
	}

	m.spaces = newSpaces
}

// StartServer starts the monitor as a web server, on the configured
// port or a random one.
func (m *Monitor) StartServer() {
	r := mux.NewRouter()

	r.HandleFunc("/api/spaces", m.listSpaces)
	r.HandleFunc("/api/spaces/{id}", m.listSpaceDetails)
	r.HandleFunc("/api/allocator", m.allocatorStats)
	r.HandleFunc("/api/progress", m.listProgressBars)
	http.Handle("/", r)

	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	fmt.Fprintf(
		os.Stderr,
		"Monitoring memory spaces with http://localhost:%d\n",
		listener.Addr().(*net.TCPAddr).Port)

	go func() {
		err = http.Serve(listener, nil)
		dieOnErr(err)
	}()
}

type spaceSummaryRsp struct {
	ID        string `json:"id"`
	AreaCount int    `json:"area_count"`
	Brk       uint64 `json:"brk"`
}

func (m *Monitor) listSpaces(w http.ResponseWriter, _ *http.Request) {
	m.spacesLock.Lock()
	defer m.spacesLock.Unlock()

	rsp := make([]spaceSummaryRsp, 0, len(m.spaces))
	for _, s := range m.spaces {
		rsp = append(rsp, spaceSummaryRsp{
			ID:        s.ID(),
			AreaCount: s.AreaCount(),
			Brk:       uint64(s.CurrentBrk()),
		})
	}

	bytes, err := json.Marshal(rsp)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

type areaRsp struct {
	StartVpn    uint64 `json:"start_vpn"`
	EndVpn      uint64 `json:"end_vpn"`
	Type        string `json:"type"`
	MapType     string `json:"map_type"`
	Permission  string `json:"permission"`
	MappedPages int    `json:"mapped_pages"`
}

func (m *Monitor) listSpaceDetails(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	space := m.findSpaceOr404(w, id)
	if space == nil {
		return
	}

	infos := space.AreaInfos()
	rsp := make([]areaRsp, 0, len(infos))
	for _, info := range infos {
		rsp = append(rsp, areaRsp{
			StartVpn:    uint64(info.Range.Start),
			EndVpn:      uint64(info.Range.End),
			Type:        info.Type.String(),
			MapType:     info.MapType.String(),
			Permission:  info.Permission.String(),
			MappedPages: info.MappedPages,
		})
	}

	bytes, err := json.Marshal(rsp)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

type allocatorRsp struct {
	TotalFrames uint64 `json:"total_frames"`
	FreeFrames  uint64 `json:"free_frames"`
	UsedFrames  uint64 `json:"used_frames"`
}

func (m *Monitor) allocatorStats(w http.ResponseWriter, _ *http.Request) {
	if m.alloc == nil {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("No allocator registered"))
		dieOnErr(err)

		return
	}

	total := m.alloc.Memory().NumFrames()
	free := m.alloc.FreeCount()
	rsp := allocatorRsp{
		TotalFrames: total,
		FreeFrames:  free,
		UsedFrames:  total - free,
	}

	bytes, err := json.Marshal(rsp)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) findSpaceOr404(
	w http.ResponseWriter,
	id string,
) *vmspace.MemorySpace {
	m.spacesLock.Lock()
	defer m.spacesLock.Unlock()

	var space *vmspace.MemorySpace
	for _, s := range m.spaces {
		if s.ID() == id {
			space = s
		}
	}

	if space == nil {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Space not found"))
		dieOnErr(err)
	}

	return space
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	bytes, err := json.Marshal(m.progressBars)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
