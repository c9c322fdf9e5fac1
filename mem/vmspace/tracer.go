package vmspace

// EventKind names a space-level paging event.
type EventKind string

const (
	EventMap    EventKind = "map"
	EventUnmap  EventKind = "unmap"
	EventMmap   EventKind = "mmap"
	EventMunmap EventKind = "munmap"
	EventBrk    EventKind = "brk"
	EventFork   EventKind = "fork"
)

// Event is one observed paging operation on a memory space.
type Event struct {
	SpaceID string
	Kind    EventKind
	Vpn     uint64
	Pages   uint64
	Perm    string
}

// Tracer observes paging events. A nil tracer on a space disables
// tracing; implementations must not call back into the space.
type Tracer interface {
	RecordEvent(e Event)
}
