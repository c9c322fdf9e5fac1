package datarecording

import "github.com/polyarch/vmem/mem/vmspace"

// PagingEventTable is the table holding recorded paging events.
const PagingEventTable = "paging_events"

// PagingRecorder persists the paging events of memory spaces. It plugs
// into a space through the vmspace.Tracer seam.
type PagingRecorder struct {
	rec DataRecorder
}

var _ vmspace.Tracer = (*PagingRecorder)(nil)

// NewPagingRecorder creates the event table and returns a recorder
// writing into rec.
func NewPagingRecorder(rec DataRecorder) *PagingRecorder {
	rec.CreateTable(PagingEventTable, vmspace.Event{})

	return &PagingRecorder{rec: rec}
}

// RecordEvent buffers one paging event.
func (r *PagingRecorder) RecordEvent(e vmspace.Event) {
	r.rec.InsertData(PagingEventTable, e)
}

// Flush writes buffered events to the database.
func (r *PagingRecorder) Flush() {
	r.rec.Flush()
}
