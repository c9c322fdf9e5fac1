package paging

import "errors"

// Sentinel errors returned by Table operations. Callers branch with
// errors.Is; backends wrap them with address context via fmt.Errorf.
var (
	// ErrNotMapped reports a lookup or removal aimed at a page that has
	// no valid leaf.
	ErrNotMapped = errors.New("page not mapped")
	// ErrAlreadyMapped reports a map over a page that already has a
	// valid leaf.
	ErrAlreadyMapped = errors.New("page already mapped")
	// ErrInvalidAddress reports an address outside the translatable
	// range or misaligned for the requested page size.
	ErrInvalidAddress = errors.New("invalid address")
	// ErrHugePageConflict reports a walk blocked by a huge leaf at an
	// intermediate level, or a huge map blocked by an existing subtree.
	ErrHugePageConflict = errors.New("huge page conflict")
	// ErrInvalidFlags reports leaf flags without any of read, write or
	// execute.
	ErrInvalidFlags = errors.New("invalid page flags")
	// ErrFrameAllocFailed reports physical frame exhaustion while
	// building table structure or backing storage.
	ErrFrameAllocFailed = errors.New("frame allocation failed")
)
