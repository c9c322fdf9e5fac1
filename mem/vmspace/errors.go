package vmspace

import "errors"

// ErrNoVirtualSpace reports that no free virtual range can satisfy an
// mmap or brk request. The syscall layer maps it to ENOMEM alongside
// paging.ErrFrameAllocFailed.
var ErrNoVirtualSpace = errors.New("no free virtual address range")
