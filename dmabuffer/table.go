// Package dmabuffer stands in for the external DMA buffer-table
// collaborator spec §1 excludes from scope: an opaque per-client handle
// table the command dispatcher can enroll, allocate, and free against
// without this runtime needing to know anything about the underlying
// allocator.
package dmabuffer

import (
	"sync"

	"go.uber.org/atomic"

	"github.com/tbalden/google-modules-lwis/errcode"
)

// Handle identifies one enrolled or allocated buffer.
type Handle uint64

// Table is a client's buffer handle table, per spec §3's "a set of
// enrolled DMA-buffer handles, a set of allocated buffer handles".
type Table interface {
	Enroll(fd int64) (Handle, error)
	Disenroll(h Handle) error
	Alloc(size int) (Handle, error)
	Free(h Handle) error
	CpuAccess(h Handle) ([]byte, error)
}

type memTable struct {
	nextHandle atomic.Uint64

	mu       sync.Mutex
	buffers  map[Handle][]byte
	enrolled map[Handle]int64
}

// NewMemTable returns a Table backed by plain heap buffers — genuinely
// external per the spec, so this is intentionally the thinnest layer in
// the runtime, just enough to exercise the command dispatcher end to
// end.
func NewMemTable() Table {
	return &memTable{
		buffers:  make(map[Handle][]byte),
		enrolled: make(map[Handle]int64),
	}
}

func (t *memTable) Enroll(fd int64) (Handle, error) {
	h := Handle(t.nextHandle.Inc())
	t.mu.Lock()
	t.enrolled[h] = fd
	t.mu.Unlock()
	return h, nil
}

func (t *memTable) Disenroll(h Handle) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.enrolled[h]; !ok {
		return errcode.New("dmabuffer.Disenroll", errcode.BadFd)
	}
	delete(t.enrolled, h)
	return nil
}

func (t *memTable) Alloc(size int) (Handle, error) {
	if size <= 0 {
		return 0, errcode.New("dmabuffer.Alloc", errcode.InvalidArg)
	}
	h := Handle(t.nextHandle.Inc())
	t.mu.Lock()
	t.buffers[h] = make([]byte, size)
	t.mu.Unlock()
	return h, nil
}

func (t *memTable) Free(h Handle) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.buffers[h]; !ok {
		return errcode.New("dmabuffer.Free", errcode.BadFd)
	}
	delete(t.buffers, h)
	return nil
}

func (t *memTable) CpuAccess(h Handle) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	buf, ok := t.buffers[h]
	if !ok {
		return nil, errcode.New("dmabuffer.CpuAccess", errcode.BadFd)
	}
	return buf, nil
}
