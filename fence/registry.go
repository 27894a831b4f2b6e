package fence

import (
	"sync"

	"go.uber.org/atomic"

	"github.com/tbalden/google-modules-lwis/errcode"
	"github.com/tbalden/google-modules-lwis/internal/rlog"
)

// Registry hands out fence fds and looks them up, standing in for the
// anonymous-inode fd table the kernel driver gets for free.
type Registry struct {
	log    rlog.Logger
	nextFD atomic.Int64
	mu     sync.Mutex
	fences map[int64]*Fence
}

func NewRegistry(log rlog.Logger) *Registry {
	if log == nil {
		log = rlog.NewNop()
	}
	return &Registry{log: log, fences: make(map[int64]*Fence)}
}

// Create allocates a brand new, unsignaled fence and returns its fd.
func (r *Registry) Create() *Fence {
	fd := r.nextFD.Inc()
	f := newFence(fd, r.log.Named("fence"))
	r.mu.Lock()
	r.fences[fd] = f
	r.mu.Unlock()
	return f
}

// Lookup resolves an fd to its Fence, or errcode.BadFd.
func (r *Registry) Lookup(fd int64) (*Fence, error) {
	r.mu.Lock()
	f, ok := r.fences[fd]
	r.mu.Unlock()
	if !ok {
		return nil, errcode.New("fence.Lookup", errcode.BadFd)
	}
	return f, nil
}

// Release removes fd from the table and drops the registry's own
// reference to the fence; the fence itself stays usable by any holder
// of another reference.
func (r *Registry) Release(fd int64) error {
	r.mu.Lock()
	f, ok := r.fences[fd]
	if ok {
		delete(r.fences, fd)
	}
	r.mu.Unlock()
	if !ok {
		return errcode.New("fence.Release", errcode.BadFd)
	}
	f.Unref()
	return nil
}
