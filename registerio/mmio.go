package registerio

import (
	"context"
	"sync"
)

// MMIOBackend is an in-process register map used by MMIO, TOP, and TEST
// devices, and as the register surface the rest of the repo's tests
// drive the executor against. It is the register_io analogue of
// viamrobotics-rdk's fake board: just enough behavior to be useful in
// tests, nothing that pretends to be real silicon.
type MMIOBackend struct {
	mu   sync.Mutex
	regs map[uint64]uint64
}

// NewMMIOBackend returns an empty register map; unread offsets read as 0.
func NewMMIOBackend() *MMIOBackend {
	return &MMIOBackend{regs: make(map[uint64]uint64)}
}

func (m *MMIOBackend) Read(_ context.Context, offset uint64, _ int) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.regs[offset], nil
}

func (m *MMIOBackend) Write(_ context.Context, offset uint64, _ int, value uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regs[offset] = value
	return nil
}

func (m *MMIOBackend) ReadBatch(_ context.Context, offset uint64, buf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range buf {
		v := m.regs[offset+uint64(i)]
		buf[i] = byte(v)
	}
	return nil
}

func (m *MMIOBackend) WriteBatch(_ context.Context, offset uint64, buf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, b := range buf {
		m.regs[offset+uint64(i)] = uint64(b)
	}
	return nil
}

func (m *MMIOBackend) Barrier(_ context.Context, _ bool, _ bool) error {
	return nil
}
