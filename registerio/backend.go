// Package registerio is the seam between the runtime and physical
// register transports, mirroring the split viamrobotics-rdk draws
// between components/board/genericlinux/buses (the I2C/SPI interfaces)
// and the concrete sysfs/periph.io backends that implement them. The
// concrete register-access back-ends this package talks to over I2C,
// SPI, and MMIO are themselves an external collaborator per the spec;
// what lives here is the seam and an in-memory backend good enough to
// drive the executor and bus manager in tests.
package registerio

import "context"

//go:generate go run go.uber.org/mock/mockgen -destination=backend_mock.go -package=registerio . Backend

// Backend performs the physical register access for one device. Entries
// with Width <= 0 are treated as 4-byte native registers.
type Backend interface {
	Read(ctx context.Context, offset uint64, width int) (uint64, error)
	Write(ctx context.Context, offset uint64, width int, value uint64) error
	ReadBatch(ctx context.Context, offset uint64, buf []byte) error
	WriteBatch(ctx context.Context, offset uint64, buf []byte) error

	// Barrier issues a read and/or write memory barrier. Backends that
	// have no meaningful barrier (e.g. an in-memory map) may no-op.
	Barrier(ctx context.Context, read, write bool) error
}
