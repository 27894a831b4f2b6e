package registerio

import (
	"context"
	"encoding/binary"

	"periph.io/x/conn/v3/spi"
)

// SPIBackend drives a periph.io spi.Conn the way
// viamrobotics-rdk/components/board/genericlinux's spiHandle.Xfer does:
// a single half-duplex transaction per call, register address as the
// first byte of the transfer.
type SPIBackend struct {
	Conn spi.Conn
}

func NewSPIBackend(conn spi.Conn) *SPIBackend {
	return &SPIBackend{Conn: conn}
}

func (s *SPIBackend) xfer(tx []byte) ([]byte, error) {
	rx := make([]byte, len(tx))
	if err := s.Conn.Tx(tx, rx); err != nil {
		return nil, err
	}
	return rx, nil
}

func (s *SPIBackend) Read(_ context.Context, offset uint64, width int) (uint64, error) {
	if width <= 0 {
		width = 4
	}
	tx := make([]byte, 1+width)
	tx[0] = byte(offset) | 0x80 // high bit marks a read, matching common SPI register conventions
	rx, err := s.xfer(tx)
	if err != nil {
		return 0, err
	}
	buf := make([]byte, 8)
	copy(buf, rx[1:])
	return binary.LittleEndian.Uint64(buf), nil
}

func (s *SPIBackend) Write(_ context.Context, offset uint64, width int, value uint64) error {
	if width <= 0 {
		width = 4
	}
	tx := make([]byte, 1+width)
	tx[0] = byte(offset) & 0x7f
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, value)
	copy(tx[1:], buf[:width])
	_, err := s.xfer(tx)
	return err
}

func (s *SPIBackend) ReadBatch(_ context.Context, offset uint64, out []byte) error {
	tx := make([]byte, 1+len(out))
	tx[0] = byte(offset) | 0x80
	rx, err := s.xfer(tx)
	if err != nil {
		return err
	}
	copy(out, rx[1:])
	return nil
}

func (s *SPIBackend) WriteBatch(_ context.Context, offset uint64, in []byte) error {
	tx := make([]byte, 1+len(in))
	tx[0] = byte(offset) & 0x7f
	copy(tx[1:], in)
	_, err := s.xfer(tx)
	return err
}

func (s *SPIBackend) Barrier(_ context.Context, _ bool, _ bool) error {
	return nil
}
