package dev

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/sivansh11/dem/internal/rv64"
)

// Framebuffer geometry, a8r8g8b8
const (
	FBWidth  = 600
	FBHeight = 400
	FBStride = FBWidth * 4
	FBSize   = FBStride * FBHeight
)

// Framebuffer is a plain pixel store. The guest reads and writes it like
// RAM; the display goroutine takes snapshots. Snapshot copies under a lock
// but guest stores do not take it, so a frame may show a tear. That is
// acceptable for a ~30 Hz preview.
type Framebuffer struct {
	mu  sync.Mutex
	pix [FBSize]byte
}

// NewFramebuffer creates a zeroed framebuffer.
func NewFramebuffer() *Framebuffer {
	return &Framebuffer{}
}

// Snapshot copies the current pixels.
func (f *Framebuffer) Snapshot(dst []byte) {
	f.mu.Lock()
	copy(dst, f.pix[:])
	f.mu.Unlock()
}

// Read implements rv64.Device.
func (f *Framebuffer) Read(offset uint64, size int) (uint64, error) {
	if offset+uint64(size) > FBSize {
		return 0, fmt.Errorf("%w: framebuffer read at 0x%x", rv64.ErrUnmapped, offset)
	}
	switch size {
	case 1:
		return uint64(f.pix[offset]), nil
	case 2:
		return uint64(binary.LittleEndian.Uint16(f.pix[offset:])), nil
	case 4:
		return uint64(binary.LittleEndian.Uint32(f.pix[offset:])), nil
	case 8:
		return binary.LittleEndian.Uint64(f.pix[offset:]), nil
	}
	return 0, fmt.Errorf("framebuffer: invalid read size %d", size)
}

// Write implements rv64.Device.
func (f *Framebuffer) Write(offset uint64, size int, value uint64) error {
	if offset+uint64(size) > FBSize {
		return fmt.Errorf("%w: framebuffer write at 0x%x", rv64.ErrUnmapped, offset)
	}
	switch size {
	case 1:
		f.pix[offset] = byte(value)
	case 2:
		binary.LittleEndian.PutUint16(f.pix[offset:], uint16(value))
	case 4:
		binary.LittleEndian.PutUint32(f.pix[offset:], uint32(value))
	case 8:
		binary.LittleEndian.PutUint64(f.pix[offset:], value)
	default:
		return fmt.Errorf("framebuffer: invalid write size %d", size)
	}
	return nil
}

var _ rv64.Device = (*Framebuffer)(nil)
