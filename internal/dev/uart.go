package dev

import (
	"io"

	"github.com/sivansh11/dem/internal/rv64"
)

// UART register offsets (8250 subset)
const (
	UARTRegData = 0 // RX buffer (read) / TX holding (write)
	UARTRegLSR  = 5 // Line status
)

// LSR bits
const (
	UARTLSRDataReady = 1 << 0
	UARTLSRTHREmpty  = 1 << 5
	UARTLSRTxEmpty   = 1 << 6
)

// InputSource feeds guest-visible bytes into the UART. The host console
// and test buffers both satisfy it.
type InputSource interface {
	// Ready reports whether a byte can be read without blocking.
	Ready() bool
	// ReadByte consumes one byte; ok is false when none is available.
	ReadByte() (b byte, ok bool)
}

// UART implements the two-register 8250 subset the kernel's earlycon and
// ttyS0 drivers actually touch. Transmitted bytes go to Output unbuffered.
type UART struct {
	Output io.Writer
	Input  InputSource
}

// NewUART creates a UART. Either side may be nil.
func NewUART(output io.Writer, input InputSource) *UART {
	return &UART{Output: output, Input: input}
}

// Read implements rv64.Device.
func (u *UART) Read(offset uint64, size int) (uint64, error) {
	switch offset {
	case UARTRegData:
		if u.Input != nil {
			if b, ok := u.Input.ReadByte(); ok {
				return uint64(b), nil
			}
		}
		return 0, nil

	case UARTRegLSR:
		lsr := uint64(UARTLSRTHREmpty | UARTLSRTxEmpty)
		if u.Input != nil && u.Input.Ready() {
			lsr |= UARTLSRDataReady
		}
		return lsr, nil
	}

	return 0, nil
}

// Write implements rv64.Device.
func (u *UART) Write(offset uint64, size int, value uint64) error {
	if offset == UARTRegData && u.Output != nil {
		if _, err := u.Output.Write([]byte{byte(value)}); err != nil {
			return err
		}
	}
	return nil
}

var _ rv64.Device = (*UART)(nil)
