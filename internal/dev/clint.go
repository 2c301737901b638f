// Package dev implements the memory-mapped peripherals of the virtual
// board: CLINT, PLIC, UART and framebuffer.
package dev

import (
	"fmt"

	"github.com/sivansh11/dem/internal/rv64"
)

// CLINT register offsets
const (
	CLINTMsip     = 0x0000 // Machine software interrupt pending
	CLINTMtimecmp = 0x4000 // Machine timer compare
	CLINTMtime    = 0xbff8 // Machine time (read-only)
)

// CLINT implements the core-local interruptor. mtime does not free-run:
// the boot driver advances it between instruction batches, one tick per
// microsecond of host monotonic time.
type CLINT struct {
	cpu *rv64.CPU

	msip     uint32
	mtime    uint64
	mtimecmp uint64
}

// NewCLINT creates a CLINT wired to the hart's mip CSR.
func NewCLINT(cpu *rv64.CPU) *CLINT {
	return &CLINT{cpu: cpu}
}

// Mtime returns the current timer value.
func (c *CLINT) Mtime() uint64 { return c.mtime }

// Mtimecmp returns the current timer compare value.
func (c *CLINT) Mtimecmp() uint64 { return c.mtimecmp }

// AdvanceTo moves mtime forward and re-evaluates the timer interrupt.
// The timer never goes backwards.
func (c *CLINT) AdvanceTo(mtime uint64) {
	if mtime > c.mtime {
		c.mtime = mtime
	}
	c.updateMTIP()
}

// updateMTIP keeps MIP.MTIP equal to (mtimecmp != 0 && mtime >= mtimecmp).
func (c *CLINT) updateMTIP() {
	if c.mtimecmp != 0 && c.mtime >= c.mtimecmp {
		c.cpu.SetMip(rv64.MipMTIP)
	} else {
		c.cpu.ClearMip(rv64.MipMTIP)
	}
}

// Read implements rv64.Device.
func (c *CLINT) Read(offset uint64, size int) (uint64, error) {
	switch {
	case offset >= CLINTMsip && offset < CLINTMsip+4:
		return uint64(c.msip), nil
	case offset >= CLINTMtimecmp && offset < CLINTMtimecmp+8:
		if size == 4 && offset == CLINTMtimecmp+4 {
			return c.mtimecmp >> 32, nil
		}
		return c.mtimecmp, nil
	case offset >= CLINTMtime && offset < CLINTMtime+8:
		if size == 4 && offset == CLINTMtime+4 {
			return c.mtime >> 32, nil
		}
		return c.mtime, nil
	}
	return 0, nil
}

// Write implements rv64.Device. A guest write to mtime is not supported
// and takes the emulator down.
func (c *CLINT) Write(offset uint64, size int, value uint64) error {
	switch {
	case offset >= CLINTMsip && offset < CLINTMsip+4:
		if value&1 != 0 {
			c.msip = 1
			c.cpu.SetMip(rv64.MipMSIP)
		} else {
			c.msip = 0
			c.cpu.ClearMip(rv64.MipMSIP)
		}

	case offset >= CLINTMtimecmp && offset < CLINTMtimecmp+8:
		if size == 4 {
			if offset == CLINTMtimecmp {
				c.mtimecmp = (c.mtimecmp &^ 0xffffffff) | (value & 0xffffffff)
			} else {
				c.mtimecmp = (c.mtimecmp & 0xffffffff) | (value << 32)
			}
		} else {
			c.mtimecmp = value
		}
		c.updateMTIP()

	case offset >= CLINTMtime && offset < CLINTMtime+8:
		return fmt.Errorf("clint: guest write to mtime (offset 0x%x)", offset)
	}

	return nil
}

var _ rv64.Device = (*CLINT)(nil)
