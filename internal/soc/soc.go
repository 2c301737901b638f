// Package soc assembles the virtual board and boots no-MMU Linux on it:
// RAM, CLINT, PLIC, UART and framebuffer on the bus, kernel/DTB/initrd
// layout, and the timed run loop.
package soc

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/sivansh11/dem/internal/dev"
	"github.com/sivansh11/dem/internal/rv64"
)

// Device placement in the guest physical address space.
const (
	PLICBase  = 0x0c000000
	PLICSize  = 0x04000000
	UARTBase  = 0x10000000
	UARTSize  = 0x100
	CLINTBase = 0x11000000
	CLINTSize = 0x10000
	FBBase    = 0x50000000
)

// One CLINT tick is one microsecond.
const TimebaseFrequency = 1000000

// Options selects the board profile.
type Options struct {
	RAMBase uint64
	RAMSize uint64

	// EnablePLIC maps the PLIC; the initrd profile wants it, the bare
	// kernel profile does not.
	EnablePLIC bool

	// Console wiring. Either may be nil.
	Output io.Writer
	Input  dev.InputSource

	// ExtraBootargs is appended to the generated kernel command line.
	ExtraBootargs string
}

// SoC is the assembled board.
type SoC struct {
	M     *rv64.Machine
	CLINT *dev.CLINT
	PLIC  *dev.PLIC
	UART  *dev.UART
	FB    *dev.Framebuffer

	opts Options
}

// New builds the board for the given profile.
func New(opts Options) (*SoC, error) {
	m := rv64.NewMachine(opts.RAMBase, opts.RAMSize)

	s := &SoC{
		M:     m,
		CLINT: dev.NewCLINT(m.CPU),
		UART:  dev.NewUART(opts.Output, opts.Input),
		FB:    dev.NewFramebuffer(),
		opts:  opts,
	}

	if err := m.Bus.MapDevice(UARTBase, UARTBase+UARTSize, s.UART); err != nil {
		return nil, fmt.Errorf("map uart: %w", err)
	}
	if err := m.Bus.MapDevice(CLINTBase, CLINTBase+CLINTSize, s.CLINT); err != nil {
		return nil, fmt.Errorf("map clint: %w", err)
	}
	if err := m.Bus.MapDevice(FBBase, FBBase+dev.FBSize, s.FB); err != nil {
		return nil, fmt.Errorf("map framebuffer: %w", err)
	}
	if opts.EnablePLIC {
		s.PLIC = dev.NewPLIC()
		if err := m.Bus.MapDevice(PLICBase, PLICBase+PLICSize, s.PLIC); err != nil {
			return nil, fmt.Errorf("map plic: %w", err)
		}
	}

	return s, nil
}

// align8 rounds up to the next 8-byte boundary.
func align8(addr uint64) uint64 {
	return (addr + 7) &^ 7
}

// Boot places the kernel, device tree and initrd in RAM and sets the boot
// register file: x10 = hart ID 0, x11 = DTB address, pc = RAM base.
// initrd may be nil.
func (s *SoC) Boot(kernel, initrd []byte) error {
	base := s.opts.RAMBase

	if err := s.M.LoadBytes(base, kernel); err != nil {
		return fmt.Errorf("load kernel: %w", err)
	}
	slog.Info("Loaded kernel", "size", len(kernel), "addr", fmt.Sprintf("0x%x", base))

	dtbAddr := align8(base + uint64(len(kernel)))

	// The initrd address depends on the DTB size. The initrd properties
	// are fixed-size u64 values, so a sizing pass with placeholder range
	// values already has the final blob size; rebuild with the real range
	// once it is known. Without an initrd there are no such properties
	// and one pass suffices.
	var sizingStart, sizingEnd uint64
	if initrd != nil {
		sizingStart, sizingEnd = 1, 1
	}
	dtb, err := s.buildDTB(sizingStart, sizingEnd)
	if err != nil {
		return err
	}
	var initrdAddr uint64
	if initrd != nil {
		initrdAddr = align8(dtbAddr + uint64(len(dtb)))
		sized := len(dtb)
		dtb, err = s.buildDTB(initrdAddr, initrdAddr+uint64(len(initrd)))
		if err != nil {
			return err
		}
		if len(dtb) != sized {
			return fmt.Errorf("dtb size changed across rebuild: %d != %d", len(dtb), sized)
		}
	}

	if err := s.M.LoadBytes(dtbAddr, dtb); err != nil {
		return fmt.Errorf("load dtb: %w", err)
	}
	slog.Info("Loaded dtb", "size", len(dtb), "addr", fmt.Sprintf("0x%x", dtbAddr))

	if initrd != nil {
		if err := s.M.LoadBytes(initrdAddr, initrd); err != nil {
			return fmt.Errorf("load initrd: %w", err)
		}
		slog.Info("Loaded initrd", "size", len(initrd), "addr", fmt.Sprintf("0x%x", initrdAddr))
	}

	cpu := s.M.CPU
	cpu.WriteReg(10, 0)
	cpu.WriteReg(11, dtbAddr)
	cpu.PC = base

	slog.Info("Boot", "pc", fmt.Sprintf("0x%x", cpu.PC), "bootargs", s.bootargs())
	return nil
}
