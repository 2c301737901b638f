// Package rv64 implements a single-hart rv64ima interpreter capable of
// booting a no-MMU Linux kernel.
package rv64

import (
	"fmt"
)

// Privilege levels
const (
	PrivUser       uint8 = 0
	PrivSupervisor uint8 = 1
	PrivMachine    uint8 = 3
)

// ISA extension bits for misa
const (
	MisaA uint64 = 1 << 0  // Atomic
	MisaI uint64 = 1 << 8  // RV64I base
	MisaM uint64 = 1 << 12 // Multiply/Divide
)

// MXL value for misa (XLEN=64)
const MXL64 uint64 = 2

// mstatus bits
const (
	MstatusSIE  uint64 = 1 << 1
	MstatusMIE  uint64 = 1 << 3
	MstatusSPIE uint64 = 1 << 5
	MstatusMPIE uint64 = 1 << 7
	MstatusSPP  uint64 = 1 << 8
	MstatusMPP  uint64 = 3 << 11
	MstatusSUM  uint64 = 1 << 18
	MstatusMXR  uint64 = 1 << 19
)

// mstatus bit positions
const (
	MstatusSPPShift = 8
	MstatusMPPShift = 11
)

// mip/mie bits
const (
	MipSSIP uint64 = 1 << 1  // Supervisor software interrupt pending
	MipMSIP uint64 = 1 << 3  // Machine software interrupt pending
	MipSTIP uint64 = 1 << 5  // Supervisor timer interrupt pending
	MipMTIP uint64 = 1 << 7  // Machine timer interrupt pending
	MipSEIP uint64 = 1 << 9  // Supervisor external interrupt pending
	MipMEIP uint64 = 1 << 11 // Machine external interrupt pending
)

// Exception causes
const (
	CauseInsnAddrMisaligned  uint64 = 0
	CauseInsnAccessFault     uint64 = 1
	CauseIllegalInsn         uint64 = 2
	CauseBreakpoint          uint64 = 3
	CauseLoadAddrMisaligned  uint64 = 4
	CauseLoadAccessFault     uint64 = 5
	CauseStoreAddrMisaligned uint64 = 6
	CauseStoreAccessFault    uint64 = 7
	CauseEcallFromU          uint64 = 8
	CauseEcallFromS          uint64 = 9
	CauseEcallFromM          uint64 = 11
)

// Interrupt causes (with bit 63 set)
const (
	CauseSSoftwareInt uint64 = (1 << 63) | 1
	CauseMSoftwareInt uint64 = (1 << 63) | 3
	CauseSTimerInt    uint64 = (1 << 63) | 5
	CauseMTimerInt    uint64 = (1 << 63) | 7
	CauseSExternalInt uint64 = (1 << 63) | 9
	CauseMExternalInt uint64 = (1 << 63) | 11
)

// CSR addresses
const (
	CSRSstatus  uint16 = 0x100
	CSRSie      uint16 = 0x104
	CSRStvec    uint16 = 0x105
	CSRSscratch uint16 = 0x140
	CSRSepc     uint16 = 0x141
	CSRScause   uint16 = 0x142
	CSRStval    uint16 = 0x143
	CSRSip      uint16 = 0x144
	CSRMstatus  uint16 = 0x300
	CSRMisa     uint16 = 0x301
	CSRMedeleg  uint16 = 0x302
	CSRMideleg  uint16 = 0x303
	CSRMie      uint16 = 0x304
	CSRMtvec    uint16 = 0x305
	CSRMscratch uint16 = 0x340
	CSRMepc     uint16 = 0x341
	CSRMcause   uint16 = 0x342
	CSRMtval    uint16 = 0x343
	CSRMip      uint16 = 0x344
	CSRMhartid  uint16 = 0xF14
)

// CPU holds the architectural state of the single hart.
type CPU struct {
	// Integer registers x0-x31
	X [32]uint64

	// Program counter
	PC uint64

	// Current privilege level
	Priv uint8

	// CSRs - Machine mode
	Mstatus  uint64
	Misa     uint64
	Medeleg  uint64
	Mideleg  uint64
	Mie      uint64
	Mtvec    uint64
	Mscratch uint64
	Mepc     uint64
	Mcause   uint64
	Mtval    uint64
	Mip      uint64

	// CSRs - Supervisor mode (sstatus/sie/sip are views of the M CSRs)
	Stvec    uint64
	Sscratch uint64
	Sepc     uint64
	Scause   uint64
	Stval    uint64

	// Memory reservation for LR/SC
	Reservation      uint64
	ReservationValid bool

	// WFI flag - set when waiting for interrupt
	WFI bool

	// Reference to the bus for memory access
	Bus *Bus
}

// NewCPU creates a new CPU in M-mode with pc at the bus's RAM base.
func NewCPU(bus *Bus) *CPU {
	return &CPU{
		Bus:  bus,
		Priv: PrivMachine,
		Misa: (MXL64 << 62) | MisaI | MisaM | MisaA,
		PC:   bus.RAMBase,
	}
}

// Reset returns the CPU to its power-on state.
func (cpu *CPU) Reset() {
	for i := range cpu.X {
		cpu.X[i] = 0
	}
	cpu.PC = cpu.Bus.RAMBase
	cpu.Priv = PrivMachine
	cpu.Mstatus = 0
	cpu.Medeleg = 0
	cpu.Mideleg = 0
	cpu.Mie = 0
	cpu.Mtvec = 0
	cpu.Mscratch = 0
	cpu.Mepc = 0
	cpu.Mcause = 0
	cpu.Mtval = 0
	cpu.Mip = 0
	cpu.Stvec = 0
	cpu.Sscratch = 0
	cpu.Sepc = 0
	cpu.Scause = 0
	cpu.Stval = 0
	cpu.WFI = false
	cpu.ReservationValid = false
}

// ReadReg reads an integer register (x0 always returns 0).
func (cpu *CPU) ReadReg(reg uint32) uint64 {
	if reg == 0 {
		return 0
	}
	return cpu.X[reg]
}

// WriteReg writes an integer register (writes to x0 are ignored).
func (cpu *CPU) WriteReg(reg uint32, val uint64) {
	if reg != 0 {
		cpu.X[reg] = val
	}
}

// SetMip sets bits in the interrupt-pending CSR. Devices raise their
// interrupt lines through this; they never bypass the CSR.
func (cpu *CPU) SetMip(mask uint64) {
	cpu.Mip |= mask
}

// ClearMip clears bits in the interrupt-pending CSR.
func (cpu *CPU) ClearMip(mask uint64) {
	cpu.Mip &^= mask
}

// signExtend sign-extends a value from 'bits' bits to 64 bits.
func signExtend(val uint64, bits int) int64 {
	shift := 64 - bits
	return int64(val<<shift) >> shift
}

// ExceptionError represents a guest trap raised during execution. It is
// delivered through HandleTrap, never surfaced to the host.
type ExceptionError struct {
	Cause uint64
	Tval  uint64
}

func (e ExceptionError) Error() string {
	return fmt.Sprintf("exception: cause=%d tval=0x%x", e.Cause, e.Tval)
}

// Exception creates an exception with the given cause and tval.
func Exception(cause uint64, tval uint64) error {
	return ExceptionError{Cause: cause, Tval: tval}
}
