package rv64

// Interrupt bits a guest may set directly through the mip CSR. MSIP, MTIP
// and MEIP are driven by the CLINT, the timer tick and the PLIC poll.
const mipWritableMask = MipSSIP | MipSTIP | MipSEIP

// Interrupt bits that may be delegated to S-mode.
const midelegMask = MipSSIP | MipSTIP | MipSEIP

// Bits of mstatus visible through the sstatus window.
const sstatusMask = MstatusSIE | MstatusSPIE | MstatusSPP | MstatusSUM | MstatusMXR

// Writable bits of mstatus.
const mstatusMask = MstatusSIE | MstatusMIE | MstatusSPIE | MstatusMPIE |
	MstatusSPP | MstatusMPP | MstatusSUM | MstatusMXR

// csrRead reads a CSR. Unimplemented CSRs read as zero.
func (cpu *CPU) csrRead(csr uint16) (uint64, error) {
	csrPriv := (csr >> 8) & 3
	if uint16(cpu.Priv) < csrPriv {
		return 0, Exception(CauseIllegalInsn, 0)
	}

	switch csr {
	// Supervisor CSRs
	case CSRSstatus:
		return cpu.Mstatus & sstatusMask, nil
	case CSRSie:
		return cpu.Mie & cpu.Mideleg, nil
	case CSRStvec:
		return cpu.Stvec, nil
	case CSRSscratch:
		return cpu.Sscratch, nil
	case CSRSepc:
		return cpu.Sepc, nil
	case CSRScause:
		return cpu.Scause, nil
	case CSRStval:
		return cpu.Stval, nil
	case CSRSip:
		return cpu.Mip & cpu.Mideleg, nil

	// Machine CSRs
	case CSRMstatus:
		return cpu.Mstatus, nil
	case CSRMisa:
		return cpu.Misa, nil
	case CSRMedeleg:
		return cpu.Medeleg, nil
	case CSRMideleg:
		return cpu.Mideleg, nil
	case CSRMie:
		return cpu.Mie, nil
	case CSRMtvec:
		return cpu.Mtvec, nil
	case CSRMscratch:
		return cpu.Mscratch, nil
	case CSRMepc:
		return cpu.Mepc, nil
	case CSRMcause:
		return cpu.Mcause, nil
	case CSRMtval:
		return cpu.Mtval, nil
	case CSRMip:
		return cpu.Mip, nil
	case CSRMhartid:
		return 0, nil

	default:
		return 0, nil
	}
}

// csrWrite writes a CSR. Unimplemented CSRs ignore writes; the read-only
// block (top two address bits set) traps.
func (cpu *CPU) csrWrite(csr uint16, val uint64) error {
	csrPriv := (csr >> 8) & 3
	if uint16(cpu.Priv) < csrPriv {
		return Exception(CauseIllegalInsn, 0)
	}
	if (csr >> 10) == 3 {
		return Exception(CauseIllegalInsn, 0)
	}

	switch csr {
	// Supervisor CSRs
	case CSRSstatus:
		cpu.Mstatus = (cpu.Mstatus &^ sstatusMask) | (val & sstatusMask)
	case CSRSie:
		cpu.Mie = (cpu.Mie &^ cpu.Mideleg) | (val & cpu.Mideleg)
	case CSRStvec:
		cpu.Stvec = val
	case CSRSscratch:
		cpu.Sscratch = val
	case CSRSepc:
		cpu.Sepc = val &^ 1
	case CSRScause:
		cpu.Scause = val
	case CSRStval:
		cpu.Stval = val
	case CSRSip:
		// Only SSIP is writable through sip
		cpu.Mip = (cpu.Mip &^ MipSSIP) | (val & MipSSIP)

	// Machine CSRs
	case CSRMstatus:
		cpu.Mstatus = (cpu.Mstatus &^ mstatusMask) | (val & mstatusMask)
	case CSRMisa:
		// Read-only in this implementation
	case CSRMedeleg:
		cpu.Medeleg = val & 0xb3ff
	case CSRMideleg:
		cpu.Mideleg = val & midelegMask
	case CSRMie:
		cpu.Mie = val & (MipSSIP | MipMSIP | MipSTIP | MipMTIP | MipSEIP | MipMEIP)
	case CSRMtvec:
		cpu.Mtvec = val
	case CSRMscratch:
		cpu.Mscratch = val
	case CSRMepc:
		cpu.Mepc = val &^ 1
	case CSRMcause:
		cpu.Mcause = val
	case CSRMtval:
		cpu.Mtval = val
	case CSRMip:
		cpu.Mip = (cpu.Mip &^ mipWritableMask) | (val & mipWritableMask)
	}

	return nil
}

// CheckInterrupt returns the cause of the highest-priority deliverable
// interrupt, if any. An interrupt is deliverable when pending and enabled,
// and the target mode's global enable permits it: M-mode interrupts are
// masked by mstatus.MIE only while in M-mode; delegated interrupts are
// masked by mstatus.SIE only while in S-mode.
func (cpu *CPU) CheckInterrupt() (bool, uint64) {
	pending := cpu.Mip & cpu.Mie
	if pending == 0 {
		return false, 0
	}

	mPending := pending &^ cpu.Mideleg
	sPending := pending & cpu.Mideleg

	if cpu.Priv == PrivMachine && cpu.Mstatus&MstatusMIE == 0 {
		mPending = 0
	}
	switch {
	case cpu.Priv == PrivMachine:
		sPending = 0
	case cpu.Priv == PrivSupervisor && cpu.Mstatus&MstatusSIE == 0:
		sPending = 0
	}

	// M-mode before S-mode; external > software > timer within each.
	for _, c := range [...]struct {
		bit   uint64
		cause uint64
	}{
		{mPending & MipMEIP, CauseMExternalInt},
		{mPending & MipMSIP, CauseMSoftwareInt},
		{mPending & MipMTIP, CauseMTimerInt},
		{sPending & MipSEIP, CauseSExternalInt},
		{sPending & MipSSIP, CauseSSoftwareInt},
		{sPending & MipSTIP, CauseSTimerInt},
	} {
		if c.bit != 0 {
			return true, c.cause
		}
	}

	return false, 0
}

// HandleTrap takes a trap (exception or interrupt) into M-mode, or into
// S-mode when delegated and the current mode is at most S.
func (cpu *CPU) HandleTrap(cause uint64, tval uint64) {
	isInterrupt := cause>>63 != 0
	code := cause &^ (1 << 63)

	// Any context-changing trap kills the LR/SC reservation.
	cpu.ReservationValid = false

	delegate := false
	if cpu.Priv <= PrivSupervisor {
		if isInterrupt {
			delegate = cpu.Mideleg&(1<<code) != 0
		} else {
			delegate = cpu.Medeleg&(1<<code) != 0
		}
	}

	if delegate {
		cpu.Sepc = cpu.PC
		cpu.Scause = cause
		cpu.Stval = tval

		if cpu.Mstatus&MstatusSIE != 0 {
			cpu.Mstatus |= MstatusSPIE
		} else {
			cpu.Mstatus &^= MstatusSPIE
		}
		cpu.Mstatus &^= MstatusSIE

		if cpu.Priv == PrivSupervisor {
			cpu.Mstatus |= MstatusSPP
		} else {
			cpu.Mstatus &^= MstatusSPP
		}
		cpu.Priv = PrivSupervisor

		if cpu.Stvec&1 == 1 && isInterrupt {
			cpu.PC = (cpu.Stvec &^ 1) + 4*code
		} else {
			cpu.PC = cpu.Stvec &^ 3
		}
		return
	}

	cpu.Mepc = cpu.PC
	cpu.Mcause = cause
	cpu.Mtval = tval

	if cpu.Mstatus&MstatusMIE != 0 {
		cpu.Mstatus |= MstatusMPIE
	} else {
		cpu.Mstatus &^= MstatusMPIE
	}
	cpu.Mstatus &^= MstatusMIE

	cpu.Mstatus &^= MstatusMPP
	cpu.Mstatus |= uint64(cpu.Priv) << MstatusMPPShift
	cpu.Priv = PrivMachine

	if cpu.Mtvec&1 == 1 && isInterrupt {
		cpu.PC = (cpu.Mtvec &^ 1) + 4*code
	} else {
		cpu.PC = cpu.Mtvec &^ 3
	}
}
