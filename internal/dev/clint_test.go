package dev

import (
	"testing"

	"github.com/sivansh11/dem/internal/rv64"
)

func newTestCLINT(t *testing.T) (*CLINT, *rv64.CPU) {
	t.Helper()
	cpu := rv64.NewCPU(rv64.NewBus(0x80000000, 4096))
	return NewCLINT(cpu), cpu
}

func TestCLINTMsip(t *testing.T) {
	clint, cpu := newTestCLINT(t)

	if err := clint.Write(CLINTMsip, 4, 1); err != nil {
		t.Fatal(err)
	}
	if cpu.Mip&rv64.MipMSIP == 0 {
		t.Errorf("MSIP not raised by msip write")
	}
	got, _ := clint.Read(CLINTMsip, 4)
	if got != 1 {
		t.Errorf("msip = %d, want 1", got)
	}

	if err := clint.Write(CLINTMsip, 4, 0); err != nil {
		t.Fatal(err)
	}
	if cpu.Mip&rv64.MipMSIP != 0 {
		t.Errorf("MSIP not cleared by msip write")
	}
}

func TestCLINTTimerInterrupt(t *testing.T) {
	clint, cpu := newTestCLINT(t)

	// mtimecmp == 0 means the timer is disarmed
	clint.AdvanceTo(100)
	if cpu.Mip&rv64.MipMTIP != 0 {
		t.Errorf("MTIP set with mtimecmp == 0")
	}

	if err := clint.Write(CLINTMtimecmp, 8, 50); err != nil {
		t.Fatal(err)
	}
	if cpu.Mip&rv64.MipMTIP == 0 {
		t.Errorf("MTIP not set when mtime already past mtimecmp")
	}

	// Pushing the deadline into the future clears MTIP
	if err := clint.Write(CLINTMtimecmp, 8, 1000); err != nil {
		t.Fatal(err)
	}
	if cpu.Mip&rv64.MipMTIP != 0 {
		t.Errorf("MTIP still set after mtimecmp moved past mtime")
	}

	clint.AdvanceTo(1000)
	if cpu.Mip&rv64.MipMTIP == 0 {
		t.Errorf("MTIP not set when mtime reached mtimecmp")
	}
}

func TestCLINTMtimeNeverRewinds(t *testing.T) {
	clint, _ := newTestCLINT(t)

	clint.AdvanceTo(500)
	clint.AdvanceTo(100)
	if clint.Mtime() != 500 {
		t.Errorf("mtime = %d, want 500", clint.Mtime())
	}
}

func TestCLINTMtimecmpHalfWrites(t *testing.T) {
	clint, _ := newTestCLINT(t)

	if err := clint.Write(CLINTMtimecmp, 4, 0xdeadbeef); err != nil {
		t.Fatal(err)
	}
	if err := clint.Write(CLINTMtimecmp+4, 4, 0x12345678); err != nil {
		t.Fatal(err)
	}
	if clint.Mtimecmp() != 0x12345678deadbeef {
		t.Errorf("mtimecmp = %#x", clint.Mtimecmp())
	}

	hi, _ := clint.Read(CLINTMtimecmp+4, 4)
	if hi != 0x12345678 {
		t.Errorf("mtimecmp high half = %#x", hi)
	}
}

func TestCLINTGuestMtimeWriteErrors(t *testing.T) {
	clint, _ := newTestCLINT(t)

	if err := clint.Write(CLINTMtime, 8, 123); err == nil {
		t.Errorf("guest write to mtime accepted")
	}
}
