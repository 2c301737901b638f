package rv64

import (
	"errors"
	"fmt"
)

// Machine ties the hart to its bus and runs the fetch/execute loop.
type Machine struct {
	CPU *CPU
	Bus *Bus

	// Total retired instructions
	InsnCount uint64
}

// NewMachine creates a machine with RAM at [ramBase, ramBase+ramSize).
func NewMachine(ramBase, ramSize uint64) *Machine {
	bus := NewBus(ramBase, ramSize)
	return &Machine{
		CPU: NewCPU(bus),
		Bus: bus,
	}
}

// Reset returns the machine to its power-on state.
func (m *Machine) Reset() {
	m.CPU.Reset()
	m.InsnCount = 0
}

// LoadBytes loads data into guest RAM at the given physical address.
func (m *Machine) LoadBytes(addr uint64, data []byte) error {
	return m.Bus.LoadBytes(addr, data)
}

// Step runs up to n instructions and returns the number retired. The batch
// ends early when the hart executes WFI with no deliverable interrupt; the
// caller decides how long to sleep. A non-nil error is host-fatal.
func (m *Machine) Step(n int) (int, error) {
	cpu := m.CPU
	retired := 0

	for i := 0; i < n; i++ {
		if pending, cause := cpu.CheckInterrupt(); pending {
			cpu.WFI = false
			cpu.HandleTrap(cause, 0)
		} else if cpu.WFI {
			return retired, nil
		}

		pc := cpu.PC

		if pc&3 != 0 {
			cpu.HandleTrap(CauseInsnAddrMisaligned, pc)
			continue
		}

		insn, err := m.Bus.Fetch(pc)
		if err != nil {
			if errors.Is(err, ErrUnmapped) {
				cpu.HandleTrap(CauseInsnAccessFault, pc)
				continue
			}
			return retired, fmt.Errorf("fetch at pc=0x%x: %w", pc, err)
		}

		if err := cpu.Execute(insn); err != nil {
			var exc ExceptionError
			if errors.As(err, &exc) {
				cpu.PC = pc
				cpu.HandleTrap(exc.Cause, exc.Tval)
				continue
			}
			return retired, fmt.Errorf("execute at pc=0x%x: %w", pc, err)
		}

		// Retire: advance past the instruction unless it wrote pc
		if cpu.PC == pc {
			cpu.PC += 4
		}
		retired++
		m.InsnCount++
	}

	return retired, nil
}
