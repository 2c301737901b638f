package rv64

import (
	"testing"
)

// execRR runs one register-register instruction with a0 and a1 as inputs
// and returns a2.
func execRR(t *testing.T, insn uint32, a0, a1 uint64) uint64 {
	t.Helper()
	cpu := NewCPU(NewBus(0, 4096))
	cpu.X[10] = a0
	cpu.X[11] = a1
	if err := cpu.Execute(insn); err != nil {
		t.Fatalf("execute %#08x: %v", insn, err)
	}
	return cpu.X[12]
}

func TestALU(t *testing.T) {
	const intMin64 = 1 << 63

	tests := []struct {
		name string
		insn uint32 // op a2, a0, a1
		a0   uint64
		a1   uint64
		want uint64
	}{
		{"add", 0x00b50633, 10, 3, 13},
		{"sub", 0x40b50633, 10, 3, 7},
		{"and", 0x00b57633, 10, 3, 2},
		{"or", 0x00b56633, 10, 3, 11},
		{"xor", 0x00b54633, 10, 3, 9},
		{"slt true", 0x00b52633, ^uint64(0), 1, 1},
		{"sltu false", 0x00b53633, ^uint64(0), 1, 0},

		// Shift amounts use only the low 6 bits (5 for W forms)
		{"sll masked", 0x00b51633, 1, 64 + 3, 8},
		{"srl masked", 0x00b55633, 0x100, 64 + 4, 0x10},
		{"sra sign", 0x40b55633, uint64(1) << 63, 63, ^uint64(0)},
		{"sllw masked", 0x00b5163b, 1, 32 + 3, 8},
		{"sraw", 0x40b5563b, 0x80000000, 31, ^uint64(0)},

		// W forms sign-extend their 32-bit result
		{"addw overflow", 0x00b5063b, 0x7fffffff, 1, 0xffffffff80000000},
		{"subw", 0x40b5063b, 0, 1, ^uint64(0)},

		// M extension
		{"mul", 0x02b50633, 7, 6, 42},
		{"mulh -1*-1", 0x02b51633, ^uint64(0), ^uint64(0), 0},
		{"mulh min*min", 0x02b51633, intMin64, intMin64, 1 << 62},
		{"mulhu", 0x02b53633, intMin64, 2, 1},
		{"mulhsu -1*2", 0x02b52633, ^uint64(0), 2, ^uint64(0)},
		{"mulw", 0x02b5063b, 0x10000, 0x10000, 0}, // low 32 bits are 0

		// Division edge cases
		{"div by zero", 0x02b54633, 42, 0, ^uint64(0)},
		{"divu by zero", 0x02b55633, 42, 0, ^uint64(0)},
		{"rem by zero", 0x02b56633, 42, 0, 42},
		{"remu by zero", 0x02b57633, 42, 0, 42},
		{"div overflow", 0x02b54633, intMin64, ^uint64(0), intMin64},
		{"rem overflow", 0x02b56633, intMin64, ^uint64(0), 0},
		{"div", 0x02b54633, ^uint64(6), 2, ^uint64(2)}, // -7/2 = -3
		{"rem", 0x02b56633, ^uint64(6), 2, ^uint64(0)}, // -7%2 = -1
		{"divw by zero", 0x02b5463b, 42, 0, ^uint64(0)},
		{"remw by zero", 0x02b5663b, 0xffffffff80000001, 0, 0xffffffff80000001},
		{"divw overflow", 0x02b5463b, 0x80000000, 0xffffffff, 0xffffffff80000000},
		{"remw overflow", 0x02b5663b, 0x80000000, 0xffffffff, 0},
		{"divuw", 0x02b5563b, 0xffffffff, 2, 0x7fffffff},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := execRR(t, tt.insn, tt.a0, tt.a1); got != tt.want {
				t.Errorf("got %#x, want %#x", got, tt.want)
			}
		})
	}
}

func TestImmediateShifts(t *testing.T) {
	cpu := NewCPU(NewBus(0, 4096))

	cpu.X[10] = 1
	if err := cpu.Execute(0x03f51613); err != nil { // slli a2, a0, 63
		t.Fatal(err)
	}
	if cpu.X[12] != 1<<63 {
		t.Errorf("slli 63 = %#x, want 1<<63", cpu.X[12])
	}

	cpu.X[10] = 1 << 63
	if err := cpu.Execute(0x40155613); err != nil { // srai a2, a0, 1
		t.Fatal(err)
	}
	if cpu.X[12] != 0xc000000000000000 {
		t.Errorf("srai = %#x, want 0xc000000000000000", cpu.X[12])
	}
}

func TestAddiwSignExtends(t *testing.T) {
	cpu := NewCPU(NewBus(0, 4096))

	cpu.X[10] = 0x100000000 // high bits must be ignored
	if err := cpu.Execute(0xfff5061b); err != nil { // addiw a2, a0, -1
		t.Fatal(err)
	}
	if cpu.X[12] != ^uint64(0) {
		t.Errorf("addiw = %#x, want all-ones", cpu.X[12])
	}
}

func TestJalLinksAndJumps(t *testing.T) {
	cpu := NewCPU(NewBus(0, 4096))
	cpu.PC = 0x100

	// jal x1, +0x20
	if err := cpu.Execute(0x020000ef); err != nil {
		t.Fatal(err)
	}
	if cpu.X[1] != 0x104 {
		t.Errorf("link = %#x, want 0x104", cpu.X[1])
	}
	if cpu.PC != 0x120 {
		t.Errorf("pc = %#x, want 0x120", cpu.PC)
	}
}

func TestJalrClearsBit0(t *testing.T) {
	cpu := NewCPU(NewBus(0, 4096))
	cpu.PC = 0x100
	cpu.X[10] = 0x201

	// jalr x1, 0(a0)
	if err := cpu.Execute(0x000500e7); err != nil {
		t.Fatal(err)
	}
	if cpu.PC != 0x200 {
		t.Errorf("pc = %#x, want 0x200", cpu.PC)
	}
}

func TestFenceIsNop(t *testing.T) {
	cpu := NewCPU(NewBus(0, 4096))
	if err := cpu.Execute(0x0ff0000f); err != nil { // fence
		t.Errorf("fence: %v", err)
	}
	if err := cpu.Execute(0x0000100f); err != nil { // fence.i
		t.Errorf("fence.i: %v", err)
	}
}
