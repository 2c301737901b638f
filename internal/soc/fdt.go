package soc

import (
	"fmt"

	"github.com/sivansh11/dem/internal/dev"
	"github.com/sivansh11/dem/internal/fdt"
)

// Phandles referenced by interrupts-extended properties.
const (
	intcPhandle = 1
	plicPhandle = 2
)

// The kernel refuses DTBs it cannot place; cap the blob at 64 KiB.
const maxDTBSize = 64 * 1024

// bootargs builds the kernel command line. The earlycon clock must match
// timebase-frequency or early output is garbled.
func (s *SoC) bootargs() string {
	args := fmt.Sprintf("earlycon=uart8250,mmio,0x%x,%d console=ttyS0",
		uint64(UARTBase), uint64(TimebaseFrequency))
	if s.opts.ExtraBootargs != "" {
		args += " " + s.opts.ExtraBootargs
	}
	return args
}

// buildDTB produces the device tree blob describing the board. An initrd
// range of (0, 0) on a PLIC-less profile means no initrd properties.
func (s *SoC) buildDTB(initrdStart, initrdEnd uint64) ([]byte, error) {
	b := fdt.NewBuilder()

	b.BeginNode("")
	b.PropString("compatible", "riscv-minimal-nommu")
	b.PropString("model", "riscv-minimal-nommu,dem")
	b.PropU32("#address-cells", 2)
	b.PropU32("#size-cells", 2)

	b.BeginNode("chosen")
	b.PropString("bootargs", s.bootargs())
	if initrdStart != 0 || initrdEnd != 0 {
		b.PropU64("linux,initrd-start", initrdStart)
		b.PropU64("linux,initrd-end", initrdEnd)
	}
	b.EndNode()

	b.BeginNode(fmt.Sprintf("memory@%x", s.opts.RAMBase))
	b.PropString("device_type", "memory")
	b.PropU64Pair("reg", s.opts.RAMBase, s.opts.RAMSize)
	b.EndNode()

	b.BeginNode("cpus")
	b.PropU32("#address-cells", 1)
	b.PropU32("#size-cells", 0)
	b.PropU32("timebase-frequency", TimebaseFrequency)
	b.BeginNode("cpu@0")
	b.PropString("device_type", "cpu")
	b.PropU32("reg", 0)
	b.PropString("status", "okay")
	b.PropString("compatible", "riscv")
	b.PropString("riscv,isa", "rv64ima")
	b.PropString("mmu-type", "riscv,none")
	b.BeginNode("interrupt-controller")
	b.PropU32("#interrupt-cells", 1)
	b.PropEmpty("interrupt-controller")
	b.PropString("compatible", "riscv,cpu-intc")
	b.PropU32("phandle", intcPhandle)
	b.EndNode()
	b.EndNode()
	b.EndNode()

	b.BeginNode("soc")
	b.PropU32("#address-cells", 2)
	b.PropU32("#size-cells", 2)
	b.PropString("compatible", "simple-bus")
	b.PropEmpty("ranges")

	if s.PLIC != nil {
		b.BeginNode(fmt.Sprintf("plic@%x", uint64(PLICBase)))
		b.PropU64Pair("reg", PLICBase, PLICSize)
		b.PropStringList("compatible", []string{"sifive,plic-1.0.0", "riscv,plic0"})
		b.PropU32("#interrupt-cells", 1)
		b.PropEmpty("interrupt-controller")
		b.PropU32("riscv,ndev", 32)
		b.PropU32Array("interrupts-extended", []uint32{intcPhandle, 11})
		b.PropU32("phandle", plicPhandle)
		b.EndNode()
	}

	b.BeginNode(fmt.Sprintf("uart@%x", uint64(UARTBase)))
	b.PropU32("clock-frequency", TimebaseFrequency)
	b.PropU64Pair("reg", UARTBase, UARTSize)
	b.PropString("compatible", "ns16550a")
	b.EndNode()

	b.BeginNode(fmt.Sprintf("clint@%x", uint64(CLINTBase)))
	b.PropU64Pair("reg", CLINTBase, CLINTSize)
	b.PropStringList("compatible", []string{"sifive,clint0", "riscv,clint0"})
	b.PropU32Array("interrupts-extended", []uint32{intcPhandle, 3, intcPhandle, 7})
	b.EndNode()

	b.BeginNode(fmt.Sprintf("framebuffer@%x", uint64(FBBase)))
	b.PropString("compatible", "simple-framebuffer")
	b.PropU64Pair("reg", FBBase, dev.FBSize)
	b.PropU32("width", dev.FBWidth)
	b.PropU32("height", dev.FBHeight)
	b.PropU32("stride", dev.FBStride)
	b.PropString("format", "a8r8g8b8")
	b.EndNode()

	b.EndNode() // soc
	b.EndNode() // root

	blob := b.Build()
	if len(blob) > maxDTBSize {
		return nil, fmt.Errorf("dtb: blob is %d bytes, limit %d", len(blob), maxDTBSize)
	}
	return blob, nil
}
