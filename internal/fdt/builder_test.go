package fdt

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestBuildParseRoundTrip(t *testing.T) {
	b := NewBuilder()
	b.BeginNode("")
	b.PropString("compatible", "test,board")
	b.PropU32("#address-cells", 2)

	b.BeginNode("chosen")
	b.PropString("bootargs", "console=ttyS0")
	b.PropU64("linux,initrd-start", 0x80010000)
	b.EndNode()

	b.BeginNode("memory@80000000")
	b.PropU64Pair("reg", 0x80000000, 0x40000000)
	b.PropString("device_type", "memory")
	b.EndNode()

	b.BeginNode("cpu@0")
	b.PropStringList("compatible", []string{"riscv", "generic"})
	b.PropEmpty("interrupt-controller")
	b.PropU32Array("interrupts-extended", []uint32{1, 11})
	b.EndNode()

	b.EndNode()
	blob := b.Build()

	root, err := Parse(blob)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if s, ok := root.PropString("compatible"); !ok || s != "test,board" {
		t.Errorf("compatible = %q, %v", s, ok)
	}
	if v, ok := root.PropU32("#address-cells"); !ok || v != 2 {
		t.Errorf("#address-cells = %d, %v", v, ok)
	}

	chosen := root.Lookup("/chosen")
	if chosen == nil {
		t.Fatalf("no /chosen node")
	}
	if s, _ := chosen.PropString("bootargs"); s != "console=ttyS0" {
		t.Errorf("bootargs = %q", s)
	}
	if v, ok := chosen.PropU64("linux,initrd-start"); !ok || v != 0x80010000 {
		t.Errorf("initrd-start = %#x, %v", v, ok)
	}

	mem := root.Lookup("/memory@80000000")
	if mem == nil {
		t.Fatalf("no memory node")
	}
	cells, ok := mem.PropCells("reg")
	if !ok {
		t.Fatalf("memory has no reg")
	}
	want := []uint32{0, 0x80000000, 0, 0x40000000}
	for i, c := range want {
		if cells[i] != c {
			t.Errorf("reg[%d] = %#x, want %#x", i, cells[i], c)
		}
	}

	cpu := root.Lookup("/cpu@0")
	if cpu == nil {
		t.Fatalf("no cpu node")
	}
	if v, ok := cpu.Prop("compatible"); !ok || !bytes.Equal(v, []byte("riscv\x00generic\x00")) {
		t.Errorf("string list = %q", v)
	}
	if v, ok := cpu.Prop("interrupt-controller"); !ok || len(v) != 0 {
		t.Errorf("empty prop = %v, %v", v, ok)
	}
	if cells, _ := cpu.PropCells("interrupts-extended"); len(cells) != 2 || cells[0] != 1 || cells[1] != 11 {
		t.Errorf("interrupts-extended = %v", cells)
	}
}

func TestBuildHeader(t *testing.T) {
	b := NewBuilder()
	b.BeginNode("")
	b.EndNode()
	blob := b.Build()

	if magic := binary.BigEndian.Uint32(blob[0:]); magic != 0xd00dfeed {
		t.Errorf("magic = %#x", magic)
	}
	if total := binary.BigEndian.Uint32(blob[4:]); total != uint32(len(blob)) {
		t.Errorf("totalsize = %d, blob is %d bytes", total, len(blob))
	}
	if version := binary.BigEndian.Uint32(blob[20:]); version != 17 {
		t.Errorf("version = %d, want 17", version)
	}
	if compat := binary.BigEndian.Uint32(blob[24:]); compat != 16 {
		t.Errorf("last_comp_version = %d, want 16", compat)
	}
	// Reservation map is a single all-zero terminator entry
	rsvOff := binary.BigEndian.Uint32(blob[16:])
	for i := rsvOff; i < rsvOff+16; i++ {
		if blob[i] != 0 {
			t.Errorf("rsvmap byte %d = %#x, want 0", i, blob[i])
		}
	}
}

func TestPropNamesInterned(t *testing.T) {
	b := NewBuilder()
	b.BeginNode("")
	b.PropU32("reg", 1)
	b.BeginNode("child")
	b.PropU32("reg", 2)
	b.EndNode()
	b.EndNode()
	blob := b.Build()

	stringsOff := binary.BigEndian.Uint32(blob[12:])
	stringsSize := binary.BigEndian.Uint32(blob[32:])
	if got := bytes.Count(blob[stringsOff:stringsOff+stringsSize], []byte("reg\x00")); got != 1 {
		t.Errorf("strings block holds %d copies of \"reg\", want 1", got)
	}
}

func TestLookupMissing(t *testing.T) {
	b := NewBuilder()
	b.BeginNode("")
	b.EndNode()
	root, err := Parse(b.Build())
	if err != nil {
		t.Fatal(err)
	}
	if n := root.Lookup("/soc/uart@10000000"); n != nil {
		t.Errorf("lookup of missing path returned %v", n)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse([]byte{1, 2, 3}); err == nil {
		t.Errorf("short blob accepted")
	}
	blob := make([]byte, 64)
	binary.BigEndian.PutUint32(blob, 0xfeedface)
	if _, err := Parse(blob); err == nil {
		t.Errorf("bad magic accepted")
	}
}
