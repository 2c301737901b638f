package rv64

import (
	"errors"
	"testing"
)

// recordingDevice remembers the last access it saw.
type recordingDevice struct {
	lastOffset uint64
	lastSize   int
	lastValue  uint64
	reads      int
}

func (d *recordingDevice) Read(offset uint64, size int) (uint64, error) {
	d.lastOffset, d.lastSize = offset, size
	d.reads++
	return 0x55, nil
}

func (d *recordingDevice) Write(offset uint64, size int, value uint64) error {
	d.lastOffset, d.lastSize, d.lastValue = offset, size, value
	return nil
}

func TestBusDispatchesToRegion(t *testing.T) {
	bus := NewBus(0x80000000, 4096)
	devA := &recordingDevice{}
	devB := &recordingDevice{}
	if err := bus.MapDevice(0x1000, 0x2000, devA); err != nil {
		t.Fatal(err)
	}
	if err := bus.MapDevice(0x2000, 0x3000, devB); err != nil {
		t.Fatal(err)
	}

	if _, err := bus.Read(0x1008, 4); err != nil {
		t.Fatal(err)
	}
	if devA.lastOffset != 8 || devA.lastSize != 4 {
		t.Errorf("devA saw (%#x, %d), want (0x8, 4)", devA.lastOffset, devA.lastSize)
	}
	if devB.reads != 0 {
		t.Errorf("devB received a read meant for devA")
	}

	if err := bus.Write(0x2ff0, 2, 0xbeef); err != nil {
		t.Fatal(err)
	}
	if devB.lastOffset != 0xff0 || devB.lastValue != 0xbeef {
		t.Errorf("devB saw (%#x, %#x)", devB.lastOffset, devB.lastValue)
	}
}

func TestBusRejectsOverlap(t *testing.T) {
	bus := NewBus(0x80000000, 4096)
	dev := &recordingDevice{}

	if err := bus.MapDevice(0x1000, 0x2000, dev); err != nil {
		t.Fatal(err)
	}
	if err := bus.MapDevice(0x1800, 0x2800, dev); err == nil {
		t.Errorf("overlapping region accepted")
	}
	if err := bus.MapDevice(0x80000100, 0x80000200, dev); err == nil {
		t.Errorf("region overlapping RAM accepted")
	}
}

func TestBusUnmapped(t *testing.T) {
	bus := NewBus(0x80000000, 4096)

	_, err := bus.Read(0x1000, 8)
	if !errors.Is(err, ErrUnmapped) {
		t.Errorf("read error = %v, want ErrUnmapped", err)
	}
	err = bus.Write(0x1000, 8, 1)
	if !errors.Is(err, ErrUnmapped) {
		t.Errorf("write error = %v, want ErrUnmapped", err)
	}

	// One past the end of RAM
	_, err = bus.Read(0x80000000+4096, 1)
	if !errors.Is(err, ErrUnmapped) {
		t.Errorf("read past RAM = %v, want ErrUnmapped", err)
	}
}

func TestBusHighAddressDoesNotWrap(t *testing.T) {
	bus := NewBus(0x80000000, 4096)

	// addr+size wraps past zero; the bounds check must not
	if _, err := bus.Read(^uint64(0), 1); !errors.Is(err, ErrUnmapped) {
		t.Errorf("read at top of address space = %v, want ErrUnmapped", err)
	}
	if _, err := bus.Read(^uint64(0)-3, 8); !errors.Is(err, ErrUnmapped) {
		t.Errorf("straddling read = %v, want ErrUnmapped", err)
	}
	if err := bus.Write(^uint64(0), 8, 1); !errors.Is(err, ErrUnmapped) {
		t.Errorf("write at top of address space = %v, want ErrUnmapped", err)
	}
	if _, err := bus.Fetch(^uint64(0) - 3); !errors.Is(err, ErrUnmapped) {
		t.Errorf("fetch at top of address space = %v, want ErrUnmapped", err)
	}
	if err := bus.LoadBytes(^uint64(0)-7, make([]byte, 16)); err == nil {
		t.Errorf("wrapping LoadBytes accepted")
	}

	// The last valid byte of RAM is still reachable
	if err := bus.Write8(0x80000000+4095, 0xaa); err != nil {
		t.Errorf("write to last RAM byte: %v", err)
	}
	got, err := bus.Read8(0x80000000 + 4095)
	if err != nil || got != 0xaa {
		t.Errorf("read of last RAM byte = %#x, %v", got, err)
	}
}

func TestRAMRoundTrip(t *testing.T) {
	bus := NewBus(0x80000000, 4096)

	if err := bus.Write64(0x80000010, 0x0123456789abcdef); err != nil {
		t.Fatal(err)
	}
	got, err := bus.Read64(0x80000010)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0x0123456789abcdef {
		t.Errorf("got %#x", got)
	}

	// Little-endian byte order
	lo, _ := bus.Read8(0x80000010)
	if lo != 0xef {
		t.Errorf("first byte = %#x, want 0xef", lo)
	}
}
