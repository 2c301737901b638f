package rv64

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Guest memory is little-endian.
var cpuEndian = binary.LittleEndian

// ErrUnmapped reports an access outside RAM and every MMIO region. The
// interpreter turns it into a load/store/fetch access fault; any other
// error coming out of a device is host-fatal and propagates unchanged.
var ErrUnmapped = errors.New("unmapped physical address")

// Device is a memory-mapped peripheral. Offsets are relative to the start
// of the device's region; size is 1, 2, 4 or 8. Reads may have side
// effects (UART data, PLIC claim).
type Device interface {
	Read(offset uint64, size int) (uint64, error)
	Write(offset uint64, size int, value uint64) error
}

// Region maps a device over the half-open range [Start, Stop).
type Region struct {
	Start  uint64
	Stop   uint64
	Device Device
}

// Bus is the physical address space: a flat RAM range backed by a host
// byte slice plus an ordered list of non-overlapping MMIO regions.
type Bus struct {
	RAM     []byte
	RAMBase uint64
	Regions []Region
}

// NewBus creates a bus with the given RAM placement.
func NewBus(ramBase, ramSize uint64) *Bus {
	return &Bus{
		RAM:     make([]byte, ramSize),
		RAMBase: ramBase,
	}
}

// MapDevice registers a device over [start, stop). Ranges must not
// overlap RAM or each other.
func (bus *Bus) MapDevice(start, stop uint64, dev Device) error {
	ramEnd := bus.RAMBase + uint64(len(bus.RAM))
	if start < ramEnd && stop > bus.RAMBase {
		return fmt.Errorf("mmio region [0x%x, 0x%x) overlaps RAM [0x%x, 0x%x)",
			start, stop, bus.RAMBase, ramEnd)
	}
	for _, r := range bus.Regions {
		if start < r.Stop && stop > r.Start {
			return fmt.Errorf("mmio region [0x%x, 0x%x) overlaps [0x%x, 0x%x)",
				start, stop, r.Start, r.Stop)
		}
	}
	bus.Regions = append(bus.Regions, Region{Start: start, Stop: stop, Device: dev})
	return nil
}

// findRegion locates the MMIO region containing addr.
func (bus *Bus) findRegion(addr uint64) *Region {
	for i := range bus.Regions {
		if addr >= bus.Regions[i].Start && addr < bus.Regions[i].Stop {
			return &bus.Regions[i]
		}
	}
	return nil
}

// inRAM reports whether [addr, addr+size) lies entirely within RAM. The
// comparison is phrased to avoid uint64 wraparound near the top of the
// address space.
func (bus *Bus) inRAM(addr uint64, size int) bool {
	if addr < bus.RAMBase || uint64(size) > uint64(len(bus.RAM)) {
		return false
	}
	return addr-bus.RAMBase <= uint64(len(bus.RAM))-uint64(size)
}

// Read reads size bytes from the bus, zero-extended into a uint64.
func (bus *Bus) Read(addr uint64, size int) (uint64, error) {
	if bus.inRAM(addr, size) {
		off := addr - bus.RAMBase
		switch size {
		case 1:
			return uint64(bus.RAM[off]), nil
		case 2:
			return uint64(cpuEndian.Uint16(bus.RAM[off:])), nil
		case 4:
			return uint64(cpuEndian.Uint32(bus.RAM[off:])), nil
		case 8:
			return cpuEndian.Uint64(bus.RAM[off:]), nil
		default:
			return 0, fmt.Errorf("invalid read size: %d", size)
		}
	}
	if r := bus.findRegion(addr); r != nil {
		return r.Device.Read(addr-r.Start, size)
	}
	return 0, fmt.Errorf("%w: read of 0x%x", ErrUnmapped, addr)
}

// Write writes the low size bytes of value to the bus.
func (bus *Bus) Write(addr uint64, size int, value uint64) error {
	if bus.inRAM(addr, size) {
		off := addr - bus.RAMBase
		switch size {
		case 1:
			bus.RAM[off] = byte(value)
		case 2:
			cpuEndian.PutUint16(bus.RAM[off:], uint16(value))
		case 4:
			cpuEndian.PutUint32(bus.RAM[off:], uint32(value))
		case 8:
			cpuEndian.PutUint64(bus.RAM[off:], value)
		default:
			return fmt.Errorf("invalid write size: %d", size)
		}
		return nil
	}
	if r := bus.findRegion(addr); r != nil {
		return r.Device.Write(addr-r.Start, size, value)
	}
	return fmt.Errorf("%w: write of 0x%x", ErrUnmapped, addr)
}

// Read8 reads a byte from the bus.
func (bus *Bus) Read8(addr uint64) (uint8, error) {
	val, err := bus.Read(addr, 1)
	return uint8(val), err
}

// Read16 reads a halfword from the bus.
func (bus *Bus) Read16(addr uint64) (uint16, error) {
	val, err := bus.Read(addr, 2)
	return uint16(val), err
}

// Read32 reads a word from the bus.
func (bus *Bus) Read32(addr uint64) (uint32, error) {
	val, err := bus.Read(addr, 4)
	return uint32(val), err
}

// Read64 reads a doubleword from the bus.
func (bus *Bus) Read64(addr uint64) (uint64, error) {
	return bus.Read(addr, 8)
}

// Write8 writes a byte to the bus.
func (bus *Bus) Write8(addr uint64, value uint8) error {
	return bus.Write(addr, 1, uint64(value))
}

// Write16 writes a halfword to the bus.
func (bus *Bus) Write16(addr uint64, value uint16) error {
	return bus.Write(addr, 2, uint64(value))
}

// Write32 writes a word to the bus.
func (bus *Bus) Write32(addr uint64, value uint32) error {
	return bus.Write(addr, 4, uint64(value))
}

// Write64 writes a doubleword to the bus.
func (bus *Bus) Write64(addr uint64, value uint64) error {
	return bus.Write(addr, 8, value)
}

// LoadBytes copies host bytes into guest memory. Used only at boot.
func (bus *Bus) LoadBytes(addr uint64, data []byte) error {
	if !bus.inRAM(addr, len(data)) {
		return fmt.Errorf("load of %d bytes at 0x%x outside RAM", len(data), addr)
	}
	copy(bus.RAM[addr-bus.RAMBase:], data)
	return nil
}

// Fetch reads a 4-byte instruction word.
func (bus *Bus) Fetch(addr uint64) (uint32, error) {
	val, err := bus.Read(addr, 4)
	return uint32(val), err
}
