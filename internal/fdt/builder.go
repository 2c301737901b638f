// Package fdt builds and parses Flattened Device Tree blobs (version 17).
package fdt

import (
	"encoding/binary"
)

const (
	fdtMagic      = 0xd00dfeed
	fdtVersion    = 17
	fdtCompatible = 16

	fdtBeginNode = 0x00000001
	fdtEndNode   = 0x00000002
	fdtProp      = 0x00000003
	fdtNop       = 0x00000004
	fdtEnd       = 0x00000009
)

const fdtHeaderSize = 40

// Builder constructs a device tree blob. Nodes are emitted depth-first:
// BeginNode, properties, children, EndNode. Property name strings are
// deduplicated into the strings block.
type Builder struct {
	structure []byte
	strings   []byte
	stringOff map[string]uint32
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		stringOff: make(map[string]uint32),
	}
}

// BeginNode starts a node with the given name.
func (b *Builder) BeginNode(name string) {
	b.appendU32(fdtBeginNode)
	b.appendPadded(append([]byte(name), 0))
}

// EndNode closes the current node.
func (b *Builder) EndNode() {
	b.appendU32(fdtEndNode)
}

// propHeader emits the FDT_PROP token, value length and name offset.
func (b *Builder) propHeader(name string, length int) {
	b.appendU32(fdtProp)
	b.appendU32(uint32(length))
	b.appendU32(b.addString(name))
}

// PropString adds a NUL-terminated string property.
func (b *Builder) PropString(name, value string) {
	data := append([]byte(value), 0)
	b.propHeader(name, len(data))
	b.appendPadded(data)
}

// PropStringList adds a property of concatenated NUL-terminated strings.
func (b *Builder) PropStringList(name string, values []string) {
	var data []byte
	for _, v := range values {
		data = append(data, v...)
		data = append(data, 0)
	}
	b.propHeader(name, len(data))
	b.appendPadded(data)
}

// PropU32 adds a single-cell property.
func (b *Builder) PropU32(name string, value uint32) {
	b.propHeader(name, 4)
	b.appendU32(value)
}

// PropU32Array adds a multi-cell property.
func (b *Builder) PropU32Array(name string, values []uint32) {
	b.propHeader(name, len(values)*4)
	for _, v := range values {
		b.appendU32(v)
	}
}

// PropU64 adds a two-cell property holding one 64-bit value.
func (b *Builder) PropU64(name string, value uint64) {
	b.propHeader(name, 8)
	b.appendU32(uint32(value >> 32))
	b.appendU32(uint32(value))
}

// PropU64Pair adds a <addr size> reg-style property with two-cell fields.
func (b *Builder) PropU64Pair(name string, addr, size uint64) {
	b.PropU32Array(name, []uint32{
		uint32(addr >> 32), uint32(addr),
		uint32(size >> 32), uint32(size),
	})
}

// PropEmpty adds a zero-length boolean property.
func (b *Builder) PropEmpty(name string) {
	b.propHeader(name, 0)
}

// Build finishes the structure block and assembles the blob: 40-byte
// header, empty memory reservation map, structure block, strings block.
func (b *Builder) Build() []byte {
	b.appendU32(fdtEnd)

	memRsvOff := uint32(fdtHeaderSize)
	memRsvSize := uint32(16) // one all-zero terminator entry
	structOff := memRsvOff + memRsvSize
	structSize := uint32(len(b.structure))
	stringsOff := structOff + structSize
	stringsSize := uint32(len(b.strings))
	totalSize := stringsOff + stringsSize

	blob := make([]byte, totalSize)
	binary.BigEndian.PutUint32(blob[0:], fdtMagic)
	binary.BigEndian.PutUint32(blob[4:], totalSize)
	binary.BigEndian.PutUint32(blob[8:], structOff)
	binary.BigEndian.PutUint32(blob[12:], stringsOff)
	binary.BigEndian.PutUint32(blob[16:], memRsvOff)
	binary.BigEndian.PutUint32(blob[20:], fdtVersion)
	binary.BigEndian.PutUint32(blob[24:], fdtCompatible)
	binary.BigEndian.PutUint32(blob[28:], 0) // boot_cpuid_phys
	binary.BigEndian.PutUint32(blob[32:], stringsSize)
	binary.BigEndian.PutUint32(blob[36:], structSize)
	copy(blob[structOff:], b.structure)
	copy(blob[stringsOff:], b.strings)

	return blob
}

func (b *Builder) appendU32(v uint32) {
	b.structure = binary.BigEndian.AppendUint32(b.structure, v)
}

// appendPadded appends data to the structure block, zero-padded to the
// next 4-byte boundary.
func (b *Builder) appendPadded(data []byte) {
	b.structure = append(b.structure, data...)
	for len(b.structure)%4 != 0 {
		b.structure = append(b.structure, 0)
	}
}

// addString interns a property name into the strings block.
func (b *Builder) addString(name string) uint32 {
	if off, ok := b.stringOff[name]; ok {
		return off
	}
	off := uint32(len(b.strings))
	b.stringOff[name] = off
	b.strings = append(b.strings, name...)
	b.strings = append(b.strings, 0)
	return off
}
