package fdt

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Node is a parsed device tree node.
type Node struct {
	Name     string
	Props    []Prop
	Children []*Node
}

// Prop is a raw property value.
type Prop struct {
	Name  string
	Value []byte
}

// Parse decodes a device tree blob back into a node tree.
func Parse(blob []byte) (*Node, error) {
	if len(blob) < fdtHeaderSize {
		return nil, fmt.Errorf("fdt: blob too short (%d bytes)", len(blob))
	}
	if magic := binary.BigEndian.Uint32(blob[0:]); magic != fdtMagic {
		return nil, fmt.Errorf("fdt: bad magic 0x%08x", magic)
	}
	totalSize := binary.BigEndian.Uint32(blob[4:])
	if uint32(len(blob)) < totalSize {
		return nil, fmt.Errorf("fdt: blob shorter than totalsize (%d < %d)", len(blob), totalSize)
	}
	structOff := binary.BigEndian.Uint32(blob[8:])
	stringsOff := binary.BigEndian.Uint32(blob[12:])
	structSize := binary.BigEndian.Uint32(blob[36:])
	if version := binary.BigEndian.Uint32(blob[20:]); version != fdtVersion {
		return nil, fmt.Errorf("fdt: unsupported version %d", version)
	}

	p := &parser{
		structure: blob[structOff : structOff+structSize],
		strings:   blob[stringsOff:totalSize],
	}
	return p.parse()
}

type parser struct {
	structure []byte
	strings   []byte
	pos       int
}

func (p *parser) parse() (*Node, error) {
	tok, err := p.token()
	if err != nil {
		return nil, err
	}
	if tok != fdtBeginNode {
		return nil, fmt.Errorf("fdt: expected root FDT_BEGIN_NODE, got 0x%x", tok)
	}
	root, err := p.node()
	if err != nil {
		return nil, err
	}
	tok, err = p.token()
	if err != nil {
		return nil, err
	}
	if tok != fdtEnd {
		return nil, fmt.Errorf("fdt: expected FDT_END, got 0x%x", tok)
	}
	return root, nil
}

// node parses a node body after its FDT_BEGIN_NODE token.
func (p *parser) node() (*Node, error) {
	name, err := p.nodeName()
	if err != nil {
		return nil, err
	}
	n := &Node{Name: name}

	for {
		tok, err := p.token()
		if err != nil {
			return nil, err
		}
		switch tok {
		case fdtProp:
			prop, err := p.prop()
			if err != nil {
				return nil, err
			}
			n.Props = append(n.Props, prop)
		case fdtBeginNode:
			child, err := p.node()
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, child)
		case fdtEndNode:
			return n, nil
		case fdtNop:
		default:
			return nil, fmt.Errorf("fdt: unexpected token 0x%x in node %q", tok, name)
		}
	}
}

func (p *parser) token() (uint32, error) {
	if p.pos+4 > len(p.structure) {
		return 0, fmt.Errorf("fdt: truncated structure block")
	}
	tok := binary.BigEndian.Uint32(p.structure[p.pos:])
	p.pos += 4
	return tok, nil
}

func (p *parser) nodeName() (string, error) {
	end := p.pos
	for end < len(p.structure) && p.structure[end] != 0 {
		end++
	}
	if end == len(p.structure) {
		return "", fmt.Errorf("fdt: unterminated node name")
	}
	name := string(p.structure[p.pos:end])
	p.pos = align4(end + 1)
	return name, nil
}

func (p *parser) prop() (Prop, error) {
	if p.pos+8 > len(p.structure) {
		return Prop{}, fmt.Errorf("fdt: truncated property header")
	}
	length := binary.BigEndian.Uint32(p.structure[p.pos:])
	nameOff := binary.BigEndian.Uint32(p.structure[p.pos+4:])
	p.pos += 8

	if p.pos+int(length) > len(p.structure) {
		return Prop{}, fmt.Errorf("fdt: truncated property value")
	}
	value := p.structure[p.pos : p.pos+int(length)]
	p.pos = align4(p.pos + int(length))

	name, err := p.stringAt(nameOff)
	if err != nil {
		return Prop{}, err
	}
	return Prop{Name: name, Value: value}, nil
}

func (p *parser) stringAt(off uint32) (string, error) {
	if int(off) >= len(p.strings) {
		return "", fmt.Errorf("fdt: string offset 0x%x out of range", off)
	}
	end := int(off)
	for end < len(p.strings) && p.strings[end] != 0 {
		end++
	}
	return string(p.strings[off:end]), nil
}

func align4(n int) int {
	return (n + 3) &^ 3
}

// Lookup walks a /-separated path of node names from this node.
func (n *Node) Lookup(path string) *Node {
	cur := n
	for _, part := range strings.Split(strings.Trim(path, "/"), "/") {
		if part == "" {
			continue
		}
		var next *Node
		for _, child := range cur.Children {
			if child.Name == part {
				next = child
				break
			}
		}
		if next == nil {
			return nil
		}
		cur = next
	}
	return cur
}

// Prop returns a property's raw value.
func (n *Node) Prop(name string) ([]byte, bool) {
	for _, p := range n.Props {
		if p.Name == name {
			return p.Value, true
		}
	}
	return nil, false
}

// PropString returns a property interpreted as a NUL-terminated string.
func (n *Node) PropString(name string) (string, bool) {
	v, ok := n.Prop(name)
	if !ok || len(v) == 0 || v[len(v)-1] != 0 {
		return "", false
	}
	return string(v[:len(v)-1]), true
}

// PropU32 returns a single-cell property.
func (n *Node) PropU32(name string) (uint32, bool) {
	v, ok := n.Prop(name)
	if !ok || len(v) != 4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(v), true
}

// PropU64 returns a two-cell property as one 64-bit value.
func (n *Node) PropU64(name string) (uint64, bool) {
	v, ok := n.Prop(name)
	if !ok || len(v) != 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(v), true
}

// PropCells returns a property as big-endian 32-bit cells.
func (n *Node) PropCells(name string) ([]uint32, bool) {
	v, ok := n.Prop(name)
	if !ok || len(v)%4 != 0 {
		return nil, false
	}
	cells := make([]uint32, len(v)/4)
	for i := range cells {
		cells[i] = binary.BigEndian.Uint32(v[i*4:])
	}
	return cells, true
}
