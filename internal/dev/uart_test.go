package dev

import (
	"bytes"
	"testing"
)

// byteQueue is a deterministic InputSource for tests.
type byteQueue struct {
	data []byte
}

func (q *byteQueue) Ready() bool { return len(q.data) > 0 }

func (q *byteQueue) ReadByte() (byte, bool) {
	if len(q.data) == 0 {
		return 0, false
	}
	b := q.data[0]
	q.data = q.data[1:]
	return b, true
}

func TestUARTInput(t *testing.T) {
	in := &byteQueue{data: []byte{'A'}}
	uart := NewUART(nil, in)

	lsr, err := uart.Read(UARTRegLSR, 1)
	if err != nil {
		t.Fatal(err)
	}
	if lsr != 0x61 {
		t.Errorf("lsr = %#x, want 0x61 with input ready", lsr)
	}

	got, err := uart.Read(UARTRegData, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got != 'A' {
		t.Errorf("data = %#x, want 'A'", got)
	}

	// Queue drained
	lsr, _ = uart.Read(UARTRegLSR, 1)
	if lsr != 0x60 {
		t.Errorf("lsr = %#x, want 0x60 with no input", lsr)
	}
	got, _ = uart.Read(UARTRegData, 1)
	if got != 0 {
		t.Errorf("data on empty queue = %#x, want 0", got)
	}
}

func TestUARTOutput(t *testing.T) {
	var out bytes.Buffer
	uart := NewUART(&out, nil)

	for _, b := range []byte("Bok") {
		if err := uart.Write(UARTRegData, 1, uint64(b)); err != nil {
			t.Fatal(err)
		}
	}
	if out.String() != "Bok" {
		t.Errorf("output = %q, want %q", out.String(), "Bok")
	}
}

func TestUARTNilSides(t *testing.T) {
	uart := NewUART(nil, nil)

	lsr, err := uart.Read(UARTRegLSR, 1)
	if err != nil {
		t.Fatal(err)
	}
	if lsr != 0x60 {
		t.Errorf("lsr = %#x, want 0x60", lsr)
	}
	if err := uart.Write(UARTRegData, 1, 'x'); err != nil {
		t.Errorf("write with nil output: %v", err)
	}
}
