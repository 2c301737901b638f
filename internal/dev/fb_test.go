package dev

import (
	"errors"
	"testing"

	"github.com/sivansh11/dem/internal/rv64"
)

func TestFramebufferRoundTrip(t *testing.T) {
	fb := NewFramebuffer()

	if err := fb.Write(0x10, 4, 0x00ff8040); err != nil {
		t.Fatal(err)
	}
	got, err := fb.Read(0x10, 4)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0x00ff8040 {
		t.Errorf("pixel = %#x", got)
	}

	// Little-endian layout: B, G, R, A in ascending bytes
	b, _ := fb.Read(0x10, 1)
	if b != 0x40 {
		t.Errorf("blue byte = %#x, want 0x40", b)
	}
}

func TestFramebufferSnapshot(t *testing.T) {
	fb := NewFramebuffer()

	if err := fb.Write(FBSize-8, 8, 0x1122334455667788); err != nil {
		t.Fatal(err)
	}
	dst := make([]byte, FBSize)
	fb.Snapshot(dst)
	if dst[FBSize-8] != 0x88 || dst[FBSize-1] != 0x11 {
		t.Errorf("snapshot tail = % x", dst[FBSize-8:])
	}
}

func TestFramebufferOutOfRange(t *testing.T) {
	fb := NewFramebuffer()

	if _, err := fb.Read(FBSize-2, 4); !errors.Is(err, rv64.ErrUnmapped) {
		t.Errorf("read past end: %v, want ErrUnmapped", err)
	}
	if err := fb.Write(FBSize, 1, 0); !errors.Is(err, rv64.ErrUnmapped) {
		t.Errorf("write past end: %v, want ErrUnmapped", err)
	}
}
