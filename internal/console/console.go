// Package console wires the host terminal to the guest UART: raw-mode
// stdin on the input side, byte-at-a-time stdout on the output side.
package console

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Console is the host side of the guest serial port. Ready and ReadByte
// are called from the CPU goroutine only; both are non-blocking.
type Console struct {
	fd       int
	oldState *term.State
	eof      bool
}

// Open prepares stdin for the guest. When stdin is a terminal it is
// switched to raw mode; a pipe or file is used as-is. Restore must be
// called on every exit path.
func Open() (*Console, error) {
	c := &Console{fd: int(os.Stdin.Fd())}

	if term.IsTerminal(c.fd) {
		state, err := term.MakeRaw(c.fd)
		if err != nil {
			return nil, fmt.Errorf("enable raw mode: %w", err)
		}
		c.oldState = state
	}

	return c, nil
}

// Restore puts the terminal back into its original mode.
func (c *Console) Restore() {
	if c.oldState != nil {
		term.Restore(c.fd, c.oldState)
		c.oldState = nil
	}
}

// Ready reports whether a byte is waiting on stdin.
func (c *Console) Ready() bool {
	if c.eof {
		return false
	}
	n, err := unix.IoctlGetInt(c.fd, unix.TIOCINQ)
	return err == nil && n > 0
}

// ReadByte consumes one byte of pending input.
func (c *Console) ReadByte() (byte, bool) {
	if !c.Ready() {
		return 0, false
	}
	var buf [1]byte
	n, err := os.Stdin.Read(buf[:])
	if err != nil || n == 0 {
		c.eof = true
		return 0, false
	}
	return buf[0], true
}

// Write sends a guest TX byte to stdout. os.Stdout is unbuffered, so
// every byte is visible immediately.
func (c *Console) Write(p []byte) (int, error) {
	return os.Stdout.Write(p)
}
