package soc

import (
	"context"
	"fmt"
	"time"

	"github.com/sivansh11/dem/internal/rv64"
)

// Batch sizing for the run loop.
const (
	minBatch = 1
	maxBatch = 100000

	// Instructions per throughput-estimation window.
	batchQuota = 1000

	// WFI sleeps in short slices so console input and cancellation are
	// noticed promptly.
	wfiSlice = time.Millisecond
)

// Run executes the guest until the context is cancelled. Between batches
// it advances mtime from the host monotonic clock (one tick per
// microsecond), re-evaluates MTIP, and re-evaluates MEIP from the PLIC.
// Batches are sized from a smoothed instructions-per-microsecond estimate
// so the hart does not overshoot a pending timer deadline by much.
func (s *SoC) Run(ctx context.Context) error {
	boot := time.Now()
	mtimeNow := func() uint64 {
		return uint64(time.Since(boot) / time.Microsecond)
	}

	cpu := s.M.CPU
	ips := uint64(1) // retired instructions per microsecond, smoothed

	for ctx.Err() == nil {
		windowStart := time.Now()
		var retired uint64

		for retired < batchQuota {
			if ctx.Err() != nil {
				return nil
			}

			batch := uint64(10)
			if cmp, mt := s.CLINT.Mtimecmp(), s.CLINT.Mtime(); cmp > mt {
				batch = (cmp - mt) * ips
				if batch < minBatch {
					batch = minBatch
				}
				if batch > maxBatch {
					batch = maxBatch
				}
			}

			if !cpu.WFI {
				n, err := s.M.Step(int(batch))
				if err != nil {
					return fmt.Errorf("run: %w", err)
				}
				retired += uint64(n)
			} else {
				// A pending interrupt is delivered here; otherwise the
				// hart stays parked and we sleep towards the deadline.
				if _, err := s.M.Step(1); err != nil {
					return fmt.Errorf("run: %w", err)
				}
				if cpu.WFI {
					s.sleepWFI(ctx, mtimeNow)
				}
			}

			s.CLINT.AdvanceTo(mtimeNow())
			if s.PLIC != nil {
				if s.PLIC.Deliverable() {
					cpu.SetMip(rv64.MipMEIP)
				} else {
					cpu.ClearMip(rv64.MipMEIP)
				}
			}
		}

		if elapsed := uint64(time.Since(windowStart) / time.Microsecond); elapsed > 0 && retired > 0 {
			ips = (ips*8 + (retired/elapsed)*2) / 10
			if ips == 0 {
				ips = 1
			}
		}
	}

	return nil
}

// sleepWFI naps a parked hart. With a timer deadline ahead it sleeps up
// to the deadline in short slices; without one it sleeps a single slice.
// Console input and cancellation end the nap early.
func (s *SoC) sleepWFI(ctx context.Context, mtimeNow func() uint64) {
	for ctx.Err() == nil {
		if s.opts.Input != nil && s.opts.Input.Ready() {
			return
		}

		s.CLINT.AdvanceTo(mtimeNow())
		cmp, mt := s.CLINT.Mtimecmp(), s.CLINT.Mtime()

		slice := wfiSlice
		if cmp != 0 {
			if mt >= cmp {
				return // deadline reached, MTIP is up
			}
			if left := time.Duration(cmp-mt) * time.Microsecond; left < slice {
				slice = left
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(slice):
		}

		if cmp == 0 {
			return // no deadline, just yield one slice at a time
		}
	}
}
