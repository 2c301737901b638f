package dev

import (
	"sync"

	"github.com/sivansh11/dem/internal/rv64"
)

// PLIC register offsets
const (
	PLICPriorityBase  = 0x000000 // Per-source priority, 4 bytes each
	PLICPendingBase   = 0x001000 // Pending bits, read-only
	PLICEnableBase    = 0x002000 // Enable bits, context 0
	PLICThresholdBase = 0x200000 // Context 0 threshold
	PLICClaimBase     = 0x200004 // Context 0 claim/complete
)

// Number of interrupt sources (ID 0 is reserved).
const PLICMaxSources = 1024

// PLIC implements a single-context platform-level interrupt controller.
// It never touches mip itself; the boot driver polls Deliverable once per
// instruction batch and drives MIP.MEIP.
type PLIC struct {
	mu sync.Mutex

	priority  [PLICMaxSources]uint32
	pending   [PLICMaxSources / 32]uint32
	enable    [PLICMaxSources / 32]uint32
	threshold uint32
}

// NewPLIC creates a PLIC with all sources disabled at priority 0.
func NewPLIC() *PLIC {
	return &PLIC{}
}

// SetPending marks a source as pending. This is the host-side injection
// hook; it is safe to call from any goroutine.
func (p *PLIC) SetPending(source uint32) {
	if source == 0 || source >= PLICMaxSources {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending[source/32] |= 1 << (source % 32)
}

// Deliverable reports whether any pending and enabled source sits strictly
// above the threshold.
func (p *PLIC) Deliverable() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for source := uint32(1); source < PLICMaxSources; source++ {
		if !p.eligible(source) {
			continue
		}
		if p.priority[source] > p.threshold {
			return true
		}
	}
	return false
}

// eligible reports pending && enabled. Caller holds the lock.
func (p *PLIC) eligible(source uint32) bool {
	word, bit := source/32, source%32
	return p.pending[word]&(1<<bit) != 0 && p.enable[word]&(1<<bit) != 0
}

// claim hands out the eligible source with the strictly greatest priority
// above the threshold. Ties go to the lowest ID. Claiming clears the
// pending bit. Caller holds the lock.
func (p *PLIC) claim() uint32 {
	var bestSource, bestPriority uint32

	for source := uint32(1); source < PLICMaxSources; source++ {
		if !p.eligible(source) {
			continue
		}
		prio := p.priority[source]
		if prio <= p.threshold {
			continue
		}
		if prio > bestPriority {
			bestPriority = prio
			bestSource = source
		}
	}

	if bestSource != 0 {
		p.pending[bestSource/32] &^= 1 << (bestSource % 32)
	}
	return bestSource
}

// Read implements rv64.Device.
func (p *PLIC) Read(offset uint64, size int) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case offset < PLICPendingBase:
		source := offset / 4
		if source < PLICMaxSources {
			return uint64(p.priority[source]), nil
		}

	case offset >= PLICPendingBase && offset < PLICEnableBase:
		word := (offset - PLICPendingBase) / 4
		if word < uint64(len(p.pending)) {
			return uint64(p.pending[word]), nil
		}

	case offset >= PLICEnableBase && offset < PLICThresholdBase:
		word := (offset - PLICEnableBase) / 4
		if word < uint64(len(p.enable)) {
			return uint64(p.enable[word]), nil
		}

	case offset == PLICThresholdBase:
		return uint64(p.threshold), nil

	case offset == PLICClaimBase:
		return uint64(p.claim()), nil
	}

	return 0, nil
}

// Write implements rv64.Device. The pending region is read-only; writes
// to it and to unknown offsets are ignored. Completion is a no-op since
// claiming already cleared the pending bit.
func (p *PLIC) Write(offset uint64, size int, value uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case offset < PLICPendingBase:
		source := offset / 4
		if source > 0 && source < PLICMaxSources {
			p.priority[source] = uint32(value)
		}

	case offset >= PLICEnableBase && offset < PLICThresholdBase:
		word := (offset - PLICEnableBase) / 4
		if word < uint64(len(p.enable)) {
			p.enable[word] = uint32(value)
		}

	case offset == PLICThresholdBase:
		p.threshold = uint32(value)

	case offset == PLICClaimBase:
		// Complete
	}

	return nil
}

var _ rv64.Device = (*PLIC)(nil)
