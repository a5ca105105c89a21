// Package feedback holds the per-call-site comparison progress map consumed
// by the mutation engine when ranking inputs.
package feedback

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// DefaultSlots is the slot count used when none is configured.
const DefaultSlots = 1 << 16

// Stats is a point-in-time view of the map counters.
type Stats struct {
	Slots        int
	Used         int    // Slots holding a non-zero score
	Reports      uint64 // Scores received
	Improvements uint64 // Scores that raised a slot's maximum
}

// CmpMap keeps the highest progress score seen per call site.
// Sites are hashed into a fixed power-of-two number of slots, so unrelated
// sites may share a slot. All methods are lock-free and safe for concurrent
// use.
type CmpMap struct {
	slots []atomic.Uint32
	mask  uint64

	used         atomic.Int64
	reports      atomic.Uint64
	improvements atomic.Uint64
}

// New creates a map with n slots. n must be a positive power of two.
func New(n int) (*CmpMap, error) {
	if n <= 0 || n&(n-1) != 0 {
		return nil, fmt.Errorf("feedback: slot count %d is not a positive power of two", n)
	}
	return &CmpMap{
		slots: make([]atomic.Uint32, n),
		mask:  uint64(n - 1),
	}, nil
}

func (m *CmpMap) index(site uint64) uint64 {
	var key [8]byte
	binary.LittleEndian.PutUint64(key[:], site)
	return xxhash.Sum64(key[:]) & m.mask
}

// Update records score for site if it exceeds the slot's current maximum.
// Negative scores are ignored.
func (m *CmpMap) Update(site uint64, score int) {
	if score < 0 {
		return
	}
	m.reports.Add(1)

	v := uint32(math.MaxUint32)
	if uint64(score) < math.MaxUint32 {
		v = uint32(score)
	}

	slot := &m.slots[m.index(site)]
	for {
		old := slot.Load()
		if v <= old {
			return
		}
		if slot.CompareAndSwap(old, v) {
			if old == 0 {
				m.used.Add(1)
			}
			m.improvements.Add(1)
			return
		}
	}
}

// Max returns the highest score recorded in site's slot.
func (m *CmpMap) Max(site uint64) uint32 {
	return m.slots[m.index(site)].Load()
}

// Snapshot copies the current slot values.
func (m *CmpMap) Snapshot() []uint32 {
	out := make([]uint32, len(m.slots))
	for i := range m.slots {
		out[i] = m.slots[i].Load()
	}
	return out
}

// Stats returns the current counters.
func (m *CmpMap) Stats() Stats {
	return Stats{
		Slots:        len(m.slots),
		Used:         int(m.used.Load()),
		Reports:      m.reports.Load(),
		Improvements: m.improvements.Load(),
	}
}

// Reset clears every slot and counter. Updates racing with Reset may survive it.
func (m *CmpMap) Reset() {
	for i := range m.slots {
		m.slots[i].Store(0)
	}
	m.used.Store(0)
	m.reports.Store(0)
	m.improvements.Store(0)
}
