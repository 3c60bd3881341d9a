package envelope

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/ginjaninja78/excel-to-edi/internal/edi"
	"github.com/ginjaninja78/excel-to-edi/internal/fieldmap"
)

// State is the last-used control number per envelope level.
type State map[string]uint64

// Manager owns the process-wide control number counters, one per
// envelope level. Allocation is a single compare-and-swap, so concurrent
// generations never share a number at the same level. Numbers are never
// returned: a failed or abandoned generation consumes what it allocated.
type Manager struct {
	counters map[string]*atomic.Uint64
}

// NewManager creates a manager whose first allocation at every level is 1.
func NewManager() *Manager {
	m := &Manager{counters: make(map[string]*atomic.Uint64, len(fieldmap.Levels))}
	for _, level := range fieldmap.Levels {
		m.counters[level] = new(atomic.Uint64)
	}
	return m
}

// Allocate returns the next control number for level.
//
// PARAMETERS:
//   - level: interchange, group or transaction.
//   - width: the number of digits the profile's field holds.
//
// RETURNS:
//   - *edi.ControlNumberOverflowError when the next number has more than
//     width digits. The counter is left unchanged.
func (m *Manager) Allocate(level string, width int) (uint64, error) {
	c, ok := m.counters[strings.ToLower(level)]
	if !ok {
		return 0, fmt.Errorf("unknown envelope level %q", level)
	}
	limit := maxForWidth(width)
	for {
		last := c.Load()
		if last >= limit {
			return 0, &edi.ControlNumberOverflowError{Level: level, Width: width, Last: last}
		}
		if c.CompareAndSwap(last, last+1) {
			return last + 1, nil
		}
	}
}

// Last returns the last number allocated at level, 0 if none.
func (m *Manager) Last(level string) uint64 {
	c, ok := m.counters[strings.ToLower(level)]
	if !ok {
		return 0
	}
	return c.Load()
}

// State returns a snapshot of every counter.
func (m *Manager) State() State {
	s := make(State, len(m.counters))
	for level, c := range m.counters {
		s[level] = c.Load()
	}
	return s
}

// Restore raises counters to the persisted last-used values. A counter is
// never lowered, so restoring a stale snapshot cannot cause reuse.
func (m *Manager) Restore(s State) error {
	for level, v := range s {
		c, ok := m.counters[strings.ToLower(level)]
		if !ok {
			return fmt.Errorf("unknown envelope level %q in control number state", level)
		}
		for {
			cur := c.Load()
			if v <= cur || c.CompareAndSwap(cur, v) {
				break
			}
		}
	}
	return nil
}

// maxForWidth returns 10^width - 1, saturating at the uint64 maximum.
func maxForWidth(width int) uint64 {
	if width <= 0 || width >= 20 {
		return ^uint64(0)
	}
	n := uint64(1)
	for i := 0; i < width; i++ {
		n *= 10
	}
	return n - 1
}
