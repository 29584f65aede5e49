package invoice

import (
	"fmt"
	"sync"
)

// NumberSequence hands out the next invoice sequence number for a given
// year. The store provides a database-backed implementation so that
// persisted numbers stay unique across runs and users; RunSequence is
// the run-local fallback used by one-off CLI conversions.
type NumberSequence interface {
	Next(year int) (int, error)
}

// FormatNumber renders an invoice number like "RE-2026-0001".
func FormatNumber(year, seq int) string {
	return fmt.Sprintf("RE-%d-%04d", year, seq)
}

// RunSequence is an in-memory NumberSequence. Counters start at 1 per
// year and reset with every new instance, so numbers are only unique
// within a single run.
type RunSequence struct {
	mu   sync.Mutex
	next map[int]int
}

// NewRunSequence creates a fresh run-local sequence.
func NewRunSequence() *RunSequence {
	return &RunSequence{next: make(map[int]int)}
}

// Next returns the next sequence number for the year.
func (s *RunSequence) Next(year int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next[year]++
	return s.next[year], nil
}
