package sequence

import "sync/atomic"

// Sequencer issues the strictly monotonic heights that order IDs are
// derived from. It is deterministic and replay-safe: the engine persists
// the last issued height with every transition and re-seeds on startup.
type Sequencer struct {
	next atomic.Uint64
}

// New creates a sequencer. start is 0 on a fresh store, or the last
// persisted value when re-seeding after a restart.
func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.next.Store(start)
	return s
}

// Next returns the next height.
func (s *Sequencer) Next() uint64 {
	return s.next.Add(1)
}
