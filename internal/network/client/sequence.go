package client

import "sync"

// verdict is what the read pump does with an incoming frame.
type verdict int

const (
	deliver verdict = iota
	drop
	resync // drop, and ask the server for everything after since
)

// sequencer keeps the event stream gapless and duplicate free. It starts
// tracking at the first JOIN_OK and is re-anchored by every SNAPSHOT.
type sequencer struct {
	mu        sync.Mutex
	anchored  bool
	lastSeq   int64
	resyncing bool
}

// anchor resets the stream to seq, the state a JOIN_OK or SNAPSHOT reflects.
func (s *sequencer) anchor(seq int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.anchored = true
	s.lastSeq = seq
	s.resyncing = false
}

// observe classifies an event frame. A gap asks for one resync; frames
// after it are dropped until the replay closes the gap.
func (s *sequencer) observe(seq int64) (verdict, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.anchored || seq == 0 {
		return deliver, 0
	}
	switch {
	case seq <= s.lastSeq:
		return drop, 0
	case seq == s.lastSeq+1:
		s.lastSeq = seq
		s.resyncing = false
		return deliver, 0
	}
	if s.resyncing {
		return drop, 0
	}
	s.resyncing = true
	return resync, s.lastSeq
}

func (s *sequencer) last() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeq
}
