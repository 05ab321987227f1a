// Package storage keeps the per-room replay log of sequenced event frames.
package storage

import (
	"context"
	"sync"
)

// Record is one sequenced frame. Frame is the JSON-encoded message.
type Record struct {
	Seq   int64
	Frame []byte
}

// ReplayLog retains the most recent frames of each room so reconnecting
// clients can catch up without a full snapshot. Seqs within a room are
// appended in increasing order.
type ReplayLog interface {
	// Append stores recs as one batch.
	Append(ctx context.Context, room string, recs ...Record) error
	// Since returns the retained records with Seq > seq, oldest first.
	Since(ctx context.Context, room string, seq int64) ([]Record, error)
	Clear(ctx context.Context, room string) error
}

// MemoryLog is a bounded in-process ReplayLog.
type MemoryLog struct {
	mu    sync.Mutex
	size  int
	rooms map[string][]Record
}

// NewMemoryLog keeps up to size records per room.
func NewMemoryLog(size int) *MemoryLog {
	if size <= 0 {
		size = 1
	}
	return &MemoryLog{size: size, rooms: make(map[string][]Record)}
}

func (m *MemoryLog) Append(_ context.Context, room string, recs ...Record) error {
	if len(recs) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := append(m.rooms[room], recs...)
	if over := len(kept) - m.size; over > 0 {
		kept = append(kept[:0:0], kept[over:]...)
	}
	m.rooms[room] = kept
	return nil
}

func (m *MemoryLog) Since(_ context.Context, room string, seq int64) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	recs := m.rooms[room]
	for i, r := range recs {
		if r.Seq > seq {
			return append([]Record(nil), recs[i:]...), nil
		}
	}
	return nil, nil
}

func (m *MemoryLog) Clear(_ context.Context, room string) error {
	m.mu.Lock()
	delete(m.rooms, room)
	m.mu.Unlock()
	return nil
}
