// Package ledger records media ids deleted as part of an upgrade so the
// re-download that follows is not processed a second time.
package ledger

import (
	"sync"
	"time"
)

// DefaultCapacity is the number of entries retained before the oldest are
// evicted.
const DefaultCapacity = 100

// Ledger is a bounded record of recently upgrade-deleted media identifiers.
//
// RecordDeletion is insert-or-replace: recording an id already present
// refreshes its recency so it is the last to be evicted. WasRecentlyDeleted
// is a pure membership check and never mutates ordering.
type Ledger interface {
	RecordDeletion(mediaID int64) error
	WasRecentlyDeleted(mediaID int64) (bool, error)
}

type entry struct {
	mediaID    int64
	insertedAt time.Time
}

// Memory is an in-process Ledger guarded by a mutex. Entries are ordered
// oldest-first; capacity eviction drops from the front.
type Memory struct {
	mu       sync.Mutex
	capacity int
	entries  []entry
}

// NewMemory creates an in-memory ledger. A capacity of zero or less falls
// back to DefaultCapacity.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Memory{capacity: capacity}
}

// RecordDeletion inserts or refreshes the entry for mediaID.
func (m *Memory) RecordDeletion(mediaID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, e := range m.entries {
		if e.mediaID == mediaID {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			break
		}
	}
	m.entries = append(m.entries, entry{mediaID: mediaID, insertedAt: time.Now()})
	if len(m.entries) > m.capacity {
		m.entries = m.entries[len(m.entries)-m.capacity:]
	}
	return nil
}

// WasRecentlyDeleted reports whether mediaID has a live entry.
func (m *Memory) WasRecentlyDeleted(mediaID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.entries {
		if e.mediaID == mediaID {
			return true, nil
		}
	}
	return false, nil
}

// Len returns the number of live entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
