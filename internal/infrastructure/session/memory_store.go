package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bibbank/bureau-service/internal/domain/model"
	"github.com/bibbank/bureau-service/internal/domain/port"
)

// MemoryStore is a process-local port.SessionStore for development and
// single-replica deployments. Entries expire ttl after their last save and
// are swept at most once per ttl, on Save.
type MemoryStore struct {
	mu        sync.Mutex
	entries   map[string]memoryEntry
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
}

type memoryEntry struct {
	snap      model.SessionSnapshot
	expiresAt time.Time
}

var _ port.SessionStore = (*MemoryStore)(nil)

// NewMemoryStore creates a store. ttl <= 0 keeps entries forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), ttl: ttl, now: time.Now}
}

// WithClock replaces the expiry clock. Used by tests.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

// Save stores session if the stored version still equals expectedVersion.
func (s *MemoryStore) Save(_ context.Context, session model.BureauSession, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()

	id := session.TransactionID()
	cur, ok := s.live(id)
	switch {
	case !ok && expectedVersion != 0:
		return fmt.Errorf("save %s: %w", id, port.ErrSessionNotFound)
	case ok && cur.snap.Version != expectedVersion:
		return fmt.Errorf("save %s: stored version %d, expected %d: %w",
			id, cur.snap.Version, expectedVersion, port.ErrSessionConflict)
	}

	entry := memoryEntry{snap: session.Snapshot()}
	if s.ttl > 0 {
		entry.expiresAt = s.now().Add(s.ttl)
	}
	s.entries[id] = entry
	return nil
}

// FindByTransactionID returns the live session or port.ErrSessionNotFound.
func (s *MemoryStore) FindByTransactionID(_ context.Context, transactionID string) (model.BureauSession, error) {
	s.mu.Lock()
	entry, ok := s.live(transactionID)
	s.mu.Unlock()
	if !ok {
		return model.BureauSession{}, port.ErrSessionNotFound
	}
	return model.ReconstructBureauSession(entry.snap)
}

// Len reports how many entries are held, including expired ones not yet
// swept.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// sweep drops every expired entry once ttl has passed since the last sweep.
// Callers hold mu.
func (s *MemoryStore) sweep() {
	if s.ttl <= 0 {
		return
	}
	now := s.now()
	if now.Sub(s.lastSweep) < s.ttl {
		return
	}
	s.lastSweep = now
	for id, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, id)
		}
	}
}

// live returns the entry for id, evicting it when expired. Callers hold mu.
func (s *MemoryStore) live(id string) (memoryEntry, bool) {
	entry, ok := s.entries[id]
	if !ok {
		return memoryEntry{}, false
	}
	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		delete(s.entries, id)
		return memoryEntry{}, false
	}
	return entry, true
}
