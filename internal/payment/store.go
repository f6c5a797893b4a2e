package payment

import (
	"sync"
	"time"
)

// Store is the authoritative in-memory map from session identifier to its
// latest status record. All methods are safe for concurrent use; Upsert is
// the single serialization point per key, so two concurrent events for the
// same session can never interleave into a corrupted record.
type Store struct {
	mu      sync.RWMutex
	records map[string]*Record
}

func NewStore() *Store {
	return &Store{records: make(map[string]*Record)}
}

// Upsert atomically applies mutate to the session's record, creating a
// pending record first if none exists. The mutator always observes the
// latest prior state, and its result is what becomes visible next.
// LastEventAt never moves backwards across writes for the same session.
func (s *Store) Upsert(sessionID string, mutate func(*Record)) Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, existed := s.records[sessionID]
	if !existed {
		rec = &Record{
			SessionID:   sessionID,
			Status:      StatusPending,
			LastEventAt: time.Now().UTC(),
		}
		s.records[sessionID] = rec
	}

	prevEventAt := rec.LastEventAt
	mutate(rec)
	rec.SessionID = sessionID
	if existed && rec.LastEventAt.Before(prevEventAt) {
		rec.LastEventAt = prevEventAt
	}
	return *rec
}

// Get returns a copy of the session's record, if any.
func (s *Store) Get(sessionID string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[sessionID]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Remove deletes the session's record and reports whether one existed.
func (s *Store) Remove(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[sessionID]
	delete(s.records, sessionID)
	return ok
}

// EvictOlderThan removes every record whose LastEventAt is before cutoff and
// returns the evicted session identifiers.
func (s *Store) EvictOlderThan(cutoff time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted []string
	for id, rec := range s.records {
		if rec.LastEventAt.Before(cutoff) {
			delete(s.records, id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}

// Len reports the number of tracked sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
