package payment

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestStoreUpsertCreatesPendingRecord(t *testing.T) {
	s := NewStore()

	rec := s.Upsert("cs_1", func(rec *Record) {})
	if rec.SessionID != "cs_1" {
		t.Fatalf("SessionID = %q, want %q", rec.SessionID, "cs_1")
	}
	if rec.Status != StatusPending {
		t.Fatalf("Status = %q, want %q", rec.Status, StatusPending)
	}
	if rec.LastEventAt.IsZero() {
		t.Fatalf("LastEventAt should be stamped on creation")
	}

	got, ok := s.Get("cs_1")
	if !ok {
		t.Fatalf("Get() should find the record")
	}
	if got != rec {
		t.Fatalf("Get() = %+v, want %+v", got, rec)
	}
}

func TestStoreUpsertIsAtomicPerKey(t *testing.T) {
	s := NewStore()
	const writers = 50

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Upsert("cs_1", func(rec *Record) {
				rec.AmountTotal++
			})
		}()
	}
	wg.Wait()

	got, ok := s.Get("cs_1")
	if !ok {
		t.Fatalf("record missing after concurrent upserts")
	}
	if got.AmountTotal != writers {
		t.Fatalf("AmountTotal = %d, want %d (lost update)", got.AmountTotal, writers)
	}
}

func TestStoreConcurrentSessionsAreIsolated(t *testing.T) {
	s := NewStore()
	const sessions = 20
	const writesPerSession = 25

	var wg sync.WaitGroup
	for i := 0; i < sessions; i++ {
		id := fmt.Sprintf("cs_%d", i)
		for j := 0; j < writesPerSession; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.Upsert(id, func(rec *Record) {
					rec.AmountTotal++
					rec.Currency = id
				})
			}()
		}
	}
	wg.Wait()

	if s.Len() != sessions {
		t.Fatalf("Len() = %d, want %d", s.Len(), sessions)
	}
	for i := 0; i < sessions; i++ {
		id := fmt.Sprintf("cs_%d", i)
		got, ok := s.Get(id)
		if !ok {
			t.Fatalf("record for %s missing", id)
		}
		if got.AmountTotal != writesPerSession {
			t.Fatalf("%s AmountTotal = %d, want %d", id, got.AmountTotal, writesPerSession)
		}
		if got.Currency != id {
			t.Fatalf("%s Currency = %q, cross-session corruption", id, got.Currency)
		}
	}
}

func TestStoreLastEventAtNeverMovesBackwards(t *testing.T) {
	s := NewStore()
	later := time.Now().UTC().Add(time.Hour)

	s.Upsert("cs_1", func(rec *Record) {
		rec.LastEventAt = later
	})
	s.Upsert("cs_1", func(rec *Record) {
		rec.LastEventAt = later.Add(-30 * time.Minute)
	})

	got, _ := s.Get("cs_1")
	if !got.LastEventAt.Equal(later) {
		t.Fatalf("LastEventAt = %v, want clamped to %v", got.LastEventAt, later)
	}
}

func TestStoreRemove(t *testing.T) {
	s := NewStore()
	s.Upsert("cs_1", func(rec *Record) {})

	if !s.Remove("cs_1") {
		t.Fatalf("Remove() = false, want true for existing record")
	}
	if s.Remove("cs_1") {
		t.Fatalf("Remove() = true, want false once removed")
	}
	if _, ok := s.Get("cs_1"); ok {
		t.Fatalf("Get() should miss after Remove()")
	}
}

func TestStoreEvictOlderThan(t *testing.T) {
	s := NewStore()
	now := time.Now().UTC()

	s.Upsert("cs_old", func(rec *Record) {
		rec.LastEventAt = now.Add(-2 * time.Hour)
	})
	s.Upsert("cs_fresh", func(rec *Record) {
		rec.LastEventAt = now.Add(-10 * time.Minute)
	})

	evicted := s.EvictOlderThan(now.Add(-time.Hour))
	if len(evicted) != 1 || evicted[0] != "cs_old" {
		t.Fatalf("evicted = %v, want [cs_old]", evicted)
	}
	if _, ok := s.Get("cs_fresh"); !ok {
		t.Fatalf("fresh record should survive eviction")
	}
}
