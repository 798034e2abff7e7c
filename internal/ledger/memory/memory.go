package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"ledgerchat/internal/core"
	"ledgerchat/internal/ledger"
)

// Store is an in-memory document store with full-snapshot change
// subscriptions. It is the default backend and the test double for the
// SQLite store; both honor the same ordering and subscription contract.
type Store struct {
	mu      sync.Mutex
	records []core.Transaction
	nextSeq int64
	lastTS  time.Time
	feed    *ledger.Feed
}

func New() *Store {
	return &Store{feed: ledger.NewFeed()}
}

// Append stores the record with a server-assigned monotonic timestamp and
// returns a synthetic document reference.
func (s *Store) Append(_ context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSeq++
	ts := time.Now().UTC()
	if !ts.After(s.lastTS) {
		// Keep the ordering key strictly monotonic even within one clock tick.
		ts = s.lastTS.Add(time.Microsecond)
	}
	s.lastTS = ts

	tx.ID = fmt.Sprintf("mem:%d", s.nextSeq)
	tx.Seq = s.nextSeq
	tx.Timestamp = ts
	s.records = append(s.records, tx)

	s.feed.Publish(s.orderedLocked())
	return tx.ID, nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	found := false
	for _, tx := range s.records {
		if tx.ID == id {
			found = true
			continue
		}
		kept = append(kept, tx)
	}
	s.records = kept
	if !found {
		return fmt.Errorf("record %s not found", id)
	}

	s.feed.Publish(s.orderedLocked())
	return nil
}

// Snapshot returns all live records, timestamp descending.
func (s *Store) Snapshot(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orderedLocked(), nil
}

// Subscribe implements ledger.ChangeFeed: the current snapshot is delivered
// immediately, then a fresh one after every mutation. Seeding happens under
// the store lock so no mutation can slip between subscribe and seed.
func (s *Store) Subscribe(_ context.Context) (<-chan []core.Transaction, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, cancel := s.feed.Subscribe()
	ch <- s.orderedLocked()
	return ch, cancel, nil
}

// Len returns the current record count.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *Store) orderedLocked() []core.Transaction {
	out := append([]core.Transaction(nil), s.records...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].Seq > out[j].Seq
	})
	return out
}
