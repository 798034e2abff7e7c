package ledger

import (
	"sync"

	"ledgerchat/internal/core"
)

// Feed fans full record snapshots out to subscribers. Store adapters embed
// one Feed and publish after every mutation.
//
// Each subscriber channel holds at most one pending snapshot; a newer
// snapshot replaces an unconsumed older one. A slow consumer therefore skips
// intermediate states but always converges on the latest, which is safe
// because snapshots are complete, not incremental.
type Feed struct {
	mu   sync.Mutex
	subs map[int]chan []core.Transaction
	next int
}

func NewFeed() *Feed {
	return &Feed{subs: make(map[int]chan []core.Transaction)}
}

// Subscribe registers a subscriber and returns its channel plus a cancel
// func. The caller is responsible for seeding the channel with the current
// snapshot per the ChangeFeed contract.
func (f *Feed) Subscribe() (chan []core.Transaction, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.next
	f.next++
	ch := make(chan []core.Transaction, 1)
	f.subs[id] = ch

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if sub, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers a snapshot to every subscriber, replacing any pending
// unconsumed snapshot so delivery never blocks the mutating caller.
func (f *Feed) Publish(snapshot []core.Transaction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}

// Subscribers returns the current subscriber count.
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
