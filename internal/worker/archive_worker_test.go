package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"ledgerchat/internal/amqp"
	"ledgerchat/internal/archive"
	"ledgerchat/internal/core"
)

type fakeArchive struct {
	entries []archive.Entry
	resets  []int
	fail    error
}

func (f *fakeArchive) AppendEntry(_ context.Context, e archive.Entry) error {
	if f.fail != nil {
		return f.fail
	}
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeArchive) MarkReset(_ context.Context, deleted int, _ time.Time) error {
	if f.fail != nil {
		return f.fail
	}
	f.resets = append(f.resets, deleted)
	return nil
}

func TestHandleAppendMessage(t *testing.T) {
	fa := &fakeArchive{}
	w := NewArchiveWorker(fa)

	msg := &amqp.RecordAppendedMessage{
		ID:           "12",
		OriginalText: "spent 500 on food",
		AmountCents:  50000,
		Type:         core.Expense,
		Category:     "Food",
		Timestamp:    time.Now().UTC(),
	}
	if err := w.HandleAppendMessage(context.Background(), msg); err != nil {
		t.Fatalf("handle append: %v", err)
	}
	if len(fa.entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(fa.entries))
	}
	e := fa.entries[0]
	if e.ID != "12" || e.Amount.Cents != 50000 || e.Type != core.Expense || e.Category != "Food" {
		t.Fatalf("entry = %+v", e)
	}
}

func TestHandleResetMessage(t *testing.T) {
	fa := &fakeArchive{}
	w := NewArchiveWorker(fa)

	msg := &amqp.LedgerResetMessage{Deleted: 9, Timestamp: time.Now().UTC()}
	if err := w.HandleResetMessage(context.Background(), msg); err != nil {
		t.Fatalf("handle reset: %v", err)
	}
	if len(fa.resets) != 1 || fa.resets[0] != 9 {
		t.Fatalf("resets = %v", fa.resets)
	}
}

func TestHandleAppendMessagePropagatesFailure(t *testing.T) {
	archiveErr := errors.New("sheet unavailable")
	w := NewArchiveWorker(&fakeArchive{fail: archiveErr})

	err := w.HandleAppendMessage(context.Background(), &amqp.RecordAppendedMessage{ID: "1"})
	if !errors.Is(err, archiveErr) {
		t.Fatalf("expected archive error to propagate for requeue, got %v", err)
	}
}
