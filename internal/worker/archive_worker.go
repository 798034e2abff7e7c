package worker

import (
	"context"
	"fmt"
	"log/slog"

	"ledgerchat/internal/amqp"
	"ledgerchat/internal/archive"
	"ledgerchat/internal/core"
	applog "ledgerchat/internal/log"
)

// ArchiveWorker bridges archive events from the queue to the archive writer.
type ArchiveWorker struct {
	writer archive.Writer
}

func NewArchiveWorker(writer archive.Writer) *ArchiveWorker {
	return &ArchiveWorker{writer: writer}
}

// HandleAppendMessage archives one appended record. Errors propagate so the
// delivery is requeued.
func (w *ArchiveWorker) HandleAppendMessage(ctx context.Context, msg *amqp.RecordAppendedMessage) error {
	slog.InfoContext(ctx, "Archiving appended record",
		applog.FieldRecordID, msg.ID,
		applog.FieldAmountCents, msg.AmountCents,
		applog.FieldCategory, msg.Category)

	entry := archive.Entry{
		ID:           msg.ID,
		OriginalText: msg.OriginalText,
		Amount:       core.Money{Cents: msg.AmountCents},
		Type:         msg.Type,
		Category:     msg.Category,
		Timestamp:    msg.Timestamp,
	}
	if err := w.writer.AppendEntry(ctx, entry); err != nil {
		return fmt.Errorf("archive record %s: %w", msg.ID, err)
	}
	return nil
}

// HandleResetMessage records a reset marker.
func (w *ArchiveWorker) HandleResetMessage(ctx context.Context, msg *amqp.LedgerResetMessage) error {
	slog.InfoContext(ctx, "Archiving ledger reset", applog.FieldRecordCount, msg.Deleted)

	if err := w.writer.MarkReset(ctx, msg.Deleted, msg.Timestamp); err != nil {
		return fmt.Errorf("archive reset marker: %w", err)
	}
	return nil
}
