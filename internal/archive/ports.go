package archive

import (
	"context"
	"time"

	"ledgerchat/internal/core"
)

// Entry is one archived ledger record.
type Entry struct {
	ID           string
	OriginalText string
	Amount       core.Money
	Type         core.TxType
	Category     string
	Timestamp    time.Time
}

// Writer mirrors ledger activity to a long-term archive. The chat path never
// depends on it; failures only delay archival.
type Writer interface {
	AppendEntry(ctx context.Context, e Entry) error
	// MarkReset records that the live collection was wiped after archiving
	// deleted records, so the archive stays interpretable.
	MarkReset(ctx context.Context, deleted int, at time.Time) error
}
