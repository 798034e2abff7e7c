package ledger

import (
	"context"

	"ledgerchat/internal/core"
)

// Ports for the document store holding the transaction log.
type (
	RecordWriter interface {
		// Append persists a new record, assigning the server-side ordering
		// key, and returns the store reference of the created record.
		Append(ctx context.Context, tx core.Transaction) (id string, err error)
	}

	RecordDeleter interface {
		Delete(ctx context.Context, id string) error
	}

	// RecordReader returns the full current set of live records ordered by
	// timestamp descending, ties broken by insertion order.
	RecordReader interface {
		Snapshot(ctx context.Context) ([]core.Transaction, error)
	}

	// ChangeFeed delivers full snapshots, not diffs. Subscribe fires
	// immediately with the current state, then on every subsequent change.
	// The returned cancel func tears the subscription down.
	ChangeFeed interface {
		Subscribe(ctx context.Context) (<-chan []core.Transaction, func(), error)
	}

	Store interface {
		RecordWriter
		RecordDeleter
		RecordReader
		ChangeFeed
	}
)
