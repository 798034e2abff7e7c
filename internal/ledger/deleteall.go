package ledger

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// DeleteAll removes every record currently in the store by enumerating the
// snapshot and issuing one delete per record concurrently, waiting for all
// to complete. No ordering between individual deletes is guaranteed.
//
// On partial failure the returned error reports how many deletes failed;
// deletes that already succeeded are not rolled back, so a failed reset can
// legitimately leave a partial collection behind.
func DeleteAll(ctx context.Context, store interface {
	RecordReader
	RecordDeleter
}) (deleted int, err error) {
	snapshot, err := store.Snapshot(ctx)
	if err != nil {
		return 0, fmt.Errorf("snapshot before delete: %w", err)
	}
	if len(snapshot) == 0 {
		return 0, nil
	}

	var g errgroup.Group
	results := make([]error, len(snapshot))
	for i, tx := range snapshot {
		g.Go(func() error {
			results[i] = store.Delete(ctx, tx.ID)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, res := range results {
		if res != nil {
			failed++
		}
	}
	if failed > 0 {
		return len(snapshot) - failed, fmt.Errorf("delete all: %d of %d records failed", failed, len(snapshot))
	}
	return len(snapshot), nil
}
