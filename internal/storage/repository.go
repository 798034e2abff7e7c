package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"ledgerchat/internal/core"
	"ledgerchat/internal/ledger"
	applog "ledgerchat/internal/log"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the durable document-store backend. It implements the same
// append / delete / snapshot / subscribe contract as the in-memory store:
// every mutation re-queries the full ordered snapshot and publishes it to
// subscribers, so consumers always see complete state, never diffs.
type SQLiteStore struct {
	db *sql.DB

	mu     sync.Mutex // serializes mutations with snapshot publication
	lastTS int64
	feed   *ledger.Feed
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{
		db:   db,
		feed: ledger.NewFeed(),
	}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Append implements ledger.RecordWriter. The ordering key is assigned here
// from the store clock, strictly monotonic across appends.
func (s *SQLiteStore) Append(ctx context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ts := time.Now().UTC().UnixNano()
	if ts <= s.lastTS {
		ts = s.lastTS + 1
	}
	s.lastTS = ts

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (original_text, amount_cents, tx_type, category, created_at_ns)
		 VALUES (?, ?, ?, ?, ?)`,
		tx.OriginalText, tx.Amount.Cents, string(tx.Type), tx.Category, ts)
	if err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("last insert id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		applog.FieldRecordID, id,
		applog.FieldAmountCents, tx.Amount.Cents,
		applog.FieldTxType, string(tx.Type),
		applog.FieldCategory, tx.Category)

	s.publishLocked(ctx)
	return strconv.FormatInt(id, 10), nil
}

// Delete implements ledger.RecordDeleter.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	rowID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return fmt.Errorf("parse record id %q: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, rowID)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", rowID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("record %s not found", id)
	}

	s.publishLocked(ctx)
	return nil
}

// Snapshot implements ledger.RecordReader: newest first, ties by insertion order.
func (s *SQLiteStore) Snapshot(ctx context.Context) ([]core.Transaction, error) {
	return s.query(ctx)
}

// Subscribe implements ledger.ChangeFeed.
func (s *SQLiteStore) Subscribe(ctx context.Context) (<-chan []core.Transaction, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.query(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("initial snapshot: %w", err)
	}
	ch, cancel := s.feed.Subscribe()
	ch <- current
	return ch, cancel, nil
}

func (s *SQLiteStore) publishLocked(ctx context.Context) {
	snapshot, err := s.query(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to build change snapshot", applog.FieldError, err)
		return
	}
	s.feed.Publish(snapshot)
}

func (s *SQLiteStore) query(ctx context.Context) ([]core.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, original_text, amount_cents, tx_type, category, created_at_ns
		 FROM transactions
		 ORDER BY created_at_ns DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			id    int64
			tx    core.Transaction
			typ   string
			tsNS  int64
			cents int64
		)
		if err := rows.Scan(&id, &tx.OriginalText, &cents, &typ, &tx.Category, &tsNS); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.ID = strconv.FormatInt(id, 10)
		tx.Seq = id
		tx.Amount = core.Money{Cents: cents}
		tx.Type = core.TxType(typ)
		tx.Timestamp = time.Unix(0, tsNS).UTC()
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}
