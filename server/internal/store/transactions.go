package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a validated payment attempt ready for storage.
type Transaction struct {
	ID             string
	PSP            string
	PaymentMethod  string
	Amount         decimal.Decimal
	Currency       string
	Status         string
	ResponseTimeMs int64
	CreatedAt      time.Time
}

const insertSQL = `INSERT INTO transactions
	(id, psp, payment_method, amount, currency, status, response_time_ms, created_at, ingested_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO NOTHING`

func (s *Store) insertArgs(t Transaction, ingested time.Time) []any {
	return []any{
		t.ID, t.PSP, t.PaymentMethod, t.Amount.String(), t.Currency, t.Status,
		t.ResponseTimeMs, formatTime(t.CreatedAt), formatTime(ingested),
	}
}

// Insert stores one transaction. It returns ErrDuplicate if the id exists.
func (s *Store) Insert(ctx context.Context, t Transaction) error {
	res, err := s.db.ExecContext(ctx, s.rebind(insertSQL), s.insertArgs(t, s.now())...)
	if err != nil {
		return fmt.Errorf("store: insert %s: %w", t.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: insert %s: %w", t.ID, err)
	}
	if n == 0 {
		return ErrDuplicate
	}
	return nil
}

// InsertBatch stores txns in a single database transaction. Rows whose id
// already exists are skipped silently. A row that fails for any other reason
// is rolled back to its savepoint and reported in errs; the remaining rows
// are still committed. inserted counts rows actually written.
func (s *Store) InsertBatch(ctx context.Context, txns []Transaction) (inserted int, errs []string, err error) {
	errs = []string{}
	if len(txns) == 0 {
		return 0, errs, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("store: begin batch: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, s.rebind(insertSQL))
	if err != nil {
		tx.Rollback()
		return 0, nil, fmt.Errorf("store: prepare batch: %w", err)
	}
	defer stmt.Close()

	ingested := s.now()
	for _, t := range txns {
		if _, err := tx.ExecContext(ctx, "SAVEPOINT batch_row"); err != nil {
			tx.Rollback()
			return 0, nil, fmt.Errorf("store: savepoint: %w", err)
		}
		res, err := stmt.ExecContext(ctx, s.insertArgs(t, ingested)...)
		if err != nil {
			if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT batch_row"); rbErr != nil {
				tx.Rollback()
				return 0, nil, fmt.Errorf("store: rollback to savepoint: %w", rbErr)
			}
			errs = append(errs, fmt.Sprintf("Failed to insert %s: %v", t.ID, err))
			continue
		}
		if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT batch_row"); err != nil {
			tx.Rollback()
			return 0, nil, fmt.Errorf("store: release savepoint: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, nil, fmt.Errorf("store: commit batch: %w", err)
	}
	return inserted, errs, nil
}

// Count returns the total number of stored transactions.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions").Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return n, nil
}

// PurgeBefore deletes transactions created strictly before t and returns the
// number of rows removed.
func (s *Store) PurgeBefore(ctx context.Context, t time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM transactions WHERE created_at < ?"), formatTime(t))
	if err != nil {
		return 0, fmt.Errorf("store: purge: %w", err)
	}
	return res.RowsAffected()
}

// RunRetention deletes transactions older than retention every interval.
// A zero retention disables the loop. RunRetention blocks until ctx is
// cancelled.
func (s *Store) RunRetention(ctx context.Context, retention, interval time.Duration) {
	if retention <= 0 {
		return
	}
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := s.PurgeBefore(ctx, s.now().Add(-retention))
			if err != nil {
				slog.Error("store: retention sweep failed", "err", err)
				continue
			}
			if n > 0 {
				slog.Debug("store: purged expired transactions", "count", n)
			}
		}
	}
}
