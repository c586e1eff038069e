package store

import (
	"context"
	"fmt"

	"github.com/pspwatch/pspwatch/server/internal/compute"
)

const aggregateColumns = `
	COUNT(*),
	COALESCE(SUM(CASE WHEN status = 'approved' THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN status = 'declined' THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN status = 'timeout' THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN status = 'error' THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0),
	COALESCE(AVG(response_time_ms), 0)`

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanCounts(sc scanner, row *compute.AggregatedRow, lead ...any) error {
	dest := append(lead,
		&row.Total, &row.Approved, &row.Declined, &row.Timeout, &row.Error, &row.Pending, &row.AvgResponseTime)
	return sc.Scan(dest...)
}

func windowArgs(r compute.TimeRange) (string, string) {
	return formatTime(r.From), formatTime(r.To)
}

// AggregateAll returns one row per PSP with at least one transaction in r,
// ordered by PSP.
func (s *Store) AggregateAll(ctx context.Context, r compute.TimeRange) ([]compute.AggregatedRow, error) {
	from, to := windowArgs(r)
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT psp,`+aggregateColumns+`
		FROM transactions
		WHERE created_at >= ? AND created_at <= ?
		GROUP BY psp
		ORDER BY psp`), from, to)
	if err != nil {
		return nil, fmt.Errorf("store: aggregate all: %w", err)
	}
	defer rows.Close()

	var out []compute.AggregatedRow
	for rows.Next() {
		var row compute.AggregatedRow
		if err := scanCounts(rows, &row, &row.PSP); err != nil {
			return nil, fmt.Errorf("store: aggregate all: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// AggregatePSP returns the counts for one PSP over r. found is false when the
// PSP has no transactions in r.
func (s *Store) AggregatePSP(ctx context.Context, psp string, r compute.TimeRange) (compute.AggregatedRow, bool, error) {
	from, to := windowArgs(r)
	row := compute.AggregatedRow{PSP: psp}
	err := scanCounts(s.db.QueryRowContext(ctx, s.rebind(`
		SELECT`+aggregateColumns+`
		FROM transactions
		WHERE psp = ? AND created_at >= ? AND created_at <= ?`), psp, from, to), &row)
	if err != nil {
		return compute.AggregatedRow{}, false, fmt.Errorf("store: aggregate %s: %w", psp, err)
	}
	if row.Total == 0 {
		return compute.AggregatedRow{}, false, nil
	}
	return row, true, nil
}

// AggregateByMethod returns one row per payment method used by psp in r,
// ordered by payment method.
func (s *Store) AggregateByMethod(ctx context.Context, psp string, r compute.TimeRange) ([]compute.AggregatedRow, error) {
	from, to := windowArgs(r)
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT payment_method,`+aggregateColumns+`
		FROM transactions
		WHERE psp = ? AND created_at >= ? AND created_at <= ?
		GROUP BY payment_method
		ORDER BY payment_method`), psp, from, to)
	if err != nil {
		return nil, fmt.Errorf("store: aggregate %s by method: %w", psp, err)
	}
	defer rows.Close()

	var out []compute.AggregatedRow
	for rows.Next() {
		row := compute.AggregatedRow{PSP: psp}
		if err := scanCounts(rows, &row, &row.PaymentMethod); err != nil {
			return nil, fmt.Errorf("store: aggregate %s by method: %w", psp, err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// ResponseTimes returns the response times of psp's transactions in r,
// sorted ascending. An empty method selects every payment method.
func (s *Store) ResponseTimes(ctx context.Context, psp, method string, r compute.TimeRange) ([]float64, error) {
	from, to := windowArgs(r)
	query := `SELECT response_time_ms FROM transactions
		WHERE psp = ? AND created_at >= ? AND created_at <= ?`
	args := []any{psp, from, to}
	if method != "" {
		query += ` AND payment_method = ?`
		args = append(args, method)
	}
	query += ` ORDER BY response_time_ms ASC`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("store: response times %s: %w", psp, err)
	}
	defer rows.Close()

	out := []float64{}
	for rows.Next() {
		var ms int64
		if err := rows.Scan(&ms); err != nil {
			return nil, fmt.Errorf("store: response times %s: %w", psp, err)
		}
		out = append(out, float64(ms))
	}
	return out, rows.Err()
}
