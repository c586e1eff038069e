package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pspwatch/pspwatch/pkg/types"
	"github.com/pspwatch/pspwatch/server/internal/events"
	"github.com/pspwatch/pspwatch/server/internal/store"
)

// Writer is the write side of the transaction store.
type Writer interface {
	Insert(ctx context.Context, t store.Transaction) error
	InsertBatch(ctx context.Context, txns []store.Transaction) (inserted int, errs []string, err error)
}

// TransactionEvent is the payload of an events.TypeTransaction event.
type TransactionEvent struct {
	ID             string `json:"id"`
	PSP            string `json:"psp"`
	PaymentMethod  string `json:"payment_method"`
	Status         string `json:"status"`
	ResponseTimeMs int64  `json:"response_time_ms"`
	CreatedAt      string `json:"created_at"`
}

// Service ingests transactions.
type Service struct {
	store Writer
	bus   events.Bus
}

// NewService returns a Service writing to st. bus may be nil.
func NewService(st Writer, bus events.Bus) *Service {
	return &Service{store: st, bus: bus}
}

// Single validates and stores one transaction, returning its id. Errors are
// a *ValidationError, store.ErrDuplicate, or a storage failure.
func (s *Service) Single(ctx context.Context, raw types.Transaction) (string, error) {
	t, errs := Validate(raw, "")
	if len(errs) > 0 {
		return "", &ValidationError{Fields: errs}
	}
	if err := s.store.Insert(ctx, t); err != nil {
		return "", fmt.Errorf("ingest: %w", err)
	}

	s.emit(ctx, events.TypeTransaction, TransactionEvent{
		ID:             t.ID,
		PSP:            t.PSP,
		PaymentMethod:  t.PaymentMethod,
		Status:         t.Status,
		ResponseTimeMs: t.ResponseTimeMs,
		CreatedAt:      t.CreatedAt.Format(time.RFC3339Nano),
	})
	return t.ID, nil
}

// Batch validates every element of raws and, only if all are valid, stores
// them in one transaction. Duplicate ids are skipped and not counted as
// inserted.
func (s *Service) Batch(ctx context.Context, raws []types.Transaction) (types.BulkResult, error) {
	if len(raws) == 0 || len(raws) > MaxBatch {
		return types.BulkResult{}, &ValidationError{Fields: []FieldError{{
			Field:   "transactions",
			Message: fmt.Sprintf("must contain between 1 and %d items", MaxBatch),
		}}}
	}

	txns := make([]store.Transaction, 0, len(raws))
	var all []FieldError
	for i, raw := range raws {
		t, errs := Validate(raw, fmt.Sprintf("transactions[%d].", i))
		if len(errs) > 0 {
			all = append(all, errs...)
			continue
		}
		txns = append(txns, t)
	}
	if len(all) > 0 {
		return types.BulkResult{}, &ValidationError{Fields: all}
	}

	inserted, errs, err := s.store.InsertBatch(ctx, txns)
	if err != nil {
		return types.BulkResult{}, fmt.Errorf("ingest: %w", err)
	}

	res := types.BulkResult{
		TotalReceived: len(raws),
		Inserted:      inserted,
		Errors:        errs,
	}
	if inserted > 0 {
		s.emit(ctx, events.TypeBatch, res)
	}
	return res, nil
}

func (s *Service) emit(ctx context.Context, typ events.Type, data any) {
	if s.bus == nil {
		return
	}
	if err := events.Emit(ctx, s.bus, typ, data); err != nil {
		slog.Warn("ingest: publish event failed", "type", typ, "err", err)
	}
}
