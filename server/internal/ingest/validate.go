package ingest

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pspwatch/pspwatch/pkg/types"
	"github.com/pspwatch/pspwatch/server/internal/store"
)

// MaxBatch is the largest accepted bulk request.
const MaxBatch = 1000

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every invalid field of a request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

var validStatus = func() map[string]bool {
	m := make(map[string]bool, len(types.Statuses))
	for _, s := range types.Statuses {
		m[s] = true
	}
	return m
}()

// Validate checks raw and converts it to a store.Transaction. prefix is
// prepended to field names, e.g. "transactions[3].".
func Validate(raw types.Transaction, prefix string) (store.Transaction, []FieldError) {
	var errs []FieldError
	fail := func(field, msg string) {
		errs = append(errs, FieldError{Field: prefix + field, Message: msg})
	}

	out := store.Transaction{
		ID:            strings.TrimSpace(raw.ID),
		PSP:           strings.TrimSpace(raw.PSP),
		PaymentMethod: strings.TrimSpace(raw.PaymentMethod),
		Status:        raw.Status,
	}
	if out.ID == "" {
		fail("id", "is required")
	}
	if out.PSP == "" {
		fail("psp", "is required")
	}
	if out.PaymentMethod == "" {
		fail("payment_method", "is required")
	}

	if raw.Amount == "" {
		fail("amount", "is required")
	} else if amt, err := decimal.NewFromString(raw.Amount.String()); err != nil {
		fail("amount", "must be a number")
	} else if !amt.IsPositive() {
		fail("amount", "must be greater than 0")
	} else {
		out.Amount = amt
	}

	if cur, ok := currencyCode(raw.Currency); !ok {
		fail("currency", "must be a 3-letter currency code")
	} else {
		out.Currency = cur
	}

	if !validStatus[raw.Status] {
		fail("status", fmt.Sprintf("must be one of %s", strings.Join(types.Statuses, ", ")))
	}

	if raw.ResponseTimeMs == "" {
		fail("response_time_ms", "is required")
	} else if rt, err := decimal.NewFromString(raw.ResponseTimeMs.String()); err != nil || !rt.IsInteger() {
		fail("response_time_ms", "must be an integer")
	} else if rt.IsNegative() {
		fail("response_time_ms", "must not be negative")
	} else {
		out.ResponseTimeMs = rt.IntPart()
	}

	if raw.CreatedAt == "" {
		fail("created_at", "is required")
	} else if at, err := time.Parse(time.RFC3339Nano, raw.CreatedAt); err != nil {
		fail("created_at", "must be an RFC 3339 timestamp with offset")
	} else {
		out.CreatedAt = at.UTC()
	}

	if len(errs) > 0 {
		return store.Transaction{}, errs
	}
	return out, nil
}

func currencyCode(s string) (string, bool) {
	if len(s) != 3 {
		return "", false
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return "", false
		}
	}
	return strings.ToUpper(s), true
}
