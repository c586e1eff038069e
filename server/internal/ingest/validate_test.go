package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pspwatch/pspwatch/pkg/types"
)

func validRaw(id string) types.Transaction {
	return types.Transaction{
		ID:             id,
		PSP:            "Paystack",
		PaymentMethod:  "mpesa",
		Amount:         "2500.75",
		Currency:       "kes",
		Status:         types.StatusApproved,
		ResponseTimeMs: "1200",
		CreatedAt:      "2024-01-15T15:00:00.250+03:00",
	}
}

func TestValidate_Valid(t *testing.T) {
	got, errs := Validate(validRaw("tx-1"), "")
	require.Empty(t, errs)

	assert.Equal(t, "tx-1", got.ID)
	assert.Equal(t, "2500.75", got.Amount.String())
	assert.Equal(t, "KES", got.Currency)
	assert.EqualValues(t, 1200, got.ResponseTimeMs)
	assert.Equal(t, time.Date(2024, 1, 15, 12, 0, 0, 250e6, time.UTC), got.CreatedAt)
	assert.Equal(t, time.UTC, got.CreatedAt.Location())
}

func TestValidate_IntegralFloatResponseTime(t *testing.T) {
	raw := validRaw("tx-1")
	raw.ResponseTimeMs = "1500.0"
	got, errs := Validate(raw, "")
	require.Empty(t, errs)
	assert.EqualValues(t, 1500, got.ResponseTimeMs)
}

func TestValidate_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*types.Transaction)
		field  string
	}{
		{"missing id", func(r *types.Transaction) { r.ID = "" }, "id"},
		{"blank psp", func(r *types.Transaction) { r.PSP = "  " }, "psp"},
		{"missing method", func(r *types.Transaction) { r.PaymentMethod = "" }, "payment_method"},
		{"zero amount", func(r *types.Transaction) { r.Amount = "0" }, "amount"},
		{"negative amount", func(r *types.Transaction) { r.Amount = "-5" }, "amount"},
		{"missing amount", func(r *types.Transaction) { r.Amount = "" }, "amount"},
		{"quoted amount", func(r *types.Transaction) { r.Amount = `"12"` }, "amount"},
		{"short currency", func(r *types.Transaction) { r.Currency = "KE" }, "currency"},
		{"numeric currency", func(r *types.Transaction) { r.Currency = "123" }, "currency"},
		{"unknown status", func(r *types.Transaction) { r.Status = "refunded" }, "status"},
		{"fractional response time", func(r *types.Transaction) { r.ResponseTimeMs = "12.5" }, "response_time_ms"},
		{"negative response time", func(r *types.Transaction) { r.ResponseTimeMs = "-1" }, "response_time_ms"},
		{"missing response time", func(r *types.Transaction) { r.ResponseTimeMs = "" }, "response_time_ms"},
		{"quoted response time", func(r *types.Transaction) { r.ResponseTimeMs = `"1200"` }, "response_time_ms"},
		{"timestamp without offset", func(r *types.Transaction) { r.CreatedAt = "2024-01-15T12:00:00" }, "created_at"},
		{"garbage timestamp", func(r *types.Transaction) { r.CreatedAt = "yesterday" }, "created_at"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validRaw("tx-1")
			tt.mutate(&raw)
			_, errs := Validate(raw, "p.")
			require.Len(t, errs, 1)
			assert.Equal(t, "p."+tt.field, errs[0].Field)
		})
	}
}

func TestValidate_ReportsEveryField(t *testing.T) {
	_, errs := Validate(types.Transaction{}, "")
	fields := make([]string, len(errs))
	for i, e := range errs {
		fields[i] = e.Field
	}
	assert.Equal(t, []string{"id", "psp", "payment_method", "amount", "currency", "status", "response_time_ms", "created_at"}, fields)
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Fields: []FieldError{{Field: "amount", Message: "must be greater than 0"}}}
	assert.Equal(t, "validation failed: amount: must be greater than 0", err.Error())
}
