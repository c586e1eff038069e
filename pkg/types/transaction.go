package types

import "encoding/json"

// Transaction statuses accepted by the ingest endpoints.
const (
	StatusApproved = "approved"
	StatusDeclined = "declined"
	StatusPending  = "pending"
	StatusTimeout  = "timeout"
	StatusError    = "error"
)

// Statuses lists every accepted transaction status.
var Statuses = []string{StatusApproved, StatusDeclined, StatusPending, StatusTimeout, StatusError}

// Transaction is one payment attempt as reported by a client.
//
// Amount and ResponseTimeMs are Numbers so the server can reject quoted,
// non-numeric or fractional input with a field-level error instead of a
// generic decode failure.
type Transaction struct {
	ID             string `json:"id"`
	PSP            string `json:"psp"`
	PaymentMethod  string `json:"payment_method"`
	Amount         Number `json:"amount"`
	Currency       string `json:"currency"`
	Status         string `json:"status"`
	ResponseTimeMs Number `json:"response_time_ms"`
	CreatedAt      string `json:"created_at"`
}

// Number holds the literal text of a JSON value meant to be a number.
// Unlike json.Number it accepts any token when decoding, quotes included, and
// leaves the numeric check to validation. A null or absent value is empty.
type Number string

func (n *Number) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = ""
		return nil
	}
	*n = Number(b)
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if n == "" {
		return []byte("null"), nil
	}
	if !json.Valid([]byte(n)) {
		return json.Marshal(string(n))
	}
	return []byte(n), nil
}

func (n Number) String() string { return string(n) }

// BulkRequest is the body of POST /api/transactions/bulk.
type BulkRequest struct {
	Transactions []Transaction `json:"transactions"`
}

// BulkResult is the data payload returned by POST /api/transactions/bulk.
type BulkResult struct {
	TotalReceived int      `json:"total_received"`
	Inserted      int      `json:"inserted"`
	Errors        []string `json:"errors"`
}
