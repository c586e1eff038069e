package types

import (
	"encoding/json"
	"testing"
)

func TestNumber_KeepsLiteralText(t *testing.T) {
	tests := []struct {
		in   string
		want Number
	}{
		{`{"amount": 12.50}`, "12.50"},
		{`{"amount": "12"}`, `"12"`},
		{`{"amount": null}`, ""},
		{`{}`, ""},
	}
	for _, tt := range tests {
		var tx Transaction
		if err := json.Unmarshal([]byte(tt.in), &tx); err != nil {
			t.Fatalf("Unmarshal(%s): %v", tt.in, err)
		}
		if tx.Amount != tt.want {
			t.Errorf("Unmarshal(%s): Amount = %q, want %q", tt.in, tx.Amount, tt.want)
		}
	}
}

func TestNumber_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(Transaction{Amount: "12.50", ResponseTimeMs: "abc"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got["amount"] != 12.5 {
		t.Errorf("amount = %#v, want number 12.5", got["amount"])
	}
	if got["response_time_ms"] != "abc" {
		t.Errorf("response_time_ms = %#v, want string abc", got["response_time_ms"])
	}
}
