package security

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pspwatch/pspwatch/agent/internal/config"
)

func TestCheck_PlainHTTP(t *testing.T) {
	cs := Check(context.Background(), config.AgentConfig{ServerURL: "http://localhost:8080"})
	if cs != nil {
		t.Errorf("Check(http) = %+v, want nil", cs)
	}
}

func TestCheck_TLSServer(t *testing.T) {
	srv := httptest.NewTLSServer(http.NotFoundHandler())
	defer srv.Close()

	cs := Check(context.Background(), config.AgentConfig{
		ServerURL:  srv.URL,
		ServerAuth: config.AuthConfig{Mode: "apikey"},
		TLS:        config.TLSConfig{InsecureSkipVerify: true},
	})
	if cs == nil {
		t.Fatal("Check(https) = nil, want status")
	}
	if cs.Status != StatusValid {
		t.Errorf("Status = %q, want %q", cs.Status, StatusValid)
	}
	if cs.AuthType != "apikey" {
		t.Errorf("AuthType = %q, want apikey", cs.AuthType)
	}
	if cs.DaysLeft <= 30 {
		t.Errorf("DaysLeft = %d, want > 30", cs.DaysLeft)
	}
	if _, err := time.Parse(time.RFC3339, cs.NotAfter); err != nil {
		t.Errorf("NotAfter %q: %v", cs.NotAfter, err)
	}
}

func TestCheck_UntrustedCertIsUnreachable(t *testing.T) {
	srv := httptest.NewTLSServer(http.NotFoundHandler())
	defer srv.Close()

	cs := Check(context.Background(), config.AgentConfig{ServerURL: srv.URL})
	if cs == nil {
		t.Fatal("Check(https) = nil, want status")
	}
	if cs.Status != StatusUnreachable {
		t.Errorf("Status = %q, want %q", cs.Status, StatusUnreachable)
	}
	if cs.AuthType != "none" {
		t.Errorf("AuthType = %q, want none", cs.AuthType)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		left time.Duration
		want string
	}{
		{-time.Hour, StatusExpired},
		{0, StatusExpired},
		{10 * 24 * time.Hour, StatusExpiring},
		{30 * 24 * time.Hour, StatusExpiring},
		{31 * 24 * time.Hour, StatusValid},
	}
	for _, tc := range tests {
		if got := classify(tc.left); got != tc.want {
			t.Errorf("classify(%v) = %q, want %q", tc.left, got, tc.want)
		}
	}
}
