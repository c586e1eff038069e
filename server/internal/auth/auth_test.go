package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// passHandler is a grpc.UnaryHandler that returns ("ok", nil).
func passHandler(ctx context.Context, req interface{}) (interface{}, error) {
	return "ok", nil
}

func callWithKey(t *testing.T, interceptor grpc.UnaryServerInterceptor, header, key string) (interface{}, error) {
	t.Helper()
	ctx := context.Background()
	if key != "" {
		md := metadata.Pairs(header, key)
		ctx = metadata.NewIncomingContext(ctx, md)
	}
	return interceptor(ctx, nil, &grpc.UnaryServerInfo{}, passHandler)
}

func TestUnary_ModeNone_PassesThrough(t *testing.T) {
	i := New("none", "x-api-key", "secret").UnaryInterceptor()
	// No key in context; passes because mode != "apikey".
	res, err := i(context.Background(), nil, &grpc.UnaryServerInfo{}, passHandler)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != "ok" {
		t.Errorf("result: got %v, want ok", res)
	}
}

func TestUnary_EmptyKey_PassesThrough(t *testing.T) {
	c := New("apikey", "x-api-key", "")
	if c.Enabled() {
		t.Fatal("Enabled: got true for empty key")
	}
	res, err := c.UnaryInterceptor()(context.Background(), nil, &grpc.UnaryServerInfo{}, passHandler)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != "ok" {
		t.Errorf("result: got %v, want ok", res)
	}
}

func TestUnary_Keys(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		sent     string
		wantCode codes.Code
	}{
		{"correct key", "x-api-key", "supersecret", codes.OK},
		{"wrong key", "x-api-key", "wrong", codes.Unauthenticated},
		{"prefix of key", "x-api-key", "super", codes.Unauthenticated},
		{"other header", "x-other", "supersecret", codes.Unauthenticated},
	}
	i := New("apikey", "x-api-key", "supersecret").UnaryInterceptor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := callWithKey(t, i, tt.header, tt.sent)
			if code := status.Code(err); code != tt.wantCode {
				t.Errorf("code: got %v, want %v", code, tt.wantCode)
			}
		})
	}
}

func TestUnary_NoMetadata_Unauthenticated(t *testing.T) {
	i := New("apikey", "x-api-key", "supersecret").UnaryInterceptor()
	_, err := i(context.Background(), nil, &grpc.UnaryServerInfo{}, passHandler)
	if code := status.Code(err); code != codes.Unauthenticated {
		t.Errorf("code: got %v, want Unauthenticated", code)
	}
}

func TestUnary_HeaderIsCaseInsensitive(t *testing.T) {
	i := New("apikey", "X-PSP-Key", "mytoken").UnaryInterceptor()
	res, err := callWithKey(t, i, "x-psp-key", "mytoken")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != "ok" {
		t.Errorf("result: got %v, want ok", res)
	}
}

type fakeStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (f *fakeStream) Context() context.Context { return f.ctx }

func TestStreamInterceptor(t *testing.T) {
	i := New("apikey", "x-api-key", "k").StreamInterceptor()
	called := false
	handler := func(srv interface{}, ss grpc.ServerStream) error {
		called = true
		return nil
	}

	err := i(nil, &fakeStream{ctx: context.Background()}, &grpc.StreamServerInfo{}, handler)
	if status.Code(err) != codes.Unauthenticated || called {
		t.Fatalf("without key: err=%v called=%v", err, called)
	}

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-api-key", "k"))
	if err := i(nil, &fakeStream{ctx: ctx}, &grpc.StreamServerInfo{}, handler); err != nil || !called {
		t.Fatalf("with key: err=%v called=%v", err, called)
	}
}

func TestHTTPMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := New("apikey", "x-api-key", "secret").HTTPMiddleware(ok, "/ping")

	tests := []struct {
		name   string
		target string
		header string
		want   int
	}{
		{"header key", "/api/health", "secret", http.StatusNoContent},
		{"query key", "/api/events?api_key=secret", "", http.StatusNoContent},
		{"missing key", "/api/health", "", http.StatusUnauthorized},
		{"wrong key", "/api/health", "nope", http.StatusUnauthorized},
		{"exempt path", "/ping", "", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("X-Api-Key", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status: got %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestHTTPMiddleware_Disabled(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := New("none", "x-api-key", "secret").HTTPMiddleware(ok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("status: got %d, want 204", rec.Code)
	}
}
