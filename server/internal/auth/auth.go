package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// QueryParam is the URL query fallback for the API key.
const QueryParam = "api_key"

// Checker validates API keys.
type Checker struct {
	enabled bool
	header  string
	key     []byte
}

// New returns a Checker. header is normalised to lowercase, matching how
// gRPC delivers metadata keys.
func New(mode, header, key string) *Checker {
	return &Checker{
		enabled: mode == "apikey" && key != "",
		header:  strings.ToLower(header),
		key:     []byte(key),
	}
}

// Enabled reports whether keys are being enforced.
func (c *Checker) Enabled() bool { return c.enabled }

func (c *Checker) valid(got string) bool {
	return subtle.ConstantTimeCompare([]byte(got), c.key) == 1
}

func (c *Checker) checkMetadata(ctx context.Context) error {
	if !c.enabled {
		return nil
	}
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "missing metadata")
	}
	vals := md.Get(c.header)
	if len(vals) == 0 || !c.valid(vals[0]) {
		return status.Error(codes.Unauthenticated, "invalid api key")
	}
	return nil
}

// UnaryInterceptor returns a grpc.UnaryServerInterceptor enforcing the key.
func (c *Checker) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if err := c.checkMetadata(ctx); err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamInterceptor returns a grpc.StreamServerInterceptor enforcing the key.
func (c *Checker) StreamInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv interface{},
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		if err := c.checkMetadata(ss.Context()); err != nil {
			return err
		}
		return handler(srv, ss)
	}
}

// HTTPMiddleware wraps next with key enforcement. Paths listed in exempt
// are served without a key.
func (c *Checker) HTTPMiddleware(next http.Handler, exempt ...string) http.Handler {
	if !c.enabled {
		return next
	}
	skip := make(map[string]bool, len(exempt))
	for _, p := range exempt {
		skip[p] = true
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if skip[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}
		got := r.Header.Get(c.header)
		if got == "" {
			got = r.URL.Query().Get(QueryParam)
		}
		if !c.valid(got) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"success": false,
				"error":   "invalid api key",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
