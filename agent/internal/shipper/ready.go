package shipper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"

	"github.com/pspwatch/pspwatch/agent/internal/config"
)

const checkTimeout = 5 * time.Second

// WaitReady blocks until the server's gRPC health service reports the
// overall service as SERVING, retrying with backoff. It returns ctx.Err()
// if ctx ends first.
func WaitReady(ctx context.Context, cfg config.AgentConfig) error {
	opts, err := dialOptions(cfg)
	if err != nil {
		return err
	}
	conn, err := grpc.Dial(cfg.ServerGRPC, opts...)
	if err != nil {
		return fmt.Errorf("shipper: dial %s: %w", cfg.ServerGRPC, err)
	}
	defer conn.Close()

	client := healthpb.NewHealthClient(conn)
	bo := newBackoff()
	for {
		status, err := check(ctx, client, cfg.ServerAuth)
		if err == nil && status == healthpb.HealthCheckResponse_SERVING {
			slog.Info("shipper: server ready", "endpoint", cfg.ServerGRPC)
			return nil
		}

		wait := bo.next()
		slog.Warn("shipper: server not ready, will retry",
			"endpoint", cfg.ServerGRPC,
			"status", status.String(),
			"err", err,
			"retry_in", wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func check(ctx context.Context, client healthpb.HealthClient, auth config.AuthConfig) (healthpb.HealthCheckResponse_ServingStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	if auth.Mode == "apikey" {
		ctx = metadata.AppendToOutgoingContext(ctx, auth.EffectiveHeader(), auth.Key())
	}
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

// dialOptions builds the gRPC transport credentials for the server auth
// mode. The API key is attached per call.
func dialOptions(cfg config.AgentConfig) ([]grpc.DialOption, error) {
	if cfg.ServerAuth.Mode != "mtls" {
		return []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, nil
	}
	tlsCfg, err := tlsConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("shipper: build mtls creds: %w", err)
	}
	return []grpc.DialOption{grpc.WithTransportCredentials(credentials.NewTLS(tlsCfg))}, nil
}
