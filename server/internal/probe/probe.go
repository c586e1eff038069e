package probe

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/pspwatch/pspwatch/server/internal/compute"
)

// ServicePrefix prefixes the per-PSP service names.
const ServicePrefix = "psp/"

// ServiceName returns the health service name published for psp.
func ServiceName(psp string) string { return ServicePrefix + psp }

// Publisher owns a grpc health server and keeps its statuses current.
type Publisher struct {
	srv *health.Server

	mu    sync.Mutex
	known map[string]healthpb.HealthCheckResponse_ServingStatus
}

// New returns a Publisher. The overall service starts NOT_SERVING until the
// first successful update.
func New() *Publisher {
	p := &Publisher{
		srv:   health.NewServer(),
		known: make(map[string]healthpb.HealthCheckResponse_ServingStatus),
	}
	p.srv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	return p
}

// Register attaches the health service to s.
func (p *Publisher) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, p.srv)
}

// SetStore records whether transaction storage is reachable.
func (p *Publisher) SetStore(ok bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	p.set("", st)
}

// Update publishes the status of every PSP in health.
func (p *Publisher) Update(health []compute.PSPHealth) {
	for _, h := range health {
		p.set(ServiceName(h.PSP), servingStatus(h.Status))
	}
}

func (p *Publisher) set(service string, st healthpb.HealthCheckResponse_ServingStatus) {
	p.mu.Lock()
	prev, seen := p.known[service]
	p.known[service] = st
	p.mu.Unlock()

	if seen && prev == st {
		return
	}
	if service != "" || seen {
		slog.Info("probe: status changed", "service", service, "status", st.String())
	}
	p.srv.SetServingStatus(service, st)
}

// Shutdown sets every service to NOT_SERVING and ignores later updates.
func (p *Publisher) Shutdown() { p.srv.Shutdown() }

// Run calls evaluate every interval. A failed evaluation marks storage
// unreachable; a successful one marks it reachable and publishes the result.
// An initial evaluation runs immediately. Blocks until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context, interval time.Duration, evaluate func(context.Context) ([]compute.PSPHealth, error)) {
	p.refresh(ctx, evaluate)

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.refresh(ctx, evaluate)
		}
	}
}

func (p *Publisher) refresh(ctx context.Context, evaluate func(context.Context) ([]compute.PSPHealth, error)) {
	health, err := evaluate(ctx)
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("probe: evaluation failed", "err", err)
			p.SetStore(false)
		}
		return
	}
	p.SetStore(true)
	p.Update(health)
}

func servingStatus(s compute.HealthStatus) healthpb.HealthCheckResponse_ServingStatus {
	if s == compute.StatusUnhealthy {
		return healthpb.HealthCheckResponse_NOT_SERVING
	}
	return healthpb.HealthCheckResponse_SERVING
}
