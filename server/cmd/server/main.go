package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/pspwatch/pspwatch/server/internal/alerts"
	"github.com/pspwatch/pspwatch/server/internal/api"
	"github.com/pspwatch/pspwatch/server/internal/auth"
	"github.com/pspwatch/pspwatch/server/internal/compute"
	"github.com/pspwatch/pspwatch/server/internal/config"
	"github.com/pspwatch/pspwatch/server/internal/events"
	"github.com/pspwatch/pspwatch/server/internal/exporter"
	"github.com/pspwatch/pspwatch/server/internal/ingest"
	"github.com/pspwatch/pspwatch/server/internal/monitor"
	"github.com/pspwatch/pspwatch/server/internal/probe"
	"github.com/pspwatch/pspwatch/server/internal/store"
	"github.com/pspwatch/pspwatch/server/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	var level slog.LevelVar
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: &level}))
	slog.SetDefault(logger)

	slog.Info("pspwatch-server starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	setLevel(&level, cfg.Server.LogLevel)

	sc := cfg.Server
	slog.Info("config loaded",
		"grpc_port", sc.GRPCPort,
		"http_port", sc.HTTPPort,
		"auth_mode", sc.Auth.Mode,
		"storage", sc.Storage.Backend,
		"events", sc.Events.Backend,
		"window", sc.DefaultWindow(),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *configPath, cfg, &level); err != nil {
		slog.Error("pspwatch-server stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, cfg *config.Config, level *slog.LevelVar) error {
	sc := cfg.Server

	// Transaction store, opened here and closed on shutdown.
	st, err := store.Open(ctx, sc.Storage.Backend, sc.Storage.DSN())
	if err != nil {
		return err
	}
	defer st.Close()
	go st.RunRetention(ctx, sc.Storage.Retention, sc.Storage.PurgeInterval)

	bus, err := openBus(ctx, sc.Events)
	if err != nil {
		return err
	}
	defer bus.Close()

	ingester := ingest.NewService(st, bus)
	mon := monitor.NewService(st, sc.Thresholds, sc.DefaultWindow())

	// Thresholds and log level follow config edits; everything else needs a
	// restart.
	go func() {
		err := config.Watch(ctx, configPath, func(next *config.Config) {
			mon.SetThresholds(next.Server.Thresholds)
			setLevel(level, next.Server.LogLevel)
			slog.Info("thresholds updated", "thresholds", next.Server.Thresholds)
		})
		if err != nil {
			slog.Warn("config watch disabled", "err", err)
		}
	}()

	evaluate := func(ctx context.Context) ([]compute.PSPHealth, error) {
		return mon.AllHealth(ctx, mon.DefaultRange())
	}

	// Status alert engine, evaluated on its own ticker.
	alertEngine := alerts.New(sc.Alerts, bus)
	alertsDone := make(chan struct{})
	go func() {
		defer close(alertsDone)
		alertEngine.Run(ctx, sc.Alerts.EvaluateInterval, evaluate)
	}()

	// gRPC health probe with optional API key enforcement.
	checker := auth.New(sc.Auth.Mode, sc.Auth.EffectiveHeader(), sc.Auth.Key())
	grpcSrv := grpc.NewServer(
		grpc.UnaryInterceptor(checker.UnaryInterceptor()),
		grpc.StreamInterceptor(checker.StreamInterceptor()),
	)
	health := probe.New()
	health.Register(grpcSrv)
	go health.Run(ctx, sc.Alerts.EvaluateInterval, evaluate)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", sc.GRPCPort))
	if err != nil {
		return fmt.Errorf("listen on gRPC port %d: %w", sc.GRPCPort, err)
	}
	go func() {
		slog.Info("gRPC health probe listening", "port", sc.GRPCPort)
		if err := grpcSrv.Serve(lis); err != nil {
			slog.Error("gRPC server stopped", "err", err)
		}
	}()

	// Realtime event stream: bus relay plus periodic summary.
	hub := ws.New(bus, sc.Stream.Interval, func(ctx context.Context) (any, error) {
		return mon.Summary(ctx, mon.DefaultRange())
	})
	go hub.Run(ctx)

	collect := func(ctx context.Context) ([]compute.PSPHealth, []compute.PSPHealthScore, error) {
		r := mon.DefaultRange()
		h, err := mon.AllHealth(ctx, r)
		if err != nil {
			return nil, nil, err
		}
		s, err := mon.Scores(ctx, r)
		if err != nil {
			return nil, nil, err
		}
		return h, s, nil
	}

	httpMux := http.NewServeMux()
	httpMux.Handle("/metrics", exporter.Handler(collect))
	httpMux.Handle("/api/events", hub)
	httpMux.Handle("/", api.New(api.Deps{
		Counter:  st,
		Ingester: ingester,
		Monitor:  mon,
		Alerts:   alertEngine,
	}))

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", sc.HTTPPort),
		Handler:           checker.HTTPMiddleware(httpMux, "/ping", "/metrics"),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", sc.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("pspwatch-server shutting down")

	health.Shutdown()
	grpcSrv.GracefulStop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck

	<-alertsDone
	return nil
}

// openBus builds the configured event bus.
func openBus(ctx context.Context, ec config.EventsConfig) (events.Bus, error) {
	if ec.Backend != "redis" {
		return events.NewLocalBus(), nil
	}
	client, err := events.DialRedis(ctx, ec.RedisAddr, ec.RedisPassword())
	if err != nil {
		return nil, err
	}
	slog.Info("event bus connected", "backend", "redis", "addr", ec.RedisAddr, "channel", ec.Channel)
	return events.NewRedisBus(client, ec.Channel), nil
}

func setLevel(v *slog.LevelVar, name string) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		slog.Warn("unknown log level, using info", "level", name)
		l = slog.LevelInfo
	}
	v.Set(l)
}
