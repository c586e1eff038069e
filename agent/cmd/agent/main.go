package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/pspwatch/pspwatch/agent/internal/config"
	"github.com/pspwatch/pspwatch/agent/internal/scraper"
	"github.com/pspwatch/pspwatch/agent/internal/security"
	"github.com/pspwatch/pspwatch/agent/internal/shipper"
	"github.com/pspwatch/pspwatch/agent/internal/simulate"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	seed := flag.Int64("seed", 0, "random seed for simulated traffic (0 = time-based)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("pspwatch-agent starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	ac := cfg.Agent
	slog.Info("config loaded",
		"server_url", ac.ServerURL,
		"psps", len(ac.PSPs),
		"interval", ac.Interval,
		"batch_size", ac.BatchSize,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cs := security.Check(ctx, ac); cs != nil {
		level := slog.LevelInfo
		if cs.Status != security.StatusValid {
			level = slog.LevelWarn
		}
		slog.Log(ctx, level, "server certificate",
			"endpoint", cs.Endpoint,
			"status", cs.Status,
			"issuer", cs.Issuer,
			"not_after", cs.NotAfter,
			"days_left", cs.DaysLeft)
	}

	if ac.ServerGRPC != "" {
		if err := shipper.WaitReady(ctx, ac); err != nil {
			slog.Error("server never became ready", "err", err)
			os.Exit(1)
		}
	}

	client, err := shipper.NewHTTPClient(ac)
	if err != nil {
		slog.Error("failed to build http client", "err", err)
		os.Exit(1)
	}

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	gen := simulate.New(ac.PSPs, ac.PaymentMethods, *seed)
	ship := shipper.New(ac, client)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := config.Watch(ctx, *configPath, func(updated *config.Config) {
			gen.SetPSPs(updated.Agent.PSPs, updated.Agent.PaymentMethods)
			slog.Info("simulated psps updated", "psps", len(updated.Agent.PSPs))
		}); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	go func() {
		defer wg.Done()
		ship.Run(ctx)
	}()

	if ac.ReportInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			scraper.New(ac.ServerURL, client).Run(ctx, ac.ReportInterval)
		}()
	}

	if ac.Backfill.Enabled {
		txns := gen.Backfill(ac.Backfill)
		ship.Ship(txns...)
		slog.Info("backfill queued", "transactions", len(txns))
	}

	// Traffic loop: one Tick of simulated transactions per Interval.
	ticker := time.NewTicker(ac.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("pspwatch-agent shutting down", "pending", ship.Pending())
			wg.Wait()
			return
		case <-ticker.C:
			txns := gen.Tick()
			ship.Ship(txns...)
			slog.Debug("traffic generated", "transactions", len(txns))
		}
	}
}
