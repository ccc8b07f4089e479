package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/table-balancer/internal/config"
	"github.com/DoyleJ11/table-balancer/internal/httpapi"
	"github.com/DoyleJ11/table-balancer/internal/hub"
	"github.com/DoyleJ11/table-balancer/internal/logging"
	"github.com/DoyleJ11/table-balancer/internal/metrics"
	"github.com/DoyleJ11/table-balancer/internal/orchestrator"
	"github.com/DoyleJ11/table-balancer/internal/relay"
	"github.com/DoyleJ11/table-balancer/internal/roster"
	"github.com/DoyleJ11/table-balancer/internal/seating"
	"github.com/DoyleJ11/table-balancer/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewPrometheus(reg, "")

	rules, err := seating.NewRuleBook(cfg.Seating.Rules)
	if err != nil {
		return err
	}

	var (
		sinks []orchestrator.Sink
		db    *store.Store
		cache *relay.Relay
	)
	if cfg.DB.URL != "" {
		db, err = store.Open(cfg.DB.URL, log)
		if err != nil {
			return err
		}
		defer db.Close()
		sinks = append(sinks, db)
	}
	if cfg.Redis.Addr != "" {
		cache, err = relay.Dial(ctx, cfg.Redis.Addr, log)
		if err != nil {
			return err
		}
		defer cache.Close()
		sinks = append(sinks, cache)
	}

	h := hub.NewHub(ctx, func(ctx context.Context, eventID string) *orchestrator.Orchestrator {
		opts := orchestrator.Options{
			Rules:       rules,
			Algorithm:   seating.AlgorithmSelection{Name: cfg.Seating.Algorithm},
			AutoBalance: cfg.Seating.AutoBalance,
			Logger:      log,
			Metrics:     rec,
			Sinks:       sinks,
		}
		opts.Restore = restore(ctx, log, eventID, db, cache)
		return orchestrator.New(ctx, eventID, opts)
	})

	// With a broker the roster is owned upstream; otherwise it is kept here.
	var members *roster.Memory
	if cfg.Roster.URL == "" {
		members = roster.NewMemory(h.HandleRoster)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           httpapi.SetupRoutes(h, rules, members, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		select {
		case h.Inbox() <- hub.ShutdownHub{}:
		default:
		}
		return srv.Shutdown(shutdownCtx)
	})
	if cfg.Roster.URL != "" {
		c := &roster.Consumer{URL: cfg.Roster.URL, Queue: cfg.Roster.Queue, Log: log}
		g.Go(func() error { return c.Run(gctx, h.HandleRoster) })
	}

	return g.Wait()
}

type snapshotSource interface {
	Latest(ctx context.Context, eventID string) (*orchestrator.Snapshot, error)
}

// restore finds the newest snapshot of eventID, preferring the database over
// the relay cache. Nothing found means the event starts empty.
func restore(ctx context.Context, log *zap.Logger, eventID string, db *store.Store, cache *relay.Relay) *orchestrator.Snapshot {
	var sources []snapshotSource
	if db != nil {
		sources = append(sources, db)
	}
	if cache != nil {
		sources = append(sources, cache)
	}
	for _, src := range sources {
		lctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		snap, err := src.Latest(lctx, eventID)
		cancel()
		if err != nil {
			log.Warn("restore failed", zap.String("event_id", eventID), zap.Error(err))
			continue
		}
		if snap != nil {
			log.Info("restored layout", zap.String("event_id", eventID), zap.Int64("version", snap.Version))
			return snap
		}
	}
	return nil
}
