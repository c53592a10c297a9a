package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/inkpress/inkpress/cache"
	"github.com/inkpress/inkpress/cfg"
	"github.com/inkpress/inkpress/content"
	"github.com/inkpress/inkpress/counter"
	"github.com/inkpress/inkpress/events"
	_ "github.com/inkpress/inkpress/events/sink"
	"github.com/inkpress/inkpress/httpapi"
	"github.com/inkpress/inkpress/id"
	"github.com/inkpress/inkpress/reconcile"
	"github.com/inkpress/inkpress/store"
	"github.com/inkpress/inkpress/telemetry"
)

func main() {
	flag.Parse()

	// Load configuration
	err := cfg.Load(*cfg.ConfigPathFlag)
	if err != nil {
		panic(err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("Invalid configuration: %v", err))
	}

	// Setup logging
	var writer io.Writer = zerolog.NewConsoleWriter()
	if cfg.Config.Logging.Format == "json" {
		writer = os.Stdout
	}
	gLog := zerolog.New(writer).
		With().
		Timestamp().
		Uint64("instance_id", cfg.Config.InstanceID).
		Logger()

	if cfg.Config.Logging.Verbose {
		log.Logger = gLog.Level(zerolog.DebugLevel)
	} else {
		log.Logger = gLog.Level(zerolog.InfoLevel)
	}

	log.Info().Msg("Inkpress - Content Publishing Engine")
	log.Debug().Msg("Initializing telemetry")
	telemetry.InitializeTelemetry()
	if cfg.Config.Prometheus.Enabled {
		telemetry.InitMetrics()
	}

	// Phase 1: Open the durable store
	log.Info().Str("driver", string(cfg.Config.Durable.Driver)).Msg("Opening durable store")
	durable, err := store.NewSQLStore(store.Options{
		Driver:       string(cfg.Config.Durable.Driver),
		DSN:          cfg.Config.Durable.DSN,
		QueryTimeout: time.Duration(cfg.Config.Durable.QueryTimeoutMS) * time.Millisecond,
		MaxOpenConns: cfg.Config.Durable.MaxOpenConns,
		MaxIdleConns: cfg.Config.Durable.MaxIdleConns,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open durable store")
		return
	}
	defer durable.Close()

	// Phase 2: Connect the volatile stores
	counters, likes, err := initializeCounterStore()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize counter store")
		return
	}
	defer counters.Close()

	cacheStore, err := initializeCacheStore()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize cache store")
		return
	}
	defer cacheStore.Close()

	// One-shot reconciliation mode: flush counters and exit
	if *cfg.ReconcileFlag {
		reconciler := reconcile.NewReconciler(counters, durable, 0)
		stats, err := reconciler.RunPass(context.Background())
		if err != nil {
			log.Error().Err(err).Msg("Reconciliation pass failed")
			os.Exit(1)
		}
		if stats.Failed > 0 {
			log.Error().
				Int("failed", stats.Failed).
				Int("scanned", stats.Scanned).
				Msg("Reconciliation pass left records behind")
			os.Exit(1)
		}
		log.Info().
			Int("scanned", stats.Scanned).
			Int("applied", stats.Applied).
			Msg("Reconciliation pass complete")
		return
	}

	// Phase 3: Wire the content service
	var dedup *counter.DedupFilter
	if cfg.Config.Counter.DedupWindowSeconds > 0 {
		dedup = counter.NewDedupFilter(
			cfg.Config.Counter.DedupFilterCapacity,
			time.Duration(cfg.Config.Counter.DedupWindowSeconds)*time.Second,
		)
	}

	hub := events.NewHub()
	registry, err := events.NewRegistry(hub, cfg.Config.Sinks)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize event sinks")
		return
	}
	registry.Start()
	defer registry.Stop()

	service := content.NewService(content.ServiceConfig{
		Store:    durable,
		Counters: counters,
		Likes:    likes,
		Cache:    cacheStore,
		Codec: cache.Codec{
			CompressAbove: cfg.Config.Cache.CompressAboveBytes,
		},
		Dedup:      dedup,
		Hub:        hub,
		IDs:        id.NewTimeGenerator(cfg.Config.InstanceID),
		InstanceID: cfg.Config.InstanceID,
		ListTTL:    time.Duration(cfg.Config.Cache.ListTTLSeconds) * time.Second,
		RecordTTL:  time.Duration(cfg.Config.Cache.RecordTTLSeconds) * time.Second,
	})

	// Phase 4: Start the reconciliation loop
	log.Info().Int("interval_seconds", cfg.Config.Reconcile.IntervalSeconds).Msg("Starting reconciliation loop")
	reconciler := reconcile.NewReconciler(
		counters,
		durable,
		time.Duration(cfg.Config.Reconcile.IntervalSeconds)*time.Second,
	)
	reconciler.Start()
	defer reconciler.Stop()

	collector := telemetry.NewMetricsCollector(counters, 15*time.Second)
	collector.Start()
	defer collector.Stop()

	// Phase 5: Serve the HTTP API
	mux := http.NewServeMux()
	if cfg.Config.Prometheus.Enabled {
		mux.Handle("/metrics", telemetry.GetMetricsHandler())
	}
	httpapi.RegisterRoutes(mux, httpapi.NewHandlers(service), cfg.Config.HTTP.AuthToken)

	addr := fmt.Sprintf("%s:%d", cfg.Config.HTTP.BindAddress, cfg.Config.HTTP.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	log.Info().
		Uint64("instance_id", cfg.Config.InstanceID).
		Str("address", addr).
		Msg("Inkpress is operational")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	case err := <-errCh:
		log.Error().Err(err).Msg("HTTP server stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("HTTP server shutdown did not complete cleanly")
	}

	// Final flush so a clean shutdown loses no views
	flushCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := reconciler.RunPass(flushCtx); err != nil {
		log.Warn().Err(err).Msg("Final reconciliation pass failed")
	}
}

func initializeCounterStore() (counter.Store, counter.LikeStore, error) {
	if cfg.Config.Counter.Backend == "memory" {
		log.Warn().Msg("Using in-memory counter store, counts are local to this instance")
		mem := counter.NewMemoryStore()
		return mem, mem, nil
	}

	rs, err := counter.NewRedisStore(counter.RedisOptions{
		Address:          cfg.Config.Redis.Address,
		Password:         cfg.Config.Redis.Password,
		DB:               cfg.Config.Redis.DB,
		Timeout:          time.Duration(cfg.Config.Redis.TimeoutMS) * time.Millisecond,
		IncrementTimeout: time.Duration(cfg.Config.Counter.IncrementTimeoutMS) * time.Millisecond,
		ScanCount:        int64(cfg.Config.Reconcile.ScanBatchSize),
	})
	if err != nil {
		return nil, nil, err
	}
	return rs, rs, nil
}

func initializeCacheStore() (cache.Store, error) {
	if cfg.Config.Cache.Backend == "memory" {
		return cache.NewMemoryStore(cfg.Config.Cache.MemoryMaxEntries)
	}

	return cache.NewRedisStore(
		cfg.Config.Redis.Address,
		cfg.Config.Redis.Password,
		cfg.Config.Redis.DB,
		time.Duration(cfg.Config.Redis.TimeoutMS)*time.Millisecond,
	)
}
