package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"ProductCatalog/internal/catalog"
	"ProductCatalog/internal/config"
	"ProductCatalog/internal/events"
	"ProductCatalog/pkg/kit"
)

const (
	service     = "catalog"
	limitWindow = 60 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// Each process holds its own in-memory catalog; the instance id tells
	// their log lines apart.
	log, err := kit.NewLogger(service, cfg.LogLevel, zap.String("instance", uuid.NewString()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(context.Background(), cfg, log); err != nil {
		log.Fatal("catalog stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	pub, err := openEvents(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := pub.Close(); err != nil {
			log.Warn("close events", zap.Error(err))
		}
	}()

	s := &catalog.Server{
		Store:            store,
		Events:           pub,
		Log:              log,
		StrictValidation: cfg.StrictValidation,
	}
	if cfg.WriteLimitPerMin > 0 {
		s.WriteLimiter = kit.NewIPRateLimiter(cfg.WriteLimitPerMin, limitWindow)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	h := catalog.NewHandler(s, catalog.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: cfg.MetricsEnabled,
		MetricsToken:   cfg.MetricsToken,
	})

	log.Info("catalog configured",
		zap.String("store", cfg.Store),
		zap.String("id_strategy", cfg.IDStrategy),
		zap.Bool("strict_validation", cfg.StrictValidation),
		zap.Bool("events", cfg.NATSURL != ""),
	)
	return kit.RunHTTPServer(ctx, ":"+cfg.Port, h, log)
}

func openStore(ctx context.Context, cfg config.Config) (catalog.Store, func(), error) {
	if cfg.Store == config.StoreMemory {
		ids, err := catalog.NewIDGenerator(cfg.IDStrategy)
		if err != nil {
			return nil, nil, err
		}
		return catalog.NewMemStore(ids), func() {}, nil
	}

	d, err := catalog.ParseDialect(cfg.Store)
	if err != nil {
		return nil, nil, err
	}
	s, db, err := catalog.OpenSQLStore(ctx, d, cfg.DBDSN)
	if err != nil {
		return nil, nil, err
	}
	return s, func() { _ = db.Close() }, nil
}

func openEvents(cfg config.Config, log *zap.Logger) (events.Publisher, error) {
	if cfg.NATSURL == "" {
		return events.Nop{}, nil
	}
	return events.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix, log)
}
