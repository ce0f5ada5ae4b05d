// Package main wires together the rank tracker service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	gcstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/ranktrakr/ranktrakr/internal/api"
	"github.com/ranktrakr/ranktrakr/internal/archive"
	gcsarchive "github.com/ranktrakr/ranktrakr/internal/archive/gcs"
	localarchive "github.com/ranktrakr/ranktrakr/internal/archive/local"
	memoryarchive "github.com/ranktrakr/ranktrakr/internal/archive/memory"
	"github.com/ranktrakr/ranktrakr/internal/clock/system"
	"github.com/ranktrakr/ranktrakr/internal/config"
	"github.com/ranktrakr/ranktrakr/internal/logging"
	"github.com/ranktrakr/ranktrakr/internal/metrics"
	"github.com/ranktrakr/ranktrakr/internal/publisher"
	memorypublisher "github.com/ranktrakr/ranktrakr/internal/publisher/memory"
	pubsubpublisher "github.com/ranktrakr/ranktrakr/internal/publisher/pubsub"
	"github.com/ranktrakr/ranktrakr/internal/serp"
	"github.com/ranktrakr/ranktrakr/internal/store"
	"github.com/ranktrakr/ranktrakr/internal/tracker"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.DB.Migrate {
		if err := store.RunMigrations(cfg.DB.DSN); err != nil {
			logger.Fatal("run migrations", zap.Error(err))
		}
	}

	pool, err := store.NewPool(ctx, store.PoolConfig{
		DSN:      cfg.DB.DSN,
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	})
	if err != nil {
		logger.Fatal("connect to database", zap.Error(err))
	}
	defer pool.Close()

	blobs, err := buildArchive(ctx, cfg)
	if err != nil {
		logger.Fatal("init archive", zap.Error(err))
	}
	events, err := buildPublisher(ctx, cfg)
	if err != nil {
		logger.Fatal("init publisher", zap.Error(err))
	}

	clock := system.New()
	keywords := store.NewKeywordStore()
	rankings := store.NewRankingStore(clock)

	client := serp.NewClient(serp.ClientConfig{
		BaseURL:  cfg.Provider.BaseURL,
		Login:    cfg.Provider.Login,
		Password: cfg.Provider.Password,
		Timeout:  cfg.ProviderTimeout(),
		Defaults: cfg.Location(),
		Matcher:  serp.Matcher{Loose: cfg.Matcher.LooseMatch},
	}, blobs, clock, logger.Named("serp"))

	batch := serp.NewBatchFetcher(client, cfg.Batch.Concurrency, logger.Named("batch"))
	cycle := tracker.NewCycle(
		pool,
		keywords,
		rankings,
		batch,
		events,
		cfg.Events.Topic,
		cfg.Location(),
		logger.Named("cycle"),
	)

	if cfg.Scheduler.Enabled {
		sched := tracker.NewScheduler(cycle, cfg.Scheduler.Hour, cfg.Scheduler.Minute, clock, logger.Named("scheduler"))
		go sched.Run(ctx)
	}

	apiServer := api.NewServer(pool, pool, keywords, rankings, client, cycle, cfg.Location(), logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func buildArchive(ctx context.Context, cfg config.Config) (archive.BlobStore, error) {
	switch cfg.Archive.Provider {
	case "noop":
		return archive.Noop{}, nil
	case "memory":
		return memoryarchive.NewBlobStore(), nil
	case "local":
		return localarchive.New(localarchive.Config{BaseDir: cfg.Archive.LocalDir})
	case "gcs":
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
		return gcsarchive.New(client, gcsarchive.Config{Bucket: cfg.Archive.GCSBucket})
	default:
		return nil, fmt.Errorf("unknown archive provider %q", cfg.Archive.Provider)
	}
}

func buildPublisher(ctx context.Context, cfg config.Config) (publisher.Publisher, error) {
	switch cfg.Events.Provider {
	case "noop":
		return publisher.Noop{}, nil
	case "memory":
		return memorypublisher.New(), nil
	case "pubsub":
		client, err := pubsub.NewClient(ctx, cfg.Events.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("create pubsub client: %w", err)
		}
		return pubsubpublisher.New(client)
	default:
		return nil, fmt.Errorf("unknown events provider %q", cfg.Events.Provider)
	}
}
