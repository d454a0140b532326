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

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fal1winter/mentorsys/internal/app"
	"github.com/fal1winter/mentorsys/internal/config"
	"github.com/fal1winter/mentorsys/internal/consumer"
	"github.com/fal1winter/mentorsys/internal/domain/entity"
	"github.com/fal1winter/mentorsys/internal/domain/search/request"
	logpkg "github.com/fal1winter/mentorsys/internal/logger"
	"github.com/fal1winter/mentorsys/internal/metrics"
	recordrepo "github.com/fal1winter/mentorsys/internal/repository/record"
	amqpTransport "github.com/fal1winter/mentorsys/internal/transport/amqp"
	chiTransport "github.com/fal1winter/mentorsys/internal/transport/chi"
	healthuc "github.com/fal1winter/mentorsys/internal/usecase/health"
	indexinguc "github.com/fal1winter/mentorsys/internal/usecase/indexing"
	searchuc "github.com/fal1winter/mentorsys/internal/usecase/search"
	"github.com/fal1winter/mentorsys/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting semsync API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.Bool("rabbitmq_enabled", cfg.RabbitMQ.Enabled),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := app.OpenStore(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	defer store.Close()
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterConsumerMetrics()

	prefix := cfg.Storage.KeyPrefix
	embedder := app.BuildEmbedder(cfg.Embedding, prefix, store, logger)
	if err := app.Probe(ctx, embedder); err != nil {
		logger.Fatal("Embedding provider not ready", zap.Error(err))
	}
	logger.Info("Embedder ready",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	collections := app.NewCollections(store, prefix, cfg)
	created, err := collections.EnsureAll(ctx, entity.All()...)
	if err != nil {
		logger.Fatal("Failed to ensure collections", zap.Error(err))
	}
	for _, k := range created {
		logger.Info("Created collection", zap.String("kind", string(k)))
	}

	records := recordrepo.New(store, prefix)

	indexSvc := indexinguc.New(records, embedder).WithMaxBatchSize(cfg.Index.MaxBatchSize)
	searchSvc := searchuc.New(records, embedder).WithLimits(request.Limits{
		DefaultTopK: cfg.Search.DefaultTopK,
		MaxTopK:     cfg.Search.MaxTopK,
	})
	healthSvc := healthuc.New(store, embedder, cfg.Embedding.Model).
		WithTimeout(time.Duration(cfg.HTTP.HealthSec) * time.Second)

	var events *consumer.Consumer
	if cfg.RabbitMQ.Enabled {
		dialer := amqpTransport.NewDialer(amqpTransport.Config{
			URL:       cfg.RabbitMQ.URL,
			Heartbeat: time.Duration(cfg.RabbitMQ.HeartbeatSec) * time.Second,
		}, logger)
		events = consumer.New(consumer.Config{
			PaperQueue:   cfg.RabbitMQ.PaperQueue,
			NoteQueue:    cfg.RabbitMQ.NoteQueue,
			ScholarQueue: cfg.RabbitMQ.ScholarQueue,
			Backoff:      time.Duration(cfg.RabbitMQ.ReconnectSec) * time.Second,
			RequeueDelay: time.Duration(cfg.RabbitMQ.RequeueDelayMS) * time.Millisecond,
		}, dialer, indexSvc, logger)
		healthSvc.WithStreams(events)
	}

	server := chiTransport.NewServer(indexSvc, searchSvc, embedder, healthSvc, logger)
	handler := chiTransport.NewRouter(server, chiTransport.RouterConfig{
		APIKeys:      cfg.Auth.APIKeys,
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
	}, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if events != nil {
		g.Go(func() error {
			return events.Run(gctx)
		})
	}

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
