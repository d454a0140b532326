package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fal1winter/mentorsys/internal/app"
	"github.com/fal1winter/mentorsys/internal/bootstrap"
	"github.com/fal1winter/mentorsys/internal/config"
	"github.com/fal1winter/mentorsys/internal/domain/entity"
	logpkg "github.com/fal1winter/mentorsys/internal/logger"
	"github.com/fal1winter/mentorsys/internal/metrics"
	recordrepo "github.com/fal1winter/mentorsys/internal/repository/record"
	indexinguc "github.com/fal1winter/mentorsys/internal/usecase/indexing"
	"github.com/fal1winter/mentorsys/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd(version.Version, run).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "reindex: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cobra.Command, opts options) error {
	env := opts.env
	if env == "" {
		env = config.GetEnv()
	}
	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.driverSet {
		cfg.Reindex.Driver = opts.driver
	}
	if opts.dsn != "" {
		cfg.Reindex.DSN = opts.dsn
	}
	if opts.rateSet {
		cfg.Reindex.RatePerSecond = opts.rate
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	source, err := bootstrap.OpenSource(ctx, cfg.Reindex.Driver, cfg.Reindex.DSN)
	if err != nil {
		return err
	}
	defer source.Close()

	if opts.dryRun {
		rep, err := bootstrap.NewLoader(source, nil, 0, logger).WithDryRun(true).Run(ctx, opts.kinds)
		printReport(cmd, rep, nil)
		return err
	}

	store, err := app.OpenStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	metrics.RegisterEmbeddingMetrics()

	prefix := cfg.Storage.KeyPrefix
	embedder := app.BuildEmbedder(cfg.Embedding, prefix, store, logger)
	if err := app.Probe(ctx, embedder); err != nil {
		return err
	}

	collections := app.NewCollections(store, prefix, cfg)
	if opts.recreate {
		for _, k := range opts.kinds {
			if err := collections.Drop(ctx, k); err != nil {
				return err
			}
			logger.Info("Dropped collection index", zap.String("kind", string(k)))
		}
	}
	if _, err := collections.EnsureAll(ctx, opts.kinds...); err != nil {
		return err
	}

	records := recordrepo.New(store, prefix)
	indexer := indexinguc.New(records, embedder)

	rep, err := bootstrap.NewLoader(source, indexer, cfg.Reindex.RatePerSecond, logger).Run(ctx, opts.kinds)
	printReport(cmd, rep, records.Count)
	if err != nil {
		return err
	}
	if failed := rep.Failed(); failed > 0 {
		return fmt.Errorf("%d rows failed to index", failed)
	}
	return nil
}

// printReport writes one line per kind. count, when set, reports the collection size after loading.
func printReport(cmd *cobra.Command, rep bootstrap.Report, count func(context.Context, entity.Kind) (int, error)) {
	out := cmd.OutOrStdout()
	for _, k := range rep.Kinds {
		c := rep.Counts[k]
		line := fmt.Sprintf("%s: read=%d indexed=%d failed=%d", k.Plural(), c.Read, c.Indexed, c.Failed)
		if count != nil {
			if n, err := count(cmd.Context(), k); err == nil {
				line += fmt.Sprintf(" row_count=%d", n)
			}
		}
		fmt.Fprintln(out, line)
	}
}
