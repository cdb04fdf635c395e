// Command preorder-gather reconciles Square pre-orders into the shared
// spreadsheet: a per-item summary and one sheet per customer.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/eshaffer321/preorder-gather/internal/adapters/sheets"
	"github.com/eshaffer321/preorder-gather/internal/adapters/square"
	"github.com/eshaffer321/preorder-gather/internal/application/pipeline"
	"github.com/eshaffer321/preorder-gather/internal/application/report"
	"github.com/eshaffer321/preorder-gather/internal/cli"
	"github.com/eshaffer321/preorder-gather/internal/domain/catalog"
	"github.com/eshaffer321/preorder-gather/internal/domain/classifier"
	"github.com/eshaffer321/preorder-gather/internal/domain/merger"
	"github.com/eshaffer321/preorder-gather/internal/infrastructure/config"
	"github.com/eshaffer321/preorder-gather/internal/infrastructure/logging"
	"github.com/eshaffer321/preorder-gather/internal/infrastructure/storage"
)

func main() {
	flags, err := cli.ParseRunFlags(os.Args[0], os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if err := run(flags); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(flags *cli.RunFlags) error {
	if err := config.LoadEnvFile(flags.EnvFile); err != nil {
		return err
	}
	cfg := config.LoadOrEnv_WithPath(flags.ConfigPath)
	if err := cfg.Validate(config.ValidateOptions{NeedsSink: flags.NeedsSink()}); err != nil {
		return err
	}

	loggingCfg := cfg.Observability.Logging
	if flags.Verbose {
		loggingCfg.Level = "debug"
	}
	logger, closer := logging.NewLogger(loggingCfg)
	defer func() { _ = closer.Close() }()

	cli.PrintHeader(os.Stdout, flags)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The cache is flushed on every exit path, including failed runs.
	cache, err := catalog.OpenFileCache(cfg.Catalog.CachePath)
	if err != nil {
		return err
	}
	defer func() {
		if err := cache.Close(); err != nil {
			logger.Warn("Failed to save catalog cache", "path", cache.Path(), "error", err)
		}
	}()

	client, err := square.NewClient(square.Config{
		AccessToken: cfg.GetAPIKey(cfg.Square.APIKey, "SQUARE_API_KEY", "SQUARE_ACCESS_TOKEN"),
		BaseURL:     cfg.Square.BaseURL,
		Version:     cfg.Square.Version,
		Timeout:     cfg.Square.Timeout,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create square client: %w", err)
	}

	resolver := catalog.NewResolver(client, cache, catalog.Options{
		CategoryIDs:              cfg.Catalog.CategoryIDs,
		DesignerParentCategoryID: cfg.Catalog.DesignerParentCategoryID,
		MatchPlainItems:          cfg.Catalog.PlainItemsMatch(),
	}, logger)

	sink, err := cli.OpenSink(ctx, cfg, flags, openSheets, logger)
	if err != nil {
		return err
	}

	writer := report.NewWriter(sink, report.Options{
		Sheets: report.SheetNames{
			Summary:        cfg.Sheets.SummarySheet,
			CustomerPrefix: cfg.Sheets.CustomersSheet,
			Index:          cfg.Sheets.IndexSheet,
			Designers:      cfg.Sheets.DesignersSheet,
		},
		Cooldown:   cfg.Sheets.WriteCooldown,
		DryRun:     flags.DryRun,
		ItemPrefix: cfg.Pipeline.ItemPrefix,
	}, logger)

	// The run ledger is optional; a broken database never blocks a run.
	var repo storage.Repository
	store, err := storage.NewStorageWithLogger(cfg.Storage.DatabasePath, logger)
	if err != nil {
		logger.Warn("Run ledger unavailable, continuing without it", "path", cfg.Storage.DatabasePath, "error", err)
	} else {
		repo = store
		defer func() { _ = store.Close() }()
	}

	strategy, err := merger.New(cfg.Pipeline.MergeStrategy)
	if err != nil {
		return err
	}

	orchestrator := pipeline.NewOrchestrator(client, resolver, writer, repo, pipeline.Config{
		LocationID:   cfg.Square.LocationID,
		OrderStates:  cfg.Square.OrderStates,
		FollowCursor: cfg.Square.FollowCursor,
		MaxPages:     cfg.Square.MaxPages,
		ItemPrefix:   cfg.Pipeline.ItemPrefix,
		Classifier: classifier.Options{
			ExcludedOrderIDs:      cfg.Pipeline.ExcludedOrderIDs,
			ForceProcessCustomers: cfg.Pipeline.ForceProcessCustomers,
		},
		MergeStrategy: strategy,
	}, logger)

	result, err := orchestrator.Run(ctx, flags.ToOptions())
	cli.PrintRunSummary(os.Stdout, result, flags.DryRun)
	return err
}

func openSheets(ctx context.Context, credentialsFile, spreadsheetID string, logger *slog.Logger) (report.Sink, error) {
	return sheets.New(ctx, credentialsFile, spreadsheetID, logger)
}
