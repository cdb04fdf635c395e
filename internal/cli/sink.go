package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/eshaffer321/preorder-gather/internal/application/report"
	"github.com/eshaffer321/preorder-gather/internal/infrastructure/config"
)

// SinkOpener connects to the spreadsheet named by spreadsheetID.
type SinkOpener func(ctx context.Context, credentialsFile, spreadsheetID string, logger *slog.Logger) (report.Sink, error)

// OpenSink returns the report sink a run should use, or nil when the run
// touches no sheet. A dry run still opens the sink when one is configured
// so the designer sheet is read; the writer skips every mutation.
func OpenSink(ctx context.Context, cfg *config.Config, flags *RunFlags, open SinkOpener, logger *slog.Logger) (report.Sink, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if flags.NeedsSink() {
		sink, err := open(ctx, cfg.Sheets.CredentialsFile, cfg.Sheets.SpreadsheetID, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create sheets client: %w", err)
		}
		return sink, nil
	}

	if !flags.DryRun || flags.SkipSummary {
		return nil, nil
	}
	if cfg.Sheets.SpreadsheetID == "" || cfg.Sheets.CredentialsFile == "" {
		logger.Info("[DRY RUN] No spreadsheet configured, designer rooms will be empty")
		return nil, nil
	}

	sink, err := open(ctx, cfg.Sheets.CredentialsFile, cfg.Sheets.SpreadsheetID, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}
	logger.Info("[DRY RUN] Spreadsheet opened read-only", "spreadsheet_id", cfg.Sheets.SpreadsheetID)
	return sink, nil
}
