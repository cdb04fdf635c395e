package cli_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/preorder-gather/internal/application/report"
	"github.com/eshaffer321/preorder-gather/internal/cli"
	"github.com/eshaffer321/preorder-gather/internal/infrastructure/config"
)

type stubSink struct {
	report.Sink
}

type openerCall struct {
	credentials string
	spreadsheet string
}

func recordingOpener(calls *[]openerCall, err error) cli.SinkOpener {
	return func(_ context.Context, creds, id string, _ *slog.Logger) (report.Sink, error) {
		*calls = append(*calls, openerCall{creds, id})
		if err != nil {
			return nil, err
		}
		return stubSink{}, nil
	}
}

func sheetsConfig() *config.Config {
	return &config.Config{Sheets: config.SheetsConfig{
		CredentialsFile: "creds.json",
		SpreadsheetID:   "sheet-1",
	}}
}

func TestOpenSink(t *testing.T) {
	ctx := context.Background()

	t.Run("live run opens the spreadsheet", func(t *testing.T) {
		var calls []openerCall
		sink, err := cli.OpenSink(ctx, sheetsConfig(), &cli.RunFlags{}, recordingOpener(&calls, nil), nil)

		require.NoError(t, err)
		assert.NotNil(t, sink)
		assert.Equal(t, []openerCall{{"creds.json", "sheet-1"}}, calls)
	})

	t.Run("dry run opens a configured spreadsheet for reads", func(t *testing.T) {
		var calls []openerCall
		sink, err := cli.OpenSink(ctx, sheetsConfig(), &cli.RunFlags{DryRun: true}, recordingOpener(&calls, nil), nil)

		require.NoError(t, err)
		assert.NotNil(t, sink)
		assert.Len(t, calls, 1)
	})

	t.Run("dry run without spreadsheet runs with no sink", func(t *testing.T) {
		var calls []openerCall
		sink, err := cli.OpenSink(ctx, &config.Config{}, &cli.RunFlags{DryRun: true}, recordingOpener(&calls, nil), nil)

		require.NoError(t, err)
		assert.Nil(t, sink)
		assert.Empty(t, calls)
	})

	t.Run("dry run skipping the summary reads nothing", func(t *testing.T) {
		var calls []openerCall
		flags := &cli.RunFlags{DryRun: true, SkipSummary: true}
		sink, err := cli.OpenSink(ctx, sheetsConfig(), flags, recordingOpener(&calls, nil), nil)

		require.NoError(t, err)
		assert.Nil(t, sink)
		assert.Empty(t, calls)
	})

	t.Run("both outputs skipped needs no sink", func(t *testing.T) {
		var calls []openerCall
		flags := &cli.RunFlags{SkipSummary: true, SkipCustomers: true}
		sink, err := cli.OpenSink(ctx, sheetsConfig(), flags, recordingOpener(&calls, nil), nil)

		require.NoError(t, err)
		assert.Nil(t, sink)
		assert.Empty(t, calls)
	})

	t.Run("open failure is returned", func(t *testing.T) {
		var calls []openerCall
		_, err := cli.OpenSink(ctx, sheetsConfig(), &cli.RunFlags{}, recordingOpener(&calls, errors.New("bad key")), nil)

		assert.ErrorContains(t, err, "bad key")
	})
}

func TestOpenSink_DryRunWriterReadsDesigners(t *testing.T) {
	designers := &designerSink{rows: [][]string{{"Name", "Room", "Notes"}, {"Anna", "3", ""}}}
	open := func(context.Context, string, string, *slog.Logger) (report.Sink, error) { return designers, nil }

	sink, err := cli.OpenSink(context.Background(), sheetsConfig(), &cli.RunFlags{DryRun: true}, open, nil)
	require.NoError(t, err)

	w := report.NewWriter(sink, report.Options{
		Sheets: report.SheetNames{Summary: "Summary", Index: "Customers", Designers: "Designers"},
		DryRun: true,
	}, nil)
	rooms, err := w.LoadDesignerRooms(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "3", rooms.Room("Anna"))
	require.NoError(t, w.WriteSummary(context.Background(), [][]string{report.SummaryHeader}))
	assert.Zero(t, designers.mutations)
}

// designerSink serves the designer sheet and counts mutating calls.
type designerSink struct {
	rows      [][]string
	mutations int
}

func (d *designerSink) ReadRows(context.Context, string) ([][]string, error) { return d.rows, nil }

func (d *designerSink) EnsureSheet(context.Context, string) (int64, error) {
	d.mutations++
	return 1, nil
}

func (d *designerSink) ClearSheet(context.Context, string) error {
	d.mutations++
	return nil
}

func (d *designerSink) WriteRows(context.Context, string, [][]string) error {
	d.mutations++
	return nil
}

func (d *designerSink) WriteFormulas(context.Context, string, [][]string) error {
	d.mutations++
	return nil
}

func (d *designerSink) AppendRows(context.Context, string, [][]string) error {
	d.mutations++
	return nil
}
