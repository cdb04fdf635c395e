package cli_test

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/preorder-gather/internal/application/pipeline"
	"github.com/eshaffer321/preorder-gather/internal/cli"
	"github.com/eshaffer321/preorder-gather/internal/domain/catalog"
	"github.com/eshaffer321/preorder-gather/internal/domain/classifier"
	"github.com/eshaffer321/preorder-gather/internal/domain/validator"
	"github.com/eshaffer321/preorder-gather/internal/infrastructure/config"
)

func TestParseRunFlags(t *testing.T) {
	t.Run("parses every flag", func(t *testing.T) {
		flags, err := cli.ParseRunFlags("test", []string{
			"-start-date", "2026-10-01",
			"-debug-item", "Widget",
			"-debug-item", "Lamp",
			"-skip-summary",
			"-dry-run",
			"-order-id", "ORDER-1",
			"-config", "alt.yaml",
			"-env-file", "x.env",
			"-verbose",
		})
		require.NoError(t, err)

		assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), flags.StartDate)
		assert.Equal(t, []string{"Widget", "Lamp"}, []string(flags.DebugItems))
		assert.True(t, flags.SkipSummary)
		assert.False(t, flags.SkipCustomers)
		assert.True(t, flags.DryRun)
		assert.Equal(t, "ORDER-1", flags.OrderID)
		assert.Equal(t, "alt.yaml", flags.ConfigPath)
		assert.Equal(t, "x.env", flags.EnvFile)
		assert.True(t, flags.Verbose)
	})

	t.Run("defaults", func(t *testing.T) {
		flags, err := cli.ParseRunFlags("test", []string{"-start-date", "2026-10-01"})
		require.NoError(t, err)

		assert.Equal(t, "config.yaml", flags.ConfigPath)
		assert.Equal(t, config.DefaultEnvFile, flags.EnvFile)
		assert.Empty(t, flags.DebugItems)
	})

	t.Run("start date is midnight UTC on a non-UTC host", func(t *testing.T) {
		orig := time.Local
		time.Local = time.FixedZone("EST", -5*60*60)
		defer func() { time.Local = orig }()

		flags, err := cli.ParseRunFlags("test", []string{"-start-date", "2025-03-01"})
		require.NoError(t, err)

		assert.Equal(t, "2025-03-01T00:00:00Z", flags.StartDate.UTC().Format(time.RFC3339))
	})

	t.Run("start date is required", func(t *testing.T) {
		_, err := cli.ParseRunFlags("test", nil)
		assert.True(t, errors.Is(err, cli.ErrMissingStartDate))
	})

	t.Run("rejects malformed date", func(t *testing.T) {
		_, err := cli.ParseRunFlags("test", []string{"-start-date", "10/01/2026"})
		assert.Error(t, err)
	})
}

func TestRunFlags_NeedsSink(t *testing.T) {
	tests := []struct {
		name  string
		flags cli.RunFlags
		want  bool
	}{
		{"default run writes", cli.RunFlags{}, true},
		{"dry run never writes", cli.RunFlags{DryRun: true}, false},
		{"one output skipped", cli.RunFlags{SkipSummary: true}, true},
		{"both outputs skipped", cli.RunFlags{SkipSummary: true, SkipCustomers: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.flags.NeedsSink())
		})
	}
}

func TestRunFlags_ToOptions(t *testing.T) {
	flags, err := cli.ParseRunFlags("test", []string{
		"-start-date", "2026-10-01", "-skip-customers", "-debug-item", "Widget", "-order-id", "o1",
	})
	require.NoError(t, err)

	opts := flags.ToOptions()

	assert.Equal(t, flags.StartDate, opts.StartDate)
	assert.True(t, opts.SkipCustomers)
	assert.False(t, opts.SkipSummary)
	assert.Equal(t, []string{"Widget"}, opts.DebugItems)
	assert.Equal(t, "o1", opts.OrderID)
}

func TestPrintHeader(t *testing.T) {
	flags, err := cli.ParseRunFlags("test", []string{"-start-date", "2026-10-01", "-dry-run", "-skip-summary"})
	require.NoError(t, err)

	var buf bytes.Buffer
	cli.PrintHeader(&buf, flags)

	assert.Contains(t, buf.String(), "orders since 2026-10-01 (DRY-RUN mode)")
	assert.Contains(t, buf.String(), "Outputs: customers")
}

func TestPrintRunSummary(t *testing.T) {
	result := &pipeline.Result{
		RunID:          "run-1",
		OrdersFound:    6,
		Pages:          1,
		ProcessedCount: 5,
		ErrorCount:     1,
		Errors:         []error{errors.New("order o5: bad quantity")},
		Counts: map[classifier.Class]int{
			classifier.ClassCompleted:     3,
			classifier.ClassStillShopping: 1,
		},
		CatalogStats: catalog.Stats{Hits: 2, Fetches: 1},
		MergedNames:  map[string][]string{"Jane Doe": {"Jane"}},
		Discrepancies: []validator.Discrepancy{{
			Name: "PRE-ORDER Lamp", Expected: 2, Actual: 1,
			Occurrences: []validator.Occurrence{{Customer: "Jane Doe", OrderID: "o1", Quantity: 1, Status: "COMPLETED"}},
		}},
	}

	var buf bytes.Buffer
	cli.PrintRunSummary(&buf, result, false)
	out := buf.String()

	assert.Contains(t, out, "Run: run-1")
	assert.Contains(t, out, "processed=5 of 6 errors=1")
	assert.Contains(t, out, "Classes: COMPLETED=3 STILL_SHOPPING=1")
	assert.Contains(t, out, "Jane Doe <- Jane")
	assert.Contains(t, out, "PRE-ORDER Lamp: expected=2 actual=1")
	assert.Contains(t, out, "order o5: bad quantity")
	assert.NotContains(t, out, "completed successfully")
}

func TestPrintRunSummary_Nil(t *testing.T) {
	assert.NotPanics(t, func() { cli.PrintRunSummary(io.Discard, nil, false) })
}

func TestServeFlags_APIConfig(t *testing.T) {
	cfg := &config.Config{API: config.APIConfig{Port: 9000, AllowedOrigins: []string{"http://example.test"}}}

	apiCfg := (&cli.ServeFlags{}).APIConfig(cfg)
	assert.Equal(t, 9000, apiCfg.Port)
	assert.Equal(t, []string{"http://example.test"}, apiCfg.AllowedOrigins)

	apiCfg = (&cli.ServeFlags{Port: 7000}).APIConfig(cfg)
	assert.Equal(t, 7000, apiCfg.Port)
}
