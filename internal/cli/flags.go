package cli

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/eshaffer321/preorder-gather/internal/application/pipeline"
	"github.com/eshaffer321/preorder-gather/internal/infrastructure/config"
)

// DateLayout is the accepted -start-date format.
const DateLayout = "2006-01-02"

// ErrMissingStartDate is returned when -start-date is not given.
var ErrMissingStartDate = errors.New("-start-date is required (YYYY-MM-DD)")

// RunFlags are the flags of the reconciliation command
type RunFlags struct {
	StartDate     time.Time
	DebugItems    stringList
	SkipSummary   bool
	SkipCustomers bool
	DryRun        bool
	OrderID       string
	ConfigPath    string
	EnvFile       string
	Verbose       bool
}

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	if v = strings.TrimSpace(v); v != "" {
		*s = append(*s, v)
	}
	return nil
}

// dateValue parses a calendar date as midnight UTC, whatever the host zone.
type dateValue struct{ t *time.Time }

func (d dateValue) String() string {
	if d.t == nil || d.t.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

func (d dateValue) Set(v string) error {
	parsed, err := time.ParseInLocation(DateLayout, strings.TrimSpace(v), time.UTC)
	if err != nil {
		return fmt.Errorf("invalid date %q, want YYYY-MM-DD", v)
	}
	*d.t = parsed
	return nil
}

// ParseRunFlags parses the reconciliation command's flags from args
// (without the program name).
func ParseRunFlags(name string, args []string) (*RunFlags, error) {
	flags := &RunFlags{}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Var(dateValue{&flags.StartDate}, "start-date", "Only consider orders created on or after this date (YYYY-MM-DD, required)")
	fs.Var(&flags.DebugItems, "debug-item", "Trace orders containing an item whose name contains this text (repeatable)")
	fs.BoolVar(&flags.SkipSummary, "skip-summary", false, "Do not write the summary sheet")
	fs.BoolVar(&flags.SkipCustomers, "skip-customers", false, "Do not write per-customer sheets")
	fs.BoolVar(&flags.DryRun, "dry-run", false, "Run without writing to the spreadsheet")
	fs.StringVar(&flags.OrderID, "order-id", "", "Only process this order (for debugging)")
	fs.StringVar(&flags.ConfigPath, "config", "config.yaml", "Path to the YAML config file")
	fs.StringVar(&flags.EnvFile, "env-file", config.DefaultEnvFile, "Path to the dotenv credentials file")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Verbose output")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if flags.StartDate.IsZero() {
		return nil, ErrMissingStartDate
	}
	return flags, nil
}

// NeedsSink reports whether the run will write to the spreadsheet.
func (f *RunFlags) NeedsSink() bool {
	return !f.DryRun && !(f.SkipSummary && f.SkipCustomers)
}

// ToOptions converts RunFlags to pipeline.Options
func (f *RunFlags) ToOptions() pipeline.Options {
	return pipeline.Options{
		StartDate:     f.StartDate,
		DryRun:        f.DryRun,
		SkipSummary:   f.SkipSummary,
		SkipCustomers: f.SkipCustomers,
		DebugItems:    append([]string(nil), f.DebugItems...),
		OrderID:       f.OrderID,
	}
}
