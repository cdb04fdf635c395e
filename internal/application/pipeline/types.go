package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/eshaffer321/preorder-gather/internal/adapters/square"
	"github.com/eshaffer321/preorder-gather/internal/application/report"
	"github.com/eshaffer321/preorder-gather/internal/domain/aggregator"
	"github.com/eshaffer321/preorder-gather/internal/domain/catalog"
	"github.com/eshaffer321/preorder-gather/internal/domain/classifier"
	"github.com/eshaffer321/preorder-gather/internal/domain/merger"
	"github.com/eshaffer321/preorder-gather/internal/domain/validator"
	"github.com/eshaffer321/preorder-gather/internal/infrastructure/storage"
)

// OrderSource searches the commerce API for orders.
type OrderSource interface {
	SearchOrders(ctx context.Context, opts square.SearchOptions) (*square.SearchResult, error)
}

// Catalog is the resolver surface the run needs.
type Catalog interface {
	aggregator.Catalog
	Stats() catalog.Stats
}

// Options holds per-run settings, usually from CLI flags
type Options struct {
	StartDate     time.Time
	DryRun        bool
	SkipSummary   bool
	SkipCustomers bool
	// DebugItems are name substrings that trigger a full order trace.
	DebugItems []string
	OrderID    string // If set, only process this specific order (for debugging)
}

// Result holds run results
type Result struct {
	RunID          string
	OrdersFound    int
	Pages          int
	Counts         map[classifier.Class]int
	ProcessedCount int
	ErrorCount     int
	Errors         []error
	Discrepancies  []validator.Discrepancy
	CatalogStats   catalog.Stats
	MergedNames    map[string][]string // canonical name -> absorbed variants
	NewDesigners   []string
	Customers      int
	Items          int
	WriterStats    report.Stats
}

// Config is the static configuration of an Orchestrator
type Config struct {
	LocationID   string
	OrderStates  []string
	FollowCursor bool
	MaxPages     int
	ItemPrefix   string

	Classifier classifier.Options
	// MergeStrategy defaults to the substring strategy when nil.
	MergeStrategy merger.Strategy
}

// Orchestrator runs the reconciliation process
type Orchestrator struct {
	source     OrderSource
	catalog    Catalog
	classifier *classifier.Classifier
	strategy   merger.Strategy
	writer     *report.Writer
	storage    storage.Repository
	cfg        Config
	logger     *slog.Logger
}

// NewOrchestrator creates a new run orchestrator. repo may be nil, in
// which case nothing is recorded.
func NewOrchestrator(
	source OrderSource,
	cat Catalog,
	writer *report.Writer,
	repo storage.Repository,
	cfg Config,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	strategy := cfg.MergeStrategy
	if strategy == nil {
		strategy = merger.SubstringStrategy{}
	}
	return &Orchestrator{
		source:     source,
		catalog:    cat,
		classifier: classifier.New(cfg.Classifier),
		strategy:   strategy,
		writer:     writer,
		storage:    repo,
		cfg:        cfg,
		logger:     logger.With("system", "pipeline"),
	}
}
