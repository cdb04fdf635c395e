// Package report writes the reconciled results to a tabular sink: a
// per-product summary, one detail sheet per customer, and an index sheet
// linking to the detail sheets.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/eshaffer321/preorder-gather/internal/domain/aggregator"
)

// Sink is a spreadsheet-like store addressed by sheet title.
type Sink interface {
	ReadRows(ctx context.Context, sheet string) ([][]string, error)
	// EnsureSheet creates the sheet when missing and returns its id.
	EnsureSheet(ctx context.Context, sheet string) (int64, error)
	ClearSheet(ctx context.Context, sheet string) error
	// WriteRows stores rows as literal text.
	WriteRows(ctx context.Context, sheet string, rows [][]string) error
	// WriteFormulas stores rows the way a user typing them would, so
	// formulas evaluate.
	WriteFormulas(ctx context.Context, sheet string, rows [][]string) error
	AppendRows(ctx context.Context, sheet string, rows [][]string) error
}

// SheetNames are the sheet titles the writer uses.
type SheetNames struct {
	Summary string
	// CustomerPrefix is prepended to every customer sheet title.
	CustomerPrefix string
	Index          string
	Designers      string
}

// Options configures a Writer.
type Options struct {
	Sheets SheetNames

	// Cooldown is the pause between the end of one sink request and the
	// start of the next.
	Cooldown time.Duration

	// DryRun skips every mutating call. Reads still run when a sink is set.
	DryRun bool

	// ItemPrefix marks reportable items in the customer tables.
	ItemPrefix string
}

// Stats counts sink traffic.
type Stats struct {
	Reads   int
	Writes  int
	Skipped int
}

// Writer serializes sink calls through a rate limiter.
type Writer struct {
	sink    Sink
	limiter *rate.Limiter
	opts    Options
	logger  *slog.Logger
	stats   Stats
}

// NewWriter creates a writer. sink may be nil in dry-run mode.
func NewWriter(sink Sink, opts Options, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	limit := rate.Inf
	if opts.Cooldown > 0 {
		limit = rate.Every(opts.Cooldown)
	}
	return &Writer{
		sink:    sink,
		limiter: rate.NewLimiter(limit, 1),
		opts:    opts,
		logger:  logger.With("system", "report"),
	}
}

// Stats returns a snapshot of the sink traffic so far.
func (w *Writer) Stats() Stats {
	return w.stats
}

func (w *Writer) wait(ctx context.Context) error {
	if err := w.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

// cooldown drains the limiter at the moment a sink call returns, so the
// next call waits the full cooldown however long this one took.
func (w *Writer) cooldown() {
	if w.opts.Cooldown <= 0 {
		return
	}
	w.limiter = rate.NewLimiter(rate.Every(w.opts.Cooldown), 1)
	w.limiter.Allow()
}

func (w *Writer) read(ctx context.Context, sheet string) ([][]string, error) {
	if w.sink == nil {
		w.logger.Info("[DRY RUN] No sink configured, skipping read", "sheet", sheet)
		return nil, nil
	}
	if err := w.wait(ctx); err != nil {
		return nil, err
	}
	w.stats.Reads++
	rows, err := w.sink.ReadRows(ctx, sheet)
	w.cooldown()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", sheet, err)
	}
	return rows, nil
}

// mutate runs fn unless in dry-run mode.
func (w *Writer) mutate(ctx context.Context, op, sheet string, rows int, fn func() error) error {
	if w.opts.DryRun || w.sink == nil {
		w.stats.Skipped++
		w.logger.Info("[DRY RUN] Would "+op, "sheet", sheet, "rows", rows)
		return nil
	}
	if err := w.wait(ctx); err != nil {
		return err
	}
	w.stats.Writes++
	err := fn()
	w.cooldown()
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, sheet, err)
	}
	w.logger.Debug("Sink call", "op", op, "sheet", sheet, "rows", rows)
	return nil
}

func (w *Writer) ensure(ctx context.Context, sheet string) (int64, error) {
	var id int64
	err := w.mutate(ctx, "ensure sheet", sheet, 0, func() error {
		var err error
		id, err = w.sink.EnsureSheet(ctx, sheet)
		return err
	})
	return id, err
}

func (w *Writer) replace(ctx context.Context, sheet string, rows [][]string) error {
	return w.replaceWith(ctx, sheet, rows, w.sink.WriteRows)
}

func (w *Writer) replaceWith(ctx context.Context, sheet string, rows [][]string,
	write func(context.Context, string, [][]string) error) error {
	if err := w.mutate(ctx, "clear sheet", sheet, 0, func() error {
		return w.sink.ClearSheet(ctx, sheet)
	}); err != nil {
		return err
	}
	return w.mutate(ctx, "write rows", sheet, len(rows), func() error {
		return write(ctx, sheet, rows)
	})
}

// LoadDesignerRooms reads the designer reference sheet.
func (w *Writer) LoadDesignerRooms(ctx context.Context) (DesignerRooms, error) {
	rows, err := w.read(ctx, w.opts.Sheets.Designers)
	if err != nil {
		return nil, err
	}
	rooms := ParseDesignerRooms(rows)
	w.logger.Info("Loaded designer rooms", "designers", len(rooms))
	return rooms, nil
}

// AppendNewDesigners appends designers missing from rooms to the reference
// sheet with an empty room. Existing rows are never touched. It returns
// the appended names and records them in rooms.
func (w *Writer) AppendNewDesigners(ctx context.Context, rooms DesignerRooms, items []*aggregator.Item) ([]string, error) {
	names := NewDesigners(rooms, items)
	if len(names) == 0 {
		return nil, nil
	}

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, []string{name, "", ""})
	}
	if err := w.mutate(ctx, "append designers", w.opts.Sheets.Designers, len(rows), func() error {
		return w.sink.AppendRows(ctx, w.opts.Sheets.Designers, rows)
	}); err != nil {
		return nil, err
	}

	for _, name := range names {
		rooms[name] = ""
	}
	w.logger.Info("New designers added to reference sheet", "designers", names)
	return names, nil
}

// WriteSummary replaces the summary sheet with rows.
func (w *Writer) WriteSummary(ctx context.Context, rows [][]string) error {
	sheet := w.opts.Sheets.Summary
	if _, err := w.ensure(ctx, sheet); err != nil {
		return err
	}
	if err := w.replace(ctx, sheet, rows); err != nil {
		return err
	}
	w.logger.Info("Summary written", "sheet", sheet, "rows", len(rows))
	return nil
}

// WriteCustomers writes one detail sheet per customer and then the index.
// Customers are written in the given order.
func (w *Writer) WriteCustomers(ctx context.Context, customers []string, histories map[string]*aggregator.History) error {
	sheetIDs := make(map[string]int64, len(customers))

	written := make([]string, 0, len(customers))
	for _, name := range customers {
		if _, ok := histories[name]; ok {
			written = append(written, name)
		}
	}
	names := w.opts.Sheets
	titles := SheetTitles(names.CustomerPrefix, written, names.Summary, names.Index, names.Designers)

	for i, name := range customers {
		h, ok := histories[name]
		if !ok {
			continue
		}
		sheet := titles[name]
		id, err := w.ensure(ctx, sheet)
		if err != nil {
			return fmt.Errorf("customer %s: %w", name, err)
		}
		sheetIDs[name] = id

		if err := w.replace(ctx, sheet, BuildCustomerRows(h, w.opts.ItemPrefix)); err != nil {
			return fmt.Errorf("customer %s: %w", name, err)
		}
		w.logger.Debug("Customer sheet written", "customer", name, "orders", len(h.Orders),
			"progress", fmt.Sprintf("%d/%d", i+1, len(customers)))
	}

	index := w.opts.Sheets.Index
	if _, err := w.ensure(ctx, index); err != nil {
		return err
	}
	// The index holds HYPERLINK formulas.
	if err := w.replaceWith(ctx, index, BuildIndexRows(customers, histories, sheetIDs), w.sink.WriteFormulas); err != nil {
		return err
	}
	w.logger.Info("Customer sheets written", "customers", len(sheetIDs), "index", index)
	return nil
}
