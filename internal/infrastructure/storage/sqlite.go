package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Storage provides SQLite database access for the run ledger.
// It implements the Repository interface.
type Storage struct {
	db     *sql.DB
	logger *slog.Logger
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage creates a new storage instance with SQLite database
func NewStorage(dbPath string) (*Storage, error) {
	return NewStorageWithLogger(dbPath, nil)
}

// NewStorageWithLogger is NewStorage with a scoped logger for migrations
func NewStorageWithLogger(dbPath string, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = defaultLogger()
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints (SQLite-specific)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Storage{db: db, logger: logger}

	if err := s.runMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// timeLayout is fixed-width so stored timestamps sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// StartRun inserts a running run
func (s *Storage) StartRun(run *PipelineRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if run.Status == "" {
		run.Status = RunStatusRunning
	}

	_, err := s.db.Exec(`
		INSERT INTO pipeline_runs (id, start_date, started_at, dry_run, status)
		VALUES (?, ?, ?, ?, ?)
	`, run.ID, run.StartDate, formatTime(run.StartedAt), run.DryRun, run.Status)
	if err != nil {
		return fmt.Errorf("failed to start run: %w", err)
	}
	return nil
}

// CompleteRun stores the final counters of a run
func (s *Storage) CompleteRun(run *PipelineRun) error {
	if run.CompletedAt == nil {
		now := time.Now()
		run.CompletedAt = &now
	}
	if run.Status == "" || run.Status == RunStatusRunning {
		run.Status = RunStatusCompleted
	}
	countsJSON, err := json.Marshal(run.Counts)
	if err != nil {
		return fmt.Errorf("failed to encode counts: %w", err)
	}

	res, err := s.db.Exec(`
		UPDATE pipeline_runs
		SET completed_at = ?, status = ?, orders_found = ?, orders_processed = ?,
		    orders_errored = ?, discrepancy_count = ?, counts_json = ?,
		    catalog_hits = ?, catalog_fetches = ?, catalog_failures = ?, error_message = ?
		WHERE id = ?
	`, formatTime(*run.CompletedAt), run.Status, run.OrdersFound, run.OrdersProcessed,
		run.OrdersErrored, run.DiscrepancyCount, string(countsJSON),
		run.CatalogHits, run.CatalogFetches, run.CatalogFailures, run.ErrorMessage,
		run.ID)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("complete run %s: %w", run.ID, ErrNotFound)
	}
	return nil
}

const runColumns = `id, start_date, started_at, completed_at, dry_run, status,
	orders_found, orders_processed, orders_errored, discrepancy_count, counts_json,
	catalog_hits, catalog_fetches, catalog_failures, error_message`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*PipelineRun, error) {
	var (
		run                     PipelineRun
		startedAt               string
		completedAt, countsJSON sql.NullString
		errMsg                  sql.NullString
	)
	if err := row.Scan(&run.ID, &run.StartDate, &startedAt, &completedAt, &run.DryRun, &run.Status,
		&run.OrdersFound, &run.OrdersProcessed, &run.OrdersErrored, &run.DiscrepancyCount, &countsJSON,
		&run.CatalogHits, &run.CatalogFetches, &run.CatalogFailures, &errMsg); err != nil {
		return nil, err
	}

	run.StartedAt = parseTime(startedAt)
	if completedAt.Valid && completedAt.String != "" {
		t := parseTime(completedAt.String)
		run.CompletedAt = &t
	}
	if countsJSON.Valid && countsJSON.String != "" && countsJSON.String != "null" {
		if err := json.Unmarshal([]byte(countsJSON.String), &run.Counts); err != nil {
			return nil, fmt.Errorf("failed to decode counts: %w", err)
		}
	}
	run.ErrorMessage = errMsg.String
	return &run, nil
}

// GetRun retrieves a run by ID
func (s *Storage) GetRun(runID string) (*PipelineRun, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM pipeline_runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns recent runs, newest first
func (s *Storage) ListRuns(limit int) ([]PipelineRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`SELECT `+runColumns+` FROM pipeline_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []PipelineRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// SaveOrderRecord saves or replaces an order record
func (s *Storage) SaveOrderRecord(record *OrderRecord) error {
	itemsJSON, err := json.Marshal(record.Items)
	if err != nil {
		return fmt.Errorf("failed to encode items: %w", err)
	}

	res, err := s.db.Exec(`
		INSERT OR REPLACE INTO order_records
		(run_id, order_id, customer, created_at, state, fulfillment_state,
		 class, rule, forced, units, items_json, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, record.RunID, record.OrderID, record.Customer, formatTime(record.CreatedAt),
		record.State, record.FulfillmentState, record.Class, record.Rule, record.Forced,
		record.Units, string(itemsJSON), record.ErrorMessage)
	if err != nil {
		return fmt.Errorf("failed to save order record: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		record.ID = id
	}
	return nil
}

// ListOrderRecords returns a run's order records, oldest order first
func (s *Storage) ListOrderRecords(filters OrderRecordFilters) (*OrderRecordList, error) {
	if filters.Limit <= 0 {
		filters.Limit = 50
	}

	where := ` WHERE run_id = ?`
	args := []any{filters.RunID}
	if filters.Class != "" {
		where += ` AND class = ?`
		args = append(args, filters.Class)
	}
	if filters.Customer != "" {
		where += ` AND customer LIKE ?`
		args = append(args, "%"+filters.Customer+"%")
	}

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM order_records`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count order records: %w", err)
	}

	query := `SELECT id, run_id, order_id, customer, created_at, state, fulfillment_state,
		class, rule, forced, units, items_json, error_message
		FROM order_records` + where + ` ORDER BY created_at ASC, order_id ASC LIMIT ? OFFSET ?`
	rows, err := s.db.Query(query, append(args, filters.Limit, filters.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("failed to list order records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := &OrderRecordList{Records: []*OrderRecord{}, TotalCount: total, Limit: filters.Limit, Offset: filters.Offset}
	for rows.Next() {
		var rec OrderRecord
		var customer, createdAt, state, fstate, rule, itemsJSON, errMsg sql.NullString
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.OrderID, &customer, &createdAt, &state, &fstate,
			&rec.Class, &rule, &rec.Forced, &rec.Units, &itemsJSON, &errMsg); err != nil {
			return nil, err
		}
		rec.Customer = customer.String
		rec.CreatedAt = parseTime(createdAt.String)
		rec.State = state.String
		rec.FulfillmentState = fstate.String
		rec.Rule = rule.String
		rec.ErrorMessage = errMsg.String
		if itemsJSON.String != "" {
			if err := json.Unmarshal([]byte(itemsJSON.String), &rec.Items); err != nil {
				return nil, fmt.Errorf("failed to decode items of %s: %w", rec.OrderID, err)
			}
		}
		result.Records = append(result.Records, &rec)
	}
	return result, rows.Err()
}

// SaveDiscrepancy records one mismatched item
func (s *Storage) SaveDiscrepancy(d *DiscrepancyRecord) error {
	occJSON, err := json.Marshal(d.Occurrences)
	if err != nil {
		return fmt.Errorf("failed to encode occurrences: %w", err)
	}
	res, err := s.db.Exec(`
		INSERT INTO discrepancies (run_id, item_name, expected, actual, occurrences_json)
		VALUES (?, ?, ?, ?, ?)
	`, d.RunID, d.ItemName, d.Expected, d.Actual, string(occJSON))
	if err != nil {
		return fmt.Errorf("failed to save discrepancy: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		d.ID = id
	}
	return nil
}

// ListDiscrepancies returns a run's findings ordered by item name
func (s *Storage) ListDiscrepancies(runID string) ([]DiscrepancyRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, item_name, expected, actual, occurrences_json
		FROM discrepancies WHERE run_id = ? ORDER BY item_name ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list discrepancies: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []DiscrepancyRecord{}
	for rows.Next() {
		var (
			d       DiscrepancyRecord
			occJSON sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.RunID, &d.ItemName, &d.Expected, &d.Actual, &occJSON); err != nil {
			return nil, err
		}
		if occJSON.String != "" {
			if err := json.Unmarshal([]byte(occJSON.String), &d.Occurrences); err != nil {
				return nil, fmt.Errorf("failed to decode occurrences: %w", err)
			}
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
