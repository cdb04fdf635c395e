package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
)

// Migration represents a database schema migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.Tx) error
}

// allMigrations defines all migrations in order
var allMigrations = []Migration{
	{
		Version: 1,
		Name:    "create_pipeline_runs",
		Up:      migration001CreatePipelineRuns,
	},
	{
		Version: 2,
		Name:    "create_order_records",
		Up:      migration002CreateOrderRecords,
	},
	{
		Version: 3,
		Name:    "create_discrepancies",
		Up:      migration003CreateDiscrepancies,
	},
	{
		Version: 4,
		Name:    "add_catalog_stats_to_runs",
		Up:      migration004AddCatalogStats,
	},
}

// runMigrations executes all pending migrations
func (s *Storage) runMigrations() error {
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, migration := range allMigrations {
		if applied[migration.Version] {
			continue
		}

		s.logger.Debug("Running migration", "version", migration.Version, "name", migration.Name)

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
		}

		_, err = tx.Exec(`
			INSERT INTO schema_migrations (version, name) VALUES (?, ?)
		`, migration.Version, migration.Name)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}

		s.logger.Info("Migration complete", "version", migration.Version, "name", migration.Name)
	}

	return nil
}

// ensureMigrationsTable creates the schema_migrations table
func (s *Storage) ensureMigrationsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	_, err := s.db.Exec(query)
	return err
}

// getAppliedMigrations returns a set of applied migration versions
func (s *Storage) getAppliedMigrations() (map[int]bool, error) {
	applied := make(map[int]bool)

	rows, err := s.db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}

	return applied, rows.Err()
}

func execAll(tx *sql.Tx, queries []string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// ================================================================
// MIGRATION FUNCTIONS
// ================================================================

// migration001CreatePipelineRuns creates the run ledger
func migration001CreatePipelineRuns(tx *sql.Tx) error {
	return execAll(tx, []string{
		`CREATE TABLE IF NOT EXISTS pipeline_runs (
			id TEXT PRIMARY KEY,
			start_date TEXT NOT NULL,
			started_at TEXT NOT NULL,
			completed_at TEXT,
			dry_run BOOLEAN DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'running',
			orders_found INTEGER DEFAULT 0,
			orders_processed INTEGER DEFAULT 0,
			orders_errored INTEGER DEFAULT 0,
			discrepancy_count INTEGER DEFAULT 0,
			counts_json TEXT,
			error_message TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pipeline_runs_started_at
		 ON pipeline_runs(started_at)`,
	})
}

// migration002CreateOrderRecords creates per-order classification records
func migration002CreateOrderRecords(tx *sql.Tx) error {
	return execAll(tx, []string{
		`CREATE TABLE IF NOT EXISTS order_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES pipeline_runs(id) ON DELETE CASCADE,
			order_id TEXT NOT NULL,
			customer TEXT,
			created_at TEXT,
			state TEXT,
			fulfillment_state TEXT,
			class TEXT NOT NULL,
			rule TEXT,
			forced BOOLEAN DEFAULT 0,
			units INTEGER DEFAULT 0,
			items_json TEXT,
			error_message TEXT,
			UNIQUE(run_id, order_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_order_records_run
		 ON order_records(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_order_records_class
		 ON order_records(class)`,
	})
}

// migration003CreateDiscrepancies creates reconciliation findings
func migration003CreateDiscrepancies(tx *sql.Tx) error {
	return execAll(tx, []string{
		`CREATE TABLE IF NOT EXISTS discrepancies (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES pipeline_runs(id) ON DELETE CASCADE,
			item_name TEXT NOT NULL,
			expected INTEGER NOT NULL,
			actual INTEGER NOT NULL,
			occurrences_json TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_discrepancies_run
		 ON discrepancies(run_id)`,
	})
}

// migration004AddCatalogStats records resolver activity per run
func migration004AddCatalogStats(tx *sql.Tx) error {
	return execAll(tx, []string{
		`ALTER TABLE pipeline_runs ADD COLUMN catalog_hits INTEGER DEFAULT 0`,
		`ALTER TABLE pipeline_runs ADD COLUMN catalog_fetches INTEGER DEFAULT 0`,
		`ALTER TABLE pipeline_runs ADD COLUMN catalog_failures INTEGER DEFAULT 0`,
	})
}

// defaultLogger is used when no logger is supplied.
func defaultLogger() *slog.Logger {
	return slog.Default().With("system", "storage")
}
