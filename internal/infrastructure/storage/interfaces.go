package storage

// Repository defines the complete storage interface.
// This interface allows swapping implementations (SQLite, in-memory)
// and makes testing with mocks straightforward.
type Repository interface {
	RunRepository
	OrderRecordRepository
	DiscrepancyRepository
	Close() error
}

// RunRepository handles pipeline run tracking
type RunRepository interface {
	// StartRun records the start of a run. An empty ID is filled in.
	StartRun(run *PipelineRun) error

	// CompleteRun records the final counters and status of a run
	CompleteRun(run *PipelineRun) error

	// GetRun retrieves a run by ID
	GetRun(runID string) (*PipelineRun, error)

	// ListRuns returns recent runs, newest first
	ListRuns(limit int) ([]PipelineRun, error)
}

// OrderRecordRepository handles per-order classification records
type OrderRecordRepository interface {
	// SaveOrderRecord saves or replaces the record of one order in a run
	SaveOrderRecord(record *OrderRecord) error

	// ListOrderRecords returns a run's records matching the filters
	ListOrderRecords(filters OrderRecordFilters) (*OrderRecordList, error)
}

// DiscrepancyRepository handles reconciliation findings
type DiscrepancyRepository interface {
	// SaveDiscrepancy records one mismatched item
	SaveDiscrepancy(d *DiscrepancyRecord) error

	// ListDiscrepancies returns a run's findings ordered by item name
	ListDiscrepancies(runID string) ([]DiscrepancyRecord, error)
}

// OrderRecordFilters defines filters for listing order records
type OrderRecordFilters struct {
	RunID    string // Required
	Class    string // Filter by class (empty = all)
	Customer string // Substring match on customer (empty = all)
	Limit    int    // Max results (0 = default 50)
	Offset   int    // Pagination offset
}

// OrderRecordList contains paginated order records
type OrderRecordList struct {
	Records    []*OrderRecord `json:"records"`
	TotalCount int            `json:"total_count"`
	Limit      int            `json:"limit"`
	Offset     int            `json:"offset"`
}
