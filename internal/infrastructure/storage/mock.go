package storage

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MockRepository is an in-memory implementation of Repository for testing.
// It stores all data in maps and slices, making tests fast and isolated.
type MockRepository struct {
	mu            sync.Mutex
	runs          map[string]*PipelineRun
	runOrder      []string
	records       map[string]map[string]*OrderRecord // run_id -> order_id
	discrepancies map[string][]DiscrepancyRecord
	nextRunID     int
	nextID        int64

	// Hooks for test assertions
	StartRunCalled        bool
	CompleteRunCalled     bool
	SaveOrderRecordCalled bool
	LastCompletedRun      *PipelineRun

	// Error injection for testing error paths
	StartRunErr        error
	CompleteRunErr     error
	SaveOrderRecordErr error
	SaveDiscrepancyErr error
}

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		runs:          make(map[string]*PipelineRun),
		records:       make(map[string]map[string]*OrderRecord),
		discrepancies: make(map[string][]DiscrepancyRecord),
		nextRunID:     1,
		nextID:        1,
	}
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// Close does nothing for mock
func (m *MockRepository) Close() error {
	return nil
}

func (m *MockRepository) StartRun(run *PipelineRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.StartRunCalled = true
	if m.StartRunErr != nil {
		return m.StartRunErr
	}
	if run.ID == "" {
		run.ID = fmt.Sprintf("run-%d", m.nextRunID)
		m.nextRunID++
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if run.Status == "" {
		run.Status = RunStatusRunning
	}
	copied := *run
	m.runs[run.ID] = &copied
	m.runOrder = append(m.runOrder, run.ID)
	return nil
}

func (m *MockRepository) CompleteRun(run *PipelineRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CompleteRunCalled = true
	if m.CompleteRunErr != nil {
		return m.CompleteRunErr
	}
	if _, ok := m.runs[run.ID]; !ok {
		return fmt.Errorf("complete run %s: %w", run.ID, ErrNotFound)
	}
	if run.CompletedAt == nil {
		now := time.Now()
		run.CompletedAt = &now
	}
	if run.Status == "" || run.Status == RunStatusRunning {
		run.Status = RunStatusCompleted
	}
	copied := *run
	m.runs[run.ID] = &copied
	m.LastCompletedRun = &copied
	return nil
}

func (m *MockRepository) GetRun(runID string) (*PipelineRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[runID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *run
	return &copied, nil
}

func (m *MockRepository) ListRuns(limit int) ([]PipelineRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}
	var out []PipelineRun
	for i := len(m.runOrder) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, *m.runs[m.runOrder[i]])
	}
	return out, nil
}

func (m *MockRepository) SaveOrderRecord(record *OrderRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveOrderRecordCalled = true
	if m.SaveOrderRecordErr != nil {
		return m.SaveOrderRecordErr
	}
	if m.records[record.RunID] == nil {
		m.records[record.RunID] = make(map[string]*OrderRecord)
	}
	record.ID = m.nextID
	m.nextID++
	copied := *record
	m.records[record.RunID][record.OrderID] = &copied
	return nil
}

func (m *MockRepository) ListOrderRecords(filters OrderRecordFilters) (*OrderRecordList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if filters.Limit <= 0 {
		filters.Limit = 50
	}
	var matched []*OrderRecord
	for _, rec := range m.records[filters.RunID] {
		if filters.Class != "" && rec.Class != filters.Class {
			continue
		}
		if filters.Customer != "" && !strings.Contains(rec.Customer, filters.Customer) {
			continue
		}
		copied := *rec
		matched = append(matched, &copied)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].OrderID < matched[j].OrderID
	})

	list := &OrderRecordList{Records: []*OrderRecord{}, TotalCount: len(matched), Limit: filters.Limit, Offset: filters.Offset}
	if filters.Offset < len(matched) {
		end := filters.Offset + filters.Limit
		if end > len(matched) {
			end = len(matched)
		}
		list.Records = matched[filters.Offset:end]
	}
	return list, nil
}

func (m *MockRepository) SaveDiscrepancy(d *DiscrepancyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SaveDiscrepancyErr != nil {
		return m.SaveDiscrepancyErr
	}
	d.ID = m.nextID
	m.nextID++
	m.discrepancies[d.RunID] = append(m.discrepancies[d.RunID], *d)
	return nil
}

func (m *MockRepository) ListDiscrepancies(runID string) ([]DiscrepancyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := append([]DiscrepancyRecord{}, m.discrepancies[runID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ItemName < out[j].ItemName })
	return out, nil
}

// RecordCount returns how many order records a run holds
func (m *MockRepository) RecordCount(runID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records[runID])
}
