package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("record not found")

// Run statuses
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// PipelineRun is one reconciliation run
type PipelineRun struct {
	ID               string         `json:"id"`
	StartDate        string         `json:"start_date"`
	StartedAt        time.Time      `json:"started_at"`
	CompletedAt      *time.Time     `json:"completed_at,omitempty"`
	DryRun           bool           `json:"dry_run"`
	Status           string         `json:"status"`
	OrdersFound      int            `json:"orders_found"`
	OrdersProcessed  int            `json:"orders_processed"`
	OrdersErrored    int            `json:"orders_errored"`
	DiscrepancyCount int            `json:"discrepancy_count"`
	Counts           map[string]int `json:"counts"`
	CatalogHits      int            `json:"catalog_hits"`
	CatalogFetches   int            `json:"catalog_fetches"`
	CatalogFailures  int            `json:"catalog_failures"`
	ErrorMessage     string         `json:"error_message,omitempty"`
}

// OrderRecord is the classification of one order within a run
type OrderRecord struct {
	ID               int64        `json:"id"`
	RunID            string       `json:"run_id"`
	OrderID          string       `json:"order_id"`
	Customer         string       `json:"customer"`
	CreatedAt        time.Time    `json:"created_at"`
	State            string       `json:"state"`
	FulfillmentState string       `json:"fulfillment_state"`
	Class            string       `json:"class"`
	Rule             string       `json:"rule"`
	Forced           bool         `json:"forced"`
	Units            int          `json:"units"`
	Items            []RecordItem `json:"items"`
	ErrorMessage     string       `json:"error_message,omitempty"`
}

// RecordItem is one line item of a recorded order
type RecordItem struct {
	CatalogID string `json:"catalog_id,omitempty"`
	Name      string `json:"name"`
	Quantity  string `json:"quantity"`
}

// DiscrepancyRecord is one mismatched item of a run
type DiscrepancyRecord struct {
	ID          int64              `json:"id"`
	RunID       string             `json:"run_id"`
	ItemName    string             `json:"item_name"`
	Expected    int                `json:"expected"`
	Actual      int                `json:"actual"`
	Occurrences []RecordOccurrence `json:"occurrences"`
}

// RecordOccurrence locates a mismatched item in a customer order
type RecordOccurrence struct {
	Customer  string    `json:"customer"`
	OrderID   string    `json:"order_id"`
	Quantity  int       `json:"quantity"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
