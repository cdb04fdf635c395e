package dto

import "time"

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// NewHealthResponse creates a healthy response with the current timestamp.
func NewHealthResponse() HealthResponse {
	return HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// RunResponse represents a pipeline run in API responses.
type RunResponse struct {
	ID               string         `json:"id"`
	StartDate        string         `json:"start_date"`
	StartedAt        string         `json:"started_at"`
	CompletedAt      string         `json:"completed_at,omitempty"`
	DryRun           bool           `json:"dry_run"`
	Status           string         `json:"status"`
	OrdersFound      int            `json:"orders_found"`
	OrdersProcessed  int            `json:"orders_processed"`
	OrdersErrored    int            `json:"orders_errored"`
	DiscrepancyCount int            `json:"discrepancy_count"`
	Counts           map[string]int `json:"counts,omitempty"`
	CatalogHits      int            `json:"catalog_hits"`
	CatalogFetches   int            `json:"catalog_fetches"`
	CatalogFailures  int            `json:"catalog_failures"`
	ErrorMessage     string         `json:"error_message,omitempty"`
}

// RunListResponse is returned when listing runs.
type RunListResponse struct {
	Runs  []RunResponse `json:"runs"`
	Count int           `json:"count"`
}

// ItemResponse represents a line item of a recorded order.
type ItemResponse struct {
	CatalogID string `json:"catalog_id,omitempty"`
	Name      string `json:"name"`
	Quantity  string `json:"quantity"`
}

// OrderRecordResponse represents one classified order.
type OrderRecordResponse struct {
	OrderID          string         `json:"order_id"`
	Customer         string         `json:"customer"`
	CreatedAt        string         `json:"created_at"`
	State            string         `json:"state"`
	FulfillmentState string         `json:"fulfillment_state,omitempty"`
	Class            string         `json:"class"`
	Rule             string         `json:"rule,omitempty"`
	Forced           bool           `json:"forced"`
	Units            int            `json:"units"`
	Items            []ItemResponse `json:"items"`
	ErrorMessage     string         `json:"error_message,omitempty"`
}

// OrderRecordListResponse is returned when listing a run's orders.
type OrderRecordListResponse struct {
	Orders     []OrderRecordResponse `json:"orders"`
	TotalCount int                   `json:"total_count"`
	Limit      int                   `json:"limit"`
	Offset     int                   `json:"offset"`
}

// OccurrenceResponse locates a mismatched item in one order.
type OccurrenceResponse struct {
	Customer  string `json:"customer"`
	OrderID   string `json:"order_id"`
	Quantity  int    `json:"quantity"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// DiscrepancyResponse represents one reconciliation finding.
type DiscrepancyResponse struct {
	ItemName    string               `json:"item_name"`
	Expected    int                  `json:"expected"`
	Actual      int                  `json:"actual"`
	Difference  int                  `json:"difference"`
	Occurrences []OccurrenceResponse `json:"occurrences"`
}

// DiscrepancyListResponse is returned when listing a run's findings.
type DiscrepancyListResponse struct {
	RunID         string                `json:"run_id"`
	Discrepancies []DiscrepancyResponse `json:"discrepancies"`
	Count         int                   `json:"count"`
}
