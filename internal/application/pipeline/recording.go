package pipeline

import (
	"time"

	"github.com/eshaffer321/preorder-gather/internal/domain/classifier"
	"github.com/eshaffer321/preorder-gather/internal/domain/order"
	"github.com/eshaffer321/preorder-gather/internal/domain/validator"
	"github.com/eshaffer321/preorder-gather/internal/infrastructure/storage"
)

// Recording functions for the run ledger.
// Storage failures are logged and never block the run.

// startRun records the start of a run
func (o *Orchestrator) startRun(opts Options) *storage.PipelineRun {
	if o.storage == nil {
		return nil
	}
	run := &storage.PipelineRun{
		StartDate: opts.StartDate.Format("2006-01-02"),
		StartedAt: time.Now(),
		DryRun:    opts.DryRun,
		Status:    storage.RunStatusRunning,
	}
	if err := o.storage.StartRun(run); err != nil {
		o.logger.Warn("Failed to start run tracking", "error", err)
		// Continue anyway - tracking failure shouldn't block the run
		return nil
	}
	o.logger.Debug("Run tracking started", "run_id", run.ID)
	return run
}

// recordOrder saves the classification of one order
func (o *Orchestrator) recordOrder(runID string, ord *order.Order, decision classifier.Decision, procErr error) {
	if o.storage == nil || runID == "" {
		return
	}

	record := &storage.OrderRecord{
		RunID:            runID,
		OrderID:          ord.ID,
		Customer:         ord.CustomerName(),
		CreatedAt:        ord.CreatedAt,
		State:            ord.State,
		FulfillmentState: ord.FulfillmentState(),
		Class:            string(decision.Class),
		Rule:             decision.Rule,
		Forced:           decision.Forced,
		Items:            make([]storage.RecordItem, 0, len(ord.LineItems)),
	}
	for _, li := range ord.LineItems {
		if units, err := li.Units(); err == nil {
			record.Units += units
		}
		record.Items = append(record.Items, storage.RecordItem{
			CatalogID: li.CatalogObjectID,
			Name:      li.DisplayName(),
			Quantity:  li.Quantity,
		})
	}
	if procErr != nil {
		record.Class = "ERROR"
		record.ErrorMessage = procErr.Error()
	}

	if err := o.storage.SaveOrderRecord(record); err != nil {
		o.logger.Error("Failed to save order record", "order_id", ord.ID, "error", err)
	}
}

// recordDiscrepancies saves every reconciliation finding
func (o *Orchestrator) recordDiscrepancies(run *storage.PipelineRun, discrepancies []validator.Discrepancy) {
	if o.storage == nil || run == nil {
		return
	}
	for _, d := range discrepancies {
		rec := &storage.DiscrepancyRecord{
			RunID:       run.ID,
			ItemName:    d.Name,
			Expected:    d.Expected,
			Actual:      d.Actual,
			Occurrences: make([]storage.RecordOccurrence, 0, len(d.Occurrences)),
		}
		for _, occ := range d.Occurrences {
			rec.Occurrences = append(rec.Occurrences, storage.RecordOccurrence{
				Customer:  occ.Customer,
				OrderID:   occ.OrderID,
				Quantity:  occ.Quantity,
				Status:    occ.Status,
				CreatedAt: occ.CreatedAt,
			})
		}
		if err := o.storage.SaveDiscrepancy(rec); err != nil {
			o.logger.Error("Failed to save discrepancy", "item", d.Name, "error", err)
		}
	}
}

func (o *Orchestrator) fillRun(run *storage.PipelineRun, result *Result) {
	run.OrdersFound = result.OrdersFound
	run.OrdersProcessed = result.ProcessedCount
	run.OrdersErrored = result.ErrorCount
	run.DiscrepancyCount = len(result.Discrepancies)
	run.CatalogHits = result.CatalogStats.Hits
	run.CatalogFetches = result.CatalogStats.Fetches
	run.CatalogFailures = result.CatalogStats.Failures
	if result.Counts != nil {
		run.Counts = make(map[string]int, len(result.Counts))
		for class, n := range result.Counts {
			run.Counts[string(class)] = n
		}
	}
}

// completeRun records the final counters of a successful run
func (o *Orchestrator) completeRun(run *storage.PipelineRun, result *Result) {
	if run == nil {
		return
	}
	o.fillRun(run, result)
	run.Status = storage.RunStatusCompleted
	if err := o.storage.CompleteRun(run); err != nil {
		o.logger.Warn("Failed to complete run tracking", "run_id", run.ID, "error", err)
	}
}

// failRun records a run that aborted
func (o *Orchestrator) failRun(run *storage.PipelineRun, result *Result, cause error) {
	if run == nil {
		return
	}
	o.fillRun(run, result)
	run.Status = storage.RunStatusFailed
	run.ErrorMessage = cause.Error()
	if err := o.storage.CompleteRun(run); err != nil {
		o.logger.Warn("Failed to record run failure", "run_id", run.ID, "error", err)
	}
}
