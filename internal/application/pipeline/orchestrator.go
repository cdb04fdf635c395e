package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/eshaffer321/preorder-gather/internal/adapters/square"
	"github.com/eshaffer321/preorder-gather/internal/application/report"
	"github.com/eshaffer321/preorder-gather/internal/domain/aggregator"
	"github.com/eshaffer321/preorder-gather/internal/domain/classifier"
	"github.com/eshaffer321/preorder-gather/internal/domain/merger"
	"github.com/eshaffer321/preorder-gather/internal/domain/order"
	"github.com/eshaffer321/preorder-gather/internal/domain/validator"
)

// Run executes one reconciliation run: search, classify, aggregate, merge,
// validate and write. Only the order search and the write stage can fail
// the run; per-order errors and discrepancies are reported in the Result.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Result, error) {
	result := &Result{
		Errors:      make([]error, 0),
		MergedNames: make(map[string][]string),
	}

	o.logger.Debug("Starting run",
		"start_date", opts.StartDate.Format("2006-01-02"),
		"dry_run", opts.DryRun,
		"skip_summary", opts.SkipSummary,
		"skip_customers", opts.SkipCustomers,
		"order_id", opts.OrderID,
	)

	run := o.startRun(opts)
	if run != nil {
		result.RunID = run.ID
	}

	// 1. Search orders. This is an unrecoverable precondition.
	orders, err := o.fetchOrders(ctx, opts, result)
	if err != nil {
		o.failRun(run, result, err)
		return nil, err
	}

	// 2-3. Classify and aggregate
	agg := aggregator.NewContext(o.catalog, o.logger)
	o.processOrders(ctx, orders, agg, opts, result)

	// 4. Merge customer identities
	groups := merger.Merge(agg, o.strategy)
	for _, name := range agg.CustomerNames() {
		members := groups.Members(name)
		if len(members) < 2 {
			continue
		}
		var absorbed []string
		for _, m := range members {
			if m != name {
				absorbed = append(absorbed, m)
			}
		}
		result.MergedNames[name] = absorbed
		o.logger.Info("Merged customer names", "canonical", name, "variants", absorbed)
	}

	// 5. Validate
	o.validate(agg, result)
	o.recordDiscrepancies(run, result.Discrepancies)

	result.Counts = agg.Counts
	result.Customers = len(agg.CustomerNames())
	result.Items = len(agg.Items)
	if o.catalog != nil {
		result.CatalogStats = o.catalog.Stats()
	}

	// 6. Write reports
	if err := o.write(ctx, agg, opts, result); err != nil {
		o.failRun(run, result, err)
		return result, err
	}

	o.completeRun(run, result)
	return result, nil
}

// fetchOrders runs the order search from the start date
func (o *Orchestrator) fetchOrders(ctx context.Context, opts Options, result *Result) ([]*order.Order, error) {
	o.logger.Debug("Searching orders",
		"location_id", o.cfg.LocationID,
		"states", o.cfg.OrderStates,
		"follow_cursor", o.cfg.FollowCursor,
	)

	res, err := o.source.SearchOrders(ctx, square.SearchOptions{
		LocationIDs:  []string{o.cfg.LocationID},
		States:       o.cfg.OrderStates,
		StartAt:      opts.StartDate,
		FollowCursor: o.cfg.FollowCursor,
		MaxPages:     o.cfg.MaxPages,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search orders: %w", err)
	}

	result.OrdersFound = len(res.Orders)
	result.Pages = res.Pages
	if res.Cursor != "" {
		o.logger.Warn("Order search stopped with pages remaining",
			"pages", res.Pages,
			"max_pages", o.cfg.MaxPages,
		)
	}
	o.logger.Info("Fetched orders", "count", len(res.Orders), "pages", res.Pages)
	return res.Orders, nil
}

// processOrders classifies every order in API order and folds it into agg
func (o *Orchestrator) processOrders(ctx context.Context, orders []*order.Order, agg *aggregator.Context, opts Options, result *Result) {
	for i, ord := range orders {
		// If OrderID filter is set, skip all other orders
		if opts.OrderID != "" && ord.ID != opts.OrderID {
			o.logger.Debug("Skipping order (not matching -order-id filter)",
				"order_id", ord.ID,
				"filter", opts.OrderID,
			)
			continue
		}

		decision := o.classifier.Classify(ord)
		o.logger.Info("Order classified",
			"index", i+1,
			"total", len(orders),
			"order_id", ord.ID,
			"customer", ord.CustomerName(),
			"created_at", ord.CreatedAt,
			"class", decision.Class,
			"rule", decision.Rule,
			"forced", decision.Forced,
		)

		o.traceDebugItems(ord, decision.Class, opts.DebugItems)

		if err := agg.Add(ctx, ord, decision); err != nil {
			o.logger.Error("Failed to process order", "order_id", ord.ID, "error", err)
			result.ErrorCount++
			result.Errors = append(result.Errors, fmt.Errorf("order %s (%s, %s): %w",
				ord.ID,
				ord.CreatedAt.Format("2006-01-02"),
				ord.CustomerName(),
				err))
			o.recordOrder(result.RunID, ord, decision, err)
			continue
		}

		result.ProcessedCount++
		o.recordOrder(result.RunID, ord, decision, nil)
	}
}

// traceDebugItems logs the full order when any line item name contains one
// of the debug substrings.
func (o *Orchestrator) traceDebugItems(ord *order.Order, class classifier.Class, needles []string) {
	if len(needles) == 0 {
		return
	}
	var matched string
	for _, li := range ord.LineItems {
		for _, needle := range needles {
			if needle != "" && strings.Contains(li.DisplayName(), needle) {
				matched = needle
				break
			}
		}
		if matched != "" {
			break
		}
	}
	if matched == "" {
		return
	}

	info := ord.CustomerInfo()
	o.logger.Info("Debug item found",
		"match", matched,
		"order_id", ord.ID,
		"class", class,
		"state", ord.State,
		"fulfillment_state", ord.FulfillmentState(),
		"net_amount_due", ord.NetAmountDue.String(),
		"created_at", ord.CreatedAt,
		"customer", info.Name,
		"phone", info.Phone,
		"email", info.Email,
		"pickup_at", info.PickupAt,
	)
	for _, li := range ord.LineItems {
		o.logger.Info("Debug line item",
			"order_id", ord.ID,
			"item", li.DisplayName(),
			"quantity", li.Quantity,
			"catalog_id", li.CatalogObjectID,
		)
	}
}

// validate cross-checks product totals against customer histories. It
// never fails the run.
func (o *Orchestrator) validate(agg *aggregator.Context, result *Result) {
	prefix := o.cfg.ItemPrefix
	rep := validator.Reconcile(agg.ExpectedByName(prefix), agg.TotalsByName(prefix), agg.Customers, agg.CustomerNames())
	result.Discrepancies = rep.Discrepancies

	if rep.OK() {
		o.logger.Info("Totals reconciled", "items_checked", rep.Checked)
		return
	}

	for _, d := range rep.Discrepancies {
		o.logger.Warn("Quantity discrepancy",
			"item", d.Name,
			"expected", d.Expected,
			"actual", d.Actual,
			"difference", d.Difference,
		)
		for _, occ := range d.Occurrences {
			o.logger.Warn("Discrepancy occurrence",
				"item", d.Name,
				"customer", occ.Customer,
				"order_id", occ.OrderID,
				"quantity", occ.Quantity,
				"status", occ.Status,
				"created_at", occ.CreatedAt,
			)
		}
	}
	o.logger.Warn("Discrepancies found", "count", len(rep.Discrepancies), "items_checked", rep.Checked)
}

// write emits the summary and customer reports
func (o *Orchestrator) write(ctx context.Context, agg *aggregator.Context, opts Options, result *Result) error {
	if o.writer == nil {
		o.logger.Warn("No report writer configured, skipping reports")
		return nil
	}
	defer func() { result.WriterStats = o.writer.Stats() }()

	if !opts.SkipSummary {
		rooms, err := o.writer.LoadDesignerRooms(ctx)
		if err != nil {
			return fmt.Errorf("failed to load designer rooms: %w", err)
		}

		added, err := o.writer.AppendNewDesigners(ctx, rooms, agg.OrderedItems())
		if err != nil {
			return fmt.Errorf("failed to append designers: %w", err)
		}
		result.NewDesigners = added

		if err := o.writer.WriteSummary(ctx, report.BuildSummaryRows(agg.OrderedItems(), rooms)); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	} else {
		o.logger.Info("Skipping summary report")
	}

	if !opts.SkipCustomers {
		if err := o.writer.WriteCustomers(ctx, agg.CustomerNames(), agg.Customers); err != nil {
			return fmt.Errorf("failed to write customer reports: %w", err)
		}
	} else {
		o.logger.Info("Skipping customer reports")
	}
	return nil
}
