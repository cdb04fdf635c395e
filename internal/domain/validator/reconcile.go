// Package validator cross-checks published totals against the raw order
// line items.
//
// The reconciliation validator compares two independently built maps of
// quantity by item name: the per-product aggregate ("actual") and the sum
// over every customer's stored order history ("expected"). Any difference
// points at double counting or drift in the aggregation. It is purely
// diagnostic and never changes the data it inspects.
package validator

import (
	"fmt"
	"sort"
	"time"

	"github.com/eshaffer321/preorder-gather/internal/domain/aggregator"
)

// Occurrence is one customer order line carrying a mismatched item.
type Occurrence struct {
	Customer  string
	OrderID   string
	Quantity  int
	Status    string
	CreatedAt time.Time
}

// Discrepancy describes one item whose totals disagree.
type Discrepancy struct {
	// Name is the item display name
	Name string

	// Expected is the sum over customer histories
	Expected int

	// Actual is the per-product aggregate
	Actual int

	// Difference is Actual minus Expected
	Difference int

	// Occurrences lists every order containing the item
	Occurrences []Occurrence

	// Reason is a one-line description for logs
	Reason string
}

// Report is the outcome of one reconciliation.
type Report struct {
	// Checked is the number of distinct item names compared
	Checked int

	Discrepancies []Discrepancy
}

// OK is true when every compared total matched.
func (r *Report) OK() bool {
	return len(r.Discrepancies) == 0
}

// Reconcile compares expected and actual for every name present in either
// map. A name missing from one side counts as zero. customers fixes the
// order in which histories are searched for occurrences; histories not
// named there are searched afterwards in name order.
func Reconcile(expected, actual map[string]int, histories map[string]*aggregator.History, customers []string) *Report {
	names := make(map[string]struct{}, len(expected)+len(actual))
	for name := range expected {
		names[name] = struct{}{}
	}
	for name := range actual {
		names[name] = struct{}{}
	}

	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	report := &Report{Checked: len(sorted)}
	visit := visitOrder(histories, customers)

	for _, name := range sorted {
		exp, act := expected[name], actual[name]
		if exp == act {
			continue
		}
		report.Discrepancies = append(report.Discrepancies, Discrepancy{
			Name:        name,
			Expected:    exp,
			Actual:      act,
			Difference:  act - exp,
			Occurrences: occurrences(name, histories, visit),
			Reason:      fmt.Sprintf("expected %d from customer orders, aggregated %d", exp, act),
		})
	}
	return report
}

func visitOrder(histories map[string]*aggregator.History, customers []string) []string {
	seen := make(map[string]bool, len(histories))
	out := make([]string, 0, len(histories))
	for _, name := range customers {
		if _, ok := histories[name]; ok && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	var rest []string
	for name := range histories {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func occurrences(item string, histories map[string]*aggregator.History, visit []string) []Occurrence {
	var out []Occurrence
	for _, customer := range visit {
		for _, summary := range histories[customer].Orders {
			for _, line := range summary.Items {
				if line.Name != item {
					continue
				}
				out = append(out, Occurrence{
					Customer:  customer,
					OrderID:   summary.OrderID,
					Quantity:  line.Quantity,
					Status:    summary.Status,
					CreatedAt: summary.CreatedAt,
				})
			}
		}
	}
	return out
}
