package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/eshaffer321/preorder-gather/internal/application/pipeline"
	"github.com/eshaffer321/preorder-gather/internal/domain/classifier"
)

// PrintHeader prints the application header
func PrintHeader(w io.Writer, flags *RunFlags) {
	mode := "PRODUCTION"
	if flags.DryRun {
		mode = "DRY-RUN"
	}
	fmt.Fprintf(w, "preorder-gather: orders since %s (%s mode)\n", flags.StartDate.Format(DateLayout), mode)

	var outputs []string
	if !flags.SkipSummary {
		outputs = append(outputs, "summary")
	}
	if !flags.SkipCustomers {
		outputs = append(outputs, "customers")
	}
	if len(outputs) == 0 {
		outputs = append(outputs, "none")
	}
	fmt.Fprintf(w, "Outputs: %s", strings.Join(outputs, ", "))
	if flags.OrderID != "" {
		fmt.Fprintf(w, " | Order: %s", flags.OrderID)
	}
	if len(flags.DebugItems) > 0 {
		fmt.Fprintf(w, " | Debug items: %s", flags.DebugItems.String())
	}
	fmt.Fprint(w, "\n\n")
}

// PrintRunSummary prints the run result summary
func PrintRunSummary(w io.Writer, result *pipeline.Result, dryRun bool) {
	if result == nil {
		return
	}
	fmt.Fprintln(w, strings.Repeat("-", 60))
	if result.RunID != "" {
		fmt.Fprintf(w, "Run: %s\n", result.RunID)
	}
	fmt.Fprintf(w, "Orders: found=%d pages=%d processed=%d of %d errors=%d\n",
		result.OrdersFound,
		result.Pages,
		result.ProcessedCount,
		result.OrdersFound,
		result.ErrorCount)

	var counts []string
	for _, class := range classifier.AllClasses {
		if n := result.Counts[class]; n > 0 {
			counts = append(counts, fmt.Sprintf("%s=%d", class, n))
		}
	}
	if len(counts) > 0 {
		fmt.Fprintf(w, "Classes: %s\n", strings.Join(counts, " "))
	}
	fmt.Fprintf(w, "Customers=%d Items=%d\n", result.Customers, result.Items)

	cs := result.CatalogStats
	fmt.Fprintf(w, "Catalog: hits=%d misses=%d fetches=%d failures=%d\n",
		cs.Hits, cs.Misses, cs.Fetches, cs.Failures)

	if len(result.MergedNames) > 0 {
		fmt.Fprintln(w, "\nMerged customer names:")
		canonical := make([]string, 0, len(result.MergedNames))
		for name := range result.MergedNames {
			canonical = append(canonical, name)
		}
		sort.Strings(canonical)
		for _, name := range canonical {
			fmt.Fprintf(w, "  - %s <- %s\n", name, strings.Join(result.MergedNames[name], ", "))
		}
	}

	if len(result.NewDesigners) > 0 {
		fmt.Fprintf(w, "\nNew designers: %s\n", strings.Join(result.NewDesigners, ", "))
	}

	if len(result.Discrepancies) > 0 {
		fmt.Fprintf(w, "\nDiscrepancies (%d):\n", len(result.Discrepancies))
		for _, d := range result.Discrepancies {
			fmt.Fprintf(w, "  - %s: expected=%d actual=%d\n", d.Name, d.Expected, d.Actual)
			for _, occ := range d.Occurrences {
				fmt.Fprintf(w, "      %s order %s qty=%d (%s)\n", occ.Customer, occ.OrderID, occ.Quantity, occ.Status)
			}
		}
	}

	if len(result.Errors) > 0 {
		fmt.Fprintln(w, "\nErrors:")
		for _, err := range result.Errors {
			fmt.Fprintf(w, "  - %v\n", err)
		}
	}

	if dryRun {
		fmt.Fprintf(w, "\n[DRY RUN] skipped %d sheet writes\n", result.WriterStats.Skipped)
	} else if result.ErrorCount == 0 && len(result.Discrepancies) == 0 {
		fmt.Fprintln(w, "\nRun completed successfully.")
	}
}
