// Package aggregator accumulates per-product ordered quantities and
// per-customer order histories across one run's classified orders.
//
// All state lives in a Context created fresh for each run and passed
// through the pipeline explicitly. Totals only ever grow.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/eshaffer321/preorder-gather/internal/domain/catalog"
	"github.com/eshaffer321/preorder-gather/internal/domain/classifier"
	"github.com/eshaffer321/preorder-gather/internal/domain/order"
)

// Catalog is the slice of the catalog resolver the aggregator needs.
type Catalog interface {
	Resolve(ctx context.Context, id string) (*catalog.Object, error)
	InCategory(ctx context.Context, id string) bool
	Designer(ctx context.Context, id string) string
}

// Item is the running aggregate for one catalog id.
type Item struct {
	CatalogID string
	Name      string
	Designer  string
	// InCategory is true when the item belongs to the target category set.
	InCategory bool
	Quantity   int
	InCarts    int
}

// OrderItem is one line of a customer's order history.
type OrderItem struct {
	CatalogID string
	Name      string
	Designer  string
	Quantity  int
}

// OrderSummary is one counted order in a customer's history.
type OrderSummary struct {
	OrderID   string
	CreatedAt time.Time
	Status    string
	Class     classifier.Class
	PickupAt  string
	Items     []OrderItem
}

// History is the ordered list of a customer's counted orders.
type History struct {
	Customer string
	Orders   []OrderSummary
}

// Context is the aggregation state of a single run.
type Context struct {
	Items     map[string]*Item
	Customers map[string]*History
	Counts    map[classifier.Class]int

	itemOrder     []string
	customerOrder []string
	catalog       Catalog
	logger        *slog.Logger
}

// NewContext creates an empty aggregation context
func NewContext(cat Catalog, logger *slog.Logger) *Context {
	if logger == nil {
		logger = slog.Default()
	}
	counts := make(map[classifier.Class]int, len(classifier.AllClasses))
	for _, class := range classifier.AllClasses {
		counts[class] = 0
	}
	return &Context{
		Items:     make(map[string]*Item),
		Customers: make(map[string]*History),
		Counts:    counts,
		catalog:   cat,
		logger:    logger,
	}
}

type parsedLine struct {
	line  order.LineItem
	units int
}

// parseLines converts every quantity up front so a bad line leaves the
// context untouched.
func parseLines(o *order.Order) ([]parsedLine, error) {
	lines := make([]parsedLine, 0, len(o.LineItems))
	for _, li := range o.LineItems {
		units, err := li.Units()
		if err != nil {
			return nil, err
		}
		lines = append(lines, parsedLine{line: li, units: units})
	}
	return lines, nil
}

// Add folds one classified order into the context. Counted orders update
// firm totals and the customer's history; still-shopping orders update the
// in-cart counters; every other class only bumps its counter.
func (c *Context) Add(ctx context.Context, o *order.Order, decision classifier.Decision) error {
	lines, err := parseLines(o)
	if err != nil {
		return fmt.Errorf("order %s: %w", o.ID, err)
	}

	c.Counts[decision.Class]++

	switch {
	case decision.Class.InCarts():
		c.addInCarts(ctx, lines)
	case decision.Class.Counted():
		c.addCounted(ctx, o, decision, lines)
	}
	return nil
}

func (c *Context) addInCarts(ctx context.Context, lines []parsedLine) {
	for _, pl := range lines {
		id := pl.line.CatalogObjectID
		if id == "" {
			continue
		}
		item, ok := c.Items[id]
		if !ok {
			item = c.newItem(ctx, id, pl.line.DisplayName())
		}
		item.InCarts += pl.units
	}
}

func (c *Context) addCounted(ctx context.Context, o *order.Order, decision classifier.Decision, lines []parsedLine) {
	info := o.CustomerInfo()
	summary := OrderSummary{
		OrderID:   o.ID,
		CreatedAt: o.CreatedAt,
		Status:    o.FulfillmentState(),
		Class:     decision.Class,
		PickupAt:  info.PickupAt,
		Items:     make([]OrderItem, 0, len(lines)),
	}

	for _, pl := range lines {
		name := pl.line.DisplayName()
		entry := OrderItem{CatalogID: pl.line.CatalogObjectID, Name: name, Quantity: pl.units}

		if id := pl.line.CatalogObjectID; id != "" {
			if _, err := c.catalog.Resolve(ctx, id); err != nil {
				if !errors.Is(err, catalog.ErrNotFound) {
					c.logger.Warn("Catalog lookup failed", "order_id", o.ID, "catalog_id", id, "error", err)
				}
				c.logger.Debug("Line item not in catalog, history only",
					"order_id", o.ID, "catalog_id", id, "item", name)
			} else {
				item, seen := c.Items[id]
				if !seen {
					item = c.newItem(ctx, id, name)
				}
				item.Quantity += pl.units
				entry.Designer = item.Designer
			}
		}

		summary.Items = append(summary.Items, entry)
	}

	h := c.history(info.Name)
	h.Orders = append(h.Orders, summary)
}

func (c *Context) newItem(ctx context.Context, id, name string) *Item {
	item := &Item{CatalogID: id, Name: name}
	if _, err := c.catalog.Resolve(ctx, id); err == nil {
		item.Designer = c.catalog.Designer(ctx, id)
		item.InCategory = c.catalog.InCategory(ctx, id)
	}
	c.Items[id] = item
	c.itemOrder = append(c.itemOrder, id)
	return item
}

func (c *Context) history(customer string) *History {
	h, ok := c.Customers[customer]
	if !ok {
		h = &History{Customer: customer}
		c.Customers[customer] = h
		c.customerOrder = append(c.customerOrder, customer)
	}
	return h
}

// CustomerNames returns customer names in first-seen order.
func (c *Context) CustomerNames() []string {
	out := make([]string, len(c.customerOrder))
	copy(out, c.customerOrder)
	return out
}

// OrderedItems returns aggregates in first-seen order.
func (c *Context) OrderedItems() []*Item {
	out := make([]*Item, 0, len(c.itemOrder))
	for _, id := range c.itemOrder {
		out = append(out, c.Items[id])
	}
	return out
}

// ReplaceCustomers swaps in a folded customer map, keeping first-seen order
// for the names that survive.
func (c *Context) ReplaceCustomers(customers map[string]*History, names []string) {
	c.Customers = customers
	c.customerOrder = names
}

// TotalsByName sums firm quantities per display name for names starting
// with prefix. An empty prefix matches every name.
func (c *Context) TotalsByName(prefix string) map[string]int {
	totals := make(map[string]int)
	for _, item := range c.Items {
		if strings.HasPrefix(item.Name, prefix) {
			totals[item.Name] += item.Quantity
		}
	}
	return totals
}

// ExpectedByName sums quantities straight from the customer histories,
// independently of the per-product aggregates.
func (c *Context) ExpectedByName(prefix string) map[string]int {
	totals := make(map[string]int)
	for _, h := range c.Customers {
		for _, summary := range h.Orders {
			for _, item := range summary.Items {
				if strings.HasPrefix(item.Name, prefix) {
					totals[item.Name] += item.Quantity
				}
			}
		}
	}
	return totals
}

// CountedOrders returns the number of orders that fed the firm totals.
func (c *Context) CountedOrders() int {
	return c.Counts[classifier.ClassNotFulfilled]
}
