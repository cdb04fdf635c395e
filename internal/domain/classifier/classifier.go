// Package classifier derives the fulfillment class of an order and whether
// its line items count toward the pre-order totals.
//
// Classification is an ordered decision table evaluated top to bottom; the
// first rule whose predicate holds decides the class:
//
//	#  rule                 predicate                                   class           overridable
//	1  no-fulfillment       order has no fulfillment                    NO_FULFILLMENT  no
//	2  still-shopping       net amount due > 0 or order state DRAFT     STILL_SHOPPING  yes
//	3  completed            fulfillment state COMPLETED                 COMPLETED       yes
//	3  picked-up            fulfillment state PICKED_UP                 PICKED_UP       yes
//	4  canceled             order state CANCELED                        CANCELED        yes
//	5  not-fulfilled        always                                      NOT_FULFILLED   no
//
// Before the table runs, orders on the deny-list are EXCLUDED outright.
// Orders whose customer is on the force-process list skip every
// overridable rule, which lets known-bad upstream bookkeeping through.
package classifier

import (
	"strings"

	"github.com/eshaffer321/preorder-gather/internal/domain/order"
)

// Class is the outcome of classifying one order.
type Class string

const (
	ClassExcluded      Class = "EXCLUDED"
	ClassNoFulfillment Class = "NO_FULFILLMENT"
	ClassStillShopping Class = "STILL_SHOPPING"
	ClassCompleted     Class = "COMPLETED"
	ClassPickedUp      Class = "PICKED_UP"
	ClassCanceled      Class = "CANCELED"
	ClassNotFulfilled  Class = "NOT_FULFILLED"
)

// AllClasses lists every class in report order.
var AllClasses = []Class{
	ClassNotFulfilled,
	ClassPickedUp,
	ClassCompleted,
	ClassNoFulfillment,
	ClassStillShopping,
	ClassCanceled,
	ClassExcluded,
}

// Counted reports whether orders of this class feed the firm totals.
func (c Class) Counted() bool {
	return c == ClassNotFulfilled
}

// InCarts reports whether orders of this class feed the in-cart counter.
func (c Class) InCarts() bool {
	return c == ClassStillShopping
}

// Rule is one row of the decision table.
type Rule struct {
	Name        string
	Applies     func(o *order.Order) bool
	Class       Class
	Overridable bool
}

// DecisionTable returns the classification rules in priority order.
func DecisionTable() []Rule {
	return []Rule{
		{
			Name:    "no-fulfillment",
			Applies: func(o *order.Order) bool { return o.PrimaryFulfillment() == nil },
			Class:   ClassNoFulfillment,
		},
		{
			Name: "still-shopping",
			Applies: func(o *order.Order) bool {
				return o.HasBalanceDue() || o.State == order.StateDraft
			},
			Class:       ClassStillShopping,
			Overridable: true,
		},
		{
			Name:        "completed",
			Applies:     func(o *order.Order) bool { return o.FulfillmentState() == order.FulfillmentCompleted },
			Class:       ClassCompleted,
			Overridable: true,
		},
		{
			Name:        "picked-up",
			Applies:     func(o *order.Order) bool { return o.FulfillmentState() == order.FulfillmentPickedUp },
			Class:       ClassPickedUp,
			Overridable: true,
		},
		{
			Name:        "canceled",
			Applies:     func(o *order.Order) bool { return o.State == order.StateCanceled },
			Class:       ClassCanceled,
			Overridable: true,
		},
		{
			Name:    "not-fulfilled",
			Applies: func(*order.Order) bool { return true },
			Class:   ClassNotFulfilled,
		},
	}
}

// Decision is the classification of one order.
type Decision struct {
	Class Class
	// Rule names the decision table row (or "deny-list") that decided.
	Rule string
	// Forced is true when the force-process list skipped overridable rules.
	Forced bool
}

// Options configures the deny and force-process lists.
type Options struct {
	ExcludedOrderIDs      []string
	ForceProcessCustomers []string
}

// Classifier applies the decision table. It holds no per-order state, so
// classifying the same order twice always yields the same decision.
type Classifier struct {
	rules    []Rule
	excluded map[string]bool
	forced   map[string]bool
}

// New creates a classifier with the standard decision table
func New(opts Options) *Classifier {
	c := &Classifier{
		rules:    DecisionTable(),
		excluded: make(map[string]bool, len(opts.ExcludedOrderIDs)),
		forced:   make(map[string]bool, len(opts.ForceProcessCustomers)),
	}
	for _, id := range opts.ExcludedOrderIDs {
		c.excluded[strings.TrimSpace(id)] = true
	}
	for _, name := range opts.ForceProcessCustomers {
		c.forced[strings.TrimSpace(name)] = true
	}
	return c
}

// Classify returns the decision for o.
func (c *Classifier) Classify(o *order.Order) Decision {
	if c.excluded[o.ID] {
		return Decision{Class: ClassExcluded, Rule: "deny-list"}
	}

	forced := c.forced[strings.TrimSpace(o.CustomerName())]
	for _, rule := range c.rules {
		if forced && rule.Overridable {
			continue
		}
		if rule.Applies(o) {
			return Decision{Class: rule.Class, Rule: rule.Name, Forced: forced}
		}
	}

	// Unreachable: the last rule always applies.
	return Decision{Class: ClassNotFulfilled, Rule: "not-fulfilled", Forced: forced}
}
