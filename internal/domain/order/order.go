// Package order models the commerce API's order records as consumed by the
// reconciliation pipeline.
//
// Orders are immutable once fetched. Field names and JSON tags follow the
// remote API's wire format so search responses decode directly into these
// types.
package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Order lifecycle states.
const (
	StateOpen      = "OPEN"
	StateCompleted = "COMPLETED"
	StateCanceled  = "CANCELED"
	StateDraft     = "DRAFT"
)

// Fulfillment states.
const (
	FulfillmentProposed  = "PROPOSED"
	FulfillmentReserved  = "RESERVED"
	FulfillmentPrepared  = "PREPARED"
	FulfillmentCompleted = "COMPLETED"
	FulfillmentPickedUp  = "PICKED_UP"
	FulfillmentCanceled  = "CANCELED"
)

// NotAvailable is used for contact fields the order does not carry.
const NotAvailable = "N/A"

// Order is a single order returned by the order search endpoint.
type Order struct {
	ID           string        `json:"id"`
	LocationID   string        `json:"location_id,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	State        string        `json:"state"`
	NetAmountDue Money         `json:"net_amount_due_money"`
	Fulfillments []Fulfillment `json:"fulfillments,omitempty"`
	LineItems    []LineItem    `json:"line_items,omitempty"`
}

// Money is an amount in the smallest currency unit.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency,omitempty"`
}

// Decimal returns the amount in major currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Amount, -2)
}

// String formats the amount like "12.50 USD".
func (m Money) String() string {
	return strings.TrimSpace(m.Decimal().StringFixed(2) + " " + m.Currency)
}

// Fulfillment is the pickup or shipment record attached to an order.
type Fulfillment struct {
	UID             string           `json:"uid,omitempty"`
	Type            string           `json:"type,omitempty"`
	State           string           `json:"state"`
	PickupDetails   *PickupDetails   `json:"pickup_details,omitempty"`
	ShipmentDetails *ShipmentDetails `json:"shipment_details,omitempty"`
}

// PickupDetails holds the recipient and scheduled time of a pickup.
type PickupDetails struct {
	Recipient *Recipient `json:"recipient,omitempty"`
	PickupAt  string     `json:"pickup_at,omitempty"`
}

// ShipmentDetails holds the recipient and ship time of a shipment.
type ShipmentDetails struct {
	Recipient *Recipient `json:"recipient,omitempty"`
	ShippedAt string     `json:"shipped_at,omitempty"`
}

// Recipient is the contact block of a fulfillment.
type Recipient struct {
	DisplayName  string `json:"display_name,omitempty"`
	PhoneNumber  string `json:"phone_number,omitempty"`
	EmailAddress string `json:"email_address,omitempty"`
}

// CustomerInfo is the flattened contact information of an order.
type CustomerInfo struct {
	Name     string
	Phone    string
	Email    string
	PickupAt string
}

// PrimaryFulfillment returns the first fulfillment, or nil when the order has none.
// Only the first fulfillment is ever consulted.
func (o *Order) PrimaryFulfillment() *Fulfillment {
	if len(o.Fulfillments) == 0 {
		return nil
	}
	return &o.Fulfillments[0]
}

// FulfillmentState returns the primary fulfillment state, or "" without one.
func (o *Order) FulfillmentState() string {
	f := o.PrimaryFulfillment()
	if f == nil {
		return ""
	}
	return f.State
}

// HasBalanceDue reports whether the customer still owes money on the order,
// which means the cart is still being shopped.
func (o *Order) HasBalanceDue() bool {
	return o.NetAmountDue.Amount > 0
}

// CustomerInfo returns the recipient of the primary fulfillment. The pickup
// recipient is preferred; the shipment recipient is used when the pickup
// block carries none. Missing values are reported as NotAvailable.
func (o *Order) CustomerInfo() CustomerInfo {
	info := CustomerInfo{
		Name:     NotAvailable,
		Phone:    NotAvailable,
		Email:    NotAvailable,
		PickupAt: NotAvailable,
	}

	f := o.PrimaryFulfillment()
	if f == nil {
		return info
	}

	var recipient *Recipient
	if f.PickupDetails != nil {
		recipient = f.PickupDetails.Recipient
		if f.PickupDetails.PickupAt != "" {
			info.PickupAt = f.PickupDetails.PickupAt
		}
	}
	if recipient == nil && f.ShipmentDetails != nil {
		recipient = f.ShipmentDetails.Recipient
		if f.ShipmentDetails.ShippedAt != "" && info.PickupAt == NotAvailable {
			info.PickupAt = f.ShipmentDetails.ShippedAt
		}
	}
	if recipient == nil {
		return info
	}

	if recipient.DisplayName != "" {
		info.Name = recipient.DisplayName
	}
	if recipient.PhoneNumber != "" {
		info.Phone = recipient.PhoneNumber
	}
	if recipient.EmailAddress != "" {
		info.Email = recipient.EmailAddress
	}
	return info
}

// CustomerName is shorthand for CustomerInfo().Name.
func (o *Order) CustomerName() string {
	return o.CustomerInfo().Name
}

// String identifies the order in log and error messages.
func (o *Order) String() string {
	return fmt.Sprintf("%s (%s, %s)", o.ID, o.CustomerName(), o.CreatedAt.Format(time.RFC3339))
}
