package classifier

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"github.com/eshaffer321/preorder-gather/internal/domain/order"
)

func withFulfillment(state, customer string) []order.Fulfillment {
	return []order.Fulfillment{{
		State: state,
		PickupDetails: &order.PickupDetails{
			Recipient: &order.Recipient{DisplayName: customer},
		},
	}}
}

func TestClassifier_DecisionTable(t *testing.T) {
	tests := []struct {
		name      string
		order     *order.Order
		wantClass Class
		wantRule  string
	}{
		{
			name:      "no fulfillment",
			order:     &order.Order{ID: "o1", State: order.StateOpen},
			wantClass: ClassNoFulfillment,
			wantRule:  "no-fulfillment",
		},
		{
			name: "balance due is still shopping",
			order: &order.Order{ID: "o2", State: order.StateOpen,
				NetAmountDue: order.Money{Amount: 500},
				Fulfillments: withFulfillment(order.FulfillmentProposed, "Jane")},
			wantClass: ClassStillShopping,
			wantRule:  "still-shopping",
		},
		{
			name: "draft is still shopping",
			order: &order.Order{ID: "o3", State: order.StateDraft,
				Fulfillments: withFulfillment(order.FulfillmentProposed, "Jane")},
			wantClass: ClassStillShopping,
		},
		{
			name: "still shopping beats completed",
			order: &order.Order{ID: "o4", State: order.StateOpen,
				NetAmountDue: order.Money{Amount: 1},
				Fulfillments: withFulfillment(order.FulfillmentCompleted, "Jane")},
			wantClass: ClassStillShopping,
		},
		{
			name: "completed",
			order: &order.Order{ID: "o5", State: order.StateOpen,
				Fulfillments: withFulfillment(order.FulfillmentCompleted, "Jane")},
			wantClass: ClassCompleted,
			wantRule:  "completed",
		},
		{
			name: "picked up",
			order: &order.Order{ID: "o6", State: order.StateOpen,
				Fulfillments: withFulfillment(order.FulfillmentPickedUp, "Jane")},
			wantClass: ClassPickedUp,
		},
		{
			name: "canceled",
			order: &order.Order{ID: "o7", State: order.StateCanceled,
				Fulfillments: withFulfillment(order.FulfillmentCanceled, "Jane")},
			wantClass: ClassCanceled,
			wantRule:  "canceled",
		},
		{
			name: "completed fulfillment beats canceled order",
			order: &order.Order{ID: "o8", State: order.StateCanceled,
				Fulfillments: withFulfillment(order.FulfillmentCompleted, "Jane")},
			wantClass: ClassCompleted,
		},
		{
			name: "open and reserved is not fulfilled",
			order: &order.Order{ID: "o9", State: order.StateOpen,
				Fulfillments: withFulfillment(order.FulfillmentReserved, "Jane")},
			wantClass: ClassNotFulfilled,
			wantRule:  "not-fulfilled",
		},
	}

	c := New(Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := c.Classify(tt.order)
			assert.Equal(t, tt.wantClass, d.Class)
			if tt.wantRule != "" {
				assert.Equal(t, tt.wantRule, d.Rule)
			}
			assert.False(t, d.Forced)
		})
	}
}

func TestClassifier_DenyList(t *testing.T) {
	c := New(Options{ExcludedOrderIDs: []string{"bad-order"}, ForceProcessCustomers: []string{"Jane"}})

	d := c.Classify(&order.Order{ID: "bad-order", State: order.StateOpen,
		Fulfillments: withFulfillment(order.FulfillmentReserved, "Jane")})

	assert.Equal(t, ClassExcluded, d.Class)
	assert.Equal(t, "deny-list", d.Rule)
}

func TestClassifier_ForceProcess(t *testing.T) {
	c := New(Options{ForceProcessCustomers: []string{" Jane Doe "}})

	t.Run("skips overridable rules", func(t *testing.T) {
		d := c.Classify(&order.Order{ID: "o1", State: order.StateCanceled,
			NetAmountDue: order.Money{Amount: 900},
			Fulfillments: withFulfillment(order.FulfillmentPickedUp, "Jane Doe")})
		assert.Equal(t, ClassNotFulfilled, d.Class)
		assert.True(t, d.Forced)
	})

	t.Run("does not apply to other customers", func(t *testing.T) {
		d := c.Classify(&order.Order{ID: "o2", State: order.StateOpen,
			Fulfillments: withFulfillment(order.FulfillmentPickedUp, "John")})
		assert.Equal(t, ClassPickedUp, d.Class)
		assert.False(t, d.Forced)
	})
}

func TestClass_Counted(t *testing.T) {
	for _, class := range AllClasses {
		assert.Equal(t, class == ClassNotFulfilled, class.Counted(), string(class))
		assert.Equal(t, class == ClassStillShopping, class.InCarts(), string(class))
	}
}

// genOrder generates orders across every state combination the table cares about.
func genOrder() gopter.Gen {
	return gopter.CombineGens(
		gen.OneConstOf(order.StateOpen, order.StateDraft, order.StateCanceled, order.StateCompleted),
		gen.Int64Range(-100, 100),
		gen.OneConstOf("", order.FulfillmentProposed, order.FulfillmentReserved, order.FulfillmentPrepared,
			order.FulfillmentCompleted, order.FulfillmentPickedUp, order.FulfillmentCanceled),
		gen.OneConstOf("Jane Doe", "John", "Forced Customer"),
	).Map(func(values []interface{}) *order.Order {
		o := &order.Order{
			ID:           "generated",
			State:        values[0].(string),
			NetAmountDue: order.Money{Amount: values[1].(int64)},
		}
		if state := values[2].(string); state != "" {
			o.Fulfillments = withFulfillment(state, values[3].(string))
		}
		return o
	})
}

func TestClassifier_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	c := New(Options{ForceProcessCustomers: []string{"Forced Customer"}})

	properties.Property("classification is idempotent", prop.ForAll(
		func(o *order.Order) bool {
			return c.Classify(o) == c.Classify(o)
		},
		genOrder(),
	))

	properties.Property("orders without fulfillment are NO_FULFILLMENT", prop.ForAll(
		func(o *order.Order) bool {
			if o.PrimaryFulfillment() != nil {
				return true
			}
			return c.Classify(o).Class == ClassNoFulfillment
		},
		genOrder(),
	))

	properties.Property("balance due or draft is STILL_SHOPPING unless forced", prop.ForAll(
		func(o *order.Order) bool {
			if o.PrimaryFulfillment() == nil || o.CustomerName() == "Forced Customer" {
				return true
			}
			if o.HasBalanceDue() || o.State == order.StateDraft {
				return c.Classify(o).Class == ClassStillShopping
			}
			return c.Classify(o).Class != ClassStillShopping
		},
		genOrder(),
	))

	properties.Property("forced customers with a fulfillment are always counted", prop.ForAll(
		func(o *order.Order) bool {
			if o.PrimaryFulfillment() == nil || o.CustomerName() != "Forced Customer" {
				return true
			}
			return c.Classify(o).Class.Counted()
		},
		genOrder(),
	))

	properties.TestingRun(t)
}
