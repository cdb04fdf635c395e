package order

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultVariation is the label the catalog gives single-variation items.
const DefaultVariation = "Regular"

// UnknownItem is the display name used when a line item carries no name.
const UnknownItem = "Unknown Item"

// LineItem is one product line within an order.
type LineItem struct {
	UID             string `json:"uid,omitempty"`
	CatalogObjectID string `json:"catalog_object_id,omitempty"`
	Name            string `json:"name,omitempty"`
	VariationName   string `json:"variation_name,omitempty"`
	// Quantity is a decimal string on the wire, e.g. "2" or "1.5".
	Quantity string `json:"quantity"`
}

// Units parses the quantity as a decimal and truncates it toward zero.
// An empty quantity counts as zero units.
func (li LineItem) Units() (int, error) {
	raw := strings.TrimSpace(li.Quantity)
	if raw == "" {
		return 0, nil
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid quantity %q for line item %q: %w", li.Quantity, li.Name, err)
	}

	return int(d.Truncate(0).IntPart()), nil
}

// HasCatalogReference reports whether the line item points at a catalog object.
func (li LineItem) HasCatalogReference() bool {
	return li.CatalogObjectID != ""
}

// DisplayName returns the variation-qualified name: "Widget (Large)" for a
// named variation, plain "Widget" for the default or an empty variation.
func (li LineItem) DisplayName() string {
	name := li.Name
	if name == "" {
		name = UnknownItem
	}

	variation := strings.TrimSpace(li.VariationName)
	if variation == "" || variation == DefaultVariation {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, variation)
}
