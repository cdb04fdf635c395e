// Package catalog resolves product identifiers to catalog metadata.
//
// Lookups go through a Cache that is pre-seeded from disk at the start of a
// run and flushed back at the end. Misses are fetched from the commerce API
// with category and related-object expansion, and a variation's parent item
// is prefetched in the same step so category checks never need a second
// round trip.
package catalog

// Catalog object types.
const (
	TypeItem          = "ITEM"
	TypeItemVariation = "ITEM_VARIATION"
	TypeCategory      = "CATEGORY"
)

// Object is a catalog object as returned by the catalog API.
type Object struct {
	Type      string `json:"type"`
	ID        string `json:"id"`
	UpdatedAt string `json:"updated_at,omitempty"`
	Version   int64  `json:"version,omitempty"`
	IsDeleted bool   `json:"is_deleted,omitempty"`

	ItemData          *ItemData          `json:"item_data,omitempty"`
	ItemVariationData *ItemVariationData `json:"item_variation_data,omitempty"`
	CategoryData      *CategoryData      `json:"category_data,omitempty"`

	// ParentItem is a nested snapshot of a variation's parent that older
	// cache files carry. It goes stale and is dropped whenever it is read.
	ParentItem *Object `json:"parent_item,omitempty"`
}

// ItemData is the payload of an ITEM object.
type ItemData struct {
	Name              string        `json:"name,omitempty"`
	Description       string        `json:"description,omitempty"`
	Categories        []CategoryRef `json:"categories,omitempty"`
	ReportingCategory *CategoryRef  `json:"reporting_category,omitempty"`
}

// ItemVariationData is the payload of an ITEM_VARIATION object.
type ItemVariationData struct {
	ItemID string `json:"item_id,omitempty"`
	Name   string `json:"name,omitempty"`
	SKU    string `json:"sku,omitempty"`
}

// CategoryData is the payload of a CATEGORY object.
type CategoryData struct {
	Name           string         `json:"name,omitempty"`
	ParentCategory *CategoryRef   `json:"parent_category,omitempty"`
	IsTopLevel     bool           `json:"is_top_level,omitempty"`
	PathToRoot     []CategoryPath `json:"path_to_root,omitempty"`
}

// CategoryRef references a category by id.
type CategoryRef struct {
	ID      string `json:"id"`
	Ordinal int64  `json:"ordinal,omitempty"`
}

// CategoryPath is one hop of a category's path to the root category.
type CategoryPath struct {
	CategoryID   string `json:"category_id,omitempty"`
	CategoryName string `json:"category_name,omitempty"`
}

// IsVariation reports whether the object is an item variation.
func (o *Object) IsVariation() bool {
	return o.Type == TypeItemVariation
}

// IsItem reports whether the object is a plain item.
func (o *Object) IsItem() bool {
	return o.Type == TypeItem
}

// IsCategory reports whether the object is a category.
func (o *Object) IsCategory() bool {
	return o.Type == TypeCategory
}

// ParentID returns the parent item id of a variation, or "".
func (o *Object) ParentID() string {
	if !o.IsVariation() || o.ItemVariationData == nil {
		return ""
	}
	return o.ItemVariationData.ItemID
}

// Name returns the object's display name regardless of its type.
func (o *Object) Name() string {
	switch {
	case o.ItemData != nil:
		return o.ItemData.Name
	case o.ItemVariationData != nil:
		return o.ItemVariationData.Name
	case o.CategoryData != nil:
		return o.CategoryData.Name
	}
	return ""
}

// CategoryIDs returns the ids of every category an item belongs to,
// including its reporting category. Non-items have none.
func (o *Object) CategoryIDs() []string {
	if o.ItemData == nil {
		return nil
	}

	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	for _, ref := range o.ItemData.Categories {
		add(ref.ID)
	}
	if o.ItemData.ReportingCategory != nil {
		add(o.ItemData.ReportingCategory.ID)
	}
	return ids
}

// ParentCategoryID returns the parent of a category object, or "".
func (o *Object) ParentCategoryID() string {
	if o.CategoryData == nil || o.CategoryData.ParentCategory == nil {
		return ""
	}
	return o.CategoryData.ParentCategory.ID
}
