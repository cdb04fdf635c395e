package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrNotFound is returned when an id cannot be resolved, either because the
// API does not know it or because the fetch failed. Callers treat it as
// "not a reportable item" and keep going.
var ErrNotFound = errors.New("catalog object not found")

// RetrieveResult is the response of a single catalog object fetch.
type RetrieveResult struct {
	Object         *Object
	RelatedObjects []*Object
}

// Fetcher retrieves one catalog object, expanding its category path and
// related objects.
type Fetcher interface {
	RetrieveObject(ctx context.Context, id string) (*RetrieveResult, error)
}

// Options configures category matching.
type Options struct {
	// CategoryIDs is the target category set for InCategory.
	CategoryIDs []string

	// DesignerParentCategoryID is the category whose children name designers.
	DesignerParentCategoryID string

	// MatchPlainItems lets items without a variation step match on their own
	// categories. When false only variations can ever match.
	MatchPlainItems bool
}

// Stats counts resolver activity for the run summary.
type Stats struct {
	Hits       int
	Misses     int
	Fetches    int
	Failures   int
	Normalized int
}

// Resolver resolves catalog ids through a cache.
type Resolver struct {
	fetcher        Fetcher
	cache          Cache
	logger         *slog.Logger
	categoryIDs    map[string]bool
	designerParent string
	matchPlain     bool
	stats          Stats

	// missing holds ids whose fetch failed in this run; they are not retried.
	missing map[string]bool
}

// NewResolver creates a resolver over the given fetcher and cache
func NewResolver(fetcher Fetcher, cache Cache, opts Options, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}

	categoryIDs := make(map[string]bool, len(opts.CategoryIDs))
	for _, id := range opts.CategoryIDs {
		if id != "" {
			categoryIDs[id] = true
		}
	}

	return &Resolver{
		fetcher:        fetcher,
		cache:          cache,
		logger:         logger.With("system", "catalog"),
		categoryIDs:    categoryIDs,
		designerParent: opts.DesignerParentCategoryID,
		matchPlain:     opts.MatchPlainItems,
		missing:        make(map[string]bool),
	}
}

// Stats returns a copy of the resolver counters.
func (r *Resolver) Stats() Stats {
	return r.stats
}

// Resolve returns the catalog object for id. Cache hits are normalized;
// misses are fetched, cached, and for variations the parent item is
// prefetched one hop (never further).
func (r *Resolver) Resolve(ctx context.Context, id string) (*Object, error) {
	if id == "" {
		return nil, ErrNotFound
	}

	if obj, ok := r.lookup(id); ok {
		return obj, nil
	}
	if r.missing[id] {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	obj, err := r.fetchAndStore(ctx, id)
	if err != nil {
		return nil, err
	}

	// The prefetch check reads the cache directly so it does not count as
	// a lookup.
	if parentID := obj.ParentID(); parentID != "" && !r.missing[parentID] {
		if cached, ok := r.cache.Get(parentID); !ok || cached == nil {
			if _, err := r.fetchAndStore(ctx, parentID); err != nil {
				r.logger.Warn("Failed to prefetch parent item",
					"variation_id", id,
					"parent_id", parentID,
					"error", err)
			}
		}
	}

	return obj, nil
}

// lookup reads the cache, dropping stale parent snapshots on variations.
func (r *Resolver) lookup(id string) (*Object, bool) {
	obj, ok := r.cache.Get(id)
	if !ok || obj == nil {
		r.stats.Misses++
		return nil, false
	}
	r.stats.Hits++

	if obj.IsVariation() && obj.ParentItem != nil {
		healed := *obj
		healed.ParentItem = nil
		r.cache.Set(id, &healed)
		r.stats.Normalized++
		r.logger.Debug("Dropped stale parent snapshot", "variation_id", id)
		return &healed, true
	}

	return obj, true
}

// fetchAndStore fetches id, caches it together with its related objects,
// and maps every failure to ErrNotFound after logging it.
func (r *Resolver) fetchAndStore(ctx context.Context, id string) (*Object, error) {
	r.stats.Fetches++

	result, err := r.fetcher.RetrieveObject(ctx, id)
	if err != nil {
		r.stats.Failures++
		if ctx.Err() == nil {
			r.missing[id] = true
		}
		r.logger.Warn("Catalog fetch failed", "object_id", id, "error", err)
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if result == nil || result.Object == nil {
		r.stats.Failures++
		r.missing[id] = true
		r.logger.Warn("Catalog fetch returned no object", "object_id", id)
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	obj := result.Object
	obj.ParentItem = nil
	r.cache.Set(id, obj)

	for _, related := range result.RelatedObjects {
		if related == nil || related.ID == "" || related.ID == id {
			continue
		}
		if related.IsCategory() || related.ID == obj.ParentID() {
			r.cache.Set(related.ID, related)
		}
	}

	r.logger.Debug("Fetched catalog object",
		"object_id", id,
		"type", obj.Type,
		"name", obj.Name(),
		"related", len(result.RelatedObjects))

	return obj, nil
}

// base returns the object whose categories count for id: the parent item
// of a variation, or the item itself when plain items may match.
func (r *Resolver) base(ctx context.Context, id string) (*Object, bool) {
	obj, err := r.Resolve(ctx, id)
	if err != nil {
		return nil, false
	}

	switch {
	case obj.IsVariation():
		parent, err := r.Resolve(ctx, obj.ParentID())
		if err != nil {
			return nil, false
		}
		return parent, true
	case obj.IsItem() && r.matchPlain:
		return obj, true
	}
	return nil, false
}

// InCategory reports whether id belongs to the configured category set.
func (r *Resolver) InCategory(ctx context.Context, id string) bool {
	item, ok := r.base(ctx, id)
	if !ok {
		return false
	}

	for _, categoryID := range item.CategoryIDs() {
		if r.categoryIDs[categoryID] {
			return true
		}
	}
	return false
}

// Designer returns the name of the designer category id belongs to, that is
// the first of its categories whose parent is the designer parent category.
// It returns "" when none matches.
func (r *Resolver) Designer(ctx context.Context, id string) string {
	if r.designerParent == "" {
		return ""
	}

	obj, err := r.Resolve(ctx, id)
	if err != nil {
		return ""
	}
	item := obj
	if obj.IsVariation() {
		if item, err = r.Resolve(ctx, obj.ParentID()); err != nil {
			return ""
		}
	}

	for _, categoryID := range item.CategoryIDs() {
		category, err := r.Resolve(ctx, categoryID)
		if err != nil {
			continue
		}
		if category.ParentCategoryID() == r.designerParent {
			return category.Name()
		}
	}
	return ""
}
