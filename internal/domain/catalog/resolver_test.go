package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockFetcher is a testify mock of Fetcher
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) RetrieveObject(ctx context.Context, id string) (*RetrieveResult, error) {
	args := m.Called(ctx, id)
	if res := args.Get(0); res != nil {
		return res.(*RetrieveResult), args.Error(1)
	}
	return nil, args.Error(1)
}

const (
	preorderCategory = "CAT_PREORDER"
	designerParent   = "CAT_DESIGNERS"
)

func item(id, name string, categories ...string) *Object {
	refs := make([]CategoryRef, 0, len(categories))
	for _, c := range categories {
		refs = append(refs, CategoryRef{ID: c})
	}
	return &Object{Type: TypeItem, ID: id, ItemData: &ItemData{Name: name, Categories: refs}}
}

func variation(id, parentID, name string) *Object {
	return &Object{Type: TypeItemVariation, ID: id, ItemVariationData: &ItemVariationData{ItemID: parentID, Name: name}}
}

func category(id, name, parent string) *Object {
	obj := &Object{Type: TypeCategory, ID: id, CategoryData: &CategoryData{Name: name}}
	if parent != "" {
		obj.CategoryData.ParentCategory = &CategoryRef{ID: parent}
	}
	return obj
}

func newTestResolver(f Fetcher, opts Options) (*Resolver, *MemoryCache) {
	cache := NewMemoryCache()
	if opts.CategoryIDs == nil {
		opts.CategoryIDs = []string{preorderCategory}
	}
	return NewResolver(f, cache, opts, nil), cache
}

func TestResolver_CachesPlainItem(t *testing.T) {
	f := new(MockFetcher)
	f.On("RetrieveObject", mock.Anything, "ITEM1").
		Return(&RetrieveResult{Object: item("ITEM1", "Widget", preorderCategory)}, nil).Once()

	r, cache := newTestResolver(f, Options{})
	ctx := context.Background()

	first, err := r.Resolve(ctx, "ITEM1")
	require.NoError(t, err)
	second, err := r.Resolve(ctx, "ITEM1")
	require.NoError(t, err)

	assert.Equal(t, "Widget", first.Name())
	assert.Equal(t, first, second)
	assert.Equal(t, 1, cache.Len())
	assert.Equal(t, 1, r.Stats().Fetches)
	f.AssertNumberOfCalls(t, "RetrieveObject", 1)
}

func TestResolver_PrefetchesParentOneHop(t *testing.T) {
	f := new(MockFetcher)
	f.On("RetrieveObject", mock.Anything, "VAR1").
		Return(&RetrieveResult{Object: variation("VAR1", "ITEM1", "Large")}, nil).Once()
	f.On("RetrieveObject", mock.Anything, "ITEM1").
		Return(&RetrieveResult{Object: item("ITEM1", "Widget", preorderCategory)}, nil).Once()

	r, cache := newTestResolver(f, Options{})
	ctx := context.Background()

	_, err := r.Resolve(ctx, "VAR1")
	require.NoError(t, err)
	assert.Equal(t, 2, cache.Len())

	// Category check is served entirely from cache.
	assert.True(t, r.InCategory(ctx, "VAR1"))
	f.AssertExpectations(t)
	f.AssertNumberOfCalls(t, "RetrieveObject", 2)
}

func TestResolver_UsesRelatedParentWithoutExtraFetch(t *testing.T) {
	f := new(MockFetcher)
	f.On("RetrieveObject", mock.Anything, "VAR1").
		Return(&RetrieveResult{
			Object: variation("VAR1", "ITEM1", "Large"),
			RelatedObjects: []*Object{
				item("ITEM1", "Widget", "CAT_ANNA"),
				category("CAT_ANNA", "Anna Designs", designerParent),
			},
		}, nil).Once()

	r, _ := newTestResolver(f, Options{DesignerParentCategoryID: designerParent})
	ctx := context.Background()

	_, err := r.Resolve(ctx, "VAR1")
	require.NoError(t, err)
	assert.Equal(t, "Anna Designs", r.Designer(ctx, "VAR1"))
	f.AssertNumberOfCalls(t, "RetrieveObject", 1)
}

func TestResolver_FetchErrorIsNotFound(t *testing.T) {
	f := new(MockFetcher)
	f.On("RetrieveObject", mock.Anything, "BAD").Return(nil, errors.New("502 bad gateway"))

	r, cache := newTestResolver(f, Options{})

	_, err := r.Resolve(context.Background(), "BAD")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, r.InCategory(context.Background(), "BAD"))
	assert.Equal(t, 0, cache.Len())
	assert.Equal(t, 1, r.Stats().Failures)
}

func TestResolver_FailedIDIsNotRefetched(t *testing.T) {
	f := new(MockFetcher)
	f.On("RetrieveObject", mock.Anything, "BAD").Return(nil, errors.New("502 bad gateway")).Once()

	r, _ := newTestResolver(f, Options{DesignerParentCategoryID: designerParent})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := r.Resolve(ctx, "BAD")
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.False(t, r.InCategory(ctx, "BAD"))
	assert.Empty(t, r.Designer(ctx, "BAD"))

	f.AssertNumberOfCalls(t, "RetrieveObject", 1)
	assert.Equal(t, 1, r.Stats().Fetches)
	assert.Equal(t, 1, r.Stats().Failures)
}

func TestResolver_CanceledFetchIsRetried(t *testing.T) {
	f := new(MockFetcher)
	f.On("RetrieveObject", mock.Anything, "ITEM1").Return(nil, context.Canceled).Once()
	f.On("RetrieveObject", mock.Anything, "ITEM1").
		Return(&RetrieveResult{Object: item("ITEM1", "Widget")}, nil).Once()

	r, _ := newTestResolver(f, Options{})

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Resolve(canceled, "ITEM1")
	assert.ErrorIs(t, err, ErrNotFound)

	obj, err := r.Resolve(context.Background(), "ITEM1")
	require.NoError(t, err)
	assert.Equal(t, "Widget", obj.Name())
}

func TestResolver_PrefetchDoesNotCountAsLookup(t *testing.T) {
	f := new(MockFetcher)
	f.On("RetrieveObject", mock.Anything, "VAR1").
		Return(&RetrieveResult{Object: variation("VAR1", "ITEM1", "Large")}, nil).Once()
	f.On("RetrieveObject", mock.Anything, "ITEM1").
		Return(&RetrieveResult{Object: item("ITEM1", "Widget", preorderCategory)}, nil).Once()

	r, _ := newTestResolver(f, Options{})
	ctx := context.Background()

	_, err := r.Resolve(ctx, "VAR1")
	require.NoError(t, err)

	stats := r.Stats()
	assert.Equal(t, 1, stats.Misses)
	assert.Equal(t, 0, stats.Hits)
	assert.Equal(t, 2, stats.Fetches)

	// VAR1 then ITEM1, both from cache
	assert.True(t, r.InCategory(ctx, "VAR1"))
	stats = r.Stats()
	assert.Equal(t, 1, stats.Misses)
	assert.Equal(t, 2, stats.Hits)
}

func TestResolver_EmptyIDIsNotFound(t *testing.T) {
	r, _ := newTestResolver(new(MockFetcher), Options{})
	_, err := r.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolver_DropsStaleParentSnapshotOnHit(t *testing.T) {
	f := new(MockFetcher)
	r, cache := newTestResolver(f, Options{})

	stale := variation("VAR1", "ITEM1", "Large")
	stale.ParentItem = item("ITEM1", "Old Widget Name")
	cache.Set("VAR1", stale)

	obj, err := r.Resolve(context.Background(), "VAR1")
	require.NoError(t, err)
	assert.Nil(t, obj.ParentItem)

	cached, _ := cache.Get("VAR1")
	assert.Nil(t, cached.ParentItem)
	assert.Equal(t, 1, r.Stats().Normalized)
	f.AssertNotCalled(t, "RetrieveObject", mock.Anything, mock.Anything)
}

func TestResolver_InCategory_PlainItems(t *testing.T) {
	ctx := context.Background()

	t.Run("variation-only matching ignores plain items", func(t *testing.T) {
		r, cache := newTestResolver(new(MockFetcher), Options{MatchPlainItems: false})
		cache.Set("ITEM1", item("ITEM1", "Widget", preorderCategory))
		assert.False(t, r.InCategory(ctx, "ITEM1"))
	})

	t.Run("plain items match on their own categories", func(t *testing.T) {
		r, cache := newTestResolver(new(MockFetcher), Options{MatchPlainItems: true})
		cache.Set("ITEM1", item("ITEM1", "Widget", preorderCategory))
		cache.Set("ITEM2", item("ITEM2", "Gadget", "CAT_OTHER"))
		assert.True(t, r.InCategory(ctx, "ITEM1"))
		assert.False(t, r.InCategory(ctx, "ITEM2"))
	})

	t.Run("reporting category counts", func(t *testing.T) {
		r, cache := newTestResolver(new(MockFetcher), Options{})
		parent := item("ITEM1", "Widget")
		parent.ItemData.ReportingCategory = &CategoryRef{ID: preorderCategory}
		cache.Set("ITEM1", parent)
		cache.Set("VAR1", variation("VAR1", "ITEM1", "Regular"))
		assert.True(t, r.InCategory(ctx, "VAR1"))
	})
}

func TestResolver_Designer(t *testing.T) {
	ctx := context.Background()
	r, cache := newTestResolver(new(MockFetcher), Options{DesignerParentCategoryID: designerParent})

	cache.Set("ITEM1", item("ITEM1", "Widget", preorderCategory, "CAT_BOB"))
	cache.Set("VAR1", variation("VAR1", "ITEM1", "Large"))
	cache.Set(preorderCategory, category(preorderCategory, "Pre-Orders", ""))
	cache.Set("CAT_BOB", category("CAT_BOB", "Bob's Stitches", designerParent))
	cache.Set("ITEM2", item("ITEM2", "Plain", preorderCategory))

	assert.Equal(t, "Bob's Stitches", r.Designer(ctx, "VAR1"))
	assert.Equal(t, "", r.Designer(ctx, "ITEM2"))
}
