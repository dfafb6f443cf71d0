package service_test

import (
	"context"
	"testing"

	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func newCatalog(t *testing.T) (*service.CatalogService, *testutil.Publisher, *testutil.Indexer) {
	t.Helper()
	r := repo.New(testutil.NewDB(t))
	pub, idx := &testutil.Publisher{}, &testutil.Indexer{}
	return &service.CatalogService{Repo: r, Publisher: pub, Indexer: idx}, pub, idx
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Oak Table":         "oak-table",
		"  Fancy -- Lamp! ": "fancy-lamp",
		"USB-C 2.0 Cable":   "usb-c-2-0-cable",
		"???":               "",
	}
	for in, want := range tests {
		assert.Equal(t, want, service.Slugify(in), in)
	}
}

func TestCatalog_CreatePatchDeleteProduct(t *testing.T) {
	ctx := context.Background()
	svc, pub, idx := newCatalog(t)

	p, err := svc.CreateProduct(ctx, service.ProductInput{
		Name:        ptr("Oak Table"),
		Price:       ptr(decimal.RequireFromString("199.999")),
		Stock:       ptr(3),
		Tags:        ptr([]string{" wood ", ""}),
		IsPublished: ptr(true),
	})
	require.NoError(t, err)
	assert.Equal(t, "oak-table", p.Slug)
	assert.Equal(t, "200", p.Price.String())
	assert.Equal(t, []string{"wood"}, []string(p.Tags))
	assert.Contains(t, idx.Indexed, p.ID)

	_, err = svc.CreateProduct(ctx, service.ProductInput{Name: ptr("Oak Table"), Price: ptr(decimal.NewFromInt(1))})
	require.ErrorIs(t, err, service.ErrConflict)

	got, err := svc.PatchProduct(ctx, p.ID, service.ProductInput{DiscountPercentage: ptr(10)})
	require.NoError(t, err)
	assert.Equal(t, 10, got.DiscountPercentage)
	assert.Equal(t, "Oak Table", got.Name)

	bySlug, err := svc.FindProductBySlug(ctx, "oak-table")
	require.NoError(t, err)
	assert.Equal(t, p.ID, bySlug.ID)

	require.NoError(t, svc.DeleteProduct(ctx, p.ID))
	_, err = svc.GetProduct(ctx, p.ID)
	require.ErrorIs(t, err, service.ErrNotFound)
	assert.Contains(t, idx.Deleted, p.ID)
	assert.Equal(t,
		[]string{service.EventProductCreated, service.EventProductUpdated, service.EventProductDeleted},
		pub.Types())
}

func TestCatalog_ProductValidation(t *testing.T) {
	svc, _, _ := newCatalog(t)
	tests := []struct {
		name string
		in   service.ProductInput
	}{
		{"missing price", service.ProductInput{Name: ptr("A")}},
		{"negative price", service.ProductInput{Name: ptr("A"), Price: ptr(decimal.NewFromInt(-1))}},
		{"negative stock", service.ProductInput{Name: ptr("A"), Price: ptr(decimal.NewFromInt(1)), Stock: ptr(-1)}},
		{"discount over 100", service.ProductInput{Name: ptr("A"), Price: ptr(decimal.NewFromInt(1)), DiscountPercentage: ptr(101)}},
		{"missing name", service.ProductInput{Price: ptr(decimal.NewFromInt(1))}},
		{"unknown category", service.ProductInput{Name: ptr("A"), Price: ptr(decimal.NewFromInt(1)), CategoryID: ptr(uuid.New())}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateProduct(context.Background(), tt.in)
			require.ErrorIs(t, err, service.ErrValidation)
		})
	}
}

func TestCatalog_ListingHidesDrafts(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newCatalog(t)
	cat := testutil.SeedCategory(t, svc.Repo.DB, "Lighting")
	testutil.SeedProduct(t, svc.Repo.DB, "Desk Lamp", "30.00", testutil.InCategory(cat.ID), testutil.WithTags("office"))
	testutil.SeedProduct(t, svc.Repo.DB, "Floor Lamp", "80.00", testutil.InCategory(cat.ID))
	testutil.SeedProduct(t, svc.Repo.DB, "Secret Lamp", "10.00", testutil.Unpublished())

	page, err := svc.ListProducts(ctx, repo.ProductFilter{Q: "lamp"}, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)

	page, err = svc.ListProducts(ctx, repo.ProductFilter{MaxPrice: ptr(decimal.NewFromInt(50))}, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Desk Lamp", page.Items[0].Name)

	page, err = svc.ListProducts(ctx, repo.ProductFilter{Tag: "office"}, 1, 10)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)

	all, err := svc.AdminListProducts(ctx, service.ProductStatusDraft, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, all.Total)

	c, inCat, err := svc.FindProductsByCategory(ctx, "lighting", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, cat.ID, c.ID)
	assert.EqualValues(t, 2, inCat.Total)

	home, err := svc.Home(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"office"}, home.Tags)
	assert.Len(t, home.Newest, 2)
}

func TestCatalog_SearchTreatsWildcardsLiterally(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newCatalog(t)
	testutil.SeedProduct(t, svc.Repo.DB, "100% Cotton Throw", "40.00")
	testutil.SeedProduct(t, svc.Repo.DB, "Cotton_Rug", "90.00")
	testutil.SeedProduct(t, svc.Repo.DB, "Wool Blanket", "70.00")

	tests := []struct {
		q    string
		want int64
	}{
		{"%", 1},
		{"_", 1},
		{"0%", 1},
		{"cotton", 2},
		{`\`, 0},
	}
	for _, tt := range tests {
		page, err := svc.ListProducts(ctx, repo.ProductFilter{Q: tt.q}, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, tt.want, page.Total, "q=%q", tt.q)
	}
}

func TestCatalog_CategoryLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newCatalog(t)

	c, err := svc.CreateCategory(ctx, service.CategoryInput{Name: "Garden Tools"})
	require.NoError(t, err)
	assert.Equal(t, "garden-tools", c.Slug)

	_, err = svc.CreateCategory(ctx, service.CategoryInput{Name: "Garden Tools"})
	require.ErrorIs(t, err, service.ErrConflict)

	testutil.SeedProduct(t, svc.Repo.DB, "Rake", "15.00", testutil.InCategory(c.ID))
	require.ErrorIs(t, svc.DeleteCategory(ctx, c.ID), service.ErrConflict)

	empty, err := svc.CreateCategory(ctx, service.CategoryInput{Name: "Empty"})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteCategory(ctx, empty.ID))
}

type failingSearcher struct{}

func (failingSearcher) SearchProducts(context.Context, string, int, int) (int64, []uuid.UUID, error) {
	return 0, nil, assert.AnError
}

type fixedSearcher struct{ ids []uuid.UUID }

func (s fixedSearcher) SearchProducts(context.Context, string, int, int) (int64, []uuid.UUID, error) {
	return int64(len(s.ids)), s.ids, nil
}

func TestSearch_BackendAndFallback(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newCatalog(t)
	a := testutil.SeedProduct(t, svc.Repo.DB, "Walnut Shelf", "60.00")
	b := testutil.SeedProduct(t, svc.Repo.DB, "Pine Shelf", "40.00")

	search := &service.SearchService{Catalog: svc, Searcher: fixedSearcher{ids: []uuid.UUID{b.ID, a.ID}}}
	page, err := search.Search(ctx, "shelf", 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, b.ID, page.Items[0].ID, "backend relevance order is kept")

	search.Searcher = failingSearcher{}
	page, err = search.Search(ctx, "walnut", 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, a.ID, page.Items[0].ID)

	page, err = search.Search(ctx, "   ", 1, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}
