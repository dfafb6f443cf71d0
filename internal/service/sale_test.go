package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discountOf(t *testing.T, r *repo.GormRepo, id uuid.UUID) int {
	t.Helper()
	p, err := r.ProductByID(context.Background(), id)
	require.NoError(t, err)
	return p.DiscountPercentage
}

func TestSale_ApplyAndRevert(t *testing.T) {
	ctx := context.Background()
	r := repo.New(testutil.NewDB(t))
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	idx := &testutil.Indexer{}
	sales := &service.SaleService{
		Repo:    r,
		Catalog: &service.CatalogService{Repo: r, Indexer: idx, Publisher: service.NopPublisher{}},
		Now:     func() time.Time { return now },
	}
	p := testutil.SeedProduct(t, r.DB, "Sofa", "500.00")

	end := now.Add(48 * time.Hour)
	sale, err := sales.Create(ctx, service.SaleInput{
		Name:               "Spring",
		StartDate:          now.Add(time.Hour),
		EndDate:            &end,
		DiscountPercentage: 20,
		ProductIDs:         []uuid.UUID{p.ID, p.ID},
	})
	require.NoError(t, err)
	assert.Len(t, sale.Products, 1)
	assert.Nil(t, sale.AppliedAt)
	assert.Zero(t, discountOf(t, r, p.ID), "future sale must not discount yet")

	res, err := sales.ApplyDue(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, service.ActivationResult{Applied: 1}, res)
	assert.Equal(t, 20, discountOf(t, r, p.ID))
	assert.Contains(t, idx.Indexed, p.ID)

	res, err = sales.ApplyDue(ctx, now.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, service.ActivationResult{}, res)

	res, err = sales.ApplyDue(ctx, end.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, service.ActivationResult{Reverted: 1}, res)
	assert.Zero(t, discountOf(t, r, p.ID))
}

func TestSale_CreateStartedAppliesAndDeleteReverts(t *testing.T) {
	ctx := context.Background()
	r := repo.New(testutil.NewDB(t))
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sales := &service.SaleService{Repo: r, Now: func() time.Time { return now }}
	p := testutil.SeedProduct(t, r.DB, "Sofa", "500.00")

	sale, err := sales.Create(ctx, service.SaleInput{
		Name: "Now", StartDate: now.Add(-time.Hour), DiscountPercentage: 30, ProductIDs: []uuid.UUID{p.ID},
	})
	require.NoError(t, err)
	require.NotNil(t, sale.AppliedAt)
	assert.Equal(t, 30, discountOf(t, r, p.ID))

	require.NoError(t, sales.Delete(ctx, sale.ID))
	assert.Zero(t, discountOf(t, r, p.ID))
	_, err = sales.Get(ctx, sale.ID)
	require.ErrorIs(t, err, service.ErrNotFound)
}

func TestSale_Validation(t *testing.T) {
	r := repo.New(testutil.NewDB(t))
	sales := &service.SaleService{Repo: r}
	p := testutil.SeedProduct(t, r.DB, "Sofa", "500.00")
	start := time.Now().UTC()
	before := start.Add(-time.Hour)

	tests := []struct {
		name string
		in   service.SaleInput
	}{
		{"missing name", service.SaleInput{StartDate: start, DiscountPercentage: 10, ProductIDs: []uuid.UUID{p.ID}}},
		{"zero discount", service.SaleInput{Name: "x", StartDate: start, ProductIDs: []uuid.UUID{p.ID}}},
		{"discount over 100", service.SaleInput{Name: "x", StartDate: start, DiscountPercentage: 101, ProductIDs: []uuid.UUID{p.ID}}},
		{"end before start", service.SaleInput{Name: "x", StartDate: start, EndDate: &before, DiscountPercentage: 10, ProductIDs: []uuid.UUID{p.ID}}},
		{"no products", service.SaleInput{Name: "x", StartDate: start, DiscountPercentage: 10}},
		{"unknown product", service.SaleInput{Name: "x", StartDate: start, DiscountPercentage: 10, ProductIDs: []uuid.UUID{uuid.New()}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sales.Create(context.Background(), tt.in)
			require.ErrorIs(t, err, service.ErrValidation)
		})
	}
}

func TestReport_SaleCountsUnitsSinceStart(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	p := testutil.SeedProduct(t, f.repo.DB, "Rug", "80.00")
	now := time.Now().UTC()
	sales := &service.SaleService{Repo: f.repo, Now: func() time.Time { return now }}
	reports := &service.ReportService{Repo: f.repo}

	sale, err := sales.Create(ctx, service.SaleInput{
		Name: "Rugs", StartDate: now.Add(-time.Minute), DiscountPercentage: 50, ProductIDs: []uuid.UUID{p.ID},
	})
	require.NoError(t, err)

	_, err = f.cart.AddItem(ctx, f.user, p.ID, 2)
	require.NoError(t, err)
	_, err = f.checkout.ConvertCartToOrder(ctx, f.user)
	require.NoError(t, err)

	rep, err := reports.SaleReport(ctx, sale.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, rep.IsStarted)
	assert.Equal(t, 2, rep.TotalUnits)
	assert.True(t, decimal.NewFromInt(80).Equal(rep.Revenue), "revenue %s", rep.Revenue)
	require.Len(t, rep.PerProduct, 1)
	assert.Equal(t, 2, rep.PerProduct[0].Units)

	custom, err := reports.Custom(ctx, repo.ReportFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, custom.TotalUnits)

	later := now.Add(24 * time.Hour)
	_, err = reports.Custom(ctx, repo.ReportFilter{Start: &later, End: &now})
	require.ErrorIs(t, err, service.ErrValidation)

	notStarted, err := reports.SaleReport(ctx, sale.ID, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.False(t, notStarted.IsStarted)
	assert.Zero(t, notStarted.TotalUnits)
}

func TestSale_UpdateMovesRunningDiscount(t *testing.T) {
	ctx := context.Background()
	r := repo.New(testutil.NewDB(t))
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	idx := &testutil.Indexer{}
	sales := &service.SaleService{
		Repo:    r,
		Catalog: &service.CatalogService{Repo: r, Indexer: idx},
		Now:     func() time.Time { return now },
	}
	a := testutil.SeedProduct(t, r.DB, "Armchair", "300.00")
	b := testutil.SeedProduct(t, r.DB, "Bench", "150.00")

	sale, err := sales.Create(ctx, service.SaleInput{
		Name: "Seats", StartDate: now.Add(-time.Hour), DiscountPercentage: 20, ProductIDs: []uuid.UUID{a.ID},
	})
	require.NoError(t, err)
	require.Equal(t, 20, discountOf(t, r, a.ID))

	updated, err := sales.Update(ctx, sale.ID, service.SaleInput{
		Name: "Benches", StartDate: now.Add(-time.Hour), DiscountPercentage: 35, ProductIDs: []uuid.UUID{b.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, "Benches", updated.Name)
	assert.NotNil(t, updated.AppliedAt)
	require.Len(t, updated.Products, 1)
	assert.Equal(t, b.ID, updated.Products[0].ID)

	assert.Zero(t, discountOf(t, r, a.ID))
	assert.Equal(t, 35, discountOf(t, r, b.ID))
	assert.Contains(t, idx.Indexed, a.ID)
	assert.Contains(t, idx.Indexed, b.ID)

	stored, err := sales.Get(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{b.ID}, stored.ProductIDs())

	// moving the start into the future withdraws the discount until it is due
	_, err = sales.Update(ctx, sale.ID, service.SaleInput{
		Name: "Benches", StartDate: now.Add(time.Hour), DiscountPercentage: 35, ProductIDs: []uuid.UUID{b.ID},
	})
	require.NoError(t, err)
	assert.Zero(t, discountOf(t, r, b.ID))
}

func TestReport_CustomFilters(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	reports := &service.ReportService{Repo: f.repo}
	cat := testutil.SeedCategory(t, f.repo.DB, "Textiles")
	towel := testutil.SeedProduct(t, f.repo.DB, "Towel", "10.00", testutil.InCategory(cat.ID))
	mirror := testutil.SeedProduct(t, f.repo.DB, "Mirror", "50.00")

	_, err := f.cart.AddItem(ctx, f.user, towel.ID, 3)
	require.NoError(t, err)
	_, err = f.cart.AddItem(ctx, f.user, mirror.ID, 1)
	require.NoError(t, err)
	_, err = f.checkout.ConvertCartToOrder(ctx, f.user)
	require.NoError(t, err)

	y, m, d := time.Now().UTC().Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	yesterday := midnight.Add(-24 * time.Hour)

	sameDay, err := reports.Custom(ctx, repo.ReportFilter{Start: &midnight, End: &midnight})
	require.NoError(t, err)
	assert.Len(t, sameDay.Items, 2, "end date covers the whole day")
	assert.Equal(t, 4, sameDay.TotalUnits)
	assert.True(t, decimal.NewFromInt(80).Equal(sameDay.Revenue), "revenue %s", sameDay.Revenue)

	before, err := reports.Custom(ctx, repo.ReportFilter{End: &yesterday})
	require.NoError(t, err)
	assert.Empty(t, before.Items)

	byCat, err := reports.Custom(ctx, repo.ReportFilter{CategoryID: &cat.ID})
	require.NoError(t, err)
	require.Len(t, byCat.Items, 1)
	assert.Equal(t, towel.ID, byCat.Items[0].ProductID)
	assert.Equal(t, 3, byCat.TotalUnits)

	twenty := decimal.NewFromInt(20)
	expensive, err := reports.Custom(ctx, repo.ReportFilter{MinPrice: &twenty})
	require.NoError(t, err)
	require.Len(t, expensive.Items, 1)
	assert.Equal(t, mirror.ID, expensive.Items[0].ProductID)

	cheap, err := reports.Custom(ctx, repo.ReportFilter{MaxPrice: &twenty})
	require.NoError(t, err)
	require.Len(t, cheap.Items, 1)
	assert.Equal(t, towel.ID, cheap.Items[0].ProductID)

	ten := decimal.NewFromInt(10)
	_, err = reports.Custom(ctx, repo.ReportFilter{MinPrice: &twenty, MaxPrice: &ten})
	require.ErrorIs(t, err, service.ErrValidation)
}
