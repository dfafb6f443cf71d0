package service_test

import (
	"context"
	"testing"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// deliverPaid walks the order to delivered and marks it paid.
func deliverPaid(t *testing.T, orders *service.OrderService, o *models.Order) {
	t.Helper()
	ctx := context.Background()
	for _, st := range []string{"processing", "shipped", "delivered"} {
		_, err := orders.UpdateStatus(ctx, o.ID, st)
		require.NoError(t, err)
	}
	_, err := orders.SetPaid(ctx, o.ID, true)
	require.NoError(t, err)
}

func TestReview_EligibilityAndEdit(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	orders := &service.OrderService{Repo: f.repo, Publisher: f.pub}
	reviews := &service.ReviewService{Repo: f.repo}
	o, p := placeOrder(t, f, 1)

	_, _, err := reviews.Submit(ctx, f.user, p.ID, 5, "great")
	require.ErrorIs(t, err, service.ErrNotEligible)
	require.ErrorIs(t, err, service.ErrForbidden)

	deliverPaid(t, orders, o)

	eligible, err := reviews.EligibleItems(ctx, f.user)
	require.NoError(t, err)
	require.Len(t, eligible, 1)
	assert.Equal(t, p.ID, eligible[0].ID)

	first, created, err := reviews.Submit(ctx, f.user, p.ID, 5, "great")
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := reviews.Submit(ctx, f.user, p.ID, 3, "  fine after all  ")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "fine after all", second.Body)

	list, err := reviews.ListForProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, list.Count)
	assert.InDelta(t, 3.0, list.Average, 1e-9)

	eligible, err = reviews.EligibleItems(ctx, f.user)
	require.NoError(t, err)
	assert.Empty(t, eligible)
}

func TestReview_DeliveredButUnpaidNotEligible(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	orders := &service.OrderService{Repo: f.repo, Publisher: f.pub}
	reviews := &service.ReviewService{Repo: f.repo}
	o, p := placeOrder(t, f, 1)
	for _, st := range []string{"processing", "shipped", "delivered"} {
		_, err := orders.UpdateStatus(ctx, o.ID, st)
		require.NoError(t, err)
	}

	_, _, err := reviews.Submit(ctx, f.user, p.ID, 4, "")
	require.ErrorIs(t, err, service.ErrNotEligible)
}

func TestReview_RatingIsMeanAndResetsOnDelete(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	reviews := &service.ReviewService{Repo: f.repo}
	p := testutil.SeedProduct(t, f.repo.DB, "Desk", "120.00")
	a := testutil.SeedUser(t, f.repo.DB, models.RoleUser)
	b := testutil.SeedUser(t, f.repo.DB, models.RoleUser)

	ra, err := reviews.AdminCreate(ctx, a.ID, p.ID, 5, "")
	require.NoError(t, err)
	rb, err := reviews.AdminCreate(ctx, b.ID, p.ID, 2, "")
	require.NoError(t, err)

	_, err = reviews.AdminCreate(ctx, a.ID, p.ID, 1, "")
	require.ErrorIs(t, err, service.ErrConflict)

	got, err := f.repo.ProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.InDelta(t, 3.5, got.Rating, 1e-9)

	other := service.Principal{UserID: b.ID}
	require.ErrorIs(t, reviews.Delete(ctx, other, ra.ID), service.ErrForbidden)

	require.NoError(t, reviews.Delete(ctx, other, rb.ID))
	require.NoError(t, reviews.AdminDelete(ctx, ra.ID))

	got, err = f.repo.ProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Rating)
}

func TestReview_Validation(t *testing.T) {
	f := newCheckoutFixture(t)
	reviews := &service.ReviewService{Repo: f.repo}
	p := testutil.SeedProduct(t, f.repo.DB, "Desk", "120.00")

	for _, rating := range []int{0, 6} {
		_, _, err := reviews.Submit(context.Background(), f.user, p.ID, rating, "")
		require.ErrorIs(t, err, service.ErrValidation)
	}
	_, _, err := reviews.Submit(context.Background(), service.Principal{}, p.ID, 3, "")
	require.ErrorIs(t, err, service.ErrUnauthorized)
}

func TestReview_AdminUpdateRecomputesRating(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	reviews := &service.ReviewService{Repo: f.repo}
	p := testutil.SeedProduct(t, f.repo.DB, "Chair", "60.00")
	a := testutil.SeedUser(t, f.repo.DB, models.RoleUser)
	b := testutil.SeedUser(t, f.repo.DB, models.RoleUser)

	ra, err := reviews.AdminCreate(ctx, a.ID, p.ID, 4, "")
	require.NoError(t, err)
	_, err = reviews.AdminCreate(ctx, b.ID, p.ID, 2, "")
	require.NoError(t, err)

	updated, err := reviews.AdminUpdate(ctx, ra.ID, 1, "  wobbly  ")
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Rating)
	assert.Equal(t, "wobbly", updated.Body)

	got, err := f.repo.ProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, got.Rating, 1e-9)

	_, err = reviews.AdminUpdate(ctx, ra.ID, 9, "")
	require.ErrorIs(t, err, service.ErrValidation)
	_, err = reviews.AdminUpdate(ctx, uuid.New(), 3, "")
	require.ErrorIs(t, err, service.ErrNotFound)
}

func TestReview_ConcurrentFirstSubmitIsNotAnError(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	orders := &service.OrderService{Repo: f.repo, Publisher: f.pub}
	reviews := &service.ReviewService{Repo: f.repo}
	o, p := placeOrder(t, f, 1)
	deliverPaid(t, orders, o)

	// Insert a competing row for the same user and product just before the
	// service's own insert, the way a parallel request would.
	raced := false
	require.NoError(t, f.repo.DB.Callback().Create().Before("gorm:create").Register("test:competing_review", func(db *gorm.DB) {
		rv, ok := db.Statement.Dest.(*models.Review)
		if !ok || raced {
			return
		}
		raced = true
		db.AddError(db.Session(&gorm.Session{NewDB: true}).Create(&models.Review{
			UserID: rv.UserID, ProductID: rv.ProductID, Rating: 1,
		}).Error)
	}))

	rv, _, err := reviews.Submit(ctx, f.user, p.ID, 4, "solid")
	require.NoError(t, err)
	assert.True(t, raced)
	assert.Equal(t, 4, rv.Rating)

	list, err := reviews.ListForProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, list.Count)
	assert.InDelta(t, 4.0, list.Average, 1e-9)
}

func TestReview_RemovedWithProduct(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	reviews := &service.ReviewService{Repo: f.repo}
	catalog := &service.CatalogService{Repo: f.repo}
	p := testutil.SeedProduct(t, f.repo.DB, "Shelf", "45.00")

	_, err := reviews.AdminCreate(ctx, f.user.UserID, p.ID, 5, "sturdy")
	require.NoError(t, err)
	mine, err := reviews.ListMine(ctx, f.user)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	require.NoError(t, catalog.DeleteProduct(ctx, p.ID))

	mine, err = reviews.ListMine(ctx, f.user)
	require.NoError(t, err)
	assert.Empty(t, mine)

	var left int64
	require.NoError(t, f.repo.DB.Model(&models.Review{}).Where("product_id = ?", p.ID).Count(&left).Error)
	assert.Zero(t, left)
}
