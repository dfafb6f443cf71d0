package service_test

import (
	"context"
	"testing"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// placeOrder checks out qty units of a fresh product for the fixture user.
func placeOrder(t *testing.T, f *checkoutFixture, qty int) (*models.Order, *models.Product) {
	t.Helper()
	ctx := context.Background()
	p := testutil.SeedProduct(t, f.repo.DB, "Kettle", "20.00", testutil.WithStock(10))
	_, err := f.cart.AddItem(ctx, f.user, p.ID, qty)
	require.NoError(t, err)
	o, err := f.checkout.ConvertCartToOrder(ctx, f.user)
	require.NoError(t, err)
	return o, p
}

func TestOrder_CancelPendingRestocks(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	orders := &service.OrderService{Repo: f.repo, Publisher: f.pub}
	o, p := placeOrder(t, f, 3)
	require.Equal(t, 7, stockOf(t, f.repo, p))

	got, err := orders.Cancel(ctx, f.user, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, got.Status)
	assert.Equal(t, 10, stockOf(t, f.repo, p))
	assert.Contains(t, f.pub.Types(), service.EventOrderStatusChanged)

	_, err = orders.Cancel(ctx, f.user, o.ID)
	require.ErrorIs(t, err, service.ErrInvalidTransition)
}

func TestOrder_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		path    []models.OrderStatus
		next    string
		wantErr error
	}{
		{"pending to processing", nil, "processing", nil},
		{"processing to shipped", []models.OrderStatus{"processing"}, "shipped", nil},
		{"shipped to delivered", []models.OrderStatus{"processing", "shipped"}, "delivered", nil},
		{"shipped cannot cancel", []models.OrderStatus{"processing", "shipped"}, "cancelled", service.ErrInvalidTransition},
		{"pending cannot skip to shipped", nil, "shipped", service.ErrInvalidTransition},
		{"same status rejected", nil, "pending", service.ErrInvalidTransition},
		{"delivered is terminal", []models.OrderStatus{"processing", "shipped", "delivered"}, "cancelled", service.ErrInvalidTransition},
		{"unknown status", nil, "lost", service.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newCheckoutFixture(t)
			orders := &service.OrderService{Repo: f.repo, Publisher: f.pub}
			o, _ := placeOrder(t, f, 1)
			for _, st := range tt.path {
				_, err := orders.UpdateStatus(ctx, o.ID, string(st))
				require.NoError(t, err)
			}

			got, err := orders.UpdateStatus(ctx, o.ID, tt.next)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.OrderStatus(tt.next), got.Status)
		})
	}
}

func TestOrder_CancelByStrangerForbidden(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	orders := &service.OrderService{Repo: f.repo, Publisher: f.pub}
	o, _ := placeOrder(t, f, 1)

	stranger := service.Principal{UserID: testutil.SeedUser(t, f.repo.DB, models.RoleUser).ID}
	_, err := orders.Cancel(ctx, stranger, o.ID)
	require.ErrorIs(t, err, service.ErrForbidden)

	_, err = orders.GetMine(ctx, stranger, o.ID)
	require.ErrorIs(t, err, service.ErrForbidden)
}

func TestOrder_PaidAndReviewEligibleEvent(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	orders := &service.OrderService{Repo: f.repo, Publisher: f.pub}
	o, _ := placeOrder(t, f, 1)

	got, err := orders.SetPaid(ctx, o.ID, true)
	require.NoError(t, err)
	assert.True(t, got.Paid)
	got, err = orders.SetPaid(ctx, o.ID, true)
	require.NoError(t, err)
	assert.True(t, got.Paid)

	for _, st := range []string{"processing", "shipped"} {
		_, err := orders.UpdateStatus(ctx, o.ID, st)
		require.NoError(t, err)
	}
	assert.NotContains(t, f.pub.Types(), service.EventReviewEligible)

	_, err = orders.UpdateStatus(ctx, o.ID, "delivered")
	require.NoError(t, err)
	assert.Contains(t, f.pub.Types(), service.EventReviewEligible)

	got, err = orders.TogglePaid(ctx, o.ID)
	require.NoError(t, err)
	assert.False(t, got.Paid)
}

func TestOrder_ListMineAndAdminFilter(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	orders := &service.OrderService{Repo: f.repo, Publisher: f.pub}
	first, _ := placeOrder(t, f, 1)
	placeOrder(t, f, 1)
	_, err := orders.UpdateStatus(ctx, first.ID, "processing")
	require.NoError(t, err)

	mine, err := orders.ListMine(ctx, f.user, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, mine.Total)

	pending, err := orders.AdminList(ctx, "pending", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, pending.Total)

	_, err = orders.AdminList(ctx, "bogus", 1, 10)
	require.ErrorIs(t, err, service.ErrValidation)
}
