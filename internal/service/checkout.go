package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CheckoutService struct {
	Repo      *repo.GormRepo
	Publisher Publisher
}

type orderCreatedEvent struct {
	OrderID uuid.UUID       `json:"order_id"`
	UserID  uuid.UUID       `json:"user_id"`
	Total   decimal.Decimal `json:"total"`
	Items   int             `json:"items"`
}

// ConvertCartToOrder turns the caller's cart into a pending, unpaid order.
// Stock decrement, order insert and cart clear commit together or not at all.
func (s *CheckoutService) ConvertCartToOrder(ctx context.Context, p Principal) (*models.Order, error) {
	if !p.Authenticated() {
		return nil, fmt.Errorf("%w: sign in to check out", ErrUnauthorized)
	}
	l := logging.FromContext(ctx).With("svc", "checkout.convert", "user_id", p.UserID)

	var order *models.Order
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		cart, err := tx.CartByOwner(ctx, repo.CartOwner{UserID: p.UserID})
		if err != nil {
			if errors.Is(storeErr(err), ErrNotFound) {
				return ErrEmptyCart
			}
			return storeErr(err)
		}
		if len(cart.Items) == 0 {
			return ErrEmptyCart
		}

		order = &models.Order{
			UserID: p.UserID,
			Status: models.OrderStatusPending,
			Total:  decimal.Zero,
			Items:  make([]models.OrderItem, 0, len(cart.Items)),
		}
		for _, line := range cart.Items {
			product, err := tx.LockProduct(ctx, line.ProductID)
			if err != nil {
				if errors.Is(storeErr(err), ErrNotFound) {
					return fmt.Errorf("%w: product %s no longer exists", ErrConflict, line.ProductID)
				}
				return storeErr(err)
			}
			if !product.IsPublished {
				return fmt.Errorf("%w: %s is no longer available", ErrConflict, product.Name)
			}

			ok, err := tx.DecrementStock(ctx, product.ID, line.Quantity)
			if err != nil {
				return storeErr(err)
			}
			if !ok {
				return fmt.Errorf("%w: %s has %d left", ErrOutOfStock, product.Name, product.Stock)
			}

			item := models.OrderItem{
				ProductID:       product.ID,
				CategoryID:      product.CategoryID,
				ProductName:     product.Name,
				Quantity:        line.Quantity,
				PriceAtPurchase: product.EffectivePrice(),
			}
			order.Items = append(order.Items, item)
			order.Total = order.Total.Add(item.LineTotal())
		}

		if err := tx.CreateOrder(ctx, order); err != nil {
			return storeErr(err)
		}
		return storeErr(tx.ClearCart(ctx, cart.ID))
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrPersistence):
			l.Error("checkout_error", "error", err)
		case errors.Is(err, ErrConflict):
			l.Warn("checkout_conflict", "error", err)
		}
		return nil, err
	}

	l.Info("order_created", "order_id", order.ID, "total", order.Total.StringFixed(2))
	publish(ctx, s.Publisher, TopicOrderEvents, order.ID.String(), EventOrderCreated, orderCreatedEvent{
		OrderID: order.ID,
		UserID:  order.UserID,
		Total:   order.Total,
		Items:   len(order.Items),
	})
	return order, nil
}

// Success returns the placed order to its owner.
func (s *CheckoutService) Success(ctx context.Context, p Principal, orderID uuid.UUID) (*models.Order, error) {
	if !p.Authenticated() {
		return nil, ErrUnauthorized
	}
	order, err := s.Repo.OrderByID(ctx, orderID)
	if err != nil {
		return nil, storeErr(err)
	}
	if order.UserID != p.UserID {
		return nil, ErrForbidden
	}
	return order, nil
}
