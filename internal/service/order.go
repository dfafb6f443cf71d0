package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/util"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/google/uuid"
)

type OrderService struct {
	Repo      *repo.GormRepo
	Publisher Publisher
}

type statusChangedEvent struct {
	OrderID uuid.UUID          `json:"order_id"`
	UserID  uuid.UUID          `json:"user_id"`
	From    models.OrderStatus `json:"from"`
	To      models.OrderStatus `json:"to"`
	Paid    bool               `json:"paid"`
}

type reviewEligibleEvent struct {
	OrderID   uuid.UUID `json:"order_id"`
	UserID    uuid.UUID `json:"user_id"`
	ProductID uuid.UUID `json:"product_id"`
}

func (s *OrderService) ListMine(ctx context.Context, p Principal, page, size int) (Page[models.Order], error) {
	if !p.Authenticated() {
		return Page[models.Order]{}, ErrUnauthorized
	}
	page, size = util.Normalize(page, size)
	offset, limit := util.Calculate(page, size)
	total, items, err := s.Repo.ListOrdersByUser(ctx, p.UserID, offset, limit)
	if err != nil {
		return Page[models.Order]{}, storeErr(err)
	}
	return newPage(items, total, page, size), nil
}

func (s *OrderService) GetMine(ctx context.Context, p Principal, id uuid.UUID) (*models.Order, error) {
	if !p.Authenticated() {
		return nil, ErrUnauthorized
	}
	o, err := s.Repo.OrderByID(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	if o.UserID != p.UserID {
		return nil, ErrForbidden
	}
	return o, nil
}

// Cancel lets the owner cancel their own order while the state machine allows it.
func (s *OrderService) Cancel(ctx context.Context, p Principal, id uuid.UUID) (*models.Order, error) {
	if !p.Authenticated() {
		return nil, ErrUnauthorized
	}
	return s.transition(ctx, id, models.OrderStatusCancelled, func(o *models.Order) error {
		if o.UserID != p.UserID {
			return ErrForbidden
		}
		return nil
	})
}

func (s *OrderService) AdminList(ctx context.Context, status string, page, size int) (Page[models.Order], error) {
	st := models.OrderStatus(status)
	if status != "" && !st.Valid() {
		return Page[models.Order]{}, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	page, size = util.Normalize(page, size)
	offset, limit := util.Calculate(page, size)
	total, items, err := s.Repo.ListOrders(ctx, st, offset, limit)
	if err != nil {
		return Page[models.Order]{}, storeErr(err)
	}
	return newPage(items, total, page, size), nil
}

func (s *OrderService) AdminGet(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	o, err := s.Repo.OrderByID(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	return o, nil
}

func (s *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Order, error) {
	next := models.OrderStatus(status)
	if !next.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	return s.transition(ctx, id, next, nil)
}

func (s *OrderService) transition(ctx context.Context, id uuid.UUID, next models.OrderStatus, check func(*models.Order) error) (*models.Order, error) {
	l := logging.FromContext(ctx).With("svc", "order.transition", "order_id", id, "to", next)

	var (
		order *models.Order
		prev  models.OrderStatus
	)
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		o, err := tx.LockOrder(ctx, id)
		if err != nil {
			return storeErr(err)
		}
		if check != nil {
			if err := check(o); err != nil {
				return err
			}
		}
		if !o.Status.CanTransitionTo(next) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, next)
		}
		if err := tx.UpdateOrderStatus(ctx, o.ID, next); err != nil {
			return storeErr(err)
		}
		if next == models.OrderStatusCancelled {
			for _, it := range o.Items {
				if err := tx.IncrementStock(ctx, it.ProductID, it.Quantity); err != nil {
					return storeErr(err)
				}
			}
		}
		prev = o.Status
		o.Status = next
		order = o
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrPersistence) {
			l.Error("transition_error", "error", err)
		}
		return nil, err
	}

	l.Info("order_status_changed", "from", prev)
	publish(ctx, s.Publisher, TopicOrderEvents, order.ID.String(), EventOrderStatusChanged, statusChangedEvent{
		OrderID: order.ID, UserID: order.UserID, From: prev, To: next, Paid: order.Paid,
	})
	s.notifyReviewable(ctx, order, prev == models.OrderStatusDelivered)
	return order, nil
}

// SetPaid is idempotent.
func (s *OrderService) SetPaid(ctx context.Context, id uuid.UUID, paid bool) (*models.Order, error) {
	return s.updatePaid(ctx, id, func(bool) bool { return paid })
}

func (s *OrderService) TogglePaid(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return s.updatePaid(ctx, id, func(cur bool) bool { return !cur })
}

func (s *OrderService) updatePaid(ctx context.Context, id uuid.UUID, next func(bool) bool) (*models.Order, error) {
	var (
		order   *models.Order
		wasPaid bool
	)
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		o, err := tx.LockOrder(ctx, id)
		if err != nil {
			return storeErr(err)
		}
		wasPaid = o.Paid
		o.Paid = next(o.Paid)
		if o.Paid != wasPaid {
			if err := tx.SetOrderPaid(ctx, o.ID, o.Paid); err != nil {
				return storeErr(err)
			}
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifyReviewable(ctx, order, wasPaid)
	return order, nil
}

// notifyReviewable announces review eligibility when an order has just become delivered and paid.
func (s *OrderService) notifyReviewable(ctx context.Context, o *models.Order, wasReviewable bool) {
	if !o.Reviewable() || wasReviewable {
		return
	}
	for _, it := range o.Items {
		publish(ctx, s.Publisher, TopicReviewEvents, o.UserID.String(), EventReviewEligible, reviewEligibleEvent{
			OrderID: o.ID, UserID: o.UserID, ProductID: it.ProductID,
		})
	}
}
