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

type CartService struct {
	Repo *repo.GormRepo
}

type CartLine struct {
	ItemID    uuid.UUID       `json:"item_id"`
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
	InStock   bool            `json:"in_stock"`
}

type CartView struct {
	CartID        uuid.UUID       `json:"cart_id"`
	Items         []CartLine      `json:"items"`
	TotalQuantity int             `json:"total_quantity"`
	Subtotal      decimal.Decimal `json:"subtotal"`
}

func emptyCartView() *CartView {
	return &CartView{Items: []CartLine{}, Subtotal: decimal.Zero}
}

func cartView(c *models.Cart) *CartView {
	v := emptyCartView()
	v.CartID = c.ID
	for _, it := range c.Items {
		line := CartLine{ItemID: it.ID, ProductID: it.ProductID, Quantity: it.Quantity}
		if it.Product != nil {
			line.Name = it.Product.Name
			line.Slug = it.Product.Slug
			line.UnitPrice = it.Product.EffectivePrice()
			line.InStock = it.Product.Stock >= it.Quantity
		}
		line.LineTotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
		v.Items = append(v.Items, line)
		v.TotalQuantity += it.Quantity
		v.Subtotal = v.Subtotal.Add(line.LineTotal)
	}
	return v
}

func requireCartOwner(p Principal) error {
	if !p.hasCartOwner() {
		return fmt.Errorf("%w: no cart session", ErrValidation)
	}
	return nil
}

func (s *CartService) View(ctx context.Context, p Principal) (*CartView, error) {
	if !p.hasCartOwner() {
		return emptyCartView(), nil
	}
	cart, err := s.Repo.CartByOwner(ctx, p.cartOwner())
	if err != nil {
		if errors.Is(storeErr(err), ErrNotFound) {
			return emptyCartView(), nil
		}
		return nil, storeErr(err)
	}
	return cartView(cart), nil
}

// AddItem adds quantity to the line for productID, creating the cart and line as needed.
// Stock is checked at checkout, not here.
func (s *CartService) AddItem(ctx context.Context, p Principal, productID uuid.UUID, quantity int) (*models.CartItem, error) {
	l := logging.FromContext(ctx).With("svc", "cart.add", "product_id", productID)

	if err := requireCartOwner(p); err != nil {
		return nil, err
	}
	if productID == uuid.Nil {
		return nil, fmt.Errorf("%w: product_id required", ErrValidation)
	}
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	}

	var item *models.CartItem
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		product, err := tx.ProductByID(ctx, productID)
		if err != nil {
			return storeErr(err)
		}
		if !product.IsPublished {
			return fmt.Errorf("%w: product", ErrNotFound)
		}

		cart, err := tx.GetOrCreateCart(ctx, p.cartOwner())
		if err != nil {
			return storeErr(err)
		}
		item, err = tx.AddCartItem(ctx, cart.ID, productID, quantity)
		return storeErr(err)
	})
	if err != nil {
		if errors.Is(err, ErrPersistence) {
			l.Error("add_item_error", "error", err)
		}
		return nil, err
	}
	return item, nil
}

// UpdateItem sets the line quantity; zero removes the line.
func (s *CartService) UpdateItem(ctx context.Context, p Principal, productID uuid.UUID, quantity int) (*models.CartItem, error) {
	if err := requireCartOwner(p); err != nil {
		return nil, err
	}
	if quantity < 0 {
		return nil, fmt.Errorf("%w: quantity must be >= 0", ErrValidation)
	}
	if quantity == 0 {
		return nil, s.RemoveItem(ctx, p, productID)
	}

	var item *models.CartItem
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		cart, err := tx.CartByOwner(ctx, p.cartOwner())
		if err != nil {
			return storeErr(err)
		}
		item, err = tx.SetCartItemQuantity(ctx, cart.ID, productID, quantity)
		return storeErr(err)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// RemoveItem is a no-op when the product is not in the cart.
func (s *CartService) RemoveItem(ctx context.Context, p Principal, productID uuid.UUID) error {
	if !p.hasCartOwner() {
		return nil
	}
	return s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		cart, err := tx.CartByOwner(ctx, p.cartOwner())
		if err != nil {
			if errors.Is(storeErr(err), ErrNotFound) {
				return nil
			}
			return storeErr(err)
		}
		_, err = tx.DeleteCartItem(ctx, cart.ID, productID)
		return storeErr(err)
	})
}

func (s *CartService) Clear(ctx context.Context, p Principal) error {
	if !p.hasCartOwner() {
		return nil
	}
	return s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		cart, err := tx.CartByOwner(ctx, p.cartOwner())
		if err != nil {
			if errors.Is(storeErr(err), ErrNotFound) {
				return nil
			}
			return storeErr(err)
		}
		return storeErr(tx.ClearCart(ctx, cart.ID))
	})
}

func (s *CartService) TotalQuantity(ctx context.Context, p Principal) (int, error) {
	if !p.hasCartOwner() {
		return 0, nil
	}
	n, err := s.Repo.CartQuantity(ctx, p.cartOwner())
	return n, storeErr(err)
}

// Merge moves an anonymous session cart into the user's cart, summing quantities.
func (s *CartService) Merge(ctx context.Context, sessionKey string, userID uuid.UUID) error {
	if sessionKey == "" || userID == uuid.Nil {
		return nil
	}
	l := logging.FromContext(ctx).With("svc", "cart.merge", "user_id", userID)

	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		anon, err := tx.CartByOwner(ctx, repo.CartOwner{SessionKey: sessionKey})
		if err != nil {
			if errors.Is(storeErr(err), ErrNotFound) {
				return nil
			}
			return storeErr(err)
		}
		if len(anon.Items) > 0 {
			userCart, err := tx.GetOrCreateCart(ctx, repo.CartOwner{UserID: userID})
			if err != nil {
				return storeErr(err)
			}
			for _, it := range anon.Items {
				if _, err := tx.AddCartItem(ctx, userCart.ID, it.ProductID, it.Quantity); err != nil {
					return storeErr(err)
				}
			}
		}
		return storeErr(tx.DeleteCart(ctx, anon.ID))
	})
	if err != nil {
		l.Error("merge_error", "error", err)
	}
	return err
}

func (s *CartService) AdminGetCart(ctx context.Context, cartID uuid.UUID) (*CartView, error) {
	cart, err := s.Repo.CartByID(ctx, cartID)
	if err != nil {
		return nil, storeErr(err)
	}
	return cartView(cart), nil
}

// AdminUpdateItem follows the same quantity rules as UpdateItem.
// The returned item is nil when quantity 0 removed the line.
func (s *CartService) AdminUpdateItem(ctx context.Context, itemID uuid.UUID, quantity int) (*models.CartItem, error) {
	if quantity < 0 {
		return nil, fmt.Errorf("%w: quantity must be >= 0", ErrValidation)
	}
	var item *models.CartItem
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		if quantity == 0 {
			return storeErr(tx.DeleteCartItemByID(ctx, itemID))
		}
		if err := tx.UpdateCartItemByID(ctx, itemID, quantity); err != nil {
			return storeErr(err)
		}
		updated, err := tx.CartItemByID(ctx, itemID)
		if err != nil {
			return storeErr(err)
		}
		item = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *CartService) AdminDeleteItem(ctx context.Context, itemID uuid.UUID) error {
	return storeErr(s.Repo.DeleteCartItemByID(ctx, itemID))
}

func (s *CartService) AdminDeleteCart(ctx context.Context, cartID uuid.UUID) error {
	return storeErr(s.Repo.DeleteCart(ctx, cartID))
}
