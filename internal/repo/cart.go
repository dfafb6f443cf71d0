package repo

import (
	"context"
	"errors"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNoCartOwner = errors.New("cart owner required")

// CartOwner identifies a cart by user or, for anonymous visitors, by session key.
type CartOwner struct {
	UserID     uuid.UUID
	SessionKey string
}

func (o CartOwner) scope(q *gorm.DB) (*gorm.DB, error) {
	switch {
	case o.UserID != uuid.Nil:
		return q.Where("user_id = ?", o.UserID), nil
	case o.SessionKey != "":
		return q.Where("session_key = ?", o.SessionKey), nil
	default:
		return nil, ErrNoCartOwner
	}
}

func (o CartOwner) newCart() models.Cart {
	if o.UserID != uuid.Nil {
		id := o.UserID
		return models.Cart{UserID: &id}
	}
	key := o.SessionKey
	return models.Cart{SessionKey: &key}
}

func preloadItems(q *gorm.DB) *gorm.DB {
	return q.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("cart_items.created_at ASC, cart_items.id ASC")
	}).Preload("Items.Product")
}

// CartByOwner returns gorm.ErrRecordNotFound when the owner has no cart yet.
func (r *GormRepo) CartByOwner(ctx context.Context, owner CartOwner) (*models.Cart, error) {
	q, err := owner.scope(r.db(ctx))
	if err != nil {
		return nil, err
	}
	var cart models.Cart
	if err := preloadItems(q).First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *GormRepo) GetOrCreateCart(ctx context.Context, owner CartOwner) (*models.Cart, error) {
	q, err := owner.scope(r.db(ctx))
	if err != nil {
		return nil, err
	}
	cart := owner.newCart()
	if err := q.FirstOrCreate(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *GormRepo) CartByID(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := preloadItems(r.db(ctx)).Where("id = ?", id).First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// AddCartItem increments an existing line or creates a new one.
func (r *GormRepo) AddCartItem(ctx context.Context, cartID, productID uuid.UUID, qty int) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.CartItem{}).
			Where("cart_id = ? AND product_id = ?", cartID, productID).
			Update("quantity", gorm.Expr("quantity + ?", qty))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return tx.Where("cart_id = ? AND product_id = ?", cartID, productID).First(&item).Error
		}

		item = models.CartItem{CartID: cartID, ProductID: productID, Quantity: qty}
		return tx.Omit("Product").Create(&item).Error
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// SetCartItemQuantity returns gorm.ErrRecordNotFound when the line does not exist.
func (r *GormRepo) SetCartItemQuantity(ctx context.Context, cartID, productID uuid.UUID, qty int) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("cart_id = ? AND product_id = ?", cartID, productID).
			First(&item).Error; err != nil {
			return err
		}
		item.Quantity = qty
		return tx.Model(&item).Update("quantity", qty).Error
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *GormRepo) DeleteCartItem(ctx context.Context, cartID, productID uuid.UUID) (bool, error) {
	res := r.db(ctx).Where("cart_id = ? AND product_id = ?", cartID, productID).Delete(&models.CartItem{})
	return res.RowsAffected > 0, res.Error
}

func (r *GormRepo) ClearCart(ctx context.Context, cartID uuid.UUID) error {
	return r.db(ctx).Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error
}

func (r *GormRepo) DeleteCart(ctx context.Context, cartID uuid.UUID) error {
	return r.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Cart{}, "id = ?", cartID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *GormRepo) CartItemByID(ctx context.Context, id uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.db(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *GormRepo) UpdateCartItemByID(ctx context.Context, id uuid.UUID, qty int) error {
	res := r.db(ctx).Model(&models.CartItem{}).Where("id = ?", id).Update("quantity", qty)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) DeleteCartItemByID(ctx context.Context, id uuid.UUID) error {
	res := r.db(ctx).Delete(&models.CartItem{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) CartQuantity(ctx context.Context, owner CartOwner) (int, error) {
	q, err := owner.scope(r.db(ctx).Model(&models.Cart{}).Select("id"))
	if err != nil {
		return 0, err
	}
	var total int
	err = r.db(ctx).Model(&models.CartItem{}).
		Where("cart_id IN (?)", q).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error
	return total, err
}
