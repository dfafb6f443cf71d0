package repo

import (
	"context"
	"time"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (r *GormRepo) CreateSale(ctx context.Context, s *models.Sale) error {
	return r.db(ctx).Omit("Products.*").Create(s).Error
}

func (r *GormRepo) SaleByID(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	var s models.Sale
	if err := r.db(ctx).Preload("Products", func(db *gorm.DB) *gorm.DB {
		return db.Order("products.name ASC")
	}).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *GormRepo) ListSales(ctx context.Context) ([]models.Sale, error) {
	var items []models.Sale
	err := r.db(ctx).Preload("Products").Order("start_date DESC, id ASC").Find(&items).Error
	return items, err
}

// SaveSale updates the sale row and replaces its product set.
func (r *GormRepo) SaveSale(ctx context.Context, s *models.Sale) error {
	return r.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Products").Save(s).Error; err != nil {
			return err
		}
		return tx.Model(s).Omit("Products.*").Association("Products").Replace(s.Products)
	})
}

func (r *GormRepo) DeleteSale(ctx context.Context, id uuid.UUID) error {
	return r.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM sale_products WHERE sale_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Sale{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// SalesToApply returns started sales that were never applied and have not ended.
func (r *GormRepo) SalesToApply(ctx context.Context, now time.Time) ([]models.Sale, error) {
	var items []models.Sale
	err := r.db(ctx).Preload("Products").
		Where("applied_at IS NULL AND start_date <= ?", now).
		Where("end_date IS NULL OR end_date > ?", now).
		Order("start_date ASC, id ASC").
		Find(&items).Error
	return items, err
}

// SalesToRevert returns applied sales whose end date has passed.
func (r *GormRepo) SalesToRevert(ctx context.Context, now time.Time) ([]models.Sale, error) {
	var items []models.Sale
	err := r.db(ctx).Preload("Products").
		Where("applied_at IS NOT NULL AND reverted_at IS NULL AND end_date IS NOT NULL AND end_date <= ?", now).
		Order("end_date ASC, id ASC").
		Find(&items).Error
	return items, err
}

func (r *GormRepo) MarkSaleApplied(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db(ctx).Model(&models.Sale{}).Where("id = ?", id).
		Updates(map[string]any{"applied_at": at, "reverted_at": nil}).Error
}

func (r *GormRepo) MarkSaleReverted(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db(ctx).Model(&models.Sale{}).Where("id = ?", id).Update("reverted_at", at).Error
}

// PickerFilter narrows the admin product picker used when composing a sale.
type PickerFilter struct {
	Search       string
	CategoryID   *uuid.UUID
	PriceBand    string
	CreatedAfter *time.Time
}

const (
	PriceBandLow  = "low"
	PriceBandHigh = "high"

	priceBandLimit = 50
)

func (r *GormRepo) PickerProducts(ctx context.Context, f PickerFilter, offset, limit int) (int64, []models.Product, error) {
	scope := func(q *gorm.DB) *gorm.DB {
		if f.Search != "" {
			p := likePattern(f.Search)
			q = q.Where("LOWER(name) LIKE LOWER(?)"+likeEscape+" OR LOWER(description) LIKE LOWER(?)"+likeEscape, p, p)
		}
		if f.CategoryID != nil {
			q = q.Where("category_id = ?", *f.CategoryID)
		}
		switch f.PriceBand {
		case PriceBandLow:
			q = q.Where("price < ?", priceBandLimit)
		case PriceBandHigh:
			q = q.Where("price >= ?", priceBandLimit)
		}
		if f.CreatedAfter != nil {
			q = q.Where("created_at >= ?", *f.CreatedAfter)
		}
		return q
	}

	var total int64
	if err := scope(r.db(ctx).Model(&models.Product{})).Count(&total).Error; err != nil {
		return 0, nil, err
	}
	items := make([]models.Product, 0, limit)
	if err := scope(r.db(ctx)).Order("name ASC, id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}
