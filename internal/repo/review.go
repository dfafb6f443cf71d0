package repo

import (
	"context"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReviewByUserProduct locks the caller's existing review for the product, if any.
func (r *GormRepo) ReviewByUserProduct(ctx context.Context, userID, productID uuid.UUID) (*models.Review, error) {
	var rv models.Review
	if err := r.db(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		First(&rv).Error; err != nil {
		return nil, err
	}
	return &rv, nil
}

func (r *GormRepo) ReviewByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	var rv models.Review
	if err := r.db(ctx).Where("id = ?", id).First(&rv).Error; err != nil {
		return nil, err
	}
	return &rv, nil
}

func (r *GormRepo) CreateReview(ctx context.Context, rv *models.Review) error {
	return r.db(ctx).Create(rv).Error
}

func (r *GormRepo) SaveReview(ctx context.Context, rv *models.Review) error {
	return r.db(ctx).Save(rv).Error
}

func (r *GormRepo) DeleteReview(ctx context.Context, id uuid.UUID) error {
	res := r.db(ctx).Delete(&models.Review{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) ReviewsForProduct(ctx context.Context, productID uuid.UUID) ([]models.Review, error) {
	var items []models.Review
	err := r.db(ctx).Where("product_id = ?", productID).Order("created_at DESC, id ASC").Find(&items).Error
	return items, err
}

func (r *GormRepo) ReviewsByUser(ctx context.Context, userID uuid.UUID) ([]models.Review, error) {
	var items []models.Review
	err := r.db(ctx).Where("user_id = ?", userID).Order("created_at DESC, id ASC").Find(&items).Error
	return items, err
}

func (r *GormRepo) ReviewedProductIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db(ctx).Model(&models.Review{}).Where("user_id = ?", userID).Pluck("product_id", &ids).Error
	return ids, err
}

func (r *GormRepo) ListReviews(ctx context.Context, offset, limit int) (int64, []models.Review, error) {
	var total int64
	if err := r.db(ctx).Model(&models.Review{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}
	items := make([]models.Review, 0, limit)
	if err := r.db(ctx).Order("created_at DESC, id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

// AverageRating is 0 when the product has no reviews.
func (r *GormRepo) AverageRating(ctx context.Context, productID uuid.UUID) (float64, error) {
	var avg float64
	err := r.db(ctx).Model(&models.Review{}).
		Where("product_id = ?", productID).
		Select("COALESCE(AVG(rating), 0)").
		Scan(&avg).Error
	return avg, err
}
