package repo

import (
	"context"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (r *GormRepo) PaymentMethodsByUser(ctx context.Context, userID uuid.UUID) ([]models.PaymentMethod, error) {
	var items []models.PaymentMethod
	err := r.db(ctx).Where("user_id = ?", userID).Order("created_at ASC, id ASC").Find(&items).Error
	return items, err
}

func (r *GormRepo) PaymentMethodByID(ctx context.Context, id uuid.UUID) (*models.PaymentMethod, error) {
	var pm models.PaymentMethod
	if err := r.db(ctx).Where("id = ?", id).First(&pm).Error; err != nil {
		return nil, err
	}
	return &pm, nil
}

func (r *GormRepo) CreatePaymentMethod(ctx context.Context, pm *models.PaymentMethod) error {
	return r.db(ctx).Create(pm).Error
}

func (r *GormRepo) SavePaymentMethod(ctx context.Context, pm *models.PaymentMethod) error {
	return r.db(ctx).Save(pm).Error
}

func (r *GormRepo) DeletePaymentMethod(ctx context.Context, id uuid.UUID) error {
	res := r.db(ctx).Delete(&models.PaymentMethod{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
