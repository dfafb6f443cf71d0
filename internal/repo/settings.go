package repo

import (
	"context"

	"github.com/Skotchmaster/storefront/internal/models"
)

// Settings returns gorm.ErrRecordNotFound until the singleton row exists.
func (r *GormRepo) Settings(ctx context.Context) (*models.ShopSettings, error) {
	var s models.ShopSettings
	if err := r.db(ctx).Where("id = ?", models.SettingsID).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *GormRepo) SaveSettings(ctx context.Context, s *models.ShopSettings) error {
	s.ID = models.SettingsID
	return r.db(ctx).Save(s).Error
}
