package repo

import (
	"context"
	"strings"
	"time"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SubscribersAll          = "all"
	SubscribersSubscribed   = "subscribed"
	SubscribersUnsubscribed = "unsubscribed"
)

func (r *GormRepo) SubscriberByEmail(ctx context.Context, email string) (*models.Subscriber, error) {
	var s models.Subscriber
	if err := r.db(ctx).Where("email = ?", strings.ToLower(email)).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *GormRepo) SubscriberByToken(ctx context.Context, token string) (*models.Subscriber, error) {
	var s models.Subscriber
	if err := r.db(ctx).Where("token = ?", token).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *GormRepo) SubscriberByID(ctx context.Context, id uuid.UUID) (*models.Subscriber, error) {
	var s models.Subscriber
	if err := r.db(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *GormRepo) CreateSubscriber(ctx context.Context, s *models.Subscriber) error {
	s.Email = strings.ToLower(s.Email)
	return r.db(ctx).Create(s).Error
}

// ConfirmSubscriber flips an unconfirmed subscriber on; false when the token matches nobody waiting.
func (r *GormRepo) ConfirmSubscriber(ctx context.Context, token string, at time.Time) (bool, error) {
	res := r.db(ctx).Model(&models.Subscriber{}).
		Where("token = ? AND is_subscribed = ?", token, false).
		Updates(map[string]any{"is_subscribed": true, "confirmed_at": at, "unsubscribed_at": nil})
	return res.RowsAffected > 0, res.Error
}

func (r *GormRepo) UnsubscribeSubscriber(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := r.db(ctx).Model(&models.Subscriber{}).Where("id = ?", id).
		Updates(map[string]any{"is_subscribed": false, "unsubscribed_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) ListSubscribers(ctx context.Context, filter string) ([]models.Subscriber, error) {
	q := r.db(ctx)
	switch filter {
	case SubscribersSubscribed:
		q = q.Where("is_subscribed = ?", true).Order("created_at DESC")
	case SubscribersUnsubscribed:
		q = q.Where("is_subscribed = ? AND unsubscribed_at IS NOT NULL", false).Order("unsubscribed_at DESC")
	default:
		q = q.Order("created_at DESC")
	}
	var items []models.Subscriber
	err := q.Order("id ASC").Find(&items).Error
	return items, err
}
