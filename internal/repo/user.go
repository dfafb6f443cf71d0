package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrUserAlreadyExist = errors.New("user already exist")

func (r *GormRepo) CreateUserIfNotExists(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	tx := r.db(ctx).Where("email = ?", u.Email).FirstOrCreate(u)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrUserAlreadyExist
	}
	return nil
}

func (r *GormRepo) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) CountUsers(ctx context.Context, role string) (int64, error) {
	var n int64
	q := r.db(ctx).Model(&models.User{})
	if role != "" {
		q = q.Where("role = ?", role)
	}
	if err := q.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *GormRepo) UserByVerificationToken(ctx context.Context, token string) (*models.User, error) {
	var user models.User
	if err := r.db(ctx).Where("verification_token = ?", token).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) SetVerificationToken(ctx context.Context, userID uuid.UUID, token string, expires time.Time) error {
	return r.updateUser(ctx, userID, map[string]any{
		"verification_token":      token,
		"verification_expires_at": expires,
	})
}

// MarkEmailVerified also burns the verification token.
func (r *GormRepo) MarkEmailVerified(ctx context.Context, userID uuid.UUID, at time.Time) error {
	return r.updateUser(ctx, userID, map[string]any{
		"email_verified":          true,
		"verified_at":             at,
		"verification_token":      nil,
		"verification_expires_at": nil,
	})
}

func (r *GormRepo) UpdatePasswordHash(ctx context.Context, userID uuid.UUID, hash string) error {
	return r.updateUser(ctx, userID, map[string]any{"password_hash": hash})
}

func (r *GormRepo) UpdateProfile(ctx context.Context, u *models.User) error {
	return r.updateUser(ctx, u.ID, map[string]any{
		"first_name":           u.FirstName,
		"last_name":            u.LastName,
		"phone":                u.Phone,
		"shipping_street":      u.ShippingAddress.Street,
		"shipping_city":        u.ShippingAddress.City,
		"shipping_postal_code": u.ShippingAddress.PostalCode,
		"shipping_country":     u.ShippingAddress.Country,
	})
}

func (r *GormRepo) updateUser(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := r.db(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) SaveRefreshToken(ctx context.Context, t *models.RefreshToken) error {
	return r.db(ctx).Create(t).Error
}

func (r *GormRepo) RefreshTokenByJTI(ctx context.Context, jti string) (*models.RefreshToken, error) {
	var t models.RefreshToken
	if err := r.db(ctx).Where("jti = ?", jti).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// RevokeRefreshToken returns false when the token was already revoked or unknown.
func (r *GormRepo) RevokeRefreshToken(ctx context.Context, jti string) (bool, error) {
	res := r.db(ctx).Model(&models.RefreshToken{}).
		Where("jti = ? AND revoked = ?", jti, false).
		Update("revoked", true)
	return res.RowsAffected > 0, res.Error
}

func (r *GormRepo) RevokeRefreshTokenByHash(ctx context.Context, hash string) error {
	return r.db(ctx).Model(&models.RefreshToken{}).
		Where("token_hash = ?", hash).
		Update("revoked", true).Error
}

// RevokeUserRefreshTokens signs the user out of every session.
func (r *GormRepo) RevokeUserRefreshTokens(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := r.db(ctx).Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Update("revoked", true)
	return res.RowsAffected, res.Error
}

func (r *GormRepo) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	res := r.db(ctx).Where("expires_at < ?", now).Delete(&models.RefreshToken{})
	return res.RowsAffected, res.Error
}
