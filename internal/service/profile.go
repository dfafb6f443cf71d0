package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

const (
	maxNameLen  = 100
	maxPhoneLen = 32
)

// ProfileService manages the customer's personal details and default shipping address.
type ProfileService struct {
	Repo *repo.GormRepo
}

// ProfilePatch carries optional changes; nil fields are left as they are.
type ProfilePatch struct {
	FirstName       *string         `json:"first_name"`
	LastName        *string         `json:"last_name"`
	Phone           *string         `json:"phone"`
	ShippingAddress *models.Address `json:"default_shipping_address"`
}

func (s *ProfileService) Get(ctx context.Context, p Principal) (*models.User, error) {
	if !p.Authenticated() {
		return nil, ErrUnauthorized
	}
	user, err := s.Repo.UserByID(ctx, p.UserID)
	if err != nil {
		return nil, storeErr(err)
	}
	return user, nil
}

func (s *ProfileService) Update(ctx context.Context, p Principal, patch ProfilePatch) (*models.User, error) {
	if !p.Authenticated() {
		return nil, ErrUnauthorized
	}
	l := logging.FromContext(ctx).With("svc", "profile.update", "user_id", p.UserID)

	var user *models.User
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		u, err := tx.UserByID(ctx, p.UserID)
		if err != nil {
			return storeErr(err)
		}
		if err := patch.apply(u); err != nil {
			return err
		}
		if err := tx.UpdateProfile(ctx, u); err != nil {
			return storeErr(err)
		}
		user = u
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrPersistence) {
			l.Error("update_profile_error", "error", err)
		}
		return nil, err
	}
	return user, nil
}

func (patch ProfilePatch) apply(u *models.User) error {
	if patch.FirstName != nil {
		v, err := cleanName("first_name", *patch.FirstName)
		if err != nil {
			return err
		}
		u.FirstName = v
	}
	if patch.LastName != nil {
		v, err := cleanName("last_name", *patch.LastName)
		if err != nil {
			return err
		}
		u.LastName = v
	}
	if patch.Phone != nil {
		v, err := cleanPhone(*patch.Phone)
		if err != nil {
			return err
		}
		u.Phone = v
	}
	if patch.ShippingAddress != nil {
		a, err := cleanAddress(*patch.ShippingAddress)
		if err != nil {
			return err
		}
		u.ShippingAddress = a
	}
	return nil
}

func cleanName(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if utf8.RuneCountInString(v) > maxNameLen {
		return "", fmt.Errorf("%w: %s too long", ErrValidation, field)
	}
	return v, nil
}

func cleanPhone(v string) (string, error) {
	v = strings.TrimSpace(v)
	if len(v) > maxPhoneLen {
		return "", fmt.Errorf("%w: phone too long", ErrValidation)
	}
	for i, r := range v {
		switch {
		case unicode.IsDigit(r), r == ' ', r == '-', r == '(', r == ')':
		case r == '+' && i == 0:
		default:
			return "", fmt.Errorf("%w: phone may hold digits, spaces, dashes and a leading +", ErrValidation)
		}
	}
	return v, nil
}

// cleanAddress accepts an empty address, which clears the default.
func cleanAddress(a models.Address) (models.Address, error) {
	a = models.Address{
		Street:     strings.TrimSpace(a.Street),
		City:       strings.TrimSpace(a.City),
		PostalCode: strings.TrimSpace(a.PostalCode),
		Country:    strings.ToUpper(strings.TrimSpace(a.Country)),
	}
	if a == (models.Address{}) {
		return a, nil
	}
	if a.Street == "" || a.City == "" || a.PostalCode == "" || a.Country == "" {
		return a, fmt.Errorf("%w: street, city, postal_code and country are required", ErrValidation)
	}
	if len(a.Country) != 2 || strings.IndexFunc(a.Country, func(r rune) bool { return r < 'A' || r > 'Z' }) >= 0 {
		return a, fmt.Errorf("%w: country must be a two-letter code", ErrValidation)
	}
	if utf8.RuneCountInString(a.Street) > 255 || utf8.RuneCountInString(a.City) > 120 || len(a.PostalCode) > 20 {
		return a, fmt.Errorf("%w: address field too long", ErrValidation)
	}
	return a, nil
}
