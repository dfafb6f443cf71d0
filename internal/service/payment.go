package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/google/uuid"
)

type PaymentService struct {
	Repo *repo.GormRepo
}

// PaymentInput carries the full card number or PayPal email; only a hint is stored.
type PaymentInput struct {
	Type        string `json:"type"`
	HolderName  string `json:"holder_name"`
	CardNumber  string `json:"card_number"`
	PayPalEmail string `json:"paypal_email"`
}

func (in PaymentInput) apply(pm *models.PaymentMethod) error {
	pm.HolderName = strings.TrimSpace(in.HolderName)
	switch in.Type {
	case models.PaymentTypeCreditCard:
		digits := strings.Map(func(r rune) rune {
			if r == ' ' || r == '-' {
				return -1
			}
			return r
		}, in.CardNumber)
		if len(digits) < 12 || len(digits) > 19 || strings.Trim(digits, "0123456789") != "" {
			return fmt.Errorf("%w: card number must be 12 to 19 digits", ErrValidation)
		}
		pm.LastFourDigits = digits[len(digits)-4:]
	case models.PaymentTypePayPal:
		email, err := normalizeEmail(in.PayPalEmail)
		if err != nil {
			return err
		}
		prefix := email
		if len(prefix) > 4 {
			prefix = prefix[:4]
		}
		pm.LastFourDigits = prefix + "..."
	default:
		return fmt.Errorf("%w: unknown payment type %q", ErrValidation, in.Type)
	}
	pm.Type = in.Type
	return nil
}

func (s *PaymentService) List(ctx context.Context, p Principal) ([]models.PaymentMethod, error) {
	if !p.Authenticated() {
		return nil, ErrUnauthorized
	}
	items, err := s.Repo.PaymentMethodsByUser(ctx, p.UserID)
	if err != nil {
		return nil, storeErr(err)
	}
	if items == nil {
		items = []models.PaymentMethod{}
	}
	return items, nil
}

func (s *PaymentService) Create(ctx context.Context, p Principal, in PaymentInput) (*models.PaymentMethod, error) {
	if !p.Authenticated() {
		return nil, ErrUnauthorized
	}
	pm := &models.PaymentMethod{UserID: p.UserID}
	if err := in.apply(pm); err != nil {
		return nil, err
	}
	if err := s.Repo.CreatePaymentMethod(ctx, pm); err != nil {
		return nil, storeErr(err)
	}
	return pm, nil
}

func (s *PaymentService) owned(ctx context.Context, p Principal, id uuid.UUID) (*models.PaymentMethod, error) {
	if !p.Authenticated() {
		return nil, ErrUnauthorized
	}
	pm, err := s.Repo.PaymentMethodByID(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	if pm.UserID != p.UserID {
		return nil, ErrForbidden
	}
	return pm, nil
}

func (s *PaymentService) Update(ctx context.Context, p Principal, id uuid.UUID, in PaymentInput) (*models.PaymentMethod, error) {
	pm, err := s.owned(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := in.apply(pm); err != nil {
		return nil, err
	}
	if err := s.Repo.SavePaymentMethod(ctx, pm); err != nil {
		return nil, storeErr(err)
	}
	return pm, nil
}

func (s *PaymentService) Delete(ctx context.Context, p Principal, id uuid.UUID) error {
	pm, err := s.owned(ctx, p, id)
	if err != nil {
		return err
	}
	return storeErr(s.Repo.DeletePaymentMethod(ctx, pm.ID))
}
