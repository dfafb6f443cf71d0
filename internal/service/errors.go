package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrValidation   = errors.New("validation")   // 400
	ErrEmptyCart    = errors.New("cart is empty") // 422
	ErrUnauthorized = errors.New("unauthorized") // 401
	ErrForbidden    = errors.New("forbidden")    // 403
	ErrNotFound     = errors.New("not found")    // 404
	ErrConflict     = errors.New("conflict")     // 409
	ErrPersistence  = errors.New("persistence")  // 500

	ErrNotEligible       = fmt.Errorf("%w: not eligible to review", ErrForbidden)
	ErrOutOfStock        = fmt.Errorf("%w: out of stock", ErrConflict)
	ErrInvalidTransition = fmt.Errorf("%w: invalid status transition", ErrConflict)

	ErrInvalidCredentials  = fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	ErrInvalidRefreshToken = fmt.Errorf("%w: invalid refresh token", ErrUnauthorized)
)

// storeErr maps a repository error onto the service taxonomy.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	if errors.Is(err, ErrPersistence) || isDomainErr(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}

// isDuplicate reports a unique index violation surfaced through storeErr.
func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func isDomainErr(err error) bool {
	for _, target := range []error{ErrValidation, ErrEmptyCart, ErrUnauthorized, ErrForbidden, ErrNotFound, ErrConflict} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
