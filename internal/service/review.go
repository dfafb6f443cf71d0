package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/util"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/google/uuid"
)

const maxReviewBody = 5000

type ReviewService struct {
	Repo *repo.GormRepo
}

type ProductReviews struct {
	Reviews []models.Review `json:"reviews"`
	Average float64         `json:"average"`
	Count   int             `json:"count"`
}

func validateReview(rating int, body string) (string, error) {
	if rating < models.MinRating || rating > models.MaxRating {
		return "", fmt.Errorf("%w: rating must be between %d and %d", ErrValidation, models.MinRating, models.MaxRating)
	}
	body = strings.TrimSpace(body)
	if len(body) > maxReviewBody {
		return "", fmt.Errorf("%w: review too long", ErrValidation)
	}
	return body, nil
}

// Submit creates the caller's review of a product, or edits it when one already exists.
// The bool result reports whether a new review was created.
func (s *ReviewService) Submit(ctx context.Context, p Principal, productID uuid.UUID, rating int, body string) (*models.Review, bool, error) {
	if !p.Authenticated() {
		return nil, false, ErrUnauthorized
	}
	body, err := validateReview(rating, body)
	if err != nil {
		return nil, false, err
	}
	l := logging.FromContext(ctx).With("svc", "review.submit", "product_id", productID, "user_id", p.UserID)

	review, created, err := s.submit(ctx, p.UserID, productID, rating, body)
	if isDuplicate(err) {
		// a concurrent first submission won the insert; this one becomes an edit
		review, created, err = s.submit(ctx, p.UserID, productID, rating, body)
	}
	if err != nil {
		if errors.Is(err, ErrPersistence) {
			l.Error("submit_review_error", "error", err)
		}
		return nil, false, err
	}
	return review, created, nil
}

func (s *ReviewService) submit(ctx context.Context, userID, productID uuid.UUID, rating int, body string) (*models.Review, bool, error) {
	var (
		review  *models.Review
		created bool
	)
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		if _, err := tx.ProductByID(ctx, productID); err != nil {
			return storeErr(err)
		}
		eligible, err := tx.HasReviewableOrder(ctx, userID, productID)
		if err != nil {
			return storeErr(err)
		}
		if !eligible {
			return ErrNotEligible
		}

		review, created, err = upsertReview(ctx, tx, userID, productID, rating, body)
		if err != nil {
			return err
		}
		return refreshRating(ctx, tx, productID)
	})
	return review, created, err
}

func upsertReview(ctx context.Context, tx *repo.GormRepo, userID, productID uuid.UUID, rating int, body string) (*models.Review, bool, error) {
	existing, err := tx.ReviewByUserProduct(ctx, userID, productID)
	switch {
	case err == nil:
		existing.Rating = rating
		existing.Body = body
		if err := tx.SaveReview(ctx, existing); err != nil {
			return nil, false, storeErr(err)
		}
		return existing, false, nil
	case errors.Is(storeErr(err), ErrNotFound):
		rv := &models.Review{UserID: userID, ProductID: productID, Rating: rating, Body: body}
		if err := tx.CreateReview(ctx, rv); err != nil {
			return nil, false, storeErr(err)
		}
		return rv, true, nil
	default:
		return nil, false, storeErr(err)
	}
}

func refreshRating(ctx context.Context, tx *repo.GormRepo, productID uuid.UUID) error {
	avg, err := tx.AverageRating(ctx, productID)
	if err != nil {
		return storeErr(err)
	}
	return storeErr(tx.SetProductRating(ctx, productID, avg))
}

// Delete removes a review; only its author or an admin may do so.
func (s *ReviewService) Delete(ctx context.Context, p Principal, reviewID uuid.UUID) error {
	if !p.Authenticated() {
		return ErrUnauthorized
	}
	return s.delete(ctx, reviewID, func(rv *models.Review) error {
		if rv.UserID != p.UserID && !p.IsAdmin() {
			return ErrForbidden
		}
		return nil
	})
}

func (s *ReviewService) delete(ctx context.Context, reviewID uuid.UUID, check func(*models.Review) error) error {
	return s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		rv, err := tx.ReviewByID(ctx, reviewID)
		if err != nil {
			return storeErr(err)
		}
		if check != nil {
			if err := check(rv); err != nil {
				return err
			}
		}
		if err := tx.DeleteReview(ctx, rv.ID); err != nil {
			return storeErr(err)
		}
		return refreshRating(ctx, tx, rv.ProductID)
	})
}

func (s *ReviewService) ListForProduct(ctx context.Context, productID uuid.UUID) (*ProductReviews, error) {
	items, err := s.Repo.ReviewsForProduct(ctx, productID)
	if err != nil {
		return nil, storeErr(err)
	}
	avg, err := s.Repo.AverageRating(ctx, productID)
	if err != nil {
		return nil, storeErr(err)
	}
	if items == nil {
		items = []models.Review{}
	}
	return &ProductReviews{Reviews: items, Average: avg, Count: len(items)}, nil
}

// EligibleItems lists products the caller may review but has not reviewed yet.
func (s *ReviewService) EligibleItems(ctx context.Context, p Principal) ([]models.Product, error) {
	if !p.Authenticated() {
		return nil, ErrUnauthorized
	}
	ids, err := s.Repo.ReviewableProductIDs(ctx, p.UserID)
	if err != nil {
		return nil, storeErr(err)
	}
	reviewed, err := s.Repo.ReviewedProductIDs(ctx, p.UserID)
	if err != nil {
		return nil, storeErr(err)
	}
	done := make(map[uuid.UUID]struct{}, len(reviewed))
	for _, id := range reviewed {
		done[id] = struct{}{}
	}
	pending := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := done[id]; !ok {
			pending = append(pending, id)
		}
	}

	items, err := s.Repo.ProductsByIDs(ctx, pending)
	if err != nil {
		return nil, storeErr(err)
	}
	if items == nil {
		items = []models.Product{}
	}
	return items, nil
}

func (s *ReviewService) ListMine(ctx context.Context, p Principal) ([]models.Review, error) {
	if !p.Authenticated() {
		return nil, ErrUnauthorized
	}
	items, err := s.Repo.ReviewsByUser(ctx, p.UserID)
	if err != nil {
		return nil, storeErr(err)
	}
	if items == nil {
		items = []models.Review{}
	}
	return items, nil
}

func (s *ReviewService) AdminList(ctx context.Context, page, size int) (Page[models.Review], error) {
	page, size = util.Normalize(page, size)
	offset, limit := util.Calculate(page, size)
	total, items, err := s.Repo.ListReviews(ctx, offset, limit)
	if err != nil {
		return Page[models.Review]{}, storeErr(err)
	}
	return newPage(items, total, page, size), nil
}

// AdminCreate skips the purchase check but still keeps one review per user and product.
func (s *ReviewService) AdminCreate(ctx context.Context, userID, productID uuid.UUID, rating int, body string) (*models.Review, error) {
	body, err := validateReview(rating, body)
	if err != nil {
		return nil, err
	}
	var review *models.Review
	err = s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		if _, err := tx.UserByID(ctx, userID); err != nil {
			return storeErr(err)
		}
		if _, err := tx.ProductByID(ctx, productID); err != nil {
			return storeErr(err)
		}
		if _, err := tx.ReviewByUserProduct(ctx, userID, productID); err == nil {
			return fmt.Errorf("%w: user already reviewed this product", ErrConflict)
		} else if !errors.Is(storeErr(err), ErrNotFound) {
			return storeErr(err)
		}
		review = &models.Review{UserID: userID, ProductID: productID, Rating: rating, Body: body}
		if err := tx.CreateReview(ctx, review); err != nil {
			return storeErr(err)
		}
		return refreshRating(ctx, tx, productID)
	})
	if err != nil {
		return nil, err
	}
	return review, nil
}

func (s *ReviewService) AdminUpdate(ctx context.Context, id uuid.UUID, rating int, body string) (*models.Review, error) {
	body, err := validateReview(rating, body)
	if err != nil {
		return nil, err
	}
	var review *models.Review
	err = s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		rv, err := tx.ReviewByID(ctx, id)
		if err != nil {
			return storeErr(err)
		}
		rv.Rating = rating
		rv.Body = body
		if err := tx.SaveReview(ctx, rv); err != nil {
			return storeErr(err)
		}
		review = rv
		return refreshRating(ctx, tx, rv.ProductID)
	})
	if err != nil {
		return nil, err
	}
	return review, nil
}

func (s *ReviewService) AdminDelete(ctx context.Context, id uuid.UUID) error {
	return s.delete(ctx, id, nil)
}
