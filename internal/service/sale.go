package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/util"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/google/uuid"
)

type SaleService struct {
	Repo *repo.GormRepo
	// Catalog, when set, re-indexes products whose discount changed.
	Catalog *CatalogService
	Now     func() time.Time
}

type SaleInput struct {
	Name               string      `json:"name"`
	StartDate          time.Time   `json:"start_date"`
	EndDate            *time.Time  `json:"end_date"`
	DiscountPercentage int         `json:"discount_percentage"`
	ProductIDs         []uuid.UUID `json:"product_ids"`
}

type ActivationResult struct {
	Applied  int `json:"applied"`
	Reverted int `json:"reverted"`
}

type PickerResult struct {
	Products    []models.Product `json:"products"`
	TotalItems  int64            `json:"totalItems"`
	TotalPages  int              `json:"totalPages"`
	CurrentPage int              `json:"currentPage"`
}

func (in *SaleInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	switch {
	case in.Name == "":
		return fmt.Errorf("%w: name required", ErrValidation)
	case in.DiscountPercentage < 1 || in.DiscountPercentage > 100:
		return fmt.Errorf("%w: discount_percentage must be between 1 and 100", ErrValidation)
	case in.StartDate.IsZero():
		return fmt.Errorf("%w: start_date required", ErrValidation)
	case in.EndDate != nil && !in.EndDate.After(in.StartDate):
		return fmt.Errorf("%w: end_date must be after start_date", ErrValidation)
	case len(in.ProductIDs) == 0:
		return fmt.Errorf("%w: at least one product required", ErrValidation)
	}
	in.ProductIDs = dedupIDs(in.ProductIDs)
	return nil
}

func dedupIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == uuid.Nil {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func loadSaleProducts(ctx context.Context, tx *repo.GormRepo, ids []uuid.UUID) ([]models.Product, error) {
	products, err := tx.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, storeErr(err)
	}
	if len(products) != len(ids) {
		return nil, fmt.Errorf("%w: unknown product in sale", ErrValidation)
	}
	return products, nil
}

// applyIfDue writes the discount onto the sale's products once the sale has started.
func applyIfDue(ctx context.Context, tx *repo.GormRepo, sale *models.Sale, now time.Time) (bool, error) {
	if !sale.Started(now) || sale.Ended(now) {
		return false, nil
	}
	if err := tx.SetProductsDiscount(ctx, sale.ProductIDs(), sale.DiscountPercentage); err != nil {
		return false, storeErr(err)
	}
	if err := tx.MarkSaleApplied(ctx, sale.ID, now); err != nil {
		return false, storeErr(err)
	}
	sale.AppliedAt = &now
	sale.RevertedAt = nil
	return true, nil
}

func revertIfApplied(ctx context.Context, tx *repo.GormRepo, sale *models.Sale, now time.Time) (bool, error) {
	if sale.AppliedAt == nil || sale.RevertedAt != nil {
		return false, nil
	}
	if err := tx.ClearProductsDiscount(ctx, sale.ProductIDs(), sale.DiscountPercentage); err != nil {
		return false, storeErr(err)
	}
	if err := tx.MarkSaleReverted(ctx, sale.ID, now); err != nil {
		return false, storeErr(err)
	}
	sale.RevertedAt = &now
	return true, nil
}

func (s *SaleService) Create(ctx context.Context, in SaleInput) (*models.Sale, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := nowFunc(s.Now)

	var sale *models.Sale
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		products, err := loadSaleProducts(ctx, tx, in.ProductIDs)
		if err != nil {
			return err
		}
		sale = &models.Sale{
			Name:               in.Name,
			StartDate:          in.StartDate.UTC(),
			EndDate:            utcPtr(in.EndDate),
			DiscountPercentage: in.DiscountPercentage,
			Products:           products,
		}
		if err := tx.CreateSale(ctx, sale); err != nil {
			return storeErr(err)
		}
		_, err = applyIfDue(ctx, tx, sale, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	if sale.AppliedAt != nil {
		s.reindex(ctx, sale.ProductIDs())
	}
	return sale, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

// Update replaces the sale; a running discount is withdrawn and re-applied with the new terms.
func (s *SaleService) Update(ctx context.Context, id uuid.UUID, in SaleInput) (*models.Sale, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := nowFunc(s.Now)

	var (
		sale    *models.Sale
		touched []uuid.UUID
	)
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		current, err := tx.SaleByID(ctx, id)
		if err != nil {
			return storeErr(err)
		}
		reverted, err := revertIfApplied(ctx, tx, current, now)
		if err != nil {
			return err
		}
		if reverted {
			touched = append(touched, current.ProductIDs()...)
		}

		products, err := loadSaleProducts(ctx, tx, in.ProductIDs)
		if err != nil {
			return err
		}
		current.Name = in.Name
		current.StartDate = in.StartDate.UTC()
		current.EndDate = utcPtr(in.EndDate)
		current.DiscountPercentage = in.DiscountPercentage
		current.Products = products
		current.AppliedAt = nil
		current.RevertedAt = nil
		if err := tx.SaveSale(ctx, current); err != nil {
			return storeErr(err)
		}
		applied, err := applyIfDue(ctx, tx, current, now)
		if err != nil {
			return err
		}
		if applied {
			touched = append(touched, current.ProductIDs()...)
		}
		sale = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.reindex(ctx, dedupIDs(touched))
	return sale, nil
}

func (s *SaleService) Get(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	sale, err := s.Repo.SaleByID(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	return sale, nil
}

func (s *SaleService) List(ctx context.Context) ([]models.Sale, error) {
	items, err := s.Repo.ListSales(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	if items == nil {
		items = []models.Sale{}
	}
	return items, nil
}

// Delete reverts a running discount before removing the sale.
func (s *SaleService) Delete(ctx context.Context, id uuid.UUID) error {
	now := nowFunc(s.Now)
	var touched []uuid.UUID
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		sale, err := tx.SaleByID(ctx, id)
		if err != nil {
			return storeErr(err)
		}
		reverted, err := revertIfApplied(ctx, tx, sale, now)
		if err != nil {
			return err
		}
		if reverted {
			touched = sale.ProductIDs()
		}
		return storeErr(tx.DeleteSale(ctx, sale.ID))
	})
	if err != nil {
		return err
	}
	s.reindex(ctx, touched)
	return nil
}

// ApplyDue reverts ended sales, then applies sales that have started.
func (s *SaleService) ApplyDue(ctx context.Context, now time.Time) (ActivationResult, error) {
	now = now.UTC()
	var (
		res     ActivationResult
		touched []uuid.UUID
	)
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		ended, err := tx.SalesToRevert(ctx, now)
		if err != nil {
			return storeErr(err)
		}
		for i := range ended {
			ok, err := revertIfApplied(ctx, tx, &ended[i], now)
			if err != nil {
				return err
			}
			if ok {
				res.Reverted++
				touched = append(touched, ended[i].ProductIDs()...)
			}
		}

		due, err := tx.SalesToApply(ctx, now)
		if err != nil {
			return storeErr(err)
		}
		for i := range due {
			ok, err := applyIfDue(ctx, tx, &due[i], now)
			if err != nil {
				return err
			}
			if ok {
				res.Applied++
				touched = append(touched, due[i].ProductIDs()...)
			}
		}
		return nil
	})
	if err != nil {
		return ActivationResult{}, err
	}
	s.reindex(ctx, dedupIDs(touched))
	return res, nil
}

// RunActivator calls ApplyDue every interval until ctx is cancelled.
func (s *SaleService) RunActivator(ctx context.Context, interval time.Duration) {
	l := logging.FromContext(ctx).With("svc", "sale.activator")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	tick := func() {
		res, err := s.ApplyDue(ctx, nowFunc(s.Now))
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				l.Error("apply_due_error", "error", err)
			}
			return
		}
		if res.Applied > 0 || res.Reverted > 0 {
			l.Info("sales_activated", "applied", res.Applied, "reverted", res.Reverted)
		}
	}

	tick()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick()
		}
	}
}

func (s *SaleService) ProductsForPicker(ctx context.Context, f repo.PickerFilter, page, limit int) (*PickerResult, error) {
	switch f.PriceBand {
	case "", repo.PriceBandLow, repo.PriceBandHigh:
	default:
		return nil, fmt.Errorf("%w: price must be low or high", ErrValidation)
	}
	page, limit = util.Normalize(page, limit)
	offset, limit := util.Calculate(page, limit)
	total, items, err := s.Repo.PickerProducts(ctx, f, offset, limit)
	if err != nil {
		return nil, storeErr(err)
	}
	return &PickerResult{
		Products:    items,
		TotalItems:  total,
		TotalPages:  util.TotalPages(total, limit),
		CurrentPage: page,
	}, nil
}

func (s *SaleService) reindex(ctx context.Context, ids []uuid.UUID) {
	if s.Catalog == nil {
		return
	}
	for _, id := range ids {
		s.Catalog.ReindexProduct(ctx, id)
	}
}
