package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ReportService struct {
	Repo *repo.GormRepo
}

type ProductUnits struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Units     int       `json:"units"`
}

type SaleReport struct {
	Sale       *models.Sale    `json:"sale"`
	IsStarted  bool            `json:"is_started"`
	TotalUnits int             `json:"total_units"`
	Revenue    decimal.Decimal `json:"revenue"`
	PerProduct []ProductUnits  `json:"per_product"`
}

// SaleReport counts order items for the sale's products placed since the sale started.
func (s *ReportService) SaleReport(ctx context.Context, saleID uuid.UUID, now time.Time) (*SaleReport, error) {
	sale, err := s.Repo.SaleByID(ctx, saleID)
	if err != nil {
		return nil, storeErr(err)
	}

	rep := &SaleReport{
		Sale:       sale,
		IsStarted:  sale.Started(now),
		Revenue:    decimal.Zero,
		PerProduct: make([]ProductUnits, 0, len(sale.Products)),
	}
	units := make(map[uuid.UUID]int, len(sale.Products))
	if rep.IsStarted {
		items, err := s.Repo.OrderItemsForProductsSince(ctx, sale.ProductIDs(), sale.StartDate)
		if err != nil {
			return nil, storeErr(err)
		}
		for _, it := range items {
			units[it.ProductID] += it.Quantity
			rep.TotalUnits += it.Quantity
			rep.Revenue = rep.Revenue.Add(it.LineTotal())
		}
	}
	for _, p := range sale.Products {
		rep.PerProduct = append(rep.PerProduct, ProductUnits{ProductID: p.ID, Name: p.Name, Units: units[p.ID]})
	}
	return rep, nil
}

type CustomReport struct {
	Items      []models.OrderItem `json:"items"`
	TotalUnits int                `json:"total_units"`
	Revenue    decimal.Decimal    `json:"revenue"`
}

// Custom reports order items in a date range; End covers the whole day it falls on.
func (s *ReportService) Custom(ctx context.Context, f repo.ReportFilter) (*CustomReport, error) {
	if f.End != nil {
		y, m, d := f.End.UTC().Date()
		end := time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond)
		f.End = &end
	}
	if f.Start != nil && f.End != nil && f.Start.After(*f.End) {
		return nil, fmt.Errorf("%w: start after end", ErrValidation)
	}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return nil, fmt.Errorf("%w: min_price greater than max_price", ErrValidation)
	}

	items, err := s.Repo.OrderItems(ctx, f)
	if err != nil {
		return nil, storeErr(err)
	}
	rep := &CustomReport{Items: items, Revenue: decimal.Zero}
	if rep.Items == nil {
		rep.Items = []models.OrderItem{}
	}
	for _, it := range items {
		rep.TotalUnits += it.Quantity
		rep.Revenue = rep.Revenue.Add(it.LineTotal())
	}
	return rep, nil
}
