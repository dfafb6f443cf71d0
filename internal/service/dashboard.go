package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	dashboardCacheKey = "dashboard:summary"
	latestOrdersLimit = 5
)

type DashboardService struct {
	Repo              *repo.GormRepo
	Cache             Cache
	CacheTTL          time.Duration
	LowStockThreshold int
}

type DashboardSummary struct {
	PendingOrders    int64            `json:"pending_orders"`
	TodaySales       decimal.Decimal  `json:"today_sales"`
	Customers        int64            `json:"customers"`
	Products         int64            `json:"products"`
	LowStockProducts []models.Product `json:"low_stock_products"`
	LatestOrders     []models.Order   `json:"latest_orders"`
	GeneratedAt      time.Time        `json:"generated_at"`
}

func (s *DashboardService) Summary(ctx context.Context, now time.Time) (*DashboardSummary, error) {
	l := logging.FromContext(ctx).With("svc", "dashboard.summary")

	if s.Cache != nil {
		raw, ok, err := s.Cache.Get(ctx, dashboardCacheKey)
		if err != nil {
			l.Warn("cache_get_failed", "error", err)
		} else if ok {
			var cached DashboardSummary
			if err := json.Unmarshal(raw, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	now = now.UTC()
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	sum := &DashboardSummary{GeneratedAt: now}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.Repo.CountOrdersByStatus(gctx, models.OrderStatusPending)
		sum.PendingOrders = n
		return err
	})
	g.Go(func() error {
		total, err := s.Repo.OrderTotalsSince(gctx, midnight)
		sum.TodaySales = total
		return err
	})
	g.Go(func() error {
		n, err := s.Repo.CountUsers(gctx, models.RoleUser)
		sum.Customers = n
		return err
	})
	g.Go(func() error {
		n, err := s.Repo.CountProducts(gctx)
		sum.Products = n
		return err
	})
	g.Go(func() error {
		items, err := s.Repo.LowStockProducts(gctx, s.LowStockThreshold)
		sum.LowStockProducts = items
		return err
	})
	g.Go(func() error {
		items, err := s.Repo.LatestOrders(gctx, latestOrdersLimit)
		sum.LatestOrders = items
		return err
	})
	if err := g.Wait(); err != nil {
		l.Error("summary_error", "error", err)
		return nil, storeErr(err)
	}
	if sum.LowStockProducts == nil {
		sum.LowStockProducts = []models.Product{}
	}
	if sum.LatestOrders == nil {
		sum.LatestOrders = []models.Order{}
	}

	if s.Cache != nil && s.CacheTTL > 0 {
		if raw, err := json.Marshal(sum); err == nil {
			if err := s.Cache.Set(ctx, dashboardCacheKey, raw, s.CacheTTL); err != nil {
				l.Warn("cache_set_failed", "error", err)
			}
		}
	}
	return sum, nil
}

// Invalidate drops the cached summary.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Delete(ctx, dashboardCacheKey); err != nil {
		logging.FromContext(ctx).Warn("cache_delete_failed", "error", err)
	}
}
