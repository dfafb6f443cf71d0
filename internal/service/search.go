package service

import (
	"context"
	"strings"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/util"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type SearchService struct {
	Catalog *CatalogService
	// Searcher is optional; without it queries use the catalog's LIKE filter.
	Searcher ProductSearcher
}

func (s *SearchService) Search(ctx context.Context, q string, page, size int) (Page[models.Product], error) {
	q = strings.TrimSpace(q)
	page, size = util.Normalize(page, size)
	if q == "" {
		return newPage[models.Product](nil, 0, page, size), nil
	}

	if s.Searcher != nil {
		offset, limit := util.Calculate(page, size)
		total, ids, err := s.Searcher.SearchProducts(ctx, q, offset, limit)
		if err == nil {
			items, err := s.Catalog.ProductsByIDs(ctx, ids)
			if err != nil {
				return Page[models.Product]{}, err
			}
			return newPage(items, total, page, size), nil
		}
		logging.FromContext(ctx).With("svc", "search").Warn("search_backend_failed", "error", err)
	}
	return s.Catalog.ListProducts(ctx, repo.ProductFilter{Q: q}, page, size)
}
