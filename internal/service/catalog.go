package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/util"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	homeBestsellers = 4
	homeNewest      = 8

	ProductStatusAll       = "all"
	ProductStatusPublished = "published"
	ProductStatusDraft     = "draft"
)

type CatalogService struct {
	Repo      *repo.GormRepo
	Publisher Publisher
	Indexer   ProductIndexer
}

// ProductInput carries a create or a partial update; nil fields are left unchanged.
type ProductInput struct {
	Name               *string          `json:"name"`
	Slug               *string          `json:"slug"`
	Description        *string          `json:"description"`
	Brand              *string          `json:"brand"`
	Tags               *[]string        `json:"tags"`
	Images             *[]string        `json:"images"`
	Price              *decimal.Decimal `json:"price"`
	DiscountPercentage *int             `json:"discount_percentage"`
	Stock              *int             `json:"stock"`
	CategoryID         *uuid.UUID       `json:"category_id"`
	IsPublished        *bool            `json:"is_published"`
	IsBestseller       *bool            `json:"is_bestseller"`
}

type HomeView struct {
	Bestsellers []models.Product `json:"bestsellers"`
	Newest      []models.Product `json:"newest"`
	Brands      []string         `json:"brands"`
	Tags        []string         `json:"tags"`
}

// Slugify lower-cases s and collapses every run of non-alphanumerics into a single '-'.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func (s *CatalogService) ListProducts(ctx context.Context, f repo.ProductFilter, page, size int) (Page[models.Product], error) {
	published := true
	f.Published = &published
	return s.listProducts(ctx, f, page, size)
}

func (s *CatalogService) AdminListProducts(ctx context.Context, status string, page, size int) (Page[models.Product], error) {
	f := repo.ProductFilter{}
	switch status {
	case "", ProductStatusAll:
	case ProductStatusPublished:
		v := true
		f.Published = &v
	case ProductStatusDraft:
		v := false
		f.Published = &v
	default:
		return Page[models.Product]{}, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	return s.listProducts(ctx, f, page, size)
}

func (s *CatalogService) listProducts(ctx context.Context, f repo.ProductFilter, page, size int) (Page[models.Product], error) {
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return Page[models.Product]{}, fmt.Errorf("%w: min_price greater than max_price", ErrValidation)
	}
	page, size = util.Normalize(page, size)
	offset, limit := util.Calculate(page, size)

	total, items, err := s.Repo.ListProducts(ctx, f, offset, limit)
	if err != nil {
		return Page[models.Product]{}, storeErr(err)
	}
	return newPage(items, total, page, size), nil
}

func (s *CatalogService) FindProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	p, err := s.Repo.ProductBySlug(ctx, slug, true)
	if err != nil {
		return nil, storeErr(err)
	}
	return p, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := s.Repo.ProductByID(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	return p, nil
}

// ProductsByIDs keeps the order of ids and skips unpublished or missing products.
func (s *CatalogService) ProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	found, err := s.Repo.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, storeErr(err)
	}
	byID := make(map[uuid.UUID]models.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	out := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok && p.IsPublished {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *CatalogService) FindProductsByCategory(ctx context.Context, slug string, page, size int) (*models.Category, Page[models.Product], error) {
	cat, err := s.Repo.CategoryBySlug(ctx, slug)
	if err != nil {
		return nil, Page[models.Product]{}, storeErr(err)
	}
	res, err := s.ListProducts(ctx, repo.ProductFilter{CategoryID: &cat.ID}, page, size)
	if err != nil {
		return nil, Page[models.Product]{}, err
	}
	return cat, res, nil
}

func (s *CatalogService) FindProductsBySale(ctx context.Context, saleID uuid.UUID) (*models.Sale, []models.Product, error) {
	sale, err := s.Repo.SaleByID(ctx, saleID)
	if err != nil {
		return nil, nil, storeErr(err)
	}
	items := make([]models.Product, 0, len(sale.Products))
	for _, p := range sale.Products {
		if p.IsPublished {
			items = append(items, p)
		}
	}
	return sale, items, nil
}

func (s *CatalogService) Home(ctx context.Context) (*HomeView, error) {
	best, err := s.Repo.Bestsellers(ctx, homeBestsellers)
	if err != nil {
		return nil, storeErr(err)
	}
	newest, err := s.Repo.NewestProducts(ctx, homeNewest)
	if err != nil {
		return nil, storeErr(err)
	}
	brands, err := s.Repo.Brands(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	tags, err := s.Repo.Tags(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	return &HomeView{Bestsellers: best, Newest: newest, Brands: brands, Tags: tags}, nil
}

func validateProduct(p *models.Product) error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("%w: name required", ErrValidation)
	case p.Slug == "":
		return fmt.Errorf("%w: slug required", ErrValidation)
	case p.Price.IsNegative():
		return fmt.Errorf("%w: price must be >= 0", ErrValidation)
	case p.Stock < 0:
		return fmt.Errorf("%w: stock must be >= 0", ErrValidation)
	case p.DiscountPercentage < 0 || p.DiscountPercentage > 100:
		return fmt.Errorf("%w: discount_percentage must be between 0 and 100", ErrValidation)
	}
	return nil
}

func (in ProductInput) applyTo(p *models.Product) {
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Slug != nil {
		p.Slug = Slugify(*in.Slug)
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Brand != nil {
		p.Brand = strings.TrimSpace(*in.Brand)
	}
	if in.Tags != nil {
		p.Tags = datatypes.JSONSlice[string](cleanList(*in.Tags))
	}
	if in.Images != nil {
		p.Images = datatypes.JSONSlice[string](cleanList(*in.Images))
	}
	if in.Price != nil {
		p.Price = in.Price.Round(2)
	}
	if in.DiscountPercentage != nil {
		p.DiscountPercentage = *in.DiscountPercentage
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if in.CategoryID != nil {
		if *in.CategoryID == uuid.Nil {
			p.CategoryID = nil
		} else {
			id := *in.CategoryID
			p.CategoryID = &id
		}
		p.Category = nil
	}
	if in.IsPublished != nil {
		p.IsPublished = *in.IsPublished
	}
	if in.IsBestseller != nil {
		p.IsBestseller = *in.IsBestseller
	}
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (s *CatalogService) checkProductRefs(ctx context.Context, p *models.Product) error {
	taken, err := s.Repo.SlugTaken(ctx, p.Slug, p.ID)
	if err != nil {
		return storeErr(err)
	}
	if taken {
		return fmt.Errorf("%w: slug %q already used", ErrConflict, p.Slug)
	}
	if p.CategoryID != nil {
		if _, err := s.Repo.CategoryByID(ctx, *p.CategoryID); err != nil {
			if errors.Is(storeErr(err), ErrNotFound) {
				return fmt.Errorf("%w: unknown category", ErrValidation)
			}
			return storeErr(err)
		}
	}
	return nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.create_product")

	if in.Price == nil {
		return nil, fmt.Errorf("%w: price required", ErrValidation)
	}
	p := &models.Product{
		Tags:   datatypes.JSONSlice[string]{},
		Images: datatypes.JSONSlice[string]{},
	}
	in.applyTo(p)
	if p.Slug == "" {
		p.Slug = Slugify(p.Name)
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	if err := s.checkProductRefs(ctx, p); err != nil {
		return nil, err
	}
	if err := s.Repo.CreateProduct(ctx, p); err != nil {
		l.Error("create_product_error", "error", err)
		return nil, storeErr(err)
	}

	s.afterProductChange(ctx, EventProductCreated, p)
	return p, nil
}

func (s *CatalogService) PatchProduct(ctx context.Context, id uuid.UUID, in ProductInput) (*models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.patch_product", "product_id", id)

	p, err := s.Repo.ProductByID(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	in.applyTo(p)
	if in.Slug != nil && p.Slug == "" {
		p.Slug = Slugify(p.Name)
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	if err := s.checkProductRefs(ctx, p); err != nil {
		return nil, err
	}
	if err := s.Repo.SaveProduct(ctx, p); err != nil {
		l.Error("patch_product_error", "error", err)
		return nil, storeErr(err)
	}

	s.afterProductChange(ctx, EventProductUpdated, p)
	return p, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	l := logging.FromContext(ctx).With("svc", "catalog.delete_product", "product_id", id)

	if err := s.Repo.DeleteProduct(ctx, id); err != nil {
		if !errors.Is(storeErr(err), ErrNotFound) {
			l.Error("delete_product_error", "error", err)
		}
		return storeErr(err)
	}

	if s.Indexer != nil {
		if err := s.Indexer.DeleteProduct(ctx, id); err != nil {
			l.Warn("index_delete_failed", "error", err)
		}
	}
	publish(ctx, s.Publisher, TopicProductEvents, id.String(), EventProductDeleted, map[string]any{"product_id": id})
	return nil
}

// ReindexProduct pushes the stored product to the search index again.
func (s *CatalogService) ReindexProduct(ctx context.Context, id uuid.UUID) {
	p, err := s.Repo.ProductByID(ctx, id)
	if err != nil {
		logging.FromContext(ctx).Warn("reindex_load_failed", "product_id", id, "error", err)
		return
	}
	s.index(ctx, p)
}

func (s *CatalogService) afterProductChange(ctx context.Context, event string, p *models.Product) {
	s.index(ctx, p)
	publish(ctx, s.Publisher, TopicProductEvents, p.ID.String(), event, productEvent{
		ProductID:          p.ID,
		Name:               p.Name,
		Price:              p.Price,
		DiscountPercentage: p.DiscountPercentage,
		Stock:              p.Stock,
		IsPublished:        p.IsPublished,
		At:                 p.UpdatedAt,
	})
}

func (s *CatalogService) index(ctx context.Context, p *models.Product) {
	if s.Indexer == nil {
		return
	}
	if err := s.Indexer.IndexProduct(ctx, *p); err != nil {
		logging.FromContext(ctx).Warn("index_failed", "product_id", p.ID, "error", err)
	}
}

type productEvent struct {
	ProductID          uuid.UUID       `json:"product_id"`
	Name               string          `json:"name"`
	Price              decimal.Decimal `json:"price"`
	DiscountPercentage int             `json:"discount_percentage"`
	Stock              int             `json:"stock"`
	IsPublished        bool            `json:"is_published"`
	At                 time.Time       `json:"at"`
}

type CategoryInput struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	items, err := s.Repo.ListCategories(ctx)
	return items, storeErr(err)
}

func (s *CatalogService) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	c, err := s.Repo.CategoryByID(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	return c, nil
}

func (s *CatalogService) FindCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	c, err := s.Repo.CategoryBySlug(ctx, slug)
	if err != nil {
		return nil, storeErr(err)
	}
	return c, nil
}

func (s *CatalogService) categoryFromInput(ctx context.Context, c *models.Category, in CategoryInput) error {
	c.Name = strings.TrimSpace(in.Name)
	c.Description = in.Description
	c.Slug = Slugify(in.Slug)
	if c.Slug == "" {
		c.Slug = Slugify(c.Name)
	}
	if c.Name == "" || c.Slug == "" {
		return fmt.Errorf("%w: category name required", ErrValidation)
	}
	taken, err := s.Repo.CategoryNameTaken(ctx, c.Name, c.Slug, c.ID)
	if err != nil {
		return storeErr(err)
	}
	if taken {
		return fmt.Errorf("%w: category already exists", ErrConflict)
	}
	return nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	c := &models.Category{}
	if err := s.categoryFromInput(ctx, c, in); err != nil {
		return nil, err
	}
	if err := s.Repo.CreateCategory(ctx, c); err != nil {
		return nil, storeErr(err)
	}
	return c, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id uuid.UUID, in CategoryInput) (*models.Category, error) {
	c, err := s.Repo.CategoryByID(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	if err := s.categoryFromInput(ctx, c, in); err != nil {
		return nil, err
	}
	if err := s.Repo.SaveCategory(ctx, c); err != nil {
		return nil, storeErr(err)
	}
	return c, nil
}

func (s *CatalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	n, err := s.Repo.CountProductsInCategory(ctx, id)
	if err != nil {
		return storeErr(err)
	}
	if n > 0 {
		return fmt.Errorf("%w: category has %d products", ErrConflict, n)
	}
	return storeErr(s.Repo.DeleteCategory(ctx, id))
}
