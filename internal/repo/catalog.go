package repo

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortRating    = "rating"
	SortName      = "name"
)

type ProductFilter struct {
	Q            string
	CategoryID   *uuid.UUID
	Brand        string
	Tag          string
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	Published    *bool
	CreatedAfter *time.Time
	Sort         string
}

func (f ProductFilter) apply(q *gorm.DB) *gorm.DB {
	q = q.Joins("LEFT JOIN categories ON categories.id = products.category_id")
	if s := strings.ToLower(strings.TrimSpace(f.Q)); s != "" {
		p := likePattern(s)
		q = q.Where(
			"LOWER(products.name) LIKE ?"+likeEscape+" OR LOWER(products.description) LIKE ?"+likeEscape+
				" OR LOWER(CAST(products.tags AS TEXT)) LIKE ?"+likeEscape+" OR LOWER(categories.name) LIKE ?"+likeEscape,
			p, p, p, p,
		)
	}
	if f.CategoryID != nil {
		q = q.Where("products.category_id = ?", *f.CategoryID)
	}
	if f.Brand != "" {
		q = q.Where("products.brand = ?", f.Brand)
	}
	if f.Tag != "" {
		q = q.Where("LOWER(CAST(products.tags AS TEXT)) LIKE ?"+likeEscape, likePattern(`"`+strings.ToLower(f.Tag)+`"`))
	}
	if f.MinPrice != nil {
		q = q.Where("products.price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("products.price <= ?", *f.MaxPrice)
	}
	if f.Published != nil {
		q = q.Where("products.is_published = ?", *f.Published)
	}
	if f.CreatedAfter != nil {
		q = q.Where("products.created_at >= ?", *f.CreatedAfter)
	}
	return q
}

func (f ProductFilter) order() string {
	switch f.Sort {
	case SortPriceAsc:
		return "products.price ASC, products.id ASC"
	case SortPriceDesc:
		return "products.price DESC, products.id ASC"
	case SortRating:
		return "products.rating DESC, products.id ASC"
	case SortName:
		return "products.name ASC, products.id ASC"
	default:
		return "products.created_at DESC, products.id ASC"
	}
}

func (r *GormRepo) ListProducts(ctx context.Context, f ProductFilter, offset, limit int) (int64, []models.Product, error) {
	var total int64
	if err := f.apply(r.db(ctx).Model(&models.Product{})).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := make([]models.Product, 0, limit)
	if err := f.apply(r.db(ctx).Model(&models.Product{})).
		Select("products.*").
		Preload("Category").
		Order(f.order()).
		Offset(offset).
		Limit(limit).
		Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) ProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	if err := r.db(ctx).Preload("Category").Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// LockProduct reads a product row FOR UPDATE; only meaningful inside Transaction.
func (r *GormRepo) LockProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	if err := r.db(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormRepo) ProductBySlug(ctx context.Context, slug string, publishedOnly bool) (*models.Product, error) {
	var p models.Product
	q := r.db(ctx).Preload("Category").Where("slug = ?", slug)
	if publishedOnly {
		q = q.Where("is_published = ?", true)
	}
	if err := q.First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormRepo) ProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	var items []models.Product
	if len(ids) == 0 {
		return items, nil
	}
	if err := r.db(ctx).Where("id IN ?", ids).Order("name ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) SlugTaken(ctx context.Context, slug string, except uuid.UUID) (bool, error) {
	var n int64
	q := r.db(ctx).Model(&models.Product{}).Where("slug = ?", slug)
	if except != uuid.Nil {
		q = q.Where("id <> ?", except)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *GormRepo) CreateProduct(ctx context.Context, p *models.Product) error {
	return r.db(ctx).Omit("Category").Create(p).Error
}

func (r *GormRepo) SaveProduct(ctx context.Context, p *models.Product) error {
	return r.db(ctx).Omit("Category").Save(p).Error
}

// DeleteProduct also drops the cart lines and reviews that point at the product.
func (r *GormRepo) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return r.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM sale_products WHERE product_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&models.Review{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Product{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// DecrementStock is a conditional update; false means not enough stock.
func (r *GormRepo) DecrementStock(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	res := r.db(ctx).Model(&models.Product{}).
		Where("id = ? AND stock >= ?", id, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *GormRepo) IncrementStock(ctx context.Context, id uuid.UUID, qty int) error {
	return r.db(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		Update("stock", gorm.Expr("stock + ?", qty)).Error
}

func (r *GormRepo) SetProductRating(ctx context.Context, id uuid.UUID, rating float64) error {
	return r.db(ctx).Model(&models.Product{}).Where("id = ?", id).Update("rating", rating).Error
}

func (r *GormRepo) SetProductsDiscount(ctx context.Context, ids []uuid.UUID, pct int) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db(ctx).Model(&models.Product{}).Where("id IN ?", ids).Update("discount_percentage", pct).Error
}

// ClearProductsDiscount resets only products still carrying pct, so a newer sale is left alone.
func (r *GormRepo) ClearProductsDiscount(ctx context.Context, ids []uuid.UUID, pct int) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db(ctx).Model(&models.Product{}).
		Where("id IN ? AND discount_percentage = ?", ids, pct).
		Update("discount_percentage", 0).Error
}

func (r *GormRepo) Bestsellers(ctx context.Context, limit int) ([]models.Product, error) {
	var items []models.Product
	err := r.db(ctx).Where("is_bestseller = ? AND is_published = ?", true, true).
		Order("id ASC").Limit(limit).Find(&items).Error
	return items, err
}

func (r *GormRepo) NewestProducts(ctx context.Context, limit int) ([]models.Product, error) {
	var items []models.Product
	err := r.db(ctx).Where("is_published = ?", true).
		Order("created_at DESC").Limit(limit).Find(&items).Error
	return items, err
}

func (r *GormRepo) Brands(ctx context.Context) ([]string, error) {
	var brands []string
	err := r.db(ctx).Model(&models.Product{}).
		Where("is_published = ? AND brand <> ''", true).
		Distinct("brand").Order("brand ASC").Pluck("brand", &brands).Error
	return brands, err
}

func (r *GormRepo) Tags(ctx context.Context) ([]string, error) {
	var rows []models.Product
	if err := r.db(ctx).Select("tags").Where("is_published = ?", true).Find(&rows).Error; err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	for _, p := range rows {
		for _, t := range p.Tags {
			if t = strings.TrimSpace(t); t != "" {
				seen[t] = struct{}{}
			}
		}
	}
	tags := make([]string, 0, len(seen))
	for t := range seen {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags, nil
}

func (r *GormRepo) CountProducts(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db(ctx).Model(&models.Product{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *GormRepo) LowStockProducts(ctx context.Context, threshold int) ([]models.Product, error) {
	var items []models.Product
	err := r.db(ctx).Where("stock <= ?", threshold).Order("stock ASC, name ASC").Find(&items).Error
	return items, err
}

func (r *GormRepo) ListCategories(ctx context.Context) ([]models.Category, error) {
	var items []models.Category
	err := r.db(ctx).Order("name ASC").Find(&items).Error
	return items, err
}

func (r *GormRepo) CategoryByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var c models.Category
	if err := r.db(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormRepo) CategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var c models.Category
	if err := r.db(ctx).Where("slug = ?", slug).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormRepo) CategoryNameTaken(ctx context.Context, name, slug string, except uuid.UUID) (bool, error) {
	var n int64
	q := r.db(ctx).Model(&models.Category{}).Where("name = ? OR slug = ?", name, slug)
	if except != uuid.Nil {
		q = q.Where("id <> ?", except)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *GormRepo) CreateCategory(ctx context.Context, c *models.Category) error {
	return r.db(ctx).Create(c).Error
}

func (r *GormRepo) SaveCategory(ctx context.Context, c *models.Category) error {
	return r.db(ctx).Save(c).Error
}

func (r *GormRepo) CountProductsInCategory(ctx context.Context, id uuid.UUID) (int64, error) {
	var n int64
	if err := r.db(ctx).Model(&models.Product{}).Where("category_id = ?", id).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *GormRepo) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	res := r.db(ctx).Delete(&models.Category{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
