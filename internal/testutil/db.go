// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a private in-memory sqlite database with every model migrated.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

type ProductOpt func(*models.Product)

func WithDiscount(pct int) ProductOpt {
	return func(p *models.Product) { p.DiscountPercentage = pct }
}

func WithStock(n int) ProductOpt {
	return func(p *models.Product) { p.Stock = n }
}

func Unpublished() ProductOpt {
	return func(p *models.Product) { p.IsPublished = false }
}

func InCategory(id uuid.UUID) ProductOpt {
	return func(p *models.Product) { p.CategoryID = &id }
}

func WithTags(tags ...string) ProductOpt {
	return func(p *models.Product) { p.Tags = datatypes.JSONSlice[string](tags) }
}

// SeedProduct inserts a published product with plenty of stock.
func SeedProduct(t testing.TB, db *gorm.DB, name, price string, opts ...ProductOpt) *models.Product {
	t.Helper()

	p := &models.Product{
		Name:        name,
		Slug:        service.Slugify(name) + "-" + uuid.NewString()[:8],
		Price:       decimal.RequireFromString(price),
		Stock:       100,
		IsPublished: true,
		Tags:        datatypes.JSONSlice[string]{},
		Images:      datatypes.JSONSlice[string]{},
	}
	for _, o := range opts {
		o(p)
	}
	require.NoError(t, db.Omit("Category").Create(p).Error)
	if !p.IsPublished {
		require.NoError(t, db.Model(p).Update("is_published", false).Error)
	}
	return p
}

func SeedUser(t testing.TB, db *gorm.DB, role string) *models.User {
	t.Helper()

	u := &models.User{Email: uuid.NewString()[:8] + "@example.com", PasswordHash: "x", Role: role}
	require.NoError(t, db.Create(u).Error)
	return u
}

func SeedCategory(t testing.TB, db *gorm.DB, name string) *models.Category {
	t.Helper()

	c := &models.Category{Name: name, Slug: service.Slugify(name)}
	require.NoError(t, db.Create(c).Error)
	return c
}

// Event is a published event captured by Publisher.
type Event struct {
	Topic string
	Key   string
	Event service.Event
}

// Publisher records events in memory.
type Publisher struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

func (p *Publisher) Publish(_ context.Context, topic, key string, ev service.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.events = append(p.events, Event{Topic: topic, Key: key, Event: ev})
	return nil
}

func (p *Publisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Event.Type)
	}
	return out
}

// Indexer records indexed and deleted product ids.
type Indexer struct {
	mu      sync.Mutex
	Indexed []uuid.UUID
	Deleted []uuid.UUID
}

func (i *Indexer) IndexProduct(_ context.Context, p models.Product) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.Indexed = append(i.Indexed, p.ID)
	return nil
}

func (i *Indexer) DeleteProduct(_ context.Context, id uuid.UUID) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.Deleted = append(i.Deleted, id)
	return nil
}

// Cache is an in-memory service.Cache.
type Cache struct {
	mu   sync.Mutex
	data map[string][]byte
	Sets int
}

func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *Cache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = map[string][]byte{}
	}
	c.data[key] = value
	c.Sets++
	return nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}
