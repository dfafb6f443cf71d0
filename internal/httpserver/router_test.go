package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/testutil"
	authmw "github.com/Skotchmaster/storefront/pkg/middleware/auth"
	"github.com/Skotchmaster/storefront/pkg/middleware/csrf"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "admin-password"
)

type app struct {
	e   *echo.Echo
	db  *gorm.DB
	pub *testutil.Publisher
}

func newApp(t *testing.T, opts ...func(*Deps)) *app {
	t.Helper()
	db := testutil.NewDB(t)
	r := repo.New(db)
	pub := &testutil.Publisher{}

	authSvc := &service.AuthService{
		Repo:          r,
		AccessSecret:  []byte("http-access-secret"),
		RefreshSecret: []byte("http-refresh-secret"),
		Publisher:     pub,
	}
	require.NoError(t, authSvc.SeedAdmin(context.Background(), adminEmail, adminPassword))

	catalog := &service.CatalogService{Repo: r, Publisher: pub, Indexer: &testutil.Indexer{}}
	cart := &service.CartService{Repo: r}
	reviews := &service.ReviewService{Repo: r}
	orders := &service.OrderService{Repo: r, Publisher: pub}
	newsletter := &service.NewsletterService{Repo: r, Publisher: pub}

	d := &Deps{
		Auth:    &AuthHTTP{Svc: authSvc, Cart: cart},
		Catalog: &CatalogHTTP{Svc: catalog, Search: &service.SearchService{Catalog: catalog}, Reviews: reviews},
		Cart:    &CartHTTP{Svc: cart},
		Orders: &OrderHTTP{
			Checkout: &service.CheckoutService{Repo: r, Publisher: pub},
			Orders:   orders,
		},
		Account: &AccountHTTP{
			Profile:  &service.ProfileService{Repo: r},
			Reviews:  reviews,
			Payments: &service.PaymentService{Repo: r},
		},
		Newsletter: &NewsletterHTTP{Svc: newsletter},
		Admin: &AdminHTTP{
			Catalog:    catalog,
			Orders:     orders,
			Carts:      cart,
			Reviews:    reviews,
			Sales:      &service.SaleService{Repo: r, Catalog: catalog},
			Reports:    &service.ReportService{Repo: r},
			Settings:   &service.SettingsService{Repo: r},
			Newsletter: newsletter,
			Dashboard:  &service.DashboardService{Repo: r, Cache: &testutil.Cache{}, CacheTTL: time.Minute, LowStockThreshold: 5},
		},
		JWTSecret: authSvc.AccessSecret,
		Ready:     func(context.Context) error { return nil },
	}
	for _, o := range opts {
		o(d)
	}

	e := echo.New()
	Register(e, d)
	return &app{e: e, db: db, pub: pub}
}

// client replays the cookies the server sets, like a browser would.
type client struct {
	t       *testing.T
	a       *app
	cookies map[string]*http.Cookie
	header  http.Header
}

func (a *app) client(t *testing.T) *client {
	return &client{t: t, a: a, cookies: map[string]*http.Cookie{}, header: http.Header{}}
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range c.header {
		req.Header[k] = v
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c.a.e.ServeHTTP(rec, req)

	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 || ck.Value == "" {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = &http.Cookie{Name: ck.Name, Value: ck.Value}
	}
	return rec
}

func (c *client) login(email, password string) {
	c.t.Helper()
	rec := c.do(http.MethodPost, "/api/v1/auth/login", echo.Map{"email": email, "password": password})
	require.Equal(c.t, http.StatusOK, rec.Code, rec.Body.String())
}

func (c *client) signUp(email string) {
	c.t.Helper()
	rec := c.do(http.MethodPost, "/api/v1/auth/register", echo.Map{"email": email, "password": "password123"})
	require.Equal(c.t, http.StatusCreated, rec.Code, rec.Body.String())
	c.login(email, "password123")
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	a := newApp(t)
	c := a.client(t)
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/health/live", nil).Code)
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/health/ready", nil).Code)

	down := newApp(t, func(d *Deps) {
		d.Ready = func(context.Context) error { return errors.New("db down") }
	})
	assert.Equal(t, http.StatusServiceUnavailable, down.client(t).do(http.MethodGet, "/health/ready", nil).Code)
}

func TestShopperFlow(t *testing.T) {
	a := newApp(t)
	mug := testutil.SeedProduct(t, a.db, "Mug", "12.50")
	c := a.client(t)

	rec := c.do(http.MethodPost, "/api/v1/cart/items", echo.Map{"product_id": mug.ID, "quantity": 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, c.cookies, authmw.SessionCookie)

	count := decode[map[string]int](t, c.do(http.MethodGet, "/api/v1/cart/count", nil))
	assert.Equal(t, 2, count["count"])

	rec = c.do(http.MethodPost, "/api/v1/checkout", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c.signUp("shopper@example.com")
	assert.NotContains(t, c.cookies, authmw.SessionCookie)

	view := decode[service.CartView](t, c.do(http.MethodGet, "/api/v1/cart", nil))
	require.Len(t, view.Items, 1)
	assert.Equal(t, 2, view.TotalQuantity)

	rec = c.do(http.MethodPost, "/api/v1/checkout", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode[models.Order](t, rec)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.True(t, decimal.NewFromInt(25).Equal(order.Total), order.Total.String())

	rec = c.do(http.MethodPost, "/api/v1/checkout", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = c.do(http.MethodGet, "/api/v1/checkout/success/"+order.ID.String(), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	list := decode[struct {
		Data []models.Order `json:"data"`
		Meta struct {
			Total   int64 `json:"total"`
			HasNext bool  `json:"has_next"`
		} `json:"meta"`
	}](t, c.do(http.MethodGet, "/api/v1/orders", nil))
	require.Len(t, list.Data, 1)
	assert.EqualValues(t, 1, list.Meta.Total)
	assert.False(t, list.Meta.HasNext)

	rec = c.do(http.MethodPost, "/api/v1/orders/"+order.ID.String()+"/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.OrderStatusCancelled, decode[models.Order](t, rec).Status)

	rec = c.do(http.MethodPost, "/api/v1/orders/"+order.ID.String()+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	stranger := a.client(t)
	stranger.signUp("stranger@example.com")
	rec = stranger.do(http.MethodGet, "/api/v1/orders/"+order.ID.String(), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCatalogRoutes(t *testing.T) {
	a := newApp(t)
	cat := testutil.SeedCategory(t, a.db, "Kitchen")
	mug := testutil.SeedProduct(t, a.db, "Mug", "10", testutil.InCategory(cat.ID))
	testutil.SeedProduct(t, a.db, "Draft", "10", testutil.Unpublished())
	c := a.client(t)

	rec := c.do(http.MethodGet, "/api/v1/products/"+mug.Slug, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, mug.ID, decode[models.Product](t, rec).ID)

	rec = c.do(http.MethodGet, "/api/v1/products/"+mug.ID.String(), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/api/v1/products/no-such-thing", nil).Code)
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/api/v1/nothing-here", nil).Code)

	page := decode[struct {
		Data []models.Product `json:"data"`
	}](t, c.do(http.MethodGet, "/api/v1/products?category="+cat.Slug, nil))
	require.Len(t, page.Data, 1)
	assert.Equal(t, mug.ID, page.Data[0].ID)

	rec = c.do(http.MethodGet, "/api/v1/products?min_price=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.do(http.MethodPost, fmt.Sprintf("/api/v1/products/%s/reviews", mug.Slug), echo.Map{"rating": 5})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c.signUp("reviewer@example.com")
	rec = c.do(http.MethodPost, fmt.Sprintf("/api/v1/products/%s/reviews", mug.Slug), echo.Map{"rating": 5})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminAccess(t *testing.T) {
	a := newApp(t)

	anon := a.client(t)
	assert.Equal(t, http.StatusUnauthorized, anon.do(http.MethodGet, "/api/v1/admin/dashboard", nil).Code)

	user := a.client(t)
	user.signUp("user@example.com")
	assert.Equal(t, http.StatusForbidden, user.do(http.MethodGet, "/api/v1/admin/dashboard", nil).Code)

	admin := a.client(t)
	admin.login(adminEmail, adminPassword)
	rec := admin.do(http.MethodGet, "/api/v1/admin/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = admin.do(http.MethodPost, "/api/v1/admin/products", echo.Map{
		"name":         "Teapot",
		"price":        "30",
		"stock":        4,
		"is_published": true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	teapot := decode[models.Product](t, rec)
	assert.Equal(t, "teapot", teapot.Slug)
	assert.Equal(t, []string{service.EventProductCreated}, a.pub.Types())

	rec = anon.do(http.MethodGet, "/api/v1/products/teapot", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = admin.do(http.MethodPost, "/api/v1/admin/products", echo.Map{"name": "", "price": "1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	sum := decode[service.DashboardSummary](t, admin.do(http.MethodGet, "/api/v1/admin/dashboard", nil))
	assert.EqualValues(t, 1, sum.Products)
	require.Len(t, sum.LowStockProducts, 1)

	rec = admin.do(http.MethodPatch, "/api/v1/admin/settings", echo.Map{"currency": "usd"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "USD", decode[models.ShopSettings](t, rec).Currency)

	rec = admin.do(http.MethodGet, "/api/v1/admin/reports/generate?start=2026-01-02&end=2026-01-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = admin.do(http.MethodGet, "/api/v1/admin/reports/generate?start=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminOrderPaid(t *testing.T) {
	a := newApp(t)
	mug := testutil.SeedProduct(t, a.db, "Mug", "5")

	shopper := a.client(t)
	shopper.signUp("buyer@example.com")
	shopper.do(http.MethodPost, "/api/v1/cart/items", echo.Map{"product_id": mug.ID})
	rec := shopper.do(http.MethodPost, "/api/v1/checkout", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode[models.Order](t, rec)

	admin := a.client(t)
	admin.login(adminEmail, adminPassword)
	path := "/api/v1/admin/orders/" + order.ID.String()

	rec = admin.do(http.MethodPatch, path+"/paid", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[models.Order](t, rec).Paid)

	rec = admin.do(http.MethodPatch, path+"/paid", echo.Map{"paid": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[models.Order](t, rec).Paid)

	rec = admin.do(http.MethodPatch, path+"/status", echo.Map{"status": "teleported"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = admin.do(http.MethodPatch, path+"/status", echo.Map{"status": "processing"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.OrderStatusProcessing, decode[models.Order](t, rec).Status)

	rec = admin.do(http.MethodPatch, path+"/status", echo.Map{"status": "delivered"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestNewsletterRoutes(t *testing.T) {
	a := newApp(t)
	c := a.client(t)

	rec := c.do(http.MethodPost, "/api/v1/newsletter/subscribe", echo.Map{"email": "fan@example.com"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, string(service.SubscribePending), decode[map[string]string](t, rec)["status"])

	var sub models.Subscriber
	require.NoError(t, a.db.Where("email = ?", "fan@example.com").First(&sub).Error)

	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/v1/newsletter/confirm/"+sub.Token, nil).Code)
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/api/v1/newsletter/confirm/"+sub.Token, nil).Code)

	rec = c.do(http.MethodPost, "/api/v1/newsletter/subscribe", echo.Map{"email": "fan@example.com"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProfileRoutes(t *testing.T) {
	a := newApp(t)
	anon := a.client(t)
	assert.Equal(t, http.StatusUnauthorized, anon.do(http.MethodGet, "/api/v1/profile", nil).Code)

	c := a.client(t)
	c.signUp("pat@example.com")
	assert.Contains(t, a.pub.Types(), service.EventEmailVerificationRequested)

	rec := c.do(http.MethodGet, "/api/v1/profile", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[models.User](t, rec)
	assert.Equal(t, "pat@example.com", me.Email)
	assert.False(t, me.EmailVerified)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = c.do(http.MethodPatch, "/api/v1/profile", echo.Map{
		"first_name": "Pat",
		"default_shipping_address": echo.Map{
			"street": "1 Main St", "city": "Springfield", "postal_code": "12345", "country": "us",
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	me = decode[models.User](t, rec)
	assert.Equal(t, "Pat", me.FirstName)
	assert.Equal(t, "US", me.ShippingAddress.Country)

	rec = c.do(http.MethodPatch, "/api/v1/profile", echo.Map{"phone": "not a phone"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var stored models.User
	require.NoError(t, a.db.Where("email = ?", "pat@example.com").First(&stored).Error)
	require.NotNil(t, stored.VerificationToken)
	token := *stored.VerificationToken

	assert.Equal(t, http.StatusOK, anon.do(http.MethodGet, "/api/v1/auth/verify/"+token, nil).Code)
	assert.Equal(t, http.StatusNotFound, anon.do(http.MethodGet, "/api/v1/auth/verify/"+token, nil).Code)

	rec = anon.do(http.MethodPost, "/api/v1/auth/verify/resend", echo.Map{"email": "pat@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(service.VerificationAlreadyVerified), decode[map[string]string](t, rec)["status"])
	rec = anon.do(http.MethodPost, "/api/v1/auth/verify/resend", echo.Map{"email": "ghost@example.com"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChangePasswordRoute(t *testing.T) {
	a := newApp(t)
	c := a.client(t)
	c.signUp("sam@example.com")
	other := a.client(t)
	other.login("sam@example.com", "password123")

	rec := c.do(http.MethodPut, "/api/v1/profile/password", echo.Map{
		"current_password": "wrong-password", "new_password": "brand-new-pass",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.do(http.MethodPut, "/api/v1/profile/password", echo.Map{
		"current_password": "password123", "new_password": "brand-new-pass",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/v1/auth/refresh", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, other.do(http.MethodPost, "/api/v1/auth/refresh", nil).Code)

	fresh := a.client(t)
	rec = fresh.do(http.MethodPost, "/api/v1/auth/login", echo.Map{"email": "sam@example.com", "password": "password123"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	fresh.login("sam@example.com", "brand-new-pass")
}

func TestCSRFEnabled(t *testing.T) {
	a := newApp(t, func(d *Deps) {
		cfg := csrf.DefaultConfig()
		cfg.EnforceSameOrigin = false
		d.CSRF = &cfg
	})
	c := a.client(t)

	rec := c.do(http.MethodPost, "/api/v1/newsletter/subscribe", echo.Map{"email": "x@example.com"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = c.do(http.MethodGet, "/api/v1/home", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	token := rec.Header().Get("X-CSRF-Token")
	require.NotEmpty(t, token)

	c.header.Set("X-CSRF-Token", token)
	rec = c.do(http.MethodPost, "/api/v1/newsletter/subscribe", echo.Map{"email": "x@example.com"})
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("%w: bad", service.ErrValidation), http.StatusBadRequest},
		{service.ErrEmptyCart, http.StatusUnprocessableEntity},
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{service.ErrNotEligible, http.StatusForbidden},
		{service.ErrNotFound, http.StatusNotFound},
		{service.ErrOutOfStock, http.StatusConflict},
		{service.ErrInvalidTransition, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			code, msg := statusOf(tt.err)
			assert.Equal(t, tt.code, code)
			if code == http.StatusInternalServerError {
				assert.Equal(t, "internal error", msg)
			}
		})
	}
}
