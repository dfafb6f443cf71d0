package httpserver

import (
	"net/http"
	"time"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/labstack/echo/v4"
)

// AdminHTTP is the back-office surface. Every route is mounted behind RequireAdmin.
type AdminHTTP struct {
	Catalog    *service.CatalogService
	Orders     *service.OrderService
	Carts      *service.CartService
	Reviews    *service.ReviewService
	Sales      *service.SaleService
	Reports    *service.ReportService
	Settings   *service.SettingsService
	Newsletter *service.NewsletterService
	Dashboard  *service.DashboardService
	Now        func() time.Time
}

func (h *AdminHTTP) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}

// touched drops cached aggregates after a back-office write.
func (h *AdminHTTP) touched(c echo.Context) {
	if h.Dashboard != nil {
		h.Dashboard.Invalidate(c.Request().Context())
	}
}

func (h *AdminHTTP) GetDashboard(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.get_dashboard")

	sum, err := h.Dashboard.Summary(ctx, h.now())
	if err != nil {
		return fail(l, "get_dashboard_error", err)
	}
	return c.JSON(http.StatusOK, sum)
}

func (h *AdminHTTP) ListProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.list_products")

	page, size := pageParams(c)
	res, err := h.Catalog.AdminListProducts(ctx, c.QueryParam("status"), page, size)
	if err != nil {
		return fail(l, "list_products_error", err)
	}
	return paged(c, res)
}

func (h *AdminHTTP) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.get_product")

	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(l, "get_product_error", "id not a uuid", err)
	}
	p, err := h.Catalog.GetProduct(ctx, id)
	if err != nil {
		return fail(l, "get_product_error", err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *AdminHTTP) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.create_product")

	var req service.ProductInput
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "create_product_error", "invalid body", err)
	}
	p, err := h.Catalog.CreateProduct(ctx, req)
	if err != nil {
		return fail(l, "create_product_error", err)
	}
	h.touched(c)
	l.Info("create_product_success", "product_id", p.ID, "slug", p.Slug)
	return c.JSON(http.StatusCreated, p)
}

func (h *AdminHTTP) PatchProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.patch_product")

	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(l, "patch_product_error", "id not a uuid", err)
	}
	var req service.ProductInput
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "patch_product_error", "invalid body", err)
	}
	p, err := h.Catalog.PatchProduct(ctx, id, req)
	if err != nil {
		return fail(l, "patch_product_error", err)
	}
	h.touched(c)
	return c.JSON(http.StatusOK, p)
}

func (h *AdminHTTP) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.delete_product")

	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(l, "delete_product_error", "id not a uuid", err)
	}
	if err := h.Catalog.DeleteProduct(ctx, id); err != nil {
		return fail(l, "delete_product_error", err)
	}
	h.touched(c)
	l.Info("delete_product_success", "product_id", id)
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminHTTP) ReindexProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.reindex_product")

	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(l, "reindex_product_error", "id not a uuid", err)
	}
	if _, err := h.Catalog.GetProduct(ctx, id); err != nil {
		return fail(l, "reindex_product_error", err)
	}
	h.Catalog.ReindexProduct(ctx, id)
	return c.NoContent(http.StatusAccepted)
}

func (h *AdminHTTP) ListCategories(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.list_categories")

	items, err := h.Catalog.ListCategories(ctx)
	if err != nil {
		return fail(l, "list_categories_error", err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *AdminHTTP) GetCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.get_category")

	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(l, "get_category_error", "id not a uuid", err)
	}
	cat, err := h.Catalog.GetCategory(ctx, id)
	if err != nil {
		return fail(l, "get_category_error", err)
	}
	return c.JSON(http.StatusOK, cat)
}

func (h *AdminHTTP) CreateCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.create_category")

	var req service.CategoryInput
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "create_category_error", "invalid body", err)
	}
	cat, err := h.Catalog.CreateCategory(ctx, req)
	if err != nil {
		return fail(l, "create_category_error", err)
	}
	return c.JSON(http.StatusCreated, cat)
}

func (h *AdminHTTP) UpdateCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.update_category")

	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(l, "update_category_error", "id not a uuid", err)
	}
	var req service.CategoryInput
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_category_error", "invalid body", err)
	}
	cat, err := h.Catalog.UpdateCategory(ctx, id, req)
	if err != nil {
		return fail(l, "update_category_error", err)
	}
	return c.JSON(http.StatusOK, cat)
}

func (h *AdminHTTP) DeleteCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.delete_category")

	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(l, "delete_category_error", "id not a uuid", err)
	}
	if err := h.Catalog.DeleteCategory(ctx, id); err != nil {
		return fail(l, "delete_category_error", err)
	}
	return c.NoContent(http.StatusNoContent)
}
