package httpserver

import (
	"net/http"
	"strings"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type CatalogHTTP struct {
	Svc     *service.CatalogService
	Search  *service.SearchService
	Reviews *service.ReviewService
}

func (h *CatalogHTTP) Home(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.home")

	home, err := h.Svc.Home(ctx)
	if err != nil {
		return fail(l, "home_error", err)
	}
	return c.JSON(http.StatusOK, home)
}

func (h *CatalogHTTP) GetProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.get_products")

	f := repo.ProductFilter{
		Q:     c.QueryParam("q"),
		Brand: c.QueryParam("brand"),
		Tag:   c.QueryParam("tag"),
		Sort:  c.QueryParam("sort"),
	}
	var err error
	if f.MinPrice, err = optDecimal(c.QueryParam("min_price")); err != nil {
		return badRequest(l, "get_products_error", "min_price is not a number", err)
	}
	if f.MaxPrice, err = optDecimal(c.QueryParam("max_price")); err != nil {
		return badRequest(l, "get_products_error", "max_price is not a number", err)
	}
	if ref := c.QueryParam("category"); ref != "" {
		id, err := h.categoryRef(c, ref)
		if err != nil {
			return fail(l, "get_products_error", err)
		}
		f.CategoryID = &id
	}

	page, size := pageParams(c)
	res, err := h.Svc.ListProducts(ctx, f, page, size)
	if err != nil {
		return fail(l, "get_products_error", err)
	}
	return paged(c, res)
}

// categoryRef accepts a category id or slug.
func (h *CatalogHTTP) categoryRef(c echo.Context, ref string) (uuid.UUID, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return id, nil
	}
	cat, err := h.Svc.FindCategoryBySlug(c.Request().Context(), ref)
	if err != nil {
		return uuid.Nil, err
	}
	return cat.ID, nil
}

// productRef resolves the :slug path segment, which may also carry a product id.
func (h *CatalogHTTP) productRef(c echo.Context) (*models.Product, error) {
	ctx := c.Request().Context()
	ref := strings.TrimSpace(c.Param("slug"))
	if id, err := uuid.Parse(ref); err == nil {
		p, err := h.Svc.GetProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		if !p.IsPublished {
			return nil, service.ErrNotFound
		}
		return p, nil
	}
	return h.Svc.FindProductBySlug(ctx, ref)
}

func (h *CatalogHTTP) GetProduct(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "catalog.get_product")

	p, err := h.productRef(c)
	if err != nil {
		return fail(l, "get_product_failed", err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *CatalogHTTP) GetProductReviews(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.get_product_reviews")

	p, err := h.productRef(c)
	if err != nil {
		return fail(l, "get_reviews_failed", err)
	}
	res, err := h.Reviews.ListForProduct(ctx, p.ID)
	if err != nil {
		return fail(l, "get_reviews_failed", err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *CatalogHTTP) SubmitReview(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.submit_review")

	var req struct {
		Rating int    `json:"rating"`
		Body   string `json:"body"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "submit_review_error", "invalid body", err)
	}
	p, err := h.productRef(c)
	if err != nil {
		return fail(l, "submit_review_error", err)
	}

	rv, created, err := h.Reviews.Submit(ctx, principal(c), p.ID, req.Rating, req.Body)
	if err != nil {
		return fail(l, "submit_review_error", err)
	}
	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	l.Info("submit_review_success", "review_id", rv.ID, "created", created)
	return c.JSON(code, rv)
}

func (h *CatalogHTTP) GetCategories(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.get_categories")

	items, err := h.Svc.ListCategories(ctx)
	if err != nil {
		return fail(l, "get_categories_error", err)
	}
	if items == nil {
		items = []models.Category{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *CatalogHTTP) GetCategoryProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.get_category_products")

	page, size := pageParams(c)
	cat, res, err := h.Svc.FindProductsByCategory(ctx, c.Param("slug"), page, size)
	if err != nil {
		return fail(l, "get_category_products_error", err)
	}
	pages := res.TotalPages()
	return c.JSON(http.StatusOK, map[string]any{
		"category": cat,
		"data":     res.Items,
		"meta": map[string]any{
			"page":        res.Page,
			"size":        res.Size,
			"total":       res.Total,
			"total_pages": pages,
			"has_prev":    res.Page > 1,
			"has_next":    res.Page < pages,
		},
	})
}

func (h *CatalogHTTP) GetSaleProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.get_sale_products")

	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(l, "get_sale_products_error", "id not a uuid", err)
	}
	sale, items, err := h.Svc.FindProductsBySale(ctx, id)
	if err != nil {
		return fail(l, "get_sale_products_error", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"sale": sale, "data": items})
}

func (h *CatalogHTTP) SearchProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.search")

	page, size := pageParams(c)
	res, err := h.Search.Search(ctx, c.QueryParam("q"), page, size)
	if err != nil {
		return fail(l, "search_error", err)
	}
	return paged(c, res)
}
