package httpserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/util"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/labstack/echo/v4"
)

// optDate accepts RFC 3339 or a bare YYYY-MM-DD.
func optDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		if t, err = time.Parse(time.DateOnly, s); err != nil {
			return nil, err
		}
	}
	t = t.UTC()
	return &t, nil
}

func (h *AdminHTTP) ListSales(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.list_sales")

	items, err := h.Sales.List(ctx)
	if err != nil {
		return fail(l, "list_sales_error", err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *AdminHTTP) GetSale(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.get_sale")

	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(l, "get_sale_error", "id not a uuid", err)
	}
	sale, err := h.Sales.Get(ctx, id)
	if err != nil {
		return fail(l, "get_sale_error", err)
	}
	return c.JSON(http.StatusOK, sale)
}

func (h *AdminHTTP) CreateSale(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.create_sale")

	var req service.SaleInput
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "create_sale_error", "invalid body", err)
	}
	sale, err := h.Sales.Create(ctx, req)
	if err != nil {
		return fail(l, "create_sale_error", err)
	}
	l.Info("create_sale_success", "sale_id", sale.ID, "products", len(req.ProductIDs))
	return c.JSON(http.StatusCreated, sale)
}

func (h *AdminHTTP) UpdateSale(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.update_sale")

	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(l, "update_sale_error", "id not a uuid", err)
	}
	var req service.SaleInput
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_sale_error", "invalid body", err)
	}
	sale, err := h.Sales.Update(ctx, id, req)
	if err != nil {
		return fail(l, "update_sale_error", err)
	}
	return c.JSON(http.StatusOK, sale)
}

func (h *AdminHTTP) DeleteSale(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.delete_sale")

	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(l, "delete_sale_error", "id not a uuid", err)
	}
	if err := h.Sales.Delete(ctx, id); err != nil {
		return fail(l, "delete_sale_error", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminHTTP) ApplySales(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.apply_sales")

	res, err := h.Sales.ApplyDue(ctx, h.now())
	if err != nil {
		return fail(l, "apply_sales_error", err)
	}
	l.Info("apply_sales_success", "applied", res.Applied, "reverted", res.Reverted)
	return c.JSON(http.StatusOK, res)
}

func (h *AdminHTTP) SaleProductPicker(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.sale_product_picker")

	category, err := optUUID(c.QueryParam("category"))
	if err != nil {
		return badRequest(l, "sale_product_picker_error", "category not a uuid", err)
	}
	after, err := optDate(c.QueryParam("created_after"))
	if err != nil {
		return badRequest(l, "sale_product_picker_error", "created_after not a date", err)
	}
	f := repo.PickerFilter{
		Search:       strings.TrimSpace(c.QueryParam("search")),
		CategoryID:   category,
		PriceBand:    c.QueryParam("price"),
		CreatedAfter: after,
	}
	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	limit := util.ParseIntDefault(c.QueryParam("limit"), util.DefaultPageSize)

	res, err := h.Sales.ProductsForPicker(ctx, f, page, limit)
	if err != nil {
		return fail(l, "sale_product_picker_error", err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *AdminHTTP) SaleReport(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.sale_report")

	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(l, "sale_report_error", "id not a uuid", err)
	}
	rep, err := h.Reports.SaleReport(ctx, id, h.now())
	if err != nil {
		return fail(l, "sale_report_error", err)
	}
	return c.JSON(http.StatusOK, rep)
}

func (h *AdminHTTP) GenerateReport(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.generate_report")

	var f repo.ReportFilter
	var err error
	if f.Start, err = optDate(c.QueryParam("start")); err != nil {
		return badRequest(l, "generate_report_error", "start not a date", err)
	}
	if f.End, err = optDate(c.QueryParam("end")); err != nil {
		return badRequest(l, "generate_report_error", "end not a date", err)
	}
	if f.CategoryID, err = optUUID(c.QueryParam("category")); err != nil {
		return badRequest(l, "generate_report_error", "category not a uuid", err)
	}
	if f.MinPrice, err = optDecimal(c.QueryParam("min_price")); err != nil {
		return badRequest(l, "generate_report_error", "min_price not a number", err)
	}
	if f.MaxPrice, err = optDecimal(c.QueryParam("max_price")); err != nil {
		return badRequest(l, "generate_report_error", "max_price not a number", err)
	}

	rep, err := h.Reports.Custom(ctx, f)
	if err != nil {
		return fail(l, "generate_report_error", err)
	}
	return c.JSON(http.StatusOK, rep)
}
