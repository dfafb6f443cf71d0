package httpserver

import (
	"net/http"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func (h *AdminHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.list_orders")

	page, size := pageParams(c)
	res, err := h.Orders.AdminList(ctx, c.QueryParam("status"), page, size)
	if err != nil {
		return fail(l, "list_orders_error", err)
	}
	return paged(c, res)
}

func (h *AdminHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.get_order")

	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(l, "get_order_error", "id not a uuid", err)
	}
	o, err := h.Orders.AdminGet(ctx, id)
	if err != nil {
		return fail(l, "get_order_error", err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *AdminHTTP) UpdateOrderStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.update_order_status")

	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(l, "update_order_status_error", "id not a uuid", err)
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_order_status_error", "invalid body", err)
	}
	o, err := h.Orders.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		return fail(l, "update_order_status_error", err)
	}
	h.touched(c)
	l.Info("update_order_status_success", "order_id", o.ID, "status", o.Status)
	return c.JSON(http.StatusOK, o)
}

// UpdateOrderPaid sets is_paid from the body; an empty body toggles it.
func (h *AdminHTTP) UpdateOrderPaid(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.update_order_paid")

	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(l, "update_order_paid_error", "id not a uuid", err)
	}
	var req struct {
		Paid *bool `json:"paid"`
	}
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest(l, "update_order_paid_error", "invalid body", err)
		}
	}

	var o *models.Order
	if req.Paid != nil {
		o, err = h.Orders.SetPaid(ctx, id, *req.Paid)
	} else {
		o, err = h.Orders.TogglePaid(ctx, id)
	}
	if err != nil {
		return fail(l, "update_order_paid_error", err)
	}
	h.touched(c)
	return c.JSON(http.StatusOK, o)
}

func (h *AdminHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.get_cart")

	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(l, "get_cart_error", "id not a uuid", err)
	}
	view, err := h.Carts.AdminGetCart(ctx, id)
	if err != nil {
		return fail(l, "get_cart_error", err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *AdminHTTP) DeleteCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.delete_cart")

	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(l, "delete_cart_error", "id not a uuid", err)
	}
	if err := h.Carts.AdminDeleteCart(ctx, id); err != nil {
		return fail(l, "delete_cart_error", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminHTTP) UpdateCartItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.update_cart_item")

	id, err := uuidParam(c, "item_id")
	if err != nil {
		return badRequest(l, "update_cart_item_error", "item_id not a uuid", err)
	}
	var req struct {
		Quantity *int `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil || req.Quantity == nil {
		return badRequest(l, "update_cart_item_error", "quantity required", err)
	}
	item, err := h.Carts.AdminUpdateItem(ctx, id, *req.Quantity)
	if err != nil {
		return fail(l, "update_cart_item_error", err)
	}
	if item == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *AdminHTTP) DeleteCartItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.delete_cart_item")

	id, err := uuidParam(c, "item_id")
	if err != nil {
		return badRequest(l, "delete_cart_item_error", "item_id not a uuid", err)
	}
	if err := h.Carts.AdminDeleteItem(ctx, id); err != nil {
		return fail(l, "delete_cart_item_error", err)
	}
	return c.NoContent(http.StatusNoContent)
}

type reviewRequest struct {
	UserID    uuid.UUID `json:"user_id"`
	ProductID uuid.UUID `json:"product_id"`
	Rating    int       `json:"rating"`
	Body      string    `json:"body"`
}

func (h *AdminHTTP) ListReviews(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.list_reviews")

	page, size := pageParams(c)
	res, err := h.Reviews.AdminList(ctx, page, size)
	if err != nil {
		return fail(l, "list_reviews_error", err)
	}
	return paged(c, res)
}

func (h *AdminHTTP) CreateReview(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.create_review")

	var req reviewRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "create_review_error", "invalid body", err)
	}
	rv, err := h.Reviews.AdminCreate(ctx, req.UserID, req.ProductID, req.Rating, req.Body)
	if err != nil {
		return fail(l, "create_review_error", err)
	}
	return c.JSON(http.StatusCreated, rv)
}

func (h *AdminHTTP) UpdateReview(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.update_review")

	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(l, "update_review_error", "id not a uuid", err)
	}
	var req reviewRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_review_error", "invalid body", err)
	}
	rv, err := h.Reviews.AdminUpdate(ctx, id, req.Rating, req.Body)
	if err != nil {
		return fail(l, "update_review_error", err)
	}
	return c.JSON(http.StatusOK, rv)
}

func (h *AdminHTTP) DeleteReview(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.delete_review")

	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(l, "delete_review_error", "id not a uuid", err)
	}
	if err := h.Reviews.AdminDelete(ctx, id); err != nil {
		return fail(l, "delete_review_error", err)
	}
	return c.NoContent(http.StatusNoContent)
}
