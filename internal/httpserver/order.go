package httpserver

import (
	"net/http"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/labstack/echo/v4"
)

type OrderHTTP struct {
	Checkout *service.CheckoutService
	Orders   *service.OrderService
}

func (h *OrderHTTP) MakeOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.make_order")

	order, err := h.Checkout.ConvertCartToOrder(ctx, principal(c))
	if err != nil {
		return fail(l, "make_order_error", err)
	}
	l.Info("make_order_success", "order_id", order.ID)
	return c.JSON(http.StatusCreated, order)
}

func (h *OrderHTTP) Success(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.success")

	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(l, "order_success_error", "id not a uuid", err)
	}
	order, err := h.Checkout.Success(ctx, principal(c), id)
	if err != nil {
		return fail(l, "order_success_error", err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) ListMine(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list_mine")

	page, size := pageParams(c)
	res, err := h.Orders.ListMine(ctx, principal(c), page, size)
	if err != nil {
		return fail(l, "list_orders_error", err)
	}
	return paged(c, res)
}

func (h *OrderHTTP) GetMine(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get_mine")

	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(l, "get_order_error", "id not a uuid", err)
	}
	order, err := h.Orders.GetMine(ctx, principal(c), id)
	if err != nil {
		return fail(l, "get_order_error", err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) Cancel(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.cancel")

	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(l, "cancel_order_error", "id not a uuid", err)
	}
	order, err := h.Orders.Cancel(ctx, principal(c), id)
	if err != nil {
		return fail(l, "cancel_order_error", err)
	}
	l.Info("cancel_order_success", "order_id", order.ID)
	return c.JSON(http.StatusOK, order)
}
