package httpserver

import (
	"net/http"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/labstack/echo/v4"
)

func (h *AdminHTTP) GetSettings(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.get_settings")

	st, err := h.Settings.Get(ctx)
	if err != nil {
		return fail(l, "get_settings_error", err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *AdminHTTP) UpdateSettings(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.update_settings")

	var req service.SettingsPatch
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_settings_error", "invalid body", err)
	}
	st, err := h.Settings.Update(ctx, req)
	if err != nil {
		return fail(l, "update_settings_error", err)
	}
	l.Info("update_settings_success")
	return c.JSON(http.StatusOK, st)
}

func (h *AdminHTTP) RevertSettings(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.revert_settings")

	st, err := h.Settings.Revert(ctx)
	if err != nil {
		return fail(l, "revert_settings_error", err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *AdminHTTP) ListSubscriptions(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.list_subscriptions")

	items, err := h.Newsletter.List(ctx, c.QueryParam("filter"))
	if err != nil {
		return fail(l, "list_subscriptions_error", err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *AdminHTTP) Unsubscribe(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.unsubscribe")

	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(l, "unsubscribe_error", "id not a uuid", err)
	}
	if err := h.Newsletter.AdminUnsubscribe(ctx, id); err != nil {
		return fail(l, "unsubscribe_error", err)
	}
	return c.NoContent(http.StatusNoContent)
}
