package httpserver

import (
	"net/http"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/labstack/echo/v4"
)

type NewsletterHTTP struct {
	Svc *service.NewsletterService
}

func (h *NewsletterHTTP) Subscribe(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "newsletter.subscribe")

	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "subscribe_error", "invalid body", err)
	}
	out, err := h.Svc.Subscribe(ctx, req.Email)
	if err != nil {
		return fail(l, "subscribe_error", err)
	}
	code := http.StatusAccepted
	if out == service.SubscribeAlreadySubscribed {
		code = http.StatusOK
	}
	return c.JSON(code, echo.Map{"status": out})
}

func (h *NewsletterHTTP) Confirm(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "newsletter.confirm")

	if err := h.Svc.Confirm(ctx, c.Param("token")); err != nil {
		return fail(l, "confirm_error", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "subscribed"})
}

func (h *NewsletterHTTP) Unsubscribe(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "newsletter.unsubscribe")

	if err := h.Svc.Unsubscribe(ctx, c.Param("token")); err != nil {
		return fail(l, "unsubscribe_error", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "unsubscribed"})
}
