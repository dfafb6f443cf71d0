package httpserver

import (
	"net/http"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/labstack/echo/v4"
)

// AccountHTTP serves the signed-in customer's profile, own reviews and saved payment methods.
type AccountHTTP struct {
	Profile  *service.ProfileService
	Reviews  *service.ReviewService
	Payments *service.PaymentService
}

func (h *AccountHTTP) GetProfile(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "account.get_profile")

	user, err := h.Profile.Get(ctx, principal(c))
	if err != nil {
		return fail(l, "get_profile_error", err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *AccountHTTP) UpdateProfile(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "account.update_profile")

	var req service.ProfilePatch
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_profile_error", "invalid body", err)
	}
	user, err := h.Profile.Update(ctx, principal(c), req)
	if err != nil {
		return fail(l, "update_profile_error", err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *AccountHTTP) MyReviews(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "account.my_reviews")

	items, err := h.Reviews.ListMine(ctx, principal(c))
	if err != nil {
		return fail(l, "my_reviews_error", err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *AccountHTTP) Reviewable(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "account.reviewable")

	items, err := h.Reviews.EligibleItems(ctx, principal(c))
	if err != nil {
		return fail(l, "reviewable_error", err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *AccountHTTP) DeleteReview(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "account.delete_review")

	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(l, "delete_review_error", "id not a uuid", err)
	}
	if err := h.Reviews.Delete(ctx, principal(c), id); err != nil {
		return fail(l, "delete_review_error", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AccountHTTP) ListPaymentMethods(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "account.list_payment_methods")

	items, err := h.Payments.List(ctx, principal(c))
	if err != nil {
		return fail(l, "list_payment_methods_error", err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *AccountHTTP) CreatePaymentMethod(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "account.create_payment_method")

	var req service.PaymentInput
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "create_payment_method_error", "invalid body", err)
	}
	pm, err := h.Payments.Create(ctx, principal(c), req)
	if err != nil {
		return fail(l, "create_payment_method_error", err)
	}
	return c.JSON(http.StatusCreated, pm)
}

func (h *AccountHTTP) UpdatePaymentMethod(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "account.update_payment_method")

	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(l, "update_payment_method_error", "id not a uuid", err)
	}
	var req service.PaymentInput
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_payment_method_error", "invalid body", err)
	}
	pm, err := h.Payments.Update(ctx, principal(c), id, req)
	if err != nil {
		return fail(l, "update_payment_method_error", err)
	}
	return c.JSON(http.StatusOK, pm)
}

func (h *AccountHTTP) DeletePaymentMethod(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "account.delete_payment_method")

	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(l, "delete_payment_method_error", "id not a uuid", err)
	}
	if err := h.Payments.Delete(ctx, principal(c), id); err != nil {
		return fail(l, "delete_payment_method_error", err)
	}
	return c.NoContent(http.StatusNoContent)
}
