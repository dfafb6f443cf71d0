package httpserver

import (
	"context"
	"net/http"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/pkg/logging"
	authmw "github.com/Skotchmaster/storefront/pkg/middleware/auth"
	"github.com/Skotchmaster/storefront/pkg/tokens"
	"github.com/labstack/echo/v4"
)

type AuthHTTP struct {
	Svc          *service.AuthService
	Cart         *service.CartService
	CookieSecure bool
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req credentials
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "register_error", "invalid body", err)
	}

	user, err := h.Svc.Register(ctx, req.Email, req.Password)
	if err != nil {
		return fail(l, "register_error", err)
	}

	l.Info("register_success", "user_id", user.ID)
	return c.JSON(http.StatusCreated, echo.Map{
		"id":             user.ID,
		"email":          user.Email,
		"email_verified": user.EmailVerified,
	})
}

func (h *AuthHTTP) VerifyEmail(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.verify_email")

	user, err := h.Svc.VerifyEmail(ctx, c.Param("token"))
	if err != nil {
		return fail(l, "verify_email_error", err)
	}
	l.Info("email_verified", "user_id", user.ID)
	return c.JSON(http.StatusOK, echo.Map{"status": "verified"})
}

func (h *AuthHTTP) ResendVerification(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.resend_verification")

	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "resend_verification_error", "invalid body", err)
	}
	out, err := h.Svc.ResendVerification(ctx, req.Email)
	if err != nil {
		return fail(l, "resend_verification_error", err)
	}
	code := http.StatusAccepted
	if out == service.VerificationAlreadyVerified {
		code = http.StatusOK
	}
	return c.JSON(code, echo.Map{"status": out})
}

// ChangePassword replaces the session cookies with the freshly issued pair;
// every other session of the user is signed out.
func (h *AuthHTTP) ChangePassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.change_password")

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "change_password_error", "invalid body", err)
	}
	res, err := h.Svc.ChangePassword(ctx, principal(c), req.CurrentPassword, req.NewPassword)
	if err != nil {
		return fail(l, "change_password_error", err)
	}
	h.setTokenCookies(c, res)

	l.Info("password_changed", "user_id", res.UserID)
	return c.JSON(http.StatusOK, echo.Map{"status": "password_changed"})
}

// Login sets the token cookies and folds the visitor's anonymous cart into the user's cart.
func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req credentials
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "login_error", "invalid body", err)
	}

	res, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return fail(l, "login_failed", err)
	}
	h.setTokenCookies(c, res)

	if key := authmw.SessionKey(c); key != "" && h.Cart != nil {
		if err := h.Cart.Merge(ctx, key, res.UserID); err != nil {
			l.Warn("cart_merge_failed", "error", err)
		} else {
			authmw.ClearSession(c, h.CookieSecure)
		}
	}

	l.Info("login_successful", "user_id", res.UserID)
	return c.JSON(http.StatusOK, echo.Map{
		"user_id":  res.UserID,
		"is_admin": res.IsAdmin,
	})
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.refresh")

	ck, err := c.Cookie(tokens.RefreshCookie)
	if err != nil || ck.Value == "" {
		l.Warn("refresh_failed", "status", http.StatusUnauthorized, "reason", "refresh token missing")
		return echo.NewHTTPError(http.StatusUnauthorized, "refresh token missing")
	}

	res, err := h.Svc.Refresh(ctx, ck.Value)
	if err != nil {
		h.clearTokenCookies(c)
		return fail(l, "refresh_failed", err)
	}
	h.setTokenCookies(c, res)
	return c.JSON(http.StatusOK, echo.Map{"is_admin": res.IsAdmin})
}

func (h *AuthHTTP) LogOut(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.logout")

	if ck, err := c.Cookie(tokens.RefreshCookie); err == nil {
		if err := h.Svc.LogOut(ctx, ck.Value); err != nil {
			h.clearTokenCookies(c)
			return fail(l, "logout_failed", err)
		}
	}
	h.clearTokenCookies(c)

	l.Info("successful_logout")
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// RefreshFunc adapts the auth service for the auto-refresh middleware.
func (h *AuthHTTP) RefreshFunc() authmw.RefreshFunc {
	return func(ctx context.Context, refreshToken string) (authmw.Pair, error) {
		res, err := h.Svc.Refresh(ctx, refreshToken)
		if err != nil {
			return authmw.Pair{}, err
		}
		return authmw.Pair{
			AccessToken:  res.AccessToken,
			RefreshToken: res.RefreshToken,
			AccessExp:    res.AccessExp,
			RefreshExp:   res.RefreshExp,
		}, nil
	}
}

func (h *AuthHTTP) setTokenCookies(c echo.Context, res *service.LoginResult) {
	c.SetCookie(tokens.CreateCookie(tokens.AccessCookie, res.AccessToken, "/", res.AccessExp, h.CookieSecure))
	c.SetCookie(tokens.CreateCookie(tokens.RefreshCookie, res.RefreshToken, "/", res.RefreshExp, h.CookieSecure))
}

func (h *AuthHTTP) clearTokenCookies(c echo.Context) {
	c.SetCookie(tokens.DeleteCookie(tokens.AccessCookie, "/", h.CookieSecure))
	c.SetCookie(tokens.DeleteCookie(tokens.RefreshCookie, "/", h.CookieSecure))
}
