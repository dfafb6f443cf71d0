package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/tokens"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

const (
	ContextUserID = "user_id"
	ContextRole   = "role"
	contextToken  = "access_token"
)

// Pair is a freshly issued access/refresh token pair.
type Pair struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

// RefreshFunc rotates a refresh token.
type RefreshFunc func(ctx context.Context, refreshToken string) (Pair, error)

// AutoRefreshMiddleware reads the access token cookie and, when it is expired or gone,
// silently rotates the refresh token cookie.
type AutoRefreshMiddleware struct {
	JWTSecret []byte
	Refresh   RefreshFunc
	Secure    bool
}

func NewAutoRefreshMiddleware(secret []byte, refresh RefreshFunc, secure bool) *AutoRefreshMiddleware {
	return &AutoRefreshMiddleware{
		JWTSecret: secret,
		Refresh:   refresh,
		Secure:    secure,
	}
}

// Identify attaches the caller's identity when one can be established and never rejects.
func (m *AutoRefreshMiddleware) Identify() echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey:             m.JWTSecret,
		SigningMethod:          jwt.SigningMethodHS256.Alg(),
		TokenLookup:            "cookie:" + tokens.AccessCookie,
		ContextKey:             contextToken,
		ContinueOnIgnoredError: true,
		NewClaimsFunc: func(echo.Context) jwt.Claims {
			return new(tokens.AccessClaims)
		},
		SuccessHandler: func(c echo.Context) {
			tok, ok := c.Get(contextToken).(*jwt.Token)
			if !ok {
				return
			}
			if claims, ok := tok.Claims.(*tokens.AccessClaims); ok {
				setUserContext(c, claims)
			}
		},
		ErrorHandler: m.fallback,
	})
}

// fallback runs when the access cookie is missing or unusable; returning nil lets the
// request through as anonymous.
func (m *AutoRefreshMiddleware) fallback(c echo.Context, err error) error {
	l := logging.FromContext(c.Request().Context()).With("svc", "auth.identify")

	_, accessErr := c.Cookie(tokens.AccessCookie)
	hasAccess := accessErr == nil
	if hasAccess && !errors.Is(err, jwt.ErrTokenExpired) {
		l.Debug("invalid_access_token", "error", err)
		m.clearAuthCookies(c)
		return nil
	}

	refreshCookie, rErr := c.Cookie(tokens.RefreshCookie)
	if rErr != nil || refreshCookie.Value == "" || m.Refresh == nil {
		if hasAccess {
			m.clearAuthCookies(c)
		}
		return nil
	}

	pair, refErr := m.Refresh(c.Request().Context(), refreshCookie.Value)
	if refErr != nil {
		l.Debug("refresh_failed", "error", refErr)
		m.clearAuthCookies(c)
		return nil
	}

	claims, pErr := tokens.AccessClaimsFromToken(pair.AccessToken, m.JWTSecret)
	if pErr != nil {
		l.Warn("refreshed_token_invalid", "error", pErr)
		m.clearAuthCookies(c)
		return nil
	}

	c.SetCookie(tokens.CreateCookie(tokens.AccessCookie, pair.AccessToken, "/", pair.AccessExp, m.Secure))
	c.SetCookie(tokens.CreateCookie(tokens.RefreshCookie, pair.RefreshToken, "/", pair.RefreshExp, m.Secure))
	setUserContext(c, claims)
	return nil
}

// RequireAuth rejects callers without an identity. It must run after Identify.
func RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := UserID(c); !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
		}
		return next(c)
	}
}

func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return RequireAuth(func(c echo.Context) error {
		if Role(c) != "admin" {
			return echo.NewHTTPError(http.StatusForbidden, "admin access required")
		}
		return next(c)
	})
}

func (m *AutoRefreshMiddleware) clearAuthCookies(c echo.Context) {
	c.SetCookie(tokens.DeleteCookie(tokens.AccessCookie, "/", m.Secure))
	c.SetCookie(tokens.DeleteCookie(tokens.RefreshCookie, "/", m.Secure))
}

func setUserContext(c echo.Context, claims *tokens.AccessClaims) {
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return
	}
	c.Set(ContextUserID, id)
	c.Set(ContextRole, claims.Role)
}

func UserID(c echo.Context) (uuid.UUID, bool) {
	id, ok := c.Get(ContextUserID).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

func Role(c echo.Context) string {
	r, _ := c.Get(ContextRole).(string)
	return r
}
