package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	SessionCookie     = "cart_session"
	ContextSessionKey = "session_key"

	sessionTTL = 30 * 24 * time.Hour
)

// CartSession gives every anonymous visitor a stable session key for their cart.
// Signed-in callers keep an existing cookie so the cart can be merged at login.
func CartSession(secure bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if ck, err := c.Cookie(SessionCookie); err == nil {
				if _, perr := uuid.Parse(ck.Value); perr == nil {
					c.Set(ContextSessionKey, ck.Value)
					return next(c)
				}
			}
			if _, ok := UserID(c); ok {
				return next(c)
			}

			key := uuid.NewString()
			c.SetCookie(&http.Cookie{
				Name:     SessionCookie,
				Value:    key,
				Path:     "/",
				Expires:  time.Now().Add(sessionTTL),
				HttpOnly: true,
				Secure:   secure,
				SameSite: http.SameSiteLaxMode,
			})
			c.Set(ContextSessionKey, key)
			return next(c)
		}
	}
}

func SessionKey(c echo.Context) string {
	s, _ := c.Get(ContextSessionKey).(string)
	return s
}

// ClearSession drops the session cookie, used once its cart has been merged.
func ClearSession(c echo.Context, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
