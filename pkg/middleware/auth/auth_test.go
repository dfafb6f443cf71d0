package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Skotchmaster/storefront/pkg/tokens"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("middleware-test-secret")

func signAccess(t *testing.T, id uuid.UUID, role string, exp time.Time) string {
	t.Helper()
	tok, err := tokens.SignAccess(secret, id.String(), role, exp)
	require.NoError(t, err)
	return tok
}

type result struct {
	status  int
	userID  uuid.UUID
	role    string
	cookies []*http.Cookie
}

func serve(t *testing.T, m *AutoRefreshMiddleware, guard echo.MiddlewareFunc, cookies ...*http.Cookie) result {
	t.Helper()
	e := echo.New()
	var res result
	h := func(c echo.Context) error {
		res.userID, _ = UserID(c)
		res.role = Role(c)
		return c.NoContent(http.StatusNoContent)
	}
	if guard != nil {
		h = guard(h)
	}
	e.GET("/", h, m.Identify())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	res.status = rec.Code
	res.cookies = rec.Result().Cookies()
	return res
}

func cookieNamed(cs []*http.Cookie, name string) *http.Cookie {
	for _, c := range cs {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestIdentify_ValidToken(t *testing.T) {
	m := NewAutoRefreshMiddleware(secret, nil, false)
	id := uuid.New()

	res := serve(t, m, nil, &http.Cookie{Name: tokens.AccessCookie, Value: signAccess(t, id, "user", time.Now().Add(time.Minute))})
	assert.Equal(t, http.StatusNoContent, res.status)
	assert.Equal(t, id, res.userID)
	assert.Equal(t, "user", res.role)
}

func TestIdentify_AnonymousPassesThrough(t *testing.T) {
	m := NewAutoRefreshMiddleware(secret, nil, false)

	res := serve(t, m, nil)
	assert.Equal(t, http.StatusNoContent, res.status)
	assert.Equal(t, uuid.Nil, res.userID)
}

func TestIdentify_BadSignatureClearsCookies(t *testing.T) {
	m := NewAutoRefreshMiddleware(secret, nil, false)
	forged, err := tokens.SignAccess([]byte("other"), uuid.NewString(), "admin", time.Now().Add(time.Minute))
	require.NoError(t, err)

	res := serve(t, m, nil, &http.Cookie{Name: tokens.AccessCookie, Value: forged})
	assert.Equal(t, http.StatusNoContent, res.status)
	assert.Equal(t, uuid.Nil, res.userID)
	cleared := cookieNamed(res.cookies, tokens.AccessCookie)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
}

func TestIdentify_ExpiredTokenIsRefreshed(t *testing.T) {
	id := uuid.New()
	var got string
	refresh := func(_ context.Context, rt string) (Pair, error) {
		got = rt
		return Pair{
			AccessToken:  signAccess(t, id, "admin", time.Now().Add(time.Minute)),
			RefreshToken: "rotated",
			AccessExp:    time.Now().Add(time.Minute),
			RefreshExp:   time.Now().Add(time.Hour),
		}, nil
	}
	m := NewAutoRefreshMiddleware(secret, refresh, false)

	res := serve(t, m, RequireAdmin,
		&http.Cookie{Name: tokens.AccessCookie, Value: signAccess(t, id, "admin", time.Now().Add(-time.Minute))},
		&http.Cookie{Name: tokens.RefreshCookie, Value: "old-refresh"},
	)
	assert.Equal(t, http.StatusNoContent, res.status)
	assert.Equal(t, "old-refresh", got)
	assert.Equal(t, id, res.userID)
	rotated := cookieNamed(res.cookies, tokens.RefreshCookie)
	require.NotNil(t, rotated)
	assert.Equal(t, "rotated", rotated.Value)
}

func TestIdentify_MissingAccessUsesRefresh(t *testing.T) {
	id := uuid.New()
	m := NewAutoRefreshMiddleware(secret, func(context.Context, string) (Pair, error) {
		return Pair{AccessToken: signAccess(t, id, "user", time.Now().Add(time.Minute)), RefreshToken: "r"}, nil
	}, false)

	res := serve(t, m, RequireAuth, &http.Cookie{Name: tokens.RefreshCookie, Value: "old"})
	assert.Equal(t, http.StatusNoContent, res.status)
	assert.Equal(t, id, res.userID)
}

func TestIdentify_FailedRefreshIsAnonymous(t *testing.T) {
	m := NewAutoRefreshMiddleware(secret, func(context.Context, string) (Pair, error) {
		return Pair{}, errors.New("revoked")
	}, false)

	res := serve(t, m, RequireAuth, &http.Cookie{Name: tokens.RefreshCookie, Value: "old"})
	assert.Equal(t, http.StatusUnauthorized, res.status)
}

func TestRequireAdmin(t *testing.T) {
	m := NewAutoRefreshMiddleware(secret, nil, false)
	user := &http.Cookie{Name: tokens.AccessCookie, Value: signAccess(t, uuid.New(), "user", time.Now().Add(time.Minute))}
	admin := &http.Cookie{Name: tokens.AccessCookie, Value: signAccess(t, uuid.New(), "admin", time.Now().Add(time.Minute))}

	assert.Equal(t, http.StatusUnauthorized, serve(t, m, RequireAdmin).status)
	assert.Equal(t, http.StatusForbidden, serve(t, m, RequireAdmin, user).status)
	assert.Equal(t, http.StatusNoContent, serve(t, m, RequireAdmin, admin).status)
}

func TestCartSession(t *testing.T) {
	e := echo.New()
	var key string
	e.GET("/", func(c echo.Context) error {
		key = SessionKey(c)
		return c.NoContent(http.StatusNoContent)
	}, CartSession(false))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	issued := cookieNamed(rec.Result().Cookies(), SessionCookie)
	require.NotNil(t, issued)
	assert.Equal(t, issued.Value, key)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(issued)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, issued.Value, key)
	assert.Nil(t, cookieNamed(rec.Result().Cookies(), SessionCookie), "existing session is reused")

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "not-a-uuid"})
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.NotEqual(t, "not-a-uuid", key)
}
