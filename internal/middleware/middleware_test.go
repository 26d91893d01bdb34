package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/gym-management/internal/config"
	"github.com/iliyamo/gym-management/internal/model"
	"github.com/iliyamo/gym-management/internal/repository"
	"github.com/iliyamo/gym-management/internal/utils"
)

const secret = "test-secret"

func bearer(t *testing.T, userID string, role model.Role) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, userID, string(role), 5)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func whoAmI(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"user_id": UserID(c), "role": Role(c)})
}

func serve(e *echo.Echo, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	e := echo.New()
	e.GET("/me", whoAmI, JWTAuth(secret))

	rec := serve(e, http.MethodGet, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"missing bearer token"}`, rec.Body.String())

	rec = serve(e, http.MethodGet, "/me", "Bearer not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	other, err := utils.NewAccessToken("other-secret", "u1", "admin", 5)
	require.NoError(t, err)
	rec = serve(e, http.MethodGet, "/me", "Bearer "+other.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	expired, err := utils.NewAccessToken(secret, "u1", "admin", -1)
	require.NoError(t, err)
	rec = serve(e, http.MethodGet, "/me", "Bearer "+expired.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(e, http.MethodGet, "/me", bearer(t, "u1", model.RoleMember))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":"u1","role":"member"}`, rec.Body.String())
}

func TestOptionalJWTAuth(t *testing.T) {
	e := echo.New()
	e.GET("/plans", whoAmI, OptionalJWTAuth(secret))

	rec := serve(e, http.MethodGet, "/plans", "Bearer garbage")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":"","role":""}`, rec.Body.String())

	rec = serve(e, http.MethodGet, "/plans", bearer(t, "a1", model.RoleAdmin))
	assert.JSONEq(t, `{"user_id":"a1","role":"admin"}`, rec.Body.String())
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	e.GET("/desk", whoAmI, JWTAuth(secret), RequireRole(model.RoleAdmin, model.RoleStaff))

	assert.Equal(t, http.StatusForbidden, serve(e, http.MethodGet, "/desk", bearer(t, "u1", model.RoleMember)).Code)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/desk", bearer(t, "s1", model.RoleStaff)).Code)
}

type roleTable map[string]model.Role

func (r roleTable) Get(_ context.Context, id string) (model.Role, error) {
	if id == "broken" {
		return "", errors.New("db down")
	}
	role, ok := r[id]
	if !ok {
		return "", repository.ErrNotFound
	}
	return role, nil
}

func TestRequireStoredRole(t *testing.T) {
	roles := roleTable{"a1": model.RoleAdmin, "demoted": model.RoleStaff, "m1": model.RoleMember}
	e := echo.New()
	e.POST("/admin", whoAmI, JWTAuth(secret), RequireStoredRole(roles, zap.NewNop(), model.RoleAdmin))

	cases := []struct {
		name string
		auth string
		want int
	}{
		{"no session", "", http.StatusUnauthorized},
		{"admin", bearer(t, "a1", model.RoleAdmin), http.StatusOK},
		{"stale admin claim", bearer(t, "demoted", model.RoleAdmin), http.StatusForbidden},
		{"member", bearer(t, "m1", model.RoleMember), http.StatusForbidden},
		{"no role row", bearer(t, "ghost", model.RoleAdmin), http.StatusForbidden},
		{"lookup error", bearer(t, "broken", model.RoleAdmin), http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, serve(e, http.MethodPost, "/admin", tc.auth).Code)
		})
	}
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestTokenBucket(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            2 * time.Hour,
		KeyStrategy:    "ip_route",
		Prefix:         "test:rl",
	}
	e := echo.New()
	e.POST("/login", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) },
		NewTokenBucket(cfg, rdb, zap.NewNop()))

	first := serve(e, http.MethodPost, "/login", "")
	assert.Equal(t, http.StatusNoContent, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, http.StatusNoContent, serve(e, http.MethodPost, "/login", "").Code)

	blocked := serve(e, http.MethodPost, "/login", "")
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.NotEmpty(t, blocked.Header().Get("Retry-After"))
}

func TestTokenBucket_RedisDownPassesThrough(t *testing.T) {
	mr, rdb := newRedis(t)
	mr.Close()
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute, Prefix: "rl"}
	e := echo.New()
	e.POST("/login", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) },
		NewTokenBucket(cfg, rdb, zap.NewNop()))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusNoContent, serve(e, http.MethodPost, "/login", "").Code)
	}
}

func TestRedisCache(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{http.MethodGet: true},
		TTL:          time.Minute,
		KeyStrategy:  "role_route_query",
		Prefix:       "test:cache",
		MaxBodyBytes: 1 << 10,
	}
	calls := 0
	e := echo.New()
	e.GET("/plans", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"role": Role(c), "n": calls})
	}, OptionalJWTAuth(secret), NewRedisCache(cfg, rdb, zap.NewNop()))

	miss := serve(e, http.MethodGet, "/plans", "")
	assert.Equal(t, "MISS", miss.Header().Get("X-Cache"))

	hit := serve(e, http.MethodGet, "/plans", "")
	assert.Equal(t, "HIT", hit.Header().Get("X-Cache"))
	assert.Equal(t, miss.Body.String(), hit.Body.String())
	assert.Equal(t, echo.MIMEApplicationJSON, hit.Header().Get(echo.HeaderContentType))
	assert.Equal(t, 1, calls)

	admin := serve(e, http.MethodGet, "/plans", bearer(t, "a1", model.RoleAdmin))
	assert.Equal(t, "MISS", admin.Header().Get("X-Cache"), "roles are cached separately")
	assert.Equal(t, 2, calls)

	serve(e, http.MethodGet, "/plans?all=true", bearer(t, "a1", model.RoleAdmin))
	assert.Equal(t, 3, calls)
}

func TestRedisCache_SkipsErrorsAndLargeBodies(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{http.MethodGet: true}, TTL: time.Minute, Prefix: "c", MaxBodyBytes: 16}
	e := echo.New()
	mw := NewRedisCache(cfg, rdb, zap.NewNop())
	e.GET("/big", func(c echo.Context) error {
		return c.String(http.StatusOK, "this body is longer than sixteen bytes")
	}, mw)
	e.GET("/fail", func(c echo.Context) error {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "boom"})
	}, mw)

	for _, path := range []string{"/big", "/fail"} {
		serve(e, http.MethodGet, path, "")
		assert.Equal(t, "MISS", serve(e, http.MethodGet, path, "").Header().Get("X-Cache"), path)
	}
}

func TestDisabledMiddlewaresPassThrough(t *testing.T) {
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) },
		NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil, zap.NewNop()),
		NewRedisCache(config.CacheConfig{Enabled: false}, nil, zap.NewNop()))

	rec := serve(e, http.MethodGet, "/x", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
}
