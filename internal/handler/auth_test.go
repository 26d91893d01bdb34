package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/gym-management/internal/config"
	"github.com/iliyamo/gym-management/internal/model"
	"github.com/iliyamo/gym-management/internal/repository"
	"github.com/iliyamo/gym-management/internal/utils"
)

// authBackend implements every store the auth handler reads.
type authBackend struct {
	accounts map[string]model.Account
	roles    map[string]model.Role
	tokens   map[string]string // hash -> user id
	revoked  map[string]bool
	profiles map[string]model.Profile
}

func newAuthBackend(t *testing.T) *authBackend {
	t.Helper()
	hash, err := utils.HashPassword("secret123", bcrypt.MinCost)
	require.NoError(t, err)
	return &authBackend{
		accounts: map[string]model.Account{
			"u-1": {ID: "u-1", Email: "ana@gym.test", PasswordHash: hash, IsActive: true},
			"u-2": {ID: "u-2", Email: "off@gym.test", PasswordHash: hash, IsActive: false},
		},
		roles:    map[string]model.Role{"u-1": model.RoleMember, "u-2": model.RoleMember},
		tokens:   map[string]string{},
		revoked:  map[string]bool{},
		profiles: map[string]model.Profile{"u-1": {ID: "u-1", FullName: "Ana"}},
	}
}

func (b *authBackend) GetByEmail(_ context.Context, email string) (model.Account, error) {
	for _, a := range b.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return model.Account{}, repository.ErrNotFound
}

func (b *authBackend) GetByID(_ context.Context, id string) (model.Account, error) {
	a, ok := b.accounts[id]
	if !ok {
		return a, repository.ErrNotFound
	}
	return a, nil
}

func (b *authBackend) Get(_ context.Context, userID string) (model.Role, error) {
	r, ok := b.roles[userID]
	if !ok {
		return "", repository.ErrNotFound
	}
	return r, nil
}

func (b *authBackend) StoreRefresh(_ context.Context, userID, hash string, _ time.Time) error {
	b.tokens[hash] = userID
	return nil
}

func (b *authBackend) ValidateRefresh(_ context.Context, hash string) (string, error) {
	uid, ok := b.tokens[hash]
	if !ok || b.revoked[hash] {
		return "", repository.ErrNotFound
	}
	return uid, nil
}

func (b *authBackend) RevokeByHash(_ context.Context, hash string) error {
	b.revoked[hash] = true
	return nil
}

func (b *authBackend) RevokeAllForUser(_ context.Context, userID string) error {
	for h, uid := range b.tokens {
		if uid == userID {
			b.revoked[h] = true
		}
	}
	return nil
}

type profileBackend struct{ *authBackend }

func (p profileBackend) GetByID(_ context.Context, id string) (model.Profile, error) {
	pr, ok := p.profiles[id]
	if !ok {
		return pr, repository.ErrNotFound
	}
	return pr, nil
}

func newAuthHandler(b *authBackend) *AuthHandler {
	cfg := config.Config{JWTSecret: secret, AccessTTLMin: 5, RefreshTTLDays: 1}
	return NewAuthHandler(cfg, b, b, b, profileBackend{b}, nop)
}

func login(t *testing.T, h *AuthHandler, body string) (int, authResp) {
	t.Helper()
	rec := serve(t, h.Login, call{method: http.MethodPost, route: "/v1/auth/login", body: body})
	var resp authResp
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec.Code, resp
}

func TestLogin(t *testing.T) {
	b := newAuthBackend(t)
	h := newAuthHandler(b)

	code, resp := login(t, h, `{"email":" ANA@gym.test ","password":"secret123"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "u-1", resp.User.ID)
	assert.Equal(t, model.RoleMember, resp.User.Role)
	claims, err := utils.ParseAccessToken(secret, resp.Access.Token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Contains(t, b.tokens, utils.HashRefreshRaw(resp.Refresh.Token))

	code, _ = login(t, h, `{"email":"ana@gym.test","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = login(t, h, `{"email":"nobody@gym.test","password":"secret123"}`)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = login(t, h, `{"email":"off@gym.test","password":"secret123"}`)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = login(t, h, `{"email":""}`)
	assert.Equal(t, http.StatusBadRequest, code)

	delete(b.roles, "u-1")
	code, _ = login(t, h, `{"email":"ana@gym.test","password":"secret123"}`)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestRefreshRotates(t *testing.T) {
	b := newAuthBackend(t)
	h := newAuthHandler(b)
	_, first := login(t, h, `{"email":"ana@gym.test","password":"secret123"}`)

	body := `{"refresh_token":"` + first.Refresh.Token + `"}`
	rec := serve(t, h.Refresh, call{method: http.MethodPost, route: "/v1/auth/refresh", body: body})
	require.Equal(t, http.StatusOK, rec.Code)
	var second authResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.NotEqual(t, first.Refresh.Token, second.Refresh.Token)

	rec = serve(t, h.Refresh, call{method: http.MethodPost, route: "/v1/auth/refresh", body: body})
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "rotated token is single use")

	rec = serve(t, h.RefreshAccess, call{method: http.MethodPost, route: "/v1/auth/refresh-access",
		body: `{"refresh_token":"` + second.Refresh.Token + `"}`})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, b.revoked[utils.HashRefreshRaw(second.Refresh.Token)])
}

func TestLogout(t *testing.T) {
	b := newAuthBackend(t)
	h := newAuthHandler(b)
	_, one := login(t, h, `{"email":"ana@gym.test","password":"secret123"}`)
	_, two := login(t, h, `{"email":"ana@gym.test","password":"secret123"}`)

	rec := serve(t, h.Logout, call{method: http.MethodPost, route: "/v1/auth/logout"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, h.Logout, call{method: http.MethodPost, route: "/v1/auth/logout",
		body: `{"refresh_token":"` + one.Refresh.Token + `"}`})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, b.revoked[utils.HashRefreshRaw(one.Refresh.Token)])
	assert.False(t, b.revoked[utils.HashRefreshRaw(two.Refresh.Token)])

	// a bearer without a refresh token ends every session of the user
	rec = serve(t, h.Logout, call{method: http.MethodPost, route: "/v1/auth/logout", user: "u-1", role: model.RoleMember})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, b.revoked[utils.HashRefreshRaw(two.Refresh.Token)])
}

func TestMe(t *testing.T) {
	b := newAuthBackend(t)
	h := newAuthHandler(b)

	rec := serve(t, h.Me, call{method: http.MethodGet, route: "/v1/me", user: "u-1", role: model.RoleMember})
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		UserID  string        `json:"user_id"`
		Profile model.Profile `json:"profile"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "u-1", body.UserID)
	assert.Equal(t, "Ana", body.Profile.FullName)

	rec = serve(t, h.Me, call{method: http.MethodGet, route: "/v1/me", user: "admin-0", role: model.RoleAdmin})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "profile")
}
