package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/gym-management/internal/config"
	"github.com/iliyamo/gym-management/internal/middleware"
	"github.com/iliyamo/gym-management/internal/model"
	"github.com/iliyamo/gym-management/internal/repository"
	"github.com/iliyamo/gym-management/internal/utils"
)

// AccountReader loads credentials for login.
type AccountReader interface {
	GetByEmail(ctx context.Context, email string) (model.Account, error)
	GetByID(ctx context.Context, id string) (model.Account, error)
}

// RoleReader reads the role stored for a user.
type RoleReader interface {
	Get(ctx context.Context, userID string) (model.Role, error)
}

// TokenStore keeps hashed refresh tokens.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (string, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID string) error
}

// ProfileReader loads the profile shown by /v1/me.
type ProfileReader interface {
	GetByID(ctx context.Context, id string) (model.Profile, error)
}

// AuthHandler bundles dependencies for auth endpoints.  Accounts are
// provisioned by admins, so there is no self-registration.
type AuthHandler struct {
	cfg      config.Config
	accounts AccountReader
	roles    RoleReader
	tokens   TokenStore
	profiles ProfileReader
	log      *zap.Logger
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(cfg config.Config, a AccountReader, r RoleReader, t TokenStore, p ProfileReader, log *zap.Logger) *AuthHandler {
	return &AuthHandler{cfg: cfg, accounts: a, roles: r, tokens: t, profiles: p, log: log}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type userPart struct {
	ID    string     `json:"id"`
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
}

type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

// issue signs an access token and stores a fresh refresh token.
func (h *AuthHandler) issue(ctx context.Context, acc model.Account, role model.Role) (authResp, error) {
	access, err := utils.NewAccessToken(h.cfg.JWTSecret, acc.ID, string(role), h.cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, err
	}
	if err := h.tokens.StoreRefresh(ctx, acc.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		User:    userPart{ID: acc.ID, Email: acc.Email, Role: role},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	}, nil
}

// session loads the account and role behind a user id.  A disabled account
// or one without a role cannot hold a session.
func (h *AuthHandler) session(ctx context.Context, userID string) (model.Account, model.Role, error) {
	acc, err := h.accounts.GetByID(ctx, userID)
	if err != nil {
		return acc, "", err
	}
	if !acc.IsActive {
		return acc, "", repository.ErrForbidden
	}
	role, err := h.roles.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return acc, "", repository.ErrForbidden
	}
	return acc, role, err
}

// Login: verify and return a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return errJSON(c, http.StatusBadRequest, "email/password required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	acc, err := h.accounts.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return errJSON(c, http.StatusUnauthorized, "invalid credentials")
	}
	if err != nil {
		return fail(c, h.log, err)
	}
	if !utils.VerifyPassword(acc.PasswordHash, req.Password) {
		return errJSON(c, http.StatusUnauthorized, "invalid credentials")
	}
	_, role, err := h.session(ctx, acc.ID)
	if errors.Is(err, repository.ErrForbidden) {
		return errJSON(c, http.StatusForbidden, "account disabled")
	}
	if err != nil {
		return fail(c, h.log, err)
	}

	resp, err := h.issue(ctx, acc, role)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh: validate by hash, revoke the old token, issue a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return errJSON(c, http.StatusBadRequest, "refresh_token required")
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := reqCtx(c)
	defer cancel()

	userID, err := h.tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return errJSON(c, http.StatusUnauthorized, "invalid refresh")
	}
	if err := h.tokens.RevokeByHash(ctx, hash); err != nil {
		return fail(c, h.log, err)
	}
	acc, role, err := h.session(ctx, userID)
	if err != nil {
		return errJSON(c, http.StatusUnauthorized, "invalid refresh")
	}
	resp, err := h.issue(ctx, acc, role)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// RefreshAccess returns a new access token without rotating the refresh
// token.
func (h *AuthHandler) RefreshAccess(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return errJSON(c, http.StatusBadRequest, "refresh_token required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	userID, err := h.tokens.ValidateRefresh(ctx, utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken)))
	if err != nil {
		return errJSON(c, http.StatusUnauthorized, "invalid refresh")
	}
	_, role, err := h.session(ctx, userID)
	if err != nil {
		return errJSON(c, http.StatusUnauthorized, "invalid refresh")
	}
	access, err := utils.NewAccessToken(h.cfg.JWTSecret, userID, string(role), h.cfg.AccessTTLMin)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"access": tokenPart{Token: access.Token, Expires: access.Exp}})
}

// Logout revokes one session when a refresh_token is sent, otherwise every
// session of the bearer.  It is mounted without JWTAuth so a client whose
// access token expired can still drop its refresh token.
func (h *AuthHandler) Logout(c echo.Context) error {
	var uid string
	if raw, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer "); ok {
		if claims, err := utils.ParseAccessToken(h.cfg.JWTSecret, strings.TrimSpace(raw)); err == nil {
			uid = claims.UserID
		}
	}
	var req refreshReq
	_ = c.Bind(&req)
	refresh := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := reqCtx(c)
	defer cancel()

	switch {
	case refresh != "":
		hash := utils.HashRefreshRaw(refresh)
		if _, err := h.tokens.ValidateRefresh(ctx, hash); err != nil {
			return errJSON(c, http.StatusUnauthorized, "invalid refresh token")
		}
		if err := h.tokens.RevokeByHash(ctx, hash); err != nil {
			return fail(c, h.log, err)
		}
	case uid != "":
		if err := h.tokens.RevokeAllForUser(ctx, uid); err != nil {
			return fail(c, h.log, err)
		}
	default:
		return errJSON(c, http.StatusBadRequest, "provide Authorization header or refresh_token")
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the caller's identity and, when one exists, their profile.
func (h *AuthHandler) Me(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	uid := middleware.UserID(c)
	resp := echo.Map{"user_id": uid, "role": middleware.Role(c)}
	p, err := h.profiles.GetByID(ctx, uid)
	switch {
	case err == nil:
		resp["profile"] = p
	case !errors.Is(err, repository.ErrNotFound):
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, resp)
}
