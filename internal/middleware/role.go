package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/gym-management/internal/model"
	"github.com/iliyamo/gym-management/internal/repository"
)

// RequireRole aborts with 403 unless the role claim stored by JWTAuth is
// one of roles.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !allowed[Role(c)] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}

// RoleLookup reads the role currently stored for a user.
type RoleLookup interface {
	Get(ctx context.Context, userID string) (model.Role, error)
}

// RequireStoredRole re-checks the caller's role against user_roles instead
// of trusting the token claim, so a demoted admin loses access before the
// token expires.  It fails closed: no session is 401, a missing role row
// or a failed lookup is 403 like any role outside roles.
func RequireStoredRole(lookup RoleLookup, log *zap.Logger, roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			uid := UserID(c)
			if uid == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
			defer cancel()
			role, err := lookup.Get(ctx, uid)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				log.Error("role check failed", zap.String("user_id", uid), zap.Error(err))
			}
			if err != nil || !allowed[role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			c.Set(ctxRole, string(role))
			return next(c)
		}
	}
}
