package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gym-management/internal/model"
)

// UserID returns the authenticated user's id, or "" on public routes.
func UserID(c echo.Context) string {
	s, _ := c.Get(ctxUserID).(string)
	return s
}

// Role returns the role claim of the authenticated user.
func Role(c echo.Context) model.Role {
	s, _ := c.Get(ctxRole).(string)
	return model.Role(s)
}

// IsStaff reports whether the caller works at the gym (admin or staff).
func IsStaff(c echo.Context) bool {
	r := Role(c)
	return r == model.RoleAdmin || r == model.RoleStaff
}

// identity is the rate-limit and cache key component for the caller.
func identity(c echo.Context) string {
	if id := UserID(c); id != "" {
		return id
	}
	return "anon"
}
