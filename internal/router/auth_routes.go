package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gym-management/internal/handler"
	"github.com/iliyamo/gym-management/internal/middleware"
	"github.com/iliyamo/gym-management/internal/model"
)

// registerAuth mounts the session endpoints.  Login and refresh sit behind
// the rate limiter so password guessing is throttled per client.
func registerAuth(v1 *echo.Group, a *handler.AuthHandler, g Guards, authed []echo.MiddlewareFunc) {
	auth := v1.Group("/auth")
	auth.POST("/login", a.Login, chain(g.RateLimit)...)
	auth.POST("/refresh", a.Refresh, chain(g.RateLimit)...)
	auth.POST("/refresh-access", a.RefreshAccess)
	auth.POST("/logout", a.Logout)

	v1.GET("/me", a.Me, authed...)
}

// registerMe mounts the caller's own records under /v1/me.
func registerMe(me *echo.Group, h Handlers, authed []echo.MiddlewareFunc) {
	me.GET("/membership", h.Memberships.Mine, authed...)
	me.GET("/payments", h.Payments.Mine, authed...)
	me.GET("/attendance", h.Attendance.Mine, authed...)
	me.GET("/bookings", h.Classes.MyBookings, authed...)
	me.GET("/notifications", h.Notifications.Mine, authed...)
	me.GET("/payroll", h.Payroll.Mine,
		append(authed[:len(authed):len(authed)], middleware.RequireRole(model.RoleAdmin, model.RoleStaff, model.RoleTrainer))...)
}
