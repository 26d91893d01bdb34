// Package router wires handlers to paths and attaches the auth, role,
// rate limit and cache middleware each route needs.
package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/gym-management/internal/handler"
	"github.com/iliyamo/gym-management/internal/middleware"
	"github.com/iliyamo/gym-management/internal/model"
)

// Handlers is every HTTP handler the API exposes.
type Handlers struct {
	Health        echo.HandlerFunc
	Auth          *handler.AuthHandler
	Users         *handler.UserHandler
	Plans         *handler.PlanHandler
	Memberships   *handler.MembershipHandler
	Payments      *handler.PaymentHandler
	Attendance    *handler.AttendanceHandler
	Classes       *handler.ClassHandler
	POS           *handler.POSHandler
	Payroll       *handler.PayrollHandler
	Progress      *handler.ProgressHandler
	Notifications *handler.NotificationHandler
	Reports       *handler.ReportHandler
}

// Guards carries what the route middleware needs.  RateLimit and Cache
// may be nil, in which case the routes are registered without them.  An
// empty CORSOrigins allows any origin.
type Guards struct {
	JWTSecret   string
	CORSOrigins []string
	Roles       middleware.RoleLookup
	RateLimit   echo.MiddlewareFunc
	Cache       echo.MiddlewareFunc
	Log         *zap.Logger
}

// CORS answers preflight requests for every route, including paths that
// only register POST.
func CORS(origins []string) echo.MiddlewareFunc {
	return echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, echo.HeaderXRequestID},
	})
}

// chain builds per-route middleware lists, dropping nil entries.
func chain(mws ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(mws))
	for _, m := range mws {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

// Register mounts the whole API on e.
func Register(e *echo.Echo, h Handlers, g Guards) {
	e.Use(CORS(g.CORSOrigins))
	e.GET("/healthz", h.Health)

	jwt := middleware.JWTAuth(g.JWTSecret)
	role := func(roles ...model.Role) []echo.MiddlewareFunc {
		return chain(jwt, middleware.RequireRole(roles...))
	}
	var (
		authed   = chain(jwt)
		admin    = role(model.RoleAdmin)
		desk     = role(model.RoleAdmin, model.RoleStaff)
		coaching = role(model.RoleAdmin, model.RoleStaff, model.RoleTrainer)
		// the role claim may be stale; privileged user management checks
		// the stored role on every call
		superuser = chain(jwt, middleware.RequireStoredRole(g.Roles, g.Log, model.RoleAdmin))
	)

	v1 := e.Group("/v1")
	registerAuth(v1, h.Auth, g, authed)

	users := v1.Group("/admin/users")
	users.POST("", h.Users.Create, superuser...)
	users.GET("", h.Users.List, superuser...)
	users.POST("/delete", h.Users.Delete, superuser...)
	users.PUT("/:id/role", h.Users.ChangeRole, superuser...)

	v1.GET("/plans", h.Plans.List, chain(middleware.OptionalJWTAuth(g.JWTSecret), g.Cache)...)
	v1.GET("/plans/:id", h.Plans.Get)
	v1.POST("/plans", h.Plans.Create, admin...)
	v1.PUT("/plans/:id", h.Plans.Update, admin...)
	v1.DELETE("/plans/:id", h.Plans.Delete, admin...)

	v1.POST("/memberships/assign", h.Memberships.Assign, desk...)
	v1.GET("/memberships", h.Memberships.List, desk...)
	v1.GET("/memberships/qr/:token", h.Memberships.ByQR, desk...)
	v1.POST("/memberships/:id/freeze", h.Memberships.Freeze, desk...)
	v1.POST("/memberships/:id/unfreeze", h.Memberships.Unfreeze, desk...)
	v1.POST("/memberships/:id/expire", h.Memberships.Expire, desk...)
	v1.GET("/members/:id", h.Users.Get, coaching...)
	v1.GET("/members/:id/membership", h.Memberships.ForMember, authed...)

	v1.POST("/payments", h.Payments.Record, desk...)
	v1.GET("/payments", h.Payments.List, desk...)

	v1.POST("/attendance/check-in", h.Attendance.CheckIn,
		chain(jwt, middleware.RequireRole(model.RoleAdmin, model.RoleStaff), g.RateLimit)...)
	v1.POST("/attendance/:id/check-out", h.Attendance.CheckOut, desk...)
	v1.GET("/attendance", h.Attendance.List, coaching...)

	v1.GET("/classes", h.Classes.Schedule, chain(jwt, g.Cache)...)
	v1.POST("/classes", h.Classes.Create, desk...)
	v1.PUT("/classes/:id", h.Classes.Update, desk...)
	v1.DELETE("/classes/:id", h.Classes.Cancel, desk...)
	v1.POST("/classes/:id/book", h.Classes.Book, authed...)
	v1.GET("/classes/:id/bookings", h.Classes.Bookings, coaching...)
	v1.POST("/bookings/:id/cancel", h.Classes.CancelBooking, authed...)
	v1.POST("/bookings/:id/attend", h.Classes.Attend, coaching...)

	v1.POST("/products", h.POS.CreateProduct, admin...)
	v1.PUT("/products/:id", h.POS.UpdateProduct, admin...)
	v1.GET("/products", h.POS.Products, desk...)
	v1.POST("/coupons", h.POS.CreateCoupon, admin...)
	v1.GET("/coupons/:code", h.POS.Coupon, desk...)
	v1.POST("/pos/sales", h.POS.Sell, desk...)

	v1.POST("/payroll", h.Payroll.Create, admin...)
	v1.POST("/payroll/:id/pay", h.Payroll.Pay, admin...)
	v1.GET("/payroll", h.Payroll.List, admin...)

	v1.POST("/progress", h.Progress.Record, authed...)
	v1.GET("/members/:id/progress", h.Progress.ForMember, authed...)
	v1.POST("/workout-plans", h.Progress.CreateWorkoutPlan, role(model.RoleAdmin, model.RoleTrainer)...)
	v1.GET("/members/:id/workout-plans", h.Progress.WorkoutPlans, authed...)

	v1.POST("/notifications", h.Notifications.Send, admin...)
	v1.POST("/notifications/:id/read", h.Notifications.MarkRead, authed...)

	v1.GET("/reports/summary", h.Reports.Summary, admin...)
	v1.GET("/reports/dashboard", h.Reports.Dashboard, desk...)

	registerMe(v1.Group("/me"), h, authed)
}
