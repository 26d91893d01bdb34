package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/gym-management/internal/config"
	"github.com/iliyamo/gym-management/internal/handler"
	"github.com/iliyamo/gym-management/internal/model"
	"github.com/iliyamo/gym-management/internal/repository"
	"github.com/iliyamo/gym-management/internal/utils"
)

const (
	secret    = "router-secret"
	appOrigin = "https://app.gym.test"
)

type storedRoles map[string]model.Role

func (s storedRoles) Get(_ context.Context, userID string) (model.Role, error) {
	r, ok := s[userID]
	if !ok {
		return "", repository.ErrNotFound
	}
	return r, nil
}

type plans struct{}

func (plans) Create(context.Context, *model.Plan) error { return nil }
func (plans) Update(context.Context, model.Plan) error  { return nil }
func (plans) Deactivate(context.Context, string) error  { return nil }
func (plans) GetByID(context.Context, string) (model.Plan, error) {
	return model.Plan{}, repository.ErrNotFound
}
func (plans) List(context.Context, bool) ([]model.Plan, error) { return []model.Plan{}, nil }

type db struct{}

func (db) PingContext(context.Context) error { return nil }

// newServer mounts the API with handlers whose dependencies are nil apart
// from the plan catalogue; only requests stopped by middleware, health
// checks and plan reads may reach them.
func newServer() *echo.Echo {
	log := zap.NewNop()
	e := echo.New()
	Register(e, Handlers{
		Health:        handler.Health(db{}),
		Auth:          handler.NewAuthHandler(config.Config{JWTSecret: secret}, nil, nil, nil, nil, log),
		Users:         handler.NewUserHandler(nil, log),
		Plans:         handler.NewPlanHandler(plans{}, log),
		Memberships:   handler.NewMembershipHandler(nil, log),
		Payments:      handler.NewPaymentHandler(nil, log),
		Attendance:    handler.NewAttendanceHandler(nil, log),
		Classes:       handler.NewClassHandler(nil, log),
		POS:           handler.NewPOSHandler(nil, nil, nil, nil, log),
		Payroll:       handler.NewPayrollHandler(nil, log),
		Progress:      handler.NewProgressHandler(nil, log),
		Notifications: handler.NewNotificationHandler(nil, log),
		Reports:       handler.NewReportHandler(nil, log),
	}, Guards{
		JWTSecret:   secret,
		CORSOrigins: []string{appOrigin},
		Roles:       storedRoles{"admin-1": model.RoleAdmin, "demoted": model.RoleStaff},
		Log:         log,
	})
	return e
}

func request(t *testing.T, e *echo.Echo, method, path, user string, role model.Role) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if user != "" {
		tok, err := utils.NewAccessToken(secret, user, string(role), 5)
		require.NoError(t, err)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
	}
	if method == http.MethodOptions {
		req.Header.Set(echo.HeaderOrigin, appOrigin)
		req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRouteGuards(t *testing.T) {
	e := newServer()
	cases := []struct {
		name   string
		method string
		path   string
		user   string
		role   model.Role
		want   int
	}{
		{"health is public", http.MethodGet, "/healthz", "", "", http.StatusOK},
		{"plans are public", http.MethodGet, "/v1/plans", "", "", http.StatusOK},
		{"plan not found", http.MethodGet, "/v1/plans/p-x", "", "", http.StatusNotFound},
		{"plan create needs a session", http.MethodPost, "/v1/plans", "", "", http.StatusUnauthorized},
		{"plan create is admin only", http.MethodPost, "/v1/plans", "m-1", model.RoleMember, http.StatusForbidden},
		{"members cannot assign", http.MethodPost, "/v1/memberships/assign", "m-1", model.RoleMember, http.StatusForbidden},
		{"trainers cannot take payments", http.MethodPost, "/v1/payments", "t-1", model.RoleTrainer, http.StatusForbidden},
		{"members cannot check in themselves", http.MethodPost, "/v1/attendance/check-in", "m-1", model.RoleMember, http.StatusForbidden},
		{"staff cannot run payroll", http.MethodPost, "/v1/payroll", "s-1", model.RoleStaff, http.StatusForbidden},
		{"members have no payroll", http.MethodGet, "/v1/me/payroll", "m-1", model.RoleMember, http.StatusForbidden},
		{"staff cannot read summary", http.MethodGet, "/v1/reports/summary", "s-1", model.RoleStaff, http.StatusForbidden},
		{"members cannot write workout plans", http.MethodPost, "/v1/workout-plans", "m-1", model.RoleMember, http.StatusForbidden},
		{"schedule needs a session", http.MethodGet, "/v1/classes", "", "", http.StatusUnauthorized},
		{"my records need a session", http.MethodGet, "/v1/me/membership", "", "", http.StatusUnauthorized},
		{"admin users need a session", http.MethodPost, "/v1/admin/users", "", "", http.StatusUnauthorized},
		{"stale admin claim is rejected", http.MethodPost, "/v1/admin/users", "demoted", model.RoleAdmin, http.StatusForbidden},
		{"account without a role row is rejected", http.MethodPost, "/v1/admin/users/delete", "ghost", model.RoleAdmin, http.StatusForbidden},
		{"create user preflight", http.MethodOptions, "/v1/admin/users", "", "", http.StatusNoContent},
		{"delete user preflight", http.MethodOptions, "/v1/admin/users/delete", "", "", http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := request(t, e, tc.method, tc.path, tc.user, tc.role)
			assert.Equal(t, tc.want, rec.Code)
			if tc.method == http.MethodOptions {
				assert.Equal(t, appOrigin, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
				assert.Contains(t, rec.Header().Get(echo.HeaderAccessControlAllowMethods), http.MethodPost)
			}
		})
	}
}
