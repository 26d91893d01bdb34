package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/gym-management/internal/middleware"
	"github.com/iliyamo/gym-management/internal/model"
)

// MembershipOps is the membership lifecycle the handler drives.
type MembershipOps interface {
	Assign(ctx context.Context, userID, planID string, start time.Time) (model.Membership, error)
	Get(ctx context.Context, id string) (model.Membership, error)
	ForUser(ctx context.Context, userID string) (model.Membership, error)
	ResolveQR(ctx context.Context, token string) (model.Membership, error)
	List(ctx context.Context, status model.MembershipStatus) ([]model.Membership, error)
	Freeze(ctx context.Context, id string, from, until time.Time) (model.Membership, error)
	Unfreeze(ctx context.Context, id string) (model.Membership, error)
	Expire(ctx context.Context, id string) (model.Membership, error)
}

// MembershipHandler serves membership assignment and status changes.
type MembershipHandler struct {
	memberships MembershipOps
	log         *zap.Logger
}

// NewMembershipHandler constructs a MembershipHandler.
func NewMembershipHandler(m MembershipOps, log *zap.Logger) *MembershipHandler {
	return &MembershipHandler{memberships: m, log: log}
}

// membershipView adds the read-time status to a stored membership.
type membershipView struct {
	model.Membership
	EffectiveStatus model.MembershipStatus `json:"effective_status"`
	DaysRemaining   int                    `json:"days_remaining"`
}

func view(m model.Membership) membershipView {
	now := time.Now().UTC()
	return membershipView{Membership: m, EffectiveStatus: m.EffectiveStatus(now), DaysRemaining: m.DaysRemaining(now)}
}

// Assign handles POST /v1/memberships/assign.
func (h *MembershipHandler) Assign(c echo.Context) error {
	var body struct {
		UserID    string `json:"user_id"`
		PlanID    string `json:"plan_id"`
		StartDate string `json:"start_date"`
	}
	if err := c.Bind(&body); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid request body")
	}
	start, err := parseDay(body.StartDate)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, err.Error())
	}
	if start.IsZero() {
		start = time.Now().UTC()
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	m, err := h.memberships.Assign(ctx, body.UserID, body.PlanID, start)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, view(m))
}

// List handles GET /v1/memberships?status=.
func (h *MembershipHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	list, err := h.memberships.List(ctx, model.MembershipStatus(c.QueryParam("status")))
	if err != nil {
		return fail(c, h.log, err)
	}
	out := make([]membershipView, 0, len(list))
	for _, m := range list {
		out = append(out, view(m))
	}
	return c.JSON(http.StatusOK, out)
}

// ForMember handles GET /v1/members/:id/membership.  Members may only read
// their own.
func (h *MembershipHandler) ForMember(c echo.Context) error {
	id := c.Param("id")
	if !middleware.IsStaff(c) && id != middleware.UserID(c) {
		return errJSON(c, http.StatusForbidden, "forbidden")
	}
	return h.forUser(c, id)
}

// Mine handles GET /v1/me/membership.
func (h *MembershipHandler) Mine(c echo.Context) error {
	return h.forUser(c, middleware.UserID(c))
}

func (h *MembershipHandler) forUser(c echo.Context, userID string) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	m, err := h.memberships.ForUser(ctx, userID)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, view(m))
}

// ByQR handles GET /v1/memberships/qr/:token.
func (h *MembershipHandler) ByQR(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	m, err := h.memberships.ResolveQR(ctx, c.Param("token"))
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, view(m))
}

// Freeze handles POST /v1/memberships/:id/freeze.
func (h *MembershipHandler) Freeze(c echo.Context) error {
	var body struct {
		From  string `json:"from"`
		Until string `json:"until"`
	}
	if err := c.Bind(&body); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid request body")
	}
	from, err := parseDay(body.From)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, err.Error())
	}
	until, err := parseDay(body.Until)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, err.Error())
	}
	return h.transition(c, func(ctx context.Context, id string) (model.Membership, error) {
		return h.memberships.Freeze(ctx, id, from, until)
	})
}

// Unfreeze handles POST /v1/memberships/:id/unfreeze.
func (h *MembershipHandler) Unfreeze(c echo.Context) error {
	return h.transition(c, h.memberships.Unfreeze)
}

// Expire handles POST /v1/memberships/:id/expire.
func (h *MembershipHandler) Expire(c echo.Context) error {
	return h.transition(c, h.memberships.Expire)
}

func (h *MembershipHandler) transition(c echo.Context, fn func(ctx context.Context, id string) (model.Membership, error)) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	m, err := fn(ctx, c.Param("id"))
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, view(m))
}
