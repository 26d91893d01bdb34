package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/gym-management/internal/middleware"
	"github.com/iliyamo/gym-management/internal/model"
)

// PlanStore is the membership plan catalogue.
type PlanStore interface {
	Create(ctx context.Context, p *model.Plan) error
	Update(ctx context.Context, p model.Plan) error
	Deactivate(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (model.Plan, error)
	List(ctx context.Context, includeInactive bool) ([]model.Plan, error)
}

// PlanHandler manages the membership plan catalogue.  Plans are simple
// rows, so it talks to the store directly.
type PlanHandler struct {
	plans PlanStore
	log   *zap.Logger
}

// NewPlanHandler constructs a PlanHandler.
func NewPlanHandler(p PlanStore, log *zap.Logger) *PlanHandler {
	return &PlanHandler{plans: p, log: log}
}

type planReq struct {
	Name           string   `json:"name"`
	Description    *string  `json:"description"`
	PriceCents     int64    `json:"price_cents"`
	DurationMonths int      `json:"duration_months"`
	Features       []string `json:"features"`
	IsActive       *bool    `json:"is_active"`
}

func (r planReq) plan() (model.Plan, error) {
	p := model.Plan{
		Name:           r.Name,
		Description:    blankToNil(r.Description),
		PriceCents:     r.PriceCents,
		DurationMonths: r.DurationMonths,
		Features:       r.Features,
		IsActive:       r.IsActive == nil || *r.IsActive,
	}
	if p.Features == nil {
		p.Features = []string{}
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

// Create handles POST /v1/plans.
func (h *PlanHandler) Create(c echo.Context) error {
	var req planReq
	if err := c.Bind(&req); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid request body")
	}
	p, err := req.plan()
	if err != nil {
		return errJSON(c, http.StatusBadRequest, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.plans.Create(ctx, &p); err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// Update handles PUT /v1/plans/:id.
func (h *PlanHandler) Update(c echo.Context) error {
	var req planReq
	if err := c.Bind(&req); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid request body")
	}
	p, err := req.plan()
	if err != nil {
		return errJSON(c, http.StatusBadRequest, err.Error())
	}
	p.ID = c.Param("id")
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.plans.Update(ctx, p); err != nil {
		return fail(c, h.log, err)
	}
	updated, err := h.plans.GetByID(ctx, p.ID)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, updated)
}

// Delete retires a plan.  Memberships keep pointing at it.
func (h *PlanHandler) Delete(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.plans.Deactivate(ctx, c.Param("id")); err != nil {
		return fail(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// List handles GET /v1/plans.  ?all=true includes retired plans and is
// honoured for admins only.
func (h *PlanHandler) List(c echo.Context) error {
	all := queryBool(c, "all")
	if all && middleware.Role(c) != model.RoleAdmin {
		return errJSON(c, http.StatusForbidden, "forbidden")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	plans, err := h.plans.List(ctx, all)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, plans)
}

// Get handles GET /v1/plans/:id.
func (h *PlanHandler) Get(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.plans.GetByID(ctx, c.Param("id"))
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, p)
}
