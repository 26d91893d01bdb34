package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/gym-management/internal/middleware"
	"github.com/iliyamo/gym-management/internal/model"
	"github.com/iliyamo/gym-management/internal/service"
)

// PayrollOps creates, pays and lists payroll records.
type PayrollOps interface {
	Create(ctx context.Context, in service.PayrollInput) (model.Payroll, error)
	Pay(ctx context.Context, id string) (model.Payroll, error)
	List(ctx context.Context, staffID string, status model.PayrollStatus) ([]model.Payroll, error)
}

// PayrollHandler serves staff payroll.
type PayrollHandler struct {
	payroll PayrollOps
	log     *zap.Logger
}

// NewPayrollHandler constructs a PayrollHandler.
func NewPayrollHandler(p PayrollOps, log *zap.Logger) *PayrollHandler {
	return &PayrollHandler{payroll: p, log: log}
}

// Create handles POST /v1/payroll.
func (h *PayrollHandler) Create(c echo.Context) error {
	var body struct {
		StaffID         string `json:"staff_id"`
		PeriodStart     string `json:"period_start"`
		PeriodEnd       string `json:"period_end"`
		SalaryCents     int64  `json:"salary_cents"`
		BonusCents      int64  `json:"bonus_cents"`
		DeductionsCents int64  `json:"deductions_cents"`
	}
	if err := c.Bind(&body); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid request body")
	}
	start, err := parseDay(body.PeriodStart)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, err.Error())
	}
	end, err := parseDay(body.PeriodEnd)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.payroll.Create(ctx, service.PayrollInput{
		StaffID:         body.StaffID,
		PeriodStart:     start,
		PeriodEnd:       end,
		SalaryCents:     body.SalaryCents,
		BonusCents:      body.BonusCents,
		DeductionsCents: body.DeductionsCents,
	})
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// Pay handles POST /v1/payroll/:id/pay.
func (h *PayrollHandler) Pay(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.payroll.Pay(ctx, c.Param("id"))
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, p)
}

// List handles GET /v1/payroll?staff_id=&status=.
func (h *PayrollHandler) List(c echo.Context) error {
	return h.list(c, c.QueryParam("staff_id"))
}

// Mine handles GET /v1/me/payroll for staff and trainers.
func (h *PayrollHandler) Mine(c echo.Context) error {
	return h.list(c, middleware.UserID(c))
}

func (h *PayrollHandler) list(c echo.Context, staffID string) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	list, err := h.payroll.List(ctx, staffID, model.PayrollStatus(c.QueryParam("status")))
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, list)
}
