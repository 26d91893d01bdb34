package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/gym-management/internal/service"
)

// Reporter computes business reports.
type Reporter interface {
	Summary(ctx context.Context, from, to time.Time) (service.Summary, error)
	Dashboard(ctx context.Context) (service.Dashboard, error)
}

// ReportHandler serves the summary and dashboard reports.
type ReportHandler struct {
	reports Reporter
	log     *zap.Logger
	now     func() time.Time
}

// NewReportHandler constructs a ReportHandler.
func NewReportHandler(r Reporter, log *zap.Logger) *ReportHandler {
	return &ReportHandler{reports: r, log: log, now: time.Now}
}

// Summary handles GET /v1/reports/summary?from=&to=.  Without a range it
// covers the current month to date.
func (h *ReportHandler) Summary(c echo.Context) error {
	from, to, err := dayRange(c)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, err.Error())
	}
	now := h.now().UTC()
	if from.IsZero() {
		from = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	if to.IsZero() {
		to = time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	s, err := h.reports.Summary(ctx, from, to)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, s)
}

// Dashboard handles GET /v1/reports/dashboard.
func (h *ReportHandler) Dashboard(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	d, err := h.reports.Dashboard(ctx)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, d)
}
