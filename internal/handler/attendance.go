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

// AttendanceOps is the attendance workflow the handler drives.
type AttendanceOps interface {
	CheckIn(ctx context.Context, qrToken, userID string) (model.Attendance, error)
	CheckOut(ctx context.Context, id string) error
	ForDay(ctx context.Context, userID string, day time.Time) ([]model.Attendance, error)
	History(ctx context.Context, userID string, from, to time.Time) ([]model.Attendance, error)
}

// AttendanceHandler serves check-in, check-out and visit history.
type AttendanceHandler struct {
	attendance AttendanceOps
	log        *zap.Logger
}

// NewAttendanceHandler constructs an AttendanceHandler.
func NewAttendanceHandler(a AttendanceOps, log *zap.Logger) *AttendanceHandler {
	return &AttendanceHandler{attendance: a, log: log}
}

// CheckIn handles POST /v1/attendance/check-in with a scanned QR token or
// a user id typed in at the desk.
func (h *AttendanceHandler) CheckIn(c echo.Context) error {
	var body struct {
		QRToken string `json:"qr_token"`
		UserID  string `json:"user_id"`
	}
	if err := c.Bind(&body); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid request body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	a, err := h.attendance.CheckIn(ctx, body.QRToken, body.UserID)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, a)
}

// CheckOut handles POST /v1/attendance/:id/check-out.
func (h *AttendanceHandler) CheckOut(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.attendance.CheckOut(ctx, c.Param("id")); err != nil {
		return fail(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// List handles GET /v1/attendance?date=&user_id=; the date defaults to today.
func (h *AttendanceHandler) List(c echo.Context) error {
	day, err := parseDay(c.QueryParam("date"))
	if err != nil {
		return errJSON(c, http.StatusBadRequest, err.Error())
	}
	if day.IsZero() {
		day = time.Now().UTC()
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	list, err := h.attendance.ForDay(ctx, c.QueryParam("user_id"), day)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, list)
}

// Mine handles GET /v1/me/attendance?from=&to=; the default is the last 30 days.
func (h *AttendanceHandler) Mine(c echo.Context) error {
	from, to, err := dayRange(c)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, err.Error())
	}
	if to.IsZero() {
		to = time.Now().UTC().Add(time.Minute)
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	list, err := h.attendance.History(ctx, middleware.UserID(c), from, to)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, list)
}
