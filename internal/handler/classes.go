package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/gym-management/internal/middleware"
	"github.com/iliyamo/gym-management/internal/model"
)

// ClassOps is the class and booking workflow the handler drives.
type ClassOps interface {
	Create(ctx context.Context, c model.Class) (model.Class, error)
	Update(ctx context.Context, c model.Class) (model.Class, error)
	Cancel(ctx context.Context, id string) error
	Schedule(ctx context.Context, from, to time.Time) ([]model.Class, error)
	Book(ctx context.Context, classID, userID string) (model.Booking, error)
	CancelBooking(ctx context.Context, bookingID, callerID string, privileged bool) error
	MarkAttended(ctx context.Context, bookingID string) error
	MarkNoShow(ctx context.Context, bookingID string) error
	ClassBookings(ctx context.Context, classID string) ([]model.Booking, error)
	UserBookings(ctx context.Context, userID string) ([]model.Booking, error)
}

// ClassHandler serves the class schedule and bookings.
type ClassHandler struct {
	classes ClassOps
	log     *zap.Logger
}

// NewClassHandler constructs a ClassHandler.
func NewClassHandler(cl ClassOps, log *zap.Logger) *ClassHandler {
	return &ClassHandler{classes: cl, log: log}
}

type classReq struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	TrainerID   *string `json:"trainer_id"`
	StartsAt    string  `json:"starts_at"`
	EndsAt      string  `json:"ends_at"`
	Capacity    int     `json:"capacity"`
	Location    *string `json:"location"`
}

func (r classReq) class() (model.Class, error) {
	starts, err := parseTime(r.StartsAt)
	if err != nil {
		return model.Class{}, err
	}
	ends, err := parseTime(r.EndsAt)
	if err != nil {
		return model.Class{}, err
	}
	return model.Class{
		Name:        r.Name,
		Description: blankToNil(r.Description),
		TrainerID:   blankToNil(r.TrainerID),
		StartsAt:    starts,
		EndsAt:      ends,
		Capacity:    r.Capacity,
		Location:    blankToNil(r.Location),
	}, nil
}

// Create handles POST /v1/classes.
func (h *ClassHandler) Create(c echo.Context) error {
	var req classReq
	if err := c.Bind(&req); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid request body")
	}
	cl, err := req.class()
	if err != nil {
		return errJSON(c, http.StatusBadRequest, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.classes.Create(ctx, cl)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, out)
}

// Update handles PUT /v1/classes/:id.
func (h *ClassHandler) Update(c echo.Context) error {
	var req classReq
	if err := c.Bind(&req); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid request body")
	}
	cl, err := req.class()
	if err != nil {
		return errJSON(c, http.StatusBadRequest, err.Error())
	}
	cl.ID = c.Param("id")
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.classes.Update(ctx, cl)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Cancel handles DELETE /v1/classes/:id.
func (h *ClassHandler) Cancel(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.classes.Cancel(ctx, c.Param("id")); err != nil {
		return fail(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Schedule handles GET /v1/classes?from=&to=.
func (h *ClassHandler) Schedule(c echo.Context) error {
	from, to, err := dayRange(c)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	list, err := h.classes.Schedule(ctx, from, to)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, list)
}

// Book handles POST /v1/classes/:id/book.  Members book for themselves;
// desk staff may pass user_id to book on a member's behalf.
func (h *ClassHandler) Book(c echo.Context) error {
	var body struct {
		UserID string `json:"user_id"`
	}
	_ = c.Bind(&body)
	userID := middleware.UserID(c)
	if uid := strings.TrimSpace(body.UserID); uid != "" && uid != userID {
		if !middleware.IsStaff(c) {
			return errJSON(c, http.StatusForbidden, "forbidden")
		}
		userID = uid
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.classes.Book(ctx, c.Param("id"), userID)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// CancelBooking handles POST /v1/bookings/:id/cancel.  Members may only
// cancel their own bookings; desk staff may cancel any.
func (h *ClassHandler) CancelBooking(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.classes.CancelBooking(ctx, c.Param("id"), middleware.UserID(c), middleware.IsStaff(c)); err != nil {
		return fail(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Attend handles POST /v1/bookings/:id/attend; {"attended": false} records
// a no-show.
func (h *ClassHandler) Attend(c echo.Context) error {
	body := struct {
		Attended *bool `json:"attended"`
	}{}
	_ = c.Bind(&body)
	ctx, cancel := reqCtx(c)
	defer cancel()
	mark := h.classes.MarkAttended
	if body.Attended != nil && !*body.Attended {
		mark = h.classes.MarkNoShow
	}
	if err := mark(ctx, c.Param("id")); err != nil {
		return fail(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Bookings lists the bookings of one class.
func (h *ClassHandler) Bookings(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	list, err := h.classes.ClassBookings(ctx, c.Param("id"))
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, list)
}

// MyBookings lists the caller's bookings.
func (h *ClassHandler) MyBookings(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	list, err := h.classes.UserBookings(ctx, middleware.UserID(c))
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, list)
}
