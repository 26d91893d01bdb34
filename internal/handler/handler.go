// Package handler holds the echo handlers.  Every error response has the
// shape {"error": "<message>"}.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/gym-management/internal/repository"
	"github.com/iliyamo/gym-management/internal/service"
)

const requestTimeout = 5 * time.Second

// reqCtx bounds the store calls made by one request.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

func errJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"error": msg})
}

// statusOf maps domain errors to HTTP status codes.  Zero means the error
// is not a client error.
func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrSelfDelete):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrForbidden), errors.Is(err, service.ErrMembershipInactive):
		return http.StatusForbidden
	case errors.Is(err, repository.ErrConflict),
		errors.Is(err, repository.ErrEmailExists),
		errors.Is(err, service.ErrRoleMismatch),
		errors.Is(err, service.ErrAlreadyCheckedIn),
		errors.Is(err, service.ErrAlreadyBooked),
		errors.Is(err, service.ErrClassFull),
		errors.Is(err, service.ErrClassClosed),
		errors.Is(err, service.ErrOutOfStock):
		return http.StatusConflict
	case errors.Is(err, service.ErrCouponInvalid):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return 0
}

// fail writes err as JSON.  Unexpected errors are logged and hidden
// behind a generic message.
func fail(c echo.Context, log *zap.Logger, err error) error {
	if status := statusOf(err); status != 0 {
		msg := err.Error()
		if status == http.StatusNotFound {
			msg = "not found"
		}
		return errJSON(c, status, msg)
	}
	log.Error("request failed",
		zap.String("method", c.Request().Method),
		zap.String("path", c.Path()),
		zap.Error(err))
	return errJSON(c, http.StatusInternalServerError, "internal error")
}

// parseDay accepts YYYY-MM-DD or RFC 3339 and returns midnight UTC of
// that day.  An empty string yields the zero time.
func parseDay(s string) (time.Time, error) {
	t, err := parseTime(s)
	if err != nil || t.IsZero() {
		return t, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// parseTime accepts RFC 3339 or YYYY-MM-DD.  An empty string yields the
// zero time.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, errors.New("dates must be YYYY-MM-DD or RFC 3339")
	}
	return t, nil
}

// dayRange reads ?from=&to= as whole days; to is inclusive on the wire and
// exclusive in the returned range.
func dayRange(c echo.Context) (from, to time.Time, err error) {
	if from, err = parseDay(c.QueryParam("from")); err != nil {
		return
	}
	if to, err = parseDay(c.QueryParam("to")); err != nil {
		return
	}
	if !to.IsZero() {
		to = to.AddDate(0, 0, 1)
	}
	return
}

func queryBool(c echo.Context, name string) bool {
	b, _ := strconv.ParseBool(c.QueryParam(name))
	return b
}
