package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/gym-management/internal/middleware"
	"github.com/iliyamo/gym-management/internal/model"
)

// NotificationStore reads and writes in-app notifications.
type NotificationStore interface {
	Create(ctx context.Context, n *model.Notification) error
	ListForUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]model.Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
}

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 200
)

// NotificationHandler serves the notification inbox.
type NotificationHandler struct {
	notes NotificationStore
	log   *zap.Logger
}

// NewNotificationHandler constructs a NotificationHandler.
func NewNotificationHandler(n NotificationStore, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{notes: n, log: log}
}

// Mine handles GET /v1/me/notifications?unread=true&limit=.
func (h *NotificationHandler) Mine(c echo.Context) error {
	limit := defaultNotificationLimit
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return errJSON(c, http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = min(n, maxNotificationLimit)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	list, err := h.notes.ListForUser(ctx, middleware.UserID(c), queryBool(c, "unread"), limit)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, list)
}

// MarkRead handles POST /v1/notifications/:id/read for the caller's own
// notifications.
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.notes.MarkRead(ctx, c.Param("id"), middleware.UserID(c)); err != nil {
		return fail(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Send handles POST /v1/notifications, an admin message to one user.
func (h *NotificationHandler) Send(c echo.Context) error {
	var body struct {
		UserID  string `json:"user_id"`
		Type    string `json:"type"`
		Title   string `json:"title"`
		Message string `json:"message"`
	}
	if err := c.Bind(&body); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid request body")
	}
	n := model.Notification{
		UserID:  body.UserID,
		Type:    model.NotificationType(strings.ToLower(body.Type)),
		Title:   strings.TrimSpace(body.Title),
		Message: strings.TrimSpace(body.Message),
	}
	if n.Type == "" {
		n.Type = model.NotificationInfo
	}
	switch {
	case n.UserID == "" || n.Title == "" || n.Message == "":
		return errJSON(c, http.StatusBadRequest, "user_id, title and message are required")
	case !n.Type.Valid():
		return errJSON(c, http.StatusBadRequest, "unknown notification type")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.notes.Create(ctx, &n); err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, n)
}
