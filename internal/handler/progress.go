package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/gym-management/internal/middleware"
	"github.com/iliyamo/gym-management/internal/model"
)

// ProgressStore keeps body measurements and workout plans.
type ProgressStore interface {
	Create(ctx context.Context, p *model.Progress) error
	ListForUser(ctx context.Context, userID string) ([]model.Progress, error)
	CreateWorkoutPlan(ctx context.Context, w *model.WorkoutPlan) error
	ListWorkoutPlans(ctx context.Context, memberID string) ([]model.WorkoutPlan, error)
}

// ProgressHandler serves body measurements and workout plans.  Members
// may only touch their own records; staff roles and trainers see all.
type ProgressHandler struct {
	progress ProgressStore
	log      *zap.Logger
	now      func() time.Time
}

// NewProgressHandler constructs a ProgressHandler.
func NewProgressHandler(p ProgressStore, log *zap.Logger) *ProgressHandler {
	return &ProgressHandler{progress: p, log: log, now: time.Now}
}

func canSeeMember(c echo.Context, memberID string) bool {
	if middleware.IsStaff(c) || middleware.Role(c) == model.RoleTrainer {
		return true
	}
	return memberID == middleware.UserID(c)
}

// Record handles POST /v1/progress.
func (h *ProgressHandler) Record(c echo.Context) error {
	var body struct {
		UserID       string          `json:"user_id"`
		WeightKg     *float64        `json:"weight_kg"`
		BodyFatPct   *float64        `json:"body_fat_pct"`
		Measurements json.RawMessage `json:"measurements"`
		Notes        *string         `json:"notes"`
		RecordedAt   string          `json:"recorded_at"`
	}
	if err := c.Bind(&body); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid request body")
	}
	if body.UserID == "" {
		body.UserID = middleware.UserID(c)
	}
	if !canSeeMember(c, body.UserID) {
		return errJSON(c, http.StatusForbidden, "forbidden")
	}
	switch {
	case body.WeightKg == nil && body.BodyFatPct == nil && len(body.Measurements) == 0:
		return errJSON(c, http.StatusBadRequest, "nothing to record")
	case body.WeightKg != nil && *body.WeightKg <= 0:
		return errJSON(c, http.StatusBadRequest, "weight_kg must be positive")
	case body.BodyFatPct != nil && (*body.BodyFatPct < 0 || *body.BodyFatPct > 100):
		return errJSON(c, http.StatusBadRequest, "body_fat_pct must be between 0 and 100")
	case len(body.Measurements) > 0 && !json.Valid(body.Measurements):
		return errJSON(c, http.StatusBadRequest, "measurements must be JSON")
	}
	at, err := parseTime(body.RecordedAt)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, err.Error())
	}
	if at.IsZero() {
		at = h.now().UTC()
	}
	by := middleware.UserID(c)
	p := model.Progress{
		UserID:       body.UserID,
		RecordedBy:   &by,
		WeightKg:     body.WeightKg,
		BodyFatPct:   body.BodyFatPct,
		Measurements: body.Measurements,
		Notes:        blankToNil(body.Notes),
		RecordedAt:   at,
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.progress.Create(ctx, &p); err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// ForMember handles GET /v1/members/:id/progress.
func (h *ProgressHandler) ForMember(c echo.Context) error {
	id := c.Param("id")
	if !canSeeMember(c, id) {
		return errJSON(c, http.StatusForbidden, "forbidden")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	list, err := h.progress.ListForUser(ctx, id)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, list)
}

// CreateWorkoutPlan handles POST /v1/workout-plans.
func (h *ProgressHandler) CreateWorkoutPlan(c echo.Context) error {
	var body struct {
		MemberID  string          `json:"member_id"`
		Title     string          `json:"title"`
		Plan      json.RawMessage `json:"plan"`
		StartDate string          `json:"start_date"`
		EndDate   string          `json:"end_date"`
	}
	if err := c.Bind(&body); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid request body")
	}
	body.Title = strings.TrimSpace(body.Title)
	if body.MemberID == "" || body.Title == "" {
		return errJSON(c, http.StatusBadRequest, "member_id and title are required")
	}
	if len(body.Plan) == 0 || !json.Valid(body.Plan) {
		return errJSON(c, http.StatusBadRequest, "plan must be JSON")
	}
	start, err := parseDay(body.StartDate)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, err.Error())
	}
	end, err := parseDay(body.EndDate)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, err.Error())
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return errJSON(c, http.StatusBadRequest, "end_date is before start_date")
	}
	w := model.WorkoutPlan{MemberID: body.MemberID, Title: body.Title, Plan: body.Plan}
	if middleware.Role(c) == model.RoleTrainer {
		id := middleware.UserID(c)
		w.TrainerID = &id
	}
	if !start.IsZero() {
		w.StartDate = &start
	}
	if !end.IsZero() {
		w.EndDate = &end
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.progress.CreateWorkoutPlan(ctx, &w); err != nil {
		return fail(c, h.log, err)
	}
	w.CreatedAt = h.now().UTC()
	return c.JSON(http.StatusCreated, w)
}

// WorkoutPlans handles GET /v1/members/:id/workout-plans.
func (h *ProgressHandler) WorkoutPlans(c echo.Context) error {
	id := c.Param("id")
	if !canSeeMember(c, id) {
		return errJSON(c, http.StatusForbidden, "forbidden")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	list, err := h.progress.ListWorkoutPlans(ctx, id)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, list)
}
