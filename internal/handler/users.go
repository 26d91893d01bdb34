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
	"github.com/iliyamo/gym-management/internal/service"
)

// UserAdmin is the privileged user workflow.
type UserAdmin interface {
	CreateUser(ctx context.Context, in service.CreateUserInput) (service.CreateUserResult, error)
	DeleteUser(ctx context.Context, callerID, userID string, expectedRole model.Role) error
	ChangeRole(ctx context.Context, userID string, role model.Role) error
	ListUsers(ctx context.Context, role model.Role, search string) ([]model.Profile, error)
	Profile(ctx context.Context, userID string) (model.Profile, error)
}

// UserHandler serves the privileged user management endpoints.
type UserHandler struct {
	users UserAdmin
	log   *zap.Logger
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(u UserAdmin, log *zap.Logger) *UserHandler {
	return &UserHandler{users: u, log: log}
}

// createUserReq keeps the camelCase field names of the admin-create-user
// contract.
type createUserReq struct {
	UserType         string  `json:"userType"`
	Email            string  `json:"email"`
	Password         string  `json:"password"`
	FullName         string  `json:"fullName"`
	Phone            *string `json:"phone"`
	DateOfBirth      string  `json:"dateOfBirth"`
	Gender           *string `json:"gender"`
	Address          *string `json:"address"`
	EmergencyContact *string `json:"emergencyContact"`
	Specialization   *string `json:"specialization"`
	ExperienceYears  int     `json:"experienceYears"`
	PhotoBase64      string  `json:"photoBase64"`
}

func blankToNil(p *string) *string {
	if p == nil || strings.TrimSpace(*p) == "" {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}

// Create handles POST /v1/admin/users.
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserReq
	if err := c.Bind(&req); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid request body")
	}
	var dob *time.Time
	if req.DateOfBirth != "" {
		d, err := parseDay(req.DateOfBirth)
		if err != nil {
			return errJSON(c, http.StatusBadRequest, "dateOfBirth must be YYYY-MM-DD")
		}
		dob = &d
	}
	in := service.CreateUserInput{
		UserType:         model.Role(strings.ToLower(strings.TrimSpace(req.UserType))),
		Email:            req.Email,
		Password:         req.Password,
		FullName:         req.FullName,
		Phone:            blankToNil(req.Phone),
		DateOfBirth:      dob,
		Gender:           blankToNil(req.Gender),
		Address:          blankToNil(req.Address),
		EmergencyContact: blankToNil(req.EmergencyContact),
		Specialization:   blankToNil(req.Specialization),
		ExperienceYears:  req.ExperienceYears,
		PhotoBase64:      req.PhotoBase64,
	}

	// The upload and the saga may take longer than a plain read.
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*requestTimeout)
	defer cancel()
	res, err := h.users.CreateUser(ctx, in)
	if err != nil {
		return fail(c, h.log, err)
	}
	h.log.Info("user created",
		zap.String("user_id", res.UserID),
		zap.String("role", string(res.Role)),
		zap.String("by", middleware.UserID(c)))
	return c.JSON(http.StatusCreated, res)
}

// Delete handles POST /v1/admin/users/delete.
func (h *UserHandler) Delete(c echo.Context) error {
	var body struct {
		UserID       string `json:"userId"`
		ExpectedRole string `json:"expectedRole"`
	}
	if err := c.Bind(&body); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid request body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	caller := middleware.UserID(c)
	err := h.users.DeleteUser(ctx, caller, body.UserID, model.Role(strings.ToLower(strings.TrimSpace(body.ExpectedRole))))
	if err != nil {
		return fail(c, h.log, err)
	}
	h.log.Info("user deleted", zap.String("user_id", body.UserID), zap.String("by", caller))
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// ChangeRole handles PUT /v1/admin/users/:id/role.
func (h *UserHandler) ChangeRole(c echo.Context) error {
	var body struct {
		Role string `json:"role"`
	}
	if err := c.Bind(&body); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid request body")
	}
	if c.Param("id") == middleware.UserID(c) {
		return errJSON(c, http.StatusBadRequest, "cannot change your own role")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.users.ChangeRole(ctx, c.Param("id"), model.Role(strings.ToLower(body.Role))); err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user_id": c.Param("id"), "role": body.Role})
}

// List handles GET /v1/admin/users?role=&q=.
func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	users, err := h.users.ListUsers(ctx, model.Role(c.QueryParam("role")), strings.TrimSpace(c.QueryParam("q")))
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, users)
}

// Get handles GET /v1/members/:id for desk staff and trainers.
func (h *UserHandler) Get(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.users.Profile(ctx, c.Param("id"))
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, p)
}
