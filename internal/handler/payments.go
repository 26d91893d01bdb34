package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/gym-management/internal/middleware"
	"github.com/iliyamo/gym-management/internal/model"
	"github.com/iliyamo/gym-management/internal/repository"
	"github.com/iliyamo/gym-management/internal/service"
)

// PaymentOps records and lists payments.
type PaymentOps interface {
	Record(ctx context.Context, in service.PaymentInput) (model.Payment, error)
	List(ctx context.Context, f repository.PaymentFilter) ([]model.Payment, error)
}

// PaymentHandler serves payment confirmation and history.
type PaymentHandler struct {
	payments PaymentOps
	log      *zap.Logger
}

// NewPaymentHandler constructs a PaymentHandler.
func NewPaymentHandler(p PaymentOps, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{payments: p, log: log}
}

// Record handles POST /v1/payments.  Amounts are in cents.
func (h *PaymentHandler) Record(c echo.Context) error {
	var body struct {
		UserID        string  `json:"user_id"`
		AmountCents   int64   `json:"amount_cents"`
		DiscountCents int64   `json:"discount_cents"`
		Method        string  `json:"method"`
		Type          string  `json:"type"`
		MembershipID  string  `json:"membership_id"`
		CouponCode    string  `json:"coupon_code"`
		Notes         *string `json:"notes"`
	}
	if err := c.Bind(&body); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid request body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.payments.Record(ctx, service.PaymentInput{
		UserID:        body.UserID,
		AmountCents:   body.AmountCents,
		DiscountCents: body.DiscountCents,
		Method:        model.PaymentMethod(strings.ToLower(body.Method)),
		Type:          model.PaymentType(strings.ToLower(body.Type)),
		MembershipID:  body.MembershipID,
		CouponCode:    body.CouponCode,
		Notes:         blankToNil(body.Notes),
	})
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// List handles GET /v1/payments?user_id=&from=&to=.
func (h *PaymentHandler) List(c echo.Context) error {
	from, to, err := dayRange(c)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, err.Error())
	}
	return h.list(c, repository.PaymentFilter{UserID: c.QueryParam("user_id"), From: from, To: to})
}

// Mine handles GET /v1/me/payments.
func (h *PaymentHandler) Mine(c echo.Context) error {
	return h.list(c, repository.PaymentFilter{UserID: middleware.UserID(c)})
}

func (h *PaymentHandler) list(c echo.Context, f repository.PaymentFilter) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	list, err := h.payments.List(ctx, f)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, list)
}
