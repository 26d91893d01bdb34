package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/gym-management/internal/model"
	"github.com/iliyamo/gym-management/internal/service"
)

// ProductCatalog manages products sold at the desk.
type ProductCatalog interface {
	Create(ctx context.Context, p *model.Product) error
	Update(ctx context.Context, p model.Product) error
	List(ctx context.Context, includeInactive bool) ([]model.Product, error)
}

// CouponWriter creates coupons.
type CouponWriter interface {
	Create(ctx context.Context, c *model.Coupon) error
}

// CouponChecker resolves a coupon code without redeeming it.
type CouponChecker interface {
	ValidateCoupon(ctx context.Context, code string) (model.Coupon, error)
}

// Seller records a point-of-sale sale.
type Seller interface {
	Sell(ctx context.Context, in service.SaleInput) (service.SaleResult, error)
}

// POSHandler serves the front desk: the product catalogue, coupons and
// sales.
type POSHandler struct {
	products ProductCatalog
	coupons  CouponWriter
	checker  CouponChecker
	sales    Seller
	log      *zap.Logger
}

// NewPOSHandler constructs a POSHandler.
func NewPOSHandler(p ProductCatalog, cw CouponWriter, cc CouponChecker, s Seller, log *zap.Logger) *POSHandler {
	return &POSHandler{products: p, coupons: cw, checker: cc, sales: s, log: log}
}

type productReq struct {
	Name       string `json:"name"`
	SKU        string `json:"sku"`
	PriceCents int64  `json:"price_cents"`
	Stock      int    `json:"stock"`
	IsActive   *bool  `json:"is_active"`
}

func (r productReq) product() (model.Product, string) {
	p := model.Product{
		Name:       strings.TrimSpace(r.Name),
		SKU:        strings.TrimSpace(r.SKU),
		PriceCents: r.PriceCents,
		Stock:      r.Stock,
		IsActive:   r.IsActive == nil || *r.IsActive,
	}
	switch {
	case p.Name == "" || p.SKU == "":
		return p, "name and sku are required"
	case p.PriceCents < 0:
		return p, "price cannot be negative"
	case p.Stock < 0:
		return p, "stock cannot be negative"
	}
	return p, ""
}

// CreateProduct handles POST /v1/products.
func (h *POSHandler) CreateProduct(c echo.Context) error {
	var req productReq
	if err := c.Bind(&req); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid request body")
	}
	p, msg := req.product()
	if msg != "" {
		return errJSON(c, http.StatusBadRequest, msg)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.products.Create(ctx, &p); err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// UpdateProduct handles PUT /v1/products/:id.
func (h *POSHandler) UpdateProduct(c echo.Context) error {
	var req productReq
	if err := c.Bind(&req); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid request body")
	}
	p, msg := req.product()
	if msg != "" {
		return errJSON(c, http.StatusBadRequest, msg)
	}
	p.ID = c.Param("id")
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.products.Update(ctx, p); err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, p)
}

// Products handles GET /v1/products?all=true.
func (h *POSHandler) Products(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	list, err := h.products.List(ctx, queryBool(c, "all"))
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, list)
}

// CreateCoupon handles POST /v1/coupons.
func (h *POSHandler) CreateCoupon(c echo.Context) error {
	var body struct {
		Code          string `json:"code"`
		DiscountType  string `json:"discount_type"`
		DiscountValue int64  `json:"discount_value"`
		MaxUses       *int   `json:"max_uses"`
		ValidFrom     string `json:"valid_from"`
		ValidUntil    string `json:"valid_until"`
	}
	if err := c.Bind(&body); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid request body")
	}
	cp := model.Coupon{
		Code:          strings.TrimSpace(body.Code),
		DiscountType:  strings.ToLower(body.DiscountType),
		DiscountValue: body.DiscountValue,
		MaxUses:       body.MaxUses,
		IsActive:      true,
	}
	switch {
	case cp.Code == "":
		return errJSON(c, http.StatusBadRequest, "code is required")
	case cp.DiscountType != model.DiscountPercent && cp.DiscountType != model.DiscountFixed:
		return errJSON(c, http.StatusBadRequest, "discount_type must be percent or fixed")
	case cp.DiscountValue <= 0, cp.DiscountType == model.DiscountPercent && cp.DiscountValue > 100:
		return errJSON(c, http.StatusBadRequest, "discount_value is out of range")
	case cp.MaxUses != nil && *cp.MaxUses < 1:
		return errJSON(c, http.StatusBadRequest, "max_uses must be at least 1")
	}
	for _, f := range []struct {
		raw string
		dst **time.Time
	}{{body.ValidFrom, &cp.ValidFrom}, {body.ValidUntil, &cp.ValidUntil}} {
		t, err := parseTime(f.raw)
		if err != nil {
			return errJSON(c, http.StatusBadRequest, err.Error())
		}
		if !t.IsZero() {
			*f.dst = &t
		}
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.coupons.Create(ctx, &cp); err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, cp)
}

// Coupon handles GET /v1/coupons/:code and answers 422 when the coupon
// cannot be redeemed now.
func (h *POSHandler) Coupon(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	cp, err := h.checker.ValidateCoupon(ctx, strings.ToUpper(strings.TrimSpace(c.Param("code"))))
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, cp)
}

// Sell handles POST /v1/pos/sales.
func (h *POSHandler) Sell(c echo.Context) error {
	var body struct {
		UserID     string             `json:"user_id"`
		Items      []service.SaleLine `json:"items"`
		Method     string             `json:"method"`
		CouponCode string             `json:"coupon_code"`
	}
	if err := c.Bind(&body); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid request body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.sales.Sell(ctx, service.SaleInput{
		UserID:     body.UserID,
		Items:      body.Items,
		Method:     model.PaymentMethod(strings.ToLower(body.Method)),
		CouponCode: strings.ToUpper(strings.TrimSpace(body.CouponCode)),
	})
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, res)
}
