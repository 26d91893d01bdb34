package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/gym-management/internal/model"
	"github.com/iliyamo/gym-management/internal/queue"
	"github.com/iliyamo/gym-management/internal/repository"
)

// ProductStore reads products and takes stock.
type ProductStore interface {
	GetForUpdate(ctx context.Context, id string) (model.Product, error)
	DecrementStock(ctx context.Context, id string, qty int) error
}

// POSService sells products at the desk.
type POSService struct {
	tx       Transactor
	products ProductStore
	coupons  CouponStore
	payments PaymentStore
	events   EventPublisher
	log      *zap.Logger
	now      func() time.Time
}

// NewPOSService constructs a POSService.
func NewPOSService(tx Transactor, p ProductStore, c CouponStore, pay PaymentStore, ev EventPublisher, log *zap.Logger) *POSService {
	return &POSService{tx: tx, products: p, coupons: c, payments: pay, events: ev, log: log, now: time.Now}
}

// SaleLine is one product and quantity in a sale.
type SaleLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// SaleInput is a point-of-sale sale.
type SaleInput struct {
	UserID     string
	Items      []SaleLine
	Method     model.PaymentMethod
	CouponCode string
}

// SaleResult is the recorded sale and its totals.
type SaleResult struct {
	Payment       model.Payment    `json:"payment"`
	Items         []model.SaleItem `json:"items"`
	SubtotalCents int64            `json:"subtotal_cents"`
	DiscountCents int64            `json:"discount_cents"`
	TotalCents    int64            `json:"total_cents"`
}

// mergeLines folds duplicate products together and orders lines by
// product id so row locks are always taken in the same order.
func mergeLines(lines []SaleLine) ([]SaleLine, error) {
	qty := map[string]int{}
	for _, l := range lines {
		id := strings.TrimSpace(l.ProductID)
		if id == "" || l.Quantity <= 0 {
			return nil, invalid("each item needs a product_id and a positive quantity")
		}
		qty[id] += l.Quantity
	}
	out := make([]SaleLine, 0, len(qty))
	for id, q := range qty {
		out = append(out, SaleLine{ProductID: id, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

// Sell records a front-desk sale: stock is decremented, the coupon is
// redeemed and one product payment is written, all in one transaction.
func (s *POSService) Sell(ctx context.Context, in SaleInput) (SaleResult, error) {
	if len(in.Items) == 0 {
		return SaleResult{}, invalid("at least one item is required")
	}
	if !in.Method.Valid() {
		return SaleResult{}, invalid("unknown payment method %q", in.Method)
	}
	lines, err := mergeLines(in.Items)
	if err != nil {
		return SaleResult{}, err
	}
	now := s.now().UTC()

	var res SaleResult
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		res = SaleResult{Items: make([]model.SaleItem, 0, len(lines))}
		for _, l := range lines {
			p, err := s.products.GetForUpdate(ctx, l.ProductID)
			if errors.Is(err, repository.ErrNotFound) {
				return invalid("unknown product %s", l.ProductID)
			}
			if err != nil {
				return err
			}
			if !p.IsActive {
				return invalid("product %s is not for sale", p.Name)
			}
			if p.Stock < l.Quantity {
				return fmt.Errorf("%w: %s has %d left", ErrOutOfStock, p.Name, p.Stock)
			}
			if err := s.products.DecrementStock(ctx, p.ID, l.Quantity); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return ErrOutOfStock
				}
				return err
			}
			res.Items = append(res.Items, model.SaleItem{ProductID: p.ID, Quantity: l.Quantity, UnitPriceCents: p.PriceCents})
			res.SubtotalCents += p.PriceCents * int64(l.Quantity)
		}

		coupon, err := redeemCoupon(ctx, s.coupons, in.CouponCode, now)
		if err != nil {
			return err
		}
		res.TotalCents = model.ApplyDiscount(res.SubtotalCents, coupon)
		res.DiscountCents = res.SubtotalCents - res.TotalCents

		res.Payment = model.Payment{
			AmountCents:   res.TotalCents,
			DiscountCents: res.DiscountCents,
			Method:        in.Method,
			Type:          model.PaymentTypeProduct,
			PaidAt:        now,
		}
		if uid := strings.TrimSpace(in.UserID); uid != "" {
			res.Payment.UserID = &uid
		}
		if err := s.payments.Create(ctx, &res.Payment); err != nil {
			return err
		}
		return s.payments.AddSaleItems(ctx, res.Payment.ID, res.Items)
	})
	if err != nil {
		return SaleResult{}, err
	}

	if res.Payment.UserID != nil {
		publish(ctx, s.events, s.log, queue.Event{
			Type:    queue.PaymentRecorded,
			UserID:  *res.Payment.UserID,
			Title:   "Purchase receipt",
			Message: fmt.Sprintf("Thanks for your purchase of %s.", formatCents(res.TotalCents)),
			Data:    map[string]string{"payment_id": res.Payment.ID},
		})
	}
	return res, nil
}
