package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/gym-management/internal/model"
	"github.com/iliyamo/gym-management/internal/queue"
	"github.com/iliyamo/gym-management/internal/repository"
)

// PaymentStore persists payments.
type PaymentStore interface {
	Create(ctx context.Context, p *model.Payment) error
	AddSaleItems(ctx context.Context, paymentID string, items []model.SaleItem) error
	List(ctx context.Context, f repository.PaymentFilter) ([]model.Payment, error)
}

// CouponStore reads and redeems coupons.
type CouponStore interface {
	GetByCode(ctx context.Context, code string) (model.Coupon, error)
	GetByCodeForUpdate(ctx context.Context, code string) (model.Coupon, error)
	Redeem(ctx context.Context, id string) error
}

// redeemCoupon locks the coupon, checks it and counts one use.  It must
// run inside the transaction that records the payment.
func redeemCoupon(ctx context.Context, coupons CouponStore, code string, now time.Time) (*model.Coupon, error) {
	if strings.TrimSpace(code) == "" {
		return nil, nil
	}
	c, err := coupons.GetByCodeForUpdate(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrCouponInvalid
	}
	if err != nil {
		return nil, err
	}
	if !c.Usable(now) {
		return nil, ErrCouponInvalid
	}
	if err := coupons.Redeem(ctx, c.ID); err != nil {
		return nil, err
	}
	return &c, nil
}

func couponDiscount(c *model.Coupon, amount int64) int64 {
	return amount - model.ApplyDiscount(amount, c)
}

// PaymentService confirms payments.
type PaymentService struct {
	tx          Transactor
	payments    PaymentStore
	memberships MembershipStore
	coupons     CouponStore
	events      EventPublisher
	log         *zap.Logger
	now         func() time.Time
}

// NewPaymentService constructs a PaymentService.
func NewPaymentService(tx Transactor, p PaymentStore, m MembershipStore, c CouponStore, ev EventPublisher, log *zap.Logger) *PaymentService {
	return &PaymentService{tx: tx, payments: p, memberships: m, coupons: c, events: ev, log: log, now: time.Now}
}

// PaymentInput confirms a payment.  AmountCents is the gross amount;
// DiscountCents and the coupon are subtracted from it and must leave a
// positive amount.
type PaymentInput struct {
	UserID        string
	AmountCents   int64
	DiscountCents int64
	Method        model.PaymentMethod
	Type          model.PaymentType
	MembershipID  string
	CouponCode    string
	Notes         *string
}

func (in *PaymentInput) normalize() error {
	in.UserID, in.MembershipID = strings.TrimSpace(in.UserID), strings.TrimSpace(in.MembershipID)
	if in.AmountCents <= 0 {
		return invalid("amount must be positive")
	}
	if in.DiscountCents < 0 || in.DiscountCents >= in.AmountCents {
		return invalid("discount must be at least zero and below the amount")
	}
	if !in.Method.Valid() {
		return invalid("unknown payment method %q", in.Method)
	}
	if in.Type == "" {
		in.Type = model.PaymentTypeOther
		if in.MembershipID != "" {
			in.Type = model.PaymentTypeMembership
		}
	}
	if !in.Type.Valid() {
		return invalid("unknown payment type %q", in.Type)
	}
	return nil
}

// Record inserts the payment and, when a membership is linked, marks it
// paid and active.  Both writes share one transaction: if the membership
// update matches nothing the payment is rolled back too.
func (s *PaymentService) Record(ctx context.Context, in PaymentInput) (model.Payment, error) {
	if err := in.normalize(); err != nil {
		return model.Payment{}, err
	}
	now := s.now().UTC()

	var p model.Payment
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if in.MembershipID != "" {
			m, err := s.memberships.GetForUpdate(ctx, in.MembershipID)
			if err != nil {
				return fmt.Errorf("load membership: %w", err)
			}
			if in.UserID == "" {
				in.UserID = m.UserID
			} else if in.UserID != m.UserID {
				return invalid("membership belongs to another user")
			}
		}
		coupon, err := redeemCoupon(ctx, s.coupons, in.CouponCode, now)
		if err != nil {
			return err
		}
		discount := in.DiscountCents + couponDiscount(coupon, in.AmountCents-in.DiscountCents)
		if discount >= in.AmountCents {
			return invalid("amount after discount must be positive")
		}

		p = model.Payment{
			AmountCents:   in.AmountCents - discount,
			DiscountCents: discount,
			Method:        in.Method,
			Type:          in.Type,
			Notes:         in.Notes,
			PaidAt:        now,
		}
		if in.UserID != "" {
			p.UserID = &in.UserID
		}
		if in.MembershipID != "" {
			p.MembershipID = &in.MembershipID
		}
		if err := s.payments.Create(ctx, &p); err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		if in.MembershipID != "" {
			if err := s.memberships.MarkPaid(ctx, in.MembershipID); err != nil {
				return fmt.Errorf("activate membership: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return model.Payment{}, err
	}

	if in.UserID != "" {
		publish(ctx, s.events, s.log, queue.Event{
			Type:    queue.PaymentRecorded,
			UserID:  in.UserID,
			Title:   "Payment received",
			Message: fmt.Sprintf("We received %s by %s.", formatCents(p.AmountCents), p.Method),
			Data:    map[string]string{"payment_id": p.ID},
		})
	}
	if in.MembershipID != "" {
		publish(ctx, s.events, s.log, queue.Event{
			Type:    queue.MembershipActivated,
			UserID:  in.UserID,
			Title:   "Membership active",
			Message: "Your membership is paid and active. Show your QR code at the front desk.",
			Data:    map[string]string{"membership_id": in.MembershipID},
		})
	}
	return p, nil
}

// List returns payments matching f.
func (s *PaymentService) List(ctx context.Context, f repository.PaymentFilter) ([]model.Payment, error) {
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return nil, invalid("to must not be before from")
	}
	return s.payments.List(ctx, f)
}

// ValidateCoupon reports whether code can be redeemed now.
func (s *PaymentService) ValidateCoupon(ctx context.Context, code string) (model.Coupon, error) {
	c, err := s.coupons.GetByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return c, ErrCouponInvalid
	}
	if err != nil {
		return c, err
	}
	if !c.Usable(s.now()) {
		return c, ErrCouponInvalid
	}
	return c, nil
}

func formatCents(c int64) string {
	sign := ""
	if c < 0 {
		sign, c = "-", -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

