package model

import "time"

// Payment is recorded once at confirmation time and never modified.
type Payment struct {
	ID            string        `json:"id"`
	UserID        *string       `json:"user_id,omitempty"`
	AmountCents   int64         `json:"amount_cents"`
	DiscountCents int64         `json:"discount_cents"`
	Method        PaymentMethod `json:"method"`
	Type          PaymentType   `json:"type"`
	MembershipID  *string       `json:"membership_id,omitempty"`
	Notes         *string       `json:"notes,omitempty"`
	PaidAt        time.Time     `json:"paid_at"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Coupon discount kinds.
const (
	DiscountPercent = "percent"
	DiscountFixed   = "fixed"
)

// Coupon grants a percent or fixed discount at the point of sale.
type Coupon struct {
	ID            string     `json:"id"`
	Code          string     `json:"code"`
	DiscountType  string     `json:"discount_type"`
	DiscountValue int64      `json:"discount_value"` // percent points or cents
	MaxUses       *int       `json:"max_uses,omitempty"`
	UsedCount     int        `json:"used_count"`
	ValidFrom     *time.Time `json:"valid_from,omitempty"`
	ValidUntil    *time.Time `json:"valid_until,omitempty"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Usable reports whether the coupon may be redeemed at now.
func (c *Coupon) Usable(now time.Time) bool {
	if !c.IsActive {
		return false
	}
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return false
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return false
	}
	if c.MaxUses != nil && c.UsedCount >= *c.MaxUses {
		return false
	}
	return true
}

// Discount returns the discount in cents for a gross amount.  The result
// never exceeds the amount, so a sale total cannot go negative.
func (c *Coupon) Discount(amountCents int64) int64 {
	var d int64
	switch c.DiscountType {
	case DiscountPercent:
		d = amountCents * c.DiscountValue / 100
	case DiscountFixed:
		d = c.DiscountValue
	}
	if d < 0 {
		return 0
	}
	if d > amountCents {
		return amountCents
	}
	return d
}

// Product is an item sold at the front desk.
type Product struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	SKU        string    `json:"sku"`
	PriceCents int64     `json:"price_cents"`
	Stock      int       `json:"stock"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SaleItem is one line of a point-of-sale payment.
type SaleItem struct {
	ProductID      string `json:"product_id"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

// ApplyDiscount returns amountCents after the coupon's discount.  A nil
// coupon leaves the amount unchanged.
func ApplyDiscount(amountCents int64, c *Coupon) int64 {
	if c == nil {
		return amountCents
	}
	return amountCents - c.Discount(amountCents)
}
