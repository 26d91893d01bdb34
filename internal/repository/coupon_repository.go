package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/gym-management/internal/database"
	"github.com/iliyamo/gym-management/internal/model"
)

// CouponRepo manages discount coupons.  Codes are stored upper-case.
type CouponRepo struct{ db *sql.DB }

func NewCouponRepo(db *sql.DB) *CouponRepo { return &CouponRepo{db: db} }

// Create inserts c and sets its id.
func (r *CouponRepo) Create(ctx context.Context, c *model.Coupon) error {
	c.ID = uuid.NewString()
	c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
	var maxUses sql.NullInt64
	if c.MaxUses != nil {
		maxUses = sql.NullInt64{Int64: int64(*c.MaxUses), Valid: true}
	}
	var from, until sql.NullTime
	if c.ValidFrom != nil {
		from = sql.NullTime{Time: *c.ValidFrom, Valid: true}
	}
	if c.ValidUntil != nil {
		until = sql.NullTime{Time: *c.ValidUntil, Valid: true}
	}
	_, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO coupons (id, code, discount_type, discount_value, max_uses, valid_from, valid_until, is_active)
		 VALUES (?,?,?,?,?,?,?,?)`,
		c.ID, c.Code, c.DiscountType, c.DiscountValue, maxUses, from, until, c.IsActive)
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

const couponSelect = `SELECT id, code, discount_type, discount_value, max_uses, used_count, valid_from, valid_until,
	is_active, created_at FROM coupons WHERE code=?`

func (r *CouponRepo) get(ctx context.Context, q, code string) (model.Coupon, error) {
	var (
		c           model.Coupon
		maxUses     sql.NullInt64
		from, until sql.NullTime
	)
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, q, strings.ToUpper(strings.TrimSpace(code))).Scan(
		&c.ID, &c.Code, &c.DiscountType, &c.DiscountValue, &maxUses, &c.UsedCount, &from, &until, &c.IsActive, &c.CreatedAt)
	if err != nil {
		return c, notFound(err)
	}
	if maxUses.Valid {
		n := int(maxUses.Int64)
		c.MaxUses = &n
	}
	c.ValidFrom, c.ValidUntil = timePtr(from), timePtr(until)
	return c, nil
}

// GetByCode loads a coupon by code.
func (r *CouponRepo) GetByCode(ctx context.Context, code string) (model.Coupon, error) {
	return r.get(ctx, couponSelect, code)
}

// GetByCodeForUpdate locks the coupon so concurrent sales cannot exceed max_uses.
func (r *CouponRepo) GetByCodeForUpdate(ctx context.Context, code string) (model.Coupon, error) {
	return r.get(ctx, couponSelect+" FOR UPDATE", code)
}

// Redeem increments used_count.
func (r *CouponRepo) Redeem(ctx context.Context, id string) error {
	return mustAffect(database.Conn(ctx, r.db).ExecContext(ctx,
		"UPDATE coupons SET used_count=used_count+1 WHERE id=?", id))
}
