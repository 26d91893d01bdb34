package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/gym-management/internal/database"
	"github.com/iliyamo/gym-management/internal/model"
)

// PaymentRepo appends to payments.  Rows are never updated.
type PaymentRepo struct{ db *sql.DB }

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// Create inserts p, filling in ID and PaidAt when empty.
func (r *PaymentRepo) Create(ctx context.Context, p *model.Payment) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.PaidAt.IsZero() {
		p.PaidAt = time.Now().UTC()
	}
	_, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO payments (id, user_id, amount_cents, discount_cents, method, type, membership_id, notes, paid_at)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		p.ID, nullStr(p.UserID), p.AmountCents, p.DiscountCents, string(p.Method), string(p.Type),
		nullStr(p.MembershipID), nullStr(p.Notes), p.PaidAt)
	return err
}

// AddSaleItems records the product lines of a point-of-sale payment.
func (r *PaymentRepo) AddSaleItems(ctx context.Context, paymentID string, items []model.SaleItem) error {
	conn := database.Conn(ctx, r.db)
	for _, it := range items {
		if _, err := conn.ExecContext(ctx,
			"INSERT INTO pos_sale_items (payment_id, product_id, quantity, unit_price_cents) VALUES (?,?,?,?)",
			paymentID, it.ProductID, it.Quantity, it.UnitPriceCents); err != nil {
			return err
		}
	}
	return nil
}

// PaymentFilter narrows List.  Zero fields are ignored; To is exclusive.
type PaymentFilter struct {
	UserID string
	From   time.Time
	To     time.Time
}

func (r *PaymentRepo) List(ctx context.Context, f PaymentFilter) ([]model.Payment, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID != "" {
		where = append(where, "user_id=?")
		args = append(args, f.UserID)
	}
	if !f.From.IsZero() {
		where = append(where, "paid_at>=?")
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		where = append(where, "paid_at<?")
		args = append(args, f.To)
	}
	q := `SELECT id, user_id, amount_cents, discount_cents, method, type, membership_id, notes, paid_at, created_at FROM payments`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, q+" ORDER BY paid_at DESC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Payment{}
	for rows.Next() {
		var (
			p               model.Payment
			uid, mid, notes sql.NullString
			method, typ     string
		)
		if err := rows.Scan(&p.ID, &uid, &p.AmountCents, &p.DiscountCents, &method, &typ, &mid, &notes, &p.PaidAt, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.UserID, p.MembershipID, p.Notes = strPtr(uid), strPtr(mid), strPtr(notes)
		p.Method, p.Type = model.PaymentMethod(method), model.PaymentType(typ)
		out = append(out, p)
	}
	return out, rows.Err()
}
