package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/gym-management/internal/database"
	"github.com/iliyamo/gym-management/internal/model"
)

// ReportRepo runs the aggregate reads behind the reporting endpoints.
// Each method is a single statement so callers can issue them concurrently.
type ReportRepo struct{ db *sql.DB }

func NewReportRepo(db *sql.DB) *ReportRepo { return &ReportRepo{db: db} }

func (r *ReportRepo) scalar(ctx context.Context, q string, args ...any) (int64, error) {
	var n sql.NullInt64
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, q, args...).Scan(&n)
	return n.Int64, err
}

// RevenueByType sums net payment amounts in [from, to) per payment type.
func (r *ReportRepo) RevenueByType(ctx context.Context, from, to time.Time) (map[model.PaymentType]int64, error) {
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx,
		"SELECT type, COALESCE(SUM(amount_cents),0) FROM payments WHERE paid_at>=? AND paid_at<? GROUP BY type", from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[model.PaymentType]int64{}
	for rows.Next() {
		var (
			typ string
			sum int64
		)
		if err := rows.Scan(&typ, &sum); err != nil {
			return nil, err
		}
		out[model.PaymentType(typ)] = sum
	}
	return out, rows.Err()
}

// NewMembers counts member profiles created in [from, to).
func (r *ReportRepo) NewMembers(ctx context.Context, from, to time.Time) (int64, error) {
	return r.scalar(ctx, `SELECT COUNT(*) FROM profiles p JOIN user_roles ur ON ur.user_id = p.id
		WHERE ur.role='member' AND p.created_at>=? AND p.created_at<?`, from, to)
}

// ActiveMemberships counts active memberships whose end date is not before day.
func (r *ReportRepo) ActiveMemberships(ctx context.Context, day time.Time) (int64, error) {
	return r.scalar(ctx, "SELECT COUNT(*) FROM memberships WHERE status='active' AND end_date>=?", day.Format("2006-01-02"))
}

// ExpiringBetween counts active memberships ending in [from, to].
func (r *ReportRepo) ExpiringBetween(ctx context.Context, from, to time.Time) (int64, error) {
	return r.scalar(ctx, "SELECT COUNT(*) FROM memberships WHERE status='active' AND end_date>=? AND end_date<=?",
		from.Format("2006-01-02"), to.Format("2006-01-02"))
}

// PendingPayments counts current memberships still awaiting payment.
func (r *ReportRepo) PendingPayments(ctx context.Context) (int64, error) {
	return r.scalar(ctx, "SELECT COUNT(*) FROM memberships WHERE payment_status='pending' AND status IN ('pending','active','frozen')")
}

func (r *ReportRepo) CheckIns(ctx context.Context, from, to time.Time) (int64, error) {
	return r.scalar(ctx, "SELECT COUNT(*) FROM attendance WHERE check_in_at>=? AND check_in_at<?", from, to)
}

func (r *ReportRepo) ClassBookings(ctx context.Context, from, to time.Time) (int64, error) {
	return r.scalar(ctx, "SELECT COUNT(*) FROM class_bookings WHERE status<>'cancelled' AND booked_at>=? AND booked_at<?", from, to)
}

// PayrollPaid sums net pay of records paid out in [from, to).
func (r *ReportRepo) PayrollPaid(ctx context.Context, from, to time.Time) (int64, error) {
	return r.scalar(ctx, "SELECT COALESCE(SUM(net_cents),0) FROM payroll WHERE status='paid' AND paid_at>=? AND paid_at<?", from, to)
}
