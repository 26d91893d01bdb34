package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/iliyamo/gym-management/internal/database"
	"github.com/iliyamo/gym-management/internal/model"
)

// PayrollRepo stores payroll records.
type PayrollRepo struct{ db *sql.DB }

func NewPayrollRepo(db *sql.DB) *PayrollRepo { return &PayrollRepo{db: db} }

// Create inserts p as a pending record.  NetCents must already be set.
func (r *PayrollRepo) Create(ctx context.Context, p *model.Payroll) error {
	p.ID = uuid.NewString()
	p.Status = model.PayrollPending
	_, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO payroll (id, staff_id, period_start, period_end, salary_cents, bonus_cents, deductions_cents, net_cents, status)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		p.ID, p.StaffID, p.PeriodStart, p.PeriodEnd, p.SalaryCents, p.BonusCents, p.DeductionsCents, p.NetCents, string(p.Status))
	return err
}

// MarkPaid flips a pending record to paid.  A missing record yields
// ErrNotFound and an already paid one ErrConflict.
func (r *PayrollRepo) MarkPaid(ctx context.Context, id string) error {
	err := mustAffect(database.Conn(ctx, r.db).ExecContext(ctx,
		"UPDATE payroll SET status='paid', paid_at=UTC_TIMESTAMP() WHERE id=? AND status='pending'", id))
	if !errors.Is(err, ErrNotFound) {
		return err
	}
	if _, gerr := r.GetByID(ctx, id); gerr != nil {
		return gerr
	}
	return ErrConflict
}

const payrollSelect = `SELECT pr.id, pr.staff_id, COALESCE(p.full_name, ''), pr.period_start, pr.period_end, pr.salary_cents,
	pr.bonus_cents, pr.deductions_cents, pr.net_cents, pr.status, pr.paid_at, pr.created_at
	FROM payroll pr LEFT JOIN profiles p ON p.id = pr.staff_id`

func scanPayroll(s rowScanner) (model.Payroll, error) {
	var (
		p      model.Payroll
		status string
		paidAt sql.NullTime
	)
	err := s.Scan(&p.ID, &p.StaffID, &p.StaffName, &p.PeriodStart, &p.PeriodEnd, &p.SalaryCents,
		&p.BonusCents, &p.DeductionsCents, &p.NetCents, &status, &paidAt, &p.CreatedAt)
	p.Status, p.PaidAt = model.PayrollStatus(status), timePtr(paidAt)
	return p, err
}

// GetByID loads one payroll record.
func (r *PayrollRepo) GetByID(ctx context.Context, id string) (model.Payroll, error) {
	p, err := scanPayroll(database.Conn(ctx, r.db).QueryRowContext(ctx, payrollSelect+" WHERE pr.id=?", id))
	return p, notFound(err)
}

// List returns records newest period first, filtered by staff and status when set.
func (r *PayrollRepo) List(ctx context.Context, staffID string, status model.PayrollStatus) ([]model.Payroll, error) {
	q := payrollSelect + " WHERE 1=1"
	var args []any
	if staffID != "" {
		q += " AND pr.staff_id=?"
		args = append(args, staffID)
	}
	if status != "" {
		q += " AND pr.status=?"
		args = append(args, string(status))
	}
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, q+" ORDER BY pr.period_start DESC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Payroll{}
	for rows.Next() {
		p, err := scanPayroll(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
