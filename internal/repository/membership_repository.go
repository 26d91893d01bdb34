package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/gym-management/internal/database"
	"github.com/iliyamo/gym-management/internal/model"
)

// MembershipRepo manages memberships.  A user has at most one current
// membership (active, pending or frozen); the service enforces that by
// locking the profile row before assigning.
type MembershipRepo struct{ db *sql.DB }

func NewMembershipRepo(db *sql.DB) *MembershipRepo { return &MembershipRepo{db: db} }

const membershipSelect = `SELECT m.id, m.user_id, m.plan_id, m.start_date, m.end_date, m.status, m.payment_status,
	m.freeze_start, m.freeze_end, m.qr_token, COALESCE(p.name, ''), m.created_at, m.updated_at
	FROM memberships m LEFT JOIN membership_plans p ON p.id = m.plan_id`

func scanMembership(s rowScanner) (model.Membership, error) {
	var (
		m          model.Membership
		fs, fe     sql.NullTime
		status, ps string
	)
	err := s.Scan(&m.ID, &m.UserID, &m.PlanID, &m.StartDate, &m.EndDate, &status, &ps,
		&fs, &fe, &m.QRToken, &m.PlanName, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return m, err
	}
	m.Status, m.PaymentStatus = model.MembershipStatus(status), model.PaymentStatus(ps)
	m.FreezeStart, m.FreezeEnd = timePtr(fs), timePtr(fe)
	return m, nil
}

func (r *MembershipRepo) queryOne(ctx context.Context, q string, args ...any) (model.Membership, error) {
	m, err := scanMembership(database.Conn(ctx, r.db).QueryRowContext(ctx, q, args...))
	return m, notFound(err)
}

func (r *MembershipRepo) GetByID(ctx context.Context, id string) (model.Membership, error) {
	return r.queryOne(ctx, membershipSelect+" WHERE m.id=?", id)
}

// GetForUpdate locks the membership row until the transaction ends.
func (r *MembershipRepo) GetForUpdate(ctx context.Context, id string) (model.Membership, error) {
	return r.queryOne(ctx, membershipSelect+" WHERE m.id=? FOR UPDATE OF m", id)
}

// GetByQRToken resolves a check-in token.
func (r *MembershipRepo) GetByQRToken(ctx context.Context, token string) (model.Membership, error) {
	return r.queryOne(ctx, membershipSelect+" WHERE m.qr_token=?", token)
}

// GetCurrent returns the user's current membership, or the most recent
// one when none is current.
func (r *MembershipRepo) GetCurrent(ctx context.Context, userID string) (model.Membership, error) {
	return r.queryOne(ctx, membershipSelect+` WHERE m.user_id=?
		ORDER BY m.status IN ('active','pending','frozen') DESC, m.created_at DESC LIMIT 1`, userID)
}

// GetCurrentForUpdate locks and returns the user's active, pending or
// frozen membership.  It must run inside a transaction.
func (r *MembershipRepo) GetCurrentForUpdate(ctx context.Context, userID string) (model.Membership, error) {
	return r.queryOne(ctx, membershipSelect+` WHERE m.user_id=? AND m.status IN ('active','pending','frozen')
		ORDER BY m.created_at DESC LIMIT 1 FOR UPDATE OF m`, userID)
}

// Create inserts m as given; the caller sets id, dates, status and token.
func (r *MembershipRepo) Create(ctx context.Context, m model.Membership) error {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO memberships (id, user_id, plan_id, start_date, end_date, status, payment_status, qr_token)
		 VALUES (?,?,?,?,?,?,?,?)`,
		m.ID, m.UserID, m.PlanID, m.StartDate, m.EndDate, string(m.Status), string(m.PaymentStatus), m.QRToken)
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

// Reassign points an existing membership at a new plan and period and
// resets it to pending/pending.  The QR token is kept.
func (r *MembershipRepo) Reassign(ctx context.Context, id, planID string, start, end time.Time) error {
	return mustAffect(database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE memberships SET plan_id=?, start_date=?, end_date=?, status='pending', payment_status='pending',
		 freeze_start=NULL, freeze_end=NULL WHERE id=?`,
		planID, start, end, id))
}

// MarkPaid sets payment_status=paid and status=active.
func (r *MembershipRepo) MarkPaid(ctx context.Context, id string) error {
	return mustAffect(database.Conn(ctx, r.db).ExecContext(ctx,
		"UPDATE memberships SET payment_status='paid', status='active' WHERE id=?", id))
}

// SaveState persists status and freeze window after a state transition.
func (r *MembershipRepo) SaveState(ctx context.Context, m model.Membership) error {
	var fs, fe sql.NullTime
	if m.FreezeStart != nil {
		fs = sql.NullTime{Time: *m.FreezeStart, Valid: true}
	}
	if m.FreezeEnd != nil {
		fe = sql.NullTime{Time: *m.FreezeEnd, Valid: true}
	}
	return mustAffect(database.Conn(ctx, r.db).ExecContext(ctx,
		"UPDATE memberships SET status=?, freeze_start=?, freeze_end=? WHERE id=?",
		string(m.Status), fs, fe, m.ID))
}

// List returns memberships, newest first, optionally filtered by stored status.
func (r *MembershipRepo) List(ctx context.Context, status model.MembershipStatus) ([]model.Membership, error) {
	q, args := membershipSelect, []any{}
	if status != "" {
		q += " WHERE m.status=?"
		args = append(args, string(status))
	}
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, q+" ORDER BY m.created_at DESC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Membership{}
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
