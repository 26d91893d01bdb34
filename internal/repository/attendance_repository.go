package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/gym-management/internal/database"
	"github.com/iliyamo/gym-management/internal/model"
)

// AttendanceRepo stores gym visits.
type AttendanceRepo struct{ db *sql.DB }

func NewAttendanceRepo(db *sql.DB) *AttendanceRepo { return &AttendanceRepo{db: db} }

// HasOpenVisit reports whether the user has checked in without checking out.
func (r *AttendanceRepo) HasOpenVisit(ctx context.Context, userID string) (bool, error) {
	var n int
	err := database.Conn(ctx, r.db).QueryRowContext(ctx,
		"SELECT COUNT(*) FROM attendance WHERE user_id=? AND check_out_at IS NULL", userID).Scan(&n)
	return n > 0, err
}

// CheckIn opens a visit at at.
func (r *AttendanceRepo) CheckIn(ctx context.Context, userID string, at time.Time) (model.Attendance, error) {
	a := model.Attendance{ID: uuid.NewString(), UserID: userID, CheckInAt: at}
	_, err := database.Conn(ctx, r.db).ExecContext(ctx,
		"INSERT INTO attendance (id, user_id, check_in_at) VALUES (?,?,?)", a.ID, a.UserID, a.CheckInAt)
	return a, err
}

// CheckOut closes an open visit.  Closing a closed or unknown visit is ErrNotFound.
func (r *AttendanceRepo) CheckOut(ctx context.Context, id string, at time.Time) error {
	return mustAffect(database.Conn(ctx, r.db).ExecContext(ctx,
		"UPDATE attendance SET check_out_at=? WHERE id=? AND check_out_at IS NULL", at, id))
}

// List returns visits whose check-in falls in [from, to), newest first.
// userID narrows to one member when set.
func (r *AttendanceRepo) List(ctx context.Context, userID string, from, to time.Time) ([]model.Attendance, error) {
	q := `SELECT a.id, a.user_id, COALESCE(p.full_name, ''), a.check_in_at, a.check_out_at
		FROM attendance a LEFT JOIN profiles p ON p.id = a.user_id
		WHERE a.check_in_at>=? AND a.check_in_at<?`
	args := []any{from, to}
	if userID != "" {
		q += " AND a.user_id=?"
		args = append(args, userID)
	}
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, q+" ORDER BY a.check_in_at DESC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Attendance{}
	for rows.Next() {
		var (
			a        model.Attendance
			checkOut sql.NullTime
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.FullName, &a.CheckInAt, &checkOut); err != nil {
			return nil, err
		}
		a.CheckOutAt = timePtr(checkOut)
		out = append(out, a)
	}
	return out, rows.Err()
}
