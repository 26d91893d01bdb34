package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/iliyamo/gym-management/internal/database"
	"github.com/iliyamo/gym-management/internal/model"
)

// BookingRepo stores class bookings.
type BookingRepo struct{ db *sql.DB }

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// CountActive counts booked and attended places in a class.
func (r *BookingRepo) CountActive(ctx context.Context, classID string) (int, error) {
	var n int
	err := database.Conn(ctx, r.db).QueryRowContext(ctx,
		"SELECT COUNT(*) FROM class_bookings WHERE class_id=? AND status IN ('booked','attended')", classID).Scan(&n)
	return n, err
}

// HasActive reports whether the user already holds a place in the class.
func (r *BookingRepo) HasActive(ctx context.Context, classID, userID string) (bool, error) {
	var n int
	err := database.Conn(ctx, r.db).QueryRowContext(ctx,
		"SELECT COUNT(*) FROM class_bookings WHERE class_id=? AND user_id=? AND status IN ('booked','attended')",
		classID, userID).Scan(&n)
	return n > 0, err
}

func (r *BookingRepo) Create(ctx context.Context, classID, userID string) (model.Booking, error) {
	b := model.Booking{ID: uuid.NewString(), ClassID: classID, UserID: userID, Status: model.BookingBooked}
	_, err := database.Conn(ctx, r.db).ExecContext(ctx,
		"INSERT INTO class_bookings (id, class_id, user_id, status) VALUES (?,?,?,?)",
		b.ID, b.ClassID, b.UserID, string(b.Status))
	return b, err
}

const bookingCols = "id, class_id, user_id, status, booked_at, updated_at"

func scanBooking(s rowScanner) (model.Booking, error) {
	var (
		b      model.Booking
		status string
	)
	err := s.Scan(&b.ID, &b.ClassID, &b.UserID, &status, &b.BookedAt, &b.UpdatedAt)
	b.Status = model.BookingStatus(status)
	return b, err
}

// GetByID loads one booking.
func (r *BookingRepo) GetByID(ctx context.Context, id string) (model.Booking, error) {
	b, err := scanBooking(database.Conn(ctx, r.db).QueryRowContext(ctx,
		"SELECT "+bookingCols+" FROM class_bookings WHERE id=?", id))
	return b, notFound(err)
}

// SetStatus moves a booking from one status to another.  It matches no
// row unless the booking is currently in from.
func (r *BookingRepo) SetStatus(ctx context.Context, id string, from, to model.BookingStatus) error {
	return mustAffect(database.Conn(ctx, r.db).ExecContext(ctx,
		"UPDATE class_bookings SET status=? WHERE id=? AND status=?", string(to), id, string(from)))
}

func (r *BookingRepo) list(ctx context.Context, where string, arg string) ([]model.Booking, error) {
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx,
		"SELECT "+bookingCols+" FROM class_bookings WHERE "+where+" ORDER BY booked_at DESC", arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ListByClass lists the bookings of a class.
func (r *BookingRepo) ListByClass(ctx context.Context, classID string) ([]model.Booking, error) {
	return r.list(ctx, "class_id=?", classID)
}

// ListByUser lists a user's bookings, most recent first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID string) ([]model.Booking, error) {
	return r.list(ctx, "user_id=?", userID)
}
