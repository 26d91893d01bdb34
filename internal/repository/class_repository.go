package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/gym-management/internal/database"
	"github.com/iliyamo/gym-management/internal/model"
)

// ClassRepo manages scheduled classes.
type ClassRepo struct{ db *sql.DB }

func NewClassRepo(db *sql.DB) *ClassRepo { return &ClassRepo{db: db} }

// Create inserts c and sets its id.
func (r *ClassRepo) Create(ctx context.Context, c *model.Class) error {
	c.ID = uuid.NewString()
	_, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO classes (id, name, description, trainer_id, starts_at, ends_at, capacity, location)
		 VALUES (?,?,?,?,?,?,?,?)`,
		c.ID, c.Name, nullStr(c.Description), nullStr(c.TrainerID), c.StartsAt, c.EndsAt, c.Capacity, nullStr(c.Location))
	return err
}

func (r *ClassRepo) Update(ctx context.Context, c model.Class) error {
	return mustAffect(database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE classes SET name=?, description=?, trainer_id=?, starts_at=?, ends_at=?, capacity=?, location=?
		 WHERE id=?`,
		c.Name, nullStr(c.Description), nullStr(c.TrainerID), c.StartsAt, c.EndsAt, c.Capacity, nullStr(c.Location), c.ID))
}

// Cancel marks the class cancelled; bookings are left for reporting.
func (r *ClassRepo) Cancel(ctx context.Context, id string) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, "UPDATE classes SET is_cancelled=1 WHERE id=?", id)
	return err
}

const classSelect = `SELECT c.id, c.name, c.description, c.trainer_id, c.starts_at, c.ends_at, c.capacity, c.location,
	c.is_cancelled, (SELECT COUNT(*) FROM class_bookings b WHERE b.class_id = c.id AND b.status IN ('booked','attended')),
	c.created_at, c.updated_at FROM classes c`

func scanClass(s rowScanner) (model.Class, error) {
	var (
		c                       model.Class
		desc, trainer, location sql.NullString
	)
	err := s.Scan(&c.ID, &c.Name, &desc, &trainer, &c.StartsAt, &c.EndsAt, &c.Capacity, &location,
		&c.IsCancelled, &c.Booked, &c.CreatedAt, &c.UpdatedAt)
	c.Description, c.TrainerID, c.Location = strPtr(desc), strPtr(trainer), strPtr(location)
	return c, err
}

// GetByID loads one class.
func (r *ClassRepo) GetByID(ctx context.Context, id string) (model.Class, error) {
	c, err := scanClass(database.Conn(ctx, r.db).QueryRowContext(ctx, classSelect+" WHERE c.id=?", id))
	return c, notFound(err)
}

// GetForUpdate locks the class row so bookings against it are serialised.
func (r *ClassRepo) GetForUpdate(ctx context.Context, id string) (model.Class, error) {
	c, err := scanClass(database.Conn(ctx, r.db).QueryRowContext(ctx, classSelect+" WHERE c.id=? FOR UPDATE OF c", id))
	return c, notFound(err)
}

// List returns non-cancelled classes starting in [from, to) by start time.
func (r *ClassRepo) List(ctx context.Context, from, to time.Time) ([]model.Class, error) {
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx,
		classSelect+" WHERE c.is_cancelled=0 AND c.starts_at>=? AND c.starts_at<? ORDER BY c.starts_at", from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Class{}
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
