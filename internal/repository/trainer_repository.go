package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/iliyamo/gym-management/internal/database"
	"github.com/iliyamo/gym-management/internal/model"
)

// TrainerRepo stores trainer details keyed by user.
type TrainerRepo struct{ db *sql.DB }

func NewTrainerRepo(db *sql.DB) *TrainerRepo { return &TrainerRepo{db: db} }

// Create inserts the trainer extension row and returns its id.
func (r *TrainerRepo) Create(ctx context.Context, t model.Trainer) (string, error) {
	id := uuid.NewString()
	_, err := database.Conn(ctx, r.db).ExecContext(ctx,
		"INSERT INTO trainers (id, user_id, specialization, experience_years, bio) VALUES (?,?,?,?,?)",
		id, t.UserID, nullStr(t.Specialization), t.ExperienceYears, nullStr(t.Bio))
	if isDuplicate(err) {
		return "", ErrConflict
	}
	return id, err
}

// GetByUser returns the trainer row of a user.
func (r *TrainerRepo) GetByUser(ctx context.Context, userID string) (model.Trainer, error) {
	var (
		t         model.Trainer
		spec, bio sql.NullString
	)
	err := database.Conn(ctx, r.db).QueryRowContext(ctx,
		"SELECT id, user_id, specialization, experience_years, bio, created_at FROM trainers WHERE user_id=?",
		userID).Scan(&t.ID, &t.UserID, &spec, &t.ExperienceYears, &bio, &t.CreatedAt)
	t.Specialization, t.Bio = strPtr(spec), strPtr(bio)
	return t, notFound(err)
}

// DeleteByUser drops the trainer row of a user, if any.
func (r *TrainerRepo) DeleteByUser(ctx context.Context, userID string) error {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, "DELETE FROM trainers WHERE user_id=?", userID)
	return err
}
