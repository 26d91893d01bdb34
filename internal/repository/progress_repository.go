package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/iliyamo/gym-management/internal/database"
	"github.com/iliyamo/gym-management/internal/model"
)

// ProgressRepo stores progress_tracking and workout_plans rows.
type ProgressRepo struct{ db *sql.DB }

func NewProgressRepo(db *sql.DB) *ProgressRepo { return &ProgressRepo{db: db} }

func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return []byte(b)
}

// Create inserts a progress entry.
func (r *ProgressRepo) Create(ctx context.Context, p *model.Progress) error {
	p.ID = uuid.NewString()
	_, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO progress_tracking (id, user_id, recorded_by, weight_kg, body_fat_pct, measurements, notes, recorded_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		p.ID, p.UserID, nullStr(p.RecordedBy), p.WeightKg, p.BodyFatPct, nullJSON(p.Measurements), nullStr(p.Notes), p.RecordedAt)
	return err
}

// ListForUser lists a member's progress, newest first.
func (r *ProgressRepo) ListForUser(ctx context.Context, userID string) ([]model.Progress, error) {
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT id, user_id, recorded_by, weight_kg, body_fat_pct, measurements, notes, recorded_at
		 FROM progress_tracking WHERE user_id=? ORDER BY recorded_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Progress{}
	for rows.Next() {
		var (
			p           model.Progress
			by, notes   sql.NullString
			weight, fat sql.NullFloat64
			meas        []byte
		)
		if err := rows.Scan(&p.ID, &p.UserID, &by, &weight, &fat, &meas, &notes, &p.RecordedAt); err != nil {
			return nil, err
		}
		p.RecordedBy, p.Notes = strPtr(by), strPtr(notes)
		if weight.Valid {
			p.WeightKg = &weight.Float64
		}
		if fat.Valid {
			p.BodyFatPct = &fat.Float64
		}
		p.Measurements = meas
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ProgressRepo) CreateWorkoutPlan(ctx context.Context, w *model.WorkoutPlan) error {
	w.ID = uuid.NewString()
	var start, end sql.NullTime
	if w.StartDate != nil {
		start = sql.NullTime{Time: *w.StartDate, Valid: true}
	}
	if w.EndDate != nil {
		end = sql.NullTime{Time: *w.EndDate, Valid: true}
	}
	_, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO workout_plans (id, member_id, trainer_id, title, plan, start_date, end_date)
		 VALUES (?,?,?,?,?,?,?)`,
		w.ID, w.MemberID, nullStr(w.TrainerID), w.Title, []byte(w.Plan), start, end)
	return err
}

func (r *ProgressRepo) ListWorkoutPlans(ctx context.Context, memberID string) ([]model.WorkoutPlan, error) {
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT id, member_id, trainer_id, title, plan, start_date, end_date, created_at
		 FROM workout_plans WHERE member_id=? ORDER BY created_at DESC`, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.WorkoutPlan{}
	for rows.Next() {
		var (
			w          model.WorkoutPlan
			trainer    sql.NullString
			start, end sql.NullTime
			plan       []byte
		)
		if err := rows.Scan(&w.ID, &w.MemberID, &trainer, &w.Title, &plan, &start, &end, &w.CreatedAt); err != nil {
			return nil, err
		}
		w.TrainerID, w.StartDate, w.EndDate = strPtr(trainer), timePtr(start), timePtr(end)
		w.Plan = plan
		out = append(out, w)
	}
	return out, rows.Err()
}
