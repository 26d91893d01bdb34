package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/iliyamo/gym-management/internal/database"
	"github.com/iliyamo/gym-management/internal/model"
)

// PlanRepo manages membership_plans.
type PlanRepo struct{ db *sql.DB }

func NewPlanRepo(db *sql.DB) *PlanRepo { return &PlanRepo{db: db} }

func encodeFeatures(f []string) ([]byte, error) {
	if f == nil {
		f = []string{}
	}
	return json.Marshal(f)
}

// Create inserts a plan and fills in its id.
func (r *PlanRepo) Create(ctx context.Context, p *model.Plan) error {
	feats, err := encodeFeatures(p.Features)
	if err != nil {
		return err
	}
	p.ID = uuid.NewString()
	_, err = database.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO membership_plans (id, name, description, price_cents, duration_months, features, is_active)
		 VALUES (?,?,?,?,?,?,?)`,
		p.ID, p.Name, nullStr(p.Description), p.PriceCents, p.DurationMonths, feats, p.IsActive)
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

// Update overwrites the editable fields of a plan.
func (r *PlanRepo) Update(ctx context.Context, p model.Plan) error {
	feats, err := encodeFeatures(p.Features)
	if err != nil {
		return err
	}
	res, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE membership_plans SET name=?, description=?, price_cents=?, duration_months=?, features=?, is_active=?
		 WHERE id=?`,
		p.Name, nullStr(p.Description), p.PriceCents, p.DurationMonths, feats, p.IsActive, p.ID)
	if isDuplicate(err) {
		return ErrConflict
	}
	return mustAffect(res, err)
}

// Deactivate hides a plan from the catalogue.  Memberships keep
// referencing it.
func (r *PlanRepo) Deactivate(ctx context.Context, id string) error {
	_, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	_, err = database.Conn(ctx, r.db).ExecContext(ctx,
		"UPDATE membership_plans SET is_active=0 WHERE id=?", id)
	return err
}

const planCols = "id, name, description, price_cents, duration_months, features, is_active, created_at, updated_at"

func scanPlan(s rowScanner) (model.Plan, error) {
	var (
		p     model.Plan
		desc  sql.NullString
		feats []byte
	)
	if err := s.Scan(&p.ID, &p.Name, &desc, &p.PriceCents, &p.DurationMonths, &feats, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return p, err
	}
	p.Description = strPtr(desc)
	p.Features = []string{}
	if len(feats) > 0 {
		if err := json.Unmarshal(feats, &p.Features); err != nil {
			return p, err
		}
	}
	return p, nil
}

func (r *PlanRepo) GetByID(ctx context.Context, id string) (model.Plan, error) {
	p, err := scanPlan(database.Conn(ctx, r.db).QueryRowContext(ctx,
		"SELECT "+planCols+" FROM membership_plans WHERE id=?", id))
	return p, notFound(err)
}

// List returns plans by ascending price; inactive plans only when asked.
func (r *PlanRepo) List(ctx context.Context, includeInactive bool) ([]model.Plan, error) {
	q := "SELECT " + planCols + " FROM membership_plans"
	if !includeInactive {
		q += " WHERE is_active=1"
	}
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, q+" ORDER BY price_cents, name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Plan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
