package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/iliyamo/gym-management/internal/database"
	"github.com/iliyamo/gym-management/internal/model"
)

// RoleRepo manages user_roles, which holds exactly one row per user.
type RoleRepo struct{ db *sql.DB }

func NewRoleRepo(db *sql.DB) *RoleRepo { return &RoleRepo{db: db} }

// Get returns the user's role or ErrNotFound when no row exists.
func (r *RoleRepo) Get(ctx context.Context, userID string) (model.Role, error) {
	var role string
	err := database.Conn(ctx, r.db).QueryRowContext(ctx,
		"SELECT role FROM user_roles WHERE user_id=? LIMIT 1", userID).Scan(&role)
	return model.Role(role), notFound(err)
}

// Insert assigns a role to a user that has none.
func (r *RoleRepo) Insert(ctx context.Context, userID string, role model.Role) error {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx,
		"INSERT INTO user_roles (id, user_id, role) VALUES (?,?,?)",
		uuid.NewString(), userID, string(role))
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

// Delete removes the user's role row.
func (r *RoleRepo) Delete(ctx context.Context, userID string) error {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, "DELETE FROM user_roles WHERE user_id=?", userID)
	return err
}
