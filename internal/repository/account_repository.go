package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/gym-management/internal/database"
	"github.com/iliyamo/gym-management/internal/model"
	"github.com/iliyamo/gym-management/internal/utils"
)

// AccountRepo is the auth provider's credential store.  It may be bound
// to a different schema than the rest of the application, so it never
// joins transactions opened on the main pool.
type AccountRepo struct {
	db   *sql.DB
	cost int
}

// NewAccountRepo hashes new passwords with bcryptCost.
func NewAccountRepo(db *sql.DB, bcryptCost int) *AccountRepo {
	return &AccountRepo{db: db, cost: bcryptCost}
}

// Create hashes password and inserts a new account, returning its UUID.
func (r *AccountRepo) Create(ctx context.Context, email, password string) (string, error) {
	email = normalizeEmail(email)
	hash, err := utils.HashPassword(password, r.cost)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err = database.Conn(ctx, r.db).ExecContext(ctx,
		"INSERT INTO auth_users (id, email, password_hash) VALUES (?,?,?)",
		id, email, hash)
	if err != nil {
		if isDuplicate(err) {
			return "", ErrEmailExists
		}
		return "", err
	}
	return id, nil
}

const accountCols = "id,email,password_hash,is_active,created_at,updated_at"

// GetByEmail fetches an account by normalized email.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (model.Account, error) {
	var a model.Account
	err := database.Conn(ctx, r.db).QueryRowContext(ctx,
		"SELECT "+accountCols+" FROM auth_users WHERE email=? LIMIT 1",
		normalizeEmail(email)).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	return a, notFound(err)
}

// GetByID fetches an account by id.
func (r *AccountRepo) GetByID(ctx context.Context, id string) (model.Account, error) {
	var a model.Account
	err := database.Conn(ctx, r.db).QueryRowContext(ctx,
		"SELECT "+accountCols+" FROM auth_users WHERE id=? LIMIT 1",
		id).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	return a, notFound(err)
}

// Delete removes the account.  Deleting a missing account is not an error
// so saga compensation can be retried safely.
func (r *AccountRepo) Delete(ctx context.Context, id string) error {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, "DELETE FROM auth_users WHERE id=?", id)
	return err
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
