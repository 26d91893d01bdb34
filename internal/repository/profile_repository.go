package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/gym-management/internal/database"
	"github.com/iliyamo/gym-management/internal/model"
)

// ProfileRepo stores personal details in profiles.
type ProfileRepo struct{ db *sql.DB }

func NewProfileRepo(db *sql.DB) *ProfileRepo { return &ProfileRepo{db: db} }

// Create inserts p using p.ID, which must be the auth account id.
func (r *ProfileRepo) Create(ctx context.Context, p model.Profile) error {
	var dob sql.NullTime
	if p.DateOfBirth != nil {
		dob = sql.NullTime{Time: *p.DateOfBirth, Valid: true}
	}
	_, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO profiles (id, full_name, email, phone, date_of_birth, gender, address, emergency_contact, avatar_url)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		p.ID, p.FullName, normalizeEmail(p.Email), nullStr(p.Phone), dob, nullStr(p.Gender),
		nullStr(p.Address), nullStr(p.EmergencyContact), nullStr(p.AvatarURL))
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

const profileSelect = `SELECT p.id, p.full_name, p.email, p.phone, p.date_of_birth, p.gender, p.address,
	p.emergency_contact, p.avatar_url, COALESCE(r.role, ''), p.created_at, p.updated_at
	FROM profiles p LEFT JOIN user_roles r ON r.user_id = p.id`

type rowScanner interface{ Scan(dest ...any) error }

func scanProfile(s rowScanner) (model.Profile, error) {
	var (
		p                                  model.Profile
		phone, gender, addr, emerg, avatar sql.NullString
		dob                                sql.NullTime
		role                               string
	)
	err := s.Scan(&p.ID, &p.FullName, &p.Email, &phone, &dob, &gender, &addr, &emerg, &avatar, &role, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return p, err
	}
	p.Phone, p.Gender, p.Address, p.EmergencyContact, p.AvatarURL = strPtr(phone), strPtr(gender), strPtr(addr), strPtr(emerg), strPtr(avatar)
	p.DateOfBirth = timePtr(dob)
	p.Role = model.Role(role)
	return p, nil
}

// GetByID returns the profile joined with its role.
func (r *ProfileRepo) GetByID(ctx context.Context, id string) (model.Profile, error) {
	p, err := scanProfile(database.Conn(ctx, r.db).QueryRowContext(ctx, profileSelect+" WHERE p.id=?", id))
	return p, notFound(err)
}

// List returns profiles ordered by name, optionally filtered by role and
// a case-insensitive name or email fragment.
func (r *ProfileRepo) List(ctx context.Context, role model.Role, search string) ([]model.Profile, error) {
	var (
		where []string
		args  []any
	)
	if role != "" {
		where = append(where, "r.role = ?")
		args = append(args, string(role))
	}
	if s := strings.TrimSpace(search); s != "" {
		where = append(where, "(p.full_name LIKE ? OR p.email LIKE ?)")
		like := "%" + s + "%"
		args = append(args, like, like)
	}
	q := profileSelect
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, q+" ORDER BY p.full_name", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Lock takes a row lock on the profile for the rest of the transaction.
// Writers that must be serialised per user (membership assignment,
// check-in) call it first.
func (r *ProfileRepo) Lock(ctx context.Context, id string) error {
	var got string
	err := database.Conn(ctx, r.db).QueryRowContext(ctx,
		"SELECT id FROM profiles WHERE id=? FOR UPDATE", id).Scan(&got)
	return notFound(err)
}

// SetAvatar records the public URL of the user's avatar.
func (r *ProfileRepo) SetAvatar(ctx context.Context, id, url string) error {
	return mustAffect(database.Conn(ctx, r.db).ExecContext(ctx,
		"UPDATE profiles SET avatar_url=? WHERE id=?", url, id))
}

// Delete removes the profile; foreign keys cascade to dependent rows.
func (r *ProfileRepo) Delete(ctx context.Context, id string) error {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, "DELETE FROM profiles WHERE id=?", id)
	return err
}
