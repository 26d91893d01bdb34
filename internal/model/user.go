package model

import "time"

// Account is a credential record held by the auth provider (auth_users).
// Its ID is the user's identity everywhere else: profiles, roles and
// memberships are keyed by it.
type Account struct {
	ID           string    // auth_users.id (UUID)
	Email        string    // auth_users.email, lower-cased
	PasswordHash string    // bcrypt hash
	IsActive     bool      // auth_users.is_active
	CreatedAt    time.Time // auth_users.created_at
	UpdatedAt    time.Time // auth_users.updated_at
}

// RefreshToken models an entry in the refresh_tokens table.  Only the
// SHA-256 hash of the token value is stored.
type RefreshToken struct {
	ID        uint64
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// Profile holds the personal details of any user regardless of role.
type Profile struct {
	ID               string     `json:"id"`
	FullName         string     `json:"full_name"`
	Email            string     `json:"email"`
	Phone            *string    `json:"phone,omitempty"`
	DateOfBirth      *time.Time `json:"date_of_birth,omitempty"`
	Gender           *string    `json:"gender,omitempty"`
	Address          *string    `json:"address,omitempty"`
	EmergencyContact *string    `json:"emergency_contact,omitempty"`
	AvatarURL        *string    `json:"avatar_url,omitempty"`
	Role             Role       `json:"role,omitempty"` // populated by joined reads only
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Trainer extends a trainer's profile with coaching details.
type Trainer struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Specialization  *string   `json:"specialization,omitempty"`
	ExperienceYears int       `json:"experience_years"`
	Bio             *string   `json:"bio,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
