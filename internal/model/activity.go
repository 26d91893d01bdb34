package model

import (
	"encoding/json"
	"time"
)

// Attendance is one visit.  CheckOutAt is nil while the member is inside.
type Attendance struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	FullName   string     `json:"full_name,omitempty"` // joined reads only
	CheckInAt  time.Time  `json:"check_in_at"`
	CheckOutAt *time.Time `json:"check_out_at,omitempty"`
}

// Class is a scheduled group session.
type Class struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	TrainerID   *string   `json:"trainer_id,omitempty"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	Capacity    int       `json:"capacity"`
	Location    *string   `json:"location,omitempty"`
	IsCancelled bool      `json:"is_cancelled"`
	Booked      int       `json:"booked"` // active bookings, list reads only
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Booking reserves a place in a class for a user.
type Booking struct {
	ID        string        `json:"id"`
	ClassID   string        `json:"class_id"`
	UserID    string        `json:"user_id"`
	Status    BookingStatus `json:"status"`
	BookedAt  time.Time     `json:"booked_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Notification is an in-app message for one user.
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}

// Progress is a body measurement snapshot for a member.
type Progress struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	RecordedBy   *string         `json:"recorded_by,omitempty"`
	WeightKg     *float64        `json:"weight_kg,omitempty"`
	BodyFatPct   *float64        `json:"body_fat_pct,omitempty"`
	Measurements json.RawMessage `json:"measurements,omitempty"`
	Notes        *string         `json:"notes,omitempty"`
	RecordedAt   time.Time       `json:"recorded_at"`
}

// WorkoutPlan is a trainer-authored programme for a member.
type WorkoutPlan struct {
	ID        string          `json:"id"`
	MemberID  string          `json:"member_id"`
	TrainerID *string         `json:"trainer_id,omitempty"`
	Title     string          `json:"title"`
	Plan      json.RawMessage `json:"plan"`
	StartDate *time.Time      `json:"start_date,omitempty"`
	EndDate   *time.Time      `json:"end_date,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
