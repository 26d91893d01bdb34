package model

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// Membership state errors.
var (
	ErrNotActive     = errors.New("membership is not active")
	ErrNotFrozen     = errors.New("membership is not frozen")
	ErrInvalidWindow = errors.New("freeze window ends before it starts")
)

// Plan is a purchasable product defining price and duration.
type Plan struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    *string   `json:"description,omitempty"`
	PriceCents     int64     `json:"price_cents"`
	DurationMonths int       `json:"duration_months"`
	Features       []string  `json:"features"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Validate checks the fields an administrator controls.
func (p *Plan) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("plan name is required")
	}
	if p.PriceCents < 0 {
		return errors.New("plan price cannot be negative")
	}
	if p.DurationMonths < 1 {
		return errors.New("plan duration must be at least one month")
	}
	return nil
}

// Membership is a time-bounded grant of gym access tied to a plan.
type Membership struct {
	ID            string           `json:"id"`
	UserID        string           `json:"user_id"`
	PlanID        string           `json:"plan_id"`
	StartDate     time.Time        `json:"start_date"`
	EndDate       time.Time        `json:"end_date"`
	Status        MembershipStatus `json:"status"`
	PaymentStatus PaymentStatus    `json:"payment_status"`
	FreezeStart   *time.Time       `json:"freeze_start,omitempty"`
	FreezeEnd     *time.Time       `json:"freeze_end,omitempty"`
	QRToken       string           `json:"qr_token"`
	PlanName      string           `json:"plan_name,omitempty"` // joined reads only
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// MembershipEndDate advances start by months calendar months.  When the
// target month has fewer days than start's day of month the result is
// clamped to the last day of that month, so 2024-01-31 + 1 is 2024-02-29
// and 2023-01-31 + 1 is 2023-02-28.
func MembershipEndDate(start time.Time, months int) time.Time {
	y, m, d := start.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, start.Location())
	if last := daysIn(first.Year(), first.Month(), start.Location()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, start.Location())
}

func daysIn(y int, m time.Month, loc *time.Location) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, loc).Day()
}

// NewQRToken builds the check-in token GYM-<first 8 chars of user id>-<base36 ms timestamp>,
// upper-cased.  Uniqueness is best effort; the column's unique index is
// the only collision guard.
func NewQRToken(userID string, now time.Time) string {
	prefix := userID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	stamp := strconv.FormatInt(now.UnixMilli(), 36)
	return strings.ToUpper("GYM-" + prefix + "-" + stamp)
}

// EffectiveStatus reports the status as of now.  An active membership
// whose end date lies before now's calendar day reads as expired; the
// stored status is left untouched.
func (m *Membership) EffectiveStatus(now time.Time) MembershipStatus {
	if m.Status == MembershipActive && dateOnly(m.EndDate).Before(dateOnly(now.In(m.EndDate.Location()))) {
		return MembershipExpired
	}
	return m.Status
}

// Freeze suspends an active membership for the given window.
// PRE: Status is active, until is not before from
// POST: Status is frozen and the window is recorded; EndDate is unchanged
func (m *Membership) Freeze(from, until time.Time) error {
	if m.Status != MembershipActive {
		return ErrNotActive
	}
	if dateOnly(until).Before(dateOnly(from)) {
		return ErrInvalidWindow
	}
	f, u := dateOnly(from), dateOnly(until)
	m.FreezeStart, m.FreezeEnd = &f, &u
	m.Status = MembershipFrozen
	return nil
}

// Unfreeze returns a frozen membership to active and clears the window.
func (m *Membership) Unfreeze() error {
	if m.Status != MembershipFrozen {
		return ErrNotFrozen
	}
	m.Status = MembershipActive
	m.FreezeStart, m.FreezeEnd = nil, nil
	return nil
}

// DaysRemaining counts whole days until the end date, never negative.
func (m *Membership) DaysRemaining(now time.Time) int {
	d := int(dateOnly(m.EndDate).Sub(dateOnly(now.In(m.EndDate.Location()))).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
