package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/gym-management/internal/model"
	"github.com/iliyamo/gym-management/internal/repository"
)

// AttendanceStore persists visits.
type AttendanceStore interface {
	HasOpenVisit(ctx context.Context, userID string) (bool, error)
	CheckIn(ctx context.Context, userID string, at time.Time) (model.Attendance, error)
	CheckOut(ctx context.Context, id string, at time.Time) error
	List(ctx context.Context, userID string, from, to time.Time) ([]model.Attendance, error)
}

// AttendanceService checks members in and out.
type AttendanceService struct {
	tx          Transactor
	attendance  AttendanceStore
	memberships MembershipStore
	users       UserLocker
	now         func() time.Time
}

// NewAttendanceService constructs an AttendanceService.
func NewAttendanceService(tx Transactor, a AttendanceStore, m MembershipStore, u UserLocker) *AttendanceService {
	return &AttendanceService{tx: tx, attendance: a, memberships: m, users: u, now: time.Now}
}

// activeMembership returns an error unless m grants access at now.
func activeMembership(m model.Membership, now time.Time) error {
	if m.EffectiveStatus(now) != model.MembershipActive {
		return ErrMembershipInactive
	}
	if m.StartDate.After(now) {
		return ErrMembershipInactive
	}
	return nil
}

// currentMembership loads the user's membership, treating "none" as inactive.
func currentMembership(ctx context.Context, store MembershipStore, userID string) (model.Membership, error) {
	m, err := store.GetCurrent(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return m, ErrMembershipInactive
	}
	return m, err
}

// CheckIn opens a visit for the member identified by qrToken or userID.
// The membership must be effectively active and the member must not
// already be inside.
func (s *AttendanceService) CheckIn(ctx context.Context, qrToken, userID string) (model.Attendance, error) {
	qrToken, userID = strings.ToUpper(strings.TrimSpace(qrToken)), strings.TrimSpace(userID)
	var (
		m   model.Membership
		err error
	)
	switch {
	case qrToken != "":
		m, err = s.memberships.GetByQRToken(ctx, qrToken)
	case userID != "":
		m, err = currentMembership(ctx, s.memberships, userID)
	default:
		return model.Attendance{}, invalid("qr_token or user_id is required")
	}
	if err != nil {
		return model.Attendance{}, err
	}
	now := s.now().UTC()
	if err := activeMembership(m, now); err != nil {
		return model.Attendance{}, err
	}

	var a model.Attendance
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.users.Lock(ctx, m.UserID); err != nil {
			return err
		}
		open, err := s.attendance.HasOpenVisit(ctx, m.UserID)
		if err != nil {
			return err
		}
		if open {
			return ErrAlreadyCheckedIn
		}
		a, err = s.attendance.CheckIn(ctx, m.UserID, now)
		return err
	})
	return a, err
}

// CheckOut closes an open visit.
func (s *AttendanceService) CheckOut(ctx context.Context, id string) error {
	return s.attendance.CheckOut(ctx, id, s.now().UTC())
}

// ForDay lists visits that started on day (UTC), optionally for one user.
func (s *AttendanceService) ForDay(ctx context.Context, userID string, day time.Time) ([]model.Attendance, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return s.attendance.List(ctx, userID, from, from.AddDate(0, 0, 1))
}

// History lists a user's visits in [from, to).
func (s *AttendanceService) History(ctx context.Context, userID string, from, to time.Time) ([]model.Attendance, error) {
	if to.Before(from) {
		return nil, invalid("to must not be before from")
	}
	return s.attendance.List(ctx, userID, from, to)
}
