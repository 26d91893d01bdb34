package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/gym-management/internal/model"
	"github.com/iliyamo/gym-management/internal/queue"
	"github.com/iliyamo/gym-management/internal/repository"
)

// ClassStore persists scheduled classes.
type ClassStore interface {
	Create(ctx context.Context, c *model.Class) error
	Update(ctx context.Context, c model.Class) error
	Cancel(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (model.Class, error)
	GetForUpdate(ctx context.Context, id string) (model.Class, error)
	List(ctx context.Context, from, to time.Time) ([]model.Class, error)
}

// BookingStore persists class bookings.
type BookingStore interface {
	CountActive(ctx context.Context, classID string) (int, error)
	HasActive(ctx context.Context, classID, userID string) (bool, error)
	Create(ctx context.Context, classID, userID string) (model.Booking, error)
	GetByID(ctx context.Context, id string) (model.Booking, error)
	SetStatus(ctx context.Context, id string, from, to model.BookingStatus) error
	ListByClass(ctx context.Context, classID string) ([]model.Booking, error)
	ListByUser(ctx context.Context, userID string) ([]model.Booking, error)
}

// ClassService schedules classes and takes bookings.
type ClassService struct {
	tx          Transactor
	classes     ClassStore
	bookings    BookingStore
	memberships MembershipStore
	events      EventPublisher
	log         *zap.Logger
	now         func() time.Time
}

// NewClassService constructs a ClassService.
func NewClassService(tx Transactor, c ClassStore, b BookingStore, m MembershipStore, ev EventPublisher, log *zap.Logger) *ClassService {
	return &ClassService{tx: tx, classes: c, bookings: b, memberships: m, events: ev, log: log, now: time.Now}
}

func validateClass(c *model.Class) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return invalid("name is required")
	}
	if c.StartsAt.IsZero() || !c.EndsAt.After(c.StartsAt) {
		return invalid("ends_at must be after starts_at")
	}
	if c.Capacity < 1 {
		return invalid("capacity must be at least 1")
	}
	return nil
}

// Create validates and schedules a class.
func (s *ClassService) Create(ctx context.Context, c model.Class) (model.Class, error) {
	if err := validateClass(&c); err != nil {
		return c, err
	}
	err := s.classes.Create(ctx, &c)
	return c, err
}

// Update rewrites a class.  Capacity cannot drop below the places
// already booked.
func (s *ClassService) Update(ctx context.Context, c model.Class) (model.Class, error) {
	if err := validateClass(&c); err != nil {
		return c, err
	}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		cur, err := s.classes.GetForUpdate(ctx, c.ID)
		if err != nil {
			return err
		}
		if c.Capacity < cur.Booked {
			return invalid("capacity %d is below the %d places already booked", c.Capacity, cur.Booked)
		}
		return s.classes.Update(ctx, c)
	})
	return c, err
}

// Cancel marks a class cancelled.
func (s *ClassService) Cancel(ctx context.Context, id string) error {
	return s.classes.Cancel(ctx, id)
}

// Schedule lists classes in [from, to); zero bounds default to the next
// seven days.
func (s *ClassService) Schedule(ctx context.Context, from, to time.Time) ([]model.Class, error) {
	if from.IsZero() {
		from = s.now().UTC()
	}
	if to.IsZero() {
		to = from.AddDate(0, 0, 7)
	}
	if to.Before(from) {
		return nil, invalid("to must not be before from")
	}
	return s.classes.List(ctx, from, to)
}

// Book reserves a place for userID.  The class row is locked for the
// whole check-then-insert so concurrent bookings cannot overfill it.
func (s *ClassService) Book(ctx context.Context, classID, userID string) (model.Booking, error) {
	m, err := currentMembership(ctx, s.memberships, userID)
	if err != nil {
		return model.Booking{}, err
	}
	now := s.now().UTC()
	if err := activeMembership(m, now); err != nil {
		return model.Booking{}, err
	}

	var (
		b model.Booking
		c model.Class
	)
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		c, err = s.classes.GetForUpdate(ctx, classID)
		if err != nil {
			return err
		}
		if c.IsCancelled || !c.StartsAt.After(now) {
			return ErrClassClosed
		}
		dup, err := s.bookings.HasActive(ctx, classID, userID)
		if err != nil {
			return err
		}
		if dup {
			return ErrAlreadyBooked
		}
		n, err := s.bookings.CountActive(ctx, classID)
		if err != nil {
			return err
		}
		if n >= c.Capacity {
			return ErrClassFull
		}
		b, err = s.bookings.Create(ctx, classID, userID)
		return err
	})
	if err != nil {
		return model.Booking{}, err
	}

	publish(ctx, s.events, s.log, queue.Event{
		Type:    queue.ClassBooked,
		UserID:  userID,
		Title:   "Class booked",
		Message: fmt.Sprintf("You are booked into %s on %s.", c.Name, c.StartsAt.Format("Mon 2 Jan 15:04")),
		Data:    map[string]string{"class_id": classID, "booking_id": b.ID},
	})
	return b, nil
}

// CancelBooking cancels a booked place.  Unless privileged, callers may
// only cancel their own bookings.
func (s *ClassService) CancelBooking(ctx context.Context, bookingID, callerID string, privileged bool) error {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if !privileged && b.UserID != callerID {
		return repository.ErrForbidden
	}
	return s.move(ctx, b, model.BookingCancelled)
}

// MarkAttended records that the member showed up.
func (s *ClassService) MarkAttended(ctx context.Context, bookingID string) error {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	return s.move(ctx, b, model.BookingAttended)
}

// MarkNoShow records that the member did not come.
func (s *ClassService) MarkNoShow(ctx context.Context, bookingID string) error {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	return s.move(ctx, b, model.BookingNoShow)
}

func (s *ClassService) move(ctx context.Context, b model.Booking, to model.BookingStatus) error {
	if b.Status != model.BookingBooked {
		return fmt.Errorf("%w: booking is %s", repository.ErrConflict, b.Status)
	}
	err := s.bookings.SetStatus(ctx, b.ID, model.BookingBooked, to)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: booking changed concurrently", repository.ErrConflict)
	}
	return err
}

// ClassBookings lists the bookings of one class.
func (s *ClassService) ClassBookings(ctx context.Context, classID string) ([]model.Booking, error) {
	if _, err := s.classes.GetByID(ctx, classID); err != nil {
		return nil, err
	}
	return s.bookings.ListByClass(ctx, classID)
}

// UserBookings lists a user's bookings.
func (s *ClassService) UserBookings(ctx context.Context, userID string) ([]model.Booking, error) {
	return s.bookings.ListByUser(ctx, userID)
}
