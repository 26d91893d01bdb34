package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/gym-management/internal/model"
	"github.com/iliyamo/gym-management/internal/queue"
	"github.com/iliyamo/gym-management/internal/repository"
)

// PlanReader loads the plan being assigned.
type PlanReader interface {
	GetByID(ctx context.Context, id string) (model.Plan, error)
}

// MembershipStore persists memberships.
type MembershipStore interface {
	GetByID(ctx context.Context, id string) (model.Membership, error)
	GetForUpdate(ctx context.Context, id string) (model.Membership, error)
	GetByQRToken(ctx context.Context, token string) (model.Membership, error)
	GetCurrent(ctx context.Context, userID string) (model.Membership, error)
	GetCurrentForUpdate(ctx context.Context, userID string) (model.Membership, error)
	Create(ctx context.Context, m model.Membership) error
	Reassign(ctx context.Context, id, planID string, start, end time.Time) error
	MarkPaid(ctx context.Context, id string) error
	SaveState(ctx context.Context, m model.Membership) error
	List(ctx context.Context, status model.MembershipStatus) ([]model.Membership, error)
}

// UserLocker serialises writers per user.
type UserLocker interface {
	Lock(ctx context.Context, userID string) error
}

// MembershipService runs the membership lifecycle.
type MembershipService struct {
	tx          Transactor
	plans       PlanReader
	memberships MembershipStore
	users       UserLocker
	events      EventPublisher
	log         *zap.Logger
	now         func() time.Time
}

// NewMembershipService constructs a MembershipService.
func NewMembershipService(tx Transactor, p PlanReader, m MembershipStore, u UserLocker, ev EventPublisher, log *zap.Logger) *MembershipService {
	return &MembershipService{tx: tx, plans: p, memberships: m, users: u, events: ev, log: log, now: time.Now}
}

// Assign gives userID the plan starting on start.  The user's current
// membership, if any, is re-pointed at the new plan and period and reset
// to pending; otherwise a new pending membership with a fresh QR token is
// created.  Both paths run under a lock on the user's profile row so two
// concurrent assignments cannot both insert.
func (s *MembershipService) Assign(ctx context.Context, userID, planID string, start time.Time) (model.Membership, error) {
	userID, planID = strings.TrimSpace(userID), strings.TrimSpace(planID)
	if userID == "" || planID == "" {
		return model.Membership{}, invalid("user_id and plan_id are required")
	}
	if start.IsZero() {
		return model.Membership{}, invalid("start_date is required")
	}
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)

	plan, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return model.Membership{}, fmt.Errorf("load plan: %w", err)
	}
	if !plan.IsActive {
		return model.Membership{}, invalid("plan is not active")
	}
	end := model.MembershipEndDate(start, plan.DurationMonths)

	fill := func(m *model.Membership) {
		m.PlanID, m.StartDate, m.EndDate = planID, start, end
		m.Status, m.PaymentStatus = model.MembershipPending, model.PaymentPending
		m.FreezeStart, m.FreezeEnd = nil, nil
	}

	var out model.Membership
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.users.Lock(ctx, userID); err != nil {
			return err
		}
		cur, err := s.memberships.GetCurrentForUpdate(ctx, userID)
		if errors.Is(err, repository.ErrNotFound) {
			out = model.Membership{ID: uuid.NewString(), UserID: userID, QRToken: model.NewQRToken(userID, s.now())}
			fill(&out)
			return s.memberships.Create(ctx, out)
		}
		if err != nil {
			return err
		}
		if err := s.memberships.Reassign(ctx, cur.ID, planID, start, end); err != nil {
			return err
		}
		out = cur
		fill(&out)
		return nil
	})
	if err != nil {
		return model.Membership{}, err
	}
	out.PlanName = plan.Name

	publish(ctx, s.events, s.log, queue.Event{
		Type:    queue.MembershipAssigned,
		UserID:  userID,
		Title:   "Membership assigned",
		Message: fmt.Sprintf("%s runs from %s to %s. It becomes active once paid.", plan.Name, start.Format("2006-01-02"), end.Format("2006-01-02")),
		Data:    map[string]string{"membership_id": out.ID, "plan_id": planID},
	})
	return out, nil
}

// Get loads one membership.
func (s *MembershipService) Get(ctx context.Context, id string) (model.Membership, error) {
	return s.memberships.GetByID(ctx, id)
}

// ForUser returns the user's current (or most recent) membership.
func (s *MembershipService) ForUser(ctx context.Context, userID string) (model.Membership, error) {
	return s.memberships.GetCurrent(ctx, userID)
}

// ResolveQR finds the membership a check-in token belongs to.
func (s *MembershipService) ResolveQR(ctx context.Context, token string) (model.Membership, error) {
	token = strings.ToUpper(strings.TrimSpace(token))
	if token == "" {
		return model.Membership{}, invalid("qr token is required")
	}
	return s.memberships.GetByQRToken(ctx, token)
}

// List filters by effective status, so an active membership past its end
// date is listed under expired.
func (s *MembershipService) List(ctx context.Context, status model.MembershipStatus) ([]model.Membership, error) {
	if status != "" && !status.Valid() {
		return nil, invalid("unknown status %q", status)
	}
	stored := status
	if status == model.MembershipActive || status == model.MembershipExpired {
		stored = ""
	}
	all, err := s.memberships.List(ctx, stored)
	if err != nil {
		return nil, err
	}
	if status == "" || stored != "" {
		return all, nil
	}
	now := s.now()
	out := make([]model.Membership, 0, len(all))
	for _, m := range all {
		if m.EffectiveStatus(now) == status {
			out = append(out, m)
		}
	}
	return out, nil
}

// transition loads the membership under lock, applies fn and saves the
// resulting state.
func (s *MembershipService) transition(ctx context.Context, id string, fn func(m *model.Membership) error) (model.Membership, error) {
	var out model.Membership
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		m, err := s.memberships.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(&m); err != nil {
			return err
		}
		out = m
		return s.memberships.SaveState(ctx, m)
	})
	return out, err
}

// Freeze suspends an active membership between from and until.
func (s *MembershipService) Freeze(ctx context.Context, id string, from, until time.Time) (model.Membership, error) {
	if from.IsZero() || until.IsZero() {
		return model.Membership{}, invalid("from and until are required")
	}
	return s.transition(ctx, id, func(m *model.Membership) error {
		if m.EffectiveStatus(s.now()) != model.MembershipActive {
			return fmt.Errorf("%w: %v", repository.ErrConflict, model.ErrNotActive)
		}
		if err := m.Freeze(from, until); err != nil {
			if errors.Is(err, model.ErrInvalidWindow) {
				return invalid("until must not be before from")
			}
			return fmt.Errorf("%w: %v", repository.ErrConflict, err)
		}
		return nil
	})
}

// Unfreeze reactivates a frozen membership.  The end date is not moved.
func (s *MembershipService) Unfreeze(ctx context.Context, id string) (model.Membership, error) {
	return s.transition(ctx, id, func(m *model.Membership) error {
		if err := m.Unfreeze(); err != nil {
			return fmt.Errorf("%w: %v", repository.ErrConflict, err)
		}
		return nil
	})
}

// Expire ends a membership administratively.
func (s *MembershipService) Expire(ctx context.Context, id string) (model.Membership, error) {
	return s.transition(ctx, id, func(m *model.Membership) error {
		if m.Status == model.MembershipExpired {
			return fmt.Errorf("%w: membership already expired", repository.ErrConflict)
		}
		m.Status = model.MembershipExpired
		m.FreezeStart, m.FreezeEnd = nil, nil
		return nil
	})
}
