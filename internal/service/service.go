// Package service implements the multi-step workflows: user onboarding,
// membership assignment, payment confirmation, check-in, class booking,
// point-of-sale and payroll.  Every sequence that writes more than one
// row runs inside a single Transactor call.
package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/iliyamo/gym-management/internal/queue"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrMembershipInactive = errors.New("membership is not active")
	ErrAlreadyCheckedIn   = errors.New("member is already checked in")
	ErrClassFull          = errors.New("class is full")
	ErrClassClosed        = errors.New("class is cancelled or has already started")
	ErrAlreadyBooked      = errors.New("already booked into this class")
	ErrOutOfStock         = errors.New("insufficient stock")
	ErrCouponInvalid      = errors.New("coupon is not valid")
	ErrRoleMismatch       = errors.New("user does not hold the expected role")
	ErrSelfDelete         = errors.New("cannot delete your own account")
)

// invalid wraps ErrInvalidInput with a client-facing message.
func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Transactor runs fn inside one database transaction.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher hands domain events to the message broker.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.Event) error
}

// publish sends ev after the owning transaction has committed.  Broker
// failures are logged and never fail the request.
func publish(ctx context.Context, pub EventPublisher, log *zap.Logger, ev queue.Event) {
	if pub == nil {
		return
	}
	if err := pub.Publish(context.WithoutCancel(ctx), ev); err != nil {
		log.Warn("publish event failed", zap.String("type", string(ev.Type)), zap.String("user_id", ev.UserID), zap.Error(err))
	}
}
