// Package queue carries domain events over RabbitMQ.  Services publish to
// the gym.events queue after their transaction commits; the consumer turns
// each event into an in-app notification and an optional e-mail.
package queue

import (
	"errors"
	"time"
)

// EventsQueue is the durable queue every event is published to.
const EventsQueue = "gym.events"

// EventType names what happened.
type EventType string

const (
	MemberCreated       EventType = "member.created"
	MembershipAssigned  EventType = "membership.assigned"
	MembershipActivated EventType = "membership.activated"
	PaymentRecorded     EventType = "payment.recorded"
	ClassBooked         EventType = "class.booked"
)

// Event is the message body.  UserID is the recipient of the resulting
// notification.
type Event struct {
	Type       EventType         `json:"type"`
	UserID     string            `json:"user_id"`
	Title      string            `json:"title"`
	Message    string            `json:"message"`
	Data       map[string]string `json:"data,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Validate rejects events that cannot be turned into a notification.
func (e Event) Validate() error {
	switch e.Type {
	case MemberCreated, MembershipAssigned, MembershipActivated, PaymentRecorded, ClassBooked:
	default:
		return errors.New("unknown event type")
	}
	if e.UserID == "" {
		return errors.New("event has no user")
	}
	if e.Title == "" {
		return errors.New("event has no title")
	}
	return nil
}
