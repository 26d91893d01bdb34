package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/gym-management/internal/model"
	"github.com/iliyamo/gym-management/internal/notify"
)

// ErrMalformed marks a message that can never be handled, however often
// it is redelivered.
var ErrMalformed = errors.New("malformed event")

// NotificationStore persists in-app notifications.
type NotificationStore interface {
	Create(ctx context.Context, n *model.Notification) error
}

// ProfileLookup resolves the recipient's e-mail address.
type ProfileLookup interface {
	GetByID(ctx context.Context, id string) (model.Profile, error)
}

// Consumer drains EventsQueue.
type Consumer struct {
	url           string
	notifications NotificationStore
	profiles      ProfileLookup
	sender        notify.Sender
	log           *zap.Logger
}

// NewConsumer returns a consumer for the broker at url.
func NewConsumer(url string, n NotificationStore, p ProfileLookup, s notify.Sender, log *zap.Logger) *Consumer {
	return &Consumer{url: url, notifications: n, profiles: p, sender: s, log: log}
}

// Run consumes until ctx is cancelled, reconnecting with exponential
// backoff (capped at 30s) whenever the broker is unreachable.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("event consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("event consumer: loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("event consumer: set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(EventsQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, EventsQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	backoff := retryBase
	for d := range msgs {
		backoff = c.deliver(ctx, d, d.Body, backoff)
	}
	return errors.New("deliveries channel closed")
}

const (
	retryBase = 500 * time.Millisecond
	retryMax  = 30 * time.Second
)

// acker is the settling half of amqp.Delivery.
type acker interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// deliver handles one message and settles it.  Malformed events are
// dropped; any other failure is requeued after backoff, which doubles per
// consecutive failure and resets on success.  It returns the next backoff.
func (c *Consumer) deliver(ctx context.Context, d acker, body []byte, backoff time.Duration) time.Duration {
	err := c.Handle(ctx, body)
	switch {
	case err == nil:
		_ = d.Ack(false)
		return retryBase
	case errors.Is(err, ErrMalformed):
		c.log.Warn("event consumer: dropping malformed event", zap.Error(err))
		_ = d.Nack(false, false)
		return backoff
	default:
		c.log.Warn("event consumer: handle failed, requeueing", zap.Error(err), zap.Duration("retry_in", backoff))
		sleep(ctx, backoff)
		_ = d.Nack(false, true)
		return min(backoff*2, retryMax)
	}
}

var notificationTypes = map[EventType]model.NotificationType{
	MemberCreated:       model.NotificationSystem,
	MembershipAssigned:  model.NotificationMembership,
	MembershipActivated: model.NotificationMembership,
	PaymentRecorded:     model.NotificationPayment,
	ClassBooked:         model.NotificationClass,
}

// Handle stores the notification for one message body and e-mails the
// recipient.  E-mail failures are logged, not returned, so the message
// is still acknowledged once the notification row exists.
func (c *Consumer) Handle(ctx context.Context, body []byte) error {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := ev.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	n := &model.Notification{
		UserID:  ev.UserID,
		Type:    notificationTypes[ev.Type],
		Title:   ev.Title,
		Message: ev.Message,
	}
	if err := c.notifications.Create(ctx, n); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}

	p, err := c.profiles.GetByID(ctx, ev.UserID)
	if err != nil {
		c.log.Warn("event consumer: recipient lookup failed", zap.Error(err), zap.String("user_id", ev.UserID))
		return nil
	}
	if err := c.sender.Send(ctx, notify.Message{To: p.Email, Subject: ev.Title, Body: ev.Message}); err != nil {
		c.log.Warn("event consumer: email failed", zap.Error(err), zap.String("user_id", ev.UserID))
	}
	return nil
}
