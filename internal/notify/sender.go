// Package notify delivers notification e-mails.
package notify

import (
	"context"
	"fmt"
	"html"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

// Message is one outgoing e-mail.
type Message struct {
	To      string
	Subject string
	Body    string // plain text, escaped into the HTML part
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// ResendSender sends through the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
	log    *zap.Logger
}

func NewResendSender(apiKey, from string, log *zap.Logger) *ResendSender {
	return &ResendSender{client: resend.NewClient(apiKey), from: from, log: log}
}

func (s *ResendSender) Send(ctx context.Context, m Message) error {
	sent, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{m.To},
		Subject: m.Subject,
		Html:    "<p>" + html.EscapeString(m.Body) + "</p>",
		Text:    m.Body,
	})
	if err != nil {
		return fmt.Errorf("resend send: %w", err)
	}
	s.log.Debug("email sent", zap.String("message_id", sent.Id), zap.String("subject", m.Subject))
	return nil
}

// NoopSender drops every message.  It is used when no API key is configured.
type NoopSender struct{ log *zap.Logger }

func NewNoopSender(log *zap.Logger) NoopSender { return NoopSender{log: log} }

func (n NoopSender) Send(_ context.Context, m Message) error {
	if n.log != nil {
		n.log.Debug("email skipped", zap.String("subject", m.Subject))
	}
	return nil
}

// New picks the Resend sender when apiKey is set.
func New(apiKey, from string, log *zap.Logger) Sender {
	if apiKey == "" {
		return NewNoopSender(log)
	}
	return NewResendSender(apiKey, from, log)
}
