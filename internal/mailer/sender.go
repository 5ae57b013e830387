package mailer

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/JonMunkholm/richway/internal/config"
	"github.com/JonMunkholm/richway/internal/core"
	"github.com/JonMunkholm/richway/internal/logging"
)

// dialer is the part of *gomail.Dialer used by SMTP.
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTP delivers mail through an authenticated SMTP relay.
type SMTP struct {
	dialer   dialer
	from     string
	fromName string
}

// NewSMTP builds a sender from mail settings. The From address is always
// the authenticated account.
func NewSMTP(cfg *config.MailConfig) *SMTP {
	return &SMTP{
		dialer:   gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:     cfg.User,
		fromName: cfg.FromName,
	}
}

// Send delivers msg. gomail has no context support, so a cancelled ctx
// returns early while the dial finishes in the background.
func (s *SMTP) Send(ctx context.Context, msg core.Message) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.from, s.fromName)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)

	done := make(chan error, 1)
	go func() { done <- s.dialer.DialAndSend(m) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send mail to %s: %w", msg.To, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Log stands in for SMTP when no credentials are configured.
type Log struct{}

// Send logs the message instead of delivering it.
func (Log) Send(ctx context.Context, msg core.Message) error {
	logging.FromContext(ctx).Info("email delivery disabled, skipping",
		"to", msg.To,
		"subject", msg.Subject,
	)
	return nil
}

// New picks SMTP when credentials are set and Log otherwise.
func New(cfg *config.MailConfig) core.Sender {
	if cfg.Enabled() {
		return NewSMTP(cfg)
	}
	return Log{}
}
