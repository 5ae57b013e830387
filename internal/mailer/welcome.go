// Package mailer renders and delivers the welcome email sent after a
// registration is stored.
package mailer

import (
	"bytes"
	"context"
	"fmt"

	"github.com/JonMunkholm/richway/internal/core"
)

// WelcomeSubject is the subject line of every welcome email.
const WelcomeSubject = "Welcome To Rich Way Family 🎉"

//go:generate templ generate -f welcome.templ

// WelcomeMessage renders the welcome email for one member. The body comes
// from welcome.templ; name and userID are HTML-escaped.
func WelcomeMessage(ctx context.Context, to, name, userID string) (core.Message, error) {
	var buf bytes.Buffer
	if err := welcomeBody(name, userID).Render(ctx, &buf); err != nil {
		return core.Message{}, fmt.Errorf("render welcome email: %w", err)
	}
	return core.Message{
		To:      to,
		Subject: WelcomeSubject,
		HTML:    buf.String(),
	}, nil
}

// Compose adapts WelcomeMessage to core.ComposeFunc.
func Compose(ctx context.Context, rec core.Record) (core.Message, error) {
	return WelcomeMessage(ctx, rec.Email, rec.Name, rec.UserID)
}
