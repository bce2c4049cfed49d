// Package mail sends transactional email.
package mail

import (
	"context"
	"fmt"
)

// Message is one outbound email.
type Message struct {
	To       string
	Subject  string
	BodyText string
	BodyHTML string
}

// Mailer is the sending surface the services depend on.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// WelcomeMessage builds the email sent after signup.
func WelcomeMessage(to, name string) Message {
	return Message{
		To:       to,
		Subject:  "Welcome to Tourbook!",
		BodyText: fmt.Sprintf("Hi %s,\n\nWelcome to Tourbook. We're glad to have you on board.\n", name),
		BodyHTML: fmt.Sprintf("<p>Hi %s,</p><p>Welcome to Tourbook. We're glad to have you on board.</p>", name),
	}
}

// PasswordResetMessage builds the email carrying a reset link. The link is
// valid for ten minutes.
func PasswordResetMessage(to, name, resetURL string) Message {
	return Message{
		To:      to,
		Subject: "Your password reset token (valid for 10 minutes)",
		BodyText: fmt.Sprintf(
			"Hi %s,\n\nForgot your password? Submit a PATCH request with your new password to:\n%s\n\nIf you didn't forget your password, please ignore this email.\n",
			name, resetURL),
		BodyHTML: fmt.Sprintf(
			"<p>Hi %s,</p><p>Forgot your password? <a href=%q>Reset it here</a>. The link is valid for 10 minutes.</p><p>If you didn't forget your password, please ignore this email.</p>",
			name, resetURL),
	}
}
