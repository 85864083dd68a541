package notify

import (
	"context"
	"fmt"

	"github.com/DukeRupert/presskit/internal/domain"
	"github.com/DukeRupert/presskit/internal/email"
)

// EmailNotifier sends notifications to the operator's inbox.
type EmailNotifier struct {
	sender email.Sender
	to     string
}

// NewEmailNotifier creates a notifier that emails to.
func NewEmailNotifier(sender email.Sender, to string) *EmailNotifier {
	return &EmailNotifier{sender: sender, to: to}
}

// Notify sends the notification as a plain-text email.
func (e *EmailNotifier) Notify(ctx context.Context, n domain.Notification) error {
	err := e.sender.Send(ctx, email.Email{
		To:       e.to,
		Subject:  n.Title,
		TextBody: n.Body,
	})
	if err != nil {
		return fmt.Errorf("email notification: %w", err)
	}
	return nil
}

var _ Notifier = (*EmailNotifier)(nil)
