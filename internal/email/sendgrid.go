package email

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const sendGridEndpoint = "/v3/mail/send"

// SendGridSender sends emails through the SendGrid v3 API.
type SendGridSender struct {
	config SendGridConfig
	logger *slog.Logger
}

// NewSendGridSender creates a SendGrid-backed sender.
func NewSendGridSender(config SendGridConfig, logger *slog.Logger) (*SendGridSender, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("sendgrid: API key is required")
	}
	if config.From == "" {
		config.From = DefaultFromEmail
	}
	if config.FromName == "" {
		config.FromName = DefaultFromName
	}
	return &SendGridSender{config: config, logger: logger}, nil
}

// Send posts the email to SendGrid. Any non-2xx response is an error.
func (s *SendGridSender) Send(ctx context.Context, email Email) error {
	if err := email.Validate(); err != nil {
		return err
	}

	from := mail.NewEmail(s.config.FromName, s.config.From)
	to := mail.NewEmail("", email.To)
	message := mail.NewSingleEmail(from, email.Subject, to, email.TextBody, email.HTMLBody)

	// sendgrid.Client stores the request body on itself, so build one per send.
	request := sendgrid.GetRequest(s.config.APIKey, sendGridEndpoint, s.config.Host)
	request.Method = "POST"
	client := &sendgrid.Client{Request: request}

	resp, err := client.SendWithContext(ctx, message)
	if err != nil {
		s.logger.Error("failed to send email",
			"transport", "sendgrid",
			"to", email.To,
			"subject", email.Subject,
			"error", err,
		)
		return fmt.Errorf("failed to send email: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Error("sendgrid rejected email",
			"to", email.To,
			"subject", email.Subject,
			"status", resp.StatusCode,
			"body", resp.Body,
		)
		return fmt.Errorf("sendgrid: unexpected status %d", resp.StatusCode)
	}

	s.logger.Info("email sent",
		"transport", "sendgrid",
		"to", email.To,
		"subject", email.Subject,
	)
	return nil
}

var _ Sender = (*SendGridSender)(nil)
