// Package email sends operator notification emails.
//
// Two transports are provided:
// - SMTP (Mailhog in development, any relay in production)
// - SendGrid's v3 mail send API
package email

import (
	"context"
	"fmt"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Sender delivers a single email. Implementations must be safe for
// concurrent use.
type Sender interface {
	Send(ctx context.Context, email Email) error
}

// =============================================================================
// Email Data Types
// =============================================================================

// Email represents a single email message.
type Email struct {
	To       string // Recipient email address
	Subject  string // Email subject line
	HTMLBody string // HTML content, optional
	TextBody string // Plain text content
}

// Validate checks that the message can be delivered.
func (e Email) Validate() error {
	if e.To == "" {
		return fmt.Errorf("email: recipient is required")
	}
	if e.Subject == "" {
		return fmt.Errorf("email: subject is required")
	}
	if e.TextBody == "" && e.HTMLBody == "" {
		return fmt.Errorf("email: body is required")
	}
	return nil
}

// =============================================================================
// Configuration Types
// =============================================================================

// SMTPConfig holds SMTP server configuration.
type SMTPConfig struct {
	Host     string // SMTP server hostname (e.g., "localhost" for Mailhog)
	Port     int    // SMTP server port (e.g., 1025 for Mailhog)
	Username string // SMTP authentication username (empty for Mailhog)
	Password string // SMTP authentication password (empty for Mailhog)
	From     string // Default sender email address
	FromName string // Default sender display name
}

// SendGridConfig holds SendGrid API configuration.
type SendGridConfig struct {
	APIKey   string
	From     string
	FromName string
	Host     string // API host, empty for https://api.sendgrid.com
}

// =============================================================================
// Common Constants
// =============================================================================

const (
	// DefaultFromEmail is the default sender email for operator alerts.
	DefaultFromEmail = "alerts@presskit.app"

	// DefaultFromName is the default sender display name.
	DefaultFromName = "Presskit"
)
