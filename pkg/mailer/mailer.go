package mailer

import (
	"context"
	"fmt"
	"regexp"
)

// EmailSender represents the outbound email transport.
type EmailSender interface {
	SendEmail(ctx context.Context, params SendEmailParams) error
}

// SendEmailParams represents the parameters for sending an email.
type SendEmailParams struct {
	SendTo   string `json:"send_to"`       // Email address of the recipient
	Subject  string `json:"subject"`       // Subject of the email
	BodyHTML string `json:"body_html"`     // HTML body of the email
	Tag      string `json:"tag,omitempty"` // Optional, used for transport-side analytics
}

// emailRegex is intentionally permissive; the transport is the authority on
// deliverability.
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Validate checks the minimum shape of outbound email parameters.
func (p SendEmailParams) Validate() error {
	if p.SendTo == "" || !emailRegex.MatchString(p.SendTo) {
		return fmt.Errorf("%w: SendTo must be a valid email address", ErrInvalidParams)
	}
	if p.Subject == "" {
		return fmt.Errorf("%w: Subject is required", ErrInvalidParams)
	}
	if p.BodyHTML == "" {
		return fmt.Errorf("%w: BodyHTML is required", ErrInvalidParams)
	}
	return nil
}

// AddressResolver maps a recipient to their email address. Implemented by
// the platform's user module. An empty address means no email on file; the
// fallback channel silently skips the attempt.
type AddressResolver interface {
	EmailAddress(ctx context.Context, tenantID, recipientID string) (string, error)
}
