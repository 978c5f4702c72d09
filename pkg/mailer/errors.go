package mailer

import "errors"

var (
	ErrFailedToSendEmail = errors.New("mailer: failed to send email")
	ErrInvalidConfig     = errors.New("mailer: invalid config")
	ErrInvalidParams     = errors.New("mailer: invalid email params")
	ErrChannelStopped    = errors.New("mailer: channel stopped")
)
