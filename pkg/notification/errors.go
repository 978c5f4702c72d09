package notification

import "errors"

var (
	// ErrNotificationNotFound is returned when an id does not resolve within
	// the caller's tenant and recipient scope. Used uniformly whether the id
	// is unknown or belongs to someone else, to avoid leaking existence.
	ErrNotificationNotFound = errors.New("notification not found")

	ErrTenantRequired    = errors.New("tenant id is required")
	ErrRecipientRequired = errors.New("recipient id is required")
	ErrInvalidKind       = errors.New("unknown notification kind")
)
