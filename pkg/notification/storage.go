package notification

import (
	"context"
)

// CreateParams describes a notification to persist.
type CreateParams struct {
	TenantID    string
	RecipientID string
	Kind        Kind
	Message     string
	Payload     map[string]any

	// DedupeKey, when set, makes Create idempotent per
	// (tenant, recipient, key): a retried create returns the record stored
	// by the first call instead of inserting a duplicate.
	DedupeKey string
}

// Validate checks the fields a storage cannot default.
func (p CreateParams) Validate() error {
	if p.TenantID == "" {
		return ErrTenantRequired
	}
	if p.RecipientID == "" {
		return ErrRecipientRequired
	}
	if !p.Kind.Valid() {
		return ErrInvalidKind
	}
	return nil
}

// Storage handles notification persistence and retrieval. Every operation is
// scoped to a tenant: ids never resolve across tenant boundaries.
type Storage interface {
	// Create atomically stores a new notification and returns the persisted
	// record including generated id and timestamps.
	Create(ctx context.Context, params CreateParams) (Notification, error)

	// ListUnread returns the recipient's unread notifications, newest first.
	// The result is a point-in-time snapshot.
	ListUnread(ctx context.Context, tenantID, recipientID string) ([]Notification, error)

	// MarkRead sets read=true and stamps read_at on first transition.
	// Already-read notifications are a no-op. Returns
	// ErrNotificationNotFound when the id does not resolve within
	// (tenant, recipient) - unknown ids and foreign ids are
	// indistinguishable to the caller.
	MarkRead(ctx context.Context, tenantID, recipientID, notificationID string) error

	// MarkAllRead transitions all currently-unread notifications of the
	// recipient. Notifications in other tenants are never touched.
	MarkAllRead(ctx context.Context, tenantID, recipientID string) error

	// CountUnread returns the recipient's unread count.
	CountUnread(ctx context.Context, tenantID, recipientID string) (int, error)
}
