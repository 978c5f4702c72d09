package notification

import (
	"time"
)

// Kind identifies which business event produced a notification.
// The set is closed: storage and templates reject unknown kinds at the edge
// (mailer falls back to a generic template instead).
type Kind string

const (
	KindNewLesson         Kind = "NEW_LESSON"
	KindNewCourse         Kind = "NEW_COURSE"
	KindCommentReply      Kind = "COMMENT_REPLY"
	KindLikeReceived      Kind = "LIKE_RECEIVED"
	KindReferralEarned    Kind = "REFERRAL_EARNED"
	KindWelcome           Kind = "WELCOME"
	KindCertificateIssued Kind = "CERTIFICATE_ISSUED"
)

// Valid reports whether k belongs to the closed kind set.
func (k Kind) Valid() bool {
	switch k {
	case KindNewLesson, KindNewCourse, KindCommentReply, KindLikeReceived,
		KindReferralEarned, KindWelcome, KindCertificateIssued:
		return true
	}
	return false
}

// Notification is the persisted record of a single notification.
// Everything except the Read/ReadAt pair is immutable after creation.
type Notification struct {
	ID          string         `json:"id"`
	TenantID    string         `json:"tenant_id"`
	RecipientID string         `json:"recipient_id"`
	Kind        Kind           `json:"kind"`
	Message     string         `json:"message"`
	Payload     map[string]any `json:"payload,omitempty"`
	Read        bool           `json:"read"`
	ReadAt      *time.Time     `json:"read_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// MarkAsRead sets the read flag. ReadAt is recorded exactly once, on the
// first transition; repeated calls are no-ops.
func (n *Notification) MarkAsRead() {
	if n.Read {
		return
	}
	n.Read = true
	now := time.Now()
	n.ReadAt = &now
}

// Event is the live-push payload delivered to a connected client.
type Event struct {
	ID        string         `json:"id"`
	Kind      Kind           `json:"kind"`
	Message   string         `json:"message"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Event projects the notification into its live-push shape.
func (n Notification) Event() Event {
	return Event{
		ID:        n.ID,
		Kind:      n.Kind,
		Message:   n.Message,
		Payload:   n.Payload,
		CreatedAt: n.CreatedAt,
	}
}
