package logger

import (
	"log/slog"
)

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// TenantID records the tenant identifier under the key "tenant_id".
func TenantID(id string) slog.Attr {
	return slog.String("tenant_id", id)
}

// RecipientID records the notification recipient under the key "recipient_id".
func RecipientID(id string) slog.Attr {
	return slog.String("recipient_id", id)
}

// NotificationID records the notification identifier under the key "notification_id".
func NotificationID(id string) slog.Attr {
	return slog.String("notification_id", id)
}

// ConnectionID records the live connection identifier under the key "connection_id".
func ConnectionID(id string) slog.Attr {
	return slog.String("connection_id", id)
}

// Kind records the notification kind under the key "kind".
func Kind(kind string) slog.Attr {
	return slog.String("kind", kind)
}

// DeliveredCount records how many live connections accepted a push.
func DeliveredCount(n int) slog.Attr {
	return slog.Int("delivered_count", n)
}

// AudienceSize records the number of recipients in a fan-out.
func AudienceSize(n int) slog.Attr {
	return slog.Int("audience_size", n)
}

// EmailTo records the destination address under the key "email_to".
func EmailTo(address string) slog.Attr {
	return slog.String("email_to", address)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}
