package dispatch

import (
	"context"
	"errors"
	"log/slog"

	"github.com/coursehub/notify/pkg/logger"
	"github.com/coursehub/notify/pkg/mailer"
	"github.com/coursehub/notify/pkg/notification"
)

// Pusher is the live-push side of the registry as the dispatcher sees it.
type Pusher interface {
	Send(ctx context.Context, tenantID, recipientID string, event notification.Event) int
}

// EmailChannel is the asynchronous email fallback as the dispatcher sees it.
type EmailChannel interface {
	Enqueue(task mailer.Task) bool
}

// DispatchParams describes a single-recipient delivery.
type DispatchParams struct {
	TenantID    string
	RecipientID string
	Kind        notification.Kind
	Message     string
	Payload     map[string]any

	// DedupeKey is passed through to the store; see notification.CreateParams.
	DedupeKey string

	// LiveOnly suppresses the email fallback for this dispatch.
	LiveOnly bool
}

// DeliveryOutcome reports what happened on each channel. Ephemeral - only
// the notification record itself is persisted.
type DeliveryOutcome struct {
	Persisted      bool
	LiveDelivered  int
	EmailAttempted bool
}

// Dispatcher guarantees persist-then-best-effort-deliver ordering for a
// single notification: storage is the source of truth, live push and email
// are layered on top and can never fail the business operation that
// triggered the notification.
type Dispatcher struct {
	storage   notification.Storage
	pusher    Pusher
	emails    EmailChannel
	addresses mailer.AddressResolver
	logger    *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger for the Dispatcher.
func WithLogger(log *slog.Logger) Option {
	return func(d *Dispatcher) {
		if log != nil {
			d.logger = log
		}
	}
}

// NewDispatcher creates a dispatcher. Pusher, email channel and address
// resolver may be nil, which disables the respective channel; storage is
// mandatory.
func NewDispatcher(storage notification.Storage, pusher Pusher, emails EmailChannel, addresses mailer.AddressResolver, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		storage:   storage,
		pusher:    pusher,
		emails:    emails,
		addresses: addresses,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch persists the notification and drives the delivery channels.
//
// Ordering is strict: persistence first and fatally - if it fails, no live
// push and no email attempt happen, so an unpersisted notification is never
// visible anywhere. The caller suspends on persistence only; push and email
// outcomes are recorded in the DeliveryOutcome but never raised as errors.
func (d *Dispatcher) Dispatch(ctx context.Context, params DispatchParams) (DeliveryOutcome, error) {
	notif, err := d.storage.Create(ctx, notification.CreateParams{
		TenantID:    params.TenantID,
		RecipientID: params.RecipientID,
		Kind:        params.Kind,
		Message:     params.Message,
		Payload:     params.Payload,
		DedupeKey:   params.DedupeKey,
	})
	if err != nil {
		return DeliveryOutcome{}, errors.Join(ErrPersistenceFailure, err)
	}

	outcome := DeliveryOutcome{Persisted: true}

	if d.pusher != nil {
		outcome.LiveDelivered = d.pusher.Send(ctx, notif.TenantID, notif.RecipientID, notif.Event())
	}

	// Email backs up live push regardless of the push outcome: a delivered
	// websocket frame has no persistence-of-transport guarantee.
	if !params.LiveOnly {
		outcome.EmailAttempted = d.enqueueEmail(ctx, notif)
	}

	d.logger.LogAttrs(ctx, slog.LevelDebug, "notification dispatched",
		logger.Component("dispatch"),
		logger.TenantID(notif.TenantID),
		logger.RecipientID(notif.RecipientID),
		logger.NotificationID(notif.ID),
		logger.Kind(string(notif.Kind)),
		logger.DeliveredCount(outcome.LiveDelivered),
		slog.Bool("email_attempted", outcome.EmailAttempted),
	)
	return outcome, nil
}

func (d *Dispatcher) enqueueEmail(ctx context.Context, notif notification.Notification) bool {
	if d.emails == nil || d.addresses == nil {
		return false
	}

	address, err := d.addresses.EmailAddress(ctx, notif.TenantID, notif.RecipientID)
	if err != nil {
		d.logger.LogAttrs(ctx, slog.LevelWarn, "email address lookup failed",
			logger.Component("dispatch"),
			logger.TenantID(notif.TenantID),
			logger.RecipientID(notif.RecipientID),
			logger.Error(err),
		)
		return false
	}
	if address == "" {
		// No email on file; nothing to attempt.
		return false
	}

	vars := make(map[string]any, len(notif.Payload)+1)
	for k, v := range notif.Payload {
		vars[k] = v
	}
	vars["Message"] = notif.Message

	return d.emails.Enqueue(mailer.Task{
		Address: address,
		Kind:    notif.Kind,
		Vars:    vars,
	})
}
