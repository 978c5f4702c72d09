package notify

import (
	"context"
	"log/slog"

	"github.com/coursehub/notify/pkg/dispatch"
	"github.com/coursehub/notify/pkg/mailer"
	"github.com/coursehub/notify/pkg/notification"
	"github.com/coursehub/notify/pkg/registry"
)

// Service is the outbound surface of the notification subsystem, consumed by
// the platform's business modules (comment replies, likes, publications) and
// by the thin API layer.
type Service struct {
	storage      notification.Storage
	registry     *registry.Registry
	dispatcher   *dispatch.Dispatcher
	orchestrator *dispatch.Orchestrator
	resolver     dispatch.AudienceResolver
	emails       *mailer.Channel
	handshake    *registry.Handshake
	logger       *slog.Logger
}

// Config wires the service together. Storage, Registry, Dispatcher and
// Orchestrator are mandatory; the rest may be nil when the host disables the
// corresponding surface.
type Config struct {
	Storage      notification.Storage
	Registry     *registry.Registry
	Dispatcher   *dispatch.Dispatcher
	Orchestrator *dispatch.Orchestrator
	Resolver     dispatch.AudienceResolver
	Emails       *mailer.Channel
	Handshake    *registry.Handshake
	Logger       *slog.Logger
}

// New creates the notification service.
func New(cfg Config) *Service {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		storage:      cfg.Storage,
		registry:     cfg.Registry,
		dispatcher:   cfg.Dispatcher,
		orchestrator: cfg.Orchestrator,
		resolver:     cfg.Resolver,
		emails:       cfg.Emails,
		handshake:    cfg.Handshake,
		logger:       log,
	}
}

// Notify delivers one notification to one recipient: comment replies, likes,
// welcome and certificate flows. The caller blocks on persistence only.
func (s *Service) Notify(ctx context.Context, tenantID, recipientID string, kind notification.Kind, message string, payload map[string]any) (dispatch.DeliveryOutcome, error) {
	return s.dispatcher.Dispatch(ctx, dispatch.DispatchParams{
		TenantID:    tenantID,
		RecipientID: recipientID,
		Kind:        kind,
		Message:     message,
		Payload:     payload,
	})
}

// NotifyAudience resolves the criteria into an audience and fans the event
// out: new-lesson and new-course publication flows.
func (s *Service) NotifyAudience(ctx context.Context, tenantID string, kind notification.Kind, message string, payload map[string]any, criteria dispatch.Criteria) (dispatch.BatchOutcome, error) {
	audience, err := s.resolver.Resolve(ctx, tenantID, criteria)
	if err != nil {
		return dispatch.BatchOutcome{}, err
	}
	return s.orchestrator.NotifyAudience(ctx, dispatch.AudienceParams{
		TenantID: tenantID,
		Kind:     kind,
		Message:  message,
		Payload:  payload,
		Audience: audience,
	})
}

// ListUnread returns the recipient's unread notifications, newest first.
func (s *Service) ListUnread(ctx context.Context, tenantID, recipientID string) ([]notification.Notification, error) {
	return s.storage.ListUnread(ctx, tenantID, recipientID)
}

// MarkRead marks one notification read on behalf of recipientID. Only the
// recipient may mark their own notification: for anyone else the id does not
// resolve and the call returns notification.ErrNotificationNotFound, the
// same answer an unknown or cross-tenant id gets.
func (s *Service) MarkRead(ctx context.Context, tenantID, recipientID, notificationID string) error {
	return s.storage.MarkRead(ctx, tenantID, recipientID, notificationID)
}

// MarkAllRead marks all of the recipient's unread notifications read.
func (s *Service) MarkAllRead(ctx context.Context, tenantID, recipientID string) error {
	return s.storage.MarkAllRead(ctx, tenantID, recipientID)
}

// CountUnread returns the recipient's unread count for badge display.
func (s *Service) CountUnread(ctx context.Context, tenantID, recipientID string) (int, error) {
	return s.storage.CountUnread(ctx, tenantID, recipientID)
}

// Connect performs the handshake for an inbound live connection and returns
// its connection id. Rejected tokens yield registry.ErrAuthRejected and the
// transport is closed.
func (s *Service) Connect(ctx context.Context, token string, conn registry.Conn) (string, error) {
	return s.handshake.Run(ctx, token, conn)
}

// Disconnect removes a live connection. Idempotent.
func (s *Service) Disconnect(connectionID string) {
	s.registry.Unregister(connectionID)
}

// Close shuts the delivery side down gracefully: the registry drains its
// connections and the email channel finishes buffered sends. Storage is
// owned by the caller and stays open.
func (s *Service) Close(ctx context.Context) error {
	if s.registry != nil {
		s.registry.Close()
	}
	if s.emails != nil {
		return s.emails.Stop(ctx)
	}
	return nil
}
