package notification

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage is an in-memory implementation of the Storage interface.
// Suitable for development and testing.
type MemoryStorage struct {
	notifications map[recipientKey][]Notification
	dedupe        map[dedupeKey]string // -> notification id
	mu            sync.RWMutex
}

type recipientKey struct {
	tenantID    string
	recipientID string
}

type dedupeKey struct {
	tenantID    string
	recipientID string
	key         string
}

// NewMemoryStorage creates a new in-memory notification storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		notifications: make(map[recipientKey][]Notification),
		dedupe:        make(map[dedupeKey]string),
	}
}

func (s *MemoryStorage) Create(ctx context.Context, params CreateParams) (Notification, error) {
	if err := params.Validate(); err != nil {
		return Notification{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rk := recipientKey{params.TenantID, params.RecipientID}

	if params.DedupeKey != "" {
		dk := dedupeKey{params.TenantID, params.RecipientID, params.DedupeKey}
		if id, ok := s.dedupe[dk]; ok {
			for _, n := range s.notifications[rk] {
				if n.ID == id {
					return n, nil
				}
			}
		}
	}

	notif := Notification{
		ID:          uuid.New().String(),
		TenantID:    params.TenantID,
		RecipientID: params.RecipientID,
		Kind:        params.Kind,
		Message:     params.Message,
		Payload:     params.Payload,
		CreatedAt:   time.Now(),
	}

	s.notifications[rk] = append(s.notifications[rk], notif)
	if params.DedupeKey != "" {
		s.dedupe[dedupeKey{params.TenantID, params.RecipientID, params.DedupeKey}] = notif.ID
	}
	return notif, nil
}

func (s *MemoryStorage) ListUnread(ctx context.Context, tenantID, recipientID string) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var unread []Notification
	for _, n := range s.notifications[recipientKey{tenantID, recipientID}] {
		if !n.Read {
			unread = append(unread, n)
		}
	}

	sort.Slice(unread, func(i, j int) bool {
		return unread[i].CreatedAt.After(unread[j].CreatedAt)
	})
	return unread, nil
}

func (s *MemoryStorage) MarkRead(ctx context.Context, tenantID, recipientID, notificationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	notifications := s.notifications[recipientKey{tenantID, recipientID}]
	for i := range notifications {
		if notifications[i].ID == notificationID {
			notifications[i].MarkAsRead()
			return nil
		}
	}
	return ErrNotificationNotFound
}

func (s *MemoryStorage) MarkAllRead(ctx context.Context, tenantID, recipientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	notifications := s.notifications[recipientKey{tenantID, recipientID}]
	for i := range notifications {
		notifications[i].MarkAsRead()
	}
	return nil
}

func (s *MemoryStorage) CountUnread(ctx context.Context, tenantID, recipientID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.notifications[recipientKey{tenantID, recipientID}] {
		if !n.Read {
			count++
		}
	}
	return count, nil
}
