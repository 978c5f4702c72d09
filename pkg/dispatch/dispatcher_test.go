package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/coursehub/notify/pkg/mailer"
	"github.com/coursehub/notify/pkg/notification"
)

// MockStorage is a testify mock of notification.Storage.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Create(ctx context.Context, params notification.CreateParams) (notification.Notification, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(notification.Notification), args.Error(1)
}

func (m *MockStorage) ListUnread(ctx context.Context, tenantID, recipientID string) ([]notification.Notification, error) {
	args := m.Called(ctx, tenantID, recipientID)
	return args.Get(0).([]notification.Notification), args.Error(1)
}

func (m *MockStorage) MarkRead(ctx context.Context, tenantID, recipientID, notificationID string) error {
	args := m.Called(ctx, tenantID, recipientID, notificationID)
	return args.Error(0)
}

func (m *MockStorage) MarkAllRead(ctx context.Context, tenantID, recipientID string) error {
	args := m.Called(ctx, tenantID, recipientID)
	return args.Error(0)
}

func (m *MockStorage) CountUnread(ctx context.Context, tenantID, recipientID string) (int, error) {
	args := m.Called(ctx, tenantID, recipientID)
	return args.Int(0), args.Error(1)
}

// fakePusher returns a fixed delivered count and records events.
type fakePusher struct {
	mu        sync.Mutex
	delivered int
	events    []notification.Event
}

func (p *fakePusher) Send(ctx context.Context, tenantID, recipientID string, event notification.Event) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.delivered
}

func (p *fakePusher) eventCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

// fakeEmails records enqueued tasks.
type fakeEmails struct {
	mu    sync.Mutex
	tasks []mailer.Task
	full  bool
}

func (e *fakeEmails) Enqueue(task mailer.Task) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.full {
		return false
	}
	e.tasks = append(e.tasks, task)
	return true
}

func (e *fakeEmails) taskCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.tasks)
}

// stubAddresses resolves every recipient to the same address.
type stubAddresses struct {
	address string
	err     error
}

func (a *stubAddresses) EmailAddress(ctx context.Context, tenantID, recipientID string) (string, error) {
	return a.address, a.err
}

func storedNotification(params notification.CreateParams) notification.Notification {
	return notification.Notification{
		ID:          "n1",
		TenantID:    params.TenantID,
		RecipientID: params.RecipientID,
		Kind:        params.Kind,
		Message:     params.Message,
		Payload:     params.Payload,
		CreatedAt:   time.Now(),
	}
}

func TestDispatcher_Dispatch(t *testing.T) {
	t.Run("online recipient gets live push and email backup", func(t *testing.T) {
		storage := new(MockStorage)
		storage.On("Create", mock.Anything, mock.Anything).
			Return(storedNotification(notification.CreateParams{
				TenantID: "t1", RecipientID: "u1", Kind: notification.KindCommentReply, Message: "reply",
			}), nil)

		pusher := &fakePusher{delivered: 2}
		emails := &fakeEmails{}
		d := NewDispatcher(storage, pusher, emails, &stubAddresses{address: "u1@example.com"})

		outcome, err := d.Dispatch(context.Background(), DispatchParams{
			TenantID:    "t1",
			RecipientID: "u1",
			Kind:        notification.KindCommentReply,
			Message:     "reply",
		})

		require.NoError(t, err)
		assert.True(t, outcome.Persisted)
		assert.Equal(t, 2, outcome.LiveDelivered)
		assert.True(t, outcome.EmailAttempted)
		assert.Equal(t, 1, pusher.eventCount())
		assert.Equal(t, 1, emails.taskCount())
		storage.AssertExpectations(t)
	})

	t.Run("offline recipient still gets email", func(t *testing.T) {
		storage := new(MockStorage)
		storage.On("Create", mock.Anything, mock.Anything).
			Return(storedNotification(notification.CreateParams{
				TenantID: "t1", RecipientID: "u1", Kind: notification.KindLikeReceived, Message: "like",
			}), nil)

		pusher := &fakePusher{delivered: 0}
		emails := &fakeEmails{}
		d := NewDispatcher(storage, pusher, emails, &stubAddresses{address: "u1@example.com"})

		outcome, err := d.Dispatch(context.Background(), DispatchParams{
			TenantID:    "t1",
			RecipientID: "u1",
			Kind:        notification.KindLikeReceived,
			Message:     "like",
		})

		require.NoError(t, err)
		assert.True(t, outcome.Persisted)
		assert.Zero(t, outcome.LiveDelivered)
		assert.True(t, outcome.EmailAttempted)
	})

	t.Run("persistence failure suppresses push and email", func(t *testing.T) {
		storage := new(MockStorage)
		storage.On("Create", mock.Anything, mock.Anything).
			Return(notification.Notification{}, errors.New("connection refused"))

		pusher := &fakePusher{delivered: 1}
		emails := &fakeEmails{}
		d := NewDispatcher(storage, pusher, emails, &stubAddresses{address: "u1@example.com"})

		outcome, err := d.Dispatch(context.Background(), DispatchParams{
			TenantID:    "t1",
			RecipientID: "u1",
			Kind:        notification.KindWelcome,
			Message:     "welcome",
		})

		assert.ErrorIs(t, err, ErrPersistenceFailure)
		assert.False(t, outcome.Persisted)
		assert.Zero(t, pusher.eventCount())
		assert.Zero(t, emails.taskCount())
	})

	t.Run("live only skips email", func(t *testing.T) {
		storage := new(MockStorage)
		storage.On("Create", mock.Anything, mock.Anything).
			Return(storedNotification(notification.CreateParams{
				TenantID: "t1", RecipientID: "u1", Kind: notification.KindWelcome, Message: "welcome",
			}), nil)

		emails := &fakeEmails{}
		d := NewDispatcher(storage, &fakePusher{delivered: 1}, emails, &stubAddresses{address: "u1@example.com"})

		outcome, err := d.Dispatch(context.Background(), DispatchParams{
			TenantID:    "t1",
			RecipientID: "u1",
			Kind:        notification.KindWelcome,
			Message:     "welcome",
			LiveOnly:    true,
		})

		require.NoError(t, err)
		assert.False(t, outcome.EmailAttempted)
		assert.Zero(t, emails.taskCount())
	})

	t.Run("no email on file", func(t *testing.T) {
		storage := new(MockStorage)
		storage.On("Create", mock.Anything, mock.Anything).
			Return(storedNotification(notification.CreateParams{
				TenantID: "t1", RecipientID: "u1", Kind: notification.KindWelcome, Message: "welcome",
			}), nil)

		emails := &fakeEmails{}
		d := NewDispatcher(storage, &fakePusher{}, emails, &stubAddresses{address: ""})

		outcome, err := d.Dispatch(context.Background(), DispatchParams{
			TenantID:    "t1",
			RecipientID: "u1",
			Kind:        notification.KindWelcome,
			Message:     "welcome",
		})

		require.NoError(t, err)
		assert.False(t, outcome.EmailAttempted)
	})

	t.Run("address lookup failure does not fail dispatch", func(t *testing.T) {
		storage := new(MockStorage)
		storage.On("Create", mock.Anything, mock.Anything).
			Return(storedNotification(notification.CreateParams{
				TenantID: "t1", RecipientID: "u1", Kind: notification.KindWelcome, Message: "welcome",
			}), nil)

		d := NewDispatcher(storage, &fakePusher{delivered: 1}, &fakeEmails{}, &stubAddresses{err: errors.New("directory down")})

		outcome, err := d.Dispatch(context.Background(), DispatchParams{
			TenantID:    "t1",
			RecipientID: "u1",
			Kind:        notification.KindWelcome,
			Message:     "welcome",
		})

		require.NoError(t, err)
		assert.True(t, outcome.Persisted)
		assert.Equal(t, 1, outcome.LiveDelivered)
		assert.False(t, outcome.EmailAttempted)
	})

	t.Run("saturated email queue is reported as not attempted", func(t *testing.T) {
		storage := new(MockStorage)
		storage.On("Create", mock.Anything, mock.Anything).
			Return(storedNotification(notification.CreateParams{
				TenantID: "t1", RecipientID: "u1", Kind: notification.KindWelcome, Message: "welcome",
			}), nil)

		d := NewDispatcher(storage, &fakePusher{}, &fakeEmails{full: true}, &stubAddresses{address: "u1@example.com"})

		outcome, err := d.Dispatch(context.Background(), DispatchParams{
			TenantID:    "t1",
			RecipientID: "u1",
			Kind:        notification.KindWelcome,
			Message:     "welcome",
		})

		require.NoError(t, err)
		assert.False(t, outcome.EmailAttempted)
	})

	t.Run("dedupe key is passed through to storage", func(t *testing.T) {
		storage := new(MockStorage)
		storage.On("Create", mock.Anything, mock.MatchedBy(func(p notification.CreateParams) bool {
			return p.DedupeKey == "lesson-published:l-42:u1"
		})).Return(storedNotification(notification.CreateParams{
			TenantID: "t1", RecipientID: "u1", Kind: notification.KindNewLesson, Message: "lesson",
		}), nil)

		d := NewDispatcher(storage, nil, nil, nil)

		_, err := d.Dispatch(context.Background(), DispatchParams{
			TenantID:    "t1",
			RecipientID: "u1",
			Kind:        notification.KindNewLesson,
			Message:     "lesson",
			DedupeKey:   "lesson-published:l-42:u1",
		})

		require.NoError(t, err)
		storage.AssertExpectations(t)
	})
}
