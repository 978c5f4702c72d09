package mailer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursehub/notify/pkg/notification"
)

// recordingSender collects sends and can be told to fail or block.
type recordingSender struct {
	mu    sync.Mutex
	sent  []SendEmailParams
	err   error
	block chan struct{}
}

func (s *recordingSender) SendEmail(ctx context.Context, params SendEmailParams) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, params)
	return nil
}

func (s *recordingSender) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func (s *recordingSender) last() SendEmailParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent[len(s.sent)-1]
}

func TestChannel_RenderAndSend(t *testing.T) {
	sender := &recordingSender{}
	c := NewChannel(sender, Config{Workers: 1, QueueSize: 4})
	defer c.Stop(context.Background())

	delivered := c.RenderAndSend(context.Background(), "student@example.com", notification.KindNewLesson, map[string]any{
		"Message": "Lesson X available",
	})

	require.True(t, delivered)
	require.Equal(t, 1, sender.sentCount())
	params := sender.last()
	assert.Equal(t, "student@example.com", params.SendTo)
	assert.Equal(t, "A new lesson is available", params.Subject)
	assert.Contains(t, params.BodyHTML, "Lesson X available")
	assert.Equal(t, string(notification.KindNewLesson), params.Tag)
}

func TestChannel_RenderAndSend_SenderFailure(t *testing.T) {
	sender := &recordingSender{err: errors.New("postmark unavailable")}
	c := NewChannel(sender, Config{Workers: 1, QueueSize: 4})
	defer c.Stop(context.Background())

	delivered := c.RenderAndSend(context.Background(), "student@example.com", notification.KindWelcome, nil)
	assert.False(t, delivered)
}

func TestChannel_RenderAndSend_EmptyAddress(t *testing.T) {
	sender := &recordingSender{}
	c := NewChannel(sender, Config{Workers: 1, QueueSize: 4})
	defer c.Stop(context.Background())

	delivered := c.RenderAndSend(context.Background(), "", notification.KindWelcome, nil)
	assert.False(t, delivered)
	assert.Zero(t, sender.sentCount())
}

func TestChannel_EnqueueAndDrain(t *testing.T) {
	sender := &recordingSender{}
	c := NewChannel(sender, Config{Workers: 2, QueueSize: 16})

	for range 5 {
		ok := c.Enqueue(Task{
			Address: "student@example.com",
			Kind:    notification.KindCommentReply,
			Vars:    map[string]any{"Message": "reply"},
		})
		assert.True(t, ok)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Stop(ctx))

	assert.Equal(t, 5, sender.sentCount())
}

func TestChannel_EnqueueAfterStop(t *testing.T) {
	sender := &recordingSender{}
	c := NewChannel(sender, Config{Workers: 1, QueueSize: 4})
	require.NoError(t, c.Stop(context.Background()))

	ok := c.Enqueue(Task{Address: "student@example.com", Kind: notification.KindWelcome})
	assert.False(t, ok)
}

func TestChannel_EnqueueSaturated(t *testing.T) {
	block := make(chan struct{})
	sender := &recordingSender{block: block}
	c := NewChannel(sender, Config{Workers: 1, QueueSize: 1})

	// First task occupies the single worker, second fills the buffer.
	require.True(t, c.Enqueue(Task{Address: "a@example.com", Kind: notification.KindWelcome}))
	require.Eventually(t, func() bool {
		return c.Enqueue(Task{Address: "b@example.com", Kind: notification.KindWelcome})
	}, time.Second, 5*time.Millisecond)

	// Buffer full now; the next task is dropped, not blocked on.
	assert.False(t, c.Enqueue(Task{Address: "c@example.com", Kind: notification.KindWelcome}))

	close(block)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Stop(ctx))
}

func TestSendEmailParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		params  SendEmailParams
		wantErr bool
	}{
		{
			name: "valid",
			params: SendEmailParams{
				SendTo:   "student@example.com",
				Subject:  "hi",
				BodyHTML: "<p>hi</p>",
			},
		},
		{
			name:    "invalid address",
			params:  SendEmailParams{SendTo: "not-an-email", Subject: "hi", BodyHTML: "<p>hi</p>"},
			wantErr: true,
		},
		{
			name:    "missing subject",
			params:  SendEmailParams{SendTo: "student@example.com", BodyHTML: "<p>hi</p>"},
			wantErr: true,
		},
		{
			name:    "missing body",
			params:  SendEmailParams{SendTo: "student@example.com", Subject: "hi"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
