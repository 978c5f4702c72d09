package mailer

import (
	"context"
	"log/slog"
	"sync"

	"github.com/coursehub/notify/pkg/logger"
	"github.com/coursehub/notify/pkg/notification"
)

// Task is one queued email attempt.
type Task struct {
	Address string
	Kind    notification.Kind
	Vars    map[string]any
}

// Channel is the best-effort email fallback: a fixed pool of background
// workers draining a bounded task buffer. Enqueue never blocks the caller;
// when the buffer is saturated the task is dropped with a warning, which is
// acceptable for a channel that backs up live push rather than replacing it.
type Channel struct {
	sender EmailSender
	tasks  chan Task
	logger *slog.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopped  chan struct{}
}

// ChannelOption configures a Channel.
type ChannelOption func(*Channel)

// WithChannelLogger sets the logger for the Channel.
func WithChannelLogger(log *slog.Logger) ChannelOption {
	return func(c *Channel) {
		if log != nil {
			c.logger = log
		}
	}
}

// NewChannel creates the channel and starts its workers.
func NewChannel(sender EmailSender, cfg Config, opts ...ChannelOption) *Channel {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}

	c := &Channel{
		sender:  sender,
		tasks:   make(chan Task, queueSize),
		logger:  slog.Default(),
		stopped: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.wg.Add(workers)
	for range workers {
		go c.worker()
	}
	return c
}

// Enqueue hands a task to the background workers. Returns false when the
// task was dropped (buffer saturated or channel stopped); the caller treats
// either as "email attempted", matching the channel's best-effort contract.
func (c *Channel) Enqueue(task Task) bool {
	select {
	case <-c.stopped:
		return false
	default:
	}

	select {
	case c.tasks <- task:
		return true
	default:
		c.logger.LogAttrs(context.Background(), slog.LevelWarn, "email task dropped, queue saturated",
			logger.Component("mailer"),
			logger.EmailTo(task.Address),
			logger.Kind(string(task.Kind)),
		)
		return false
	}
}

// RenderAndSend renders the template for kind and sends it synchronously.
// Best-effort: every failure is caught and logged here, surfaced only as
// delivered=false. This method never propagates an error to the caller.
func (c *Channel) RenderAndSend(ctx context.Context, address string, kind notification.Kind, vars map[string]any) (delivered bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.LogAttrs(ctx, slog.LevelError, "email send panicked",
				logger.Component("mailer"),
				logger.EmailTo(address),
				slog.Any("panic", r),
			)
			delivered = false
		}
	}()

	if address == "" {
		return false
	}

	rendered, err := Render(kind, vars)
	if err != nil {
		c.logger.LogAttrs(ctx, slog.LevelError, "email render failed",
			logger.Component("mailer"),
			logger.Kind(string(kind)),
			logger.Error(err),
		)
		return false
	}

	err = c.sender.SendEmail(ctx, SendEmailParams{
		SendTo:   address,
		Subject:  rendered.Subject,
		BodyHTML: rendered.BodyHTML,
		Tag:      string(kind),
	})
	if err != nil {
		c.logger.LogAttrs(ctx, slog.LevelWarn, "email send failed",
			logger.Component("mailer"),
			logger.EmailTo(address),
			logger.Kind(string(kind)),
			logger.Error(err),
		)
		return false
	}
	return true
}

func (c *Channel) worker() {
	defer c.wg.Done()
	for {
		select {
		case task := <-c.tasks:
			c.RenderAndSend(context.Background(), task.Address, task.Kind, task.Vars)
		case <-c.stopped:
			// Finish what is already buffered, then exit.
			for {
				select {
				case task := <-c.tasks:
					c.RenderAndSend(context.Background(), task.Address, task.Kind, task.Vars)
				default:
					return
				}
			}
		}
	}
}

// Stop drains the channel: no new tasks are accepted, buffered tasks are
// finished, workers exit. Returns ctx.Err if the drain outlives the context.
func (c *Channel) Stop(ctx context.Context) error {
	c.stopOnce.Do(func() { close(c.stopped) })

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
