package dispatch

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/coursehub/notify/pkg/logger"
	"github.com/coursehub/notify/pkg/notification"
)

// Audience is a lazily-produced sequence of recipient ids, computed by an
// external collaborator at dispatch time. Consumed once; not restartable.
type Audience = iter.Seq[string]

// Criteria selects an audience. Resolution happens outside this subsystem
// (enrollment tables, user directory); the orchestrator only consumes the
// resulting sequence.
type Criteria struct {
	// EnrolledInCourse selects all students enrolled in the course.
	EnrolledInCourse string

	// AllUsers selects every user of the tenant.
	AllUsers bool
}

// AudienceResolver computes the recipient set for a criterion.
type AudienceResolver interface {
	Resolve(ctx context.Context, tenantID string, criteria Criteria) (Audience, error)
}

// AudienceParams describes a multi-recipient delivery.
type AudienceParams struct {
	TenantID string
	Kind     notification.Kind
	Message  string
	Payload  map[string]any

	// BatchKey, when set, makes the whole fan-out idempotent under retry:
	// each recipient's dispatch carries the dedupe key "<BatchKey>:<id>",
	// so a re-run skips recipients that were already persisted.
	BatchKey string

	Audience Audience
}

// BatchOutcome aggregates per-recipient results by count. Individual
// failures are logged, not propagated - one bad recipient cannot fail the
// batch.
type BatchOutcome struct {
	Attempted      int
	Persisted      int
	LiveDelivered  int
	EmailAttempted int
}

// Orchestrator fans one event out to a computed audience through the
// Dispatcher, with bounded concurrency so a single slow recipient cannot
// create head-of-line blocking for the rest.
type Orchestrator struct {
	dispatcher *Dispatcher
	width      int
	logger     *slog.Logger
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithWidth sets the fan-out width (maximum concurrent dispatches).
// Values below 1 are ignored.
func WithWidth(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n >= 1 {
			o.width = n
		}
	}
}

// WithOrchestratorLogger sets the logger for the Orchestrator.
func WithOrchestratorLogger(log *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if log != nil {
			o.logger = log
		}
	}
}

const defaultFanOutWidth = 16

// NewOrchestrator creates a fan-out orchestrator over the dispatcher.
func NewOrchestrator(dispatcher *Dispatcher, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		dispatcher: dispatcher,
		width:      defaultFanOutWidth,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// NotifyAudience consumes the audience sequence and dispatches to each
// recipient with at most the configured width in flight. Recipients are
// fully isolated: a persistence or delivery failure for one is counted and
// logged, and the rest of the audience proceeds. No ordering is guaranteed
// across recipients.
//
// Returns ctx.Err when cancelled mid-audience; counts then cover the
// recipients processed before cancellation.
func (o *Orchestrator) NotifyAudience(ctx context.Context, params AudienceParams) (BatchOutcome, error) {
	var (
		attempted      atomic.Int64
		persisted      atomic.Int64
		liveDelivered  atomic.Int64
		emailAttempted atomic.Int64
	)

	sem := make(chan struct{}, o.width)
	var wg sync.WaitGroup

	var ctxErr error
	for recipientID := range params.Audience {
		select {
		case <-ctx.Done():
			ctxErr = ctx.Err()
		case sem <- struct{}{}:
		}
		if ctxErr != nil {
			break
		}

		wg.Add(1)
		go func(recipientID string) {
			defer wg.Done()
			defer func() { <-sem }()

			attempted.Add(1)

			dedupeKey := ""
			if params.BatchKey != "" {
				dedupeKey = fmt.Sprintf("%s:%s", params.BatchKey, recipientID)
			}

			outcome, err := o.dispatcher.Dispatch(ctx, DispatchParams{
				TenantID:    params.TenantID,
				RecipientID: recipientID,
				Kind:        params.Kind,
				Message:     params.Message,
				Payload:     params.Payload,
				DedupeKey:   dedupeKey,
			})
			if err != nil {
				o.logger.LogAttrs(ctx, slog.LevelError, "fan-out dispatch failed for recipient",
					logger.Component("dispatch"),
					logger.TenantID(params.TenantID),
					logger.RecipientID(recipientID),
					logger.Kind(string(params.Kind)),
					logger.Error(err),
				)
				return
			}

			persisted.Add(1)
			liveDelivered.Add(int64(outcome.LiveDelivered))
			if outcome.EmailAttempted {
				emailAttempted.Add(1)
			}
		}(recipientID)
	}

	wg.Wait()

	outcome := BatchOutcome{
		Attempted:      int(attempted.Load()),
		Persisted:      int(persisted.Load()),
		LiveDelivered:  int(liveDelivered.Load()),
		EmailAttempted: int(emailAttempted.Load()),
	}

	o.logger.LogAttrs(ctx, slog.LevelInfo, "fan-out completed",
		logger.Component("dispatch"),
		logger.TenantID(params.TenantID),
		logger.Kind(string(params.Kind)),
		logger.AudienceSize(outcome.Attempted),
		slog.Int("persisted", outcome.Persisted),
		logger.DeliveredCount(outcome.LiveDelivered),
	)
	return outcome, ctxErr
}
