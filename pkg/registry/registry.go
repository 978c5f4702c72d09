package registry

import (
	"context"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/coursehub/notify/pkg/logger"
	"github.com/coursehub/notify/pkg/notification"
)

const defaultShardCount = 32

// Registry tracks which recipients are currently reachable and through which
// live connections. A recipient may hold any number of simultaneous
// connections (multi-device). State is in-process only; connections do not
// survive a restart.
//
// The recipient map is split into lock shards keyed by (tenant, recipient),
// so register/unregister/send on one recipient serialize on its shard while
// unrelated recipients proceed in parallel.
type Registry struct {
	shards []*shard

	indexMu sync.RWMutex
	index   map[string]recipientKey // connection id -> shard key

	closedMu sync.RWMutex
	closed   bool

	logger *slog.Logger
}

type recipientKey struct {
	tenantID    string
	recipientID string
}

type shard struct {
	mu         sync.RWMutex
	recipients map[recipientKey]map[string]*Connection // -> connection id -> connection
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger for the Registry.
func WithLogger(log *slog.Logger) Option {
	return func(r *Registry) {
		if log != nil {
			r.logger = log
		}
	}
}

// WithShardCount overrides the number of lock shards. Values below 1 are
// ignored.
func WithShardCount(n int) Option {
	return func(r *Registry) {
		if n >= 1 {
			r.shards = make([]*shard, n)
		}
	}
}

// New creates an empty connection registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		shards: make([]*shard, defaultShardCount),
		index:  make(map[string]recipientKey),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	for i := range r.shards {
		r.shards[i] = &shard{recipients: make(map[recipientKey]map[string]*Connection)}
	}
	return r
}

func (r *Registry) shardFor(key recipientKey) *shard {
	h := fnv.New32a()
	h.Write([]byte(key.tenantID))
	h.Write([]byte{0})
	h.Write([]byte(key.recipientID))
	return r.shards[h.Sum32()%uint32(len(r.shards))]
}

// Register adds a new live connection to the recipient's set and returns its
// connection id. Authentication has already happened by the time a
// connection reaches the registry (see Handshake).
func (r *Registry) Register(tenantID, recipientID string, conn Conn) (string, error) {
	r.closedMu.RLock()
	defer r.closedMu.RUnlock()
	if r.closed {
		return "", ErrRegistryClosed
	}

	now := time.Now()
	c := &Connection{
		ID:            uuid.New().String(),
		TenantID:      tenantID,
		RecipientID:   recipientID,
		EstablishedAt: now,
		conn:          conn,
		lastSeenAt:    now,
	}

	key := recipientKey{tenantID, recipientID}
	sh := r.shardFor(key)

	sh.mu.Lock()
	set, ok := sh.recipients[key]
	if !ok {
		set = make(map[string]*Connection)
		sh.recipients[key] = set
	}
	set[c.ID] = c
	sh.mu.Unlock()

	r.indexMu.Lock()
	r.index[c.ID] = key
	r.indexMu.Unlock()

	r.logger.LogAttrs(context.Background(), slog.LevelDebug, "connection registered",
		logger.Component("registry"),
		logger.TenantID(tenantID),
		logger.RecipientID(recipientID),
		logger.ConnectionID(c.ID),
	)
	return c.ID, nil
}

// Unregister removes a connection and closes its transport. Unregistering an
// already-removed id is a no-op, not an error.
func (r *Registry) Unregister(connectionID string) {
	r.indexMu.Lock()
	key, ok := r.index[connectionID]
	if ok {
		delete(r.index, connectionID)
	}
	r.indexMu.Unlock()
	if !ok {
		return
	}

	sh := r.shardFor(key)
	sh.mu.Lock()
	set := sh.recipients[key]
	c, ok := set[connectionID]
	if ok {
		delete(set, connectionID)
		if len(set) == 0 {
			delete(sh.recipients, key)
		}
	}
	sh.mu.Unlock()

	if ok {
		_ = c.conn.Close()
		r.logger.LogAttrs(context.Background(), slog.LevelDebug, "connection unregistered",
			logger.Component("registry"),
			logger.TenantID(c.TenantID),
			logger.RecipientID(c.RecipientID),
			logger.ConnectionID(connectionID),
		)
	}
}

// Send pushes event to every currently-registered connection of the
// recipient and returns the count of connections that accepted the push.
// A failure delivering to one connection evicts only that connection and
// does not abort delivery to the recipient's other connections.
func (r *Registry) Send(ctx context.Context, tenantID, recipientID string, event notification.Event) int {
	key := recipientKey{tenantID, recipientID}
	sh := r.shardFor(key)

	// Holding the shard read lock while pushing keeps sends linearizable
	// with register/unregister for this recipient. Conn.Send is required to
	// be non-blocking, so the lock is never held across a slow client.
	sh.mu.RLock()
	set := sh.recipients[key]
	delivered := 0
	var failed []string
	for id, c := range set {
		if err := c.conn.Send(event); err != nil {
			failed = append(failed, id)
			r.logger.LogAttrs(ctx, slog.LevelWarn, "live push failed, evicting connection",
				logger.Component("registry"),
				logger.TenantID(tenantID),
				logger.RecipientID(recipientID),
				logger.ConnectionID(id),
				logger.Error(err),
			)
			continue
		}
		c.Touch()
		delivered++
	}
	sh.mu.RUnlock()

	// A failed push means the connection is gone or wedged; treat it as an
	// implicit disconnect.
	for _, id := range failed {
		r.Unregister(id)
	}

	return delivered
}

// Broadcast pushes event to every connection of every listed recipient and
// returns the aggregate accepted count.
func (r *Registry) Broadcast(ctx context.Context, tenantID string, recipientIDs []string, event notification.Event) int {
	delivered := 0
	for _, recipientID := range recipientIDs {
		delivered += r.Send(ctx, tenantID, recipientID, event)
	}
	return delivered
}

// Connections returns the recipient's live connection count.
func (r *Registry) Connections(tenantID, recipientID string) int {
	key := recipientKey{tenantID, recipientID}
	sh := r.shardFor(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return len(sh.recipients[key])
}

// Len returns the total number of live connections.
func (r *Registry) Len() int {
	r.indexMu.RLock()
	defer r.indexMu.RUnlock()
	return len(r.index)
}

// EvictIdle drops connections whose last activity is older than maxIdle and
// returns the number of evicted connections. Intended to run from a
// periodic sweep as the heartbeat timeout.
func (r *Registry) EvictIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	var stale []string
	for _, sh := range r.shards {
		sh.mu.RLock()
		for _, set := range sh.recipients {
			for id, c := range set {
				if c.LastSeenAt().Before(cutoff) {
					stale = append(stale, id)
				}
			}
		}
		sh.mu.RUnlock()
	}

	for _, id := range stale {
		r.Unregister(id)
	}
	return len(stale)
}

// Close drains the registry: every connection is closed and removed, and
// further registers are rejected. Safe to call multiple times.
func (r *Registry) Close() {
	r.closedMu.Lock()
	if r.closed {
		r.closedMu.Unlock()
		return
	}
	r.closed = true
	r.closedMu.Unlock()

	r.indexMu.Lock()
	ids := make([]string, 0, len(r.index))
	for id := range r.index {
		ids = append(ids, id)
	}
	r.indexMu.Unlock()

	for _, id := range ids {
		r.Unregister(id)
	}
}
