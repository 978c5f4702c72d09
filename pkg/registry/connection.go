package registry

import (
	"sync"
	"time"

	"github.com/coursehub/notify/pkg/notification"
)

// Conn abstracts the transport side of a live connection. Implementations
// must not block in Send: a connection that cannot accept an event right now
// returns an error and is evicted by the registry.
type Conn interface {
	// Send pushes one event to the client.
	Send(event notification.Event) error

	// Close tears the transport down. Must be idempotent.
	Close() error
}

// Connection is a live, registered connection of one recipient.
// Owned exclusively by the Registry; never persisted.
type Connection struct {
	ID          string
	TenantID    string
	RecipientID string

	EstablishedAt time.Time

	conn Conn

	mu         sync.Mutex
	lastSeenAt time.Time
}

// LastSeenAt returns the time of the last successful push or heartbeat.
func (c *Connection) LastSeenAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeenAt
}

// Touch records activity on the connection.
func (c *Connection) Touch() {
	c.mu.Lock()
	c.lastSeenAt = time.Now()
	c.mu.Unlock()
}
