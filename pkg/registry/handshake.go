package registry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/coursehub/notify/pkg/logger"
)

// State is the lifecycle state of a connection being established.
type State string

const (
	StateConnecting    State = "connecting"    // handshake started
	StateAuthenticated State = "authenticated" // identity and tenant resolved
	StateActive        State = "active"        // registered, push-eligible
	StateDisconnected  State = "disconnected"  // terminal
)

// transitions lists the allowed lifecycle edges. A failed authentication
// jumps connecting -> disconnected without ever reaching active.
var transitions = map[State][]State{
	StateConnecting:    {StateAuthenticated, StateDisconnected},
	StateAuthenticated: {StateActive, StateDisconnected},
	StateActive:        {StateDisconnected},
}

// lifecycle validates state changes for one connection attempt.
type lifecycle struct {
	state State
}

func newLifecycle() *lifecycle {
	return &lifecycle{state: StateConnecting}
}

func (l *lifecycle) to(next State) error {
	for _, allowed := range transitions[l.state] {
		if allowed == next {
			l.state = next
			return nil
		}
	}
	return &InvalidTransitionError{From: l.state, To: next}
}

// Identity is the resolved owner of a connection.
type Identity struct {
	TenantID    string
	RecipientID string
}

// AuthVerifier resolves a handshake token into a tenant-scoped identity.
// Implemented by the platform's auth module, outside this subsystem.
type AuthVerifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// HandshakeConfig bounds the authentication window.
type HandshakeConfig struct {
	AuthTimeout time.Duration `env:"CONNECT_AUTH_TIMEOUT" envDefault:"10s"`
}

// Handshake drives a connection from connecting to active: verify identity
// within a bounded window, then register with the Registry. Any failure on
// the way is a refused connection; the transport is closed and nothing is
// registered.
type Handshake struct {
	registry *Registry
	verifier AuthVerifier
	timeout  time.Duration
	logger   *slog.Logger
}

// NewHandshake creates a handshake runner for the given registry and verifier.
func NewHandshake(reg *Registry, verifier AuthVerifier, cfg HandshakeConfig, log *slog.Logger) *Handshake {
	if log == nil {
		log = slog.Default()
	}
	timeout := cfg.AuthTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Handshake{
		registry: reg,
		verifier: verifier,
		timeout:  timeout,
		logger:   log,
	}
}

// Run performs the handshake for one inbound connection. On success the
// connection is active in the registry and its id is returned. On failure
// the connection is closed and ErrAuthRejected (or the registry error) is
// returned.
func (h *Handshake) Run(ctx context.Context, token string, conn Conn) (string, error) {
	lc := newLifecycle()

	authCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	identity, err := h.verifier.Verify(authCtx, token)
	if err != nil {
		_ = lc.to(StateDisconnected)
		_ = conn.Close()
		h.logger.LogAttrs(ctx, slog.LevelInfo, "connection refused",
			logger.Component("registry"),
			logger.Error(err),
		)
		if errors.Is(err, context.DeadlineExceeded) {
			return "", errors.Join(ErrAuthRejected, ErrAuthTimeout)
		}
		return "", errors.Join(ErrAuthRejected, err)
	}
	if err := lc.to(StateAuthenticated); err != nil {
		_ = conn.Close()
		return "", err
	}

	id, err := h.registry.Register(identity.TenantID, identity.RecipientID, conn)
	if err != nil {
		_ = lc.to(StateDisconnected)
		_ = conn.Close()
		return "", err
	}
	if err := lc.to(StateActive); err != nil {
		h.registry.Unregister(id)
		return "", err
	}

	return id, nil
}
