package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"

	"github.com/kastor/polyglot-gateway/internal/apperror"
)

// DefaultConnectTimeout bounds a single connection attempt.
const DefaultConnectTimeout = 10 * time.Second

const connectKey = "connect"

// Manager provides exactly one live store connection for the process,
// created on first use.
//
// LAZY CONNECT:
// The gateway starts without touching the store so /health answers even when
// the database is down. The first request that needs snippets dials.
//
// SINGLE-FLIGHT CONNECT:
// When the first burst of requests arrives together, every one of them sees
// "not connected". Without coordination each would dial and all but one
// connection would leak. singleflight.Group collapses them: the first caller
// runs connect, the others wait on the same result channel and receive the
// same Handle (or the same error).
//
// FAILURES ARE NOT CACHED:
// A failed dial leaves handle nil, and singleflight forgets a key once its
// call returns, so the next request starts a fresh attempt.
//
// LOCKS:
//   - mu guards handle and is held only to read or swap it
//   - dialMu is held for the whole dial and by Close, so Close waits for an
//     in-flight dial and then closes whatever it produced
type Manager struct {
	dialer   Dialer
	logger   *slog.Logger
	timeout  time.Duration
	attempts *prometheus.CounterVec

	group singleflight.Group

	// dialMu serializes dial and Close so Close never races a connect
	// that is still in flight.
	dialMu sync.Mutex

	mu     sync.RWMutex
	handle Handle
}

// Option configures a Manager.
type Option func(*Manager)

// WithConnectTimeout overrides DefaultConnectTimeout. Non-positive values are ignored.
func WithConnectTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithConnectCounter records every dial attempt, labelled by backend and result.
// The vector must have exactly the labels "backend" and "result".
func WithConnectCounter(c *prometheus.CounterVec) Option {
	return func(m *Manager) {
		m.attempts = c
	}
}

// NewManager creates a Manager. No connection is made until EnsureConnected.
func NewManager(dialer Dialer, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		dialer:  dialer,
		logger:  logger,
		timeout: DefaultConnectTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Backend returns the dialer's backend name.
func (m *Manager) Backend() string {
	return m.dialer.Name()
}

// EnsureConnected returns the active handle, dialing if there is none.
//
// WHY context.WithoutCancel?
// The dial is shared by every concurrent caller, but it runs with the ctx of
// whichever caller happened to arrive first. If that request's client hangs
// up, its ctx is cancelled; passing it straight through would abort the dial
// and fail every other waiter too. WithoutCancel keeps ctx's values but drops
// its cancellation and deadline, and connect bounds the dial with the connect
// timeout instead.
//
// ctx still bounds how long THIS caller waits: the select below returns as
// soon as ctx is done, while the dial carries on for the others.
func (m *Manager) EnsureConnected(ctx context.Context) (Handle, error) {
	if h := m.current(); h != nil {
		return h, nil
	}

	ch := m.group.DoChan(connectKey, func() (any, error) {
		return m.connect(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Handle), nil
	case <-ctx.Done():
		return nil, apperror.ConnectionFailed(m.dialer.Name(), ctx.Err())
	}
}

func (m *Manager) connect(ctx context.Context) (Handle, error) {
	m.dialMu.Lock()
	defer m.dialMu.Unlock()

	// A caller that lost the race with a finished dial lands here after it.
	if h := m.current(); h != nil {
		return h, nil
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	backend := m.dialer.Name()
	start := time.Now()

	h, err := m.dialer.Dial(ctx)
	if err != nil {
		m.observe("failure")
		m.logger.Error("store connection failed",
			slog.String("backend", backend),
			slog.String("error", err.Error()),
		)
		return nil, apperror.ConnectionFailed(backend, err)
	}

	if err := h.Snippets().EnsureIndexes(ctx); err != nil {
		m.observe("failure")
		m.logger.Error("store index provisioning failed",
			slog.String("backend", backend),
			slog.String("error", err.Error()),
		)
		if cerr := h.Close(ctx); cerr != nil {
			m.logger.Warn("closing half-initialized store connection",
				slog.String("backend", backend),
				slog.String("error", cerr.Error()),
			)
		}
		return nil, apperror.ConnectionFailed(backend, fmt.Errorf("ensuring indexes: %w", err))
	}

	m.mu.Lock()
	m.handle = h
	m.mu.Unlock()

	m.observe("success")
	m.logger.Info("connected to store",
		slog.String("backend", backend),
		slog.String("database", DatabaseName),
		slog.Duration("took", time.Since(start)),
	)
	return h, nil
}

// Collection returns the snippet collection of the active connection.
// It fails with apperror.ErrNotConnected before a successful EnsureConnected
// or after Close.
func (m *Manager) Collection() (Collection, error) {
	h := m.current()
	if h == nil {
		return nil, apperror.NotConnected()
	}
	return h.Snippets(), nil
}

// Close releases the connection. It is a no-op when never connected and
// waits for an in-flight dial to finish first. A later EnsureConnected
// dials afresh.
func (m *Manager) Close(ctx context.Context) error {
	m.dialMu.Lock()
	defer m.dialMu.Unlock()

	m.mu.Lock()
	h := m.handle
	m.handle = nil
	m.mu.Unlock()

	if h == nil {
		return nil
	}

	if err := h.Close(ctx); err != nil {
		return fmt.Errorf("store: closing %s connection: %w", m.dialer.Name(), err)
	}
	m.logger.Info("store connection closed", slog.String("backend", m.dialer.Name()))
	return nil
}

func (m *Manager) current() Handle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.handle
}

func (m *Manager) observe(result string) {
	if m.attempts == nil {
		return
	}
	m.attempts.WithLabelValues(m.dialer.Name(), result).Inc()
}
