package session

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/breeze-rmm/mirror/internal/capture"
	"github.com/breeze-rmm/mirror/internal/encoder"
	"github.com/breeze-rmm/mirror/internal/metrics"
)

// Manager is the acceptor from spec §4.6: it owns the shared Capturer and
// its captureLock, spawns one independent Session per accepted connection,
// and tracks them so StopAll/Count/Snapshot can observe the fleet.
type Manager struct {
	cap      capture.Capturer
	lock     sync.Mutex
	compress bool
	log      *slog.Logger

	// ConnTuner, if set, is called on every accepted connection before a
	// Session is created from it — e.g. to apply the socket options spec
	// §6 calls for (TCP_NODELAY, enlarged send/receive buffers).
	ConnTuner func(net.Conn)

	mu       sync.Mutex
	sessions map[string]*Session
	nextID   uint64
}

// NewManager constructs a Manager around a shared capturer. compress
// controls whether FRAME/DIRTY bodies are DEFLATE'd; the reference
// implementation always sets it (spec §6).
func NewManager(cap capture.Capturer, compress bool, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		cap:      cap,
		compress: compress,
		log:      log,
		sessions: make(map[string]*Session),
	}
}

// Count returns the number of currently tracked sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Snapshot returns a point-in-time list of active session metrics,
// keyed by session ID, for the status feed.
func (m *Manager) Snapshot() map[string]metrics.Snapshot {
	m.mu.Lock()
	ids := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		ids = append(ids, s)
	}
	m.mu.Unlock()

	out := make(map[string]metrics.Snapshot, len(ids))
	for _, s := range ids {
		if s.metrics != nil {
			out[s.ID] = s.metrics.Snapshot()
		}
	}
	return out
}

// Serve accepts connections on ln in a loop until ctx is cancelled or
// Accept returns a fatal error, spawning one Session per connection. It
// blocks; callers should run it in its own goroutine.
func (m *Manager) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return fmt.Errorf("session: accept: %w", err)
		}
		m.spawn(ctx, conn)
	}
}

func (m *Manager) spawn(ctx context.Context, conn net.Conn) {
	if m.ConnTuner != nil {
		m.ConnTuner(conn)
	}

	m.mu.Lock()
	m.nextID++
	id := fmt.Sprintf("viewer-%d", m.nextID)
	m.mu.Unlock()

	sessMetrics := metrics.New()
	enc := encoder.New(m.cap, &m.lock, m.compress, sessMetrics)
	sess := New(id, conn, enc, sessMetrics, m.log)

	m.mu.Lock()
	m.sessions[id] = sess
	m.mu.Unlock()

	m.log.Info("session accepted", "session", id, "remote", conn.RemoteAddr())

	go func() {
		defer func() {
			m.mu.Lock()
			delete(m.sessions, id)
			m.mu.Unlock()
		}()
		go sess.StatsLoop(ctx)
		if err := sess.Run(ctx); err != nil {
			m.log.Warn("session ended", "session", id, "error", err)
		}
	}()
}

// StopAll stops every tracked session and waits for nothing further; a
// session's own cleanup closes its socket, which unblocks its Run loop.
func (m *Manager) StopAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.Stop()
	}
}
