// Package session implements the per-viewer session state machine and the
// acceptor that spawns one independent pipeline per connecting viewer,
// sharing a single capture source under one coarse lock (spec §4.6, §5).
package session

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/breeze-rmm/mirror/internal/encoder"
	"github.com/breeze-rmm/mirror/internal/metrics"
)

// State is a session's position in the state machine from spec §4.6:
//
//	Handshaking --INIT+FRAME sent--> Streaming
//	Streaming --I/O error or EOF--> Closed
//	Handshaking --I/O error--> Closed
type State int32

const (
	StateHandshaking State = iota
	StateStreaming
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateHandshaking:
		return "handshaking"
	case StateStreaming:
		return "streaming"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// TickInterval paces the encoder loop at spec §4.3's ~60Hz target.
const TickInterval = 16 * time.Millisecond

// Session owns one viewer's TCP socket, its encoder (and therefore its
// shadow framebuffer), and its statistics. Only Streaming emits
// DIRTY/SKIP; Closed is terminal.
type Session struct {
	ID      string
	conn    net.Conn
	enc     *encoder.Encoder
	metrics *metrics.StreamMetrics
	log     *slog.Logger

	state     atomic.Int32
	closeOnce sync.Once
	done      chan struct{}
}

// New wraps a just-accepted connection with its own encoder. The encoder
// must share its Capturer and lock with every other session's encoder.
func New(id string, conn net.Conn, enc *encoder.Encoder, m *metrics.StreamMetrics, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	s := &Session{
		ID:      id,
		conn:    conn,
		enc:     enc,
		metrics: m,
		log:     log,
		done:    make(chan struct{}),
	}
	s.state.Store(int32(StateHandshaking))
	return s
}

// State returns the session's current state.
func (s *Session) State() State { return State(s.state.Load()) }

// Run drives the session to completion: bootstrap handshake, then the
// capture/encode/send loop at TickInterval, until ctx is cancelled or an
// I/O or capture error closes the session. Run always returns after
// cleaning up; callers should not call it more than once.
func (s *Session) Run(ctx context.Context) error {
	defer s.doClose()

	if err := s.enc.Bootstrap(s.conn); err != nil {
		s.state.Store(int32(StateClosed))
		return fmt.Errorf("session %s: bootstrap: %w", s.ID, err)
	}
	s.state.Store(int32(StateStreaming))
	s.log.Info("session streaming", "session", s.ID)

	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.done:
			return nil
		case <-ticker.C:
			if _, err := s.enc.Tick(s.conn); err != nil {
				s.state.Store(int32(StateClosed))
				return fmt.Errorf("session %s: tick: %w", s.ID, err)
			}
		}
	}
}

// StatsLoop logs a diagnostic line once a second while the session is
// streaming — the stats ticker original_source/server.py ran as
// print_stats, supplemented here as structured logging instead of stdout.
func (s *Session) StatsLoop(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			if s.State() != StateStreaming {
				continue
			}
			snap := s.metrics.Snapshot()
			s.log.Info("session stats",
				"session", s.ID,
				"framesSent", snap.FramesSent,
				"dirtySent", snap.DirtySent,
				"skipsSent", snap.SkipsSent,
				"wireBytes", snap.WireBytes,
				"savingsRatio", snap.SavingsRatio,
			)
		}
	}
}

// Stop requests the session's Run loop to exit and closes its socket.
// Safe to call multiple times and from any goroutine.
func (s *Session) Stop() {
	s.doClose()
}

func (s *Session) doClose() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.state.Store(int32(StateClosed))
		_ = s.conn.Close()
		s.log.Info("session closed", "session", s.ID)
	})
}
