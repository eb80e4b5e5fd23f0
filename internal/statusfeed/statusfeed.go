// Package statusfeed exposes an ambient HTTP+WebSocket observability
// endpoint for operators watching a headless mirror-host: one handler
// that serves a single JSON snapshot to a plain request, or pushes one
// snapshot a second over a WebSocket connection when the request carries
// an Upgrade header. This sits entirely outside the
// wire protocol in spec §4.1 and never touches session state.
package statusfeed

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/breeze-rmm/mirror/internal/metrics"
)

const (
	writeWait  = 10 * time.Second
	pushPeriod = 1 * time.Second
)

// SessionSource reports the live session fleet; internal/session.Manager
// satisfies this without statusfeed importing it directly.
type SessionSource interface {
	Count() int
	Snapshot() map[string]metrics.Snapshot
}

// Status is the JSON shape served on both the plain response and the
// WebSocket push.
type Status struct {
	SessionCount int                        `json:"sessionCount"`
	Sessions     map[string]metrics.Snapshot `json:"sessions"`
	Host         *metrics.HostSample         `json:"host,omitempty"`
}

// Feed serves host status over HTTP and WebSocket.
type Feed struct {
	sessions SessionSource
	hostSmp  *metrics.HostSampler
	log      *slog.Logger
	upgrader websocket.Upgrader
}

// New constructs a Feed over a session source. hostSmp may be nil to omit
// host resource figures from every snapshot.
func New(sessions SessionSource, hostSmp *metrics.HostSampler, log *slog.Logger) *Feed {
	if log == nil {
		log = slog.Default()
	}
	return &Feed{
		sessions: sessions,
		hostSmp:  hostSmp,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The status feed is a local operator tool, not a
			// browser-facing API; any origin may connect.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (f *Feed) snapshot() Status {
	st := Status{
		SessionCount: f.sessions.Count(),
		Sessions:     f.sessions.Snapshot(),
	}
	if f.hostSmp != nil {
		s := f.hostSmp.Sample()
		st.Host = &s
	}
	return st
}

// ServeHTTP returns one JSON snapshot for a plain request, and for a
// request with an Upgrade header upgrades to a WebSocket and pushes a
// snapshot every second until a write fails.
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Upgrade") != "" {
		f.serveWS(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(f.snapshot()); err != nil {
		f.log.Warn("statusfeed: encode snapshot", "error", err)
	}
}

func (f *Feed) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.log.Warn("statusfeed: upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(pushPeriod)
	defer ticker.Stop()

	for range ticker.C {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(f.snapshot()); err != nil {
			f.log.Debug("statusfeed: client disconnected", "error", err)
			return
		}
	}
}
