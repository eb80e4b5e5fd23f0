package applier

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/breeze-rmm/mirror/internal/wire"
)

// Run reads packets from r until EOF or a protocol error, applying each to
// fb. It expects the stream to begin with INIT then a bootstrap FRAME, per
// spec §4.4: a FRAME or DIRTY before this stream's INIT, or a DIRTY before
// the bootstrap FRAME, is a protocol error, while SKIP and HEARTBEAT are
// accepted at any point. Returns nil on
// a clean peer close (io.EOF), otherwise a wrapped error describing why
// the session ended.
func Run(r io.Reader, fb *Framebuffer, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}

	initialized := false
	for {
		payload, err := wire.ReadPacket(r)
		if err != nil {
			if err == io.EOF {
				log.Debug("applier: host closed connection")
				return nil
			}
			return fmt.Errorf("applier: read packet: %w", err)
		}

		typ, err := wire.PacketType(payload)
		if err != nil {
			return fmt.Errorf("applier: %w", err)
		}

		switch typ {
		case wire.TypeInit:
			if initialized {
				return fmt.Errorf("applier: unexpected second INIT")
			}
			w, h, err := wire.UnpackInit(payload)
			if err != nil {
				return fmt.Errorf("applier: %w", err)
			}
			fb.Init(w, h)
			initialized = true

		case wire.TypeFrame:
			if !initialized {
				return fmt.Errorf("applier: FRAME before INIT")
			}
			raw, err := wire.UnpackFrame(payload)
			if err != nil {
				return fmt.Errorf("applier: %w", err)
			}
			if err := fb.SetFull(raw); err != nil {
				return fmt.Errorf("applier: %w", err)
			}

		case wire.TypeDirty:
			if !initialized {
				return fmt.Errorf("applier: DIRTY before INIT")
			}
			rects, raw, err := wire.UnpackDirty(payload)
			if err != nil {
				return fmt.Errorf("applier: %w", err)
			}
			if err := fb.ApplyDirty(rects, raw); err != nil {
				return fmt.Errorf("applier: %w", err)
			}

		case wire.TypeSkip:
			if err := wire.UnpackSkip(payload); err != nil {
				return fmt.Errorf("applier: %w", err)
			}
			// No-op: spec P5, skip neutrality.

		case wire.TypeHeartbeat:
			if _, err := wire.UnpackHeartbeat(payload); err != nil {
				return fmt.Errorf("applier: %w", err)
			}
			// Informational only; discarded per spec §4.4.

		default:
			return fmt.Errorf("applier: unknown packet type %d", typ)
		}
	}
}
