package encoder

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/breeze-rmm/mirror/internal/capture"
	"github.com/breeze-rmm/mirror/internal/metrics"
	"github.com/breeze-rmm/mirror/internal/wire"
)

// CaptureTimeoutMillis bounds each AcquireFrame call made by Tick, pacing the
// encoder at spec §4.3's ~60Hz target; Bootstrap's acquires wait four times
// as long.
const CaptureTimeoutMillis = 16

// Encoder is the host-side delta encoder for one viewer session. It shares
// a Capturer and its captureLock with every other session's Encoder —
// never call AcquireFrame/ReleaseFrame/copy methods without holding Lock,
// exactly as spec §5 requires.
type Encoder struct {
	cap  capture.Capturer
	lock *sync.Mutex

	shadow   *Shadow
	w, h     uint32
	compress bool

	scratchD []byte // freshly captured dirty pixels, this tick
	scratchX []byte // XOR result, this tick
	rects    []capture.Rect

	metrics *metrics.StreamMetrics
}

// New constructs an Encoder bound to a shared capturer and its lock. Both
// must outlive every session using them; the acceptor owns construction
// and teardown of the Capturer itself.
func New(cap capture.Capturer, lock *sync.Mutex, compress bool, m *metrics.StreamMetrics) *Encoder {
	w, h := cap.ScreenBounds()
	return &Encoder{
		cap:      cap,
		lock:     lock,
		shadow:   NewShadow(w, h),
		w:        w,
		h:        h,
		compress: compress,
		metrics:  m,
	}
}

// ScreenBounds returns the shared capturer's fixed geometry.
func (e *Encoder) ScreenBounds() (uint32, uint32) { return e.w, e.h }

// Bootstrap implements spec §4.3's bootstrap sequence: discard one warm-up
// frame, acquire the real first frame, write INIT then the bootstrap
// FRAME, and seed the shadow with it. Per spec §5/§9, captureLock is held
// across the writes too, not just the acquire/copy — a slow viewer's
// bootstrap briefly blocks every other session's capture just as a slow
// viewer's steady-state Tick does.
func (e *Encoder) Bootstrap(w io.Writer) error {
	e.lock.Lock()
	defer e.lock.Unlock()

	if st, err := e.cap.AcquireFrame(CaptureTimeoutMillis * 4); err != nil {
		return fmt.Errorf("encoder: warm-up discard: %w", err)
	} else if st == capture.OK {
		e.cap.ReleaseFrame()
	}

	full := make([]byte, int(e.w)*int(e.h)*4)
	t0 := time.Now()
	st, err := e.cap.AcquireFrame(CaptureTimeoutMillis * 4)
	if err != nil {
		return fmt.Errorf("encoder: bootstrap acquire: %w", err)
	}
	if st != capture.OK {
		return fmt.Errorf("encoder: bootstrap capture status %v", st)
	}
	if err := e.cap.CopyFullFrame(full); err != nil {
		e.cap.ReleaseFrame()
		return fmt.Errorf("encoder: bootstrap copy: %w", err)
	}
	e.cap.ReleaseFrame()
	captureDur := time.Since(t0)

	if err := wire.WritePacket(w, wire.PackInit(e.w, e.h)); err != nil {
		return fmt.Errorf("encoder: write INIT: %w", err)
	}

	payload, err := wire.PackFrame(full, e.compress)
	if err != nil {
		return fmt.Errorf("encoder: pack bootstrap FRAME: %w", err)
	}
	if err := wire.WritePacket(w, payload); err != nil {
		return fmt.Errorf("encoder: write bootstrap FRAME: %w", err)
	}

	e.shadow.SetFull(full)
	if e.metrics != nil {
		e.metrics.RecordCapture(captureDur)
		e.metrics.RecordFrame(0, len(full), len(payload))
	}
	return nil
}

// Tick runs one iteration of spec §4.3's per-tick encode loop: acquire,
// inspect dirty rects, and emit exactly one of SKIP/DIRTY. A TIMEOUT
// status is not an error — the caller should simply call Tick again after
// its own pacing sleep. Returns whether a packet was written.
//
// captureLock is held for the entire tick, including the socket write:
// per spec §5/§9 this is deliberate — a slow viewer's blocking write
// backpressures every session sharing this capturer, not just its own.
func (e *Encoder) Tick(w io.Writer) (wrote bool, err error) {
	e.lock.Lock()
	defer e.lock.Unlock()

	st, err := e.cap.AcquireFrame(CaptureTimeoutMillis)
	if err != nil {
		return false, fmt.Errorf("encoder: acquire: %w", err)
	}
	if st == capture.Timeout {
		return false, nil
	}
	if st != capture.OK {
		return false, fmt.Errorf("encoder: capture status %v", st)
	}

	t0 := time.Now()
	n := e.cap.DirtyRectCount()
	if n == 0 {
		e.cap.ReleaseFrame()
		if err := wire.WritePacket(w, wire.PackSkip()); err != nil {
			return false, fmt.Errorf("encoder: write SKIP: %w", err)
		}
		if e.metrics != nil {
			e.metrics.RecordCapture(time.Since(t0))
			e.metrics.RecordSkip()
		}
		return true, nil
	}

	e.rects = e.cap.DirtyRects(e.rects)
	size := e.cap.DirtyRegionSize()
	if cap(e.scratchD) < int(size) {
		e.scratchD = make([]byte, size)
		e.scratchX = make([]byte, size)
	}
	e.scratchD = e.scratchD[:size]
	e.scratchX = e.scratchX[:size]

	if _, err := e.cap.CopyDirtyRegions(e.scratchD); err != nil {
		e.cap.ReleaseFrame()
		return false, fmt.Errorf("encoder: copy dirty regions: %w", err)
	}
	e.cap.ReleaseFrame()
	captureDur := time.Since(t0)

	rects := make([]wire.Rect, len(e.rects))
	off := 0
	for i, r := range e.rects {
		wr := wire.Rect{Left: r.Left, Top: r.Top, Right: r.Right, Bottom: r.Bottom}
		rects[i] = wr
		e.shadow.xorRectInto(wr, e.scratchD, off, e.scratchX, off)
		off += int(r.ByteLen())
	}

	payload, err := wire.PackDirty(rects, e.scratchX[:off], e.compress)
	if err != nil {
		return false, fmt.Errorf("encoder: pack DIRTY: %w", err)
	}
	if err := wire.WritePacket(w, payload); err != nil {
		return false, fmt.Errorf("encoder: write DIRTY: %w", err)
	}

	if e.metrics != nil {
		e.metrics.RecordCapture(captureDur)
		e.metrics.RecordDirty(time.Since(t0)-captureDur, off, len(payload))
	}
	return true, nil
}
