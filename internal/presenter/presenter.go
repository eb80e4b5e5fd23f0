// Package presenter owns a read-only view of a viewer's framebuffer and
// periodically hands snapshots to an output sink (spec §4.5). It never
// mutates the framebuffer; any 2D blitter, file writer, or HTTP bridge can
// implement Sink.
package presenter

import (
	"image"
	"time"

	"github.com/breeze-rmm/mirror/internal/applier"
)

// FastTick is used when the framebuffer's generation has advanced since
// the last snapshot; SlowTick otherwise — spec §4.5's 16ms/50ms reference
// rates.
const (
	FastTick = 16 * time.Millisecond
	SlowTick = 50 * time.Millisecond
)

// Sink receives successive presented frames. BGRA alpha is already
// dropped by the time Present is called.
type Sink interface {
	Present(img *image.RGBA) error
}

// Presenter drives Sink from a Framebuffer on a generation-aware tick: it
// polls at FastTick while frames keep changing, backing off to SlowTick
// once a generation repeats, matching the reference's behavior of ticking
// faster only when there's something new to show.
type Presenter struct {
	fb   *applier.Framebuffer
	sink Sink
}

// New returns a Presenter that reads fb and writes to sink.
func New(fb *applier.Framebuffer, sink Sink) *Presenter {
	return &Presenter{fb: fb, sink: sink}
}

// Run loops until stop is closed, presenting fb's contents to sink. It
// never mutates fb, and it calls Present only when fb's generation has
// advanced: if fb never changes again (e.g. after the receive side exits),
// the sink keeps the last good frame it was given, and Run keeps polling
// until the caller closes stop.
func (p *Presenter) Run(stop <-chan struct{}) {
	var lastGen uint64
	interval := SlowTick
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return
		case <-timer.C:
			if p.fb.Ready() {
				buf, gen := p.fb.Snapshot()
				if gen != lastGen {
					lastGen = gen
					interval = FastTick
					img := toRGBA(buf, p.fb)
					_ = p.sink.Present(img)
				} else {
					interval = SlowTick
				}
			}
			timer.Reset(interval)
		}
	}
}

func toRGBA(bgra []byte, fb *applier.Framebuffer) *image.RGBA {
	w, h := fb.Dimensions()
	img := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
	// Alpha is carried verbatim on the wire (spec §3) but dropped here,
	// matching the reference presenter; every output pixel is opaque.
	n := len(bgra) / 4
	for i := 0; i < n; i++ {
		b, g, r := bgra[i*4+0], bgra[i*4+1], bgra[i*4+2]
		img.Pix[i*4+0] = r
		img.Pix[i*4+1] = g
		img.Pix[i*4+2] = b
		img.Pix[i*4+3] = 255
	}
	return img
}
