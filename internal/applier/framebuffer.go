// Package applier implements the viewer-side delta applier: the
// framebuffer mirroring the host shadow, and the receive loop that keeps
// it in sync by dispatching on wire packet type.
package applier

import (
	"fmt"
	"sync"

	"github.com/breeze-rmm/mirror/internal/wire"
)

// Framebuffer is the viewer-side W*H*4 byte grid from spec §4.4: single
// writer (the receive/apply loop), multiple readers (presenter and any
// snapshot consumer). A RWMutex gives readers a torn-write-free view
// without serializing them against each other.
type Framebuffer struct {
	mu         sync.RWMutex
	buf        []byte
	w, h       uint32
	generation uint64
	ready      bool
}

// NewFramebuffer returns an empty, zero-sized Framebuffer; call Init once
// the viewer has received INIT.
func NewFramebuffer() *Framebuffer {
	return &Framebuffer{}
}

// Init sizes the framebuffer to w*h*4 zero bytes. Must be called exactly
// once, before any SetFull/ApplyDirty.
func (f *Framebuffer) Init(w, h uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.w, f.h = w, h
	f.buf = make([]byte, int(w)*int(h)*4)
}

// Dimensions returns the geometry set by Init.
func (f *Framebuffer) Dimensions() (uint32, uint32) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.w, f.h
}

// SetFull overwrites the whole framebuffer from a FRAME packet's body.
func (f *Framebuffer) SetFull(raw []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(raw) != len(f.buf) {
		return fmt.Errorf("applier: FRAME body %d bytes, want %d", len(raw), len(f.buf))
	}
	copy(f.buf, raw)
	f.generation++
	f.ready = true
	return nil
}

// ApplyDirty XORs each rect's pixels in raw (concatenated in rects order,
// same row-major traversal the encoder used) into the framebuffer —
// spec §4.4. Rects are applied in list order so overlapping rects
// converge to the same result the encoder produced (invariant P6).
func (f *Framebuffer) ApplyDirty(rects []wire.Rect, raw []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.ready {
		return fmt.Errorf("applier: DIRTY received before bootstrap FRAME")
	}

	off := 0
	stride := int(f.w) * 4
	for _, r := range rects {
		if err := r.Validate(f.w, f.h); err != nil {
			return fmt.Errorf("applier: %w", err)
		}
		width := int(r.Width()) * 4
		regionLen := int(r.Height()) * width
		if off+regionLen > len(raw) {
			return fmt.Errorf("applier: DIRTY body too short for rect %+v", r)
		}
		n := 0
		for y := r.Top; y < r.Bottom; y++ {
			rowStart := int(y)*stride + int(r.Left)*4
			dstRow := f.buf[rowStart : rowStart+width]
			srcRow := raw[off+n : off+n+width]
			for i := 0; i < width; i++ {
				dstRow[i] ^= srcRow[i]
			}
			n += width
		}
		off += regionLen
	}
	f.generation++
	return nil
}

// Snapshot returns a copy of the current framebuffer contents and the
// generation counter at the time of the copy, safe to hand to a presenter
// running on another goroutine.
func (f *Framebuffer) Snapshot() (buf []byte, generation uint64) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]byte, len(f.buf))
	copy(out, f.buf)
	return out, f.generation
}

// Ready reports whether the bootstrap FRAME has been applied yet.
func (f *Framebuffer) Ready() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.ready
}
