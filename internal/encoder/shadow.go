// Package encoder implements the host-side delta encoder: it bootstraps a
// per-viewer shadow framebuffer from the capture adapter, then XORs each
// tick's dirty regions against that shadow and emits wire packets.
package encoder

import "github.com/breeze-rmm/mirror/internal/wire"

// Shadow is the per-viewer "last known state of the remote side" buffer
// from spec §3. It is owned exclusively by one Encoder and never shared
// or locked internally — the caller's concurrency discipline (one encoder
// goroutine per session) is what makes that safe.
type Shadow struct {
	buf  []byte
	w, h uint32
}

// NewShadow allocates a zeroed shadow for a w*h*4 screen.
func NewShadow(w, h uint32) *Shadow {
	return &Shadow{buf: make([]byte, int(w)*int(h)*4), w: w, h: h}
}

// Bytes returns the shadow's full backing buffer.
func (s *Shadow) Bytes() []byte { return s.buf }

// SetFull overwrites the entire shadow, e.g. after a bootstrap FRAME.
func (s *Shadow) SetFull(full []byte) {
	copy(s.buf, full)
}

// xorRectInto XORs the shadow's pixels under rect r against src (which
// holds len(r)*4 freshly captured bytes for that rect, in row-major
// order), writes the result into dst at the given offset, and updates the
// shadow in place to the freshly captured pixels — steps 5 of spec §4.3.
func (s *Shadow) xorRectInto(r wire.Rect, src []byte, srcOff int, dst []byte, dstOff int) {
	stride := int(s.w) * 4
	width := int(r.Width()) * 4
	n := 0
	for y := r.Top; y < r.Bottom; y++ {
		rowStart := int(y)*stride + int(r.Left)*4
		shadowRow := s.buf[rowStart : rowStart+width]
		srcRow := src[srcOff+n : srcOff+n+width]
		dstRow := dst[dstOff+n : dstOff+n+width]
		for i := 0; i < width; i++ {
			dstRow[i] = srcRow[i] ^ shadowRow[i]
			shadowRow[i] = srcRow[i]
		}
		n += width
	}
}
