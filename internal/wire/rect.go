package wire

import "fmt"

// Rect is a half-open axis-aligned dirty rectangle: 0 <= Left < Right <= W,
// 0 <= Top < Bottom <= H. On the wire each field is a big-endian u32.
type Rect struct {
	Left, Top, Right, Bottom uint32
}

// Width returns Right-Left.
func (r Rect) Width() uint32 { return r.Right - r.Left }

// Height returns Bottom-Top.
func (r Rect) Height() uint32 { return r.Bottom - r.Top }

// PixelCount returns Width()*Height().
func (r Rect) PixelCount() uint64 { return uint64(r.Width()) * uint64(r.Height()) }

// ByteLen returns the BGRA body length of this rect: width*height*4.
func (r Rect) ByteLen() uint64 { return r.PixelCount() * 4 }

// Validate checks the rect is well-formed and fits within a W x H screen.
func (r Rect) Validate(w, h uint32) error {
	if r.Left >= r.Right || r.Top >= r.Bottom {
		return fmt.Errorf("wire: degenerate rect %+v", r)
	}
	if r.Right > w || r.Bottom > h {
		return fmt.Errorf("wire: rect %+v exceeds screen bounds %dx%d", r, w, h)
	}
	return nil
}
