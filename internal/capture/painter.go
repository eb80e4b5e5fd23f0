package capture

// PatternPainter paints a static background with one moving 1-pixel-tall
// bar that advances a column per tick, wrapping at the screen edge. It
// exists so internal/session and internal/encoder have a real, changing
// source of frames to exercise end-to-end without any platform dependency.
type PatternPainter struct {
	// Background is the BGRA color painted everywhere except the bar.
	Background [4]byte
	// BarColor is the BGRA color of the moving bar.
	BarColor [4]byte
}

// Paint implements Painter.
func (p *PatternPainter) Paint(dst []byte, w, h uint32, tick uint64) {
	stride := int(w) * 4
	for y := uint32(0); y < h; y++ {
		row := dst[int(y)*stride : int(y)*stride+stride]
		for x := 0; x < len(row); x += 4 {
			row[x+0] = p.Background[0]
			row[x+1] = p.Background[1]
			row[x+2] = p.Background[2]
			row[x+3] = p.Background[3]
		}
	}
	if w == 0 || h == 0 {
		return
	}
	barCol := uint32(tick % uint64(w))
	barRow := h / 2
	off := int(barRow)*stride + int(barCol)*4
	dst[off+0] = p.BarColor[0]
	dst[off+1] = p.BarColor[1]
	dst[off+2] = p.BarColor[2]
	dst[off+3] = p.BarColor[3]
}

var _ Painter = (*PatternPainter)(nil)
