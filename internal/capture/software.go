package capture

import (
	"fmt"
	"hash/crc32"
	"sync"
)

// Painter produces the next frame's pixels into a BGRA buffer. Software
// provides one painter (PatternPainter) for demos and tests; callers may
// supply their own to feed real content (e.g. a frame grabbed from an
// os/exec'd platform tool) through the same dirty-rect machinery.
type Painter interface {
	// Paint writes W*H*4 BGRA bytes into dst, row-major.
	Paint(dst []byte, w, h uint32, tick uint64)
}

// Software is a portable Capturer that has no platform desktop-duplication
// dependency: it asks a Painter to render each tick into an internal
// buffer, then finds dirty rectangles by CRC32-hashing fixed-size tiles
// against the previous tick; each changed tile is reported as its own rect,
// and adjacent changed tiles are not merged. No CGO,
// no per-OS build tags — a stand-in for the real DXGI/X11/Quartz backend
// this corpus has no build environment to compile (see DESIGN.md).
//
// Tile hashing mirrors frameDiffer's CRC32 approach, applied per tile
// instead of whole-frame so dirty regions are localized rather than
// all-or-nothing.
type Software struct {
	mu       sync.Mutex
	painter  Painter
	w, h     uint32
	tile     uint32
	cur      []byte
	tileHash []uint32
	tick     uint64
	held     bool

	dirty      []Rect
	dirtyBytes uint32
	scratch    []byte

	closed bool
}

// NewSoftware constructs a Software capturer painting with p at the given
// config's geometry and tile size.
func NewSoftware(cfg Config, p Painter) (*Software, error) {
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, fmt.Errorf("capture: %w: zero-sized screen", ErrDisplayNotFound)
	}
	tile := cfg.TileSize
	if tile == 0 {
		tile = 64
	}
	s := &Software{
		painter: p,
		w:       cfg.Width,
		h:       cfg.Height,
		tile:    tile,
		cur:     make([]byte, int(cfg.Width)*int(cfg.Height)*4),
	}
	tx := (cfg.Width + tile - 1) / tile
	ty := (cfg.Height + tile - 1) / tile
	s.tileHash = make([]uint32, int(tx)*int(ty))
	return s, nil
}

func (s *Software) tilesAcross() uint32 { return (s.w + s.tile - 1) / s.tile }
func (s *Software) tilesDown() uint32   { return (s.h + s.tile - 1) / s.tile }

// AcquireFrame paints the next tick and diffs it against the previous
// tick's tile hashes. It never blocks and never times out: a software
// painter is always immediately ready, so timeoutMillis is accepted for
// interface compatibility but unused.
func (s *Software) AcquireFrame(timeoutMillis int) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Error, fmt.Errorf("capture: acquire on closed capturer")
	}
	if s.held {
		return Error, fmt.Errorf("capture: AcquireFrame called while a frame is already held")
	}

	s.painter.Paint(s.cur, s.w, s.h, s.tick)
	s.tick++
	s.held = true

	s.computeDirty()
	return OK, nil
}

func (s *Software) computeDirty() {
	s.dirty = s.dirty[:0]
	s.dirtyBytes = 0

	tx, ty := s.tilesAcross(), s.tilesDown()
	stride := int(s.w) * 4
	for row := uint32(0); row < ty; row++ {
		top := row * s.tile
		bottom := top + s.tile
		if bottom > s.h {
			bottom = s.h
		}
		for col := uint32(0); col < tx; col++ {
			left := col * s.tile
			right := left + s.tile
			if right > s.w {
				right = s.w
			}

			var h uint32
			hasher := crc32.NewIEEE()
			for y := top; y < bottom; y++ {
				rowStart := int(y)*stride + int(left)*4
				rowEnd := int(y)*stride + int(right)*4
				hasher.Write(s.cur[rowStart:rowEnd])
			}
			h = hasher.Sum32()

			idx := row*tx + col
			if s.tick == 1 || s.tileHash[idx] != h {
				s.tileHash[idx] = h
				r := Rect{Left: left, Top: top, Right: right, Bottom: bottom}
				s.dirty = append(s.dirty, r)
				s.dirtyBytes += r.ByteLen()
			}
		}
	}
}

// ReleaseFrame returns the held frame.
func (s *Software) ReleaseFrame() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.held = false
}

// ScreenBounds returns the fixed W,H.
func (s *Software) ScreenBounds() (uint32, uint32) {
	return s.w, s.h
}

// DirtyRectCount returns the number of tiles that changed this tick.
func (s *Software) DirtyRectCount() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint32(len(s.dirty))
}

// DirtyRects fills and returns the dirty rect list for the held frame.
func (s *Software) DirtyRects(rects []Rect) []Rect {
	s.mu.Lock()
	defer s.mu.Unlock()
	rects = rects[:0]
	return append(rects, s.dirty...)
}

// CopyFullFrame writes the held frame's full BGRA pixels into dst.
func (s *Software) CopyFullFrame(dst []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.held {
		return ErrNotHoldingFrame
	}
	if len(dst) < len(s.cur) {
		return fmt.Errorf("capture: CopyFullFrame dst too small: %d < %d", len(dst), len(s.cur))
	}
	copy(dst, s.cur)
	return nil
}

// DirtyRegionSize returns the total byte length of this tick's dirty rects.
func (s *Software) DirtyRegionSize() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirtyBytes
}

// CopyDirtyRegions writes each dirty rect's pixels, concatenated in
// DirtyRects order, into dst.
func (s *Software) CopyDirtyRegions(dst []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.held {
		return 0, ErrNotHoldingFrame
	}
	if uint32(len(dst)) < s.dirtyBytes {
		return 0, fmt.Errorf("capture: CopyDirtyRegions dst too small: %d < %d", len(dst), s.dirtyBytes)
	}
	stride := int(s.w) * 4
	off := 0
	for _, r := range s.dirty {
		for y := r.Top; y < r.Bottom; y++ {
			rowStart := int(y)*stride + int(r.Left)*4
			rowEnd := int(y)*stride + int(r.Right)*4
			n := copy(dst[off:], s.cur[rowStart:rowEnd])
			off += n
		}
	}
	return off, nil
}

// Close releases Software's resources. It holds none beyond its buffers,
// so this only guards against further use.
func (s *Software) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var _ Capturer = (*Software)(nil)
