package presenter

import (
	"image"
	"sync"
	"testing"
	"time"

	"github.com/breeze-rmm/mirror/internal/applier"
)

type recordingSink struct {
	mu    sync.Mutex
	count int
	last  *image.RGBA
}

func (s *recordingSink) Present(img *image.RGBA) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
	s.last = img
	return nil
}

func (s *recordingSink) snapshot() (int, *image.RGBA) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count, s.last
}

func TestPresenterDropsAlphaAndConvertsBGRAToRGBA(t *testing.T) {
	fb := applier.NewFramebuffer()
	fb.Init(1, 1)
	if err := fb.SetFull([]byte{0x10, 0x20, 0x30, 0x99}); err != nil { // B G R A
		t.Fatalf("SetFull: %v", err)
	}

	sink := &recordingSink{}
	p := New(fb, sink)
	stop := make(chan struct{})
	go p.Run(stop)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if count, _ := sink.snapshot(); count > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	close(stop)

	count, img := sink.snapshot()
	if count == 0 {
		t.Fatal("sink never received a presented frame")
	}
	if img == nil {
		t.Fatal("presented image is nil")
	}
	r, g, b, a := img.Pix[0], img.Pix[1], img.Pix[2], img.Pix[3]
	if r != 0x30 || g != 0x20 || b != 0x10 {
		t.Fatalf("RGB = %02x %02x %02x, want 30 20 10 (BGRA source reordered)", r, g, b)
	}
	if a != 255 {
		t.Fatalf("alpha = %d, want 255 (alpha always opaque, per spec)", a)
	}
}

func TestPresenterStopsOnStopChannelClose(t *testing.T) {
	fb := applier.NewFramebuffer()
	fb.Init(1, 1)

	sink := &recordingSink{}
	p := New(fb, sink)
	stop := make(chan struct{})

	done := make(chan struct{})
	go func() {
		p.Run(stop)
		close(done)
	}()
	close(stop)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after stop was closed")
	}
}
