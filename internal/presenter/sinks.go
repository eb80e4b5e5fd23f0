package presenter

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"
	"os"
	"sync"
)

// PNGFileSink writes each presented frame to a fixed path, overwriting the
// previous one — a minimal reference sink useful for smoke-testing a
// viewer headlessly. Grounded on the teacher's EncodePNG, which is itself
// stdlib image/png with no third-party codec in its place.
type PNGFileSink struct {
	path string
}

// NewPNGFileSink returns a sink that writes to path on every Present.
func NewPNGFileSink(path string) *PNGFileSink {
	return &PNGFileSink{path: path}
}

// Present implements Sink.
func (s *PNGFileSink) Present(img *image.RGBA) error {
	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("presenter: create %s: %w", s.path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("presenter: encode PNG: %w", err)
	}
	return nil
}

// MJPEGSink serves the most recently presented frame as a multipart
// motion-JPEG HTTP stream, the reference "HTTP/MJPEG bridge" spec §1
// names as an out-of-scope external collaborator. Grounded on the
// teacher's EncodeJPEG (stdlib image/jpeg).
type MJPEGSink struct {
	mu      sync.RWMutex
	quality int
	latest  []byte
	waiters map[chan []byte]struct{}
	wmu     sync.Mutex
}

// NewMJPEGSink returns a sink with the given JPEG quality (1-100).
func NewMJPEGSink(quality int) *MJPEGSink {
	if quality < 1 {
		quality = 1
	}
	if quality > 100 {
		quality = 100
	}
	return &MJPEGSink{quality: quality, waiters: make(map[chan []byte]struct{})}
}

// Present implements Sink.
func (s *MJPEGSink) Present(img *image.RGBA) error {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: s.quality}); err != nil {
		return fmt.Errorf("presenter: encode JPEG: %w", err)
	}
	frame := buf.Bytes()

	s.mu.Lock()
	s.latest = frame
	s.mu.Unlock()

	s.wmu.Lock()
	for ch := range s.waiters {
		select {
		case ch <- frame:
		default:
		}
	}
	s.wmu.Unlock()
	return nil
}

// ServeHTTP streams a multipart/x-mixed-replace MJPEG response to each
// connecting client until the request context is cancelled.
func (s *MJPEGSink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const boundary = "mirrorframe"
	w.Header().Set("Content-Type", fmt.Sprintf("multipart/x-mixed-replace; boundary=%s", boundary))

	ch := make(chan []byte, 1)
	s.wmu.Lock()
	s.waiters[ch] = struct{}{}
	s.wmu.Unlock()
	defer func() {
		s.wmu.Lock()
		delete(s.waiters, ch)
		s.wmu.Unlock()
	}()

	flusher, _ := w.(http.Flusher)
	for {
		select {
		case <-r.Context().Done():
			return
		case frame := <-ch:
			fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", boundary, len(frame))
			if _, err := w.Write(frame); err != nil {
				return
			}
			fmt.Fprint(w, "\r\n")
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

var _ Sink = (*PNGFileSink)(nil)
var _ Sink = (*MJPEGSink)(nil)
