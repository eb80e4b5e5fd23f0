package session

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/breeze-rmm/mirror/internal/applier"
	"github.com/breeze-rmm/mirror/internal/capture"
	"github.com/breeze-rmm/mirror/internal/encoder"
)

type staticPainter struct{ color [4]byte }

func (p *staticPainter) Paint(dst []byte, w, h uint32, tick uint64) {
	for i := 0; i < len(dst); i += 4 {
		dst[i+0], dst[i+1], dst[i+2], dst[i+3] = p.color[0], p.color[1], p.color[2], p.color[3]
	}
}

func TestSessionRunStreamsBootstrapOverLoopback(t *testing.T) {
	capr, err := capture.NewSoftware(capture.Config{Width: 4, Height: 2, TileSize: 64}, &staticPainter{color: [4]byte{1, 2, 3, 4}})
	if err != nil {
		t.Fatalf("NewSoftware: %v", err)
	}
	var lock sync.Mutex
	enc := encoder.New(capr, &lock, false, nil)

	hostConn, viewerConn := net.Pipe()
	defer viewerConn.Close()

	sess := New("test-session", hostConn, enc, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- sess.Run(ctx) }()

	fb := applier.NewFramebuffer()
	applyErr := make(chan error, 1)
	go func() { applyErr <- applier.Run(viewerConn, fb, nil) }()

	deadline := time.After(2 * time.Second)
	for {
		if fb.Ready() {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for bootstrap FRAME to apply")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if sess.State() != StateStreaming {
		t.Fatalf("session state = %v, want streaming", sess.State())
	}

	snap, _ := fb.Snapshot()
	want := []byte{1, 2, 3, 4}
	if snap[0] != want[0] || snap[1] != want[1] || snap[2] != want[2] || snap[3] != want[3] {
		t.Fatalf("viewer framebuffer pixel(0,0) = %v, want %v", snap[:4], want)
	}

	cancel()
	sess.Stop()
	viewerConn.Close()

	select {
	case <-runErr:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
