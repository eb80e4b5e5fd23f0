package wire

import (
	"bytes"
	"testing"
)

func TestInitRoundTrip(t *testing.T) {
	payload := PackInit(1920, 1080)
	w, h, err := UnpackInit(payload)
	if err != nil {
		t.Fatalf("UnpackInit: %v", err)
	}
	if w != 1920 || h != 1080 {
		t.Fatalf("got %dx%d, want 1920x1080", w, h)
	}
}

func TestFrameRoundTripCompressed(t *testing.T) {
	raw := bytes.Repeat([]byte{0x10, 0x10, 0x10, 0xFF}, 8) // 32 bytes, S for 4x2
	payload, err := PackFrame(raw, true)
	if err != nil {
		t.Fatalf("PackFrame: %v", err)
	}
	got, err := UnpackFrame(payload)
	if err != nil {
		t.Fatalf("UnpackFrame: %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Fatalf("round trip mismatch: got %x want %x", got, raw)
	}
}

func TestFrameRoundTripUncompressed(t *testing.T) {
	raw := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	payload, err := PackFrame(raw, false)
	if err != nil {
		t.Fatalf("PackFrame: %v", err)
	}
	got, err := UnpackFrame(payload)
	if err != nil {
		t.Fatalf("UnpackFrame: %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Fatalf("round trip mismatch: got %x want %x", got, raw)
	}
}

func TestDirtyRoundTrip(t *testing.T) {
	rects := []Rect{{Left: 2, Top: 1, Right: 3, Bottom: 2}}
	raw := []byte{0xFE, 0x10, 0x10, 0x10}
	payload, err := PackDirty(rects, raw, true)
	if err != nil {
		t.Fatalf("PackDirty: %v", err)
	}
	gotRects, gotRaw, err := UnpackDirty(payload)
	if err != nil {
		t.Fatalf("UnpackDirty: %v", err)
	}
	if len(gotRects) != 1 || gotRects[0] != rects[0] {
		t.Fatalf("rect mismatch: got %+v want %+v", gotRects, rects)
	}
	if !bytes.Equal(gotRaw, raw) {
		t.Fatalf("body mismatch: got %x want %x", gotRaw, raw)
	}
}

func TestDirtyTwoOverlappingRectsPreserveOrder(t *testing.T) {
	rects := []Rect{
		{Left: 0, Top: 0, Right: 2, Bottom: 1},
		{Left: 1, Top: 0, Right: 3, Bottom: 1},
	}
	raw := make([]byte, 0, rects[0].ByteLen()+rects[1].ByteLen())
	raw = append(raw, []byte{1, 1, 1, 1, 2, 2, 2, 2}...) // rect 0: 2 px
	raw = append(raw, []byte{3, 3, 3, 3, 4, 4, 4, 4}...) // rect 1: 2 px

	payload, err := PackDirty(rects, raw, false)
	if err != nil {
		t.Fatalf("PackDirty: %v", err)
	}
	gotRects, gotRaw, err := UnpackDirty(payload)
	if err != nil {
		t.Fatalf("UnpackDirty: %v", err)
	}
	if len(gotRects) != 2 || gotRects[0] != rects[0] || gotRects[1] != rects[1] {
		t.Fatalf("rect order not preserved: %+v", gotRects)
	}
	if !bytes.Equal(gotRaw, raw) {
		t.Fatalf("body mismatch")
	}
}

func TestDirtyZeroRectsIsIllFormed(t *testing.T) {
	if _, err := PackDirty(nil, nil, false); err == nil {
		t.Fatal("expected error packing DIRTY with zero rects")
	}
}

func TestDirtyMaxRectCount(t *testing.T) {
	rects := make([]Rect, MaxRectCount)
	for i := range rects {
		rects[i] = Rect{Left: 0, Top: 0, Right: 1, Bottom: 1}
	}
	raw := make([]byte, len(rects)*4)
	payload, err := PackDirty(rects, raw, false)
	if err != nil {
		t.Fatalf("PackDirty at max rectCount: %v", err)
	}
	gotRects, _, err := UnpackDirty(payload)
	if err != nil {
		t.Fatalf("UnpackDirty: %v", err)
	}
	if len(gotRects) != MaxRectCount {
		t.Fatalf("got %d rects, want %d", len(gotRects), MaxRectCount)
	}
}

func TestDirtyRectCountZeroOnWireIsRejected(t *testing.T) {
	// Hand-build a DIRTY payload with rectCount=0 to simulate a
	// malformed/hostile peer; UnpackDirty must reject it per spec's
	// "rectCount=0 is ill-formed" edge case.
	payload := []byte{TypeDirty, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	if _, _, err := UnpackDirty(payload); err == nil {
		t.Fatal("expected error unpacking DIRTY with rectCount=0")
	}
}

func TestSkipRoundTrip(t *testing.T) {
	payload := PackSkip()
	if len(payload) != 1 {
		t.Fatalf("SKIP payload len = %d, want 1", len(payload))
	}
	if err := UnpackSkip(payload); err != nil {
		t.Fatalf("UnpackSkip: %v", err)
	}
}

func TestHeartbeatRoundTrip(t *testing.T) {
	payload := PackHeartbeat(1234567890)
	got, err := UnpackHeartbeat(payload)
	if err != nil {
		t.Fatalf("UnpackHeartbeat: %v", err)
	}
	if got != 1234567890 {
		t.Fatalf("got %d, want 1234567890", got)
	}
}

func TestTypeMismatch(t *testing.T) {
	payload := PackSkip()
	if _, _, err := UnpackDirty(payload); err == nil {
		t.Fatal("expected type mismatch error")
	}
}

func TestDecompressionLengthMismatchIsFatal(t *testing.T) {
	raw := bytes.Repeat([]byte{0xAB}, 32)
	payload, err := PackFrame(raw, true)
	if err != nil {
		t.Fatalf("PackFrame: %v", err)
	}
	// Corrupt the originalSize field (+1) without touching the
	// compressed body, so inflate succeeds but the length check fails.
	corrupted := append([]byte(nil), payload...)
	corrupted[5]++ // low byte of originalSize (big-endian, offset 2..6)
	if _, err := UnpackFrame(corrupted); err == nil {
		t.Fatal("expected corruption error on originalSize mismatch")
	}
}

func TestRectValidate(t *testing.T) {
	cases := []struct {
		name    string
		r       Rect
		w, h    uint32
		wantErr bool
	}{
		{"ok", Rect{0, 0, 4, 2}, 4, 2, false},
		{"degenerate empty", Rect{2, 1, 2, 1}, 4, 2, true},
		{"right exceeds width", Rect{0, 0, 5, 2}, 4, 2, true},
		{"bottom exceeds height", Rect{0, 0, 4, 3}, 4, 2, true},
		{"single pixel at origin", Rect{0, 0, 1, 1}, 4, 2, false},
		{"single pixel at bottom-right", Rect{3, 1, 4, 2}, 4, 2, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.r.Validate(tc.w, tc.h)
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
