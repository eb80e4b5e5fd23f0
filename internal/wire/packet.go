// Package wire implements the length-prefixed binary protocol that carries
// init, full-frame, dirty-delta, skip, and heartbeat records between the
// capture host and a viewer. See spec section 4.1 for the authoritative
// byte layout; this file is a direct translation of it.
package wire

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
)

// Packet type discriminants. Always the first byte of a payload.
const (
	TypeInit      byte = 0
	TypeFrame     byte = 1
	TypeDirty     byte = 2
	TypeSkip      byte = 3
	TypeHeartbeat byte = 4
)

// DeflateLevel is the zlib compression level used for FRAME/DIRTY bodies.
// The reference implementation always compresses at level 1 (fast, not
// best); any DEFLATE level is wire-compatible, so this is a tuning knob,
// not a protocol constant.
const DeflateLevel = zlib.BestSpeed

// MaxRectCount is the largest rectCount a DIRTY packet's u16 field can hold.
const MaxRectCount = 65535

// ErrTypeMismatch is returned by an unpack* helper when the payload's
// leading discriminant doesn't match the type being unpacked.
type ErrTypeMismatch struct {
	Want, Got byte
}

func (e *ErrTypeMismatch) Error() string {
	return fmt.Sprintf("wire: expected packet type %d, got %d", e.Want, e.Got)
}

// ErrCorrupt is returned when an inflated body's length doesn't match the
// originalSize the sender claimed.
type ErrCorrupt struct {
	Want, Got int
}

func (e *ErrCorrupt) Error() string {
	return fmt.Sprintf("wire: decompressed body is %d bytes, want %d", e.Got, e.Want)
}

func checkType(payload []byte, want byte) error {
	if len(payload) == 0 {
		return fmt.Errorf("wire: empty payload, want type %d", want)
	}
	if payload[0] != want {
		return &ErrTypeMismatch{Want: want, Got: payload[0]}
	}
	return nil
}

func deflate(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, DeflateLevel)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(raw); err != nil {
		zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func inflate(body []byte, originalSize int) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("wire: zlib open: %w", err)
	}
	defer zr.Close()
	out := make([]byte, 0, originalSize)
	buf := bytes.NewBuffer(out)
	if _, err := io.Copy(buf, zr); err != nil {
		return nil, fmt.Errorf("wire: zlib inflate: %w", err)
	}
	if buf.Len() != originalSize {
		return nil, &ErrCorrupt{Want: originalSize, Got: buf.Len()}
	}
	return buf.Bytes(), nil
}

// PackInit builds an INIT payload announcing the screen geometry.
func PackInit(w, h uint32) []byte {
	out := make([]byte, 9)
	out[0] = TypeInit
	binary.BigEndian.PutUint32(out[1:5], w)
	binary.BigEndian.PutUint32(out[5:9], h)
	return out
}

// UnpackInit parses an INIT payload.
func UnpackInit(payload []byte) (w, h uint32, err error) {
	if err := checkType(payload, TypeInit); err != nil {
		return 0, 0, err
	}
	if len(payload) < 9 {
		return 0, 0, fmt.Errorf("wire: INIT payload too short: %d bytes", len(payload))
	}
	w = binary.BigEndian.Uint32(payload[1:5])
	h = binary.BigEndian.Uint32(payload[5:9])
	return w, h, nil
}

// PackFrame builds a FRAME payload from a full S-byte BGRA snapshot.
// When compress is true the body is DEFLATE'd (zlib-wrapped); otherwise it
// is carried raw and originalSize == dataSize.
func PackFrame(raw []byte, compress bool) ([]byte, error) {
	originalSize := uint32(len(raw))
	var body []byte
	var compressedFlag byte
	if compress {
		z, err := deflate(raw)
		if err != nil {
			return nil, err
		}
		body = z
		compressedFlag = 1
	} else {
		body = raw
	}

	out := make([]byte, 10+len(body))
	out[0] = TypeFrame
	out[1] = compressedFlag
	binary.BigEndian.PutUint32(out[2:6], originalSize)
	binary.BigEndian.PutUint32(out[6:10], uint32(len(body)))
	copy(out[10:], body)
	return out, nil
}

// UnpackFrame parses a FRAME payload, inflating the body if flagged, and
// returns the raw (decompressed) bytes. A mismatch between the inflated
// length and the declared originalSize is a fatal corruption error.
func UnpackFrame(payload []byte) ([]byte, error) {
	if err := checkType(payload, TypeFrame); err != nil {
		return nil, err
	}
	if len(payload) < 10 {
		return nil, fmt.Errorf("wire: FRAME payload too short: %d bytes", len(payload))
	}
	compressed := payload[1] != 0
	originalSize := binary.BigEndian.Uint32(payload[2:6])
	dataSize := binary.BigEndian.Uint32(payload[6:10])
	if uint64(10)+uint64(dataSize) > uint64(len(payload)) {
		return nil, fmt.Errorf("wire: FRAME dataSize %d exceeds payload", dataSize)
	}
	body := payload[10 : 10+dataSize]

	if !compressed {
		if uint32(len(body)) != originalSize {
			return nil, &ErrCorrupt{Want: int(originalSize), Got: len(body)}
		}
		return body, nil
	}
	return inflate(body, int(originalSize))
}

// PackDirty builds a DIRTY payload: a list of rectangles plus the XOR body
// whose length must equal the sum of each rect's w*h*4.
func PackDirty(rects []Rect, raw []byte, compress bool) ([]byte, error) {
	if len(rects) == 0 {
		return nil, fmt.Errorf("wire: DIRTY with zero rects is ill-formed, use SKIP")
	}
	if len(rects) > MaxRectCount {
		return nil, fmt.Errorf("wire: rectCount %d exceeds max %d", len(rects), MaxRectCount)
	}

	originalSize := uint32(len(raw))
	var body []byte
	var compressedFlag byte
	if compress {
		z, err := deflate(raw)
		if err != nil {
			return nil, err
		}
		body = z
		compressedFlag = 1
	} else {
		body = raw
	}

	rectsLen := len(rects) * 16
	out := make([]byte, 12+rectsLen+len(body))
	out[0] = TypeDirty
	out[1] = compressedFlag
	binary.BigEndian.PutUint16(out[2:4], uint16(len(rects)))
	binary.BigEndian.PutUint32(out[4:8], originalSize)
	binary.BigEndian.PutUint32(out[8:12], uint32(len(body)))

	off := 12
	for _, r := range rects {
		binary.BigEndian.PutUint32(out[off:off+4], r.Left)
		binary.BigEndian.PutUint32(out[off+4:off+8], r.Top)
		binary.BigEndian.PutUint32(out[off+8:off+12], r.Right)
		binary.BigEndian.PutUint32(out[off+12:off+16], r.Bottom)
		off += 16
	}
	copy(out[off:], body)
	return out, nil
}

// UnpackDirty parses a DIRTY payload into its rect list and raw (XOR) body.
func UnpackDirty(payload []byte) ([]Rect, []byte, error) {
	if err := checkType(payload, TypeDirty); err != nil {
		return nil, nil, err
	}
	if len(payload) < 12 {
		return nil, nil, fmt.Errorf("wire: DIRTY payload too short: %d bytes", len(payload))
	}
	compressed := payload[1] != 0
	rectCount := binary.BigEndian.Uint16(payload[2:4])
	originalSize := binary.BigEndian.Uint32(payload[4:8])
	dataSize := binary.BigEndian.Uint32(payload[8:12])

	if rectCount == 0 {
		return nil, nil, fmt.Errorf("wire: DIRTY with rectCount=0 is ill-formed, use SKIP")
	}

	rectsLen := int(rectCount) * 16
	off := 12
	if uint64(off)+uint64(rectsLen) > uint64(len(payload)) {
		return nil, nil, fmt.Errorf("wire: DIRTY rect list overruns payload")
	}
	rects := make([]Rect, rectCount)
	for i := range rects {
		rects[i] = Rect{
			Left:   binary.BigEndian.Uint32(payload[off : off+4]),
			Top:    binary.BigEndian.Uint32(payload[off+4 : off+8]),
			Right:  binary.BigEndian.Uint32(payload[off+8 : off+12]),
			Bottom: binary.BigEndian.Uint32(payload[off+12 : off+16]),
		}
		off += 16
	}

	if uint64(off)+uint64(dataSize) > uint64(len(payload)) {
		return nil, nil, fmt.Errorf("wire: DIRTY dataSize %d exceeds payload", dataSize)
	}
	body := payload[off : off+int(dataSize)]

	if !compressed {
		if uint32(len(body)) != originalSize {
			return nil, nil, &ErrCorrupt{Want: int(originalSize), Got: len(body)}
		}
		return rects, body, nil
	}
	raw, err := inflate(body, int(originalSize))
	if err != nil {
		return nil, nil, err
	}
	return rects, raw, nil
}

// PackSkip builds the one-byte SKIP payload.
func PackSkip() []byte {
	return []byte{TypeSkip}
}

// UnpackSkip validates a SKIP payload.
func UnpackSkip(payload []byte) error {
	return checkType(payload, TypeSkip)
}

// PackHeartbeat builds a HEARTBEAT payload carrying an informational
// millisecond timestamp.
func PackHeartbeat(timestampMillis uint64) []byte {
	out := make([]byte, 9)
	out[0] = TypeHeartbeat
	binary.BigEndian.PutUint64(out[1:9], timestampMillis)
	return out
}

// UnpackHeartbeat parses a HEARTBEAT payload.
func UnpackHeartbeat(payload []byte) (uint64, error) {
	if err := checkType(payload, TypeHeartbeat); err != nil {
		return 0, err
	}
	if len(payload) < 9 {
		return 0, fmt.Errorf("wire: HEARTBEAT payload too short: %d bytes", len(payload))
	}
	return binary.BigEndian.Uint64(payload[1:9]), nil
}

// PacketType returns the leading discriminant of a payload.
func PacketType(payload []byte) (byte, error) {
	if len(payload) == 0 {
		return 0, fmt.Errorf("wire: empty payload")
	}
	return payload[0], nil
}
