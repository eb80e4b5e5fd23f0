package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxPayloadLen bounds the 4-byte length prefix so a corrupt or hostile
// peer can't make a reader allocate unbounded memory. 64 MiB comfortably
// covers an uncompressed 4K BGRA full frame (~31.6 MiB).
const MaxPayloadLen = 64 << 20

// WritePacket frames payload with a 4-byte big-endian length prefix and
// writes it to w as a single logical record, retrying on short writes.
func WritePacket(w io.Writer, payload []byte) error {
	if len(payload) > MaxPayloadLen {
		return fmt.Errorf("wire: payload %d bytes exceeds max %d", len(payload), MaxPayloadLen)
	}
	record := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(record[:4], uint32(len(payload)))
	copy(record[4:], payload)

	n := 0
	for n < len(record) {
		m, err := w.Write(record[n:])
		if err != nil {
			return fmt.Errorf("wire: write record: %w", err)
		}
		n += m
	}
	return nil
}

// ReadPacket reads one length-prefixed payload from r. io.EOF is returned
// unmodified when the connection closes cleanly between packets; any other
// short read is wrapped as a fatal error since it means a peer died
// mid-packet.
func ReadPacket(r io.Reader) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("wire: read length prefix: %w", err)
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n > MaxPayloadLen {
		return nil, fmt.Errorf("wire: declared payload %d bytes exceeds max %d", n, MaxPayloadLen)
	}
	if n == 0 {
		return []byte{}, nil
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("wire: read payload (%d bytes): %w", n, err)
	}
	return payload, nil
}
