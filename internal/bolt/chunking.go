package bolt

import (
	"encoding/binary"
	"fmt"
	"io"
)

// maxChunkSize is Bolt message framing's chunk-size ceiling: a 2-byte big-endian
// length header can address at most 0xFFFF bytes per chunk.
const maxChunkSize = 0xFFFF

// readMessage reassembles one Bolt message from its chunked framing: a
// sequence of length-prefixed chunks terminated by a zero-length chunk.
func readMessage(r io.Reader) ([]byte, error) {
	var msg []byte
	for {
		hdr := make([]byte, 2)
		if _, err := io.ReadFull(r, hdr); err != nil {
			return nil, err
		}
		size := binary.BigEndian.Uint16(hdr)
		if size == 0 {
			if msg == nil {
				return nil, fmt.Errorf("bolt: empty message (no chunks before terminator)")
			}
			return msg, nil
		}
		chunk := make([]byte, size)
		if _, err := io.ReadFull(r, chunk); err != nil {
			return nil, err
		}
		msg = append(msg, chunk...)
	}
}

// writeMessage splits payload into maxChunkSize chunks, each preceded by
// its 2-byte length, followed by the zero-length terminator chunk.
func writeMessage(w io.Writer, payload []byte) error {
	for len(payload) > 0 {
		n := len(payload)
		if n > maxChunkSize {
			n = maxChunkSize
		}
		if err := writeChunk(w, payload[:n]); err != nil {
			return err
		}
		payload = payload[n:]
	}
	return writeChunk(w, nil)
}

func writeChunk(w io.Writer, chunk []byte) error {
	hdr := make([]byte, 2)
	binary.BigEndian.PutUint16(hdr, uint16(len(chunk)))
	if _, err := w.Write(hdr); err != nil {
		return err
	}
	if len(chunk) == 0 {
		return nil
	}
	_, err := w.Write(chunk)
	return err
}
