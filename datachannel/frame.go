package datachannel

import (
	"encoding/binary"
	"io"
)

// writeFrame writes one length-prefixed binary frame. A zero-length frame
// is the terminal marker closing a push or pull.
func writeFrame(w io.Writer, data []byte) error {
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(data)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	_, err := w.Write(data)
	return err
}

// readFrame reads one length-prefixed frame, returning io.EOF when the
// terminal (zero-length) frame is read.
func readFrame(r io.Reader) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n == 0 {
		return nil, io.EOF
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// frameReader adapts the length-prefixed frame stream to a plain
// io.Reader, buffering leftover bytes from a frame that was larger than
// the caller's read buffer.
type frameReader struct {
	r       io.Reader
	pending []byte
}

func (fr *frameReader) Read(p []byte) (int, error) {
	for len(fr.pending) == 0 {
		frame, err := readFrame(fr.r)
		if err != nil {
			return 0, err
		}
		fr.pending = frame
	}
	n := copy(p, fr.pending)
	fr.pending = fr.pending[n:]
	return n, nil
}
