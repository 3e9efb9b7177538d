package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/TylerWon/chat-rooms/internal/metrics"
)

// ReadFrame reads exactly one length-prefixed frame from r, tolerating
// arbitrary chunking of the underlying stream. It returns io.EOF when the
// peer closes cleanly before a header and io.ErrUnexpectedEOF when the
// stream ends mid-frame. The returned slice includes the length prefix.
func ReadFrame(r io.Reader) ([]byte, error) {
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		// io.EOF here is a clean close at a frame boundary.
		return nil, err
	}
	total := binary.BigEndian.Uint32(hdr[:])
	if total < MinFrameSize {
		metrics.IncMalformed()
		return nil, fmt.Errorf("wire: read frame: %w (declared %d)", ErrShortFrame, total)
	}
	if total > MaxFrameSize {
		metrics.IncMalformed()
		return nil, fmt.Errorf("wire: read frame: %w (declared %d)", ErrFrameTooLarge, total)
	}
	buf := make([]byte, total)
	copy(buf, hdr[:])
	if _, err := io.ReadFull(r, buf[HeaderSize:]); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return buf, nil
}

// WriteFrame writes the whole frame, retrying on short writes. Partial
// progress is never reported to the caller.
func WriteFrame(w io.Writer, frame []byte) error {
	for len(frame) > 0 {
		n, err := w.Write(frame)
		if err != nil {
			return err
		}
		frame = frame[n:]
	}
	return nil
}

// WriteMessage encodes m and writes the resulting frame.
func WriteMessage(w io.Writer, m Message) error {
	frame, err := Encode(m)
	if err != nil {
		return err
	}
	return WriteFrame(w, frame)
}

// ReadMessage reads one frame and decodes it.
func ReadMessage(r io.Reader) (Message, error) {
	frame, err := ReadFrame(r)
	if err != nil {
		return nil, err
	}
	return Decode(frame)
}
