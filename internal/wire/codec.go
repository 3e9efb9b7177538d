package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/TylerWon/chat-rooms/internal/metrics"
)

// Sentinel errors used for wrapping so callers can classify via errors.Is.
var (
	ErrShortFrame     = errors.New("frame too short")
	ErrFrameTooLarge  = errors.New("frame exceeds maximum size")
	ErrLengthMismatch = errors.New("declared length does not match frame")
	ErrUnknownType    = errors.New("unknown message type")
	ErrTruncated      = errors.New("truncated payload")
	ErrTrailingBytes  = errors.New("trailing bytes after payload")
	ErrFieldTooLong   = errors.New("field exceeds size limit")
	ErrMissingNUL     = errors.New("string not NUL terminated")
)

// Encode serializes m into a complete frame, length prefix included.
// Strings gain a trailing NUL on the wire; their limits count it.
func Encode(m Message) ([]byte, error) {
	switch v := m.(type) {
	case Chat:
		nameLen, err := stringLen(v.Name, NameLimit)
		if err != nil {
			return nil, fmt.Errorf("wire: encode chat name: %w", err)
		}
		textLen, err := stringLen(v.Text, TextLimit)
		if err != nil {
			return nil, fmt.Errorf("wire: encode chat text: %w", err)
		}
		buf := newFrame(TypeChat, timestampSize+nameLenSize+nameLen+textLenSize+textLen)
		off := MinFrameSize
		binary.BigEndian.PutUint32(buf[off:], v.Timestamp)
		off += timestampSize
		buf[off] = byte(nameLen)
		off += nameLenSize
		off += copy(buf[off:], v.Name) + 1 // NUL already zero
		binary.BigEndian.PutUint16(buf[off:], uint16(textLen))
		off += textLenSize
		copy(buf[off:], v.Text)
		return buf, nil
	case Join:
		buf := newFrame(TypeJoin, roomIDSize)
		buf[MinFrameSize] = v.Room
		return buf, nil
	case Name:
		nameLen, err := stringLen(v.Name, NameLimit)
		if err != nil {
			return nil, fmt.Errorf("wire: encode name: %w", err)
		}
		buf := newFrame(TypeName, nameLenSize+nameLen)
		buf[MinFrameSize] = byte(nameLen)
		copy(buf[MinFrameSize+nameLenSize:], v.Name)
		return buf, nil
	case Reply:
		replyLen, err := stringLen(v.Text, ReplyLimit)
		if err != nil {
			return nil, fmt.Errorf("wire: encode reply: %w", err)
		}
		buf := newFrame(TypeReply, replyLenSize+replyLen)
		buf[MinFrameSize] = byte(replyLen)
		copy(buf[MinFrameSize+replyLenSize:], v.Text)
		return buf, nil
	default:
		return nil, fmt.Errorf("wire: encode: %w (%T)", ErrUnknownType, m)
	}
}

// Decode parses one complete frame. The frame must be exactly as long as
// its length prefix declares; the variant decoder must consume every byte.
func Decode(frame []byte) (Message, error) {
	m, err := decode(frame)
	if err != nil {
		metrics.IncMalformed()
	}
	return m, err
}

func decode(frame []byte) (Message, error) {
	if len(frame) < MinFrameSize {
		return nil, fmt.Errorf("wire: decode: %w (%d bytes)", ErrShortFrame, len(frame))
	}
	total := binary.BigEndian.Uint32(frame[:lenSize])
	if int(total) != len(frame) {
		return nil, fmt.Errorf("wire: decode: %w (declared %d, got %d)", ErrLengthMismatch, total, len(frame))
	}
	r := fieldReader{b: frame[MinFrameSize:]}
	switch t := Type(frame[lenSize]); t {
	case TypeChat:
		var m Chat
		var err error
		if m.Timestamp, err = r.u32(); err != nil {
			return nil, fmt.Errorf("wire: decode chat timestamp: %w", err)
		}
		if m.Name, err = r.str(NameLimit); err != nil {
			return nil, fmt.Errorf("wire: decode chat name: %w", err)
		}
		if m.Text, err = r.str16(TextLimit); err != nil {
			return nil, fmt.Errorf("wire: decode chat text: %w", err)
		}
		if err = r.done(); err != nil {
			return nil, err
		}
		return m, nil
	case TypeJoin:
		var m Join
		var err error
		if m.Room, err = r.u8(); err != nil {
			return nil, fmt.Errorf("wire: decode join room: %w", err)
		}
		if err = r.done(); err != nil {
			return nil, err
		}
		return m, nil
	case TypeName:
		var m Name
		var err error
		if m.Name, err = r.str(NameLimit); err != nil {
			return nil, fmt.Errorf("wire: decode name: %w", err)
		}
		if err = r.done(); err != nil {
			return nil, err
		}
		return m, nil
	case TypeReply:
		var m Reply
		var err error
		if m.Text, err = r.str(ReplyLimit); err != nil {
			return nil, fmt.Errorf("wire: decode reply: %w", err)
		}
		if err = r.done(); err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("wire: decode: %w (%d)", ErrUnknownType, uint8(t))
	}
}

// newFrame allocates a frame for the given payload size and fills in the
// length prefix and type byte.
func newFrame(t Type, payload int) []byte {
	buf := make([]byte, MinFrameSize+payload)
	binary.BigEndian.PutUint32(buf, uint32(len(buf)))
	buf[lenSize] = byte(t)
	return buf
}

// stringLen returns the on-wire length of s (NUL included) or
// ErrFieldTooLong when it exceeds limit.
func stringLen(s string, limit int) (int, error) {
	n := len(s) + 1
	if n > limit {
		return 0, fmt.Errorf("%w (%d > %d)", ErrFieldTooLong, n, limit)
	}
	return n, nil
}

// fieldReader walks a frame payload, erroring instead of running past the
// end the way the C-style pointer arithmetic silently would.
type fieldReader struct {
	b []byte
}

func (r *fieldReader) u8() (uint8, error) {
	if len(r.b) < 1 {
		return 0, ErrTruncated
	}
	v := r.b[0]
	r.b = r.b[1:]
	return v, nil
}

func (r *fieldReader) u16() (uint16, error) {
	if len(r.b) < 2 {
		return 0, ErrTruncated
	}
	v := binary.BigEndian.Uint16(r.b)
	r.b = r.b[2:]
	return v, nil
}

func (r *fieldReader) u32() (uint32, error) {
	if len(r.b) < 4 {
		return 0, ErrTruncated
	}
	v := binary.BigEndian.Uint32(r.b)
	r.b = r.b[4:]
	return v, nil
}

// str reads a u8 length followed by that many bytes, the last of which
// must be the NUL terminator.
func (r *fieldReader) str(limit int) (string, error) {
	n, err := r.u8()
	if err != nil {
		return "", err
	}
	return r.take(int(n), limit)
}

// str16 is str with a u16 length field.
func (r *fieldReader) str16(limit int) (string, error) {
	n, err := r.u16()
	if err != nil {
		return "", err
	}
	return r.take(int(n), limit)
}

func (r *fieldReader) take(n, limit int) (string, error) {
	if n == 0 {
		return "", ErrMissingNUL
	}
	if n > limit {
		return "", fmt.Errorf("%w (%d > %d)", ErrFieldTooLong, n, limit)
	}
	if len(r.b) < n {
		return "", ErrTruncated
	}
	raw := r.b[:n]
	r.b = r.b[n:]
	if raw[n-1] != 0 {
		return "", ErrMissingNUL
	}
	// Embedded NULs end the string, matching C semantics.
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	return string(raw), nil
}

func (r *fieldReader) done() error {
	if len(r.b) != 0 {
		return fmt.Errorf("wire: decode: %w (%d)", ErrTrailingBytes, len(r.b))
	}
	return nil
}
