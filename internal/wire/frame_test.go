package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestReadFrame_Whole(t *testing.T) {
	frame, err := Encode(Chat{Timestamp: 123, Name: "alice", Text: "hi"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := ReadFrame(bytes.NewReader(frame))
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if !bytes.Equal(got, frame) {
		t.Fatalf("frame mismatch\nwant % X\ngot  % X", frame, got)
	}
}

// TestReadFrame_ArbitraryChunking delivers a frame in byte-sized pieces
// through a pipe; ReadFrame must still reassemble it exactly.
func TestReadFrame_ArbitraryChunking(t *testing.T) {
	frame, err := Encode(Chat{Timestamp: 1700000000, Name: "bob", Text: "split me"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	for _, chunk := range []int{1, 2, 3, 7} {
		pr, pw := io.Pipe()
		go func() {
			defer pw.Close()
			for off := 0; off < len(frame); off += chunk {
				end := off + chunk
				if end > len(frame) {
					end = len(frame)
				}
				if _, err := pw.Write(frame[off:end]); err != nil {
					return
				}
			}
		}()
		got, err := ReadFrame(pr)
		if err != nil {
			t.Fatalf("chunk %d: read frame: %v", chunk, err)
		}
		if !bytes.Equal(got, frame) {
			t.Fatalf("chunk %d: frame mismatch", chunk)
		}
	}
}

func TestReadFrame_CleanClose(t *testing.T) {
	if _, err := ReadFrame(bytes.NewReader(nil)); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF on empty stream, got %v", err)
	}
}

func TestReadFrame_ClosedMidFrame(t *testing.T) {
	frame, err := Encode(Join{Room: 2})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	// Mid-header and mid-payload closes both surface as unexpected EOF.
	for _, cut := range []int{2, len(frame) - 1} {
		if _, err := ReadFrame(bytes.NewReader(frame[:cut])); !errors.Is(err, io.ErrUnexpectedEOF) {
			t.Fatalf("cut %d: expected io.ErrUnexpectedEOF, got %v", cut, err)
		}
	}
}

func TestReadFrame_BogusLengthPrefix(t *testing.T) {
	short := make([]byte, 4)
	binary.BigEndian.PutUint32(short, 4) // less than prefix+type
	if _, err := ReadFrame(bytes.NewReader(short)); !errors.Is(err, ErrShortFrame) {
		t.Fatalf("expected ErrShortFrame, got %v", err)
	}
	huge := make([]byte, 4)
	binary.BigEndian.PutUint32(huge, MaxFrameSize+1)
	if _, err := ReadFrame(bytes.NewReader(huge)); !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}
}

// drip writes at most one byte per call, exercising the short-write
// retry in WriteFrame.
type drip struct {
	buf bytes.Buffer
}

func (d *drip) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	d.buf.WriteByte(p[0])
	return 1, nil
}

func TestWriteFrame_RetriesShortWrites(t *testing.T) {
	frame, err := Encode(Reply{Text: "short writes"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var d drip
	if err := WriteFrame(&d, frame); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	if !bytes.Equal(d.buf.Bytes(), frame) {
		t.Fatalf("frame mismatch after dripped writes")
	}
}

func TestWriteReadMessage(t *testing.T) {
	var buf bytes.Buffer
	want := []Message{
		Name{Name: "alice"},
		Join{Room: 1},
		Chat{Timestamp: 99, Name: "alice", Text: "hello"},
		Reply{Text: "ok"},
	}
	for _, m := range want {
		if err := WriteMessage(&buf, m); err != nil {
			t.Fatalf("write %T: %v", m, err)
		}
	}
	for i, w := range want {
		got, err := ReadMessage(&buf)
		if err != nil {
			t.Fatalf("read message %d: %v", i, err)
		}
		if diff := cmp.Diff(w, got); diff != "" {
			t.Fatalf("message %d mismatch (-want +got):\n%s", i, diff)
		}
	}
	if _, err := ReadMessage(&buf); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF at stream end, got %v", err)
	}
}
