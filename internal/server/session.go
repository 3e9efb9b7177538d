package server

import (
	"errors"
	"io"
	"log/slog"
	"net"

	"github.com/TylerWon/chat-rooms/internal/chat"
	"github.com/TylerWon/chat-rooms/internal/wire"
)

// session is one accepted connection. The conn is written only by the
// dispatcher; the reader goroutine only reads.
type session struct {
	uid    chat.UID
	conn   net.Conn
	logger *slog.Logger
}

// startReader launches the goroutine that turns the connection's byte
// stream into dispatcher events. It exits on the first read or decode
// error; the dispatcher owns the cleanup.
func (s *Server) startReader(done <-chan struct{}, sess *session) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			frame, err := wire.ReadFrame(sess.conn)
			if err != nil {
				s.post(done, readerError(sess, err))
				return
			}
			msg, err := wire.Decode(frame)
			if err != nil {
				s.post(done, event{kind: evProtocol, sess: sess, err: err})
				return
			}
			if !s.post(done, event{kind: evMessage, sess: sess, msg: msg}) {
				return
			}
		}
	}()
}

// readerError classifies a failed frame read. Orderly closes and I/O
// errors both retire the connection; a bogus length prefix is a protocol
// violation and is reported as such.
func readerError(sess *session, err error) event {
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, net.ErrClosed):
		return event{kind: evDisconnect, sess: sess}
	case errors.Is(err, wire.ErrShortFrame), errors.Is(err, wire.ErrFrameTooLarge):
		return event{kind: evProtocol, sess: sess, err: err}
	default:
		return event{kind: evDisconnect, sess: sess, err: err}
	}
}
