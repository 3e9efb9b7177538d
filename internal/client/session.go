package client

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"

	"github.com/TylerWon/chat-rooms/internal/logging"
	"github.com/TylerWon/chat-rooms/internal/wire"
	"github.com/pkg/errors"
)

// Session owns one connection to the relay plus the user's terminal.
// Input lines become NAME/JOIN/CHAT frames; server frames are rendered
// as they arrive.
type Session struct {
	conn     net.Conn
	in       io.Reader
	renderer *Renderer
	logger   *slog.Logger
}

type Option func(*Session)

// WithInput overrides the input stream (defaults to stdin).
func WithInput(r io.Reader) Option { return func(s *Session) { s.in = r } }

// WithRenderer overrides the terminal renderer.
func WithRenderer(r *Renderer) Option { return func(s *Session) { s.renderer = r } }

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

func New(conn net.Conn, opts ...Option) *Session {
	s := &Session{
		conn:   conn,
		in:     os.Stdin,
		logger: logging.L(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.renderer == nil {
		s.renderer = NewRenderer(os.Stdout, true, false)
	}
	return s
}

// Run pumps both directions until /exit, input EOF, or a server-side
// failure. A server disconnect or protocol violation returns an error;
// /exit and end of input return nil.
func (s *Session) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)
	go func() { serverErr <- s.readLoop() }()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	inputDone := make(chan struct{})
	defer close(inputDone)
	go func() {
		defer close(lines)
		in := bufio.NewReaderSize(s.in, wire.TextLimit)
		for {
			line, err := readLine(in)
			if err != nil {
				if errors.Is(err, io.EOF) {
					scanErr <- nil
				} else {
					scanErr <- err
				}
				return
			}
			select {
			case lines <- line:
			case <-inputDone:
				return
			}
		}
	}()

	defer s.conn.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-serverErr:
			return err
		case line, ok := <-lines:
			if !ok {
				if err := <-scanErr; err != nil {
					return errors.Wrap(err, "read input")
				}
				return nil
			}
			exit, err := s.handleLine(line)
			if err != nil {
				return err
			}
			if exit {
				return nil
			}
		}
	}
}

// readLine returns the next input line with the terminator stripped,
// capped at the wire text limit the way a fixed fgets buffer caps it.
// The remainder of an over-long line is discarded; the session keeps
// running.
func readLine(r *bufio.Reader) (string, error) {
	var buf []byte
	for {
		chunk, isPrefix, err := r.ReadLine()
		if err != nil {
			return "", err
		}
		if room := wire.TextLimit - 1 - len(buf); room > 0 {
			if len(chunk) > room {
				chunk = chunk[:room]
			}
			buf = append(buf, chunk...)
		}
		if !isPrefix {
			return string(buf), nil
		}
	}
}

// handleLine processes one input line: a slash command or a chat message.
// The echoed line is cleared so the server's copy is the one that stays
// on screen.
func (s *Session) handleLine(line string) (exit bool, err error) {
	s.renderer.ClearPrev()
	if strings.HasPrefix(line, "/") {
		cmd, perr := ParseCommand(line)
		if perr != nil {
			s.renderer.Local(perr.Error())
			return false, nil
		}
		switch cmd.Kind {
		case CmdExit:
			return true, nil
		case CmdName:
			if err := wire.WriteMessage(s.conn, wire.Name{Name: cmd.Name}); err != nil {
				return false, errors.Wrap(err, "send name")
			}
		case CmdJoin:
			if err := wire.WriteMessage(s.conn, wire.Join{Room: cmd.Room}); err != nil {
				return false, errors.Wrap(err, "send join")
			}
		}
		return false, nil
	}
	if len(line) > wire.TextLimit-1 {
		line = line[:wire.TextLimit-1]
	}
	// Name and timestamp are left empty; the server overwrites both.
	if err := wire.WriteMessage(s.conn, wire.Chat{Text: line}); err != nil {
		return false, errors.Wrap(err, "send chat")
	}
	return false, nil
}

// readLoop renders server frames until the connection dies. Only CHAT
// and REPLY are legal from the server.
func (s *Session) readLoop() error {
	for {
		msg, err := wire.ReadMessage(s.conn)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
				return errors.New("connection to server closed")
			}
			return errors.Wrap(err, "read server frame")
		}
		switch m := msg.(type) {
		case wire.Chat:
			s.renderer.Chat(m)
		case wire.Reply:
			s.renderer.Reply(m)
		default:
			return errors.Errorf("unexpected %s message from server", msg.Type())
		}
	}
}
