package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/TylerWon/chat-rooms/internal/chat"
	"github.com/TylerWon/chat-rooms/internal/logging"
	"github.com/TylerWon/chat-rooms/internal/metrics"
)

// DefaultAddr is the well-known chat relay port.
const DefaultAddr = ":4000"

// Server owns the TCP listener and the dispatcher that holds all chat
// state. Connections get one reader goroutine each; every state mutation
// and every outbound write happens on the dispatcher goroutine, so the
// registries need no locking.
type Server struct {
	mu         sync.RWMutex
	addr       string
	maxClients int

	readyOnce sync.Once
	readyCh   chan struct{}
	lastErrMu sync.Mutex
	lastErr   error
	errCh     chan error
	listener  net.Listener

	events   chan event
	quit     chan struct{}
	quitOnce sync.Once
	wg       sync.WaitGroup
	logger   *slog.Logger

	nextConnID        uint64
	activeUsers       atomic.Int64
	totalAccepted     atomic.Uint64
	totalConnected    atomic.Uint64
	totalDisconnected atomic.Uint64
	totalRejected     atomic.Uint64
}

const eventBufSize = 64

type ServerOption func(*Server)

func NewServer(opts ...ServerOption) *Server {
	s := &Server{
		addr:    DefaultAddr,
		readyCh: make(chan struct{}),
		errCh:   make(chan error, 1),
		events:  make(chan event, eventBufSize),
		quit:    make(chan struct{}),
		logger:  logging.L(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func WithListenAddr(a string) ServerOption { return func(s *Server) { s.addr = a } }

func WithMaxClients(n int) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.maxClients = n
		}
	}
}

func WithLogger(l *slog.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

func (s *Server) Addr() string           { s.mu.RLock(); defer s.mu.RUnlock(); return s.addr }
func (s *Server) setAddr(a string)       { s.mu.Lock(); s.addr = a; s.mu.Unlock() }
func (s *Server) SetListenAddr(a string) { s.setAddr(a) }
func (s *Server) Ready() <-chan struct{} { return s.readyCh }
func (s *Server) Errors() <-chan error   { return s.errCh }

// ActiveUsers reports the number of registered connections. The value is
// a mirror maintained by the dispatcher, so it may lag by an event.
func (s *Server) ActiveUsers() int { return int(s.activeUsers.Load()) }

func (s *Server) setError(err error) {
	if err == nil {
		return
	}
	s.lastErrMu.Lock()
	s.lastErr = err
	s.lastErrMu.Unlock()
	select {
	case s.errCh <- err:
	default:
	}
}
func (s *Server) LastError() error { s.lastErrMu.Lock(); defer s.lastErrMu.Unlock(); return s.lastErr }

// Serve binds the listener, starts the dispatcher, and accepts clients
// until ctx is cancelled or Shutdown closes the listener.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	addr := s.addr
	if addr == "" {
		addr = DefaultAddr
	}
	s.mu.Unlock()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		wrap := fmt.Errorf("%w: %v", ErrListen, err)
		metrics.IncError(mapErrToMetric(wrap))
		s.setError(wrap)
		return wrap
	}
	s.setAddr(ln.Addr().String())
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.readyOnce.Do(func() { close(s.readyCh) })
	s.logger.Info("tcp_listen", "addr", s.Addr())
	s.logger.Info("ready")
	go func() { <-ctx.Done(); _ = ln.Close() }()

	s.wg.Add(1)
	go s.dispatch(ctx)

	for {
		if err := s.acceptOnce(ctx, ln); err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
	}
}

// acceptOnce accepts a single connection, registers it with the
// dispatcher, and spawns its reader goroutine. Returns nil on success; a
// wrapped error on fatal listener errors.
func (s *Server) acceptOnce(ctx context.Context, ln net.Listener) error {
	conn, err := ln.Accept()
	if err != nil {
		select {
		case <-ctx.Done():
			return context.Canceled
		default:
		}
		if errors.Is(err, net.ErrClosed) {
			return err
		}
		if _, ok := err.(net.Error); ok { // transient
			time.Sleep(200 * time.Millisecond)
			return nil
		}
		wrap := fmt.Errorf("%w: %v", ErrAccept, err)
		metrics.IncError(mapErrToMetric(wrap))
		s.setError(wrap)
		return wrap
	}
	s.totalAccepted.Add(1)
	uid := chat.UID(atomic.AddUint64(&s.nextConnID, 1))
	connLogger := s.logger.With("uid", uint64(uid), "remote", conn.RemoteAddr().String())
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
		_ = tcp.SetKeepAlive(true)
		_ = tcp.SetKeepAlivePeriod(30 * time.Second)
	}
	if s.maxClients > 0 && int(s.activeUsers.Load()) >= s.maxClients {
		metrics.IncReject()
		s.totalRejected.Add(1)
		connLogger.Warn("client_reject_max", "max_clients", s.maxClients)
		_ = conn.Close()
		return nil
	}
	sess := &session{uid: uid, conn: conn, logger: connLogger}
	if !s.post(ctx.Done(), event{kind: evConnect, sess: sess}) {
		_ = conn.Close()
		return nil
	}
	s.startReader(ctx.Done(), sess)
	return nil
}

// post delivers an event to the dispatcher unless the server is going
// down. Reports whether the event was accepted.
func (s *Server) post(done <-chan struct{}, ev event) bool {
	select {
	case s.events <- ev:
		return true
	case <-done:
		return false
	case <-s.quit:
		return false
	}
}

// Shutdown gracefully closes all resources.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.listener = nil
	s.mu.Unlock()
	if ln != nil {
		_ = ln.Close()
	}
	s.quitOnce.Do(func() { close(s.quit) })
	done := make(chan struct{})
	go func() { s.wg.Wait(); close(done) }()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: shutdown timeout: %v", ErrContext, ctx.Err())
	case <-done:
		s.logger.Info("shutdown_summary",
			"accepted", s.totalAccepted.Load(),
			"connected", s.totalConnected.Load(),
			"disconnected", s.totalDisconnected.Load(),
			"rejected", s.totalRejected.Load())
		return nil
	}
}
