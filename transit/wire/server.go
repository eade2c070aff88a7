// Package wire serves the fare-card text protocol over TCP.
package wire

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/exp/slog"
	"golang.org/x/net/netutil"

	"github.com/alovak/farecard/internal/metrics"
)

const DefaultBufferSize = 1024

type Options struct {
	// BufferSize bounds a single read from a client and the length of
	// one request line. Longer lines are answered with Failure.
	BufferSize int
	// IdleTimeout closes a connection that sends nothing for this long.
	// Zero waits forever.
	IdleTimeout time.Duration
	// MaxConnections caps concurrently served clients. Further clients
	// wait in the kernel backlog, whose length is the OS default and is
	// not bounded here. Zero means no cap.
	MaxConnections int
	Metrics        *metrics.Metrics
}

// Server accepts protocol clients and serves each on its own goroutine.
type Server struct {
	// Addr is the bound address, set by Start.
	Addr string

	listenAddr string
	logger     *slog.Logger
	service    CardService
	opts       Options

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	closed   bool

	acceptDone        chan struct{}
	activeConnections sync.WaitGroup
}

func NewServer(logger *slog.Logger, addr string, service CardService, opts Options) *Server {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		listenAddr: addr,
		logger:     logger.With(slog.String("component", "wire")),
		service:    service,
		opts:       opts,
		ctx:        ctx,
		cancel:     cancel,
		conns:      make(map[net.Conn]struct{}),
		acceptDone: make(chan struct{}),
	}
}

// Start binds the listener and begins accepting in the background.
func (s *Server) Start() error {
	l, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return fmt.Errorf("listening tcp %s: %w", s.listenAddr, err)
	}
	if s.opts.MaxConnections > 0 {
		l = netutil.LimitListener(l, s.opts.MaxConnections)
	}

	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()
	s.Addr = l.Addr().String()

	s.logger.Info("protocol server started", slog.String("addr", s.Addr))

	go s.acceptLoop(l)

	return nil
}

func (s *Server) acceptLoop(l net.Listener) {
	defer close(s.acceptDone)

	for {
		conn, err := l.Accept()
		if err != nil {
			if s.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			s.opts.Metrics.AcceptErrors.Inc()
			s.logger.Error("accept failed", slog.Any("err", err))
			// keep a persistent failure (e.g. EMFILE) from spinning
			time.Sleep(10 * time.Millisecond)
			continue
		}

		if !s.track(conn) {
			conn.Close()
			return
		}

		s.activeConnections.Add(1)
		go func() {
			defer s.activeConnections.Done()
			defer s.untrack(conn)
			s.handleConnection(conn)
		}()
	}
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	s.opts.Metrics.ActiveConnections.Inc()
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conns[conn]; ok {
		delete(s.conns, conn)
		s.opts.Metrics.ActiveConnections.Dec()
	}
}

// Close stops accepting, disconnects live clients and waits for their
// handlers to return.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.cancel()

	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	for conn := range s.conns {
		conn.Close()
	}
	started := s.listener != nil
	s.mu.Unlock()

	if started {
		<-s.acceptDone
	}
	s.activeConnections.Wait()

	s.logger.Info("protocol server stopped")

	if err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("closing listener: %w", err)
	}
	return nil
}
