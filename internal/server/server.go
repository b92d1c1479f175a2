package server

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/google/uuid"
)

// Server accepts transfer connections and runs one independent session per
// connection. It never waits for sessions during normal operation and
// places no bound on concurrently active sessions beyond the transport's
// accept backlog.
type Server struct {
	cfg     Config
	disk    *DiskStore
	metrics *Metrics

	mu       sync.Mutex
	ln       net.Listener
	shutdown bool
	sessions sync.WaitGroup
}

// New validates the configuration and builds a server.
func New(cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Server{
		cfg:     cfg,
		disk:    NewDiskStore(cfg.Root, cfg.Logger),
		metrics: NewMetrics(),
	}, nil
}

// Metrics exposes the server's counters to the admin surface and tests.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Start listens on the configured address with address and port reuse
// enabled, then serves until Shutdown. It returns nil after a clean
// shutdown.
func (s *Server) Start() error {
	lc := net.ListenConfig{Control: reuseAddrAndPort}
	ln, err := lc.Listen(context.Background(), "tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections from ln until the listener is closed. Tests
// pass their own listener to get an ephemeral port.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		ln.Close()
		return errors.New("server: already shut down")
	}
	s.ln = ln
	s.mu.Unlock()

	s.cfg.Logger.Info("server listening", map[string]any{"addr": ln.Addr().String()})

	for {
		conn, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.shutdown
			s.mu.Unlock()
			if closed {
				return nil
			}
			// One failed accept never stops the listener.
			s.cfg.Logger.Warn("accept failed", map[string]any{"err": err.Error()})
			continue
		}
		s.dispatch(conn)
	}
}

// dispatch starts one unsupervised session goroutine for conn.
func (s *Server) dispatch(conn net.Conn) {
	id := uuid.NewString()
	s.metrics.SessionStarted()
	s.sessions.Add(1)

	s.cfg.Logger.Info("connection accepted", map[string]any{
		"session_id": id,
		"remote":     conn.RemoteAddr().String(),
	})

	go func() {
		defer func() {
			conn.Close()
			s.metrics.SessionEnded()
			s.sessions.Done()
		}()
		outcome := newSession(id, conn, s.cfg, s.disk, s.metrics).run()
		s.cfg.Logger.Info("session closed", map[string]any{
			"session_id": id,
			"remote":     conn.RemoteAddr().String(),
			"outcome":    string(outcome),
		})
	}()
}

// Shutdown stops accepting connections and waits for in-flight sessions
// until ctx expires; sessions still running after that are abandoned to
// their connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.shutdown = true
	ln := s.ln
	s.mu.Unlock()

	if ln != nil {
		if err := ln.Close(); err != nil {
			return err
		}
	}

	done := make(chan struct{})
	go func() {
		s.sessions.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
