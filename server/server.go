package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"sync"

	"pgwired/config"
	"pgwired/executor"
)

// Server accepts TCP connections and runs a session goroutine per client.
// Live sessions are tracked so Shutdown can sever them once the graceful
// deadline passes.
type Server struct {
	cfg  *config.Config
	exec *executor.Executor

	mu       sync.Mutex
	listener net.Listener
	sessions map[*Connection]struct{}
	closing  bool

	wg sync.WaitGroup
}

// New creates a server with the given configuration and executor.
func New(cfg *config.Config, exec *executor.Executor) *Server {
	return &Server{
		cfg:      cfg,
		exec:     exec,
		sessions: make(map[*Connection]struct{}),
	}
}

// ListenAndServe binds the configured address and accepts clients until
// Shutdown closes the listener.
func (s *Server) ListenAndServe() error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		ln.Close()
		return nil
	}
	s.listener = ln
	s.mu.Unlock()
	log.Printf("pgwired listening on %s", ln.Addr())

	for {
		nc, err := ln.Accept()
		if err != nil {
			if s.isClosing() {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				log.Printf("accept: %v", err)
				continue
			}
			return fmt.Errorf("accept: %w", err)
		}
		s.wg.Add(1)
		go s.serve(nc)
	}
}

// serve runs one client session and keeps the session set current.
func (s *Server) serve(nc net.Conn) {
	defer s.wg.Done()

	c := newConnection(nc, s.cfg, s.exec)
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		nc.Close()
		return
	}
	s.sessions[c] = struct{}{}
	s.mu.Unlock()

	c.Handle()

	s.mu.Lock()
	delete(s.sessions, c)
	s.mu.Unlock()
}

// Addr returns the bound listener address, or nil before ListenAndServe has
// bound one.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

// Shutdown stops accepting clients and waits for running sessions to drain.
// When ctx expires first, the remaining sessions are closed forcibly.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	ln := s.listener
	s.mu.Unlock()
	if ln != nil {
		ln.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.mu.Lock()
		for c := range s.sessions {
			c.conn.Close()
		}
		s.mu.Unlock()
		<-done
		return ctx.Err()
	}
}
