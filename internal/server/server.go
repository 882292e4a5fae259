// Package server runs an embedded development server that speaks the same
// protocol as the production key-value store.
//
// It exists so the client, the CLI and the examples can be exercised without
// an external installation. Storage, expiration and pub/sub are provided by
// miniredis; this package adds configuration, optional password
// authentication, logging and a restart hook used to simulate connection
// loss.
//
// Example usage:
//
//	srv := server.New(config.DefaultServerConfig(), log)
//	if err := srv.Start(); err != nil {
//		log.Fatal(err)
//	}
//	defer srv.Stop()
//
//	c, err := client.New(srv.URL())
package server

import (
	"fmt"
	"net/url"
	"sync"

	"github.com/alicebob/miniredis/v2"

	"github.com/cachemir/steadyredis/pkg/config"
	"github.com/cachemir/steadyredis/pkg/logger"
)

// Server is a development server instance. It is not listening until Start
// is called.
type Server struct {
	cfg     *config.ServerConfig
	mr      *miniredis.Miniredis
	log     logger.Logger
	addr    string
	mu      sync.Mutex
	running bool
}

// New creates a Server from cfg. A nil logger discards output.
func New(cfg *config.ServerConfig, log logger.Logger) *Server {
	if cfg == nil {
		cfg = config.DefaultServerConfig()
	}
	if log == nil {
		log = logger.NewNoop()
	}
	return &Server{
		cfg: cfg,
		mr:  miniredis.NewMiniRedis(),
		log: log.With("component", "server"),
	}
}

// Start begins listening on the configured address. Port 0 picks a free
// port, see Addr for the one chosen.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server already running on %s", s.addr)
	}
	if s.cfg.Password != "" {
		s.mr.RequireAuth(s.cfg.Password)
	}
	if err := s.mr.StartAddr(s.cfg.Address()); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Address(), err)
	}

	s.addr = s.mr.Addr()
	s.running = true
	s.log.Info("Server listening", "addr", s.addr, "auth", s.cfg.Password != "")
	return nil
}

// Stop closes the listener and every client connection. Data is kept, so a
// later Restart serves the same keys.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.mr.Close()
	s.running = false
	s.log.Info("Server stopped", "addr", s.addr)
	return nil
}

// Restart listens again on the address used by the previous Start. Clients
// holding connections from before the stop see them fail and must reconnect.
func (s *Server) Restart() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.addr == "" {
		return fmt.Errorf("server was never started")
	}
	if s.running {
		s.mr.Close()
		s.running = false
	}
	if err := s.mr.StartAddr(s.addr); err != nil {
		return fmt.Errorf("failed to restart on %s: %w", s.addr, err)
	}
	s.running = true
	s.log.Info("Server restarted", "addr", s.addr)
	return nil
}

// Addr returns the "host:port" the server listens on, or listened on last.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// URL returns a connection URL for database 0, including the password when
// one is required.
func (s *Server) URL() string {
	u := url.URL{Scheme: "redis", Host: s.Addr(), Path: "/0"}
	if s.cfg.Password != "" {
		u.User = url.UserPassword("", s.cfg.Password)
	}
	return u.String()
}

// Publish delivers message to the subscribers of channel and returns how many
// received it.
func (s *Server) Publish(channel, message string) int {
	return s.mr.Publish(channel, message)
}

// ConnectedClients returns the number of open client connections.
func (s *Server) ConnectedClients() int {
	return s.mr.CurrentConnectionCount()
}
