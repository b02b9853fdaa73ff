// Package transport provides the embedded, in-process publish/subscribe
// fabric that carries snapshots out to observers (§4.5/§6). It is not a
// network-facing ingress: the kernel exposes no external API surface, but
// internally it still benefits from a broker that decouples "snapshot
// ready" producers from however many observers happen to be attached.
package transport

import (
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// ServerConfig configures the embedded broker.
type ServerConfig struct {
	Port int // 0 picks an ephemeral loopback port
}

// Server wraps an embedded NATS server bound to loopback only — nothing
// here is meant to be reachable off-host.
type Server struct {
	mu      sync.RWMutex
	ns      *server.Server
	config  ServerConfig
	running bool
}

// NewServer creates an unstarted embedded broker.
func NewServer(cfg ServerConfig) *Server {
	return &Server{config: cfg}
}

// Start launches the broker in the background and blocks until it is
// ready for connections.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("transport server already running")
	}

	opts := &server.Options{
		Host:       "127.0.0.1",
		Port:       s.config.Port,
		NoLog:      true,
		NoSigs:     true,
		MaxPayload: 4 * 1024 * 1024,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return fmt.Errorf("create embedded broker: %w", err)
	}

	s.ns = ns
	go ns.Start()

	if !ns.ReadyForConnections(10 * time.Second) {
		return fmt.Errorf("embedded broker not ready for connections")
	}
	s.running = true
	return nil
}

// Shutdown stops the broker, waiting for it to fully drain.
func (s *Server) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.ns == nil {
		return
	}
	s.ns.Shutdown()
	s.ns.WaitForShutdown()
	s.running = false
	s.ns = nil
}

// URL returns the loopback connection string for Client.
func (s *Server) URL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fmt.Sprintf("nats://127.0.0.1:%d", s.config.Port)
}

// IsRunning reports whether the broker accepted a Start call that has not
// since been Shutdown.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}
