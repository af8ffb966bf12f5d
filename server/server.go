package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/mdlayher/vsock"

	"github.com/cloudx-io/openescrow/core"
	"github.com/cloudx-io/openescrow/escrowapi"
	"github.com/cloudx-io/openescrow/receipt"
)

const (
	NetworkTCP   = "tcp"
	NetworkVsock = "vsock"

	// maxRequestBytes bounds a single JSON request.
	maxRequestBytes = 1 << 20
)

// Config controls the listener and the worker pool.
type Config struct {
	Network     string
	Address     string // tcp listen address
	VsockPort   uint32
	MaxWorkers  int
	ReadTimeout time.Duration
}

// DefaultConfig listens on tcp 127.0.0.1:5000 with 16 workers.
func DefaultConfig() Config {
	return Config{
		Network:     NetworkTCP,
		Address:     "127.0.0.1:5000",
		VsockPort:   5000,
		MaxWorkers:  16,
		ReadTimeout: 30 * time.Second,
	}
}

func (c Config) Validate() error {
	switch c.Network {
	case NetworkTCP:
		if c.Address == "" {
			return fmt.Errorf("tcp listen address is required")
		}
	case NetworkVsock:
		if c.VsockPort == 0 {
			return fmt.Errorf("vsock port is required")
		}
	default:
		return fmt.Errorf("unknown network %q (want tcp or vsock)", c.Network)
	}
	if c.MaxWorkers <= 0 {
		return fmt.Errorf("max workers must be positive, got %d", c.MaxWorkers)
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive, got %s", c.ReadTimeout)
	}
	return nil
}

// Server answers one JSON request per connection against an escrow engine.
type Server struct {
	cfg    Config
	engine *core.Engine
	signer *receipt.Signer
	log    *slog.Logger

	wg sync.WaitGroup
}

func New(cfg Config, engine *core.Engine, signer *receipt.Signer) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server config: %w", err)
	}
	if engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if signer == nil {
		return nil, fmt.Errorf("receipt signer is required")
	}
	return &Server{
		cfg:    cfg,
		engine: engine,
		signer: signer,
		log:    slog.Default().With("pkg", "server"),
	}, nil
}

// Listen opens the configured tcp or vsock listener.
func (s *Server) Listen() (net.Listener, error) {
	switch s.cfg.Network {
	case NetworkVsock:
		l, err := vsock.Listen(s.cfg.VsockPort, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create vsock listener: %w", err)
		}
		return l, nil
	default:
		l, err := net.Listen("tcp", s.cfg.Address)
		if err != nil {
			return nil, fmt.Errorf("failed to create tcp listener: %w", err)
		}
		return l, nil
	}
}

// Start listens and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	l, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ctx, l)
}

// Serve accepts connections on l until ctx is cancelled, then closes l and waits for
// in-flight connections. Connections beyond MaxWorkers are closed immediately.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		if err := l.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.log.Error("failed to close listener", "err", err)
		}
	}()

	s.log.Info("escrow server listening", "network", s.cfg.Network, "addr", l.Addr().String(), "workers", s.cfg.MaxWorkers)
	semaphore := make(chan struct{}, s.cfg.MaxWorkers)
	defer s.wg.Wait()

	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.log.Info("escrow server stopped")
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			s.log.Error("failed to accept connection", "err", err)
			continue
		}

		// Acquire worker slot, immediate rejection if pool full
		select {
		case semaphore <- struct{}{}:
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				defer func() { <-semaphore }()
				s.handleConnection(c)
			}(conn)
		default:
			s.log.Warn("no workers available, rejecting connection")
			if err := conn.Close(); err != nil {
				s.log.Error("failed to close rejected connection", "err", err)
			}
		}
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic recovered in connection handler", "panic", r)
		}
		if err := conn.Close(); err != nil {
			s.log.Debug("failed to close connection", "err", err)
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))

	var req escrowapi.Request
	dec := json.NewDecoder(io.LimitReader(conn, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		s.log.Warn("failed to decode request", "remote", conn.RemoteAddr().String(), "err", err)
		s.write(conn, &escrowapi.Response{
			Type:      "error",
			Message:   fmt.Sprintf("Failed to decode request: %v", err),
			ErrorKind: string(core.KindValidation),
			ErrorCode: CodeBadRequest,
		})
		return
	}

	s.log.Debug("received request", "type", req.Type, "request_id", req.RequestID)
	resp := s.Handle(&req)
	s.write(conn, resp)
}

func (s *Server) write(conn net.Conn, resp *escrowapi.Response) {
	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		s.log.Error("failed to encode response", "type", resp.Type, "err", err)
	}
}
