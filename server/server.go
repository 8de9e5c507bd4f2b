// server/server.go

// Package server runs the network-facing authorization service: a gin
// HTTP API over an ACL store, registered with discovery while running.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/guardian/logging"
)

// ServiceName is the well-known discovery name the service registers
// under and clients resolve.
const ServiceName = "authorization"

// Registry is the slice of discovery the server needs.
type Registry interface {
	Register(ctx context.Context, name, addr string) error
	Deregister(ctx context.Context, name, addr string) error
}

// AuthorizationService serves the ACL HTTP API. Lifecycle: Start binds
// the listener and registers with discovery; Stop deregisters and
// releases the listener. Start may be called once.
type AuthorizationService struct {
	handler  *gin.Engine
	registry Registry
	addr     string

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
	baseURL  string
	started  bool
}

// NewAuthorizationService builds a service listening on addr (e.g.
// ":8080"; an empty port picks a free one).
func NewAuthorizationService(handler *gin.Engine, registry Registry, addr string) *AuthorizationService {
	return &AuthorizationService{
		handler:  handler,
		registry: registry,
		addr:     addr,
	}
}

// Start binds the listener, registers with discovery, and returns once
// the service is accepting connections.
func (s *AuthorizationService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.New("authorization service already started")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to bind listener on %s: %w", s.addr, err)
	}

	s.listener = listener
	s.baseURL = fmt.Sprintf("http://%s", listener.Addr().String())
	s.server = &http.Server{Handler: s.handler}

	if err := s.registry.Register(ctx, ServiceName, s.baseURL); err != nil {
		listener.Close()
		return fmt.Errorf("failed to register with discovery: %w", err)
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Error("Authorization service stopped unexpectedly", zap.Error(err))
		}
	}()

	s.started = true
	logger.Info("Authorization service started", zap.String("addr", s.baseURL))
	return nil
}

// Stop deregisters from discovery and shuts the listener down, waiting
// for in-flight requests up to the context deadline (or 5s by default).
func (s *AuthorizationService) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	if err := s.registry.Deregister(ctx, ServiceName, s.baseURL); err != nil {
		logger.Warn("Failed to deregister from discovery", zap.Error(err))
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}

	err := s.server.Shutdown(ctx)
	s.started = false
	logger.Info("Authorization service stopped", zap.String("addr", s.baseURL))
	return err
}

// BaseURL is the resolved listen address, valid after Start.
func (s *AuthorizationService) BaseURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseURL
}
