/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package grpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
)

// ServerOption is a function type that modifies Server configuration.
type ServerOption func(*Server)

const (
	shutdownTimer = 5 * time.Second
)

// Server wraps a gRPC server with health and reflection services.
type Server struct {
	srv              *grpc.Server
	healthCheck      *health.Server
	addr             string
	logger           *slog.Logger
	mu               sync.RWMutex
	services         map[string]struct{}
	serverOpts       []grpc.ServerOption
	healthRegistered bool
}

// NewServer creates a new gRPC server with the given configuration.
func NewServer(addr string, logger *slog.Logger, opts ...ServerOption) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		addr:     addr,
		logger:   logger.With("component", "grpc"),
		services: make(map[string]struct{}),
	}

	s.serverOpts = []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			s.loggingInterceptor,
			s.recoveryInterceptor,
		),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle:     10 * time.Minute,
			MaxConnectionAge:      24 * time.Hour,
			MaxConnectionAgeGrace: 5 * time.Minute,
			Time:                  120 * time.Second,
			Timeout:               20 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             120 * time.Second,
			PermitWithoutStream: true,
		}),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.srv = grpc.NewServer(s.serverOpts...)
	s.healthCheck = health.NewServer()

	reflection.Register(s.srv)

	return s
}

// GetGRPCServer returns the underlying gRPC server.
func (s *Server) GetGRPCServer() *grpc.Server {
	return s.srv
}

// GetHealthCheck returns the health server instance.
func (s *Server) GetHealthCheck() *health.Server {
	return s.healthCheck
}

// RegisterHealthServer registers the health server if not already registered.
func (s *Server) RegisterHealthServer() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.healthRegistered {
		return errHealthServerRegistered
	}

	healthpb.RegisterHealthServer(s.srv, s.healthCheck)
	s.healthRegistered = true

	return nil
}

// WithServerOptions adds gRPC server options.
func WithServerOptions(opt ...grpc.ServerOption) ServerOption {
	return func(s *Server) {
		s.serverOpts = append(s.serverOpts, opt...)
	}
}

// WithMaxRecvSize sets the maximum receive message size.
func WithMaxRecvSize(size int) ServerOption {
	return func(s *Server) {
		s.serverOpts = append(s.serverOpts, grpc.MaxRecvMsgSize(size))
	}
}

// WithMaxSendSize sets the maximum send message size.
func WithMaxSendSize(size int) ServerOption {
	return func(s *Server) {
		s.serverOpts = append(s.serverOpts, grpc.MaxSendMsgSize(size))
	}
}

// Start listens on the configured address and serves until Stop.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	return s.Serve(lis)
}

// Serve serves on lis until Stop.
func (s *Server) Serve(lis net.Listener) error {
	if err := s.RegisterHealthServer(); err != nil && !errors.Is(err, errHealthServerRegistered) {
		s.logger.Warn("Health server registration failed", "error", err)
	}

	s.logger.Info("gRPC server listening", "addr", lis.Addr().String())

	if err := s.srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("failed to serve: %w", err)
	}

	return nil
}

// Stop marks every service NOT_SERVING and stops gracefully, forcing the
// stop once ctx or the shutdown timer expires.
func (s *Server) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.healthCheck.Shutdown()

	stopped := make(chan struct{})

	go func() {
		s.srv.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		s.logger.Info("gRPC server stopped gracefully")
	case <-ctx.Done():
		s.logger.Warn("gRPC server shutdown canceled, forcing stop")
		s.srv.Stop()
	case <-time.After(shutdownTimer):
		s.logger.Warn("gRPC server shutdown timed out, forcing stop")
		s.srv.Stop()
	}
}

func (s *Server) loggingInterceptor(
	ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	s.logger.Debug("gRPC call", "method", info.FullMethod, "duration", time.Since(start), "error", err)

	return resp, err
}

func (s *Server) recoveryInterceptor(
	ctx context.Context,
	req interface{},
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler) (resp interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Recovered from panic", "method", info.FullMethod, "panic", r)

			err = errInternalError
		}
	}()

	return handler(ctx, req)
}
