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

// Package lifecycle runs the poller with its HTTP and gRPC surfaces and
// shuts them down together.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mfreeman451/wrtmon/pkg/config"
	"github.com/mfreeman451/wrtmon/pkg/grpc"
)

const (
	MaxRecvSize     = 4 * 1024 * 1024 // 4MB
	MaxSendSize     = 4 * 1024 * 1024 // 4MB
	ShutdownTimeout = 10 * time.Second
)

// Service defines the interface that all services must implement.
type Service interface {
	Start(context.Context) error
	Stop(context.Context) error
}

// HTTPServer is served on HTTPAddr next to the service.
type HTTPServer interface {
	Start(addr string) error
	Stop(context.Context) error
}

// GRPCServiceRegistrar is a function type for registering gRPC services.
type GRPCServiceRegistrar func(*grpc.Server) error

// ServerOptions holds configuration for creating a server.
type ServerOptions struct {
	ServiceName string
	Service     Service

	HTTPAddr string
	HTTP     HTTPServer

	// GRPCAddr enables the health server; HealthSource drives its status.
	GRPCAddr             string
	Security             *config.SecurityConfig
	HealthSource         grpc.SnapshotSource
	RegisterGRPCServices []GRPCServiceRegistrar

	// Background tasks run until shutdown.
	Background []func(context.Context)

	Logger *slog.Logger
}

// RunServer starts the service and its servers, then blocks until a signal,
// a component error, or ctx cancellation, and shuts everything down.
func RunServer(ctx context.Context, opts *ServerOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Starting service", "service", opts.ServiceName)

	var grpcServer *grpc.Server

	if opts.GRPCAddr != "" {
		var err error

		grpcServer, err = setupGRPCServer(ctx, opts, logger)
		if err != nil {
			return fmt.Errorf("failed to setup gRPC server: %w", err)
		}
	}

	errChan := make(chan error, 3)

	report := func(component string, err error) {
		select {
		case errChan <- fmt.Errorf("%s: %w", component, err):
		default:
			logger.Error("Component error", "component", component, "error", err)
		}
	}

	go func() {
		if err := opts.Service.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			report("service", err)
		}
	}()

	for _, task := range opts.Background {
		go task(ctx)
	}

	if opts.HTTP != nil {
		go func() {
			if err := opts.HTTP.Start(opts.HTTPAddr); err != nil {
				report("http", err)
			}
		}()
	}

	if grpcServer != nil {
		if opts.HealthSource != nil {
			reporter := grpc.NewHealthReporter(grpcServer.GetHealthCheck(), logger)

			go reporter.Watch(ctx, opts.HealthSource)
		}

		go func() {
			if err := grpcServer.Start(); err != nil {
				report("grpc", err)
			}
		}()
	}

	return handleShutdown(ctx, cancel, opts, grpcServer, errChan, logger)
}

func setupGRPCServer(ctx context.Context, opts *ServerOptions, logger *slog.Logger) (*grpc.Server, error) {
	serverOpts := []grpc.ServerOption{
		grpc.WithMaxRecvSize(MaxRecvSize),
		grpc.WithMaxSendSize(MaxSendSize),
	}

	provider, err := grpc.NewSecurityProvider(opts.Security, grpc.RoleServer, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create security provider: %w", err)
	}

	creds, err := provider.GetServerCredentials(ctx)
	if err != nil {
		_ = provider.Close()

		return nil, fmt.Errorf("failed to get server credentials: %w", err)
	}

	serverOpts = append(serverOpts, grpc.WithServerOptions(creds))

	grpcServer := grpc.NewServer(opts.GRPCAddr, logger, serverOpts...)

	if err := grpcServer.RegisterHealthServer(); err != nil {
		logger.Warn("Failed to register health server", "error", err)
	}

	for _, register := range opts.RegisterGRPCServices {
		if err := register(grpcServer); err != nil {
			logger.Warn("Failed to register gRPC service", "error", err)
		}
	}

	return grpcServer, nil
}

func handleShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	opts *ServerOptions,
	grpcServer *grpc.Server,
	errChan chan error,
	logger *slog.Logger) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	defer signal.Stop(sigChan)

	var runErr error

	select {
	case sig := <-sigChan:
		logger.Info("Received signal, initiating shutdown", "signal", sig.String())
	case err := <-errChan:
		logger.Error("Component failed, initiating shutdown", "error", err)
		runErr = fmt.Errorf("service error: %w", err)
	case <-ctx.Done():
		logger.Info("Context canceled, initiating shutdown")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer shutdownCancel()

	if err := opts.Service.Stop(shutdownCtx); err != nil {
		logger.Error("Error during service shutdown", "error", err)

		if runErr == nil {
			runErr = fmt.Errorf("shutdown error: %w", err)
		}
	}

	cancel()

	if opts.HTTP != nil {
		if err := opts.HTTP.Stop(shutdownCtx); err != nil {
			logger.Warn("Error during HTTP shutdown", "error", err)
		}
	}

	if grpcServer != nil {
		grpcServer.Stop(shutdownCtx)
	}

	logger.Info("Shutdown complete", "service", opts.ServiceName)

	return runErr
}
