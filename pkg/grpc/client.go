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
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
)

const (
	defaultMaxRetries                 = 3
	retryInterceptorTimeoutDuration   = 100 * time.Millisecond
	retryInterceptorAttemptMultiplier = 100
	grpcKeepAliveTime                 = 10 * time.Second
	grpcKeepAliveTimeout              = 5 * time.Second
)

// ClientOption allows customization of the client.
type ClientOption func(*ClientConn)

// ClientConn is a health-checking client for a wrtmon gRPC endpoint.
type ClientConn struct {
	conn             *grpc.ClientConn
	healthClient     grpc_health_v1.HealthClient
	addr             string
	maxRetries       int
	logger           *slog.Logger
	securityProvider SecurityProvider
}

// WithMaxRetries sets the maximum number of retry attempts.
func WithMaxRetries(retries int) ClientOption {
	return func(c *ClientConn) {
		c.maxRetries = retries
	}
}

// WithSecurityProvider sets the security provider for the client.
func WithSecurityProvider(provider SecurityProvider) ClientOption {
	return func(c *ClientConn) {
		c.securityProvider = provider
	}
}

// WithClientLogger sets the client logger.
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *ClientConn) {
		c.logger = l
	}
}

// NewClient creates a client for addr. The connection is established lazily.
func NewClient(ctx context.Context, addr string, opts ...ClientOption) (*ClientConn, error) {
	c := &ClientConn{
		addr:       addr,
		maxRetries: defaultMaxRetries,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.securityProvider == nil {
		c.securityProvider = &NoSecurityProvider{}
	}

	creds, err := c.securityProvider.GetClientCredentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get client credentials: %w", err)
	}

	conn, err := grpc.NewClient(addr,
		creds,
		grpc.WithChainUnaryInterceptor(c.loggingInterceptor, c.retryInterceptor),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                grpcKeepAliveTime,
			Timeout:             grpcKeepAliveTimeout,
			PermitWithoutStream: true,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for %s: %w", addr, err)
	}

	c.conn = conn
	c.healthClient = grpc_health_v1.NewHealthClient(conn)

	return c, nil
}

// retryInterceptor retries failed calls with a growing delay.
func (c *ClientConn) retryInterceptor(ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption) error {
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		err := invoker(ctx, method, req, reply, cc, opts...)
		if err == nil {
			return nil
		}

		lastErr = err
		c.logger.Debug("gRPC call attempt failed", "attempt", attempt+1, "method", method, "error", err)

		delay := time.Duration(attempt*retryInterceptorAttemptMultiplier) * retryInterceptorTimeoutDuration

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("all retry attempts failed: %w", lastErr)
}

func (c *ClientConn) loggingInterceptor(
	ctx context.Context,
	method string,
	req interface{},
	reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption) error {
	start := time.Now()
	err := invoker(ctx, method, req, reply, cc, opts...)

	c.logger.Debug("gRPC client call", "method", method, "duration", time.Since(start), "error", err)

	return err
}

// CheckHealth reports whether service is SERVING.
func (c *ClientConn) CheckHealth(ctx context.Context, service string) (bool, error) {
	resp, err := c.healthClient.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: service})
	if err != nil {
		return false, fmt.Errorf("health check failed: %w", err)
	}

	return resp.Status == grpc_health_v1.HealthCheckResponse_SERVING, nil
}

// Close closes the client connection.
func (c *ClientConn) Close() error {
	if err := c.securityProvider.Close(); err != nil {
		c.logger.Debug("Failed to close security provider", "error", err)
	}

	return c.conn.Close()
}
