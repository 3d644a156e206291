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

package ubus

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Client is the session-aware ubus surface: it logs in lazily and issues
// calls with the cached token.
type Client struct {
	endpoint  Endpoint
	timeout   time.Duration
	logger    *slog.Logger
	transport Transport
	sessions  *SessionManager
	closer    func()
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithTransport injects a transport instead of dialing the endpoint over HTTP.
func WithTransport(transport Transport) ClientOption {
	return func(c *Client) {
		c.transport = transport
	}
}

// NewClient builds a client for ep.
func NewClient(ep Endpoint, opts ...ClientOption) (*Client, error) {
	c := &Client{
		endpoint: ep,
		timeout:  DefaultTimeout,
		logger:   slog.Default(),
		closer:   func() {},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.transport == nil {
		tr, err := NewHTTPTransport(ep.Host, c.timeout, c.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create ubus transport: %w", err)
		}

		c.transport = tr
		c.closer = tr.Close
	}

	c.sessions = NewSessionManager(c.transport, ep.Username, ep.Password, c.logger)

	return c, nil
}

// Call issues one authenticated call. It reports absence when no session can
// be established or the call itself fails.
func (c *Client) Call(ctx context.Context, namespace, method string, params map[string]any) (any, bool) {
	token, ok := c.sessions.EnsureSession(ctx)
	if !ok {
		return nil, false
	}

	return c.transport.Call(ctx, token, namespace, method, params)
}

// Transport exposes the underlying transport for batch fetching.
func (c *Client) Transport() Transport {
	return c.transport
}

// Sessions exposes the session manager shared by every caller of this client.
func (c *Client) Sessions() *SessionManager {
	return c.sessions
}

// Endpoint returns the configured endpoint.
func (c *Client) Endpoint() Endpoint {
	return c.endpoint
}

type pinger interface {
	Ping(ctx context.Context) error
}

// TestConnection verifies the endpoint answers, the credentials are accepted
// and system.board can be read. It does not touch the cached session.
func (c *Client) TestConnection(ctx context.Context) error {
	if p, ok := c.transport.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrCannotConnect, err)
		}
	}

	probe := NewSessionManager(c.transport, c.endpoint.Username, c.endpoint.Password, c.logger)

	token, ok := probe.EnsureSession(ctx)
	if !ok {
		return ErrInvalidAuth
	}

	if _, ok := c.transport.Call(ctx, token, "system", "board", nil); !ok {
		return fmt.Errorf("%w: system.board unavailable", ErrCannotConnect)
	}

	return nil
}

// Close releases transport resources.
func (c *Client) Close() {
	c.closer()
}
