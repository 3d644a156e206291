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

// Package ubus pkg/ubus/transport.go
package ubus

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/net/http2"
)

const maxResponseBytes = 8 << 20

// HTTPTransport implements Transport over rpcd's /ubus JSON-RPC endpoint.
// It owns one pooled HTTP client shared by every call.
type HTTPTransport struct {
	host      string
	client    *http.Client
	protocols []Protocol
	logger    *slog.Logger
	nextID    atomic.Int64
}

// TransportOption customizes an HTTPTransport.
type TransportOption func(*HTTPTransport)

// WithProtocols overrides the variant order. Tests use it to pin a single scheme.
func WithProtocols(protocols ...Protocol) TransportOption {
	return func(t *HTTPTransport) {
		t.protocols = protocols
	}
}

// WithHTTPClient replaces the pooled client.
func WithHTTPClient(client *http.Client) TransportOption {
	return func(t *HTTPTransport) {
		t.client = client
	}
}

// NewHTTPTransport builds a transport for host ("192.168.1.1" or "router:8080").
func NewHTTPTransport(host string, timeout time.Duration, logger *slog.Logger, opts ...TransportOption) (*HTTPTransport, error) {
	if host == "" {
		return nil, ErrHostRequired
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	if logger == nil {
		logger = slog.Default()
	}

	t := &HTTPTransport{
		host:      host,
		client:    newPooledClient(timeout),
		protocols: protocolOrder,
		logger:    logger.With("component", "ubus_transport", "host", host),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t, nil
}

func newPooledClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		// Routers ship self-signed certificates; the operator controls the host.
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // operator-owned device
		MaxIdleConns:        64,
		MaxIdleConnsPerHost: 64,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: timeout,
	}

	// A custom TLS config disables the stdlib's implicit HTTP/2 upgrade.
	_ = http2.ConfigureTransport(tr)

	return &http.Client{
		Transport: tr,
		Timeout:   timeout,
	}
}

// Call implements Transport. Variants are tried in order and the first
// well-formed 200 response wins. Failures never escape this method.
func (t *HTTPTransport) Call(ctx context.Context, token, namespace, method string, params map[string]any) (any, bool) {
	return t.CallAccepting(ctx, token, namespace, method, params, nil)
}

// CallAccepting is Call with an extra check on each variant's payload. A
// payload rejected by accept counts as a failed attempt and the next variant
// is tried. A nil accept takes the first well-formed response.
func (t *HTTPTransport) CallAccepting(
	ctx context.Context, token, namespace, method string, params map[string]any, accept func(any) error,
) (any, bool) {
	if params == nil {
		params = map[string]any{}
	}

	body, err := json.Marshal(request{
		JSONRPC: rpcVersion,
		ID:      t.nextID.Add(1),
		Method:  rpcMethodCall,
		Params:  []any{token, namespace, method, params},
	})
	if err != nil {
		t.logger.Debug("Failed to encode ubus request", "namespace", namespace, "method", method, "error", err)

		return nil, false
	}

	for _, protocol := range t.protocols {
		value, err := t.post(ctx, protocol, body)
		if err == nil && accept != nil {
			err = accept(value)
		}

		if err != nil {
			t.logger.Debug("ubus call attempt failed",
				"namespace", namespace,
				"method", method,
				"error", &CallError{Op: namespace + "." + method, Host: t.host, Protocol: protocol, Wrapped: err})

			continue
		}

		return value, true
	}

	return nil, false
}

func (t *HTTPTransport) post(ctx context.Context, protocol Protocol, body []byte) (any, error) {
	url := fmt.Sprintf("%s://%s%s", protocol, t.host, endpointPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)

		return nil, fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}

	return decodeResult(data)
}

// decodeResult extracts result[1] from a JSON-RPC envelope.
func decodeResult(data []byte) (any, error) {
	var resp response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	if resp.Error != nil {
		return nil, fmt.Errorf("%w: %d %s", ErrRPCError, resp.Error.Code, resp.Error.Message)
	}

	if len(resp.Result) < 2 {
		return nil, ErrShortResult
	}

	var payload any
	if err := json.Unmarshal(resp.Result[1], &payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	return payload, nil
}

// Ping reports whether any protocol variant answers HTTP at all. Status codes
// are ignored; only transport-level failures count.
func (t *HTTPTransport) Ping(ctx context.Context) error {
	var lastErr error

	for _, protocol := range t.protocols {
		url := fmt.Sprintf("%s://%s%s", protocol, t.host, endpointPath)

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader([]byte("{}")))
		if err != nil {
			return err
		}

		resp, err := t.client.Do(req)
		if err != nil {
			lastErr = &CallError{Op: "ping", Host: t.host, Protocol: protocol, Wrapped: err}

			continue
		}

		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()

		return nil
	}

	return lastErr
}

// Close releases pooled connections.
func (t *HTTPTransport) Close() {
	t.client.CloseIdleConnections()
}
