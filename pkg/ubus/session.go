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
	"log/slog"
	"sync"
)

// SessionManager caches the ubus session token. Concurrent callers that find
// no token share a single login.
type SessionManager struct {
	transport Transport
	username  string
	password  string
	logger    *slog.Logger

	mu    sync.Mutex
	token string
}

// NewSessionManager builds a manager that logs in through transport.
func NewSessionManager(transport Transport, username, password string, logger *slog.Logger) *SessionManager {
	if logger == nil {
		logger = slog.Default()
	}

	return &SessionManager{
		transport: transport,
		username:  username,
		password:  password,
		logger:    logger.With("component", "ubus_session"),
	}
}

// EnsureSession implements Sessions.
func (s *SessionManager) EnsureSession(ctx context.Context) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" {
		return s.token, true
	}

	token, err := s.login(ctx)
	if err != nil {
		// callers decide how loudly a missing session is reported
		s.logger.Debug("ubus login failed", "error", err)

		return "", false
	}

	s.token = token
	s.logger.Debug("ubus session established")

	return token, true
}

// Cached reports whether a token is currently held, without logging in.
func (s *SessionManager) Cached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.token != ""
}

// Invalidate implements Sessions.
func (s *SessionManager) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" {
		s.logger.Debug("ubus session invalidated")
	}

	s.token = ""
}

// acceptingTransport lets login skip a variant that answered without a token.
type acceptingTransport interface {
	CallAccepting(ctx context.Context, token, namespace, method string, params map[string]any, accept func(any) error) (any, bool)
}

func (s *SessionManager) login(ctx context.Context) (string, error) {
	params := map[string]any{
		"username": s.username,
		"password": s.password,
	}

	var (
		value any
		ok    bool
	)

	if at, isAccepting := s.transport.(acceptingTransport); isAccepting {
		value, ok = at.CallAccepting(ctx, EmptySession, "session", "login", params, func(v any) error {
			_, err := sessionToken(v)
			return err
		})
	} else {
		value, ok = s.transport.Call(ctx, EmptySession, "session", "login", params)
	}

	if !ok {
		return "", ErrInvalidAuth
	}

	return sessionToken(value)
}

func sessionToken(value any) (string, error) {
	obj, ok := value.(map[string]any)
	if !ok {
		return "", ErrNoSessionField
	}

	token, ok := obj[sessionField].(string)
	if !ok || token == "" {
		return "", ErrNoSessionField
	}

	return token, nil
}
