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
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeRouter struct {
	mu       sync.Mutex
	logins   int
	requests []request
	token    string
	handlers map[string]func(params map[string]any) (any, bool)
}

func newFakeRouter() *fakeRouter {
	return &fakeRouter{
		token:    "0123456789abcdef0123456789abcdef",
		handlers: map[string]func(map[string]any) (any, bool){},
	}
}

func (f *fakeRouter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/ubus" || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Params) < 4 {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	token, _ := req.Params[0].(string)
	ns, _ := req.Params[1].(string)
	method, _ := req.Params[2].(string)
	params, _ := req.Params[3].(map[string]any)

	w.Header().Set("Content-Type", "application/json")

	if ns == "session" && method == "login" {
		f.mu.Lock()
		f.logins++
		f.mu.Unlock()

		if token != EmptySession || params["username"] != "root" || params["password"] != "secret" {
			_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": []any{6}})
			return
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0", "id": req.ID,
			"result": []any{0, map[string]any{sessionField: f.token}},
		})

		return
	}

	if token != f.token {
		_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": []any{6}})
		return
	}

	handler, ok := f.handlers[ns+"."+method]
	if !ok {
		_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": []any{3}})
		return
	}

	value, ok := handler(params)
	if !ok {
		_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": []any{4}})
		return
	}

	_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": []any{0, value}})
}

func (f *fakeRouter) loginCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.logins
}

func hostOf(srv *httptest.Server) string {
	return strings.TrimPrefix(strings.TrimPrefix(srv.URL, "https://"), "http://")
}

func TestNewHTTPTransport_RequiresHost(t *testing.T) {
	_, err := NewHTTPTransport("", 0, nil)
	require.ErrorIs(t, err, ErrHostRequired)
}

func TestHTTPTransport_CallFallsBackToHTTP(t *testing.T) {
	router := newFakeRouter()
	router.handlers["system.board"] = func(map[string]any) (any, bool) {
		return map[string]any{"model": "TP-Link Archer C7"}, true
	}

	srv := httptest.NewServer(router)
	defer srv.Close()

	tr, err := NewHTTPTransport(hostOf(srv), 0, quietLogger())
	require.NoError(t, err)
	defer tr.Close()

	value, ok := tr.Call(context.Background(), router.token, "system", "board", nil)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"model": "TP-Link Archer C7"}, value)
}

func TestHTTPTransport_HTTPSWins(t *testing.T) {
	router := newFakeRouter()
	router.handlers["system.info"] = func(map[string]any) (any, bool) {
		return map[string]any{"uptime": float64(42)}, true
	}

	srv := httptest.NewTLSServer(router)
	defer srv.Close()

	tr, err := NewHTTPTransport(hostOf(srv), 0, quietLogger())
	require.NoError(t, err)
	defer tr.Close()

	value, ok := tr.Call(context.Background(), router.token, "system", "info", map[string]any{})
	require.True(t, ok)
	assert.Equal(t, map[string]any{"uptime": float64(42)}, value)
}

func TestHTTPTransport_AbsentCases(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "non 200 status",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusForbidden)
			},
		},
		{
			name: "short result",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":[2]}`))
			},
		},
		{
			name: "missing result",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1}`))
			},
		},
		{
			name: "jsonrpc error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32002,"message":"Access denied"}}`))
			},
		},
		{
			name: "garbage body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`<html>nope</html>`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			tr, err := NewHTTPTransport(hostOf(srv), 0, quietLogger(), WithProtocols(ProtocolHTTP))
			require.NoError(t, err)

			value, ok := tr.Call(context.Background(), "token", "system", "board", nil)
			assert.False(t, ok)
			assert.Nil(t, value)
		})
	}
}

func TestHTTPTransport_UnreachableHost(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	host := hostOf(srv)
	srv.Close()

	tr, err := NewHTTPTransport(host, 0, quietLogger())
	require.NoError(t, err)

	_, ok := tr.Call(context.Background(), "token", "system", "board", nil)
	assert.False(t, ok)
	assert.Error(t, tr.Ping(context.Background()))
}

func TestHTTPTransport_RequestShape(t *testing.T) {
	router := newFakeRouter()
	router.handlers["luci-rpc.getDHCPLeases"] = func(map[string]any) (any, bool) {
		return map[string]any{"dhcp_leases": []any{}}, true
	}

	srv := httptest.NewServer(router)
	defer srv.Close()

	tr, err := NewHTTPTransport(hostOf(srv), 0, quietLogger(), WithProtocols(ProtocolHTTP))
	require.NoError(t, err)

	_, ok := tr.Call(context.Background(), router.token, "luci-rpc", "getDHCPLeases", nil)
	require.True(t, ok)

	_, ok = tr.Call(context.Background(), router.token, "luci-rpc", "getDHCPLeases", nil)
	require.True(t, ok)

	require.Len(t, router.requests, 2)
	first := router.requests[0]
	assert.Equal(t, "2.0", first.JSONRPC)
	assert.Equal(t, "call", first.Method)
	require.Len(t, first.Params, 4)
	assert.Equal(t, map[string]any{}, first.Params[3])
	assert.NotEqual(t, first.ID, router.requests[1].ID)
}

func TestCallError_Unwrap(t *testing.T) {
	err := &CallError{Op: "system.board", Host: "router", Protocol: ProtocolHTTPS, Wrapped: ErrBadStatus}
	assert.ErrorIs(t, err, ErrBadStatus)
	assert.Contains(t, err.Error(), "system.board")
	assert.Contains(t, err.Error(), "https")
}

func TestSessionManager_WithMockTransport(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tests := []struct {
		name      string
		setupMock func(*MockTransport)
		wantToken string
		wantOK    bool
	}{
		{
			name: "login succeeds",
			setupMock: func(m *MockTransport) {
				m.EXPECT().Call(gomock.Any(), EmptySession, "session", "login", gomock.Any()).
					Return(map[string]any{sessionField: "abc"}, true)
			},
			wantToken: "abc",
			wantOK:    true,
		},
		{
			name: "login absent",
			setupMock: func(m *MockTransport) {
				m.EXPECT().Call(gomock.Any(), EmptySession, "session", "login", gomock.Any()).Return(nil, false)
			},
		},
		{
			name: "login without token field",
			setupMock: func(m *MockTransport) {
				m.EXPECT().Call(gomock.Any(), EmptySession, "session", "login", gomock.Any()).
					Return(map[string]any{"expires": float64(300)}, true)
			},
		},
		{
			name: "login payload is not an object",
			setupMock: func(m *MockTransport) {
				m.EXPECT().Call(gomock.Any(), EmptySession, "session", "login", gomock.Any()).
					Return([]any{"x"}, true)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mt := NewMockTransport(ctrl)
			tt.setupMock(mt)

			sm := NewSessionManager(mt, "root", "secret", quietLogger())
			token, ok := sm.EnsureSession(context.Background())

			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantToken, token)
			assert.Equal(t, tt.wantOK, sm.Cached())
		})
	}
}

func TestSessionManager_CachesAndInvalidates(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mt := NewMockTransport(ctrl)
	mt.EXPECT().Call(gomock.Any(), EmptySession, "session", "login",
		map[string]any{"username": "root", "password": "secret"}).
		Return(map[string]any{sessionField: "first"}, true)
	mt.EXPECT().Call(gomock.Any(), EmptySession, "session", "login", gomock.Any()).
		Return(map[string]any{sessionField: "second"}, true)

	sm := NewSessionManager(mt, "root", "secret", quietLogger())

	token, ok := sm.EnsureSession(context.Background())
	require.True(t, ok)
	assert.Equal(t, "first", token)

	token, ok = sm.EnsureSession(context.Background())
	require.True(t, ok)
	assert.Equal(t, "first", token)

	sm.Invalidate()
	assert.False(t, sm.Cached())

	token, ok = sm.EnsureSession(context.Background())
	require.True(t, ok)
	assert.Equal(t, "second", token)
}

func TestSessionManager_ConcurrentCallersShareLogin(t *testing.T) {
	router := newFakeRouter()
	srv := httptest.NewServer(router)
	defer srv.Close()

	tr, err := NewHTTPTransport(hostOf(srv), 0, quietLogger(), WithProtocols(ProtocolHTTP))
	require.NoError(t, err)

	sm := NewSessionManager(tr, "root", "secret", quietLogger())

	var wg sync.WaitGroup

	for range 16 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			token, ok := sm.EnsureSession(context.Background())
			assert.True(t, ok)
			assert.Equal(t, router.token, token)
		}()
	}

	wg.Wait()
	assert.Equal(t, 1, router.loginCount())
}

// schemeSplit answers https requests with a fixed body and hands http
// requests to the fake router.
type schemeSplit struct {
	httpsBody string
	https     int
	router    http.Handler
}

func (s *schemeSplit) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme == string(ProtocolHTTPS) {
		s.https++

		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       io.NopCloser(strings.NewReader(s.httpsBody)),
			Request:    req,
		}, nil
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	return rec.Result(), nil
}

func TestSessionManager_LoginSkipsVariantWithoutToken(t *testing.T) {
	router := newFakeRouter()
	split := &schemeSplit{
		httpsBody: `{"jsonrpc":"2.0","id":1,"result":[0,{"expires":300}]}`,
		router:    router,
	}

	tr, err := NewHTTPTransport("router.lan", 0, quietLogger(), WithHTTPClient(&http.Client{Transport: split}))
	require.NoError(t, err)

	sm := NewSessionManager(tr, "root", "secret", quietLogger())

	token, ok := sm.EnsureSession(context.Background())
	require.True(t, ok)
	assert.Equal(t, router.token, token)
	assert.Equal(t, 1, split.https)
	assert.Equal(t, 1, router.loginCount())

	// plain calls still take the first well-formed answer
	value, ok := tr.Call(context.Background(), token, "system", "board", nil)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"expires": float64(300)}, value)
	assert.Equal(t, 2, split.https)
}
