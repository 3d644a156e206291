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
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfreeman451/wrtmon/pkg/config"
	"github.com/mfreeman451/wrtmon/pkg/snapshot"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestNoSecurityProvider(t *testing.T) {
	provider := &NoSecurityProvider{}
	ctx := context.Background()

	clientOpt, err := provider.GetClientCredentials(ctx)
	require.NoError(t, err)
	assert.NotNil(t, clientOpt)

	serverOpt, err := provider.GetServerCredentials(ctx)
	require.NoError(t, err)
	assert.NotNil(t, serverOpt)

	assert.NoError(t, provider.Close())
}

func TestNewSecurityProvider(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestPKI(t, tmpDir)

	tests := []struct {
		name    string
		cfg     *config.SecurityConfig
		role    Role
		want    interface{}
		wantErr error
	}{
		{name: "nil config", cfg: nil, role: RoleServer, want: &NoSecurityProvider{}},
		{name: "none", cfg: &config.SecurityConfig{Mode: config.SecurityModeNone}, role: RoleServer, want: &NoSecurityProvider{}},
		{name: "mtls server", cfg: &config.SecurityConfig{Mode: config.SecurityModeMTLS, CertDir: tmpDir}, role: RoleServer, want: &MTLSProvider{}},
		{name: "mtls client", cfg: &config.SecurityConfig{Mode: config.SecurityModeMTLS, CertDir: tmpDir}, role: RoleClient, want: &MTLSProvider{}},
		{name: "mtls without dir", cfg: &config.SecurityConfig{Mode: config.SecurityModeMTLS}, role: RoleServer, wantErr: errSecurityConfigRequired},
		{name: "unknown mode", cfg: &config.SecurityConfig{Mode: "spiffe"}, role: RoleServer, wantErr: errUnknownSecurityMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewSecurityProvider(tt.cfg, tt.role, quietLogger)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.IsType(t, tt.want, provider)
			assert.NoError(t, provider.Close())
		})
	}
}

func TestMTLSProvider_MissingCerts(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestPKI(t, tmpDir)
	require.NoError(t, os.Remove(filepath.Join(tmpDir, "server-key.pem")))

	_, err := NewMTLSProvider(&config.SecurityConfig{Mode: config.SecurityModeMTLS, CertDir: tmpDir}, RoleServer, quietLogger)
	require.ErrorIs(t, err, errMissingCerts)
	assert.Contains(t, err.Error(), "server-key.pem")

	// the client half is still complete
	_, err = NewMTLSProvider(&config.SecurityConfig{Mode: config.SecurityModeMTLS, CertDir: tmpDir}, RoleClient, quietLogger)
	require.NoError(t, err)
}

func TestMTLSProvider_RoleMismatch(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestPKI(t, tmpDir)

	provider, err := NewMTLSProvider(&config.SecurityConfig{Mode: config.SecurityModeMTLS, CertDir: tmpDir}, RoleServer, quietLogger)
	require.NoError(t, err)

	_, err = provider.GetClientCredentials(context.Background())
	require.ErrorIs(t, err, errFailedToLoadClientCreds)
}

// startServer serves on an ephemeral port and returns its address.
func startServer(t *testing.T, opts ...ServerOption) (*Server, string) {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := NewServer(lis.Addr().String(), quietLogger, opts...)

	go func() {
		_ = srv.Serve(lis)
	}()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		srv.Stop(ctx)
	})

	return srv, lis.Addr().String()
}

func TestHealthOverMTLS(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestPKI(t, tmpDir)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	secCfg := &config.SecurityConfig{Mode: config.SecurityModeMTLS, CertDir: tmpDir, ServerName: "localhost"}

	serverProvider, err := NewSecurityProvider(secCfg, RoleServer, quietLogger)
	require.NoError(t, err)

	creds, err := serverProvider.GetServerCredentials(ctx)
	require.NoError(t, err)

	srv, addr := startServer(t, WithServerOptions(creds))

	snap := snapshot.Empty()
	snap.SessionOK = true
	NewHealthReporter(srv.GetHealthCheck(), quietLogger).Update(snap)

	clientProvider, err := NewSecurityProvider(secCfg, RoleClient, quietLogger)
	require.NoError(t, err)

	client, err := NewClient(ctx, addr, WithSecurityProvider(clientProvider), WithClientLogger(quietLogger))
	require.NoError(t, err)

	defer client.Close()

	serving, err := client.CheckHealth(ctx, ServiceName)
	require.NoError(t, err)
	assert.True(t, serving)

	// a client without certificates is refused
	insecureClient, err := NewClient(ctx, addr, WithMaxRetries(1), WithClientLogger(quietLogger))
	require.NoError(t, err)

	defer insecureClient.Close()

	_, err = insecureClient.CheckHealth(ctx, ServiceName)
	require.Error(t, err)
}

func TestHealthOverMTLS_ForeignClientRefused(t *testing.T) {
	serverDir := t.TempDir()
	writeTestPKI(t, serverDir)

	// same root on disk, but the client pair comes from another CA
	clientDir := t.TempDir()
	writeTestPKI(t, clientDir)

	rootPEM, err := os.ReadFile(filepath.Join(serverDir, "root.pem"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(clientDir, "root.pem"), rootPEM, 0o600))

	newTestCA(t, "rogue root").issue(t, clientDir, pkiLeaves[1], 9)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	serverProvider, err := NewSecurityProvider(
		&config.SecurityConfig{Mode: config.SecurityModeMTLS, CertDir: serverDir}, RoleServer, quietLogger)
	require.NoError(t, err)

	creds, err := serverProvider.GetServerCredentials(ctx)
	require.NoError(t, err)

	srv, addr := startServer(t, WithServerOptions(creds))
	NewHealthReporter(srv.GetHealthCheck(), quietLogger).Update(snapshot.Empty())

	clientProvider, err := NewSecurityProvider(
		&config.SecurityConfig{Mode: config.SecurityModeMTLS, CertDir: clientDir, ServerName: "localhost"},
		RoleClient, quietLogger)
	require.NoError(t, err)

	client, err := NewClient(ctx, addr, WithSecurityProvider(clientProvider),
		WithMaxRetries(1), WithClientLogger(quietLogger))
	require.NoError(t, err)

	defer client.Close()

	_, err = client.CheckHealth(ctx, ServiceName)
	require.Error(t, err)
}
