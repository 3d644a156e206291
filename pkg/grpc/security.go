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

// Package grpc serves the gRPC health endpoint for the poller and provides
// the matching client.
package grpc

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/mfreeman451/wrtmon/pkg/config"
)

// Role decides which half of the mTLS material is loaded.
type Role string

const (
	RoleServer Role = "server"
	RoleClient Role = "client"
)

// NoSecurityProvider implements SecurityProvider with no security (development only).
type NoSecurityProvider struct{}

func (*NoSecurityProvider) GetClientCredentials(context.Context) (grpc.DialOption, error) {
	return grpc.WithTransportCredentials(insecure.NewCredentials()), nil
}

func (*NoSecurityProvider) GetServerCredentials(context.Context) (grpc.ServerOption, error) {
	return grpc.Creds(insecure.NewCredentials()), nil
}

func (*NoSecurityProvider) Close() error {
	return nil
}

// MTLSProvider implements SecurityProvider with mutual TLS.
type MTLSProvider struct {
	config      *config.SecurityConfig
	role        Role
	clientCreds credentials.TransportCredentials
	serverCreds credentials.TransportCredentials
	closeOnce   sync.Once
}

// NewMTLSProvider loads the certificates role needs from cfg.CertDir.
func NewMTLSProvider(cfg *config.SecurityConfig, role Role, logger *slog.Logger) (*MTLSProvider, error) {
	if cfg == nil || cfg.CertDir == "" {
		return nil, errSecurityConfigRequired
	}

	provider := &MTLSProvider{config: cfg, role: role}

	logger.Info("Initializing mTLS provider", "role", role, "cert_dir", cfg.CertDir)

	var err error

	switch role {
	case RoleServer:
		if err = validateCertificates(cfg.CertDir, "root.pem", "server.pem", "server-key.pem"); err != nil {
			return nil, err
		}

		if provider.serverCreds, err = loadServerCredentials(cfg); err != nil {
			return nil, fmt.Errorf("%w: %w", errFailedToLoadServerCreds, err)
		}
	case RoleClient:
		if err = validateCertificates(cfg.CertDir, "root.pem", "client.pem", "client-key.pem"); err != nil {
			return nil, err
		}

		if provider.clientCreds, err = loadClientCredentials(cfg); err != nil {
			return nil, fmt.Errorf("%w: %w", errFailedToLoadClientCreds, err)
		}
	}

	return provider, nil
}

func validateCertificates(dir string, required ...string) error {
	var missing []string

	for _, file := range required {
		if _, err := os.Stat(filepath.Join(dir, file)); os.IsNotExist(err) {
			missing = append(missing, file)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", errMissingCerts, strings.Join(missing, ", "))
	}

	return nil
}

func loadCAPool(dir string) (*x509.CertPool, error) {
	caCert, err := os.ReadFile(filepath.Join(dir, "root.pem"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedToReadCACert, err)
	}

	caPool := x509.NewCertPool()
	if !caPool.AppendCertsFromPEM(caCert) {
		return nil, errFailedToAppendCACert
	}

	return caPool, nil
}

func loadClientCredentials(cfg *config.SecurityConfig) (credentials.TransportCredentials, error) {
	certificate, err := tls.LoadX509KeyPair(
		filepath.Join(cfg.CertDir, "client.pem"), filepath.Join(cfg.CertDir, "client-key.pem"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedToLoadClientCert, err)
	}

	caPool, err := loadCAPool(cfg.CertDir)
	if err != nil {
		return nil, err
	}

	return credentials.NewTLS(&tls.Config{
		Certificates: []tls.Certificate{certificate},
		RootCAs:      caPool,
		ServerName:   cfg.ServerName,
		MinVersion:   tls.VersionTLS13,
	}), nil
}

func loadServerCredentials(cfg *config.SecurityConfig) (credentials.TransportCredentials, error) {
	certificate, err := tls.LoadX509KeyPair(
		filepath.Join(cfg.CertDir, "server.pem"), filepath.Join(cfg.CertDir, "server-key.pem"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedToLoadServerCert, err)
	}

	caPool, err := loadCAPool(cfg.CertDir)
	if err != nil {
		return nil, err
	}

	return credentials.NewTLS(&tls.Config{
		Certificates: []tls.Certificate{certificate},
		ClientCAs:    caPool,
		ClientAuth:   tls.RequireAndVerifyClientCert,
		MinVersion:   tls.VersionTLS13,
	}), nil
}

func (p *MTLSProvider) GetClientCredentials(context.Context) (grpc.DialOption, error) {
	if p.clientCreds == nil {
		return nil, fmt.Errorf("%w: provider role is %s", errFailedToLoadClientCreds, p.role)
	}

	return grpc.WithTransportCredentials(p.clientCreds), nil
}

func (p *MTLSProvider) GetServerCredentials(context.Context) (grpc.ServerOption, error) {
	if p.serverCreds == nil {
		return nil, fmt.Errorf("%w: provider role is %s", errFailedToLoadServerCreds, p.role)
	}

	return grpc.Creds(p.serverCreds), nil
}

func (p *MTLSProvider) Close() error {
	p.closeOnce.Do(func() {
		p.clientCreds = nil
		p.serverCreds = nil
	})

	return nil
}

// NewSecurityProvider creates the provider for cfg.Mode. A nil config or an
// empty mode means no security.
func NewSecurityProvider(cfg *config.SecurityConfig, role Role, logger *slog.Logger) (SecurityProvider, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg == nil {
		return &NoSecurityProvider{}, nil
	}

	switch cfg.Mode {
	case config.SecurityModeNone, "":
		return &NoSecurityProvider{}, nil
	case config.SecurityModeMTLS:
		return NewMTLSProvider(cfg, role, logger)
	default:
		return nil, fmt.Errorf("%w: %s", errUnknownSecurityMode, cfg.Mode)
	}
}
