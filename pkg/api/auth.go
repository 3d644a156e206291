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

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "wrtmon"

var (
	ErrSecretTooShort = errors.New("jwt secret must be at least 32 characters")
	ErrInvalidToken   = errors.New("invalid token")
)

// Claims identifies the holder of a control token.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenAuthority issues and checks HS256 bearer tokens for control endpoints.
type TokenAuthority struct {
	secret []byte
	now    func() time.Time
}

// NewTokenAuthority validates the secret length.
func NewTokenAuthority(secret string) (*TokenAuthority, error) {
	if len(secret) < 32 {
		return nil, ErrSecretTooShort
	}

	return &TokenAuthority{secret: []byte(secret), now: time.Now}, nil
}

// Issue signs a token for subject valid for ttl.
func (a *TokenAuthority) Issue(subject string, ttl time.Duration) (string, time.Time, error) {
	now := a.now()
	expiresAt := now.Add(ttl)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, expiresAt, nil
}

// Validate parses and verifies a token.
func (a *TokenAuthority) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		return a.secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(a.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// requireToken rejects requests without a valid bearer token. With no
// authority configured, the wrapped routes are disabled.
func (s *APIServer) requireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.auth == nil {
			writeError(w, http.StatusForbidden, "control endpoints are disabled")
			return
		}

		header := r.Header.Get("Authorization")

		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || raw == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := s.auth.Validate(raw)
		if err != nil {
			s.logger.Warn("Rejected control request", "path", r.URL.Path, "error", err)
			writeError(w, http.StatusUnauthorized, "invalid token")

			return
		}

		s.logger.Info("Control request", "path", r.URL.Path, "subject", claims.Subject)

		next(w, r)
	}
}
