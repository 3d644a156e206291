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

// Package api serves the current snapshot, poll history and control actions
// over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mfreeman451/wrtmon/pkg/control"
	httpx "github.com/mfreeman451/wrtmon/pkg/http"
	"github.com/mfreeman451/wrtmon/pkg/poller"
	"github.com/mfreeman451/wrtmon/pkg/snapshot"
)

const (
	readHeaderTimeout = 10 * time.Second
	// controlTimeout bounds a control action including the restart pause.
	controlTimeout = 30 * time.Second
)

// StatusResponse combines the loop status with a summary of the current
// snapshot.
type StatusResponse struct {
	Poller      poller.Status `json:"poller"`
	CycleID     string        `json:"cycle_id,omitempty"`
	CollectedAt time.Time     `json:"collected_at"`
	Stale       bool          `json:"stale"`
	SessionOK   bool          `json:"session_ok"`
	AbsentCalls int           `json:"absent_calls"`
	Degraded    []string      `json:"degraded"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// APIServer routes the HTTP API.
type APIServer struct {
	provider   SnapshotProvider
	controller Controller
	auth       *TokenAuthority
	metrics    http.Handler
	origins    []string
	logger     *slog.Logger
	router     *mux.Router
	handler    http.Handler
	srv        *http.Server
}

type Option func(*APIServer)

// WithTokenAuthority enables the control endpoints.
func WithTokenAuthority(a *TokenAuthority) Option {
	return func(s *APIServer) {
		s.auth = a
	}
}

// WithMetricsHandler mounts h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *APIServer) {
		s.metrics = h
	}
}

// WithCORSOrigins restricts cross-origin access.
func WithCORSOrigins(origins []string) Option {
	return func(s *APIServer) {
		s.origins = origins
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *APIServer) {
		s.logger = l
	}
}

// NewAPIServer builds the router. controller may be nil, which disables
// control routes.
func NewAPIServer(provider SnapshotProvider, controller Controller, opts ...Option) *APIServer {
	s := &APIServer{
		provider:   provider,
		controller: controller,
		logger:     slog.Default(),
		router:     mux.NewRouter(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.With("component", "api")
	s.setupRoutes()

	return s
}

func (s *APIServer) setupRoutes() {
	// CORS wraps the router so preflight requests never reach route matching.
	s.handler = httpx.CommonMiddleware(s.origins)(httpx.LoggingMiddleware(s.logger)(s.router))

	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/snapshot", s.getSnapshot).Methods(http.MethodGet)
	api.HandleFunc("/snapshot/{section}", s.getSection).Methods(http.MethodGet)
	api.HandleFunc("/status", s.getStatus).Methods(http.MethodGet)
	api.HandleFunc("/history", s.getHistory).Methods(http.MethodGet)
	api.HandleFunc("/interfaces", s.getInterfaces).Methods(http.MethodGet)
	api.HandleFunc("/stream", s.stream).Methods(http.MethodGet)
	api.HandleFunc("/refresh", s.refresh).Methods(http.MethodPost)

	api.HandleFunc("/interfaces/{name}/{action:up|down|restart}",
		s.requireToken(s.interfaceAction)).Methods(http.MethodPost)
	api.HandleFunc("/reboot", s.requireToken(s.reboot)).Methods(http.MethodPost)

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	}
}

// ServeHTTP implements http.Handler.
func (s *APIServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Start serves on addr until Stop is called.
func (s *APIServer) Start(addr string) error {
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	s.logger.Info("Starting HTTP API", "addr", addr)

	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// Stop shuts the server down gracefully.
func (s *APIServer) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}

	return s.srv.Shutdown(ctx)
}

func (s *APIServer) getSnapshot(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, currentOrEmpty(s.provider))
}

// getSection serves one snapshot field by its JSON name, or a pass-through
// section.
func (s *APIServer) getSection(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["section"]
	snap := currentOrEmpty(s.provider)

	if section, ok := snap.Sections[name]; ok {
		s.writeJSON(w, http.StatusOK, section)
		return
	}

	encoded, err := json.Marshal(snap)
	if err != nil {
		s.logger.Error("Failed to encode snapshot", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")

		return
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(encoded, &fields); err != nil {
		s.logger.Error("Failed to decode snapshot fields", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")

		return
	}

	field, ok := fields[name]
	if !ok || name == "sections" {
		writeError(w, http.StatusNotFound, "unknown section")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(field); err != nil {
		s.logger.Debug("Failed to write section", "error", err)
	}
}

func (s *APIServer) getStatus(w http.ResponseWriter, _ *http.Request) {
	snap := currentOrEmpty(s.provider)

	s.writeJSON(w, http.StatusOK, StatusResponse{
		Poller:      s.provider.Status(),
		CycleID:     snap.CycleID,
		CollectedAt: snap.CollectedAt,
		Stale:       snap.Stale,
		SessionOK:   snap.SessionOK,
		AbsentCalls: len(snap.AbsentCalls),
		Degraded:    snap.Degraded,
	})
}

func (s *APIServer) getHistory(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.provider.History())
}

func (s *APIServer) getInterfaces(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, currentOrEmpty(s.provider).Interfaces)
}

func (s *APIServer) refresh(w http.ResponseWriter, _ *http.Request) {
	switch err := s.provider.Refresh(); {
	case err == nil:
		s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
	case errors.Is(err, poller.ErrRefreshLimited):
		writeError(w, http.StatusTooManyRequests, err.Error())
	default:
		writeError(w, http.StatusServiceUnavailable, err.Error())
	}
}

func (s *APIServer) interfaceAction(w http.ResponseWriter, r *http.Request) {
	if s.controller == nil {
		writeError(w, http.StatusForbidden, "control endpoints are disabled")
		return
	}

	vars := mux.Vars(r)
	name := vars["name"]

	ctx, cancel := context.WithTimeout(r.Context(), controlTimeout)
	defer cancel()

	var (
		res control.Result
		err error
	)

	switch vars["action"] {
	case "up":
		res, err = s.controller.InterfaceUp(ctx, name)
	case "down":
		res, err = s.controller.InterfaceDown(ctx, name)
	default:
		res, err = s.controller.RestartInterface(ctx, name)
	}

	s.writeControlResult(w, res, err)
}

func (s *APIServer) reboot(w http.ResponseWriter, r *http.Request) {
	if s.controller == nil {
		writeError(w, http.StatusForbidden, "control endpoints are disabled")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), controlTimeout)
	defer cancel()

	res, err := s.controller.Reboot(ctx)
	s.writeControlResult(w, res, err)
}

func (s *APIServer) writeControlResult(w http.ResponseWriter, res control.Result, err error) {
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, res)
	case errors.Is(err, control.ErrInvalidInterface):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, control.ErrActionFailed):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusGatewayTimeout, err.Error())
	}
}

func (s *APIServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Error encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(errorResponse{Error: msg})
}

var _ http.Handler = (*APIServer)(nil)

// currentOrEmpty guards providers that have not published yet.
func currentOrEmpty(p SnapshotProvider) *snapshot.Snapshot {
	if snap := p.Current(); snap != nil {
		return snap
	}

	return snapshot.Empty()
}
