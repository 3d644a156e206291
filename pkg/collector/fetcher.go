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

package collector

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/mfreeman451/wrtmon/pkg/ubus"
)

// Fetcher fans a list of CallSpecs out over a Transport.
type Fetcher struct {
	transport ubus.Transport
	sessions  ubus.Sessions
	logger    *slog.Logger
	limit     int
}

// NewFetcher builds a fetcher. limit bounds the calls in flight; zero or
// less means unbounded.
func NewFetcher(transport ubus.Transport, sessions ubus.Sessions, limit int, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Fetcher{
		transport: transport,
		sessions:  sessions,
		logger:    logger.With("component", "fetcher"),
		limit:     limit,
	}
}

// FetchAll ensures a session once and issues every spec concurrently. The
// result is index-aligned with specs whatever fails.
func (f *Fetcher) FetchAll(ctx context.Context, specs []ubus.CallSpec) []ubus.CallResult {
	_, _, results := f.fetch(ctx, specs)

	return results
}

// fetch is FetchAll that also hands back the session used, for the probes.
func (f *Fetcher) fetch(ctx context.Context, specs []ubus.CallSpec) (string, bool, []ubus.CallResult) {
	token, ok := f.sessions.EnsureSession(ctx)
	if !ok {
		f.logger.Warn("No ubus session this cycle, all calls reported absent", "calls", len(specs))

		return "", false, absentAll(specs)
	}

	results := f.Batch(ctx, token, specs)
	f.logAbsent(results)

	if len(results) > 0 && countOK(results) == 0 {
		f.logger.Warn("Every ubus call came back absent, dropping session", "calls", len(results))
		f.sessions.Invalidate()
	}

	return token, true, results
}

// Batch issues specs concurrently with token. It never fails; absence is
// reported per result.
func (f *Fetcher) Batch(ctx context.Context, token string, specs []ubus.CallSpec) []ubus.CallResult {
	results := make([]ubus.CallResult, len(specs))

	var g errgroup.Group
	if f.limit > 0 {
		g.SetLimit(f.limit)
	}

	for i, s := range specs {
		g.Go(func() error {
			results[i] = f.call(ctx, token, s)

			return nil
		})
	}

	_ = g.Wait()

	return results
}

func (f *Fetcher) call(ctx context.Context, token string, s ubus.CallSpec) ubus.CallResult {
	value, ok := f.transport.Call(ctx, token, s.Namespace, s.Method, s.Params)
	if !ok {
		return ubus.Absent(s)
	}

	return ubus.CallResult{Spec: s, Value: value, OK: true}
}

func (f *Fetcher) logAbsent(results []ubus.CallResult) {
	for _, r := range results {
		if r.OK {
			continue
		}

		if quiet(r.Spec) {
			f.logger.Debug("Optional ubus method unavailable", "call", r.Spec.Key())
			continue
		}

		f.logger.Info("ubus call unavailable", "call", r.Spec.Key())
	}
}

func absentAll(specs []ubus.CallSpec) []ubus.CallResult {
	out := make([]ubus.CallResult, len(specs))
	for i, s := range specs {
		out[i] = ubus.Absent(s)
	}

	return out
}

func countOK(results []ubus.CallResult) int {
	n := 0

	for _, r := range results {
		if r.OK {
			n++
		}
	}

	return n
}
